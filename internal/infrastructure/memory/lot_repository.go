package memory

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)
var _ repository.LotLocationRepository = (*LotLocationRepo)(nil)

// LotRepo implementación en memoria de LotRepository. GetForUpdate equivale a
// GetByID: el TxRunner ya serializa las transacciones completas.
type LotRepo struct {
	s *Store
}

func (r *LotRepo) Create(lot *entity.Lot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}
	for _, l := range r.s.data.lots {
		if l.ProductID == lot.ProductID && l.LotNumber == lot.LotNumber {
			return domain.ErrDuplicate
		}
	}
	r.s.data.lots[lot.ID] = *lot
	return nil
}

func (r *LotRepo) GetByID(id string) (*entity.Lot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if l, ok := r.s.data.lots[id]; ok {
		return &l, nil
	}
	return nil, nil
}

func (r *LotRepo) GetForUpdate(id string) (*entity.Lot, error) {
	return r.GetByID(id)
}

func (r *LotRepo) GetByProductAndNumber(productID, lotNumber string) (*entity.Lot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, l := range r.s.data.lots {
		if l.ProductID == productID && l.LotNumber == lotNumber {
			out := l
			return &out, nil
		}
	}
	return nil, nil
}

func (r *LotRepo) Update(lot *entity.Lot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.lots[lot.ID] = *lot
	return nil
}

func (r *LotRepo) List(filter repository.LotFilter) ([]*entity.Lot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.Lot
	for _, l := range r.s.data.lots {
		if filter.ProductID != "" && l.ProductID != filter.ProductID {
			continue
		}
		if filter.LotNumber != "" &&
			!strings.Contains(strings.ToLower(l.LotNumber), strings.ToLower(filter.LotNumber)) {
			continue
		}
		if filter.OnlyWithStock && !l.CurrentQuantity.GreaterThan(decimal.Zero) {
			continue
		}
		out := l
		list = append(list, &out)
	}
	// Caducidad ascendente con los que no caducan al final, como el ORDER BY
	// de la variante PostgreSQL.
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch {
		case a.ExpirationDate == nil && b.ExpirationDate == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.ExpirationDate == nil:
			return false
		case b.ExpirationDate == nil:
			return true
		case a.ExpirationDate.Equal(*b.ExpirationDate):
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.ExpirationDate.Before(*b.ExpirationDate)
		}
	})
	return list, nil
}

func (r *LotRepo) Delete(id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.data.lots, id)
	return nil
}

// LotLocationRepo implementación en memoria del desglose de stock por ubicación.
type LotLocationRepo struct {
	s *Store
}

func (r *LotLocationRepo) Get(lotID, locationID string) (*entity.LotLocation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := range r.s.data.lotLocations {
		ll := r.s.data.lotLocations[i]
		if ll.LotID == lotID && ll.LocationID == locationID {
			return &ll, nil
		}
	}
	return nil, nil
}

func (r *LotLocationRepo) GetForUpdate(lotID, locationID string) (*entity.LotLocation, error) {
	return r.Get(lotID, locationID)
}

func (r *LotLocationRepo) Upsert(ll *entity.LotLocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.data.lotLocations {
		existing := &r.s.data.lotLocations[i]
		if existing.LotID == ll.LotID && existing.LocationID == ll.LocationID {
			existing.Quantity = ll.Quantity
			return nil
		}
	}
	if ll.ID == "" {
		ll.ID = uuid.New().String()
	}
	r.s.data.lotLocations = append(r.s.data.lotLocations, *ll)
	return nil
}

func (r *LotLocationRepo) ListByLot(lotID string) ([]*entity.LotLocation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.LotLocation
	for i := range r.s.data.lotLocations {
		ll := r.s.data.lotLocations[i]
		if ll.LotID == lotID {
			out := ll
			list = append(list, &out)
		}
	}
	return list, nil
}

func (r *LotLocationRepo) DeleteByLot(lotID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.data.lotLocations[:0]
	for _, ll := range r.s.data.lotLocations {
		if ll.LotID != lotID {
			kept = append(kept, ll)
		}
	}
	r.s.data.lotLocations = kept
	return nil
}
