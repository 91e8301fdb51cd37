package memory

import (
	"sort"

	"github.com/google/uuid"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.ShipmentRepository = (*ShipmentRepo)(nil)
var _ repository.ReturnRepository = (*ReturnRepo)(nil)

// ShipmentRepo implementación en memoria del puerto de albaranes.
type ShipmentRepo struct {
	s *Store
}

func (r *ShipmentRepo) Create(shipment *entity.Shipment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if shipment.ID == "" {
		shipment.ID = uuid.New().String()
	}
	for _, s := range r.s.data.shipments {
		if s.ShipmentNumber == shipment.ShipmentNumber {
			return domain.ErrDuplicate
		}
	}
	header := *shipment
	header.Details = nil
	r.s.data.shipments[shipment.ID] = header
	for _, detail := range shipment.Details {
		if detail.ID == "" {
			detail.ID = uuid.New().String()
		}
		detail.ShipmentID = shipment.ID
		r.s.data.shipmentDetails = append(r.s.data.shipmentDetails, *detail)
	}
	return nil
}

func (r *ShipmentRepo) GetByID(id string) (*entity.Shipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.assemble(id), nil
}

func (r *ShipmentRepo) GetByNumber(shipmentNumber string) (*entity.Shipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for id, s := range r.s.data.shipments {
		if s.ShipmentNumber == shipmentNumber {
			return r.assemble(id), nil
		}
	}
	return nil, nil
}

func (r *ShipmentRepo) List(filter repository.ShipmentFilter) ([]*entity.Shipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.Shipment
	for id, s := range r.s.data.shipments {
		if filter.CustomerID != "" && s.CustomerID != filter.CustomerID {
			continue
		}
		if filter.DateFrom != nil && s.ShipmentDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && s.ShipmentDate.After(*filter.DateTo) {
			continue
		}
		list = append(list, r.assemble(id))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ShipmentDate.After(list[j].ShipmentDate) })
	return list, nil
}

func (r *ShipmentRepo) ListDetailsByLot(lotID string) ([]*entity.ShipmentDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.ShipmentDetail
	for i := range r.s.data.shipmentDetails {
		d := r.s.data.shipmentDetails[i]
		if d.LotID == lotID {
			out := d
			list = append(list, &out)
		}
	}
	return list, nil
}

func (r *ShipmentRepo) assemble(id string) *entity.Shipment {
	header, ok := r.s.data.shipments[id]
	if !ok {
		return nil
	}
	shipment := header
	for i := range r.s.data.shipmentDetails {
		if r.s.data.shipmentDetails[i].ShipmentID == id {
			detail := r.s.data.shipmentDetails[i]
			shipment.Details = append(shipment.Details, &detail)
		}
	}
	return &shipment
}

// ReturnRepo implementación en memoria del puerto de devoluciones.
type ReturnRepo struct {
	s *Store
}

func (r *ReturnRepo) Create(ret *entity.Return) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ret.ID == "" {
		ret.ID = uuid.New().String()
	}
	for _, existing := range r.s.data.returns {
		if existing.ReturnNumber == ret.ReturnNumber {
			return domain.ErrDuplicate
		}
	}
	header := *ret
	header.Details = nil
	r.s.data.returns[ret.ID] = header
	for _, detail := range ret.Details {
		if detail.ID == "" {
			detail.ID = uuid.New().String()
		}
		detail.ReturnID = ret.ID
		r.s.data.returnDetails = append(r.s.data.returnDetails, *detail)
	}
	return nil
}

func (r *ReturnRepo) GetByID(id string) (*entity.Return, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.assemble(id), nil
}

func (r *ReturnRepo) GetByNumber(returnNumber string) (*entity.Return, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for id, ret := range r.s.data.returns {
		if ret.ReturnNumber == returnNumber {
			return r.assemble(id), nil
		}
	}
	return nil, nil
}

func (r *ReturnRepo) List(filter repository.ShipmentFilter) ([]*entity.Return, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.Return
	for id, ret := range r.s.data.returns {
		if filter.CustomerID != "" && ret.CustomerID != filter.CustomerID {
			continue
		}
		if filter.DateFrom != nil && ret.ReturnDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && ret.ReturnDate.After(*filter.DateTo) {
			continue
		}
		list = append(list, r.assemble(id))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ReturnDate.After(list[j].ReturnDate) })
	return list, nil
}

func (r *ReturnRepo) ListDetailsByLot(lotID string) ([]*entity.ReturnDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.ReturnDetail
	for i := range r.s.data.returnDetails {
		d := r.s.data.returnDetails[i]
		if d.LotID == lotID {
			out := d
			list = append(list, &out)
		}
	}
	return list, nil
}

func (r *ReturnRepo) assemble(id string) *entity.Return {
	header, ok := r.s.data.returns[id]
	if !ok {
		return nil
	}
	ret := header
	for i := range r.s.data.returnDetails {
		if r.s.data.returnDetails[i].ReturnID == id {
			detail := r.s.data.returnDetails[i]
			ret.Details = append(ret.Details, &detail)
		}
	}
	return &ret
}
