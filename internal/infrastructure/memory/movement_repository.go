package memory

import (
	"github.com/google/uuid"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación en memoria del ledger. El slice conserva el
// orden de inserción, que es el orden cronológico de los listados.
type MovementRepo struct {
	s *Store
}

func (r *MovementRepo) Create(movement *entity.Movement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	r.s.data.movements = append(r.s.data.movements, *movement)
	return nil
}

func (r *MovementRepo) GetByID(id string) (*entity.Movement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := range r.s.data.movements {
		if r.s.data.movements[i].ID == id {
			out := r.s.data.movements[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (r *MovementRepo) ListByLot(lotID string) ([]*entity.Movement, error) {
	return r.list(func(m *entity.Movement) bool { return m.LotID == lotID })
}

func (r *MovementRepo) ListByLotAndKind(lotID string, kind entity.MovementKind) ([]*entity.Movement, error) {
	return r.list(func(m *entity.Movement) bool { return m.LotID == lotID && m.Kind == kind })
}

func (r *MovementRepo) ListByRef(refKind, refID string) ([]*entity.Movement, error) {
	return r.list(func(m *entity.Movement) bool { return m.RefKind == refKind && m.RefID == refID })
}

func (r *MovementRepo) CountByLot(lotID string) (int, error) {
	list, err := r.ListByLot(lotID)
	return len(list), err
}

func (r *MovementRepo) DeleteByLot(lotID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.data.movements[:0]
	for _, m := range r.s.data.movements {
		if m.LotID != lotID {
			kept = append(kept, m)
		}
	}
	r.s.data.movements = kept
	return nil
}

func (r *MovementRepo) list(match func(*entity.Movement) bool) ([]*entity.Movement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.Movement
	for i := range r.s.data.movements {
		m := r.s.data.movements[i]
		if match(&m) {
			out := m
			list = append(list, &out)
		}
	}
	return list, nil
}
