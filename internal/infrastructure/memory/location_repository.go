package memory

import (
	"sort"

	"github.com/google/uuid"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.LocationRepository = (*LocationRepo)(nil)

// LocationRepo implementación en memoria de LocationRepository.
type LocationRepo struct {
	s *Store
}

func (r *LocationRepo) Create(location *entity.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if location.ID == "" {
		location.ID = uuid.New().String()
	}
	for _, l := range r.s.data.locations {
		if l.Code == location.Code {
			return domain.ErrDuplicate
		}
	}
	r.s.data.locations[location.ID] = *location
	return nil
}

func (r *LocationRepo) GetByID(id string) (*entity.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if l, ok := r.s.data.locations[id]; ok {
		return &l, nil
	}
	return nil, nil
}

func (r *LocationRepo) GetByCode(code string) (*entity.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, l := range r.s.data.locations {
		if l.Code == code {
			out := l
			return &out, nil
		}
	}
	return nil, nil
}

func (r *LocationRepo) List(activeOnly bool) ([]*entity.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.Location
	for _, l := range r.s.data.locations {
		if activeOnly && !l.Active {
			continue
		}
		out := l
		list = append(list, &out)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}
