package memory

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)
var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// CustomerRepo implementación en memoria de CustomerRepository.
type CustomerRepo struct {
	s *Store
}

func (r *CustomerRepo) Create(customer *entity.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if customer.ID == "" {
		customer.ID = uuid.New().String()
	}
	for _, c := range r.s.data.customers {
		if c.Code == customer.Code {
			return domain.ErrDuplicate
		}
	}
	r.s.data.customers[customer.ID] = *customer
	return nil
}

func (r *CustomerRepo) GetByID(id string) (*entity.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if c, ok := r.s.data.customers[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r *CustomerRepo) GetByCode(code string) (*entity.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.data.customers {
		if c.Code == code {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (r *CustomerRepo) List(activeOnly bool) ([]*entity.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.Customer
	for _, c := range r.s.data.customers {
		if activeOnly && !c.Active {
			continue
		}
		out := c
		list = append(list, &out)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// SequenceRepo asigna números de documento sobre un mapa. El TxRunner
// serializa las transacciones, así que no hay carreras entre documentos.
type SequenceRepo struct {
	s *Store
}

func (r *SequenceRepo) next(name string, year int) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := fmt.Sprintf("%s-%d", name, year)
	r.s.data.sequences[key]++
	return r.s.data.sequences[key]
}

func (r *SequenceRepo) NextOrderNumber(year int) (string, error) {
	return fmt.Sprintf("%d-%03d", year, r.next("production_order", year)), nil
}

func (r *SequenceRepo) NextReturnNumber(year int) (string, error) {
	return fmt.Sprintf("DEV-%d-%03d", year, r.next("return", year)), nil
}

func (r *SequenceRepo) NextCustomerCode() (string, error) {
	return fmt.Sprintf("CLI-%04d", r.next("customer", 0)), nil
}
