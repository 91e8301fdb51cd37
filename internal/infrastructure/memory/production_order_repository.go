package memory

import (
	"sort"

	"github.com/google/uuid"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.ProductionOrderRepository = (*ProductionOrderRepo)(nil)

// ProductionOrderRepo implementación en memoria del puerto de órdenes. Las
// cabeceras se guardan sin hijos; líneas y materiales se ensamblan al leer.
type ProductionOrderRepo struct {
	s *Store
}

func (r *ProductionOrderRepo) Create(order *entity.ProductionOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for _, o := range r.s.data.orders {
		if o.OrderNumber == order.OrderNumber {
			return domain.ErrDuplicate
		}
	}
	header := *order
	header.Lines = nil
	header.Materials = nil
	r.s.data.orders[order.ID] = header
	return nil
}

func (r *ProductionOrderRepo) GetByID(id string) (*entity.ProductionOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.assemble(id), nil
}

func (r *ProductionOrderRepo) GetForUpdate(id string) (*entity.ProductionOrder, error) {
	return r.GetByID(id)
}

func (r *ProductionOrderRepo) GetByNumber(orderNumber string) (*entity.ProductionOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for id, o := range r.s.data.orders {
		if o.OrderNumber == orderNumber {
			return r.assemble(id), nil
		}
	}
	return nil, nil
}

func (r *ProductionOrderRepo) Update(order *entity.ProductionOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	header := *order
	header.Lines = nil
	header.Materials = nil
	r.s.data.orders[order.ID] = header
	return nil
}

func (r *ProductionOrderRepo) List(statusFilter string) ([]*entity.ProductionOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.ProductionOrder
	for id, o := range r.s.data.orders {
		if statusFilter != "" && o.Status != statusFilter {
			continue
		}
		list = append(list, r.assemble(id))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *ProductionOrderRepo) AddLine(line *entity.ProductionOrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	r.s.data.lines = append(r.s.data.lines, *line)
	return nil
}

func (r *ProductionOrderRepo) UpdateLine(line *entity.ProductionOrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.data.lines {
		if r.s.data.lines[i].ID == line.ID {
			r.s.data.lines[i] = *line
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *ProductionOrderRepo) FindLineByLotID(lotID string) (*entity.ProductionOrderLine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := range r.s.data.lines {
		if r.s.data.lines[i].LotID == lotID && lotID != "" {
			out := r.s.data.lines[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (r *ProductionOrderRepo) AddMaterial(material *entity.ProductionOrderMaterial) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if material.ID == "" {
		material.ID = uuid.New().String()
	}
	r.s.data.materials = append(r.s.data.materials, *material)
	return nil
}

func (r *ProductionOrderRepo) GetMaterial(orderID, materialID string) (*entity.ProductionOrderMaterial, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := range r.s.data.materials {
		m := r.s.data.materials[i]
		if m.OrderID == orderID && m.ID == materialID {
			out := m
			return &out, nil
		}
	}
	return nil, nil
}

func (r *ProductionOrderRepo) DeleteMaterial(materialID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.data.materials[:0]
	for _, m := range r.s.data.materials {
		if m.ID != materialID {
			kept = append(kept, m)
		}
	}
	r.s.data.materials = kept
	return nil
}

func (r *ProductionOrderRepo) ListMaterialsByLot(lotID string) ([]*entity.ProductionOrderMaterial, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.ProductionOrderMaterial
	for i := range r.s.data.materials {
		m := r.s.data.materials[i]
		if m.LotID == lotID {
			out := m
			list = append(list, &out)
		}
	}
	return list, nil
}

// assemble monta la orden con sus hijos. Requiere el lock tomado por el caller.
func (r *ProductionOrderRepo) assemble(id string) *entity.ProductionOrder {
	header, ok := r.s.data.orders[id]
	if !ok {
		return nil
	}
	order := header
	for i := range r.s.data.lines {
		if r.s.data.lines[i].OrderID == id {
			line := r.s.data.lines[i]
			order.Lines = append(order.Lines, &line)
		}
	}
	for i := range r.s.data.materials {
		if r.s.data.materials[i].OrderID == id {
			material := r.s.data.materials[i]
			order.Materials = append(order.Materials, &material)
		}
	}
	return &order
}
