package repository

import "github.com/jhoicas/Trazabilidad-api/internal/domain/entity"

// ProductionOrderRepository define el puerto de persistencia para órdenes de
// producción, sus líneas de producto acabado y sus materiales consumidos.
// GetByID y GetForUpdate devuelven la orden con líneas y materiales cargados.
type ProductionOrderRepository interface {
	Create(order *entity.ProductionOrder) error
	GetByID(id string) (*entity.ProductionOrder, error)
	GetForUpdate(id string) (*entity.ProductionOrder, error)
	GetByNumber(orderNumber string) (*entity.ProductionOrder, error)
	Update(order *entity.ProductionOrder) error
	List(statusFilter string) ([]*entity.ProductionOrder, error)

	AddLine(line *entity.ProductionOrderLine) error
	UpdateLine(line *entity.ProductionOrderLine) error
	// FindLineByLotID localiza la línea que produjo un lote (enlace directo).
	FindLineByLotID(lotID string) (*entity.ProductionOrderLine, error)

	AddMaterial(material *entity.ProductionOrderMaterial) error
	GetMaterial(orderID, materialID string) (*entity.ProductionOrderMaterial, error)
	DeleteMaterial(materialID string) error
	ListMaterialsByLot(lotID string) ([]*entity.ProductionOrderMaterial, error)
}
