package repository

import (
	"time"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// ShipmentFilter acota los listados de albaranes.
type ShipmentFilter struct {
	CustomerID string
	DateFrom   *time.Time
	DateTo     *time.Time
}

// ShipmentRepository define el puerto de persistencia para albaranes de envío.
// Create persiste cabecera y líneas.
type ShipmentRepository interface {
	Create(shipment *entity.Shipment) error
	GetByID(id string) (*entity.Shipment, error)
	GetByNumber(shipmentNumber string) (*entity.Shipment, error)
	List(filter ShipmentFilter) ([]*entity.Shipment, error)
	ListDetailsByLot(lotID string) ([]*entity.ShipmentDetail, error)
}

// ReturnRepository define el puerto de persistencia para devoluciones.
type ReturnRepository interface {
	Create(ret *entity.Return) error
	GetByID(id string) (*entity.Return, error)
	GetByNumber(returnNumber string) (*entity.Return, error)
	List(filter ShipmentFilter) ([]*entity.Return, error)
	ListDetailsByLot(lotID string) ([]*entity.ReturnDetail, error)
}

// CustomerRepository define el puerto de persistencia para clientes.
type CustomerRepository interface {
	Create(customer *entity.Customer) error
	GetByID(id string) (*entity.Customer, error)
	GetByCode(code string) (*entity.Customer, error)
	List(activeOnly bool) ([]*entity.Customer, error)
}
