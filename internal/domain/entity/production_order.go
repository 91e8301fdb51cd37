package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una orden de producción. closed es terminal.
const (
	OrderStatusDraft      = "draft"
	OrderStatusInProgress = "in_progress"
	OrderStatusClosed     = "closed"
)

// ProductionOrder orquesta el consumo de lotes de materiales y la creación de
// lotes de producto acabado. El número de lote y las fechas de la cabecera son
// compartidos por todas las líneas al cerrar.
type ProductionOrder struct {
	ID              string
	OrderNumber     string // YYYY-NNN, secuencial por año
	BaseProductName string
	BaseLotNumber   string
	ProductionDate  time.Time
	ExpirationDate  *time.Time
	Status          string
	Notes           string
	CreatedAt       time.Time
	ClosedAt        *time.Time

	Lines     []*ProductionOrderLine
	Materials []*ProductionOrderMaterial
}

// IsClosed indica si la orden está en su estado terminal.
func (o *ProductionOrder) IsClosed() bool {
	return o.Status == OrderStatusClosed
}

// LineByID busca una línea de producto acabado por su ID. Devuelve nil si no existe.
func (o *ProductionOrder) LineByID(id string) *ProductionOrderLine {
	for _, line := range o.Lines {
		if line.ID == id {
			return line
		}
	}
	return nil
}

// ProductionOrderLine es un producto acabado objetivo de la orden. LotID se
// rellena al cerrar, cuando se crea el lote resultante.
type ProductionOrderLine struct {
	ID               string
	OrderID          string
	ProductID        string
	TargetQuantity   *decimal.Decimal
	ProducedQuantity *decimal.Decimal
	Unit             string
	LotID            string // vacío hasta el cierre
	CreatedAt        time.Time
}

// ProductionOrderMaterial es un lote de material consumido por la orden.
// LineID vacío significa material común a todas las líneas. QuantityConsumed
// está en unidad de almacenamiento; OriginalQuantity/OriginalUnit conservan lo
// introducido en receta para mostrarlo.
type ProductionOrderMaterial struct {
	ID               string
	OrderID          string
	LotID            string
	QuantityConsumed decimal.Decimal
	Unit             string
	OriginalQuantity decimal.Decimal
	OriginalUnit     string
	LineID           string // "" = común
}
