package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shipment es un albarán de salida a cliente. Solo se envían productos acabados
// desde la ubicación liberada.
type Shipment struct {
	ID             string
	CustomerID     string
	ShipmentNumber string
	ShipmentDate   time.Time
	Notes          string
	CreatedAt      time.Time

	Details []*ShipmentDetail
}

// ShipmentDetail es una línea de albarán: un lote y la cantidad enviada.
type ShipmentDetail struct {
	ID         string
	ShipmentID string
	LotID      string
	Quantity   decimal.Decimal
	Unit       string
}
