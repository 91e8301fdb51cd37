package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind distingue el origen de cada movimiento. El consumo y la salida de
// producción se separan para no depender del signo del delta.
type MovementKind string

// Tipos de movimiento del ledger.
const (
	MovementEntry             MovementKind = "entry"
	MovementShipment          MovementKind = "shipment"
	MovementProductionConsume MovementKind = "production_consume"
	MovementProductionOutput  MovementKind = "production_output"
	MovementAdjustment        MovementKind = "adjustment"
	MovementReturn            MovementKind = "return"
	MovementTransfer          MovementKind = "transfer"
)

// Referencias posibles de un movimiento al documento que lo originó.
const (
	RefProductionOrder = "production_order"
	RefShipment        = "shipment"
	RefReturn          = "return"
)

// Movement es una entrada inmutable del ledger de cantidades. Quantity es el
// delta con signo aplicado a la cantidad del lote; una vez escrito no se edita
// ni se borra (las reversiones se registran como movimientos compensatorios).
// Para transfers, Quantity es la cantidad movida entre ubicaciones y el efecto
// neto sobre el lote es cero (ver LotDelta).
type Movement struct {
	ID             string
	LotID          string
	Kind           MovementKind
	Quantity       decimal.Decimal // delta con signo
	MovementDate   time.Time
	RefKind        string // production_order, shipment, return ("" si manual)
	RefID          string
	MaterialLineID string // línea de producto acabado asociada ("" = común)
	FromLocationID string
	ToLocationID   string
	Notes          string
}

// LotDelta devuelve el efecto del movimiento sobre la cantidad total del lote.
// Un transfer mueve stock entre ubicaciones sin alterar el total, así que su
// delta es cero aunque Quantity registre la cantidad movida.
func (m *Movement) LotDelta() decimal.Decimal {
	if m.Kind == MovementTransfer {
		return decimal.Zero
	}
	return m.Quantity
}

// IsInbound indica si el movimiento incrementa la cantidad del lote.
func (m *Movement) IsInbound() bool {
	return m.LotDelta().GreaterThan(decimal.Zero)
}
