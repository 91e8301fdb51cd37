package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un lote. Nunca se almacenan: se derivan de cantidad, caducidad y bloqueo.
const (
	LotStatusActive   = "active"
	LotStatusExpired  = "expired"
	LotStatusDepleted = "depleted"
	LotStatusBlocked  = "blocked"
)

// Lot representa un lote trazable de un producto. El número de lote es único por
// producto. CurrentQuantity es una caché mantenida transaccionalmente por el
// ledger de movimientos; nunca se escribe por otra vía.
type Lot struct {
	ID                string
	ProductID         string
	LotNumber         string
	ManufacturingDate time.Time
	ExpirationDate    *time.Time
	InitialQuantity   decimal.Decimal
	CurrentQuantity   decimal.Decimal
	Unit              string
	Blocked           bool
	CreatedAt         time.Time
}

// ComputeStatus deriva el estado de un lote a partir de sus entradas. Función pura:
// el bloqueo manda sobre todo, luego agotado, luego caducado.
func ComputeStatus(quantity decimal.Decimal, expiration *time.Time, blocked bool, today time.Time) string {
	if blocked {
		return LotStatusBlocked
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return LotStatusDepleted
	}
	if expiration != nil && expiration.Before(truncateToDay(today)) {
		return LotStatusExpired
	}
	return LotStatusActive
}

// Status devuelve el estado derivado del lote a la fecha indicada.
func (l *Lot) Status(today time.Time) string {
	return ComputeStatus(l.CurrentQuantity, l.ExpirationDate, l.Blocked, today)
}

// IsAvailable indica si el lote puede consumirse o enviarse (estado active).
func (l *Lot) IsAvailable(today time.Time) bool {
	return l.Status(today) == LotStatusActive
}

// DaysToExpiration devuelve los días restantes hasta caducidad, o nil si no caduca.
func (l *Lot) DaysToExpiration(today time.Time) *int {
	if l.ExpirationDate == nil {
		return nil
	}
	days := int(l.ExpirationDate.Sub(truncateToDay(today)).Hours() / 24)
	return &days
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
