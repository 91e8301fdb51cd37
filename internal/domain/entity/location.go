package entity

import "github.com/shopspring/decimal"

// Códigos de ubicación conocidos por los flujos estándar. El motor no los exige:
// los crean las migraciones y los pasan los casos de uso.
const (
	LocationReception  = "REC" // recepción pendiente de revisión
	LocationReleased   = "LIB" // liberado: único stock disponible para consumo/envío
	LocationProduction = "FAB" // producción pendiente de liberar
	LocationReturns    = "DEV" // devoluciones
)

// Location es una ubicación física de almacén. IsAvailable marca si su stock
// cuenta como disponible para asignación.
type Location struct {
	ID          string
	Code        string
	Name        string
	IsAvailable bool
	Active      bool
}

// LotLocation es la cantidad de un lote en una ubicación concreta. La suma por
// lote debe igualar siempre Lot.CurrentQuantity; nunca puede ser negativa.
type LotLocation struct {
	ID         string
	LotID      string
	LocationID string
	Quantity   decimal.Decimal
}
