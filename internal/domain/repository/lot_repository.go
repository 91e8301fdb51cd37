package repository

import "github.com/jhoicas/Trazabilidad-api/internal/domain/entity"

// LotFilter acota los listados de lotes. Los filtros por estado derivado se
// aplican en el caso de uso, no aquí.
type LotFilter struct {
	ProductID     string
	LotNumber     string // subcadena, sin distinción de mayúsculas
	OnlyWithStock bool
}

// LotRepository define el puerto de persistencia para lotes. GetForUpdate
// bloquea la fila del lote (SELECT FOR UPDATE) dentro de la transacción actual.
type LotRepository interface {
	Create(lot *entity.Lot) error
	GetByID(id string) (*entity.Lot, error)
	GetForUpdate(id string) (*entity.Lot, error)
	GetByProductAndNumber(productID, lotNumber string) (*entity.Lot, error)
	// Update persiste la cantidad cacheada y el flag de bloqueo. Solo el ledger
	// y toggle-block escriben por aquí.
	Update(lot *entity.Lot) error
	List(filter LotFilter) ([]*entity.Lot, error)
	Delete(id string) error
}

// LotLocationRepository define el puerto para el desglose de stock por ubicación.
type LotLocationRepository interface {
	Get(lotID, locationID string) (*entity.LotLocation, error)
	GetForUpdate(lotID, locationID string) (*entity.LotLocation, error)
	Upsert(ll *entity.LotLocation) error
	ListByLot(lotID string) ([]*entity.LotLocation, error)
	DeleteByLot(lotID string) error
}

// LocationRepository define el puerto para ubicaciones de almacén.
type LocationRepository interface {
	Create(location *entity.Location) error
	GetByID(id string) (*entity.Location, error)
	GetByCode(code string) (*entity.Location, error)
	List(activeOnly bool) ([]*entity.Location, error)
}
