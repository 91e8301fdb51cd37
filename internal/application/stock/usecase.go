// Package stock agrupa las operaciones sobre lotes: altas (manuales y por
// recepción), ajustes de inventario, bloqueo, transferencias entre ubicaciones
// y eliminación. Toda mutación de cantidades pasa por el ledger.
package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Trazabilidad-api/internal/application/allocation"
	"github.com/jhoicas/Trazabilidad-api/internal/application/ledger"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/pkg/clock"
)

// UseCase implementa el almacén de lotes sobre el ledger.
type UseCase struct {
	txRunner ledger.TxRunner
	ledger   *ledger.Ledger
	repos    repository.Repos // repos atados al pool, solo lecturas
	clock    clock.Clock
}

// New construye el caso de uso.
func New(txRunner ledger.TxRunner, led *ledger.Ledger, repos repository.Repos, clk clock.Clock) *UseCase {
	return &UseCase{txRunner: txRunner, ledger: led, repos: repos, clock: clk}
}

// CreateLotInput datos para el alta manual de un lote.
type CreateLotInput struct {
	ProductID         string
	LotNumber         string
	ManufacturingDate time.Time
	ExpirationDate    *time.Time
	Quantity          decimal.Decimal
	Unit              string
	LocationCode      string // destino del stock inicial ("" = sin ubicación)
	Notes             string
}

// CreateLot crea un lote y registra su movimiento de entrada en la misma
// transacción. El lote nace con cantidad cero y es el movimiento de entrada
// quien la eleva a la inicial, de modo que la cantidad cacheada siempre es
// reproducible desde el ledger.
func (uc *UseCase) CreateLot(ctx context.Context, in CreateLotInput) (*entity.Lot, error) {
	if in.ProductID == "" || in.LotNumber == "" {
		return nil, domain.Validationf("producto y número de lote son requeridos")
	}
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.Validationf("la cantidad inicial debe ser mayor que cero")
	}

	var lot *entity.Lot
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		product, err := r.Products.GetByID(in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		existing, err := r.Lots.GetByProductAndNumber(in.ProductID, in.LotNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			return &domain.DuplicateLotNumberError{ProductID: in.ProductID, LotNumber: in.LotNumber}
		}

		unit := in.Unit
		if unit == "" {
			unit = product.StorageUnit
		}
		lot = &entity.Lot{
			ProductID:         in.ProductID,
			LotNumber:         in.LotNumber,
			ManufacturingDate: in.ManufacturingDate,
			ExpirationDate:    in.ExpirationDate,
			InitialQuantity:   in.Quantity,
			CurrentQuantity:   decimal.Zero,
			Unit:              unit,
			CreatedAt:         uc.clock.Now(),
		}
		if err := r.Lots.Create(lot); err != nil {
			return err
		}

		toLocation := ""
		if in.LocationCode != "" {
			loc, err := r.Locations.GetByCode(in.LocationCode)
			if err != nil {
				return err
			}
			if loc == nil {
				return fmt.Errorf("ubicación %s: %w", in.LocationCode, domain.ErrNotFound)
			}
			toLocation = loc.ID
		}
		notes := in.Notes
		if notes == "" {
			notes = "Entrada manual de lote"
		}
		_, err = uc.ledger.Apply(r, ledger.MovementInput{
			LotID:        lot.ID,
			Kind:         entity.MovementEntry,
			Quantity:     in.Quantity,
			ToLocationID: toLocation,
			Notes:        notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// ReceptionInput datos de una recepción de materia prima o envases.
type ReceptionInput struct {
	ProductID      string
	LotNumber      string
	ReceptionDate  time.Time
	ExpirationDate *time.Time
	Quantity       decimal.Decimal
	Unit           string
	Supplier       string
}

// ReceptionResult devuelve el lote creado y lo realmente almacenado tras la
// conversión de unidades.
type ReceptionResult struct {
	Lot            *entity.Lot
	QuantityStored decimal.Decimal
	UnitStored     string
}

// RegisterReception recepciona materia prima o envases: convierte la cantidad
// recibida a la unidad de almacenamiento del producto y crea el lote con su
// stock en la ubicación de recepción. La caducidad solo aplica a materias
// primas; la fecha de recepción hace de fecha de fabricación.
func (uc *UseCase) RegisterReception(ctx context.Context, in ReceptionInput) (*ReceptionResult, error) {
	product, err := uc.repos.Products.GetByID(in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	if !product.IsConsumable() {
		return nil, domain.Validationf("solo se pueden recepcionar materias primas y envases")
	}

	storageQty := product.ConvertToStorageUnit(in.Quantity, in.Unit)
	storageUnit := product.StorageUnit
	if storageUnit == "" {
		storageUnit = strings.ToLower(in.Unit)
	}
	expiration := in.ExpirationDate
	if product.Type != entity.ProductTypeRawMaterial {
		expiration = nil
	}

	lot, err := uc.CreateLot(ctx, CreateLotInput{
		ProductID:         in.ProductID,
		LotNumber:         in.LotNumber,
		ManufacturingDate: in.ReceptionDate,
		ExpirationDate:    expiration,
		Quantity:          storageQty,
		Unit:              storageUnit,
		LocationCode:      entity.LocationReception,
		Notes:             "Recepción - Proveedor: " + in.Supplier,
	})
	if err != nil {
		return nil, err
	}
	return &ReceptionResult{Lot: lot, QuantityStored: storageQty, UnitStored: storageUnit}, nil
}

// GetLot devuelve un lote por ID.
func (uc *UseCase) GetLot(ctx context.Context, lotID string) (*entity.Lot, error) {
	lot, err := uc.repos.Lots.GetByID(lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	return lot, nil
}

// ListLots lista lotes en orden FEFO/FIFO, con filtro opcional por estado
// derivado y por disponibilidad.
func (uc *UseCase) ListLots(ctx context.Context, filter repository.LotFilter, status string, availableOnly bool) ([]*entity.Lot, error) {
	lots, err := uc.repos.Lots.List(filter)
	if err != nil {
		return nil, err
	}
	allocation.SortLots(lots)

	today := uc.clock.Now()
	if status == "" && !availableOnly {
		return lots, nil
	}
	filtered := lots[:0]
	for _, lot := range lots {
		if status != "" && lot.Status(today) != status {
			continue
		}
		if availableOnly && !lot.IsAvailable(today) {
			continue
		}
		filtered = append(filtered, lot)
	}
	return filtered, nil
}

// Movements devuelve el historial de movimientos de un lote.
func (uc *UseCase) Movements(ctx context.Context, lotID string) ([]*entity.Movement, error) {
	lot, err := uc.repos.Lots.GetByID(lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	return uc.repos.Movements.ListByLot(lotID)
}

// ToggleBlock invierte el flag de bloqueo del lote. No toca cantidades: el
// estado derivado pasará a blocked mientras el flag esté activo.
func (uc *UseCase) ToggleBlock(ctx context.Context, lotID string) (*entity.Lot, error) {
	var lot *entity.Lot
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		var err error
		lot, err = r.Lots.GetForUpdate(lotID)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrNotFound
		}
		lot.Blocked = !lot.Blocked
		return r.Lots.Update(lot)
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// Adjust fija la cantidad real contada de un lote registrando un movimiento de
// ajuste con el delta calculado dentro de la transacción. Serializa contra
// cualquier consumo concurrente del mismo lote vía el bloqueo de fila.
func (uc *UseCase) Adjust(ctx context.Context, lotID string, realQuantity decimal.Decimal, notes string) (*entity.Movement, error) {
	if notes == "" {
		notes = "Ajuste de inventario manual"
	}
	return uc.ledger.Record(ctx, ledger.MovementInput{
		LotID:          lotID,
		Kind:           entity.MovementAdjustment,
		AbsoluteTarget: &realQuantity,
		Notes:          notes,
	})
}

// Transfer mueve stock de un lote entre dos ubicaciones de forma atómica
// (decrementa origen e incrementa destino con efecto neto cero).
func (uc *UseCase) Transfer(ctx context.Context, lotID, fromCode, toCode string, quantity decimal.Decimal, notes string) (*entity.Movement, error) {
	from, err := uc.repos.Locations.GetByCode(fromCode)
	if err != nil {
		return nil, err
	}
	to, err := uc.repos.Locations.GetByCode(toCode)
	if err != nil {
		return nil, err
	}
	if from == nil || to == nil {
		return nil, fmt.Errorf("ubicación origen o destino: %w", domain.ErrNotFound)
	}
	if notes == "" {
		notes = fmt.Sprintf("Transferencia de %s a %s", from.Name, to.Name)
	}
	return uc.ledger.Record(ctx, ledger.MovementInput{
		LotID:          lotID,
		Kind:           entity.MovementTransfer,
		Quantity:       quantity,
		FromLocationID: from.ID,
		ToLocationID:   to.ID,
		Notes:          notes,
	})
}

// LocationBreakdown devuelve el desglose de stock por ubicación de un lote.
func (uc *UseCase) LocationBreakdown(ctx context.Context, lotID string) ([]*entity.LotLocation, error) {
	lot, err := uc.repos.Lots.GetByID(lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	return uc.repos.LotLocations.ListByLot(lotID)
}

// Discrepancy es un lote cuya cantidad cacheada no cuadra con su historia de
// movimientos o con su desglose por ubicación.
type Discrepancy struct {
	LotID        string
	LotNumber    string
	Cached       decimal.Decimal
	LedgerSum    decimal.Decimal
	LocationsSum decimal.Decimal
}

// Audit recorre todos los lotes y comprueba los dos invariantes del ledger:
// la cantidad cacheada debe igualar la suma de deltas de sus movimientos y la
// suma de su desglose por ubicación. Devuelve los lotes que no cuadran.
func (uc *UseCase) Audit(ctx context.Context) ([]Discrepancy, error) {
	lots, err := uc.repos.Lots.List(repository.LotFilter{})
	if err != nil {
		return nil, err
	}
	var bad []Discrepancy
	for _, lot := range lots {
		movements, err := uc.repos.Movements.ListByLot(lot.ID)
		if err != nil {
			return nil, err
		}
		ledgerSum := decimal.Zero
		for _, m := range movements {
			ledgerSum = ledgerSum.Add(m.LotDelta())
		}
		breakdown, err := uc.repos.LotLocations.ListByLot(lot.ID)
		if err != nil {
			return nil, err
		}
		locationsSum := decimal.Zero
		for _, ll := range breakdown {
			locationsSum = locationsSum.Add(ll.Quantity)
		}
		ledgerOK := ledgerSum.Equal(lot.CurrentQuantity)
		// Un lote sin desglose (sin ubicación asignada) no incumple nada.
		locationsOK := len(breakdown) == 0 || locationsSum.Equal(lot.CurrentQuantity)
		if !ledgerOK || !locationsOK {
			bad = append(bad, Discrepancy{
				LotID:        lot.ID,
				LotNumber:    lot.LotNumber,
				Cached:       lot.CurrentQuantity,
				LedgerSum:    ledgerSum,
				LocationsSum: locationsSum,
			})
		}
	}
	return bad, nil
}

// DeleteLot elimina un lote que nunca llegó a usarse: solo se permite si su
// único movimiento es el alta y ningún documento lo referencia.
func (uc *UseCase) DeleteLot(ctx context.Context, lotID string) error {
	return uc.txRunner.Run(ctx, func(r repository.Repos) error {
		lot, err := r.Lots.GetForUpdate(lotID)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrNotFound
		}
		count, err := r.Movements.CountByLot(lotID)
		if err != nil {
			return err
		}
		if count > 1 {
			return &domain.LotInUseError{LotID: lotID, Reason: "tiene movimientos posteriores al alta"}
		}
		materials, err := r.Orders.ListMaterialsByLot(lotID)
		if err != nil {
			return err
		}
		if len(materials) > 0 {
			return &domain.LotInUseError{LotID: lotID, Reason: "ha sido usado en producciones"}
		}
		details, err := r.Shipments.ListDetailsByLot(lotID)
		if err != nil {
			return err
		}
		if len(details) > 0 {
			return &domain.LotInUseError{LotID: lotID, Reason: "ha sido enviado a clientes"}
		}
		if err := r.Movements.DeleteByLot(lotID); err != nil {
			return err
		}
		if err := r.LotLocations.DeleteByLot(lotID); err != nil {
			return err
		}
		return r.Lots.Delete(lotID)
	})
}
