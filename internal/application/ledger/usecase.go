// Package ledger implementa el ledger de cantidades: el único escritor de
// Lot.CurrentQuantity y del desglose por ubicación. Cada cambio de cantidad se
// registra como un movimiento inmutable y se aplica en la misma transacción que
// actualiza la caché, bloqueando la fila del lote para que dos consumidores
// concurrentes nunca observen ni provoquen una cantidad negativa.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/pkg/clock"
)

// Ledger registra movimientos de forma transaccional.
type Ledger struct {
	txRunner TxRunner
	clock    clock.Clock
}

// New construye el ledger.
func New(txRunner TxRunner, clk clock.Clock) *Ledger {
	return &Ledger{txRunner: txRunner, clock: clk}
}

// MovementInput describe un movimiento a registrar.
//
// Para adjustment se indica AbsoluteTarget (cantidad real contada) y el delta
// se calcula contra la cantidad bloqueada dentro de la transacción; Quantity se
// ignora. Para transfer, Quantity es la cantidad a mover (positiva) y se exigen
// ambas ubicaciones. Para el resto, Quantity es el delta con signo.
type MovementInput struct {
	LotID          string
	Kind           entity.MovementKind
	Quantity       decimal.Decimal
	AbsoluteTarget *decimal.Decimal
	RefKind        string
	RefID          string
	MaterialLineID string
	FromLocationID string
	ToLocationID   string
	Notes          string
}

// Record abre su propia transacción y aplica el movimiento.
func (l *Ledger) Record(ctx context.Context, in MovementInput) (*entity.Movement, error) {
	var mov *entity.Movement
	err := l.txRunner.Run(ctx, func(r repository.Repos) error {
		var err error
		mov, err = l.Apply(r, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// Apply registra el movimiento usando los repositorios de la transacción del
// llamador (patrón in-tx: otros casos de uso lo invocan dentro de su propia
// transacción para que el cierre de una orden o un albarán multi-línea sea
// todo-o-nada). Bloquea la fila del lote, valida que el resultado no sea
// negativo, actualiza la cantidad cacheada y el desglose por ubicación y
// persiste el movimiento.
//
// Un adjustment cuyo delta resulta cero no registra nada y devuelve (nil, nil).
func (l *Ledger) Apply(r repository.Repos, in MovementInput) (*entity.Movement, error) {
	lot, err := r.Lots.GetForUpdate(in.LotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}

	delta := in.Quantity
	switch in.Kind {
	case entity.MovementAdjustment:
		if in.AbsoluteTarget == nil {
			return nil, domain.Validationf("un ajuste requiere la cantidad real contada")
		}
		if in.AbsoluteTarget.LessThan(decimal.Zero) {
			return nil, domain.Validationf("la cantidad ajustada no puede ser negativa")
		}
		delta = in.AbsoluteTarget.Sub(lot.CurrentQuantity)
		if delta.IsZero() {
			return nil, nil
		}
	case entity.MovementTransfer:
		if !in.Quantity.GreaterThan(decimal.Zero) {
			return nil, domain.Validationf("la cantidad a transferir debe ser mayor que cero")
		}
		if in.FromLocationID == "" || in.ToLocationID == "" || in.FromLocationID == in.ToLocationID {
			return nil, domain.Validationf("una transferencia requiere ubicaciones origen y destino distintas")
		}
		delta = decimal.Zero
	case entity.MovementEntry, entity.MovementReturn, entity.MovementProductionOutput:
		if !in.Quantity.GreaterThan(decimal.Zero) {
			return nil, domain.Validationf("el movimiento %s requiere una cantidad positiva", in.Kind)
		}
	case entity.MovementShipment:
		if !in.Quantity.LessThan(decimal.Zero) {
			return nil, domain.Validationf("el movimiento %s requiere un delta negativo", in.Kind)
		}
	case entity.MovementProductionConsume:
		// Negativo al consumir; positivo solo como reversión compensatoria.
		if in.Quantity.IsZero() {
			return nil, domain.Validationf("el movimiento %s requiere un delta distinto de cero", in.Kind)
		}
	default:
		return nil, domain.Validationf("tipo de movimiento desconocido: %s", in.Kind)
	}

	newQty := lot.CurrentQuantity.Add(delta)
	if newQty.LessThan(decimal.Zero) {
		return nil, &domain.InsufficientStockError{
			LotID:     lot.ID,
			Requested: delta.Neg(),
			Available: lot.CurrentQuantity,
		}
	}

	if err := l.applyLocations(r, lot, in, delta); err != nil {
		return nil, err
	}

	if !delta.IsZero() {
		lot.CurrentQuantity = newQty
		if err := r.Lots.Update(lot); err != nil {
			return nil, err
		}
	}

	mov := &entity.Movement{
		LotID:          lot.ID,
		Kind:           in.Kind,
		Quantity:       in.Quantity,
		MovementDate:   l.clock.Now(),
		RefKind:        in.RefKind,
		RefID:          in.RefID,
		MaterialLineID: in.MaterialLineID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Notes:          in.Notes,
	}
	if in.Kind == entity.MovementAdjustment {
		mov.Quantity = delta
	}
	if err := r.Movements.Create(mov); err != nil {
		return nil, err
	}
	return mov, nil
}

// applyLocations mantiene el invariante: la suma de lot_locations de un lote
// localizado iguala su cantidad total. Un ajuste sin ubicación explícita se
// aplica a la única ubicación del lote; con varias, el llamador debe indicarla.
func (l *Ledger) applyLocations(r repository.Repos, lot *entity.Lot, in MovementInput, delta decimal.Decimal) error {
	fromID, toID := in.FromLocationID, in.ToLocationID

	if in.Kind == entity.MovementAdjustment && fromID == "" && toID == "" {
		lls, err := r.LotLocations.ListByLot(lot.ID)
		if err != nil {
			return err
		}
		switch len(lls) {
		case 0:
			return nil // lote sin seguimiento por ubicación
		case 1:
			if delta.LessThan(decimal.Zero) {
				fromID = lls[0].LocationID
			} else {
				toID = lls[0].LocationID
			}
		default:
			return domain.Validationf("el lote %s está en varias ubicaciones: indique cuál ajustar", lot.ID)
		}
	}

	outbound := delta
	if in.Kind == entity.MovementTransfer {
		outbound = in.Quantity.Neg()
	}

	if fromID != "" {
		ll, err := r.LotLocations.GetForUpdate(lot.ID, fromID)
		if err != nil {
			return err
		}
		available := decimal.Zero
		if ll != nil {
			available = ll.Quantity
		}
		needed := outbound.Neg()
		if available.LessThan(needed) {
			return &domain.InsufficientStockError{
				LotID:      lot.ID,
				LocationID: fromID,
				Requested:  needed,
				Available:  available,
			}
		}
		if ll == nil {
			ll = &entity.LotLocation{LotID: lot.ID, LocationID: fromID}
		}
		ll.Quantity = ll.Quantity.Sub(needed)
		if err := r.LotLocations.Upsert(ll); err != nil {
			return err
		}
	}

	if toID != "" {
		inbound := delta
		if in.Kind == entity.MovementTransfer {
			inbound = in.Quantity
		}
		ll, err := r.LotLocations.GetForUpdate(lot.ID, toID)
		if err != nil {
			return err
		}
		if ll == nil {
			ll = &entity.LotLocation{LotID: lot.ID, LocationID: toID}
		}
		ll.Quantity = ll.Quantity.Add(inbound)
		if err := r.LotLocations.Upsert(ll); err != nil {
			return err
		}
	}
	return nil
}
