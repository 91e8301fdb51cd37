// Package production orquesta las órdenes de producción: draft → in_progress →
// closed. Añadir material consume stock del lote vía el ledger en el momento;
// retirarlo registra una reversión compensatoria; cerrar la orden crea los
// lotes de producto acabado de forma atómica.
package production

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Trazabilidad-api/internal/application/ledger"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/pkg/clock"
)

// UseCase implementa el flujo de órdenes de producción.
type UseCase struct {
	txRunner ledger.TxRunner
	ledger   *ledger.Ledger
	repos    repository.Repos // lecturas fuera de transacción
	clock    clock.Clock
}

// New construye el caso de uso.
func New(txRunner ledger.TxRunner, led *ledger.Ledger, repos repository.Repos, clk clock.Clock) *UseCase {
	return &UseCase{txRunner: txRunner, ledger: led, repos: repos, clock: clk}
}

// LineInput es un producto acabado objetivo de la orden.
type LineInput struct {
	ProductID      string
	TargetQuantity *decimal.Decimal
	Unit           string
}

// CreateOrderInput datos de cabecera y líneas de una orden nueva.
type CreateOrderInput struct {
	BaseProductName string
	BaseLotNumber   string
	ProductionDate  time.Time
	ExpirationDate  *time.Time
	Notes           string
	Lines           []LineInput
}

// CreateOrder crea una orden en draft con su número YYYY-NNN asignado por el
// secuenciador dentro de la misma transacción: dos creaciones concurrentes del
// mismo año nunca reciben el mismo número.
func (uc *UseCase) CreateOrder(ctx context.Context, in CreateOrderInput) (*entity.ProductionOrder, error) {
	if in.BaseProductName == "" || in.BaseLotNumber == "" {
		return nil, domain.Validationf("nombre de producto base y número de lote base son requeridos")
	}
	if len(in.Lines) == 0 {
		return nil, domain.Validationf("debe especificar al menos un producto acabado")
	}

	var order *entity.ProductionOrder
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		for _, line := range in.Lines {
			product, err := r.Products.GetByID(line.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return fmt.Errorf("producto %s: %w", line.ProductID, domain.ErrNotFound)
			}
			if product.Type != entity.ProductTypeFinishedProduct {
				return domain.Validationf("el producto %s debe ser de tipo producto acabado", product.Name)
			}
		}

		number, err := r.Sequences.NextOrderNumber(uc.clock.Now().Year())
		if err != nil {
			return err
		}
		order = &entity.ProductionOrder{
			OrderNumber:     number,
			BaseProductName: in.BaseProductName,
			BaseLotNumber:   in.BaseLotNumber,
			ProductionDate:  in.ProductionDate,
			ExpirationDate:  in.ExpirationDate,
			Status:          entity.OrderStatusDraft,
			Notes:           in.Notes,
			CreatedAt:       uc.clock.Now(),
		}
		if err := r.Orders.Create(order); err != nil {
			return err
		}
		for _, lineIn := range in.Lines {
			unit := lineIn.Unit
			if unit == "" {
				unit = "ud"
			}
			line := &entity.ProductionOrderLine{
				OrderID:        order.ID,
				ProductID:      lineIn.ProductID,
				TargetQuantity: lineIn.TargetQuantity,
				Unit:           unit,
				CreatedAt:      uc.clock.Now(),
			}
			if err := r.Orders.AddLine(line); err != nil {
				return err
			}
			order.Lines = append(order.Lines, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder devuelve una orden con líneas y materiales.
func (uc *UseCase) GetOrder(ctx context.Context, orderID string) (*entity.ProductionOrder, error) {
	order, err := uc.repos.Orders.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// ListOrders lista órdenes, opcionalmente filtradas por estado.
func (uc *UseCase) ListOrders(ctx context.Context, status string) ([]*entity.ProductionOrder, error) {
	return uc.repos.Orders.List(status)
}

// UpdateOrderInput campos de cabecera editables mientras la orden no esté cerrada.
type UpdateOrderInput struct {
	Notes          *string
	ProductionDate *time.Time
	ExpirationDate **time.Time // doble puntero: nil = sin cambio, *nil = borrar
}

// UpdateOrder edita la cabecera de una orden abierta.
func (uc *UseCase) UpdateOrder(ctx context.Context, orderID string, in UpdateOrderInput) (*entity.ProductionOrder, error) {
	var order *entity.ProductionOrder
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		var err error
		order, err = r.Orders.GetForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}
		if order.IsClosed() {
			return domain.ErrOrderClosed
		}
		if in.Notes != nil {
			order.Notes = *in.Notes
		}
		if in.ProductionDate != nil {
			order.ProductionDate = *in.ProductionDate
		}
		if in.ExpirationDate != nil {
			order.ExpirationDate = *in.ExpirationDate
		}
		return r.Orders.Update(order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// AddMaterialInput datos de un material a consumir en la orden.
type AddMaterialInput struct {
	LotID    string
	Quantity decimal.Decimal // en la unidad de receta indicada
	Unit     string
	LineID   string // "" = material común a todas las líneas
}

// AddMaterial consume un lote de materia prima o envase para la orden: registra
// el movimiento de consumo en el ledger (delta negativo desde la ubicación
// liberada) y la fila de material, todo en una transacción. La cantidad se
// convierte de la unidad de receta a la de almacenamiento del producto. Si la
// orden estaba en draft pasa a in_progress.
func (uc *UseCase) AddMaterial(ctx context.Context, orderID string, in AddMaterialInput) (*entity.ProductionOrderMaterial, error) {
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.Validationf("la cantidad a consumir debe ser mayor que cero")
	}

	var material *entity.ProductionOrderMaterial
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		order, err := r.Orders.GetForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}
		if order.IsClosed() {
			return domain.ErrOrderClosed
		}
		if in.LineID != "" && order.LineByID(in.LineID) == nil {
			return domain.Validationf("la línea %s no pertenece a la orden %s", in.LineID, order.OrderNumber)
		}

		// El bloqueo de fila va antes que la comprobación de disponibilidad:
		// un ToggleBlock concurrente no puede colarse entre la lectura y el
		// consumo.
		lot, err := r.Lots.GetForUpdate(in.LotID)
		if err != nil {
			return err
		}
		if lot == nil {
			return fmt.Errorf("lote %s: %w", in.LotID, domain.ErrNotFound)
		}
		if !lot.IsAvailable(uc.clock.Now()) {
			return domain.Validationf("lote %s no disponible (caducado, agotado o bloqueado)", lot.LotNumber)
		}
		product, err := r.Products.GetByID(lot.ProductID)
		if err != nil {
			return err
		}
		if product == nil || !product.IsConsumable() {
			return domain.Validationf("solo se pueden consumir materias primas o envases")
		}
		for _, m := range order.Materials {
			if m.LotID == in.LotID {
				return domain.Validationf("el lote %s ya está en la orden de producción", lot.LotNumber)
			}
		}

		storageQty := product.ConvertToStorageUnit(in.Quantity, in.Unit)
		lib, err := r.Locations.GetByCode(entity.LocationReleased)
		if err != nil {
			return err
		}
		libID := ""
		if lib != nil {
			libID = lib.ID
		}

		if _, err := uc.ledger.Apply(r, ledger.MovementInput{
			LotID:          lot.ID,
			Kind:           entity.MovementProductionConsume,
			Quantity:       storageQty.Neg(),
			RefKind:        entity.RefProductionOrder,
			RefID:          order.ID,
			MaterialLineID: in.LineID,
			FromLocationID: libID,
			Notes:          fmt.Sprintf("Consumo en orden %s", order.OrderNumber),
		}); err != nil {
			return err
		}

		material = &entity.ProductionOrderMaterial{
			OrderID:          order.ID,
			LotID:            lot.ID,
			QuantityConsumed: storageQty,
			Unit:             lot.Unit,
			OriginalQuantity: in.Quantity,
			OriginalUnit:     in.Unit,
			LineID:           in.LineID,
		}
		if err := r.Orders.AddMaterial(material); err != nil {
			return err
		}
		if order.Status == entity.OrderStatusDraft {
			order.Status = entity.OrderStatusInProgress
			if err := r.Orders.Update(order); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return material, nil
}

// RemoveMaterial revierte el consumo de un material: registra un movimiento
// compensatorio positivo (nunca edita ni borra el original) y elimina la fila
// de material de la orden.
func (uc *UseCase) RemoveMaterial(ctx context.Context, orderID, materialID string) error {
	return uc.txRunner.Run(ctx, func(r repository.Repos) error {
		order, err := r.Orders.GetForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}
		if order.IsClosed() {
			return domain.ErrOrderClosed
		}
		material, err := r.Orders.GetMaterial(orderID, materialID)
		if err != nil {
			return err
		}
		if material == nil {
			return domain.ErrNotFound
		}

		lib, err := r.Locations.GetByCode(entity.LocationReleased)
		if err != nil {
			return err
		}
		libID := ""
		if lib != nil {
			libID = lib.ID
		}
		if _, err := uc.ledger.Apply(r, ledger.MovementInput{
			LotID:          material.LotID,
			Kind:           entity.MovementProductionConsume,
			Quantity:       material.QuantityConsumed,
			RefKind:        entity.RefProductionOrder,
			RefID:          order.ID,
			MaterialLineID: material.LineID,
			ToLocationID:   libID,
			Notes:          fmt.Sprintf("Reversión de consumo en orden %s", order.OrderNumber),
		}); err != nil {
			return err
		}
		return r.Orders.DeleteMaterial(materialID)
	})
}

// CloseOrder cierra la orden: por cada línea con cantidad producida positiva
// crea el lote de producto acabado (número de lote y fechas de la cabecera) con
// su movimiento de salida de producción hacia la ubicación de fabricación.
// Todo-o-nada: si cualquier línea falla no se crea ningún lote. produced mapea
// ID de línea a cantidad producida; las líneas ausentes o a cero se omiten.
func (uc *UseCase) CloseOrder(ctx context.Context, orderID string, produced map[string]decimal.Decimal) (*entity.ProductionOrder, error) {
	var order *entity.ProductionOrder
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		var err error
		order, err = r.Orders.GetForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}
		if order.IsClosed() {
			return domain.ErrOrderClosed
		}
		if len(order.Materials) == 0 {
			return domain.Validationf("debe agregar materiales antes de cerrar la orden")
		}

		anyProduced := false
		for lineID, qty := range produced {
			if order.LineByID(lineID) == nil {
				return domain.Validationf("la línea %s no pertenece a la orden %s", lineID, order.OrderNumber)
			}
			if qty.GreaterThan(decimal.Zero) {
				anyProduced = true
			}
		}
		if !anyProduced {
			return domain.Validationf("debe indicar la cantidad producida de al menos un producto")
		}

		fab, err := r.Locations.GetByCode(entity.LocationProduction)
		if err != nil {
			return err
		}
		fabID := ""
		if fab != nil {
			fabID = fab.ID
		}

		now := uc.clock.Now()
		for _, line := range order.Lines {
			qty, ok := produced[line.ID]
			if !ok || !qty.GreaterThan(decimal.Zero) {
				continue
			}
			existing, err := r.Lots.GetByProductAndNumber(line.ProductID, order.BaseLotNumber)
			if err != nil {
				return err
			}
			if existing != nil {
				return &domain.DuplicateLotNumberError{ProductID: line.ProductID, LotNumber: order.BaseLotNumber}
			}
			lot := &entity.Lot{
				ProductID:         line.ProductID,
				LotNumber:         order.BaseLotNumber,
				ManufacturingDate: order.ProductionDate,
				ExpirationDate:    order.ExpirationDate,
				InitialQuantity:   qty,
				CurrentQuantity:   decimal.Zero,
				Unit:              line.Unit,
				CreatedAt:         now,
			}
			if err := r.Lots.Create(lot); err != nil {
				return err
			}
			if _, err := uc.ledger.Apply(r, ledger.MovementInput{
				LotID:          lot.ID,
				Kind:           entity.MovementProductionOutput,
				Quantity:       qty,
				RefKind:        entity.RefProductionOrder,
				RefID:          order.ID,
				MaterialLineID: line.ID,
				ToLocationID:   fabID,
				Notes:          fmt.Sprintf("Producción de orden %s", order.OrderNumber),
			}); err != nil {
				return err
			}
			line.LotID = lot.ID
			producedQty := qty
			line.ProducedQuantity = &producedQty
			if err := r.Orders.UpdateLine(line); err != nil {
				return err
			}
		}

		order.Status = entity.OrderStatusClosed
		closedAt := now
		order.ClosedAt = &closedAt
		return r.Orders.Update(order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
