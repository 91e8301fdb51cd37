// Package shipping implementa los albaranes de envío a cliente y las
// devoluciones/retiradas de mercado. Ambos flujos validan todas las líneas
// antes de escribir y registran sus movimientos vía el ledger en una sola
// transacción; una devolución además bloquea los lotes afectados.
package shipping

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

// UseCase implementa envíos y devoluciones.
type UseCase struct {
	txRunner ledger.TxRunner
	ledger   *ledger.Ledger
	repos    repository.Repos
	clock    clock.Clock
}

// New construye el caso de uso.
func New(txRunner ledger.TxRunner, led *ledger.Ledger, repos repository.Repos, clk clock.Clock) *UseCase {
	return &UseCase{txRunner: txRunner, ledger: led, repos: repos, clock: clk}
}

// DetailInput es una línea de envío o devolución.
type DetailInput struct {
	LotID    string
	Quantity decimal.Decimal
	Unit     string // "" = unidad del lote
}

// NewCustomerInput permite crear el cliente al vuelo desde un albarán.
type NewCustomerInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// ShipmentInput datos de un albarán de salida.
type ShipmentInput struct {
	ShipmentNumber string
	ShipmentDate   time.Time
	CustomerID     string
	NewCustomer    *NewCustomerInput // alternativa a CustomerID
	Notes          string
	Details        []DetailInput
}

// CreateShipment crea un albarán: solo lotes de producto acabado, disponibles y
// con stock suficiente en la ubicación liberada. Los movimientos de salida y el
// albarán se escriben en una única transacción (todo-o-nada). El código de un
// cliente nuevo se autogenera con el secuenciador.
func (uc *UseCase) CreateShipment(ctx context.Context, in ShipmentInput) (*entity.Shipment, error) {
	if in.ShipmentNumber == "" {
		return nil, domain.Validationf("el número de albarán es requerido")
	}
	if len(in.Details) == 0 {
		return nil, domain.Validationf("debe incluir al menos un detalle de envío")
	}
	if in.CustomerID == "" && in.NewCustomer == nil {
		return nil, domain.Validationf("debe seleccionar un cliente existente o crear uno nuevo")
	}

	var shipment *entity.Shipment
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		existing, err := r.Shipments.GetByNumber(in.ShipmentNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.Validationf("el número de albarán %s ya existe", in.ShipmentNumber)
		}

		customerID := in.CustomerID
		customerName := ""
		if customerID != "" {
			customer, err := r.Customers.GetByID(customerID)
			if err != nil {
				return err
			}
			if customer == nil {
				return fmt.Errorf("cliente %s: %w", customerID, domain.ErrNotFound)
			}
			customerName = customer.Name
		} else {
			if in.NewCustomer.Name == "" {
				return domain.Validationf("para crear un cliente nuevo se requiere el nombre")
			}
			code, err := r.Sequences.NextCustomerCode()
			if err != nil {
				return err
			}
			customer := &entity.Customer{
				Code:      code,
				Name:      in.NewCustomer.Name,
				Email:     in.NewCustomer.Email,
				Phone:     in.NewCustomer.Phone,
				Address:   in.NewCustomer.Address,
				Active:    true,
				CreatedAt: uc.clock.Now(),
			}
			if err := r.Customers.Create(customer); err != nil {
				return err
			}
			customerID = customer.ID
			customerName = customer.Name
		}

		lib, err := r.Locations.GetByCode(entity.LocationReleased)
		if err != nil {
			return err
		}
		libID := ""
		if lib != nil {
			libID = lib.ID
		}

		today := uc.clock.Now()
		lots := make([]*entity.Lot, len(in.Details))
		for i, detail := range in.Details {
			lot, err := r.Lots.GetByID(detail.LotID)
			if err != nil {
				return err
			}
			if lot == nil {
				return fmt.Errorf("lote %s: %w", detail.LotID, domain.ErrNotFound)
			}
			if !lot.IsAvailable(today) {
				return domain.Validationf("lote %s no está disponible (caducado, agotado o bloqueado)", lot.LotNumber)
			}
			product, err := r.Products.GetByID(lot.ProductID)
			if err != nil {
				return err
			}
			if product == nil || product.Type != entity.ProductTypeFinishedProduct {
				return domain.Validationf("solo se pueden enviar productos acabados (lote %s)", lot.LotNumber)
			}
			if !detail.Quantity.GreaterThan(decimal.Zero) {
				return domain.Validationf("la cantidad a enviar debe ser mayor que cero")
			}
			lots[i] = lot
		}

		shipment = &entity.Shipment{
			CustomerID:     customerID,
			ShipmentNumber: in.ShipmentNumber,
			ShipmentDate:   in.ShipmentDate,
			Notes:          in.Notes,
			CreatedAt:      uc.clock.Now(),
		}
		for i, detail := range in.Details {
			unit := detail.Unit
			if unit == "" {
				unit = lots[i].Unit
			}
			shipment.Details = append(shipment.Details, &entity.ShipmentDetail{
				LotID:    detail.LotID,
				Quantity: detail.Quantity,
				Unit:     unit,
			})
		}
		if err := r.Shipments.Create(shipment); err != nil {
			return err
		}

		for _, detail := range in.Details {
			if _, err := uc.ledger.Apply(r, ledger.MovementInput{
				LotID:          detail.LotID,
				Kind:           entity.MovementShipment,
				Quantity:       detail.Quantity.Neg(),
				RefKind:        entity.RefShipment,
				RefID:          shipment.ID,
				FromLocationID: libID,
				Notes:          fmt.Sprintf("Envío %s a cliente %s", shipment.ShipmentNumber, customerName),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

// ReturnInput datos de una devolución o retirada de mercado.
type ReturnInput struct {
	ReturnNumber string // "" = autogenerar DEV-YYYY-NNN
	ReturnDate   time.Time
	Reason       string
	CustomerID   string // "" para devoluciones internas
	Notes        string
	Details      []DetailInput
}

// CreateReturn registra una devolución: reingresa las cantidades en la
// ubicación de devoluciones y bloquea cada lote afectado hasta su revisión de
// calidad. Solo acepta lotes de producto acabado.
func (uc *UseCase) CreateReturn(ctx context.Context, in ReturnInput) (*entity.Return, error) {
	if !entity.ValidReturnReason(in.Reason) {
		return nil, domain.Validationf("motivo inválido: %s", in.Reason)
	}
	if len(in.Details) == 0 {
		return nil, domain.Validationf("debe incluir al menos un detalle de devolución")
	}

	var ret *entity.Return
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		customerName := "Devolución interna"
		if in.CustomerID != "" {
			customer, err := r.Customers.GetByID(in.CustomerID)
			if err != nil {
				return err
			}
			if customer == nil {
				return fmt.Errorf("cliente %s: %w", in.CustomerID, domain.ErrNotFound)
			}
			customerName = customer.Name
		}

		number := in.ReturnNumber
		if number == "" {
			var err error
			number, err = r.Sequences.NextReturnNumber(uc.clock.Now().Year())
			if err != nil {
				return err
			}
		} else {
			existing, err := r.Returns.GetByNumber(number)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.Validationf("el número de devolución %s ya existe", number)
			}
		}

		dev, err := r.Locations.GetByCode(entity.LocationReturns)
		if err != nil {
			return err
		}
		devID := ""
		if dev != nil {
			devID = dev.ID
		}

		for _, detail := range in.Details {
			lot, err := r.Lots.GetByID(detail.LotID)
			if err != nil {
				return err
			}
			if lot == nil {
				return fmt.Errorf("lote %s: %w", detail.LotID, domain.ErrNotFound)
			}
			product, err := r.Products.GetByID(lot.ProductID)
			if err != nil {
				return err
			}
			if product == nil || product.Type != entity.ProductTypeFinishedProduct {
				return domain.Validationf("solo se pueden devolver productos acabados (lote %s)", lot.LotNumber)
			}
			if !detail.Quantity.GreaterThan(decimal.Zero) {
				return domain.Validationf("la cantidad devuelta debe ser mayor que cero")
			}
		}

		ret = &entity.Return{
			CustomerID:   in.CustomerID,
			ReturnNumber: number,
			ReturnDate:   in.ReturnDate,
			Reason:       in.Reason,
			Notes:        in.Notes,
			CreatedAt:    uc.clock.Now(),
		}
		for _, detail := range in.Details {
			lot, err := r.Lots.GetByID(detail.LotID)
			if err != nil {
				return err
			}
			unit := detail.Unit
			if unit == "" {
				unit = lot.Unit
			}
			ret.Details = append(ret.Details, &entity.ReturnDetail{
				LotID:    detail.LotID,
				Quantity: detail.Quantity,
				Unit:     unit,
			})
		}
		if err := r.Returns.Create(ret); err != nil {
			return err
		}

		for _, detail := range in.Details {
			if _, err := uc.ledger.Apply(r, ledger.MovementInput{
				LotID:        detail.LotID,
				Kind:         entity.MovementReturn,
				Quantity:     detail.Quantity,
				RefKind:      entity.RefReturn,
				RefID:        ret.ID,
				ToLocationID: devID,
				Notes:        fmt.Sprintf("Devolución %s de %s", ret.ReturnNumber, customerName),
			}); err != nil {
				return err
			}
			// Retención de calidad: el lote devuelto queda bloqueado.
			lot, err := r.Lots.GetForUpdate(detail.LotID)
			if err != nil {
				return err
			}
			if !lot.Blocked {
				lot.Blocked = true
				if err := r.Lots.Update(lot); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// GetShipment devuelve un albarán con sus líneas.
func (uc *UseCase) GetShipment(ctx context.Context, id string) (*entity.Shipment, error) {
	shipment, err := uc.repos.Shipments.GetByID(id)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, domain.ErrNotFound
	}
	return shipment, nil
}

// ListShipments lista albaranes con filtros opcionales.
func (uc *UseCase) ListShipments(ctx context.Context, filter repository.ShipmentFilter) ([]*entity.Shipment, error) {
	return uc.repos.Shipments.List(filter)
}

// GetReturn devuelve una devolución con sus líneas.
func (uc *UseCase) GetReturn(ctx context.Context, id string) (*entity.Return, error) {
	ret, err := uc.repos.Returns.GetByID(id)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, domain.ErrNotFound
	}
	return ret, nil
}

// ListReturns lista devoluciones con filtros opcionales.
func (uc *UseCase) ListReturns(ctx context.Context, filter repository.ShipmentFilter) ([]*entity.Return, error) {
	return uc.repos.Returns.List(filter)
}
