// Package traceability reconstruye el grafo de trazabilidad a partir del
// ledger de movimientos y de los enlaces orden-material-lote. Hacia delante
// responde "¿a dónde fue este material?"; hacia atrás, "¿de qué se compone
// este lote acabado?". Un enlace de producción ausente nunca es un error:
// produce una traza con materiales vacíos.
package traceability

import (
	"context"
	"fmt"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

// UseCase implementa las consultas de trazabilidad. Solo lee, por lo que opera
// directamente sobre los repositorios sin transacción.
type UseCase struct {
	repos repository.Repos
}

// New construye el caso de uso.
func New(repos repository.Repos) *UseCase {
	return &UseCase{repos: repos}
}

// MaterialUsage es el consumo de un lote de material en una orden concreta y
// los lotes de producto acabado que resultaron de ella. Si el material era de
// línea, solo aparece el lote de esa línea; si era común, todos los de la orden.
type MaterialUsage struct {
	Order        *entity.ProductionOrder
	Material     *entity.ProductionOrderMaterial
	FinishedLots []*entity.Lot
}

// ShipmentUsage es la aparición de un lote en un albarán de envío.
type ShipmentUsage struct {
	Shipment *entity.Shipment
	Detail   *entity.ShipmentDetail
	Customer *entity.Customer
}

// ReturnUsage es la aparición de un lote en una devolución.
type ReturnUsage struct {
	Return   *entity.Return
	Detail   *entity.ReturnDetail
	Customer *entity.Customer
}

// ForwardTrace responde a dónde fue un lote de material: órdenes que lo
// consumieron, lotes acabados resultantes y el destino final de esos lotes.
type ForwardTrace struct {
	Lot         *entity.Lot
	Product     *entity.Product
	Usages      []*MaterialUsage
	Shipments   []*ShipmentUsage // envíos de los lotes acabados derivados
	Returns     []*ReturnUsage
	Adjustments []*entity.Movement
}

// MaterialDetail es un material consumido visto desde el lote acabado.
type MaterialDetail struct {
	Material *entity.ProductionOrderMaterial
	Lot      *entity.Lot
	Product  *entity.Product
}

// BackwardTrace responde de qué se compone un lote acabado: la orden que lo
// produjo, los materiales (comunes más los de su línea) y su destino comercial.
type BackwardTrace struct {
	Lot         *entity.Lot
	Product     *entity.Product
	Order       *entity.ProductionOrder // nil si el lote no vino de producción
	Materials   []*MaterialDetail
	Shipments   []*ShipmentUsage
	Returns     []*ReturnUsage
	Adjustments []*entity.Movement
}

// TraceForward traza hacia delante un lote de material o envase.
func (uc *UseCase) TraceForward(ctx context.Context, lotID string) (*ForwardTrace, error) {
	lot, err := uc.repos.Lots.GetByID(lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, fmt.Errorf("lote %s: %w", lotID, domain.ErrNotFound)
	}
	product, err := uc.repos.Products.GetByID(lot.ProductID)
	if err != nil {
		return nil, err
	}

	trace := &ForwardTrace{Lot: lot, Product: product}

	materials, err := uc.repos.Orders.ListMaterialsByLot(lotID)
	if err != nil {
		return nil, err
	}
	seenFinished := map[string]bool{}
	for _, material := range materials {
		order, err := uc.repos.Orders.GetByID(material.OrderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			continue
		}
		usage := &MaterialUsage{Order: order, Material: material}
		for _, line := range order.Lines {
			if line.LotID == "" {
				continue
			}
			if material.LineID != "" && material.LineID != line.ID {
				continue
			}
			finished, err := uc.repos.Lots.GetByID(line.LotID)
			if err != nil {
				return nil, err
			}
			if finished == nil {
				continue
			}
			usage.FinishedLots = append(usage.FinishedLots, finished)
			if !seenFinished[finished.ID] {
				seenFinished[finished.ID] = true
				shipments, returns, err := uc.commercialDestiny(finished.ID)
				if err != nil {
					return nil, err
				}
				trace.Shipments = append(trace.Shipments, shipments...)
				trace.Returns = append(trace.Returns, returns...)
			}
		}
		trace.Usages = append(trace.Usages, usage)
	}

	trace.Adjustments, err = uc.repos.Movements.ListByLotAndKind(lotID, entity.MovementAdjustment)
	if err != nil {
		return nil, err
	}
	return trace, nil
}

// TraceBackward traza hacia atrás un lote de producto acabado.
func (uc *UseCase) TraceBackward(ctx context.Context, lotID string) (*BackwardTrace, error) {
	lot, err := uc.repos.Lots.GetByID(lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, fmt.Errorf("lote %s: %w", lotID, domain.ErrNotFound)
	}
	product, err := uc.repos.Products.GetByID(lot.ProductID)
	if err != nil {
		return nil, err
	}

	trace := &BackwardTrace{Lot: lot, Product: product}

	order, lineID, err := uc.producingOrder(lot)
	if err != nil {
		return nil, err
	}
	if order != nil {
		trace.Order = order
		for _, material := range order.Materials {
			// Materiales comunes más los específicos de la línea del lote.
			if material.LineID != "" && material.LineID != lineID {
				continue
			}
			matLot, err := uc.repos.Lots.GetByID(material.LotID)
			if err != nil {
				return nil, err
			}
			detail := &MaterialDetail{Material: material, Lot: matLot}
			if matLot != nil {
				detail.Product, err = uc.repos.Products.GetByID(matLot.ProductID)
				if err != nil {
					return nil, err
				}
			}
			trace.Materials = append(trace.Materials, detail)
		}
	}

	trace.Shipments, trace.Returns, err = uc.commercialDestiny(lotID)
	if err != nil {
		return nil, err
	}
	trace.Adjustments, err = uc.repos.Movements.ListByLotAndKind(lotID, entity.MovementAdjustment)
	if err != nil {
		return nil, err
	}
	return trace, nil
}

// producingOrder localiza la orden que produjo un lote. Primero por el enlace
// directo línea-lote; si falta (datos antiguos), por número de lote base de la
// orden y producto de la línea. Sin orden devuelve (nil, "", nil).
func (uc *UseCase) producingOrder(lot *entity.Lot) (*entity.ProductionOrder, string, error) {
	line, err := uc.repos.Orders.FindLineByLotID(lot.ID)
	if err != nil {
		return nil, "", err
	}
	if line != nil {
		order, err := uc.repos.Orders.GetByID(line.OrderID)
		if err != nil {
			return nil, "", err
		}
		return order, line.ID, nil
	}

	orders, err := uc.repos.Orders.List(entity.OrderStatusClosed)
	if err != nil {
		return nil, "", err
	}
	for _, order := range orders {
		if order.BaseLotNumber != lot.LotNumber {
			continue
		}
		for _, candidate := range order.Lines {
			if candidate.ProductID == lot.ProductID {
				return order, candidate.ID, nil
			}
		}
	}
	return nil, "", nil
}

// commercialDestiny recoge albaranes y devoluciones donde aparece un lote.
func (uc *UseCase) commercialDestiny(lotID string) ([]*ShipmentUsage, []*ReturnUsage, error) {
	var shipments []*ShipmentUsage
	shipDetails, err := uc.repos.Shipments.ListDetailsByLot(lotID)
	if err != nil {
		return nil, nil, err
	}
	for _, detail := range shipDetails {
		shipment, err := uc.repos.Shipments.GetByID(detail.ShipmentID)
		if err != nil {
			return nil, nil, err
		}
		if shipment == nil {
			continue
		}
		usage := &ShipmentUsage{Shipment: shipment, Detail: detail}
		if shipment.CustomerID != "" {
			usage.Customer, err = uc.repos.Customers.GetByID(shipment.CustomerID)
			if err != nil {
				return nil, nil, err
			}
		}
		shipments = append(shipments, usage)
	}

	var returns []*ReturnUsage
	retDetails, err := uc.repos.Returns.ListDetailsByLot(lotID)
	if err != nil {
		return nil, nil, err
	}
	for _, detail := range retDetails {
		ret, err := uc.repos.Returns.GetByID(detail.ReturnID)
		if err != nil {
			return nil, nil, err
		}
		if ret == nil {
			continue
		}
		usage := &ReturnUsage{Return: ret, Detail: detail}
		if ret.CustomerID != "" {
			usage.Customer, err = uc.repos.Customers.GetByID(ret.CustomerID)
			if err != nil {
				return nil, nil, err
			}
		}
		returns = append(returns, usage)
	}
	return shipments, returns, nil
}

// LotTrace envuelve el resultado de TraceByProductAndNumber: según el tipo de
// producto se rellena Forward o Backward.
type LotTrace struct {
	Forward  *ForwardTrace
	Backward *BackwardTrace
}

// TraceByProductAndNumber localiza un lote por producto y número y lo traza en
// la dirección natural de su tipo: hacia atrás si es producto acabado, hacia
// delante si es material o envase.
func (uc *UseCase) TraceByProductAndNumber(ctx context.Context, productID, lotNumber string) (*LotTrace, error) {
	lot, err := uc.repos.Lots.GetByProductAndNumber(productID, lotNumber)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, fmt.Errorf("lote %s del producto %s: %w", lotNumber, productID, domain.ErrNotFound)
	}
	product, err := uc.repos.Products.GetByID(lot.ProductID)
	if err != nil {
		return nil, err
	}
	if product != nil && product.Type == entity.ProductTypeFinishedProduct {
		backward, err := uc.TraceBackward(ctx, lot.ID)
		if err != nil {
			return nil, err
		}
		return &LotTrace{Backward: backward}, nil
	}
	forward, err := uc.TraceForward(ctx, lot.ID)
	if err != nil {
		return nil, err
	}
	return &LotTrace{Forward: forward}, nil
}

// CustomerTrace es el historial comercial de un cliente: todo lo enviado y
// todo lo devuelto, con el lote de cada línea.
type CustomerTrace struct {
	Customer  *entity.Customer
	Shipments []*entity.Shipment
	Returns   []*entity.Return
}

// TraceCustomer recupera todos los envíos y devoluciones de un cliente, punto
// de partida para una retirada dirigida.
func (uc *UseCase) TraceCustomer(ctx context.Context, customerID string) (*CustomerTrace, error) {
	customer, err := uc.repos.Customers.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("cliente %s: %w", customerID, domain.ErrNotFound)
	}
	shipments, err := uc.repos.Shipments.List(repository.ShipmentFilter{CustomerID: customerID})
	if err != nil {
		return nil, err
	}
	returns, err := uc.repos.Returns.List(repository.ShipmentFilter{CustomerID: customerID})
	if err != nil {
		return nil, err
	}
	return &CustomerTrace{Customer: customer, Shipments: shipments, Returns: returns}, nil
}
