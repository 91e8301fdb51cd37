// Package allocation implementa la selección de lotes para consumo o envío:
// FEFO para lotes con caducidad, FIFO para los que no caducan. Es una consulta
// pura: nunca muta cantidades.
package allocation

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/pkg/clock"
)

// Engine selecciona lotes candidatos por producto y ubicación.
type Engine struct {
	repos repository.Repos
	clock clock.Clock
}

// NewEngine construye el motor de asignación.
func NewEngine(repos repository.Repos, clk clock.Clock) *Engine {
	return &Engine{repos: repos, clock: clk}
}

// Candidate es un lote elegible con su cantidad disponible en las ubicaciones
// consultadas (en unidad de almacenamiento del lote).
type Candidate struct {
	Lot       *entity.Lot
	Available decimal.Decimal
}

// SortLots ordena lotes in situ con la regla de consumo:
//  1. Los lotes con caducidad van antes que los que no caducan.
//  2. Entre lotes con caducidad: caducidad ascendente (FEFO).
//  3. Entre lotes sin caducidad: fecha de alta ascendente (FIFO); una fecha de
//     alta vacía ordena al final.
func SortLots(lots []*entity.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		switch {
		case a.ExpirationDate != nil && b.ExpirationDate == nil:
			return true
		case a.ExpirationDate == nil && b.ExpirationDate != nil:
			return false
		case a.ExpirationDate != nil && b.ExpirationDate != nil:
			return a.ExpirationDate.Before(*b.ExpirationDate)
		}
		// FIFO sobre la fecha de alta; sin fecha válida, al final.
		switch {
		case a.CreatedAt.IsZero() && b.CreatedAt.IsZero():
			return false
		case a.CreatedAt.IsZero():
			return false
		case b.CreatedAt.IsZero():
			return true
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// SelectLots devuelve, en orden FEFO/FIFO, los lotes del producto con stock
// disponible en la ubicación indicada (o en todas las ubicaciones marcadas
// como disponibles si locationCode es vacío). Solo entran lotes no bloqueados
// y no caducados con cantidad positiva. Si requested es mayor que cero, la
// lista se corta en cuanto los candidatos acumulan la cantidad pedida;
// requested se expresa en la unidad de almacenamiento del producto.
func (e *Engine) SelectLots(ctx context.Context, productID string, requested decimal.Decimal, locationCode string) ([]Candidate, error) {
	locationIDs, err := e.resolveLocations(locationCode)
	if err != nil {
		return nil, err
	}

	lots, err := e.repos.Lots.List(repository.LotFilter{ProductID: productID})
	if err != nil {
		return nil, err
	}
	SortLots(lots)

	today := e.clock.Now()
	var candidates []Candidate
	accumulated := decimal.Zero
	for _, lot := range lots {
		if !lot.IsAvailable(today) {
			continue
		}
		available, err := e.availableAt(lot.ID, locationIDs)
		if err != nil {
			return nil, err
		}
		if !available.GreaterThan(decimal.Zero) {
			continue
		}
		candidates = append(candidates, Candidate{Lot: lot, Available: available})
		accumulated = accumulated.Add(available)
		if requested.GreaterThan(decimal.Zero) && accumulated.GreaterThanOrEqual(requested) {
			break
		}
	}
	return candidates, nil
}

// SelectForConsumption convierte la cantidad pedida desde la unidad declarada
// por el consumidor a la unidad de almacenamiento del producto y delega en
// SelectLots. La conversión usa siempre la unidad del lado consumidor, nunca
// asume kilogramos.
func (e *Engine) SelectForConsumption(ctx context.Context, productID string, requested decimal.Decimal, unit, locationCode string) ([]Candidate, error) {
	product, err := e.repos.Products.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return e.SelectLots(ctx, productID, product.ConvertToStorageUnit(requested, unit), locationCode)
}

func (e *Engine) resolveLocations(locationCode string) (map[string]bool, error) {
	ids := make(map[string]bool)
	if locationCode != "" {
		loc, err := e.repos.Locations.GetByCode(locationCode)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			return nil, fmt.Errorf("ubicación %s: %w", locationCode, domain.ErrNotFound)
		}
		ids[loc.ID] = true
		return ids, nil
	}
	locations, err := e.repos.Locations.List(true)
	if err != nil {
		return nil, err
	}
	for _, loc := range locations {
		if loc.IsAvailable {
			ids[loc.ID] = true
		}
	}
	return ids, nil
}

func (e *Engine) availableAt(lotID string, locationIDs map[string]bool) (decimal.Decimal, error) {
	lls, err := e.repos.LotLocations.ListByLot(lotID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, ll := range lls {
		if locationIDs[ll.LocationID] {
			total = total.Add(ll.Quantity)
		}
	}
	return total, nil
}
