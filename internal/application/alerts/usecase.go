// Package alerts calcula avisos de inventario bajo demanda: caducidades,
// stock mínimo y lotes bloqueados. No persiste nada; cada llamada evalúa el
// estado actual del almacén.
package alerts

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/pkg/clock"
)

// DefaultExpiryWindowDays es la ventana por defecto para avisos de caducidad.
const DefaultExpiryWindowDays = 90

// criticalExpiryDays marca el umbral a partir del cual un aviso de caducidad
// próxima pasa de warning a critical.
const criticalExpiryDays = 7

// UseCase genera las alertas de inventario.
type UseCase struct {
	repos            repository.Repos
	clock            clock.Clock
	expiryWindowDays int
}

// New construye el caso de uso. windowDays <= 0 usa la ventana por defecto.
func New(repos repository.Repos, clk clock.Clock, windowDays int) *UseCase {
	if windowDays <= 0 {
		windowDays = DefaultExpiryWindowDays
	}
	return &UseCase{repos: repos, clock: clk, expiryWindowDays: windowDays}
}

var half = decimal.NewFromFloat(0.5)

// Generate evalúa todo el inventario y devuelve las alertas vigentes, en orden
// caducados, próximos a caducar, stock bajo y bloqueados.
func (uc *UseCase) Generate(ctx context.Context) ([]entity.Alert, error) {
	today := uc.clock.Now()
	products, err := uc.repos.Products.ListActive()
	if err != nil {
		return nil, err
	}

	var expired, expiring, lowStock, blocked []entity.Alert
	for _, product := range products {
		lots, err := uc.repos.Lots.List(repository.LotFilter{ProductID: product.ID})
		if err != nil {
			return nil, err
		}

		available := decimal.Zero
		for _, lot := range lots {
			if lot.IsAvailable(today) {
				available = available.Add(lot.CurrentQuantity)
			}
			if !lot.CurrentQuantity.GreaterThan(decimal.Zero) {
				continue
			}

			// Las clases se evalúan sobre los campos crudos del lote, no
			// sobre el estado derivado: un lote bloqueado y caducado genera
			// ambas alertas.
			if days := lot.DaysToExpiration(today); days != nil {
				switch {
				case *days < 0:
					expired = append(expired, entity.Alert{
						Type:      entity.AlertExpired,
						Severity:  entity.SeverityCritical,
						ProductID: product.ID,
						LotID:     lot.ID,
						Message: fmt.Sprintf("Lote %s de %s caducado el %s",
							lot.LotNumber, product.Name, lot.ExpirationDate.Format("02/01/2006")),
					})
				case *days <= uc.expiryWindowDays:
					severity := entity.SeverityWarning
					if *days <= criticalExpiryDays {
						severity = entity.SeverityCritical
					}
					expiring = append(expiring, entity.Alert{
						Type:      entity.AlertExpiringSoon,
						Severity:  severity,
						ProductID: product.ID,
						LotID:     lot.ID,
						Message: fmt.Sprintf("Lote %s de %s caduca en %d días",
							lot.LotNumber, product.Name, *days),
					})
				}
			}
			if lot.Blocked {
				blocked = append(blocked, entity.Alert{
					Type:      entity.AlertBlocked,
					Severity:  entity.SeverityCritical,
					ProductID: product.ID,
					LotID:     lot.ID,
					Message: fmt.Sprintf("Lote %s de %s bloqueado (%s %s)",
						lot.LotNumber, product.Name, lot.CurrentQuantity.String(), lot.Unit),
				})
			}
		}

		if product.MinStock != nil && product.MinStock.GreaterThan(decimal.Zero) &&
			available.LessThan(*product.MinStock) {
			severity := entity.SeverityWarning
			if available.LessThanOrEqual(decimal.Zero) || available.LessThan(product.MinStock.Mul(half)) {
				severity = entity.SeverityCritical
			}
			lowStock = append(lowStock, entity.Alert{
				Type:      entity.AlertLowStock,
				Severity:  severity,
				ProductID: product.ID,
				Message: fmt.Sprintf("Stock de %s por debajo del mínimo: %s %s (mínimo %s)",
					product.Name, available.String(), product.StorageUnit, product.MinStock.String()),
			})
		}
	}

	alerts := make([]entity.Alert, 0, len(expired)+len(expiring)+len(lowStock)+len(blocked))
	alerts = append(alerts, expired...)
	alerts = append(alerts, expiring...)
	alerts = append(alerts, lowStock...)
	alerts = append(alerts, blocked...)
	return alerts, nil
}
