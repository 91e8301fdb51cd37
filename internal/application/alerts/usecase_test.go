package alerts_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/application/alerts"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/memory"
	"github.com/jhoicas/Trazabilidad-api/pkg/clock"
)

var hoy = time.Date(2026, 3, 15, 7, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fecha(t time.Time) *time.Time { return &t }

type fixture struct {
	store *memory.Store
	uc    *alerts.UseCase
}

func newFixture(t *testing.T, windowDays int) *fixture {
	t.Helper()
	store := memory.NewStore()
	return &fixture{
		store: store,
		uc:    alerts.New(store.Repos(), clock.Fixed{T: hoy}, windowDays),
	}
}

func (f *fixture) producto(t *testing.T, code string, minStock *decimal.Decimal) *entity.Product {
	t.Helper()
	p := &entity.Product{
		Code: code, Name: "Producto " + code, Type: entity.ProductTypeRawMaterial,
		StorageUnit: "kg", MinStock: minStock, Active: true,
	}
	require.NoError(t, f.store.Repos().Products.Create(p))
	return p
}

// lote registra un lote directamente con la cantidad dada; las alertas solo
// leen, así que no hace falta pasar por el ledger.
func (f *fixture) lote(t *testing.T, p *entity.Product, number string, qty decimal.Decimal, expiration *time.Time, blocked bool) *entity.Lot {
	t.Helper()
	lot := &entity.Lot{
		ProductID: p.ID, LotNumber: number, ManufacturingDate: hoy.AddDate(0, -1, 0),
		ExpirationDate: expiration, InitialQuantity: qty, CurrentQuantity: qty,
		Unit: "kg", Blocked: blocked, CreatedAt: hoy,
	}
	require.NoError(t, f.store.Repos().Lots.Create(lot))
	return lot
}

func porTipo(generated []entity.Alert, alertType string) []entity.Alert {
	var out []entity.Alert
	for _, a := range generated {
		if a.Type == alertType {
			out = append(out, a)
		}
	}
	return out
}

func TestGenerate_LoteCaducado(t *testing.T) {
	f := newFixture(t, 0)
	p := f.producto(t, "MP-001", nil)
	lot := f.lote(t, p, "CAD-01", dec("10"), fecha(hoy.AddDate(0, 0, -3)), false)

	generated, err := f.uc.Generate(context.Background())
	require.NoError(t, err)

	caducados := porTipo(generated, entity.AlertExpired)
	require.Len(t, caducados, 1)
	assert.Equal(t, entity.SeverityCritical, caducados[0].Severity)
	assert.Equal(t, lot.ID, caducados[0].LotID)
	assert.Contains(t, caducados[0].Message, "CAD-01")
}

func TestGenerate_CaducidadProxima(t *testing.T) {
	f := newFixture(t, 30)
	p := f.producto(t, "MP-002", nil)
	f.lote(t, p, "PROX-01", dec("10"), fecha(hoy.AddDate(0, 0, 20)), false)
	f.lote(t, p, "PROX-02", dec("10"), fecha(hoy.AddDate(0, 0, 5)), false)
	f.lote(t, p, "LEJOS-01", dec("10"), fecha(hoy.AddDate(0, 0, 60)), false)

	generated, err := f.uc.Generate(context.Background())
	require.NoError(t, err)

	proximos := porTipo(generated, entity.AlertExpiringSoon)
	require.Len(t, proximos, 2, "el lote fuera de ventana no alerta")

	for _, a := range proximos {
		if strings.Contains(a.Message, "PROX-02") {
			assert.Equal(t, entity.SeverityCritical, a.Severity, "a 5 días la alerta es crítica")
		} else {
			assert.Contains(t, a.Message, "PROX-01")
			assert.Equal(t, entity.SeverityWarning, a.Severity)
		}
	}
}

func TestGenerate_StockBajo(t *testing.T) {
	min := dec("100")
	f := newFixture(t, 0)
	p := f.producto(t, "MP-003", &min)
	f.lote(t, p, "S-01", dec("70"), nil, false)

	generated, err := f.uc.Generate(context.Background())
	require.NoError(t, err)

	bajos := porTipo(generated, entity.AlertLowStock)
	require.Len(t, bajos, 1)
	assert.Equal(t, entity.SeverityWarning, bajos[0].Severity,
		"por encima de la mitad del mínimo es solo aviso")
	assert.Equal(t, p.ID, bajos[0].ProductID)
}

func TestGenerate_StockBajoCritico(t *testing.T) {
	min := dec("100")
	f := newFixture(t, 0)
	p := f.producto(t, "MP-004", &min)
	f.lote(t, p, "S-02", dec("40"), nil, false)

	generated, err := f.uc.Generate(context.Background())
	require.NoError(t, err)

	bajos := porTipo(generated, entity.AlertLowStock)
	require.Len(t, bajos, 1)
	assert.Equal(t, entity.SeverityCritical, bajos[0].Severity,
		"por debajo de la mitad del mínimo la alerta es crítica")
}

func TestGenerate_StockBloqueadoNoCuentaComoDisponible(t *testing.T) {
	min := dec("50")
	f := newFixture(t, 0)
	p := f.producto(t, "MP-005", &min)
	f.lote(t, p, "B-01", dec("200"), nil, true)

	generated, err := f.uc.Generate(context.Background())
	require.NoError(t, err)

	bajos := porTipo(generated, entity.AlertLowStock)
	require.Len(t, bajos, 1)
	assert.Equal(t, entity.SeverityCritical, bajos[0].Severity,
		"todo el stock bloqueado deja el disponible a cero")

	bloqueados := porTipo(generated, entity.AlertBlocked)
	require.Len(t, bloqueados, 1)
	assert.Equal(t, entity.SeverityCritical, bloqueados[0].Severity)
}

// Las clases de alerta son independientes: el bloqueo no se come la caducidad.
func TestGenerate_BloqueadoYCaducadoGeneraAmbas(t *testing.T) {
	f := newFixture(t, 0)
	p := f.producto(t, "MP-010", nil)
	lot := f.lote(t, p, "RET-01", dec("50"), fecha(hoy.AddDate(0, 0, -10)), true)

	generated, err := f.uc.Generate(context.Background())
	require.NoError(t, err)

	caducados := porTipo(generated, entity.AlertExpired)
	require.Len(t, caducados, 1, "la retención de calidad no oculta la caducidad")
	assert.Equal(t, lot.ID, caducados[0].LotID)

	bloqueados := porTipo(generated, entity.AlertBlocked)
	require.Len(t, bloqueados, 1)
	assert.Equal(t, entity.SeverityCritical, bloqueados[0].Severity)
	assert.Contains(t, bloqueados[0].Message, "50 kg")
}

func TestGenerate_BloqueadoYProximoACaducarGeneraAmbas(t *testing.T) {
	f := newFixture(t, 30)
	p := f.producto(t, "MP-011", nil)
	f.lote(t, p, "RET-02", dec("50"), fecha(hoy.AddDate(0, 0, 10)), true)

	generated, err := f.uc.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, porTipo(generated, entity.AlertExpiringSoon), 1)
	require.Len(t, porTipo(generated, entity.AlertBlocked), 1)
}

func TestGenerate_BloqueadoSinStockNoAlerta(t *testing.T) {
	f := newFixture(t, 0)
	p := f.producto(t, "MP-012", nil)
	f.lote(t, p, "RET-03", decimal.Zero, fecha(hoy.AddDate(0, 0, -10)), true)

	generated, err := f.uc.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, generated,
		"sin cantidad no hay nada retenido ni nada caducado que avisar")
}

func TestGenerate_SinAlertas(t *testing.T) {
	min := dec("10")
	f := newFixture(t, 30)
	p := f.producto(t, "MP-006", &min)
	f.lote(t, p, "OK-01", dec("500"), fecha(hoy.AddDate(1, 0, 0)), false)

	generated, err := f.uc.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, generated, "un almacén sano no genera ruido")
}

func TestGenerate_OrdenDeSeveridad(t *testing.T) {
	min := dec("100")
	f := newFixture(t, 30)
	p := f.producto(t, "MP-007", &min)
	f.lote(t, p, "CAD-02", dec("10"), fecha(hoy.AddDate(0, 0, -1)), false)
	f.lote(t, p, "PROX-03", dec("10"), fecha(hoy.AddDate(0, 0, 10)), false)
	f.lote(t, p, "B-02", dec("10"), nil, true)

	generated, err := f.uc.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, generated, 4, "caducado, próximo, stock bajo y bloqueado")

	assert.Equal(t, entity.AlertExpired, generated[0].Type)
	assert.Equal(t, entity.AlertExpiringSoon, generated[1].Type)
	assert.Equal(t, entity.AlertLowStock, generated[2].Type)
	assert.Equal(t, entity.AlertBlocked, generated[3].Type)
}
