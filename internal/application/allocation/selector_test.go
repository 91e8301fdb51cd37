package allocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/application/allocation"
	"github.com/jhoicas/Trazabilidad-api/internal/application/ledger"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/memory"
	"github.com/jhoicas/Trazabilidad-api/pkg/clock"
)

var hoy = time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fecha(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestSortLots_FEFOAntesQueFIFO(t *testing.T) {
	sinCaducidad1 := &entity.Lot{LotNumber: "SC-1", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	sinCaducidad2 := &entity.Lot{LotNumber: "SC-2", CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	caducaTarde := &entity.Lot{LotNumber: "CT", ExpirationDate: fecha(2026, 9, 1)}
	caducaPronto := &entity.Lot{LotNumber: "CP", ExpirationDate: fecha(2026, 4, 1)}
	sinFechaAlta := &entity.Lot{LotNumber: "SF"}

	lots := []*entity.Lot{sinCaducidad2, caducaTarde, sinFechaAlta, sinCaducidad1, caducaPronto}
	allocation.SortLots(lots)

	got := make([]string, len(lots))
	for i, l := range lots {
		got[i] = l.LotNumber
	}
	// Primero los que caducan (por caducidad ascendente), luego FIFO por fecha
	// de alta y al final los lotes sin fecha de alta válida.
	assert.Equal(t, []string{"CP", "CT", "SC-1", "SC-2", "SF"}, got)
}

func TestSortLots_EstableConCaducidadesIguales(t *testing.T) {
	a := &entity.Lot{LotNumber: "A", ExpirationDate: fecha(2026, 5, 1)}
	b := &entity.Lot{LotNumber: "B", ExpirationDate: fecha(2026, 5, 1)}
	lots := []*entity.Lot{a, b}
	allocation.SortLots(lots)
	assert.Equal(t, "A", lots[0].LotNumber, "el orden original se conserva en empates")
}

// ──────────────────────────────────────────────────────────────────────────────
// Selección con stock real
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	store  *memory.Store
	led    *ledger.Ledger
	engine *allocation.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := clock.Fixed{T: hoy}
	return &fixture{
		store:  store,
		led:    ledger.New(store, clk),
		engine: allocation.NewEngine(store.Repos(), clk),
	}
}

// lote da de alta un lote con stock en la ubicación indicada.
func (f *fixture) lote(t *testing.T, productID, number string, qty decimal.Decimal, expiration *time.Time, locationCode string) *entity.Lot {
	t.Helper()
	repos := f.store.Repos()
	lot := &entity.Lot{
		ProductID:         productID,
		LotNumber:         number,
		ManufacturingDate: hoy,
		ExpirationDate:    expiration,
		InitialQuantity:   qty,
		CurrentQuantity:   decimal.Zero,
		Unit:              "kg",
		CreatedAt:         hoy,
	}
	require.NoError(t, repos.Lots.Create(lot))
	loc, err := repos.Locations.GetByCode(locationCode)
	require.NoError(t, err)
	_, err = f.led.Record(context.Background(), ledger.MovementInput{
		LotID:        lot.ID,
		Kind:         entity.MovementEntry,
		Quantity:     qty,
		ToLocationID: loc.ID,
	})
	require.NoError(t, err)
	return lot
}

func (f *fixture) producto(t *testing.T) *entity.Product {
	t.Helper()
	p := &entity.Product{
		Code: "MP-SEL", Name: "Materia prima", Type: entity.ProductTypeRawMaterial,
		StorageUnit: "kg", Active: true,
	}
	require.NoError(t, f.store.Repos().Products.Create(p))
	return p
}

func TestSelectLots_CortaAlCubrirLoPedido(t *testing.T) {
	f := newFixture(t)
	p := f.producto(t)
	f.lote(t, p.ID, "S-1", dec("30"), fecha(2026, 4, 1), entity.LocationReleased)
	f.lote(t, p.ID, "S-2", dec("30"), fecha(2026, 5, 1), entity.LocationReleased)
	f.lote(t, p.ID, "S-3", dec("30"), fecha(2026, 6, 1), entity.LocationReleased)

	candidates, err := f.engine.SelectLots(context.Background(), p.ID, dec("50"), entity.LocationReleased)
	require.NoError(t, err)
	require.Len(t, candidates, 2, "con 50 pedidos bastan los dos primeros lotes FEFO")
	assert.Equal(t, "S-1", candidates[0].Lot.LotNumber)
	assert.Equal(t, "S-2", candidates[1].Lot.LotNumber)
	assert.True(t, dec("30").Equal(candidates[0].Available))
}

func TestSelectLots_SinCantidadDevuelveTodos(t *testing.T) {
	f := newFixture(t)
	p := f.producto(t)
	f.lote(t, p.ID, "S-1", dec("30"), fecha(2026, 4, 1), entity.LocationReleased)
	f.lote(t, p.ID, "S-2", dec("30"), fecha(2026, 5, 1), entity.LocationReleased)

	candidates, err := f.engine.SelectLots(context.Background(), p.ID, decimal.Zero, "")
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestSelectLots_ExcluyeNoDisponibles(t *testing.T) {
	f := newFixture(t)
	p := f.producto(t)

	f.lote(t, p.ID, "S-CAD", dec("30"), fecha(2026, 1, 1), entity.LocationReleased)
	bloqueado := f.lote(t, p.ID, "S-BLQ", dec("30"), fecha(2026, 6, 1), entity.LocationReleased)
	repos := f.store.Repos()
	bl, err := repos.Lots.GetByID(bloqueado.ID)
	require.NoError(t, err)
	bl.Blocked = true
	require.NoError(t, repos.Lots.Update(bl))

	// Stock en recepción no cuenta como disponible.
	f.lote(t, p.ID, "S-REC", dec("30"), fecha(2026, 7, 1), entity.LocationReception)
	vivo := f.lote(t, p.ID, "S-OK", dec("30"), fecha(2026, 8, 1), entity.LocationReleased)

	candidates, err := f.engine.SelectLots(context.Background(), p.ID, decimal.Zero, "")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, vivo.ID, candidates[0].Lot.ID)
}

func TestSelectForConsumption_ConvierteUnidadDelConsumidor(t *testing.T) {
	f := newFixture(t)
	p := f.producto(t)
	f.lote(t, p.ID, "S-1", dec("2"), fecha(2026, 4, 1), entity.LocationReleased)
	f.lote(t, p.ID, "S-2", dec("2"), fecha(2026, 5, 1), entity.LocationReleased)

	// 1500 g son 1.5 kg: basta el primer lote.
	candidates, err := f.engine.SelectForConsumption(context.Background(), p.ID, dec("1500"), "g", entity.LocationReleased)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "S-1", candidates[0].Lot.LotNumber)
}
