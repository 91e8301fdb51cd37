package production_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/application/ledger"
	"github.com/jhoicas/Trazabilidad-api/internal/application/production"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/memory"
	"github.com/jhoicas/Trazabilidad-api/pkg/clock"
)

var hoy = time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store *memory.Store
	led   *ledger.Ledger
	uc    *production.UseCase

	harina  *entity.Product // materia prima en kg
	botella *entity.Product // envase en unidades
	salsa   *entity.Product // producto acabado
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := clock.Fixed{T: hoy}
	led := ledger.New(store, clk)
	f := &fixture{
		store: store,
		led:   led,
		uc:    production.New(store, led, store.Repos(), clk),
	}
	repos := store.Repos()
	f.harina = &entity.Product{Code: "MP-HAR", Name: "Harina", Type: entity.ProductTypeRawMaterial, StorageUnit: "kg", Active: true}
	f.botella = &entity.Product{Code: "EN-BOT", Name: "Botella", Type: entity.ProductTypePackaging, StorageUnit: "ud", Active: true}
	f.salsa = &entity.Product{Code: "PA-SAL", Name: "Salsa", Type: entity.ProductTypeFinishedProduct, StorageUnit: "ud", Active: true}
	for _, p := range []*entity.Product{f.harina, f.botella, f.salsa} {
		require.NoError(t, repos.Products.Create(p))
	}
	return f
}

// lote crea un lote de material con su stock ya en la ubicación liberada.
func (f *fixture) lote(t *testing.T, p *entity.Product, number string, qty decimal.Decimal) *entity.Lot {
	t.Helper()
	repos := f.store.Repos()
	lot := &entity.Lot{
		ProductID:         p.ID,
		LotNumber:         number,
		ManufacturingDate: hoy,
		InitialQuantity:   qty,
		CurrentQuantity:   decimal.Zero,
		Unit:              p.StorageUnit,
		CreatedAt:         hoy,
	}
	require.NoError(t, repos.Lots.Create(lot))
	lib, err := repos.Locations.GetByCode(entity.LocationReleased)
	require.NoError(t, err)
	_, err = f.led.Record(context.Background(), ledger.MovementInput{
		LotID:        lot.ID,
		Kind:         entity.MovementEntry,
		Quantity:     qty,
		ToLocationID: lib.ID,
	})
	require.NoError(t, err)
	return lot
}

func (f *fixture) orden(t *testing.T, baseLot string) *entity.ProductionOrder {
	t.Helper()
	order, err := f.uc.CreateOrder(context.Background(), production.CreateOrderInput{
		BaseProductName: "Salsa brava",
		BaseLotNumber:   baseLot,
		ProductionDate:  hoy,
		Lines:           []production.LineInput{{ProductID: f.salsa.ID, Unit: "ud"}},
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrder_NumeracionSecuencialPorAnio(t *testing.T) {
	f := newFixture(t)

	o1 := f.orden(t, "SB-001")
	o2 := f.orden(t, "SB-002")
	o3 := f.orden(t, "SB-003")

	assert.Equal(t, "2026-001", o1.OrderNumber)
	assert.Equal(t, "2026-002", o2.OrderNumber)
	assert.Equal(t, "2026-003", o3.OrderNumber)
	assert.Equal(t, entity.OrderStatusDraft, o1.Status)
	require.Len(t, o1.Lines, 1)
}

func TestCreateOrder_NumeracionSinHuecosConcurrente(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	numbers := make([]string, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := f.uc.CreateOrder(context.Background(), production.CreateOrderInput{
				BaseProductName: "Salsa brava",
				BaseLotNumber:   "SB-C" + string(rune('A'+i)),
				ProductionDate:  hoy,
				Lines:           []production.LineInput{{ProductID: f.salsa.ID}},
			})
			if err == nil {
				numbers[i] = order.OrderNumber
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, n := range numbers {
		require.NotEmpty(t, n)
		seen[n] = true
	}
	assert.Len(t, seen, 3, "tres creaciones concurrentes reciben tres números distintos")
	assert.True(t, seen["2026-001"] && seen["2026-002"] && seen["2026-003"],
		"la secuencia no deja huecos")
}

func TestCreateOrder_SoloLineasDeProductoAcabado(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateOrder(context.Background(), production.CreateOrderInput{
		BaseProductName: "Salsa brava",
		BaseLotNumber:   "SB-X",
		ProductionDate:  hoy,
		Lines:           []production.LineInput{{ProductID: f.harina.ID}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.CreateOrder(context.Background(), production.CreateOrderInput{
		BaseProductName: "Salsa brava",
		BaseLotNumber:   "SB-X",
		ProductionDate:  hoy,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "sin líneas no hay orden")
}

func TestAddMaterial_ConsumeDelLoteYActivaLaOrden(t *testing.T) {
	f := newFixture(t)
	order := f.orden(t, "SB-010")
	lot := f.lote(t, f.harina, "H-01", dec("100"))

	material, err := f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID:    lot.ID,
		Quantity: dec("25"),
		Unit:     "kg",
	})
	require.NoError(t, err)
	assert.True(t, dec("25").Equal(material.QuantityConsumed))

	fresh, err := f.store.Repos().Lots.GetByID(lot.ID)
	require.NoError(t, err)
	assert.True(t, dec("75").Equal(fresh.CurrentQuantity),
		"añadir material consume stock en el momento")

	updated, err := f.uc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusInProgress, updated.Status)
	require.Len(t, updated.Materials, 1)

	movements, err := f.store.Repos().Movements.ListByRef(entity.RefProductionOrder, order.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementProductionConsume, movements[0].Kind)
	assert.True(t, dec("-25").Equal(movements[0].Quantity))
}

func TestAddMaterial_ConvierteUnidadDeReceta(t *testing.T) {
	f := newFixture(t)
	order := f.orden(t, "SB-011")
	lot := f.lote(t, f.harina, "H-02", dec("10"))

	material, err := f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID:    lot.ID,
		Quantity: dec("2500"),
		Unit:     "g",
	})
	require.NoError(t, err)
	assert.True(t, dec("2.5").Equal(material.QuantityConsumed), "2500 g consumen 2.5 kg")
	assert.True(t, dec("2500").Equal(material.OriginalQuantity),
		"la cantidad de receta se conserva para mostrarla")
	assert.Equal(t, "g", material.OriginalUnit)
}

func TestAddMaterial_Rechazos(t *testing.T) {
	f := newFixture(t)
	order := f.orden(t, "SB-012")
	lot := f.lote(t, f.harina, "H-03", dec("10"))

	// Sin stock suficiente.
	_, err := f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: lot.ID, Quantity: dec("50"), Unit: "kg",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// El mismo lote no puede entrar dos veces en la orden.
	_, err = f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: lot.ID, Quantity: dec("2"), Unit: "kg",
	})
	require.NoError(t, err)
	_, err = f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: lot.ID, Quantity: dec("2"), Unit: "kg",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// No se consumen productos acabados.
	acabado := f.lote(t, f.salsa, "PA-01", dec("10"))
	_, err = f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: acabado.ID, Quantity: dec("1"), Unit: "ud",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Un lote bloqueado no está disponible, aunque se bloquee justo antes
	// del consumo: la disponibilidad se evalúa sobre la fila ya bloqueada.
	bloqueado := f.lote(t, f.harina, "H-04", dec("10"))
	bl, err := f.store.Repos().Lots.GetByID(bloqueado.ID)
	require.NoError(t, err)
	bl.Blocked = true
	require.NoError(t, f.store.Repos().Lots.Update(bl))
	_, err = f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: bloqueado.ID, Quantity: dec("1"), Unit: "kg",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Tampoco un lote caducado.
	caducado := f.lote(t, f.harina, "H-05C", dec("10"))
	cd, err := f.store.Repos().Lots.GetByID(caducado.ID)
	require.NoError(t, err)
	ayer := hoy.AddDate(0, 0, -1)
	cd.ExpirationDate = &ayer
	require.NoError(t, f.store.Repos().Lots.Update(cd))
	_, err = f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: caducado.ID, Quantity: dec("1"), Unit: "kg",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRemoveMaterial_ReversionCompensatoria(t *testing.T) {
	f := newFixture(t)
	order := f.orden(t, "SB-013")
	lot := f.lote(t, f.harina, "H-05", dec("100"))

	material, err := f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: lot.ID, Quantity: dec("30"), Unit: "kg",
	})
	require.NoError(t, err)

	require.NoError(t, f.uc.RemoveMaterial(context.Background(), order.ID, material.ID))

	fresh, err := f.store.Repos().Lots.GetByID(lot.ID)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(fresh.CurrentQuantity), "la reversión devuelve el stock")

	// El consumo original no se borra: queda el par consumo + reversión.
	movements, err := f.store.Repos().Movements.ListByRef(entity.RefProductionOrder, order.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.True(t, dec("-30").Equal(movements[0].Quantity))
	assert.True(t, dec("30").Equal(movements[1].Quantity))

	updated, err := f.uc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.Materials)
}

func TestCloseOrder_CreaLotesAcabados(t *testing.T) {
	f := newFixture(t)
	order := f.orden(t, "SB-100")
	harina := f.lote(t, f.harina, "H-06", dec("100"))
	botellas := f.lote(t, f.botella, "B-01", dec("500"))

	_, err := f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: harina.ID, Quantity: dec("40"), Unit: "kg",
	})
	require.NoError(t, err)
	_, err = f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: botellas.ID, Quantity: dec("200"), Unit: "ud",
	})
	require.NoError(t, err)

	lineID := order.Lines[0].ID
	closed, err := f.uc.CloseOrder(context.Background(), order.ID, map[string]decimal.Decimal{
		lineID: dec("200"),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	line := closed.LineByID(lineID)
	require.NotNil(t, line)
	require.NotEmpty(t, line.LotID, "el cierre enlaza la línea con el lote producido")
	require.NotNil(t, line.ProducedQuantity)
	assert.True(t, dec("200").Equal(*line.ProducedQuantity))

	produced, err := f.store.Repos().Lots.GetByID(line.LotID)
	require.NoError(t, err)
	assert.Equal(t, "SB-100", produced.LotNumber, "el lote acabado hereda el número de la cabecera")
	assert.True(t, dec("200").Equal(produced.CurrentQuantity))

	// El stock producido aparece en la ubicación de fabricación.
	fab, err := f.store.Repos().Locations.GetByCode(entity.LocationProduction)
	require.NoError(t, err)
	ll, err := f.store.Repos().LotLocations.Get(produced.ID, fab.ID)
	require.NoError(t, err)
	require.NotNil(t, ll)
	assert.True(t, dec("200").Equal(ll.Quantity))
}

func TestCloseOrder_TodoONada(t *testing.T) {
	f := newFixture(t)
	order := f.orden(t, "SB-200")
	harina := f.lote(t, f.harina, "H-07", dec("100"))
	_, err := f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: harina.ID, Quantity: dec("10"), Unit: "kg",
	})
	require.NoError(t, err)

	// Ya existe un lote de salsa con el número de la cabecera: el cierre entero
	// debe fallar sin dejar la orden cerrada ni lotes a medias.
	f.lote(t, f.salsa, "SB-200", dec("5"))

	_, err = f.uc.CloseOrder(context.Background(), order.ID, map[string]decimal.Decimal{
		order.Lines[0].ID: dec("100"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	fresh, err := f.uc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.NotEqual(t, entity.OrderStatusClosed, fresh.Status)
	assert.Empty(t, fresh.Lines[0].LotID)
}

func TestCloseOrder_Validaciones(t *testing.T) {
	f := newFixture(t)
	order := f.orden(t, "SB-300")

	// Sin materiales no se cierra.
	_, err := f.uc.CloseOrder(context.Background(), order.ID, map[string]decimal.Decimal{
		order.Lines[0].ID: dec("10"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	harina := f.lote(t, f.harina, "H-08", dec("100"))
	_, err = f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: harina.ID, Quantity: dec("10"), Unit: "kg",
	})
	require.NoError(t, err)

	// Sin cantidad producida tampoco.
	_, err = f.uc.CloseOrder(context.Background(), order.ID, map[string]decimal.Decimal{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Una línea ajena a la orden se rechaza.
	_, err = f.uc.CloseOrder(context.Background(), order.ID, map[string]decimal.Decimal{
		"linea-ajena": dec("10"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOrdenCerradaEsTerminal(t *testing.T) {
	f := newFixture(t)
	order := f.orden(t, "SB-400")
	harina := f.lote(t, f.harina, "H-09", dec("100"))
	material, err := f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: harina.ID, Quantity: dec("10"), Unit: "kg",
	})
	require.NoError(t, err)

	_, err = f.uc.CloseOrder(context.Background(), order.ID, map[string]decimal.Decimal{
		order.Lines[0].ID: dec("50"),
	})
	require.NoError(t, err)

	otro := f.lote(t, f.harina, "H-10", dec("10"))
	_, err = f.uc.AddMaterial(context.Background(), order.ID, production.AddMaterialInput{
		LotID: otro.ID, Quantity: dec("1"), Unit: "kg",
	})
	assert.ErrorIs(t, err, domain.ErrOrderClosed)

	err = f.uc.RemoveMaterial(context.Background(), order.ID, material.ID)
	assert.ErrorIs(t, err, domain.ErrOrderClosed)

	_, err = f.uc.CloseOrder(context.Background(), order.ID, map[string]decimal.Decimal{
		order.Lines[0].ID: dec("50"),
	})
	assert.ErrorIs(t, err, domain.ErrOrderClosed)

	notas := "tarde"
	_, err = f.uc.UpdateOrder(context.Background(), order.ID, production.UpdateOrderInput{Notes: &notas})
	assert.ErrorIs(t, err, domain.ErrOrderClosed)
}

func TestUpdateOrder_EditaCabeceraAbierta(t *testing.T) {
	f := newFixture(t)
	order := f.orden(t, "SB-500")

	notas := "turno de mañana"
	nuevaFecha := hoy.AddDate(0, 0, 1)
	updated, err := f.uc.UpdateOrder(context.Background(), order.ID, production.UpdateOrderInput{
		Notes:          &notas,
		ProductionDate: &nuevaFecha,
	})
	require.NoError(t, err)
	assert.Equal(t, "turno de mañana", updated.Notes)
	assert.True(t, nuevaFecha.Equal(updated.ProductionDate))
}
