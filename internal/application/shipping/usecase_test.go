package shipping_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/application/ledger"
	"github.com/jhoicas/Trazabilidad-api/internal/application/shipping"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/memory"
	"github.com/jhoicas/Trazabilidad-api/pkg/clock"
)

var hoy = time.Date(2026, 3, 15, 16, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store *memory.Store
	led   *ledger.Ledger
	uc    *shipping.UseCase

	salsa  *entity.Product
	harina *entity.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := clock.Fixed{T: hoy}
	led := ledger.New(store, clk)
	f := &fixture{
		store: store,
		led:   led,
		uc:    shipping.New(store, led, store.Repos(), clk),
	}
	repos := store.Repos()
	f.salsa = &entity.Product{Code: "PA-SAL", Name: "Salsa", Type: entity.ProductTypeFinishedProduct, StorageUnit: "ud", Active: true}
	f.harina = &entity.Product{Code: "MP-HAR", Name: "Harina", Type: entity.ProductTypeRawMaterial, StorageUnit: "kg", Active: true}
	require.NoError(t, repos.Products.Create(f.salsa))
	require.NoError(t, repos.Products.Create(f.harina))
	return f
}

// lote crea un lote con stock en la ubicación liberada.
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

func (f *fixture) cliente(t *testing.T, name string) *entity.Customer {
	t.Helper()
	c := &entity.Customer{Code: "CLI-TEST", Name: name, Active: true, CreatedAt: hoy}
	require.NoError(t, f.store.Repos().Customers.Create(c))
	return c
}

func TestCreateShipment_DescuentaStockLiberado(t *testing.T) {
	f := newFixture(t)
	lot := f.lote(t, f.salsa, "SB-001", dec("100"))
	customer := f.cliente(t, "Distribuciones Sur")

	shipment, err := f.uc.CreateShipment(context.Background(), shipping.ShipmentInput{
		ShipmentNumber: "ALB-001",
		ShipmentDate:   hoy,
		CustomerID:     customer.ID,
		Details:        []shipping.DetailInput{{LotID: lot.ID, Quantity: dec("40")}},
	})
	require.NoError(t, err)
	require.Len(t, shipment.Details, 1)
	assert.Equal(t, "ud", shipment.Details[0].Unit, "sin unidad explícita hereda la del lote")

	fresh, err := f.store.Repos().Lots.GetByID(lot.ID)
	require.NoError(t, err)
	assert.True(t, dec("60").Equal(fresh.CurrentQuantity))

	movements, err := f.store.Repos().Movements.ListByRef(entity.RefShipment, shipment.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementShipment, movements[0].Kind)
	assert.True(t, dec("-40").Equal(movements[0].Quantity))
}

func TestCreateShipment_ClienteNuevoConCodigoAutogenerado(t *testing.T) {
	f := newFixture(t)
	lot := f.lote(t, f.salsa, "SB-002", dec("10"))

	shipment, err := f.uc.CreateShipment(context.Background(), shipping.ShipmentInput{
		ShipmentNumber: "ALB-002",
		ShipmentDate:   hoy,
		NewCustomer:    &shipping.NewCustomerInput{Name: "Bar Paco", Email: "paco@example.com"},
		Details:        []shipping.DetailInput{{LotID: lot.ID, Quantity: dec("5")}},
	})
	require.NoError(t, err)

	customer, err := f.store.Repos().Customers.GetByID(shipment.CustomerID)
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, "CLI-0001", customer.Code)
	assert.Equal(t, "Bar Paco", customer.Name)
}

func TestCreateShipment_SoloProductoAcabado(t *testing.T) {
	f := newFixture(t)
	lot := f.lote(t, f.harina, "H-001", dec("100"))
	customer := f.cliente(t, "Distribuciones Sur")

	_, err := f.uc.CreateShipment(context.Background(), shipping.ShipmentInput{
		ShipmentNumber: "ALB-003",
		ShipmentDate:   hoy,
		CustomerID:     customer.ID,
		Details:        []shipping.DetailInput{{LotID: lot.ID, Quantity: dec("10")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput,
		"la materia prima no sale por albarán de cliente")
}

func TestCreateShipment_TodoONada(t *testing.T) {
	f := newFixture(t)
	bueno := f.lote(t, f.salsa, "SB-003", dec("100"))
	escaso := f.lote(t, f.salsa, "SB-004", dec("3"))
	customer := f.cliente(t, "Distribuciones Sur")

	_, err := f.uc.CreateShipment(context.Background(), shipping.ShipmentInput{
		ShipmentNumber: "ALB-004",
		ShipmentDate:   hoy,
		CustomerID:     customer.ID,
		Details: []shipping.DetailInput{
			{LotID: bueno.ID, Quantity: dec("50")},
			{LotID: escaso.ID, Quantity: dec("10")},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// La primera línea no debe haberse aplicado.
	fresh, err := f.store.Repos().Lots.GetByID(bueno.ID)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(fresh.CurrentQuantity))

	none, err := f.store.Repos().Shipments.GetByNumber("ALB-004")
	require.NoError(t, err)
	assert.Nil(t, none, "el albarán fallido no queda registrado")
}

func TestCreateShipment_NumeroDuplicado(t *testing.T) {
	f := newFixture(t)
	lot := f.lote(t, f.salsa, "SB-005", dec("100"))
	customer := f.cliente(t, "Distribuciones Sur")

	input := shipping.ShipmentInput{
		ShipmentNumber: "ALB-005",
		ShipmentDate:   hoy,
		CustomerID:     customer.ID,
		Details:        []shipping.DetailInput{{LotID: lot.ID, Quantity: dec("5")}},
	}
	_, err := f.uc.CreateShipment(context.Background(), input)
	require.NoError(t, err)
	_, err = f.uc.CreateShipment(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateShipment_LoteNoDisponible(t *testing.T) {
	f := newFixture(t)
	lot := f.lote(t, f.salsa, "SB-006", dec("100"))
	customer := f.cliente(t, "Distribuciones Sur")

	bl, err := f.store.Repos().Lots.GetByID(lot.ID)
	require.NoError(t, err)
	bl.Blocked = true
	require.NoError(t, f.store.Repos().Lots.Update(bl))

	_, err = f.uc.CreateShipment(context.Background(), shipping.ShipmentInput{
		ShipmentNumber: "ALB-006",
		ShipmentDate:   hoy,
		CustomerID:     customer.ID,
		Details:        []shipping.DetailInput{{LotID: lot.ID, Quantity: dec("5")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Devoluciones
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateReturn_ReingresaYBloquea(t *testing.T) {
	f := newFixture(t)
	lot := f.lote(t, f.salsa, "SB-010", dec("100"))
	customer := f.cliente(t, "Distribuciones Sur")

	ret, err := f.uc.CreateReturn(context.Background(), shipping.ReturnInput{
		ReturnDate: hoy,
		Reason:     entity.ReturnReasonCustomer,
		CustomerID: customer.ID,
		Details:    []shipping.DetailInput{{LotID: lot.ID, Quantity: dec("10")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "DEV-2026-001", ret.ReturnNumber, "el número se autogenera por año")

	fresh, err := f.store.Repos().Lots.GetByID(lot.ID)
	require.NoError(t, err)
	assert.True(t, dec("110").Equal(fresh.CurrentQuantity))
	assert.True(t, fresh.Blocked, "la devolución deja el lote retenido hasta revisión de calidad")

	// El reingreso entra en la ubicación de devoluciones.
	dev, err := f.store.Repos().Locations.GetByCode(entity.LocationReturns)
	require.NoError(t, err)
	ll, err := f.store.Repos().LotLocations.Get(lot.ID, dev.ID)
	require.NoError(t, err)
	require.NotNil(t, ll)
	assert.True(t, dec("10").Equal(ll.Quantity))

	movements, err := f.store.Repos().Movements.ListByRef(entity.RefReturn, ret.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementReturn, movements[0].Kind)
}

func TestCreateReturn_NumeracionSecuencial(t *testing.T) {
	f := newFixture(t)
	l1 := f.lote(t, f.salsa, "SB-011", dec("10"))
	l2 := f.lote(t, f.salsa, "SB-012", dec("10"))

	r1, err := f.uc.CreateReturn(context.Background(), shipping.ReturnInput{
		ReturnDate: hoy, Reason: entity.ReturnReasonQualityIssue,
		Details: []shipping.DetailInput{{LotID: l1.ID, Quantity: dec("1")}},
	})
	require.NoError(t, err)
	r2, err := f.uc.CreateReturn(context.Background(), shipping.ReturnInput{
		ReturnDate: hoy, Reason: entity.ReturnReasonMarketRecall,
		Details: []shipping.DetailInput{{LotID: l2.ID, Quantity: dec("1")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "DEV-2026-001", r1.ReturnNumber)
	assert.Equal(t, "DEV-2026-002", r2.ReturnNumber)
}

func TestCreateReturn_MotivoInvalido(t *testing.T) {
	f := newFixture(t)
	lot := f.lote(t, f.salsa, "SB-013", dec("10"))

	_, err := f.uc.CreateReturn(context.Background(), shipping.ReturnInput{
		ReturnDate: hoy,
		Reason:     "porque sí",
		Details:    []shipping.DetailInput{{LotID: lot.ID, Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateReturn_NumeroExplicitoDuplicado(t *testing.T) {
	f := newFixture(t)
	l1 := f.lote(t, f.salsa, "SB-014", dec("10"))
	l2 := f.lote(t, f.salsa, "SB-015", dec("10"))

	_, err := f.uc.CreateReturn(context.Background(), shipping.ReturnInput{
		ReturnNumber: "DEV-MANUAL-1",
		ReturnDate:   hoy,
		Reason:       entity.ReturnReasonCustomer,
		Details:      []shipping.DetailInput{{LotID: l1.ID, Quantity: dec("1")}},
	})
	require.NoError(t, err)

	_, err = f.uc.CreateReturn(context.Background(), shipping.ReturnInput{
		ReturnNumber: "DEV-MANUAL-1",
		ReturnDate:   hoy,
		Reason:       entity.ReturnReasonCustomer,
		Details:      []shipping.DetailInput{{LotID: l2.ID, Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
