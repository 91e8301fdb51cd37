package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/memory"
)

func TestNewStore_UbicacionesEstandar(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repos()

	for _, code := range []string{
		entity.LocationReception,
		entity.LocationReleased,
		entity.LocationProduction,
		entity.LocationReturns,
	} {
		loc, err := repos.Locations.GetByCode(code)
		require.NoError(t, err)
		require.NotNil(t, loc, "la ubicación %s debe existir de serie", code)
	}

	lib, err := repos.Locations.GetByCode(entity.LocationReleased)
	require.NoError(t, err)
	assert.True(t, lib.IsAvailable, "solo la ubicación liberada cuenta como disponible")
	rec, err := repos.Locations.GetByCode(entity.LocationReception)
	require.NoError(t, err)
	assert.False(t, rec.IsAvailable)
}

func TestRun_RestauraElSnapshotSiFalla(t *testing.T) {
	store := memory.NewStore()

	errBoom := errors.New("boom")
	err := store.Run(context.Background(), func(r repository.Repos) error {
		p := &entity.Product{Code: "MP-X", Name: "X", Type: entity.ProductTypeRawMaterial, StorageUnit: "kg", Active: true}
		if err := r.Products.Create(p); err != nil {
			return err
		}
		lot := &entity.Lot{ProductID: p.ID, LotNumber: "L-X", InitialQuantity: decimal.NewFromInt(1)}
		if err := r.Lots.Create(lot); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	// Nada de lo escrito dentro del callback debe haber sobrevivido.
	p, err := store.Repos().Products.GetByCode("MP-X")
	require.NoError(t, err)
	assert.Nil(t, p)
	lots, err := store.Repos().Lots.List(repository.LotFilter{LotNumber: "L-X"})
	require.NoError(t, err)
	assert.Empty(t, lots)
}

func TestRun_ConfirmaSiTerminaBien(t *testing.T) {
	store := memory.NewStore()

	err := store.Run(context.Background(), func(r repository.Repos) error {
		return r.Products.Create(&entity.Product{
			Code: "MP-Y", Name: "Y", Type: entity.ProductTypeRawMaterial, StorageUnit: "kg", Active: true,
		})
	})
	require.NoError(t, err)

	p, err := store.Repos().Products.GetByCode("MP-Y")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestRepos_DevuelvenCopias(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repos()

	p := &entity.Product{Code: "MP-Z", Name: "Z", Type: entity.ProductTypeRawMaterial, StorageUnit: "kg", Active: true}
	require.NoError(t, repos.Products.Create(p))

	leido, err := repos.Products.GetByID(p.ID)
	require.NoError(t, err)
	leido.Name = "mutado"

	otraVez, err := repos.Products.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Z", otraVez.Name, "mutar lo leído no toca el almacén")
}

func TestCreate_DuplicadosPorClaveNatural(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repos()

	p := &entity.Product{Code: "MP-DUP", Name: "Dup", Type: entity.ProductTypeRawMaterial, StorageUnit: "kg", Active: true}
	require.NoError(t, repos.Products.Create(p))
	err := repos.Products.Create(&entity.Product{Code: "MP-DUP", Name: "Otro", Type: entity.ProductTypeRawMaterial})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}
