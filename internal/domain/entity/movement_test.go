package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

func TestLotDelta_TransferEsNeutro(t *testing.T) {
	m := &entity.Movement{Kind: entity.MovementTransfer, Quantity: dec("25")}
	assert.True(t, m.LotDelta().IsZero(),
		"un transfer mueve stock entre ubicaciones sin alterar el total del lote")
	assert.False(t, m.IsInbound())
}

func TestLotDelta_RestoDeMovimientos(t *testing.T) {
	entrada := &entity.Movement{Kind: entity.MovementEntry, Quantity: dec("10")}
	assert.True(t, dec("10").Equal(entrada.LotDelta()))
	assert.True(t, entrada.IsInbound())

	envio := &entity.Movement{Kind: entity.MovementShipment, Quantity: dec("-4")}
	assert.True(t, dec("-4").Equal(envio.LotDelta()))
	assert.False(t, envio.IsInbound())
}
