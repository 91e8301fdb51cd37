package repository

import "github.com/jhoicas/Trazabilidad-api/internal/domain/entity"

// MovementRepository define el puerto de persistencia del ledger de movimientos.
// Solo existe inserción y lectura: los movimientos son inmutables y se
// conservan para siempre como pista de auditoría.
type MovementRepository interface {
	Create(movement *entity.Movement) error
	GetByID(id string) (*entity.Movement, error)
	ListByLot(lotID string) ([]*entity.Movement, error)
	ListByLotAndKind(lotID string, kind entity.MovementKind) ([]*entity.Movement, error)
	ListByRef(refKind, refID string) ([]*entity.Movement, error)
	CountByLot(lotID string) (int, error)
	// DeleteByLot existe solo para la eliminación de lotes recién creados
	// (con su único movimiento de alta). El ledger nunca borra movimientos.
	DeleteByLot(lotID string) error
}
