package ledger

import (
	"context"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando los
// repositorios atados a esa tx. Garantiza la atomicidad del ledger: o se
// aplican el movimiento, la cantidad cacheada y el desglose por ubicación, o
// no se aplica nada.
type TxRunner interface {
	Run(ctx context.Context, fn func(r repository.Repos) error) error
}
