package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Trazabilidad-api/internal/application/ledger"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL. Todos los
// repos que recibe el callback quedan atados a la misma tx, así que los locks
// de fila (GetForUpdate) y las escrituras del ledger se confirman o revierten
// juntos.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace
// Commit o Rollback según el error devuelto.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewRepos construye el conjunto completo de adaptadores sobre un Querier
// (pool para lecturas sueltas, tx dentro del runner).
func NewRepos(q Querier) repository.Repos {
	return repository.Repos{
		Products:     NewProductRepository(q),
		Lots:         NewLotRepository(q),
		LotLocations: NewLotLocationRepository(q),
		Locations:    NewLocationRepository(q),
		Movements:    NewMovementRepository(q),
		Orders:       NewProductionOrderRepository(q),
		Shipments:    NewShipmentRepository(q),
		Returns:      NewReturnRepository(q),
		Customers:    NewCustomerRepository(q),
		Sequences:    NewSequenceRepository(q),
	}
}
