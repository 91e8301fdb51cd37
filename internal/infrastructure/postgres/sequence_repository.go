package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo asigna números de documento sobre la tabla sequences. Cada
// secuencia es una fila (name, year, last_value); el upsert con RETURNING
// bloquea la fila, así dos transacciones concurrentes se serializan y nunca
// reciben el mismo número. Los huecos solo aparecen si la tx aborta.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador de secuencias. Pasar la tx del
// documento en creación, nunca el pool suelto.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

func (r *SequenceRepo) next(name string, year int) (int, error) {
	query := `
		INSERT INTO sequences (name, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (name, year)
		DO UPDATE SET last_value = sequences.last_value + 1
		RETURNING last_value`
	var value int
	if err := r.q.QueryRow(context.Background(), query, name, year).Scan(&value); err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", name, err)
	}
	return value, nil
}

// NextOrderNumber devuelve el siguiente número de orden del año: YYYY-NNN.
func (r *SequenceRepo) NextOrderNumber(year int) (string, error) {
	value, err := r.next("production_order", year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%03d", year, value), nil
}

// NextReturnNumber devuelve el siguiente número de devolución: DEV-YYYY-NNN.
func (r *SequenceRepo) NextReturnNumber(year int) (string, error) {
	value, err := r.next("return", year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DEV-%d-%03d", year, value), nil
}

// NextCustomerCode devuelve el siguiente código de cliente: CLI-NNNN.
func (r *SequenceRepo) NextCustomerCode() (string, error) {
	value, err := r.next("customer", 0)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CLI-%04d", value), nil
}
