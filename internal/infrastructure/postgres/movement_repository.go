package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación del ledger de movimientos sobre PostgreSQL.
// Inserción y lectura: las filas nunca se actualizan.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador del ledger. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, lot_id, kind, quantity, movement_date, ref_kind, ref_id, material_line_id, from_location_id, to_location_id, notes`

// Create persiste un movimiento del ledger.
func (r *MovementRepo) Create(movement *entity.Movement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(context.Background(), query,
		movement.ID, movement.LotID, string(movement.Kind), movement.Quantity, movement.MovementDate,
		nullIfEmpty(movement.RefKind), nullIfEmpty(movement.RefID), nullIfEmpty(movement.MaterialLineID),
		nullIfEmpty(movement.FromLocationID), nullIfEmpty(movement.ToLocationID), movement.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *MovementRepo) GetByID(id string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE id = $1`
	rows, err := r.q.Query(context.Background(), query, id)
	if err != nil {
		return nil, fmt.Errorf("get movement: %w", err)
	}
	defer rows.Close()
	list, err := scanMovements(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListByLot devuelve la historia completa de un lote en orden cronológico.
func (r *MovementRepo) ListByLot(lotID string) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE lot_id = $1 ORDER BY movement_date, id`
	rows, err := r.q.Query(context.Background(), query, lotID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

// ListByLotAndKind devuelve los movimientos de un lote de un tipo concreto.
func (r *MovementRepo) ListByLotAndKind(lotID string, kind entity.MovementKind) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE lot_id = $1 AND kind = $2 ORDER BY movement_date, id`
	rows, err := r.q.Query(context.Background(), query, lotID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list movements by kind: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

// ListByRef devuelve los movimientos generados por un documento (orden, albarán, devolución).
func (r *MovementRepo) ListByRef(refKind, refID string) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE ref_kind = $1 AND ref_id = $2 ORDER BY movement_date, id`
	rows, err := r.q.Query(context.Background(), query, refKind, refID)
	if err != nil {
		return nil, fmt.Errorf("list movements by ref: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

// CountByLot cuenta los movimientos de un lote.
func (r *MovementRepo) CountByLot(lotID string) (int, error) {
	var count int
	err := r.q.QueryRow(context.Background(),
		`SELECT count(*) FROM movements WHERE lot_id = $1`, lotID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}
	return count, nil
}

// DeleteByLot elimina los movimientos de un lote. Solo el borrado de lotes
// recién creados (con su único movimiento de alta) pasa por aquí.
func (r *MovementRepo) DeleteByLot(lotID string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM movements WHERE lot_id = $1`, lotID)
	if err != nil {
		return fmt.Errorf("delete movements: %w", err)
	}
	return nil
}

func scanMovements(rows pgx.Rows) ([]*entity.Movement, error) {
	var list []*entity.Movement
	for rows.Next() {
		var m entity.Movement
		var kind string
		var refKind, refID, materialLineID, fromID, toID *string
		if err := rows.Scan(&m.ID, &m.LotID, &kind, &m.Quantity, &m.MovementDate,
			&refKind, &refID, &materialLineID, &fromID, &toID, &m.Notes); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Kind = entity.MovementKind(kind)
		m.RefKind = deref(refKind)
		m.RefID = deref(refID)
		m.MaterialLineID = deref(materialLineID)
		m.FromLocationID = deref(fromID)
		m.ToLocationID = deref(toID)
		list = append(list, &m)
	}
	return list, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
