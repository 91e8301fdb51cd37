package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo implementación del puerto LotRepository sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador de persistencia para lotes. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `id, product_id, lot_number, manufacturing_date, expiration_date, initial_quantity, current_quantity, unit, blocked, created_at`

// Create persiste un nuevo lote. El número de lote es único por producto.
func (r *LotRepo) Create(lot *entity.Lot) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}
	query := `
		INSERT INTO lots (` + lotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(context.Background(), query,
		lot.ID, lot.ProductID, lot.LotNumber, lot.ManufacturingDate, lot.ExpirationDate,
		lot.InitialQuantity, lot.CurrentQuantity, lot.Unit, lot.Blocked, lot.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID.
func (r *LotRepo) GetByID(id string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = $1`
	return r.scanOne(r.q.QueryRow(context.Background(), query, id), "get lot")
}

// GetForUpdate obtiene un lote y bloquea su fila (SELECT FOR UPDATE). Punto de
// serialización de todas las escrituras del ledger sobre el lote.
func (r *LotRepo) GetForUpdate(id string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRow(context.Background(), query, id), "get lot for update")
}

// GetByProductAndNumber obtiene un lote por producto y número de lote.
func (r *LotRepo) GetByProductAndNumber(productID, lotNumber string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE product_id = $1 AND lot_number = $2`
	return r.scanOne(r.q.QueryRow(context.Background(), query, productID, lotNumber), "get lot by number")
}

// Update persiste la cantidad cacheada y el flag de bloqueo.
func (r *LotRepo) Update(lot *entity.Lot) error {
	query := `
		UPDATE lots
		SET expiration_date = $2, current_quantity = $3, blocked = $4
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		lot.ID, lot.ExpirationDate, lot.CurrentQuantity, lot.Blocked,
	)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientStock
		}
		return fmt.Errorf("update lot: %w", err)
	}
	return nil
}

// List lista lotes con filtros opcionales, ordenados por caducidad ascendente
// (sin caducidad al final) y después por fecha de alta.
func (r *LotRepo) List(filter repository.LotFilter) ([]*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE 1=1`
	var args []any
	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		query += fmt.Sprintf(" AND product_id = $%d", len(args))
	}
	if filter.LotNumber != "" {
		args = append(args, "%"+filter.LotNumber+"%")
		query += fmt.Sprintf(" AND lot_number ILIKE $%d", len(args))
	}
	if filter.OnlyWithStock {
		query += " AND current_quantity > 0"
	}
	query += " ORDER BY expiration_date ASC NULLS LAST, created_at ASC"

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()
	var list []*entity.Lot
	for rows.Next() {
		var l entity.Lot
		if err := rows.Scan(&l.ID, &l.ProductID, &l.LotNumber, &l.ManufacturingDate, &l.ExpirationDate,
			&l.InitialQuantity, &l.CurrentQuantity, &l.Unit, &l.Blocked, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// Delete elimina un lote. Solo el caso de uso de borrado de lotes recién
// creados llega aquí; el resto de la historia es inmutable.
func (r *LotRepo) Delete(id string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM lots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lot: %w", err)
	}
	return nil
}

func (r *LotRepo) scanOne(row pgx.Row, op string) (*entity.Lot, error) {
	var l entity.Lot
	err := row.Scan(&l.ID, &l.ProductID, &l.LotNumber, &l.ManufacturingDate, &l.ExpirationDate,
		&l.InitialQuantity, &l.CurrentQuantity, &l.Unit, &l.Blocked, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &l, nil
}
