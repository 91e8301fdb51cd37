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

var _ repository.ReturnRepository = (*ReturnRepo)(nil)

// ReturnRepo implementación del puerto de devoluciones sobre PostgreSQL.
type ReturnRepo struct {
	q Querier
}

// NewReturnRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReturnRepository(q Querier) *ReturnRepo {
	return &ReturnRepo{q: q}
}

const returnColumns = `id, customer_id, return_number, return_date, reason, notes, created_at`

// Create persiste cabecera y líneas de una devolución.
func (r *ReturnRepo) Create(ret *entity.Return) error {
	if ret.ID == "" {
		ret.ID = uuid.New().String()
	}
	query := `
		INSERT INTO returns (` + returnColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(context.Background(), query,
		ret.ID, nullIfEmpty(ret.CustomerID), ret.ReturnNumber, ret.ReturnDate,
		ret.Reason, ret.Notes, ret.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert return: %w", err)
	}
	for _, detail := range ret.Details {
		if detail.ID == "" {
			detail.ID = uuid.New().String()
		}
		detail.ReturnID = ret.ID
		_, err := r.q.Exec(context.Background(),
			`INSERT INTO return_details (id, return_id, lot_id, quantity, unit) VALUES ($1, $2, $3, $4, $5)`,
			detail.ID, detail.ReturnID, detail.LotID, detail.Quantity, detail.Unit,
		)
		if err != nil {
			return fmt.Errorf("insert return detail: %w", err)
		}
	}
	return nil
}

// GetByID obtiene una devolución con sus líneas.
func (r *ReturnRepo) GetByID(id string) (*entity.Return, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE id = $1`
	return r.loadOne(r.q.QueryRow(context.Background(), query, id), "get return")
}

// GetByNumber obtiene una devolución por su número (DEV-YYYY-NNN).
func (r *ReturnRepo) GetByNumber(returnNumber string) (*entity.Return, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE return_number = $1`
	return r.loadOne(r.q.QueryRow(context.Background(), query, returnNumber), "get return by number")
}

// List lista devoluciones con filtros opcionales, de la más reciente a la más antigua.
func (r *ReturnRepo) List(filter repository.ShipmentFilter) ([]*entity.Return, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE 1=1`
	var args []any
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		query += fmt.Sprintf(" AND return_date >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		query += fmt.Sprintf(" AND return_date <= $%d", len(args))
	}
	query += " ORDER BY return_date DESC, created_at DESC"

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list returns: %w", err)
	}
	defer rows.Close()
	var list []*entity.Return
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, ret)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, ret := range list {
		if err := r.loadDetails(ret); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// ListDetailsByLot devuelve las líneas de devolución donde aparece un lote.
func (r *ReturnRepo) ListDetailsByLot(lotID string) ([]*entity.ReturnDetail, error) {
	rows, err := r.q.Query(context.Background(),
		`SELECT id, return_id, lot_id, quantity, unit FROM return_details WHERE lot_id = $1`, lotID)
	if err != nil {
		return nil, fmt.Errorf("list return details by lot: %w", err)
	}
	defer rows.Close()
	return scanReturnDetails(rows)
}

func (r *ReturnRepo) loadOne(row pgx.Row, op string) (*entity.Return, error) {
	ret, err := scanReturn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.loadDetails(ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *ReturnRepo) loadDetails(ret *entity.Return) error {
	rows, err := r.q.Query(context.Background(),
		`SELECT id, return_id, lot_id, quantity, unit FROM return_details WHERE return_id = $1 ORDER BY id`,
		ret.ID)
	if err != nil {
		return fmt.Errorf("list return details: %w", err)
	}
	defer rows.Close()
	ret.Details, err = scanReturnDetails(rows)
	return err
}

func scanReturn(row pgx.Row) (*entity.Return, error) {
	var ret entity.Return
	var customerID *string
	if err := row.Scan(&ret.ID, &customerID, &ret.ReturnNumber, &ret.ReturnDate,
		&ret.Reason, &ret.Notes, &ret.CreatedAt); err != nil {
		return nil, err
	}
	ret.CustomerID = deref(customerID)
	return &ret, nil
}

func scanReturnDetails(rows pgx.Rows) ([]*entity.ReturnDetail, error) {
	var list []*entity.ReturnDetail
	for rows.Next() {
		var d entity.ReturnDetail
		if err := rows.Scan(&d.ID, &d.ReturnID, &d.LotID, &d.Quantity, &d.Unit); err != nil {
			return nil, fmt.Errorf("scan return detail: %w", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}
