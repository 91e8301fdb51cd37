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

var _ repository.ShipmentRepository = (*ShipmentRepo)(nil)

// ShipmentRepo implementación del puerto de albaranes sobre PostgreSQL.
type ShipmentRepo struct {
	q Querier
}

// NewShipmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewShipmentRepository(q Querier) *ShipmentRepo {
	return &ShipmentRepo{q: q}
}

const shipmentColumns = `id, customer_id, shipment_number, shipment_date, notes, created_at`

// Create persiste cabecera y líneas de un albarán.
func (r *ShipmentRepo) Create(shipment *entity.Shipment) error {
	if shipment.ID == "" {
		shipment.ID = uuid.New().String()
	}
	query := `
		INSERT INTO shipments (` + shipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(context.Background(), query,
		shipment.ID, nullIfEmpty(shipment.CustomerID), shipment.ShipmentNumber,
		shipment.ShipmentDate, shipment.Notes, shipment.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert shipment: %w", err)
	}
	for _, detail := range shipment.Details {
		if detail.ID == "" {
			detail.ID = uuid.New().String()
		}
		detail.ShipmentID = shipment.ID
		_, err := r.q.Exec(context.Background(),
			`INSERT INTO shipment_details (id, shipment_id, lot_id, quantity, unit) VALUES ($1, $2, $3, $4, $5)`,
			detail.ID, detail.ShipmentID, detail.LotID, detail.Quantity, detail.Unit,
		)
		if err != nil {
			return fmt.Errorf("insert shipment detail: %w", err)
		}
	}
	return nil
}

// GetByID obtiene un albarán con sus líneas.
func (r *ShipmentRepo) GetByID(id string) (*entity.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`
	return r.loadOne(r.q.QueryRow(context.Background(), query, id), "get shipment")
}

// GetByNumber obtiene un albarán por su número.
func (r *ShipmentRepo) GetByNumber(shipmentNumber string) (*entity.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE shipment_number = $1`
	return r.loadOne(r.q.QueryRow(context.Background(), query, shipmentNumber), "get shipment by number")
}

// List lista albaranes con filtros opcionales, del más reciente al más antiguo.
func (r *ShipmentRepo) List(filter repository.ShipmentFilter) ([]*entity.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE 1=1`
	var args []any
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		query += fmt.Sprintf(" AND shipment_date >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		query += fmt.Sprintf(" AND shipment_date <= $%d", len(args))
	}
	query += " ORDER BY shipment_date DESC, created_at DESC"

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()
	var list []*entity.Shipment
	for rows.Next() {
		shipment, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, shipment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, shipment := range list {
		if err := r.loadDetails(shipment); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// ListDetailsByLot devuelve las líneas de albarán donde aparece un lote.
func (r *ShipmentRepo) ListDetailsByLot(lotID string) ([]*entity.ShipmentDetail, error) {
	rows, err := r.q.Query(context.Background(),
		`SELECT id, shipment_id, lot_id, quantity, unit FROM shipment_details WHERE lot_id = $1`, lotID)
	if err != nil {
		return nil, fmt.Errorf("list shipment details by lot: %w", err)
	}
	defer rows.Close()
	return scanShipmentDetails(rows)
}

func (r *ShipmentRepo) loadOne(row pgx.Row, op string) (*entity.Shipment, error) {
	shipment, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.loadDetails(shipment); err != nil {
		return nil, err
	}
	return shipment, nil
}

func (r *ShipmentRepo) loadDetails(shipment *entity.Shipment) error {
	rows, err := r.q.Query(context.Background(),
		`SELECT id, shipment_id, lot_id, quantity, unit FROM shipment_details WHERE shipment_id = $1 ORDER BY id`,
		shipment.ID)
	if err != nil {
		return fmt.Errorf("list shipment details: %w", err)
	}
	defer rows.Close()
	shipment.Details, err = scanShipmentDetails(rows)
	return err
}

func scanShipment(row pgx.Row) (*entity.Shipment, error) {
	var s entity.Shipment
	var customerID *string
	if err := row.Scan(&s.ID, &customerID, &s.ShipmentNumber, &s.ShipmentDate, &s.Notes, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.CustomerID = deref(customerID)
	return &s, nil
}

func scanShipmentDetails(rows pgx.Rows) ([]*entity.ShipmentDetail, error) {
	var list []*entity.ShipmentDetail
	for rows.Next() {
		var d entity.ShipmentDetail
		if err := rows.Scan(&d.ID, &d.ShipmentID, &d.LotID, &d.Quantity, &d.Unit); err != nil {
			return nil, fmt.Errorf("scan shipment detail: %w", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}
