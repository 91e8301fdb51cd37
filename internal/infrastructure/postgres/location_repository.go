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

var _ repository.LocationRepository = (*LocationRepo)(nil)
var _ repository.LotLocationRepository = (*LotLocationRepo)(nil)

// LocationRepo implementación del puerto LocationRepository sobre PostgreSQL.
type LocationRepo struct {
	q Querier
}

// NewLocationRepository construye el adaptador de ubicaciones. Pasar pool o tx (Querier).
func NewLocationRepository(q Querier) *LocationRepo {
	return &LocationRepo{q: q}
}

// Create persiste una nueva ubicación.
func (r *LocationRepo) Create(location *entity.Location) error {
	if location.ID == "" {
		location.ID = uuid.New().String()
	}
	query := `
		INSERT INTO locations (id, code, name, is_available, active)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(context.Background(), query,
		location.ID, location.Code, location.Name, location.IsAvailable, location.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

// GetByID obtiene una ubicación por ID.
func (r *LocationRepo) GetByID(id string) (*entity.Location, error) {
	return r.scanOne(r.q.QueryRow(context.Background(),
		`SELECT id, code, name, is_available, active FROM locations WHERE id = $1`, id), "get location")
}

// GetByCode obtiene una ubicación por su código (REC, LIB, FAB, DEV...).
func (r *LocationRepo) GetByCode(code string) (*entity.Location, error) {
	return r.scanOne(r.q.QueryRow(context.Background(),
		`SELECT id, code, name, is_available, active FROM locations WHERE code = $1`, code), "get location by code")
}

// List lista ubicaciones, opcionalmente solo las activas.
func (r *LocationRepo) List(activeOnly bool) ([]*entity.Location, error) {
	query := `SELECT id, code, name, is_available, active FROM locations`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY code`
	rows, err := r.q.Query(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	var list []*entity.Location
	for rows.Next() {
		var l entity.Location
		if err := rows.Scan(&l.ID, &l.Code, &l.Name, &l.IsAvailable, &l.Active); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

func (r *LocationRepo) scanOne(row pgx.Row, op string) (*entity.Location, error) {
	var l entity.Location
	err := row.Scan(&l.ID, &l.Code, &l.Name, &l.IsAvailable, &l.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &l, nil
}

// LotLocationRepo implementación del desglose de stock por ubicación.
type LotLocationRepo struct {
	q Querier
}

// NewLotLocationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLotLocationRepository(q Querier) *LotLocationRepo {
	return &LotLocationRepo{q: q}
}

// Get obtiene la cantidad de un lote en una ubicación. Sin fila devuelve nil.
func (r *LotLocationRepo) Get(lotID, locationID string) (*entity.LotLocation, error) {
	return r.scanOne(r.q.QueryRow(context.Background(),
		`SELECT id, lot_id, location_id, quantity FROM lot_locations WHERE lot_id = $1 AND location_id = $2`,
		lotID, locationID), "get lot location")
}

// GetForUpdate obtiene la fila y la bloquea (SELECT FOR UPDATE).
func (r *LotLocationRepo) GetForUpdate(lotID, locationID string) (*entity.LotLocation, error) {
	return r.scanOne(r.q.QueryRow(context.Background(),
		`SELECT id, lot_id, location_id, quantity FROM lot_locations WHERE lot_id = $1 AND location_id = $2 FOR UPDATE`,
		lotID, locationID), "get lot location for update")
}

// Upsert inserta o actualiza la cantidad de un lote en una ubicación.
func (r *LotLocationRepo) Upsert(ll *entity.LotLocation) error {
	if ll.ID == "" {
		ll.ID = uuid.New().String()
	}
	query := `
		INSERT INTO lot_locations (id, lot_id, location_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lot_id, location_id)
		DO UPDATE SET quantity = EXCLUDED.quantity`
	_, err := r.q.Exec(context.Background(), query, ll.ID, ll.LotID, ll.LocationID, ll.Quantity)
	if err != nil {
		return fmt.Errorf("upsert lot location: %w", err)
	}
	return nil
}

// ListByLot devuelve el desglose completo de un lote.
func (r *LotLocationRepo) ListByLot(lotID string) ([]*entity.LotLocation, error) {
	rows, err := r.q.Query(context.Background(),
		`SELECT id, lot_id, location_id, quantity FROM lot_locations WHERE lot_id = $1`, lotID)
	if err != nil {
		return nil, fmt.Errorf("list lot locations: %w", err)
	}
	defer rows.Close()
	var list []*entity.LotLocation
	for rows.Next() {
		var ll entity.LotLocation
		if err := rows.Scan(&ll.ID, &ll.LotID, &ll.LocationID, &ll.Quantity); err != nil {
			return nil, fmt.Errorf("scan lot location: %w", err)
		}
		list = append(list, &ll)
	}
	return list, rows.Err()
}

// DeleteByLot elimina el desglose de un lote (solo borrado de lotes recién creados).
func (r *LotLocationRepo) DeleteByLot(lotID string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM lot_locations WHERE lot_id = $1`, lotID)
	if err != nil {
		return fmt.Errorf("delete lot locations: %w", err)
	}
	return nil
}

func (r *LotLocationRepo) scanOne(row pgx.Row, op string) (*entity.LotLocation, error) {
	var ll entity.LotLocation
	err := row.Scan(&ll.ID, &ll.LotID, &ll.LocationID, &ll.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ll, nil
}
