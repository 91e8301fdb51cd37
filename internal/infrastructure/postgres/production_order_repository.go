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

var _ repository.ProductionOrderRepository = (*ProductionOrderRepo)(nil)

// ProductionOrderRepo implementación del puerto de órdenes de producción sobre
// PostgreSQL. Las lecturas por ID cargan cabecera, líneas y materiales.
type ProductionOrderRepo struct {
	q Querier
}

// NewProductionOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductionOrderRepository(q Querier) *ProductionOrderRepo {
	return &ProductionOrderRepo{q: q}
}

const orderColumns = `id, order_number, base_product_name, base_lot_number, production_date, expiration_date, status, notes, created_at, closed_at`
const lineColumns = `id, order_id, product_id, target_quantity, produced_quantity, unit, lot_id, created_at`
const materialColumns = `id, order_id, lot_id, quantity_consumed, unit, original_quantity, original_unit, line_id`

// Create persiste la cabecera de una orden.
func (r *ProductionOrderRepo) Create(order *entity.ProductionOrder) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	query := `
		INSERT INTO production_orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(context.Background(), query,
		order.ID, order.OrderNumber, order.BaseProductName, order.BaseLotNumber,
		order.ProductionDate, order.ExpirationDate, order.Status, order.Notes,
		order.CreatedAt, order.ClosedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert production order: %w", err)
	}
	return nil
}

// GetByID obtiene una orden con líneas y materiales.
func (r *ProductionOrderRepo) GetByID(id string) (*entity.ProductionOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM production_orders WHERE id = $1`
	return r.loadOne(r.q.QueryRow(context.Background(), query, id), "get production order")
}

// GetForUpdate obtiene una orden bloqueando su fila (SELECT FOR UPDATE), con
// líneas y materiales. Serializa añadir material, actualizar y cerrar.
func (r *ProductionOrderRepo) GetForUpdate(id string) (*entity.ProductionOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM production_orders WHERE id = $1 FOR UPDATE`
	return r.loadOne(r.q.QueryRow(context.Background(), query, id), "get production order for update")
}

// GetByNumber obtiene una orden por su número (YYYY-NNN).
func (r *ProductionOrderRepo) GetByNumber(orderNumber string) (*entity.ProductionOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM production_orders WHERE order_number = $1`
	return r.loadOne(r.q.QueryRow(context.Background(), query, orderNumber), "get production order by number")
}

// Update persiste la cabecera (notas, fechas, estado, cierre).
func (r *ProductionOrderRepo) Update(order *entity.ProductionOrder) error {
	query := `
		UPDATE production_orders
		SET base_product_name = $2, base_lot_number = $3, production_date = $4,
		    expiration_date = $5, status = $6, notes = $7, closed_at = $8
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		order.ID, order.BaseProductName, order.BaseLotNumber, order.ProductionDate,
		order.ExpirationDate, order.Status, order.Notes, order.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("update production order: %w", err)
	}
	return nil
}

// List lista órdenes completas, opcionalmente filtradas por estado, de la
// más reciente a la más antigua. Carga líneas y materiales de cada una
// porque la trazabilidad recorre los consumos de toda orden listada.
func (r *ProductionOrderRepo) List(statusFilter string) ([]*entity.ProductionOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM production_orders`
	var args []any
	if statusFilter != "" {
		args = append(args, statusFilter)
		query += ` WHERE status = $1`
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list production orders: %w", err)
	}
	defer rows.Close()
	var list []*entity.ProductionOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// La trazabilidad necesita las líneas para enlazar lote y orden.
	for _, order := range list {
		if err := r.loadChildren(order); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// AddLine persiste una línea de producto acabado.
func (r *ProductionOrderRepo) AddLine(line *entity.ProductionOrderLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	query := `
		INSERT INTO production_order_lines (` + lineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(context.Background(), query,
		line.ID, line.OrderID, line.ProductID, line.TargetQuantity, line.ProducedQuantity,
		line.Unit, nullIfEmpty(line.LotID), line.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order line: %w", err)
	}
	return nil
}

// UpdateLine persiste la cantidad producida y el lote resultante de una línea.
func (r *ProductionOrderRepo) UpdateLine(line *entity.ProductionOrderLine) error {
	query := `
		UPDATE production_order_lines
		SET produced_quantity = $2, lot_id = $3
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		line.ID, line.ProducedQuantity, nullIfEmpty(line.LotID),
	)
	if err != nil {
		return fmt.Errorf("update order line: %w", err)
	}
	return nil
}

// FindLineByLotID localiza la línea que produjo un lote. Sin enlace devuelve nil.
func (r *ProductionOrderRepo) FindLineByLotID(lotID string) (*entity.ProductionOrderLine, error) {
	query := `SELECT ` + lineColumns + ` FROM production_order_lines WHERE lot_id = $1`
	rows, err := r.q.Query(context.Background(), query, lotID)
	if err != nil {
		return nil, fmt.Errorf("find line by lot: %w", err)
	}
	defer rows.Close()
	lines, err := scanLines(rows)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}
	return lines[0], nil
}

// AddMaterial persiste un material consumido por la orden.
func (r *ProductionOrderRepo) AddMaterial(material *entity.ProductionOrderMaterial) error {
	if material.ID == "" {
		material.ID = uuid.New().String()
	}
	query := `
		INSERT INTO production_order_materials (` + materialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(context.Background(), query,
		material.ID, material.OrderID, material.LotID, material.QuantityConsumed,
		material.Unit, material.OriginalQuantity, material.OriginalUnit, nullIfEmpty(material.LineID),
	)
	if err != nil {
		return fmt.Errorf("insert order material: %w", err)
	}
	return nil
}

// GetMaterial obtiene un material concreto de una orden.
func (r *ProductionOrderRepo) GetMaterial(orderID, materialID string) (*entity.ProductionOrderMaterial, error) {
	query := `SELECT ` + materialColumns + ` FROM production_order_materials WHERE order_id = $1 AND id = $2`
	rows, err := r.q.Query(context.Background(), query, orderID, materialID)
	if err != nil {
		return nil, fmt.Errorf("get order material: %w", err)
	}
	defer rows.Close()
	materials, err := scanMaterials(rows)
	if err != nil {
		return nil, err
	}
	if len(materials) == 0 {
		return nil, nil
	}
	return materials[0], nil
}

// DeleteMaterial elimina un material de la orden (el ledger compensa aparte).
func (r *ProductionOrderRepo) DeleteMaterial(materialID string) error {
	_, err := r.q.Exec(context.Background(),
		`DELETE FROM production_order_materials WHERE id = $1`, materialID)
	if err != nil {
		return fmt.Errorf("delete order material: %w", err)
	}
	return nil
}

// ListMaterialsByLot devuelve todos los consumos de un lote en cualquier orden.
func (r *ProductionOrderRepo) ListMaterialsByLot(lotID string) ([]*entity.ProductionOrderMaterial, error) {
	query := `SELECT ` + materialColumns + ` FROM production_order_materials WHERE lot_id = $1`
	rows, err := r.q.Query(context.Background(), query, lotID)
	if err != nil {
		return nil, fmt.Errorf("list materials by lot: %w", err)
	}
	defer rows.Close()
	return scanMaterials(rows)
}

func (r *ProductionOrderRepo) loadOne(row pgx.Row, op string) (*entity.ProductionOrder, error) {
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.loadChildren(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *ProductionOrderRepo) loadChildren(order *entity.ProductionOrder) error {
	lineRows, err := r.q.Query(context.Background(),
		`SELECT `+lineColumns+` FROM production_order_lines WHERE order_id = $1 ORDER BY created_at, id`, order.ID)
	if err != nil {
		return fmt.Errorf("list order lines: %w", err)
	}
	defer lineRows.Close()
	order.Lines, err = scanLines(lineRows)
	if err != nil {
		return err
	}

	matRows, err := r.q.Query(context.Background(),
		`SELECT `+materialColumns+` FROM production_order_materials WHERE order_id = $1 ORDER BY id`, order.ID)
	if err != nil {
		return fmt.Errorf("list order materials: %w", err)
	}
	defer matRows.Close()
	order.Materials, err = scanMaterials(matRows)
	return err
}

func scanOrder(row pgx.Row) (*entity.ProductionOrder, error) {
	var o entity.ProductionOrder
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.BaseProductName, &o.BaseLotNumber,
		&o.ProductionDate, &o.ExpirationDate, &o.Status, &o.Notes, &o.CreatedAt, &o.ClosedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func scanLines(rows pgx.Rows) ([]*entity.ProductionOrderLine, error) {
	var list []*entity.ProductionOrderLine
	for rows.Next() {
		var l entity.ProductionOrderLine
		var lotID *string
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.TargetQuantity,
			&l.ProducedQuantity, &l.Unit, &lotID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		l.LotID = deref(lotID)
		list = append(list, &l)
	}
	return list, rows.Err()
}

func scanMaterials(rows pgx.Rows) ([]*entity.ProductionOrderMaterial, error) {
	var list []*entity.ProductionOrderMaterial
	for rows.Next() {
		var m entity.ProductionOrderMaterial
		var lineID *string
		if err := rows.Scan(&m.ID, &m.OrderID, &m.LotID, &m.QuantityConsumed,
			&m.Unit, &m.OriginalQuantity, &m.OriginalUnit, &lineID); err != nil {
			return nil, fmt.Errorf("scan order material: %w", err)
		}
		m.LineID = deref(lineID)
		list = append(list, &m)
	}
	return list, rows.Err()
}
