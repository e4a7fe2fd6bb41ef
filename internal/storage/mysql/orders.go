package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mes-staging/internal/storage"
	"mes-staging/internal/warehouse"
)

const orderColumns = `id, bill_id, production_item, planned_qty, uom, line, wip_warehouse, fg_warehouse, planned_start, created_at, status`

// Orders still expecting material.
var openStatuses = []any{"not-started", "in-process"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (storage.Order, error) {
	var (
		o            storage.Order
		billID       sql.NullString
		uom          sql.NullString
		line         sql.NullString
		wip          sql.NullString
		fg           sql.NullString
		plannedStart sql.NullTime
	)

	err := row.Scan(&o.ID, &billID, &o.ProductionItem, &o.PlannedQty, &uom, &line, &wip, &fg, &plannedStart, &o.CreatedAt, &o.Status)
	if err != nil {
		return storage.Order{}, err
	}

	o.BillID = billID.String
	o.UOM = uom.String
	o.Line = line.String
	o.WIPWarehouse = wip.String
	o.FGWarehouse = fg.String
	if plannedStart.Valid {
		t := plannedStart.Time
		o.PlannedStart = &t
	}

	return o, nil
}

func (s *Storage) GetOrder(ctx context.Context, id string) (*storage.Order, error) {
	const op = "storage.mysql.GetOrder"

	stmt := `SELECT ` + orderColumns + ` FROM mes_orders WHERE id = ?`

	order, err := scanOrder(s.db.QueryRowContext(ctx, stmt, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: order %s: %w", op, id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: query order: %w", op, err)
	}

	return &order, nil
}

// GetOrders returns the orders that exist among ids. Missing ids are not an error here.
func (s *Storage) GetOrders(ctx context.Context, ids []string) ([]storage.Order, error) {
	const op = "storage.mysql.GetOrders"

	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	stmt := `SELECT ` + orderColumns + ` FROM mes_orders WHERE id IN (` + placeholders(len(ids)) + `)`

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query orders: %w", op, err)
	}
	defer rows.Close()

	var orders []storage.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan order: %w", op, err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate orders: %w", op, err)
	}

	return orders, nil
}

// GetOpenOrdersForLine lists orders on a line that have not finished yet.
// The database narrows by the generated line_key column; names are compared
// again in Go since MySQL and Go disagree on some exotic whitespace.
func (s *Storage) GetOpenOrdersForLine(ctx context.Context, line string) ([]storage.Order, error) {
	const op = "storage.mysql.GetOpenOrdersForLine"

	stmt := `SELECT ` + orderColumns + ` FROM mes_orders WHERE line_key = ? AND status IN (?, ?) ORDER BY COALESCE(planned_start, created_at), id`

	args := append([]any{warehouse.Normalize(line)}, openStatuses...)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query open orders: %w", op, err)
	}
	defer rows.Close()

	var orders []storage.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan order: %w", op, err)
		}
		if warehouse.Same(order.Line, line) {
			orders = append(orders, order)
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate orders: %w", op, err)
	}

	return orders, nil
}

func (s *Storage) GetItem(ctx context.Context, id string) (*storage.Item, error) {
	const op = "storage.mysql.GetItem"

	stmt := `SELECT id, stock_uom, item_group, has_batch FROM mes_items WHERE id = ?`

	var (
		item  storage.Item
		group sql.NullString
	)
	err := s.db.QueryRowContext(ctx, stmt, id).Scan(&item.ID, &item.UOM, &group, &item.HasBatch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: item %s: %w", op, id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: query item: %w", op, err)
	}
	item.Group = group.String

	return &item, nil
}

// ItemByBarcode resolves a GTIN printed on supplier labels.
func (s *Storage) ItemByBarcode(ctx context.Context, barcode string) (*storage.Item, error) {
	const op = "storage.mysql.ItemByBarcode"

	stmt := `SELECT i.id, i.stock_uom, i.item_group, i.has_batch
		FROM mes_item_barcodes b
		JOIN mes_items i ON i.id = b.item_id
		WHERE b.barcode = ?
		LIMIT 1`

	var (
		item  storage.Item
		group sql.NullString
	)
	err := s.db.QueryRowContext(ctx, stmt, barcode).Scan(&item.ID, &item.UOM, &group, &item.HasBatch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: barcode %s: %w", op, barcode, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: query barcode: %w", op, err)
	}
	item.Group = group.String

	return &item, nil
}

// AnnotateOrder appends a remark and adds to the reject counter.
func (s *Storage) AnnotateOrder(ctx context.Context, orderID string, note storage.OrderNote) error {
	const op = "storage.mysql.AnnotateOrder"

	stmt := `UPDATE mes_orders SET remarks = CONCAT_WS('\n', NULLIF(remarks, ''), NULLIF(?, '')), reject_qty = reject_qty + ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, stmt, note.Remark, note.RejectQty, orderID)
	if err != nil {
		return fmt.Errorf("%s: update order %s: %w", op, orderID, err)
	}

	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("%s: order %s: %w", op, orderID, storage.ErrNotFound)
	}

	return nil
}
