package mysql

import (
	"context"
	"fmt"

	"mes-staging/internal/storage"
	"mes-staging/internal/warehouse"
)

// Only submitted documents (docstatus = 1) count. The destination is the line
// level warehouse when set, the document level one otherwise.
const movedByDestStmt = `
	SELECT l.item_id, COALESCE(NULLIF(l.dest_warehouse, ''), m.dest_warehouse, '') AS dest, SUM(l.qty)
	FROM mes_movement_lines l
	JOIN mes_movements m ON m.id = l.movement_id
	WHERE m.docstatus = 1 AND m.order_id = ? AND m.kind IN (%s)%s
	GROUP BY l.item_id, dest
`

func kindArgs(kinds []storage.TransactionKind) []any {
	args := make([]any, len(kinds))
	for i, k := range kinds {
		args[i] = string(k)
	}
	return args
}

// movedByDest sums committed quantities per item into warehouseName.
// An empty warehouseName matches every destination.
func (s *Storage) movedByDest(ctx context.Context, orderID, itemID, warehouseName string, kinds []storage.TransactionKind) (map[string]float64, error) {
	args := []any{orderID}
	args = append(args, kindArgs(kinds)...)

	itemFilter := ""
	if itemID != "" {
		itemFilter = " AND l.item_id = ?"
		args = append(args, itemID)
	}

	stmt := fmt.Sprintf(movedByDestStmt, placeholders(len(kinds)), itemFilter)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	moved := make(map[string]float64)
	for rows.Next() {
		var (
			item string
			dest string
			qty  float64
		)
		if err := rows.Scan(&item, &dest, &qty); err != nil {
			return nil, err
		}
		if warehouseName != "" && !warehouse.Same(dest, warehouseName) {
			continue
		}
		moved[item] += qty
	}

	return moved, rows.Err()
}

// SumMovedQuantity returns how much of itemID has been committed into
// warehouseName for the order under any of kinds. Zero when nothing matches.
func (s *Storage) SumMovedQuantity(ctx context.Context, orderID, itemID, warehouseName string, kinds []storage.TransactionKind) (float64, error) {
	const op = "storage.mysql.SumMovedQuantity"

	if len(kinds) == 0 {
		return 0, nil
	}

	moved, err := s.movedByDest(ctx, orderID, itemID, warehouseName, kinds)
	if err != nil {
		return 0, fmt.Errorf("%s: order %s item %s: %w: %w", op, orderID, itemID, storage.ErrLedger, err)
	}

	return moved[itemID], nil
}

// MovedByItem is SumMovedQuantity for every item of the order in one query.
func (s *Storage) MovedByItem(ctx context.Context, orderID, warehouseName string, kinds []storage.TransactionKind) (map[string]float64, error) {
	const op = "storage.mysql.MovedByItem"

	if len(kinds) == 0 {
		return map[string]float64{}, nil
	}

	moved, err := s.movedByDest(ctx, orderID, "", warehouseName, kinds)
	if err != nil {
		return nil, fmt.Errorf("%s: order %s: %w: %w", op, orderID, storage.ErrLedger, err)
	}

	return moved, nil
}

// HasCommittedMovement reports whether any committed movement of kinds exists for the order.
func (s *Storage) HasCommittedMovement(ctx context.Context, orderID string, kinds []storage.TransactionKind) (bool, error) {
	const op = "storage.mysql.HasCommittedMovement"

	if len(kinds) == 0 {
		return false, nil
	}

	args := []any{orderID}
	args = append(args, kindArgs(kinds)...)

	stmt := `SELECT EXISTS(SELECT 1 FROM mes_movements WHERE docstatus = 1 AND order_id = ? AND kind IN (` + placeholders(len(kinds)) + `))`

	var exists bool
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: order %s: %w: %w", op, orderID, storage.ErrLedger, err)
	}

	return exists, nil
}

// BatchCodesWithPrefix lists distinct batch ids already used that start with prefix.
func (s *Storage) BatchCodesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	const op = "storage.mysql.BatchCodesWithPrefix"

	stmt := `SELECT DISTINCT batch_id FROM mes_movement_lines WHERE batch_id LIKE CONCAT(?, '%')`

	rows, err := s.db.QueryContext(ctx, stmt, prefix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, storage.ErrLedger, err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		codes = append(codes, code)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}

	return codes, nil
}
