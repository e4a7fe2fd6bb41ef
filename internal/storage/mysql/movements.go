package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mes-staging/internal/storage"
)

// CommitMovements records all movements in one transaction and returns their
// ids in input order. Nothing is written if any insert fails.
func (s *Storage) CommitMovements(ctx context.Context, movements []storage.Movement) ([]string, error) {
	const op = "storage.mysql.CommitMovements"

	stmtHeader := `INSERT INTO mes_movements (id, kind, order_id, source_warehouse, dest_warehouse, remarks, docstatus, posted_at) VALUES (?, ?, ?, ?, ?, ?, 1, ?)`
	stmtLine := `INSERT INTO mes_movement_lines (movement_id, idx, item_id, qty, uom, batch_id, source_warehouse, dest_warehouse) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if len(movements) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin: %w: %w", op, storage.ErrLedger, err)
	}
	defer tx.Rollback()

	insertLine, err := tx.PrepareContext(ctx, stmtLine)
	if err != nil {
		return nil, fmt.Errorf("%s: prepare lines: %w: %w", op, storage.ErrLedger, err)
	}
	defer insertLine.Close()

	postedAt := time.Now().UTC()
	ids := make([]string, 0, len(movements))

	for _, mv := range movements {
		id := uuid.NewString()

		_, err := tx.ExecContext(ctx, stmtHeader, id, string(mv.Kind), mv.OrderID,
			nullString(mv.SourceWarehouse), nullString(mv.DestWarehouse), mv.Remarks, postedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: insert %s for order %s: %w: %w", op, mv.Kind, mv.OrderID, storage.ErrLedger, err)
		}

		for i, line := range mv.Lines {
			_, err := insertLine.ExecContext(ctx, id, i+1, line.ItemID, line.Qty, line.UOM,
				nullString(line.BatchID), nullString(mv.SourceWarehouse), nullString(mv.DestWarehouse))
			if err != nil {
				return nil, fmt.Errorf("%s: insert line %s: %w: %w", op, line.ItemID, storage.ErrLedger, err)
			}
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w: %w", op, storage.ErrLedger, err)
	}

	return ids, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
