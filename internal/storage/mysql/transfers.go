package mysql

import (
	"context"
	"fmt"
	"time"

	"mes-staging/internal/storage"
	"mes-staging/internal/warehouse"
)

const recentTransfersStmt = `
	SELECT m.id, m.kind, COALESCE(m.order_id, ''), l.item_id, l.qty, l.uom, COALESCE(l.batch_id, ''),
		COALESCE(NULLIF(l.source_warehouse, ''), m.source_warehouse, '') AS source,
		COALESCE(NULLIF(l.dest_warehouse, ''), m.dest_warehouse, '') AS dest,
		m.posted_at
	FROM mes_movements m
	JOIN mes_movement_lines l ON l.movement_id = m.id
	WHERE m.docstatus = 1 AND m.kind IN (%s) AND m.posted_at >= ?
	ORDER BY m.posted_at DESC, m.id, l.idx
`

// RecentTransfers returns committed lines of kinds posted at or after since,
// newest first. Only lines landing in one of dests are kept; no dests keeps
// everything. At most limit transactions are returned, limit <= 0 means all.
func (s *Storage) RecentTransfers(ctx context.Context, since time.Time, kinds []storage.TransactionKind, dests []string, limit int) ([]storage.MovementRecord, error) {
	const op = "storage.mysql.RecentTransfers"

	if len(kinds) == 0 {
		return nil, nil
	}

	args := kindArgs(kinds)
	args = append(args, since)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(recentTransfersStmt, placeholders(len(kinds))), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query transfers: %w: %w", op, storage.ErrLedger, err)
	}
	defer rows.Close()

	var (
		records []storage.MovementRecord
		seen    = make(map[string]bool)
	)
	for rows.Next() {
		var (
			rec  storage.MovementRecord
			kind string
		)
		err := rows.Scan(&rec.TransactionID, &kind, &rec.OrderID, &rec.ItemID, &rec.Qty, &rec.UOM, &rec.BatchID,
			&rec.SourceWarehouse, &rec.DestWarehouse, &rec.PostedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: scan transfer: %w: %w", op, storage.ErrLedger, err)
		}
		rec.Kind = storage.TransactionKind(kind)

		if !landsIn(rec.DestWarehouse, dests) {
			continue
		}
		if !seen[rec.TransactionID] {
			if limit > 0 && len(seen) == limit {
				break
			}
			seen[rec.TransactionID] = true
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate transfers: %w: %w", op, storage.ErrLedger, err)
	}

	return records, nil
}

func landsIn(dest string, dests []string) bool {
	if len(dests) == 0 {
		return true
	}
	for _, d := range dests {
		if warehouse.Same(dest, d) {
			return true
		}
	}
	return false
}
