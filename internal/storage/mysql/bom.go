package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"mes-staging/internal/storage"
)

// GetBOMLines returns the direct lines of one bill. Sub-assembly lines carry
// the child bill id; explosion happens in the resolver.
func (s *Storage) GetBOMLines(ctx context.Context, billID string) ([]storage.BOMLine, error) {
	const op = "storage.mysql.GetBOMLines"

	stmt := `
		SELECT l.bill_id, l.item_id, l.uom, l.qty_per_unit, l.child_bill_id, l.position
		FROM mes_bom_lines l
		JOIN mes_boms b ON b.id = l.bill_id
		WHERE l.bill_id = ? AND b.is_active = 1
		ORDER BY l.position, l.item_id
	`

	rows, err := s.db.QueryContext(ctx, stmt, billID)
	if err != nil {
		return nil, fmt.Errorf("%s: query bill %s: %w", op, billID, err)
	}
	defer rows.Close()

	var lines []storage.BOMLine
	for rows.Next() {
		var (
			line  storage.BOMLine
			child sql.NullString
		)
		if err := rows.Scan(&line.BillID, &line.ItemID, &line.UOM, &line.QtyPerUnit, &child, &line.Position); err != nil {
			return nil, fmt.Errorf("%s: scan line: %w", op, err)
		}
		line.ChildBillID = child.String
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate lines: %w", op, err)
	}

	return lines, nil
}
