package requirement

import (
	"fmt"

	"mes-staging/internal/config"
	"mes-staging/internal/storage"
)

type WarehouseResolver interface {
	ResolveWarehouseForLine(line string, kind config.WarehouseKind) (string, bool)
}

// TargetWarehouse is where an order's material is staged: the line's staging
// warehouse, else the order's WIP warehouse.
func TargetWarehouse(lines WarehouseResolver, order storage.Order) (string, error) {
	if lines != nil && order.Line != "" {
		if wh, ok := lines.ResolveWarehouseForLine(order.Line, config.WarehouseStaging); ok {
			return wh, nil
		}
	}
	if order.WIPWarehouse != "" {
		return order.WIPWarehouse, nil
	}
	return "", fmt.Errorf("requirement.TargetWarehouse: order %s line %q: %w", order.ID, order.Line, storage.ErrNoTargetWarehouse)
}
