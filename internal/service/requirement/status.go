package requirement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"mes-staging/internal/metrics"
	"mes-staging/internal/quantity"
	"mes-staging/internal/storage"
)

type StageStatus string

const (
	NotStaged StageStatus = "Not Staged"
	Partial   StageStatus = "Partial"
	Staged    StageStatus = "Staged"
)

type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*storage.Order, error)
	GetOpenOrdersForLine(ctx context.Context, line string) ([]storage.Order, error)
}

// Classify compares required against moved. Nothing moved is NotStaged, any
// item short of its requirement is Partial, otherwise Staged.
func Classify(required storage.RequirementMap, moved map[string]float64, precision quantity.Precision) StageStatus {
	moving := false
	for _, qty := range moved {
		if precision.Positive(qty) {
			moving = true
			break
		}
	}
	if !moving {
		return NotStaged
	}

	for itemID, req := range required {
		if !precision.Covered(moved[itemID], req.Qty) {
			return Partial
		}
	}

	return Staged
}

type Classifier struct {
	log       *slog.Logger
	resolver  *Resolver
	ledger    Ledger
	orders    OrderStore
	lines     WarehouseResolver
	kinds     []storage.TransactionKind
	precision quantity.Precision
}

func NewClassifier(log *slog.Logger, resolver *Resolver, ledger Ledger, orders OrderStore, lines WarehouseResolver, kinds []storage.TransactionKind, precision quantity.Precision) *Classifier {
	return &Classifier{
		log:       log,
		resolver:  resolver,
		ledger:    ledger,
		orders:    orders,
		lines:     lines,
		kinds:     kinds,
		precision: precision.Normalized(),
	}
}

// Status classifies how much of the order's raw material has reached its
// staging target. A failing bill explosion degrades to an existence check.
func (c *Classifier) Status(ctx context.Context, order storage.Order) (StageStatus, error) {
	const op = "requirement.Status"

	target, err := TargetWarehouse(c.lines, order)
	if err != nil {
		if errors.Is(err, storage.ErrNoTargetWarehouse) {
			return c.count(NotStaged), nil
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	required, err := c.resolver.Resolve(ctx, order, LeafOptions)
	if err != nil {
		c.log.Warn("requirement explosion failed, falling back to existence check",
			slog.String("op", op),
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		metrics.IncStageStatusFallback()

		exists, ferr := c.ledger.HasCommittedMovement(ctx, order.ID, c.kinds)
		if ferr != nil {
			return "", fmt.Errorf("%s: fallback for order %s: %w", op, order.ID, ferr)
		}
		if exists {
			return c.count(Partial), nil
		}
		return c.count(NotStaged), nil
	}

	moved, err := c.ledger.MovedByItem(ctx, order.ID, target, c.kinds)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return c.count(Classify(required, moved, c.precision)), nil
}

// StatusByID loads the order first.
func (c *Classifier) StatusByID(ctx context.Context, orderID string) (StageStatus, error) {
	order, err := c.orders.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	return c.Status(ctx, *order)
}

type QueueEntry struct {
	Order  storage.Order `json:"order"`
	Status StageStatus   `json:"status"`
}

// Queue returns a line's open orders in FIFO order with their stage status.
func (c *Classifier) Queue(ctx context.Context, line string) ([]QueueEntry, error) {
	const op = "requirement.Queue"

	orders, err := c.orders.GetOpenOrdersForLine(ctx, line)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	SortFIFO(orders)

	entries := make([]QueueEntry, len(orders))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(ledgerReadLimit)

	for i, order := range orders {
		g.Go(func() error {
			status, err := c.Status(gCtx, order)
			if err != nil {
				return err
			}
			entries[i] = QueueEntry{Order: order, Status: status}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return entries, nil
}

func (c *Classifier) count(status StageStatus) StageStatus {
	metrics.IncStageStatus(string(status))
	return status
}

// SortFIFO orders by planned start (creation time when unset), then id.
func SortFIFO(orders []storage.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Before(orders[j])
	})
}
