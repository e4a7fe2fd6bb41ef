package closure

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"mes-staging/internal/batch"
	"mes-staging/internal/config"
	"mes-staging/internal/metrics"
	"mes-staging/internal/quantity"
	"mes-staging/internal/service/requirement"
	"mes-staging/internal/storage"
)

type OrderStore interface {
	GetOrders(ctx context.Context, ids []string) ([]storage.Order, error)
	GetItem(ctx context.Context, id string) (*storage.Item, error)
}

type Ledger interface {
	CommitMovements(ctx context.Context, movements []storage.Movement) ([]string, error)
	BatchCodesWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

type Annotator interface {
	AnnotateOrder(ctx context.Context, orderID string, note storage.OrderNote) error
}

type Request struct {
	OrderIDs  []string           `json:"order_ids"`
	Good      float64            `json:"good"`
	Reject    float64            `json:"reject"`
	Packaging map[string]float64 `json:"packaging,omitempty"`
	// Batch overrides the generated finished-goods batch code.
	Batch string `json:"batch,omitempty"`
}

type Result struct {
	Shares         map[string]Share   `json:"shares"`
	Batch          string             `json:"batch"`
	Movements      []storage.Movement `json:"movements"`
	TransactionIDs []string           `json:"transaction_ids"`
}

type Options struct {
	DefaultScrap string
	Precision    quantity.Precision
}

type Service struct {
	log       *slog.Logger
	orders    OrderStore
	ledger    Ledger
	annotator Annotator
	lines     requirement.WarehouseResolver
	opts      Options
	now       func() time.Time
}

func NewService(log *slog.Logger, orders OrderStore, ledger Ledger, annotator Annotator, lines requirement.WarehouseResolver, opts Options) *Service {
	opts.Precision = opts.Precision.Normalized()

	return &Service{
		log:       log,
		orders:    orders,
		ledger:    ledger,
		annotator: annotator,
		lines:     lines,
		opts:      opts,
		now:       time.Now,
	}
}

// Close splits the aggregate result across the orders and records, per order,
// the finished-goods receipt, the scrap receipt and the packaging consumption
// in one ledger transaction.
func (s *Service) Close(ctx context.Context, req Request) (res Result, err error) {
	const op = "closure.Close"

	start := time.Now()
	defer func() {
		metrics.ObserveClosure(metrics.Result(err), time.Since(start))
	}()

	orders, err := s.loadOrders(ctx, req.OrderIDs)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	qtys := make([]OrderQty, len(orders))
	for i, o := range orders {
		qtys[i] = OrderQty{OrderID: o.ID, PlannedQty: o.PlannedQty}
	}

	shares, err := SplitClosure(qtys, req.Good, req.Reject, req.Packaging)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	code := strings.ToUpper(strings.TrimSpace(req.Batch))
	if code == "" {
		code, err = batch.Next(ctx, s.ledger, s.now())
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
	} else if !batch.Validate(code) {
		return Result{}, fmt.Errorf("%s: batch code %q: %w", op, code, storage.ErrInvalidInput)
	}

	uoms, err := s.packagingUOMs(ctx, req.Packaging)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	var movements []storage.Movement
	for _, o := range orders {
		mv, err := s.orderMovements(o, shares[o.ID], code, uoms)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		movements = append(movements, mv...)
	}

	ids, err := s.ledger.CommitMovements(ctx, movements)
	metrics.IncLedgerCommit(string(storage.KindManufacture), metrics.Result(err))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	s.annotate(ctx, orders, shares)

	return Result{Shares: shares, Batch: code, Movements: movements, TransactionIDs: ids}, nil
}

func (s *Service) loadOrders(ctx context.Context, ids []string) ([]storage.Order, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no orders: %w", storage.ErrInvalidInput)
	}

	orders, err := s.orders.GetOrders(ctx, ids)
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool, len(orders))
	for _, o := range orders {
		found[o.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, fmt.Errorf("order %s: %w", id, storage.ErrNotFound)
		}
	}

	requirement.SortFIFO(orders)
	return orders, nil
}

func (s *Service) packagingUOMs(ctx context.Context, packaging map[string]float64) (map[string]string, error) {
	uoms := make(map[string]string, len(packaging))
	for itemID := range packaging {
		item, err := s.orders.GetItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		uoms[itemID] = item.UOM
	}
	return uoms, nil
}

func (s *Service) orderMovements(o storage.Order, share Share, code string, uoms map[string]string) ([]storage.Movement, error) {
	p := s.opts.Precision
	var out []storage.Movement

	fg := o.FGWarehouse
	if fg == "" {
		fg, _ = s.lines.ResolveWarehouseForLine(o.Line, config.WarehouseTarget)
	}

	if p.Positive(share.Good) {
		if fg == "" {
			return nil, fmt.Errorf("order %s has no finished goods warehouse: %w", o.ID, storage.ErrNoTargetWarehouse)
		}
		out = append(out, storage.Movement{
			Kind:          storage.KindManufacture,
			DestWarehouse: fg,
			OrderID:       o.ID,
			Lines:         []storage.MovementLine{{ItemID: o.ProductionItem, Qty: share.Good, UOM: o.UOM, BatchID: code}},
		})
	}

	if p.Positive(share.Reject) {
		scrap, ok := s.lines.ResolveWarehouseForLine(o.Line, config.WarehouseScrap)
		if !ok {
			scrap = s.opts.DefaultScrap
		}
		if scrap == "" {
			return nil, fmt.Errorf("order %s has no scrap warehouse: %w", o.ID, storage.ErrNoTargetWarehouse)
		}
		out = append(out, storage.Movement{
			Kind:          storage.KindScrap,
			DestWarehouse: scrap,
			OrderID:       o.ID,
			Lines:         []storage.MovementLine{{ItemID: o.ProductionItem, Qty: share.Reject, UOM: o.UOM}},
		})
	}

	items := make([]string, 0, len(share.Packaging))
	for itemID, qty := range share.Packaging {
		if p.Positive(qty) {
			items = append(items, itemID)
		}
	}
	if len(items) > 0 {
		source, err := requirement.TargetWarehouse(s.lines, o)
		if err != nil {
			return nil, err
		}
		sort.Strings(items)

		lines := make([]storage.MovementLine, len(items))
		for i, itemID := range items {
			lines[i] = storage.MovementLine{ItemID: itemID, Qty: share.Packaging[itemID], UOM: uoms[itemID]}
		}
		out = append(out, storage.Movement{
			Kind:            storage.KindConsumption,
			SourceWarehouse: source,
			OrderID:         o.ID,
			Lines:           lines,
		})
	}

	return out, nil
}

func (s *Service) annotate(ctx context.Context, orders []storage.Order, shares map[string]Share) {
	const op = "closure.annotate"

	if s.annotator == nil {
		return
	}

	for _, o := range orders {
		share := shares[o.ID]
		note := storage.OrderNote{
			Remark:    fmt.Sprintf("closed: good %s, reject %s", formatQty(share.Good), formatQty(share.Reject)),
			RejectQty: share.Reject,
		}
		if err := s.annotator.AnnotateOrder(ctx, o.ID, note); err != nil {
			s.log.Warn("failed to annotate order",
				slog.String("op", op),
				slog.String("order_id", o.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func formatQty(v float64) string {
	return fmt.Sprintf("%g", v)
}
