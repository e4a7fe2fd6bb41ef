package allocate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"mes-staging/internal/metrics"
	"mes-staging/internal/quantity"
	"mes-staging/internal/service/requirement"
	"mes-staging/internal/storage"
)

const remainingReadLimit = 8

type OrderStore interface {
	GetOrders(ctx context.Context, ids []string) ([]storage.Order, error)
	GetOpenOrdersForLine(ctx context.Context, line string) ([]storage.Order, error)
}

type RemainingCalculator interface {
	Remaining(ctx context.Context, order storage.Order, opts requirement.Options) (requirement.Remaining, error)
}

type Ledger interface {
	CommitMovements(ctx context.Context, movements []storage.Movement) ([]string, error)
}

type Annotator interface {
	AnnotateOrder(ctx context.Context, orderID string, note storage.OrderNote) error
}

type Request struct {
	// OrderIDs lists the orders to serve. When empty, every open order on Line is used.
	OrderIDs        []string               `json:"order_ids"`
	Line            string                 `json:"line,omitempty"`
	SourceWarehouse string                 `json:"source_warehouse,omitempty"`
	Remarks         string                 `json:"remarks,omitempty"`
	Pool            []storage.PickPoolLine `json:"pool"`
}

type Result struct {
	Plan           Plan               `json:"plan"`
	Movements      []storage.Movement `json:"movements"`
	TransactionIDs []string           `json:"transaction_ids,omitempty"`
}

type Options struct {
	Kind          storage.TransactionKind
	DefaultSource string
	BatchSplit    string
	Requirement   requirement.Options
	Precision     quantity.Precision
}

type Service struct {
	log       *slog.Logger
	orders    OrderStore
	remaining RemainingCalculator
	ledger    Ledger
	annotator Annotator
	allocator *Allocator
	split     SplitFunc
	opts      Options
}

func NewService(log *slog.Logger, orders OrderStore, remaining RemainingCalculator, ledger Ledger, annotator Annotator, opts Options) *Service {
	opts.Precision = opts.Precision.Normalized()
	if !opts.Kind.Valid() {
		opts.Kind = storage.KindTransferToStaging
	}

	return &Service{
		log:       log,
		orders:    orders,
		remaining: remaining,
		ledger:    ledger,
		annotator: annotator,
		allocator: NewAllocator(opts.Precision),
		split:     SplitterFor(opts.BatchSplit),
		opts:      opts,
	}
}

// Preview computes the plan and the movements it would commit.
func (s *Service) Preview(ctx context.Context, req Request) (Result, error) {
	const op = "allocate.Preview"

	if err := s.validate(&req); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	orders, err := s.loadOrders(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	demands, err := s.demands(ctx, orders)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	plan := s.allocator.Allocate(req.Pool, demands)

	return Result{Plan: plan, Movements: s.movements(req, plan, demands)}, nil
}

// FanOut commits the previewed movements in one ledger transaction, then
// annotates the served orders. Annotation failures are only logged.
func (s *Service) FanOut(ctx context.Context, req Request) (res Result, err error) {
	const op = "allocate.FanOut"

	start := time.Now()
	defer func() {
		metrics.ObserveFanOut(metrics.Result(err), time.Since(start))
	}()

	res, err = s.Preview(ctx, req)
	if err != nil {
		return Result{}, err
	}

	metrics.AddFanOutLeftover(len(res.Plan.Leftover))

	if len(res.Movements) == 0 {
		return res, nil
	}

	ids, err := s.ledger.CommitMovements(ctx, res.Movements)
	metrics.IncLedgerCommit(string(s.opts.Kind), metrics.Result(err))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	res.TransactionIDs = ids

	s.annotate(ctx, res)

	return res, nil
}

func (s *Service) validate(req *Request) error {
	if len(req.Pool) == 0 {
		return fmt.Errorf("empty pick pool: %w", storage.ErrInvalidInput)
	}
	if len(req.OrderIDs) == 0 && req.Line == "" {
		return fmt.Errorf("no orders or line given: %w", storage.ErrInvalidInput)
	}
	if req.SourceWarehouse == "" {
		req.SourceWarehouse = s.opts.DefaultSource
	}
	if req.SourceWarehouse == "" {
		return fmt.Errorf("no source warehouse: %w", storage.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(req.OrderIDs))
	for _, id := range req.OrderIDs {
		if id == "" || seen[id] {
			return fmt.Errorf("order id %q empty or repeated: %w", id, storage.ErrInvalidInput)
		}
		seen[id] = true
	}

	p := s.opts.Precision
	for i, line := range req.Pool {
		if line.ItemID == "" {
			return fmt.Errorf("pool line %d has no item: %w", i, storage.ErrInvalidInput)
		}
		if !p.Positive(line.Qty) {
			return fmt.Errorf("pool line %d item %s qty %v: %w", i, line.ItemID, line.Qty, storage.ErrInvalidInput)
		}
		if len(line.Batches) == 0 {
			continue
		}

		sum := decimal.Zero
		for _, b := range line.Batches {
			if b.Qty > 0 && b.BatchID == "" {
				return fmt.Errorf("pool line %d item %s has a batch without id: %w", i, line.ItemID, storage.ErrInvalidInput)
			}
			if b.Qty > 0 {
				sum = sum.Add(decimal.NewFromFloat(b.Qty))
			}
		}
		if !sum.Round(p.Decimals).Equal(decimal.NewFromFloat(line.Qty).Round(p.Decimals)) {
			return fmt.Errorf("pool line %d item %s batches sum to %s, want %v: %w", i, line.ItemID, sum, line.Qty, storage.ErrInvalidInput)
		}
	}

	return nil
}

func (s *Service) loadOrders(ctx context.Context, req Request) ([]storage.Order, error) {
	if len(req.OrderIDs) == 0 {
		orders, err := s.orders.GetOpenOrdersForLine(ctx, req.Line)
		if err != nil {
			return nil, err
		}
		if len(orders) == 0 {
			return nil, fmt.Errorf("no open orders on line %q: %w", req.Line, storage.ErrNotFound)
		}
		return orders, nil
	}

	orders, err := s.orders.GetOrders(ctx, req.OrderIDs)
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool, len(orders))
	for _, o := range orders {
		found[o.ID] = true
	}
	for _, id := range req.OrderIDs {
		if !found[id] {
			return nil, fmt.Errorf("order %s: %w", id, storage.ErrNotFound)
		}
	}

	return orders, nil
}

// demands snapshots every order's remaining requirement concurrently.
func (s *Service) demands(ctx context.Context, orders []storage.Order) ([]Demand, error) {
	out := make([]Demand, len(orders))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(remainingReadLimit)

	for i, order := range orders {
		g.Go(func() error {
			rem, err := s.remaining.Remaining(gCtx, order, s.opts.Requirement)
			if err != nil {
				return err
			}
			out[i] = Demand{Order: order, Warehouse: rem.Warehouse, Remaining: rem.Items}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// movements builds one movement per served order, in FIFO order, with every
// allocation split across the pool line's batches.
func (s *Service) movements(req Request, plan Plan, demands []Demand) []storage.Movement {
	byID := make(map[string]Demand, len(demands))
	for _, d := range demands {
		byID[d.Order.ID] = d
	}

	balance := newBatchBalance(req.Pool)
	lines := make(map[string][]storage.MovementLine)

	for _, a := range plan.Allocations {
		poolLine := req.Pool[a.PoolLine]

		uom := poolLine.UOM
		if uom == "" {
			uom = byID[a.OrderID].Remaining[a.ItemID].UOM
		}

		for _, part := range balance.take(a.PoolLine, a.Qty, s.split, s.opts.Precision) {
			lines[a.OrderID] = append(lines[a.OrderID], storage.MovementLine{
				ItemID:  a.ItemID,
				Qty:     part.Qty,
				UOM:     uom,
				BatchID: part.BatchID,
			})
		}
	}

	var out []storage.Movement
	for _, orderID := range plan.Sequence {
		ml, ok := lines[orderID]
		if !ok {
			continue
		}
		out = append(out, storage.Movement{
			Kind:            s.opts.Kind,
			SourceWarehouse: req.SourceWarehouse,
			DestWarehouse:   byID[orderID].Warehouse,
			OrderID:         orderID,
			Remarks:         req.Remarks,
			Lines:           ml,
		})
	}

	return out
}

func (s *Service) annotate(ctx context.Context, res Result) {
	const op = "allocate.annotate"

	if s.annotator == nil {
		return
	}

	for i, mv := range res.Movements {
		remark := "staged by fan-out"
		if i < len(res.TransactionIDs) {
			remark += " " + res.TransactionIDs[i]
		}

		err := s.annotator.AnnotateOrder(ctx, mv.OrderID, storage.OrderNote{Remark: remark})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("failed to annotate order",
				slog.String("op", op),
				slog.String("order_id", mv.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}
}
