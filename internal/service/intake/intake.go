// Package intake books line-side scans against a production order.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"mes-staging/internal/batch"
	"mes-staging/internal/config"
	"mes-staging/internal/constants"
	"mes-staging/internal/metrics"
	"mes-staging/internal/quantity"
	"mes-staging/internal/scan"
	"mes-staging/internal/service/requirement"
	"mes-staging/internal/storage"
	"mes-staging/internal/warehouse"
)

type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*storage.Order, error)
	GetItem(ctx context.Context, id string) (*storage.Item, error)
	ItemByBarcode(ctx context.Context, barcode string) (*storage.Item, error)
}

type BillResolver interface {
	Resolve(ctx context.Context, order storage.Order, opts requirement.Options) (storage.RequirementMap, error)
}

type Ledger interface {
	CommitMovements(ctx context.Context, movements []storage.Movement) ([]string, error)
}

type LineSettings interface {
	requirement.WarehouseResolver
	AllowedGroups(line string) map[string]bool
}

type Request struct {
	OrderID string `json:"order_id"`
	Code    string `json:"code"`
}

type Result struct {
	Accepted      bool              `json:"accepted"`
	Duplicate     bool              `json:"duplicate,omitempty"`
	Message       string            `json:"message"`
	Scan          scan.Code         `json:"scan"`
	Movement      *storage.Movement `json:"movement,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
}

type Options struct {
	ConsumeOnScan         bool
	RequirePackagingInBOM bool
	BatchSpaceReplacement string
	DuplicateTTL          time.Duration
	Precision             quantity.Precision
}

func OptionsFromConfig(cfg config.Scan) Options {
	return Options{
		ConsumeOnScan:         cfg.ConsumeOnScan,
		RequirePackagingInBOM: cfg.RequirePackagingInBOM,
		BatchSpaceReplacement: cfg.BatchSpaceReplacement,
		DuplicateTTL:          cfg.DuplicateTTL,
	}
}

type Service struct {
	log    *slog.Logger
	orders OrderStore
	bills  BillResolver
	ledger Ledger
	lines  LineSettings
	dedupe *scan.Deduper
	opts   Options
}

func NewService(log *slog.Logger, orders OrderStore, bills BillResolver, ledger Ledger, lines LineSettings, opts Options) *Service {
	if opts.DuplicateTTL <= 0 {
		opts.DuplicateTTL = 45 * time.Second
	}
	opts.Precision = opts.Precision.Normalized()

	return &Service{
		log:    log,
		orders: orders,
		bills:  bills,
		ledger: ledger,
		lines:  lines,
		dedupe: scan.NewDeduper(opts.DuplicateTTL),
		opts:   opts,
	}
}

// Close stops the duplicate-scan expiry loop.
func (s *Service) Close() {
	s.dedupe.Close()
}

// Scan validates one scanned code against the order and records either a
// consumption from staging or a transfer from staging to WIP.
func (s *Service) Scan(ctx context.Context, req Request) (Result, error) {
	const op = "intake.Scan"

	req.OrderID = strings.TrimSpace(req.OrderID)
	req.Code = strings.TrimSpace(req.Code)
	if req.OrderID == "" || req.Code == "" {
		metrics.IncScan(metrics.ScanRejected)
		return Result{}, fmt.Errorf("%s: order and code are required: %w", op, storage.ErrInvalidInput)
	}

	if s.dedupe.Seen(req.OrderID, req.Code) {
		metrics.IncScan(metrics.ScanDuplicate)
		return Result{Duplicate: true, Message: "duplicate scan ignored", Scan: scan.Code{Raw: req.Code}}, nil
	}

	res, err := s.book(ctx, req)
	if err != nil {
		// a corrected re-scan of the same label must not be swallowed
		s.dedupe.Forget(req.OrderID, req.Code)
		metrics.IncScan(metrics.ScanRejected)
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.IncScan(metrics.ScanAccepted)
	return res, nil
}

func (s *Service) book(ctx context.Context, req Request) (Result, error) {
	order, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return Result{}, err
	}

	code, err := scan.Parse(req.Code)
	if err != nil {
		return Result{}, fmt.Errorf("%v: %w", err, storage.ErrInvalidInput)
	}

	item, err := s.resolveItem(ctx, code)
	if err != nil {
		return Result{}, err
	}
	code.ItemID = item.ID

	if code.BatchID != "" {
		code.BatchID = batch.NormalizeID(code.BatchID, s.opts.BatchSpaceReplacement)
	}
	if item.HasBatch && code.BatchID == "" {
		return Result{}, fmt.Errorf("batch number required for %s: %w", item.ID, storage.ErrInvalidInput)
	}

	if allowed := s.lines.AllowedGroups(order.Line); allowed != nil && !allowed[warehouse.Normalize(item.Group)] {
		return Result{}, fmt.Errorf("item group %q not allowed on line %q: %w", item.Group, order.Line, storage.ErrInvalidInput)
	}

	packaging := constants.IsPackagingGroup(item.Group)
	if !packaging || s.opts.RequirePackagingInBOM {
		if err := s.checkBOM(ctx, *order, item.ID); err != nil {
			return Result{}, err
		}
	}

	if err := s.checkQty(&code); err != nil {
		return Result{}, err
	}
	uom := item.UOM
	if uom == "" {
		uom = constants.DefaultUOM
	}

	mv, err := s.movement(*order, code, uom)
	if err != nil {
		return Result{}, err
	}

	ids, err := s.ledger.CommitMovements(ctx, []storage.Movement{mv})
	metrics.IncLedgerCommit(string(mv.Kind), metrics.Result(err))
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Accepted: true,
		Scan:     code,
		Movement: &mv,
		Message:  message(mv.Kind, code),
	}
	if len(ids) > 0 {
		res.TransactionID = ids[0]
	}

	s.log.Info("scan booked",
		slog.String("order", order.ID),
		slog.String("item", code.ItemID),
		slog.String("kind", string(mv.Kind)),
		slog.Float64("qty", code.Qty),
	)

	return res, nil
}

func (s *Service) resolveItem(ctx context.Context, code scan.Code) (*storage.Item, error) {
	if code.GTIN != "" {
		item, err := s.orders.ItemByBarcode(ctx, code.GTIN)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("cannot resolve item for GTIN %s: %w", code.GTIN, storage.ErrInvalidInput)
		}
		return item, err
	}

	if code.ItemID == "" {
		return nil, fmt.Errorf("cannot parse item from code: %w", storage.ErrInvalidInput)
	}

	item, err := s.orders.GetItem(ctx, code.ItemID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("unknown item %s: %w", code.ItemID, storage.ErrInvalidInput)
	}
	return item, err
}

// checkQty defaults a label without a count to one unit and rejects counts
// that would book a zero or reversed movement.
func (s *Service) checkQty(code *scan.Code) error {
	if !code.HasQty {
		code.Qty = 1
		return nil
	}
	if math.IsNaN(code.Qty) || math.IsInf(code.Qty, 0) || !s.opts.Precision.Positive(code.Qty) {
		return fmt.Errorf("scanned quantity %v must be positive: %w", code.Qty, storage.ErrInvalidInput)
	}
	return nil
}

func (s *Service) checkBOM(ctx context.Context, order storage.Order, itemID string) error {
	req, err := s.bills.Resolve(ctx, order, requirement.LeafOptions)
	if err != nil {
		return err
	}
	if _, ok := req[itemID]; !ok {
		return fmt.Errorf("item %s is not in the bill of order %s: %w", itemID, order.ID, storage.ErrInvalidInput)
	}
	return nil
}

func (s *Service) movement(order storage.Order, code scan.Code, uom string) (storage.Movement, error) {
	source, err := requirement.TargetWarehouse(s.lines, order)
	if err != nil {
		return storage.Movement{}, err
	}

	mv := storage.Movement{
		Kind:            storage.KindConsumption,
		SourceWarehouse: source,
		OrderID:         order.ID,
		Remarks:         "scan " + code.Raw,
		Lines:           []storage.MovementLine{{ItemID: code.ItemID, Qty: code.Qty, UOM: uom, BatchID: code.BatchID}},
	}
	if s.opts.ConsumeOnScan {
		return mv, nil
	}

	wip := order.WIPWarehouse
	if wip == "" {
		wip, _ = s.lines.ResolveWarehouseForLine(order.Line, config.WarehouseWIP)
	}
	if wip == "" {
		return storage.Movement{}, fmt.Errorf("order %s has no WIP warehouse: %w", order.ID, storage.ErrNoTargetWarehouse)
	}

	mv.Kind = storage.KindTransferToWIP
	mv.DestWarehouse = wip
	return mv, nil
}

func message(kind storage.TransactionKind, code scan.Code) string {
	b := code.BatchID
	if b == "" {
		b = "-"
	}
	if kind == storage.KindConsumption {
		return fmt.Sprintf("consumed %g x %s (batch %s)", code.Qty, code.ItemID, b)
	}
	return fmt.Sprintf("staged %g x %s to WIP (batch %s)", code.Qty, code.ItemID, b)
}
