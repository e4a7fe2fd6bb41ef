// Package transfers reports what the storekeeper has recently moved to a line.
package transfers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mes-staging/internal/config"
	"mes-staging/internal/service/requirement"
	"mes-staging/internal/storage"
)

const (
	DefaultWindow = 24 * time.Hour
	MaxWindow     = 7 * 24 * time.Hour
	// DefaultLimit caps the number of transactions listed.
	DefaultLimit = 50
)

type Ledger interface {
	RecentTransfers(ctx context.Context, since time.Time, kinds []storage.TransactionKind, dests []string, limit int) ([]storage.MovementRecord, error)
}

type Service struct {
	log    *slog.Logger
	ledger Ledger
	lines  requirement.WarehouseResolver
	kinds  []storage.TransactionKind
	limit  int
	now    func() time.Time
}

func NewService(log *slog.Logger, ledger Ledger, lines requirement.WarehouseResolver, kinds []storage.TransactionKind) *Service {
	return &Service{
		log:    log,
		ledger: ledger,
		lines:  lines,
		kinds:  kinds,
		limit:  DefaultLimit,
		now:    time.Now,
	}
}

// Recent lists committed transfers into the line's staging or WIP warehouse
// posted within window, newest first. A zero window means DefaultWindow.
func (s *Service) Recent(ctx context.Context, line string, window time.Duration) ([]storage.MovementRecord, error) {
	const op = "transfers.Recent"

	if line == "" {
		return nil, fmt.Errorf("%s: line is required: %w", op, storage.ErrInvalidInput)
	}
	if window == 0 {
		window = DefaultWindow
	}
	if window < 0 || window > MaxWindow {
		return nil, fmt.Errorf("%s: window %s outside (0, %s]: %w", op, window, MaxWindow, storage.ErrInvalidInput)
	}

	var dests []string
	for _, kind := range []config.WarehouseKind{config.WarehouseStaging, config.WarehouseWIP} {
		if name, ok := s.lines.ResolveWarehouseForLine(line, kind); ok {
			dests = append(dests, name)
		}
	}
	if len(dests) == 0 {
		return nil, fmt.Errorf("%s: line %q has no staging or WIP warehouse: %w", op, line, storage.ErrNoTargetWarehouse)
	}

	records, err := s.ledger.RecentTransfers(ctx, s.now().Add(-window), s.kinds, dests, s.limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug("recent transfers",
		slog.String("line", line),
		slog.Duration("window", window),
		slog.Int("rows", len(records)),
	)

	return records, nil
}
