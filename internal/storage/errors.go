package storage

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNoTargetWarehouse = errors.New("no target warehouse configured")
	ErrInvalidInput      = errors.New("invalid input")
	ErrLedger            = errors.New("ledger error")
)
