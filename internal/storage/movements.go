package storage

import "time"

type TransactionKind string

const (
	KindTransferToStaging TransactionKind = "transfer-to-staging"
	KindTransferToWIP     TransactionKind = "transfer-to-wip"
	KindConsumption       TransactionKind = "consumption"
	KindManufacture       TransactionKind = "manufacture"
	KindScrap             TransactionKind = "scrap"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindTransferToStaging, KindTransferToWIP, KindConsumption, KindManufacture, KindScrap:
		return true
	}
	return false
}

// MovementRecord is a committed ledger row. Read-only from this service.
type MovementRecord struct {
	TransactionID   string          `json:"transaction_id"`
	Kind            TransactionKind `json:"kind"`
	OrderID         string          `json:"order_id"`
	ItemID          string          `json:"item_id"`
	Qty             float64         `json:"qty"`
	UOM             string          `json:"uom"`
	BatchID         string          `json:"batch_id,omitempty"`
	SourceWarehouse string          `json:"source_warehouse,omitempty"`
	DestWarehouse   string          `json:"dest_warehouse,omitempty"`
	PostedAt        time.Time       `json:"posted_at"`
}

// Movement is a request to the ledger to record one transaction.
type Movement struct {
	Kind            TransactionKind `json:"kind"`
	SourceWarehouse string          `json:"source_warehouse,omitempty"`
	DestWarehouse   string          `json:"dest_warehouse,omitempty"`
	OrderID         string          `json:"order_id"`
	Remarks         string          `json:"remarks,omitempty"`
	Lines           []MovementLine  `json:"lines"`
}

type MovementLine struct {
	ItemID  string  `json:"item_id"`
	Qty     float64 `json:"qty"`
	UOM     string  `json:"uom"`
	BatchID string  `json:"batch_id,omitempty"`
}

type BatchQty struct {
	BatchID string  `json:"batch_id"`
	Qty     float64 `json:"qty"`
}

// PickPoolLine is one physically picked item available for fan-out.
type PickPoolLine struct {
	ItemID  string     `json:"item_id"`
	UOM     string     `json:"uom"`
	Qty     float64    `json:"qty"`
	Batches []BatchQty `json:"batches,omitempty"`
}
