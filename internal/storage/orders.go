package storage

import "time"

type Order struct {
	ID             string     `json:"id"`
	BillID         string     `json:"bill_id"`
	ProductionItem string     `json:"production_item"`
	PlannedQty     float64    `json:"planned_qty"`
	UOM            string     `json:"uom"`
	Line           string     `json:"line"`
	WIPWarehouse   string     `json:"wip_warehouse"`
	FGWarehouse    string     `json:"fg_warehouse"`
	PlannedStart   *time.Time `json:"planned_start"`
	CreatedAt      time.Time  `json:"created_at"`
	Status         string     `json:"status"`
}

// OrderingKey is the FIFO key: planned start if set, creation time otherwise.
func (o Order) OrderingKey() time.Time {
	if o.PlannedStart != nil && !o.PlannedStart.IsZero() {
		return *o.PlannedStart
	}
	return o.CreatedAt
}

// Before reports whether o is served ahead of other: earlier OrderingKey
// first, order id on ties.
func (o Order) Before(other Order) bool {
	ko, kx := o.OrderingKey(), other.OrderingKey()
	if !ko.Equal(kx) {
		return ko.Before(kx)
	}
	return o.ID < other.ID
}

type Item struct {
	ID       string `json:"id"`
	UOM      string `json:"uom"`
	Group    string `json:"group"`
	HasBatch bool   `json:"has_batch"`
}

type Progress struct {
	OrderID   string  `json:"order_id"`
	Target    float64 `json:"target"`
	Actual    float64 `json:"actual"`
	Remaining float64 `json:"remaining"`
}

// OrderNote is a best-effort annotation written back onto an order.
type OrderNote struct {
	Remark    string  `json:"remark,omitempty"`
	RejectQty float64 `json:"reject_qty,omitempty"`
}
