package storage

type BOMLine struct {
	BillID      string  `json:"bill_id"`
	ItemID      string  `json:"item_id"`
	UOM         string  `json:"uom"`
	QtyPerUnit  float64 `json:"qty_per_unit"`
	ChildBillID string  `json:"child_bill_id,omitempty"`
	Position    int     `json:"position"`
}

// IsLeaf reports whether the line is a raw material rather than a sub-assembly.
func (l BOMLine) IsLeaf() bool {
	return l.ChildBillID == ""
}

type Requirement struct {
	UOM string  `json:"uom"`
	Qty float64 `json:"qty"`
}

// RequirementMap is keyed by item id.
type RequirementMap map[string]Requirement

func (m RequirementMap) Clone() RequirementMap {
	out := make(RequirementMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
