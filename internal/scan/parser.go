// Package scan decodes line-side barcode scans and suppresses repeats.
package scan

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrBadQuantity = errors.New("bad quantity")

// AIM symbology identifiers some scanners prepend.
var aimPrefixes = []string{"]d2", "]C1", "]Q3"}

type Code struct {
	Raw     string  `json:"raw"`
	GTIN    string  `json:"gtin,omitempty"`
	ItemID  string  `json:"item_id,omitempty"`
	BatchID string  `json:"batch_id,omitempty"`
	Expiry  string  `json:"expiry,omitempty"`
	Qty     float64 `json:"qty,omitempty"`

	// HasQty is false when the label carries no quantity at all.
	HasQty bool `json:"-"`
}

// Parse reads GS1 element strings, (01) GTIN, (10) batch, (17) expiry
// YYMMDD and (30)/(37) count, with parenthesised AIs. Anything without a
// GTIN is read as ITEM|BATCH|QTY. A quantity that is present but not a
// finite number is an ErrBadQuantity.
func Parse(raw string) (Code, error) {
	s := raw
	for _, p := range aimPrefixes {
		if strings.HasPrefix(s, p) {
			s = s[len(p):]
			break
		}
	}

	c := Code{Raw: raw}

	c.GTIN = grab(s, "(01)", 14)
	c.BatchID = grab(s, "(10)", 0)
	c.Expiry = grab(s, "(17)", 6)

	qty := grab(s, "(30)", 0)
	if qty == "" {
		qty = grab(s, "(37)", 0)
	}

	if c.GTIN != "" {
		return c, c.setQty(qty)
	}

	parts := strings.Split(s, "|")
	c.ItemID = strings.TrimSpace(parts[0])
	if len(parts) >= 2 {
		c.BatchID = strings.TrimSpace(parts[1])
	}
	if len(parts) >= 3 {
		qty = strings.TrimSpace(parts[2])
	}

	return c, c.setQty(qty)
}

func (c *Code) setQty(text string) error {
	if text == "" {
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%q: %w", text, ErrBadQuantity)
	}
	c.Qty = v
	c.HasQty = true
	return nil
}

// grab returns the value after ai, cut to length when length > 0 and at the
// next '(' otherwise.
func grab(s, ai string, length int) string {
	idx := strings.Index(s, ai)
	if idx < 0 {
		return ""
	}
	val := s[idx+len(ai):]
	if length > 0 {
		if len(val) > length {
			val = val[:length]
		}
		return val
	}
	if end := strings.IndexByte(val, '('); end >= 0 {
		return val[:end]
	}
	return val
}
