// Package quantity holds the quantity comparison and rounding policy shared by
// the allocation, status and closure code. All call sites take a Precision
// value instead of hard-coding decimals or tolerances.
package quantity

import (
	"github.com/shopspring/decimal"
)

const (
	DefaultDecimals = 3
	DefaultEpsilon  = 1e-9
)

type Precision struct {
	// Decimals is the number of decimal places quantities are compared and
	// rounded at.
	Decimals int32
	// Epsilon is the tolerance below which a running pool balance counts as exhausted.
	Epsilon float64
}

func Default() Precision {
	return Precision{Decimals: DefaultDecimals, Epsilon: DefaultEpsilon}
}

// Normalized turns the zero Precision into Default and fills unset fields.
// Decimals of 0 is kept when Epsilon is set, so whole-unit rounding can be
// configured; a negative Decimals means unset.
func (p Precision) Normalized() Precision {
	if p == (Precision{}) {
		return Default()
	}
	if p.Decimals < 0 {
		p.Decimals = DefaultDecimals
	}
	if p.Epsilon <= 0 {
		p.Epsilon = DefaultEpsilon
	}
	return p
}

func (p Precision) Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(p.Decimals).InexactFloat64()
}

// CeilDec rounds up to Decimals.
func (p Precision) CeilDec(d decimal.Decimal) decimal.Decimal {
	return d.RoundCeil(p.Decimals)
}

// Less compares a and b after rounding both to Decimals.
func (p Precision) Less(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(p.Decimals).LessThan(decimal.NewFromFloat(b).Round(p.Decimals))
}

// Covered reports whether have meets need at the configured precision.
func (p Precision) Covered(have, need float64) bool {
	return !p.Less(have, need)
}

// Positive reports whether v is still positive once rounded.
func (p Precision) Positive(v float64) bool {
	return decimal.NewFromFloat(v).Round(p.Decimals).IsPositive()
}
