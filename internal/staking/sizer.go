package staking

import "math"

// maxUnits is math.MaxInt as a float64. Counts at or above it saturate.
const maxUnits = float64(math.MaxInt)

// Sizing is the whole-contract breakdown of a target stake.
type Sizing struct {
	AdjustedPrice float64 // price + fee per contract
	Units         int
	ActualAmount  float64
	UnusedAmount  float64
}

// SizeUnits returns the largest whole number of contracts that target can
// buy at price+fee, never rounding up. Zero units is a valid result; the
// caller decides what that means.
//
// The caller must ensure price+fee > 0 and target >= 0.
func SizeUnits(target, price, fee float64) Sizing {
	adjusted := price + fee

	units := math.Floor(target / adjusted)
	if math.IsNaN(units) || units < 0 {
		units = 0
	}

	// Counts past the int range saturate instead of wrapping negative.
	n := math.MaxInt
	if units < maxUnits {
		n = int(units)
	} else {
		units = maxUnits
	}
	actual := units * adjusted

	return Sizing{
		AdjustedPrice: adjusted,
		Units:         n,
		ActualAmount:  actual,
		UnusedAmount:  target - actual,
	}
}
