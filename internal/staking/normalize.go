package staking

// NormalizeProbability converts a win probability entered either as a
// percentage (68) or a fraction (0.68) into a fraction. Values are not
// clamped; anything above 1 is assumed to be a percentage.
func NormalizeProbability(x float64) float64 {
	if x > 1 {
		return x / 100
	}
	return x
}

// NormalizePrice converts a contract price entered in cents (27) or dollars
// (0.27) into dollars.
//
// The threshold is inclusive: 1.0 is read as one cent, not one dollar.
func NormalizePrice(x float64) float64 {
	if x >= 1.0 {
		return x / 100.0
	}
	return x
}
