package risk

// Budget tracks how much of a weekly bankroll has been committed.
type Budget struct {
	Total     float64
	Remaining float64
	Allocated float64

	partialMin float64 // smallest partial fill, in dollars
}

func NewBudget(total, partialMinFraction float64) *Budget {
	return &Budget{
		Total:      total,
		Remaining:  total,
		partialMin: total * partialMinFraction,
	}
}

// Fund commits up to amount and reports how the request was treated. A
// request that does not fit becomes a partial fill of everything left, but
// only when what is left is at least the partial minimum; otherwise nothing
// is committed and the remainder stays stranded.
func (b *Budget) Fund(amount float64) (Status, float64) {
	if b.Remaining <= 0 {
		return StatusSkipped, 0
	}

	if amount <= b.Remaining {
		b.Remaining -= amount
		b.Allocated += amount
		return StatusBet, amount
	}

	if b.Remaining >= b.partialMin {
		partial := b.Remaining
		b.Allocated += partial
		b.Remaining = 0
		return StatusPartialBet, partial
	}

	return StatusSkipped, 0
}
