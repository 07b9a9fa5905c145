package risk

import (
	"fmt"
	"log/slog"
	"sort"

	"wharton/internal/staking"
)

// PartialMinFraction is the smallest partial bet, as a fraction of the
// original bankroll, that the allocator will place.
const PartialMinFraction = 0.01

// Status is the final recommendation after bankroll allocation.
type Status string

const (
	StatusBet        Status = "BET"
	StatusPartialBet Status = "PARTIAL BET"
	StatusSkipped    Status = "SKIP - Insufficient Bankroll"
	StatusNoBet      Status = "NO BET"
)

// Allocation is a decision annotated with the share of the bankroll it
// actually received.
type Allocation struct {
	Decision       staking.Decision
	Status         Status
	Allocated      float64
	RemainingAfter float64
}

// String renders the status the way reports show it, e.g.
// "PARTIAL BET ($40.00)".
func (a Allocation) String() string {
	if a.Status == StatusPartialBet {
		return fmt.Sprintf("%s ($%.2f)", a.Status, a.Allocated)
	}
	return string(a.Status)
}

// Allocator distributes one bankroll greedily over decisions in the order
// given. Greedy is not a knapsack optimum; a large early bet can starve
// smaller later ones.
type Allocator struct {
	partialMinFraction float64
}

func NewAllocator(partialMinFraction float64) *Allocator {
	return &Allocator{partialMinFraction: partialMinFraction}
}

// Allocate uses the default partial minimum.
func Allocate(decisions []staking.Decision, bankroll float64) []Allocation {
	return NewAllocator(PartialMinFraction).Allocate(decisions, bankroll)
}

// Allocate walks decisions in order; it does not sort. Call SortByEV first.
func (a *Allocator) Allocate(decisions []staking.Decision, bankroll float64) []Allocation {
	budget := NewBudget(bankroll, a.partialMinFraction)

	out := make([]Allocation, 0, len(decisions))
	for _, d := range decisions {
		alloc := Allocation{Decision: d}

		if d.Outcome() != staking.OutcomeBet {
			alloc.Status = StatusNoBet
		} else {
			alloc.Status, alloc.Allocated = budget.Fund(d.Amount())
		}

		alloc.RemainingAfter = budget.Remaining
		out = append(out, alloc)
	}
	return out
}

// RankByEV returns the indices of decisions ordered by EV, highest first.
// Ties keep their input order.
func RankByEV(decisions []staking.Decision) []int {
	order := make([]int, len(decisions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return decisions[order[a]].EV() > decisions[order[b]].EV()
	})
	return order
}

// SortByEV returns a copy of decisions in RankByEV order.
func SortByEV(decisions []staking.Decision) []staking.Decision {
	sorted := make([]staking.Decision, len(decisions))
	for i, idx := range RankByEV(decisions) {
		sorted[i] = decisions[idx]
	}
	return sorted
}

// Totals sums what the allocations committed.
func Totals(allocs []Allocation) (allocated float64, funded int) {
	for _, a := range allocs {
		allocated += a.Allocated
		if a.Status == StatusBet || a.Status == StatusPartialBet {
			funded++
		}
	}
	return allocated, funded
}

// LogAllocations writes one debug line per allocation.
func LogAllocations(runID string, allocs []Allocation) {
	for _, a := range allocs {
		slog.Debug("allocation",
			"run_id", runID,
			"label", a.Decision.Bet().Label,
			"ev_pct", a.Decision.EV(),
			"requested", a.Decision.Amount(),
			"status", a.Status,
			"allocated", a.Allocated,
			"remaining", a.RemainingAfter,
		)
	}
}
