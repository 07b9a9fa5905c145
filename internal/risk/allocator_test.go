package risk

import (
	"math"
	"testing"

	"wharton/internal/staking"
)

func newTestBet(label string, ev, amount float64) *staking.BetDecision {
	return &staking.BetDecision{
		Input:        staking.BetInput{Label: label},
		EVPercent:    ev,
		ActualAmount: amount,
		TargetAmount: amount,
		Units:        int(amount / 0.5),
	}
}

func newTestNoBet(label string, ev float64) *staking.NoBetDecision {
	return &staking.NoBetDecision{
		Input:     staking.BetInput{Label: label},
		Reason:    staking.ReasonEVBelowThreshold,
		EVPercent: ev,
	}
}

func TestAllocate_FullPartialSkip(t *testing.T) {
	decisions := []staking.Decision{
		newTestBet("a", 40, 60),
		newTestBet("b", 30, 50),
		newTestBet("c", 20, 40),
	}

	allocs := Allocate(decisions, 100)
	if len(allocs) != 3 {
		t.Fatalf("expected 3 allocations, got %d", len(allocs))
	}

	want := []struct {
		status    Status
		allocated float64
		remaining float64
	}{
		{StatusBet, 60, 40},
		{StatusPartialBet, 40, 0},
		{StatusSkipped, 0, 0},
	}
	for i, w := range want {
		got := allocs[i]
		if got.Status != w.status {
			t.Errorf("allocs[%d].Status = %s, want %s", i, got.Status, w.status)
		}
		if got.Allocated != w.allocated {
			t.Errorf("allocs[%d].Allocated = %f, want %f", i, got.Allocated, w.allocated)
		}
		if got.RemainingAfter != w.remaining {
			t.Errorf("allocs[%d].RemainingAfter = %f, want %f", i, got.RemainingAfter, w.remaining)
		}
	}
	if got := allocs[1].String(); got != "PARTIAL BET ($40.00)" {
		t.Errorf("partial String() = %q, want %q", got, "PARTIAL BET ($40.00)")
	}
}

func TestAllocate_NoBetPassesThrough(t *testing.T) {
	decisions := []staking.Decision{
		newTestBet("a", 40, 30),
		newTestNoBet("b", 5),
		newTestBet("c", 20, 30),
	}

	allocs := Allocate(decisions, 100)
	if allocs[1].Status != StatusNoBet {
		t.Errorf("expected NO BET passthrough, got %s", allocs[1].Status)
	}
	if allocs[1].Allocated != 0 {
		t.Errorf("expected zero allocation for NO BET, got %f", allocs[1].Allocated)
	}
	if allocs[1].RemainingAfter != 70 {
		t.Errorf("NO BET should not consume budget, remaining = %f", allocs[1].RemainingAfter)
	}
	if allocs[2].Status != StatusBet || allocs[2].Allocated != 30 {
		t.Errorf("expected third bet fully funded, got %s %f", allocs[2].Status, allocs[2].Allocated)
	}
}

func TestAllocate_PartialThresholdIsInclusive(t *testing.T) {
	// 99 funded leaves exactly 1% of a 100 bankroll.
	decisions := []staking.Decision{
		newTestBet("a", 40, 99),
		newTestBet("b", 30, 10),
	}

	allocs := Allocate(decisions, 100)
	if allocs[1].Status != StatusPartialBet {
		t.Fatalf("expected partial at exactly 1%%, got %s", allocs[1].Status)
	}
	if math.Abs(allocs[1].Allocated-1) > 1e-9 {
		t.Errorf("expected partial of 1, got %f", allocs[1].Allocated)
	}
}

func TestAllocate_BelowPartialThresholdStrandsRemainder(t *testing.T) {
	decisions := []staking.Decision{
		newTestBet("a", 40, 99.5),
		newTestBet("b", 30, 10),
		newTestBet("c", 20, 0.4),
	}

	allocs := Allocate(decisions, 100)
	if allocs[1].Status != StatusSkipped {
		t.Errorf("expected skip below 1%%, got %s", allocs[1].Status)
	}
	if math.Abs(allocs[1].RemainingAfter-0.5) > 1e-9 {
		t.Errorf("remaining should stay stranded at 0.5, got %f", allocs[1].RemainingAfter)
	}
	// A later bet small enough to fit is still funded.
	if allocs[2].Status != StatusBet {
		t.Errorf("expected small later bet funded, got %s", allocs[2].Status)
	}
}

func TestAllocate_ThresholdUsesOriginalBankroll(t *testing.T) {
	// Remaining 4 is 40% of what is left after a but only 0.4% of 1000.
	decisions := []staking.Decision{
		newTestBet("a", 40, 996),
		newTestBet("b", 30, 10),
	}

	allocs := Allocate(decisions, 1000)
	if allocs[1].Status != StatusSkipped {
		t.Errorf("expected skip, got %s", allocs[1].Status)
	}
}

func TestAllocate_ZeroBankrollSkipsAllBets(t *testing.T) {
	decisions := []staking.Decision{newTestBet("a", 40, 10), newTestNoBet("b", 2)}

	allocs := Allocate(decisions, 0)
	if allocs[0].Status != StatusSkipped {
		t.Errorf("expected skip with no bankroll, got %s", allocs[0].Status)
	}
	if allocs[1].Status != StatusNoBet {
		t.Errorf("expected NO BET passthrough, got %s", allocs[1].Status)
	}
}

func TestAllocate_Invariants(t *testing.T) {
	amounts := []float64{12.5, 40, 3.3, 27, 0.9, 18, 55, 1.2}
	decisions := make([]staking.Decision, 0, len(amounts))
	for i, amt := range amounts {
		decisions = append(decisions, newTestBet("bet", float64(100-i), amt))
	}

	for _, bankroll := range []float64{0, 5, 50, 100, 150, 1000} {
		allocs := Allocate(decisions, bankroll)

		var sum float64
		prev := bankroll
		for i, a := range allocs {
			sum += a.Allocated
			if a.Allocated > a.Decision.Amount()+1e-9 {
				t.Errorf("bankroll %f: allocs[%d] allocated %f exceeds requested %f",
					bankroll, i, a.Allocated, a.Decision.Amount())
			}
			if a.RemainingAfter > prev+1e-9 {
				t.Errorf("bankroll %f: remaining increased at %d", bankroll, i)
			}
			prev = a.RemainingAfter
		}
		if sum > bankroll+1e-9 {
			t.Errorf("bankroll %f: total allocated %f exceeds bankroll", bankroll, sum)
		}
	}
}

func TestAllocator_CustomPartialFraction(t *testing.T) {
	decisions := []staking.Decision{
		newTestBet("a", 40, 95),
		newTestBet("b", 30, 10),
	}

	allocs := NewAllocator(0.10).Allocate(decisions, 100)
	if allocs[1].Status != StatusSkipped {
		t.Errorf("expected skip with 10%% partial minimum, got %s", allocs[1].Status)
	}
}

func TestSortByEV_StableDescending(t *testing.T) {
	decisions := []staking.Decision{
		newTestBet("low", 12, 10),
		newTestNoBet("reject", 3),
		newTestBet("tie-first", 30, 10),
		newTestBet("high", 45, 10),
		newTestBet("tie-second", 30, 10),
	}

	sorted := SortByEV(decisions)

	wantOrder := []string{"high", "tie-first", "tie-second", "low", "reject"}
	for i, label := range wantOrder {
		if got := sorted[i].Bet().Label; got != label {
			t.Errorf("sorted[%d] = %s, want %s", i, got, label)
		}
	}
	if decisions[0].Bet().Label != "low" {
		t.Error("SortByEV must not reorder its input")
	}
}

func TestRankByEV_MatchesSortByEV(t *testing.T) {
	decisions := []staking.Decision{
		newTestBet("low", 12, 10),
		newTestBet("tie-first", 30, 10),
		newTestNoBet("reject", 3),
		newTestBet("tie-second", 30, 10),
	}

	order := RankByEV(decisions)
	if want := []int{1, 3, 0, 2}; !equalInts(order, want) {
		t.Fatalf("RankByEV = %v, want %v", order, want)
	}
	for i, d := range SortByEV(decisions) {
		if d != decisions[order[i]] {
			t.Errorf("SortByEV[%d] = %s, want %s", i, d.Bet().Label, decisions[order[i]].Bet().Label)
		}
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTotals(t *testing.T) {
	allocs := Allocate([]staking.Decision{
		newTestBet("a", 40, 60),
		newTestBet("b", 30, 50),
		newTestNoBet("c", 1),
	}, 100)

	allocated, funded := Totals(allocs)
	if allocated != 100 {
		t.Errorf("allocated = %f, want 100", allocated)
	}
	if funded != 2 {
		t.Errorf("funded = %d, want 2", funded)
	}
}

func TestBudget_Fund(t *testing.T) {
	b := NewBudget(100, PartialMinFraction)

	if status, amt := b.Fund(70); status != StatusBet || amt != 70 {
		t.Errorf("Fund(70) = %s %f, want BET 70", status, amt)
	}
	if b.Remaining != 30 || b.Allocated != 70 {
		t.Errorf("after Fund(70): remaining %f allocated %f", b.Remaining, b.Allocated)
	}
	if status, amt := b.Fund(50); status != StatusPartialBet || amt != 30 {
		t.Errorf("Fund(50) = %s %f, want PARTIAL 30", status, amt)
	}
	if status, _ := b.Fund(1); status != StatusSkipped {
		t.Errorf("Fund on empty budget = %s, want skip", status)
	}
}
