package performance

import (
	"math"

	"github.com/shopspring/decimal"

	"wharton/internal/batch"
	"wharton/internal/risk"
	"wharton/internal/staking"
)

// TopBetLimit caps how many bets Report.Top lists.
const TopBetLimit = 5

// Report summarizes one batch run.
type Report struct {
	RunID      string  `json:"run_id"`
	Platform   string  `json:"platform"`
	FeePerUnit float64 `json:"fee_per_unit"`

	TotalGames       int `json:"total_games"`
	BetOpportunities int `json:"bet_opportunities"`
	NoBets           int `json:"no_bets"`
	FinalBets        int `json:"final_bets"`
	PartialBets      int `json:"partial_bets"`
	Skipped          int `json:"skipped"`

	Bankroll            float64 `json:"bankroll"`
	TotalAllocated      float64 `json:"total_allocated"`
	Remaining           float64 `json:"remaining"`
	TotalExpectedProfit float64 `json:"total_expected_profit"`
	TotalContracts      int     `json:"total_contracts"`

	CommissionCost            float64 `json:"commission_cost"`
	CommissionPctOfBets       float64 `json:"commission_pct_of_bets"`
	CommissionProfitImpactPct float64 `json:"commission_profit_impact_pct"`

	Top []TopBet `json:"top"`
}

// TopBet is a fully funded bet in the report's top list.
type TopBet struct {
	Label     string  `json:"label"`
	Allocated float64 `json:"allocated"`
	EVPercent float64 `json:"ev_percent"`
}

// Summarize computes the report for res. Expected profit, contracts and the
// top list count fully funded bets only; partial fills are counted
// separately.
func Summarize(res *batch.Result) *Report {
	r := &Report{
		RunID:      res.RunID,
		Platform:   res.Platform,
		FeePerUnit: res.FeePerUnit,
		TotalGames: len(res.Rows),
		Bankroll:   res.Bankroll,
	}

	allocated := decimal.Zero
	profit := decimal.Zero
	for _, row := range res.Rows {
		if row.Decision.Outcome() == staking.OutcomeBet {
			r.BetOpportunities++
		} else {
			r.NoBets++
		}
		allocated = allocated.Add(decimal.NewFromFloat(row.Allocation.Allocated))

		switch row.Allocation.Status {
		case risk.StatusPartialBet:
			r.PartialBets++
		case risk.StatusSkipped:
			r.Skipped++
		case risk.StatusBet:
			r.FinalBets++
			if bet, ok := row.Decision.(*staking.BetDecision); ok {
				profit = profit.Add(decimal.NewFromFloat(bet.ExpectedProfit))
				r.TotalContracts = addContracts(r.TotalContracts, bet.Units)
			}
			if len(r.Top) < TopBetLimit {
				r.Top = append(r.Top, TopBet{
					Label:     row.Row.Label,
					Allocated: row.Allocation.Allocated,
					EVPercent: row.Decision.EV(),
				})
			}
		}
	}

	r.TotalAllocated = allocated.InexactFloat64()
	r.Remaining = decimal.NewFromFloat(res.Bankroll).Sub(allocated).InexactFloat64()
	r.TotalExpectedProfit = profit.InexactFloat64()

	cost := decimal.NewFromInt(int64(r.TotalContracts)).Mul(decimal.NewFromFloat(res.FeePerUnit))
	r.CommissionCost = cost.InexactFloat64()
	if cost.IsPositive() {
		hundred := decimal.NewFromInt(100)
		if allocated.IsPositive() {
			r.CommissionPctOfBets = cost.Div(allocated).Mul(hundred).InexactFloat64()
		}
		if before := profit.Add(cost); before.IsPositive() {
			r.CommissionProfitImpactPct = cost.Div(before).Mul(hundred).InexactFloat64()
		}
	}

	return r
}

// addContracts sums unit counts, saturating at math.MaxInt.
func addContracts(total, units int) int {
	if units > math.MaxInt-total {
		return math.MaxInt
	}
	return total + units
}
