package batch

import (
	"fmt"
	"strings"

	"wharton/internal/staking"
)

type format int

const (
	formatGeneral format = iota
	formatText
	formatPercent
	formatCurrency
)

// column describes one output column of the results sheet.
type column struct {
	name       string
	quickName  string // header on Quick_View; empty means detail sheet only
	format     format
	commission bool // highlighted, since its value depends on the fee
	note       string
	value      func(res *Result, r RowResult) any
}

func betOf(r RowResult) *staking.BetDecision {
	b, _ := r.Decision.(*staking.BetDecision)
	return b
}

var marginColumn = column{
	name: "Margin",
	note: "Your model's predicted margin of victory (reference only)",
	value: func(_ *Result, r RowResult) any {
		if r.Row.Margin == nil {
			return ""
		}
		return *r.Row.Margin
	},
}

var resultColumns = []column{
	{
		name:      "Game",
		quickName: "Game",
		format:    formatText,
		note:      `The game or matchup being analyzed (e.g. "Lakers vs Warriors")`,
		value:     func(_ *Result, r RowResult) any { return r.Row.Label },
	},
	{
		name:      "Win %",
		quickName: "Win %",
		format:    formatPercent,
		note:      "Your model's win probability as a decimal",
		value:     func(_ *Result, r RowResult) any { return r.Decision.Bet().WinProbability },
	},
	{
		name:      "Contract Price (¢)",
		quickName: "Price (¢)",
		note:      "Contract price as entered (cents or dollars)",
		value:     func(_ *Result, r RowResult) any { return r.Row.UnitPrice },
	},
	{
		name:      "EV Percentage",
		quickName: "Edge %",
		format:    formatPercent,
		note:      "Expected profit per dollar staked. Must clear the EV threshold to bet.",
		value:     func(_ *Result, r RowResult) any { return r.Decision.EV() / 100 },
	},
	{
		name:      "Expected Value EV",
		quickName: "EV $",
		format:    formatCurrency,
		note:      "Expected profit in dollars over many repetitions",
		value: func(_ *Result, r RowResult) any {
			if b := betOf(r); b != nil {
				return b.ExpectedProfit
			}
			return 0.0
		},
	},
	{
		name:      "Net Profit",
		quickName: "Win Profit $",
		format:    formatCurrency,
		note:      "Profit if this bet wins: $1 per contract minus total cost",
		value:     func(_ *Result, r RowResult) any { return r.NetProfit },
	},
	{
		name:   "Target Bet Amount",
		format: formatCurrency,
		note:   "Capped half-Kelly amount before whole-contract rounding",
		value: func(_ *Result, r RowResult) any {
			switch d := r.Decision.(type) {
			case *staking.BetDecision:
				return d.TargetAmount
			case *staking.NoBetDecision:
				return d.TargetAmount
			}
			return 0.0
		},
	},
	{
		name:   "Bet Amount",
		format: formatCurrency,
		note:   "Cost of the whole contracts bought",
		value:  func(_ *Result, r RowResult) any { return r.Decision.Amount() },
	},
	{
		name:      "Cumulative Bet Amount",
		quickName: "Allocated $",
		format:    formatCurrency,
		note:      "Amount allocated after the weekly bankroll limit",
		value:     func(_ *Result, r RowResult) any { return r.Allocation.Allocated },
	},
	{
		name:      "Bet Percentage",
		quickName: "Stake % Bankroll",
		format:    formatPercent,
		note:      "Share of the weekly bankroll this bet uses",
		value: func(_ *Result, r RowResult) any {
			if b := betOf(r); b != nil {
				return b.StakeFraction
			}
			return 0.0
		},
	},
	{
		name:   "Unused Amount",
		format: formatCurrency,
		note:   "Target left unspent by whole-contract rounding",
		value: func(_ *Result, r RowResult) any {
			if b := betOf(r); b != nil {
				return b.UnusedAmount
			}
			return 0.0
		},
	},
	{
		name:      "Contracts To Buy",
		quickName: "Contracts",
		note:      "Whole contracts to purchase, rounded down",
		value: func(_ *Result, r RowResult) any {
			if b := betOf(r); b != nil {
				return b.Units
			}
			return 0
		},
	},
	{
		name:       "Adjusted Price",
		quickName:  "Contract Cost",
		format:     formatCurrency,
		commission: true,
		note:       "Cost per contract including commission",
		value:      func(_ *Result, r RowResult) any { return r.Decision.Bet().AdjustedPrice() },
	},
	{
		name:  "Decision",
		note:  "BET if the bet clears every constraint, otherwise NO BET",
		value: func(_ *Result, r RowResult) any { return string(r.Decision.Outcome()) },
	},
	{
		name:      "Final Recommendation",
		quickName: "Final",
		note:      "Decision after bankroll allocation (BET, PARTIAL BET or SKIP)",
		value:     func(_ *Result, r RowResult) any { return r.Allocation.String() },
	},
	{
		name:      "Reason",
		quickName: "Reason",
		note:      "Why a game was not bet",
		value:     func(_ *Result, r RowResult) any { return r.Reason },
	},
	{
		name:       "Commission Rate",
		format:     formatCurrency,
		commission: true,
		note:       "Commission per contract used for this run",
		value:      func(res *Result, _ RowResult) any { return res.FeePerUnit },
	},
	{
		name:       "Platform",
		commission: true,
		note:       "Platform the commission rate came from",
		value:      func(res *Result, _ RowResult) any { return res.Platform },
	},
}

// detailColumns returns the Betting_Results layout. Margin follows the price
// when any row has one.
func detailColumns(res *Result) []column {
	if !res.HasMargin() {
		return resultColumns
	}
	cols := make([]column, 0, len(resultColumns)+1)
	cols = append(cols, resultColumns[:3]...)
	cols = append(cols, marginColumn)
	return append(cols, resultColumns[3:]...)
}

// quickColumns returns the Quick_View layout, renamed to short headers.
func quickColumns() []column {
	var cols []column
	for _, c := range resultColumns {
		if c.quickName == "" {
			continue
		}
		c.name = c.quickName
		cols = append(cols, c)
	}
	return cols
}

// noteFor returns the header comment with the run's fee filled in where the
// column depends on it.
func noteFor(c column, res *Result) string {
	if c.format == formatCurrency && c.commission && strings.Contains(c.note, "including commission") {
		return fmt.Sprintf("%s (contract price + $%.2f)", c.note, res.FeePerUnit)
	}
	return c.note
}
