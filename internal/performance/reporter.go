package performance

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
)

// LogReport logs the batch summary as structured JSON.
func LogReport(r *Report) {
	slog.Info("=== BATCH SUMMARY ===",
		"run_id", r.RunID,
		"total_games", r.TotalGames,
		"bet_opportunities", r.BetOpportunities,
		"no_bets", r.NoBets,
		"final_bets", r.FinalBets,
		"partial_bets", r.PartialBets,
		"skipped", r.Skipped,
		"bankroll", r.Bankroll,
		"allocated", r.TotalAllocated,
		"remaining", r.Remaining,
		"expected_profit", r.TotalExpectedProfit,
	)

	slog.Info("commission impact",
		"run_id", r.RunID,
		"platform", r.Platform,
		"fee_per_unit", r.FeePerUnit,
		"contracts", r.TotalContracts,
		"cost", r.CommissionCost,
		"pct_of_bets", r.CommissionPctOfBets,
		"profit_impact_pct", r.CommissionProfitImpactPct,
	)

	for i, b := range r.Top {
		slog.Info("top bet",
			"run_id", r.RunID,
			"rank", i+1,
			"label", b.Label,
			"allocated", b.Allocated,
			"ev_pct", b.EVPercent,
		)
	}
}

// Dollars formats an amount like $1,234.50.
func Dollars(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// WriteText prints the summary for a terminal.
func WriteText(w io.Writer, r *Report) error {
	rule := strings.Repeat("=", 60)
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\nBETTING ANALYSIS SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Total Games Analyzed: %s\n", humanize.Comma(int64(r.TotalGames)))
	fmt.Fprintf(&b, "Initial BET Opportunities: %d\n", r.BetOpportunities)
	fmt.Fprintf(&b, "NO BET Games: %d\n", r.NoBets)
	fmt.Fprintf(&b, "Final Recommended Bets: %d\n", r.FinalBets)
	if r.PartialBets > 0 || r.Skipped > 0 {
		fmt.Fprintf(&b, "Partial Bets: %d  Skipped: %d\n", r.PartialBets, r.Skipped)
	}
	fmt.Fprintf(&b, "Weekly Bankroll: %s\n", Dollars(r.Bankroll))
	fmt.Fprintf(&b, "Total Allocated: %s\n", Dollars(r.TotalAllocated))
	fmt.Fprintf(&b, "Remaining Bankroll: %s\n", Dollars(r.Remaining))
	fmt.Fprintf(&b, "Total Expected Profit: %s\n", Dollars(r.TotalExpectedProfit))

	fmt.Fprintf(&b, "%s\nCOMMISSION IMPACT ANALYSIS:\n", strings.Repeat("-", 60))
	fmt.Fprintf(&b, "Platform: %s\n", r.Platform)
	fmt.Fprintf(&b, "Commission Rate: %s per contract\n", Dollars(r.FeePerUnit))
	if r.CommissionCost > 0 {
		fmt.Fprintf(&b, "Total Contracts: %s\n", humanize.Comma(int64(r.TotalContracts)))
		fmt.Fprintf(&b, "Total Commission Cost: %s\n", Dollars(r.CommissionCost))
		fmt.Fprintf(&b, "Commission as %% of Total Bets: %.1f%%\n", r.CommissionPctOfBets)
		if r.CommissionProfitImpactPct > 0 {
			fmt.Fprintf(&b, "Commission reduces expected profit by: %.1f%%\n", r.CommissionProfitImpactPct)
		}
	}

	if len(r.Top) > 0 {
		fmt.Fprintf(&b, "\nTOP %d RECOMMENDED BETS (by EV%%):\n%s\n", len(r.Top), strings.Repeat("-", 40))
		for _, t := range r.Top {
			fmt.Fprintf(&b, "%s: %s (EV: %.2f%%)\n", t.Label, Dollars(t.Allocated), t.EVPercent)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
