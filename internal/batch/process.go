package batch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"wharton/internal/commission"
	"wharton/internal/risk"
	"wharton/internal/staking"
)

// Options tune a batch run. PartialMinFraction is used as given, so zero
// allows a partial bet of any size.
type Options struct {
	Workers            int
	PartialMinFraction float64
}

// DefaultOptions uses every CPU and the standard partial minimum.
func DefaultOptions() Options {
	return Options{Workers: runtime.NumCPU(), PartialMinFraction: risk.PartialMinFraction}
}

// RowResult is one game after evaluation and allocation.
type RowResult struct {
	Row        Row
	Decision   staking.Decision
	Allocation risk.Allocation
	NetProfit  float64 // profit if the bet wins; zero for NO BET
	Reason     string  // NO BET detail with fee context
}

// Result is a completed batch, ordered by EV, highest first.
type Result struct {
	RunID      string
	CreatedAt  time.Time
	Bankroll   float64
	FeePerUnit float64
	Platform   string
	Rows       []RowResult
}

// HasMargin reports whether any input row carried a margin.
func (r *Result) HasMargin() bool {
	for _, row := range r.Rows {
		if row.Row.Margin != nil {
			return true
		}
	}
	return false
}

// Process evaluates every row against one bankroll, ranks the decisions by
// EV and allocates the bankroll down the ranking. The provider is read once,
// so every row sees the same fee.
func Process(ctx context.Context, rows []Row, bankroll float64, provider commission.Provider, engine *staking.Engine, opts Options) (*Result, error) {
	if math.IsNaN(bankroll) || math.IsInf(bankroll, 0) || bankroll < 0 {
		return nil, &staking.InvalidInputError{Field: "bankroll", Value: bankroll, Reason: "must be a finite, non-negative amount"}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if f := opts.PartialMinFraction; !(f >= 0 && f <= 1) {
		return nil, &staking.InvalidInputError{Field: "partial_min_fraction", Value: f, Reason: "must be between 0 and 1"}
	}

	res := &Result{
		RunID:      uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Bankroll:   bankroll,
		FeePerUnit: provider.Rate(),
		Platform:   provider.Label(),
	}
	log := slog.With("run_id", res.RunID)
	log.Info("batch started", "rows", len(rows), "bankroll", bankroll,
		"platform", res.Platform, "fee_per_unit", res.FeePerUnit)

	inputs, err := buildInputs(rows, res.FeePerUnit)
	if err != nil {
		return nil, err
	}

	decisions, err := evaluateAll(ctx, engine, bankroll, inputs, opts.Workers)
	if err != nil {
		return nil, err
	}

	results := make([]RowResult, len(rows))
	ranked := make([]staking.Decision, len(rows))
	for i, idx := range risk.RankByEV(decisions) {
		d := decisions[idx]
		results[i] = RowResult{Row: rows[idx], Decision: d}
		ranked[i] = d
		switch d := d.(type) {
		case *staking.BetDecision:
			results[i].NetProfit = d.NetProfit()
		case *staking.NoBetDecision:
			results[i].Reason = d.String()
			log.Debug("no bet", "label", rows[idx].Label, "reason", d.Reason, "ev_pct", d.EVPercent)
		}
	}

	allocs := risk.NewAllocator(opts.PartialMinFraction).Allocate(ranked, bankroll)
	for i := range results {
		results[i].Allocation = allocs[i]
	}
	risk.LogAllocations(res.RunID, allocs)

	res.Rows = results

	allocated, funded := risk.Totals(allocs)
	log.Info("batch finished", "rows", len(results), "funded", funded,
		"allocated", allocated, "remaining", bankroll-allocated)
	return res, nil
}

func buildInputs(rows []Row, fee float64) ([]staking.BetInput, error) {
	inputs := make([]staking.BetInput, len(rows))
	var errs *multierror.Error
	for i, r := range rows {
		in, err := staking.NewBetInput(r.Label, r.WinProbability, r.UnitPrice, fee, r.Margin)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("line %d (%s): %w", r.Line, r.Label, err))
			continue
		}
		inputs[i] = in
	}
	return inputs, errs.ErrorOrNil()
}

// evaluateAll decides every input on a bounded pool of workers. Each worker
// writes only its own index, so the output order matches the input.
func evaluateAll(ctx context.Context, engine *staking.Engine, bankroll float64, inputs []staking.BetInput, workers int) ([]staking.Decision, error) {
	decisions := make([]staking.Decision, len(inputs))
	errs := make([]error, len(inputs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				decisions[i], errs[i] = engine.EvaluateInput(bankroll, inputs[i])
			}
		}()
	}

feed:
	for i := range inputs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluating batch: %w", err)
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return decisions, nil
}
