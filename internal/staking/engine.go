package staking

import (
	"fmt"
	"math"
)

// Defaults for the Wharton constraints.
const (
	DefaultEVFloorPercent   = 10.0
	DefaultKellyMultiplier  = 0.5
	DefaultMaxStakeFraction = 0.15
	DefaultFeePerUnit       = 0.02
)

// Params are the constraints applied by Engine.
type Params struct {
	EVFloorPercent   float64 // minimum EV, in percent, to bet at all
	KellyMultiplier  float64 // 0.5 = half Kelly
	MaxStakeFraction float64 // hard cap on the fraction of bankroll per bet
}

func DefaultParams() Params {
	return Params{
		EVFloorPercent:   DefaultEVFloorPercent,
		KellyMultiplier:  DefaultKellyMultiplier,
		MaxStakeFraction: DefaultMaxStakeFraction,
	}
}

// Engine turns a bet and a bankroll into a Decision. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	params Params
}

func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

func (e *Engine) Params() Params {
	return e.params
}

// Evaluate decides a single bet with the default parameters. Probability and
// price may be given in either of their accepted formats.
func Evaluate(bankroll, winProbability, unitPrice, feePerUnit float64) Decision {
	return NewEngine(DefaultParams()).Evaluate(bankroll, winProbability, unitPrice, feePerUnit)
}

// Evaluate normalizes the raw inputs and decides the bet. It never fails:
// every rejection is a *NoBetDecision. The caller must ensure that the
// normalized price plus fee is positive; EvaluateInput checks this.
func (e *Engine) Evaluate(bankroll, winProbability, unitPrice, feePerUnit float64) Decision {
	in := BetInput{
		WinProbability: NormalizeProbability(winProbability),
		UnitPrice:      NormalizePrice(unitPrice),
		FeePerUnit:     feePerUnit,
	}
	return e.decide(bankroll, in)
}

// EvaluateInput validates an already normalized bet, then decides it.
func (e *Engine) EvaluateInput(bankroll float64, in BetInput) (Decision, error) {
	if math.IsNaN(bankroll) || math.IsInf(bankroll, 0) {
		return nil, &InvalidInputError{Field: "bankroll", Value: bankroll, Reason: "must be a finite number"}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return e.decide(bankroll, in), nil
}

func (e *Engine) decide(bankroll float64, in BetInput) Decision {
	p := in.WinProbability
	price := in.UnitPrice
	fee := in.FeePerUnit
	adjusted := price + fee

	evPerDollar := p*(1/adjusted) - 1
	evPercent := evPerDollar * 100

	// Negated so that NaN is rejected too.
	if !(evPercent >= e.params.EVFloorPercent) {
		impact := FeeImpact{}
		if price > 0 {
			impact.EVWithoutFee = (p/price - 1) * 100
			impact.PointsLost = impact.EVWithoutFee - evPercent
		}
		return &NoBetDecision{
			Input:     in,
			Reason:    ReasonEVBelowThreshold,
			Detail:    fmt.Sprintf("EV %.1f%% below %.0f%% threshold", evPercent, e.params.EVFloorPercent),
			EVPercent: evPercent,
			Fee:       impact,
		}
	}

	// Net odds on the full cost of a contract.
	b := 1/adjusted - 1
	fullKelly := (b*p - (1 - p)) / b

	// Positive EV at these odds implies positive Kelly, so this only fires
	// for degenerate inputs.
	if !(fullKelly > 0) {
		return &NoBetDecision{
			Input:     in,
			Reason:    ReasonNegativeEdge,
			Detail:    "Negative Kelly fraction",
			EVPercent: evPercent,
		}
	}

	capped := math.Min(fullKelly*e.params.KellyMultiplier, e.params.MaxStakeFraction)
	target := capped * bankroll

	sizing := SizeUnits(target, price, fee)
	if sizing.Units <= 0 {
		impact := FeeImpact{}
		if price > 0 {
			impact.MinBetIncreasePct = fee / price * 100
		}
		return &NoBetDecision{
			Input:  in,
			Reason: ReasonInsufficientForOneUnit,
			Detail: fmt.Sprintf("Target bet amount $%.2f insufficient for 1 whole contract at $%.2f (including commission)",
				target, sizing.AdjustedPrice),
			EVPercent:     evPercent,
			TargetAmount:  target,
			AdjustedPrice: sizing.AdjustedPrice,
			Fee:           impact,
		}
	}

	return &BetDecision{
		Input:          in,
		EVPercent:      evPercent,
		EVPerDollar:    evPerDollar,
		FullKelly:      fullKelly,
		CappedFraction: capped,
		TargetAmount:   target,
		AdjustedPrice:  sizing.AdjustedPrice,
		Units:          sizing.Units,
		ActualAmount:   sizing.ActualAmount,
		UnusedAmount:   sizing.UnusedAmount,
		StakeFraction:  sizing.ActualAmount / bankroll,
		ExpectedProfit: sizing.ActualAmount * evPerDollar,
	}
}
