package staking

import (
	"fmt"
	"math"
)

// Outcome is the top-level recommendation for a single bet.
type Outcome string

const (
	OutcomeBet   Outcome = "BET"
	OutcomeNoBet Outcome = "NO BET"
)

// ReasonCode explains a NO BET outcome.
type ReasonCode string

const (
	ReasonEVBelowThreshold       ReasonCode = "EV_BELOW_THRESHOLD"
	ReasonNegativeEdge           ReasonCode = "NEGATIVE_EDGE"
	ReasonInsufficientForOneUnit ReasonCode = "INSUFFICIENT_FOR_ONE_UNIT"
)

// Message returns the reason in plain language.
func (r ReasonCode) Message() string {
	switch r {
	case ReasonEVBelowThreshold:
		return "Expected value is below the minimum threshold"
	case ReasonNegativeEdge:
		return "Negative Kelly fraction, no edge at this price"
	case ReasonInsufficientForOneUnit:
		return "Stake is too small to buy one whole contract"
	default:
		return string(r)
	}
}

// BetInput is one candidate wager with normalized probability and price.
type BetInput struct {
	Label          string
	WinProbability float64  // 0-1
	UnitPrice      float64  // dollars per contract
	FeePerUnit     float64  // dollars per contract
	MarginHint     *float64 // informational only
}

// NewBetInput normalizes raw probability and price and checks that the
// result can be evaluated.
func NewBetInput(label string, winProbability, unitPrice, feePerUnit float64, margin *float64) (BetInput, error) {
	in := BetInput{
		Label:          label,
		WinProbability: NormalizeProbability(winProbability),
		UnitPrice:      NormalizePrice(unitPrice),
		FeePerUnit:     feePerUnit,
		MarginHint:     margin,
	}
	if err := in.Validate(); err != nil {
		return BetInput{}, err
	}
	return in, nil
}

// AdjustedPrice is the full cost of one contract.
func (in BetInput) AdjustedPrice() float64 {
	return in.UnitPrice + in.FeePerUnit
}

// Validate reports values that would make Evaluate produce NaN or Inf.
func (in BetInput) Validate() error {
	checks := []struct {
		field string
		value float64
	}{
		{"win probability", in.WinProbability},
		{"unit price", in.UnitPrice},
		{"fee per unit", in.FeePerUnit},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &InvalidInputError{Field: c.field, Value: c.value, Reason: "must be a finite number"}
		}
	}
	if in.WinProbability < 0 {
		return &InvalidInputError{Field: "win probability", Value: in.WinProbability, Reason: "must not be negative"}
	}
	if in.UnitPrice < 0 {
		return &InvalidInputError{Field: "unit price", Value: in.UnitPrice, Reason: "must not be negative"}
	}
	if in.FeePerUnit < 0 {
		return &InvalidInputError{Field: "fee per unit", Value: in.FeePerUnit, Reason: "must not be negative"}
	}
	if in.AdjustedPrice() <= 0 {
		return &InvalidInputError{Field: "adjusted price", Value: in.AdjustedPrice(), Reason: "price plus fee must be positive"}
	}
	return nil
}

// FeeImpact breaks down how much the per-contract fee cost a rejected bet.
type FeeImpact struct {
	EVWithoutFee      float64 // EV percent at the bare contract price
	PointsLost        float64 // EV percentage points consumed by the fee
	MinBetIncreasePct float64 // fee as a percent of the bare contract price
}

// Decision is either a *BetDecision or a *NoBetDecision.
type Decision interface {
	Outcome() Outcome
	// EV is the expected value in percent at the adjusted price.
	EV() float64
	// Amount is the dollars the decision commits; zero for NO BET.
	Amount() float64
	Bet() BetInput

	isDecision()
}

// BetDecision is a positive recommendation sized to whole contracts.
type BetDecision struct {
	Input          BetInput
	EVPercent      float64
	EVPerDollar    float64
	FullKelly      float64
	CappedFraction float64 // fractional Kelly after the max-stake cap
	TargetAmount   float64 // ideal stake before whole-contract rounding
	AdjustedPrice  float64
	Units          int
	ActualAmount   float64 // Units * AdjustedPrice
	UnusedAmount   float64 // TargetAmount - ActualAmount
	StakeFraction  float64 // ActualAmount / bankroll
	ExpectedProfit float64 // ActualAmount * EVPerDollar
}

func (d *BetDecision) Outcome() Outcome { return OutcomeBet }
func (d *BetDecision) EV() float64      { return d.EVPercent }
func (d *BetDecision) Amount() float64  { return d.ActualAmount }
func (d *BetDecision) Bet() BetInput    { return d.Input }
func (d *BetDecision) isDecision()      {}

// NetProfit is what the position returns over its cost if it wins; each
// contract settles at $1.
func (d *BetDecision) NetProfit() float64 {
	return float64(d.Units) - d.ActualAmount
}

// NoBetDecision is a rejection. TargetAmount and AdjustedPrice are set only
// when the rejection happened after sizing.
type NoBetDecision struct {
	Input         BetInput
	Reason        ReasonCode
	Detail        string
	EVPercent     float64
	TargetAmount  float64
	AdjustedPrice float64
	Fee           FeeImpact
}

func (d *NoBetDecision) Outcome() Outcome { return OutcomeNoBet }
func (d *NoBetDecision) EV() float64      { return d.EVPercent }
func (d *NoBetDecision) Amount() float64  { return 0 }
func (d *NoBetDecision) Bet() BetInput    { return d.Input }
func (d *NoBetDecision) isDecision()      {}

// String renders the detail with fee context, e.g. for a report's Reason
// column.
func (d *NoBetDecision) String() string {
	switch {
	case d.Fee.PointsLost > 0.5:
		return fmt.Sprintf("%s [Commission impact: -%.1f%% EV]", d.Detail, d.Fee.PointsLost)
	case d.Fee.MinBetIncreasePct > 5:
		return fmt.Sprintf("%s [Commission adds %.0f%% to min bet]", d.Detail, d.Fee.MinBetIncreasePct)
	default:
		return d.Detail
	}
}
