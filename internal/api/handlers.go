package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"wharton/internal/batch"
	"wharton/internal/commission"
	"wharton/internal/performance"
	"wharton/internal/risk"
	"wharton/internal/staking"
)

// Handler serves the staking engine over HTTP.
type Handler struct {
	engine     *staking.Engine
	commission *commission.Manager
	opts       batch.Options
}

func NewHandler(engine *staking.Engine, cm *commission.Manager, opts batch.Options) *Handler {
	return &Handler{engine: engine, commission: cm, opts: opts}
}

// EvaluateRequest asks for a single bet decision. Probability and price may
// be given as percent/cents or as fractions/dollars. FeePerUnit defaults to
// the current commission setting.
type EvaluateRequest struct {
	Label          string   `json:"label,omitempty"`
	Bankroll       float64  `json:"bankroll"`
	WinProbability float64  `json:"win_probability"`
	UnitPrice      float64  `json:"unit_price"`
	FeePerUnit     *float64 `json:"fee_per_unit,omitempty"`
	Margin         *float64 `json:"margin,omitempty"`
}

// AllocateRequest evaluates and allocates a set of bets against one
// bankroll.
type AllocateRequest struct {
	Bankroll   float64     `json:"bankroll"`
	FeePerUnit *float64    `json:"fee_per_unit,omitempty"`
	Bets       []BetRecord `json:"bets"`
}

type BetRecord struct {
	Label          string   `json:"label"`
	WinProbability float64  `json:"win_probability"`
	UnitPrice      float64  `json:"unit_price"`
	Margin         *float64 `json:"margin,omitempty"`
}

// DecisionResponse flattens a staking.Decision. Sizing fields are set for
// BET, Reason and Detail for NO BET.
type DecisionResponse struct {
	Label          string  `json:"label,omitempty"`
	Outcome        string  `json:"outcome"`
	WinProbability float64 `json:"win_probability"`
	UnitPrice      float64 `json:"unit_price"`
	FeePerUnit     float64 `json:"fee_per_unit"`
	AdjustedPrice  float64 `json:"adjusted_price"`
	EVPercent      float64 `json:"ev_percent"`

	FullKelly      float64 `json:"full_kelly,omitempty"`
	CappedFraction float64 `json:"capped_fraction,omitempty"`
	TargetAmount   float64 `json:"target_amount,omitempty"`
	Units          int     `json:"units,omitempty"`
	Amount         float64 `json:"amount,omitempty"`
	UnusedAmount   float64 `json:"unused_amount,omitempty"`
	StakeFraction  float64 `json:"stake_fraction,omitempty"`
	ExpectedProfit float64 `json:"expected_profit,omitempty"`
	NetProfit      float64 `json:"net_profit,omitempty"`

	Reason        string `json:"reason,omitempty"`
	ReasonMessage string `json:"reason_message,omitempty"`
	Detail        string `json:"detail,omitempty"`
}

type AllocationResponse struct {
	DecisionResponse
	Status         risk.Status `json:"status"`
	Final          string      `json:"final"`
	Allocated      float64     `json:"allocated"`
	RemainingAfter float64     `json:"remaining_after"`
}

type AllocateResponse struct {
	RunID   string               `json:"run_id"`
	Results []AllocationResponse `json:"results"`
	Summary *performance.Report  `json:"summary"`
}

// CommissionUpdate changes the commission setting. Reset wins over Rate,
// and Rate over Platform.
type CommissionUpdate struct {
	Platform string   `json:"platform,omitempty"`
	Rate     *float64 `json:"rate,omitempty"`
	Reset    bool     `json:"reset,omitempty"`
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "wharton",
	})
}

// Evaluate decides a single bet.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	fee := h.commission.Rate()
	if req.FeePerUnit != nil {
		fee = *req.FeePerUnit
	}

	in, err := staking.NewBetInput(req.Label, req.WinProbability, req.UnitPrice, fee, req.Margin)
	if err != nil {
		respondErr(w, err)
		return
	}
	d, err := h.engine.EvaluateInput(req.Bankroll, in)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toDecisionResponse(d))
}

// Allocate ranks the bets by EV and distributes the bankroll across them.
func (h *Handler) Allocate(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if len(req.Bets) == 0 {
		respondError(w, http.StatusBadRequest, "bets must not be empty")
		return
	}

	var provider commission.Provider = h.commission.Snapshot()
	if req.FeePerUnit != nil {
		provider = commission.Static{RateValue: *req.FeePerUnit, LabelValue: commission.Custom}
	}

	rows := make([]batch.Row, len(req.Bets))
	for i, b := range req.Bets {
		rows[i] = batch.Row{
			Line:           i + 1,
			Label:          b.Label,
			WinProbability: b.WinProbability,
			UnitPrice:      b.UnitPrice,
			Margin:         b.Margin,
		}
	}

	res, err := batch.Process(r.Context(), rows, req.Bankroll, provider, h.engine, h.opts)
	if err != nil {
		respondErr(w, err)
		return
	}

	out := AllocateResponse{
		RunID:   res.RunID,
		Results: make([]AllocationResponse, len(res.Rows)),
		Summary: performance.Summarize(res),
	}
	for i, row := range res.Rows {
		out.Results[i] = AllocationResponse{
			DecisionResponse: toDecisionResponse(row.Decision),
			Status:           row.Allocation.Status,
			Final:            row.Allocation.String(),
			Allocated:        row.Allocation.Allocated,
			RemainingAfter:   row.Allocation.RemainingAfter,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) GetCommission(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.commission.Info())
}

func (h *Handler) UpdateCommission(w http.ResponseWriter, r *http.Request) {
	var req CommissionUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var err error
	switch {
	case req.Reset:
		h.commission.ResetToDefault()
	case req.Rate != nil:
		err = h.commission.SetRate(*req.Rate, req.Platform)
	case req.Platform != "":
		err = h.commission.SetPlatform(req.Platform)
	default:
		err = errors.New("one of platform, rate or reset is required")
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, h.commission.Info())
}

func toDecisionResponse(d staking.Decision) DecisionResponse {
	in := d.Bet()
	resp := DecisionResponse{
		Label:          in.Label,
		Outcome:        string(d.Outcome()),
		WinProbability: in.WinProbability,
		UnitPrice:      in.UnitPrice,
		FeePerUnit:     in.FeePerUnit,
		AdjustedPrice:  in.AdjustedPrice(),
		EVPercent:      d.EV(),
	}

	switch d := d.(type) {
	case *staking.BetDecision:
		resp.FullKelly = d.FullKelly
		resp.CappedFraction = d.CappedFraction
		resp.TargetAmount = d.TargetAmount
		resp.Units = d.Units
		resp.Amount = d.ActualAmount
		resp.UnusedAmount = d.UnusedAmount
		resp.StakeFraction = d.StakeFraction
		resp.ExpectedProfit = d.ExpectedProfit
		resp.NetProfit = d.NetProfit()
	case *staking.NoBetDecision:
		resp.TargetAmount = d.TargetAmount
		resp.Reason = string(d.Reason)
		resp.ReasonMessage = d.Reason.Message()
		resp.Detail = d.String()
	}
	return resp
}

// respondErr maps invalid input to 400 and anything else to 500.
func respondErr(w http.ResponseWriter, err error) {
	if errors.Is(err, staking.ErrInvalidInput) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Error("request failed", "error", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encoding response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
