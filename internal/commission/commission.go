// Package commission supplies the per-contract fee charged by a betting
// platform. The staking engine takes the fee as a plain number; this package
// owns where that number comes from and how a user's choice is remembered.
package commission

import (
	"fmt"
	"math"
	"sort"
)

// Provider supplies the current fee per contract and a label naming its
// source. Callers read it once per batch.
type Provider interface {
	Rate() float64
	Label() string
}

// Static is a fixed Provider.
type Static struct {
	RateValue  float64
	LabelValue string
}

func (s Static) Rate() float64 { return s.RateValue }
func (s Static) Label() string { return s.LabelValue }

// Custom labels a user-entered rate that matches no preset.
const Custom = "Custom"

// Platform presets, in dollars per contract.
var presets = map[string]float64{
	"Robinhood":  0.02,
	"Kalshi":     0.00,
	"PredictIt":  0.10,
	"Polymarket": 0.00,
}

// Presets returns a copy of the known platform rates.
func Presets() map[string]float64 {
	out := make(map[string]float64, len(presets))
	for k, v := range presets {
		out[k] = v
	}
	return out
}

// PresetNames returns the preset platforms in alphabetical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for k := range presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// PresetRate looks up a platform's rate.
func PresetRate(platform string) (float64, bool) {
	rate, ok := presets[platform]
	return rate, ok
}

// ValidateRate reports whether rate is a usable fee.
func ValidateRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return fmt.Errorf("commission rate must be between $0.00 and $1.00, got %v", rate)
	}
	return nil
}
