package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is the discrete operating mode derived from the agent's balance.
type Tier string

const (
	TierNormal     Tier = "normal"
	TierLowCompute Tier = "low_compute"
	TierCritical   Tier = "critical"
	TierDead       Tier = "dead"
)

// Distress returns the tier's position in the distress ordering.
// Higher means worse.
func (t Tier) Distress() int {
	switch t {
	case TierNormal:
		return 0
	case TierLowCompute:
		return 1
	case TierCritical:
		return 2
	default:
		return 3
	}
}

// FinancialState is a point-in-time balance observation. It is produced
// fresh on every monitor poll and never mutated in place.
type FinancialState struct {
	Balance    decimal.Decimal `json:"balance"`
	ObservedAt time.Time       `json:"observed_at"`
}

// ThresholdConfig defines the balance boundaries between tiers.
// NormalMin > LowComputeMin > CriticalMin >= 0.
type ThresholdConfig struct {
	NormalMin     decimal.Decimal `json:"normal_min" yaml:"normal_min"`
	LowComputeMin decimal.Decimal `json:"low_compute_min" yaml:"low_compute_min"`
	CriticalMin   decimal.Decimal `json:"critical_min" yaml:"critical_min"`
}

// TierTransition describes the outcome of a single monitor poll.
type TierTransition struct {
	Previous Tier           `json:"previous,omitempty"`
	Current  Tier           `json:"current"`
	Changed  bool           `json:"changed"`
	State    FinancialState `json:"state"`

	// OracleDegraded is set when the balance query failed and the poll fell
	// back to the last known balance (or to dead with no prior observation).
	OracleDegraded bool `json:"oracle_degraded,omitempty"`
	// HealthOK reports the liveness probe result. Probe failures never affect
	// the tier computation.
	HealthOK bool `json:"health_ok"`
}
