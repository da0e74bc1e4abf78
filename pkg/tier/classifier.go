// Package tier maps a balance to a discrete operating tier.
package tier

import (
	"github.com/shopspring/decimal"

	"github.com/solvent-ai/solvent/pkg/models"
)

// Classify maps a balance onto the tier ladder. It is pure and total: any
// balance, including a negative one, classifies without error. Increasing
// the balance never worsens the resulting tier.
func Classify(balance decimal.Decimal, t models.ThresholdConfig) models.Tier {
	switch {
	case balance.GreaterThanOrEqual(t.NormalMin):
		return models.TierNormal
	case balance.GreaterThanOrEqual(t.LowComputeMin):
		return models.TierLowCompute
	case balance.GreaterThanOrEqual(t.CriticalMin):
		return models.TierCritical
	default:
		return models.TierDead
	}
}
