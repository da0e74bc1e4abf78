// Package payment builds x402 payment challenges and verifies the payment
// assertions presented against them.
package payment

import (
	"github.com/shopspring/decimal"

	"github.com/solvent-ai/solvent/pkg/models"
)

// SchemeExact is the only settlement scheme the gate advertises.
const SchemeExact = "exact"

// usdcAtomicFactor converts fractional-dollar prices to USDC's six-decimal
// atomic base units.
var usdcAtomicFactor = decimal.New(1, 6)

// AtomicAmount converts a USDC price to atomic units, rounding up so a
// fractional remainder never undercharges.
func AtomicAmount(priceUSDC decimal.Decimal) decimal.Decimal {
	return priceUSDC.Mul(usdcAtomicFactor).Ceil()
}

// Terms is the static configuration a challenge is built from.
type Terms struct {
	Network         string
	PayToAddress    string
	USDCAddress     string
	DeadlineSeconds int
}

// ChallengeFor constructs the 402 challenge for one priced service.
func ChallengeFor(priceUSDC decimal.Decimal, terms Terms) models.PaymentChallenge {
	return models.PaymentChallenge{
		X402Version: models.X402Version,
		Accepts: []models.PaymentRequirement{{
			Scheme:                  SchemeExact,
			Network:                 terms.Network,
			MaxAmountRequired:       AtomicAmount(priceUSDC).String(),
			PayToAddress:            terms.PayToAddress,
			RequiredDeadlineSeconds: terms.DeadlineSeconds,
			USDCAddress:             terms.USDCAddress,
		}},
	}
}
