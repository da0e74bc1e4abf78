package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EarningEntry is one confirmed payment for a delivered service.
type EarningEntry struct {
	ID         string          `json:"id"`
	Service    string          `json:"service"`
	Amount     decimal.Decimal `json:"amount"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// EarningsSnapshot is a point-in-time view of the in-process ledger.
type EarningsSnapshot struct {
	ByService map[string]decimal.Decimal `json:"by_service"`
	Total     decimal.Decimal            `json:"total"`
}
