// Package tracker keeps the running ledger of confirmed earnings.
package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solvent-ai/solvent/pkg/models"
)

// EarningsStore optionally persists earning rows behind the in-process
// ledger. Persistence is best effort; the ledger itself never fails.
type EarningsStore interface {
	AppendEarning(ctx context.Context, e models.EarningEntry) error
}

// RevenueTracker is the append-only earnings ledger for the process
// lifetime. Record never fails and is deliberately not idempotent.
type RevenueTracker struct {
	mu        sync.Mutex
	byService map[string]decimal.Decimal
	total     decimal.Decimal
	store     EarningsStore
}

// New creates a RevenueTracker. store may be nil for a purely in-memory
// ledger.
func New(store EarningsStore) *RevenueTracker {
	return &RevenueTracker{
		byService: make(map[string]decimal.Decimal),
		store:     store,
	}
}

// Record adds one confirmed earning for a service. Each call adds; two
// identical calls credit twice.
func (t *RevenueTracker) Record(ctx context.Context, serviceKey string, amount decimal.Decimal) {
	t.mu.Lock()
	t.byService[serviceKey] = t.byService[serviceKey].Add(amount)
	t.total = t.total.Add(amount)
	t.mu.Unlock()

	if t.store != nil {
		entry := models.EarningEntry{
			ID:         uuid.NewString(),
			Service:    serviceKey,
			Amount:     amount,
			RecordedAt: time.Now().UTC(),
		}
		if err := t.store.AppendEarning(ctx, entry); err != nil {
			log.Printf("tracker: persist earning failed: %v", err)
		}
	}
}

// Snapshot returns a read-only copy of the ledger at call time.
func (t *RevenueTracker) Snapshot() models.EarningsSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	byService := make(map[string]decimal.Decimal, len(t.byService))
	for k, v := range t.byService {
		byService[k] = v
	}
	return models.EarningsSnapshot{ByService: byService, Total: t.total}
}
