// Package monitor polls the balance oracle, derives the operating tier, and
// persists every observation.
package monitor

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solvent-ai/solvent/pkg/models"
	"github.com/solvent-ai/solvent/pkg/oracle"
	"github.com/solvent-ai/solvent/pkg/tier"
)

// HealthProber reports process liveness. Probe failures are reported in the
// transition but never affect the tier computation.
type HealthProber interface {
	Check(ctx context.Context) error
}

// HealthProberFunc adapts a function to the HealthProber interface.
type HealthProberFunc func(ctx context.Context) error

func (f HealthProberFunc) Check(ctx context.Context) error { return f(ctx) }

// StateStore is the persistence boundary the monitor writes through.
type StateStore interface {
	LastObservation(ctx context.Context) (models.Tier, models.FinancialState, bool, error)
	SaveObservation(ctx context.Context, tr models.TierTransition) error
}

// Monitor owns the FinancialState/Tier lifecycle and is the sole writer of
// the last-known-tier record.
type Monitor struct {
	oracle     oracle.Oracle
	prober     HealthProber
	store      StateStore
	address    string
	network    string
	thresholds models.ThresholdConfig

	lastTier  models.Tier
	lastState *models.FinancialState
}

// New creates a Monitor and primes it from the store's last observation so
// the first poll does not report a false change.
func New(ctx context.Context, o oracle.Oracle, p HealthProber, st StateStore, address, network string, thresholds models.ThresholdConfig) (*Monitor, error) {
	m := &Monitor{
		oracle:     o,
		prober:     p,
		store:      st,
		address:    address,
		network:    network,
		thresholds: thresholds,
	}

	last, fs, ok, err := st.LastObservation(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		m.lastTier = last
		m.lastState = &fs
	}
	return m, nil
}

// Poll performs one monitor cycle: query balance, probe health, classify,
// persist, and report the transition. Oracle and probe failures never
// propagate as errors; they degrade the result instead. When the oracle
// fails, the most recent known balance is substituted; with no prior
// observation the tier degrades to dead as a conservative default.
func (m *Monitor) Poll(ctx context.Context) models.TierTransition {
	now := time.Now().UTC()

	balance, err := m.oracle.Balance(ctx, m.address, m.network)
	degraded := false
	if err != nil {
		log.Printf("monitor: balance query failed: %v", err)
		degraded = true
		if m.lastState != nil {
			balance = m.lastState.Balance
		} else {
			balance = decimal.NewFromInt(-1)
		}
	}

	healthOK := true
	if m.prober != nil {
		if err := m.prober.Check(ctx); err != nil {
			log.Printf("monitor: health probe failed: %v", err)
			healthOK = false
		}
	}

	current := tier.Classify(balance, m.thresholds)
	state := models.FinancialState{Balance: balance, ObservedAt: now}

	tr := models.TierTransition{
		Previous:       m.lastTier,
		Current:        current,
		Changed:        m.lastTier != "" && m.lastTier != current,
		State:          state,
		OracleDegraded: degraded,
		HealthOK:       healthOK,
	}
	if m.lastTier == "" {
		// First observation ever: report it as a change into the tier.
		tr.Changed = true
	}

	if err := m.store.SaveObservation(ctx, tr); err != nil {
		log.Printf("monitor: persist observation failed: %v", err)
	}

	m.lastTier = current
	m.lastState = &state
	return tr
}

// Run polls on a fixed interval until ctx is cancelled, invoking
// onTransition after every poll. An immediate poll runs at startup.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, onTransition func(models.TierTransition)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	emit := func() {
		tr := m.Poll(ctx)
		if tr.Changed {
			log.Printf("monitor: tier %s -> %s (balance %s)", tr.Previous, tr.Current, tr.State.Balance)
		}
		if onTransition != nil {
			onTransition(tr)
		}
	}

	emit()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit()
		}
	}
}
