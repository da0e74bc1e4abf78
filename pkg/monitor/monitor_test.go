package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/solvent-ai/solvent/pkg/models"
	"github.com/solvent-ai/solvent/pkg/state"
)

type fakeOracle struct {
	balance decimal.Decimal
	err     error
}

func (f *fakeOracle) Balance(ctx context.Context, address, network string) (decimal.Decimal, error) {
	return f.balance, f.err
}

func testThresholds() models.ThresholdConfig {
	return models.ThresholdConfig{
		NormalMin:     decimal.NewFromInt(10),
		LowComputeMin: decimal.NewFromInt(5),
		CriticalMin:   decimal.NewFromInt(1),
	}
}

func setup(t *testing.T, o *fakeOracle) (*Monitor, *state.Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	st, err := state.New(filepath.Join(t.TempDir(), "monitor_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	m, err := New(ctx, o, nil, st, "0xabc", "base", testThresholds())
	if err != nil {
		t.Fatal(err)
	}
	return m, st, ctx
}

func TestPollFirstObservationIsChange(t *testing.T) {
	o := &fakeOracle{balance: decimal.NewFromInt(20)}
	m, _, ctx := setup(t, o)

	tr := m.Poll(ctx)
	if tr.Current != models.TierNormal {
		t.Errorf("expected normal, got %s", tr.Current)
	}
	if !tr.Changed {
		t.Error("first observation should report changed")
	}
	if tr.Previous != "" {
		t.Errorf("expected empty previous, got %s", tr.Previous)
	}
}

func TestPollUnchangedKeepsTimestampFresh(t *testing.T) {
	o := &fakeOracle{balance: decimal.NewFromInt(20)}
	m, st, ctx := setup(t, o)

	first := m.Poll(ctx)
	second := m.Poll(ctx)

	if second.Changed {
		t.Error("same tier should not report changed")
	}
	if second.Previous != models.TierNormal {
		t.Errorf("expected previous normal, got %s", second.Previous)
	}

	_, fs, ok, err := st.LastObservation(ctx)
	if err != nil || !ok {
		t.Fatalf("expected persisted observation, ok=%v err=%v", ok, err)
	}
	if fs.ObservedAt.Before(first.State.ObservedAt) {
		t.Error("persisted timestamp should be refreshed by the second poll")
	}
}

func TestPollTierChange(t *testing.T) {
	o := &fakeOracle{balance: decimal.NewFromInt(20)}
	m, _, ctx := setup(t, o)
	m.Poll(ctx)

	o.balance = decimal.RequireFromString("4.20")
	tr := m.Poll(ctx)
	if !tr.Changed {
		t.Error("tier drop should report changed")
	}
	if tr.Previous != models.TierNormal || tr.Current != models.TierCritical {
		t.Errorf("unexpected transition %s -> %s", tr.Previous, tr.Current)
	}
}

func TestPollOracleFailureReusesLastBalance(t *testing.T) {
	o := &fakeOracle{balance: decimal.NewFromInt(20)}
	m, _, ctx := setup(t, o)
	m.Poll(ctx)

	o.err = errors.New("rpc timeout")
	tr := m.Poll(ctx)
	if !tr.OracleDegraded {
		t.Error("expected degraded result")
	}
	if tr.Current != models.TierNormal {
		t.Errorf("expected tier held at normal, got %s", tr.Current)
	}
	if tr.Changed {
		t.Error("held balance should not report a change")
	}
}

func TestPollOracleFailureWithoutHistoryIsDead(t *testing.T) {
	o := &fakeOracle{err: errors.New("rpc timeout")}
	m, _, ctx := setup(t, o)

	tr := m.Poll(ctx)
	if tr.Current != models.TierDead {
		t.Errorf("expected dead with no prior balance, got %s", tr.Current)
	}
	if !tr.OracleDegraded {
		t.Error("expected degraded result")
	}
}

func TestPollHealthProbeFailureDoesNotAffectTier(t *testing.T) {
	ctx := context.Background()
	st, err := state.New(filepath.Join(t.TempDir(), "monitor_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	o := &fakeOracle{balance: decimal.NewFromInt(20)}
	prober := HealthProberFunc(func(ctx context.Context) error {
		return errors.New("listener down")
	})
	m, err := New(ctx, o, prober, st, "0xabc", "base", testThresholds())
	if err != nil {
		t.Fatal(err)
	}

	tr := m.Poll(ctx)
	if tr.HealthOK {
		t.Error("expected health_ok false")
	}
	if tr.Current != models.TierNormal {
		t.Errorf("probe failure must not affect tier, got %s", tr.Current)
	}
}

func TestRestartDoesNotFakeTransition(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "monitor_test.db")
	st, err := state.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	o := &fakeOracle{balance: decimal.NewFromInt(20)}
	m, err := New(ctx, o, nil, st, "0xabc", "base", testThresholds())
	if err != nil {
		t.Fatal(err)
	}
	m.Poll(ctx)

	// Simulate restart: a fresh monitor over the same store.
	m2, err := New(ctx, o, nil, st, "0xabc", "base", testThresholds())
	if err != nil {
		t.Fatal(err)
	}
	tr := m2.Poll(ctx)
	if tr.Changed {
		t.Error("restart with unchanged tier must not report a transition")
	}
	if tr.Previous != models.TierNormal {
		t.Errorf("expected previous normal after restart, got %s", tr.Previous)
	}
}
