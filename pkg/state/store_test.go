package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solvent-ai/solvent/pkg/models"
)

func setup(t *testing.T) (*Store, context.Context) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state_test.db")
	st, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st, context.Background()
}

func TestLastObservationEmpty(t *testing.T) {
	st, ctx := setup(t)

	_, _, ok, err := st.LastObservation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no observation in fresh store")
	}
}

func TestSaveAndLoadObservation(t *testing.T) {
	st, ctx := setup(t)

	first := models.TierTransition{
		Current:  models.TierNormal,
		Changed:  true,
		HealthOK: true,
		State: models.FinancialState{
			Balance:    decimal.RequireFromString("12.50"),
			ObservedAt: time.Now().UTC(),
		},
	}
	if err := st.SaveObservation(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := first
	second.Current = models.TierLowCompute
	second.State.Balance = decimal.RequireFromString("7.25")
	second.State.ObservedAt = first.State.ObservedAt.Add(time.Minute)
	if err := st.SaveObservation(ctx, second); err != nil {
		t.Fatal(err)
	}

	tier, fs, ok, err := st.LastObservation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected an observation")
	}
	if tier != models.TierLowCompute {
		t.Errorf("expected low_compute, got %s", tier)
	}
	if !fs.Balance.Equal(decimal.RequireFromString("7.25")) {
		t.Errorf("expected balance 7.25, got %s", fs.Balance)
	}
}

func TestEarningsTotals(t *testing.T) {
	st, ctx := setup(t)

	for i, amt := range []string{"0.001", "0.001", "0.05"} {
		svc := "/api/chat"
		if i == 2 {
			svc = "/api/analyze"
		}
		err := st.AppendEarning(ctx, models.EarningEntry{
			ID:         "e" + svc + string(rune('a'+i)),
			Service:    svc,
			Amount:     decimal.RequireFromString(amt),
			RecordedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	snap, err := st.EarningsTotals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.ByService["/api/chat"].Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("chat total = %s, want 0.002", snap.ByService["/api/chat"])
	}
	if !snap.Total.Equal(decimal.RequireFromString("0.052")) {
		t.Errorf("grand total = %s, want 0.052", snap.Total)
	}
}

func TestRedeemOnce(t *testing.T) {
	st, ctx := setup(t)

	ok, err := st.Redeem(ctx, "nonce-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("first redeem should succeed")
	}

	ok, err = st.Redeem(ctx, "nonce-1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("second redeem of same nonce must fail")
	}
}
