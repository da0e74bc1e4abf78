package tracker

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRecordAccumulates(t *testing.T) {
	tr := New(nil)
	ctx := context.Background()

	tr.Record(ctx, "/api/chat", decimal.RequireFromString("0.001"))
	tr.Record(ctx, "/api/chat", decimal.RequireFromString("0.001"))
	tr.Record(ctx, "/api/analyze", decimal.RequireFromString("0.05"))

	snap := tr.Snapshot()
	if !snap.ByService["/api/chat"].Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("chat = %s, want 0.002", snap.ByService["/api/chat"])
	}
	if !snap.Total.Equal(decimal.RequireFromString("0.052")) {
		t.Errorf("total = %s, want 0.052", snap.Total)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := New(nil)
	ctx := context.Background()

	tr.Record(ctx, "/api/chat", decimal.NewFromInt(1))
	snap := tr.Snapshot()
	snap.ByService["/api/chat"] = decimal.NewFromInt(99)

	if !tr.Snapshot().ByService["/api/chat"].Equal(decimal.NewFromInt(1)) {
		t.Error("snapshot mutation leaked into the ledger")
	}
}

func TestConcurrentRecord(t *testing.T) {
	tr := New(nil)
	ctx := context.Background()
	amount := decimal.RequireFromString("0.001")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(ctx, "/api/chat", amount)
		}()
	}
	wg.Wait()

	snap := tr.Snapshot()
	if !snap.Total.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("total = %s, want 0.1", snap.Total)
	}
}
