package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

func sampleSnapshot(round int64) *domain.PoolSnapshot {
	return &domain.PoolSnapshot{
		RunID: "run1",
		Round: round,
		State: domain.PoolState{
			Reserve0:   decimal.NewFromInt(1000 + round),
			Reserve1:   decimal.NewFromInt(2000),
			FeeRateBps: 30,
			Tick:       6931,
		},
	}
}

func TestPoolSnapshotStore_InsertBulkAndRange(t *testing.T) {
	store := NewPoolSnapshotStore()
	ctx := context.Background()

	batch := []*domain.PoolSnapshot{
		sampleSnapshot(3), sampleSnapshot(1), sampleSnapshot(2), sampleSnapshot(10),
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRoundRange(ctx, "run1", 1, 3)
	if err != nil {
		t.Fatalf("GetByRoundRange failed: %v", err)
	}
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %d snapshots, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.Round != want[i] {
			t.Errorf("position %d: round %d, want %d", i, p.Round, want[i])
		}
	}

	all, err := store.GetByRun(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("GetByRun returned %d snapshots, want 4", len(all))
	}
}

func TestPoolSnapshotStore_DuplicateRound(t *testing.T) {
	store := NewPoolSnapshotStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.PoolSnapshot{sampleSnapshot(1)}); err != nil {
		t.Fatalf("first batch failed: %v", err)
	}
	err := store.InsertBulk(ctx, []*domain.PoolSnapshot{sampleSnapshot(2), sampleSnapshot(1)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	// Round 2 from the failed batch must not be visible.
	got, _ := store.GetByRun(ctx, "run1")
	if len(got) != 1 {
		t.Errorf("failed batch leaked rows: %d snapshots stored", len(got))
	}
}
