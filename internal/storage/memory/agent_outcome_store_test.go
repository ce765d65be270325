package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

func sampleOutcome(agentID string) *domain.AgentOutcome {
	return &domain.AgentOutcome{
		RunID:       "run1",
		AgentID:     agentID,
		Kind:        domain.StrategyAggressive,
		Attempts:    10,
		Wins:        7,
		Losses:      3,
		SuccessRate: 0.7,
		NetProfit:   decimal.NewFromInt(42),
	}
}

func TestAgentOutcomeStore_InsertAndGet(t *testing.T) {
	store := NewAgentOutcomeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, sampleOutcome("agent-1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByKey(ctx, "run1", "agent-1")
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if got.Wins != 7 || !got.NetProfit.Equal(decimal.NewFromInt(42)) {
		t.Errorf("outcome mismatch: %+v", got)
	}
}

func TestAgentOutcomeStore_DuplicateKey(t *testing.T) {
	store := NewAgentOutcomeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, sampleOutcome("agent-1")); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, sampleOutcome("agent-1")); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestAgentOutcomeStore_GetByRunOrdering(t *testing.T) {
	store := NewAgentOutcomeStore()
	ctx := context.Background()

	batch := []*domain.AgentOutcome{
		sampleOutcome("agent-c"),
		sampleOutcome("agent-a"),
		sampleOutcome("agent-b"),
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRun(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	want := []string{"agent-a", "agent-b", "agent-c"}
	for i, o := range got {
		if o.AgentID != want[i] {
			t.Errorf("position %d: agent %s, want %s", i, o.AgentID, want[i])
		}
	}
}

func TestAgentOutcomeStore_BulkAtomicity(t *testing.T) {
	store := NewAgentOutcomeStore()
	ctx := context.Background()

	batch := []*domain.AgentOutcome{
		sampleOutcome("agent-1"),
		sampleOutcome("agent-1"),
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByKey(ctx, "run1", "agent-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("failed batch leaked rows")
	}
}
