package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

func sampleAgentOutcome(agentID string) *domain.AgentOutcome {
	return &domain.AgentOutcome{
		RunID:          "run-1",
		AgentID:        agentID,
		Kind:           domain.StrategyAggressive,
		LatencyProfile: "low",
		Attempts:       42,
		Wins:           17,
		Losses:         25,
		RoundsSat:      8,
		SuccessRate:    0.404761,
		GrossProfit:    decimal.RequireFromString("231.0045"),
		NetProfit:      decimal.RequireFromString("188.1245"),
		GasSpent:       decimal.RequireFromString("42.88"),
		FinalBalance0:  decimal.RequireFromString("10188.1245"),
		FinalBalance1:  decimal.NewFromInt(20000),
	}
}

func TestAgentOutcomeStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAgentOutcomeStore(pool)
	ctx := context.Background()

	want := sampleAgentOutcome("agent-1")
	require.NoError(t, store.Insert(ctx, want))

	got, err := store.GetByKey(ctx, "run-1", "agent-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyAggressive, got.Kind)
	assert.Equal(t, "low", got.LatencyProfile)
	assert.Equal(t, want.Attempts, got.Attempts)
	assert.Equal(t, want.Wins, got.Wins)
	assert.Equal(t, want.Losses, got.Losses)
	assert.Equal(t, want.RoundsSat, got.RoundsSat)
	assert.InDelta(t, want.SuccessRate, got.SuccessRate, 1e-9)
	assert.True(t, got.GrossProfit.Equal(want.GrossProfit))
	assert.True(t, got.NetProfit.Equal(want.NetProfit))
	assert.True(t, got.GasSpent.Equal(want.GasSpent))
	assert.True(t, got.FinalBalance0.Equal(want.FinalBalance0))
	assert.True(t, got.FinalBalance1.Equal(want.FinalBalance1))
}

func TestAgentOutcomeStore_Insert_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAgentOutcomeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleAgentOutcome("agent-1")))
	err := store.Insert(ctx, sampleAgentOutcome("agent-1"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAgentOutcomeStore_Insert_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAgentOutcomeStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)

	o := sampleAgentOutcome("agent-1")
	o.AgentID = ""
	assert.ErrorIs(t, store.Insert(ctx, o), storage.ErrInvalidInput)
}

func TestAgentOutcomeStore_GetByKey_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAgentOutcomeStore(pool)

	_, err := store.GetByKey(context.Background(), "run-1", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAgentOutcomeStore_InsertBulk_Atomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAgentOutcomeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleAgentOutcome("agent-1")))

	err := store.InsertBulk(ctx, []*domain.AgentOutcome{
		sampleAgentOutcome("agent-2"),
		sampleAgentOutcome("agent-1"),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// agent-2 from the failed batch must not be visible
	_, err = store.GetByKey(ctx, "run-1", "agent-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAgentOutcomeStore_GetByRun_Ordering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAgentOutcomeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.AgentOutcome{
		sampleAgentOutcome("agent-c"),
		sampleAgentOutcome("agent-a"),
		sampleAgentOutcome("agent-b"),
	}))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "agent-a", got[0].AgentID)
	assert.Equal(t, "agent-b", got[1].AgentID)
	assert.Equal(t, "agent-c", got[2].AgentID)
}
