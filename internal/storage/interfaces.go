package storage

import (
	"context"

	"mev-competition-lab/internal/domain"
)

// TradeResultStore provides access to the trade_results ledger.
type TradeResultStore interface {
	// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
	Insert(ctx context.Context, r *domain.TradeResult) error

	// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, results []*domain.TradeResult) error

	// GetByID retrieves a result by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, resultID string) (*domain.TradeResult, error)

	// GetByRun retrieves all results for a run, ordered by (round, execution_index) ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.TradeResult, error)

	// GetByRound retrieves one round's results, ordered by execution_index ASC.
	GetByRound(ctx context.Context, runID string, round int64) ([]*domain.TradeResult, error)

	// GetByAgent retrieves a run's results for one agent, ordered by (round, execution_index) ASC.
	GetByAgent(ctx context.Context, runID, agentID string) ([]*domain.TradeResult, error)
}

// RoundStore provides access to round_records storage.
type RoundStore interface {
	// Insert adds a round record. Returns ErrDuplicateKey if (run_id, round) exists.
	Insert(ctx context.Context, r *domain.RoundRecord) error

	// GetByRun retrieves all round records for a run, ordered by round ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.RoundRecord, error)

	// GetByRound retrieves one round record. Returns ErrNotFound if not exists.
	GetByRound(ctx context.Context, runID string, round int64) (*domain.RoundRecord, error)
}

// AgentOutcomeStore provides access to agent_outcomes storage.
type AgentOutcomeStore interface {
	// Insert adds an outcome. Returns ErrDuplicateKey if (run_id, agent_id) exists.
	Insert(ctx context.Context, o *domain.AgentOutcome) error

	// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, outcomes []*domain.AgentOutcome) error

	// GetByKey retrieves one agent's outcome. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, runID, agentID string) (*domain.AgentOutcome, error)

	// GetByRun retrieves all outcomes for a run, ordered by agent_id ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.AgentOutcome, error)
}

// PoolSnapshotStore provides access to pool_snapshots timeseries storage.
type PoolSnapshotStore interface {
	// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (run_id, round).
	InsertBulk(ctx context.Context, snapshots []*domain.PoolSnapshot) error

	// GetByRun retrieves all snapshots for a run, ordered by round ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.PoolSnapshot, error)

	// GetByRoundRange retrieves snapshots within [start, end] (inclusive), ordered by round ASC.
	GetByRoundRange(ctx context.Context, runID string, start, end int64) ([]*domain.PoolSnapshot, error)
}
