// Package detector evaluates MEV opportunities for one agent against an
// immutable pool snapshot. Detectors never mutate pool state; they produce
// speculative quotes through the curve engine and at most one bid per round.
package detector

import (
	"context"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/latency"
)

// Detector produces bids from pool snapshots.
type Detector interface {
	// Evaluate inspects the round's victim intent against the pool
	// snapshot. Returns nil when no profitable, policy-allowed
	// opportunity exists; that is the common case, not an error.
	Evaluate(ctx context.Context, input *Input) (*domain.Bid, error)

	// ID returns the detector identifier (includes parameters).
	ID() string
}

// Input holds everything one evaluation reads.
type Input struct {
	RunID string
	Round int64

	Agent      *domain.AgentState
	Config     domain.StrategyConfig
	Pool       domain.PoolState
	PoolConfig domain.PoolConfig

	// Intent is the victim trade visible this round. Nil when the round
	// has no victim flow; harmful detectors then sit out.
	Intent *domain.TradeIntent

	// Latency is this agent's sampled pipeline traversal for the round.
	Latency latency.AgentLatency
}
