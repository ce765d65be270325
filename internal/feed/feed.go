// Package feed supplies victim intents to the round loop. The simulation
// engine does not care where intents come from: a seeded generator replays
// identically, a websocket source streams live flow.
package feed

import (
	"context"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/victim"
)

// IntentSource yields the victim intents visible in one round.
type IntentSource interface {
	// Next returns the intents for the given round. An empty slice is a
	// quiet round, not an error.
	Next(ctx context.Context, round int64) ([]domain.TradeIntent, error)
}

// GeneratorSource adapts victim.Generator to the IntentSource interface.
// Generation reads the live pool state through the snapshot func so
// arbitrage victims can trade toward the target.
type GeneratorSource struct {
	gen      *victim.Generator
	runID    string
	runSeed  int64
	target   decimal.Decimal
	snapshot func() domain.PoolState
}

// NewGeneratorSource creates a seeded intent source over the configured victims.
func NewGeneratorSource(gen *victim.Generator, runID string, runSeed int64, target decimal.Decimal, snapshot func() domain.PoolState) *GeneratorSource {
	return &GeneratorSource{
		gen:      gen,
		runID:    runID,
		runSeed:  runSeed,
		target:   target,
		snapshot: snapshot,
	}
}

// Next draws this round's intents. Deterministic per (runSeed, round).
func (s *GeneratorSource) Next(_ context.Context, round int64) ([]domain.TradeIntent, error) {
	return s.gen.IntentsForRound(s.runID, s.runSeed, round, s.snapshot(), s.target), nil
}

// Compile-time interface check.
var _ IntentSource = (*GeneratorSource)(nil)
