// Package orchestrator runs a whole competition: setup → rounds →
// aggregation. It owns run identity and cancellation; the simulation
// engine owns each round.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mev-competition-lab/internal/chain"
	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/feed"
	"mev-competition-lab/internal/idhash"
	"mev-competition-lab/internal/metrics"
	"mev-competition-lab/internal/pool"
	"mev-competition-lab/internal/simulation"
	"mev-competition-lab/internal/storage"
	"mev-competition-lab/internal/victim"
)

// ErrNoRounds is returned when the configured round count is not positive.
var ErrNoRounds = errors.New("run requires a positive round count")

// Options for creating an Orchestrator.
type Options struct {
	Scenario string
	Seed     int64
	Rounds   int64
	Flags    domain.PolicyFlags

	Pool    domain.PoolConfig
	Agents  []domain.StrategyConfig
	Victims []domain.VictimConfig

	// Source overrides the victim generator; nil builds a seeded
	// generator source from Victims.
	Source feed.IntentSource

	// Interval paces rounds for live runs; zero runs them back to back.
	Interval time.Duration

	// RoundHook observes each committed round (live metrics). Called
	// synchronously; must not mutate the result.
	RoundHook func(*simulation.RoundResult)

	Submitter chain.SubmissionAdapter
	Logger    *zap.Logger

	TradeResultStore storage.TradeResultStore
	RoundStore       storage.RoundStore
	SnapshotStore    storage.PoolSnapshotStore
	OutcomeStore     storage.AgentOutcomeStore
}

// Orchestrator coordinates one run end to end.
type Orchestrator struct {
	opts   Options
	logger *zap.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Orchestrator{opts: opts, logger: opts.Logger}
}

// RunResult contains everything a completed (or cancelled) run produced.
type RunResult struct {
	RunID string

	// RoundsRun is the number of committed rounds; less than configured
	// when the context was cancelled mid-run.
	RoundsRun int64
	Cancelled bool

	Summary  *domain.RunSummary
	Outcomes []*domain.AgentOutcome
}

// Run executes the competition. Cancellation is honored strictly between
// rounds: the committed prefix is aggregated and returned, never discarded.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	if o.opts.Rounds <= 0 {
		return nil, ErrNoRounds
	}

	runID := idhash.ComputeRunID(o.opts.Seed, o.opts.Scenario)
	logger := o.logger.With(zap.String("run_id", runID), zap.String("scenario", o.opts.Scenario))

	machine, err := pool.NewMachine(o.opts.Pool)
	if err != nil {
		return nil, fmt.Errorf("setup pool: %w", err)
	}

	source := o.opts.Source
	if source == nil {
		gen := victim.NewGenerator(o.opts.Victims)
		source = feed.NewGeneratorSource(gen, runID, o.opts.Seed, o.opts.Pool.TargetRatio, machine.State)
	}

	engine, err := simulation.New(simulation.Options{
		RunID:            runID,
		RunSeed:          o.opts.Seed,
		Flags:            o.opts.Flags,
		Machine:          machine,
		PoolConfig:       o.opts.Pool,
		Source:           source,
		Agents:           o.opts.Agents,
		Logger:           logger,
		Submitter:        o.opts.Submitter,
		TradeResultStore: o.opts.TradeResultStore,
		RoundStore:       o.opts.RoundStore,
		SnapshotStore:    o.opts.SnapshotStore,
	})
	if err != nil {
		return nil, fmt.Errorf("setup engine: %w", err)
	}

	logger.Info("run starting",
		zap.Int64("seed", o.opts.Seed),
		zap.Int64("rounds", o.opts.Rounds),
		zap.Int("agents", len(o.opts.Agents)),
		zap.String("policy", string(o.opts.Flags.Ordering)),
	)

	result := &RunResult{RunID: runID}
	for round := int64(0); round < o.opts.Rounds; round++ {
		select {
		case <-ctx.Done():
			logger.Warn("run cancelled", zap.Int64("after_rounds", result.RoundsRun))
			result.Cancelled = true
		default:
		}
		if result.Cancelled {
			break
		}

		roundResult, err := engine.RunRound(ctx, round)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		result.RoundsRun++

		if o.opts.RoundHook != nil {
			o.opts.RoundHook(roundResult)
		}

		if o.opts.Interval > 0 && round < o.opts.Rounds-1 {
			select {
			case <-ctx.Done():
			case <-time.After(o.opts.Interval):
			}
		}
	}

	if err := o.aggregate(ctx, runID, engine, result); err != nil {
		return nil, err
	}

	logger.Info("run finished",
		zap.Int64("rounds_run", result.RoundsRun),
		zap.Bool("cancelled", result.Cancelled),
	)
	return result, nil
}

// aggregate computes per-agent outcomes and the run summary from the
// ledger. Skipped when the run kept no ledger.
func (o *Orchestrator) aggregate(ctx context.Context, runID string, engine *simulation.Engine, result *RunResult) error {
	if o.opts.TradeResultStore == nil || o.opts.RoundStore == nil || result.RoundsRun == 0 {
		return nil
	}

	agg := metrics.NewAggregator(o.opts.TradeResultStore, o.opts.RoundStore, o.opts.OutcomeStore)

	outcomes, err := agg.ComputeOutcomes(ctx, runID, engine.AgentConfigs(), engine.AgentStates())
	if err != nil {
		return fmt.Errorf("aggregate outcomes: %w", err)
	}
	result.Outcomes = outcomes

	summary, err := agg.ComputeSummary(ctx, runID, o.opts.Scenario, o.opts.Seed)
	if err != nil {
		return fmt.Errorf("aggregate summary: %w", err)
	}
	result.Summary = summary
	return nil
}
