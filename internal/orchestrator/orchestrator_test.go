package orchestrator

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/chain"
	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/simulation"
	"mev-competition-lab/internal/storage/memory"
	"mev-competition-lab/internal/victim"
)

func testOptions(seed int64) Options {
	return Options{
		Scenario: "baseline",
		Seed:     seed,
		Rounds:   25,
		Flags:    domain.PolicyFlags{Ordering: domain.PolicyUnrestricted},
		Pool: domain.PoolConfig{
			FeeRateBps:      30,
			InitialReserve0: decimal.NewFromInt(10_000),
			InitialReserve1: decimal.NewFromInt(20_000),
			TargetRatio:     decimal.NewFromInt(2),
		},
		Agents: []domain.StrategyConfig{
			{
				AgentID:            "agg-1",
				Kind:               domain.StrategyAggressive,
				BidPercentage:      60,
				MinProfitThreshold: decimal.RequireFromString("0.01"),
				LatencyProfile:     "low",
				AllowSandwich:      true,
				InitialBalance0:    decimal.NewFromInt(50_000),
				InitialBalance1:    decimal.NewFromInt(100_000),
				GasCostPerTrade:    decimal.RequireFromString("0.01"),
			},
			{
				AgentID:               "corr-1",
				Kind:                  domain.StrategyBackrunOnly,
				BidPercentage:         40,
				MonitorPriceDeviation: 0.003,
				LatencyProfile:        "medium",
				InitialBalance0:       decimal.NewFromInt(50_000),
				InitialBalance1:       decimal.NewFromInt(100_000),
				GasCostPerTrade:       decimal.RequireFromString("0.01"),
			},
		},
		Victims: []domain.VictimConfig{
			victim.DefaultConfig("retail-1", domain.VictimRetail),
			victim.DefaultConfig("dca-1", domain.VictimDCA),
		},
		Submitter:        chain.NopAdapter{},
		TradeResultStore: memory.NewTradeResultStore(),
		RoundStore:       memory.NewRoundStore(),
		SnapshotStore:    memory.NewPoolSnapshotStore(),
		OutcomeStore:     memory.NewAgentOutcomeStore(),
	}
}

func TestOrchestrator_Run(t *testing.T) {
	opts := testOptions(99)
	result, err := New(opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.RunID == "" {
		t.Fatal("empty run ID")
	}
	if result.RoundsRun != 25 || result.Cancelled {
		t.Fatalf("rounds run = %d cancelled = %v", result.RoundsRun, result.Cancelled)
	}
	if result.Summary == nil {
		t.Fatal("no summary")
	}
	if result.Summary.Rounds != 25 {
		t.Errorf("summary rounds = %d", result.Summary.Rounds)
	}
	if result.Summary.IntentCount == 0 {
		t.Error("no victim flow over 25 rounds")
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(result.Outcomes))
	}

	// Outcomes persisted and sorted by agent ID.
	stored, err := opts.OutcomeStore.GetByRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("GetByRun: %v", err)
	}
	if len(stored) != 2 || stored[0].AgentID != "agg-1" {
		t.Errorf("persisted outcomes: %+v", stored)
	}

	// NopAdapter confirms every landed item.
	results, err := opts.TradeResultStore.GetByRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("results GetByRun: %v", err)
	}
	for _, r := range results {
		if r.Submission != domain.SubmissionConfirmed {
			t.Errorf("result %s submission = %s, want confirmed", r.ResultID, r.Submission)
		}
	}
}

func TestOrchestrator_DeterministicAcrossRuns(t *testing.T) {
	run := func() []*domain.AgentOutcome {
		result, err := New(testOptions(7)).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return result.Outcomes
	}

	if !reflect.DeepEqual(run(), run()) {
		t.Error("identical seeds produced different outcomes")
	}
}

func TestOrchestrator_CancelledRunKeepsPrefix(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(testOptions(3)).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Cancelled {
		t.Error("run not marked cancelled")
	}
	if result.RoundsRun != 0 {
		t.Errorf("rounds run = %d, want 0", result.RoundsRun)
	}
	if result.Summary != nil {
		t.Error("no rounds committed, summary should be nil")
	}
}

func TestOrchestrator_Validation(t *testing.T) {
	opts := testOptions(1)
	opts.Rounds = 0
	if _, err := New(opts).Run(context.Background()); !errors.Is(err, ErrNoRounds) {
		t.Errorf("got %v, want ErrNoRounds", err)
	}

	opts = testOptions(1)
	opts.Pool.InitialReserve0 = decimal.Zero
	if _, err := New(opts).Run(context.Background()); err == nil {
		t.Error("bad pool config should fail setup")
	}
}

func TestOrchestrator_RoundHook(t *testing.T) {
	opts := testOptions(9)
	opts.Rounds = 5
	opts.Interval = time.Millisecond

	var hookRounds []int64
	opts.RoundHook = func(res *simulation.RoundResult) {
		hookRounds = append(hookRounds, res.Round)
	}

	result, err := New(opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RoundsRun != 5 {
		t.Fatalf("rounds run = %d, want 5", result.RoundsRun)
	}
	if len(hookRounds) != 5 {
		t.Fatalf("hook called %d times, want 5", len(hookRounds))
	}
	for i, round := range hookRounds {
		if round != int64(i) {
			t.Errorf("hook round %d = %d, want in order", i, round)
		}
	}
}
