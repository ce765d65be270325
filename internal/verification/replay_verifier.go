package verification

import (
	"context"
	"errors"
	"fmt"

	"mev-competition-lab/internal/chain"
	"mev-competition-lab/internal/idhash"
	"mev-competition-lab/internal/orchestrator"
	"mev-competition-lab/internal/storage"
	"mev-competition-lab/internal/storage/memory"
)

// ErrRunNotFound is returned when the stored ledger has no rounds for
// the run being verified.
var ErrRunNotFound = errors.New("run not found in stored ledger")

// ReplayVerifier audits a stored run by re-executing it on fresh
// in-memory stores and diffing the two ledgers.
type ReplayVerifier struct {
	resultStore storage.TradeResultStore
	roundStore  storage.RoundStore
}

// NewReplayVerifier creates a verifier reading the stored ledger from
// the given stores.
func NewReplayVerifier(resultStore storage.TradeResultStore, roundStore storage.RoundStore) *ReplayVerifier {
	return &ReplayVerifier{
		resultStore: resultStore,
		roundStore:  roundStore,
	}
}

// VerifyRun replays a run from its configuration and compares the
// replayed ledger against the stored one. The options must carry the
// original seed, scenario, rounds, policy flags, pool, agents, and
// victims; store and submitter fields are ignored.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, opts orchestrator.Options) (*VerificationResult, error) {
	runID := idhash.ComputeRunID(opts.Seed, opts.Scenario)

	storedRounds, err := v.roundStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load stored rounds: %w", err)
	}
	if len(storedRounds) == 0 {
		return nil, ErrRunNotFound
	}
	storedResults, err := v.resultStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load stored results: %w", err)
	}

	// Replay on isolated stores so the audit never touches the ledger.
	replayResults := memory.NewTradeResultStore()
	replayRounds := memory.NewRoundStore()
	opts.Source = nil
	opts.Submitter = chain.NopAdapter{}
	opts.Logger = nil
	opts.TradeResultStore = replayResults
	opts.RoundStore = replayRounds
	opts.SnapshotStore = memory.NewPoolSnapshotStore()
	opts.OutcomeStore = nil
	opts.Interval = 0
	opts.RoundHook = nil
	opts.Rounds = int64(len(storedRounds))

	if _, err := orchestrator.New(opts).Run(ctx); err != nil {
		return nil, fmt.Errorf("replay run: %w", err)
	}

	replayedRounds, err := replayRounds.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load replayed rounds: %w", err)
	}
	replayedResults, err := replayResults.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load replayed results: %w", err)
	}

	result := &VerificationResult{
		RunID:           runID,
		RoundsCompared:  len(storedRounds),
		ResultsCompared: len(storedResults),
	}

	if len(replayedRounds) != len(storedRounds) {
		result.Divergences = append(result.Divergences, FieldDivergence{
			Field:    "round count",
			Expected: len(storedRounds),
			Actual:   len(replayedRounds),
		})
	} else {
		for i := range storedRounds {
			result.Divergences = append(result.Divergences,
				CompareRoundRecords(storedRounds[i], replayedRounds[i])...)
		}
	}

	if len(replayedResults) != len(storedResults) {
		result.Divergences = append(result.Divergences, FieldDivergence{
			Field:    "result count",
			Expected: len(storedResults),
			Actual:   len(replayedResults),
		})
	} else {
		for i := range storedResults {
			result.Divergences = append(result.Divergences,
				CompareTradeResults(storedResults[i], replayedResults[i])...)
		}
	}

	result.Match = len(result.Divergences) == 0
	return result, nil
}
