// Package metrics turns a committed ledger into per-agent outcomes and a
// run-level summary.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

// ErrNoRounds is returned when a run has no committed rounds to aggregate.
var ErrNoRounds = errors.New("no rounds available for aggregation")

// Aggregator computes run aggregates from the ledger.
type Aggregator struct {
	resultStore  storage.TradeResultStore
	roundStore   storage.RoundStore
	outcomeStore storage.AgentOutcomeStore // optional; nil skips persistence
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(resultStore storage.TradeResultStore, roundStore storage.RoundStore, outcomeStore storage.AgentOutcomeStore) *Aggregator {
	return &Aggregator{
		resultStore:  resultStore,
		roundStore:   roundStore,
		outcomeStore: outcomeStore,
	}
}

// ComputeOutcomes builds one AgentOutcome per agent from the agent's final
// state and its slice of the ledger, and persists them when an outcome
// store is wired. Configs and states come from the engine, sorted by agent
// ID, index-aligned.
func (a *Aggregator) ComputeOutcomes(ctx context.Context, runID string, configs []domain.StrategyConfig, states []domain.AgentState) ([]*domain.AgentOutcome, error) {
	if len(configs) != len(states) {
		return nil, fmt.Errorf("configs/states length mismatch: %d vs %d", len(configs), len(states))
	}

	outcomes := make([]*domain.AgentOutcome, 0, len(states))
	for i := range states {
		st := &states[i]
		results, err := a.resultStore.GetByAgent(ctx, runID, st.AgentID)
		if err != nil {
			return nil, fmt.Errorf("load results for %s: %w", st.AgentID, err)
		}
		totals := computeTotals(results)

		outcomes = append(outcomes, &domain.AgentOutcome{
			RunID:          runID,
			AgentID:        st.AgentID,
			Kind:           st.Kind,
			LatencyProfile: configs[i].LatencyProfile,
			Attempts:       st.Attempts,
			Wins:           st.Wins,
			Losses:         st.Losses,
			RoundsSat:      st.RoundsSat,
			SuccessRate:    st.SuccessRate(),
			GrossProfit:    totals.gross,
			NetProfit:      totals.net(),
			GasSpent:       totals.gas,
			FinalBalance0:  st.Balance0,
			FinalBalance1:  st.Balance1,
		})
	}

	if a.outcomeStore != nil {
		if err := a.outcomeStore.InsertBulk(ctx, outcomes); err != nil {
			return nil, fmt.Errorf("persist agent outcomes: %w", err)
		}
	}

	return outcomes, nil
}

// ComputeSummary aggregates the run's round records and victim results
// into a single RunSummary. Value destroyed is the victim loss the
// extracted profit does not account for: fees and price impact burned in
// the round trips.
func (a *Aggregator) ComputeSummary(ctx context.Context, runID, scenario string, seed int64) (*domain.RunSummary, error) {
	rounds, err := a.roundStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load round records: %w", err)
	}
	if len(rounds) == 0 {
		return nil, ErrNoRounds
	}

	summary := &domain.RunSummary{
		RunID:    runID,
		Scenario: scenario,
		Seed:     seed,
		Rounds:   int64(len(rounds)),
	}

	extracted := decimal.Zero
	var lossBpsTotal int64
	var lossRounds int64
	for _, rec := range rounds {
		summary.IntentCount += rec.IntentCount
		summary.BidCount += rec.BidCount
		summary.ExecutedCount += rec.ExecutedCount
		summary.FailedCount += rec.FailedCount
		extracted = extracted.Add(rec.ExtractedValue)
		if rec.VictimLossBps > 0 {
			lossBpsTotal += rec.VictimLossBps
			lossRounds++
		}
	}
	summary.ExtractedValue = extracted
	if lossRounds > 0 {
		summary.VictimLossBps = lossBpsTotal / lossRounds
	}

	results, err := a.resultStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trade results: %w", err)
	}
	victimLoss := sumVictimLoss(results)
	summary.ValueDestroyed = victimLoss.Sub(extracted)

	return summary, nil
}
