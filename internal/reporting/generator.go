package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

// topRoundsLimit caps the hottest-rounds table.
const topRoundsLimit = 10

// Generator produces run reports from stored ledger data.
type Generator struct {
	resultStore  storage.TradeResultStore
	roundStore   storage.RoundStore
	outcomeStore storage.AgentOutcomeStore
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	resultStore storage.TradeResultStore,
	roundStore storage.RoundStore,
	outcomeStore storage.AgentOutcomeStore,
) *Generator {
	return &Generator{
		resultStore:  resultStore,
		roundStore:   roundStore,
		outcomeStore: outcomeStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report for one run.
func (g *Generator) Generate(ctx context.Context, summary *domain.RunSummary) (*Report, error) {
	if summary == nil {
		return nil, fmt.Errorf("generate report: nil summary")
	}

	outcomes, err := g.outcomeStore.GetByRun(ctx, summary.RunID)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}

	rounds, err := g.roundStore.GetByRun(ctx, summary.RunID)
	if err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}

	return &Report{
		GeneratedAt: g.now(),
		RunID:       summary.RunID,
		Scenario:    summary.Scenario,
		Seed:        summary.Seed,
		Rounds:      summary.Rounds,
		Summary: SummarySection{
			IntentCount:    summary.IntentCount,
			BidCount:       summary.BidCount,
			ExecutedCount:  summary.ExecutedCount,
			FailedCount:    summary.FailedCount,
			ExtractedValue: summary.ExtractedValue.InexactFloat64(),
			VictimLossBps:  summary.VictimLossBps,
			ValueDestroyed: summary.ValueDestroyed.InexactFloat64(),
		},
		Agents:    buildAgentRows(outcomes),
		TopRounds: buildTopRounds(rounds),
	}, nil
}

// Results loads the raw ledger for CSV export, ordered by
// (round, execution_index).
func (g *Generator) Results(ctx context.Context, runID string) ([]*domain.TradeResult, error) {
	results, err := g.resultStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	return results, nil
}

// buildAgentRows converts stored outcomes to report rows. Store order
// (agent_id ascending) is preserved.
func buildAgentRows(outcomes []*domain.AgentOutcome) []AgentRow {
	rows := make([]AgentRow, len(outcomes))
	for i, o := range outcomes {
		rows[i] = AgentRow{
			AgentID:        o.AgentID,
			Kind:           string(o.Kind),
			LatencyProfile: o.LatencyProfile,
			Attempts:       o.Attempts,
			Wins:           o.Wins,
			Losses:         o.Losses,
			RoundsSat:      o.RoundsSat,
			SuccessRate:    o.SuccessRate,
			GrossProfit:    o.GrossProfit.InexactFloat64(),
			NetProfit:      o.NetProfit.InexactFloat64(),
			GasSpent:       o.GasSpent.InexactFloat64(),
			FinalBalance0:  o.FinalBalance0.InexactFloat64(),
			FinalBalance1:  o.FinalBalance1.InexactFloat64(),
		}
	}
	return rows
}

// buildTopRounds picks the rounds with positive extraction, highest
// first, ties broken by round number for stable output.
func buildTopRounds(records []*domain.RoundRecord) []RoundRow {
	var rows []RoundRow
	for _, rec := range records {
		if !rec.ExtractedValue.IsPositive() {
			continue
		}
		rows = append(rows, RoundRow{
			Round:          rec.Round,
			IntentCount:    rec.IntentCount,
			BidCount:       rec.BidCount,
			ExecutedCount:  rec.ExecutedCount,
			FailedCount:    rec.FailedCount,
			ExtractedValue: rec.ExtractedValue.InexactFloat64(),
			VictimLossBps:  rec.VictimLossBps,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ExtractedValue != rows[j].ExtractedValue {
			return rows[i].ExtractedValue > rows[j].ExtractedValue
		}
		return rows[i].Round < rows[j].Round
	})

	if len(rows) > topRoundsLimit {
		rows = rows[:topRoundsLimit]
	}
	return rows
}
