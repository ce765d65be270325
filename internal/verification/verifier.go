// Package verification audits stored runs by replaying them. A run is
// fully determined by its seed, scenario, and configuration, so a replay
// on fresh stores must reproduce the ledger byte for byte; any divergence
// means the stored run was produced by different code or corrupted.
package verification

import (
	"fmt"

	"mev-competition-lab/internal/domain"
)

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // qualified field name, e.g. "result r1.Profit"
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the outcome of auditing one run.
type VerificationResult struct {
	RunID           string
	Match           bool // true if the replayed ledger is identical
	RoundsCompared  int
	ResultsCompared int
	Divergences     []FieldDivergence
}

// CompareTradeResults compares a stored result against its replay.
// Decimals compare by value, not representation.
func CompareTradeResults(stored, replayed *domain.TradeResult) []FieldDivergence {
	var divergences []FieldDivergence
	prefix := fmt.Sprintf("result %s", stored.ResultID)

	diverge := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{
			Field:    fmt.Sprintf("%s.%s", prefix, field),
			Expected: expected,
			Actual:   actual,
		})
	}

	if stored.ResultID != replayed.ResultID {
		diverge("ResultID", stored.ResultID, replayed.ResultID)
	}
	if stored.Round != replayed.Round {
		diverge("Round", stored.Round, replayed.Round)
	}
	if stored.ExecutionIndex != replayed.ExecutionIndex {
		diverge("ExecutionIndex", stored.ExecutionIndex, replayed.ExecutionIndex)
	}
	if stored.AgentID != replayed.AgentID {
		diverge("AgentID", stored.AgentID, replayed.AgentID)
	}
	if stored.RefID != replayed.RefID {
		diverge("RefID", stored.RefID, replayed.RefID)
	}
	if stored.Kind != replayed.Kind {
		diverge("Kind", stored.Kind, replayed.Kind)
	}
	if stored.Success != replayed.Success {
		diverge("Success", stored.Success, replayed.Success)
	}
	if stored.FailReason != replayed.FailReason {
		diverge("FailReason", stored.FailReason, replayed.FailReason)
	}
	if stored.Direction != replayed.Direction {
		diverge("Direction", stored.Direction, replayed.Direction)
	}
	if !stored.AmountIn.Equal(replayed.AmountIn) {
		diverge("AmountIn", stored.AmountIn.String(), replayed.AmountIn.String())
	}
	if !stored.AmountOut.Equal(replayed.AmountOut) {
		diverge("AmountOut", stored.AmountOut.String(), replayed.AmountOut.String())
	}
	if !stored.PriceBefore.Equal(replayed.PriceBefore) {
		diverge("PriceBefore", stored.PriceBefore.String(), replayed.PriceBefore.String())
	}
	if !stored.PriceAfter.Equal(replayed.PriceAfter) {
		diverge("PriceAfter", stored.PriceAfter.String(), replayed.PriceAfter.String())
	}
	if stored.SlippageBps != replayed.SlippageBps {
		diverge("SlippageBps", stored.SlippageBps, replayed.SlippageBps)
	}
	if !stored.Profit.Equal(replayed.Profit) {
		diverge("Profit", stored.Profit.String(), replayed.Profit.String())
	}
	if !stored.GasCost.Equal(replayed.GasCost) {
		diverge("GasCost", stored.GasCost.String(), replayed.GasCost.String())
	}
	if stored.LatencyNs != replayed.LatencyNs {
		diverge("LatencyNs", stored.LatencyNs, replayed.LatencyNs)
	}

	// Submission is deliberately excluded: it reflects the chain adapter
	// at record time, not the simulation.
	return divergences
}

// CompareRoundRecords compares a stored round record against its replay.
func CompareRoundRecords(stored, replayed *domain.RoundRecord) []FieldDivergence {
	var divergences []FieldDivergence
	prefix := fmt.Sprintf("round %d", stored.Round)

	diverge := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{
			Field:    fmt.Sprintf("%s.%s", prefix, field),
			Expected: expected,
			Actual:   actual,
		})
	}

	if stored.IntentCount != replayed.IntentCount {
		diverge("IntentCount", stored.IntentCount, replayed.IntentCount)
	}
	if stored.BidCount != replayed.BidCount {
		diverge("BidCount", stored.BidCount, replayed.BidCount)
	}
	if stored.ExecutedCount != replayed.ExecutedCount {
		diverge("ExecutedCount", stored.ExecutedCount, replayed.ExecutedCount)
	}
	if stored.FailedCount != replayed.FailedCount {
		diverge("FailedCount", stored.FailedCount, replayed.FailedCount)
	}
	if !stored.ExtractedValue.Equal(replayed.ExtractedValue) {
		diverge("ExtractedValue", stored.ExtractedValue.String(), replayed.ExtractedValue.String())
	}
	if stored.VictimLossBps != replayed.VictimLossBps {
		diverge("VictimLossBps", stored.VictimLossBps, replayed.VictimLossBps)
	}

	return divergences
}
