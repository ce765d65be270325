package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a run report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Run Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s` | Scenario: %s | Seed: %d | Rounds: %d\n\n",
		r.RunID, r.Scenario, r.Seed, r.Rounds))

	// Run Summary
	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Intents | %d |\n", r.Summary.IntentCount))
	sb.WriteString(fmt.Sprintf("| Bids | %d |\n", r.Summary.BidCount))
	sb.WriteString(fmt.Sprintf("| Executed | %d |\n", r.Summary.ExecutedCount))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", r.Summary.FailedCount))
	sb.WriteString(fmt.Sprintf("| Extracted Value (token0) | %.6f |\n", r.Summary.ExtractedValue))
	sb.WriteString(fmt.Sprintf("| Mean Victim Loss (bps) | %d |\n", r.Summary.VictimLossBps))
	sb.WriteString(fmt.Sprintf("| Value Destroyed (token0) | %.6f |\n", r.Summary.ValueDestroyed))
	sb.WriteString("\n")

	// Agent Outcomes
	sb.WriteString("## Agent Outcomes\n\n")
	if len(r.Agents) > 0 {
		sb.WriteString("| Agent | Kind | Latency | Attempts | Wins | Losses | Sat | SuccessRate | Gross | Net | Gas |\n")
		sb.WriteString("|-------|------|---------|----------|------|--------|-----|-------------|-------|-----|-----|\n")
		for _, a := range r.Agents {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %d | %d | %.4f | %.6f | %.6f | %.6f |\n",
				a.AgentID, a.Kind, a.LatencyProfile,
				a.Attempts, a.Wins, a.Losses, a.RoundsSat,
				a.SuccessRate, a.GrossProfit, a.NetProfit, a.GasSpent))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No agent outcomes recorded.\n\n")
	}

	// Hottest Rounds
	sb.WriteString("## Hottest Rounds\n\n")
	if len(r.TopRounds) > 0 {
		sb.WriteString("| Round | Intents | Bids | Executed | Failed | Extracted | VictimLoss (bps) |\n")
		sb.WriteString("|-------|---------|------|----------|--------|-----------|------------------|\n")
		for _, row := range r.TopRounds {
			sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d | %.6f | %d |\n",
				row.Round, row.IntentCount, row.BidCount,
				row.ExecutedCount, row.FailedCount,
				row.ExtractedValue, row.VictimLossBps))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No rounds with extraction.\n\n")
	}

	return sb.String()
}
