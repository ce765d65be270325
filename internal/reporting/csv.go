package reporting

import (
	"fmt"
	"strings"

	"mev-competition-lab/internal/domain"
)

// RenderAgentsCSV renders agent outcome rows as CSV string.
func RenderAgentsCSV(agents []AgentRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("agent_id,kind,latency_profile,attempts,wins,losses,rounds_sat,")
	sb.WriteString("success_rate,gross_profit,net_profit,gas_spent,")
	sb.WriteString("final_balance0,final_balance1\n")

	// Rows
	for _, a := range agents {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			a.AgentID,
			a.Kind,
			a.LatencyProfile,
			a.Attempts,
			a.Wins,
			a.Losses,
			a.RoundsSat,
			a.SuccessRate,
			a.GrossProfit,
			a.NetProfit,
			a.GasSpent,
			a.FinalBalance0,
			a.FinalBalance1,
		))
	}

	return sb.String()
}

// RenderResultsCSV renders the raw trade-result ledger as CSV string.
// Rows are emitted in the order given, which for store reads is
// (round, execution_index) ascending.
func RenderResultsCSV(results []*domain.TradeResult) string {
	var sb strings.Builder

	// Header
	sb.WriteString("result_id,round,execution_index,agent_id,ref_id,kind,success,fail_reason,")
	sb.WriteString("direction,amount_in,amount_out,price_before,price_after,slippage_bps,")
	sb.WriteString("profit,gas_cost,latency_ns,submission\n")

	// Rows
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%s,%s,%s,%t,%s,%s,%s,%s,%s,%s,%d,%s,%s,%d,%s\n",
			r.ResultID,
			r.Round,
			r.ExecutionIndex,
			r.AgentID,
			r.RefID,
			r.Kind,
			r.Success,
			r.FailReason,
			r.Direction,
			r.AmountIn.String(),
			r.AmountOut.String(),
			r.PriceBefore.String(),
			r.PriceAfter.String(),
			r.SlippageBps,
			r.Profit.String(),
			r.GasCost.String(),
			r.LatencyNs,
			r.Submission,
		))
	}

	return sb.String()
}
