package metrics

import (
	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/domain"
)

var bpsDenominator = decimal.NewFromInt(10_000)

// profitTotals sums one agent's profits and gas over its results. Gross
// counts winning trades only; signed carries losses too.
type profitTotals struct {
	gross  decimal.Decimal
	signed decimal.Decimal
	gas    decimal.Decimal
}

func (p profitTotals) net() decimal.Decimal {
	return p.signed.Sub(p.gas)
}

// computeTotals walks an agent's results once.
func computeTotals(results []*domain.TradeResult) profitTotals {
	var t profitTotals
	for _, r := range results {
		if r.Profit.Sign() > 0 {
			t.gross = t.gross.Add(r.Profit)
		}
		t.signed = t.signed.Add(r.Profit)
		t.gas = t.gas.Add(r.GasCost)
	}
	return t
}

// victimLossToken0 estimates the token0 value a victim fill lost to
// slippage: the ideal-output shortfall implied by the recorded bps,
// converted through the fill's pre-trade price.
func victimLossToken0(r *domain.TradeResult) decimal.Decimal {
	if r.Kind != domain.ItemVictim || !r.Success || r.SlippageBps <= 0 {
		return decimal.Zero
	}

	slip := decimal.NewFromInt(r.SlippageBps).Div(bpsDenominator)
	if r.Direction == domain.Sell0 {
		return r.AmountIn.Mul(slip)
	}
	if r.PriceBefore.Sign() <= 0 {
		return decimal.Zero
	}
	return r.AmountIn.Div(r.PriceBefore).Mul(slip)
}

// sumVictimLoss totals the run's victim slippage value in token0 units.
func sumVictimLoss(results []*domain.TradeResult) decimal.Decimal {
	total := decimal.Zero
	for _, r := range results {
		total = total.Add(victimLossToken0(r))
	}
	return total
}
