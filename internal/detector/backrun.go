package detector

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/curve"
	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/idhash"
)

// BackrunDetector watches the pool's deviation from its target ratio and
// bids a corrective trade when the deviation clears the monitor threshold.
// It never front-runs, so its bids carry no victim dependency.
type BackrunDetector struct {
	// MonitorPriceDeviation is the fractional deviation that arms the
	// detector, e.g. 0.003 for 30 bps.
	MonitorPriceDeviation float64
}

// NewBackrunDetector creates a BackrunDetector.
func NewBackrunDetector(monitorPriceDeviation float64) *BackrunDetector {
	return &BackrunDetector{MonitorPriceDeviation: monitorPriceDeviation}
}

// ID returns the detector identifier including parameters.
func (d *BackrunDetector) ID() string {
	return fmt.Sprintf("BACKRUN_dev%.4f", d.MonitorPriceDeviation)
}

// Evaluate bids the rebalancing trade that moves the pool price back to the
// target ratio. Profitable by construction once the deviation gate passes:
// the corrective leg buys the discounted side.
func (d *BackrunDetector) Evaluate(_ context.Context, input *Input) (*domain.Bid, error) {
	target := input.PoolConfig.TargetRatio
	if target.Sign() <= 0 {
		return nil, nil
	}

	price := input.Pool.Price()
	deviation := price.Sub(target).Abs().Div(target)
	if deviation.Cmp(decimal.NewFromFloat(d.MonitorPriceDeviation)) <= 0 {
		return nil, nil
	}

	direction, size := correctiveTrade(input.Pool, target)
	if size.Sign() <= 0 {
		return nil, nil
	}
	size = capToBalance(size, direction, input.Agent)
	if size.Sign() <= 0 {
		return nil, nil
	}

	profit, err := projectCorrectiveProfit(input.Pool, target, direction, size, input.Config.GasCostPerTrade)
	if err != nil {
		return nil, nil
	}
	if profit.Cmp(input.Config.MinProfitThreshold) <= 0 {
		return nil, nil
	}

	fee := profit.Mul(decimal.NewFromFloat(input.Agent.BidPercentage)).Div(decimal.NewFromInt(100))
	bid := &domain.Bid{
		BidID: idhash.ComputeBidID(input.RunID, input.Round, input.Agent.AgentID,
			"", domain.BidBackrun.String()),
		AgentID:             input.Agent.AgentID,
		Kind:                domain.BidBackrun,
		Direction:           direction,
		SizeIn:              size,
		PriorityFeeGwei:     fee,
		ProjectedProfit:     profit,
		DetectedAtLatencyNs: input.Latency.TotalNs(),
	}
	return bid, nil
}

// correctiveTrade solves for the input that lands the pool on the target
// price. With price = r1/r0 and k = r0*r1 the on-target reserve is
// r0' = sqrt(k/target), so a price above target is corrected by selling
// token0 (growing r0) and a price below it by selling token1.
func correctiveTrade(pool domain.PoolState, target decimal.Decimal) (domain.Direction, decimal.Decimal) {
	k := pool.Reserve0.Mul(pool.Reserve1)

	if pool.Price().Cmp(target) > 0 {
		want0 := curve.Sqrt(k.Div(target))
		return domain.Sell0, want0.Sub(pool.Reserve0)
	}
	want1 := curve.Sqrt(k.Mul(target))
	return domain.Sell1, want1.Sub(pool.Reserve1)
}

// projectCorrectiveProfit values the corrective fill at the target price.
// Output bought below target (or sold above it) nets a positive spread in
// token0 terms.
func projectCorrectiveProfit(
	pool domain.PoolState,
	target decimal.Decimal,
	direction domain.Direction,
	size decimal.Decimal,
	gasPerTrade decimal.Decimal,
) (decimal.Decimal, error) {
	q, err := curve.Quote(pool, direction.TokenIn(), size)
	if err != nil {
		return decimal.Zero, err
	}

	var profit0 decimal.Decimal
	if direction == domain.Sell0 {
		// Spent token0, received token1 worth AmountOut/target in token0.
		profit0 = q.AmountOut.Div(target).Sub(size)
	} else {
		// Spent token1 worth size/target in token0, received token0.
		profit0 = q.AmountOut.Sub(size.Div(target))
	}
	return profit0.Sub(gasPerTrade), nil
}

func capToBalance(size decimal.Decimal, direction domain.Direction, agent *domain.AgentState) decimal.Decimal {
	limit := agent.Balance0
	if direction == domain.Sell1 {
		limit = agent.Balance1
	}
	if size.Cmp(limit) > 0 {
		return limit
	}
	return size
}

// Ensure BackrunDetector implements Detector
var _ Detector = (*BackrunDetector)(nil)
