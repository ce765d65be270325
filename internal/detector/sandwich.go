package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/curve"
	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/idhash"
)

// AdaptRule maps the agent's trailing record to a front-run size
// multiplier. Used by ADAPTIVE agents; the default rule scales with
// success rate.
type AdaptRule func(a *domain.AgentState) float64

// DefaultAdaptRule sizes between 30% and 80% of the victim amount,
// linearly in the agent's success rate. A fresh agent starts at the
// conservative end.
func DefaultAdaptRule(a *domain.AgentState) float64 {
	return 0.3 + 0.5*a.SuccessRate()
}

// slowDetectionGrace is the detection latency a SLOW agent absorbs before
// its profit projection starts decaying.
const slowDetectionGrace = 20 * time.Millisecond

// SandwichDetector evaluates front-run/back-run pairs around victim
// intents. One implementation covers every harmful strategy kind; the kinds
// differ only in how the front leg is sized and discounted.
type SandwichDetector struct {
	Kind           domain.StrategyKind
	SizeMultiplier float64 // fixed front-leg fraction of victim amount
	Adapt          AdaptRule
}

// NewSandwichDetector creates a SandwichDetector. Pass a nil rule for
// fixed-multiplier kinds.
func NewSandwichDetector(kind domain.StrategyKind, sizeMultiplier float64, adapt AdaptRule) *SandwichDetector {
	return &SandwichDetector{
		Kind:           kind,
		SizeMultiplier: sizeMultiplier,
		Adapt:          adapt,
	}
}

// ID returns the detector identifier including parameters.
func (d *SandwichDetector) ID() string {
	if d.Adapt != nil {
		return fmt.Sprintf("SANDWICH_%s_adaptive", d.Kind)
	}
	return fmt.Sprintf("SANDWICH_%s_%.2fx", d.Kind, d.SizeMultiplier)
}

// Evaluate simulates front -> victim -> back against the snapshot and bids
// when the projected profit clears the configured floor. Policy gates
// yield a nil bid, never an error.
func (d *SandwichDetector) Evaluate(_ context.Context, input *Input) (*domain.Bid, error) {
	if input.Intent == nil {
		return nil, nil
	}
	if !input.Config.AllowSandwich {
		return nil, nil
	}

	mult := d.SizeMultiplier
	if d.Adapt != nil {
		mult = d.Adapt(input.Agent)
	}
	if mult <= 0 {
		return nil, nil
	}

	frontSize := input.Intent.AmountIn.Mul(decimal.NewFromFloat(mult))
	if frontSize.Sign() <= 0 {
		return nil, nil
	}
	if !d.canFund(input, frontSize) {
		return nil, nil
	}

	profit, err := projectSandwichProfit(input.Pool, *input.Intent, frontSize, input.Config.GasCostPerTrade)
	if err != nil {
		// A quote rejection means the opportunity does not exist at
		// this size, not that the round is broken.
		return nil, nil
	}

	if d.Kind == domain.StrategySlow {
		profit = discountForDetectionLag(profit, input.Latency.DetectionNs)
	}

	if profit.Cmp(input.Config.MinProfitThreshold) <= 0 {
		return nil, nil
	}

	fee := profit.Mul(decimal.NewFromFloat(input.Agent.BidPercentage)).Div(decimal.NewFromInt(100))
	bid := &domain.Bid{
		BidID: idhash.ComputeBidID(input.RunID, input.Round, input.Agent.AgentID,
			input.Intent.IntentID, domain.BidSandwich.String()),
		AgentID:             input.Agent.AgentID,
		Kind:                domain.BidSandwich,
		IntentRef:           input.Intent.IntentID,
		Direction:           input.Intent.Direction,
		SizeIn:              frontSize,
		FrontrunOnly:        input.Config.FrontrunOnly,
		PriorityFeeGwei:     fee,
		ProjectedProfit:     profit,
		DetectedAtLatencyNs: input.Latency.TotalNs(),
	}
	return bid, nil
}

// canFund reports whether the agent's balance covers the front leg.
func (d *SandwichDetector) canFund(input *Input, frontSize decimal.Decimal) bool {
	if input.Intent.Direction == domain.Sell0 {
		return input.Agent.Balance0.Cmp(frontSize) >= 0
	}
	return input.Agent.Balance1.Cmp(frontSize) >= 0
}

// discountForDetectionLag decays projected profit linearly in the
// detection latency beyond the grace window: competitors erode the
// opportunity while a slow agent is still noticing it. Capped at a 90%
// haircut so the projection stays positive for genuinely fat spreads.
func discountForDetectionLag(profit decimal.Decimal, detectionNs int64) decimal.Decimal {
	lag := detectionNs - int64(slowDetectionGrace)
	if lag <= 0 {
		return profit
	}
	penalty := float64(lag) / float64(200*time.Millisecond)
	if penalty > 0.9 {
		penalty = 0.9
	}
	return profit.Mul(decimal.NewFromFloat(1 - penalty))
}

// projectSandwichProfit runs the three-leg simulation on a copy of the
// snapshot: the agent's front leg, the victim's fill against the moved
// price, then the back leg selling everything the front leg bought.
// Profit is reported in token0 units, net of gas for both agent legs.
func projectSandwichProfit(
	pool domain.PoolState,
	intent domain.TradeIntent,
	frontSize decimal.Decimal,
	gasPerTrade decimal.Decimal,
) (decimal.Decimal, error) {
	front, err := curve.Quote(pool, intent.Direction.TokenIn(), frontSize)
	if err != nil {
		return decimal.Zero, err
	}
	victim, err := curve.Quote(front.NewState, intent.Direction.TokenIn(), intent.AmountIn)
	if err != nil {
		return decimal.Zero, err
	}

	backToken := intent.Direction.TokenIn().Other()
	back, err := curve.Quote(victim.NewState, backToken, front.AmountOut)
	if err != nil {
		return decimal.Zero, err
	}

	gross := back.AmountOut.Sub(frontSize)
	profit0 := gross
	if intent.Direction == domain.Sell1 {
		// Front leg spent token1; express the spread in token0 at the
		// snapshot price.
		profit0 = gross.Div(pool.Price())
	}
	return profit0.Sub(gasPerTrade.Mul(decimal.NewFromInt(2))), nil
}

// Ensure SandwichDetector implements Detector
var _ Detector = (*SandwichDetector)(nil)
