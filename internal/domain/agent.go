package domain

import "github.com/shopspring/decimal"

// StrategyKind is the closed set of agent strategies. New strategies are
// new constants with exhaustive handling in the detector factory.
type StrategyKind string

// Strategy kind constants.
const (
	StrategyAggressive   StrategyKind = "AGGRESSIVE"
	StrategyConservative StrategyKind = "CONSERVATIVE"
	StrategyAdaptive     StrategyKind = "ADAPTIVE"
	StrategySlow         StrategyKind = "SLOW"
	StrategyBackrunOnly  StrategyKind = "BACKRUN_ONLY"
)

// Harmful reports whether the strategy produces sandwich bids.
func (k StrategyKind) Harmful() bool {
	return k != StrategyBackrunOnly
}

// StrategyConfig is the flat per-agent parameter set supplied by
// configuration.
type StrategyConfig struct {
	AgentID string
	Kind    StrategyKind

	// BidPercentage of projected profit offered as priority fee (0-100).
	BidPercentage float64

	// MinProfitThreshold in token0 units; bids below it are not produced.
	MinProfitThreshold decimal.Decimal

	// MonitorPriceDeviation is the backrun-only trigger: fractional
	// deviation of pool price from the target ratio (e.g. 0.003).
	MonitorPriceDeviation float64

	LatencyProfile string

	// Policy gates. AllowSandwich=false yields no sandwich bid at all;
	// FrontrunOnly lets the bid compete but suppresses its back leg at
	// resolution. Neither is ever an error.
	AllowSandwich bool
	FrontrunOnly  bool

	InitialBalance0 decimal.Decimal
	InitialBalance1 decimal.Decimal

	// GasCostPerTrade is the token0-equivalent cost charged per executed leg.
	GasCostPerTrade decimal.Decimal
}

// AgentState is the per-agent mutable record. Mutated only by applying the
// agent's own trade results, strictly after a round commits.
type AgentState struct {
	AgentID  string
	Kind     StrategyKind
	Balance0 decimal.Decimal
	Balance1 decimal.Decimal

	CumulativeProfit decimal.Decimal

	Attempts  int
	Wins      int
	Losses    int
	RoundsSat int // rounds with no bid produced

	// BidPercentage is the live value for adaptive agents; fixed for others.
	BidPercentage float64

	// RecentOutcomes holds the trailing profit window the adaptive rule
	// consumes. Bounded length, oldest first.
	RecentOutcomes []decimal.Decimal
}

// SuccessRate returns wins over attempts, zero when the agent never bid.
func (a *AgentState) SuccessRate() float64 {
	if a.Attempts == 0 {
		return 0
	}
	return float64(a.Wins) / float64(a.Attempts)
}
