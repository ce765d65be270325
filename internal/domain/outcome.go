package domain

import "github.com/shopspring/decimal"

// AgentOutcome is the per-agent aggregate for a completed run.
type AgentOutcome struct {
	RunID          string
	AgentID        string
	Kind           StrategyKind
	LatencyProfile string

	Attempts  int
	Wins      int
	Losses    int
	RoundsSat int

	SuccessRate float64

	// GrossProfit sums only winning trades; NetProfit is signed and
	// includes losses and gas. Token0 units.
	GrossProfit decimal.Decimal
	NetProfit   decimal.Decimal
	GasSpent    decimal.Decimal

	FinalBalance0 decimal.Decimal
	FinalBalance1 decimal.Decimal
}

// RunSummary aggregates a whole run for reporting.
type RunSummary struct {
	RunID    string
	Scenario string
	Seed     int64
	Rounds   int64

	IntentCount   int
	BidCount      int
	ExecutedCount int
	FailedCount   int

	// ExtractedValue is the total agent profit taken from victim flow.
	// VictimLossBps is the mean victim slippage across the run.
	// ValueDestroyed is extraction minus agent net gain: fees and gas
	// burned by the competition itself.
	ExtractedValue decimal.Decimal
	VictimLossBps  int64
	ValueDestroyed decimal.Decimal
}
