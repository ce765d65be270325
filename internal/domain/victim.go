package domain

import "github.com/shopspring/decimal"

// VictimProfile is the behavior class of an intent-producing trader.
// Profiles are defined outside the core; the core only carries the label.
type VictimProfile string

// Victim profile constants.
const (
	VictimRetail    VictimProfile = "retail"
	VictimWhale     VictimProfile = "whale"
	VictimDCA       VictimProfile = "dca"
	VictimArbitrage VictimProfile = "arbitrage"
	VictimPanic     VictimProfile = "panic"
)

// VictimConfig is the flat per-victim parameter set supplied by
// configuration.
type VictimConfig struct {
	VictimID string
	Profile  VictimProfile

	// TradeEveryRounds is the mean gap between intents, in rounds.
	TradeEveryRounds int64

	AmountMin decimal.Decimal
	AmountMax decimal.Decimal

	MaxSlippageBps int64
	GasPriceGwei   decimal.Decimal

	InitialBalance0 decimal.Decimal
	InitialBalance1 decimal.Decimal
}
