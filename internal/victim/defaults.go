package victim

import (
	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/domain"
)

// DefaultConfig returns the canonical parameter set for a victim profile.
// Amount ranges and tolerances follow the usual persona split: small
// impatient retail flow, market-moving whales, metronomic DCA bots, tight
// arbitrage bots, and high-tolerance panic sellers.
func DefaultConfig(victimID string, profile domain.VictimProfile) domain.VictimConfig {
	cfg := domain.VictimConfig{
		VictimID:        victimID,
		Profile:         profile,
		InitialBalance0: decimal.NewFromInt(10_000),
		InitialBalance1: decimal.NewFromInt(20_000),
	}

	switch profile {
	case domain.VictimWhale:
		cfg.TradeEveryRounds = 30
		cfg.AmountMin = decimal.NewFromInt(200)
		cfg.AmountMax = decimal.NewFromInt(1000)
		cfg.MaxSlippageBps = 120
		cfg.GasPriceGwei = decimal.NewFromInt(40)
	case domain.VictimDCA:
		cfg.TradeEveryRounds = 2
		cfg.AmountMin = decimal.NewFromInt(20)
		cfg.AmountMax = decimal.NewFromInt(30)
		cfg.MaxSlippageBps = 150
		cfg.GasPriceGwei = decimal.NewFromInt(20)
	case domain.VictimArbitrage:
		cfg.TradeEveryRounds = 1
		cfg.AmountMin = decimal.NewFromInt(50)
		cfg.AmountMax = decimal.NewFromInt(200)
		cfg.MaxSlippageBps = 80
		cfg.GasPriceGwei = decimal.NewFromInt(35)
	case domain.VictimPanic:
		cfg.TradeEveryRounds = 10
		cfg.AmountMin = decimal.NewFromInt(100)
		cfg.AmountMax = decimal.NewFromInt(500)
		cfg.MaxSlippageBps = 500
		cfg.GasPriceGwei = decimal.NewFromInt(60)
	default: // retail
		cfg.Profile = domain.VictimRetail
		cfg.TradeEveryRounds = 5
		cfg.AmountMin = decimal.NewFromInt(5)
		cfg.AmountMax = decimal.NewFromInt(50)
		cfg.MaxSlippageBps = 200
		cfg.GasPriceGwei = decimal.NewFromInt(25)
	}
	return cfg
}
