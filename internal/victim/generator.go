// Package victim generates the organic trade flow that agents compete over.
// Generation is seeded per (run, round, victim), so a run replays
// identically regardless of agent behavior.
package victim

import (
	"math/rand"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/idhash"
)

// Generator produces victim intents round by round from a fixed set of
// victim configurations.
type Generator struct {
	cfgs []domain.VictimConfig
}

// NewGenerator creates a Generator over the configured victims.
func NewGenerator(cfgs []domain.VictimConfig) *Generator {
	return &Generator{cfgs: cfgs}
}

// IntentsForRound draws this round's intents. The pool snapshot is read
// only by arbitrage victims, which trade toward the target price.
func (g *Generator) IntentsForRound(runID string, runSeed, round int64, pool domain.PoolState, target decimal.Decimal) []domain.TradeIntent {
	var out []domain.TradeIntent
	for _, cfg := range g.cfgs {
		rng := rand.New(rand.NewSource(idhash.DeriveSeed(runSeed, round, cfg.VictimID)))
		if intent, ok := g.draw(rng, cfg, runID, round, pool, target); ok {
			out = append(out, intent)
		}
	}
	return out
}

func (g *Generator) draw(rng *rand.Rand, cfg domain.VictimConfig, runID string, round int64, pool domain.PoolState, target decimal.Decimal) (domain.TradeIntent, bool) {
	if !tradesThisRound(rng, cfg, round) {
		return domain.TradeIntent{}, false
	}

	direction, ok := drawDirection(rng, cfg.Profile, pool, target)
	if !ok {
		return domain.TradeIntent{}, false
	}
	amount := capToBalance(drawAmount(rng, cfg), cfg, direction)
	if amount.Sign() <= 0 {
		return domain.TradeIntent{}, false
	}

	intent := domain.TradeIntent{
		IntentID: idhash.ComputeIntentID(runID, round, cfg.VictimID,
			direction.String(), amount.String()),
		AgentID:          cfg.VictimID,
		Profile:          cfg.Profile,
		Direction:        direction,
		AmountIn:         amount,
		MaxSlippageBps:   cfg.MaxSlippageBps,
		GasPriceGwei:     cfg.GasPriceGwei,
		SubmittedAtRound: round,
	}
	return intent, true
}

// tradesThisRound gates the victim's cadence. DCA bots fire on a strict
// schedule; everyone else trades with probability 1/TradeEveryRounds.
func tradesThisRound(rng *rand.Rand, cfg domain.VictimConfig, round int64) bool {
	every := cfg.TradeEveryRounds
	if every <= 1 {
		return true
	}
	if cfg.Profile == domain.VictimDCA {
		return round%every == 0
	}
	return rng.Float64() < 1/float64(every)
}

// capToBalance bounds the drawn amount by the victim's wallet on the
// selling side. A victim configured with no balance on that side sits the
// round out; capping keeps generation stateless, so replays stay exact.
func capToBalance(amount decimal.Decimal, cfg domain.VictimConfig, dir domain.Direction) decimal.Decimal {
	balance := cfg.InitialBalance0
	if dir == domain.Sell1 {
		balance = cfg.InitialBalance1
	}
	if amount.Cmp(balance) > 0 {
		return balance
	}
	return amount
}

func drawAmount(rng *rand.Rand, cfg domain.VictimConfig) decimal.Decimal {
	span := cfg.AmountMax.Sub(cfg.AmountMin)
	if span.Sign() <= 0 {
		return cfg.AmountMin
	}
	return cfg.AmountMin.Add(span.Mul(decimal.NewFromFloat(rng.Float64()))).Round(6)
}

// drawDirection picks the trade side per profile: retail and whales flip a
// coin, DCA accumulates token0, panic sellers dump token0, and arbitrage
// bots trade toward the target price (sitting out when the pool is already
// on target).
func drawDirection(rng *rand.Rand, profile domain.VictimProfile, pool domain.PoolState, target decimal.Decimal) (domain.Direction, bool) {
	switch profile {
	case domain.VictimDCA:
		return domain.Sell1, true
	case domain.VictimPanic:
		return domain.Sell0, true
	case domain.VictimArbitrage:
		if target.Sign() <= 0 {
			return 0, false
		}
		c := pool.Price().Cmp(target)
		if c == 0 {
			return 0, false
		}
		if c > 0 {
			return domain.Sell0, true
		}
		return domain.Sell1, true
	default:
		if rng.Float64() < 0.5 {
			return domain.Sell0, true
		}
		return domain.Sell1, true
	}
}
