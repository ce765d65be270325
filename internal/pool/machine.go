// Package pool owns the canonical pool state and applies resolved orders to
// it. Application is strictly sequential: each item sees the state left by
// the previous one, which is the price-impact propagation the whole
// simulation exists to measure.
package pool

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/curve"
	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/idhash"
)

var (
	// ErrInvalidConfig is returned for non-positive initial reserves.
	ErrInvalidConfig = errors.New("pool config requires positive initial reserves")

	// ErrStateCorrupted signals a core-logic defect (negative reserves
	// after application). Fatal: the run must halt immediately.
	ErrStateCorrupted = errors.New("pool state corrupted")
)

// Machine is the single-writer pool state machine. Not safe for concurrent
// use; the orchestrator applies rounds from one goroutine only.
type Machine struct {
	cfg   domain.PoolConfig
	state domain.PoolState
}

// NewMachine builds the machine at the configured initial reserves.
func NewMachine(cfg domain.PoolConfig) (*Machine, error) {
	if cfg.InitialReserve0.Sign() <= 0 || cfg.InitialReserve1.Sign() <= 0 {
		return nil, ErrInvalidConfig
	}

	state := domain.PoolState{
		Reserve0:   cfg.InitialReserve0,
		Reserve1:   cfg.InitialReserve1,
		FeeRateBps: cfg.FeeRateBps,
	}
	tick, err := curve.TickAtPrice(state.Price())
	if err != nil {
		return nil, fmt.Errorf("initial price out of tick range: %w", err)
	}
	state.Tick = tick
	state.SqrtPriceX96 = curve.SqrtPriceX96(state.Price())

	return &Machine{cfg: cfg, state: state}, nil
}

// State returns a copy of the current pool state.
func (m *Machine) State() domain.PoolState {
	return m.state
}

// ApplyRound executes the resolved order item by item, mutating the pool
// state in place and emitting one TradeResult per item. A failing item is
// recorded and skipped without mutating state; the round continues. Only a
// corrupted state aborts the round, and with it the run.
func (m *Machine) ApplyRound(runID string, order domain.ResolvedOrder) ([]domain.TradeResult, error) {
	roundStart := m.state
	results := make([]domain.TradeResult, 0, len(order.Items))

	// Realized front-leg outputs, keyed by bid ID, consumed by the
	// paired back leg.
	frontFills := make(map[string]decimal.Decimal)

	for _, item := range order.Items {
		var res domain.TradeResult
		var err error

		switch item.Kind {
		case domain.ItemVictim:
			res = m.applyVictim(runID, order.Round, item, roundStart)
		case domain.ItemFrontrun:
			res = m.applyLeg(runID, order.Round, item, item.Bid.Direction, item.Bid.SizeIn)
			if res.Success {
				frontFills[item.Bid.BidID] = res.AmountOut
			}
		case domain.ItemBackrun:
			res, err = m.applyBackLeg(runID, order.Round, item, frontFills)
		case domain.ItemCorrective:
			res = m.applyCorrective(runID, order.Round, item)
		default:
			return nil, fmt.Errorf("unknown order item kind %q", item.Kind)
		}
		if err != nil {
			return nil, err
		}

		if m.state.Reserve0.Sign() <= 0 || m.state.Reserve1.Sign() <= 0 {
			return nil, fmt.Errorf("%w: reserves %s/%s after item %d",
				ErrStateCorrupted, m.state.Reserve0, m.state.Reserve1, item.ExecutionIndex)
		}
		results = append(results, res)
	}

	return results, nil
}

// applyVictim fills the intent, enforcing its slippage tolerance. Slippage
// is measured against the round-start price, the price the victim quoted
// before MEV flow moved the pool; a fill worse than MaxSlippageBps is
// rejected without mutating reserves, with the realized slippage retained
// on the failed result for the ledger.
func (m *Machine) applyVictim(runID string, round int64, item domain.OrderItem, roundStart domain.PoolState) domain.TradeResult {
	intent := item.Intent
	res := m.newResult(runID, round, item, intent.AgentID, intent.IntentID, intent.Direction, intent.AmountIn)
	res.LatencyNs = 0

	q, err := curve.Quote(m.state, intent.Direction.TokenIn(), intent.AmountIn)
	if err != nil {
		res.FailReason = domain.FailLiquidity
		return res
	}

	res.SlippageBps = curve.SlippageBps(roundStart.Price(), intent.AmountIn, q.AmountOut, intent.Direction.TokenIn())
	if intent.MaxSlippageBps > 0 && res.SlippageBps > intent.MaxSlippageBps {
		res.FailReason = domain.FailSlippage
		return res
	}

	m.commit(q, &res)
	return res
}

// applyLeg fills a bid leg with no extra guards; bids accept whatever
// price they bid themselves into.
func (m *Machine) applyLeg(runID string, round int64, item domain.OrderItem, dir domain.Direction, amountIn decimal.Decimal) domain.TradeResult {
	bid := item.Bid
	res := m.newResult(runID, round, item, bid.AgentID, bid.BidID, dir, amountIn)
	res.LatencyNs = bid.DetectedAtLatencyNs

	q, err := curve.Quote(m.state, dir.TokenIn(), amountIn)
	if err != nil {
		res.FailReason = domain.FailLiquidity
		return res
	}

	m.commit(q, &res)
	res.SlippageBps = curve.SlippageBps(res.PriceBefore, amountIn, q.AmountOut, dir.TokenIn())
	return res
}

// applyBackLeg closes a sandwich: it sells exactly what the front leg
// bought. A back leg whose front leg failed at execution time is demoted to
// a no-op conflict, keeping the pair atomic.
func (m *Machine) applyBackLeg(runID string, round int64, item domain.OrderItem, frontFills map[string]decimal.Decimal) (domain.TradeResult, error) {
	bid := item.Bid
	fill, ok := frontFills[bid.BidID]
	if !ok {
		res := m.newResult(runID, round, item, bid.AgentID, bid.BidID, bid.Direction, decimal.Zero)
		res.LatencyNs = bid.DetectedAtLatencyNs
		res.FailReason = domain.FailOrderingConflict
		return res, nil
	}

	backDir := oppositeDirection(bid.Direction)
	res := m.applyLeg(runID, round, item, backDir, fill)
	if res.Success {
		res.Profit = m.sandwichProfit(bid, res.AmountOut)
	}
	return res, nil
}

// applyCorrective fills a standalone backrun bid and values its profit at
// the configured target ratio.
func (m *Machine) applyCorrective(runID string, round int64, item domain.OrderItem) domain.TradeResult {
	bid := item.Bid
	res := m.applyLeg(runID, round, item, bid.Direction, bid.SizeIn)
	if !res.Success {
		return res
	}

	target := m.cfg.TargetRatio
	if target.Sign() > 0 {
		if bid.Direction == domain.Sell0 {
			res.Profit = res.AmountOut.Div(target).Sub(bid.SizeIn)
		} else {
			res.Profit = res.AmountOut.Sub(bid.SizeIn.Div(target))
		}
	}
	return res
}

// sandwichProfit is the round-trip spread in token0 units: the back leg's
// output minus the front leg's input. Gas is settled by the simulation
// engine when agent balances are updated.
func (m *Machine) sandwichProfit(bid *domain.Bid, backOut decimal.Decimal) decimal.Decimal {
	gross := backOut.Sub(bid.SizeIn)
	if bid.Direction == domain.Sell1 {
		price := m.state.Price()
		if price.Sign() > 0 {
			return gross.Div(price)
		}
	}
	return gross
}

func (m *Machine) newResult(runID string, round int64, item domain.OrderItem, agentID, refID string, dir domain.Direction, amountIn decimal.Decimal) domain.TradeResult {
	return domain.TradeResult{
		ResultID:       idhash.ComputeResultID(runID, round, item.ExecutionIndex, refID),
		RunID:          runID,
		Round:          round,
		ExecutionIndex: item.ExecutionIndex,
		AgentID:        agentID,
		RefID:          refID,
		Kind:           item.Kind,
		Direction:      dir,
		AmountIn:       amountIn,
		PriceBefore:    m.state.Price(),
		PriceAfter:     m.state.Price(),
		Submission:     domain.SubmissionPending,
	}
}

// commit advances the pool to the quoted state and marks the result filled.
func (m *Machine) commit(q curve.QuoteResult, res *domain.TradeResult) {
	m.state = q.NewState
	res.Success = true
	res.AmountOut = q.AmountOut
	res.PriceAfter = m.state.Price()
}

func oppositeDirection(d domain.Direction) domain.Direction {
	if d == domain.Sell0 {
		return domain.Sell1
	}
	return domain.Sell0
}
