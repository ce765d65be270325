// Package curve implements the concentrated-liquidity swap math used by
// every other component. All functions are pure: they read a pool snapshot
// and produce amounts and a successor state without side effects. The
// arithmetic is fixed-point decimal throughout so that identical inputs
// always produce identical outputs.
package curve

import (
	"errors"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/domain"
)

// Curve errors.
var (
	// ErrInvalidAmount is returned for non-positive swap input.
	ErrInvalidAmount = errors.New("swap amount must be positive")

	// ErrInsufficientLiquidity is returned when the computed output would
	// drain the opposite reserve.
	ErrInsufficientLiquidity = errors.New("swap output exceeds available liquidity")

	// ErrPriceOutOfRange is returned when the resulting price would exit
	// the representable tick range.
	ErrPriceOutOfRange = errors.New("resulting price outside representable tick range")
)

// bpsDenominator converts FeeRateBps to a fraction.
var bpsDenominator = decimal.NewFromInt(10_000)

// QuoteResult is the outcome of a speculative or applied swap.
type QuoteResult struct {
	AmountOut decimal.Decimal
	NewState  domain.PoolState
}

// Quote computes the output amount and successor pool state for swapping
// amountIn of tokenIn against the snapshot s, under the single-tick
// constant-liquidity approximation:
//
//	fee       = amountIn * feeRateBps / 10_000   (retained in reserves)
//	amountOut = reserveOut * netIn / (reserveIn + netIn)
//
// The snapshot is never mutated; the returned state carries the updated
// reserves, sqrt price and tick.
func Quote(s domain.PoolState, tokenIn domain.Token, amountIn decimal.Decimal) (QuoteResult, error) {
	if amountIn.Sign() <= 0 {
		return QuoteResult{}, ErrInvalidAmount
	}

	reserveIn := s.ReserveIn(tokenIn)
	reserveOut := s.ReserveOut(tokenIn)
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return QuoteResult{}, ErrInsufficientLiquidity
	}

	feeRate := decimal.NewFromInt(int64(s.FeeRateBps)).Div(bpsDenominator)
	netIn := amountIn.Mul(decimal.NewFromInt(1).Sub(feeRate))
	if netIn.Sign() <= 0 {
		return QuoteResult{}, ErrInvalidAmount
	}

	amountOut := reserveOut.Mul(netIn).Div(reserveIn.Add(netIn))
	if amountOut.Cmp(reserveOut) >= 0 {
		return QuoteResult{}, ErrInsufficientLiquidity
	}

	next := s
	if tokenIn == domain.Token0 {
		next.Reserve0 = s.Reserve0.Add(amountIn)
		next.Reserve1 = s.Reserve1.Sub(amountOut)
	} else {
		next.Reserve1 = s.Reserve1.Add(amountIn)
		next.Reserve0 = s.Reserve0.Sub(amountOut)
	}
	if next.Reserve0.Sign() <= 0 || next.Reserve1.Sign() <= 0 {
		return QuoteResult{}, ErrInsufficientLiquidity
	}

	price := next.Price()
	tick, err := TickAtPrice(price)
	if err != nil {
		return QuoteResult{}, err
	}
	next.Tick = tick
	next.SqrtPriceX96 = SqrtPriceX96(price)

	return QuoteResult{AmountOut: amountOut, NewState: next}, nil
}

// PriceImpact returns (newPrice - oldPrice) / oldPrice. Monotonic in the
// input amount for a fixed direction.
func PriceImpact(before, after domain.PoolState) decimal.Decimal {
	old := before.Price()
	if old.IsZero() {
		return decimal.Zero
	}
	return after.Price().Sub(old).Div(old)
}

// SlippageBps returns the realized slippage of a fill versus the spot price
// at quote time, in basis points. Positive means the trader received less
// than the spot-implied amount.
func SlippageBps(spotPrice, amountIn, amountOut decimal.Decimal, tokenIn domain.Token) int64 {
	if spotPrice.IsZero() || amountIn.Sign() <= 0 {
		return 0
	}

	var ideal decimal.Decimal
	if tokenIn == domain.Token0 {
		ideal = amountIn.Mul(spotPrice)
	} else {
		ideal = amountIn.Div(spotPrice)
	}
	if ideal.Sign() <= 0 {
		return 0
	}

	loss := ideal.Sub(amountOut).Div(ideal).Mul(bpsDenominator)
	return loss.IntPart()
}
