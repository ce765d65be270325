package domain

import "github.com/shopspring/decimal"

// Token identifies one side of a pool pair.
type Token int

// Token constants.
const (
	Token0 Token = iota
	Token1
)

// String returns the canonical token label.
func (t Token) String() string {
	if t == Token0 {
		return "token0"
	}
	return "token1"
}

// Other returns the opposite side of the pair.
func (t Token) Other() Token {
	if t == Token0 {
		return Token1
	}
	return Token0
}

// PoolState is a snapshot of the pool at a point in the round sequence.
// It is a value type: callers receive copies and cannot mutate the pool
// owned by the state machine.
type PoolState struct {
	Reserve0     decimal.Decimal // token0 reserve, fixed-point
	Reserve1     decimal.Decimal // token1 reserve, fixed-point
	FeeRateBps   uint32          // fee tier in basis points (e.g. 30 = 0.30%)
	Tick         int32           // current tick
	SqrtPriceX96 decimal.Decimal // Q64.96 sqrt price
}

// Price returns the token1/token0 spot price implied by the reserves.
func (s PoolState) Price() decimal.Decimal {
	if s.Reserve0.IsZero() {
		return decimal.Zero
	}
	return s.Reserve1.Div(s.Reserve0)
}

// ReserveIn returns the reserve on the input side for a given tokenIn.
func (s PoolState) ReserveIn(tokenIn Token) decimal.Decimal {
	if tokenIn == Token0 {
		return s.Reserve0
	}
	return s.Reserve1
}

// ReserveOut returns the reserve on the output side for a given tokenIn.
func (s PoolState) ReserveOut(tokenIn Token) decimal.Decimal {
	if tokenIn == Token0 {
		return s.Reserve1
	}
	return s.Reserve0
}

// PoolConfig holds the flat per-pool parameter set supplied by configuration.
type PoolConfig struct {
	FeeRateBps      uint32
	InitialReserve0 decimal.Decimal
	InitialReserve1 decimal.Decimal

	// TargetRatio is the equilibrium token1/token0 price used by
	// backrun-only agents as their rebalance target.
	TargetRatio decimal.Decimal
}

// PoolSnapshot is a per-round copy of the pool state retained in the ledger.
type PoolSnapshot struct {
	RunID string
	Round int64
	State PoolState
}
