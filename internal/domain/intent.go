package domain

import "github.com/shopspring/decimal"

// Direction indicates which token the trader is spending.
type Direction int

// Direction constants.
const (
	// Sell0 spends token0 and receives token1.
	Sell0 Direction = iota
	// Sell1 spends token1 and receives token0.
	Sell1
)

// TokenIn returns the input token for the direction.
func (d Direction) TokenIn() Token {
	if d == Sell0 {
		return Token0
	}
	return Token1
}

// String returns the canonical direction label.
func (d Direction) String() string {
	if d == Sell0 {
		return "sell0"
	}
	return "sell1"
}

// TradeIntent is a pending victim trade for one round. Immutable once created.
type TradeIntent struct {
	IntentID         string
	AgentID          string // originating victim identifier
	Profile          VictimProfile
	Direction        Direction
	AmountIn         decimal.Decimal
	MaxSlippageBps   int64
	GasPriceGwei     decimal.Decimal // plain-transaction gas price, ranks against bids
	SubmittedAtRound int64
}
