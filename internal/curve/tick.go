package curve

import (
	"math"

	"github.com/shopspring/decimal"
)

// Tick range of the concentrated-liquidity price space.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// q96 = 2^96, the Q64.96 fixed-point scale.
var q96 = decimal.NewFromInt(2).Pow(decimal.NewFromInt(96))

// tickBase is ln(1.0001); each tick is a 1 bps price step.
var tickBase = math.Log(1.0001)

// TickAtPrice returns the tick index whose price range contains the given
// token1/token0 price. The tick is reporting metadata: the value path stays
// in decimal, and the float conversion here is deterministic for a given
// input.
func TickAtPrice(price decimal.Decimal) (int32, error) {
	if price.Sign() <= 0 {
		return 0, ErrPriceOutOfRange
	}

	f := price.InexactFloat64()
	if f <= 0 || math.IsInf(f, 0) {
		return 0, ErrPriceOutOfRange
	}

	tick := int32(math.Floor(math.Log(f) / tickBase))
	if tick < MinTick || tick > MaxTick {
		return 0, ErrPriceOutOfRange
	}
	return tick, nil
}

// SqrtPriceX96 converts a token1/token0 price to Q64.96 sqrt representation.
func SqrtPriceX96(price decimal.Decimal) decimal.Decimal {
	return sqrtDecimal(price).Mul(q96).Truncate(0)
}

// PriceFromSqrtX96 is the inverse of SqrtPriceX96.
func PriceFromSqrtX96(sqrtPriceX96 decimal.Decimal) decimal.Decimal {
	ratio := sqrtPriceX96.Div(q96)
	return ratio.Mul(ratio)
}

// Sqrt computes the decimal square root. Zero for non-positive input.
func Sqrt(d decimal.Decimal) decimal.Decimal {
	return sqrtDecimal(d)
}

// sqrtDecimal computes a fixed-point square root by Newton iteration,
// seeded from the float estimate. Six iterations more than double the
// seed's precision past decimal's division precision.
func sqrtDecimal(d decimal.Decimal) decimal.Decimal {
	if d.Sign() <= 0 {
		return decimal.Zero
	}

	guess := decimal.NewFromFloat(math.Sqrt(d.InexactFloat64()))
	if guess.Sign() <= 0 {
		guess = decimal.NewFromInt(1)
	}

	two := decimal.NewFromInt(2)
	for i := 0; i < 6; i++ {
		guess = guess.Add(d.Div(guess)).Div(two)
	}
	return guess
}
