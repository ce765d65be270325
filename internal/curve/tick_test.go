package curve

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTickAtPrice(t *testing.T) {
	tests := []struct {
		name  string
		price decimal.Decimal
		want  int32
	}{
		{name: "unit price", price: decimal.NewFromInt(1), want: 0},
		{name: "one tick up", price: decimal.NewFromFloat(1.00015), want: 1},
		{name: "below unit", price: decimal.NewFromFloat(0.9999), want: -2},
		{name: "price two", price: decimal.NewFromInt(2), want: 6931},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TickAtPrice(tt.price)
			if err != nil {
				t.Fatalf("TickAtPrice(%s): %v", tt.price, err)
			}
			if got != tt.want {
				t.Errorf("TickAtPrice(%s) = %d, want %d", tt.price, got, tt.want)
			}
		})
	}
}

func TestTickAtPriceOutOfRange(t *testing.T) {
	for _, price := range []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(-1),
		decimal.RequireFromString("1e45"),
		decimal.RequireFromString("1e-45"),
	} {
		if _, err := TickAtPrice(price); !errors.Is(err, ErrPriceOutOfRange) {
			t.Errorf("TickAtPrice(%s): err = %v, want ErrPriceOutOfRange", price, err)
		}
	}
}

func TestSqrtPriceX96(t *testing.T) {
	q96 := decimal.NewFromInt(2).Pow(decimal.NewFromInt(96))

	got := SqrtPriceX96(decimal.NewFromInt(4))
	want := q96.Mul(decimal.NewFromInt(2))
	if !got.Equal(want) {
		t.Errorf("SqrtPriceX96(4) = %s, want %s", got, want)
	}

	if !SqrtPriceX96(decimal.NewFromInt(1)).Equal(q96) {
		t.Error("SqrtPriceX96(1) should equal 2^96")
	}
}

func TestSqrtPriceRoundTrip(t *testing.T) {
	tol := decimal.NewFromFloat(1e-9)
	for _, p := range []float64{0.0001, 0.5, 1, 2, 1777.77, 1e6} {
		price := decimal.NewFromFloat(p)
		back := PriceFromSqrtX96(SqrtPriceX96(price))
		rel := back.Sub(price).Abs().Div(price)
		if rel.Cmp(tol) > 0 {
			t.Errorf("price %v: round trip error %s exceeds tolerance", p, rel)
		}
	}
}
