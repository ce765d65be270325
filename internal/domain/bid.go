package domain

import "github.com/shopspring/decimal"

// BidKind distinguishes the two bid shapes agents produce.
type BidKind int

// BidKind constants.
const (
	// BidSandwich pairs a front-run leg before the victim intent with a
	// back-run leg after it. Both legs land or neither does.
	BidSandwich BidKind = iota
	// BidBackrun is a standalone corrective trade with no ordering
	// dependency beyond following the round's victim intents.
	BidBackrun
)

// String returns the canonical bid kind label.
func (k BidKind) String() string {
	if k == BidSandwich {
		return "sandwich"
	}
	return "backrun"
}

// Bid is a priced submission for one round's block slot.
// Produced by the opportunity detector, consumed once by the auction resolver.
type Bid struct {
	BidID   string
	AgentID string
	Kind    BidKind

	// IntentRef is the targeted victim intent ID. Empty for BidBackrun.
	IntentRef string

	// Direction and SizeIn describe the first (or only) leg. For a
	// sandwich the back leg sells whatever the front leg bought, sized
	// at application time from the front leg's realized output.
	Direction Direction
	SizeIn    decimal.Decimal

	PriorityFeeGwei decimal.Decimal
	ProjectedProfit decimal.Decimal // token0 units, net of gas

	// FrontrunOnly carries the bidding agent's policy gate: the back leg
	// of this sandwich is suppressed at resolution even when the run
	// itself allows full sandwiches.
	FrontrunOnly bool

	// DetectedAtLatencyNs is the agent's total pipeline latency for this
	// round. Used only as an ordering key, never as a wall-clock delay.
	DetectedAtLatencyNs int64
}
