package domain

// OrderingPolicy selects the competition regime for a run.
type OrderingPolicy string

// Ordering policy constants.
const (
	// PolicyUnrestricted is the open gas-auction regime: any bid shape
	// may compete for any position.
	PolicyUnrestricted OrderingPolicy = "unrestricted"
	// PolicyBackrunOnly forbids front-running entirely: only backrun
	// bids are eligible, and they follow the round's victim intents.
	PolicyBackrunOnly OrderingPolicy = "backrun_only"
)

// PolicyFlags are run-level restrictions applied during resolution.
type PolicyFlags struct {
	Ordering OrderingPolicy

	// FrontrunOnly suppresses the back leg of every sandwich while still
	// letting front legs execute. Suppressed legs are recorded as
	// ordering conflicts, not silently dropped.
	FrontrunOnly bool
}

// ItemKind identifies what a resolved order slot executes.
type ItemKind string

// Item kind constants.
const (
	ItemVictim     ItemKind = "victim"
	ItemFrontrun   ItemKind = "frontrun"
	ItemBackrun    ItemKind = "backrun"
	ItemCorrective ItemKind = "corrective"
)

// OrderItem is one executable slot in a resolved round.
// Exactly one of Intent or Bid is set.
type OrderItem struct {
	ExecutionIndex int
	Kind           ItemKind
	Intent         *TradeIntent
	Bid            *Bid
}

// FailReason explains why a submission did not land.
type FailReason string

// Fail reason constants.
const (
	// FailOutbid means another submission won the contested position.
	FailOutbid FailReason = "outbid"
	// FailNoPosition means the front leg could not achieve a position
	// preceding its victim (out-priced or out-latencied).
	FailNoPosition FailReason = "no_preceding_position"
	// FailOrderingConflict marks a back leg stranded without its front
	// leg, demoted to a no-op.
	FailOrderingConflict FailReason = "ordering_conflict"
	// FailPolicy means the run's ordering policy forbids the bid shape.
	FailPolicy FailReason = "policy_disallowed"
	// FailLiquidity means the curve rejected the fill at execution time.
	FailLiquidity FailReason = "insufficient_liquidity"
	// FailSlippage means the realized victim fill was worse than the
	// intent's slippage tolerance; the fill is rejected, not applied.
	FailSlippage FailReason = "slippage_exceeded"
)

// FailedAttempt records a submission that lost the auction. Retained for
// success-rate analysis.
type FailedAttempt struct {
	AgentID   string
	BidID     string
	IntentRef string
	Reason    FailReason
}

// ResolvedOrder is the total execution order for one round. Terminal once
// produced: the pool state machine consumes it and nothing mutates it after.
type ResolvedOrder struct {
	Round  int64
	Items  []OrderItem
	Failed []FailedAttempt
}
