package domain

import "github.com/shopspring/decimal"

// SubmissionStatus is the chain adapter's per-item confirmation outcome.
// Annotation only: simulation economics never depend on it.
type SubmissionStatus string

// Submission status constants.
const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionConfirmed SubmissionStatus = "confirmed"
	SubmissionFailed    SubmissionStatus = "failed"
)

// TradeResult is the outcome of applying one resolved order item.
// Appended to the ledger; immutable after creation.
type TradeResult struct {
	ResultID       string
	RunID          string
	Round          int64
	ExecutionIndex int

	AgentID string
	RefID   string // intent ID or bid ID
	Kind    ItemKind

	Success    bool
	FailReason FailReason // empty when Success

	Direction   Direction
	AmountIn    decimal.Decimal
	AmountOut   decimal.Decimal
	PriceBefore decimal.Decimal
	PriceAfter  decimal.Decimal
	SlippageBps int64

	// Profit is signed, in token0 units, net of gas. Zero for victim
	// items; realized on the back leg for sandwiches.
	Profit decimal.Decimal

	GasCost   decimal.Decimal // token0-equivalent
	LatencyNs int64

	Submission SubmissionStatus
}

// RoundRecord summarizes one committed round for the ledger.
type RoundRecord struct {
	RunID          string
	Round          int64
	IntentCount    int
	BidCount       int
	ExecutedCount  int
	FailedCount    int
	ExtractedValue decimal.Decimal // sum of positive agent profits
	VictimLossBps  int64           // mean victim slippage
}
