package reporting

import "time"

// Report is the rendered view of one completed run. The field tags drive
// the JSON artifact; the markdown and CSV renderers read the struct
// directly.
type Report struct {
	// Metadata
	GeneratedAt time.Time `json:"generated_at"`
	RunID       string    `json:"run_id"`
	Scenario    string    `json:"scenario"`
	Seed        int64     `json:"seed"`
	Rounds      int64     `json:"rounds"`

	// Run Summary
	Summary SummarySection `json:"summary"`

	// Agent Outcomes (sorted by agent_id)
	Agents []AgentRow `json:"agents"`

	// Hottest Rounds (sorted by extracted value, descending)
	TopRounds []RoundRow `json:"top_rounds"`
}

// SummarySection contains whole-run aggregates.
type SummarySection struct {
	IntentCount   int `json:"intent_count"`
	BidCount      int `json:"bid_count"`
	ExecutedCount int `json:"executed_count"`
	FailedCount   int `json:"failed_count"`

	ExtractedValue float64 `json:"extracted_value"`
	VictimLossBps  int64   `json:"victim_loss_bps"`
	ValueDestroyed float64 `json:"value_destroyed"`
}

// AgentRow represents one agent in the outcomes table.
type AgentRow struct {
	AgentID        string `json:"agent_id"`
	Kind           string `json:"kind"`
	LatencyProfile string `json:"latency_profile"`

	Attempts  int `json:"attempts"`
	Wins      int `json:"wins"`
	Losses    int `json:"losses"`
	RoundsSat int `json:"rounds_sat"`

	SuccessRate float64 `json:"success_rate"`
	GrossProfit float64 `json:"gross_profit"`
	NetProfit   float64 `json:"net_profit"`
	GasSpent    float64 `json:"gas_spent"`

	FinalBalance0 float64 `json:"final_balance0"`
	FinalBalance1 float64 `json:"final_balance1"`
}

// RoundRow represents one round in the hottest-rounds table.
type RoundRow struct {
	Round          int64   `json:"round"`
	IntentCount    int     `json:"intent_count"`
	BidCount       int     `json:"bid_count"`
	ExecutedCount  int     `json:"executed_count"`
	FailedCount    int     `json:"failed_count"`
	ExtractedValue float64 `json:"extracted_value"`
	VictimLossBps  int64   `json:"victim_loss_bps"`
}
