package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeIntentID computes a deterministic intent_id using SHA256.
// Formula: SHA256(run_id|round|victim_id|direction|amount_in)
// Returns hex-encoded hash (64 characters).
func ComputeIntentID(
	runID string,
	round int64,
	victimID string,
	direction string,
	amountIn string,
) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%s",
		runID,
		round,
		victimID,
		direction,
		amountIn,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeWireIntentID computes a deterministic intent_id for externally
// sourced intents using SHA256.
// Formula: SHA256(run_id|round|victim_id|direction|amount_in|seq)
// The sequence number disambiguates otherwise identical messages arriving
// within one round; generated intents never need it because a victim
// produces at most one intent per round.
// Returns hex-encoded hash (64 characters).
func ComputeWireIntentID(
	runID string,
	round int64,
	victimID string,
	direction string,
	amountIn string,
	seq int64,
) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%s|%d",
		runID,
		round,
		victimID,
		direction,
		amountIn,
		seq,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeBidID computes a deterministic bid_id using SHA256.
// Formula: SHA256(run_id|round|agent_id|intent_ref|kind)
// Returns hex-encoded hash (64 characters).
func ComputeBidID(
	runID string,
	round int64,
	agentID string,
	intentRef string,
	kind string,
) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%s",
		runID,
		round,
		agentID,
		intentRef,
		kind,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeResultID computes a deterministic result_id using SHA256.
// Formula: SHA256(run_id|round|execution_index|ref_id)
// Returns hex-encoded hash (64 characters).
func ComputeResultID(
	runID string,
	round int64,
	executionIndex int,
	refID string,
) string {
	data := fmt.Sprintf("%s|%d|%d|%s",
		runID,
		round,
		executionIndex,
		refID,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
