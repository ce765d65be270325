package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeRunID derives a short base58 run identifier from the run seed and
// scenario name. The same (seed, scenario) pair always yields the same ID,
// so re-running a scenario overwrites its prior rows instead of duplicating
// them.
func ComputeRunID(seed int64, scenario string) string {
	data := fmt.Sprintf("run|%d|%s", seed, scenario)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:16])
}

// DeriveSeed expands the run seed into an independent per-(round, agent)
// stream seed. Hash-based derivation keeps streams uncorrelated regardless
// of agent count or evaluation order.
func DeriveSeed(runSeed int64, round int64, agentID string) int64 {
	data := fmt.Sprintf("seed|%d|%d|%s", runSeed, round, agentID)
	hash := sha256.Sum256([]byte(data))
	v := binary.BigEndian.Uint64(hash[:8])
	return int64(v & (1<<63 - 1))
}
