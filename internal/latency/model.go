// Package latency models per-agent pipeline delay. Samples are logical
// quantities consumed as ordering keys by the auction resolver; nothing in
// this package ever sleeps.
package latency

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// ErrUnknownProfile is returned when a profile name has no registration.
var ErrUnknownProfile = errors.New("unknown latency profile")

// Distribution selects how a stage draws inside its bounds.
type Distribution string

// Distribution constants.
const (
	DistUniform         Distribution = "uniform"
	DistTruncatedNormal Distribution = "truncated_normal"
)

// StageRange bounds one pipeline stage.
type StageRange struct {
	Min time.Duration
	Max time.Duration
}

// Profile describes one infrastructure tier's pipeline delays.
type Profile struct {
	Name           string
	Detection      StageRange
	Computation    StageRange
	BundleCreation StageRange
	Submission     StageRange

	// Jitter is a fraction applied multiplicatively and independently
	// per stage: stage *= 1 + u*jitter, u uniform in [-1, 1].
	Jitter float64

	Distribution Distribution
}

// AgentLatency is one sampled pipeline traversal, all values in nanoseconds.
type AgentLatency struct {
	DetectionNs      int64
	ComputationNs    int64
	BundleCreationNs int64
	SubmissionNs     int64
	JitterApplied    bool
}

// TotalNs is the effective end-to-end latency used as a comparison key.
func (l AgentLatency) TotalNs() int64 {
	return l.DetectionNs + l.ComputationNs + l.BundleCreationNs + l.SubmissionNs
}

// Sample draws one pipeline traversal from the profile. The same
// (profile, seed) pair always yields the same sample: the generator is
// seeded locally and stages are drawn in a fixed order.
func Sample(p Profile, seed int64) AgentLatency {
	rng := rand.New(rand.NewSource(seed))

	out := AgentLatency{
		DetectionNs:      drawStage(rng, p, p.Detection),
		ComputationNs:    drawStage(rng, p, p.Computation),
		BundleCreationNs: drawStage(rng, p, p.BundleCreation),
		SubmissionNs:     drawStage(rng, p, p.Submission),
		JitterApplied:    p.Jitter > 0,
	}
	return out
}

// drawStage samples one stage and applies jitter.
func drawStage(rng *rand.Rand, p Profile, r StageRange) int64 {
	lo := float64(r.Min)
	hi := float64(r.Max)
	if hi < lo {
		hi = lo
	}

	var v float64
	switch p.Distribution {
	case DistTruncatedNormal:
		mean := (lo + hi) / 2
		sd := (hi - lo) / 6
		v = mean + rng.NormFloat64()*sd
		v = math.Max(lo, math.Min(hi, v))
	default: // uniform
		v = lo + rng.Float64()*(hi-lo)
	}

	if p.Jitter > 0 {
		u := rng.Float64()*2 - 1
		v *= 1 + u*p.Jitter
	}
	if v < 0 {
		v = 0
	}
	return int64(v)
}
