package latency

import (
	"fmt"
	"time"
)

// Named profile identifiers.
const (
	ProfileLow                 = "low"
	ProfileMedium              = "medium"
	ProfileHigh                = "high"
	ProfileVariablePerformance = "variable_performance"
)

func ms(v float64) time.Duration { return time.Duration(v * float64(time.Millisecond)) }

// profiles maps profile names to their definitions. Bounds are centered on
// the tier's nominal stage delays with a +/-50% spread.
var profiles = map[string]Profile{
	// Co-located infrastructure.
	ProfileLow: {
		Name:           ProfileLow,
		Detection:      StageRange{Min: ms(2.5), Max: ms(7.5)},
		Computation:    StageRange{Min: ms(1), Max: ms(3)},
		BundleCreation: StageRange{Min: ms(0.5), Max: ms(1.5)},
		Submission:     StageRange{Min: ms(2.5), Max: ms(7.5)},
		Jitter:         0.05,
		Distribution:   DistUniform,
	},
	// Regional node with decent tooling.
	ProfileMedium: {
		Name:           ProfileMedium,
		Detection:      StageRange{Min: ms(10), Max: ms(30)},
		Computation:    StageRange{Min: ms(5), Max: ms(15)},
		BundleCreation: StageRange{Min: ms(2.5), Max: ms(7.5)},
		Submission:     StageRange{Min: ms(10), Max: ms(30)},
		Jitter:         0.1,
		Distribution:   DistUniform,
	},
	// Public RPC, shared compute.
	ProfileHigh: {
		Name:           ProfileHigh,
		Detection:      StageRange{Min: ms(25), Max: ms(75)},
		Computation:    StageRange{Min: ms(15), Max: ms(45)},
		BundleCreation: StageRange{Min: ms(5), Max: ms(15)},
		Submission:     StageRange{Min: ms(50), Max: ms(150)},
		Jitter:         0.2,
		Distribution:   DistUniform,
	},
	// Wide bounds with a normal draw: usually mid-pack, occasionally
	// either very fast or very slow.
	ProfileVariablePerformance: {
		Name:           ProfileVariablePerformance,
		Detection:      StageRange{Min: ms(5), Max: ms(100)},
		Computation:    StageRange{Min: ms(2), Max: ms(60)},
		BundleCreation: StageRange{Min: ms(1), Max: ms(20)},
		Submission:     StageRange{Min: ms(5), Max: ms(150)},
		Jitter:         0.3,
		Distribution:   DistTruncatedNormal,
	},
}

// ByName resolves a named profile.
func ByName(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// Names lists the registered profile names. Order is unspecified.
func Names() []string {
	out := make([]string, 0, len(profiles))
	for name := range profiles {
		out = append(out, name)
	}
	return out
}
