package idhash

import "testing"

func TestComputeIntentID(t *testing.T) {
	tests := []struct {
		name      string
		runID     string
		round     int64
		victimID  string
		direction string
		amountIn  string
	}{
		{
			name:      "retail sell0",
			runID:     "6rDhBkXFz",
			round:     3,
			victimID:  "victim-retail-1",
			direction: "sell0",
			amountIn:  "25.5",
		},
		{
			name:      "whale sell1",
			runID:     "6rDhBkXFz",
			round:     17,
			victimID:  "victim-whale-1",
			direction: "sell1",
			amountIn:  "900",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeIntentID(tt.runID, tt.round, tt.victimID, tt.direction, tt.amountIn)
			if len(got) != 64 {
				t.Errorf("ComputeIntentID() length = %d, want 64", len(got))
			}

			got2 := ComputeIntentID(tt.runID, tt.round, tt.victimID, tt.direction, tt.amountIn)
			if got != got2 {
				t.Errorf("ComputeIntentID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeIntentID_DifferentInputs(t *testing.T) {
	base := ComputeIntentID("run1", 1, "v1", "sell0", "10")

	variants := []string{
		ComputeIntentID("run2", 1, "v1", "sell0", "10"),
		ComputeIntentID("run1", 2, "v1", "sell0", "10"),
		ComputeIntentID("run1", 1, "v2", "sell0", "10"),
		ComputeIntentID("run1", 1, "v1", "sell1", "10"),
		ComputeIntentID("run1", 1, "v1", "sell0", "11"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collides with base ID", i)
		}
	}
}

func TestComputeWireIntentID_SequenceDisambiguates(t *testing.T) {
	first := ComputeWireIntentID("run1", 1, "v1", "sell0", "10", 0)
	second := ComputeWireIntentID("run1", 1, "v1", "sell0", "10", 1)

	if len(first) != 64 || len(second) != 64 {
		t.Errorf("lengths = %d/%d, want 64", len(first), len(second))
	}
	if first == second {
		t.Error("distinct sequence numbers produced the same ID")
	}
	if again := ComputeWireIntentID("run1", 1, "v1", "sell0", "10", 0); again != first {
		t.Errorf("not deterministic: %s != %s", again, first)
	}
}

func TestComputeBidID_Determinism(t *testing.T) {
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		results[i] = ComputeBidID("run1", 5, "agent-aggressive-1", "intentabc", "sandwich")
	}
	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Errorf("ComputeBidID() iteration %d differs: %s != %s", i, results[i], results[0])
		}
	}
}

func TestComputeResultID_ExecutionIndexMatters(t *testing.T) {
	a := ComputeResultID("run1", 5, 0, "refabc")
	b := ComputeResultID("run1", 5, 1, "refabc")
	if a == b {
		t.Error("different execution indexes produced the same result ID")
	}
}

func TestComputeRunID(t *testing.T) {
	a := ComputeRunID(42, "baseline")
	b := ComputeRunID(42, "baseline")
	if a != b {
		t.Fatalf("ComputeRunID() not deterministic: %s != %s", a, b)
	}
	if a == ComputeRunID(43, "baseline") {
		t.Error("different seeds produced the same run ID")
	}
	if a == ComputeRunID(42, "stress") {
		t.Error("different scenarios produced the same run ID")
	}
	if len(a) == 0 || len(a) > 32 {
		t.Errorf("unexpected run ID length %d: %s", len(a), a)
	}
}

func TestDeriveSeed(t *testing.T) {
	a := DeriveSeed(42, 1, "agent-1")
	if a != DeriveSeed(42, 1, "agent-1") {
		t.Fatal("DeriveSeed() not deterministic")
	}
	if a < 0 {
		t.Errorf("derived seed %d is negative", a)
	}

	seen := map[int64]string{}
	for round := int64(0); round < 10; round++ {
		for _, agent := range []string{"agent-1", "agent-2", "agent-3"} {
			s := DeriveSeed(42, round, agent)
			if prev, ok := seen[s]; ok {
				t.Fatalf("seed collision between %s and round=%d/%s", prev, round, agent)
			}
			seen[s] = agent
		}
	}
}
