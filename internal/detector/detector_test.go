package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/latency"
)

func baseConfig(kind domain.StrategyKind) domain.StrategyConfig {
	return domain.StrategyConfig{
		AgentID:               "agent-1",
		Kind:                  kind,
		BidPercentage:         50,
		MinProfitThreshold:    decimal.Zero,
		MonitorPriceDeviation: 0.003,
		LatencyProfile:        latency.ProfileLow,
		AllowSandwich:         true,
		InitialBalance0:       decimal.NewFromInt(10_000),
		InitialBalance1:       decimal.NewFromInt(10_000),
		GasCostPerTrade:       decimal.NewFromFloat(0.01),
	}
}

func baseInput(cfg domain.StrategyConfig) *Input {
	intent := domain.TradeIntent{
		IntentID:       "i1",
		AgentID:        "victim-1",
		Direction:      domain.Sell0,
		AmountIn:       decimal.NewFromInt(100),
		MaxSlippageBps: 200,
		GasPriceGwei:   decimal.NewFromInt(10),
	}
	return &Input{
		RunID:  "run-test",
		Round:  1,
		Config: cfg,
		Agent: &domain.AgentState{
			AgentID:       cfg.AgentID,
			Kind:          cfg.Kind,
			Balance0:      cfg.InitialBalance0,
			Balance1:      cfg.InitialBalance1,
			BidPercentage: cfg.BidPercentage,
		},
		Pool: domain.PoolState{
			Reserve0:   decimal.NewFromInt(1000),
			Reserve1:   decimal.NewFromInt(2000),
			FeeRateBps: 30,
		},
		PoolConfig: domain.PoolConfig{
			FeeRateBps:  30,
			TargetRatio: decimal.NewFromInt(2),
		},
		Intent: &intent,
	}
}

func TestFromConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.StrategyConfig)
		wantErr error
	}{
		{
			name:    "unknown kind",
			mutate:  func(c *domain.StrategyConfig) { c.Kind = "MYSTERY" },
			wantErr: ErrUnknownStrategyKind,
		},
		{
			name:    "zero bid percentage",
			mutate:  func(c *domain.StrategyConfig) { c.BidPercentage = 0 },
			wantErr: ErrInvalidBidPercentage,
		},
		{
			name:    "bid percentage above 100",
			mutate:  func(c *domain.StrategyConfig) { c.BidPercentage = 150 },
			wantErr: ErrInvalidBidPercentage,
		},
		{
			name: "backrun without deviation gate",
			mutate: func(c *domain.StrategyConfig) {
				c.Kind = domain.StrategyBackrunOnly
				c.MonitorPriceDeviation = 0
			},
			wantErr: ErrMissingDeviationGate,
		},
		{
			name: "negative profit floor",
			mutate: func(c *domain.StrategyConfig) {
				c.MinProfitThreshold = decimal.NewFromInt(-1)
			},
			wantErr: ErrNegativeProfitFloor,
		},
		{
			name:    "missing latency profile",
			mutate:  func(c *domain.StrategyConfig) { c.LatencyProfile = "" },
			wantErr: ErrMissingLatencyProfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(domain.StrategyAggressive)
			tt.mutate(&cfg)
			if _, err := FromConfig(cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("FromConfig() err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromConfigKinds(t *testing.T) {
	for _, kind := range []domain.StrategyKind{
		domain.StrategyAggressive,
		domain.StrategyConservative,
		domain.StrategyAdaptive,
		domain.StrategySlow,
		domain.StrategyBackrunOnly,
	} {
		if _, err := FromConfig(baseConfig(kind)); err != nil {
			t.Errorf("FromConfig(%s): %v", kind, err)
		}
	}
}

func TestSandwichProfitableBid(t *testing.T) {
	cfg := baseConfig(domain.StrategyAggressive)
	d, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	bid, err := d.Evaluate(context.Background(), baseInput(cfg))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if bid == nil {
		t.Fatal("expected a bid for a fat sandwich opportunity")
	}

	if !bid.SizeIn.Equal(decimal.NewFromInt(80)) {
		t.Errorf("SizeIn = %s, want 80 (0.8x of victim amount)", bid.SizeIn)
	}
	if bid.Kind != domain.BidSandwich {
		t.Errorf("Kind = %v, want sandwich", bid.Kind)
	}
	if bid.IntentRef != "i1" {
		t.Errorf("IntentRef = %q, want i1", bid.IntentRef)
	}
	if bid.ProjectedProfit.Sign() <= 0 {
		t.Errorf("ProjectedProfit = %s, want positive", bid.ProjectedProfit)
	}
	// Fee is half the projected profit at 50% bid percentage.
	wantFee := bid.ProjectedProfit.Div(decimal.NewFromInt(2))
	if !bid.PriorityFeeGwei.Equal(wantFee) {
		t.Errorf("PriorityFeeGwei = %s, want %s", bid.PriorityFeeGwei, wantFee)
	}
}

func TestSandwichSizeMultipliers(t *testing.T) {
	tests := []struct {
		kind domain.StrategyKind
		want decimal.Decimal
	}{
		{domain.StrategyAggressive, decimal.NewFromInt(80)},
		{domain.StrategyConservative, decimal.NewFromInt(30)},
		{domain.StrategySlow, decimal.NewFromInt(50)},
	}

	for _, tt := range tests {
		cfg := baseConfig(tt.kind)
		d, err := FromConfig(cfg)
		if err != nil {
			t.Fatalf("FromConfig(%s): %v", tt.kind, err)
		}
		bid, err := d.Evaluate(context.Background(), baseInput(cfg))
		if err != nil {
			t.Fatalf("Evaluate(%s): %v", tt.kind, err)
		}
		if bid == nil {
			t.Fatalf("%s: expected a bid", tt.kind)
		}
		if !bid.SizeIn.Equal(tt.want) {
			t.Errorf("%s: SizeIn = %s, want %s", tt.kind, bid.SizeIn, tt.want)
		}
	}
}

func TestSandwichPolicyGateYieldsNoBid(t *testing.T) {
	cfg := baseConfig(domain.StrategyAggressive)
	cfg.AllowSandwich = false
	d, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	bid, err := d.Evaluate(context.Background(), baseInput(cfg))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if bid != nil {
		t.Fatalf("policy-disallowed evaluation produced bid %+v", bid)
	}
}

func TestSandwichBidCarriesFrontrunOnlyGate(t *testing.T) {
	cfg := baseConfig(domain.StrategyAggressive)
	cfg.FrontrunOnly = true
	d, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	bid, err := d.Evaluate(context.Background(), baseInput(cfg))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if bid == nil {
		t.Fatal("expected a bid")
	}
	if !bid.FrontrunOnly {
		t.Error("bid does not carry the agent's frontrun-only gate")
	}
}

func TestSandwichNoIntentNoBid(t *testing.T) {
	cfg := baseConfig(domain.StrategyAggressive)
	d, _ := FromConfig(cfg)

	input := baseInput(cfg)
	input.Intent = nil

	bid, err := d.Evaluate(context.Background(), input)
	if err != nil || bid != nil {
		t.Fatalf("Evaluate with no intent: bid=%v err=%v, want nil/nil", bid, err)
	}
}

func TestSandwichUnprofitableYieldsNoBid(t *testing.T) {
	cfg := baseConfig(domain.StrategyAggressive)
	d, _ := FromConfig(cfg)

	// A dust-sized victim cannot cover the round-trip fee plus gas.
	input := baseInput(cfg)
	input.Intent.AmountIn = decimal.NewFromFloat(0.01)

	bid, err := d.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if bid != nil {
		t.Fatalf("dust opportunity produced bid %+v", bid)
	}
}

func TestSandwichInsufficientBalanceYieldsNoBid(t *testing.T) {
	cfg := baseConfig(domain.StrategyAggressive)
	d, _ := FromConfig(cfg)

	input := baseInput(cfg)
	input.Agent.Balance0 = decimal.NewFromInt(10)

	bid, err := d.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if bid != nil {
		t.Fatalf("underfunded agent produced bid %+v", bid)
	}
}

func TestSlowDetectionPenalty(t *testing.T) {
	cfg := baseConfig(domain.StrategySlow)
	d, _ := FromConfig(cfg)

	fast := baseInput(cfg)
	fast.Latency = latency.AgentLatency{DetectionNs: int64(5 * time.Millisecond)}
	fastBid, err := d.Evaluate(context.Background(), fast)
	if err != nil || fastBid == nil {
		t.Fatalf("fast evaluate: bid=%v err=%v", fastBid, err)
	}

	slow := baseInput(cfg)
	slow.Latency = latency.AgentLatency{DetectionNs: int64(120 * time.Millisecond)}
	slowBid, err := d.Evaluate(context.Background(), slow)
	if err != nil || slowBid == nil {
		t.Fatalf("slow evaluate: bid=%v err=%v", slowBid, err)
	}

	if slowBid.ProjectedProfit.Cmp(fastBid.ProjectedProfit) >= 0 {
		t.Errorf("detection lag did not discount profit: slow %s vs fast %s",
			slowBid.ProjectedProfit, fastBid.ProjectedProfit)
	}
}

func TestAdaptiveSizeTracksSuccessRate(t *testing.T) {
	cfg := baseConfig(domain.StrategyAdaptive)
	d, _ := FromConfig(cfg)

	fresh := baseInput(cfg)
	freshBid, err := d.Evaluate(context.Background(), fresh)
	if err != nil || freshBid == nil {
		t.Fatalf("fresh evaluate: bid=%v err=%v", freshBid, err)
	}
	if !freshBid.SizeIn.Equal(decimal.NewFromInt(30)) {
		t.Errorf("fresh adaptive SizeIn = %s, want 30 (conservative floor)", freshBid.SizeIn)
	}

	proven := baseInput(cfg)
	proven.Agent.Attempts = 10
	proven.Agent.Wins = 10
	provenBid, err := d.Evaluate(context.Background(), proven)
	if err != nil || provenBid == nil {
		t.Fatalf("proven evaluate: bid=%v err=%v", provenBid, err)
	}
	if !provenBid.SizeIn.Equal(decimal.NewFromInt(80)) {
		t.Errorf("proven adaptive SizeIn = %s, want 80 (aggressive ceiling)", provenBid.SizeIn)
	}
}

func TestBackrunTriggersOnDeviation(t *testing.T) {
	cfg := baseConfig(domain.StrategyBackrunOnly)
	d, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	input := baseInput(cfg)
	input.Intent = nil
	// Pool sits 4% above the target ratio of 2.
	input.Pool.Reserve1 = decimal.NewFromInt(2080)

	bid, err := d.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if bid == nil {
		t.Fatal("expected a corrective bid at 4% deviation")
	}
	if bid.Kind != domain.BidBackrun {
		t.Errorf("Kind = %v, want backrun", bid.Kind)
	}
	if bid.Direction != domain.Sell0 {
		t.Errorf("Direction = %v, want sell0 to push the price down", bid.Direction)
	}
	if bid.ProjectedProfit.Sign() <= 0 {
		t.Errorf("ProjectedProfit = %s, want positive by construction", bid.ProjectedProfit)
	}
}

func TestBackrunSilentBelowGate(t *testing.T) {
	cfg := baseConfig(domain.StrategyBackrunOnly)
	d, _ := FromConfig(cfg)

	input := baseInput(cfg)
	input.Intent = nil
	// 0.1% off target, below the 0.3% gate.
	input.Pool.Reserve1 = decimal.NewFromInt(2002)

	bid, err := d.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if bid != nil {
		t.Fatalf("sub-threshold deviation produced bid %+v", bid)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	cfg := baseConfig(domain.StrategyAggressive)
	d, _ := FromConfig(cfg)

	first, err := d.Evaluate(context.Background(), baseInput(cfg))
	if err != nil || first == nil {
		t.Fatalf("first evaluate: bid=%v err=%v", first, err)
	}
	for i := 0; i < 50; i++ {
		got, err := d.Evaluate(context.Background(), baseInput(cfg))
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if got == nil || got.BidID != first.BidID ||
			!got.ProjectedProfit.Equal(first.ProjectedProfit) ||
			!got.PriorityFeeGwei.Equal(first.PriorityFeeGwei) {
			t.Fatalf("iteration %d: evaluation diverged: %+v vs %+v", i, got, first)
		}
	}
}
