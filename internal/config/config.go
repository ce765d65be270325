// Package config loads run configuration from a YAML file, environment
// variables (MEVLAB_ prefix), and command-line flags, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/victim"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Scenario string
	Seed     int64
	Rounds   int64
	LogLevel string

	// Ordering selects the competition regime: "unrestricted" or
	// "backrun_only". FrontrunOnly suppresses sandwich back legs.
	Ordering     string
	FrontrunOnly bool

	Pool    PoolConfig
	Agents  []AgentConfig
	Victims []VictimConfig

	// FeedEndpoint is a websocket URL for live intent flow. Empty means
	// the seeded victim generator.
	FeedEndpoint string

	// ChainEndpoint is a JSON-RPC URL for bundle submission. Empty means
	// the no-op adapter.
	ChainEndpoint string

	// PostgresDSN and ClickhouseDSN select durable storage. Empty means
	// in-memory stores.
	PostgresDSN   string
	ClickhouseDSN string

	MetricsAddr   string
	RoundInterval time.Duration
	OutputDir     string
}

// PoolConfig describes the pool at round zero.
type PoolConfig struct {
	Reserve0    float64 `mapstructure:"reserve0"`
	Reserve1    float64 `mapstructure:"reserve1"`
	FeeRateBps  uint32  `mapstructure:"fee_rate_bps"`
	TargetRatio float64 `mapstructure:"target_ratio"`
}

// AgentConfig describes one competing agent.
type AgentConfig struct {
	ID                    string  `mapstructure:"id"`
	Kind                  string  `mapstructure:"kind"`
	BidPercentage         float64 `mapstructure:"bid_percentage"`
	MinProfitThreshold    float64 `mapstructure:"min_profit_threshold"`
	MonitorPriceDeviation float64 `mapstructure:"monitor_price_deviation"`
	LatencyProfile        string  `mapstructure:"latency_profile"`
	AllowSandwich         *bool   `mapstructure:"allow_sandwich"` // nil = true
	FrontrunOnly          bool    `mapstructure:"frontrun_only"`
	Balance0              float64 `mapstructure:"balance0"`
	Balance1              float64 `mapstructure:"balance1"`
	GasCostPerTrade       float64 `mapstructure:"gas_cost_per_trade"`
}

// VictimConfig describes one intent-producing trader. Zero fields fall
// back to the profile defaults.
type VictimConfig struct {
	ID               string  `mapstructure:"id"`
	Profile          string  `mapstructure:"profile"`
	TradeEveryRounds int64   `mapstructure:"trade_every_rounds"`
	AmountMin        float64 `mapstructure:"amount_min"`
	AmountMax        float64 `mapstructure:"amount_max"`
	MaxSlippageBps   int64   `mapstructure:"max_slippage_bps"`
	GasPriceGwei     float64 `mapstructure:"gas_price_gwei"`
	Balance0         float64 `mapstructure:"balance0"`
	Balance1         float64 `mapstructure:"balance1"`
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MEVLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("scenario", "baseline")
	v.SetDefault("seed", int64(1))
	v.SetDefault("rounds", int64(100))
	v.SetDefault("log-level", "info")
	v.SetDefault("ordering", string(domain.PolicyUnrestricted))
	v.SetDefault("metrics-addr", ":9091")
	v.SetDefault("round-interval", time.Second)
	v.SetDefault("output", "./reports")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Scenario:      v.GetString("scenario"),
		Seed:          v.GetInt64("seed"),
		Rounds:        v.GetInt64("rounds"),
		LogLevel:      v.GetString("log-level"),
		Ordering:      v.GetString("ordering"),
		FrontrunOnly:  v.GetBool("frontrun-only"),
		FeedEndpoint:  v.GetString("feed-endpoint"),
		ChainEndpoint: v.GetString("chain-endpoint"),
		PostgresDSN:   v.GetString("postgres-dsn"),
		ClickhouseDSN: v.GetString("clickhouse-dsn"),
		MetricsAddr:   v.GetString("metrics-addr"),
		RoundInterval: v.GetDuration("round-interval"),
		OutputDir:     v.GetString("output"),
	}

	if err := v.UnmarshalKey("pool", &cfg.Pool); err != nil {
		return Config{}, fmt.Errorf("parse pool config: %w", err)
	}
	if err := v.UnmarshalKey("agents", &cfg.Agents); err != nil {
		return Config{}, fmt.Errorf("parse agent configs: %w", err)
	}
	if err := v.UnmarshalKey("victims", &cfg.Victims); err != nil {
		return Config{}, fmt.Errorf("parse victim configs: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var knownKinds = map[string]domain.StrategyKind{
	string(domain.StrategyAggressive):   domain.StrategyAggressive,
	string(domain.StrategyConservative): domain.StrategyConservative,
	string(domain.StrategyAdaptive):     domain.StrategyAdaptive,
	string(domain.StrategySlow):         domain.StrategySlow,
	string(domain.StrategyBackrunOnly):  domain.StrategyBackrunOnly,
}

// Validate checks cross-field consistency after merging all sources.
func (c Config) Validate() error {
	if c.Scenario == "" {
		return fmt.Errorf("scenario must not be empty")
	}
	// Zero rounds means run until interrupted (live mode).
	if c.Rounds < 0 {
		return fmt.Errorf("rounds must not be negative, got %d", c.Rounds)
	}
	switch domain.OrderingPolicy(c.Ordering) {
	case domain.PolicyUnrestricted, domain.PolicyBackrunOnly:
	default:
		return fmt.Errorf("unknown ordering policy %q", c.Ordering)
	}
	if c.Pool.Reserve0 <= 0 || c.Pool.Reserve1 <= 0 {
		return fmt.Errorf("pool reserves must be positive")
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent required")
	}
	seen := make(map[string]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent id must not be empty")
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
		if _, ok := knownKinds[a.Kind]; !ok {
			return fmt.Errorf("agent %s: unknown strategy kind %q", a.ID, a.Kind)
		}
	}
	for _, vc := range c.Victims {
		if vc.ID == "" {
			return fmt.Errorf("victim id must not be empty")
		}
	}
	return nil
}

// PolicyFlags returns the run-level ordering restrictions.
func (c Config) PolicyFlags() domain.PolicyFlags {
	return domain.PolicyFlags{
		Ordering:     domain.OrderingPolicy(c.Ordering),
		FrontrunOnly: c.FrontrunOnly,
	}
}

// DomainPool converts the pool section for the state machine. A zero
// target ratio defaults to the initial spot price.
func (c Config) DomainPool() domain.PoolConfig {
	target := c.Pool.TargetRatio
	if target == 0 && c.Pool.Reserve0 > 0 {
		target = c.Pool.Reserve1 / c.Pool.Reserve0
	}
	return domain.PoolConfig{
		FeeRateBps:      c.Pool.FeeRateBps,
		InitialReserve0: decimal.NewFromFloat(c.Pool.Reserve0),
		InitialReserve1: decimal.NewFromFloat(c.Pool.Reserve1),
		TargetRatio:     decimal.NewFromFloat(target),
	}
}

// DomainAgents converts the agent sections for the engine.
func (c Config) DomainAgents() []domain.StrategyConfig {
	out := make([]domain.StrategyConfig, len(c.Agents))
	for i, a := range c.Agents {
		allowSandwich := true
		if a.AllowSandwich != nil {
			allowSandwich = *a.AllowSandwich
		}
		out[i] = domain.StrategyConfig{
			AgentID:               a.ID,
			Kind:                  knownKinds[a.Kind],
			BidPercentage:         a.BidPercentage,
			MinProfitThreshold:    decimal.NewFromFloat(a.MinProfitThreshold),
			MonitorPriceDeviation: a.MonitorPriceDeviation,
			LatencyProfile:        a.LatencyProfile,
			AllowSandwich:         allowSandwich,
			FrontrunOnly:          a.FrontrunOnly,
			InitialBalance0:       decimal.NewFromFloat(a.Balance0),
			InitialBalance1:       decimal.NewFromFloat(a.Balance1),
			GasCostPerTrade:       decimal.NewFromFloat(a.GasCostPerTrade),
		}
	}
	return out
}

// DomainVictims converts the victim sections, filling unset fields from
// the profile defaults.
func (c Config) DomainVictims() []domain.VictimConfig {
	out := make([]domain.VictimConfig, len(c.Victims))
	for i, vc := range c.Victims {
		cfg := victim.DefaultConfig(vc.ID, domain.VictimProfile(vc.Profile))
		if vc.TradeEveryRounds > 0 {
			cfg.TradeEveryRounds = vc.TradeEveryRounds
		}
		if vc.AmountMin > 0 {
			cfg.AmountMin = decimal.NewFromFloat(vc.AmountMin)
		}
		if vc.AmountMax > 0 {
			cfg.AmountMax = decimal.NewFromFloat(vc.AmountMax)
		}
		if vc.MaxSlippageBps > 0 {
			cfg.MaxSlippageBps = vc.MaxSlippageBps
		}
		if vc.GasPriceGwei > 0 {
			cfg.GasPriceGwei = decimal.NewFromFloat(vc.GasPriceGwei)
		}
		if vc.Balance0 > 0 {
			cfg.InitialBalance0 = decimal.NewFromFloat(vc.Balance0)
		}
		if vc.Balance1 > 0 {
			cfg.InitialBalance1 = decimal.NewFromFloat(vc.Balance1)
		}
		out[i] = cfg
	}
	return out
}
