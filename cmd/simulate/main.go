// Package main runs one offline competition from configuration and
// writes its reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mev-competition-lab/internal/chain"
	"mev-competition-lab/internal/config"
	"mev-competition-lab/internal/orchestrator"
	"mev-competition-lab/internal/reporting"
	"mev-competition-lab/internal/storage"
	chstore "mev-competition-lab/internal/storage/clickhouse"
	"mev-competition-lab/internal/storage/memory"
	"mev-competition-lab/internal/storage/migrations"
	pgstore "mev-competition-lab/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "simulate",
		Short:        "Run an ordering-competition simulation",
		SilenceUsage: true,
		RunE:         runSimulate,
	}

	root.Flags().String("config", "", "config file path")
	root.Flags().String("scenario", "baseline", "scenario label recorded in the ledger")
	root.Flags().Int64("seed", 1, "run seed")
	root.Flags().Int64("rounds", 100, "number of rounds")
	root.Flags().String("ordering", "unrestricted", "ordering policy (unrestricted, backrun_only)")
	root.Flags().Bool("frontrun-only", false, "suppress sandwich back legs")
	root.Flags().String("postgres-dsn", "", "PostgreSQL DSN for the ledger (empty = in-memory)")
	root.Flags().String("clickhouse-dsn", "", "ClickHouse DSN for pool snapshots (empty = in-memory)")
	root.Flags().String("chain-endpoint", "", "JSON-RPC endpoint for bundle submission (empty = no-op)")
	root.Flags().String("output", "./reports", "report output directory")
	root.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	var submitter chain.SubmissionAdapter = chain.NopAdapter{}
	if cfg.ChainEndpoint != "" {
		submitter = chain.NewHTTPClient(cfg.ChainEndpoint)
	}

	result, err := orchestrator.New(orchestrator.Options{
		Scenario:         cfg.Scenario,
		Seed:             cfg.Seed,
		Rounds:           cfg.Rounds,
		Flags:            cfg.PolicyFlags(),
		Pool:             cfg.DomainPool(),
		Agents:           cfg.DomainAgents(),
		Victims:          cfg.DomainVictims(),
		Submitter:        submitter,
		Logger:           logger,
		TradeResultStore: st.results,
		RoundStore:       st.rounds,
		SnapshotStore:    st.snapshots,
		OutcomeStore:     st.outcomes,
	}).Run(ctx)
	if err != nil {
		return err
	}

	if result.Summary == nil {
		logger.Warn("no rounds committed, skipping reports")
		return nil
	}

	if err := writeReports(ctx, cfg.OutputDir, st, result); err != nil {
		return err
	}

	fmt.Printf("run %s complete: %d rounds\n", result.RunID, result.RoundsRun)
	fmt.Printf("  - %s\n", filepath.Join(cfg.OutputDir, "report.md"))
	fmt.Printf("  - %s\n", filepath.Join(cfg.OutputDir, "report.json"))
	fmt.Printf("  - %s\n", filepath.Join(cfg.OutputDir, "agents.csv"))
	fmt.Printf("  - %s\n", filepath.Join(cfg.OutputDir, "results.csv"))
	return nil
}

// runStores bundles the ledger backends behind the storage interfaces.
type runStores struct {
	results   storage.TradeResultStore
	rounds    storage.RoundStore
	outcomes  storage.AgentOutcomeStore
	snapshots storage.PoolSnapshotStore
	close     func()
}

// openStores selects durable or in-memory storage from configuration and
// applies migrations on the durable path.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*runStores, error) {
	st := &runStores{
		results:   memory.NewTradeResultStore(),
		rounds:    memory.NewRoundStore(),
		outcomes:  memory.NewAgentOutcomeStore(),
		snapshots: memory.NewPoolSnapshotStore(),
		close:     func() {},
	}

	var closers []func()

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		st.results = pgstore.NewTradeResultStore(pool)
		st.rounds = pgstore.NewRoundStore(pool)
		st.outcomes = pgstore.NewAgentOutcomeStore(pool)
		closers = append(closers, pool.Close)
		logger.Info("using postgres ledger")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		st.snapshots = chstore.NewPoolSnapshotStore(conn)
		closers = append(closers, func() { conn.Close() })
		logger.Info("using clickhouse snapshots")
	}

	st.close = func() {
		for _, c := range closers {
			c()
		}
	}
	return st, nil
}

// writeReports renders the markdown, JSON and CSV artifacts into the
// output dir.
func writeReports(ctx context.Context, outputDir string, st *runStores, result *orchestrator.RunResult) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	gen := reporting.NewGenerator(st.results, st.rounds, st.outcomes)
	report, err := gen.Generate(ctx, result.Summary)
	if err != nil {
		return err
	}
	results, err := gen.Results(ctx, result.RunID)
	if err != nil {
		return err
	}

	reportJSON, err := reporting.RenderJSON(report)
	if err != nil {
		return fmt.Errorf("render json: %w", err)
	}

	files := map[string]string{
		"report.md":   reporting.RenderMarkdown(report),
		"report.json": reportJSON,
		"agents.csv":  reporting.RenderAgentsCSV(report.Agents),
		"results.csv": reporting.RenderResultsCSV(results),
	}
	for name, content := range files {
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
