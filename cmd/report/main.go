// Package main renders reports for a completed run from durable storage.
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

	"mev-competition-lab/internal/metrics"
	"mev-competition-lab/internal/reporting"
	pgstore "mev-competition-lab/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "report",
		Short:        "Render reports for a stored run",
		SilenceUsage: true,
		RunE:         runReport,
	}

	root.Flags().String("run-id", "", "run identifier (required)")
	root.Flags().String("scenario", "", "scenario label for the report header")
	root.Flags().Int64("seed", 0, "seed for the report header")
	root.Flags().String("postgres-dsn", "", "PostgreSQL DSN holding the ledger (required)")
	root.Flags().String("output", "./reports", "report output directory")
	root.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReport(cmd *cobra.Command, _ []string) error {
	runID, _ := cmd.Flags().GetString("run-id")
	scenario, _ := cmd.Flags().GetString("scenario")
	seed, _ := cmd.Flags().GetInt64("seed")
	dsn, _ := cmd.Flags().GetString("postgres-dsn")
	outputDir, _ := cmd.Flags().GetString("output")
	level, _ := cmd.Flags().GetString("log-level")

	if runID == "" {
		return fmt.Errorf("--run-id is required")
	}
	if dsn == "" {
		dsn = os.Getenv("MEVLAB_POSTGRES_DSN")
	}
	if dsn == "" {
		return fmt.Errorf("--postgres-dsn is required")
	}

	logger, err := newLogger(level)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	resultStore := pgstore.NewTradeResultStore(pool)
	roundStore := pgstore.NewRoundStore(pool)
	outcomeStore := pgstore.NewAgentOutcomeStore(pool)

	// Rebuild the summary from the stored ledger rather than trusting a
	// stale copy.
	agg := metrics.NewAggregator(resultStore, roundStore, nil)
	summary, err := agg.ComputeSummary(ctx, runID, scenario, seed)
	if err != nil {
		return fmt.Errorf("compute summary: %w", err)
	}

	gen := reporting.NewGenerator(resultStore, roundStore, outcomeStore)
	report, err := gen.Generate(ctx, summary)
	if err != nil {
		return err
	}
	results, err := gen.Results(ctx, runID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
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

	logger.Info("reports written",
		zap.String("run_id", runID),
		zap.String("output", outputDir),
		zap.Int("results", len(results)),
	)
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
