// Package main runs a paced competition against a live intent feed,
// exposing Prometheus metrics while rounds commit.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mev-competition-lab/internal/chain"
	"mev-competition-lab/internal/config"
	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/feed"
	"mev-competition-lab/internal/idhash"
	"mev-competition-lab/internal/observability"
	"mev-competition-lab/internal/orchestrator"
	"mev-competition-lab/internal/simulation"
	"mev-competition-lab/internal/storage"
	chstore "mev-competition-lab/internal/storage/clickhouse"
	"mev-competition-lab/internal/storage/memory"
	"mev-competition-lab/internal/storage/migrations"
	pgstore "mev-competition-lab/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "live",
		Short:        "Run a paced competition on a live intent feed",
		SilenceUsage: true,
		RunE:         runLive,
	}

	root.Flags().String("config", "", "config file path")
	root.Flags().String("scenario", "live", "scenario label recorded in the ledger")
	root.Flags().Int64("seed", 1, "run seed")
	root.Flags().Int64("rounds", 0, "number of rounds (0 = until interrupted)")
	root.Flags().String("ordering", "unrestricted", "ordering policy (unrestricted, backrun_only)")
	root.Flags().Bool("frontrun-only", false, "suppress sandwich back legs")
	root.Flags().String("feed-endpoint", "", "websocket intent feed URL (required)")
	root.Flags().String("chain-endpoint", "", "JSON-RPC endpoint for bundle submission (empty = no-op)")
	root.Flags().String("postgres-dsn", "", "PostgreSQL DSN for the ledger (empty = in-memory)")
	root.Flags().String("clickhouse-dsn", "", "ClickHouse DSN for pool snapshots (empty = in-memory)")
	root.Flags().String("metrics-addr", ":9091", "Prometheus metrics HTTP address")
	root.Flags().Duration("round-interval", time.Second, "delay between rounds")
	root.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// liveRoundCap bounds an open-ended run; interrupt ends it sooner.
const liveRoundCap = int64(1 << 40)

func runLive(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.FeedEndpoint == "" {
		return fmt.Errorf("--feed-endpoint is required")
	}

	rounds := cfg.Rounds
	if rounds <= 0 {
		rounds = liveRoundCap
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

	runID := idhash.ComputeRunID(cfg.Seed, cfg.Scenario)
	source, err := feed.NewWSSource(ctx, cfg.FeedEndpoint, runID, nil, logger)
	if err != nil {
		return fmt.Errorf("connect feed: %w", err)
	}
	defer source.Close()

	var submitter chain.SubmissionAdapter = chain.NopAdapter{}
	if cfg.ChainEndpoint != "" {
		submitter = chain.NewHTTPClient(cfg.ChainEndpoint)
	}

	metricsSrv := startMetricsServer(cfg.MetricsAddr, logger)
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		metricsSrv.Shutdown(shutdownCtx)
	}()

	go trackUptime(ctx)

	result, err := orchestrator.New(orchestrator.Options{
		Scenario:         cfg.Scenario,
		Seed:             cfg.Seed,
		Rounds:           rounds,
		Flags:            cfg.PolicyFlags(),
		Pool:             cfg.DomainPool(),
		Agents:           cfg.DomainAgents(),
		Victims:          cfg.DomainVictims(),
		Source:           source,
		Interval:         cfg.RoundInterval,
		RoundHook:        newRoundRecorder(),
		Submitter:        submitter,
		Logger:           logger,
		TradeResultStore: st.results,
		RoundStore:       st.rounds,
		SnapshotStore:    st.snapshots,
		OutcomeStore:     st.outcomes,
	}).Run(ctx)
	if err != nil {
		observability.RecordRoundFailed()
		return err
	}

	logger.Info("live run ended",
		zap.String("run_id", result.RunID),
		zap.Int64("rounds_run", result.RoundsRun),
		zap.Bool("cancelled", result.Cancelled),
	)
	return nil
}

// newRoundRecorder returns the per-round hook feeding Prometheus.
func newRoundRecorder() func(*simulation.RoundResult) {
	last := time.Now()
	return func(res *simulation.RoundResult) {
		now := time.Now()
		observability.RecordRoundCompleted(res.Round, now.Sub(last).Seconds(), now.Unix())
		last = now

		for range res.Intents {
			observability.RecordIntentReceived()
		}

		for i := range res.Results {
			r := &res.Results[i]
			observability.RecordTrade(string(r.Kind), r.Success)
			if r.Kind == domain.ItemVictim {
				if r.Success && r.SlippageBps > 0 {
					observability.RecordVictimLoss(r.SlippageBps)
				}
				continue
			}
			outcome := "lost"
			if r.Success && r.Profit.IsPositive() {
				outcome = "won"
			}
			observability.RecordBidOutcome(r.AgentID, outcome)
			observability.RecordExtraction(r.Profit.InexactFloat64(), r.GasCost.InexactFloat64())
		}

		observability.UpdatePoolState(
			res.Snapshot.Price().InexactFloat64(),
			res.Snapshot.Reserve0.InexactFloat64(),
			res.Snapshot.Reserve1.InexactFloat64(),
		)
	}
}

func startMetricsServer(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("metrics server listening", zap.String("addr", addr))
	return srv
}

func trackUptime(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.DefaultMetrics.UptimeSeconds.Inc()
		}
	}
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
