package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

// TradeResultStore implements storage.TradeResultStore using PostgreSQL.
type TradeResultStore struct {
	pool *Pool
}

// NewTradeResultStore creates a new TradeResultStore.
func NewTradeResultStore(pool *Pool) *TradeResultStore {
	return &TradeResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeResultStore = (*TradeResultStore)(nil)

const tradeResultColumns = `
	result_id, run_id, round, execution_index,
	agent_id, ref_id, kind,
	success, fail_reason,
	direction, amount_in, amount_out,
	price_before, price_after, slippage_bps,
	profit, gas_cost, latency_ns, submission
`

const insertTradeResultQuery = `
	INSERT INTO trade_results (
		result_id, run_id, round, execution_index,
		agent_id, ref_id, kind,
		success, fail_reason,
		direction, amount_in, amount_out,
		price_before, price_after, slippage_bps,
		profit, gas_cost, latency_ns, submission
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7,
		$8, $9,
		$10, $11, $12,
		$13, $14, $15,
		$16, $17, $18, $19
	)
`

func tradeResultArgs(r *domain.TradeResult) []any {
	return []any{
		r.ResultID, r.RunID, r.Round, r.ExecutionIndex,
		r.AgentID, r.RefID, string(r.Kind),
		r.Success, string(r.FailReason),
		int16(r.Direction), r.AmountIn, r.AmountOut,
		r.PriceBefore, r.PriceAfter, r.SlippageBps,
		r.Profit, r.GasCost, r.LatencyNs, string(r.Submission),
	}
}

// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
func (s *TradeResultStore) Insert(ctx context.Context, r *domain.TradeResult) error {
	if r == nil || r.ResultID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTradeResultQuery, tradeResultArgs(r)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade result: %w", err)
	}
	return nil
}

// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
func (s *TradeResultStore) InsertBulk(ctx context.Context, results []*domain.TradeResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range results {
		if r == nil || r.ResultID == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertTradeResultQuery, tradeResultArgs(r)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade result in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a result by its ID. Returns ErrNotFound if not exists.
func (s *TradeResultStore) GetByID(ctx context.Context, resultID string) (*domain.TradeResult, error) {
	query := `SELECT ` + tradeResultColumns + ` FROM trade_results WHERE result_id = $1`

	row := s.pool.QueryRow(ctx, query, resultID)
	r, err := scanTradeResult(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade result by id: %w", err)
	}
	return r, nil
}

// GetByRun retrieves all results for a run, ordered by (round, execution_index) ASC.
func (s *TradeResultStore) GetByRun(ctx context.Context, runID string) ([]*domain.TradeResult, error) {
	query := `
		SELECT ` + tradeResultColumns + `
		FROM trade_results
		WHERE run_id = $1
		ORDER BY round ASC, execution_index ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trade results by run: %w", err)
	}
	defer rows.Close()

	return scanTradeResults(rows)
}

// GetByRound retrieves one round's results, ordered by execution_index ASC.
func (s *TradeResultStore) GetByRound(ctx context.Context, runID string, round int64) ([]*domain.TradeResult, error) {
	query := `
		SELECT ` + tradeResultColumns + `
		FROM trade_results
		WHERE run_id = $1 AND round = $2
		ORDER BY execution_index ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, round)
	if err != nil {
		return nil, fmt.Errorf("get trade results by round: %w", err)
	}
	defer rows.Close()

	return scanTradeResults(rows)
}

// GetByAgent retrieves a run's results for one agent, ordered by (round, execution_index) ASC.
func (s *TradeResultStore) GetByAgent(ctx context.Context, runID, agentID string) ([]*domain.TradeResult, error) {
	query := `
		SELECT ` + tradeResultColumns + `
		FROM trade_results
		WHERE run_id = $1 AND agent_id = $2
		ORDER BY round ASC, execution_index ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, agentID)
	if err != nil {
		return nil, fmt.Errorf("get trade results by agent: %w", err)
	}
	defer rows.Close()

	return scanTradeResults(rows)
}

// scanTradeResult scans a single row into a TradeResult.
func scanTradeResult(row pgx.Row) (*domain.TradeResult, error) {
	var r domain.TradeResult
	var kind, failReason, submission string
	var direction int16

	err := row.Scan(
		&r.ResultID, &r.RunID, &r.Round, &r.ExecutionIndex,
		&r.AgentID, &r.RefID, &kind,
		&r.Success, &failReason,
		&direction, &r.AmountIn, &r.AmountOut,
		&r.PriceBefore, &r.PriceAfter, &r.SlippageBps,
		&r.Profit, &r.GasCost, &r.LatencyNs, &submission,
	)
	if err != nil {
		return nil, err
	}

	r.Kind = domain.ItemKind(kind)
	r.FailReason = domain.FailReason(failReason)
	r.Direction = domain.Direction(direction)
	r.Submission = domain.SubmissionStatus(submission)
	return &r, nil
}

// scanTradeResults scans multiple rows into a slice of TradeResult.
func scanTradeResults(rows pgx.Rows) ([]*domain.TradeResult, error) {
	var results []*domain.TradeResult

	for rows.Next() {
		r, err := scanTradeResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade result row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade result rows: %w", err)
	}

	return results, nil
}
