package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

// AgentOutcomeStore implements storage.AgentOutcomeStore using PostgreSQL.
type AgentOutcomeStore struct {
	pool *Pool
}

// NewAgentOutcomeStore creates a new AgentOutcomeStore.
func NewAgentOutcomeStore(pool *Pool) *AgentOutcomeStore {
	return &AgentOutcomeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AgentOutcomeStore = (*AgentOutcomeStore)(nil)

const agentOutcomeColumns = `
	run_id, agent_id, kind, latency_profile,
	attempts, wins, losses, rounds_sat, success_rate,
	gross_profit, net_profit, gas_spent,
	final_balance0, final_balance1
`

const insertAgentOutcomeQuery = `
	INSERT INTO agent_outcomes (
		run_id, agent_id, kind, latency_profile,
		attempts, wins, losses, rounds_sat, success_rate,
		gross_profit, net_profit, gas_spent,
		final_balance0, final_balance1
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9,
		$10, $11, $12,
		$13, $14
	)
`

func agentOutcomeArgs(o *domain.AgentOutcome) []any {
	return []any{
		o.RunID, o.AgentID, string(o.Kind), o.LatencyProfile,
		o.Attempts, o.Wins, o.Losses, o.RoundsSat, o.SuccessRate,
		o.GrossProfit, o.NetProfit, o.GasSpent,
		o.FinalBalance0, o.FinalBalance1,
	}
}

// Insert adds an outcome. Returns ErrDuplicateKey if (run_id, agent_id) exists.
func (s *AgentOutcomeStore) Insert(ctx context.Context, o *domain.AgentOutcome) error {
	if o == nil || o.RunID == "" || o.AgentID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertAgentOutcomeQuery, agentOutcomeArgs(o)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert agent outcome: %w", err)
	}
	return nil
}

// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
func (s *AgentOutcomeStore) InsertBulk(ctx context.Context, outcomes []*domain.AgentOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, o := range outcomes {
		if o == nil || o.RunID == "" || o.AgentID == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertAgentOutcomeQuery, agentOutcomeArgs(o)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert agent outcome in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByKey retrieves one agent's outcome. Returns ErrNotFound if not exists.
func (s *AgentOutcomeStore) GetByKey(ctx context.Context, runID, agentID string) (*domain.AgentOutcome, error) {
	query := `SELECT ` + agentOutcomeColumns + ` FROM agent_outcomes WHERE run_id = $1 AND agent_id = $2`

	o, err := scanAgentOutcome(s.pool.QueryRow(ctx, query, runID, agentID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get agent outcome: %w", err)
	}
	return o, nil
}

// GetByRun retrieves all outcomes for a run, ordered by agent_id ASC.
func (s *AgentOutcomeStore) GetByRun(ctx context.Context, runID string) ([]*domain.AgentOutcome, error) {
	query := `
		SELECT ` + agentOutcomeColumns + `
		FROM agent_outcomes
		WHERE run_id = $1
		ORDER BY agent_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get agent outcomes by run: %w", err)
	}
	defer rows.Close()

	var outcomes []*domain.AgentOutcome
	for rows.Next() {
		o, err := scanAgentOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent outcome row: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent outcome rows: %w", err)
	}
	return outcomes, nil
}

func scanAgentOutcome(row pgx.Row) (*domain.AgentOutcome, error) {
	var o domain.AgentOutcome
	var kind string

	err := row.Scan(
		&o.RunID, &o.AgentID, &kind, &o.LatencyProfile,
		&o.Attempts, &o.Wins, &o.Losses, &o.RoundsSat, &o.SuccessRate,
		&o.GrossProfit, &o.NetProfit, &o.GasSpent,
		&o.FinalBalance0, &o.FinalBalance1,
	)
	if err != nil {
		return nil, err
	}

	o.Kind = domain.StrategyKind(kind)
	return &o, nil
}
