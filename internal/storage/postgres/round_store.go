package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

// RoundStore implements storage.RoundStore using PostgreSQL.
type RoundStore struct {
	pool *Pool
}

// NewRoundStore creates a new RoundStore.
func NewRoundStore(pool *Pool) *RoundStore {
	return &RoundStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RoundStore = (*RoundStore)(nil)

const roundRecordColumns = `
	run_id, round, intent_count, bid_count,
	executed_count, failed_count, extracted_value, victim_loss_bps
`

// Insert adds a round record. Returns ErrDuplicateKey if (run_id, round) exists.
func (s *RoundStore) Insert(ctx context.Context, r *domain.RoundRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO round_records (
			run_id, round, intent_count, bid_count,
			executed_count, failed_count, extracted_value, victim_loss_bps
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.Round, r.IntentCount, r.BidCount,
		r.ExecutedCount, r.FailedCount, r.ExtractedValue, r.VictimLossBps,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert round record: %w", err)
	}
	return nil
}

// GetByRun retrieves all round records for a run, ordered by round ASC.
func (s *RoundStore) GetByRun(ctx context.Context, runID string) ([]*domain.RoundRecord, error) {
	query := `
		SELECT ` + roundRecordColumns + `
		FROM round_records
		WHERE run_id = $1
		ORDER BY round ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get round records by run: %w", err)
	}
	defer rows.Close()

	var records []*domain.RoundRecord
	for rows.Next() {
		r, err := scanRoundRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan round record row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate round record rows: %w", err)
	}
	return records, nil
}

// GetByRound retrieves one round record. Returns ErrNotFound if not exists.
func (s *RoundStore) GetByRound(ctx context.Context, runID string, round int64) (*domain.RoundRecord, error) {
	query := `SELECT ` + roundRecordColumns + ` FROM round_records WHERE run_id = $1 AND round = $2`

	r, err := scanRoundRecord(s.pool.QueryRow(ctx, query, runID, round))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get round record: %w", err)
	}
	return r, nil
}

func scanRoundRecord(row pgx.Row) (*domain.RoundRecord, error) {
	var r domain.RoundRecord
	err := row.Scan(
		&r.RunID, &r.Round, &r.IntentCount, &r.BidCount,
		&r.ExecutedCount, &r.FailedCount, &r.ExtractedValue, &r.VictimLossBps,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
