package clickhouse

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

// PoolSnapshotStore implements storage.PoolSnapshotStore using ClickHouse.
type PoolSnapshotStore struct {
	conn *Conn
}

// NewPoolSnapshotStore creates a new PoolSnapshotStore.
func NewPoolSnapshotStore(conn *Conn) *PoolSnapshotStore {
	return &PoolSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PoolSnapshotStore = (*PoolSnapshotStore)(nil)

// InsertBulk adds one snapshot per round. Fails the entire batch on a
// duplicate (run_id, round).
func (s *PoolSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.PoolSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		runID string
		round int64
	}
	seen := make(map[key]struct{})
	for _, snap := range snapshots {
		k := key{snap.RunID, snap.Round}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, snap := range snapshots {
		exists, err := s.exists(ctx, snap.RunID, snap.Round)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pool_snapshots (
			run_id, round, reserve0, reserve1, fee_rate_bps, tick, sqrt_price_x96, price
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.RunID, snap.Round,
			snap.State.Reserve0.String(), snap.State.Reserve1.String(),
			snap.State.FeeRateBps, snap.State.Tick,
			snap.State.SqrtPriceX96.String(),
			snap.State.Price().InexactFloat64(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRun retrieves all snapshots for a run, ordered by round ASC.
func (s *PoolSnapshotStore) GetByRun(ctx context.Context, runID string) ([]*domain.PoolSnapshot, error) {
	query := `
		SELECT run_id, round, reserve0, reserve1, fee_rate_bps, tick, sqrt_price_x96
		FROM pool_snapshots
		WHERE run_id = ?
		ORDER BY round ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanPoolSnapshots(rows)
}

// GetByRoundRange retrieves snapshots for a run within [start, end] (inclusive).
func (s *PoolSnapshotStore) GetByRoundRange(ctx context.Context, runID string, start, end int64) ([]*domain.PoolSnapshot, error) {
	query := `
		SELECT run_id, round, reserve0, reserve1, fee_rate_bps, tick, sqrt_price_x96
		FROM pool_snapshots
		WHERE run_id = ? AND round >= ? AND round <= ?
		ORDER BY round ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by round range: %w", err)
	}
	defer rows.Close()

	return scanPoolSnapshots(rows)
}

// exists checks if a snapshot with the given key exists.
func (s *PoolSnapshotStore) exists(ctx context.Context, runID string, round int64) (bool, error) {
	query := `
		SELECT count(*) FROM pool_snapshots
		WHERE run_id = ? AND round = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, round).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanPoolSnapshots scans multiple rows into a slice.
func scanPoolSnapshots(rows chRows) ([]*domain.PoolSnapshot, error) {
	var snapshots []*domain.PoolSnapshot

	for rows.Next() {
		var snap domain.PoolSnapshot
		var reserve0, reserve1, sqrtPrice string

		err := rows.Scan(
			&snap.RunID, &snap.Round,
			&reserve0, &reserve1,
			&snap.State.FeeRateBps, &snap.State.Tick,
			&sqrtPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pool snapshot row: %w", err)
		}

		snap.State.Reserve0, err = decimal.NewFromString(reserve0)
		if err != nil {
			return nil, fmt.Errorf("parse reserve0: %w", err)
		}
		snap.State.Reserve1, err = decimal.NewFromString(reserve1)
		if err != nil {
			return nil, fmt.Errorf("parse reserve1: %w", err)
		}
		snap.State.SqrtPriceX96, err = decimal.NewFromString(sqrtPrice)
		if err != nil {
			return nil, fmt.Errorf("parse sqrt_price_x96: %w", err)
		}

		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool snapshot rows: %w", err)
	}

	return snapshots, nil
}
