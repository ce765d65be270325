package memory

import (
	"context"
	"sort"
	"sync"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

// PoolSnapshotStore is an in-memory implementation of storage.PoolSnapshotStore.
type PoolSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PoolSnapshot // keyed by run_id/round
}

// NewPoolSnapshotStore creates a new in-memory pool snapshot store.
func NewPoolSnapshotStore() *PoolSnapshotStore {
	return &PoolSnapshotStore{
		data: make(map[string]*domain.PoolSnapshot),
	}
}

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (run_id, round).
func (s *PoolSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.PoolSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(snapshots))
	for _, p := range snapshots {
		if p == nil || p.RunID == "" {
			return storage.ErrInvalidInput
		}
		key := roundKey(p.RunID, p.Round)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range snapshots {
		copy := *p
		s.data[roundKey(p.RunID, p.Round)] = &copy
	}

	return nil
}

// GetByRun retrieves all snapshots for a run, ordered by round ASC.
func (s *PoolSnapshotStore) GetByRun(ctx context.Context, runID string) ([]*domain.PoolSnapshot, error) {
	return s.GetByRoundRange(ctx, runID, 0, int64(1)<<62)
}

// GetByRoundRange retrieves snapshots within [start, end] (inclusive), ordered by round ASC.
func (s *PoolSnapshotStore) GetByRoundRange(_ context.Context, runID string, start, end int64) ([]*domain.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PoolSnapshot
	for _, p := range s.data {
		if p.RunID == runID && p.Round >= start && p.Round <= end {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Round < result[j].Round
	})

	return result, nil
}

var _ storage.PoolSnapshotStore = (*PoolSnapshotStore)(nil)
