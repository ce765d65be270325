package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

// RoundStore is an in-memory implementation of storage.RoundStore.
type RoundStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RoundRecord // keyed by run_id/round
}

// NewRoundStore creates a new in-memory round store.
func NewRoundStore() *RoundStore {
	return &RoundStore{
		data: make(map[string]*domain.RoundRecord),
	}
}

func roundKey(runID string, round int64) string {
	return fmt.Sprintf("%s/%d", runID, round)
}

// Insert adds a round record. Returns ErrDuplicateKey if (run_id, round) exists.
func (s *RoundStore) Insert(_ context.Context, r *domain.RoundRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := roundKey(r.RunID, r.Round)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[key] = &copy
	return nil
}

// GetByRun retrieves all round records for a run, ordered by round ASC.
func (s *RoundStore) GetByRun(_ context.Context, runID string) ([]*domain.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RoundRecord
	for _, r := range s.data {
		if r.RunID == runID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Round < result[j].Round
	})

	return result, nil
}

// GetByRound retrieves one round record. Returns ErrNotFound if not exists.
func (s *RoundStore) GetByRound(_ context.Context, runID string, round int64) (*domain.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[roundKey(runID, round)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

var _ storage.RoundStore = (*RoundStore)(nil)
