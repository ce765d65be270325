package memory

import (
	"context"
	"sort"
	"sync"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

// TradeResultStore is an in-memory implementation of storage.TradeResultStore.
type TradeResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeResult // keyed by result_id
}

// NewTradeResultStore creates a new in-memory trade result store.
func NewTradeResultStore() *TradeResultStore {
	return &TradeResultStore{
		data: make(map[string]*domain.TradeResult),
	}
}

// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
func (s *TradeResultStore) Insert(_ context.Context, r *domain.TradeResult) error {
	if r == nil || r.ResultID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ResultID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.ResultID] = &copy
	return nil
}

// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
func (s *TradeResultStore) InsertBulk(_ context.Context, results []*domain.TradeResult) error {
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r == nil || r.ResultID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.ResultID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.ResultID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.ResultID] = struct{}{}
	}

	for _, r := range results {
		copy := *r
		s.data[r.ResultID] = &copy
	}

	return nil
}

// GetByID retrieves a result by its ID. Returns ErrNotFound if not exists.
func (s *TradeResultStore) GetByID(_ context.Context, resultID string) (*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[resultID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByRun retrieves all results for a run, ordered by (round, execution_index) ASC.
func (s *TradeResultStore) GetByRun(_ context.Context, runID string) ([]*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(r *domain.TradeResult) bool {
		return r.RunID == runID
	}), nil
}

// GetByRound retrieves one round's results, ordered by execution_index ASC.
func (s *TradeResultStore) GetByRound(_ context.Context, runID string, round int64) ([]*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(r *domain.TradeResult) bool {
		return r.RunID == runID && r.Round == round
	}), nil
}

// GetByAgent retrieves a run's results for one agent, ordered by (round, execution_index) ASC.
func (s *TradeResultStore) GetByAgent(_ context.Context, runID, agentID string) ([]*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(r *domain.TradeResult) bool {
		return r.RunID == runID && r.AgentID == agentID
	}), nil
}

// collect filters and orders under the caller's read lock.
func (s *TradeResultStore) collect(match func(*domain.TradeResult) bool) []*domain.TradeResult {
	var result []*domain.TradeResult
	for _, r := range s.data {
		if match(r) {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Round != result[j].Round {
			return result[i].Round < result[j].Round
		}
		return result[i].ExecutionIndex < result[j].ExecutionIndex
	})

	return result
}

var _ storage.TradeResultStore = (*TradeResultStore)(nil)
