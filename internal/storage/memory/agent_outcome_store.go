package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/storage"
)

// AgentOutcomeStore is an in-memory implementation of storage.AgentOutcomeStore.
type AgentOutcomeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AgentOutcome // keyed by run_id/agent_id
}

// NewAgentOutcomeStore creates a new in-memory agent outcome store.
func NewAgentOutcomeStore() *AgentOutcomeStore {
	return &AgentOutcomeStore{
		data: make(map[string]*domain.AgentOutcome),
	}
}

func outcomeKey(runID, agentID string) string {
	return fmt.Sprintf("%s/%s", runID, agentID)
}

// Insert adds an outcome. Returns ErrDuplicateKey if (run_id, agent_id) exists.
func (s *AgentOutcomeStore) Insert(_ context.Context, o *domain.AgentOutcome) error {
	if o == nil || o.RunID == "" || o.AgentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := outcomeKey(o.RunID, o.AgentID)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *o
	s.data[key] = &copy
	return nil
}

// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
func (s *AgentOutcomeStore) InsertBulk(_ context.Context, outcomes []*domain.AgentOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if o == nil || o.RunID == "" || o.AgentID == "" {
			return storage.ErrInvalidInput
		}
		key := outcomeKey(o.RunID, o.AgentID)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, o := range outcomes {
		copy := *o
		s.data[outcomeKey(o.RunID, o.AgentID)] = &copy
	}

	return nil
}

// GetByKey retrieves one agent's outcome. Returns ErrNotFound if not exists.
func (s *AgentOutcomeStore) GetByKey(_ context.Context, runID, agentID string) (*domain.AgentOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.data[outcomeKey(runID, agentID)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *o
	return &copy, nil
}

// GetByRun retrieves all outcomes for a run, ordered by agent_id ASC.
func (s *AgentOutcomeStore) GetByRun(_ context.Context, runID string) ([]*domain.AgentOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AgentOutcome
	for _, o := range s.data {
		if o.RunID == runID {
			copy := *o
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AgentID < result[j].AgentID
	})

	return result, nil
}

var _ storage.AgentOutcomeStore = (*AgentOutcomeStore)(nil)
