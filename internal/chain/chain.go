// Package chain annotates committed rounds with submission outcomes from an
// external chain endpoint. Purely observational: simulation economics never
// depend on anything returned here.
package chain

import (
	"context"

	"mev-competition-lab/internal/domain"
)

// SubmissionAdapter sends one round's executed bundle out and reports a
// per-item confirmation status.
type SubmissionAdapter interface {
	// Submit returns one status per result, index-aligned. A transport
	// failure may be returned as an error; callers treat it as
	// "statuses unknown", never as a round failure.
	Submit(ctx context.Context, order domain.ResolvedOrder, results []domain.TradeResult) ([]domain.SubmissionStatus, error)
}

// NopAdapter confirms everything locally. The default for offline runs.
type NopAdapter struct{}

// Submit marks every result confirmed.
func (NopAdapter) Submit(_ context.Context, _ domain.ResolvedOrder, results []domain.TradeResult) ([]domain.SubmissionStatus, error) {
	statuses := make([]domain.SubmissionStatus, len(results))
	for i := range statuses {
		statuses[i] = domain.SubmissionConfirmed
	}
	return statuses, nil
}

// Compile-time interface check.
var _ SubmissionAdapter = NopAdapter{}
