package scorecache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/fip/internal/contracts"
)

// MemoryRepository is an in-memory ScoreRepository for tests and for running
// the engine without a database.
type MemoryRepository struct {
	mu     sync.RWMutex
	scores map[string]contracts.MomentumScore
}

// NewMemoryRepository creates an empty in-memory score repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		scores: make(map[string]contracts.MomentumScore),
	}
}

func scoreKey(symbol string, date time.Time) string {
	return symbol + "@" + date.Format("2006-01-02")
}

// Get retrieves the score for (symbol, date).
func (r *MemoryRepository) Get(_ context.Context, symbol string, date time.Time) (*contracts.MomentumScore, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scores[scoreKey(symbol, date)]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

// Save upserts a score.
func (r *MemoryRepository) Save(_ context.Context, score *contracts.MomentumScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scores[scoreKey(score.Symbol, score.CalculationDate)] = *score
	return nil
}

// TopByComposite returns the highest-scoring symbols for a date.
func (r *MemoryRepository) TopByComposite(_ context.Context, date time.Time, limit int) ([]contracts.MomentumScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := date.Format("2006-01-02")
	out := make([]contracts.MomentumScore, 0)
	for _, s := range r.scores {
		if s.CalculationDate.Format("2006-01-02") == day {
			out = append(out, s)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Composite != out[j].Composite {
			return out[i].Composite > out[j].Composite
		}
		return out[i].Symbol < out[j].Symbol
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// History returns stored scores for a symbol, newest first.
func (r *MemoryRepository) History(_ context.Context, symbol string, limit int) ([]contracts.MomentumScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contracts.MomentumScore, 0)
	for _, s := range r.scores {
		if s.Symbol == symbol {
			out = append(out, s)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CalculationDate.After(out[j].CalculationDate)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LatestDate returns the most recent calculation date with stored scores.
func (r *MemoryRepository) LatestDate(_ context.Context) (time.Time, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest time.Time
	found := false
	for _, s := range r.scores {
		if !found || s.CalculationDate.After(latest) {
			latest = s.CalculationDate
			found = true
		}
	}
	return latest, found, nil
}
