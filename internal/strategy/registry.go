package strategy

import (
	"fmt"
	"sort"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/scorecache"
	"github.com/wonny/fip/internal/scoring"
	"github.com/wonny/fip/pkg/logger"
)

// Deps bundles the collaborators every strategy draws from.
type Deps struct {
	Store       contracts.PriceStore
	Cache       *scorecache.Cache
	Engine      *scoring.Engine
	Concurrency int
	Logger      *logger.Logger
}

// Registry holds the closed set of available strategies. New strategies are
// added here at compile time; there is no runtime registration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds the registry with every known strategy wired to deps.
func NewRegistry(deps Deps) *Registry {
	all := []Strategy{
		NewMomentumStrategy(deps.Engine, deps.Cache, deps.Store, deps.Concurrency, deps.Logger),
		NewBreakoutStrategy(deps.Store, deps.Concurrency, deps.Logger),
		NewMeanReversionStrategy(deps.Store, deps.Concurrency, deps.Logger),
		NewLowVolatilityStrategy(deps.Store, deps.Concurrency, deps.Logger),
	}

	strategies := make(map[string]Strategy, len(all))
	for _, s := range all {
		strategies[s.ID()] = s
	}
	return &Registry{strategies: strategies}
}

// Get returns the strategy for id.
func (r *Registry) Get(id string) (Strategy, error) {
	s, ok := r.strategies[id]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (known: %v)", id, r.IDs())
	}
	return s, nil
}

// Has reports whether id names a known strategy.
func (r *Registry) Has(id string) bool {
	_, ok := r.strategies[id]
	return ok
}

// IDs returns all known strategy IDs, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns every strategy keyed by ID.
func (r *Registry) All() map[string]Strategy {
	out := make(map[string]Strategy, len(r.strategies))
	for id, s := range r.strategies {
		out[id] = s
	}
	return out
}
