package scorecache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/pkg/logger"
)

// ComputeFunc produces a fresh score when the cache cannot serve one.
type ComputeFunc func(ctx context.Context) (contracts.MomentumScore, error)

// Cache is the read-through score cache.
// SSOT: score storage lifecycle (insert-on-compute, read-through on lookup)
// lives here. At most one computation per (symbol, calculation date) key runs
// at a time; concurrent callers for the same key await the in-flight result
// while independent keys proceed fully in parallel.
type Cache struct {
	repo  contracts.ScoreRepository
	store contracts.PriceStore

	group       singleflight.Group
	waitTimeout time.Duration
	logger      *logger.Logger
}

// New creates a score cache. waitTimeout bounds how long a caller waits on
// another caller's in-flight computation before CacheContentionError.
func New(repo contracts.ScoreRepository, store contracts.PriceStore, waitTimeout time.Duration, log *logger.Logger) *Cache {
	return &Cache{
		repo:        repo,
		store:       store,
		waitTimeout: waitTimeout,
		logger:      log,
	}
}

// GetOrCompute returns the cached score for (symbol, asOf) or computes,
// persists, and returns a fresh one. A successful computation is visible to
// subsequent reads before this returns.
func (c *Cache) GetOrCompute(ctx context.Context, symbol string, asOf time.Time, compute ComputeFunc) (contracts.MomentumScore, error) {
	if cached, ok := c.lookup(ctx, symbol, asOf); ok {
		return cached, nil
	}

	key := fmt.Sprintf("%s@%s", symbol, asOf.Format("2006-01-02"))

	// The computation is detached from the caller's cancellation: a caller
	// giving up must not poison the shared in-flight result, and a completed
	// score is always safe to persist.
	computeCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// Re-check under the flight: a waiter that lost the race to the
		// previous holder finds the freshly persisted score here.
		if cached, ok := c.lookup(computeCtx, symbol, asOf); ok {
			return cached, nil
		}

		score, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}

		if err := c.repo.Save(computeCtx, &score); err != nil {
			return nil, fmt.Errorf("persist score for %s: %w", symbol, err)
		}

		return score, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return contracts.MomentumScore{}, res.Err
		}
		return res.Val.(contracts.MomentumScore), nil

	case <-time.After(c.waitTimeout):
		return contracts.MomentumScore{}, &contracts.CacheContentionError{Symbol: symbol}

	case <-ctx.Done():
		return contracts.MomentumScore{}, ctx.Err()
	}
}

// lookup returns a cached score if present and not stale.
func (c *Cache) lookup(ctx context.Context, symbol string, asOf time.Time) (contracts.MomentumScore, bool) {
	cached, found, err := c.repo.Get(ctx, symbol, asOf)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Score lookup failed, recomputing")
		return contracts.MomentumScore{}, false
	}
	if !found {
		return contracts.MomentumScore{}, false
	}

	if c.isStale(ctx, cached, asOf) {
		return contracts.MomentumScore{}, false
	}
	return *cached, true
}

// isStale reports whether newer price data supersedes the cached score: the
// score is stale when its last price date predates the latest trading day on
// or before asOf known to the price store.
func (c *Cache) isStale(ctx context.Context, score *contracts.MomentumScore, asOf time.Time) bool {
	latest, err := c.store.LatestTradingDay(ctx, asOf)
	if err != nil {
		// Staleness cannot be verified; serve the cached score rather than
		// amplify a price store outage into a recompute storm.
		c.logger.WithError(err).WithField("symbol", score.Symbol).Warn("Staleness check failed, serving cached score")
		return false
	}

	return score.LastPriceDate.Before(latest)
}
