package pricestore

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/fip/internal/contracts"
)

// BoundedStore wraps a PriceStore with a request rate limit and a per-call
// timeout. Scoring fans out across hundreds of symbols; the wrapper keeps
// that fan-out from overwhelming the underlying store.
type BoundedStore struct {
	inner   contracts.PriceStore
	limiter *rate.Limiter
	timeout time.Duration
}

// NewBoundedStore wraps inner with ratePerSec request throttling and a
// per-call timeout. timeout <= 0 disables the per-call deadline.
func NewBoundedStore(inner contracts.PriceStore, ratePerSec int, timeout time.Duration) *BoundedStore {
	return &BoundedStore{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		timeout: timeout,
	}
}

func (s *BoundedStore) acquire(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	if s.timeout <= 0 {
		return ctx, func() {}, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	return callCtx, cancel, nil
}

// GetPriceHistory implements contracts.PriceStore.
func (s *BoundedStore) GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PricePoint, error) {
	callCtx, cancel, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return s.inner.GetPriceHistory(callCtx, symbol, from, to)
}

// ListUniverse implements contracts.PriceStore.
func (s *BoundedStore) ListUniverse(ctx context.Context, filter contracts.UniverseFilter) ([]contracts.StockMetadata, error) {
	callCtx, cancel, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return s.inner.ListUniverse(callCtx, filter)
}

// LatestTradingDay implements contracts.PriceStore.
func (s *BoundedStore) LatestTradingDay(ctx context.Context, asOf time.Time) (time.Time, error) {
	callCtx, cancel, err := s.acquire(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer cancel()
	return s.inner.LatestTradingDay(callCtx, asOf)
}
