package scorecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/pkg/logger"
)

var testAsOf = time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

// stubPriceStore serves only LatestTradingDay; the cache never touches the
// other PriceStore methods.
type stubPriceStore struct {
	latest time.Time
	err    error
}

func (s *stubPriceStore) GetPriceHistory(context.Context, string, time.Time, time.Time) ([]contracts.PricePoint, error) {
	panic("not used by cache")
}

func (s *stubPriceStore) ListUniverse(context.Context, contracts.UniverseFilter) ([]contracts.StockMetadata, error) {
	panic("not used by cache")
}

func (s *stubPriceStore) LatestTradingDay(context.Context, time.Time) (time.Time, error) {
	return s.latest, s.err
}

func newTestCache(latest time.Time) (*Cache, *MemoryRepository) {
	repo := NewMemoryRepository()
	store := &stubPriceStore{latest: latest}
	return New(repo, store, 5*time.Second, logger.NewNop()), repo
}

func fixedScore(symbol string, lastPrice time.Time, composite float64) contracts.MomentumScore {
	return contracts.MomentumScore{
		Symbol:          symbol,
		CalculationDate: testAsOf,
		LastPriceDate:   lastPrice,
		Composite:       composite,
		ComputedAt:      time.Now().UTC(),
	}
}

func TestGetOrCompute_ComputesOncePerKey(t *testing.T) {
	cache, _ := newTestCache(testAsOf)

	var calls atomic.Int32
	compute := func(context.Context) (contracts.MomentumScore, error) {
		calls.Add(1)
		return fixedScore("AAPL", testAsOf, 0.7), nil
	}

	first, err := cache.GetOrCompute(context.Background(), "AAPL", testAsOf, compute)
	require.NoError(t, err)
	second, err := cache.GetOrCompute(context.Background(), "AAPL", testAsOf, compute)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "second call must hit the cache")
	assert.Equal(t, first.Composite, second.Composite)
	assert.Equal(t, first.LastPriceDate, second.LastPriceDate)
}

func TestGetOrCompute_ConcurrentCallersShareOneFlight(t *testing.T) {
	cache, _ := newTestCache(testAsOf)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(context.Context) (contracts.MomentumScore, error) {
		calls.Add(1)
		close(started)
		<-release
		return fixedScore("MSFT", testAsOf, 0.8), nil
	}

	var wg sync.WaitGroup
	results := make([]contracts.MomentumScore, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.GetOrCompute(context.Background(), "MSFT", testAsOf, compute)
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), calls.Load(), "exactly one computation per key")
	assert.Equal(t, results[0].Composite, results[1].Composite)
}

func TestGetOrCompute_IndependentKeysDoNotBlock(t *testing.T) {
	cache, _ := newTestCache(testAsOf)

	block := make(chan struct{})
	slow := func(context.Context) (contracts.MomentumScore, error) {
		<-block
		return fixedScore("SLOW", testAsOf, 0.5), nil
	}
	fast := func(context.Context) (contracts.MomentumScore, error) {
		return fixedScore("FAST", testAsOf, 0.6), nil
	}

	done := make(chan struct{})
	go func() {
		cache.GetOrCompute(context.Background(), "SLOW", testAsOf, slow)
		close(done)
	}()

	score, err := cache.GetOrCompute(context.Background(), "FAST", testAsOf, fast)
	require.NoError(t, err)
	assert.Equal(t, 0.6, score.Composite)

	close(block)
	<-done
}

func TestGetOrCompute_ContentionTimeout(t *testing.T) {
	repo := NewMemoryRepository()
	store := &stubPriceStore{latest: testAsOf}
	cache := New(repo, store, 20*time.Millisecond, logger.NewNop())

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	stuck := func(context.Context) (contracts.MomentumScore, error) {
		close(started)
		<-release
		return fixedScore("HANG", testAsOf, 0.5), nil
	}

	go cache.GetOrCompute(context.Background(), "HANG", testAsOf, stuck)
	<-started

	_, err := cache.GetOrCompute(context.Background(), "HANG", testAsOf, stuck)
	require.Error(t, err)

	var contention *contracts.CacheContentionError
	require.ErrorAs(t, err, &contention)
	assert.Equal(t, "HANG", contention.Symbol)
}

func TestGetOrCompute_StaleScoreRecomputed(t *testing.T) {
	newerDay := testAsOf
	olderDay := testAsOf.AddDate(0, 0, -3)

	cache, repo := newTestCache(newerDay)

	// Seed a score computed before the latest trading day.
	stale := fixedScore("NVDA", olderDay, 0.4)
	require.NoError(t, repo.Save(context.Background(), &stale))

	var calls atomic.Int32
	compute := func(context.Context) (contracts.MomentumScore, error) {
		calls.Add(1)
		return fixedScore("NVDA", newerDay, 0.9), nil
	}

	score, err := cache.GetOrCompute(context.Background(), "NVDA", testAsOf, compute)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "stale score must trigger recompute")
	assert.Equal(t, 0.9, score.Composite)

	// The recomputed score replaced the stale row.
	persisted, found, err := repo.Get(context.Background(), "NVDA", testAsOf)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0.9, persisted.Composite)
}

func TestGetOrCompute_FreshScoreServedWithoutCompute(t *testing.T) {
	cache, repo := newTestCache(testAsOf)

	fresh := fixedScore("AMZN", testAsOf, 0.55)
	require.NoError(t, repo.Save(context.Background(), &fresh))

	compute := func(context.Context) (contracts.MomentumScore, error) {
		t.Fatal("fresh cached score must not recompute")
		return contracts.MomentumScore{}, nil
	}

	score, err := cache.GetOrCompute(context.Background(), "AMZN", testAsOf, compute)
	require.NoError(t, err)
	assert.Equal(t, 0.55, score.Composite)
}

func TestGetOrCompute_StoreOutageServesCached(t *testing.T) {
	repo := NewMemoryRepository()
	store := &stubPriceStore{err: errors.New("price store down")}
	cache := New(repo, store, time.Second, logger.NewNop())

	cached := fixedScore("TSLA", testAsOf.AddDate(0, 0, -5), 0.3)
	require.NoError(t, repo.Save(context.Background(), &cached))

	compute := func(context.Context) (contracts.MomentumScore, error) {
		t.Fatal("unverifiable staleness must not recompute")
		return contracts.MomentumScore{}, nil
	}

	score, err := cache.GetOrCompute(context.Background(), "TSLA", testAsOf, compute)
	require.NoError(t, err)
	assert.Equal(t, 0.3, score.Composite)
}

func TestGetOrCompute_ComputeErrorPropagatesUncached(t *testing.T) {
	cache, repo := newTestCache(testAsOf)

	computeErr := &contracts.InsufficientHistoryError{Symbol: "IPO", Bars: 40, Required: 180}
	var calls atomic.Int32
	failing := func(context.Context) (contracts.MomentumScore, error) {
		calls.Add(1)
		return contracts.MomentumScore{}, computeErr
	}

	_, err := cache.GetOrCompute(context.Background(), "IPO", testAsOf, failing)
	var histErr *contracts.InsufficientHistoryError
	require.ErrorAs(t, err, &histErr)

	// Errors are not cached: the next call retries.
	_, err = cache.GetOrCompute(context.Background(), "IPO", testAsOf, failing)
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())

	_, found, err := repo.Get(context.Background(), "IPO", testAsOf)
	require.NoError(t, err)
	assert.False(t, found, "failed computations must not persist")
}

func TestMemoryRepository_TopByCompositeOrdersAndTies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	scores := []contracts.MomentumScore{
		fixedScore("BBB", testAsOf, 0.9),
		fixedScore("AAA", testAsOf, 0.9),
		fixedScore("CCC", testAsOf, 0.5),
		fixedScore("DDD", testAsOf.AddDate(0, 0, -1), 1.0),
	}
	// DDD belongs to the previous calculation date; its higher composite must
	// not leak into today's ranking.
	scores[3].CalculationDate = testAsOf.AddDate(0, 0, -1)

	for i := range scores {
		require.NoError(t, repo.Save(ctx, &scores[i]))
	}

	top, err := repo.TopByComposite(ctx, testAsOf, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "AAA", top[0].Symbol, "ties break by symbol ascending")
	assert.Equal(t, "BBB", top[1].Symbol)
}
