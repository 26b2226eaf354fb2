package pricestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fip/internal/contracts"
)

var testAsOf = time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()

	store := NewMemoryStore()
	stocks := []contracts.StockMetadata{
		{Symbol: "AAPL", Name: "Apple", Sector: "Technology", Industry: "Hardware", MarketCap: 3e12},
		{Symbol: "MSFT", Name: "Microsoft", Sector: "Technology", Industry: "Software", MarketCap: 2.8e12},
		{Symbol: "XOM", Name: "Exxon", Sector: "Energy", Industry: "Oil", MarketCap: 5e11},
	}
	for _, m := range stocks {
		series := make([]contracts.PricePoint, 10)
		for i := range series {
			series[i] = contracts.PricePoint{
				Date:   testAsOf.AddDate(0, 0, i-9),
				Close:  100,
				Volume: 1000,
			}
		}
		store.AddStock(m, series)
	}
	return store
}

func TestMemoryStore_ListUniverse(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	t.Run("orders by market cap descending", func(t *testing.T) {
		all, err := store.ListUniverse(ctx, contracts.UniverseFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "AAPL", all[0].Symbol)
		assert.Equal(t, "MSFT", all[1].Symbol)
		assert.Equal(t, "XOM", all[2].Symbol)
	})

	t.Run("sector filter", func(t *testing.T) {
		tech, err := store.ListUniverse(ctx, contracts.UniverseFilter{Sector: "Technology"})
		require.NoError(t, err)
		require.Len(t, tech, 2)
	})

	t.Run("limit truncates after ordering", func(t *testing.T) {
		top, err := store.ListUniverse(ctx, contracts.UniverseFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, "AAPL", top[0].Symbol)
	})

	t.Run("no match is empty, not error", func(t *testing.T) {
		none, err := store.ListUniverse(ctx, contracts.UniverseFilter{Sector: "Utilities"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestMemoryStore_GetPriceHistory(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	bars, err := store.GetPriceHistory(ctx, "AAPL", testAsOf.AddDate(0, 0, -4), testAsOf)
	require.NoError(t, err)
	assert.Len(t, bars, 5)

	_, err = store.GetPriceHistory(ctx, "NOPE", testAsOf.AddDate(0, 0, -4), testAsOf)
	assert.Error(t, err)
}

func TestMemoryStore_LatestTradingDay(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	latest, err := store.LatestTradingDay(ctx, testAsOf)
	require.NoError(t, err)
	assert.Equal(t, testAsOf, latest)

	// asOf before all data is an error.
	_, err = store.LatestTradingDay(ctx, testAsOf.AddDate(-1, 0, 0))
	assert.Error(t, err)

	// asOf mid-series lands on the nearest prior bar.
	mid, err := store.LatestTradingDay(ctx, testAsOf.AddDate(0, 0, -3))
	require.NoError(t, err)
	assert.Equal(t, testAsOf.AddDate(0, 0, -3), mid)
}

func TestBoundedStore_PassesThrough(t *testing.T) {
	store := seedStore(t)
	bounded := NewBoundedStore(store, 100, time.Second)
	ctx := context.Background()

	bars, err := bounded.GetPriceHistory(ctx, "AAPL", testAsOf.AddDate(0, 0, -9), testAsOf)
	require.NoError(t, err)
	assert.Len(t, bars, 10)

	all, err := bounded.ListUniverse(ctx, contracts.UniverseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	latest, err := bounded.LatestTradingDay(ctx, testAsOf)
	require.NoError(t, err)
	assert.Equal(t, testAsOf, latest)
}

func TestBoundedStore_RespectsCancelledContext(t *testing.T) {
	store := seedStore(t)
	bounded := NewBoundedStore(store, 1, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bounded.GetPriceHistory(ctx, "AAPL", testAsOf.AddDate(0, 0, -9), testAsOf)
	assert.Error(t, err)
}
