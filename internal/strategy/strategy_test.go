package strategy

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/pricestore"
	"github.com/wonny/fip/internal/scorecache"
	"github.com/wonny/fip/internal/scoring"
	"github.com/wonny/fip/pkg/logger"
)

var testAsOf = time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

// genSeries builds n daily bars ending at testAsOf with constant growth rate
// and an alternating perturbation of amplitude amp.
func genSeries(n int, start, rate, amp float64) []contracts.PricePoint {
	points := make([]contracts.PricePoint, n)
	for i := range points {
		sign := 1.0
		if i%2 == 1 {
			sign = -1.0
		}
		c := start * math.Pow(1+rate, float64(i)) * (1 + amp*sign)
		points[i] = contracts.PricePoint{
			Date:   testAsOf.AddDate(0, 0, i-n+1),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return points
}

type fixture struct {
	store *pricestore.MemoryStore
	repo  *scorecache.MemoryRepository
	deps  Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := pricestore.NewMemoryStore()
	repo := scorecache.NewMemoryRepository()
	log := logger.NewNop()
	cache := scorecache.New(repo, store, 5*time.Second, log)

	return &fixture{
		store: store,
		repo:  repo,
		deps: Deps{
			Store:       store,
			Cache:       cache,
			Engine:      scoring.NewEngine(scoring.DefaultWeights(), log),
			Concurrency: 4,
			Logger:      log,
		},
	}
}

func (f *fixture) add(symbol, sector string, marketCap float64, series []contracts.PricePoint) contracts.StockMetadata {
	meta := contracts.StockMetadata{
		Symbol:    symbol,
		Name:      symbol,
		Sector:    sector,
		MarketCap: marketCap,
	}
	f.store.AddStock(meta, series)
	return meta
}

func TestMomentumStrategy_RanksAndTruncates(t *testing.T) {
	f := newFixture(t)

	up := f.add("UPUP", "Technology", 1e12, genSeries(250, 100, 0.003, 0.0005))
	flat := f.add("FLAT", "Technology", 9e11, genSeries(250, 100, 0, 0.001))
	down := f.add("DOWN", "Energy", 8e11, genSeries(250, 100, -0.003, 0.0005))

	strat := NewMomentumStrategy(f.deps.Engine, f.deps.Cache, f.deps.Store, 4, f.deps.Logger)
	res, err := strat.Execute(context.Background(), Request{
		Input:       []contracts.StockMetadata{down, flat, up},
		OutputCount: 2,
		AsOf:        testAsOf,
	})
	require.NoError(t, err)

	require.Len(t, res.Stocks, 2)
	assert.Equal(t, up.Symbol, res.Stocks[0].Stock.Symbol)
	assert.Equal(t, flat.Symbol, res.Stocks[1].Stock.Symbol)
	assert.Greater(t, res.Stocks[0].Score, res.Stocks[1].Score)

	require.NotNil(t, res.Stocks[0].Momentum)
	assert.Equal(t, res.Stocks[0].Score, res.Stocks[0].Momentum.Composite)

	assert.Equal(t, 3, res.Metrics.Input)
	assert.Equal(t, 3, res.Metrics.Scored)
	assert.Equal(t, 0, res.Metrics.Dropped)
	assert.Equal(t, 2, res.Metrics.Output)
	assert.Equal(t, res.Stocks[0].Score, res.Metrics.TopScore)
	assert.Equal(t, res.Stocks[1].Score, res.Metrics.BottomScore)
}

func TestMomentumStrategy_DropsInsufficientHistory(t *testing.T) {
	f := newFixture(t)

	full := f.add("FULL", "Technology", 1e12, genSeries(250, 100, 0.001, 0.0005))
	ipo := f.add("IPOX", "Technology", 5e11, genSeries(40, 100, 0.001, 0.0005))

	strat := NewMomentumStrategy(f.deps.Engine, f.deps.Cache, f.deps.Store, 4, f.deps.Logger)
	res, err := strat.Execute(context.Background(), Request{
		Input:       []contracts.StockMetadata{full, ipo},
		OutputCount: 10,
		AsOf:        testAsOf,
	})
	require.NoError(t, err)

	require.Len(t, res.Stocks, 1, "short-history stock is dropped, not zero-scored")
	assert.Equal(t, "FULL", res.Stocks[0].Stock.Symbol)
	assert.Equal(t, 1, res.Metrics.Dropped)
	assert.Equal(t, 1, res.Metrics.Scored)
}

func TestMomentumStrategy_TiesBreakBySymbol(t *testing.T) {
	f := newFixture(t)

	series := genSeries(250, 100, 0.001, 0.0005)
	b := f.add("BBBB", "Technology", 1e12, series)
	a := f.add("AAAA", "Technology", 1e12, series)

	strat := NewMomentumStrategy(f.deps.Engine, f.deps.Cache, f.deps.Store, 4, f.deps.Logger)
	res, err := strat.Execute(context.Background(), Request{
		Input:       []contracts.StockMetadata{b, a},
		OutputCount: 2,
		AsOf:        testAsOf,
	})
	require.NoError(t, err)

	require.Len(t, res.Stocks, 2)
	assert.Equal(t, res.Stocks[0].Score, res.Stocks[1].Score)
	assert.Equal(t, "AAAA", res.Stocks[0].Stock.Symbol)
}

func TestMomentumStrategy_PersistsScores(t *testing.T) {
	f := newFixture(t)

	stock := f.add("SAVE", "Technology", 1e12, genSeries(250, 100, 0.001, 0.0005))

	strat := NewMomentumStrategy(f.deps.Engine, f.deps.Cache, f.deps.Store, 4, f.deps.Logger)
	_, err := strat.Execute(context.Background(), Request{
		Input:       []contracts.StockMetadata{stock},
		OutputCount: 1,
		AsOf:        testAsOf,
	})
	require.NoError(t, err)

	_, found, err := f.repo.Get(context.Background(), "SAVE", testAsOf)
	require.NoError(t, err)
	assert.True(t, found, "executed scores land in the repository")
}

func TestBreakoutStrategy_PrefersNewHighs(t *testing.T) {
	f := newFixture(t)

	// Rises into its high vs peaked-then-faded.
	climbing := f.add("CLMB", "Technology", 1e12, genSeries(250, 100, 0.002, 0))

	faded := genSeries(250, 100, 0.002, 0)
	for i := 200; i < 250; i++ {
		p := faded[200].Close * 0.7
		faded[i].Close = p
		faded[i].High = p * 1.01
		faded[i].Low = p * 0.99
	}
	fadedMeta := f.add("FADE", "Technology", 1e12, faded)

	strat := NewBreakoutStrategy(f.deps.Store, 4, f.deps.Logger)
	res, err := strat.Execute(context.Background(), Request{
		Input:       []contracts.StockMetadata{fadedMeta, climbing},
		OutputCount: 2,
		AsOf:        testAsOf,
	})
	require.NoError(t, err)

	require.Len(t, res.Stocks, 2)
	assert.Equal(t, "CLMB", res.Stocks[0].Stock.Symbol)
	assert.Greater(t, res.Stocks[0].Score, res.Stocks[1].Score)
	assert.InDelta(t, 1.0, res.Stocks[0].Score, 0.02, "at the high scores near 1")
}

func TestLowVolatilityStrategy_PrefersCalm(t *testing.T) {
	f := newFixture(t)

	calm := f.add("CALM", "Utilities", 1e11, genSeries(250, 100, 0.0005, 0.001))
	wild := f.add("WILD", "Technology", 1e11, genSeries(250, 100, 0.0005, 0.04))

	strat := NewLowVolatilityStrategy(f.deps.Store, 4, f.deps.Logger)
	res, err := strat.Execute(context.Background(), Request{
		Input:       []contracts.StockMetadata{wild, calm},
		OutputCount: 2,
		AsOf:        testAsOf,
	})
	require.NoError(t, err)

	require.Len(t, res.Stocks, 2)
	assert.Equal(t, "CALM", res.Stocks[0].Stock.Symbol)
	assert.Greater(t, res.Stocks[0].Score, res.Stocks[1].Score)
}

func TestMeanReversionStrategy_PrefersOversold(t *testing.T) {
	f := newFixture(t)

	// Steady then a sharp recent dip vs steady then a recent pop.
	dipped := genSeries(250, 100, 0, 0.005)
	for i := 245; i < 250; i++ {
		dipped[i].Close *= 0.92
	}
	dippedMeta := f.add("DIPD", "Technology", 1e12, dipped)

	popped := genSeries(250, 100, 0, 0.005)
	for i := 245; i < 250; i++ {
		popped[i].Close *= 1.08
	}
	poppedMeta := f.add("POPD", "Technology", 1e12, popped)

	strat := NewMeanReversionStrategy(f.deps.Store, 4, f.deps.Logger)
	res, err := strat.Execute(context.Background(), Request{
		Input:       []contracts.StockMetadata{poppedMeta, dippedMeta},
		OutputCount: 2,
		AsOf:        testAsOf,
	})
	require.NoError(t, err)

	require.Len(t, res.Stocks, 2)
	assert.Equal(t, "DIPD", res.Stocks[0].Stock.Symbol)
	assert.Greater(t, res.Stocks[0].Score, res.Stocks[1].Score)
}

func TestRegistry(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.deps)

	assert.Equal(t, []string{BreakoutID, LowVolatilityID, MeanReversionID, MomentumID}, reg.IDs())

	for _, id := range reg.IDs() {
		s, err := reg.Get(id)
		require.NoError(t, err)
		assert.Equal(t, id, s.ID())
		assert.NotEmpty(t, s.Name())
	}

	assert.True(t, reg.Has(MomentumID))
	assert.False(t, reg.Has("arbitrage"))

	_, err := reg.Get("arbitrage")
	assert.Error(t, err)
}
