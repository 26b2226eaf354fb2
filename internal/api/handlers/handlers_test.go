package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/pipeline"
	"github.com/wonny/fip/internal/pricestore"
	"github.com/wonny/fip/internal/scorecache"
	"github.com/wonny/fip/internal/scoring"
	"github.com/wonny/fip/internal/strategy"
	"github.com/wonny/fip/pkg/logger"
)

var testAsOf = time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

type env struct {
	pipelineHandler *PipelineHandler
	rankHandler     *RankHandler
	scoreHandler    *ScoreHandler
	repo            *scorecache.MemoryRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := pricestore.NewMemoryStore()
	log := logger.NewNop()
	repo := scorecache.NewMemoryRepository()
	cache := scorecache.New(repo, store, 5*time.Second, log)

	for i, symbol := range []string{"AAAA", "BBBB", "CCCC", "DDDD"} {
		rate := 0.003 - float64(i)*0.001
		series := make([]contracts.PricePoint, 250)
		for j := range series {
			sign := 1.0
			if j%2 == 1 {
				sign = -1.0
			}
			c := 100 * math.Pow(1+rate, float64(j)) * (1 + 0.0005*sign)
			series[j] = contracts.PricePoint{
				Date:   testAsOf.AddDate(0, 0, j-249),
				Open:   c,
				High:   c * 1.01,
				Low:    c * 0.99,
				Close:  c,
				Volume: 1_000_000,
			}
		}
		sector := "Technology"
		if i >= 2 {
			sector = "Energy"
		}
		store.AddStock(contracts.StockMetadata{
			Symbol:    symbol,
			Name:      symbol,
			Sector:    sector,
			MarketCap: float64(10-i) * 1e11,
		}, series)
	}

	registry := strategy.NewRegistry(strategy.Deps{
		Store:       store,
		Cache:       cache,
		Engine:      scoring.NewEngine(scoring.DefaultWeights(), log),
		Concurrency: 4,
		Logger:      log,
	})
	executor := pipeline.NewExecutor(registry, store, pipeline.NewBroadcaster(), log)

	return &env{
		pipelineHandler: NewPipelineHandler(executor, registry, log),
		rankHandler:     NewRankHandler(registry, store, log),
		scoreHandler:    NewScoreHandler(repo, log),
		repo:            repo,
	}
}

func TestRun_Success(t *testing.T) {
	e := newEnv(t)

	body, _ := json.Marshal(RunRequest{
		Config: pipeline.Config{
			Name: "test",
			Stages: []pipeline.StageConfig{
				{StrategyID: strategy.MomentumID, InputCount: 4, OutputCount: 2},
			},
		},
		AsOf: "2026-08-25",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/run", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.pipelineHandler.Run(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool               `json:"success"`
		Result  pipeline.RunResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, pipeline.StateCompleted, resp.Result.State)
	assert.Len(t, resp.Result.Final, 2)
}

func TestRun_ConfigErrorIsUnprocessable(t *testing.T) {
	e := newEnv(t)

	body, _ := json.Marshal(RunRequest{
		Config: pipeline.Config{
			Stages: []pipeline.StageConfig{
				{StrategyID: strategy.MomentumID, InputCount: 2, OutputCount: 5},
			},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/run", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.pipelineHandler.Run(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRun_BadBody(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/run", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	e.pipelineHandler.Run(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListStrategies(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/strategies", nil)
	rec := httptest.NewRecorder()
	e.pipelineHandler.ListStrategies(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Count      int            `json:"count"`
			Strategies []StrategyInfo `json:"strategies"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Data.Count)
}

func seedScores(t *testing.T, e *env) {
	t.Helper()
	for symbol, composite := range map[string]float64{"AAAA": 0.9, "BBBB": 0.7, "CCCC": 0.5} {
		score := contracts.MomentumScore{
			Symbol:          symbol,
			CalculationDate: testAsOf,
			LastPriceDate:   testAsOf,
			Composite:       composite,
			ComputedAt:      time.Now().UTC(),
		}
		require.NoError(t, e.repo.Save(context.Background(), &score))
	}
}

func TestRank_ExecutesStrategy(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rank?universe=4&top=2&date=2026-08-25", nil)
	rec := httptest.NewRecorder()
	e.rankHandler.GetRank(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Strategy string                 `json:"strategy"`
			Count    int                    `json:"count"`
			Stocks   []strategy.StockResult `json:"stocks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, strategy.MomentumID, resp.Data.Strategy)
	require.Equal(t, 2, resp.Data.Count)
	assert.Equal(t, "AAAA", resp.Data.Stocks[0].Stock.Symbol, "strongest trend ranks first")

	// The run went through the cache, so the scores are now persisted.
	_, found, err := e.repo.Get(context.Background(), "AAAA", testAsOf)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRank_SectorFilterNarrowsUniverse(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rank?sector=Energy&date=2026-08-25", nil)
	rec := httptest.NewRecorder()
	e.rankHandler.GetRank(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Stocks []strategy.StockResult `json:"stocks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Stocks, 2)
	for _, r := range resp.Data.Stocks {
		assert.Equal(t, "Energy", r.Stock.Sector)
	}
}

func TestRank_SectorAggregation(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rank?date=2026-08-25&aggregate=sector", nil)
	rec := httptest.NewRecorder()
	e.rankHandler.GetRank(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Sectors []SectorAggregate `json:"sectors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Sectors, 2)
	assert.Equal(t, "Technology", resp.Data.Sectors[0].Sector, "stronger trends sit in Technology")
	assert.Equal(t, "AAAA", resp.Data.Sectors[0].TopSymbol)
}

func TestRank_UnknownStrategyIsBadRequest(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rank?strategy=arbitrage", nil)
	rec := httptest.NewRecorder()
	e.rankHandler.GetRank(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRank_NoMatchingStocksIsNotFound(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rank?sector=Utilities&date=2026-08-25", nil)
	rec := httptest.NewRecorder()
	e.rankHandler.GetRank(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTopScores(t *testing.T) {
	e := newEnv(t)
	seedScores(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/scores?limit=2", nil)
	rec := httptest.NewRecorder()
	e.scoreHandler.GetTopScores(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Count  int                       `json:"count"`
			Scores []contracts.MomentumScore `json:"scores"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Data.Count)
	assert.Equal(t, "AAAA", resp.Data.Scores[0].Symbol)
}

func TestGetTopScores_EmptyRepoIsNotFound(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/scores", nil)
	rec := httptest.NewRecorder()
	e.scoreHandler.GetTopScores(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHistory(t *testing.T) {
	e := newEnv(t)
	seedScores(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/scores/AAAA", nil)
	req = mux.SetURLVars(req, map[string]string{"symbol": "AAAA"})
	rec := httptest.NewRecorder()
	e.scoreHandler.GetHistory(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/scores/ZZZZ", nil)
	req = mux.SetURLVars(req, map[string]string{"symbol": "ZZZZ"})
	rec = httptest.NewRecorder()
	e.scoreHandler.GetHistory(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
