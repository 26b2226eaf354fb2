package strategy

import (
	"context"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/scorecache"
	"github.com/wonny/fip/internal/scoring"
	"github.com/wonny/fip/pkg/logger"
)

const MomentumID = "momentum"

// MomentumStrategy ranks by the composite quality-momentum score. Scores go
// through the cache, so repeat executions for the same date reuse prior work.
type MomentumStrategy struct {
	engine      *scoring.Engine
	cache       *scorecache.Cache
	store       contracts.PriceStore
	concurrency int
	logger      *logger.Logger
}

// NewMomentumStrategy creates the quality-momentum strategy.
func NewMomentumStrategy(engine *scoring.Engine, cache *scorecache.Cache, store contracts.PriceStore, concurrency int, log *logger.Logger) *MomentumStrategy {
	return &MomentumStrategy{
		engine:      engine,
		cache:       cache,
		store:       store,
		concurrency: concurrency,
		logger:      log,
	}
}

func (s *MomentumStrategy) ID() string   { return MomentumID }
func (s *MomentumStrategy) Name() string { return "Quality Momentum" }

// Execute scores the input set and keeps the top OutputCount by composite.
func (s *MomentumStrategy) Execute(ctx context.Context, req Request) (Result, error) {
	return runScored(ctx, s.ID(), req, s.concurrency, s.logger, func(ctx context.Context, stock contracts.StockMetadata) (float64, *contracts.MomentumScore, error) {
		score, err := s.cache.GetOrCompute(ctx, stock.Symbol, req.AsOf, func(ctx context.Context) (contracts.MomentumScore, error) {
			bars, err := fetchHistory(ctx, s.store, stock.Symbol, req.AsOf, scoring.MinHistoryBars)
			if err != nil {
				return contracts.MomentumScore{}, err
			}
			return s.engine.Score(stock.Symbol, bars, req.AsOf)
		})
		if err != nil {
			return 0, nil, err
		}
		return score.Composite, &score, nil
	})
}
