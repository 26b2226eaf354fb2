package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/scorecache"
	"github.com/wonny/fip/internal/scoring"
	"github.com/wonny/fip/internal/strategy"
	"github.com/wonny/fip/pkg/logger"
)

// ScoreRefreshJob warms the score cache after the market close: it scores
// the top-N universe by market cap so the evening's API and pipeline traffic
// hits fresh cached scores instead of computing on demand.
type ScoreRefreshJob struct {
	store    contracts.PriceStore
	momentum *strategy.MomentumStrategy
	schedule string
	topN     int
	logger   *logger.Logger
}

// NewScoreRefreshJob creates the nightly refresh job.
func NewScoreRefreshJob(store contracts.PriceStore, engine *scoring.Engine, cache *scorecache.Cache, schedule string, topN, concurrency int, log *logger.Logger) *ScoreRefreshJob {
	return &ScoreRefreshJob{
		store:    store,
		momentum: strategy.NewMomentumStrategy(engine, cache, store, concurrency, log),
		schedule: schedule,
		topN:     topN,
		logger:   log,
	}
}

func (j *ScoreRefreshJob) Name() string {
	return "score_refresh"
}

func (j *ScoreRefreshJob) Schedule() string {
	return j.schedule
}

// Run scores the top-N universe for the latest trading day.
func (j *ScoreRefreshJob) Run(ctx context.Context) error {
	asOf, err := j.store.LatestTradingDay(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("resolve latest trading day: %w", err)
	}

	universe, err := j.store.ListUniverse(ctx, contracts.UniverseFilter{Limit: j.topN})
	if err != nil {
		return fmt.Errorf("list universe: %w", err)
	}
	if len(universe) == 0 {
		return errors.New("empty universe, nothing to refresh")
	}

	res, err := j.momentum.Execute(ctx, strategy.Request{
		Input:       universe,
		OutputCount: len(universe),
		AsOf:        asOf,
	})
	if err != nil {
		return fmt.Errorf("refresh scores: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"as_of":   asOf.Format("2006-01-02"),
		"scored":  res.Metrics.Scored,
		"dropped": res.Metrics.Dropped,
		"elapsed": res.Metrics.Elapsed.String(),
	}).Info("Score refresh complete")

	return nil
}
