package strategy

import (
	"context"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/scoring"
	"github.com/wonny/fip/pkg/logger"
)

const BreakoutID = "breakout"

// breakoutLookback bounds the high-water window in trading days; with the
// minimum history floor the window is at least the full momentum lookback.
const breakoutLookback = 252

// BreakoutStrategy ranks by proximity to the lookback high: a close at the
// high scores 1.0, deep drawdowns approach 0.
type BreakoutStrategy struct {
	store       contracts.PriceStore
	concurrency int
	logger      *logger.Logger
}

// NewBreakoutStrategy creates the high-proximity breakout strategy.
func NewBreakoutStrategy(store contracts.PriceStore, concurrency int, log *logger.Logger) *BreakoutStrategy {
	return &BreakoutStrategy{store: store, concurrency: concurrency, logger: log}
}

func (s *BreakoutStrategy) ID() string   { return BreakoutID }
func (s *BreakoutStrategy) Name() string { return "52-Week High Breakout" }

// Execute scores the input set by high proximity and keeps the top
// OutputCount.
func (s *BreakoutStrategy) Execute(ctx context.Context, req Request) (Result, error) {
	return runScored(ctx, s.ID(), req, s.concurrency, s.logger, func(ctx context.Context, stock contracts.StockMetadata) (float64, *contracts.MomentumScore, error) {
		bars, err := fetchHistory(ctx, s.store, stock.Symbol, req.AsOf, scoring.MinHistoryBars)
		if err != nil {
			return 0, nil, err
		}

		window := bars
		if len(window) > breakoutLookback {
			window = window[len(window)-breakoutLookback:]
		}

		high := 0.0
		for _, b := range window {
			if b.High > high {
				high = b.High
			}
		}
		if high == 0 {
			return 0, nil, nil
		}

		last := window[len(window)-1].Close
		return scoring.Clamp01(last / high), nil, nil
	})
}
