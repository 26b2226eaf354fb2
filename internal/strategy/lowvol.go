package strategy

import (
	"context"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/scoring"
	"github.com/wonny/fip/pkg/logger"
)

const LowVolatilityID = "low_volatility"

// lowVolCap is the annualized volatility at and beyond which the score is 0.
// 60% annualized covers all but the most speculative names.
const lowVolCap = 0.60

// LowVolatilityStrategy ranks the calmest stocks highest by inverted
// annualized volatility.
type LowVolatilityStrategy struct {
	store       contracts.PriceStore
	concurrency int
	logger      *logger.Logger
}

// NewLowVolatilityStrategy creates the low-volatility strategy.
func NewLowVolatilityStrategy(store contracts.PriceStore, concurrency int, log *logger.Logger) *LowVolatilityStrategy {
	return &LowVolatilityStrategy{store: store, concurrency: concurrency, logger: log}
}

func (s *LowVolatilityStrategy) ID() string   { return LowVolatilityID }
func (s *LowVolatilityStrategy) Name() string { return "Low Volatility" }

// Execute scores the input set by inverted volatility and keeps the top
// OutputCount.
func (s *LowVolatilityStrategy) Execute(ctx context.Context, req Request) (Result, error) {
	return runScored(ctx, s.ID(), req, s.concurrency, s.logger, func(ctx context.Context, stock contracts.StockMetadata) (float64, *contracts.MomentumScore, error) {
		bars, err := fetchHistory(ctx, s.store, stock.Symbol, req.AsOf, scoring.MinHistoryBars)
		if err != nil {
			return 0, nil, err
		}

		closes := make([]float64, len(bars))
		for i, b := range bars {
			closes[i] = b.Close
		}

		vol := scoring.AnnualizedVolatility(closes, scoring.Window6M)
		return scoring.Clamp01(1 - vol/lowVolCap), nil, nil
	})
}
