package strategy

import (
	"context"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/scoring"
	"github.com/wonny/fip/pkg/logger"
)

const MeanReversionID = "mean_reversion"

// Z-score bounds for the deviation from the short moving average. A stock
// two standard deviations below its mean scores 1.0, two above scores 0.
const (
	meanRevWindow = 50
	meanRevZLo    = -2.0
	meanRevZHi    = 2.0
)

// MeanReversionStrategy ranks oversold stocks highest: the score rises as
// price falls below its short moving average in volatility units.
type MeanReversionStrategy struct {
	store       contracts.PriceStore
	concurrency int
	logger      *logger.Logger
}

// NewMeanReversionStrategy creates the mean-reversion strategy.
func NewMeanReversionStrategy(store contracts.PriceStore, concurrency int, log *logger.Logger) *MeanReversionStrategy {
	return &MeanReversionStrategy{store: store, concurrency: concurrency, logger: log}
}

func (s *MeanReversionStrategy) ID() string   { return MeanReversionID }
func (s *MeanReversionStrategy) Name() string { return "Mean Reversion" }

// Execute scores the input set by oversold depth and keeps the top
// OutputCount.
func (s *MeanReversionStrategy) Execute(ctx context.Context, req Request) (Result, error) {
	return runScored(ctx, s.ID(), req, s.concurrency, s.logger, func(ctx context.Context, stock contracts.StockMetadata) (float64, *contracts.MomentumScore, error) {
		bars, err := fetchHistory(ctx, s.store, stock.Symbol, req.AsOf, scoring.MinHistoryBars)
		if err != nil {
			return 0, nil, err
		}

		closes := make([]float64, len(bars))
		for i, b := range bars {
			closes[i] = b.Close
		}

		mean := scoring.SMA(closes, meanRevWindow)
		vol := scoring.AnnualizedVolatility(closes, meanRevWindow)
		if mean == 0 || vol == 0 {
			// No dispersion to revert against.
			return 0, nil, nil
		}

		// Deviation from the mean in annualized-vol units, inverted so
		// oversold ranks first.
		z := (closes[len(closes)-1]/mean - 1) / vol
		return scoring.Clamp01((meanRevZHi - z) / (meanRevZHi - meanRevZLo)), nil, nil
	})
}
