package strategy

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/pkg/logger"
)

// Request carries one strategy invocation: the candidate stocks, how many to
// keep, and the evaluation date.
type Request struct {
	Input       []contracts.StockMetadata
	OutputCount int
	AsOf        time.Time
}

// StockResult is one scored stock. Momentum is populated only by the
// momentum strategy; other strategies report just the composite.
type StockResult struct {
	Stock    contracts.StockMetadata  `json:"stock"`
	Score    float64                  `json:"score"`
	Momentum *contracts.MomentumScore `json:"momentum,omitempty"`
}

// Metrics summarizes one strategy execution.
type Metrics struct {
	Input       int           `json:"input"`
	Scored      int           `json:"scored"`
	Dropped     int           `json:"dropped"`
	Output      int           `json:"output"`
	AvgScore    float64       `json:"avg_score"`
	TopScore    float64       `json:"top_score"`
	BottomScore float64       `json:"bottom_score"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Result is the outcome of one strategy execution: the kept stocks in rank
// order plus execution metrics.
type Result struct {
	StrategyID string        `json:"strategy_id"`
	Stocks     []StockResult `json:"stocks"`
	Metrics    Metrics       `json:"metrics"`
}

// Strategy scores a candidate set and keeps the top OutputCount.
// Implementations must be safe for concurrent use.
type Strategy interface {
	ID() string
	Name() string
	Execute(ctx context.Context, req Request) (Result, error)
}

// scoreFunc evaluates one stock. A nil *MomentumScore means no sub-score
// breakdown is available for this strategy.
type scoreFunc func(ctx context.Context, stock contracts.StockMetadata) (float64, *contracts.MomentumScore, error)

// runScored is the shared execution scaffold: score every input stock with
// bounded concurrency, drop stocks with insufficient history, rank by score
// descending with ties broken by symbol ascending, and truncate to
// OutputCount. Any error other than insufficient history aborts the run.
func runScored(ctx context.Context, strategyID string, req Request, concurrency int, log *logger.Logger, score scoreFunc) (Result, error) {
	start := time.Now()

	results := make([]*StockResult, len(req.Input))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, stock := range req.Input {
		i, stock := i, stock
		g.Go(func() error {
			composite, momentum, err := score(gctx, stock)
			if err != nil {
				var histErr *contracts.InsufficientHistoryError
				if errors.As(err, &histErr) {
					// Recent listings without a full lookback are dropped,
					// never scored as zero.
					log.WithFields(map[string]interface{}{
						"strategy": strategyID,
						"symbol":   stock.Symbol,
						"bars":     histErr.Bars,
					}).Debug("Dropped stock with insufficient history")
					return nil
				}
				return err
			}

			results[i] = &StockResult{Stock: stock, Score: composite, Momentum: momentum}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	scored := make([]StockResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			scored = append(scored, *r)
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Stock.Symbol < scored[j].Stock.Symbol
	})

	kept := scored
	if req.OutputCount > 0 && len(kept) > req.OutputCount {
		kept = kept[:req.OutputCount]
	}

	metrics := Metrics{
		Input:   len(req.Input),
		Scored:  len(scored),
		Dropped: len(req.Input) - len(scored),
		Output:  len(kept),
		Elapsed: time.Since(start),
	}
	if len(kept) > 0 {
		sum := 0.0
		for _, r := range kept {
			sum += r.Score
		}
		metrics.AvgScore = sum / float64(len(kept))
		metrics.TopScore = kept[0].Score
		metrics.BottomScore = kept[len(kept)-1].Score
	}

	log.WithFields(map[string]interface{}{
		"strategy": strategyID,
		"input":    metrics.Input,
		"dropped":  metrics.Dropped,
		"output":   metrics.Output,
		"elapsed":  metrics.Elapsed.String(),
	}).Info("Strategy execution complete")

	return Result{StrategyID: strategyID, Stocks: kept, Metrics: metrics}, nil
}

// historyWindowDays is the calendar span fetched to cover the longest
// trading-day lookback with margin for weekends and holidays.
const historyWindowDays = 400

// fetchHistory loads the scoring window for one stock and enforces the
// minimum bar count.
func fetchHistory(ctx context.Context, store contracts.PriceStore, symbol string, asOf time.Time, minBars int) ([]contracts.PricePoint, error) {
	from := asOf.AddDate(0, 0, -historyWindowDays)
	bars, err := store.GetPriceHistory(ctx, symbol, from, asOf)
	if err != nil {
		return nil, err
	}
	if len(bars) < minBars {
		return nil, &contracts.InsufficientHistoryError{
			Symbol:   symbol,
			Bars:     len(bars),
			Required: minBars,
		}
	}
	return bars, nil
}
