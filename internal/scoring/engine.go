package scoring

import (
	"math"
	"time"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/pkg/logger"
)

// Lookback windows in trading days.
const (
	Window1M = 21
	Window3M = 63
	Window6M = 126

	// FullLookback is the longest window; series shorter than this cannot
	// be scored. SkipRecent excludes the most recent two months from the
	// 12-2 momentum measure to avoid short-term reversal noise.
	FullLookback = 180
	SkipRecent   = 42

	// Moving average windows for trend alignment.
	MAShort = 50
	MALong  = 200

	// Volume confirmation windows.
	VolumeShort = 20
	VolumeLong  = 120

	// MinHistoryBars is the hard floor below which Score returns
	// InsufficientHistoryError.
	MinHistoryBars = FullLookback

	// tradingDaysPerYear annualizes daily volatility.
	tradingDaysPerYear = 252
)

// Weights defines the composite score weighting.
// The defaults follow the quality-momentum methodology: long-horizon raw
// momentum carries the most weight, smoothness and risk adjustment next,
// consistency and trend alignment act as small tiebreakers.
type Weights struct {
	Momentum6M  float64
	Momentum3M  float64
	Smooth      float64
	VolAdjusted float64
	Consistency float64
	Trend       float64
}

// DefaultWeights returns the default weighting (30/20/25/15/5/5).
// Product tuning values, configurable but not assumed optimal.
func DefaultWeights() Weights {
	return Weights{
		Momentum6M:  0.30,
		Momentum3M:  0.20,
		Smooth:      0.25,
		VolAdjusted: 0.15,
		Consistency: 0.05,
		Trend:       0.05,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Momentum6M + w.Momentum3M + w.Smooth + w.VolAdjusted + w.Consistency + w.Trend
}

// Valid reports whether weights sum to 1.0 within floating point error.
func (w Weights) Valid() bool {
	return math.Abs(w.Sum()-1.0) < 1e-6
}

// Engine computes quality-momentum scores from price series.
// Pure computation: no I/O, no shared state, safe for concurrent use.
type Engine struct {
	weights Weights
	logger  *logger.Logger
}

// NewEngine creates a scoring engine.
func NewEngine(weights Weights, log *logger.Logger) *Engine {
	return &Engine{
		weights: weights,
		logger:  log,
	}
}

// Score computes the composite quality-momentum score for one stock.
// The series must be chronological; bars after asOf are ignored. Returns
// InsufficientHistoryError when fewer than MinHistoryBars usable bars end at
// asOf. For any series that passes the history check the composite is in
// [0,1] and no error is returned.
func (e *Engine) Score(symbol string, series []contracts.PricePoint, asOf time.Time) (contracts.MomentumScore, error) {
	bars := trimToDate(series, asOf)
	if len(bars) < MinHistoryBars {
		return contracts.MomentumScore{}, &contracts.InsufficientHistoryError{
			Symbol:   symbol,
			Bars:     len(bars),
			Required: MinHistoryBars,
		}
	}

	closes := make([]float64, len(bars))
	volumes := make([]int64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	sub := contracts.SubScores{
		RawMomentum1M: rawReturn(closes, Window1M),
		RawMomentum3M: rawReturn(closes, Window3M),
		RawMomentum6M: rawReturn(closes, Window6M),
		Momentum12_2:  momentum12_2(closes),
	}

	// Sharpe-like ratio: 6M return over annualized daily log-return vol.
	// Zero volatility is defined as 0 rather than dividing by zero.
	annVol := AnnualizedVolatility(closes, Window6M)
	if annVol > 0 {
		sub.VolatilityAdjusted = sub.RawMomentum6M / annVol
	}

	sub.Consistency = consistency(closes, Window6M)
	sub.SmoothMomentum = sub.RawMomentum6M * sub.Consistency
	sub.TrendStrength = trendStrength(closes)

	longVol := meanVolume(volumes, VolumeLong)
	if longVol > 0 {
		sub.VolumeScore = normalizeVolumeRatio(meanVolume(volumes, VolumeShort) / longVol)
	}

	score := contracts.MomentumScore{
		Symbol:          symbol,
		CalculationDate: asOf,
		LastPriceDate:   bars[len(bars)-1].Date,
		Composite:       e.composite(sub),
		Sub:             sub,
		ComputedAt:      time.Now().UTC(),
	}

	e.logger.WithFields(map[string]interface{}{
		"symbol":    symbol,
		"composite": score.Composite,
		"raw_6m":    sub.RawMomentum6M,
		"vol_adj":   sub.VolatilityAdjusted,
	}).Debug("Computed momentum score")

	return score, nil
}

// composite applies the weighting over normalized sub-scores.
func (e *Engine) composite(sub contracts.SubScores) float64 {
	return e.weights.Momentum6M*normalizeMomentum(sub.RawMomentum6M) +
		e.weights.Momentum3M*normalizeMomentum(sub.RawMomentum3M) +
		e.weights.Smooth*normalizeMomentum(sub.SmoothMomentum) +
		e.weights.VolAdjusted*normalizeVolAdj(sub.VolatilityAdjusted) +
		e.weights.Consistency*sub.Consistency +
		e.weights.Trend*sub.TrendStrength
}

// rawReturn is the total return over the last window bars.
func rawReturn(closes []float64, window int) float64 {
	if len(closes) < window+1 {
		return 0
	}

	past := closes[len(closes)-1-window]
	if past == 0 {
		return 0
	}
	return closes[len(closes)-1]/past - 1
}

// momentum12_2 is the cumulative return from the start of the full lookback
// to two months ago. Excluding the most recent two months filters short-term
// reversal noise; this is the single most heavily studied momentum measure.
func momentum12_2(closes []float64) float64 {
	if len(closes) < FullLookback {
		return 0
	}

	start := closes[len(closes)-FullLookback]
	end := closes[len(closes)-1-SkipRecent]
	if start == 0 {
		return 0
	}
	return end/start - 1
}

// consistency is the fraction of positive daily returns over the window.
func consistency(closes []float64, window int) float64 {
	returns := dailyReturns(closes, window)
	if len(returns) == 0 {
		return 0
	}

	positive := 0
	for _, r := range returns {
		if r > 0 {
			positive++
		}
	}
	return float64(positive) / float64(len(returns))
}

// trendStrength grades moving-average alignment: 1.0 for full bullish
// alignment (close above MA50, MA50 above MA200), 0.5 when exactly one of
// those holds, 0 otherwise.
func trendStrength(closes []float64) float64 {
	if len(closes) == 0 {
		return 0
	}

	price := closes[len(closes)-1]
	maShort := SMA(closes, MAShort)
	maLong := SMA(closes, MALong)

	aboveShort := price > maShort
	alignment := maShort > maLong

	switch {
	case aboveShort && alignment:
		return 1.0
	case aboveShort || alignment:
		return 0.5
	default:
		return 0.0
	}
}

// trimToDate drops bars after asOf. Series arrive chronological, so this is
// a suffix cut.
func trimToDate(series []contracts.PricePoint, asOf time.Time) []contracts.PricePoint {
	cut := len(series)
	for cut > 0 && series[cut-1].Date.After(asOf) {
		cut--
	}
	return series[:cut]
}
