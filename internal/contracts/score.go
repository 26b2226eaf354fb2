package contracts

import "time"

// SubScores holds the raw sub-metrics behind a composite momentum score.
// Raw momentum fields are plain returns (0.10 = +10%), not normalized.
type SubScores struct {
	RawMomentum1M      float64 `json:"raw_momentum_1m"`
	RawMomentum3M      float64 `json:"raw_momentum_3m"`
	RawMomentum6M      float64 `json:"raw_momentum_6m"`
	Momentum12_2       float64 `json:"momentum_12_2"`
	VolatilityAdjusted float64 `json:"volatility_adjusted"`
	Consistency        float64 `json:"consistency"`
	TrendStrength      float64 `json:"trend_strength"`
	VolumeScore        float64 `json:"volume_score"`
	SmoothMomentum     float64 `json:"smooth_momentum"`
}

// MomentumScore is the scoring engine's output for one stock on one date.
// Immutable once computed for a (symbol, calculation date) pair; a new
// calculation date produces a new record.
type MomentumScore struct {
	Symbol          string    `json:"symbol"`
	CalculationDate time.Time `json:"calculation_date"`

	// LastPriceDate is the date of the newest bar used in the computation.
	// The cache staleness rule compares it against the price store.
	LastPriceDate time.Time `json:"last_price_date"`

	Composite float64   `json:"composite_score"`
	Sub       SubScores `json:"sub_scores"`

	ComputedAt time.Time `json:"computed_at"`
}
