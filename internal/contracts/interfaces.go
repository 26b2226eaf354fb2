package contracts

import (
	"context"
	"time"
)

// PriceStore supplies price history and universe metadata.
// Consumed, never owned: implementations live outside the scoring core and
// the engine borrows their data read-only.
type PriceStore interface {
	// GetPriceHistory returns bars for symbol in [from, to], oldest first.
	GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]PricePoint, error)

	// ListUniverse returns stocks matching filter, market cap descending.
	ListUniverse(ctx context.Context, filter UniverseFilter) ([]StockMetadata, error)

	// LatestTradingDay returns the most recent date on or before asOf for
	// which price data exists. Drives the cache staleness rule.
	LatestTradingDay(ctx context.Context, asOf time.Time) (time.Time, error)
}

// ScoreRepository persists momentum scores keyed by (symbol, calculation date).
type ScoreRepository interface {
	Get(ctx context.Context, symbol string, date time.Time) (*MomentumScore, bool, error)
	Save(ctx context.Context, score *MomentumScore) error

	// TopByComposite returns the highest-scoring symbols for a date, used to
	// seed stage-0 universes when market-cap ranking is unavailable.
	TopByComposite(ctx context.Context, date time.Time, limit int) ([]MomentumScore, error)

	// History returns all stored scores for a symbol, newest first.
	History(ctx context.Context, symbol string, limit int) ([]MomentumScore, error)

	// LatestDate returns the most recent calculation date with stored scores.
	LatestDate(ctx context.Context) (time.Time, bool, error)
}
