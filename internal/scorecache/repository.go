package scorecache

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fip/internal/contracts"
)

// Repository persists momentum scores in PostgreSQL.
// Table momentum_scores is keyed by (symbol, calculation_date) and stores the
// composite, every sub-score, the last price date behind the computation, and
// a computed-at timestamp. Queryable by symbol, by date, and by composite
// descending to seed stage-0 universes when market-cap ranking is unavailable.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new score repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const scoreColumns = `
	symbol, calculation_date, last_price_date, composite_score,
	raw_momentum_1m, raw_momentum_3m, raw_momentum_6m, momentum_12_2,
	volatility_adjusted, consistency, trend_strength, volume_score,
	smooth_momentum, computed_at
`

// Get retrieves the score for (symbol, date).
func (r *Repository) Get(ctx context.Context, symbol string, date time.Time) (*contracts.MomentumScore, bool, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM momentum_scores
		WHERE symbol = $1 AND calculation_date = $2
	`

	score, err := scanScore(r.pool.QueryRow(ctx, query, symbol, date))
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get score: %w", err)
	}
	return score, true, nil
}

// Save upserts a score. Recomputation for the same key overwrites in place;
// a new calculation date produces a new row.
func (r *Repository) Save(ctx context.Context, score *contracts.MomentumScore) error {
	query := `
		INSERT INTO momentum_scores (` + scoreColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (symbol, calculation_date) DO UPDATE SET
			last_price_date = EXCLUDED.last_price_date,
			composite_score = EXCLUDED.composite_score,
			raw_momentum_1m = EXCLUDED.raw_momentum_1m,
			raw_momentum_3m = EXCLUDED.raw_momentum_3m,
			raw_momentum_6m = EXCLUDED.raw_momentum_6m,
			momentum_12_2 = EXCLUDED.momentum_12_2,
			volatility_adjusted = EXCLUDED.volatility_adjusted,
			consistency = EXCLUDED.consistency,
			trend_strength = EXCLUDED.trend_strength,
			volume_score = EXCLUDED.volume_score,
			smooth_momentum = EXCLUDED.smooth_momentum,
			computed_at = EXCLUDED.computed_at
	`

	_, err := r.pool.Exec(ctx, query,
		score.Symbol, score.CalculationDate, score.LastPriceDate, score.Composite,
		score.Sub.RawMomentum1M, score.Sub.RawMomentum3M, score.Sub.RawMomentum6M,
		score.Sub.Momentum12_2, score.Sub.VolatilityAdjusted, score.Sub.Consistency,
		score.Sub.TrendStrength, score.Sub.VolumeScore, score.Sub.SmoothMomentum,
		score.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

// TopByComposite returns the highest-scoring symbols for a date.
func (r *Repository) TopByComposite(ctx context.Context, date time.Time, limit int) ([]contracts.MomentumScore, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM momentum_scores
		WHERE calculation_date = $1
		ORDER BY composite_score DESC, symbol ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, date, limit)
	if err != nil {
		return nil, fmt.Errorf("query top scores: %w", err)
	}
	defer rows.Close()

	return collectScores(rows)
}

// History returns stored scores for a symbol, newest first.
func (r *Repository) History(ctx context.Context, symbol string, limit int) ([]contracts.MomentumScore, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM momentum_scores
		WHERE symbol = $1
		ORDER BY calculation_date DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer rows.Close()

	return collectScores(rows)
}

// LatestDate returns the most recent calculation date with stored scores.
func (r *Repository) LatestDate(ctx context.Context) (time.Time, bool, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(calculation_date) FROM momentum_scores`).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest calculation date: %w", err)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return *latest, true, nil
}

func scanScore(row pgx.Row) (*contracts.MomentumScore, error) {
	var s contracts.MomentumScore
	err := row.Scan(
		&s.Symbol, &s.CalculationDate, &s.LastPriceDate, &s.Composite,
		&s.Sub.RawMomentum1M, &s.Sub.RawMomentum3M, &s.Sub.RawMomentum6M,
		&s.Sub.Momentum12_2, &s.Sub.VolatilityAdjusted, &s.Sub.Consistency,
		&s.Sub.TrendStrength, &s.Sub.VolumeScore, &s.Sub.SmoothMomentum,
		&s.ComputedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectScores(rows pgx.Rows) ([]contracts.MomentumScore, error) {
	scores := make([]contracts.MomentumScore, 0)
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, *s)
	}
	return scores, rows.Err()
}
