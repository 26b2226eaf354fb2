package pricestore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/pkg/logger"
	"github.com/wonny/fip/pkg/redis"
)

// PostgresStore implements contracts.PriceStore over the daily_prices and
// stocks tables. Universe listings and price history go through a Redis
// read-through cache when one is configured.
type PostgresStore struct {
	pool   *pgxpool.Pool
	cache  *redis.Cache
	logger *logger.Logger
}

// NewPostgresStore creates a PostgreSQL-backed price store. cache may be nil
// to disable universe caching.
func NewPostgresStore(pool *pgxpool.Pool, cache *redis.Cache, log *logger.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		cache:  cache,
		logger: log,
	}
}

// GetPriceHistory retrieves daily bars for a symbol within [from, to],
// chronological.
func (s *PostgresStore) GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PricePoint, error) {
	key := redis.HistoryKey(symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if cached, ok := s.cachedHistory(ctx, key); ok {
		return cached, nil
	}

	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM daily_prices
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query price history for %s: %w", symbol, err)
	}
	defer rows.Close()

	var points []contracts.PricePoint
	for rows.Next() {
		var p contracts.PricePoint
		if err := rows.Scan(&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.storeHistory(ctx, key, points)
	return points, nil
}

// ListUniverse retrieves stock metadata matching the filter, ordered by
// market cap descending so a Limit takes the largest names first.
func (s *PostgresStore) ListUniverse(ctx context.Context, filter contracts.UniverseFilter) ([]contracts.StockMetadata, error) {
	if cached, ok := s.cachedUniverse(ctx, filter); ok {
		return cached, nil
	}

	query := `
		SELECT symbol, name, sector, industry, market_cap
		FROM stocks
		WHERE ($1 = '' OR sector = $1)
		  AND ($2 = '' OR industry = $2)
		ORDER BY market_cap DESC, symbol ASC
	`
	args := []interface{}{filter.Sector, filter.Industry}
	if filter.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query universe: %w", err)
	}
	defer rows.Close()

	stocks := make([]contracts.StockMetadata, 0)
	for rows.Next() {
		var m contracts.StockMetadata
		if err := rows.Scan(&m.Symbol, &m.Name, &m.Sector, &m.Industry, &m.MarketCap); err != nil {
			return nil, fmt.Errorf("scan stock metadata: %w", err)
		}
		stocks = append(stocks, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.storeUniverse(ctx, filter, stocks)
	return stocks, nil
}

// LatestTradingDay returns the most recent trade date on or before asOf for
// which any price data exists.
func (s *PostgresStore) LatestTradingDay(ctx context.Context, asOf time.Time) (time.Time, error) {
	var latest time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(trade_date) FROM daily_prices WHERE trade_date <= $1`, asOf,
	).Scan(&latest)
	if err == pgx.ErrNoRows {
		return time.Time{}, fmt.Errorf("no trading days on or before %s", asOf.Format("2006-01-02"))
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("latest trading day: %w", err)
	}
	return latest, nil
}

func (s *PostgresStore) cachedHistory(ctx context.Context, key string) ([]contracts.PricePoint, bool) {
	if s.cache == nil {
		return nil, false
	}

	var points []contracts.PricePoint
	found, err := s.cache.Get(ctx, key, &points)
	if err != nil {
		s.logger.WithError(err).Warn("History cache read failed")
		return nil, false
	}
	return points, found
}

func (s *PostgresStore) storeHistory(ctx context.Context, key string, points []contracts.PricePoint) {
	if s.cache == nil || len(points) == 0 {
		return
	}

	if err := s.cache.Set(ctx, key, points, redis.TTLLong); err != nil {
		s.logger.WithError(err).Warn("History cache write failed")
	}
}

func universeSignature(filter contracts.UniverseFilter) string {
	return fmt.Sprintf("%s:%s:%d", filter.Sector, filter.Industry, filter.Limit)
}

func (s *PostgresStore) cachedUniverse(ctx context.Context, filter contracts.UniverseFilter) ([]contracts.StockMetadata, bool) {
	if s.cache == nil {
		return nil, false
	}

	var stocks []contracts.StockMetadata
	found, err := s.cache.Get(ctx, redis.UniverseKey(universeSignature(filter)), &stocks)
	if err != nil {
		s.logger.WithError(err).Warn("Universe cache read failed")
		return nil, false
	}
	return stocks, found
}

func (s *PostgresStore) storeUniverse(ctx context.Context, filter contracts.UniverseFilter, stocks []contracts.StockMetadata) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, redis.UniverseKey(universeSignature(filter)), stocks, redis.TTLMedium); err != nil {
		s.logger.WithError(err).Warn("Universe cache write failed")
	}
}
