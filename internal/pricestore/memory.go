package pricestore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/fip/internal/contracts"
)

// MemoryStore is an in-memory PriceStore for tests and offline runs.
type MemoryStore struct {
	mu     sync.RWMutex
	prices map[string][]contracts.PricePoint
	stocks []contracts.StockMetadata
}

// NewMemoryStore creates an empty in-memory price store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prices: make(map[string][]contracts.PricePoint),
	}
}

// AddStock registers a stock with its price series. Series must be
// chronological.
func (s *MemoryStore) AddStock(meta contracts.StockMetadata, series []contracts.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stocks = append(s.stocks, meta)
	s.prices[meta.Symbol] = series
}

// GetPriceHistory returns bars for a symbol within [from, to].
func (s *MemoryStore) GetPriceHistory(_ context.Context, symbol string, from, to time.Time) ([]contracts.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}

	var out []contracts.PricePoint
	for _, p := range series {
		if !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListUniverse returns stocks matching the filter, market cap descending.
func (s *MemoryStore) ListUniverse(_ context.Context, filter contracts.UniverseFilter) ([]contracts.StockMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contracts.StockMetadata, 0)
	for _, m := range s.stocks {
		if filter.Sector != "" && m.Sector != filter.Sector {
			continue
		}
		if filter.Industry != "" && m.Industry != filter.Industry {
			continue
		}
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MarketCap != out[j].MarketCap {
			return out[i].MarketCap > out[j].MarketCap
		}
		return out[i].Symbol < out[j].Symbol
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// LatestTradingDay returns the most recent bar date on or before asOf across
// all stored series.
func (s *MemoryStore) LatestTradingDay(_ context.Context, asOf time.Time) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for _, series := range s.prices {
		for _, p := range series {
			if p.Date.After(asOf) {
				continue
			}
			if !found || p.Date.After(latest) {
				latest = p.Date
				found = true
			}
		}
	}
	if !found {
		return time.Time{}, fmt.Errorf("no trading days on or before %s", asOf.Format("2006-01-02"))
	}
	return latest, nil
}
