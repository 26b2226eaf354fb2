package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/strategy"
	"github.com/wonny/fip/pkg/logger"
)

const (
	defaultRankUniverse = 200
	defaultRankTop      = 20
)

// RankHandler runs a single strategy over a market-cap universe: the one-shot
// entry point for "rank the market with strategy X" without a pipeline config.
type RankHandler struct {
	registry *strategy.Registry
	store    contracts.PriceStore
	logger   *logger.Logger
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(registry *strategy.Registry, store contracts.PriceStore, log *logger.Logger) *RankHandler {
	return &RankHandler{
		registry: registry,
		store:    store,
		logger:   log,
	}
}

// SectorAggregate is the per-sector composite summary.
type SectorAggregate struct {
	Sector       string  `json:"sector"`
	Count        int     `json:"count"`
	AvgComposite float64 `json:"avg_composite"`
	TopSymbol    string  `json:"top_symbol"`
}

// GetRank seeds the largest `universe` stocks by market cap (optionally
// filtered by sector/industry), executes one strategy, and returns the top-N
// ranked list.
// GET /api/rank?strategy=momentum&universe=200&top=20&sector=...&date=YYYY-MM-DD&aggregate=sector
func (h *RankHandler) GetRank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	strategyID := q.Get("strategy")
	if strategyID == "" {
		strategyID = strategy.MomentumID
	}
	strat, err := h.registry.Get(strategyID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Unknown strategy "+strategyID)
		return
	}

	universe, ok := queryInt(w, q.Get("universe"), defaultRankUniverse, "universe")
	if !ok {
		return
	}
	top, ok := queryInt(w, q.Get("top"), defaultRankTop, "top")
	if !ok {
		return
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := q.Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	input, err := h.store.ListUniverse(ctx, contracts.UniverseFilter{
		Sector:   q.Get("sector"),
		Industry: q.Get("industry"),
		Limit:    universe,
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to list universe")
		respondError(w, http.StatusInternalServerError, "Universe error")
		return
	}
	if len(input) == 0 {
		respondError(w, http.StatusNotFound, "No stocks match the universe filter")
		return
	}

	res, err := strat.Execute(ctx, strategy.Request{
		Input:       input,
		OutputCount: top,
		AsOf:        asOf,
	})
	if err != nil {
		h.logger.WithError(err).WithField("strategy", strategyID).Error("Ranking failed")
		respondError(w, http.StatusInternalServerError, "Ranking error")
		return
	}

	payload := map[string]interface{}{
		"strategy": strategyID,
		"date":     asOf.Format("2006-01-02"),
		"count":    len(res.Stocks),
		"stocks":   res.Stocks,
		"metrics":  res.Metrics,
	}
	if q.Get("aggregate") == "sector" {
		payload["sectors"] = aggregateBySector(res.Stocks)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    payload,
	})
}

// queryInt parses a positive integer query parameter, falling back to def
// when absent.
func queryInt(w http.ResponseWriter, raw string, def int, name string) (int, bool) {
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		respondError(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return v, true
}

// aggregateBySector groups the ranked stocks by sector, best average first.
func aggregateBySector(stocks []strategy.StockResult) []SectorAggregate {
	type bucket struct {
		count     int
		sum       float64
		topSymbol string
		topScore  float64
	}
	buckets := make(map[string]*bucket)
	for _, r := range stocks {
		sector := r.Stock.Sector
		if sector == "" {
			sector = "Unknown"
		}
		b, ok := buckets[sector]
		if !ok {
			b = &bucket{}
			buckets[sector] = b
		}
		b.count++
		b.sum += r.Score
		if r.Score > b.topScore || b.topSymbol == "" {
			b.topScore = r.Score
			b.topSymbol = r.Stock.Symbol
		}
	}

	aggs := make([]SectorAggregate, 0, len(buckets))
	for sector, b := range buckets {
		aggs = append(aggs, SectorAggregate{
			Sector:       sector,
			Count:        b.count,
			AvgComposite: b.sum / float64(b.count),
			TopSymbol:    b.topSymbol,
		})
	}
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].AvgComposite != aggs[j].AvgComposite {
			return aggs[i].AvgComposite > aggs[j].AvgComposite
		}
		return aggs[i].Sector < aggs[j].Sector
	})
	return aggs
}
