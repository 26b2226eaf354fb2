package contracts

import "time"

// PricePoint is one daily OHLCV bar.
// Series are chronological and unique per (symbol, date); gaps from missing
// trading days are allowed and must be tolerated by consumers.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// StockMetadata describes one listed stock.
// Treated as immutable for the duration of a pipeline run; MarketCap is the
// default ranking key when seeding a universe.
type StockMetadata struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Sector    string  `json:"sector"`
	Industry  string  `json:"industry"`
	MarketCap float64 `json:"market_cap"`
}

// UniverseFilter narrows ListUniverse results.
// Zero values mean "no filter".
type UniverseFilter struct {
	Sector   string
	Industry string
	Limit    int
}
