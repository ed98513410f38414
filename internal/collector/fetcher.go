package collector

import "SignalHunter/internal/model"

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	// FetchDailyBars returns daily bars covering the last years years.
	FetchDailyBars(symbol string, years int) ([]model.OHLCV, error)
	Name() string
}
