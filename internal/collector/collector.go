package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"SignalHunter/internal/backtest"
	"SignalHunter/internal/calculator"
	"SignalHunter/internal/metrics"
	"SignalHunter/internal/model"
	"SignalHunter/internal/strategy"
)

// ErrDataUnavailable is returned when the fetcher failed on every attempt.
var ErrDataUnavailable = errors.New("price data unavailable")

// MockFetcher returns controllable fixed data for development and testing.
// The first FailTimes calls fail.
type MockFetcher struct {
	Price     float64
	DailyData []model.OHLCV
	FailTimes int

	mu    sync.Mutex
	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ string, years int) ([]model.OHLCV, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.FailTimes {
		return nil, fmt.Errorf("mock failure %d", m.calls)
	}
	if m.DailyData != nil {
		return m.DailyData, nil
	}
	return generateMockBars(m.Price, years*tradingDaysPerYear), nil
}

// Calls returns how many times FetchDailyBars was invoked.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Analysis is the full derived view of one price snapshot.
type Analysis struct {
	Symbol   string
	Bars     []model.OHLCV
	Rows     []model.IndicatorRow
	Signals  []model.TierSignal
	Backtest *backtest.Result
	AsOf     time.Time // date of the last bar
}

// Latest returns the last row and its signal.
func (a *Analysis) Latest() (model.IndicatorRow, model.TierSignal) {
	n := len(a.Rows)
	return a.Rows[n-1], a.Signals[n-1]
}

// Previous returns the row before the last one, if any.
func (a *Analysis) Previous() (model.IndicatorRow, bool) {
	if len(a.Rows) < 2 {
		return model.IndicatorRow{}, false
	}
	return a.Rows[len(a.Rows)-2], true
}

// CurrentPrice is the last close.
func (a *Analysis) CurrentPrice() float64 {
	return a.Rows[len(a.Rows)-1].Close
}

type cacheKey struct {
	symbol string
	asOf   string
	bars   int
}

const maxCached = 8

// Collector orchestrates data fetching and indicator computation. Computed
// analyses are cached per data snapshot; Invalidate forces a refetch.
type Collector struct {
	Fetcher    Fetcher
	Symbol     string
	Years      int
	Retries    int
	RetryDelay time.Duration
	Horizons   []int

	log *zap.SugaredLogger

	mu      sync.Mutex
	current *Analysis
	cache   map[cacheKey]*Analysis
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string, years int, log *zap.SugaredLogger) *Collector {
	return &Collector{
		Fetcher:    fetcher,
		Symbol:     symbol,
		Years:      years,
		Retries:    3,
		RetryDelay: time.Second,
		Horizons:   backtest.DefaultHorizons,
		log:        log,
		cache:      make(map[cacheKey]*Analysis),
	}
}

// Analyze returns the current analysis, fetching it first if none is held.
func (c *Collector) Analyze(ctx context.Context) (*Analysis, error) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur != nil {
		return cur, nil
	}
	return c.Refresh(ctx)
}

// Invalidate drops the current analysis so the next Analyze refetches.
func (c *Collector) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

// Refresh fetches fresh bars and recomputes unless the snapshot is unchanged.
func (c *Collector) Refresh(ctx context.Context) (*Analysis, error) {
	bars, err := c.fetchWithRetry(ctx)
	if err != nil {
		return nil, err
	}
	bars = normalize(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars returned", ErrDataUnavailable)
	}

	key := cacheKey{
		symbol: c.Symbol,
		asOf:   bars[len(bars)-1].Time.Format("2006-01-02"),
		bars:   len(bars),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.cache[key]; ok {
		c.current = a
		return a, nil
	}

	a := Compute(c.Symbol, bars, c.Horizons)
	if len(c.cache) >= maxCached {
		c.cache = make(map[cacheKey]*Analysis)
	}
	c.cache[key] = a
	c.current = a
	c.log.Infow("analysis computed", "symbol", c.Symbol, "bars", len(bars), "as_of", key.asOf, "signals", len(a.Backtest.Records))
	return a, nil
}

// Compute runs the indicator, classification and backtest pipeline on bars.
func Compute(symbol string, bars []model.OHLCV, horizons []int) *Analysis {
	rows := calculator.Compute(bars)
	signals := strategy.ClassifyAll(rows)
	a := &Analysis{
		Symbol:   symbol,
		Bars:     bars,
		Rows:     rows,
		Signals:  signals,
		Backtest: backtest.Run(rows, signals, horizons),
	}
	if len(bars) > 0 {
		a.AsOf = bars[len(bars)-1].Time
	}
	return a
}

// fetchWithRetry retries with exponential backoff and gives up after Retries+1 attempts.
func (c *Collector) fetchWithRetry(ctx context.Context) ([]model.OHLCV, error) {
	var lastErr error
	for i := 0; i <= c.Retries; i++ {
		bars, err := c.Fetcher.FetchDailyBars(c.Symbol, c.Years)
		if err == nil {
			return bars, nil
		}
		lastErr = err
		metrics.FetchFailures.Inc()
		if i == c.Retries {
			break
		}
		backoff := c.RetryDelay * time.Duration(1<<uint(i))
		c.log.Warnw("fetch daily bars failed, retrying", "attempt", i+1, "max", c.Retries+1, "err", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("%w: %d attempts via %s: %v", ErrDataUnavailable, c.Retries+1, c.Fetcher.Name(), lastErr)
}
