package recorder

import (
	"time"

	"SignalHunter/internal/model"
)

// SignalSnapshot holds the indicators and tiers of one daily check.
type SignalSnapshot struct {
	Symbol string
	Row    model.IndicatorRow
	Signal model.TierSignal
}

// LedgerEvent records a committed wallet or trade change.
type LedgerEvent struct {
	Op           string // "open", "close", "delete", "deposit", "set"
	TradeID      string
	Tier         model.Tier
	Bucket       model.Bucket
	Amount       float64
	HunterBefore float64
	HunterAfter  float64
	BlitzBefore  float64
	BlitzAfter   float64
}

// HorizonStat is the win statistics of one forward horizon.
type HorizonStat struct {
	Horizon   int
	Defined   int
	Wins      int
	WinRate   float64
	AvgReturn float64
}

// BacktestRun summarizes one backtest over a data snapshot.
type BacktestRun struct {
	Symbol  string
	AsOf    time.Time
	Records int
	Stats   []HorizonStat
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordSignal(snap *SignalSnapshot) error
	RecordLedgerEvent(evt *LedgerEvent) error
	RecordBacktest(run *BacktestRun) error
	Close() error
}
