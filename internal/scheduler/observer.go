package scheduler

import (
	"go.uber.org/zap"

	"SignalHunter/internal/ledger"
	"SignalHunter/internal/metrics"
	"SignalHunter/internal/recorder"
)

// LedgerObserver returns a ledger observer that updates bucket gauges and
// appends every committed mutation to the history recorder.
func LedgerObserver(rec recorder.Recorder, log *zap.SugaredLogger) func(ledger.Event) {
	return func(e ledger.Event) {
		metrics.ObserveWallet(e.After)
		err := rec.RecordLedgerEvent(&recorder.LedgerEvent{
			Op:           e.Op,
			TradeID:      e.TradeID,
			Tier:         e.Tier,
			Bucket:       e.Bucket,
			Amount:       e.Amount,
			HunterBefore: e.Before.HunterCash,
			HunterAfter:  e.After.HunterCash,
			BlitzBefore:  e.Before.BlitzCash,
			BlitzAfter:   e.After.BlitzCash,
		})
		if err != nil {
			log.Errorw("record ledger event", "op", e.Op, "err", err)
		}
	}
}
