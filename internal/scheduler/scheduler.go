package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"SignalHunter/internal/backtest"
	"SignalHunter/internal/collector"
	"SignalHunter/internal/ledger"
	"SignalHunter/internal/metrics"
	"SignalHunter/internal/notifier"
	"SignalHunter/internal/recorder"
)

// Sender delivers messages with retry.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the daily signal job and answers chat commands.
type Scheduler struct {
	Cron       *cron.Cron
	Collector  *collector.Collector
	Ledger     *ledger.Ledger
	Notifier   Sender
	Recorder   recorder.Recorder
	ExportPath string
	Ctx        context.Context

	log *zap.SugaredLogger
	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, led *ledger.Ledger, tn Sender, rec recorder.Recorder, log *zap.SugaredLogger) *Scheduler {
	cl := cronLogger{log}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		Collector:  col,
		Ledger:     led,
		Notifier:   tn,
		Recorder:   rec,
		ExportPath: "data/backtest.csv",
		Ctx:        ctx,
		log:        log,
		now:        time.Now,
	}
}

// cronLogger adapts zap to cron.Logger so job panics caught by cron.Recover
// land in the application log.
type cronLogger struct{ log *zap.SugaredLogger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Errorw(msg, append(keysAndValues, "err", err)...)
}

// RegisterAll registers the daily signal task.
func (s *Scheduler) RegisterAll(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyCheck); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunDailyNow executes the daily task immediately (RUN_ON_START).
func (s *Scheduler) RunDailyNow() {
	s.dailyCheck()
}

// dailyCheck refetches data, records the snapshot and sends the dashboard.
func (s *Scheduler) dailyCheck() {
	s.log.Info("running daily check")
	s.Collector.Invalidate()
	a, err := s.Collector.Analyze(s.Ctx)
	if err != nil {
		s.log.Errorw("daily collect", "err", err)
		s.trySend(fmt.Sprintf("❌ Daily data fetch failed: %v", err))
		return
	}

	row, sig := a.Latest()
	metrics.ObserveSignal(sig)

	if err := s.Recorder.RecordSignal(&recorder.SignalSnapshot{Symbol: a.Symbol, Row: row, Signal: sig}); err != nil {
		s.log.Errorw("record signal", "err", err)
	}
	s.recordBacktest(a)

	w, err := s.Ledger.Wallet()
	if err != nil {
		s.log.Errorw("load wallet", "err", err)
	}
	s.trySend(notifier.FormatDailySignal(a, w))
}

func (s *Scheduler) recordBacktest(a *collector.Analysis) {
	run := &recorder.BacktestRun{Symbol: a.Symbol, AsOf: a.AsOf, Records: len(a.Backtest.Records)}
	for _, st := range a.Backtest.Overall {
		run.Stats = append(run.Stats, recorder.HorizonStat{
			Horizon: st.Horizon, Defined: st.Defined, Wins: st.Wins,
			WinRate: st.WinRate, AvgReturn: st.AvgReturn,
		})
	}
	if err := s.Recorder.RecordBacktest(run); err != nil {
		s.log.Errorw("record backtest", "err", err)
	}
}

func (s *Scheduler) exportBacktest() (string, error) {
	a, err := s.Collector.Analyze(s.Ctx)
	if err != nil {
		return "", err
	}
	if err := backtest.ExportCSV(s.ExportPath, a.Backtest); err != nil {
		return "", err
	}
	s.log.Infow("backtest exported", "path", s.ExportPath, "records", len(a.Backtest.Records))
	return s.ExportPath, nil
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Errorw("send notification", "err", err)
	}
}
