package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"SignalHunter/internal/collector"
	"SignalHunter/internal/config"
	"SignalHunter/internal/ledger"
	"SignalHunter/internal/logger"
	"SignalHunter/internal/metrics"
	"SignalHunter/internal/notifier"
	"SignalHunter/internal/recorder"
	"SignalHunter/internal/scheduler"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("SignalHunter starting...")

	if err := cfg.Validate(); err != nil {
		log.Fatalw("config validation", "err", err)
	}

	// Init fetcher
	var fetcher collector.Fetcher
	if cfg.DataSource.BaseURL != "" {
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	} else {
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Infow("data source", "fetcher", fetcher.Name(), "symbol", cfg.DataSource.Symbol, "years", cfg.DataSource.Years)

	// Init collector
	col := collector.NewCollector(fetcher, cfg.DataSource.Symbol, cfg.DataSource.Years, log)
	col.Retries = cfg.DataSource.Retries
	col.RetryDelay = cfg.DataSource.RetryDelay
	col.Horizons = cfg.Backtest.Horizons

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := openRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warnw("init sqlite recorder failed, using noop", "err", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init ledger
	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalw("init ledger store", "backend", cfg.Ledger.Backend, "err", err)
	}
	defer closeStore()
	led := ledger.New(store, log, ledger.WithObserver(scheduler.LedgerObserver(rec, log)))
	if w, err := led.Wallet(); err == nil {
		metrics.ObserveWallet(w)
		log.Infow("wallet loaded", "hunter", w.HunterCash, "blitz", w.BlitzCash)
	}

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics endpoint
	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("metrics server", "err", err)
			}
		}()
		log.Infow("metrics endpoint started", "addr", cfg.Metrics.Addr)
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, col, led, tn, rec, log)
	sched.ExportPath = cfg.Backtest.ExportPath
	if err := sched.RegisterAll(cfg.Schedule.DailyCron); err != nil {
		log.Fatalw("register cron tasks", "err", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info("telegram polling started")

	// Optional: run immediately on start
	if cfg.Schedule.RunOnStart {
		log.Info("run_on_start enabled, executing daily task now")
		go sched.RunDailyNow()
	}

	log.Info("SignalHunter is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("metrics server shutdown", "err", err)
		}
	}
	log.Info("SignalHunter stopped")
}

func openRecorder(path string, log *zap.SugaredLogger) (*recorder.SQLiteRecorder, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return recorder.NewSQLiteRecorder(path, log)
}

// openStore builds the configured ledger backend and its close func.
func openStore(cfg *config.Config) (ledger.Store, func(), error) {
	switch cfg.Ledger.Backend {
	case "sqlite":
		if err := ensureDir(cfg.Ledger.SQLitePath); err != nil {
			return nil, nil, err
		}
		s, err := ledger.NewSQLiteStore(cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		for _, p := range []string{cfg.Ledger.WalletFile, cfg.Ledger.TradesFile} {
			if err := ensureDir(p); err != nil {
				return nil, nil, err
			}
		}
		s, err := ledger.NewJSONStore(cfg.Ledger.WalletFile, cfg.Ledger.TradesFile)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

func ensureDir(file string) error {
	return os.MkdirAll(filepath.Dir(file), 0o755)
}
