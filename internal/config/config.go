package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Symbol string `yaml:"symbol"`
		Years  int    `yaml:"years"`
		// BaseURL selects the REST fetcher; empty means Yahoo Finance.
		BaseURL    string        `yaml:"base_url"`
		APIKey     string        `yaml:"api_key"`
		Retries    int           `yaml:"retries"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"data_source"`
	Schedule struct {
		DailyCron  string `yaml:"daily_cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Ledger struct {
		Backend    string `yaml:"backend"` // json or sqlite
		WalletFile string `yaml:"wallet_file"`
		TradesFile string `yaml:"trades_file"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"ledger"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Backtest struct {
		Horizons   []int  `yaml:"horizons"`
		ExportPath string `yaml:"export_path"`
	} `yaml:"backtest"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then .env files (default ".env"), then
// applies environment variable overrides and defaults. Missing files are skipped.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &cfg.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &cfg.Telegram.ChatID,
		"DATA_SYMBOL":        &cfg.DataSource.Symbol,
		"DATA_BASE_URL":      &cfg.DataSource.BaseURL,
		"DATA_API_KEY":       &cfg.DataSource.APIKey,
		"CRON_DAILY":         &cfg.Schedule.DailyCron,
		"LEDGER_BACKEND":     &cfg.Ledger.Backend,
		"SQLITE_PATH":        &cfg.Database.SQLitePath,
		"METRICS_ADDR":       &cfg.Metrics.Addr,
		"LOG_LEVEL":          &cfg.Log.Level,
		"HTTPS_PROXY":        &cfg.Proxy,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("DATA_YEARS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DATA_YEARS: %w", err)
		}
		cfg.DataSource.Years = n
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RUN_ON_START: %w", err)
		}
		cfg.Schedule.RunOnStart = b
	}
	if v := os.Getenv("BACKTEST_HORIZONS"); v != "" {
		var hs []int
		for _, part := range strings.Split(v, ",") {
			h, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return fmt.Errorf("BACKTEST_HORIZONS: %w", err)
			}
			hs = append(hs, h)
		}
		cfg.Backtest.Horizons = hs
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataSource.Symbol == "" {
		cfg.DataSource.Symbol = "SOXL"
	}
	if cfg.DataSource.Years == 0 {
		cfg.DataSource.Years = 3
	}
	if cfg.DataSource.Retries == 0 {
		cfg.DataSource.Retries = 3
	}
	if cfg.DataSource.RetryDelay == 0 {
		cfg.DataSource.RetryDelay = time.Second
	}
	// 06:30 Tue-Sat, after the US session closes.
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 30 6 * * 2-6"
	}
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = "json"
	}
	if cfg.Ledger.WalletFile == "" {
		cfg.Ledger.WalletFile = "data/my_wallet.json"
	}
	if cfg.Ledger.TradesFile == "" {
		cfg.Ledger.TradesFile = "data/trades.json"
	}
	if cfg.Ledger.SQLitePath == "" {
		cfg.Ledger.SQLitePath = "data/ledger.db"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/signal_hunter.db"
	}
	if len(cfg.Backtest.Horizons) == 0 {
		cfg.Backtest.Horizons = []int{5, 15}
	}
	if cfg.Backtest.ExportPath == "" {
		cfg.Backtest.ExportPath = "data/backtest.csv"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if c.DataSource.Years < 1 {
		return fmt.Errorf("data_source.years must be at least 1")
	}
	if c.DataSource.Retries < 0 {
		return fmt.Errorf("data_source.retries must not be negative")
	}
	switch c.Ledger.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("ledger.backend must be json or sqlite, got %q", c.Ledger.Backend)
	}
	for _, h := range c.Backtest.Horizons {
		if h <= 0 {
			return fmt.Errorf("backtest.horizons must be positive, got %d", h)
		}
	}
	return nil
}
