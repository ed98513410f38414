package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"SignalHunter/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.SugaredLogger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.SugaredLogger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so readers (dashboards, ad-hoc queries) don't block the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infow("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signal_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT,
			bar_date    TEXT,
			close       REAL,
			ma120       REAL,
			ma200       REAL,
			pct_b       REAL,
			rsi14       REAL,
			rsi2        REAL,
			sigma20     REAL,
			sigma60     REAL,
			vol_ratio   REAL,
			bullish     INTEGER,
			tier        TEXT,
			blitz       INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_ts ON signal_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS ledger_events (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			op            TEXT,
			trade_id      TEXT,
			tier          TEXT,
			bucket        TEXT,
			amount        REAL,
			hunter_before REAL,
			hunter_after  REAL,
			blitz_before  REAL,
			blitz_after   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_ts ON ledger_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			symbol    TEXT,
			as_of     TEXT,
			records   INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS backtest_stats (
			run_id     INTEGER NOT NULL REFERENCES backtest_runs(id),
			horizon    INTEGER NOT NULL,
			defined    INTEGER,
			wins       INTEGER,
			win_rate   REAL,
			avg_return REAL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSignal(snap *SignalSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, sig := snap.Row, snap.Signal
	_, err := r.db.Exec(`INSERT INTO signal_snapshots
		(timestamp, symbol, bar_date, close, ma120, ma200, pct_b, rsi14, rsi2,
		 sigma20, sigma60, vol_ratio, bullish, tier, blitz)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), snap.Symbol, row.Date.Format("2006-01-02"), row.Close,
		nullable(row.MA120), nullable(row.MA200), nullable(row.PctB),
		nullable(row.RSI14), nullable(row.RSI2),
		nullable(row.Sigma20), nullable(row.Sigma60), nullable(row.VolRatio),
		row.Bullish, sig.Group.String(), sig.Blitz,
	)
	return err
}

func (r *SQLiteRecorder) RecordLedgerEvent(evt *LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO ledger_events
		(timestamp, op, trade_id, tier, bucket, amount, hunter_before, hunter_after, blitz_before, blitz_after)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Op, evt.TradeID, evt.Tier.String(), string(evt.Bucket), evt.Amount,
		evt.HunterBefore, evt.HunterAfter, evt.BlitzBefore, evt.BlitzAfter,
	)
	return err
}

func (r *SQLiteRecorder) RecordBacktest(run *BacktestRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO backtest_runs (timestamp, symbol, as_of, records) VALUES (?,?,?,?)`,
		time.Now().Unix(), run.Symbol, run.AsOf.Format("2006-01-02"), run.Records)
	if err != nil {
		return err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for _, st := range run.Stats {
		if _, err := tx.Exec(`INSERT INTO backtest_stats (run_id, horizon, defined, wins, win_rate, avg_return)
			VALUES (?,?,?,?,?,?)`, runID, st.Horizon, st.Defined, st.Wins, st.WinRate, st.AvgReturn); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}

// nullable maps an undefined value to SQL NULL.
func nullable(o model.Opt) any {
	if !o.OK {
		return nil
	}
	return o.V
}
