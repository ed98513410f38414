package ledger

import (
	"database/sql"
	"errors"
	"fmt"

	"SignalHunter/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the wallet and trades in one SQLite database so that a
// commit is a single transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wallet (
			id          INTEGER PRIMARY KEY CHECK (id = 1),
			hunter_cash REAL NOT NULL,
			blitz_cash  REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			date       TEXT NOT NULL,
			tier       TEXT NOT NULL,
			price      REAL NOT NULL,
			qty        INTEGER NOT NULL,
			status     TEXT NOT NULL,
			sell_price REAL,
			sell_date  TEXT
		)`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("exec %q: %w", st[:30], err)
		}
	}
	return nil
}

// LoadWallet reads the wallet row, seeding the default when absent.
func (s *SQLiteStore) LoadWallet() (model.Wallet, error) {
	var w model.Wallet
	err := s.db.QueryRow(`SELECT hunter_cash, blitz_cash FROM wallet WHERE id = 1`).Scan(&w.HunterCash, &w.BlitzCash)
	if errors.Is(err, sql.ErrNoRows) {
		w = model.DefaultWallet()
		if _, err := s.db.Exec(`INSERT INTO wallet (id, hunter_cash, blitz_cash) VALUES (1, ?, ?)`, w.HunterCash, w.BlitzCash); err != nil {
			return model.Wallet{}, fmt.Errorf("seed wallet: %w", err)
		}
		return w, nil
	}
	if err != nil {
		return model.Wallet{}, err
	}
	return w, nil
}

// LoadTrades returns trades in insertion order.
func (s *SQLiteStore) LoadTrades() ([]model.Trade, error) {
	rows, err := s.db.Query(`SELECT id, date, tier, price, qty, status, sell_price, sell_date FROM trades ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trades := []model.Trade{}
	for rows.Next() {
		var (
			d         tradeDoc
			tier      string
			sellPrice sql.NullFloat64
			sellDate  sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Date, &tier, &d.Price, &d.Qty, &d.Status, &sellPrice, &sellDate); err != nil {
			return nil, err
		}
		if err := d.Tier.UnmarshalText([]byte(tier)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		if sellPrice.Valid {
			d.SellPrice = &sellPrice.Float64
		}
		if sellDate.Valid {
			d.SellDate = &sellDate.String
		}
		t, err := fromTradeDoc(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Commit replaces the wallet and the trade table inside one transaction.
func (s *SQLiteStore) Commit(w model.Wallet, trades []model.Trade) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO wallet (id, hunter_cash, blitz_cash) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET hunter_cash = excluded.hunter_cash, blitz_cash = excluded.blitz_cash`,
		w.HunterCash, w.BlitzCash); err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM trades`); err != nil {
		return fmt.Errorf("clear trades: %w", err)
	}
	for _, t := range trades {
		var sellPrice, sellDate any
		if t.Status == model.StatusSold {
			sellPrice = t.SellPrice
			sellDate = t.SellDate.Format(dateLayout)
		}
		if _, err := tx.Exec(`INSERT INTO trades (id, date, tier, price, qty, status, sell_price, sell_date)
			VALUES (?,?,?,?,?,?,?,?)`,
			t.ID, t.Date.Format(dateLayout), t.Tier.String(), t.Price, t.Qty, string(t.Status), sellPrice, sellDate); err != nil {
			return fmt.Errorf("insert trade %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

