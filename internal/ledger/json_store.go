package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"SignalHunter/internal/model"
)

const dateLayout = "2006-01-02"

// walletDoc is the on-disk wallet schema.
type walletDoc struct {
	HunterCash float64 `json:"hunter_cash"`
	BlitzCash  float64 `json:"blitz_cash"`
}

// tradeDoc is the on-disk trade schema.
type tradeDoc struct {
	ID        string            `json:"id"`
	Date      string            `json:"date"`
	Tier      model.Tier        `json:"tier"`
	Price     float64           `json:"price"`
	Qty       int               `json:"qty"`
	Status    model.TradeStatus `json:"status"`
	SellPrice *float64          `json:"sell_price"`
	SellDate  *string           `json:"sell_date"`
}

// journalDoc is written before the two documents are replaced, and removed
// after. A journal found at startup is rolled forward.
type journalDoc struct {
	Wallet walletDoc  `json:"wallet"`
	Trades []tradeDoc `json:"trades"`
}

// JSONStore persists the wallet and trades as two JSON documents. A commit
// that fails after its journal is written is completed by the next load, so
// readers never see one document updated without the other.
type JSONStore struct {
	walletPath  string
	tradesPath  string
	journalPath string

	write func(path string, v any) error
}

// NewJSONStore creates a store and finishes any interrupted commit.
func NewJSONStore(walletPath, tradesPath string) (*JSONStore, error) {
	s := &JSONStore{
		walletPath:  walletPath,
		tradesPath:  tradesPath,
		journalPath: walletPath + ".journal",
		write:       writeJSONAtomic,
	}
	if err := s.recover(); err != nil {
		return nil, fmt.Errorf("recover journal: %w", err)
	}
	return s, nil
}

// LoadWallet reads the wallet, seeding the default when the file is absent.
func (s *JSONStore) LoadWallet() (model.Wallet, error) {
	if err := s.recover(); err != nil {
		return model.Wallet{}, fmt.Errorf("finish pending commit: %w", err)
	}
	data, err := os.ReadFile(s.walletPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			w := model.DefaultWallet()
			if err := s.write(s.walletPath, toWalletDoc(w)); err != nil {
				return model.Wallet{}, err
			}
			return w, nil
		}
		return model.Wallet{}, err
	}
	var doc walletDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Wallet{}, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.walletPath, err)
	}
	return model.Wallet{HunterCash: doc.HunterCash, BlitzCash: doc.BlitzCash}, nil
}

// LoadTrades reads the trade list. Returns an empty list if the file doesn't exist.
func (s *JSONStore) LoadTrades() ([]model.Trade, error) {
	if err := s.recover(); err != nil {
		return nil, fmt.Errorf("finish pending commit: %w", err)
	}
	data, err := os.ReadFile(s.tradesPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Trade{}, nil
		}
		return nil, err
	}
	var docs []tradeDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.tradesPath, err)
	}
	trades := make([]model.Trade, 0, len(docs))
	for _, d := range docs {
		t, err := fromTradeDoc(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.tradesPath, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// Commit journals the new state, then replaces both documents. If replacing
// fails the journal stays behind and the commit is finished on the next load.
func (s *JSONStore) Commit(w model.Wallet, trades []model.Trade) error {
	j := journalDoc{Wallet: toWalletDoc(w), Trades: toTradeDocs(trades)}
	if err := s.write(s.journalPath, j); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	if err := s.apply(j); err != nil {
		return err
	}
	return os.Remove(s.journalPath)
}

func (s *JSONStore) apply(j journalDoc) error {
	if err := s.write(s.walletPath, j.Wallet); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	if err := s.write(s.tradesPath, j.Trades); err != nil {
		return fmt.Errorf("write trades: %w", err)
	}
	return nil
}

func (s *JSONStore) recover() error {
	data, err := os.ReadFile(s.journalPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var j journalDoc
	if err := json.Unmarshal(data, &j); err != nil {
		// The journal itself was torn, so the documents were never touched.
		return os.Remove(s.journalPath)
	}
	if err := s.apply(j); err != nil {
		return err
	}
	return os.Remove(s.journalPath)
}

// writeJSONAtomic writes v to a temp file in the same directory and renames it over path.
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func toWalletDoc(w model.Wallet) walletDoc {
	return walletDoc{HunterCash: w.HunterCash, BlitzCash: w.BlitzCash}
}

func toTradeDocs(trades []model.Trade) []tradeDoc {
	docs := make([]tradeDoc, 0, len(trades))
	for _, t := range trades {
		d := tradeDoc{
			ID:     t.ID,
			Date:   t.Date.Format(dateLayout),
			Tier:   t.Tier,
			Price:  t.Price,
			Qty:    t.Qty,
			Status: t.Status,
		}
		if t.Status == model.StatusSold {
			sp := t.SellPrice
			sd := t.SellDate.Format(dateLayout)
			d.SellPrice, d.SellDate = &sp, &sd
		}
		docs = append(docs, d)
	}
	return docs
}

func fromTradeDoc(d tradeDoc) (model.Trade, error) {
	date, err := time.ParseInLocation(dateLayout, d.Date, time.Local)
	if err != nil {
		return model.Trade{}, fmt.Errorf("trade %s: %w", d.ID, err)
	}
	t := model.Trade{
		ID:     d.ID,
		Date:   date,
		Tier:   d.Tier,
		Price:  d.Price,
		Qty:    d.Qty,
		Status: d.Status,
	}
	if d.SellPrice != nil {
		t.SellPrice = *d.SellPrice
	}
	if d.SellDate != nil && *d.SellDate != "" {
		sd, err := time.ParseInLocation(dateLayout, *d.SellDate, time.Local)
		if err != nil {
			return model.Trade{}, fmt.Errorf("trade %s: %w", d.ID, err)
		}
		t.SellDate = sd
	}
	return t, nil
}
