package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"SignalHunter/internal/model"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local)

func newTestLedger(t *testing.T, store Store, opts ...Option) *Ledger {
	t.Helper()
	n := 0
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("t%d", n) }),
	}
	return New(store, zap.NewNop().Sugar(), append(base, opts...)...)
}

func newJSONStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewJSONStore(filepath.Join(dir, "my_wallet.json"), filepath.Join(dir, "trades.json"))
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	return s, dir
}

func TestOpenClose_HunterRoundTrip(t *testing.T) {
	store, _ := newJSONStore(t)
	l := newTestLedger(t, store)

	entry := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)
	tr, err := l.Open(entry, model.TierDiamond, 10, 50)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	w, _ := l.Wallet()
	if w.HunterCash != 200 || w.BlitzCash != 300 {
		t.Fatalf("after open: expected 200/300, got %+v", w)
	}

	closed, err := l.Close(tr.ID, 12)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != model.StatusSold || closed.SellPrice != 12 || !closed.SellDate.Equal(fixedNow) {
		t.Errorf("unexpected closed trade: %+v", closed)
	}
	w, _ = l.Wallet()
	if w.HunterCash != 800 || w.BlitzCash != 300 {
		t.Fatalf("after close: expected 800/300, got %+v", w)
	}
}

func TestOpen_BlitzUsesBlitzBucket(t *testing.T) {
	store, _ := newJSONStore(t)
	l := newTestLedger(t, store)

	tr, err := l.Open(fixedNow, model.TierBlitz, 25.5, 4)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	w, _ := l.Wallet()
	if w.BlitzCash != 198 || w.HunterCash != 700 {
		t.Fatalf("expected blitz 198 and hunter untouched, got %+v", w)
	}
	if _, err := l.Close(tr.ID, 30); err != nil {
		t.Fatalf("close: %v", err)
	}
	w, _ = l.Wallet()
	if w.BlitzCash != 318 || w.HunterCash != 700 {
		t.Fatalf("expected blitz 318 after close, got %+v", w)
	}
}

func TestOpen_InsufficientFundsLeavesStoreUnchanged(t *testing.T) {
	store, dir := newJSONStore(t)
	l := newTestLedger(t, store)
	if _, err := l.Open(fixedNow, model.TierGold, 10, 10); err != nil {
		t.Fatalf("seed open: %v", err)
	}

	walletPath := filepath.Join(dir, "my_wallet.json")
	tradesPath := filepath.Join(dir, "trades.json")
	walletBefore, _ := os.ReadFile(walletPath)
	tradesBefore, _ := os.ReadFile(tradesPath)

	_, err := l.Open(fixedNow, model.TierGold, 100, 7)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	walletAfter, _ := os.ReadFile(walletPath)
	tradesAfter, _ := os.ReadFile(tradesPath)
	if !bytes.Equal(walletBefore, walletAfter) || !bytes.Equal(tradesBefore, tradesAfter) {
		t.Fatal("rejected open must not modify persisted state")
	}
}

func TestOpen_InvalidOrder(t *testing.T) {
	store, _ := newJSONStore(t)
	l := newTestLedger(t, store)
	for _, c := range []struct {
		price float64
		qty   int
	}{{0, 1}, {-1, 1}, {10, 0}, {10, -3}, {math.NaN(), 1}, {math.Inf(1), 1}, {math.Inf(-1), 1}} {
		if _, err := l.Open(fixedNow, model.TierSilver, c.price, c.qty); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("price %v qty %d: expected ErrInvalidOrder, got %v", c.price, c.qty, err)
		}
	}
}

func TestClose_Errors(t *testing.T) {
	store, _ := newJSONStore(t)
	l := newTestLedger(t, store)

	if _, err := l.Close("missing", 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	tr, _ := l.Open(fixedNow, model.TierSilver, 10, 1)
	if _, err := l.Close(tr.ID, 11); err != nil {
		t.Fatalf("close: %v", err)
	}
	w1, _ := l.Wallet()
	if _, err := l.Close(tr.ID, 11); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("expected ErrAlreadyClosed, got %v", err)
	}
	w2, _ := l.Wallet()
	if w1 != w2 {
		t.Errorf("failed close changed the wallet: %+v -> %+v", w1, w2)
	}
}

func TestDelete_NoCashEffect(t *testing.T) {
	store, _ := newJSONStore(t)
	l := newTestLedger(t, store)

	a, _ := l.Open(fixedNow, model.TierGold, 10, 10)
	b, _ := l.Open(fixedNow, model.TierSilver, 10, 5)
	before, _ := l.Wallet()

	if err := l.Delete(a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	after, _ := l.Wallet()
	if before != after {
		t.Errorf("delete changed cash: %+v -> %+v", before, after)
	}
	trades, _ := l.Trades()
	if len(trades) != 1 || trades[0].ID != b.ID {
		t.Errorf("unexpected trades after delete: %+v", trades)
	}
	if err := l.Delete(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDepositOrSet(t *testing.T) {
	store, _ := newJSONStore(t)
	l := newTestLedger(t, store)

	w, err := l.DepositOrSet(model.BucketHunter, 100, ModeDeposit)
	if err != nil || w.HunterCash != 800 {
		t.Fatalf("deposit: %+v, %v", w, err)
	}
	w, err = l.DepositOrSet(model.BucketBlitz, -42, ModeSet)
	if err != nil || w.BlitzCash != -42 || w.HunterCash != 800 {
		t.Fatalf("set: %+v, %v", w, err)
	}
	if _, err := l.Open(fixedNow, model.TierBlitz, 1, 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("negative balance must reject buys, got %v", err)
	}
	if _, err := l.DepositOrSet(model.BucketHunter, 1, CashMode("withdraw")); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("expected ErrInvalidOrder for unknown mode, got %v", err)
	}
	if _, err := l.DepositOrSet(model.Bucket("Other"), 1, ModeDeposit); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("expected ErrInvalidOrder for unknown bucket, got %v", err)
	}
}

func TestNonFiniteAmountsRejected(t *testing.T) {
	store, dir := newJSONStore(t)
	l := newTestLedger(t, store)
	tr, err := l.Open(fixedNow, model.TierGold, 10, 2)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	walletBefore, _ := os.ReadFile(filepath.Join(dir, "my_wallet.json"))

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := l.Close(tr.ID, v); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("close at %v: expected ErrInvalidOrder, got %v", v, err)
		}
		for _, mode := range []CashMode{ModeDeposit, ModeSet} {
			if _, err := l.DepositOrSet(model.BucketHunter, v, mode); !errors.Is(err, ErrInvalidOrder) {
				t.Errorf("%s %v: expected ErrInvalidOrder, got %v", mode, v, err)
			}
		}
	}

	walletAfter, _ := os.ReadFile(filepath.Join(dir, "my_wallet.json"))
	if !bytes.Equal(walletBefore, walletAfter) {
		t.Errorf("wallet changed by rejected operations:\n%s\n%s", walletBefore, walletAfter)
	}
	if got, _ := l.Trade(tr.ID); got.Status != model.StatusHolding {
		t.Errorf("trade should still be holding, got %s", got.Status)
	}
}

func TestCorruptState_FallsBackToDefaults(t *testing.T) {
	store, dir := newJSONStore(t)
	if err := os.WriteFile(filepath.Join(dir, "my_wallet.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "trades.json"), []byte("[{"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := newTestLedger(t, store)

	w, err := l.Wallet()
	if err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
	if w != model.DefaultWallet() {
		t.Errorf("expected default wallet, got %+v", w)
	}
	if _, err := l.Open(fixedNow, model.TierGold, 10, 1); err != nil {
		t.Fatalf("ledger should stay usable: %v", err)
	}
	w, _ = l.Wallet()
	if w.HunterCash != 690 {
		t.Errorf("expected 690, got %+v", w)
	}
}

func TestJSONStore_Schema(t *testing.T) {
	store, dir := newJSONStore(t)
	l := newTestLedger(t, store)
	a, _ := l.Open(time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), model.TierGold, 10, 2)
	l.Open(time.Date(2024, 3, 2, 0, 0, 0, 0, time.Local), model.TierBlitz, 5, 1)
	l.Close(a.ID, 11)

	var wallet map[string]float64
	data, _ := os.ReadFile(filepath.Join(dir, "my_wallet.json"))
	if err := json.Unmarshal(data, &wallet); err != nil {
		t.Fatalf("decode wallet: %v", err)
	}
	if wallet["hunter_cash"] != 702 || wallet["blitz_cash"] != 295 {
		t.Errorf("unexpected wallet document: %v", wallet)
	}

	var docs []map[string]any
	data, _ = os.ReadFile(filepath.Join(dir, "trades.json"))
	if err := json.Unmarshal(data, &docs); err != nil {
		t.Fatalf("decode trades: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(docs))
	}
	sold := docs[0]
	for _, k := range []string{"id", "date", "tier", "price", "qty", "status", "sell_price", "sell_date"} {
		if _, ok := sold[k]; !ok {
			t.Errorf("trade document missing %q", k)
		}
	}
	if sold["date"] != "2024-03-01" || sold["tier"] != "Gold" || sold["status"] != "sold" || sold["sell_date"] != "2024-03-15" {
		t.Errorf("unexpected sold trade document: %v", sold)
	}
	if docs[1]["sell_price"] != nil {
		t.Errorf("holding trade should have null sell_price, got %v", docs[1]["sell_price"])
	}
}

func TestJSONStore_RollsForwardJournal(t *testing.T) {
	dir := t.TempDir()
	walletPath := filepath.Join(dir, "my_wallet.json")
	tradesPath := filepath.Join(dir, "trades.json")
	journal := `{"wallet":{"hunter_cash":123,"blitz_cash":45},"trades":[{"id":"x","date":"2024-01-02","tier":"Silver","price":9,"qty":3,"status":"holding","sell_price":null,"sell_date":null}]}`
	if err := os.WriteFile(walletPath+".journal", []byte(journal), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewJSONStore(walletPath, tradesPath)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	if _, err := os.Stat(walletPath + ".journal"); !os.IsNotExist(err) {
		t.Error("journal should be removed after recovery")
	}
	w, _ := s.LoadWallet()
	trades, _ := s.LoadTrades()
	if w.HunterCash != 123 || w.BlitzCash != 45 || len(trades) != 1 || trades[0].Tier != model.TierSilver {
		t.Errorf("journal not applied: %+v %+v", w, trades)
	}
}

func TestJSONStore_FailedCommitNeverVisibleHalfApplied(t *testing.T) {
	store, dir := newJSONStore(t)
	l := newTestLedger(t, store)
	tradesPath := filepath.Join(dir, "trades.json")

	failTrades := true
	store.write = func(path string, v any) error {
		if failTrades && path == tradesPath {
			return errors.New("disk full")
		}
		return writeJSONAtomic(path, v)
	}

	if _, err := l.Open(fixedNow, model.TierGold, 10, 20); err == nil {
		t.Fatal("expected commit error")
	}
	// The wallet document was replaced but trades were not: reads must not
	// see the debited wallet on its own.
	if w, err := l.Wallet(); err == nil {
		t.Fatalf("expected load error while commit is pending, got %+v", w)
	}

	failTrades = false
	w, err := l.Wallet()
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	trades, err := l.Trades()
	if err != nil {
		t.Fatalf("trades: %v", err)
	}
	if w.HunterCash != 500 || len(trades) != 1 || trades[0].Cost() != 200 {
		t.Errorf("commit not completed consistently: %+v %+v", w, trades)
	}
	if _, err := os.Stat(filepath.Join(dir, "my_wallet.json.journal")); !os.IsNotExist(err) {
		t.Error("journal should be removed once the commit is finished")
	}
}

func TestSQLiteStore_Lifecycle(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	l := newTestLedger(t, store)

	tr, err := l.Open(time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), model.TierDiamond, 10, 50)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := l.Close(tr.ID, 12); err != nil {
		t.Fatalf("close: %v", err)
	}
	w, _ := l.Wallet()
	if w.HunterCash != 800 || w.BlitzCash != 300 {
		t.Errorf("expected 800/300, got %+v", w)
	}
	trades, _ := l.Trades()
	if len(trades) != 1 || trades[0].Status != model.StatusSold || trades[0].SellPrice != 12 || trades[0].Tier != model.TierDiamond {
		t.Errorf("unexpected trades: %+v", trades)
	}
}

func TestLedger_ConcurrentOpensAreSerialized(t *testing.T) {
	store, _ := newJSONStore(t)
	var mu sync.Mutex
	n := 0
	l := New(store, zap.NewNop().Sugar(), WithIDGenerator(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("c%d", n)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Open(fixedNow, model.TierSilver, 10, 1); err != nil {
				t.Errorf("open: %v", err)
			}
		}()
	}
	wg.Wait()

	w, _ := l.Wallet()
	trades, _ := l.Trades()
	if w.HunterCash != 500 || len(trades) != 20 {
		t.Errorf("lost update: balance %v, %d trades", w.HunterCash, len(trades))
	}
}

func TestLedger_ObserverEvents(t *testing.T) {
	store, _ := newJSONStore(t)
	var events []Event
	l := newTestLedger(t, store, WithObserver(func(e Event) { events = append(events, e) }))

	tr, _ := l.Open(fixedNow, model.TierGold, 10, 3)
	l.Open(fixedNow, model.TierGold, 1000, 3) // rejected, no event
	l.Close(tr.ID, 20)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Op != "open" || events[0].Amount != 30 || events[0].After.HunterCash != 670 {
		t.Errorf("unexpected open event: %+v", events[0])
	}
	if events[1].Op != "close" || events[1].Amount != 60 || events[1].After.HunterCash != 730 {
		t.Errorf("unexpected close event: %+v", events[1])
	}
}
