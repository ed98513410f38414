package ledger

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"SignalHunter/internal/model"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("trade not found")
	ErrAlreadyClosed     = errors.New("trade already closed")
	ErrInvalidOrder      = errors.New("invalid order")
)

// CashMode selects how DepositOrSet applies the amount.
type CashMode string

const (
	ModeDeposit CashMode = "deposit"
	ModeSet     CashMode = "set"
)

// Event describes a committed ledger mutation, for history and metrics.
type Event struct {
	Op      string // "open", "close", "delete", "deposit", "set"
	TradeID string
	Tier    model.Tier
	Bucket  model.Bucket
	Amount  float64
	Before  model.Wallet
	After   model.Wallet
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for exit dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides trade id generation.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// WithObserver registers a callback invoked after every successful commit.
func WithObserver(fn func(Event)) Option {
	return func(l *Ledger) { l.observers = append(l.observers, fn) }
}

// Ledger owns the wallet and trade records. Every mutation is a single
// load-modify-commit transaction serialized by mu.
type Ledger struct {
	mu        sync.Mutex
	store     Store
	log       *zap.SugaredLogger
	now       func() time.Time
	newID     func() string
	observers []func(Event)
}

// New creates a Ledger over store.
func New(store Store, log *zap.SugaredLogger, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Wallet returns the current balances.
func (l *Ledger) Wallet() (model.Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, _, err := l.load()
	return w, err
}

// Trades returns a copy of all trade records.
func (l *Ledger) Trades() ([]model.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, trades, err := l.load()
	return trades, err
}

// Trade returns the trade with the given id.
func (l *Ledger) Trade(id string) (model.Trade, error) {
	trades, err := l.Trades()
	if err != nil {
		return model.Trade{}, err
	}
	if i := indexOf(trades, id); i >= 0 {
		return trades[i], nil
	}
	return model.Trade{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Open buys qty shares at price on the given tier, debiting the tier's bucket.
// On any error no state is changed.
func (l *Ledger) Open(date time.Time, tier model.Tier, price float64, qty int) (model.Trade, error) {
	if qty <= 0 || !positive(price) {
		return model.Trade{}, fmt.Errorf("%w: price %.4f qty %d", ErrInvalidOrder, price, qty)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, trades, err := l.load()
	if err != nil {
		return model.Trade{}, err
	}

	bucket := model.BucketFor(tier)
	cost := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty)))
	balance := decimal.NewFromFloat(w.Balance(bucket))
	if balance.LessThan(cost) {
		return model.Trade{}, fmt.Errorf("%w: %s balance %s < cost %s", ErrInsufficientFunds, bucket, balance.StringFixed(2), cost.StringFixed(2))
	}

	t := model.Trade{
		ID:     l.newID(),
		Date:   date,
		Tier:   tier,
		Price:  price,
		Qty:    qty,
		Status: model.StatusHolding,
	}
	after := w.WithBalance(bucket, balance.Sub(cost).InexactFloat64())
	if err := l.store.Commit(after, append(trades, t)); err != nil {
		return model.Trade{}, fmt.Errorf("commit open: %w", err)
	}

	l.log.Infow("trade opened", "id", t.ID, "tier", tier, "price", price, "qty", qty, "bucket", bucket)
	l.emit(Event{Op: "open", TradeID: t.ID, Tier: tier, Bucket: bucket, Amount: cost.InexactFloat64(), Before: w, After: after})
	return t, nil
}

// Close sells a holding trade at exitPrice and credits its bucket. The status
// change and the cash credit are committed together.
func (l *Ledger) Close(id string, exitPrice float64) (model.Trade, error) {
	if !positive(exitPrice) {
		return model.Trade{}, fmt.Errorf("%w: exit price %.4f", ErrInvalidOrder, exitPrice)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, trades, err := l.load()
	if err != nil {
		return model.Trade{}, err
	}
	i := indexOf(trades, id)
	if i < 0 {
		return model.Trade{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t := trades[i]
	if t.Status != model.StatusHolding {
		return model.Trade{}, fmt.Errorf("%w: %s", ErrAlreadyClosed, id)
	}

	bucket := model.BucketFor(t.Tier)
	proceeds := decimal.NewFromFloat(exitPrice).Mul(decimal.NewFromInt(int64(t.Qty)))
	after := w.WithBalance(bucket, decimal.NewFromFloat(w.Balance(bucket)).Add(proceeds).InexactFloat64())

	t.Status = model.StatusSold
	t.SellPrice = exitPrice
	t.SellDate = l.now()
	trades[i] = t

	if err := l.store.Commit(after, trades); err != nil {
		return model.Trade{}, fmt.Errorf("commit close: %w", err)
	}

	l.log.Infow("trade closed", "id", id, "tier", t.Tier, "exit_price", exitPrice, "bucket", bucket)
	l.emit(Event{Op: "close", TradeID: id, Tier: t.Tier, Bucket: bucket, Amount: proceeds.InexactFloat64(), Before: w, After: after})
	return t, nil
}

// Delete removes a trade record in any state without touching cash.
func (l *Ledger) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, trades, err := l.load()
	if err != nil {
		return err
	}
	i := indexOf(trades, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed := trades[i]
	kept := append(trades[:i:i], trades[i+1:]...)
	if err := l.store.Commit(w, kept); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	l.log.Infow("trade deleted", "id", id, "status", removed.Status)
	l.emit(Event{Op: "delete", TradeID: id, Tier: removed.Tier, Bucket: model.BucketFor(removed.Tier), Before: w, After: w})
	return nil
}

// DepositOrSet adds amount to a bucket, or overwrites the bucket balance in
// ModeSet. ModeSet is the manual recovery path and accepts any value.
func (l *Ledger) DepositOrSet(bucket model.Bucket, amount float64, mode CashMode) (model.Wallet, error) {
	if bucket != model.BucketHunter && bucket != model.BucketBlitz {
		return model.Wallet{}, fmt.Errorf("%w: bucket %q", ErrInvalidOrder, bucket)
	}
	if !finite(amount) {
		return model.Wallet{}, fmt.Errorf("%w: amount %v", ErrInvalidOrder, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, trades, err := l.load()
	if err != nil {
		return model.Wallet{}, err
	}

	var after model.Wallet
	switch mode {
	case ModeDeposit:
		sum := decimal.NewFromFloat(w.Balance(bucket)).Add(decimal.NewFromFloat(amount))
		after = w.WithBalance(bucket, sum.InexactFloat64())
	case ModeSet:
		after = w.WithBalance(bucket, amount)
	default:
		return model.Wallet{}, fmt.Errorf("%w: mode %q", ErrInvalidOrder, mode)
	}

	if err := l.store.Commit(after, trades); err != nil {
		return model.Wallet{}, fmt.Errorf("commit %s: %w", mode, err)
	}

	l.log.Infow("cash updated", "bucket", bucket, "mode", mode, "amount", amount, "balance", after.Balance(bucket))
	l.emit(Event{Op: string(mode), Bucket: bucket, Amount: amount, Before: w, After: after})
	return after, nil
}

// load reads the current state. A corrupt store falls back to the seeded
// defaults so the ledger stays usable; the next commit overwrites it.
func (l *Ledger) load() (model.Wallet, []model.Trade, error) {
	w, err := l.store.LoadWallet()
	if err != nil {
		if !errors.Is(err, ErrCorruptState) {
			return model.Wallet{}, nil, fmt.Errorf("load wallet: %w", err)
		}
		l.log.Warnw("wallet state unreadable, using defaults", "err", err)
		w = model.DefaultWallet()
	}
	trades, err := l.store.LoadTrades()
	if err != nil {
		if !errors.Is(err, ErrCorruptState) {
			return model.Wallet{}, nil, fmt.Errorf("load trades: %w", err)
		}
		l.log.Warnw("trade state unreadable, using empty list", "err", err)
		trades = []model.Trade{}
	}
	return w, trades, nil
}

func (l *Ledger) emit(e Event) {
	for _, fn := range l.observers {
		fn(e)
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func positive(v float64) bool { return finite(v) && v > 0 }

func indexOf(trades []model.Trade, id string) int {
	for i, t := range trades {
		if t.ID == id {
			return i
		}
	}
	return -1
}
