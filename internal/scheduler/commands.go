package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"SignalHunter/internal/calculator"
	"SignalHunter/internal/ledger"
	"SignalHunter/internal/metrics"
	"SignalHunter/internal/model"
	"SignalHunter/internal/notifier"
	"SignalHunter/internal/strategy"
)

const recentBacktestSignals = 10

const helpText = `Available commands:
• /signal - today's dashboard
• /wallet - cash buckets
• /trades - trades and exit guides
• /backtest - historical win rates
• /export - write backtest CSV
• /buy <tier> [price qty] - open a trade
• /sell <id> <price> - close a trade
• /delete <id> - remove a trade record
• /deposit <hunter|blitz> <amount>
• /setcash <hunter|blitz> <amount>
• /refresh - refetch price data`

// HandleCommand processes a user command and returns a reply. Errors are
// reported in the reply; nothing here panics on bad input.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Telegram appends the bot name in groups: /signal@SomeBot
	name := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])
	args := fields[1:]

	switch name {
	case "/signal":
		return s.cmdSignal()
	case "/wallet":
		w, err := s.Ledger.Wallet()
		if err != nil {
			return errReply("wallet", err)
		}
		return notifier.FormatWallet(w)
	case "/trades":
		return s.cmdTrades()
	case "/backtest":
		a, err := s.Collector.Analyze(s.Ctx)
		if err != nil {
			return errReply("backtest", err)
		}
		return notifier.FormatBacktest(a.Symbol, a.Backtest, recentBacktestSignals)
	case "/export":
		path, err := s.exportBacktest()
		if err != nil {
			return errReply("export", err)
		}
		return fmt.Sprintf("📄 Backtest exported to %s", path)
	case "/buy":
		return s.cmdBuy(args)
	case "/sell":
		return s.cmdSell(args)
	case "/delete":
		return s.cmdDelete(args)
	case "/deposit":
		return s.cmdCash(args, ledger.ModeDeposit)
	case "/setcash":
		return s.cmdCash(args, ledger.ModeSet)
	case "/refresh":
		s.Collector.Invalidate()
		a, err := s.Collector.Analyze(s.Ctx)
		if err != nil {
			return errReply("refresh", err)
		}
		return fmt.Sprintf("🔄 Data refreshed: %d bars up to %s", len(a.Bars), a.AsOf.Format("2006-01-02"))
	default:
		return helpText
	}
}

func (s *Scheduler) cmdSignal() string {
	a, err := s.Collector.Analyze(s.Ctx)
	if err != nil {
		return errReply("signal", err)
	}
	w, err := s.Ledger.Wallet()
	if err != nil {
		return errReply("wallet", err)
	}
	return notifier.FormatDailySignal(a, w)
}

func (s *Scheduler) cmdTrades() string {
	trades, err := s.Ledger.Trades()
	if err != nil {
		return errReply("trades", err)
	}
	guides := make(map[string]model.ExitGuide)
	price := 0.0
	// Exit guides need prices; the listing still works without them.
	if a, err := s.Collector.Analyze(s.Ctx); err == nil {
		price = a.CurrentPrice()
		for _, t := range trades {
			if t.Status != model.StatusHolding {
				continue
			}
			closes := calculator.ClosesSince(a.Bars, t.Date)
			guides[t.ID] = ledger.ComputeExitGuide(t, closes, price, s.now())
		}
	} else {
		s.log.Warnw("trades listed without exit guides", "err", err)
	}
	return notifier.FormatTrades(trades, guides, price)
}

// cmdBuy opens a trade. Without price and qty it buys the suggested quantity
// at the last close.
func (s *Scheduler) cmdBuy(args []string) string {
	if len(args) != 1 && len(args) != 3 {
		return "Usage: /buy <tier> [price qty]"
	}
	tier, err := model.ParseTier(args[0])
	if err != nil || !tier.Actionable() {
		return fmt.Sprintf("❌ Unknown tier %q, use diamond, gold, silver or blitz", args[0])
	}

	var price float64
	var qty int
	if len(args) == 3 {
		if price, err = strconv.ParseFloat(args[1], 64); err != nil {
			return fmt.Sprintf("❌ Invalid price %q", args[1])
		}
		if qty, err = strconv.Atoi(args[2]); err != nil {
			return fmt.Sprintf("❌ Invalid quantity %q", args[2])
		}
	} else {
		a, err := s.Collector.Analyze(s.Ctx)
		if err != nil {
			return errReply("buy", err)
		}
		w, err := s.Ledger.Wallet()
		if err != nil {
			return errReply("buy", err)
		}
		price = a.CurrentPrice()
		qty = strategy.SuggestedQty(tier, w, price)
	}

	t, err := s.Ledger.Open(s.now(), tier, price, qty)
	metrics.ObserveLedgerOp("open", err)
	if err != nil {
		return errReply("buy", err)
	}
	msg := fmt.Sprintf("✅ Bought %d @ %.2f (%s)\nID: <code>%s</code>", t.Qty, t.Price, t.Tier, t.ID)
	bucket := model.BucketFor(tier)
	w, err := s.Ledger.Wallet()
	if err != nil {
		s.log.Warnw("wallet unavailable after buy", "id", t.ID, "err", err)
		return msg + fmt.Sprintf("\n⚠️ %s balance unavailable: %v", bucket, err)
	}
	return msg + fmt.Sprintf("\n%s cash left: $%.2f", bucket, w.Balance(bucket))
}

func (s *Scheduler) cmdSell(args []string) string {
	if len(args) != 2 {
		return "Usage: /sell <id> <price>"
	}
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Sprintf("❌ Invalid price %q", args[1])
	}
	t, err := s.Ledger.Close(args[0], price)
	metrics.ObserveLedgerOp("close", err)
	if err != nil {
		return errReply("sell", err)
	}
	pnl := (t.SellPrice - t.Price) * float64(t.Qty)
	return fmt.Sprintf("✅ Sold %d @ %.2f (%s), P/L $%+.2f", t.Qty, t.SellPrice, t.Tier, pnl)
}

func (s *Scheduler) cmdDelete(args []string) string {
	if len(args) != 1 {
		return "Usage: /delete <id>"
	}
	err := s.Ledger.Delete(args[0])
	metrics.ObserveLedgerOp("delete", err)
	if err != nil {
		return errReply("delete", err)
	}
	return fmt.Sprintf("🗑 Trade %s deleted, cash unchanged", args[0])
}

func (s *Scheduler) cmdCash(args []string, mode ledger.CashMode) string {
	if len(args) != 2 {
		if mode == ledger.ModeSet {
			return "Usage: /setcash <hunter|blitz> <amount>"
		}
		return "Usage: /deposit <hunter|blitz> <amount>"
	}
	bucket, err := model.ParseBucket(args[0])
	if err != nil {
		return "❌ " + err.Error()
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Sprintf("❌ Invalid amount %q", args[1])
	}
	w, err := s.Ledger.DepositOrSet(bucket, amount, mode)
	metrics.ObserveLedgerOp(string(mode), err)
	if err != nil {
		return errReply(string(mode), err)
	}
	return notifier.FormatWallet(w)
}

func errReply(op string, err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "❌ Insufficient funds: " + err.Error()
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrAlreadyClosed), errors.Is(err, ledger.ErrInvalidOrder):
		return "❌ " + err.Error()
	}
	return fmt.Sprintf("❌ %s failed: %v", op, err)
}
