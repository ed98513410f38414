package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"SignalHunter/internal/backtest"
	"SignalHunter/internal/calculator"
	"SignalHunter/internal/collector"
	"SignalHunter/internal/model"
	"SignalHunter/internal/strategy"
)

const explosiveVolume = 1.5

var tierIcons = map[model.Tier]string{
	model.TierDiamond: "💎",
	model.TierGold:    "🥇",
	model.TierSilver:  "🥈",
	model.TierBlitz:   "⚡",
}

// FormatDailySignal formats the latest bar of an analysis into the daily
// dashboard message.
func FormatDailySignal(a *collector.Analysis, w model.Wallet) string {
	var b strings.Builder
	row, sig := a.Latest()

	b.WriteString(fmt.Sprintf("📊 <b>%s Signal</b> | %s\n\n", a.Symbol, row.Date.Format("2006-01-02")))

	change := ""
	if row.Return.OK {
		change = fmt.Sprintf(" (%+.2f%%)", row.Return.V*100)
	}
	b.WriteString(fmt.Sprintf("Price: %.2f%s\n", row.Close, change))
	b.WriteString(fmt.Sprintf("σ20: %s | σ60: %s\n", opt(row.Sigma20), opt(row.Sigma60)))
	b.WriteString(fmt.Sprintf("RSI14: %s | RSI2: %s | %%B: %s\n", opt(row.RSI14), opt(row.RSI2), opt(row.PctB)))

	vol := opt(row.VolRatio) + "x"
	if row.VolRatio.OK && row.VolRatio.V >= explosiveVolume {
		vol += " 🔥 explosive"
	}
	b.WriteString(fmt.Sprintf("Volume: %s\n", vol))
	candle := "🔴 bearish"
	if row.Bullish {
		candle = "🟢 bullish"
	}
	b.WriteString(fmt.Sprintf("Candle: %s\n\n", candle))

	if !row.Sufficient {
		b.WriteString(fmt.Sprintf("⚠️ Insufficient history: %d bars, %d required\n", len(a.Rows), calculator.WarmupBars))
		return b.String()
	}

	b.WriteString("🎯 <b>Tiers:</b>\n")
	for _, st := range strategy.Explain(row) {
		b.WriteString(fmt.Sprintf("  %s %s: <b>%s</b>\n", tierIcons[st.Tier], st.Tier, st.State))
		b.WriteString(fmt.Sprintf("     %s\n", html.EscapeString(st.Note)))
	}

	var fired []model.Tier
	if sig.Group.Actionable() {
		fired = append(fired, sig.Group)
	}
	if sig.Blitz {
		fired = append(fired, model.TierBlitz)
	}
	if len(fired) == 0 {
		b.WriteString("\n💤 No buy signal today\n")
		return b.String()
	}

	b.WriteString("\n💰 <b>Suggested:</b>\n")
	for _, t := range fired {
		amt := strategy.SuggestedAmount(t, w)
		qty := strategy.SuggestedQty(t, w, row.Close)
		b.WriteString(fmt.Sprintf("  %s %s: $%.2f from %s (%d shares)\n", tierIcons[t], t, amt, model.BucketFor(t), qty))
	}
	return b.String()
}

// FormatWallet formats the cash buckets.
func FormatWallet(w model.Wallet) string {
	var b strings.Builder
	b.WriteString("👛 <b>Wallet</b>\n\n")
	b.WriteString(fmt.Sprintf("Hunter: $%.2f\n", w.HunterCash))
	b.WriteString(fmt.Sprintf("Blitz: $%.2f\n", w.BlitzCash))
	b.WriteString(fmt.Sprintf("Total: $%.2f\n", w.HunterCash+w.BlitzCash))
	return b.String()
}

// FormatTrades lists trades, open ones first with their exit guide.
func FormatTrades(trades []model.Trade, guides map[string]model.ExitGuide, price float64) string {
	if len(trades) == 0 {
		return "📒 No trades recorded"
	}
	sorted := make([]model.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		if (sorted[i].Status == model.StatusHolding) != (sorted[j].Status == model.StatusHolding) {
			return sorted[i].Status == model.StatusHolding
		}
		return sorted[i].Date.After(sorted[j].Date)
	})

	var b strings.Builder
	b.WriteString("📒 <b>Trades</b>\n")
	for _, t := range sorted {
		b.WriteString(fmt.Sprintf("\n%s <b>%s</b> %s <code>%s</code>\n", tierIcons[t.Tier], t.Tier, t.Date.Format("2006-01-02"), t.ID))
		b.WriteString(fmt.Sprintf("  %d @ %.2f (cost $%.2f)\n", t.Qty, t.Price, t.Cost()))
		if t.Status == model.StatusSold {
			pnl := (t.SellPrice - t.Price) * float64(t.Qty)
			b.WriteString(fmt.Sprintf("  sold %.2f on %s, P/L $%+.2f\n", t.SellPrice, t.SellDate.Format("2006-01-02"), pnl))
			continue
		}
		if price > 0 {
			ret := (price - t.Price) / t.Price * 100
			b.WriteString(fmt.Sprintf("  now %.2f (%+.2f%%)\n", price, ret))
		}
		g, ok := guides[t.ID]
		if !ok {
			continue
		}
		switch {
		case g.Locked:
			b.WriteString(fmt.Sprintf("  🔒 hold, no stop yet (day %d)\n", g.DaysHeld))
		case g.TakeProfit > 0:
			b.WriteString(fmt.Sprintf("  🛑 stop %.2f | 🎯 target %.2f\n", g.StopPrice, g.TakeProfit))
		default:
			b.WriteString(fmt.Sprintf("  🛑 stop %.2f (peak %.2f)\n", g.StopPrice, g.Peak))
		}
	}
	return b.String()
}

// FormatBacktest formats overall and per-tier win rates plus the most recent signals.
func FormatBacktest(symbol string, res *backtest.Result, recent int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🧪 <b>%s Backtest</b>\n\n", symbol))
	b.WriteString(fmt.Sprintf("Signals: %d\n", len(res.Records)))
	if len(res.Records) == 0 {
		return b.String()
	}
	writeStats(&b, "Overall", res.Overall)

	for _, t := range []model.Tier{model.TierDiamond, model.TierGold, model.TierSilver, model.TierBlitz} {
		if st, ok := res.ByTier[t]; ok {
			writeStats(&b, tierIcons[t]+" "+t.String(), st)
		}
	}

	b.WriteString("\n<b>Recent:</b>\n")
	for i := len(res.Records) - 1; i >= 0 && recent > 0; i-- {
		r := res.Records[i]
		parts := make([]string, len(r.Forward))
		for k, f := range r.Forward {
			parts[k] = fmt.Sprintf("%dd %s", res.Horizons[k], pct(f.Return))
		}
		b.WriteString(fmt.Sprintf("  %s %s %.2f | %s\n", r.Date.Format("2006-01-02"), r.Tier, r.EntryPrice, strings.Join(parts, " | ")))
		recent--
	}
	return b.String()
}

func writeStats(b *strings.Builder, label string, stats []backtest.HorizonStats) {
	b.WriteString(fmt.Sprintf("\n<b>%s</b>\n", label))
	for _, s := range stats {
		if s.Defined == 0 {
			b.WriteString(fmt.Sprintf("  %dd: n/a\n", s.Horizon))
			continue
		}
		b.WriteString(fmt.Sprintf("  %dd: win %.1f%% (%d/%d), avg %+.2f%%\n",
			s.Horizon, s.WinRate*100, s.Wins, s.Defined, s.AvgReturn))
	}
}

func opt(o model.Opt) string {
	if !o.OK {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", o.V)
}

func pct(o model.Opt) string {
	if !o.OK {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", o.V)
}
