package ledger

import (
	"time"

	"SignalHunter/internal/calculator"
	"SignalHunter/internal/model"
)

const (
	diamondLockPeriod = 5 * 24 * time.Hour

	diamondTrail = 0.60
	goldTrail    = 0.80
	silverTrail  = 0.85
	entryStop    = 0.85 // Blitz and unclassified trades
	blitzTarget  = 1.10
)

// ComputeExitGuide derives the stop for a trade from the closes observed since
// its entry and the current price. Diamond, Gold and Silver trail the peak;
// Blitz and anything else stop at a fixed discount off entry.
func ComputeExitGuide(t model.Trade, closesSinceEntry []float64, currentPrice float64, now time.Time) model.ExitGuide {
	peak := currentPrice
	if high, err := calculator.MaxClose(closesSinceEntry); err == nil && high > peak {
		peak = high
	}

	held := now.Sub(t.Date)
	g := model.ExitGuide{
		Tier:     t.Tier,
		Peak:     peak,
		DaysHeld: int(held / (24 * time.Hour)),
	}

	switch t.Tier {
	case model.TierDiamond:
		if held < diamondLockPeriod {
			g.Locked = true
			return g
		}
		g.StopPrice = peak * diamondTrail
	case model.TierGold:
		g.StopPrice = peak * goldTrail
	case model.TierSilver:
		g.StopPrice = peak * silverTrail
	case model.TierBlitz:
		g.StopPrice = t.Price * entryStop
		g.TakeProfit = t.Price * blitzTarget
	default:
		g.StopPrice = t.Price * entryStop
	}
	return g
}
