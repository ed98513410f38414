package strategy

import "SignalHunter/internal/model"

// Thresholds for each tier. Comparisons are inclusive where the rule says
// "at most" or "at least" and strict otherwise.
const (
	diamondSigma = -2.5
	goldSigma    = -2.0
	oversoldRSI  = 30.0
	panicVolume  = 1.5

	goldDualSigma20 = -1.8
	goldDualSigma60 = -2.0

	silverRSI  = 45.0
	silverPctB = 0.2

	blitzRSI2 = 5.0
)

// Classify maps one indicator row to its tier signal. Rules are evaluated in
// precedence order Diamond, Gold, Silver; Blitz is evaluated independently.
func Classify(row model.IndicatorRow) model.TierSignal {
	var sig model.TierSignal
	if !row.Sufficient {
		return sig
	}
	sig.Group, sig.GoldDual = classifyGroup(row)
	sig.Blitz = isBlitz(row)
	return sig
}

// ClassifyAll classifies every row.
func ClassifyAll(rows []model.IndicatorRow) []model.TierSignal {
	out := make([]model.TierSignal, len(rows))
	for i, r := range rows {
		out[i] = Classify(r)
	}
	return out
}

func classifyGroup(r model.IndicatorRow) (model.Tier, bool) {
	if !r.Sigma20.OK || !r.Sigma60.OK || !r.RSI14.OK || !r.VolRatio.OK || !r.PctB.OK || !r.MA120.OK {
		return model.TierNone, false
	}
	sigma, sigma60 := r.Sigma20.V, r.Sigma60.V
	rsi, vol := r.RSI14.V, r.VolRatio.V

	if sigma <= diamondSigma && rsi < oversoldRSI && vol >= panicVolume {
		return model.TierDiamond, false
	}

	goldStd := sigma <= goldSigma && rsi < oversoldRSI && vol >= panicVolume
	goldDual := sigma <= goldDualSigma20 && sigma60 <= goldDualSigma60
	if goldStd || goldDual {
		return model.TierGold, !goldStd
	}

	if rsi < silverRSI && r.PctB.V < silverPctB && r.Close > r.MA120.V {
		if r.Bullish {
			return model.TierSilver, false
		}
		return model.TierSilverWait, false
	}
	return model.TierNone, false
}

func isBlitz(r model.IndicatorRow) bool {
	if !r.RSI2.OK || !r.MA200.OK {
		return false
	}
	return r.RSI2.V < blitzRSI2 && r.Close > r.MA200.V
}
