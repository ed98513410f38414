package strategy

import (
	"fmt"
	"strings"

	"SignalHunter/internal/model"
)

// TierState is how a tier reads on one row.
type TierState string

const (
	StateOn   TierState = "ON"
	StateOff  TierState = "OFF"
	StateWait TierState = "WAIT"
	StateNA   TierState = "N/A"
)

// TierStatus describes one tier for the daily report: whether it fired and
// how each input compares with its threshold.
type TierStatus struct {
	Tier  model.Tier
	State TierState
	Note  string
}

// Explain returns the status of Diamond, Gold, Silver and Blitz for row, in
// report order. It agrees with Classify on which tier fired.
func Explain(row model.IndicatorRow) []TierStatus {
	sig := Classify(row)
	out := []TierStatus{
		{Tier: model.TierDiamond, Note: joinNotes(
			cmp("σ20", row.Sigma20, "≤", diamondSigma),
			cmp("RSI", row.RSI14, "<", oversoldRSI),
			cmp("Vol", row.VolRatio, "≥", panicVolume),
		)},
		{Tier: model.TierGold, Note: joinNotes(
			cmp("σ20", row.Sigma20, "≤", goldSigma),
			cmp("RSI", row.RSI14, "<", oversoldRSI),
			cmp("Vol", row.VolRatio, "≥", panicVolume),
		) + " | dual " + joinNotes(
			cmp("σ20", row.Sigma20, "≤", goldDualSigma20),
			cmp("σ60", row.Sigma60, "≤", goldDualSigma60),
		)},
		{Tier: model.TierSilver, Note: joinNotes(
			cmp("RSI", row.RSI14, "<", silverRSI),
			cmp("%B", row.PctB, "<", silverPctB),
			fmt.Sprintf("close %.2f > MA120 %s", row.Close, optStr(row.MA120)),
		)},
		{Tier: model.TierBlitz, Note: joinNotes(
			cmp("RSI2", row.RSI2, "<", blitzRSI2),
			fmt.Sprintf("close %.2f > MA200 %s", row.Close, optStr(row.MA200)),
		)},
	}

	for i := range out {
		st := &out[i]
		switch {
		case !row.Sufficient:
			st.State = StateNA
		case st.Tier == model.TierBlitz:
			st.State = onOff(sig.Blitz)
		case st.Tier == model.TierSilver && sig.Group == model.TierSilverWait:
			st.State = StateWait
			st.Note += " (waiting for a bullish candle)"
		default:
			st.State = onOff(sig.Group == st.Tier)
		}
		if st.Tier == model.TierGold && st.State == StateOn && sig.GoldDual {
			st.Note += " (dual sigma)"
		}
	}
	return out
}

func onOff(b bool) TierState {
	if b {
		return StateOn
	}
	return StateOff
}

func cmp(name string, v model.Opt, op string, target float64) string {
	return fmt.Sprintf("%s %s %s %g", name, optStr(v), op, target)
}

func optStr(v model.Opt) string {
	if !v.OK {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v.V)
}

func joinNotes(parts ...string) string { return strings.Join(parts, ", ") }
