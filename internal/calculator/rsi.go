package calculator

import "SignalHunter/internal/model"

// RSI converts average gain and average loss into a 0-100 oscillator value.
// No losses with gains gives 100; no movement at all gives 50.
func RSI(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain > 0 {
			return 100
		}
		return 50
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// RSISeries computes RSI at every index using simple rolling means of the
// positive and negative close deltas over period bars (not Wilder smoothing).
// The first bar has no delta and counts as no movement, so the first
// period-1 indices are undefined.
func RSISeries(closes []float64, period int) []model.Opt {
	gains := make([]model.Opt, len(closes))
	losses := make([]model.Opt, len(closes))
	if len(closes) > 0 {
		gains[0], losses[0] = model.Some(0), model.Some(0)
	}
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		gains[i] = model.Some(gain)
		losses[i] = model.Some(loss)
	}
	avgGain := rolling(gains, period, mean)
	avgLoss := rolling(losses, period, mean)

	out := make([]model.Opt, len(closes))
	for i := range closes {
		if avgGain[i].OK && avgLoss[i].OK {
			out[i] = model.Some(RSI(avgGain[i].V, avgLoss[i].V))
		}
	}
	return out
}
