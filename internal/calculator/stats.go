package calculator

import (
	"math"

	"SignalHunter/internal/model"
)

// sampleStd is the n-1 standard deviation of w.
func sampleStd(w []float64) model.Opt {
	n := len(w)
	if n < 2 {
		return model.None
	}
	m := mean(w).V
	ss := 0.0
	for _, v := range w {
		d := v - m
		ss += d * d
	}
	return model.Some(math.Sqrt(ss / float64(n-1)))
}

// ZScore returns (v-mean)/std, undefined when std is zero.
func ZScore(v, mean, std float64) model.Opt {
	if std == 0 {
		return model.None
	}
	return model.Some((v - mean) / std)
}

// PctB is the position of close within the bands, 0 at lower and 1 at upper.
// A zero-width band yields 0.
func PctB(close, lower, upper float64) float64 {
	width := upper - lower
	if width == 0 {
		return 0
	}
	return (close - lower) / width
}

// PctChange returns the fractional day-over-day change of values.
// Index 0 and indices following a zero value are undefined.
func PctChange(values []float64) []model.Opt {
	out := make([]model.Opt, len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out[i] = model.Some((values[i] - values[i-1]) / values[i-1])
	}
	return out
}
