package calculator

import (
	"errors"

	"SignalHunter/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns the trailing simple moving average at every index.
// Indices before period-1 are undefined.
func SMASeries(values []float64, period int) []model.Opt {
	return rolling(defined(values), period, mean)
}

// StdSeries returns the trailing sample standard deviation at every index.
func StdSeries(values []float64, period int) []model.Opt {
	return rolling(defined(values), period, sampleStd)
}

// rolling applies fn to every full trailing window of size period. A window
// containing an undefined value yields an undefined result.
func rolling(values []model.Opt, period int, fn func([]float64) model.Opt) []model.Opt {
	out := make([]model.Opt, len(values))
	if period <= 0 {
		return out
	}
	window := make([]float64, period)
	for i := period - 1; i < len(values); i++ {
		ok := true
		for j := 0; j < period; j++ {
			v := values[i-period+1+j]
			if !v.OK {
				ok = false
				break
			}
			window[j] = v.V
		}
		if ok {
			out[i] = fn(window)
		}
	}
	return out
}

func defined(values []float64) []model.Opt {
	out := make([]model.Opt, len(values))
	for i, v := range values {
		out[i] = model.Some(v)
	}
	return out
}

func mean(w []float64) model.Opt {
	if len(w) == 0 {
		return model.None
	}
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return model.Some(sum / float64(len(w)))
}
