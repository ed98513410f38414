package calculator

import (
	"errors"
	"time"

	"SignalHunter/internal/model"
)

// ClosesSince returns the closes of bars dated on or after since's calendar day.
func ClosesSince(bars []model.OHLCV, since time.Time) []float64 {
	y, m, d := since.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, since.Location())
	var closes []float64
	for _, b := range bars {
		if !b.Time.Before(start) {
			closes = append(closes, b.Close)
		}
	}
	return closes
}

// MaxClose returns the highest value in closes.
func MaxClose(closes []float64) (float64, error) {
	if len(closes) == 0 {
		return 0, errors.New("no closes provided")
	}
	high := closes[0]
	for _, c := range closes[1:] {
		if c > high {
			high = c
		}
	}
	return high, nil
}
