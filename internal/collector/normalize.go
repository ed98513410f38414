package collector

import (
	"sort"

	"SignalHunter/internal/model"
)

// normalize sorts bars chronologically and keeps one bar per calendar day,
// preferring the latest one received for that day.
func normalize(bars []model.OHLCV) []model.OHLCV {
	byDay := make(map[string]int, len(bars))
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		day := b.Time.Format("2006-01-02")
		if i, ok := byDay[day]; ok {
			out[i] = b
			continue
		}
		byDay[day] = len(out)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
