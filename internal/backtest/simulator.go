package backtest

import (
	"sort"
	"time"

	"SignalHunter/internal/calculator"
	"SignalHunter/internal/model"
)

// DefaultHorizons are the forward windows, in trading bars, used when none are given.
var DefaultHorizons = []int{5, 15}

// Record is one historical signal and what happened after it.
type Record struct {
	Index      int
	Date       time.Time
	Tier       model.Tier
	EntryPrice float64
	// Forward holds one entry per horizon, in the order of Result.Horizons.
	Forward []Outcome
}

// Outcome is the price and percent return h bars after entry, when known.
type Outcome struct {
	Price  model.Opt
	Return model.Opt
}

// HorizonStats aggregates the outcomes for one horizon.
type HorizonStats struct {
	Horizon   int
	Defined   int
	Wins      int
	WinRate   float64 // fraction of defined returns above zero
	AvgReturn float64 // mean percent return over defined returns
}

// Result is the output of a backtest run.
type Result struct {
	Horizons []int
	Records  []Record
	Overall  []HorizonStats
	ByTier   map[model.Tier][]HorizonStats
}

// Run replays the tier signals across history. rows and signals must be
// aligned by index. Run is pure: the same input always yields the same Result.
func Run(rows []model.IndicatorRow, signals []model.TierSignal, horizons []int) *Result {
	hs := normalizeHorizons(horizons)
	res := &Result{Horizons: hs, ByTier: make(map[model.Tier][]HorizonStats)}
	n := len(rows)
	if len(signals) < n {
		n = len(signals)
	}
	if len(hs) == 0 {
		return res
	}
	minH := hs[0]

	for i := calculator.WarmupBars; i < n; i++ {
		if i+minH >= len(rows) {
			break
		}
		sig := signals[i]
		if sig.Group.Actionable() {
			res.Records = append(res.Records, newRecord(rows, i, sig.Group, hs))
		}
		if sig.Blitz {
			res.Records = append(res.Records, newRecord(rows, i, model.TierBlitz, hs))
		}
	}

	res.Overall = aggregate(res.Records, hs)
	byTier := make(map[model.Tier][]Record)
	for _, r := range res.Records {
		byTier[r.Tier] = append(byTier[r.Tier], r)
	}
	for tier, recs := range byTier {
		res.ByTier[tier] = aggregate(recs, hs)
	}
	return res
}

func newRecord(rows []model.IndicatorRow, i int, tier model.Tier, hs []int) Record {
	entry := rows[i].Close
	rec := Record{
		Index:      i,
		Date:       rows[i].Date,
		Tier:       tier,
		EntryPrice: entry,
		Forward:    make([]Outcome, len(hs)),
	}
	for k, h := range hs {
		if i+h >= len(rows) || entry == 0 {
			continue
		}
		p := rows[i+h].Close
		rec.Forward[k] = Outcome{
			Price:  model.Some(p),
			Return: model.Some((p - entry) / entry * 100),
		}
	}
	return rec
}

func aggregate(recs []Record, hs []int) []HorizonStats {
	stats := make([]HorizonStats, len(hs))
	for k, h := range hs {
		st := HorizonStats{Horizon: h}
		sum := 0.0
		for _, r := range recs {
			ret := r.Forward[k].Return
			if !ret.OK {
				continue
			}
			st.Defined++
			sum += ret.V
			if ret.V > 0 {
				st.Wins++
			}
		}
		if st.Defined > 0 {
			st.WinRate = float64(st.Wins) / float64(st.Defined)
			st.AvgReturn = sum / float64(st.Defined)
		}
		stats[k] = st
	}
	return stats
}

// normalizeHorizons drops non-positive and duplicate horizons and sorts the rest.
func normalizeHorizons(horizons []int) []int {
	if horizons == nil {
		horizons = DefaultHorizons
	}
	seen := make(map[int]bool)
	var out []int
	for _, h := range horizons {
		if h > 0 && !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	sort.Ints(out)
	return out
}
