package model

import "time"

// Opt is a float that may be undefined, e.g. a windowed value before the
// window is full or a ratio whose denominator is zero.
type Opt struct {
	V  float64
	OK bool
}

// Some returns a defined Opt.
func Some(v float64) Opt { return Opt{V: v, OK: true} }

// None is the undefined Opt.
var None = Opt{}

// Or returns the value, or def when undefined.
func (o Opt) Or(def float64) float64 {
	if !o.OK {
		return def
	}
	return o.V
}

// IndicatorRow holds all derived metrics for one trading day.
type IndicatorRow struct {
	Date    time.Time
	Open    float64
	Close   float64
	Volume  float64
	MA20    Opt
	MA120   Opt
	MA200   Opt
	BBLower Opt
	BBUpper Opt
	PctB    Opt
	RSI14   Opt
	RSI2    Opt
	Return  Opt // day-over-day fractional change of close
	Sigma20 Opt
	Sigma60 Opt
	// VolRatio is today's volume over the trailing 20-bar mean volume.
	VolRatio Opt
	Bullish  bool
	// Sufficient is false until the longest window (200 bars) is full.
	Sufficient bool
}
