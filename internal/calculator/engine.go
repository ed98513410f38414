package calculator

import "SignalHunter/internal/model"

const (
	// WarmupBars is the longest window; rows before it are not classified.
	WarmupBars = 200

	bbPeriod    = 20
	bbWidth     = 2.0
	sigmaShort  = 20
	sigmaLong   = 60
	volumeMA    = 20
	rsiPeriod   = 14
	blitzPeriod = 2
)

// Compute derives an IndicatorRow for every bar. Bars must be chronological
// and deduplicated.
func Compute(bars []model.OHLCV) []model.IndicatorRow {
	n := len(bars)
	closes := model.Closes(bars)
	volumes := make([]float64, n)
	for i, b := range bars {
		volumes[i] = b.Volume
	}

	ma20 := SMASeries(closes, 20)
	ma120 := SMASeries(closes, 120)
	ma200 := SMASeries(closes, 200)
	std20 := StdSeries(closes, bbPeriod)

	rsi14 := RSISeries(closes, rsiPeriod)
	rsi2 := RSISeries(closes, blitzPeriod)

	returns := PctChange(closes)
	retMean20 := rolling(returns, sigmaShort, mean)
	retStd20 := rolling(returns, sigmaShort, sampleStd)
	retMean60 := rolling(returns, sigmaLong, mean)
	retStd60 := rolling(returns, sigmaLong, sampleStd)

	volMA := SMASeries(volumes, volumeMA)

	rows := make([]model.IndicatorRow, n)
	for i, b := range bars {
		row := model.IndicatorRow{
			Date:       b.Time,
			Open:       b.Open,
			Close:      b.Close,
			Volume:     b.Volume,
			MA20:       ma20[i],
			MA120:      ma120[i],
			MA200:      ma200[i],
			RSI14:      rsi14[i],
			RSI2:       rsi2[i],
			Return:     returns[i],
			Bullish:    b.Close >= b.Open,
			Sufficient: i >= WarmupBars-1,
		}

		if ma20[i].OK && std20[i].OK {
			lower := ma20[i].V - bbWidth*std20[i].V
			upper := ma20[i].V + bbWidth*std20[i].V
			row.BBLower = model.Some(lower)
			row.BBUpper = model.Some(upper)
			row.PctB = model.Some(PctB(b.Close, lower, upper))
		}

		if returns[i].OK && retMean20[i].OK && retStd20[i].OK {
			row.Sigma20 = ZScore(returns[i].V, retMean20[i].V, retStd20[i].V)
		}
		if returns[i].OK && retMean60[i].OK && retStd60[i].OK {
			row.Sigma60 = ZScore(returns[i].V, retMean60[i].V, retStd60[i].V)
		}

		if volMA[i].OK && volMA[i].V != 0 {
			row.VolRatio = model.Some(b.Volume / volMA[i].V)
		}

		rows[i] = row
	}
	return rows
}
