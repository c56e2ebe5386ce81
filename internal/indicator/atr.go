package indicator

import "math"

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) per bar.
// The first bar has no previous close and uses high-low.
func TrueRange(highs, lows, closes []float64) []float64 {
	if len(highs) != len(lows) || len(highs) != len(closes) {
		return nanSeries(len(highs))
	}

	tr := make([]float64, len(highs))
	for i := range highs {
		hl := highs[i] - lows[i]
		if i == 0 {
			tr[i] = hl
			continue
		}
		prev := closes[i-1]
		tr[i] = math.Max(hl, math.Max(math.Abs(highs[i]-prev), math.Abs(lows[i]-prev)))
	}
	return tr
}

// ATR calculates Average True Range with Wilder smoothing: a recursive
// exponential average of the true range with alpha = 1/period.
func ATR(highs, lows, closes []float64, period int) []float64 {
	if period <= 0 || len(highs) != len(lows) || len(highs) != len(closes) {
		return nanSeries(len(highs))
	}
	return EWMA(TrueRange(highs, lows, closes), 1/float64(period))
}
