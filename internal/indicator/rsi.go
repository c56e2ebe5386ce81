package indicator

import "math"

// RSI calculates the Relative Strength Index using a plain rolling mean of
// gains and losses over period deltas. The first period values are NaN.
// A window with no losses yields 100, a flat window yields NaN.
func RSI(closes []float64, period int) []float64 {
	result := nanSeries(len(closes))
	if period <= 0 || len(closes) <= period {
		return result
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	// Summed per window rather than rolled so flat stretches stay exactly zero
	for i := period; i < len(closes); i++ {
		var gainSum, lossSum float64
		for j := i - period + 1; j <= i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		result[i] = rsiValue(gainSum/float64(period), lossSum/float64(period))
	}

	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return math.NaN()
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
