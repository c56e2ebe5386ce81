package indicator

import "math"

// Defined reports whether an indicator value is available
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Last returns the final value of a series, or NaN for an empty one
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

func nanSeries(n int) []float64 {
	result := make([]float64, n)
	for i := range result {
		result[i] = math.NaN()
	}
	return result
}

// SMA calculates Simple Moving Average.
// Returns one value per input; the first period-1 values are NaN.
func SMA(values []float64, period int) []float64 {
	result := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return result
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	result[period-1] = sum / float64(period)

	// Rolling calculation
	for i := period; i < len(values); i++ {
		sum = sum - values[i-period] + values[i]
		result[i] = sum / float64(period)
	}

	return result
}

// EWMA calculates an exponentially weighted moving average seeded with the
// first value: out[0] = v[0], out[i] = alpha*v[i] + (1-alpha)*out[i-1].
// NaN inputs are skipped and carry the previous average forward.
func EWMA(values []float64, alpha float64) []float64 {
	result := nanSeries(len(values))
	if alpha <= 0 || alpha > 1 {
		return result
	}

	avg := math.NaN()
	for i, v := range values {
		switch {
		case math.IsNaN(v):
		case math.IsNaN(avg):
			avg = v
		default:
			avg = alpha*v + (1-alpha)*avg
		}
		result[i] = avg
	}

	return result
}
