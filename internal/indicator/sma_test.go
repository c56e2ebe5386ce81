package indicator

import (
	"math"
	"testing"
)

func TestSMA_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}

	sma := SMA(prices, 3)

	// SMA(3) for [10,11,12,13,14,15]:
	// [0], [1] undefined
	// [2] = (10+11+12)/3 = 11
	// [3] = (11+12+13)/3 = 12
	// [4] = (12+13+14)/3 = 13
	// [5] = (13+14+15)/3 = 14

	if len(sma) != len(prices) {
		t.Fatalf("expected %d values, got %d", len(prices), len(sma))
	}

	for i := 0; i < 2; i++ {
		if Defined(sma[i]) {
			t.Errorf("sma[%d] = %f, want undefined", i, sma[i])
		}
	}

	expected := []float64{11, 12, 13, 14}
	for i, v := range expected {
		if !almostEqual(sma[i+2], v, 1e-12) {
			t.Errorf("sma[%d] = %f, want %f", i+2, sma[i+2], v)
		}
	}
}

func TestSMA_NotEnoughData(t *testing.T) {
	prices := []float64{10, 11}
	sma := SMA(prices, 5)

	if len(sma) != 2 {
		t.Fatalf("expected 2 values, got %d", len(sma))
	}
	for i, v := range sma {
		if Defined(v) {
			t.Errorf("sma[%d] = %f, want undefined", i, v)
		}
	}
}

func TestSMA_InvalidPeriod(t *testing.T) {
	sma := SMA([]float64{1, 2, 3}, 0)
	if Defined(Last(sma)) {
		t.Error("zero period should produce undefined values")
	}
}

func TestEWMA_SeededWithFirstValue(t *testing.T) {
	ewma := EWMA([]float64{1, 2, 2}, 0.5)

	expected := []float64{1, 1.5, 1.75}
	for i, v := range expected {
		if !almostEqual(ewma[i], v, 1e-12) {
			t.Errorf("ewma[%d] = %f, want %f", i, ewma[i], v)
		}
	}
}

func TestEWMA_InvalidAlpha(t *testing.T) {
	if Defined(Last(EWMA([]float64{1, 2}, 0))) {
		t.Error("zero alpha should produce undefined values")
	}
}

func TestLast_Empty(t *testing.T) {
	if Defined(Last(nil)) {
		t.Error("last of empty series should be undefined")
	}
}

func TestDefined(t *testing.T) {
	if Defined(math.NaN()) || Defined(math.Inf(1)) {
		t.Error("NaN and Inf should be undefined")
	}
	if !Defined(0) {
		t.Error("zero is a defined value")
	}
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}
