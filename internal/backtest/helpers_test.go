package backtest

import (
	"context"
	"time"

	"github.com/newthinker/fxsim/internal/core"
	"github.com/newthinker/fxsim/internal/strategy"
)

var baseTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// stubStrategy emits preset signals keyed by the time of the window's last bar
type stubStrategy struct {
	required int
	signals  map[time.Time]core.Signal
	always   *core.Signal
}

func (s *stubStrategy) Name() string        { return "stub" }
func (s *stubStrategy) Description() string { return "preset signals" }
func (s *stubStrategy) RequiredBars() int   { return s.required }

func (s *stubStrategy) Generate(window []core.Bar) (core.Signal, error) {
	if len(window) < s.required {
		return core.NoSignal(), core.ErrInsufficientHistory
	}
	if s.always != nil {
		return *s.always, nil
	}
	if sig, ok := s.signals[window[len(window)-1].Time]; ok {
		return sig, nil
	}
	return core.NoSignal(), nil
}

var _ strategy.Strategy = (*stubStrategy)(nil)

// flatBars returns n quiet bars around price with a 15 minute spacing
func flatBars(n int, price float64) []core.Bar {
	bars := make([]core.Bar, n)
	for i := range bars {
		bars[i] = core.Bar{
			Time:  baseTime.Add(time.Duration(i) * 15 * time.Minute),
			Open:  price,
			High:  price + 0.0001,
			Low:   price - 0.0001,
			Close: price,
		}
	}
	return bars
}

// mockSource implements BarSource for testing
type mockSource struct {
	bars map[string][]core.Bar
	errs map[string]error
}

func (m *mockSource) FetchBars(ctx context.Context, symbol string) ([]core.Bar, error) {
	if err, ok := m.errs[symbol]; ok {
		return nil, err
	}
	bars, ok := m.bars[symbol]
	if !ok {
		return nil, core.ErrMissingDataSource
	}
	return bars, nil
}

// countingRecorder implements Recorder for testing
type countingRecorder struct {
	trades  map[string]int
	skipped map[string]string
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{trades: map[string]int{}, skipped: map[string]string{}}
}

func (r *countingRecorder) RecordTrade(symbol, direction string, pnl float64) {
	r.trades[symbol]++
}

func (r *countingRecorder) RecordSkippedInstrument(symbol, reason string) {
	r.skipped[symbol] = reason
}
