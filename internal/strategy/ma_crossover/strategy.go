package ma_crossover

import (
	"fmt"

	"github.com/newthinker/fxsim/internal/core"
	"github.com/newthinker/fxsim/internal/indicator"
	"github.com/newthinker/fxsim/internal/strategy"
)

// MACrossover trades pure moving average crosses without a momentum filter
type MACrossover struct {
	fastPeriod int
	slowPeriod int
	atrPeriod  int
}

// New creates a new MA Crossover strategy from the MA and ATR periods of cfg.
// Non-positive periods fall back to the defaults.
func New(cfg strategy.Config) *MACrossover {
	def := strategy.DefaultConfig()
	m := &MACrossover{
		fastPeriod: cfg.MAShort,
		slowPeriod: cfg.MALong,
		atrPeriod:  cfg.ATRPeriod,
	}
	if m.fastPeriod <= 0 {
		m.fastPeriod = def.MAShort
	}
	if m.slowPeriod <= 0 {
		m.slowPeriod = def.MALong
	}
	if m.atrPeriod <= 0 {
		m.atrPeriod = def.ATRPeriod
	}
	return m
}

func (m *MACrossover) Name() string {
	return "ma_crossover"
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("MA Crossover (%d/%d), ATR(%d)", m.fastPeriod, m.slowPeriod, m.atrPeriod)
}

func (m *MACrossover) RequiredBars() int {
	return m.slowPeriod + 1
}

func (m *MACrossover) Generate(window []core.Bar) (core.Signal, error) {
	if len(window) < m.RequiredBars() {
		return core.NoSignal(), core.WrapError(core.ErrInsufficientHistory,
			fmt.Errorf("have %d bars, need %d", len(window), m.RequiredBars()))
	}

	// Extract prices
	closes := make([]float64, len(window))
	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, bar := range window {
		closes[i] = bar.Close
		highs[i] = bar.High
		lows[i] = bar.Low
	}

	// Calculate moving averages
	fastMA := indicator.SMA(closes, m.fastPeriod)
	slowMA := indicator.SMA(closes, m.slowPeriod)
	atr := indicator.Last(indicator.ATR(highs, lows, closes, m.atrPeriod))

	n := len(closes)
	currFast, prevFast := fastMA[n-1], fastMA[n-2]
	currSlow, prevSlow := slowMA[n-1], slowMA[n-2]

	for _, v := range []float64{currFast, prevFast, currSlow, prevSlow, atr} {
		if !indicator.Defined(v) {
			return core.NoSignal(), core.WrapError(core.ErrInsufficientHistory,
				fmt.Errorf("indicators undefined on the last two bars"))
		}
	}

	// Golden Cross: fast crosses above slow
	if prevFast <= prevSlow && currFast > currSlow {
		return core.Signal{
			Direction: core.DirectionLong,
			ATR:       atr,
			Reason:    fmt.Sprintf("Golden Cross: MA%d (%.5f) crossed above MA%d (%.5f)", m.fastPeriod, currFast, m.slowPeriod, currSlow),
		}, nil
	}

	// Death Cross: fast crosses below slow
	if prevFast >= prevSlow && currFast < currSlow {
		return core.Signal{
			Direction: core.DirectionShort,
			ATR:       atr,
			Reason:    fmt.Sprintf("Death Cross: MA%d (%.5f) crossed below MA%d (%.5f)", m.fastPeriod, currFast, m.slowPeriod, currSlow),
		}, nil
	}

	return core.NoSignal(), nil
}
