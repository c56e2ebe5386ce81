package trend_rsi

import (
	"fmt"

	"github.com/newthinker/fxsim/internal/core"
	"github.com/newthinker/fxsim/internal/indicator"
	"github.com/newthinker/fxsim/internal/strategy"
)

// TrendRSI buys oversold dips in an uptrend and sells overbought rallies in
// a downtrend. The trend is read from a short/long SMA pair, momentum from
// RSI, and the ATR of the window is reported for stop placement.
type TrendRSI struct {
	cfg strategy.Config
}

// New creates a TrendRSI strategy. Zero or negative parameters, RSI
// thresholds included, fall back to the defaults. config.Validate rejects
// such values earlier on the CLI path.
func New(cfg strategy.Config) *TrendRSI {
	def := strategy.DefaultConfig()
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = def.RSIPeriod
	}
	if cfg.MAShort <= 0 {
		cfg.MAShort = def.MAShort
	}
	if cfg.MALong <= 0 {
		cfg.MALong = def.MALong
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = def.ATRPeriod
	}
	if cfg.RSIOversold <= 0 {
		cfg.RSIOversold = def.RSIOversold
	}
	if cfg.RSIOverbought <= 0 {
		cfg.RSIOverbought = def.RSIOverbought
	}
	return &TrendRSI{cfg: cfg}
}

func (s *TrendRSI) Name() string {
	return "trend_rsi"
}

func (s *TrendRSI) Description() string {
	return fmt.Sprintf("MA%d/MA%d %s + RSI(%d) %.0f/%.0f, ATR(%d)",
		s.cfg.MAShort, s.cfg.MALong, s.cfg.Mode, s.cfg.RSIPeriod,
		s.cfg.RSIOversold, s.cfg.RSIOverbought, s.cfg.ATRPeriod)
}

// RequiredBars is one bar more than the long MA so the previous bar's MA
// pair is defined as well.
func (s *TrendRSI) RequiredBars() int {
	return s.cfg.MALong + 1
}

func (s *TrendRSI) Generate(window []core.Bar) (core.Signal, error) {
	if len(window) < s.RequiredBars() {
		return core.NoSignal(), core.WrapError(core.ErrInsufficientHistory,
			fmt.Errorf("have %d bars, need %d", len(window), s.RequiredBars()))
	}

	closes := make([]float64, len(window))
	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, bar := range window {
		closes[i] = bar.Close
		highs[i] = bar.High
		lows[i] = bar.Low
	}

	rsi := indicator.Last(indicator.RSI(closes, s.cfg.RSIPeriod))
	atr := indicator.Last(indicator.ATR(highs, lows, closes, s.cfg.ATRPeriod))
	maShort := indicator.SMA(closes, s.cfg.MAShort)
	maLong := indicator.SMA(closes, s.cfg.MALong)

	n := len(closes)
	currShort, currLong := maShort[n-1], maLong[n-1]
	prevShort, prevLong := maShort[n-2], maLong[n-2]

	required := []struct {
		name  string
		value float64
	}{
		{"rsi", rsi},
		{"atr", atr},
		{"ma_short", currShort},
		{"ma_long", currLong},
	}
	for _, r := range required {
		if !indicator.Defined(r.value) {
			return core.NoSignal(), core.WrapError(core.ErrInsufficientHistory,
				fmt.Errorf("%s undefined on last bar", r.name))
		}
	}

	var bullish, bearish bool
	switch s.cfg.Mode {
	case strategy.ModeCrossover:
		if !indicator.Defined(prevShort) || !indicator.Defined(prevLong) {
			return core.NoSignal(), core.WrapError(core.ErrInsufficientHistory,
				fmt.Errorf("moving averages undefined on previous bar"))
		}
		bullish = prevShort <= prevLong && currShort > currLong
		bearish = prevShort >= prevLong && currShort < currLong
	default:
		bullish = currShort > currLong
		bearish = currShort < currLong
	}

	// Buy: uptrend and RSI oversold
	if bullish && rsi < s.cfg.RSIOversold {
		return core.Signal{
			Direction: core.DirectionLong,
			ATR:       atr,
			Reason:    fmt.Sprintf("MA%d (%.5f) above MA%d (%.5f), RSI %.2f oversold", s.cfg.MAShort, currShort, s.cfg.MALong, currLong, rsi),
		}, nil
	}

	// Sell: downtrend and RSI overbought
	if bearish && rsi > s.cfg.RSIOverbought {
		return core.Signal{
			Direction: core.DirectionShort,
			ATR:       atr,
			Reason:    fmt.Sprintf("MA%d (%.5f) below MA%d (%.5f), RSI %.2f overbought", s.cfg.MAShort, currShort, s.cfg.MALong, currLong, rsi),
		}, nil
	}

	return core.NoSignal(), nil
}
