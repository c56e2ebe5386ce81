package core

import (
	"math"
	"time"
)

// Bar represents a single OHLC candle of a historical series
type Bar struct {
	Time       time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64 // tick volume
	Spread     int64
	RealVolume int64
}

// Direction represents the side of a signal or trade
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionLong  Direction = "buy"
	DirectionShort Direction = "sell"
)

// IsTradable reports whether the direction opens a position
func (d Direction) IsTradable() bool {
	return d == DirectionLong || d == DirectionShort
}

func (d Direction) String() string {
	if d == DirectionNone {
		return "none"
	}
	return string(d)
}

// Signal is the output of a strategy for one window of bars.
// ATR is NaN when unavailable.
type Signal struct {
	Direction Direction
	ATR       float64
	Reason    string
}

// NoSignal returns a signal with no direction and no ATR
func NoSignal() Signal {
	return Signal{Direction: DirectionNone, ATR: math.NaN()}
}

// HasATR reports whether the signal carries a usable ATR value
func (s Signal) HasATR() bool {
	return !math.IsNaN(s.ATR) && s.ATR > 0
}

// Actionable reports whether a trade may be opened from this signal
func (s Signal) Actionable() bool {
	return s.Direction.IsTradable() && s.HasATR()
}

// RiskLevels holds the protective price levels of a position
type RiskLevels struct {
	StopLoss   float64
	TakeProfit float64
}

// ExitReason describes how a simulated trade was closed
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitClose      ExitReason = "close"
)

// Trade is a realized simulated trade
type Trade struct {
	Symbol       string
	EntryTime    time.Time
	Direction    Direction
	EntryPrice   float64
	LotSize      float64
	StopLoss     float64
	TakeProfit   float64
	ExitPrice    float64
	ExitReason   ExitReason
	PnLPips      float64
	PnL          float64 // account currency
	BalanceAfter float64
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.PnL > 0
}
