package backtest

import (
	"time"

	"github.com/newthinker/fxsim/internal/core"
)

// Result holds the output of one single-instrument simulation pass
type Result struct {
	Symbol         string
	Strategy       string
	StartDate      time.Time
	EndDate        time.Time
	Bars           int
	Trades         []core.Trade
	InitialBalance float64
	FinalBalance   float64
}

// Report holds the merged output of a multi-instrument run
type Report struct {
	RunID          string
	Strategy       string
	Symbols        []string
	Skipped        []SkippedInstrument
	Results        []*Result // per simulated instrument, in symbol order
	Trades         []core.Trade
	InitialBalance float64
	Stats          Stats
	Duration       time.Duration
}

// SkippedInstrument records an instrument that produced no simulation pass
type SkippedInstrument struct {
	Symbol string
	Reason string
}

// FinalBalance returns the account balance after the last merged trade
func (r *Report) FinalBalance() float64 {
	if len(r.Trades) == 0 {
		return r.InitialBalance
	}
	return r.Trades[len(r.Trades)-1].BalanceAfter
}

// Stats holds performance statistics
type Stats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // Percentage of profitable trades
	TotalPnL      float64
	GrossProfit   float64
	GrossLoss     float64 // positive magnitude of losing trades
	ProfitFactor  float64 // +Inf when there are no losses
	MaxDrawdown   float64 // Largest peak-to-trough decline of the balance curve, percent
	SharpeRatio   float64 // Mean over stddev of per-trade returns, not annualized
	FinalBalance  float64
}
