package backtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/fxsim/internal/core"
	"github.com/newthinker/fxsim/internal/risk"
	"github.com/newthinker/fxsim/internal/strategy"
	"go.uber.org/zap"
)

// Simulator replays one instrument's bars through a strategy and risk
// manager. Each signal found on the window ending at bar i-1 is resolved
// against bar i alone.
type Simulator struct {
	strategy strategy.Strategy
	risk     *risk.Manager
	lookback int
	logger   *zap.Logger
}

// NewSimulator creates a Simulator. A lookback shorter than the strategy's
// requirement is raised to it.
func NewSimulator(strat strategy.Strategy, rm *risk.Manager, lookback int, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookback < strat.RequiredBars() {
		lookback = strat.RequiredBars()
	}
	return &Simulator{
		strategy: strat,
		risk:     rm,
		lookback: lookback,
		logger:   logger,
	}
}

// Lookback returns the window length used for each signal evaluation
func (s *Simulator) Lookback() int {
	return s.lookback
}

// Strategy returns the strategy driving the simulation
func (s *Simulator) Strategy() strategy.Strategy {
	return s.strategy
}

// Run simulates symbol over bars, which must be ascending by time.
// The balance is private to this call.
func (s *Simulator) Run(ctx context.Context, symbol string, bars []core.Bar, initialBalance float64) (*Result, error) {
	result := &Result{
		Symbol:         symbol,
		Strategy:       s.strategy.Name(),
		Bars:           len(bars),
		InitialBalance: initialBalance,
		FinalBalance:   initialBalance,
	}
	if len(bars) > 0 {
		result.StartDate = bars[0].Time
		result.EndDate = bars[len(bars)-1].Time
	}

	balance := initialBalance

	// The last bar only ever serves as a resolution bar
	for i := s.lookback; i < len(bars)-1; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		window := bars[i-s.lookback : i]
		trade, ok, err := s.evaluate(symbol, window, bars[i], balance)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		balance += trade.PnL
		trade.BalanceAfter = balance
		result.Trades = append(result.Trades, trade)

		s.logger.Debug("trade",
			zap.String("symbol", symbol),
			zap.String("direction", trade.Direction.String()),
			zap.Time("entry_time", trade.EntryTime),
			zap.Float64("entry", trade.EntryPrice),
			zap.Float64("exit", trade.ExitPrice),
			zap.String("exit_reason", string(trade.ExitReason)),
			zap.Float64("lots", trade.LotSize),
			zap.Float64("pnl", trade.PnL),
		)
	}

	result.FinalBalance = balance
	return result, nil
}

// evaluate runs one SCANNING -> RECORDED cycle. ok is false when the bar is
// skipped; err is only set for failures that must abort the pass.
func (s *Simulator) evaluate(symbol string, window []core.Bar, resolution core.Bar, balance float64) (core.Trade, bool, error) {
	sig, err := s.strategy.Generate(window)
	if err != nil {
		if errors.Is(err, core.ErrInsufficientHistory) {
			return core.Trade{}, false, nil
		}
		return core.Trade{}, false, fmt.Errorf("%s: generating signal: %w", symbol, err)
	}
	if !sig.Direction.IsTradable() {
		return core.Trade{}, false, nil
	}

	signalBar := window[len(window)-1]
	plan, err := s.risk.Plan(balance, signalBar.Close, sig)
	if err != nil {
		if errors.Is(err, core.ErrInvalidRiskInputs) {
			s.logger.Debug("skipping signal", zap.String("symbol", symbol), zap.Time("time", signalBar.Time), zap.Error(err))
			return core.Trade{}, false, nil
		}
		return core.Trade{}, false, err
	}

	exit, reason := Resolve(plan.Direction, plan.Levels, resolution)
	pips, amount := s.risk.PnL(plan, exit)

	return core.Trade{
		Symbol:     symbol,
		EntryTime:  signalBar.Time,
		Direction:  plan.Direction,
		EntryPrice: plan.Entry,
		LotSize:    plan.Lots,
		StopLoss:   plan.Levels.StopLoss,
		TakeProfit: plan.Levels.TakeProfit,
		ExitPrice:  exit,
		ExitReason: reason,
		PnLPips:    pips,
		PnL:        amount,
	}, true, nil
}

// Resolve determines the exit of a position over a single bar. The stop is
// checked first, so a bar that touches both levels exits at the stop.
func Resolve(direction core.Direction, levels core.RiskLevels, bar core.Bar) (float64, core.ExitReason) {
	switch direction {
	case core.DirectionLong:
		if bar.Low <= levels.StopLoss {
			return levels.StopLoss, core.ExitStopLoss
		}
		if bar.High >= levels.TakeProfit {
			return levels.TakeProfit, core.ExitTakeProfit
		}
	case core.DirectionShort:
		if bar.High >= levels.StopLoss {
			return levels.StopLoss, core.ExitStopLoss
		}
		if bar.Low <= levels.TakeProfit {
			return levels.TakeProfit, core.ExitTakeProfit
		}
	}
	return bar.Close, core.ExitClose
}
