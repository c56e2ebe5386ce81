package backtest

import (
	"math"

	"github.com/newthinker/fxsim/internal/core"
)

// CalculateStats computes performance statistics from a merged trade sequence
func CalculateStats(initialBalance float64, trades []core.Trade) Stats {
	if len(trades) == 0 {
		return Stats{FinalBalance: initialBalance}
	}

	var winning, losing int
	var grossProfit, grossLoss float64
	returns := make([]float64, 0, len(trades))
	curve := make([]float64, 0, len(trades)+1)
	curve = append(curve, initialBalance)

	balance := initialBalance
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			winning++
			grossProfit += t.PnL
		case t.PnL < 0:
			losing++
			grossLoss += -t.PnL
		}
		if balance != 0 {
			returns = append(returns, t.PnL/balance)
		}
		balance += t.PnL
		curve = append(curve, balance)
	}

	profitFactor := math.Inf(1)
	if grossLoss > 0 {
		profitFactor = grossProfit / grossLoss
	}

	return Stats{
		TotalTrades:   len(trades),
		WinningTrades: winning,
		LosingTrades:  losing,
		WinRate:       float64(winning) / float64(len(trades)) * 100,
		TotalPnL:      grossProfit - grossLoss,
		GrossProfit:   grossProfit,
		GrossLoss:     grossLoss,
		ProfitFactor:  profitFactor,
		MaxDrawdown:   calculateMaxDrawdown(curve) * 100,
		SharpeRatio:   calculateSharpeRatio(returns),
		FinalBalance:  balance,
	}
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of a balance curve
func calculateMaxDrawdown(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}

	var maxDD float64
	peak := curve[0]

	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

// calculateSharpeRatio computes the per-trade risk-adjusted return.
// Assumes risk-free rate of 0; bars have no fixed calendar so it is not annualized.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}

	return mean / stdDev
}
