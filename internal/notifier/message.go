package notifier

import (
	"fmt"
	"time"

	"github.com/newthinker/fxsim/internal/backtest"
	"github.com/newthinker/fxsim/internal/broker"
	"github.com/newthinker/fxsim/internal/report"
)

// OrderExecuted announces a filled order
func OrderExecuted(order broker.Order) Message {
	return Message{
		Kind:  KindOrderExecuted,
		Title: fmt.Sprintf("✅ Order executed: %s %s", order.Side, order.Symbol),
		Text: fmt.Sprintf("Lots: %.2f\nEntry: %.5f\nSL: %.5f\nTP: %.5f\nOrder: %s",
			order.Lots, order.FillPrice, order.StopLoss, order.TakeProfit, order.OrderID),
		Fields: map[string]any{
			"order_id":    order.OrderID,
			"symbol":      order.Symbol,
			"side":        string(order.Side),
			"lots":        order.Lots,
			"price":       order.FillPrice,
			"stop_loss":   order.StopLoss,
			"take_profit": order.TakeProfit,
		},
		Time: time.Now(),
	}
}

// OrderFailed announces a rejected order
func OrderFailed(req broker.OrderRequest, err error) Message {
	return Message{
		Kind:  KindOrderFailed,
		Title: fmt.Sprintf("❌ Order failed: %s %s", req.Side, req.Symbol),
		Text:  fmt.Sprintf("Lots: %.2f\nEntry: %.5f\nError: %v", req.Lots, req.Price, err),
		Fields: map[string]any{
			"symbol": req.Symbol,
			"side":   string(req.Side),
			"lots":   req.Lots,
			"price":  req.Price,
			"error":  err.Error(),
		},
		Time: time.Now(),
	}
}

// BacktestSummary announces the KPIs of a finished run
func BacktestSummary(r *backtest.Report) Message {
	return Message{
		Kind:  KindBacktestSummary,
		Title: "📊 Backtest finished",
		Text:  report.Summary(r),
		Fields: map[string]any{
			"run_id":        r.RunID,
			"strategy":      r.Strategy,
			"trades":        r.Stats.TotalTrades,
			"win_rate":      r.Stats.WinRate,
			"total_pnl":     r.Stats.TotalPnL,
			"final_balance": r.FinalBalance(),
		},
		Time: time.Now(),
	}
}

// CriticalError announces a failure that stopped a command
func CriticalError(operation string, err error) Message {
	return Message{
		Kind:  KindError,
		Title: fmt.Sprintf("🚨 %s failed", operation),
		Text:  err.Error(),
		Fields: map[string]any{
			"operation": operation,
			"error":     err.Error(),
		},
		Time: time.Now(),
	}
}
