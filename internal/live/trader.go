// Package live scans instruments with the backtested strategy and places a
// single order on the first actionable signal.
package live

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newthinker/fxsim/internal/broker"
	"github.com/newthinker/fxsim/internal/core"
	"github.com/newthinker/fxsim/internal/notifier"
	"github.com/newthinker/fxsim/internal/risk"
	"github.com/newthinker/fxsim/internal/strategy"
	"go.uber.org/zap"
)

// BarFeed supplies the most recent bars of an instrument
type BarFeed interface {
	LatestBars(ctx context.Context, symbol string, n int) ([]core.Bar, error)
}

// Notifier delivers messages to every configured channel
type Notifier interface {
	NotifyAll(ctx context.Context, msg notifier.Message) map[string]error
}

// OrderRecorder receives live order outcomes
type OrderRecorder interface {
	RecordOrder(symbol, status string)
}

// Config holds scan settings
type Config struct {
	Symbols []string
	Bars    int // bars fetched per instrument
}

// Outcome summarises one scan
type Outcome struct {
	Order    *broker.Order // nil when nothing was executed
	Scanned  int
	Attempts []JournalEntry
}

// Trader runs one scan over the configured instruments.
type Trader struct {
	cfg      Config
	broker   broker.Broker
	feed     BarFeed
	strategy strategy.Strategy
	risk     *risk.Manager
	journal  *Journal
	notifier Notifier
	recorder OrderRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewTrader creates a Trader. Journal, notifier and recorder are optional.
func NewTrader(cfg Config, b broker.Broker, feed BarFeed, strat strategy.Strategy, rm *risk.Manager, logger *zap.Logger) *Trader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Bars < strat.RequiredBars() {
		cfg.Bars = strat.RequiredBars()
	}
	return &Trader{
		cfg:      cfg,
		broker:   b,
		feed:     feed,
		strategy: strat,
		risk:     rm,
		logger:   logger,
		now:      time.Now,
	}
}

// SetJournal attaches the order journal
func (t *Trader) SetJournal(j *Journal) { t.journal = j }

// SetNotifier attaches the notification fan-out
func (t *Trader) SetNotifier(n Notifier) { t.notifier = n }

// SetRecorder attaches a metrics recorder
func (t *Trader) SetRecorder(r OrderRecorder) { t.recorder = r }

// Run connects to the broker, scans the symbols in order and stops after the
// first successfully placed order. Failed orders are journaled and the scan
// moves on to the next symbol.
func (t *Trader) Run(ctx context.Context) (*Outcome, error) {
	if len(t.cfg.Symbols) == 0 {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("no symbols to scan"))
	}

	if err := t.broker.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", t.broker.Name(), err)
	}
	defer func() {
		if err := t.broker.Disconnect(); err != nil {
			t.logger.Warn("disconnect failed", zap.Error(err))
		}
	}()

	balance, err := t.broker.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading balance: %w", err)
	}

	t.logger.Info("scanning symbols for a signal",
		zap.Int("symbols", len(t.cfg.Symbols)),
		zap.Float64("balance", balance),
		zap.String("strategy", t.strategy.Name()),
	)

	outcome := &Outcome{}
	for _, symbol := range t.cfg.Symbols {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		outcome.Scanned++

		req, ok := t.prepare(ctx, symbol, balance)
		if !ok {
			continue
		}

		order, err := t.broker.PlaceOrder(ctx, req)
		entry := JournalEntry{
			Timestamp:  t.now(),
			Symbol:     symbol,
			Direction:  string(req.Side),
			Lot:        req.Lots,
			Entry:      req.Price,
			StopLoss:   req.StopLoss,
			TakeProfit: req.TakeProfit,
		}
		if err != nil {
			entry.Result = ResultFailed
			entry.Error = err.Error()
			t.record(entry)
			outcome.Attempts = append(outcome.Attempts, entry)
			t.notify(ctx, notifier.OrderFailed(req, err))
			t.logger.Error("order failed, continuing scan", zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		entry.Result = ResultExecuted
		entry.OrderID = order.OrderID
		t.record(entry)
		outcome.Attempts = append(outcome.Attempts, entry)
		outcome.Order = order
		t.notify(ctx, notifier.OrderExecuted(*order))
		t.logger.Info("order executed",
			zap.String("symbol", symbol),
			zap.String("side", string(order.Side)),
			zap.Float64("lots", order.Lots),
			zap.Float64("price", order.FillPrice),
			zap.Float64("sl", order.StopLoss),
			zap.Float64("tp", order.TakeProfit),
			zap.String("order_id", order.OrderID),
		)
		return outcome, nil
	}

	t.logger.Info("scan complete, no order placed", zap.Int("scanned", outcome.Scanned))
	return outcome, nil
}

// prepare turns the latest bars of symbol into an order request. ok is
// false when there is nothing to trade.
func (t *Trader) prepare(ctx context.Context, symbol string, balance float64) (broker.OrderRequest, bool) {
	log := t.logger.With(zap.String("symbol", symbol))

	bars, err := t.feed.LatestBars(ctx, symbol, t.cfg.Bars)
	if err != nil || len(bars) == 0 {
		log.Warn("could not get historical data, skipping", zap.Error(err))
		return broker.OrderRequest{}, false
	}

	sig, err := t.strategy.Generate(bars)
	if err != nil {
		log.Info("no signal", zap.Error(err))
		return broker.OrderRequest{}, false
	}
	if !sig.Actionable() {
		log.Info("no signal")
		return broker.OrderRequest{}, false
	}
	log.Info("signal found", zap.String("direction", sig.Direction.String()), zap.Float64("atr", sig.ATR), zap.String("reason", sig.Reason))

	price := bars[len(bars)-1].Close
	plan, err := t.risk.Plan(balance, price, sig)
	if err != nil {
		log.Warn("could not size trade, skipping", zap.Error(err))
		return broker.OrderRequest{}, false
	}

	return broker.OrderRequest{
		Symbol:     symbol,
		Side:       plan.Direction,
		Lots:       plan.Lots,
		Price:      plan.Entry,
		StopLoss:   plan.Levels.StopLoss,
		TakeProfit: plan.Levels.TakeProfit,
		Comment:    t.strategy.Name(),
	}, true
}

func (t *Trader) record(entry JournalEntry) {
	if t.recorder != nil {
		status := "filled"
		if entry.Result == ResultFailed {
			status = "failed"
		}
		t.recorder.RecordOrder(entry.Symbol, status)
	}
	if t.journal == nil {
		return
	}
	if err := t.journal.Record(entry); err != nil {
		t.logger.Warn("journal write failed", zap.String("symbol", entry.Symbol), zap.Error(err))
	}
}

func (t *Trader) notify(ctx context.Context, msg notifier.Message) {
	if t.notifier == nil {
		return
	}
	for name, err := range t.notifier.NotifyAll(ctx, msg) {
		t.logger.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
	}
}
