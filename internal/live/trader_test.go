package live

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/fxsim/internal/broker"
	"github.com/newthinker/fxsim/internal/broker/paper"
	"github.com/newthinker/fxsim/internal/core"
	"github.com/newthinker/fxsim/internal/notifier"
	"github.com/newthinker/fxsim/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedStrategy signals per symbol, keyed by the last bar's close
type fixedStrategy struct {
	signals map[float64]core.Signal
}

func (s *fixedStrategy) Name() string        { return "fixed" }
func (s *fixedStrategy) Description() string { return "fixed signals" }
func (s *fixedStrategy) RequiredBars() int   { return 2 }

func (s *fixedStrategy) Generate(window []core.Bar) (core.Signal, error) {
	if len(window) < 2 {
		return core.NoSignal(), core.ErrInsufficientHistory
	}
	if sig, ok := s.signals[window[len(window)-1].Close]; ok {
		return sig, nil
	}
	return core.NoSignal(), nil
}

type mapFeed map[string][]core.Bar

func (f mapFeed) LatestBars(ctx context.Context, symbol string, n int) ([]core.Bar, error) {
	bars, ok := f[symbol]
	if !ok {
		return nil, core.ErrMissingDataSource
	}
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

type captureNotifier struct {
	messages []notifier.Message
}

func (c *captureNotifier) NotifyAll(ctx context.Context, msg notifier.Message) map[string]error {
	c.messages = append(c.messages, msg)
	return nil
}

type orderCounter map[string]int

func (o orderCounter) RecordOrder(symbol, status string) { o[symbol+"/"+status]++ }

func series(closes ...float64) []core.Bar {
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{
			Time:  time.Date(2024, 3, 1, 0, 15*i, 0, 0, time.UTC),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	return bars
}

func newTestTrader(t *testing.T, symbols []string, feed BarFeed, strat *fixedStrategy, b broker.Broker) *Trader {
	t.Helper()
	return NewTrader(Config{Symbols: symbols, Bars: 100}, b, feed, strat, risk.NewManager(risk.DefaultConfig()), nil)
}

func TestTrader_FirstSignalPlacesOrder(t *testing.T) {
	feed := mapFeed{
		"EURUSD": series(1.1, 1.1),
		"GBPUSD": series(1.27, 1.25),
		"USDJPY": series(150, 151),
	}
	strat := &fixedStrategy{signals: map[float64]core.Signal{
		1.25: {Direction: core.DirectionShort, ATR: 0.001},
		151:  {Direction: core.DirectionLong, ATR: 0.1},
	}}
	b := paper.New(10000)
	capture := &captureNotifier{}
	counter := orderCounter{}

	trader := newTestTrader(t, []string{"EURUSD", "GBPUSD", "USDJPY"}, feed, strat, b)
	trader.SetNotifier(capture)
	trader.SetRecorder(counter)

	outcome, err := trader.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, outcome.Order)
	assert.Equal(t, "GBPUSD", outcome.Order.Symbol)
	assert.Equal(t, core.DirectionShort, outcome.Order.Side)
	assert.InDelta(t, 1.252, outcome.Order.StopLoss, 1e-9)
	assert.InDelta(t, 1.247, outcome.Order.TakeProfit, 1e-9)
	assert.InDelta(t, 0.5, outcome.Order.Lots, 1e-9)
	assert.Equal(t, 2, outcome.Scanned, "scan stops after the first executed order")

	assert.Len(t, b.Orders(), 1)
	assert.False(t, b.IsConnected(), "broker is disconnected after the scan")
	require.Len(t, capture.messages, 1)
	assert.Equal(t, notifier.KindOrderExecuted, capture.messages[0].Kind)
	assert.Equal(t, 1, counter["GBPUSD/filled"])
}

func TestTrader_FailedOrderContinuesScan(t *testing.T) {
	feed := mapFeed{
		"EURUSD": series(1.1, 1.2),
		"GBPUSD": series(1.27, 1.25),
	}
	strat := &fixedStrategy{signals: map[float64]core.Signal{
		1.2:  {Direction: core.DirectionLong, ATR: 0.001},
		1.25: {Direction: core.DirectionShort, ATR: 0.001},
	}}
	b := &flakyBroker{Broker: paper.New(10000), failSymbol: "EURUSD"}
	capture := &captureNotifier{}

	journalPath := filepath.Join(t.TempDir(), "logs", "trades.jsonl")
	journal, err := OpenJournal(journalPath)
	require.NoError(t, err)

	trader := newTestTrader(t, []string{"EURUSD", "GBPUSD"}, feed, strat, b)
	trader.SetNotifier(capture)
	trader.SetJournal(journal)

	outcome, err := trader.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, journal.Close())

	require.NotNil(t, outcome.Order)
	assert.Equal(t, "GBPUSD", outcome.Order.Symbol)
	require.Len(t, outcome.Attempts, 2)
	assert.Equal(t, ResultFailed, outcome.Attempts[0].Result)
	assert.NotEmpty(t, outcome.Attempts[0].Error)
	assert.Equal(t, ResultExecuted, outcome.Attempts[1].Result)

	require.Len(t, capture.messages, 2)
	assert.Equal(t, notifier.KindOrderFailed, capture.messages[0].Kind)
	assert.Equal(t, notifier.KindOrderExecuted, capture.messages[1].Kind)

	entries := readJournal(t, journalPath)
	require.Len(t, entries, 2)
	assert.Equal(t, "EURUSD", entries[0].Symbol)
	assert.Equal(t, "buy", entries[0].Direction)
	assert.Equal(t, ResultFailed, entries[0].Result)
	assert.Equal(t, outcome.Order.OrderID, entries[1].OrderID)
}

func TestTrader_NoSignal(t *testing.T) {
	feed := mapFeed{"EURUSD": series(1.1, 1.1)}
	b := paper.New(10000)

	trader := newTestTrader(t, []string{"EURUSD", "AUDUSD"}, feed, &fixedStrategy{}, b)
	outcome, err := trader.Run(context.Background())
	require.NoError(t, err)

	assert.Nil(t, outcome.Order)
	assert.Equal(t, 2, outcome.Scanned)
	assert.Empty(t, outcome.Attempts)
	assert.Empty(t, b.Orders())
}

func TestTrader_SkipsSignalWithoutATR(t *testing.T) {
	feed := mapFeed{"EURUSD": series(1.1, 1.2)}
	strat := &fixedStrategy{signals: map[float64]core.Signal{
		1.2: {Direction: core.DirectionLong, ATR: 0},
	}}
	b := paper.New(10000)

	outcome, err := newTestTrader(t, []string{"EURUSD"}, feed, strat, b).Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, outcome.Order)
	assert.Empty(t, b.Orders())
}

func TestTrader_NoSymbols(t *testing.T) {
	_, err := newTestTrader(t, nil, mapFeed{}, &fixedStrategy{}, paper.New(10000)).Run(context.Background())
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestTrader_BarsRaisedToStrategyRequirement(t *testing.T) {
	trader := NewTrader(Config{Symbols: []string{"EURUSD"}, Bars: 1}, paper.New(1), mapFeed{}, &fixedStrategy{}, risk.NewManager(risk.DefaultConfig()), nil)
	assert.Equal(t, 2, trader.cfg.Bars)
}

// flakyBroker rejects orders for one symbol
type flakyBroker struct {
	*paper.Broker
	failSymbol string
}

func (f *flakyBroker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	if req.Symbol == f.failSymbol {
		return nil, core.WrapError(core.ErrOrderFailed, os.ErrDeadlineExceeded)
	}
	return f.Broker.PlaceOrder(ctx, req)
}

func readJournal(t *testing.T, path string) []JournalEntry {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var entries []JournalEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e JournalEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	return entries
}
