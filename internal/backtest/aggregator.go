package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/fxsim/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BarSource supplies the historical bars of one instrument
type BarSource interface {
	FetchBars(ctx context.Context, symbol string) ([]core.Bar, error)
}

// Recorder receives per-trade and per-instrument events of a run
type Recorder interface {
	RecordTrade(symbol, direction string, pnl float64)
	RecordSkippedInstrument(symbol, reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTrade(string, string, float64)    {}
func (nopRecorder) RecordSkippedInstrument(string, string) {}

// Aggregator runs independent simulations per instrument and merges them
// into a single account curve.
type Aggregator struct {
	source         BarSource
	simulator      *Simulator
	initialBalance float64
	workers        int
	recorder       Recorder
	logger         *zap.Logger
}

// NewAggregator creates a new Aggregator. workers bounds the number of
// concurrent instrument passes; values below 1 run them one at a time.
func NewAggregator(source BarSource, sim *Simulator, initialBalance float64, workers int, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{
		source:         source,
		simulator:      sim,
		initialBalance: initialBalance,
		workers:        workers,
		recorder:       nopRecorder{},
		logger:         logger,
	}
}

// SetRecorder attaches a metrics recorder
func (a *Aggregator) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	a.recorder = r
}

type pass struct {
	result  *Result
	loaded  bool
	skipped string
}

// Run simulates every symbol and returns the merged report. Instruments
// without data are skipped; the run fails only when no instrument could be
// loaded at all or the context is cancelled. Files that load but hold no
// bars count as loaded and yield an empty report.
func (a *Aggregator) Run(ctx context.Context, symbols []string) (*Report, error) {
	if len(symbols) == 0 {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("no symbols to backtest"))
	}

	start := time.Now()
	runID := uuid.NewString()
	log := a.logger.With(zap.String("run_id", runID))
	log.Info("starting multi-symbol backtest",
		zap.Strings("symbols", symbols),
		zap.String("strategy", a.simulator.Strategy().Name()),
		zap.Float64("initial_balance", a.initialBalance),
	)

	passes := make([]pass, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			p, err := a.runSymbol(gctx, log, symbol)
			if err != nil {
				return err
			}
			passes[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge only after every pass has finished
	report := &Report{
		RunID:          runID,
		Strategy:       a.simulator.Strategy().Name(),
		Symbols:        symbols,
		InitialBalance: a.initialBalance,
	}
	var perSymbol [][]core.Trade
	loaded := 0
	for i, p := range passes {
		if p.loaded {
			loaded++
		}
		if p.result == nil {
			report.Skipped = append(report.Skipped, SkippedInstrument{Symbol: symbols[i], Reason: p.skipped})
			continue
		}
		report.Results = append(report.Results, p.result)
		perSymbol = append(perSymbol, p.result.Trades)
	}

	if loaded == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data for any of %d symbols", len(symbols)))
	}

	report.Trades = MergeTrades(a.initialBalance, perSymbol)
	report.Stats = CalculateStats(a.initialBalance, report.Trades)
	report.Duration = time.Since(start)

	if len(report.Trades) == 0 {
		log.Warn("no trades were generated across any symbols")
	}
	log.Info("backtest complete",
		zap.Int("trades", len(report.Trades)),
		zap.Int("symbols", len(report.Results)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Float64("final_balance", report.FinalBalance()),
		zap.Duration("duration", report.Duration),
	)

	return report, nil
}

func (a *Aggregator) runSymbol(ctx context.Context, log *zap.Logger, symbol string) (pass, error) {
	bars, err := a.source.FetchBars(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return pass{}, ctx.Err()
		}
		reason := "error"
		if errors.Is(err, core.ErrMissingDataSource) {
			reason = "missing"
		}
		log.Warn("could not load historical data, skipping", zap.String("symbol", symbol), zap.Error(err))
		a.recorder.RecordSkippedInstrument(symbol, reason)
		return pass{skipped: err.Error()}, nil
	}
	if len(bars) == 0 {
		log.Warn("historical data is empty, skipping", zap.String("symbol", symbol))
		a.recorder.RecordSkippedInstrument(symbol, "empty")
		return pass{loaded: true, skipped: "empty data"}, nil
	}

	result, err := a.simulator.Run(ctx, symbol, bars, a.initialBalance)
	if err != nil {
		return pass{}, fmt.Errorf("simulating %s: %w", symbol, err)
	}
	for _, t := range result.Trades {
		a.recorder.RecordTrade(symbol, t.Direction.String(), t.PnL)
	}

	log.Info("symbol backtest complete",
		zap.String("symbol", symbol),
		zap.Int("bars", result.Bars),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("final_balance", result.FinalBalance),
	)
	return pass{result: result, loaded: true}, nil
}

// MergeTrades interleaves per-instrument trade lists by emission index (the
// n-th trade of every instrument precedes the n+1-th of any), ties going to
// instrument order, and recomputes BalanceAfter as initialBalance plus the
// running PnL of the merged sequence. Inputs are not modified.
func MergeTrades(initialBalance float64, perSymbol [][]core.Trade) []core.Trade {
	type indexed struct {
		seq   int
		trade core.Trade
	}

	var all []indexed
	for _, trades := range perSymbol {
		for seq, t := range trades {
			all = append(all, indexed{seq: seq, trade: t})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].seq < all[j].seq
	})

	merged := make([]core.Trade, len(all))
	balance := initialBalance
	for i, it := range all {
		balance += it.trade.PnL
		it.trade.BalanceAfter = balance
		merged[i] = it.trade
	}
	return merged
}
