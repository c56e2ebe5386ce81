package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/newthinker/fxsim/internal/backtest"
	"github.com/newthinker/fxsim/internal/config"
	"github.com/newthinker/fxsim/internal/core"
	"github.com/newthinker/fxsim/internal/feed"
	"github.com/newthinker/fxsim/internal/metrics"
	"github.com/newthinker/fxsim/internal/notifier"
	"github.com/newthinker/fxsim/internal/report"
	"github.com/newthinker/fxsim/internal/risk"
	"github.com/newthinker/fxsim/internal/storage/archive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backtestSymbols   string
	backtestTimeframe string
	backtestOutput    string
	backtestWorkers   int
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the strategy over historical bars",
	Long: `Simulate the strategy bar by bar for every configured symbol, merge the
trades into one account curve, write the results CSV and print the
performance statistics.`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbols, "symbols", "", "comma-separated symbols, or \"all\" for every bar file of the timeframe (overrides config)")
	backtestCmd.Flags().StringVar(&backtestTimeframe, "timeframe", "", "bar timeframe, e.g. M15 (overrides config)")
	backtestCmd.Flags().StringVarP(&backtestOutput, "output", "o", "", "results CSV path in the store (overrides config)")
	backtestCmd.Flags().IntVar(&backtestWorkers, "workers", 0, "concurrent instrument passes (overrides config)")

	rootCmd.AddCommand(backtestCmd)
}

func applyBacktestFlags(cfg *config.Config) {
	if backtestSymbols != "" {
		var symbols []string
		for _, s := range strings.Split(backtestSymbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
		cfg.Backtest.Symbols = symbols
	}
	if backtestTimeframe != "" {
		cfg.Backtest.Timeframe = backtestTimeframe
	}
	if backtestOutput != "" {
		cfg.Report.Path = backtestOutput
	}
	if backtestWorkers > 0 {
		cfg.Backtest.Workers = backtestWorkers
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(applyBacktestFlags)
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifiers, err := buildNotifiers(cfg)
	if err != nil {
		return err
	}
	reg := metrics.NewRegistry()
	defer writeMetrics(cfg, reg, log)

	start := time.Now()
	resultsPath := cfg.Report.Path
	if resultsPath == "" {
		resultsPath = report.DefaultPath
	}
	rep, err := executeBacktest(ctx, cfg, resultsPath, reg, log)
	if err != nil {
		reg.RecordBacktest("error", time.Since(start).Seconds())
		log.Error("backtest failed", zap.Error(err))
		notifyAll(context.WithoutCancel(ctx), notifiers, reg, log, notifier.CriticalError("backtest", err))
		return err
	}
	reg.RecordBacktest("success", time.Since(start).Seconds())

	fmt.Fprintln(cmd.OutOrStdout(), "=== fxsim Backtest ===")
	fmt.Fprint(cmd.OutOrStdout(), report.Summary(rep))
	fmt.Fprintf(cmd.OutOrStdout(), "Results:         %s\n", resultsPath)

	notifyAll(ctx, notifiers, reg, log, notifier.BacktestSummary(rep))
	return nil
}

// allSymbols expands to every instrument with a bar file in the store
const allSymbols = "ALL"

// resolveSymbols expands the "all" keyword into the instruments listed by source.
func resolveSymbols(ctx context.Context, source *feed.CSVSource, symbols []string) ([]string, error) {
	if len(symbols) != 1 || !strings.EqualFold(symbols[0], allSymbols) {
		return symbols, nil
	}
	found, err := source.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no bar files for %s", source.Path("*")))
	}
	return found, nil
}

// executeBacktest wires storage, data feed, strategy, risk and aggregator,
// runs every instrument and persists the merged results.
func executeBacktest(ctx context.Context, cfg *config.Config, resultsPath string, reg *metrics.Registry, log *zap.Logger) (*backtest.Report, error) {
	store, err := archive.New(cfg.ArchiveParams())
	if err != nil {
		return nil, fmt.Errorf("creating storage: %w", err)
	}

	source := feed.NewCSVSource(store, cfg.Data.Prefix, cfg.Backtest.Timeframe, log)
	strat, err := selectStrategy(cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("strategy selected", zap.String("strategy", strat.Name()), zap.String("params", strat.Description()))

	sim := backtest.NewSimulator(strat, risk.NewManager(cfg.RiskParams()), cfg.Backtest.Lookback, log)

	agg := backtest.NewAggregator(source, sim, cfg.Backtest.InitialBalance, cfg.Backtest.Workers, log)
	agg.SetRecorder(reg)

	symbols, err := resolveSymbols(ctx, source, cfg.Backtest.Symbols)
	if err != nil {
		return nil, err
	}

	rep, err := agg.Run(ctx, symbols)
	if err != nil {
		return nil, err
	}

	writer := report.NewWriter(store, resultsPath)
	if err := writer.Write(ctx, rep.Trades); err != nil {
		return nil, err
	}
	log.Info("results saved",
		zap.String("path", writer.Path()),
		zap.Int("trades", len(rep.Trades)),
		zap.Int("symbols", len(rep.Results)),
	)
	return rep, nil
}
