package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/newthinker/fxsim/internal/broker/paper"
	"github.com/newthinker/fxsim/internal/feed"
	"github.com/newthinker/fxsim/internal/live"
	"github.com/newthinker/fxsim/internal/metrics"
	"github.com/newthinker/fxsim/internal/notifier"
	"github.com/newthinker/fxsim/internal/risk"
	"github.com/newthinker/fxsim/internal/storage/archive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Scan symbols and place one order on the first signal",
	Long: `Connect to the configured broker, evaluate the latest bars of each symbol
with the backtested strategy and risk rules, and place a single order on the
first actionable signal. Every attempt is journaled and announced.`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
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

	store, err := archive.New(cfg.ArchiveParams())
	if err != nil {
		return fmt.Errorf("creating storage: %w", err)
	}

	strat, err := selectStrategy(cfg, log)
	if err != nil {
		return err
	}

	journal, err := live.OpenJournal(cfg.Broker.JournalPath)
	if err != nil {
		return err
	}
	defer journal.Close()

	trader := live.NewTrader(
		live.Config{Symbols: cfg.Backtest.Symbols, Bars: cfg.Broker.Bars},
		paper.New(cfg.Broker.Balance),
		feed.NewCSVSource(store, cfg.Data.Prefix, cfg.Backtest.Timeframe, log),
		strat,
		risk.NewManager(cfg.RiskParams()),
		log,
	)
	trader.SetJournal(journal)
	trader.SetNotifier(notifiers)
	trader.SetRecorder(reg)

	outcome, err := trader.Run(ctx)
	if err != nil {
		log.Error("live scan failed", zap.Error(err))
		notifyAll(context.WithoutCancel(ctx), notifiers, reg, log, notifier.CriticalError("live trading", err))
		return err
	}

	if outcome.Order == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d symbols, no order placed\n", outcome.Scanned)
		return nil
	}
	o := outcome.Order
	fmt.Fprintf(cmd.OutOrStdout(), "Order %s: %s %.2f lots %s at %.5f (SL %.5f, TP %.5f)\n",
		o.OrderID, o.Side, o.Lots, o.Symbol, o.FillPrice, o.StopLoss, o.TakeProfit)
	return nil
}
