package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all Prometheus metrics of a command run. Runs are batch
// jobs, so the registry is exported as a node-exporter textfile rather than
// scraped.
type Registry struct {
	*prometheus.Registry

	backtestsTotal     *prometheus.CounterVec
	backtestDuration   prometheus.Histogram
	tradesTotal        *prometheus.CounterVec
	tradePnL           *prometheus.GaugeVec
	skippedInstruments *prometheus.CounterVec
	ordersTotal        *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	lastRunTimestamp   prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{Registry: reg}

	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxsim_backtests_total",
			Help: "Total number of backtest runs",
		},
		[]string{"status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fxsim_backtest_duration_seconds",
			Help:    "Backtest duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)
	r.tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxsim_trades_total",
			Help: "Total number of simulated trades",
		},
		[]string{"symbol", "direction"},
	)
	r.tradePnL = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fxsim_trade_pnl",
			Help: "Cumulative simulated PnL in account currency",
		},
		[]string{"symbol"},
	)
	r.skippedInstruments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxsim_skipped_instruments_total",
			Help: "Instruments skipped for lack of usable data",
		},
		[]string{"symbol", "reason"},
	)
	r.ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxsim_live_orders_total",
			Help: "Total number of live order attempts",
		},
		[]string{"symbol", "status"},
	)
	r.notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxsim_notifications_total",
			Help: "Total number of notifications sent",
		},
		[]string{"notifier", "status"},
	)
	r.lastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fxsim_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		},
	)

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.tradePnL)
	reg.MustRegister(r.skippedInstruments)
	reg.MustRegister(r.ordersTotal)
	reg.MustRegister(r.notificationsTotal)
	reg.MustRegister(r.lastRunTimestamp)

	return r
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
	r.lastRunTimestamp.SetToCurrentTime()
}

// RecordTrade records one simulated trade.
func (r *Registry) RecordTrade(symbol, direction string, pnl float64) {
	r.tradesTotal.WithLabelValues(symbol, direction).Inc()
	r.tradePnL.WithLabelValues(symbol).Add(pnl)
}

// RecordSkippedInstrument records an instrument left out of a run.
func (r *Registry) RecordSkippedInstrument(symbol, reason string) {
	r.skippedInstruments.WithLabelValues(symbol, reason).Inc()
}

// RecordOrder records a live order attempt.
func (r *Registry) RecordOrder(symbol, status string) {
	r.ordersTotal.WithLabelValues(symbol, status).Inc()
}

// RecordNotification records a notification delivery.
func (r *Registry) RecordNotification(notifier, status string) {
	r.notificationsTotal.WithLabelValues(notifier, status).Inc()
}

// WriteTextfile atomically writes all metrics in the text exposition format.
func (r *Registry) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
