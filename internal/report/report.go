// Package report renders backtest results as a CSV artifact and as a text summary.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/newthinker/fxsim/internal/backtest"
	"github.com/newthinker/fxsim/internal/core"
	"github.com/newthinker/fxsim/internal/storage/archive"
)

// DefaultPath is where results are written when no path is configured
const DefaultPath = "logs/backtest_results.csv"

// Header is the column row of the results CSV
var Header = []string{"signal", "price", "lot", "pnl", "balance", "symbol"}

// EncodeTrades renders trades as CSV. The header row is always present.
func EncodeTrades(trades []core.Trade) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, t := range trades {
		record := []string{
			string(t.Direction),
			formatFloat(t.EntryPrice),
			formatFloat(t.LotSize),
			formatFloat(t.PnL),
			formatFloat(t.BalanceAfter),
			t.Symbol,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Writer persists results CSV files to an archive store
type Writer struct {
	store archive.Storage
	path  string
}

// NewWriter creates a Writer targeting path, or DefaultPath when empty
func NewWriter(store archive.Storage, path string) *Writer {
	if path == "" {
		path = DefaultPath
	}
	return &Writer{store: store, path: path}
}

// Path returns the destination of the results file
func (w *Writer) Path() string {
	return w.path
}

// Write stores the merged trades, replacing any previous file
func (w *Writer) Write(ctx context.Context, trades []core.Trade) error {
	data, err := EncodeTrades(trades)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := w.store.Write(ctx, w.path, data); err != nil {
		return fmt.Errorf("writing %s: %w", w.path, err)
	}
	return nil
}

// Summary renders the run's KPIs as plain text
func Summary(r *backtest.Report) string {
	s := r.Stats
	var b strings.Builder

	fmt.Fprintf(&b, "Backtest %s (%s)\n", r.RunID, r.Strategy)
	fmt.Fprintf(&b, "Symbols:         %s\n", strings.Join(simulated(r), ", "))
	if len(r.Skipped) > 0 {
		skipped := make([]string, len(r.Skipped))
		for i, sk := range r.Skipped {
			skipped[i] = sk.Symbol
		}
		fmt.Fprintf(&b, "Skipped:         %s\n", strings.Join(skipped, ", "))
	}
	fmt.Fprintf(&b, "Trades:          %d (%d won, %d lost)\n", s.TotalTrades, s.WinningTrades, s.LosingTrades)
	fmt.Fprintf(&b, "Win rate:        %.2f%%\n", s.WinRate)
	fmt.Fprintf(&b, "Total PnL:       %.2f\n", s.TotalPnL)
	fmt.Fprintf(&b, "Profit factor:   %s\n", formatRatio(s.ProfitFactor))
	fmt.Fprintf(&b, "Max drawdown:    %.2f%%\n", s.MaxDrawdown)
	fmt.Fprintf(&b, "Sharpe (trade):  %.2f\n", s.SharpeRatio)
	fmt.Fprintf(&b, "Initial balance: %.2f\n", r.InitialBalance)
	fmt.Fprintf(&b, "Final balance:   %.2f\n", r.FinalBalance())
	return b.String()
}

func simulated(r *backtest.Report) []string {
	out := make([]string, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Symbol
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
