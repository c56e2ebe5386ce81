// Package feed loads historical bars from CSV files held in an archive store.
package feed

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/fxsim/internal/core"
	"github.com/newthinker/fxsim/internal/storage/archive"
	"go.uber.org/zap"
)

// Column names recognised in the header row
const (
	colTime       = "time"
	colOpen       = "open"
	colHigh       = "high"
	colLow        = "low"
	colClose      = "close"
	colTickVolume = "tick_volume"
	colVolume     = "volume"
	colSpread     = "spread"
	colRealVolume = "real_volume"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// CSVSource reads historical_<SYMBOL>_<TIMEFRAME>.csv files below prefix.
type CSVSource struct {
	store     archive.Storage
	prefix    string
	timeframe string
	logger    *zap.Logger
}

// NewCSVSource creates a CSVSource over store
func NewCSVSource(store archive.Storage, prefix, timeframe string, logger *zap.Logger) *CSVSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVSource{
		store:     store,
		prefix:    prefix,
		timeframe: timeframe,
		logger:    logger,
	}
}

// Path returns the object path of symbol's bar file
func (s *CSVSource) Path(symbol string) string {
	name := fmt.Sprintf("historical_%s_%s.csv", symbol, s.timeframe)
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Symbols lists the instruments that have a bar file for the source's
// timeframe directly below prefix, sorted by name.
func (s *CSVSource) Symbols(ctx context.Context) ([]string, error) {
	paths, err := s.store.List(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", s.prefix, err)
	}

	suffix := "_" + s.timeframe + ".csv"
	dir := path.Clean(s.prefix)
	if s.prefix == "" {
		dir = "."
	}

	var symbols []string
	for _, p := range paths {
		if path.Dir(p) != dir {
			continue
		}
		name := path.Base(p)
		if !strings.HasPrefix(name, "historical_") || !strings.HasSuffix(name, suffix) {
			continue
		}
		symbol := strings.TrimSuffix(strings.TrimPrefix(name, "historical_"), suffix)
		if symbol != "" {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// FetchBars loads every bar of symbol in file order. A missing file fails
// with core.ErrMissingDataSource.
func (s *CSVSource) FetchBars(ctx context.Context, symbol string) ([]core.Bar, error) {
	p := s.Path(symbol)
	exists, err := s.store.Exists(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", p, err)
	}
	if !exists {
		return nil, core.WrapError(core.ErrMissingDataSource, fmt.Errorf("%s: %s", symbol, p))
	}

	data, err := s.store.Read(ctx, p)
	if err != nil {
		if errors.Is(err, core.ErrStorageNotFound) {
			return nil, core.WrapError(core.ErrMissingDataSource, fmt.Errorf("%s: %s", symbol, p))
		}
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}

	bars, err := ParseBars(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	s.logger.Debug("loaded bars", zap.String("symbol", symbol), zap.String("path", p), zap.Int("bars", len(bars)))
	return bars, nil
}

// LatestBars returns at most the last n bars of symbol
func (s *CSVSource) LatestBars(ctx context.Context, symbol string, n int) ([]core.Bar, error) {
	bars, err := s.FetchBars(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

// ParseBars decodes a header-driven OHLC CSV. The time and price columns are
// mandatory; volume and spread columns are optional and unknown columns are
// ignored. Rows keep their file order.
func ParseBars(r io.Reader) ([]core.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, core.WrapError(core.ErrMalformedData, fmt.Errorf("reading header: %w", err))
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		cols[name] = i
	}
	for _, required := range []string{colTime, colOpen, colHigh, colLow, colClose} {
		if _, ok := cols[required]; !ok {
			return nil, core.WrapError(core.ErrMalformedData, fmt.Errorf("missing column %q", required))
		}
	}
	volumeCol := colTickVolume
	if _, ok := cols[colTickVolume]; !ok {
		volumeCol = colVolume
	}

	var bars []core.Bar
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, core.WrapError(core.ErrMalformedData, fmt.Errorf("line %d: %w", line, err))
		}

		bar, err := parseRecord(record, cols, volumeCol)
		if err != nil {
			return nil, core.WrapError(core.ErrMalformedData, fmt.Errorf("line %d: %w", line, err))
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

func parseRecord(record []string, cols map[string]int, volumeCol string) (core.Bar, error) {
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	var bar core.Bar
	var err error

	raw, _ := field(colTime)
	if bar.Time, err = ParseTime(raw); err != nil {
		return bar, err
	}

	prices := []struct {
		name string
		dst  *float64
	}{
		{colOpen, &bar.Open},
		{colHigh, &bar.High},
		{colLow, &bar.Low},
		{colClose, &bar.Close},
	}
	for _, p := range prices {
		raw, ok := field(p.name)
		if !ok {
			return bar, fmt.Errorf("missing %s", p.name)
		}
		if *p.dst, err = strconv.ParseFloat(raw, 64); err != nil {
			return bar, fmt.Errorf("%s: %w", p.name, err)
		}
	}

	counts := []struct {
		name string
		dst  *int64
	}{
		{volumeCol, &bar.Volume},
		{colSpread, &bar.Spread},
		{colRealVolume, &bar.RealVolume},
	}
	for _, c := range counts {
		raw, ok := field(c.name)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return bar, fmt.Errorf("%s: %w", c.name, err)
		}
		*c.dst = int64(v)
	}

	return bar, nil
}

// ParseTime accepts "2006-01-02 15:04:05", RFC3339, a bare date or unix
// seconds. Zone-less values are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
