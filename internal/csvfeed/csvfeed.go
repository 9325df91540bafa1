// Package csvfeed reads OHLCV bar files for the CLI. It is the stand-in
// for the external data loader: parsing and basic shaping happen here,
// while the series invariants (ordering, OHLC consistency) are enforced by
// market.NewSeries.
package csvfeed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/quantlab/market"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Load reads a CSV file with a time,open,high,low,close[,volume] header
// into a validated Series.
func Load(path string) (*market.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses CSV bar rows from r.
func Read(r io.Reader) (*market.Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csvfeed: read header: %w", err)
	}
	col, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var bars []market.Bar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvfeed: line %d: %w", line+1, err)
		}
		line++

		bar, err := parseBar(rec, col)
		if err != nil {
			return nil, fmt.Errorf("csvfeed: line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	return market.NewSeries(bars)
}

type columns struct {
	time, open, high, low, close, volume int
}

func mapColumns(header []string) (columns, error) {
	col := columns{time: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "time", "timestamp", "date":
			col.time = i
		case "open":
			col.open = i
		case "high":
			col.high = i
		case "low":
			col.low = i
		case "close":
			col.close = i
		case "volume":
			col.volume = i
		}
	}
	if col.time < 0 || col.open < 0 || col.high < 0 || col.low < 0 || col.close < 0 {
		return col, fmt.Errorf("csvfeed: header must name time, open, high, low, close columns, got %v", header)
	}
	return col, nil
}

func parseBar(rec []string, col columns) (market.Bar, error) {
	ts, err := parseTime(rec[col.time])
	if err != nil {
		return market.Bar{}, err
	}

	var bar market.Bar
	bar.Time = ts
	if bar.Open, err = strconv.ParseFloat(rec[col.open], 64); err != nil {
		return bar, fmt.Errorf("open %q: %w", rec[col.open], err)
	}
	if bar.High, err = strconv.ParseFloat(rec[col.high], 64); err != nil {
		return bar, fmt.Errorf("high %q: %w", rec[col.high], err)
	}
	if bar.Low, err = strconv.ParseFloat(rec[col.low], 64); err != nil {
		return bar, fmt.Errorf("low %q: %w", rec[col.low], err)
	}
	if bar.Close, err = strconv.ParseFloat(rec[col.close], 64); err != nil {
		return bar, fmt.Errorf("close %q: %w", rec[col.close], err)
	}
	if col.volume >= 0 && col.volume < len(rec) && rec[col.volume] != "" {
		if bar.Volume, err = strconv.ParseFloat(rec[col.volume], 64); err != nil {
			return bar, fmt.Errorf("volume %q: %w", rec[col.volume], err)
		}
	}
	return bar, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	// Unix seconds as a last resort.
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
