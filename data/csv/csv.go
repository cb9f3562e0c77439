package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/quantegy/alphasim/data"
)

// Column layout of stored candle files
const (
	timeColumn = iota
	openColumn
	highColumn
	lowColumn
	closeColumn
	volumeColumn
	columnCount
)

// Provider reads OHLCV candles from a local directory tree. Interday series
// live at {dir}/interday/{SYMBOL}.csv and intraday sessions at
// {dir}/intraday/{SYMBOL}/{YYYY-MM-DD}.csv. A missing file is absence, not an
// error
type Provider struct {
	dir string
}

// NewProvider returns a csv candle provider rooted at dir
func NewProvider(dir string) (*Provider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("csv data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("csv data directory %v is not a directory", dir)
	}
	return &Provider{dir: dir}, nil
}

// FetchInterday loads the daily series for a symbol, filtered to [start, end)
func (p *Provider) FetchInterday(_ context.Context, symbol string, start, end time.Time) (data.Series, error) {
	series, err := readSeries(filepath.Join(p.dir, "interday", symbol+".csv"), symbol)
	if err != nil {
		return data.Series{}, err
	}
	filtered := data.Series{Symbol: symbol}
	for x := range series.Candles {
		ts := series.Candles[x].Time
		if ts.Before(start) || !ts.Before(end) {
			continue
		}
		filtered.Candles = append(filtered.Candles, series.Candles[x])
	}
	if filtered.Empty() {
		return data.Series{}, data.ErrDataUnavailable
	}
	return filtered, nil
}

// FetchIntraday loads one session's intraday series for a symbol
func (p *Provider) FetchIntraday(_ context.Context, symbol string, day time.Time, _ time.Duration) (data.Series, error) {
	name := filepath.Join(p.dir, "intraday", symbol, day.Format("2006-01-02")+".csv")
	return readSeries(name, symbol)
}

func readSeries(name, symbol string) (data.Series, error) {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return data.Series{}, data.ErrDataUnavailable
		}
		return data.Series{}, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = columnCount
	series := data.Series{Symbol: symbol}
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return data.Series{}, fmt.Errorf("%v: %w", name, err)
		}
		if line == 1 && record[timeColumn] == "time" {
			continue
		}
		candle, err := parseCandle(record)
		if err != nil {
			return data.Series{}, fmt.Errorf("%v line %v: %w", name, line, err)
		}
		series.Candles = append(series.Candles, candle)
	}
	if series.Empty() {
		return data.Series{}, data.ErrDataUnavailable
	}
	return series, nil
}

func parseCandle(record []string) (data.Candle, error) {
	ts, err := time.Parse(time.RFC3339, record[timeColumn])
	if err != nil {
		return data.Candle{}, err
	}
	values := make([]float64, columnCount)
	for x := openColumn; x < columnCount; x++ {
		values[x], err = strconv.ParseFloat(record[x], 64)
		if err != nil {
			return data.Candle{}, err
		}
	}
	return data.Candle{
		Time:   ts,
		Open:   values[openColumn],
		High:   values[highColumn],
		Low:    values[lowColumn],
		Close:  values[closeColumn],
		Volume: values[volumeColumn],
	}, nil
}
