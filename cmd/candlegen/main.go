// candlegen generates deterministic synthetic OHLCV fixtures for backtest
// runs, either as a CSV directory tree or a SQLite candle database
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/quantegy/alphasim/calendar"
	"github.com/quantegy/alphasim/data"
	"github.com/quantegy/alphasim/data/database"
)

func main() {
	app := &cli.App{
		Name:  "candlegen",
		Usage: "generate synthetic OHLCV candle fixtures",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "symbols",
				Value: "AAPL,MSFT,SPY",
				Usage: "comma separated symbols to generate",
			},
			&cli.StringFlag{
				Name:  "start",
				Value: "2022-01-01",
				Usage: "first date to generate",
			},
			&cli.StringFlag{
				Name:  "end",
				Value: "2023-01-01",
				Usage: "last date to generate, exclusive",
			},
			&cli.StringFlag{
				Name:  "out",
				Value: "data",
				Usage: "CSV output directory",
			},
			&cli.StringFlag{
				Name:  "database",
				Usage: "write to a SQLite database at this path instead of CSV",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Value: 42,
				Usage: "seed for the price walk",
			},
		},
		Action: generate,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func generate(c *cli.Context) error {
	start, err := time.Parse("2006-01-02", c.String("start"))
	if err != nil {
		return fmt.Errorf("cannot parse start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.String("end"))
	if err != nil {
		return fmt.Errorf("cannot parse end date: %w", err)
	}
	cal, err := calendar.NewUSEquity()
	if err != nil {
		return err
	}
	days, err := cal.TradingDays(start, end)
	if err != nil {
		return err
	}

	var sink candleSink
	if path := c.String("database"); path != "" {
		db, err := database.Connect(path)
		if err != nil {
			return err
		}
		defer db.Close()
		sink = &databaseSink{db: db}
	} else {
		sink = &csvSink{dir: c.String("out")}
	}

	symbols := strings.Split(c.String("symbols"), ",")
	for _, symbol := range symbols {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}
		interday, intraday := walk(symbol, c.Int64("seed"), days)
		if err := sink.writeInterday(symbol, interday); err != nil {
			return err
		}
		for x := range days {
			if err := sink.writeIntraday(symbol, days[x].Date, intraday[x]); err != nil {
				return err
			}
		}
		fmt.Printf("%v: %v days\n", symbol, len(days))
	}
	return nil
}

// walk produces a geometric random walk per symbol, seeded from the symbol
// name so repeated runs regenerate identical fixtures
func walk(symbol string, seed int64, days []calendar.MarketDay) ([]data.Candle, [][]data.Candle) {
	for _, r := range symbol {
		seed = seed*31 + int64(r)
	}
	rng := rand.New(rand.NewSource(seed))
	price := 50 + rng.Float64()*200

	interday := make([]data.Candle, 0, len(days))
	intraday := make([][]data.Candle, 0, len(days))
	for _, day := range days {
		var bars []data.Candle
		open := price
		high, low := price, price
		for ts := day.Open; ts.Before(day.Close); ts = ts.Add(data.IntervalFiveMin) {
			barOpen := price
			price *= 1 + rng.NormFloat64()*0.002
			barHigh := maxFloat(barOpen, price) * (1 + rng.Float64()*0.001)
			barLow := minFloat(barOpen, price) * (1 - rng.Float64()*0.001)
			high = maxFloat(high, barHigh)
			low = minFloat(low, barLow)
			bars = append(bars, data.Candle{
				Time:   ts,
				Open:   barOpen,
				High:   barHigh,
				Low:    barLow,
				Close:  price,
				Volume: float64(500 + rng.Intn(5000)),
			})
		}
		var volume float64
		for x := range bars {
			volume += bars[x].Volume
		}
		interday = append(interday, data.Candle{
			Time:   day.Date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: volume,
		})
		intraday = append(intraday, bars)
	}
	return interday, intraday
}

type candleSink interface {
	writeInterday(symbol string, candles []data.Candle) error
	writeIntraday(symbol string, day time.Time, candles []data.Candle) error
}

type csvSink struct {
	dir string
}

func (s *csvSink) writeInterday(symbol string, candles []data.Candle) error {
	name := filepath.Join(s.dir, "interday", symbol+".csv")
	return writeCandleFile(name, candles)
}

func (s *csvSink) writeIntraday(symbol string, day time.Time, candles []data.Candle) error {
	name := filepath.Join(s.dir, "intraday", symbol, day.Format("2006-01-02")+".csv")
	return writeCandleFile(name, candles)
}

func writeCandleFile(name string, candles []data.Candle) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for x := range candles {
		c := &candles[x]
		record := []string{
			c.Time.Format(time.RFC3339),
			formatFloat(c.Open),
			formatFloat(c.High),
			formatFloat(c.Low),
			formatFloat(c.Close),
			formatFloat(c.Volume),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type databaseSink struct {
	db *database.Provider
}

func (s *databaseSink) writeInterday(symbol string, candles []data.Candle) error {
	return s.db.InsertInterday(context.Background(), symbol, candles)
}

func (s *databaseSink) writeIntraday(symbol string, _ time.Time, candles []data.Candle) error {
	return s.db.InsertIntraday(context.Background(), symbol, candles)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
