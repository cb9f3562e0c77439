package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// sqlite driver registration
	_ "github.com/mattn/go-sqlite3"

	"github.com/quantegy/alphasim/data"
)

const schema = `
CREATE TABLE IF NOT EXISTS candle_interday (
	symbol TEXT NOT NULL,
	ts INTEGER NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (symbol, ts)
);
CREATE TABLE IF NOT EXISTS candle_intraday (
	symbol TEXT NOT NULL,
	ts INTEGER NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (symbol, ts)
);`

// Provider serves OHLCV candles from a sqlite database, the persistence
// layer for cached vendor pulls
type Provider struct {
	db *sql.DB
}

// Connect opens the sqlite database at path and ensures the candle schema
// exists
func Connect(path string) (*Provider, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open candle database: %w", err)
	}
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create candle schema: %w", err)
	}
	return &Provider{db: db}, nil
}

// Close releases the underlying database handle
func (p *Provider) Close() error {
	return p.db.Close()
}

// FetchInterday returns the daily series for a symbol within [start, end)
func (p *Provider) FetchInterday(ctx context.Context, symbol string, start, end time.Time) (data.Series, error) {
	return p.query(ctx, "candle_interday", symbol, start.Unix(), end.Unix())
}

// FetchIntraday returns one session's series for a symbol
func (p *Provider) FetchIntraday(ctx context.Context, symbol string, day time.Time, _ time.Duration) (data.Series, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return p.query(ctx, "candle_intraday", symbol, dayStart.Unix(), dayStart.AddDate(0, 0, 1).Unix())
}

func (p *Provider) query(ctx context.Context, table, symbol string, start, end int64) (data.Series, error) {
	rows, err := p.db.QueryContext(ctx,
		fmt.Sprintf("SELECT ts, open, high, low, close, volume FROM %s WHERE symbol = ? AND ts >= ? AND ts < ? ORDER BY ts", table),
		symbol, start, end)
	if err != nil {
		return data.Series{}, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	series := data.Series{Symbol: symbol}
	for rows.Next() {
		var ts int64
		var c data.Candle
		if err = rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return data.Series{}, fmt.Errorf("scan %s: %w", table, err)
		}
		c.Time = time.Unix(ts, 0).UTC()
		series.Candles = append(series.Candles, c)
	}
	if err = rows.Err(); err != nil {
		return data.Series{}, err
	}
	if series.Empty() {
		return data.Series{}, data.ErrDataUnavailable
	}
	return series, nil
}

// InsertInterday stores daily candles for a symbol, replacing duplicates
func (p *Provider) InsertInterday(ctx context.Context, symbol string, candles []data.Candle) error {
	return p.insert(ctx, "candle_interday", symbol, candles)
}

// InsertIntraday stores intraday candles for a symbol, replacing duplicates
func (p *Provider) InsertIntraday(ctx context.Context, symbol string, candles []data.Candle) error {
	return p.insert(ctx, "candle_intraday", symbol, candles)
}

func (p *Provider) insert(ctx context.Context, table, symbol string, candles []data.Candle) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT OR REPLACE INTO %s (symbol, ts, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)", table))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for x := range candles {
		c := candles[x]
		if _, err = stmt.ExecContext(ctx, symbol, c.Time.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s candle: %w", table, err)
		}
	}
	return tx.Commit()
}
