package data

import (
	"context"
	"errors"
	"sync"
	"time"
)

// IntervalFiveMin is the intraday bar size used throughout the simulation
const IntervalFiveMin = 5 * time.Minute

var (
	// ErrDataUnavailable signals missing history for a symbol or day. It is an
	// absence marker consumed as "skip this symbol", never a fatal condition
	ErrDataUnavailable = errors.New("historical data unavailable")
	// ErrNilProvider is returned when a cache is created without a provider
	ErrNilProvider = errors.New("nil data provider")
)

// Candle holds one OHLCV bar
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is a time-ordered sequence of candles for one symbol
type Series struct {
	Symbol  string
	Candles []Candle
}

// Provider fetches historic OHLCV series from an external source. Both
// operations signal missing data with ErrDataUnavailable
type Provider interface {
	FetchInterday(ctx context.Context, symbol string, start, end time.Time) (Series, error)
	FetchIntraday(ctx context.Context, symbol string, day time.Time, interval time.Duration) (Series, error)
}

type lookbackKey struct {
	day    int64
	symbol string
}

// HistoricCache loads and memoises interday and intraday series for a
// backtest run. Interday series load once per symbol; interday lookbacks are
// memoised per (day, symbol) because the key space is immutable for the
// lifetime of a run. Intraday loads fan out across a bounded worker pool and
// join before any interval processing starts
type HistoricCache struct {
	provider Provider
	workers  int

	mu        sync.RWMutex
	interday  map[string]Series
	missing   map[string]struct{}
	lookbacks map[lookbackKey]Series
}
