package data

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantegy/alphasim/log"
)

// Len returns the number of candles in the series
func (s Series) Len() int {
	return len(s.Candles)
}

// Empty returns whether the series holds no candles
func (s Series) Empty() bool {
	return len(s.Candles) == 0
}

// LastClose returns the close of the final candle, the current price for a
// lookback sliced through the present interval
func (s Series) LastClose() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

// Closes returns the close column
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for x := range s.Candles {
		closes[x] = s.Candles[x].Close
	}
	return closes
}

// Volumes returns the volume column
func (s Series) Volumes() []float64 {
	volumes := make([]float64, len(s.Candles))
	for x := range s.Candles {
		volumes[x] = s.Candles[x].Volume
	}
	return volumes
}

// IndexOfDay returns the index of the candle whose timestamp falls on the
// same calendar date as t, or -1 when the series has no bar for that date
func (s Series) IndexOfDay(t time.Time) int {
	i := sort.Search(len(s.Candles), func(x int) bool {
		c := s.Candles[x].Time
		return !beforeDay(c, t)
	})
	if i < len(s.Candles) && sameDay(s.Candles[i].Time, t) {
		return i
	}
	return -1
}

// IndexAtOrAfter returns the index of the first candle at or after t, or -1
func (s Series) IndexAtOrAfter(t time.Time) int {
	i := sort.Search(len(s.Candles), func(x int) bool {
		return !s.Candles[x].Time.Before(t)
	})
	if i == len(s.Candles) {
		return -1
	}
	return i
}

// CloseOnDay returns the closing price recorded for t's calendar date
func (s Series) CloseOnDay(t time.Time) (float64, bool) {
	i := s.IndexOfDay(t)
	if i < 0 {
		return 0, false
	}
	return s.Candles[i].Close, true
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.In(a.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func beforeDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.In(a.Location()).Date()
	if y1 != y2 {
		return y1 < y2
	}
	if m1 != m2 {
		return m1 < m2
	}
	return d1 < d2
}

// NewHistoricCache returns a cache backed by the supplied provider, fetching
// intraday data with at most workers concurrent requests
func NewHistoricCache(provider Provider, workers int) (*HistoricCache, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if workers <= 0 {
		workers = 1
	}
	return &HistoricCache{
		provider:  provider,
		workers:   workers,
		interday:  make(map[string]Series),
		missing:   make(map[string]struct{}),
		lookbacks: make(map[lookbackKey]Series),
	}, nil
}

// EnsureInterday loads interday history for any symbols not yet seen this
// run. History is treated as present-or-absent for the fixed window; a symbol
// that fails to load is recorded as missing and never retried
func (c *HistoricCache) EnsureInterday(ctx context.Context, symbols []string, start, end time.Time) {
	var unseen []string
	c.mu.RLock()
	for _, symbol := range symbols {
		if _, ok := c.interday[symbol]; ok {
			continue
		}
		if _, ok := c.missing[symbol]; ok {
			continue
		}
		unseen = append(unseen, symbol)
	}
	c.mu.RUnlock()
	if len(unseen) == 0 {
		return
	}

	results := make([]Series, len(unseen))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for x := range unseen {
		x := x
		g.Go(func() error {
			series, err := c.provider.FetchInterday(gCtx, unseen[x], start, end)
			if err != nil {
				log.Debugf(log.DataMgr, "interday data for %v unavailable: %v", unseen[x], err)
				return nil
			}
			results[x] = series
			return nil
		})
	}
	// individual failures became skips above, so Wait only reflects ctx
	_ = g.Wait()

	c.mu.Lock()
	for x := range unseen {
		if results[x].Empty() {
			c.missing[unseen[x]] = struct{}{}
			continue
		}
		c.interday[unseen[x]] = results[x]
	}
	c.mu.Unlock()
}

// InterdaySeries returns the full interday series for a symbol
func (c *HistoricCache) InterdaySeries(symbol string) (Series, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	series, ok := c.interday[symbol]
	return series, ok
}

// InterdayLookback returns the interday series sliced strictly before day,
// memoised per (day, symbol) for reuse across every interval of the day
func (c *HistoricCache) InterdayLookback(day time.Time, symbol string) (Series, bool) {
	key := lookbackKey{day: day.Unix(), symbol: symbol}
	c.mu.RLock()
	if lb, ok := c.lookbacks[key]; ok {
		c.mu.RUnlock()
		return lb, !lb.Empty()
	}
	series, ok := c.interday[symbol]
	c.mu.RUnlock()
	if !ok {
		return Series{}, false
	}
	ind := series.IndexOfDay(day)
	if ind < 0 {
		return Series{}, false
	}
	lb := Series{Symbol: symbol, Candles: series.Candles[:ind]}
	c.mu.Lock()
	c.lookbacks[key] = lb
	c.mu.Unlock()
	return lb, !lb.Empty()
}

// LoadIntraday fetches the day's intraday series for every requested symbol
// through the bounded worker pool. It returns only after every fetch has
// completed, so an interval loop never starts on a partially loaded day. A
// failed symbol is skipped for the day rather than aborting the batch
func (c *HistoricCache) LoadIntraday(ctx context.Context, day time.Time, symbols []string) map[string]Series {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)

	results := make([]Series, len(sorted))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for x := range sorted {
		x := x
		g.Go(func() error {
			series, err := c.provider.FetchIntraday(gCtx, sorted[x], day, IntervalFiveMin)
			if err != nil {
				log.Debugf(log.DataMgr, "intraday data for %v on %v unavailable: %v",
					sorted[x], day.Format("2006-01-02"), err)
				return nil
			}
			results[x] = series
			return nil
		})
	}
	_ = g.Wait()

	intraday := make(map[string]Series, len(sorted))
	for x := range sorted {
		if results[x].Empty() {
			continue
		}
		intraday[sorted[x]] = results[x]
	}
	return intraday
}

// IntradayLookback slices an intraday series up to and including the interval
// starting at intervalStart
func IntradayLookback(series Series, intervalStart time.Time) (Series, bool) {
	ind := -1
	for x := range series.Candles {
		if series.Candles[x].Time.Equal(intervalStart) {
			ind = x
			break
		}
	}
	if ind < 0 {
		return Series{}, false
	}
	return Series{Symbol: series.Symbol, Candles: series.Candles[:ind+1]}, true
}

// SplitFactor derives the whole-number split ratio between the day's first
// intraday open and the prior interday close. The ratio is evaluated in both
// directions so a halving and a doubling of the quoted price both resolve to
// the same factor
func SplitFactor(dayOpen, priorClose float64) float64 {
	if dayOpen <= 0 || priorClose <= 0 {
		return 1
	}
	ratio := dayOpen / priorClose
	if ratio < 1 {
		ratio = 1 / ratio
	}
	return math.Round(ratio)
}

// AdjustSplit returns a point-in-time adjusted view of an intraday series.
// When the split factor exceeds one, every OHLC value is divided by the
// factor and volume is multiplied by its square. The stored series is never
// mutated
func AdjustSplit(intraday Series, priorClose float64) Series {
	if intraday.Empty() {
		return intraday
	}
	factor := SplitFactor(intraday.Candles[0].Open, priorClose)
	if factor <= 1 {
		return intraday
	}
	adjusted := Series{Symbol: intraday.Symbol, Candles: make([]Candle, len(intraday.Candles))}
	for x := range intraday.Candles {
		c := intraday.Candles[x]
		adjusted.Candles[x] = Candle{
			Time:   c.Time,
			Open:   c.Open / factor,
			High:   c.High / factor,
			Low:    c.Low / factor,
			Close:  c.Close / factor,
			Volume: c.Volume * factor * factor,
		}
	}
	return adjusted
}
