package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantegy/alphasim/calendar"
	"github.com/quantegy/alphasim/config"
	"github.com/quantegy/alphasim/data"
	"github.com/quantegy/alphasim/portfolio"
	"github.com/quantegy/alphasim/processor"
	"github.com/quantegy/alphasim/processor/base"
	"github.com/quantegy/alphasim/report"
	"github.com/quantegy/alphasim/statistics"
)

// fakeCalendar treats every weekday as a session from 09:30 to 16:00 UTC
type fakeCalendar struct{}

func (fakeCalendar) TradingDays(start, end time.Time) ([]calendar.MarketDay, error) {
	var days []calendar.MarketDay
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		days = append(days, calendar.MarketDay{
			Date:  d,
			Open:  d.Add(9*time.Hour + 30*time.Minute),
			Close: d.Add(16 * time.Hour),
		})
	}
	return days, nil
}

// fakeProvider generates deterministic candles for every weekday
type fakeProvider struct {
	intradayCalls int64
}

func (p *fakeProvider) FetchInterday(_ context.Context, symbol string, start, end time.Time) (data.Series, error) {
	series := data.Series{Symbol: symbol}
	i := 0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		price := 100 + float64(i%5)*0.5
		series.Candles = append(series.Candles, data.Candle{
			Time: d, Open: price, High: price, Low: price, Close: price, Volume: 10000,
		})
		i++
	}
	return series, nil
}

func (p *fakeProvider) FetchIntraday(_ context.Context, symbol string, day time.Time, interval time.Duration) (data.Series, error) {
	atomic.AddInt64(&p.intradayCalls, 1)
	series := data.Series{Symbol: symbol}
	open := day.Add(9*time.Hour + 30*time.Minute)
	for x := 0; x < 78; x++ {
		price := 100 + 0.1*float64(x%3)
		series.Candles = append(series.Candles, data.Candle{
			Time: open.Add(time.Duration(x) * interval),
			Open: price, High: price, Low: price, Close: price, Volume: 1000,
		})
	}
	return series, nil
}

// recordingSink captures everything the engine emits
type recordingSink struct {
	days      []*report.DayRecord
	summary   *statistics.Summary
	summaryID string
	timings   []report.StageTiming
}

func (s *recordingSink) WriteDay(record *report.DayRecord) error {
	s.days = append(s.days, record)
	return nil
}

func (s *recordingSink) WriteSummary(runID string, summary *statistics.Summary) error {
	s.summaryID = runID
	s.summary = summary
	return nil
}

func (s *recordingSink) WriteProfile(timings []report.StageTiming) error {
	s.timings = timings
	return nil
}

// scripted buys ten minutes into the session and exits ten minutes later
type scripted struct {
	base.Processor
}

func newScripted() *scripted {
	return &scripted{Processor: base.New("scripted", processor.FiveMin, []string{"AAA"})}
}

func (s *scripted) ProcessData(c *processor.Context) *processor.Action {
	if entry, held := s.HeldSince(c.Symbol); held {
		if c.CurrentTime.Before(entry.Add(10 * time.Minute)) {
			return nil
		}
		s.Release(c.Symbol)
		return &processor.Action{Symbol: c.Symbol, Type: processor.SellToClose, Percent: 1}
	}
	if c.CurrentTime.Hour() == 9 && c.CurrentTime.Minute() == 40 {
		s.Hold(c.Symbol, c.CurrentTime)
		return &processor.Action{Symbol: c.Symbol, Type: processor.BuyToOpen, Percent: 1}
	}
	return nil
}

type scriptedFactory struct{}

func (scriptedFactory) Create(_ processor.CreateSettings) (processor.Handler, error) {
	return newScripted(), nil
}

// c2c flips a close-to-close position every day
type c2c struct {
	base.Processor
}

func (s *c2c) ProcessData(c *processor.Context) *processor.Action {
	if _, held := s.HeldSince(c.Symbol); held {
		s.Release(c.Symbol)
		return &processor.Action{Symbol: c.Symbol, Type: processor.SellToClose, Percent: 1}
	}
	s.Hold(c.Symbol, c.CurrentTime)
	return &processor.Action{Symbol: c.Symbol, Type: processor.BuyToOpen, Percent: 1}
}

type c2cFactory struct{}

func (c2cFactory) Create(_ processor.CreateSettings) (processor.Handler, error) {
	return &c2c{Processor: base.New("c2c", processor.CloseToClose, []string{"AAA"})}, nil
}

// malformed emits an action with an out-of-range percent
type malformed struct {
	base.Processor
}

func (malformed) ProcessData(c *processor.Context) *processor.Action {
	return &processor.Action{Symbol: c.Symbol, Type: processor.BuyToOpen, Percent: 2}
}

type malformedFactory struct{}

func (malformedFactory) Create(_ processor.CreateSettings) (processor.Handler, error) {
	return &malformed{Processor: base.New("malformed", processor.FiveMin, []string{"AAA"})}, nil
}

func testConfig() *config.Config {
	cfg := config.GenDefaultSettings("2023-03-06", "2023-03-09")
	cfg.Benchmark = "SPY"
	cfg.Workers = 2
	return cfg
}

func newTestBackTest(t *testing.T, factories ...processor.Factory) (*BackTest, *recordingSink, *fakeProvider) {
	t.Helper()
	provider := &fakeProvider{}
	sink := &recordingSink{}
	bt, err := New(testConfig(), provider, fakeCalendar{}, sink, factories)
	require.NoError(t, err)
	return bt, sink, provider
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{}
	sink := &recordingSink{}
	factories := []processor.Factory{scriptedFactory{}}

	_, err := New(nil, provider, fakeCalendar{}, sink, factories)
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = New(testConfig(), provider, nil, sink, factories)
	assert.ErrorIs(t, err, ErrNilCalendar)

	_, err = New(testConfig(), provider, fakeCalendar{}, nil, factories)
	assert.ErrorIs(t, err, ErrNilSink)

	_, err = New(testConfig(), provider, fakeCalendar{}, sink, nil)
	assert.ErrorIs(t, err, ErrNoFactories)

	_, err = New(testConfig(), nil, fakeCalendar{}, sink, factories)
	assert.ErrorIs(t, err, data.ErrNilProvider)
}

func TestRunExecutesTrades(t *testing.T) {
	t.Parallel()
	bt, sink, _ := newTestBackTest(t, scriptedFactory{})
	require.NoError(t, bt.Run(context.Background()))

	// three weekdays in range, one round trip per day
	assert.Len(t, sink.days, 3)
	trades := bt.Trades()
	require.Len(t, trades, 3)
	assert.Equal(t, "scripted", trades[0].Source)
	assert.Equal(t, "AAA", trades[0].Symbol)

	require.NotNil(t, sink.summary)
	assert.Equal(t, bt.RunID(), sink.summaryID)
	assert.Equal(t, 3, sink.summary.Days)
	assert.True(t, sink.summary.Total.HasBenchmark)
	assert.NotEmpty(t, sink.timings)
	assert.Len(t, bt.EquityCurve(), 4, "seed plus one mark per day")
}

func TestRunNoTradingDays(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{}
	cfg := testConfig()
	// a weekend only
	cfg.StartDate = "2023-03-11"
	cfg.EndDate = "2023-03-13"
	bt, err := New(cfg, provider, fakeCalendar{}, &recordingSink{}, []processor.Factory{scriptedFactory{}})
	require.NoError(t, err)
	assert.ErrorIs(t, bt.Run(context.Background()), ErrNoTradingDays)
}

func TestRunDeterminism(t *testing.T) {
	t.Parallel()
	first, _, _ := newTestBackTest(t, scriptedFactory{})
	require.NoError(t, first.Run(context.Background()))

	second, _, _ := newTestBackTest(t, scriptedFactory{})
	require.NoError(t, second.Run(context.Background()))

	assert.Equal(t, first.EquityCurve(), second.EquityCurve())
	assert.Equal(t, first.Trades(), second.Trades())
}

func TestAllC2CSkipsIntradayData(t *testing.T) {
	t.Parallel()
	bt, sink, provider := newTestBackTest(t, c2cFactory{})
	require.NoError(t, bt.Run(context.Background()))

	assert.Zero(t, atomic.LoadInt64(&provider.intradayCalls))
	assert.Len(t, sink.days, 3)
	assert.NotEmpty(t, bt.Trades())
}

func TestMalformedActionAbortsRun(t *testing.T) {
	t.Parallel()
	bt, _, _ := newTestBackTest(t, malformedFactory{})
	assert.ErrorIs(t, bt.Run(context.Background()), portfolio.ErrMalformedAction)
}

func TestStopBeforeAnyDay(t *testing.T) {
	t.Parallel()
	bt, sink, _ := newTestBackTest(t, scriptedFactory{})
	bt.Stop()
	bt.Stop()
	require.NoError(t, bt.Run(context.Background()))
	assert.Empty(t, sink.days)
	assert.Nil(t, sink.summary, "no summary for a run with no completed days")
}

func TestCancelledContextStopsEarly(t *testing.T) {
	t.Parallel()
	bt, sink, _ := newTestBackTest(t, scriptedFactory{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, bt.Run(ctx))
	assert.Empty(t, sink.days)
}
