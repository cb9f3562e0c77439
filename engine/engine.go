package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantegy/alphasim/calendar"
	"github.com/quantegy/alphasim/config"
	"github.com/quantegy/alphasim/data"
	"github.com/quantegy/alphasim/log"
	"github.com/quantegy/alphasim/portfolio"
	"github.com/quantegy/alphasim/processor"
	"github.com/quantegy/alphasim/report"
	"github.com/quantegy/alphasim/statistics"
)

// New assembles a backtest run from its collaborators. Factories are invoked
// immediately so a defective processor surfaces before any data loads
func New(cfg *config.Config, provider data.Provider, cal calendar.Provider, sink report.Sink, factories []processor.Factory) (*BackTest, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, ErrNilCalendar
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	if len(factories) == 0 {
		return nil, ErrNoFactories
	}
	cache, err := data.NewHistoricCache(provider, cfg.Workers)
	if err != nil {
		return nil, err
	}

	start, end, err := cfg.DateRange()
	if err != nil {
		return nil, err
	}
	settings := processor.CreateSettings{
		LookbackStart: start.AddDate(0, 0, -interdayLookbackDays),
		LookbackEnd:   end,
		Mode:          processor.ModeBacktest,
	}
	handlers := make([]processor.Handler, 0, len(factories))
	for x := range factories {
		h, err := factories[x].Create(settings)
		if err != nil {
			return nil, fmt.Errorf("cannot create processor: %w", err)
		}
		handlers = append(handlers, h)
	}

	initialCash := decimal.NewFromFloat(cfg.Portfolio.InitialCash)
	ledger, err := portfolio.New(initialCash,
		decimal.NewFromFloat(cfg.Portfolio.Spread),
		decimal.NewFromFloat(cfg.Portfolio.ShortReserveRatio))
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &BackTest{
		runID:       id.String(),
		cfg:         cfg,
		cache:       cache,
		calendar:    cal,
		sink:        sink,
		processors:  handlers,
		ledger:      ledger,
		tracker:     statistics.NewTracker(),
		initialCash: initialCash,
		shutdown:    make(chan struct{}),
	}, nil
}

// RunID returns the unique identifier of this run
func (b *BackTest) RunID() string {
	return b.runID
}

// Trades returns every close executed so far
func (b *BackTest) Trades() []portfolio.Trade {
	return b.ledger.Trades()
}

// EquityCurve returns the normalised equity sequence recorded so far
func (b *BackTest) EquityCurve() []float64 {
	return b.tracker.EquityCurve()
}

// Stop requests a graceful shutdown. The current day finishes, then final
// statistics and reports are written before Run returns
func (b *BackTest) Stop() {
	b.shutdownOnce.Do(func() {
		close(b.shutdown)
	})
}

// Run executes the simulation over the configured date range
func (b *BackTest) Run(ctx context.Context) error {
	start, end, err := b.cfg.DateRange()
	if err != nil {
		return err
	}
	days, err := b.calendar.TradingDays(start, end)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		return ErrNoTradingDays
	}

	log.Infof(log.BackTest, "run %v starting, %v trading days %v ~ %v",
		b.runID, len(days),
		days[0].Date.Format("2006-01-02"), days[len(days)-1].Date.Format("2006-01-02"))

	historyStart := start.AddDate(0, 0, -interdayLookbackDays)
	allC2C := true
	for x := range b.processors {
		if b.processors[x].TradingFrequency() != processor.CloseToClose {
			allC2C = false
			break
		}
	}

	b.seedBenchmark(ctx, days[0].Date, historyStart, end)

dayLoop:
	for x := range days {
		select {
		case <-ctx.Done():
			log.Warnf(log.BackTest, "run %v cancelled, finishing up", b.runID)
			break dayLoop
		case <-b.shutdown:
			log.Warnf(log.BackTest, "run %v interrupted, finishing up", b.runID)
			break dayLoop
		default:
		}
		if err := b.processDay(ctx, days[x], historyStart, end, allC2C); err != nil {
			return err
		}
	}

	return b.finalise()
}

// seedBenchmark loads the benchmark series and records its close before the
// first trading day so benchmark returns align with the equity curve
func (b *BackTest) seedBenchmark(ctx context.Context, firstDay, historyStart, end time.Time) {
	if b.cfg.Benchmark == "" {
		return
	}
	b.cache.EnsureInterday(ctx, []string{b.cfg.Benchmark}, historyStart, end)
	if lb, ok := b.cache.InterdayLookback(firstDay, b.cfg.Benchmark); ok {
		b.tracker.SeedBenchmark(lb.LastClose())
	}
}

func (b *BackTest) processDay(ctx context.Context, day calendar.MarketDay, historyStart, end time.Time, allC2C bool) error {
	positions := b.ledger.Positions()
	for x := range b.processors {
		b.processors[x].Setup(positions, day.Date)
	}

	universeStart := time.Now()
	universes := make([][]string, len(b.processors))
	byFrequency := make(map[processor.Frequency]map[string]struct{})
	var all []string
	seen := make(map[string]struct{})
	for x := range b.processors {
		universes[x] = b.processors[x].StockUniverse(day.Date)
		freq := b.processors[x].TradingFrequency()
		if byFrequency[freq] == nil {
			byFrequency[freq] = make(map[string]struct{})
		}
		for _, symbol := range universes[x] {
			byFrequency[freq][symbol] = struct{}{}
			if _, ok := seen[symbol]; !ok {
				seen[symbol] = struct{}{}
				all = append(all, symbol)
			}
		}
	}
	sort.Strings(all)
	b.profile.universeLoad += time.Since(universeStart)

	interdayStart := time.Now()
	b.cache.EnsureInterday(ctx, all, historyStart, end)
	b.profile.interdayLoad += time.Since(interdayStart)

	var dayTrades []portfolio.Trade
	var err error
	if allC2C {
		dayTrades, err = b.processDayC2C(day, universes)
	} else {
		dayTrades, err = b.processDayIntervals(ctx, day, universes, byFrequency)
	}
	if err != nil {
		return err
	}

	for x := range b.processors {
		b.processors[x].Teardown()
	}
	return b.recordDay(day, dayTrades)
}

// processDayIntervals walks the session five minutes at a time. Processors
// are handed data according to their frequency: five minute processors at
// every interval, close-to-open additionally at the first, and every
// frequency at the last
func (b *BackTest) processDayIntervals(ctx context.Context, day calendar.MarketDay, universes [][]string, byFrequency map[processor.Frequency]map[string]struct{}) ([]portfolio.Trade, error) {
	intradayStart := time.Now()
	all := make([]string, 0, len(byFrequency))
	seen := make(map[string]struct{})
	for _, symbols := range byFrequency {
		for symbol := range symbols {
			if _, ok := seen[symbol]; !ok {
				seen[symbol] = struct{}{}
				all = append(all, symbol)
			}
		}
	}
	intraday := b.cache.LoadIntraday(ctx, day.Date, all)
	b.profile.intradayLoad += time.Since(intradayStart)

	var dayTrades []portfolio.Trade
	for intervalStart := day.Open; intervalStart.Before(day.Close); intervalStart = intervalStart.Add(data.IntervalFiveMin) {
		currentTime := intervalStart.Add(data.IntervalFiveMin)

		eligible := map[processor.Frequency]bool{processor.FiveMin: true}
		if intervalStart.Equal(day.Open) {
			eligible[processor.CloseToOpen] = true
		} else if currentTime.Equal(day.Close) {
			eligible[processor.CloseToOpen] = true
			eligible[processor.CloseToClose] = true
		}

		prepStart := time.Now()
		contexts := make(map[string]*processor.Context)
		for freq, symbols := range byFrequency {
			if !eligible[freq] {
				continue
			}
			for symbol := range symbols {
				if _, ok := contexts[symbol]; ok {
					continue
				}
				c := b.buildContext(day, symbol, intervalStart, currentTime, intraday)
				if c != nil {
					contexts[symbol] = c
				}
			}
		}
		b.profile.contextPrep += time.Since(prepStart)

		actions := b.collectActions(contexts, universes, eligible)
		trades, err := b.ledger.ProcessActions(currentTime, actions)
		if err != nil {
			return nil, err
		}
		dayTrades = append(dayTrades, trades...)
	}
	return dayTrades, nil
}

// processDayC2C is the fast path taken when every processor trades close to
// close: one evaluation per day at the close, no intraday data at all
func (b *BackTest) processDayC2C(day calendar.MarketDay, universes [][]string) ([]portfolio.Trade, error) {
	prepStart := time.Now()
	contexts := make(map[string]*processor.Context)
	for x := range universes {
		for _, symbol := range universes[x] {
			if _, ok := contexts[symbol]; ok {
				continue
			}
			lb, ok := b.cache.InterdayLookback(day.Date, symbol)
			if !ok {
				continue
			}
			series, ok := b.cache.InterdaySeries(symbol)
			if !ok {
				continue
			}
			currentPrice, ok := series.CloseOnDay(day.Date)
			if !ok {
				continue
			}
			contexts[symbol] = &processor.Context{
				Symbol:           symbol,
				CurrentTime:      day.Close,
				CurrentPrice:     currentPrice,
				InterdayLookback: lb,
				PrevDayClose:     lb.LastClose(),
				Mode:             processor.ModeBacktest,
			}
		}
	}
	b.profile.contextPrep += time.Since(prepStart)

	eligible := map[processor.Frequency]bool{processor.CloseToClose: true}
	actions := b.collectActions(contexts, universes, eligible)
	return b.ledger.ProcessActions(day.Close, actions)
}

// buildContext assembles the per-symbol snapshot for one interval, or nil
// when the symbol has no usable data
func (b *BackTest) buildContext(day calendar.MarketDay, symbol string, intervalStart, currentTime time.Time, intraday map[string]data.Series) *processor.Context {
	series, ok := intraday[symbol]
	if !ok {
		return nil
	}
	intradayLB, ok := data.IntradayLookback(series, intervalStart)
	if !ok || intradayLB.Empty() {
		return nil
	}
	interdayLB, ok := b.cache.InterdayLookback(day.Date, symbol)
	if !ok {
		return nil
	}
	prevClose := interdayLB.LastClose()
	intradayLB = data.AdjustSplit(intradayLB, prevClose)
	return &processor.Context{
		Symbol:           symbol,
		CurrentTime:      currentTime,
		CurrentPrice:     intradayLB.LastClose(),
		InterdayLookback: interdayLB,
		IntradayLookback: intradayLB,
		SessionOpenIndex: intradayLB.IndexAtOrAfter(day.Open),
		PrevDayClose:     prevClose,
		Mode:             processor.ModeBacktest,
	}
}

// collectActions hands each eligible processor the contexts for its own
// universe, in registration order, stamping execution price and source on
// every emitted action
func (b *BackTest) collectActions(contexts map[string]*processor.Context, universes [][]string, eligible map[processor.Frequency]bool) []processor.Action {
	var actions []processor.Action
	start := time.Now()
	for x := range b.processors {
		if !eligible[b.processors[x].TradingFrequency()] {
			continue
		}
		for _, symbol := range universes[x] {
			c, ok := contexts[symbol]
			if !ok {
				continue
			}
			action := b.processors[x].ProcessData(c)
			if action == nil {
				continue
			}
			action.Price = c.CurrentPrice
			action.Source = b.processors[x].Name()
			actions = append(actions, *action)
		}
	}
	b.profile.dataProcess += time.Since(start)
	return actions
}

// recordDay marks the ledger to market, feeds the tracker and writes the
// day record
func (b *BackTest) recordDay(day calendar.MarketDay, trades []portfolio.Trade) error {
	positions := b.ledger.Positions()
	closes := make(map[string]float64, len(positions))
	for x := range positions {
		series, ok := b.cache.InterdaySeries(positions[x].Symbol)
		if !ok {
			continue
		}
		if c, ok := series.CloseOnDay(day.Date); ok {
			closes[positions[x].Symbol] = c
		}
	}
	equity := b.ledger.Equity(closes).Div(b.initialCash).InexactFloat64()

	var benchmarkClose float64
	if series, ok := b.cache.InterdaySeries(b.cfg.Benchmark); ok {
		if c, ok := series.CloseOnDay(day.Date); ok {
			benchmarkClose = c
		}
	}
	b.tracker.AddDay(day.Date, equity, benchmarkClose)

	return b.sink.WriteDay(&report.DayRecord{
		Date:        day.Date,
		Trades:      trades,
		Positions:   positions,
		Closes:      closes,
		Equity:      equity,
		DailyReturn: b.tracker.LatestReturn(),
	})
}

// finalise writes the run summary and profile. It runs even after an
// interrupted day loop so a stopped run still reports what it completed
func (b *BackTest) finalise() error {
	summary, err := b.tracker.Summary(b.ledger.WinCount(), b.ledger.LoseCount())
	if err != nil {
		if errors.Is(err, statistics.ErrNoDays) {
			log.Warnf(log.BackTest, "run %v stopped before completing a day", b.runID)
			return nil
		}
		return err
	}
	if err := b.sink.WriteSummary(b.runID, summary); err != nil {
		return err
	}
	if err := b.sink.WriteProfile(b.profile.timings()); err != nil {
		return err
	}
	log.Infof(log.BackTest, "run %v complete, equity %.4f over %v days",
		b.runID, b.tracker.LatestEquity(), summary.Days)
	return nil
}
