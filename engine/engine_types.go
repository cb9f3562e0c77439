package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantegy/alphasim/calendar"
	"github.com/quantegy/alphasim/config"
	"github.com/quantegy/alphasim/data"
	"github.com/quantegy/alphasim/portfolio"
	"github.com/quantegy/alphasim/processor"
	"github.com/quantegy/alphasim/report"
	"github.com/quantegy/alphasim/statistics"
)

// interdayLookbackDays is how far before the run start interday history is
// loaded, so processors have lookback on the first trading day
const interdayLookbackDays = 300

var (
	// ErrNilConfig is returned when no configuration is supplied
	ErrNilConfig = errors.New("nil config")
	// ErrNilCalendar is returned when no calendar provider is supplied
	ErrNilCalendar = errors.New("nil calendar provider")
	// ErrNilSink is returned when no report sink is supplied
	ErrNilSink = errors.New("nil report sink")
	// ErrNoFactories is returned when no processor factories are supplied
	ErrNoFactories = errors.New("no processor factories")
	// ErrNoTradingDays is returned when the configured range contains no
	// trading days
	ErrNoTradingDays = errors.New("no trading days in configured range")
	// ErrLiveUnsupported is returned when a live trading run is requested
	ErrLiveUnsupported = errors.New("live trading is not implemented")
)

// profile accumulates per-stage wall times across a run
type profile struct {
	interdayLoad time.Duration
	intradayLoad time.Duration
	universeLoad time.Duration
	contextPrep  time.Duration
	dataProcess  time.Duration
}

func (p *profile) timings() []report.StageTiming {
	return []report.StageTiming{
		{Name: "interday load", Elapsed: p.interdayLoad},
		{Name: "intraday load", Elapsed: p.intradayLoad},
		{Name: "universe load", Elapsed: p.universeLoad},
		{Name: "context prep", Elapsed: p.contextPrep},
		{Name: "data process", Elapsed: p.dataProcess},
	}
}

// BackTest drives a simulation run. The day loop is strictly sequential;
// intraday prefetch is the only concurrent stage and joins before any
// interval is processed
type BackTest struct {
	runID       string
	cfg         *config.Config
	cache       *data.HistoricCache
	calendar    calendar.Provider
	sink        report.Sink
	processors  []processor.Handler
	ledger      *portfolio.Portfolio
	tracker     *statistics.Tracker
	initialCash decimal.Decimal
	profile     profile

	shutdownOnce sync.Once
	shutdown     chan struct{}
}
