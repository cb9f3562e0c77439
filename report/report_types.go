package report

import (
	"time"

	"github.com/quantegy/alphasim/portfolio"
	"github.com/quantegy/alphasim/portfolio/holdings"
	"github.com/quantegy/alphasim/statistics"
)

// DayRecord is everything the engine emits for a single trading day
type DayRecord struct {
	Date        time.Time
	Trades      []portfolio.Trade
	Positions   []holdings.Position
	Closes      map[string]float64
	Equity      float64
	DailyReturn float64
}

// StageTiming is the accumulated wall time of one engine stage across a run
type StageTiming struct {
	Name    string
	Elapsed time.Duration
}

// Sink receives the per-day records and run-end summary of a backtest run.
// Implementations own rendering and persistence
type Sink interface {
	WriteDay(record *DayRecord) error
	WriteSummary(runID string, summary *statistics.Summary) error
	WriteProfile(timings []StageTiming) error
}
