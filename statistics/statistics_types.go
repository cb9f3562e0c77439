package statistics

import (
	"errors"
	"time"
)

var (
	// ErrNoDays is returned when a summary is requested before any trading
	// day has been recorded
	ErrNoDays = errors.New("no trading days recorded")
)

// Metrics holds the risk figures derived from an equity sequence. Alpha and
// beta require a benchmark sequence of matching length; HasBenchmark reports
// whether they were computable
type Metrics struct {
	Return       float64
	Sharpe       float64
	Alpha        float64
	Beta         float64
	Drawdown     float64
	HasBenchmark bool
}

// YearMetrics is the Metrics of a single calendar year slice
type YearMetrics struct {
	Year int
	Metrics
}

// Summary is the run-end report of a tracker
type Summary struct {
	Start        time.Time
	End          time.Time
	Days         int
	NumWin       int
	NumLose      int
	WinRate      float64
	TradesPerDay float64
	Years        []YearMetrics
	Total        Metrics
}

// Tracker accumulates the normalised daily equity curve of a run alongside
// the benchmark's closing prices. The equity sequence is seeded with 1.0 so
// index i+1 is the mark after trading day i
type Tracker struct {
	days      []time.Time
	equity    []float64
	benchmark []float64
}
