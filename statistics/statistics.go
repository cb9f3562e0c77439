package statistics

import (
	"time"

	"github.com/quantegy/alphasim/common/math"
)

// NewTracker returns a tracker with its equity curve seeded at 1.0
func NewTracker() *Tracker {
	return &Tracker{
		equity: []float64{1},
	}
}

// SeedBenchmark records the benchmark close of the day preceding the run so
// the benchmark sequence aligns index for index with the seeded equity curve.
// It is a no-op once a day has been recorded
func (t *Tracker) SeedBenchmark(close float64) {
	if len(t.benchmark) == 0 && close > 0 {
		t.benchmark = []float64{close}
	}
}

// AddDay appends the mark-to-market equity for one trading day, normalised
// against initial capital, along with the benchmark's close for the same day.
// A non-positive benchmark close repeats the previous value so the sequences
// stay aligned
func (t *Tracker) AddDay(day time.Time, equity, benchmarkClose float64) {
	t.days = append(t.days, day)
	t.equity = append(t.equity, equity)
	if benchmarkClose <= 0 && len(t.benchmark) > 0 {
		benchmarkClose = t.benchmark[len(t.benchmark)-1]
	}
	t.benchmark = append(t.benchmark, benchmarkClose)
}

// Days returns the number of trading days recorded
func (t *Tracker) Days() int {
	return len(t.days)
}

// EquityCurve returns a copy of the normalised equity sequence, including
// the 1.0 seed
func (t *Tracker) EquityCurve() []float64 {
	out := make([]float64, len(t.equity))
	copy(out, t.equity)
	return out
}

// LatestEquity returns the most recent equity mark
func (t *Tracker) LatestEquity() float64 {
	return t.equity[len(t.equity)-1]
}

// LatestReturn returns the most recent day's rate of return
func (t *Tracker) LatestReturn() float64 {
	if len(t.equity) < 2 {
		return 0
	}
	last := len(t.equity) - 1
	if t.equity[last-1] == 0 {
		return 0
	}
	return t.equity[last]/t.equity[last-1] - 1
}

// Summary derives the run-end report: date range, win rate, trade frequency
// and risk figures for the whole run plus one slice per calendar year. A year
// slice ends at the last recorded day whose successor falls in a later year
func (t *Tracker) Summary(numWin, numLose int) (*Summary, error) {
	if len(t.days) == 0 {
		return nil, ErrNoDays
	}

	numTrades := numWin + numLose
	s := &Summary{
		Start:        t.days[0],
		End:          t.days[len(t.days)-1],
		Days:         len(t.days),
		NumWin:       numWin,
		NumLose:      numLose,
		TradesPerDay: float64(numTrades) / float64(len(t.days)),
		Total:        t.sliceMetrics(0, len(t.days)),
	}
	if numTrades > 0 {
		s.WinRate = float64(numWin) / float64(numTrades)
	}

	sliceStart := 0
	for i := range t.days {
		if i != len(t.days)-1 && t.days[i+1].Year() <= t.days[sliceStart].Year() {
			continue
		}
		s.Years = append(s.Years, YearMetrics{
			Year:    t.days[sliceStart].Year(),
			Metrics: t.sliceMetrics(sliceStart, i+1),
		})
		sliceStart = i + 1
	}
	return s, nil
}

// sliceMetrics computes risk figures for the trading days [from, to). The
// equity slice carries one leading value, the mark before the slice's first
// day, so returns are available for every day in the slice
func (t *Tracker) sliceMetrics(from, to int) Metrics {
	values := t.equity[from : to+1]
	returns := math.CalculateReturns(values)
	m := Metrics{
		Sharpe:   math.CalculateSharpeRatio(returns),
		Drawdown: math.CalculateMaxDrawdown(values),
	}
	if values[0] != 0 {
		m.Return = values[len(values)-1]/values[0] - 1
	}
	if len(t.benchmark) == len(t.equity) {
		benchmarkReturns := math.CalculateReturns(t.benchmark[from : to+1])
		m.Beta = math.CalculateBeta(returns, benchmarkReturns)
		m.Alpha = math.CalculateAlpha(returns, benchmarkReturns, m.Beta)
		m.HasBenchmark = true
	}
	return m
}
