package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantegy/alphasim/common"
	"github.com/quantegy/alphasim/statistics"
)

// TextSink renders day records and the run summary as plain text tables
type TextSink struct {
	w io.Writer
}

// NewTextSink returns a sink rendering to w
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

// WriteDay renders the trades executed and positions held at a day's close.
// Quiet days, no trades and no open positions, are skipped
func (s *TextSink) WriteDay(record *DayRecord) error {
	if len(record.Trades) == 0 && len(record.Positions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(s.w, "=== %s ===\n", record.Date.Format(common.SimpleDateFormat)); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(s.w, 0, 0, 2, ' ', 0)
	if len(record.Trades) > 0 {
		fmt.Fprintln(tw, "[ Executed ]")
		fmt.Fprintln(tw, "Symbol\tSide\tQty\tEntry\tExit\tReturn\tSource")
		for x := range record.Trades {
			t := &record.Trades[x]
			ret, _ := t.Return.Float64()
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%+.2f%%\t%s\n",
				t.Symbol, t.Side, t.Qty.StringFixed(4), t.EntryPrice.StringFixed(4),
				t.ExitPrice.StringFixed(4), ret*100, t.Source)
		}
	}
	if len(record.Positions) > 0 {
		fmt.Fprintln(tw, "[ Positions ]")
		fmt.Fprintln(tw, "Symbol\tQty\tEntry\tClose\tValue")
		for x := range record.Positions {
			p := &record.Positions[x]
			closeText := "-"
			value := p.Qty.Mul(p.EntryPrice)
			if c, ok := record.Closes[p.Symbol]; ok {
				closeText = fmt.Sprintf("%.4f", c)
				value = p.MarketValue(decimal.NewFromFloat(c))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				p.Symbol, p.Qty.StringFixed(4), p.EntryPrice.StringFixed(4),
				closeText, value.StringFixed(2))
		}
	}
	fmt.Fprintf(tw, "[ Stats ]\t\n")
	fmt.Fprintf(tw, "Equity\t%.4f\n", record.Equity)
	fmt.Fprintf(tw, "Daily Gain/Loss\t%+.2f%%\n", record.DailyReturn*100)
	return tw.Flush()
}

// WriteSummary renders the run-end risk report, one row per calendar year
// plus a total row
func (s *TextSink) WriteSummary(runID string, summary *statistics.Summary) error {
	if _, err := fmt.Fprintf(s.w, "=== Summary %s ===\n", runID); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(s.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Time Range\t%s ~ %s\n",
		summary.Start.Format(common.SimpleDateFormat),
		summary.End.Format(common.SimpleDateFormat))
	fmt.Fprintf(tw, "Success Rate\t%.2f%%\n", summary.WinRate*100)
	fmt.Fprintf(tw, "Num of Trades\t%d (%.2f per day)\n",
		summary.NumWin+summary.NumLose, summary.TradesPerDay)

	fmt.Fprintln(tw, "Period\tGain/Loss\tSharpe\tAlpha\tBeta\tDrawdown")
	for x := range summary.Years {
		y := &summary.Years[x]
		fmt.Fprintf(tw, "%d\t%+.2f%%\t%.2f\t%s\t%s\t%+.2f%%\n",
			y.Year, y.Return*100, y.Sharpe,
			alphaText(y.Metrics), betaText(y.Metrics), y.Drawdown*100)
	}
	fmt.Fprintf(tw, "Total\t%+.2f%%\t%.2f\t%s\t%s\t%+.2f%%\n",
		summary.Total.Return*100, summary.Total.Sharpe,
		alphaText(summary.Total), betaText(summary.Total), summary.Total.Drawdown*100)
	return tw.Flush()
}

// WriteProfile renders accumulated per-stage wall times
func (s *TextSink) WriteProfile(timings []StageTiming) error {
	if len(timings) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(s.w, "=== Profile ==="); err != nil {
		return err
	}
	var total time.Duration
	for x := range timings {
		total += timings[x].Elapsed
	}
	tw := tabwriter.NewWriter(s.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Stage\tTime\tPercent")
	for x := range timings {
		percent := 0.0
		if total > 0 {
			percent = float64(timings[x].Elapsed) / float64(total) * 100
		}
		fmt.Fprintf(tw, "%s\t%s\t%.0f%%\n",
			timings[x].Name, timings[x].Elapsed.Round(time.Millisecond), percent)
	}
	return tw.Flush()
}

func alphaText(m statistics.Metrics) string {
	if !m.HasBenchmark {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", m.Alpha*100)
}

func betaText(m statistics.Metrics) string {
	if !m.HasBenchmark {
		return "-"
	}
	return fmt.Sprintf("%.2f", m.Beta)
}
