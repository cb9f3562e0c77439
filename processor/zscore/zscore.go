// Package zscore trades intraday price dislocations. A symbol is bought when
// the latest five minute bar's price change and volume are extreme outliers
// against the session so far, and sold again one interval later
package zscore

import (
	gomath "math"
	"time"

	"github.com/quantegy/alphasim/common/math"
	"github.com/quantegy/alphasim/log"
	"github.com/quantegy/alphasim/processor"
	"github.com/quantegy/alphasim/processor/base"
)

const (
	// Name identifies the processor in config and trade records
	Name = "zscore"

	minSessionBars = 6
	zeroGuard      = 1e-7

	entryAfterMinute   = 10 * 60
	exitBeforeMinute   = 16 * 60
	morningEndMinute   = 11 * 60
	morningThreshold   = 2.5
	afternoonThreshold = 3.5

	holdFor = 5 * time.Minute
)

// Processor is the z-score dislocation strategy
type Processor struct {
	base.Processor
}

// New returns a z-score processor over the given candidate symbols
func New(universe []string) *Processor {
	return &Processor{
		Processor: base.New(Name, processor.FiveMin, universe),
	}
}

// ProcessData emits at most one action for the context's symbol
func (p *Processor) ProcessData(ctx *processor.Context) *processor.Action {
	if _, held := p.HeldSince(ctx.Symbol); held {
		return p.closePosition(ctx)
	}
	return p.openPosition(ctx)
}

func (p *Processor) openPosition(ctx *processor.Context) *processor.Action {
	minute := ctx.CurrentTime.Hour()*60 + ctx.CurrentTime.Minute()
	if minute <= entryAfterMinute || minute >= exitBeforeMinute {
		return nil
	}
	closes := ctx.SessionCloses()
	volumes := ctx.SessionVolumes()
	if len(closes) < minSessionBars {
		return nil
	}

	priceChanges := make([]float64, len(closes)-1)
	for x := 1; x < len(closes); x++ {
		priceChanges[x-1] = gomath.Abs(closes[x] - closes[x-1])
	}
	zPrice := (priceChanges[len(priceChanges)-1] - math.ArithmeticAverage(priceChanges)) /
		(math.PopulationStandardDeviation(priceChanges) + zeroGuard)
	zVolume := (volumes[len(volumes)-1] - math.ArithmeticAverage(volumes)) /
		(math.PopulationStandardDeviation(volumes) + zeroGuard)

	up := closes[len(closes)-1] > closes[len(closes)-2]
	threshold := afternoonThreshold
	if minute < morningEndMinute {
		threshold = morningThreshold
	}

	trade := zPrice > 3 && zVolume > 6 && up
	trade = trade || (zPrice > threshold && zVolume < 6 && !up)
	// runaway symbols whose price doubled overnight are split artefacts or
	// halt reopens, never entries
	trade = trade && ctx.PrevDayClose > 0 && ctx.CurrentPrice/ctx.PrevDayClose < 2

	if trade || (ctx.Mode == processor.ModeTrade && zPrice > 1.5) {
		log.Debugf(log.ProcessorMgr, "[%s] [%s] price z-score %.2f volume z-score %.2f price %v",
			ctx.CurrentTime.Format("2006-01-02 15:04"), ctx.Symbol, zPrice, zVolume, ctx.CurrentPrice)
	}
	if !trade {
		return nil
	}

	p.Hold(ctx.Symbol, ctx.CurrentTime)
	return &processor.Action{
		Symbol:  ctx.Symbol,
		Type:    processor.BuyToOpen,
		Percent: 1,
	}
}

func (p *Processor) closePosition(ctx *processor.Context) *processor.Action {
	entry, _ := p.HeldSince(ctx.Symbol)
	if ctx.CurrentTime.Before(entry.Add(holdFor)) {
		return nil
	}
	p.Release(ctx.Symbol)
	return &processor.Action{
		Symbol:  ctx.Symbol,
		Type:    processor.SellToClose,
		Percent: 1,
	}
}

// Factory creates z-score processors for a run
type Factory struct {
	Universe []string
}

// Create implements the processor factory contract
func (f Factory) Create(_ processor.CreateSettings) (processor.Handler, error) {
	return New(f.Universe), nil
}
