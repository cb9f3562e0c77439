// Package overnight holds RSI extremes through the close. Oversold symbols
// are bought and overbought symbols shorted in the last interval of the day,
// then unwound in the first interval of the next
package overnight

import (
	"time"

	"github.com/thrasher-corp/gct-ta/indicators"

	"github.com/quantegy/alphasim/portfolio/holdings"
	"github.com/quantegy/alphasim/processor"
	"github.com/quantegy/alphasim/processor/base"
)

const (
	// Name identifies the processor in config and trade records
	Name = "overnight"

	rsiPeriod     = 14
	rsiOversold   = 30.0
	rsiOverbought = 70.0

	closeMinute = 16 * 60
)

// Processor is the overnight RSI reversion strategy
type Processor struct {
	base.Processor
	side map[string]processor.ActionType
}

// New returns an overnight processor over the given candidate symbols
func New(universe []string) *Processor {
	return &Processor{
		Processor: base.New(Name, processor.CloseToOpen, universe),
		side:      make(map[string]processor.ActionType),
	}
}

// ProcessData opens at the close and closes at the open
func (p *Processor) ProcessData(ctx *processor.Context) *processor.Action {
	minute := ctx.CurrentTime.Hour()*60 + ctx.CurrentTime.Minute()
	if openType, held := p.side[ctx.Symbol]; held {
		if minute >= closeMinute {
			return nil
		}
		p.Release(ctx.Symbol)
		delete(p.side, ctx.Symbol)
		closeType := processor.SellToClose
		if openType == processor.SellToOpen {
			closeType = processor.BuyToClose
		}
		return &processor.Action{
			Symbol:  ctx.Symbol,
			Type:    closeType,
			Percent: 1,
		}
	}

	if minute < closeMinute {
		return nil
	}
	closes := ctx.InterdayLookback.Closes()
	if len(closes) < rsiPeriod+1 {
		return nil
	}
	closes = append(closes, ctx.CurrentPrice)
	rsi := indicators.RSI(closes, rsiPeriod)
	latest := rsi[len(rsi)-1]

	var openType processor.ActionType
	switch {
	case latest < rsiOversold:
		openType = processor.BuyToOpen
	case latest > rsiOverbought:
		openType = processor.SellToOpen
	default:
		return nil
	}
	p.side[ctx.Symbol] = openType
	p.Hold(ctx.Symbol, ctx.CurrentTime)
	return &processor.Action{
		Symbol:  ctx.Symbol,
		Type:    openType,
		Percent: 1,
	}
}

// Setup reconciles private state against the ledger, dropping the recorded
// side of any symbol the ledger no longer holds
func (p *Processor) Setup(positions []holdings.Position, day time.Time) {
	p.Processor.Setup(positions, day)
	for symbol := range p.side {
		if _, ok := p.HeldSince(symbol); !ok {
			delete(p.side, symbol)
		}
	}
}

// Factory creates overnight processors for a run
type Factory struct {
	Universe []string
}

// Create implements the processor factory contract
func (f Factory) Create(_ processor.CreateSettings) (processor.Handler, error) {
	return New(f.Universe), nil
}
