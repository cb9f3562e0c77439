package base

import (
	"sort"
	"time"

	"github.com/quantegy/alphasim/portfolio/holdings"
	"github.com/quantegy/alphasim/processor"
)

// Processor supplies the bookkeeping every strategy shares: a name, a
// trading frequency, a candidate symbol list and a private record of the
// positions this strategy opened. Strategies embed it and implement
// ProcessData themselves
type Processor struct {
	name      string
	frequency processor.Frequency
	universe  []string
	held      map[string]time.Time
}

// New returns a base processor over a fixed candidate universe
func New(name string, frequency processor.Frequency, universe []string) Processor {
	return Processor{
		name:      name,
		frequency: frequency,
		universe:  universe,
		held:      make(map[string]time.Time),
	}
}

// Name returns the processor name used in logs and trade records
func (p *Processor) Name() string {
	return p.name
}

// TradingFrequency returns the intervals the processor is due at
func (p *Processor) TradingFrequency() processor.Frequency {
	return p.frequency
}

// StockUniverse returns the candidate symbols merged with every symbol the
// strategy currently holds, deduplicated and sorted so engine iteration
// stays deterministic
func (p *Processor) StockUniverse(_ time.Time) []string {
	seen := make(map[string]bool, len(p.universe)+len(p.held))
	merged := make([]string, 0, len(p.universe)+len(p.held))
	for _, symbol := range p.universe {
		if !seen[symbol] {
			seen[symbol] = true
			merged = append(merged, symbol)
		}
	}
	for symbol := range p.held {
		if !seen[symbol] {
			seen[symbol] = true
			merged = append(merged, symbol)
		}
	}
	sort.Strings(merged)
	return merged
}

// Setup reconciles private state against the ledger at the start of a day.
// Symbols the ledger no longer holds are forgotten
func (p *Processor) Setup(positions []holdings.Position, _ time.Time) {
	ledger := make(map[string]bool, len(positions))
	for x := range positions {
		ledger[positions[x].Symbol] = true
	}
	for symbol := range p.held {
		if !ledger[symbol] {
			delete(p.held, symbol)
		}
	}
}

// Teardown runs after a day's final interval
func (p *Processor) Teardown() {}

// Hold records that the strategy opened a position in symbol
func (p *Processor) Hold(symbol string, entry time.Time) {
	p.held[symbol] = entry
}

// Release forgets a symbol after the strategy closed it
func (p *Processor) Release(symbol string) {
	delete(p.held, symbol)
}

// HeldSince returns the entry time of a held symbol
func (p *Processor) HeldSince(symbol string) (time.Time, bool) {
	entry, ok := p.held[symbol]
	return entry, ok
}

// HeldCount returns how many symbols the strategy currently holds
func (p *Processor) HeldCount() int {
	return len(p.held)
}
