package processor

import (
	"errors"
	"time"

	"github.com/quantegy/alphasim/data"
	"github.com/quantegy/alphasim/portfolio/holdings"
)

// Frequency describes when a processor wants to be handed data
type Frequency uint8

// Trading frequencies
const (
	FiveMin Frequency = iota
	CloseToOpen
	CloseToClose
)

// Mode distinguishes a simulated run from a live one
type Mode uint8

// Run modes
const (
	ModeBacktest Mode = iota
	ModeTrade
)

// ActionType is the side and intent of a trade action
type ActionType uint8

// Action types
const (
	BuyToOpen ActionType = iota
	SellToOpen
	BuyToClose
	SellToClose
)

// ErrUnknownFactory is returned when a processor name has no registered factory
var ErrUnknownFactory = errors.New("unknown processor factory")

// String implements the stringer interface
func (f Frequency) String() string {
	switch f {
	case FiveMin:
		return "FIVE_MIN"
	case CloseToOpen:
		return "CLOSE_TO_OPEN"
	case CloseToClose:
		return "CLOSE_TO_CLOSE"
	}
	return "UNKNOWN"
}

// String implements the stringer interface
func (a ActionType) String() string {
	switch a {
	case BuyToOpen:
		return "BUY_TO_OPEN"
	case SellToOpen:
		return "SELL_TO_OPEN"
	case BuyToClose:
		return "BUY_TO_CLOSE"
	case SellToClose:
		return "SELL_TO_CLOSE"
	}
	return "UNKNOWN"
}

// Valid returns whether the action type is one of the four defined values
func (a ActionType) Valid() bool {
	return a <= SellToClose
}

// IsClose returns whether the action exits an existing position
func (a ActionType) IsClose() bool {
	return a == BuyToClose || a == SellToClose
}

// Action is a trade intent emitted by a processor. Price and Source are
// stamped by the engine before resolution; processors only fill Symbol, Type
// and Percent
type Action struct {
	Symbol  string
	Type    ActionType
	Percent float64
	Price   float64
	Source  string
}

// Context is the immutable snapshot handed to a processor for one symbol at
// one interval. It is constructed fresh per (interval, symbol) and never
// mutated after creation
type Context struct {
	Symbol           string
	CurrentTime      time.Time
	CurrentPrice     float64
	InterdayLookback data.Series
	IntradayLookback data.Series
	SessionOpenIndex int
	PrevDayClose     float64
	Mode             Mode
}

// Handler is the pluggable strategy contract. The engine only enforces the
// structural invariants of emitted actions, never strategy correctness
type Handler interface {
	// Name identifies the processor in logs and trade records
	Name() string
	// TradingFrequency reports which intervals the processor is due at
	TradingFrequency() Frequency
	// StockUniverse returns the symbols wanted for a day. Implementations
	// should include currently held symbols so exit signals keep flowing
	StockUniverse(day time.Time) []string
	// Setup runs once per day before any interval, reconciling engine-visible
	// positions into the processor's private state
	Setup(positions []holdings.Position, day time.Time)
	// ProcessData consumes one context and returns at most one trade intent
	ProcessData(ctx *Context) *Action
	// Teardown runs once per day after the final interval
	Teardown()
}

// CreateSettings carries run parameters into a factory
type CreateSettings struct {
	LookbackStart time.Time
	LookbackEnd   time.Time
	Mode          Mode
	OutputDir     string
}

// Factory creates a processor instance for a run
type Factory interface {
	Create(settings CreateSettings) (Handler, error)
}
