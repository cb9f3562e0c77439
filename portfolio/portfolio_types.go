package portfolio

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantegy/alphasim/portfolio/holdings"
)

var (
	// ErrMalformedAction flags a structurally invalid action: a type outside
	// the four defined values or a percent outside (0, 1]. It signals a
	// defective processor and is fatal to the run
	ErrMalformedAction = errors.New("malformed action")
	// ErrNegativeInitialCash is returned when a portfolio is created with
	// negative starting capital
	ErrNegativeInitialCash = errors.New("initial cash cannot be negative")
)

// residualEpsilon is the quantity magnitude below which a partially closed
// position is considered fully closed
var residualEpsilon = decimal.NewFromFloat(1e-7)

// Trade records one executed position close
type Trade struct {
	Symbol     string
	Side       string
	Qty        decimal.Decimal
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	EntryTime  time.Time
	ExitTime   time.Time
	Return     decimal.Decimal
	Source     string
}

// Portfolio owns the cash and position ledger. All mutation happens through
// ProcessActions, which is strictly sequential; the ledger is never written
// concurrently
type Portfolio struct {
	cash         decimal.Decimal
	positions    []holdings.Position
	spread       decimal.Decimal
	shortReserve decimal.Decimal
	numWin       int
	numLose      int
	trades       []Trade
}
