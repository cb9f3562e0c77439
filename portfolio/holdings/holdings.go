package holdings

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is one open holding. Quantity is signed: positive for long,
// negative for short. The ledger guarantees at most one Position per symbol
type Position struct {
	Symbol     string
	Qty        decimal.Decimal
	EntryPrice decimal.Decimal
	EntryTime  time.Time
}

// IsShort returns whether the position quantity is negative
func (p Position) IsShort() bool {
	return p.Qty.IsNegative()
}

// IsLong returns whether the position quantity is positive
func (p Position) IsLong() bool {
	return p.Qty.IsPositive()
}

// MarketValue returns the position value marked at the supplied price
func (p Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return p.Qty.Mul(price)
}
