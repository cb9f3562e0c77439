package calendar

import (
	"errors"
	"time"
)

// Market session times for US equities
const (
	marketOpenHour    = 9
	marketOpenMinute  = 30
	marketCloseHour   = 16
	marketCloseMinute = 0
)

var (
	// ErrInvalidDateRange is returned when start is not before end
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrTimezoneUnavailable is returned when the exchange timezone cannot be loaded
	ErrTimezoneUnavailable = errors.New("exchange timezone unavailable")
)

// MarketDay is one trading session with its open and close timestamps
type MarketDay struct {
	Date  time.Time
	Open  time.Time
	Close time.Time
}

// Provider supplies the ordered list of trading days in [start, end)
type Provider interface {
	TradingDays(start, end time.Time) ([]MarketDay, error)
}

// USEquity generates NYSE/Nasdaq trading sessions from weekday and holiday
// rules, removing the dependency on a broker calendar endpoint for backtests
type USEquity struct {
	location *time.Location
}
