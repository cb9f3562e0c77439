package calendar

import (
	"fmt"
	"time"
)

// NewUSEquity returns a calendar provider for US equity market sessions
func NewUSEquity() (*USEquity, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimezoneUnavailable, err)
	}
	return &USEquity{location: loc}, nil
}

// TradingDays returns the ordered trading sessions in [start, end)
func (c *USEquity) TradingDays(start, end time.Time) ([]MarketDay, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: %v >= %v", ErrInvalidDateRange, start, end)
	}
	var days []MarketDay
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, c.location)
	for d.Before(end) {
		if c.isTradingDay(d) {
			days = append(days, MarketDay{
				Date:  d,
				Open:  time.Date(d.Year(), d.Month(), d.Day(), marketOpenHour, marketOpenMinute, 0, 0, c.location),
				Close: time.Date(d.Year(), d.Month(), d.Day(), marketCloseHour, marketCloseMinute, 0, 0, c.location),
			})
		}
		d = d.AddDate(0, 0, 1)
	}
	return days, nil
}

func (c *USEquity) isTradingDay(d time.Time) bool {
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	for _, h := range holidays(d.Year()) {
		if h.Month() == d.Month() && h.Day() == d.Day() {
			return false
		}
	}
	return true
}

// holidays returns the observed full-day market holidays for a year
func holidays(year int) []time.Time {
	hs := []time.Time{
		observed(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)),
		nthWeekday(year, time.January, time.Monday, 3),   // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3),  // Washington's Birthday
		goodFriday(year),
		lastWeekday(year, time.May, time.Monday),         // Memorial Day
		observed(time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC)),
		nthWeekday(year, time.September, time.Monday, 1), // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC)),
	}
	if year >= 2022 {
		hs = append(hs, observed(time.Date(year, time.June, 19, 0, 0, 0, 0, time.UTC)))
	}
	return hs
}

// observed shifts weekend holidays to the adjacent weekday
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, (n-1)*7)
}

func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// goodFriday derives Good Friday from the Gregorian Easter computus
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	easter := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return easter.AddDate(0, 0, -2)
}
