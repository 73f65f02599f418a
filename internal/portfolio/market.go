package portfolio

import (
	"time"
)

// RefreshPolicy decides when a holding's cached price is stale enough
// to fetch again. Pure and clock-injected so it is testable.
type RefreshPolicy struct {
	StaleAfter  time.Duration
	OpenMinute  int // minutes since midnight, inclusive
	CloseMinute int // minutes since midnight, exclusive
	Location    *time.Location
}

// DefaultRefreshPolicy covers US equity market hours in New York time
// with a two hour refresh interval.
func DefaultRefreshPolicy() RefreshPolicy {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return RefreshPolicy{
		StaleAfter:  2 * time.Hour,
		OpenMinute:  9*60 + 30,
		CloseMinute: 16 * 60,
		Location:    loc,
	}
}

// MarketOpen reports whether now falls inside the weekday trading
// window [open, close).
func (p RefreshPolicy) MarketOpen(now time.Time) bool {
	local := now.In(p.Location)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= p.OpenMinute && minute < p.CloseMinute
}

// ShouldRefresh returns true when the holding has never been priced,
// or when the market is open and the cached price is older than
// StaleAfter.
func (p RefreshPolicy) ShouldRefresh(h *Holding, now time.Time) bool {
	if h.CurrentPrice == nil || h.LastUpdate == nil {
		return true
	}
	if !p.MarketOpen(now) {
		return false
	}
	return now.Sub(*h.LastUpdate) >= p.StaleAfter
}
