// Package clock gives the rest of the module a single, injectable notion of
// "now" so that market-hours gates and hold-duration exits can be tested
// with a frozen instant instead of monkey-patching time.Now.
package clock

import "time"

var eastern *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// Fixed -5h fallback keeps the process alive if tzdata is missing;
		// DST-aware gates will be off by an hour during EDT.
		loc = time.FixedZone("EST", -5*60*60)
	}
	eastern = loc
}

// Clock abstracts wall-clock time. Production code uses Real; tests use a
// Frozen clock so that "is it pre-market right now" checks are deterministic.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

// Frozen always returns the same instant. Advance moves it forward, which is
// occasionally useful for tests that exercise hold-duration exits.
type Frozen struct {
	at time.Time
}

func NewFrozen(at time.Time) *Frozen { return &Frozen{at: at.UTC()} }

func (f *Frozen) Now() time.Time { return f.at }

func (f *Frozen) Advance(d time.Duration) { f.at = f.at.Add(d) }

// Eastern returns the wall-clock time of t in America/New_York, honoring DST.
func Eastern(t time.Time) time.Time { return t.In(eastern) }

// EasternLocation exposes the loaded zone for callers that need to construct
// their own times (e.g. "09:30 ET today").
func EasternLocation() *time.Location { return eastern }

// MarketSession classifies t (any instant) into a trading session.
type MarketSession int

const (
	SessionClosed MarketSession = iota
	SessionPreMarket
	SessionRegular
	SessionAfterHours
)

func (s MarketSession) String() string {
	switch s {
	case SessionPreMarket:
		return "pre_market"
	case SessionRegular:
		return "regular"
	case SessionAfterHours:
		return "after_hours"
	default:
		return "closed"
	}
}

// Session classifies an instant using the standard 4:00-9:30 pre-market,
// 9:30-16:00 regular, 16:00-20:00 after-hours schedule. It does not consult a
// holiday calendar; callers that need holiday-awareness should gate on
// IsWeekend plus an external calendar before calling Session.
func Session(t time.Time) MarketSession {
	et := Eastern(t)
	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return SessionClosed
	}
	minutes := et.Hour()*60 + et.Minute()
	switch {
	case minutes >= 4*60 && minutes < 9*60+30:
		return SessionPreMarket
	case minutes >= 9*60+30 && minutes < 16*60:
		return SessionRegular
	case minutes >= 16*60 && minutes < 20*60:
		return SessionAfterHours
	default:
		return SessionClosed
	}
}

// MinutesSinceOpen returns the number of minutes since 9:30 ET on the same
// trading day as t, or -1 if t is before the open.
func MinutesSinceOpen(t time.Time) int {
	et := Eastern(t)
	open := time.Date(et.Year(), et.Month(), et.Day(), 9, 30, 0, 0, et.Location())
	if et.Before(open) {
		return -1
	}
	return int(et.Sub(open).Minutes())
}

// MinutesSinceAfterHoursStart returns minutes elapsed since 4:00 PM ET on
// the same calendar day as t, or -1 if t is before that.
func MinutesSinceAfterHoursStart(t time.Time) int {
	et := Eastern(t)
	start := time.Date(et.Year(), et.Month(), et.Day(), 16, 0, 0, 0, et.Location())
	if et.Before(start) {
		return -1
	}
	return int(et.Sub(start).Minutes())
}

// MinutesSincePreMarketStart returns minutes elapsed since 4:00 AM ET on the
// same calendar day as t, or -1 if t is before that. Used to gate the
// after-market sentiment source's carry-over window into the next trading
// day's pre-market session.
func MinutesSincePreMarketStart(t time.Time) int {
	et := Eastern(t)
	start := time.Date(et.Year(), et.Month(), et.Day(), 4, 0, 0, 0, et.Location())
	if et.Before(start) {
		return -1
	}
	return int(et.Sub(start).Minutes())
}

// IsWeekend reports whether t (interpreted in ET) falls on a Saturday or
// Sunday.
func IsWeekend(t time.Time) bool {
	wd := Eastern(t).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsMarketHoliday reports whether t (interpreted in ET, by calendar date)
// falls on one of the fixed-date US market holidays: New Year's Day,
// Juneteenth, Independence Day, and Christmas, on the calendar date itself
// (weekend-observed shifts are not applied). Good Friday and the floating Monday holidays (MLK Day,
// Presidents Day, Memorial Day, Labor Day, Thanksgiving) are not computed
// here; callers that need full NYSE-calendar accuracy should layer an
// external calendar on top.
func IsMarketHoliday(t time.Time) bool {
	et := Eastern(t)
	switch {
	case et.Month() == time.January && et.Day() == 1:
		return true
	case et.Month() == time.June && et.Day() == 19:
		return true
	case et.Month() == time.July && et.Day() == 4:
		return true
	case et.Month() == time.December && et.Day() == 25:
		return true
	default:
		return false
	}
}
