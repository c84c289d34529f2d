// Package calendar computes approval cutoffs on the America/Chicago business
// calendar. Weeks run Sunday through Saturday in Chicago local time.
package calendar

import (
	"time"
	_ "time/tzdata"
)

const (
	// BusinessTimeZone is the IANA zone every cutoff is expressed in.
	BusinessTimeZone = "America/Chicago"
	cutoffHour       = 8
)

// Calendar resolves local business dates in a fixed IANA zone.
type Calendar struct {
	loc *time.Location
}

// New loads the Chicago business calendar. The zone database is embedded so
// this only fails on a corrupted binary.
func New() (*Calendar, error) {
	loc, err := time.LoadLocation(BusinessTimeZone)
	if err != nil {
		return nil, err
	}
	return &Calendar{loc: loc}, nil
}

// MustNew is New for wiring code and tests.
func MustNew() *Calendar {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// WeekStart returns local midnight of the Sunday beginning the week that
// contains t.
func (c *Calendar) WeekStart(t time.Time) time.Time {
	local := t.In(c.loc)
	offset := int(local.Weekday())
	return time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, c.loc)
}

// Cutoff returns the approval cutoff for the Sunday–Saturday week containing
// periodEnd: Wednesday 08:00 local, or Tuesday 08:00 local for a holiday week.
// The local date is fixed first and the UTC offset in effect at that wall-clock
// time is resolved by the zone database, so DST weeks convert correctly.
func (c *Calendar) Cutoff(periodEnd time.Time, holidayWeek bool) time.Time {
	sunday := c.WeekStart(periodEnd)
	days := int(time.Wednesday)
	if holidayWeek {
		days = int(time.Tuesday)
	}
	cutoff := time.Date(sunday.Year(), sunday.Month(), sunday.Day()+days, cutoffHour, 0, 0, 0, c.loc)
	return cutoff.UTC()
}

// IsHolidayWeek reports whether any of the holiday dates falls in the same
// Chicago week as periodEnd. Holiday dates are calendar dates; only their
// year, month and day are used.
func (c *Calendar) IsHolidayWeek(periodEnd time.Time, holidays []time.Time) bool {
	start := c.WeekStart(periodEnd)
	for _, h := range holidays {
		local := time.Date(h.Year(), h.Month(), h.Day(), 12, 0, 0, 0, c.loc)
		if c.WeekStart(local).Equal(start) {
			return true
		}
	}
	return false
}

// CutoffFor combines IsHolidayWeek and Cutoff.
func (c *Calendar) CutoffFor(periodEnd time.Time, holidays []time.Time) (time.Time, bool) {
	holiday := c.IsHolidayWeek(periodEnd, holidays)
	return c.Cutoff(periodEnd, holiday), holiday
}
