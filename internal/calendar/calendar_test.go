package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func chicago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(BusinessTimeZone)
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestCutoffSaturdayPeriodEndStandardTime(t *testing.T) {
	cal := MustNew()
	loc := chicago(t)

	// Saturday 2025-01-11 in Chicago (CST, UTC-6).
	periodEnd := time.Date(2025, 1, 11, 17, 0, 0, 0, loc)
	cutoff := cal.Cutoff(periodEnd, false)

	assert.Equal(t, time.Date(2025, 1, 8, 14, 0, 0, 0, time.UTC), cutoff)
	assert.Equal(t, time.Wednesday, cutoff.In(loc).Weekday())
	assert.Equal(t, 8, cutoff.In(loc).Hour())
}

func TestCutoffAcrossSpringForwardWeek(t *testing.T) {
	cal := MustNew()
	loc := chicago(t)

	// DST starts Sunday 2025-03-09; Wednesday 03-12 is CDT (UTC-5).
	periodEnd := time.Date(2025, 3, 15, 12, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 12, 13, 0, 0, 0, time.UTC), cal.Cutoff(periodEnd, false))
	assert.Equal(t, time.Date(2025, 3, 11, 13, 0, 0, 0, time.UTC), cal.Cutoff(periodEnd, true))
}

func TestCutoffAcrossFallBackWeek(t *testing.T) {
	cal := MustNew()
	loc := chicago(t)

	// DST ends Sunday 2025-11-02; Wednesday 11-05 is CST (UTC-6).
	periodEnd := time.Date(2025, 11, 8, 23, 59, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 11, 5, 14, 0, 0, 0, time.UTC), cal.Cutoff(periodEnd, false))
}

func TestCutoffRollsAcrossYearBoundary(t *testing.T) {
	cal := MustNew()
	loc := chicago(t)

	// Week of Sunday 2025-12-28 .. Saturday 2026-01-03.
	periodEnd := time.Date(2026, 1, 3, 10, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 12, 31, 14, 0, 0, 0, time.UTC), cal.Cutoff(periodEnd, false))
	assert.Equal(t, time.Date(2025, 12, 30, 14, 0, 0, 0, time.UTC), cal.Cutoff(periodEnd, true))
}

func TestCutoffUsesChicagoDateNotUTCDate(t *testing.T) {
	cal := MustNew()

	// 2025-01-12 03:00 UTC is still Saturday 2025-01-11 21:00 in Chicago.
	periodEnd := time.Date(2025, 1, 12, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 8, 14, 0, 0, 0, time.UTC), cal.Cutoff(periodEnd, false))
}

func TestIsHolidayWeek(t *testing.T) {
	cal := MustNew()
	loc := chicago(t)
	holidays := []time.Time{time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)}

	assert.True(t, cal.IsHolidayWeek(time.Date(2025, 12, 27, 9, 0, 0, 0, loc), holidays))
	assert.False(t, cal.IsHolidayWeek(time.Date(2026, 1, 3, 9, 0, 0, 0, loc), holidays))

	cutoff, holiday := cal.CutoffFor(time.Date(2025, 12, 27, 9, 0, 0, 0, loc), holidays)
	assert.True(t, holiday)
	assert.Equal(t, time.Date(2025, 12, 23, 14, 0, 0, 0, time.UTC), cutoff)
}
