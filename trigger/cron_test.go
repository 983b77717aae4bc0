package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, expr string) *CronExpression {
	t.Helper()
	ce, err := ParseCronExpression(expr)
	require.NoError(t, err)
	return ce
}

func TestCronExpression_EveryFiveMinutes(t *testing.T) {
	ce := mustParse(t, "0 0/5 * * * ?")
	from := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)
	next := ce.NextAfter(from)
	require.False(t, next.IsZero())
	assert.Equal(t, time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC), next)
}

func TestCronExpression_LeapYearFeb29Boundary(t *testing.T) {
	ce := mustParse(t, "0 0 0 29 2 ?")
	from := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	next := ce.NextAfter(from)
	require.False(t, next.IsZero())
	assert.Equal(t, 2028, next.Year())
	assert.Equal(t, time.February, next.Month())
	assert.Equal(t, 29, next.Day())
}

func TestCronExpression_ImpossibleDateNeverFires(t *testing.T) {
	ce := mustParse(t, "0 0 0 31 4 ?")
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, ce.NextAfter(from).IsZero())
}

func TestCronExpression_LastDayOfMonth(t *testing.T) {
	ce := mustParse(t, "0 0 12 L * ?")
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	next := ce.NextAfter(from)
	require.False(t, next.IsZero())
	assert.Equal(t, 28, next.Day())
	assert.Equal(t, time.February, next.Month())
}

func TestCronExpression_NthWeekdayOfMonth(t *testing.T) {
	// Second Friday of March 2026 is the 13th.
	ce := mustParse(t, "0 0 9 ? 3 6#2")
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	next := ce.NextAfter(from)
	require.False(t, next.IsZero())
	assert.Equal(t, 13, next.Day())
	assert.Equal(t, time.Friday, next.Weekday())
}

func TestCronTrigger_MisfireDoNothingKeepsOriginalSchedule(t *testing.T) {
	ce := mustParse(t, "0 0/5 * * * ?")
	trig, err := NewCronTrigger(NewTriggerKeyDefault("t1"), NewJobKeyDefault("j1"), ce)
	require.NoError(t, err)
	trig.SetMisfireInstruction(MisfireDoNothing)

	first := trig.ComputeFirstFireTime(nil)
	require.NotNil(t, first)
	trig.UpdateAfterMisfire(nil, time.Now())
	assert.Equal(t, *first, *trig.NextFireTime())
}

func TestCronTrigger_GetFinalFireTimeIsNil(t *testing.T) {
	ce := mustParse(t, "0 0 * * * ?")
	trig, err := NewCronTrigger(NewTriggerKeyDefault("t2"), NewJobKeyDefault("j2"), ce)
	require.NoError(t, err)
	assert.Nil(t, trig.GetFinalFireTime())
}

func TestSimpleTrigger_KthFireBoundary(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	interval := time.Minute
	trig, err := NewSimpleTrigger(NewTriggerKeyDefault("s1"), NewJobKeyDefault("j1"), start, interval, RepeatIndefinitely)
	require.NoError(t, err)

	boundary := start.Add(2*interval - time.Millisecond)
	next := trig.GetFireTimeAfter(boundary)
	require.NotNil(t, next)
	assert.Equal(t, start.Add(2*interval), *next)
}

func TestSimpleTrigger_RepeatCountZeroFiresOnce(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trig, err := NewSimpleTrigger(NewTriggerKeyDefault("s2"), NewJobKeyDefault("j2"), start, time.Minute, 0)
	require.NoError(t, err)

	first := trig.ComputeFirstFireTime(nil)
	require.NotNil(t, first)
	assert.Equal(t, start, *first)

	trig.Triggered(nil)
	assert.Nil(t, trig.NextFireTime())
	assert.False(t, trig.MayFireAgain())
}

func TestDailyTimeIntervalTrigger_SaturdayToMondayBoundary(t *testing.T) {
	days := map[time.Weekday]bool{time.Monday: true, time.Friday: true}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) // Thursday
	trig, err := NewDailyTimeIntervalTrigger(
		NewTriggerKeyDefault("d1"), NewJobKeyDefault("j1"), start,
		1, UnitHour,
		TimeOfDay{Hour: 9}, TimeOfDay{Hour: 17},
		days, RepeatIndefinitely, time.UTC,
	)
	require.NoError(t, err)

	// Friday 2026-01-02 17:00 is the window's last fire; next must jump to
	// Monday 2026-01-05, not Saturday/Sunday.
	friday1700 := time.Date(2026, 1, 2, 17, 0, 0, 0, time.UTC)
	next := trig.GetFireTimeAfter(friday1700)
	require.NotNil(t, next)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 5, next.Day())
	assert.Equal(t, 9, next.Hour())
}

func TestWeeklyCalendar_ExcludesWeekendsByDefault(t *testing.T) {
	cal := NewWeeklyCalendar()
	saturday := time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)
	assert.False(t, cal.IsTimeIncluded(saturday))

	monday := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	assert.True(t, cal.IsTimeIncluded(monday))
}

func TestHolidayCalendar_ExcludesAddedDate(t *testing.T) {
	cal := NewHolidayCalendar()
	holiday := time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)
	cal.AddExcludedDate(holiday)

	assert.False(t, cal.IsTimeIncluded(time.Date(2026, 12, 25, 15, 0, 0, 0, time.UTC)))
	assert.True(t, cal.IsTimeIncluded(time.Date(2026, 12, 26, 15, 0, 0, 0, time.UTC)))
}
