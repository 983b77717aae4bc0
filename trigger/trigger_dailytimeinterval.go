package trigger

import "time"

// TimeOfDay is a wall-clock time within a day, independent of date.
type TimeOfDay struct {
	Hour, Minute, Second int
}

func (tod TimeOfDay) onDate(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, tod.Hour, tod.Minute, tod.Second, 0, loc)
}

func (tod TimeOfDay) duration() time.Duration {
	return time.Duration(tod.Hour)*time.Hour + time.Duration(tod.Minute)*time.Minute + time.Duration(tod.Second)*time.Second
}

// DailyTimeIntervalTrigger fires every Interval Unit-steps (seconds,
// minutes, or hours) within a daily [StartTimeOfDay, EndTimeOfDay] window,
// on the weekdays present in Days, up to RepeatCount+1 total fires across
// the trigger's lifetime (RepeatIndefinitely for unlimited).
type DailyTimeIntervalTrigger struct {
	base
	Interval      int
	Unit          IntervalUnit // UnitSecond, UnitMinute, or UnitHour
	StartTimeOfDay TimeOfDay
	EndTimeOfDay   TimeOfDay
	Days           map[time.Weekday]bool
	RepeatCount    int
	TimesTriggered int
	Location       *time.Location
}

// NewDailyTimeIntervalTrigger builds a trigger firing every interval units
// between startTOD and endTOD on the given weekdays (Mon-Fri if days is
// empty), up to repeatCount+1 fires.
func NewDailyTimeIntervalTrigger(
	key TriggerKey, jobKey JobKey, start time.Time,
	interval int, unit IntervalUnit,
	startTOD, endTOD TimeOfDay, days map[time.Weekday]bool, repeatCount int, loc *time.Location,
) (*DailyTimeIntervalTrigger, error) {
	b, err := newBase(key, jobKey, start, nil)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if len(days) == 0 {
		days = map[time.Weekday]bool{
			time.Monday: true, time.Tuesday: true, time.Wednesday: true,
			time.Thursday: true, time.Friday: true,
		}
	}
	return &DailyTimeIntervalTrigger{
		base: b, Interval: interval, Unit: unit,
		StartTimeOfDay: startTOD, EndTimeOfDay: endTOD,
		Days: days, RepeatCount: repeatCount, Location: loc,
	}, nil
}

func (t *DailyTimeIntervalTrigger) SetMisfireInstruction(mi MisfireInstruction) { t.misfire = mi }

func (t *DailyTimeIntervalTrigger) stepDuration() time.Duration {
	switch t.Unit {
	case UnitMinute:
		return time.Duration(t.Interval) * time.Minute
	case UnitHour:
		return time.Duration(t.Interval) * time.Hour
	default:
		return time.Duration(t.Interval) * time.Second
	}
}

const maxDayScan = 3660 // ~10 years; bounds the daily-window search

// GetFireTimeAfter finds the next in-window instant strictly after `after`
// on an allowed weekday, skipping forward to the next day's window start
// when `after` falls outside today's window or on an excluded weekday.
func (t *DailyTimeIntervalTrigger) GetFireTimeAfter(after time.Time) *time.Time {
	loc := t.Location
	cursor := after.In(loc)
	if cursor.Before(t.startTime) {
		cursor = t.startTime.In(loc).Add(-time.Nanosecond)
	}

	step := t.stepDuration()
	for i := 0; i < maxDayScan; i++ {
		dayRef := cursor.Add(time.Nanosecond)
		y, m, d := dayRef.Date()
		wd := dayRef.Weekday()

		if t.Days[wd] {
			dayStart := t.StartTimeOfDay.onDate(y, m, d, loc)
			dayEnd := t.EndTimeOfDay.onDate(y, m, d, loc)

			var candidate time.Time
			if cursor.Before(dayStart) {
				candidate = dayStart
			} else {
				elapsed := cursor.Sub(dayStart)
				steps := int64(elapsed/step) + 1
				candidate = dayStart.Add(time.Duration(steps) * step)
			}
			if !candidate.After(dayEnd) {
				return &candidate
			}
		}

		// Advance to just before the start of the next calendar day so the
		// next loop iteration re-evaluates from that day's window start.
		next := time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
		cursor = next.Add(-time.Nanosecond)
	}
	return nil
}

func (t *DailyTimeIntervalTrigger) fireTimeForCal(after time.Time, cal Calendar) *time.Time {
	candidate := t.GetFireTimeAfter(after)
	for candidate != nil && cal != nil && !cal.IsTimeIncluded(*candidate) {
		candidate = t.GetFireTimeAfter(*candidate)
	}
	return candidate
}

func (t *DailyTimeIntervalTrigger) ComputeFirstFireTime(cal Calendar) *time.Time {
	first := t.fireTimeForCal(t.startTime.Add(-time.Nanosecond), cal)
	t.nextFireTime = first
	return first
}

func (t *DailyTimeIntervalTrigger) Triggered(cal Calendar) {
	t.prevFireTime = t.nextFireTime
	t.TimesTriggered++
	if t.RepeatCount != RepeatIndefinitely && t.TimesTriggered > t.RepeatCount {
		t.nextFireTime = nil
		return
	}
	if t.nextFireTime == nil {
		return
	}
	t.nextFireTime = t.fireTimeForCal(*t.nextFireTime, cal)
}

// UpdateAfterMisfire treats MisfireSmart as FireOnceNow, per the Open
// Question in spec.md §9 leaving daily-time-interval's SMART mapping
// unspecified in the original source.
func (t *DailyTimeIntervalTrigger) UpdateAfterMisfire(cal Calendar, now time.Time) {
	if t.nextFireTime == nil || t.misfire == MisfireIgnore {
		return
	}
	if t.misfire == MisfireSmart || t.misfire == MisfireFireOnceNow {
		t.nextFireTime = &now
		return
	}
	t.nextFireTime = t.fireTimeForCal(now.Add(-time.Nanosecond), cal)
}

func (t *DailyTimeIntervalTrigger) UpdateWithNewCalendar(cal Calendar, misfireThreshold time.Duration, now time.Time) {
	if t.nextFireTime == nil {
		return
	}
	base := t.startTime.Add(-time.Nanosecond)
	if t.prevFireTime != nil {
		base = *t.prevFireTime
	}
	next := t.fireTimeForCal(base, cal)
	if next != nil && now.Sub(*next) > misfireThreshold {
		next = t.fireTimeForCal(now, cal)
	}
	t.nextFireTime = next
}

func (t *DailyTimeIntervalTrigger) MayFireAgain() bool { return t.nextFireTime != nil }

func (t *DailyTimeIntervalTrigger) GetFinalFireTime() *time.Time { return nil }

func (t *DailyTimeIntervalTrigger) Validate() error {
	if t.Interval <= 0 {
		return ErrInvalidTrigger
	}
	if t.EndTimeOfDay.duration() < t.StartTimeOfDay.duration() {
		return ErrInvalidTrigger
	}
	return nil
}
