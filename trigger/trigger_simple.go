package trigger

import "time"

// SimpleTrigger fires at a fixed rate: the k-th fire (k starting at 0)
// occurs at StartTime + k*RepeatInterval, for k in [0, RepeatCount] unless
// RepeatCount is RepeatIndefinitely.
type SimpleTrigger struct {
	base
	RepeatInterval time.Duration
	RepeatCount    int
	TimesTriggered int

	// Data overlays onto the job's own JobDataMap for firings of this
	// trigger specifically, without touching the stored JobDetail (used by
	// Scheduler.TriggerJob's one-shot manual trigger).
	Data JobDataMap
}

// JobDataMap returns the data this trigger overlays onto its job's map at
// firing time, satisfying the optional interface RunShell looks for.
func (t *SimpleTrigger) JobDataMap() JobDataMap { return t.Data }

// NewSimpleTrigger builds a SimpleTrigger firing repeatCount+1 times (or
// indefinitely if repeatCount is RepeatIndefinitely) starting at start.
func NewSimpleTrigger(key TriggerKey, jobKey JobKey, start time.Time, interval time.Duration, repeatCount int) (*SimpleTrigger, error) {
	return NewSimpleTriggerWindow(key, jobKey, start, nil, interval, repeatCount)
}

func NewSimpleTriggerWindow(key TriggerKey, jobKey JobKey, start time.Time, end *time.Time, interval time.Duration, repeatCount int) (*SimpleTrigger, error) {
	b, err := newBase(key, jobKey, start, end)
	if err != nil {
		return nil, err
	}
	return &SimpleTrigger{base: b, RepeatInterval: interval, RepeatCount: repeatCount}, nil
}

func (t *SimpleTrigger) SetMisfireInstruction(mi MisfireInstruction) { t.misfire = mi }

// nthFireTime returns the k-th fire instant, or nil if k exceeds
// RepeatCount or falls at/after EndTime.
func (t *SimpleTrigger) nthFireTime(k int64) *time.Time {
	if t.RepeatCount != RepeatIndefinitely && k > int64(t.RepeatCount) {
		return nil
	}
	ft := t.startTime.Add(time.Duration(k) * t.RepeatInterval)
	if t.endTime != nil && !ft.Before(*t.endTime) {
		return nil
	}
	return &ft
}

func (t *SimpleTrigger) ComputeFirstFireTime(cal Calendar) *time.Time {
	first := t.fireTimeForK(0, cal)
	t.nextFireTime = first
	return first
}

// fireTimeForK returns the k-th (or later, if cal excludes earlier ones)
// fire time honoring the calendar, matching invariant 8.
func (t *SimpleTrigger) fireTimeForK(k int64, cal Calendar) *time.Time {
	for {
		ft := t.nthFireTime(k)
		if ft == nil {
			return nil
		}
		if cal == nil || cal.IsTimeIncluded(*ft) {
			return ft
		}
		k++
	}
}

// GetFireTimeAfter implements: k = floor((after-startTime)/interval) + 1,
// unless after is before startTime, in which case k = 0.
func (t *SimpleTrigger) GetFireTimeAfter(after time.Time) *time.Time {
	return t.fireTimeForK(t.kAfter(after), nil)
}

func (t *SimpleTrigger) kAfter(after time.Time) int64 {
	if after.Before(t.startTime) {
		return 0
	}
	elapsed := after.Sub(t.startTime)
	return int64(elapsed/t.RepeatInterval) + 1
}

func (t *SimpleTrigger) Triggered(cal Calendar) {
	t.prevFireTime = t.nextFireTime
	t.TimesTriggered++
	if t.nextFireTime == nil {
		return
	}
	t.nextFireTime = t.fireTimeForK(t.kAfter(*t.nextFireTime), cal)
}

// missedFires returns how many fires have elapsed between nextFireTime and
// now, clamped at zero, used by the RESCHEDULE_*_WITH_REMAINING_COUNT
// misfire instructions.
func (t *SimpleTrigger) missedFires(now time.Time) int {
	if t.nextFireTime == nil || t.RepeatInterval <= 0 {
		return 0
	}
	d := now.Sub(*t.nextFireTime)
	if d <= 0 {
		return 0
	}
	return int(d / t.RepeatInterval)
}

// effectiveMisfireInstruction maps MisfireSmart to the concrete instruction
// per spec.md §4.2: repeatCount==0 -> FireOnceNow; indefinite ->
// RescheduleNextWithRemainingCount; else RescheduleNowWithExistingRepeatCount.
func (t *SimpleTrigger) effectiveMisfireInstruction() MisfireInstruction {
	if t.misfire != MisfireSmart {
		return t.misfire
	}
	switch {
	case t.RepeatCount == 0:
		return MisfireFireOnceNow
	case t.RepeatCount == RepeatIndefinitely:
		return MisfireRescheduleNextWithRemainingCount
	default:
		return MisfireRescheduleNowWithExistingRepeatCount
	}
}

func (t *SimpleTrigger) UpdateAfterMisfire(cal Calendar, now time.Time) {
	if t.nextFireTime == nil {
		return
	}
	missed := t.missedFires(now)

	switch t.effectiveMisfireInstruction() {
	case MisfireIgnore:
		return
	case MisfireFireOnceNow:
		t.nextFireTime = &now
	case MisfireRescheduleNowWithExistingRepeatCount:
		t.nextFireTime = &now
	case MisfireRescheduleNowWithRemainingRepeatCount:
		if t.RepeatCount != RepeatIndefinitely {
			t.RepeatCount -= missed
			if t.RepeatCount < 0 {
				t.RepeatCount = 0
			}
		}
		t.nextFireTime = &now
	case MisfireRescheduleNextWithExistingCount:
		t.nextFireTime = t.fireTimeForK(t.kAfter(now), cal)
	case MisfireRescheduleNextWithRemainingCount:
		if t.RepeatCount != RepeatIndefinitely {
			t.RepeatCount -= missed
			if t.RepeatCount < 0 {
				t.RepeatCount = 0
			}
		}
		t.nextFireTime = t.fireTimeForK(t.kAfter(now), cal)
	}
}

func (t *SimpleTrigger) UpdateWithNewCalendar(cal Calendar, misfireThreshold time.Duration, now time.Time) {
	if t.nextFireTime == nil {
		return
	}
	next := t.fireTimeForK(t.kAfter(t.startTime.Add(-time.Nanosecond)), cal)
	if next != nil {
		next = t.fireTimeForK(t.kAfter(*t.prevFireTimeOrStart()), cal)
	}
	if next != nil && now.Sub(*next) > misfireThreshold {
		next = t.fireTimeForK(t.kAfter(now), cal)
	}
	t.nextFireTime = next
}

func (t *SimpleTrigger) prevFireTimeOrStart() *time.Time {
	if t.prevFireTime != nil {
		return t.prevFireTime
	}
	s := t.startTime.Add(-time.Nanosecond)
	return &s
}

func (t *SimpleTrigger) MayFireAgain() bool { return t.nextFireTime != nil }

func (t *SimpleTrigger) GetFinalFireTime() *time.Time {
	if t.RepeatCount == RepeatIndefinitely {
		return nil
	}
	return t.nthFireTime(int64(t.RepeatCount))
}

func (t *SimpleTrigger) Validate() error {
	if t.RepeatInterval <= 0 {
		return ErrInvalidTrigger
	}
	return nil
}
