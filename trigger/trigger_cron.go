package trigger

import "time"

// CronTrigger fires according to a CronExpression, evaluated in Expr's own
// time zone.
type CronTrigger struct {
	base
	Expr *CronExpression
}

// NewCronTrigger builds a CronTrigger starting immediately (start=now) with
// no end time and MisfireSmart (interpreted as FireOnceNow, per spec.md
// §4.2).
func NewCronTrigger(key TriggerKey, jobKey JobKey, expr *CronExpression) (*CronTrigger, error) {
	return NewCronTriggerWindow(key, jobKey, expr, time.Now(), nil)
}

// NewCronTriggerWindow builds a CronTrigger with an explicit [start, end)
// window.
func NewCronTriggerWindow(key TriggerKey, jobKey JobKey, expr *CronExpression, start time.Time, end *time.Time) (*CronTrigger, error) {
	b, err := newBase(key, jobKey, start, end)
	if err != nil {
		return nil, err
	}
	return &CronTrigger{base: b, Expr: expr}, nil
}

// SetMisfireInstruction sets how this trigger recovers from a missed fire;
// valid values are MisfireSmart, MisfireIgnore, MisfireFireOnceNow, and
// MisfireDoNothing.
func (t *CronTrigger) SetMisfireInstruction(mi MisfireInstruction) { t.misfire = mi }

func (t *CronTrigger) ComputeFirstFireTime(cal Calendar) *time.Time {
	first := t.GetFireTimeAfter(t.startTime.Add(-time.Second))
	first = excludeCalendar(cal, first, t.endTime)
	t.nextFireTime = first
	return first
}

// GetFireTimeAfter implements: CronExpression.nextAfter(max(t,
// startTime-1s), tz); nil if the result is at or after endTime.
func (t *CronTrigger) GetFireTimeAfter(after time.Time) *time.Time {
	ref := after
	flooredStart := t.startTime.Add(-time.Second)
	if flooredStart.After(ref) {
		ref = flooredStart
	}

	next := t.Expr.NextAfter(ref)
	if next.IsZero() {
		return nil
	}
	if t.endTime != nil && !next.Before(*t.endTime) {
		return nil
	}
	return &next
}

// Triggered advances prev <- next, next <- nextAfter(next), honoring cal.
func (t *CronTrigger) Triggered(cal Calendar) {
	t.prevFireTime = t.nextFireTime
	if t.nextFireTime == nil {
		return
	}
	next := t.GetFireTimeAfter(*t.nextFireTime)
	next = excludeCalendar(cal, next, t.endTime)
	t.nextFireTime = next
}

// UpdateAfterMisfire applies the cron misfire policy (spec.md §4.2):
// IGNORE leaves the schedule alone; SMART is interpreted as FIRE_ONCE_NOW;
// FIRE_ONCE_NOW sets next<-now; DO_NOTHING skips straight to the next
// non-excluded future fire.
func (t *CronTrigger) UpdateAfterMisfire(cal Calendar, now time.Time) {
	if t.nextFireTime == nil {
		return
	}
	switch t.misfire {
	case MisfireIgnore:
		return
	case MisfireDoNothing:
		next := t.GetFireTimeAfter(now)
		t.nextFireTime = excludeCalendar(cal, next, t.endTime)
	default: // MisfireSmart, MisfireFireOnceNow
		t.nextFireTime = &now
	}
}

func (t *CronTrigger) UpdateWithNewCalendar(cal Calendar, misfireThreshold time.Duration, now time.Time) {
	next := t.GetFireTimeAfter(t.startTime.Add(-time.Second))
	if t.nextFireTime != nil {
		next = t.GetFireTimeAfter(*t.prevFireTimeOrStart())
	}
	next = excludeCalendar(cal, next, t.endTime)
	if next != nil && now.Sub(*next) > misfireThreshold {
		next = t.GetFireTimeAfter(now)
		next = excludeCalendar(cal, next, t.endTime)
	}
	t.nextFireTime = next
}

func (t *CronTrigger) prevFireTimeOrStart() *time.Time {
	if t.prevFireTime != nil {
		return t.prevFireTime
	}
	start := t.startTime.Add(-time.Second)
	return &start
}

func (t *CronTrigger) MayFireAgain() bool { return t.nextFireTime != nil }

// GetFinalFireTime is not implemented for cron triggers, matching the
// "not yet implemented" behavior noted in spec.md's Open Questions.
func (t *CronTrigger) GetFinalFireTime() *time.Time { return nil }

func (t *CronTrigger) Validate() error {
	if t.Expr == nil {
		return ErrInvalidTrigger
	}
	return nil
}
