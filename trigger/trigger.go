package trigger

import (
	"errors"
	"time"
)

// ErrEndBeforeStart is returned by New*Trigger constructors when EndTime is
// set and precedes StartTime (invariant 4).
var ErrEndBeforeStart = errors.New("trigger: end time is before start time")

// Trigger is the capability set common to all trigger variants (Cron,
// Simple, CalendarInterval, DailyTimeInterval). Dynamic dispatch across
// variants is replaced by this interface plus the sealed set of concrete
// types in this package (spec.md §9).
type Trigger interface {
	Key() TriggerKey
	JobKey() JobKey
	Priority() int
	SetPriority(p int)
	CalendarName() string

	StartTime() time.Time
	EndTime() *time.Time

	NextFireTime() *time.Time
	PreviousFireTime() *time.Time

	// ComputeFirstFireTime sets and returns the trigger's first fire time,
	// honoring cal if non-nil. Called once when the trigger enters the
	// store.
	ComputeFirstFireTime(cal Calendar) *time.Time

	// GetFireTimeAfter returns the least fire time strictly after t,
	// without mutating the trigger's own prev/next state.
	GetFireTimeAfter(t time.Time) *time.Time

	// Triggered advances prev/next after a successful fire, honoring cal.
	Triggered(cal Calendar)

	// UpdateAfterMisfire applies this trigger's misfire instruction,
	// treating now as the current time (supplied by the store's clock
	// rather than read from the wall clock directly).
	UpdateAfterMisfire(cal Calendar, now time.Time)

	// UpdateWithNewCalendar recomputes nextFireTime against a
	// newly-associated (or changed) calendar, treating now as the current
	// time (supplied by the store's clock).
	UpdateWithNewCalendar(cal Calendar, misfireThreshold time.Duration, now time.Time)

	// MayFireAgain reports whether NextFireTime() could ever become
	// non-nil again (false once the trigger is spent).
	MayFireAgain() bool

	// GetFinalFireTime returns the last time this trigger will ever fire,
	// or nil if it fires indefinitely or the variant does not implement
	// the computation (spec.md's Open Questions permits nil for cron).
	GetFinalFireTime() *time.Time

	Validate() error

	MisfireInstruction() MisfireInstruction
}

// base holds the fields and bookkeeping shared by every concrete trigger
// variant; each variant embeds it and implements the schedule-specific
// methods itself.
type base struct {
	key          TriggerKey
	jobKey       JobKey
	priority     int
	calendarName string
	startTime    time.Time
	endTime      *time.Time
	nextFireTime *time.Time
	prevFireTime *time.Time
	misfire      MisfireInstruction
}

const defaultPriority = 5

func newBase(key TriggerKey, jobKey JobKey, start time.Time, end *time.Time) (base, error) {
	if end != nil && end.Before(start) {
		return base{}, ErrEndBeforeStart
	}
	return base{
		key:       key,
		jobKey:    jobKey,
		priority:  defaultPriority,
		startTime: start,
		endTime:   end,
	}, nil
}

func (b *base) Key() TriggerKey             { return b.key }
func (b *base) JobKey() JobKey              { return b.jobKey }
func (b *base) Priority() int               { return b.priority }
func (b *base) SetPriority(p int)           { b.priority = p }
func (b *base) CalendarName() string        { return b.calendarName }
func (b *base) SetCalendarName(name string) { b.calendarName = name }
func (b *base) StartTime() time.Time        { return b.startTime }
func (b *base) EndTime() *time.Time         { return b.endTime }
func (b *base) NextFireTime() *time.Time    { return b.nextFireTime }
func (b *base) PreviousFireTime() *time.Time { return b.prevFireTime }
func (b *base) MisfireInstruction() MisfireInstruction { return b.misfire }

// excludeCalendar advances candidate past any calendar-excluded instants,
// returning nil if the search runs past the trigger's end time.
func excludeCalendar(cal Calendar, candidate *time.Time, endTime *time.Time) *time.Time {
	for candidate != nil && cal != nil && !cal.IsTimeIncluded(*candidate) {
		next := cal.GetNextIncludedTime(*candidate)
		if next.IsZero() || (endTime != nil && !next.Before(*endTime)) {
			return nil
		}
		candidate = &next
	}
	if candidate != nil && endTime != nil && !candidate.Before(*endTime) {
		return nil
	}
	return candidate
}
