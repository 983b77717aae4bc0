package trigger

import "time"

// Calendar marks instants as included or excluded for a trigger's fire
// times. A Calendar may chain a base Calendar, in which case inclusion is
// the AND of this calendar's predicate and the base's.
type Calendar interface {
	IsTimeIncluded(t time.Time) bool
	// GetNextIncludedTime returns the next included instant after an
	// excluded t. A BaseCalendar with no base excludes nothing and returns
	// t itself.
	GetNextIncludedTime(t time.Time) time.Time
	GetBaseCalendar() Calendar
	SetBaseCalendar(base Calendar)
	Description() string
}

// BaseCalendar is an embeddable implementation handling the chained-AND
// base-calendar plumbing common to all concrete calendars; it treats every
// instant as included by itself, so embedders only need to override
// IsTimeIncluded and GetNextIncludedTime for their own predicate and then
// delegate to the embedded type for combination with a base calendar.
type BaseCalendar struct {
	base Calendar
	Desc string
}

func (c *BaseCalendar) GetBaseCalendar() Calendar    { return c.base }
func (c *BaseCalendar) SetBaseCalendar(base Calendar) { c.base = base }
func (c *BaseCalendar) Description() string          { return c.Desc }

// IsTimeIncluded, on BaseCalendar itself (no predicate of its own), simply
// defers to the base calendar, or includes everything if there is none.
func (c *BaseCalendar) IsTimeIncluded(t time.Time) bool {
	if c.base == nil {
		return true
	}
	return c.base.IsTimeIncluded(t)
}

func (c *BaseCalendar) GetNextIncludedTime(t time.Time) time.Time {
	if c.base == nil {
		return t
	}
	return c.base.GetNextIncludedTime(t)
}

// andIncluded combines this calendar's own predicate/result with whatever
// the (possibly nil) base calendar contributes. Concrete calendars call
// this from their IsTimeIncluded after evaluating their own rule.
func (c *BaseCalendar) andIncluded(ownIncluded bool, t time.Time) bool {
	if !ownIncluded {
		return false
	}
	if c.base == nil {
		return true
	}
	return c.base.IsTimeIncluded(t)
}

// WeeklyCalendar excludes a configurable set of weekdays (e.g. weekends),
// the Go-idiomatic equivalent of Quartz's WeeklyCalendar auxiliary
// implementation named in spec.md's out-of-scope list; kept here, with
// HolidayCalendar below, as a concrete Calendar the core ships, since
// §4.2's DailyTimeInterval and calendar-bearing triggers need something
// real to exercise updateWithNewCalendar against in tests.
type WeeklyCalendar struct {
	BaseCalendar
	// Excluded maps time.Weekday -> true for days NOT included.
	Excluded map[time.Weekday]bool
}

// NewWeeklyCalendar returns a calendar excluding Saturday and Sunday by
// default, matching Quartz's WeeklyCalendar default exclusion set.
func NewWeeklyCalendar() *WeeklyCalendar {
	return &WeeklyCalendar{
		Excluded: map[time.Weekday]bool{
			time.Saturday: true,
			time.Sunday:   true,
		},
	}
}

func (c *WeeklyCalendar) SetDayExcluded(day time.Weekday, excluded bool) {
	c.Excluded[day] = excluded
}

func (c *WeeklyCalendar) IsTimeIncluded(t time.Time) bool {
	own := !c.Excluded[t.Weekday()]
	return c.andIncluded(own, t)
}

func (c *WeeklyCalendar) GetNextIncludedTime(t time.Time) time.Time {
	next := t.Add(time.Second).Truncate(time.Second)
	for i := 0; i < 8; i++ { // at most a week of excluded days in a row
		if c.IsTimeIncluded(next) {
			return next
		}
		// Jump to the start of the next day.
		y, m, d := next.Date()
		next = time.Date(y, m, d, 0, 0, 0, 0, next.Location()).AddDate(0, 0, 1)
	}
	return next
}

// HolidayCalendar excludes a fixed set of whole-day dates.
type HolidayCalendar struct {
	BaseCalendar
	dates map[string]bool // "YYYY-MM-DD" in the instant's own location
}

func NewHolidayCalendar() *HolidayCalendar {
	return &HolidayCalendar{dates: make(map[string]bool)}
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (c *HolidayCalendar) AddExcludedDate(t time.Time) {
	c.dates[dateKey(t)] = true
}

func (c *HolidayCalendar) RemoveExcludedDate(t time.Time) {
	delete(c.dates, dateKey(t))
}

func (c *HolidayCalendar) IsTimeIncluded(t time.Time) bool {
	own := !c.dates[dateKey(t)]
	return c.andIncluded(own, t)
}

func (c *HolidayCalendar) GetNextIncludedTime(t time.Time) time.Time {
	next := t.Add(time.Second).Truncate(time.Second)
	for i := 0; i < 3660; i++ { // bounded walk; holiday sets are small and finite in practice
		if c.IsTimeIncluded(next) {
			return next
		}
		y, m, d := next.Date()
		next = time.Date(y, m, d, 0, 0, 0, 0, next.Location()).AddDate(0, 0, 1)
	}
	return next
}
