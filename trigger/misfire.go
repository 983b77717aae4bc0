package trigger

// MisfireInstruction enumerates how a trigger recovers from a missed fire.
// The zero value, MisfireSmart, lets each trigger variant interpret
// "smart" per its own semantics (spec.md §4.2).
type MisfireInstruction int

const (
	// MisfireSmart asks the trigger to pick the instruction its variant
	// considers the most sensible default.
	MisfireSmart MisfireInstruction = iota
	// MisfireIgnore leaves nextFireTime untouched; the scheduler thread's
	// normal misfire handling in the store still applies.
	MisfireIgnore

	// Cron-specific.
	MisfireFireOnceNow
	MisfireDoNothing

	// Simple-trigger-specific.
	MisfireRescheduleNowWithExistingRepeatCount
	MisfireRescheduleNowWithRemainingRepeatCount
	MisfireRescheduleNextWithExistingCount
	MisfireRescheduleNextWithRemainingCount
)

// RepeatIndefinitely marks a SimpleTrigger/DailyTimeIntervalTrigger as
// repeating without a fixed repeat count.
const RepeatIndefinitely = -1
