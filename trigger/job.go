package trigger

import "time"

// Job is the user-supplied unit of work a Trigger fires. Implementations
// should treat ctx as read/write scratch space for the single firing it was
// built for; ctx is never reused across firings.
type Job interface {
	Execute(ctx *ExecutionContext) error
}

// JobFunc adapts a plain function to the Job interface, the Go analogue of
// Quartz example jobs that do nothing but wrap a closure.
type JobFunc func(ctx *ExecutionContext) error

func (f JobFunc) Execute(ctx *ExecutionContext) error { return f(ctx) }

// JobDetail is the identity and metadata for a schedulable unit of work.
// JobType, rather than a reflective class reference, is the constructor the
// default JobFactory (see the execution package) calls to obtain a fresh
// Job instance per firing; callers that already have a long-lived Job value
// may set JobType to a closure that always returns that same value.
type JobDetail struct {
	Key         JobKey
	JobType     func() (Job, error)
	Description string
	JobData     JobDataMap

	// Durable jobs are retained in the store even when no trigger
	// references them (invariant 3).
	Durable bool
	// RequestsRecovery marks a job to be re-fired after a hard stop of the
	// scheduler while it was executing (persistent stores only; the RAM
	// store accepts the flag but has nothing to recover from, since it
	// holds no state across process restarts).
	RequestsRecovery bool

	// PersistJobDataAfterExecution, when true, causes the store to copy a
	// completed firing's (possibly job-mutated) data map back onto this
	// JobDetail so the next firing observes it.
	PersistJobDataAfterExecution bool
	// ConcurrentExecutionDisallowed, when true, forbids more than one
	// in-flight execution across all triggers referencing this job
	// (invariant 10).
	ConcurrentExecutionDisallowed bool
}

// NewJobDetail builds a JobDetail for a job type constructed fresh per
// firing via newJob.
func NewJobDetail(key JobKey, newJob func() (Job, error)) *JobDetail {
	return &JobDetail{
		Key:     key,
		JobType: newJob,
		JobData: NewJobDataMap(),
	}
}

// NewJobDetailForInstance builds a JobDetail that always executes the same
// Job instance, the common case for simple in-process jobs that hold no
// per-firing state of their own.
func NewJobDetailForInstance(key JobKey, j Job) *JobDetail {
	return NewJobDetail(key, func() (Job, error) { return j, nil })
}

// FiredBundle is the immutable snapshot the store hands a worker for a
// single firing of a trigger.
type FiredBundle struct {
	Job               Job
	JobDetail         *JobDetail
	Trigger           Trigger
	Calendar          Calendar
	FireTime          time.Time
	ScheduledFireTime time.Time
	PrevFireTime      *time.Time
	NextFireTime      *time.Time
	Recovering        bool
	FireInstanceID    string
}

// ExecutionContext is the per-invocation object visible to a job: the
// merged data map, the bundle fields, a user-writable Result, and an Out
// map for listener communication.
type ExecutionContext struct {
	Bundle FiredBundle
	Data   JobDataMap

	Result any
	Out    map[string]any

	// cancel is closed by Scheduler.Interrupt to cooperatively signal the
	// running job; jobs that never check Cancelled() run to completion.
	cancel chan struct{}
}

// NewExecutionContext builds the context for a single firing. data is the
// already-merged job+trigger data map (trigger entries win on collision).
func NewExecutionContext(bundle FiredBundle, data JobDataMap) *ExecutionContext {
	return &ExecutionContext{
		Bundle: bundle,
		Data:   data,
		Out:    make(map[string]any),
		cancel: make(chan struct{}),
	}
}

// Cancel signals cooperative interruption; safe to call more than once.
func (c *ExecutionContext) Cancel() {
	select {
	case <-c.cancel:
	default:
		close(c.cancel)
	}
}

// Cancelled returns a channel that is closed once Cancel has been called
// for this firing.
func (c *ExecutionContext) Cancelled() <-chan struct{} {
	return c.cancel
}
