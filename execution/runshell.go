package execution

import (
	"time"

	"github.com/netresearch/goschedule/store"
	"github.com/netresearch/goschedule/trigger"
)

// RunShell wraps the execution of a single FiredBundle: it builds the job
// via a JobFactory, merges job and trigger data, notifies trigger and job
// listeners, recovers a panicking job, times the run, and derives the
// store.CompletionInstruction the JobStore applies once Run returns
// (spec.md §4.6).
type RunShell struct {
	Factory   JobFactory
	Listeners *ListenerManager
	Logger    Logger
}

// NewRunShell builds a shell using factory (DefaultJobFactory if nil) and
// listeners (an empty manager if nil).
func NewRunShell(factory JobFactory, listeners *ListenerManager, logger Logger) *RunShell {
	if factory == nil {
		factory = DefaultJobFactory{}
	}
	if listeners == nil {
		listeners = NewListenerManager()
	}
	return &RunShell{Factory: factory, Listeners: listeners, Logger: logger}
}

// Result is what Run hands back to the scheduler thread: the completion
// instruction to apply to the trigger, the execution context (for
// PersistJobDataAfterExecution), and any error the job or veto produced.
type Result struct {
	Trigger     trigger.Trigger
	JobDetail   *trigger.JobDetail
	Instruction store.CompletionInstruction
	Context     *trigger.ExecutionContext
	Err         error
	Duration    time.Duration
}

// Run executes one firing end to end. It never panics: a panicking Job is
// converted into a *PanicError and the firing completes with
// SetTriggerError (or SetAllTriggersOfJobError, if the job requested that
// via ExecutionContext.Result set to a JobExecutionException-equivalent
// unscheduleAllTriggers flag — spec.md leaves the exact signal
// implementation-defined, so RunShell exposes it via the Out map key
// "unscheduleAllTriggers").
func (rs *RunShell) Run(bundle trigger.FiredBundle) Result {
	return rs.RunWithHook(bundle, nil)
}

// RunWithHook behaves like Run but calls onContext with the built
// ExecutionContext before any listener runs, letting a caller (the
// scheduler thread) register the context for Scheduler.Interrupt before
// the job itself starts running.
func (rs *RunShell) RunWithHook(bundle trigger.FiredBundle, onContext func(*trigger.ExecutionContext)) Result {
	data := bundle.JobDetail.JobData.Clone()
	if bundle.Trigger != nil {
		data = data.Merge(triggerDataOf(bundle.Trigger))
	}
	ctx := trigger.NewExecutionContext(bundle, data)
	if onContext != nil {
		onContext(ctx)
	}

	for _, l := range rs.Listeners.TriggerListeners() {
		if l.VetoJobExecution(bundle.Trigger, ctx) {
			l.TriggerComplete(bundle.Trigger, ctx)
			for _, jl := range rs.Listeners.JobListeners() {
				jl.JobExecutionVetoed(ctx)
			}
			return Result{Trigger: bundle.Trigger, JobDetail: bundle.JobDetail, Instruction: store.NOOP, Context: ctx, Err: ErrJobVetoed}
		}
		l.TriggerFired(bundle.Trigger, ctx)
	}

	for _, jl := range rs.Listeners.JobListeners() {
		jl.JobToBeExecuted(ctx)
	}

	start := time.Now()
	runErr := rs.execute(bundle, ctx)
	elapsed := time.Since(start)

	instruction := rs.deriveInstruction(ctx, runErr)

	for _, jl := range rs.Listeners.JobListeners() {
		jl.JobWasExecuted(ctx, runErr)
	}
	for _, l := range rs.Listeners.TriggerListeners() {
		l.TriggerComplete(bundle.Trigger, ctx)
	}

	return Result{Trigger: bundle.Trigger, JobDetail: bundle.JobDetail, Instruction: instruction, Context: ctx, Err: runErr, Duration: elapsed}
}

func (rs *RunShell) execute(bundle trigger.FiredBundle, ctx *trigger.ExecutionContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
			if rs.Logger != nil {
				rs.Logger.Errorf("job %s panicked: %v", bundle.JobDetail.Key, r)
			}
		}
	}()

	job, buildErr := rs.Factory.NewJob(bundle)
	if buildErr != nil {
		return buildErr
	}
	return job.Execute(ctx)
}

func (rs *RunShell) deriveInstruction(ctx *trigger.ExecutionContext, runErr error) store.CompletionInstruction {
	if runErr == nil {
		return store.NOOP
	}
	if v, ok := ctx.Out["unscheduleAllTriggers"]; ok {
		if b, ok := v.(bool); ok && b {
			return store.SetAllTriggersOfJobError
		}
	}
	return store.SetTriggerError
}

// triggerDataOf extracts a trigger's JobDataMap, if the concrete trigger
// type carries one. SimpleTrigger is the only built-in variant that does,
// used by Scheduler.TriggerJob to overlay one-shot manual-fire data without
// mutating the stored JobDetail.
func triggerDataOf(trig trigger.Trigger) trigger.JobDataMap {
	if carrier, ok := trig.(interface{ JobDataMap() trigger.JobDataMap }); ok {
		if data := carrier.JobDataMap(); data != nil {
			return data
		}
	}
	return trigger.NewJobDataMap()
}
