package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netresearch/goschedule/clock"
	"github.com/netresearch/goschedule/execution"
	"github.com/netresearch/goschedule/metrics"
	"github.com/netresearch/goschedule/store"
	"github.com/netresearch/goschedule/trigger"
	"github.com/netresearch/goschedule/workerpool"
)

// lifecycleState is the scheduler's coarse run state (spec.md §4.7).
type lifecycleState int

const (
	stateInitial lifecycleState = iota
	stateStandby
	stateRunning
	stateShutdown
)

// Scheduler is the application-facing façade over a Store, a worker pool,
// and the thread that drives them. It corresponds to Quartz's Scheduler
// interface plus its StdScheduler implementation collapsed into one type,
// since Go has no need for the separate QuartzScheduler/StdScheduler
// split that exists only to hide RMI plumbing in the original.
type Scheduler struct {
	mu     sync.Mutex
	state  lifecycleState
	cfg    Config
	store  store.Store
	pool   *workerpool.Pool
	clock  clock.Clock
	logger *slog.Logger

	factory   execution.JobFactory
	listeners *execution.ListenerManager
	runShell  *execution.RunShell
	metrics   metrics.Recorder

	thread *schedulerThread
}

// New builds a Scheduler backed by st (a *store.RAMJobStore in the default
// wiring). The scheduler does not start acquiring and firing triggers
// until Start or StartDelayed is called.
func New(cfg Config, st store.Store, logger *slog.Logger) *Scheduler {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.InstanceID == "NON_CLUSTERED" {
		cfg.InstanceID = fmt.Sprintf("NON_CLUSTERED-%s", uuid.NewString())
	}

	s := &Scheduler{
		cfg:       cfg,
		store:     st,
		pool:      workerpool.NewPool(cfg.ThreadPoolSize, logger),
		clock:     clock.GetDefaultClock(),
		logger:    logger,
		factory:   execution.DefaultJobFactory{},
		listeners: execution.NewListenerManager(),
		metrics:   metrics.NoopRecorder{},
		state:     stateInitial,
	}
	s.runShell = execution.NewRunShell(s.factory, s.listeners, &execution.SlogAdapter{Log: logger})
	s.thread = newSchedulerThread(s)
	Register(s)
	return s
}

func (s *Scheduler) InstanceName() string { return s.cfg.InstanceName }
func (s *Scheduler) InstanceID() string   { return s.cfg.InstanceID }

func (s *Scheduler) SetJobFactory(f execution.JobFactory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factory = f
	s.runShell.Factory = f
}

func (s *Scheduler) GetListenerManager() *execution.ListenerManager { return s.listeners }

// SetMetricsRecorder swaps in a metrics.Recorder (e.g. a
// metrics.PrometheusRecorder); the default is a no-op.
func (s *Scheduler) SetMetricsRecorder(r metrics.Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = r
}

// --- lifecycle -----------------------------------------------------------

// Start begins the scheduler thread's acquire/fire loop immediately.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.state == stateShutdown {
		s.mu.Unlock()
		return ErrSchedulerShutdown
	}
	s.state = stateRunning
	s.mu.Unlock()

	s.thread.start()
	s.notifySchedulerListeners(func(l execution.SchedulerListener) { l.SchedulerStarted() })
	return nil
}

// StartDelayed begins the scheduler thread after delay elapses, returning
// immediately.
func (s *Scheduler) StartDelayed(delay func() <-chan struct{}) error {
	s.mu.Lock()
	if s.state == stateShutdown {
		s.mu.Unlock()
		return ErrSchedulerShutdown
	}
	s.mu.Unlock()

	go func() {
		<-delay()
		_ = s.Start()
	}()
	return nil
}

// Standby pauses trigger acquisition without shutting the scheduler down;
// in-flight jobs continue to run. Start resumes acquisition.
func (s *Scheduler) Standby() {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		return
	}
	s.state = stateStandby
	s.mu.Unlock()

	s.thread.standbyMode()
	s.notifySchedulerListeners(func(l execution.SchedulerListener) { l.SchedulerStandby() })
}

func (s *Scheduler) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

func (s *Scheduler) IsInStandbyMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateStandby
}

func (s *Scheduler) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateShutdown
}

// Shutdown stops the scheduler thread and, if waitForJobsToComplete is
// true, blocks until every in-flight JobRunShell has returned. If
// Config.InterruptJobsOnShutdown is set, every in-flight
// ExecutionContext is cancelled first.
func (s *Scheduler) Shutdown(waitForJobsToComplete bool) {
	s.mu.Lock()
	if s.state == stateShutdown {
		s.mu.Unlock()
		return
	}
	s.state = stateShutdown
	interrupt := s.cfg.InterruptJobsOnShutdown
	s.mu.Unlock()

	s.thread.stop()
	if interrupt {
		s.Interrupt()
	}
	s.pool.Shutdown(waitForJobsToComplete)
	s.notifySchedulerListeners(func(l execution.SchedulerListener) { l.SchedulerShutdown() })
	Remove(s.cfg.InstanceName)
}

// Interrupt cancels every context belonging to a currently executing
// trigger, a cooperative signal a Job must itself observe via
// ExecutionContext.Cancelled.
func (s *Scheduler) Interrupt() {
	s.thread.interruptAll()
}

func (s *Scheduler) notifySchedulerListeners(f func(execution.SchedulerListener)) {
	for _, l := range s.listeners.SchedulerListeners() {
		f(l)
	}
}

// --- job/trigger registration --------------------------------------------

func (s *Scheduler) ScheduleJob(detail *trigger.JobDetail, trig trigger.Trigger) error {
	if trig.JobKey() != detail.Key {
		return fmt.Errorf("scheduler: trigger %s does not reference job %s", trig.Key(), detail.Key)
	}
	if err := trig.Validate(); err != nil {
		return err
	}
	if err := s.store.StoreJobAndTrigger(detail, trig); err != nil {
		return err
	}
	s.notifySchedulerListeners(func(l execution.SchedulerListener) { l.JobScheduled(trig) })
	return nil
}

// ScheduleTrigger attaches trig to an already-stored job.
func (s *Scheduler) ScheduleTrigger(trig trigger.Trigger) error {
	if err := trig.Validate(); err != nil {
		return err
	}
	if err := s.store.StoreTrigger(trig, false); err != nil {
		return err
	}
	s.notifySchedulerListeners(func(l execution.SchedulerListener) { l.JobScheduled(trig) })
	return nil
}

func (s *Scheduler) UnscheduleJob(key trigger.TriggerKey) (bool, error) {
	ok, err := s.store.RemoveTrigger(key)
	if ok {
		s.notifySchedulerListeners(func(l execution.SchedulerListener) { l.JobUnscheduled(key) })
	}
	return ok, err
}

func (s *Scheduler) RescheduleJob(key trigger.TriggerKey, newTrigger trigger.Trigger) (bool, error) {
	if err := newTrigger.Validate(); err != nil {
		return false, err
	}
	return s.store.ReplaceTrigger(key, newTrigger)
}

func (s *Scheduler) AddJob(detail *trigger.JobDetail, replaceExisting bool) error {
	err := s.store.StoreJob(detail, replaceExisting)
	if err == nil {
		s.notifySchedulerListeners(func(l execution.SchedulerListener) { l.JobAdded(detail) })
	}
	return err
}

func (s *Scheduler) DeleteJob(key trigger.JobKey) (bool, error) {
	ok, err := s.store.RemoveJob(key)
	if ok {
		s.notifySchedulerListeners(func(l execution.SchedulerListener) { l.JobDeleted(key) })
	}
	return ok, err
}

// TriggerJob fires detail's job once, immediately, outside its normal
// schedule, by storing a throwaway one-shot trigger for it that starts now
// (Quartz's manual trigger semantics); the scheduler thread acquires it like
// any other due trigger.
func (s *Scheduler) TriggerJob(key trigger.JobKey, data trigger.JobDataMap) error {
	if _, ok := s.store.RetrieveJob(key); !ok {
		return store.ErrJobNotFound
	}
	manualKey := trigger.NewTriggerKey(fmt.Sprintf("MANUAL_%s", uuid.NewString()), key.Group)
	trig, err := trigger.NewSimpleTrigger(manualKey, key, s.clock.Now(), time.Second, 0)
	if err != nil {
		return err
	}
	if data != nil {
		trig.Data = data
	}
	return s.store.StoreTrigger(trig, false)
}

func (s *Scheduler) GetJobDetail(key trigger.JobKey) (*trigger.JobDetail, bool) {
	return s.store.RetrieveJob(key)
}

func (s *Scheduler) GetTrigger(key trigger.TriggerKey) (trigger.Trigger, bool) {
	return s.store.RetrieveTrigger(key)
}

func (s *Scheduler) GetTriggerState(key trigger.TriggerKey) store.TriggerState {
	return s.store.TriggerState(key)
}

func (s *Scheduler) GetTriggersOfJob(key trigger.JobKey) []trigger.Trigger {
	return s.store.GetTriggersOfJob(key)
}

func (s *Scheduler) GetJobGroupNames() []string     { return s.store.GetJobGroupNames() }
func (s *Scheduler) GetTriggerGroupNames() []string { return s.store.GetTriggerGroupNames() }
func (s *Scheduler) GetCalendarNames() []string     { return s.store.GetCalendarNames() }

func (s *Scheduler) AddCalendar(name string, cal trigger.Calendar, replaceExisting, updateTriggers bool) error {
	return s.store.StoreCalendar(name, cal, replaceExisting, updateTriggers)
}

func (s *Scheduler) DeleteCalendar(name string) (bool, error) { return s.store.RemoveCalendar(name) }

func (s *Scheduler) PauseJob(key trigger.JobKey) error     { return s.store.PauseJob(key) }
func (s *Scheduler) PauseJobs(group string) []string       { return s.store.PauseJobs(group) }
func (s *Scheduler) ResumeJob(key trigger.JobKey) error    { return s.store.ResumeJob(key) }
func (s *Scheduler) ResumeJobs(group string) []string      { return s.store.ResumeJobs(group) }
func (s *Scheduler) PauseTrigger(key trigger.TriggerKey) error  { return s.store.PauseTrigger(key) }
func (s *Scheduler) PauseTriggers(group string) []string        { return s.store.PauseTriggers(group) }
func (s *Scheduler) ResumeTrigger(key trigger.TriggerKey) error { return s.store.ResumeTrigger(key) }
func (s *Scheduler) ResumeTriggers(group string) []string       { return s.store.ResumeTriggers(group) }
func (s *Scheduler) PauseAll()                                  { s.store.PauseAll() }
func (s *Scheduler) ResumeAll()                                 { s.store.ResumeAll() }

func (s *Scheduler) Clear() { s.store.Clear() }
