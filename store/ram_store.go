package store

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/netresearch/goschedule/clock"
	"github.com/netresearch/goschedule/trigger"
)

// Store is the abstract JobStore contract (spec.md §6). The RAM
// implementation in this package is the reference implementation; a
// persistent (JDBC-backed, clustered) implementation is out of scope
// (spec.md §1) but would honor the same interface and invariants.
type Store interface {
	StoreJob(detail *trigger.JobDetail, replaceExisting bool) error
	StoreTrigger(trig trigger.Trigger, replaceExisting bool) error
	StoreJobAndTrigger(detail *trigger.JobDetail, trig trigger.Trigger) error

	RemoveJob(key trigger.JobKey) (bool, error)
	RemoveTrigger(key trigger.TriggerKey) (bool, error)
	ReplaceTrigger(key trigger.TriggerKey, newTrigger trigger.Trigger) (bool, error)

	RetrieveJob(key trigger.JobKey) (*trigger.JobDetail, bool)
	RetrieveTrigger(key trigger.TriggerKey) (trigger.Trigger, bool)
	TriggerState(key trigger.TriggerKey) TriggerState

	StoreCalendar(name string, cal trigger.Calendar, replaceExisting, updateTriggers bool) error
	RemoveCalendar(name string) (bool, error)
	RetrieveCalendar(name string) (trigger.Calendar, bool)
	GetCalendarNames() []string

	GetJobGroupNames() []string
	GetTriggerGroupNames() []string
	GetTriggersOfJob(key trigger.JobKey) []trigger.Trigger

	PauseTrigger(key trigger.TriggerKey) error
	PauseTriggers(group string) []string
	ResumeTrigger(key trigger.TriggerKey) error
	ResumeTriggers(group string) []string
	PauseJob(key trigger.JobKey) error
	PauseJobs(group string) []string
	ResumeJob(key trigger.JobKey) error
	ResumeJobs(group string) []string
	PauseAll()
	ResumeAll()

	AcquireNextTriggers(noLaterThan time.Time, maxCount int, timeWindow time.Duration) []trigger.Trigger
	ReleaseAcquiredTrigger(trig trigger.Trigger)
	TriggersFired(fired []trigger.Trigger) []trigger.FiredBundle
	TriggeredJobComplete(trig trigger.Trigger, detail *trigger.JobDetail, instruction CompletionInstruction, jctx *trigger.ExecutionContext)

	// Signaled returns a channel closed whenever the store's internal
	// state changes in a way that could move the scheduler thread's next
	// wakeup earlier ("scheduling-changed", spec.md §4.3/§5). Callers
	// must re-fetch the channel after it fires; it is not reusable.
	Signaled() <-chan struct{}

	Clear()
}

type jobHolder struct {
	detail   *trigger.JobDetail
	triggers map[trigger.TriggerKey]bool
}

type triggerWrapper struct {
	trig  trigger.Trigger
	state TriggerState
}

// RAMJobStore is the in-memory reference JobStore. All mutations serialize
// on mu, matching spec.md §5's single-store-mutex shared-resource policy.
type RAMJobStore struct {
	mu sync.Mutex

	jobs     map[trigger.JobKey]*jobHolder
	triggers map[trigger.TriggerKey]*triggerWrapper
	calendars map[string]trigger.Calendar

	pausedTriggerGroups map[string]bool
	pausedJobGroups     map[string]bool
	blockedJobs         map[trigger.JobKey]bool

	signal chan struct{}

	Clock            clock.Clock
	MisfireThreshold time.Duration
	Logger           *slog.Logger
}

// NewRAMJobStore returns an empty store with a 60s misfire threshold, the
// Quartz default, using the real wall clock.
func NewRAMJobStore(logger *slog.Logger) *RAMJobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RAMJobStore{
		jobs:                make(map[trigger.JobKey]*jobHolder),
		triggers:            make(map[trigger.TriggerKey]*triggerWrapper),
		calendars:           make(map[string]trigger.Calendar),
		pausedTriggerGroups: make(map[string]bool),
		pausedJobGroups:     make(map[string]bool),
		blockedJobs:         make(map[trigger.JobKey]bool),
		signal:              make(chan struct{}),
		Clock:               clock.NewRealClock(),
		MisfireThreshold:    60 * time.Second,
		Logger:              logger,
	}
}

var _ Store = (*RAMJobStore)(nil)

func (s *RAMJobStore) Signaled() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signal
}

// signalLocked wakes any scheduler thread parked on Signaled(). Must be
// called with mu held.
func (s *RAMJobStore) signalLocked() {
	close(s.signal)
	s.signal = make(chan struct{})
}

func (s *RAMJobStore) now() time.Time { return s.Clock.Now() }

// --- job/trigger storage -------------------------------------------------

func (s *RAMJobStore) StoreJob(detail *trigger.JobDetail, replaceExisting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeJobLocked(detail, replaceExisting)
}

func (s *RAMJobStore) storeJobLocked(detail *trigger.JobDetail, replaceExisting bool) error {
	if existing, ok := s.jobs[detail.Key]; ok {
		if !replaceExisting {
			return ErrJobAlreadyExists
		}
		detail.JobData = existing.detail.JobData
		existing.detail = detail
		return nil
	}
	s.jobs[detail.Key] = &jobHolder{detail: detail, triggers: make(map[trigger.TriggerKey]bool)}
	return nil
}

func (s *RAMJobStore) StoreTrigger(trig trigger.Trigger, replaceExisting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeTriggerLocked(trig, replaceExisting)
}

func (s *RAMJobStore) storeTriggerLocked(trig trigger.Trigger, replaceExisting bool) error {
	if _, ok := s.triggers[trig.Key()]; ok {
		if !replaceExisting {
			return ErrTriggerAlreadyExists
		}
		s.removeTriggerLocked(trig.Key())
	}

	holder, ok := s.jobs[trig.JobKey()]
	if !ok {
		return ErrJobNotFound
	}

	var cal trigger.Calendar
	if trig.CalendarName() != "" {
		cal = s.calendars[trig.CalendarName()]
	}
	trig.ComputeFirstFireTime(cal)

	state := s.initialStateLocked(trig)
	s.triggers[trig.Key()] = &triggerWrapper{trig: trig, state: state}
	holder.triggers[trig.Key()] = true

	s.signalLocked()
	return nil
}

func (s *RAMJobStore) initialStateLocked(trig trigger.Trigger) TriggerState {
	triggerPaused := s.pausedTriggerGroups[trig.Key().Group]
	jobPaused := s.pausedJobGroups[trig.JobKey().Group]
	switch {
	case triggerPaused && jobPaused:
		return StatePausedAndBlocked
	case triggerPaused:
		return StatePaused
	default:
		return StateWaiting
	}
}

func (s *RAMJobStore) StoreJobAndTrigger(detail *trigger.JobDetail, trig trigger.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storeJobLocked(detail, false); err != nil {
		return err
	}
	return s.storeTriggerLocked(trig, false)
}

func (s *RAMJobStore) RemoveJob(key trigger.JobKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	holder, ok := s.jobs[key]
	if !ok {
		return false, nil
	}
	for tk := range holder.triggers {
		s.removeTriggerLocked(tk)
	}
	delete(s.jobs, key)
	s.signalLocked()
	return true, nil
}

func (s *RAMJobStore) RemoveTrigger(key trigger.TriggerKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.removeTriggerLocked(key)
	if ok {
		s.signalLocked()
	}
	return ok, nil
}

// removeTriggerLocked removes the trigger and, if its job is now a
// non-durable orphan, deletes the job too (invariant 3).
func (s *RAMJobStore) removeTriggerLocked(key trigger.TriggerKey) bool {
	wrapper, ok := s.triggers[key]
	if !ok {
		return false
	}
	delete(s.triggers, key)

	jobKey := wrapper.trig.JobKey()
	if holder, ok := s.jobs[jobKey]; ok {
		delete(holder.triggers, key)
		if len(holder.triggers) == 0 && !holder.detail.Durable {
			delete(s.jobs, jobKey)
		}
	}
	return true
}

func (s *RAMJobStore) ReplaceTrigger(key trigger.TriggerKey, newTrigger trigger.Trigger) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.triggers[key]
	if !ok {
		return false, nil
	}
	_ = old.trig.JobKey()
	s.removeTriggerLocked(key)
	if err := s.storeTriggerLocked(newTrigger, false); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RAMJobStore) RetrieveJob(key trigger.JobKey) (*trigger.JobDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	holder, ok := s.jobs[key]
	if !ok {
		return nil, false
	}
	return holder.detail, true
}

func (s *RAMJobStore) RetrieveTrigger(key trigger.TriggerKey) (trigger.Trigger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.triggers[key]
	if !ok {
		return nil, false
	}
	return w.trig, true
}

func (s *RAMJobStore) TriggerState(key trigger.TriggerKey) TriggerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.triggers[key]
	if !ok {
		return StateNone
	}
	return w.state
}

// --- calendars -------------------------------------------------------------

func (s *RAMJobStore) StoreCalendar(name string, cal trigger.Calendar, replaceExisting, updateTriggers bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calendars[name]; ok && !replaceExisting {
		return ErrCalendarAlreadyExists
	}
	s.calendars[name] = cal

	if updateTriggers {
		for _, w := range s.triggers {
			if w.trig.CalendarName() == name {
				w.trig.UpdateWithNewCalendar(cal, s.MisfireThreshold, s.now())
			}
		}
		s.signalLocked()
	}
	return nil
}

func (s *RAMJobStore) RemoveCalendar(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calendars[name]; !ok {
		return false, nil
	}
	for _, w := range s.triggers {
		if w.trig.CalendarName() == name {
			return false, ErrCalendarInUse
		}
	}
	delete(s.calendars, name)
	return true, nil
}

func (s *RAMJobStore) RetrieveCalendar(name string) (trigger.Calendar, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calendars[name]
	return c, ok
}

func (s *RAMJobStore) GetCalendarNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.calendars))
	for n := range s.calendars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *RAMJobStore) GetJobGroupNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	for k := range s.jobs {
		seen[k.Group] = true
	}
	return sortedKeys(seen)
}

func (s *RAMJobStore) GetTriggerGroupNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	for k := range s.triggers {
		seen[k.Group] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *RAMJobStore) GetTriggersOfJob(key trigger.JobKey) []trigger.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	holder, ok := s.jobs[key]
	if !ok {
		return nil
	}
	out := make([]trigger.Trigger, 0, len(holder.triggers))
	for tk := range holder.triggers {
		out = append(out, s.triggers[tk].trig)
	}
	return out
}

func (s *RAMJobStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[trigger.JobKey]*jobHolder)
	s.triggers = make(map[trigger.TriggerKey]*triggerWrapper)
	s.calendars = make(map[string]trigger.Calendar)
	s.pausedTriggerGroups = make(map[string]bool)
	s.pausedJobGroups = make(map[string]bool)
	s.blockedJobs = make(map[trigger.JobKey]bool)
	s.signalLocked()
}
