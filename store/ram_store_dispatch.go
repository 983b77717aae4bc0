package store

import (
	"sort"
	"time"

	"github.com/netresearch/goschedule/trigger"
)

// --- pause / resume ----------------------------------------------------

func (s *RAMJobStore) PauseTrigger(key trigger.TriggerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.triggers[key]
	if !ok {
		return ErrTriggerNotFound
	}
	s.pauseTriggerLocked(w)
	s.signalLocked()
	return nil
}

func (s *RAMJobStore) pauseTriggerLocked(w *triggerWrapper) {
	switch w.state {
	case StateBlocked:
		w.state = StatePausedAndBlocked
	case StateComplete:
		// terminal; leave as-is
	default:
		w.state = StatePaused
	}
}

func (s *RAMJobStore) PauseTriggers(group string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedTriggerGroups[group] = true
	seen := map[string]bool{}
	for k, w := range s.triggers {
		if k.Group == group {
			s.pauseTriggerLocked(w)
			seen[k.Group] = true
		}
	}
	s.signalLocked()
	return sortedKeys(seen)
}

func (s *RAMJobStore) ResumeTrigger(key trigger.TriggerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.triggers[key]
	if !ok {
		return ErrTriggerNotFound
	}
	s.resumeTriggerLocked(w)
	s.signalLocked()
	return nil
}

// resumeTriggerLocked un-pauses a trigger and, if its schedule has already
// passed while paused, applies its misfire instruction (spec.md §4.3
// resume-applies-misfire-check rule).
func (s *RAMJobStore) resumeTriggerLocked(w *triggerWrapper) {
	switch w.state {
	case StatePaused:
		w.state = StateWaiting
	case StatePausedAndBlocked:
		w.state = StateBlocked
	default:
		return
	}
	s.applyMisfireIfNeededLocked(w)
}

func (s *RAMJobStore) ResumeTriggers(group string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pausedTriggerGroups, group)
	seen := map[string]bool{}
	for k, w := range s.triggers {
		if k.Group == group {
			s.resumeTriggerLocked(w)
			seen[k.Group] = true
		}
	}
	s.signalLocked()
	return sortedKeys(seen)
}

func (s *RAMJobStore) PauseJob(key trigger.JobKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	holder, ok := s.jobs[key]
	if !ok {
		return ErrJobNotFound
	}
	for tk := range holder.triggers {
		s.pauseTriggerLocked(s.triggers[tk])
	}
	s.signalLocked()
	return nil
}

func (s *RAMJobStore) PauseJobs(group string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedJobGroups[group] = true
	seen := map[string]bool{}
	for jk, holder := range s.jobs {
		if jk.Group != group {
			continue
		}
		seen[jk.Group] = true
		for tk := range holder.triggers {
			s.pauseTriggerLocked(s.triggers[tk])
		}
	}
	s.signalLocked()
	return sortedKeys(seen)
}

func (s *RAMJobStore) ResumeJob(key trigger.JobKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	holder, ok := s.jobs[key]
	if !ok {
		return ErrJobNotFound
	}
	for tk := range holder.triggers {
		s.resumeTriggerLocked(s.triggers[tk])
	}
	s.signalLocked()
	return nil
}

func (s *RAMJobStore) ResumeJobs(group string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pausedJobGroups, group)
	seen := map[string]bool{}
	for jk, holder := range s.jobs {
		if jk.Group != group {
			continue
		}
		seen[jk.Group] = true
		for tk := range holder.triggers {
			s.resumeTriggerLocked(s.triggers[tk])
		}
	}
	s.signalLocked()
	return sortedKeys(seen)
}

func (s *RAMJobStore) PauseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, w := range s.triggers {
		s.pausedTriggerGroups[k.Group] = true
		s.pauseTriggerLocked(w)
	}
	s.signalLocked()
}

func (s *RAMJobStore) ResumeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedTriggerGroups = make(map[string]bool)
	s.pausedJobGroups = make(map[string]bool)
	for _, w := range s.triggers {
		s.resumeTriggerLocked(w)
	}
	s.signalLocked()
}

// applyMisfireIfNeededLocked detects a missed fire against the store's
// misfire threshold and, if found, delegates to the trigger's own
// instruction (spec.md §4.1 misfire contract).
func (s *RAMJobStore) applyMisfireIfNeededLocked(w *triggerWrapper) {
	next := w.trig.NextFireTime()
	if next == nil {
		w.state = StateComplete
		return
	}
	if s.now().Sub(*next) <= s.MisfireThreshold {
		return
	}
	var cal trigger.Calendar
	if name := w.trig.CalendarName(); name != "" {
		cal = s.calendars[name]
	}
	w.trig.UpdateAfterMisfire(cal, s.now())
	if w.trig.NextFireTime() == nil {
		w.state = StateComplete
	}
}

// --- acquisition / firing / completion ----------------------------------

// AcquireNextTriggers reserves up to maxCount WAITING triggers whose next
// fire time is at or before noLaterThan+timeWindow (already-past fire
// times included), ordered by
// (nextFireTime asc, priority desc, key asc) (spec.md §4.3). Jobs marked
// ConcurrentExecutionDisallowed that already have a trigger executing are
// skipped (their triggers stay WAITING).
func (s *RAMJobStore) AcquireNextTriggers(noLaterThan time.Time, maxCount int, timeWindow time.Duration) []trigger.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := noLaterThan.Add(timeWindow)

	candidates := make([]*triggerWrapper, 0, len(s.triggers))
	for _, w := range s.triggers {
		if w.state != StateWaiting {
			continue
		}
		s.applyMisfireIfNeededLocked(w)
		if w.state != StateWaiting {
			continue
		}
		next := w.trig.NextFireTime()
		if next == nil || next.After(cutoff) {
			continue
		}
		candidates = append(candidates, w)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		ai, bi := a.trig.NextFireTime(), b.trig.NextFireTime()
		if !ai.Equal(*bi) {
			return ai.Before(*bi)
		}
		if a.trig.Priority() != b.trig.Priority() {
			return a.trig.Priority() > b.trig.Priority()
		}
		return a.trig.Key().Less(b.trig.Key())
	})

	acquiredJobs := map[trigger.JobKey]bool{}
	out := make([]trigger.Trigger, 0, maxCount)
	for _, w := range candidates {
		if len(out) >= maxCount {
			break
		}
		jobKey := w.trig.JobKey()
		holder, ok := s.jobs[jobKey]
		if !ok {
			continue
		}
		if holder.detail.ConcurrentExecutionDisallowed && (s.blockedJobs[jobKey] || acquiredJobs[jobKey]) {
			continue
		}
		w.state = StateAcquired
		acquiredJobs[jobKey] = true
		out = append(out, w.trig)
	}
	return out
}

// ReleaseAcquiredTrigger returns a trigger the scheduler thread acquired
// but ultimately did not fire back to WAITING (spec.md §4.5).
func (s *RAMJobStore) ReleaseAcquiredTrigger(trig trigger.Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.triggers[trig.Key()]
	if !ok || w.state != StateAcquired {
		return
	}
	w.state = StateWaiting
	s.signalLocked()
}

// TriggersFired transitions each acquired trigger to EXECUTING, blocks the
// job's other triggers if it disallows concurrent execution, and returns
// one FiredBundle per trigger that is still eligible to fire. A trigger is
// skipped if it is no longer ACQUIRED (e.g. paused since acquisition), its
// job is gone, or it has no next fire time; the calendar is not re-checked
// here.
func (s *RAMJobStore) TriggersFired(fired []trigger.Trigger) []trigger.FiredBundle {
	s.mu.Lock()
	defer s.mu.Unlock()

	bundles := make([]trigger.FiredBundle, 0, len(fired))
	for _, trig := range fired {
		w, ok := s.triggers[trig.Key()]
		if !ok || w.state != StateAcquired {
			continue
		}

		holder, ok := s.jobs[trig.JobKey()]
		if !ok {
			s.removeTriggerLocked(trig.Key())
			continue
		}

		var cal trigger.Calendar
		if name := trig.CalendarName(); name != "" {
			cal = s.calendars[name]
		}

		scheduled := trig.NextFireTime()
		if scheduled == nil {
			w.state = StateComplete
			continue
		}

		prev := trig.PreviousFireTime()
		trig.Triggered(cal)
		next := trig.NextFireTime()

		w.state = StateExecuting
		if holder.detail.ConcurrentExecutionDisallowed {
			s.blockedJobs[trig.JobKey()] = true
			for tk := range holder.triggers {
				if tk == trig.Key() {
					continue
				}
				if other := s.triggers[tk]; other.state == StateWaiting {
					other.state = StateBlocked
				} else if other.state == StatePaused {
					other.state = StatePausedAndBlocked
				}
			}
		}

		bundles = append(bundles, trigger.FiredBundle{
			JobDetail:         holder.detail,
			Trigger:           trig,
			Calendar:          cal,
			FireTime:          *scheduled,
			ScheduledFireTime: *scheduled,
			PrevFireTime:      prev,
			NextFireTime:      next,
			FireInstanceID:    trig.Key().String() + "-" + scheduled.Format(time.RFC3339Nano),
		})
	}
	return bundles
}

// TriggeredJobComplete applies a JobRunShell's completion instruction
// (spec.md §4.6), unblocking any job the trigger had blocked.
func (s *RAMJobStore) TriggeredJobComplete(trig trigger.Trigger, detail *trigger.JobDetail, instruction CompletionInstruction, jctx *trigger.ExecutionContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.triggers[trig.Key()]

	if holder, ok := s.jobs[detail.Key]; ok && holder.detail.ConcurrentExecutionDisallowed {
		delete(s.blockedJobs, detail.Key)
		for tk := range holder.triggers {
			if other := s.triggers[tk]; other != nil {
				switch other.state {
				case StateBlocked:
					other.state = StateWaiting
				case StatePausedAndBlocked:
					other.state = StatePaused
				}
			}
		}
	}

	switch instruction {
	case DeleteTrigger:
		s.removeTriggerLocked(trig.Key())
	case SetTriggerComplete:
		if ok {
			w.state = StateComplete
		}
	case SetTriggerError:
		if ok {
			w.state = StateError
		}
	case SetAllTriggersOfJobComplete:
		if holder, hok := s.jobs[detail.Key]; hok {
			for tk := range holder.triggers {
				s.triggers[tk].state = StateComplete
			}
		}
	case SetAllTriggersOfJobError:
		if holder, hok := s.jobs[detail.Key]; hok {
			for tk := range holder.triggers {
				s.triggers[tk].state = StateError
			}
		}
	default: // NOOP, ReExecuteJob: trigger returns to its natural state
		if ok && w.state == StateExecuting {
			if trig.NextFireTime() == nil {
				w.state = StateComplete
			} else {
				w.state = StateWaiting
			}
		}
	}

	if holder, hok := s.jobs[detail.Key]; hok && holder.detail.PersistJobDataAfterExecution && jctx != nil {
		holder.detail.JobData = jctx.Data.Clone()
	}

	s.signalLocked()
}
