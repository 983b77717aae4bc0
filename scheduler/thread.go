package scheduler

import (
	"sync"
	"time"

	"github.com/netresearch/goschedule/store"
	"github.com/netresearch/goschedule/trigger"
)

// schedulerThread is the Go analogue of Quartz's QuartzSchedulerThread: a
// single loop that alternates between acquiring a batch of due triggers
// from the store, waiting until the earliest of them is actually due (or
// until the store signals a change that could move that wakeup earlier),
// firing the batch, and dispatching each firing into the worker pool
// (spec.md §4.5).
type schedulerThread struct {
	sched *Scheduler

	mu      sync.Mutex
	cond    *sync.Cond
	standby bool
	stopped bool
	running bool

	activeMu sync.Mutex
	active   map[string]*trigger.ExecutionContext
}

func newSchedulerThread(s *Scheduler) *schedulerThread {
	t := &schedulerThread{sched: s, standby: true, active: make(map[string]*trigger.ExecutionContext)}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *schedulerThread) start() {
	t.mu.Lock()
	t.standby = false
	wasRunning := t.running
	t.running = true
	t.mu.Unlock()
	t.cond.Broadcast()

	if !wasRunning {
		go t.loop()
	}
}

func (t *schedulerThread) standbyMode() {
	t.mu.Lock()
	t.standby = true
	t.mu.Unlock()
	t.cond.Broadcast()
}

func (t *schedulerThread) stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	t.cond.Broadcast()
}

func (t *schedulerThread) interruptAll() {
	t.activeMu.Lock()
	defer t.activeMu.Unlock()
	for _, ctx := range t.active {
		ctx.Cancel()
	}
}

func (t *schedulerThread) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// loop runs on its own goroutine for the scheduler's lifetime once
// started, parking in standby until start() is called and returning for
// good once stop() is called.
func (t *schedulerThread) loop() {
	for {
		t.mu.Lock()
		for t.standby && !t.stopped {
			t.cond.Wait()
		}
		stopped := t.stopped
		t.mu.Unlock()
		if stopped {
			return
		}

		t.runCycle()
	}
}

// runCycle performs one acquire-wait-fire cycle. If the store currently has
// no due trigger it fires nothing and parks for up to IdleWaitTime (less if
// the store signals a change or stop/standby is requested) before
// returning, so the outer loop can then re-check standby/stop state.
func (t *schedulerThread) runCycle() {
	s := t.sched
	now := s.clock.Now()

	batch := s.store.AcquireNextTriggers(now, s.cfg.BatchTriggerAcquisitionMaxCount, s.cfg.BatchTriggerAcquisitionFireAheadWindow)
	s.metrics.BatchAcquired(len(batch))
	if len(batch) == 0 {
		t.waitFor(s.cfg.IdleWaitTime, s.store.Signaled())
		return
	}

	earliest := *batch[0].NextFireTime()
	for _, trig := range batch[1:] {
		if nft := trig.NextFireTime(); nft != nil && nft.Before(earliest) {
			earliest = *nft
		}
	}

	wait := earliest.Sub(s.clock.Now())
	if wait > 0 {
		interrupted := t.waitFor(wait, s.store.Signaled())
		if interrupted {
			for _, trig := range batch {
				s.store.ReleaseAcquiredTrigger(trig)
			}
			return
		}
	}

	if t.isStopped() {
		for _, trig := range batch {
			s.store.ReleaseAcquiredTrigger(trig)
		}
		return
	}

	bundles := s.store.TriggersFired(batch)
	for _, bundle := range bundles {
		t.dispatch(bundle)
	}
}

// waitFor blocks for at most d, returning early (with true) if signal
// fires, stop() is called, or standby() is called first.
func (t *schedulerThread) waitFor(d time.Duration, signal <-chan struct{}) bool {
	timer := t.sched.clock.NewTimer(d)
	defer timer.Stop()

	stopCheck := time.NewTicker(25 * time.Millisecond)
	defer stopCheck.Stop()

	for {
		select {
		case <-timer.C():
			return false
		case <-signal:
			return true
		case <-stopCheck.C:
			if t.isStopped() || t.isStandby() {
				return true
			}
		}
	}
}

func (t *schedulerThread) isStandby() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.standby
}

// dispatch runs a single firing's JobRunShell on the worker pool and
// applies its result to the store once it completes.
func (t *schedulerThread) dispatch(bundle trigger.FiredBundle) {
	s := t.sched

	s.metrics.JobStarted(bundle.JobDetail.Key.Group, bundle.JobDetail.Key.Name)

	submitted := s.pool.Submit(func() {
		result := s.runShell.RunWithHook(bundle, func(ctx *trigger.ExecutionContext) {
			t.activeMu.Lock()
			t.active[bundle.FireInstanceID] = ctx
			t.activeMu.Unlock()
		})

		t.activeMu.Lock()
		delete(t.active, bundle.FireInstanceID)
		t.activeMu.Unlock()

		s.metrics.JobCompleted(bundle.JobDetail.Key.Group, bundle.JobDetail.Key.Name, result.Duration.Seconds(), result.Err != nil)
		s.store.TriggeredJobComplete(bundle.Trigger, bundle.JobDetail, result.Instruction, result.Context)
	})

	if !submitted {
		s.store.TriggeredJobComplete(bundle.Trigger, bundle.JobDetail, store.SetTriggerError, nil)
	}
}
