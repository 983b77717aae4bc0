package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netresearch/goschedule/clock"
	"github.com/netresearch/goschedule/trigger"
)

func noopJob() (trigger.Job, error) {
	return trigger.JobFunc(func(*trigger.ExecutionContext) error { return nil }), nil
}

func storeJobAndSimpleTrigger(t *testing.T, s *RAMJobStore, jobName, trigName string, start time.Time, interval time.Duration, repeat int, disallowConcurrent bool) (*trigger.JobDetail, trigger.Trigger) {
	t.Helper()
	detail := trigger.NewJobDetail(trigger.NewJobKeyDefault(jobName), noopJob)
	detail.ConcurrentExecutionDisallowed = disallowConcurrent

	trig, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault(trigName), detail.Key, start, interval, repeat)
	require.NoError(t, err)

	require.NoError(t, s.StoreJobAndTrigger(detail, trig))
	return detail, trig
}

func TestRAMJobStore_StoreAndRetrieveJob(t *testing.T) {
	s := NewRAMJobStore(nil)
	detail, trig := storeJobAndSimpleTrigger(t, s, "j1", "t1", time.Now(), time.Minute, trigger.RepeatIndefinitely, false)

	got, ok := s.RetrieveJob(detail.Key)
	require.True(t, ok)
	assert.Equal(t, detail, got)

	gotTrig, ok := s.RetrieveTrigger(trig.Key())
	require.True(t, ok)
	assert.Equal(t, trig.Key(), gotTrig.Key())

	assert.Equal(t, StateWaiting, s.TriggerState(trig.Key()))
}

func TestRAMJobStore_StoreTrigger_UnknownJobFails(t *testing.T) {
	s := NewRAMJobStore(nil)
	trig, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault("orphan"), trigger.NewJobKeyDefault("ghost"), time.Now(), time.Minute, trigger.RepeatIndefinitely)
	require.NoError(t, err)

	err = s.StoreTrigger(trig, false)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRAMJobStore_RemoveTrigger_DeletesNonDurableOrphanJob(t *testing.T) {
	s := NewRAMJobStore(nil)
	detail, trig := storeJobAndSimpleTrigger(t, s, "j1", "t1", time.Now(), time.Minute, trigger.RepeatIndefinitely, false)

	ok, err := s.RemoveTrigger(trig.Key())
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok = s.RetrieveJob(detail.Key)
	assert.False(t, ok, "non-durable orphaned job should be removed along with its last trigger")
}

func TestRAMJobStore_RemoveTrigger_KeepsDurableOrphanJob(t *testing.T) {
	s := NewRAMJobStore(nil)
	detail := trigger.NewJobDetail(trigger.NewJobKeyDefault("j1"), noopJob)
	detail.Durable = true
	require.NoError(t, s.StoreJob(detail, false))

	trig, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault("t1"), detail.Key, time.Now(), time.Minute, trigger.RepeatIndefinitely)
	require.NoError(t, err)
	require.NoError(t, s.StoreTrigger(trig, false))

	_, err = s.RemoveTrigger(trig.Key())
	require.NoError(t, err)

	_, ok := s.RetrieveJob(detail.Key)
	assert.True(t, ok, "durable job should survive losing its last trigger")
}

func TestRAMJobStore_AcquireNextTriggers_OrdersByFireTimeThenPriority(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()

	_, late := storeJobAndSimpleTrigger(t, s, "jlate", "tlate", now.Add(10*time.Millisecond), time.Hour, trigger.RepeatIndefinitely, false)
	_, early := storeJobAndSimpleTrigger(t, s, "jearly", "tearly", now.Add(5*time.Millisecond), time.Hour, trigger.RepeatIndefinitely, false)
	early.SetPriority(1)
	late.SetPriority(10)

	batch := s.AcquireNextTriggers(now, 10, time.Second)
	require.Len(t, batch, 2)
	assert.Equal(t, early.Key(), batch[0].Key(), "earlier fire time wins regardless of priority")
	assert.Equal(t, late.Key(), batch[1].Key())
}

func TestRAMJobStore_AcquireNextTriggers_RespectsMaxCountAndWindow(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()
	storeJobAndSimpleTrigger(t, s, "j1", "t1", now, time.Hour, trigger.RepeatIndefinitely, false)
	storeJobAndSimpleTrigger(t, s, "j2", "t2", now, time.Hour, trigger.RepeatIndefinitely, false)
	storeJobAndSimpleTrigger(t, s, "j3", "t3", now.Add(time.Hour), time.Hour, trigger.RepeatIndefinitely, false)

	batch := s.AcquireNextTriggers(now, 1, 0)
	assert.Len(t, batch, 1, "maxCount caps the batch")

	s.ReleaseAcquiredTrigger(batch[0])
	batch = s.AcquireNextTriggers(now, 10, 0)
	assert.Len(t, batch, 2, "the trigger an hour out falls outside the window")
}

func TestRAMJobStore_AcquireNextTriggers_BlocksConcurrentDisallowedJob(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()

	detail := trigger.NewJobDetail(trigger.NewJobKeyDefault("exclusive"), noopJob)
	detail.ConcurrentExecutionDisallowed = true
	require.NoError(t, s.StoreJob(detail, false))

	trigA, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault("a"), detail.Key, now, time.Hour, trigger.RepeatIndefinitely)
	require.NoError(t, err)
	trigB, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault("b"), detail.Key, now, time.Hour, trigger.RepeatIndefinitely)
	require.NoError(t, err)
	require.NoError(t, s.StoreTrigger(trigA, false))
	require.NoError(t, s.StoreTrigger(trigB, false))

	batch := s.AcquireNextTriggers(now, 10, 0)
	assert.Len(t, batch, 1, "only one trigger of a concurrency-disallowed job may be acquired in a batch")

	fired := s.TriggersFired(batch)
	require.Len(t, fired, 1)

	// The sibling trigger was never acquired in this batch; TriggersFired
	// moved it to BLOCKED because its job is executing, so re-acquiring
	// skips it.
	second := s.AcquireNextTriggers(now, 10, 0)
	assert.Empty(t, second, "the sibling trigger stays unacquired while the job is executing")
}

func TestRAMJobStore_TriggersFired_BlocksSiblingTriggers(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()

	detail := trigger.NewJobDetail(trigger.NewJobKeyDefault("exclusive"), noopJob)
	detail.ConcurrentExecutionDisallowed = true
	require.NoError(t, s.StoreJob(detail, false))

	trigA, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault("a"), detail.Key, now, time.Hour, trigger.RepeatIndefinitely)
	require.NoError(t, err)
	trigB, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault("b"), detail.Key, now.Add(time.Minute), time.Hour, trigger.RepeatIndefinitely)
	require.NoError(t, err)
	require.NoError(t, s.StoreTrigger(trigA, false))
	require.NoError(t, s.StoreTrigger(trigB, false))

	batch := s.AcquireNextTriggers(now, 1, 0)
	require.Len(t, batch, 1)
	s.TriggersFired(batch)

	assert.Equal(t, StateBlocked, s.TriggerState(trigB.Key()), "sibling trigger of an executing exclusive job should be blocked")
}

func TestRAMJobStore_TriggeredJobComplete_UnblocksSiblingTriggers(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()

	detail := trigger.NewJobDetail(trigger.NewJobKeyDefault("exclusive"), noopJob)
	detail.ConcurrentExecutionDisallowed = true
	require.NoError(t, s.StoreJob(detail, false))

	trigA, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault("a"), detail.Key, now, time.Hour, trigger.RepeatIndefinitely)
	require.NoError(t, err)
	trigB, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault("b"), detail.Key, now.Add(time.Minute), time.Hour, trigger.RepeatIndefinitely)
	require.NoError(t, err)
	require.NoError(t, s.StoreTrigger(trigA, false))
	require.NoError(t, s.StoreTrigger(trigB, false))

	batch := s.AcquireNextTriggers(now, 1, 0)
	require.Len(t, batch, 1)
	fired := s.TriggersFired(batch)
	require.Len(t, fired, 1)

	require.Equal(t, StateBlocked, s.TriggerState(trigB.Key()))

	s.TriggeredJobComplete(fired[0].Trigger, fired[0].JobDetail, NOOP, nil)

	assert.Equal(t, StateWaiting, s.TriggerState(trigB.Key()), "sibling should unblock once the exclusive job completes")
}

func TestRAMJobStore_TriggeredJobComplete_DeleteTrigger(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()
	detail, trig := storeJobAndSimpleTrigger(t, s, "j1", "t1", now, time.Hour, trigger.RepeatIndefinitely, false)

	batch := s.AcquireNextTriggers(now, 10, 0)
	require.Len(t, batch, 1)
	fired := s.TriggersFired(batch)
	require.Len(t, fired, 1)

	s.TriggeredJobComplete(trig, detail, DeleteTrigger, nil)

	_, ok := s.RetrieveTrigger(trig.Key())
	assert.False(t, ok)
}

func TestRAMJobStore_TriggeredJobComplete_PersistsJobData(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()

	detail := trigger.NewJobDetail(trigger.NewJobKeyDefault("j1"), noopJob)
	detail.PersistJobDataAfterExecution = true
	require.NoError(t, s.StoreJob(detail, false))
	trig, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault("t1"), detail.Key, now, time.Hour, trigger.RepeatIndefinitely)
	require.NoError(t, err)
	require.NoError(t, s.StoreTrigger(trig, false))

	batch := s.AcquireNextTriggers(now, 10, 0)
	fired := s.TriggersFired(batch)
	require.Len(t, fired, 1)

	data := trigger.NewJobDataMap()
	data["counter"] = 42
	ctx := trigger.NewExecutionContext(fired[0], data)

	s.TriggeredJobComplete(trig, detail, NOOP, ctx)

	got, _ := s.RetrieveJob(detail.Key)
	assert.Equal(t, 42, got.JobData["counter"])
}

func TestRAMJobStore_PauseAndResumeJob(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()
	detail, trig := storeJobAndSimpleTrigger(t, s, "j1", "t1", now, time.Hour, trigger.RepeatIndefinitely, false)

	require.NoError(t, s.PauseJob(detail.Key))
	assert.Equal(t, StatePaused, s.TriggerState(trig.Key()))

	batch := s.AcquireNextTriggers(now, 10, 0)
	assert.Empty(t, batch, "paused triggers must not be acquired")

	require.NoError(t, s.ResumeJob(detail.Key))
	assert.Equal(t, StateWaiting, s.TriggerState(trig.Key()))

	batch = s.AcquireNextTriggers(now, 10, 0)
	assert.Len(t, batch, 1)
}

func TestRAMJobStore_PauseTriggers_NewTriggerInPausedGroupStartsPaused(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()
	_, trig := storeJobAndSimpleTrigger(t, s, "j1", "t1", now, time.Hour, trigger.RepeatIndefinitely, false)

	groups := s.PauseTriggers(trig.Key().Group)
	assert.Contains(t, groups, trig.Key().Group)
	assert.Equal(t, StatePaused, s.TriggerState(trig.Key()))

	_, trig2 := storeJobAndSimpleTrigger(t, s, "j2", "t2", now, time.Hour, trigger.RepeatIndefinitely, false)
	assert.Equal(t, StatePaused, s.TriggerState(trig2.Key()), "a trigger stored into an already-paused group starts paused")
}

func TestRAMJobStore_PauseAllThenResumeAll(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()
	_, t1 := storeJobAndSimpleTrigger(t, s, "j1", "t1", now, time.Hour, trigger.RepeatIndefinitely, false)
	_, t2 := storeJobAndSimpleTrigger(t, s, "j2", "t2", now, time.Hour, trigger.RepeatIndefinitely, false)

	s.PauseAll()
	assert.Equal(t, StatePaused, s.TriggerState(t1.Key()))
	assert.Equal(t, StatePaused, s.TriggerState(t2.Key()))

	s.ResumeAll()
	assert.Equal(t, StateWaiting, s.TriggerState(t1.Key()))
	assert.Equal(t, StateWaiting, s.TriggerState(t2.Key()))
}

func TestRAMJobStore_ResumeTrigger_AppliesMisfireAfterLongPause(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewRAMJobStore(nil)
	s.Clock = fc
	s.MisfireThreshold = time.Millisecond

	start := fc.Now()
	_, trig := storeJobAndSimpleTrigger(t, s, "j1", "t1", start, time.Minute, 0, false)

	// Fast-forward an hour without anyone acquiring the trigger: its single
	// fire time (repeatCount 0) is now long past the misfire threshold.
	fc.Advance(time.Hour)

	require.NoError(t, s.PauseTrigger(trig.Key()))
	require.NoError(t, s.ResumeTrigger(trig.Key()))

	// The default misfire instruction reschedules it to fire now, so it
	// should still be WAITING (and immediately acquirable), not stuck
	// COMPLETE.
	assert.Equal(t, StateWaiting, s.TriggerState(trig.Key()))

	batch := s.AcquireNextTriggers(fc.Now(), 10, 0)
	assert.Len(t, batch, 1, "misfired trigger should be immediately acquirable after rescheduling")
}

func TestRAMJobStore_StoreCalendar_UpdatesReferencingTriggers(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()
	detail := trigger.NewJobDetail(trigger.NewJobKeyDefault("j1"), noopJob)
	require.NoError(t, s.StoreJob(detail, false))

	trig, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault("t1"), detail.Key, now, time.Hour, trigger.RepeatIndefinitely)
	require.NoError(t, err)
	trig.SetCalendarName("weekends-off")
	require.NoError(t, s.StoreTrigger(trig, false))

	cal := trigger.NewWeeklyCalendar()
	require.NoError(t, s.StoreCalendar("weekends-off", cal, false, true))

	names := s.GetCalendarNames()
	assert.Contains(t, names, "weekends-off")
	require.NotNil(t, trig.NextFireTime())
	assert.True(t, cal.IsTimeIncluded(*trig.NextFireTime()), "the stored trigger's next fire time is moved onto a day the calendar includes")
}

func TestRAMJobStore_RemoveCalendar_FailsWhileInUse(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()
	detail := trigger.NewJobDetail(trigger.NewJobKeyDefault("j1"), noopJob)
	require.NoError(t, s.StoreJob(detail, false))

	trig, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault("t1"), detail.Key, now, time.Hour, trigger.RepeatIndefinitely)
	require.NoError(t, err)
	trig.SetCalendarName("c1")
	require.NoError(t, s.StoreTrigger(trig, false))

	cal := trigger.NewWeeklyCalendar()
	require.NoError(t, s.StoreCalendar("c1", cal, false, false))

	_, err = s.RemoveCalendar("c1")
	assert.ErrorIs(t, err, ErrCalendarInUse)
}

func TestRAMJobStore_GetGroupNamesAreSortedAndDeduped(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()
	storeJobAndSimpleTrigger(t, s, "j1", "t1", now, time.Hour, trigger.RepeatIndefinitely, false)
	storeJobAndSimpleTrigger(t, s, "j2", "t2", now, time.Hour, trigger.RepeatIndefinitely, false)

	assert.Equal(t, []string{trigger.DefaultGroup}, s.GetJobGroupNames())
	assert.Equal(t, []string{trigger.DefaultGroup}, s.GetTriggerGroupNames())
}

func TestRAMJobStore_Clear(t *testing.T) {
	s := NewRAMJobStore(nil)
	now := time.Now()
	detail, trig := storeJobAndSimpleTrigger(t, s, "j1", "t1", now, time.Hour, trigger.RepeatIndefinitely, false)

	s.Clear()

	_, ok := s.RetrieveJob(detail.Key)
	assert.False(t, ok)
	_, ok = s.RetrieveTrigger(trig.Key())
	assert.False(t, ok)
}

func TestRAMJobStore_Signaled_FiresOnMutation(t *testing.T) {
	s := NewRAMJobStore(nil)
	signal := s.Signaled()

	detail := trigger.NewJobDetail(trigger.NewJobKeyDefault("j1"), noopJob)
	require.NoError(t, s.StoreJob(detail, false))
	trig, err := trigger.NewSimpleTrigger(trigger.NewTriggerKeyDefault("t1"), detail.Key, time.Now(), time.Hour, trigger.RepeatIndefinitely)
	require.NoError(t, err)
	require.NoError(t, s.StoreTrigger(trig, false))

	select {
	case <-signal:
	default:
		t.Fatal("expected Signaled() channel to be closed after StoreTrigger")
	}
}
