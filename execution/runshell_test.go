package execution

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netresearch/goschedule/store"
	"github.com/netresearch/goschedule/trigger"
)

type recordingJob struct {
	ran bool
	err error
}

func (j *recordingJob) Execute(ctx *trigger.ExecutionContext) error {
	j.ran = true
	ctx.Data.PutBool("touched", true)
	return j.err
}

func bundleFor(t *testing.T, j trigger.Job) trigger.FiredBundle {
	t.Helper()
	key := trigger.NewJobKeyDefault("job1")
	detail := trigger.NewJobDetailForInstance(key, j)
	return trigger.FiredBundle{JobDetail: detail, Job: j}
}

func TestRunShell_SuccessfulRun(t *testing.T) {
	job := &recordingJob{}
	rs := NewRunShell(nil, nil, nil)
	result := rs.Run(bundleFor(t, job))

	require.NoError(t, result.Err)
	assert.True(t, job.ran)
	assert.Equal(t, store.NOOP, result.Instruction)
	touched, ok := result.Context.Data.GetBool("touched")
	assert.True(t, ok)
	assert.True(t, touched)
}

func TestRunShell_JobErrorSetsTriggerError(t *testing.T) {
	job := &recordingJob{err: errors.New("boom")}
	rs := NewRunShell(nil, nil, nil)
	result := rs.Run(bundleFor(t, job))

	require.Error(t, result.Err)
	assert.Equal(t, store.SetTriggerError, result.Instruction)
}

func TestRunShell_PanicIsRecovered(t *testing.T) {
	panicky := trigger.JobFunc(func(ctx *trigger.ExecutionContext) error {
		panic("kaboom")
	})
	rs := NewRunShell(nil, nil, nil)
	result := rs.Run(bundleFor(t, panicky))

	require.Error(t, result.Err)
	var pe *PanicError
	assert.ErrorAs(t, result.Err, &pe)
	assert.Equal(t, store.SetTriggerError, result.Instruction)
}

type countingTriggerListener struct {
	fired, vetoed, completed int
	veto                     bool
}

func (l *countingTriggerListener) Name() string { return "counting" }
func (l *countingTriggerListener) TriggerFired(trigger.Trigger, *trigger.ExecutionContext) {
	l.fired++
}
func (l *countingTriggerListener) VetoJobExecution(trigger.Trigger, *trigger.ExecutionContext) bool {
	l.vetoed++
	return l.veto
}
func (l *countingTriggerListener) TriggerMisfired(trigger.Trigger) {}
func (l *countingTriggerListener) TriggerComplete(trigger.Trigger, *trigger.ExecutionContext) {
	l.completed++
}

func TestRunShell_VetoSkipsExecution(t *testing.T) {
	job := &recordingJob{}
	lm := NewListenerManager()
	tl := &countingTriggerListener{veto: true}
	lm.AddTriggerListener(tl)

	rs := NewRunShell(nil, lm, nil)
	result := rs.Run(bundleFor(t, job))

	assert.False(t, job.ran)
	assert.ErrorIs(t, result.Err, ErrJobVetoed)
	assert.Equal(t, 1, tl.vetoed)
	assert.Equal(t, 1, tl.completed)
	assert.Equal(t, 0, tl.fired)
}

func TestListenerManager_AddReplacesByName(t *testing.T) {
	lm := NewListenerManager()
	a := &countingTriggerListener{}
	b := &countingTriggerListener{}
	lm.AddTriggerListener(a)
	lm.AddTriggerListener(b)
	require.Len(t, lm.TriggerListeners(), 1)
	assert.Same(t, b, lm.TriggerListeners()[0])

	lm.RemoveTriggerListener("counting")
	assert.Empty(t, lm.TriggerListeners())
}
