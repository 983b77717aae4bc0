package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsAllSubmittedTasks(t *testing.T) {
	p := NewPool(4, nil)
	defer p.Shutdown(true)

	var n int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		ok := p.Submit(func() {
			defer wg.Done()
			atomic.AddInt32(&n, 1)
		})
		require.True(t, ok)
	}
	wg.Wait()
	assert.EqualValues(t, 50, atomic.LoadInt32(&n))
}

func TestPool_RecoversPanickingTask(t *testing.T) {
	p := NewPool(2, nil)
	defer p.Shutdown(true)

	var wg sync.WaitGroup
	wg.Add(1)
	ok := p.Submit(func() {
		defer wg.Done()
		panic("boom")
	})
	require.True(t, ok)
	wg.Wait()

	var ran int32
	wg.Add(1)
	p.Submit(func() {
		defer wg.Done()
		atomic.AddInt32(&ran, 1)
	})
	wg.Wait()
	assert.EqualValues(t, 1, ran)
}

func TestPool_TrySubmit_FalseWhenSaturated(t *testing.T) {
	p := NewPool(1, nil)
	defer p.Shutdown(true)

	block := make(chan struct{})
	started := make(chan struct{})
	require.True(t, p.Submit(func() {
		close(started)
		<-block
	}))
	<-started

	assert.False(t, p.TrySubmit(func() {}))
	close(block)
}

func TestPool_ShutdownRejectsNewWork(t *testing.T) {
	p := NewPool(2, nil)
	p.Shutdown(true)

	assert.False(t, p.Submit(func() {}))
	assert.False(t, p.TrySubmit(func() {}))
}

func TestPool_ShutdownWaitsForInFlightJobs(t *testing.T) {
	p := NewPool(1, nil)

	var done int32
	started := make(chan struct{})
	p.Submit(func() {
		close(started)
		time.Sleep(20 * time.Millisecond)
		atomic.StoreInt32(&done, 1)
	})
	<-started
	p.Shutdown(true)
	assert.EqualValues(t, 1, atomic.LoadInt32(&done))
}
