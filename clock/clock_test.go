package clock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	t.Parallel()

	clock := NewRealClock()
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Error("RealClock.Now() returned unexpected time")
	}
}

func TestFakeClock_Now(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	if !clock.Now().Equal(start) {
		t.Errorf("Expected %v, got %v", start, clock.Now())
	}
}

func TestFakeClock_Advance(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	clock.Advance(1 * time.Hour)

	expected := start.Add(1 * time.Hour)
	if !clock.Now().Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, clock.Now())
	}
}

func TestFakeClock_Timer(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	timer := clock.NewTimer(50 * time.Millisecond)

	clock.Advance(25 * time.Millisecond)
	select {
	case <-timer.C():
		t.Fatal("timer fired before its deadline")
	default:
	}

	clock.Advance(25 * time.Millisecond)
	select {
	case <-timer.C():
	default:
		t.Fatal("timer did not fire once its deadline elapsed")
	}
}

func TestFakeClock_TimerStop(t *testing.T) {
	t.Parallel()

	clock := NewFakeClock(time.Now())
	timer := clock.NewTimer(50 * time.Millisecond)

	if !timer.Stop() {
		t.Fatal("Stop on a live timer should report it was active")
	}

	clock.Advance(time.Hour)
	select {
	case <-timer.C():
		t.Fatal("stopped timer must not fire")
	default:
	}
}

func TestFakeClock_After(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	fired := make(chan bool, 1)
	ch := clock.After(50 * time.Millisecond)

	go func() {
		<-ch
		fired <- true
	}()

	clock.Advance(25 * time.Millisecond)

	select {
	case <-fired:
		t.Error("After fired too early")
	case <-time.After(10 * time.Millisecond):
	}

	clock.Advance(25 * time.Millisecond)

	select {
	case <-fired:
	case <-time.After(100 * time.Millisecond):
		t.Error("After did not fire after sufficient advance")
	}
}

func TestFakeClock_Sleep(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	done := make(chan struct{})

	go func() {
		clock.Sleep(100 * time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)

	clock.Advance(100 * time.Millisecond)

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Sleep did not complete after advance")
	}
}

func TestFakeClock_ZeroDuration(t *testing.T) {
	t.Parallel()

	clock := NewFakeClock(time.Now())

	ch := clock.After(0)
	select {
	case <-ch:
	case <-time.After(10 * time.Millisecond):
		t.Error("After(0) should fire immediately")
	}

	clock.Sleep(0)
}

func TestDefaultClock(t *testing.T) {
	original := GetDefaultClock()
	defer SetDefaultClock(original)

	fakeClock := NewFakeClock(time.Now())
	SetDefaultClock(fakeClock)

	if GetDefaultClock() != fakeClock {
		t.Error("SetDefaultClock did not work")
	}
}
