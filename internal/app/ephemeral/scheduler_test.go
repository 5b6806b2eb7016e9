package ephemeral

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestArmFiresOnce(t *testing.T) {
	s := NewScheduler()
	var fired atomic.Int32
	done := make(chan struct{})
	s.Arm("surface-1", 10*time.Millisecond, func() error {
		fired.Add(1)
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("onFire ran %d times, want 1", got)
	}
	if s.Armed("surface-1") {
		t.Fatal("registry entry should be cleared after firing")
	}
}

func TestRearmCancelsPreviousTimer(t *testing.T) {
	s := NewScheduler()
	var firstFired, secondFired atomic.Int32
	done := make(chan struct{})

	s.Arm("surface-1", 20*time.Millisecond, func() error {
		firstFired.Add(1)
		return nil
	})
	s.Replace("surface-1", 40*time.Millisecond, func() error {
		secondFired.Add(1)
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("replacement timer never fired")
	}
	time.Sleep(50 * time.Millisecond)
	if firstFired.Load() != 0 {
		t.Fatal("cancelled timer still fired")
	}
	if secondFired.Load() != 1 {
		t.Fatalf("replacement fired %d times, want 1", secondFired.Load())
	}
}

func TestCancelPreventsFiring(t *testing.T) {
	s := NewScheduler()
	var fired atomic.Int32
	s.Arm("surface-1", 20*time.Millisecond, func() error {
		fired.Add(1)
		return nil
	})
	if !s.Cancel("surface-1") {
		t.Fatal("cancel should report an existing timer")
	}
	if s.Cancel("surface-1") {
		t.Fatal("second cancel should be a no-op")
	}
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("cancelled timer fired")
	}
}

func TestFailingCallbackClearsEntryAndLogs(t *testing.T) {
	s := NewScheduler()
	logged := make(chan string, 1)
	s.logf = func(format string, args ...any) {
		select {
		case logged <- format:
		default:
		}
	}

	s.Arm("surface-1", 5*time.Millisecond, func() error {
		return errors.New("surface deleted")
	})
	select {
	case <-logged:
	case <-time.After(time.Second):
		t.Fatal("error was not logged")
	}
	if s.Armed("surface-1") {
		t.Fatal("entry should be cleared after a failed callback")
	}
}

func TestPanickingCallbackIsRecovered(t *testing.T) {
	s := NewScheduler()
	logged := make(chan string, 1)
	s.logf = func(format string, args ...any) {
		select {
		case logged <- format:
		default:
		}
	}

	s.Arm("surface-1", 5*time.Millisecond, func() error {
		panic("boom")
	})
	select {
	case <-logged:
	case <-time.After(time.Second):
		t.Fatal("panic was not recovered and logged")
	}
	if s.Armed("surface-1") {
		t.Fatal("entry should be cleared after a panicking callback")
	}
}

func TestSurfacesAreIndependent(t *testing.T) {
	s := NewScheduler()
	var fired atomic.Int32
	done := make(chan struct{})
	s.Arm("surface-1", 10*time.Millisecond, func() error {
		fired.Add(1)
		close(done)
		return nil
	})
	s.Arm("surface-2", time.Hour, func() error { return nil })
	s.Cancel("surface-2")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancelling surface-2 affected surface-1")
	}
	if fired.Load() != 1 {
		t.Fatalf("surface-1 fired %d times, want 1", fired.Load())
	}
}
