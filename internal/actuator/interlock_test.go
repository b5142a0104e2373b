package actuator

import (
	"testing"
	"time"

	"actuatorcore/internal/uavobjects"
)

func TestInterlockLoop_OKShortCircuitsImmediately(t *testing.T) {
	failsafeCalls := 0
	kickCalls := 0

	interlockLoop(
		func() uavobjects.Interlock { return uavobjects.InterlockOK },
		func(uavobjects.Interlock) { t.Fatalf("setInterlock should not be called when already OK") },
		func() { failsafeCalls++ },
		func() { kickCalls++ },
		func(time.Duration) { t.Fatalf("sleep should not be called when already OK") },
		func() time.Time { return time.Unix(0, 0) },
	)

	if failsafeCalls != 0 {
		t.Fatalf("driveFailsafe called %d times, want 0", failsafeCalls)
	}
	if kickCalls != 0 {
		t.Fatalf("kick called %d times, want 0", kickCalls)
	}
}

func TestInterlockLoop_StopRequestDrivesFailsafeUntilStopped(t *testing.T) {
	state := uavobjects.InterlockStopRequest
	clock := time.Unix(0, 0)
	failsafeCalls := 0
	kickCalls := 0
	var stoppedAt time.Time
	stoppedCalls := 0

	interlockLoop(
		func() uavobjects.Interlock { return state },
		func(v uavobjects.Interlock) {
			if v != uavobjects.InterlockStopped {
				t.Fatalf("setInterlock called with %v, want InterlockStopped", v)
			}
			stoppedCalls++
			stoppedAt = clock
			// Simulate the interlock returning to OK once stopped, so the
			// loop under test terminates.
			state = uavobjects.InterlockOK
		},
		func() { failsafeCalls++ },
		func() { kickCalls++ },
		func(d time.Duration) { clock = clock.Add(d) },
		func() time.Time { return clock },
	)

	if stoppedCalls != 1 {
		t.Fatalf("setInterlock(Stopped) called %d times, want 1", stoppedCalls)
	}
	if stoppedAt.Sub(time.Unix(0, 0)) < 100*time.Millisecond {
		t.Fatalf("transitioned to Stopped after only %v, want >= 100ms", stoppedAt.Sub(time.Unix(0, 0)))
	}
	if failsafeCalls == 0 {
		t.Fatalf("driveFailsafe never called")
	}
	if kickCalls == 0 {
		t.Fatalf("kick never called")
	}
}

func TestInterlockLoop_StoppedDoesNotDriveFailsafe(t *testing.T) {
	// StopRequest for >=100ms, then Stopped held for several more
	// iterations (simulating a long operator-controlled hold) before
	// returning to OK: driveFailsafe must fire during the StopRequest
	// window but never again once Stopped.
	state := uavobjects.InterlockStopRequest
	clock := time.Unix(0, 0)
	kicksSinceStopped := 0
	failsafeCallsDuringStopped := 0

	interlockLoop(
		func() uavobjects.Interlock { return state },
		func(v uavobjects.Interlock) {
			if v != uavobjects.InterlockStopped {
				t.Fatalf("setInterlock called with %v, want InterlockStopped", v)
			}
			state = uavobjects.InterlockStopped
		},
		func() {
			if state == uavobjects.InterlockStopped {
				failsafeCallsDuringStopped++
			}
		},
		func() {
			if state == uavobjects.InterlockStopped {
				kicksSinceStopped++
				if kicksSinceStopped >= 5 {
					state = uavobjects.InterlockOK
				}
			}
		},
		func(d time.Duration) { clock = clock.Add(d) },
		func() time.Time { return clock },
	)

	if failsafeCallsDuringStopped != 0 {
		t.Fatalf("driveFailsafe called %d times while Stopped, want 0", failsafeCallsDuringStopped)
	}
	if kicksSinceStopped < 5 {
		t.Fatalf("loop exited before holding Stopped for the expected span: kicksSinceStopped=%d", kicksSinceStopped)
	}
}

func TestInterlockLoop_ReturnToOKClearsStopRequestLatch(t *testing.T) {
	// First tick is StopRequest, second tick OK: should not transition to
	// Stopped since the 100ms continuity requirement resets.
	states := []uavobjects.Interlock{uavobjects.InterlockStopRequest, uavobjects.InterlockOK}
	idx := 0
	clock := time.Unix(0, 0)

	interlockLoop(
		func() uavobjects.Interlock {
			s := states[idx]
			if idx < len(states)-1 {
				idx++
			}
			return s
		},
		func(uavobjects.Interlock) {
			t.Fatalf("setInterlock(Stopped) should not be called before 100ms elapses")
		},
		func() {},
		func() {},
		func(d time.Duration) { clock = clock.Add(d) },
		func() time.Time { return clock },
	)
}
