package actuator

import (
	"context"
	"sync"
	"testing"
	"time"

	"actuatorcore/internal/alarm"
	"actuatorcore/internal/broker"
	"actuatorcore/internal/uavobjects"
	"actuatorcore/internal/watchdog"
)

type fakeWatchdog struct {
	mu        sync.Mutex
	registered bool
	kicks     int
	closed    bool
}

func (f *fakeWatchdog) RegisterFlag(watchdog.Flag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = true
	return nil
}

func (f *fakeWatchdog) Kick(watchdog.Flag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicks++
	return nil
}

func (f *fakeWatchdog) Close() error {
	f.closed = true
	return nil
}

func (f *fakeWatchdog) kickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kicks
}

func newTestService(t *testing.T, cfg Config) (*Service, *broker.Broker, *fakeDriver, *fakeWatchdog) {
	t.Helper()
	b := broker.New()
	b.SetActuatorSettings(defaultActuatorSettings())
	var mixerSettings uavobjects.MixerSettings
	for i := 0; i < 4; i++ {
		mixerSettings.MixerType[i] = uavobjects.ChannelMotor
	}
	mixerSettings.MixerVector[0] = [uavobjects.NAXIS]int16{128, 0, 128, 128, 128, 0, 0, 0}
	mixerSettings.MixerVector[1] = [uavobjects.NAXIS]int16{128, 0, -128, -128, 128, 0, 0, 0}
	mixerSettings.MixerVector[2] = [uavobjects.NAXIS]int16{128, 0, 128, -128, -128, 0, 0, 0}
	mixerSettings.MixerVector[3] = [uavobjects.NAXIS]int16{128, 0, -128, 128, -128, 0, 0, 0}
	mixerSettings.ThrottleCurve1 = []float64{0, 1}
	mixerSettings.ThrottleCurve2 = []float64{-1, 1}
	b.SetMixerSettings(mixerSettings)
	b.SetSystemSettings(uavobjects.SystemSettings{AirframeType: uavobjects.AirframeMultiRotor})
	b.SetFlightStatus(uavobjects.FlightStatus{Armed: uavobjects.Armed})
	b.SetManualControl(uavobjects.ManualControlCommand{})

	driver := &fakeDriver{}
	wd := &fakeWatchdog{}

	cfg.Broker = b
	cfg.Servo = driver
	cfg.Watchdog = wd
	if cfg.Alarm == nil {
		cfg.Alarm = alarm.New(nil)
	}

	return New(cfg), b, driver, wd
}

func TestService_StartRegistersWatchdogAndCommitsInitialFailsafe(t *testing.T) {
	svc, _, driver, wd := newTestService(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer svc.Close()

	if !wd.registered {
		t.Fatalf("watchdog never registered")
	}

	snap := svc.Snapshot()
	if snap.Alarm != alarm.Critical {
		t.Fatalf("initial alarm = %v, want Critical (failsafe committed at start-up)", snap.Alarm)
	}
	if driver.setModeCalls == 0 {
		t.Fatalf("driver.SetMode never called during Start()")
	}
}

func TestService_MissingCollaboratorsRejected(t *testing.T) {
	svc := New(Config{})
	if err := svc.Start(context.Background()); err == nil {
		t.Fatalf("Start() with empty Config should fail")
	}
}

func TestService_TickTimesOutToFailsafeWhenQueueEmpty(t *testing.T) {
	svc, b, _, _ := newTestService(t, Config{FailsafeTimeout: 15 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer svc.Close()

	// A real desired value clears the alarm once processed.
	b.PublishDesired(uavobjects.ActuatorDesired{Thrust: 0.5})
	deadline := time.Now().Add(200 * time.Millisecond)
	cleared := false
	for time.Now().Before(deadline) {
		if svc.Snapshot().Alarm == alarm.OK {
			cleared = true
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cleared {
		t.Fatalf("alarm never cleared after a normal desired-vector tick")
	}

	// With no further PublishDesired calls, the next tick must time out and
	// fall back to failsafe (alarm Critical again).
	deadline = time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		if svc.Snapshot().Alarm == alarm.Critical {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("service never fell back to failsafe after the input queue went quiet")
}

func TestService_FailsafeCommitPreservesMaxUpdateTime(t *testing.T) {
	svc, b, _, _ := newTestService(t, Config{FailsafeTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer svc.Close()

	// Seed a running peak jitter directly, as a prior normal commit would.
	seeded := uavobjects.ActuatorCommand{MaxUpdateTime: 42}
	b.SetCommand(seeded)

	svc.commitFailsafe()

	got := b.Command().MaxUpdateTime
	if got != 42 {
		t.Fatalf("MaxUpdateTime after commitFailsafe = %v, want unchanged 42 (failsafe must only touch Channel)", got)
	}
}

func TestService_GCSOverrideTakesPrecedenceWhenCommandNotWritable(t *testing.T) {
	svc, b, _, _ := newTestService(t, Config{FailsafeTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer svc.Close()

	b.SetCommandWritable(false)
	override := uavobjects.ActuatorCommand{Channel: [uavobjects.NCHAN]float64{1234}}
	b.SetCommand(override)

	b.PublishDesired(uavobjects.ActuatorDesired{Thrust: 0.5})

	// Wait for the tick that consumed the desired value to commit (alarm
	// cleared), then check the override survived it.
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if svc.Snapshot().Alarm == alarm.OK {
			if got := b.Command().Channel[0]; got != 1234 {
				t.Fatalf("broker command channel 0 = %v after a tick, want 1234: overwritten despite CommandWritable(false)", got)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no tick was committed after PublishDesired")
}
