// Package actuator implements the actuator mixing and output core: the
// settings cache & mixer compiler, the input normalizer, the mixer &
// post-processor, and the task loop & safety state machine that ties them
// together (spec.md §2).
package actuator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"actuatorcore/internal/alarm"
	"actuatorcore/internal/broker"
	"actuatorcore/internal/servo"
	"actuatorcore/internal/uavobjects"
	"actuatorcore/internal/watchdog"
)

// Recorder persists committed ticks to a black-box log. It is satisfied by
// *recorder.Recorder; declared here rather than imported to keep the task
// loop's dependency on storage optional and swappable.
type Recorder interface {
	Record(cmd uavobjects.ActuatorCommand, at time.Time) error
}

// Config wires the task to its collaborators (spec.md §6).
type Config struct {
	Broker   *broker.Broker
	Servo    servo.Driver
	Watchdog watchdog.Watchdog
	Alarm    *alarm.Tracker
	Recorder Recorder // optional

	// FailsafeTimeout bounds the input-queue wait (spec.md §4.4 step 4).
	FailsafeTimeout time.Duration
	// InterlockPollInterval is the fixed sleep inside the interlock loop
	// (spec.md §4.4 step 6, §5 "3 ms fixed sleep").
	InterlockPollInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.FailsafeTimeout <= 0 {
		c.FailsafeTimeout = 100 * time.Millisecond
	}
	if c.InterlockPollInterval <= 0 {
		c.InterlockPollInterval = 3 * time.Millisecond
	}
}

// Snapshot is the externally observable state of one tick: a read-only
// troubleshooting view copied under lock, the same shape as the original
// firmware's tsdat struct (spec.md §9 "troubleshooting" data) — the desired
// vector and raw mixer output alongside the values actually committed, so a
// clipped or rescaled command can be told apart from the input that produced
// it. It is never read back into the control path.
type Snapshot struct {
	Desired      []float64 // input to the mixer matrix (NAXIS-wide)
	MotorVectRaw []float64 // mixer output before clip/rescale (NCHAN-wide)
	Command      uavobjects.ActuatorCommand
	DT           time.Duration
	Armed        bool
	StabilizeNow bool
	Alarm        alarm.Level
	Interlock    uavobjects.Interlock
	UpdatedAt    time.Time
}

// Service is the actuator task (spec.md §4.4).
type Service struct {
	cfg Config

	cache      SettingsCache
	normalizer Normalizer

	hasLastSystime bool
	lastSystime    time.Time
	lastDT         time.Duration

	mu   sync.RWMutex
	snap Snapshot

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs a Service. cfg.Broker, cfg.Servo, cfg.Watchdog, and
// cfg.Alarm must be non-nil.
func New(cfg Config) *Service {
	cfg.setDefaults()
	return &Service{
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Snapshot returns the latest committed tick's observable state.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Start performs spec.md §4.4 "Start-up" and launches the task loop.
func (s *Service) Start(ctx context.Context) error {
	if s.cfg.Broker == nil || s.cfg.Servo == nil || s.cfg.Watchdog == nil || s.cfg.Alarm == nil {
		return fmt.Errorf("actuator: Config.Broker, Servo, Watchdog, and Alarm must be set")
	}

	if err := s.cfg.Watchdog.RegisterFlag(watchdog.FlagActuator); err != nil {
		return fmt.Errorf("actuator: register watchdog: %w", err)
	}

	if err := s.cache.Refresh(s.cfg.Broker, s.cfg.Servo); err != nil {
		return fmt.Errorf("actuator: initial settings load: %w", err)
	}

	s.commitFailsafe()

	go s.run(ctx)
	return nil
}

// Close stops the task loop and blocks until it has exited.
func (s *Service) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
	return nil
}

func (s *Service) run(ctx context.Context) {
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		s.tick(ctx)
	}
}

// tick is one iteration of spec.md §4.4 "Steady loop".
func (s *Service) tick(ctx context.Context) {
	// Step 1: kick watchdog.
	if err := s.cfg.Watchdog.Kick(watchdog.FlagActuator); err != nil {
		log.Printf("actuator: watchdog kick failed: %v", err)
	}

	// Steps 2-3: refresh settings/mixer on dirty flags.
	if err := s.cache.Refresh(s.cfg.Broker, s.cfg.Servo); err != nil {
		log.Printf("actuator: settings refresh failed, continuing with previous cache: %v", err)
	}

	// Step 4: block on the input queue for up to FailsafeTimeout.
	var desired uavobjects.ActuatorDesired
	select {
	case desired = <-s.cfg.Broker.DesiredChan():
	case <-time.After(s.cfg.FailsafeTimeout):
		s.commitFailsafe()
		return
	case <-ctx.Done():
		return
	case <-s.stopCh:
		return
	}

	// Step 5: compute dT, handling timer wrap.
	now := time.Now()
	var dT time.Duration
	if s.hasLastSystime && now.After(s.lastSystime) {
		dT = now.Sub(s.lastSystime)
	} else {
		dT = s.lastDT
	}
	s.lastSystime = now
	s.hasLastSystime = true
	s.lastDT = dT

	// Step 6: interlock check.
	if s.cfg.Broker.Interlock() != uavobjects.InterlockOK {
		interlockLoop(
			s.cfg.Broker.Interlock,
			s.cfg.Broker.SetInterlock,
			s.commitFailsafe,
			func() { _ = s.cfg.Watchdog.Kick(watchdog.FlagActuator) },
			time.Sleep,
			time.Now,
		)
		if err := s.cache.Refresh(s.cfg.Broker, s.cfg.Servo); err != nil {
			log.Printf("actuator: post-interlock settings refresh failed: %v", err)
		}
		if err := s.cache.ReprogramPWM(s.cfg.Servo); err != nil {
			log.Printf("actuator: post-interlock PWM reprogram failed: %v", err)
		}
		return
	}

	// Step 7: normalizer + mixer & post-processor.
	result := s.normalizer.Normalize(now, desired, s.cfg.Broker, s.cache.ActuatorSettings, s.cache.MixerSettings, s.cache.SystemSettings)
	rawMotorVect := s.cache.Compiled.Matrix.MultiplyVector(result.Vector)

	channels, err := PostProcess(s.cache.Compiled, result.Vector, s.cfg.Broker.CameraDesired(), result.Armed, result.StabilizeNow, s.cache.ActuatorSettings.MotorsSpinWhileArmed, s.cache.ActuatorSettings)
	if err != nil {
		log.Printf("actuator: %v", err)
		s.commitFailsafe()
		return
	}

	s.commit(channels, result, rawMotorVect, dT, now)
}

// commitFailsafe implements spec.md §4.4's failsafe commit: raise the alarm
// Critical and drive every channel to its failsafe value, bypassing the
// normal gain/offset/curve pipeline entirely.
func (s *Service) commitFailsafe() {
	s.cfg.Alarm.Set(alarm.Critical)

	channels := Failsafe(s.cache.Compiled.ChannelType, s.cache.ActuatorSettings)

	for ch, us := range channels {
		if err := s.cfg.Servo.Set(ch, us); err != nil {
			log.Printf("actuator: servo set(%d) failed: %v", ch, err)
		}
	}
	if err := s.cfg.Servo.Update(); err != nil {
		log.Printf("actuator: servo update failed: %v", err)
	}

	now := time.Now()
	// Partial field update: only Channel changes here, mirroring the
	// original's ActuatorCommandChannelSet. UpdateTime/MaxUpdateTime are
	// left as they were so a failsafe event can't reset the running peak
	// jitter tracked in commit (spec.md §9).
	cmd := s.cfg.Broker.Command()
	cmd.Channel = channels
	s.cfg.Broker.SetCommand(cmd)

	s.mu.Lock()
	s.snap = Snapshot{Command: cmd, Alarm: alarm.Critical, Interlock: s.cfg.Broker.Interlock(), UpdatedAt: now}
	s.mu.Unlock()

	if s.cfg.Recorder != nil {
		if err := s.cfg.Recorder.Record(cmd, now); err != nil {
			log.Printf("actuator: recorder failed: %v", err)
		}
	}
}

// commit implements spec.md §4.3 Step 6 and §4.4 step 8. result and
// rawMotorVect carry the tick's troubleshooting data (spec.md's tsdat
// equivalent) into the published Snapshot alongside the committed command.
func (s *Service) commit(channels [uavobjects.NCHAN]float64, result Result, rawMotorVect []float64, dT time.Duration, now time.Time) {
	prev := s.cfg.Broker.Command()

	updateTimeMS := dT.Seconds() * 1000
	maxUpdateTimeMS := prev.MaxUpdateTime
	if updateTimeMS > maxUpdateTimeMS {
		maxUpdateTimeMS = updateTimeMS
	}

	cmd := uavobjects.ActuatorCommand{
		Channel:       channels,
		UpdateTime:    updateTimeMS,
		MaxUpdateTime: maxUpdateTimeMS,
	}

	if s.cfg.Broker.CommandWritable() {
		s.cfg.Broker.PublishCommand(cmd)
	} else {
		// Read-only during servo configuration: GCS takes precedence
		// (spec.md §7 item 5).
		cmd = s.cfg.Broker.Command()
	}

	for ch, us := range cmd.Channel {
		if err := s.cfg.Servo.Set(ch, us); err != nil {
			log.Printf("actuator: servo set(%d) failed: %v", ch, err)
		}
	}
	if err := s.cfg.Servo.Update(); err != nil {
		log.Printf("actuator: servo update failed: %v", err)
	}

	s.cfg.Alarm.Clear()

	s.mu.Lock()
	s.snap = Snapshot{
		Desired:      result.Vector,
		MotorVectRaw: rawMotorVect,
		Command:      cmd,
		DT:           dT,
		Armed:        result.Armed,
		StabilizeNow: result.StabilizeNow,
		Alarm:        alarm.OK,
		Interlock:    s.cfg.Broker.Interlock(),
		UpdatedAt:    now,
	}
	s.mu.Unlock()

	if s.cfg.Recorder != nil {
		if err := s.cfg.Recorder.Record(cmd, now); err != nil {
			log.Printf("actuator: recorder failed: %v", err)
		}
	}
}
