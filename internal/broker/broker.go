// Package broker stands in for the publish/subscribe object system spec.md
// §1 explicitly treats as an external collaborator: it carries the shared
// objects the actuator task consumes and produces, plus the dirty-flag and
// interlock words external writers set and the task polls (spec.md §5, §9
// "Callbacks setting flags -> explicit dirty bits").
package broker

import (
	"sync"
	"sync/atomic"

	"actuatorcore/internal/uavobjects"
)

// Broker holds every object named in spec.md §6 plus the depth-2
// ActuatorDesired event queue that anchors the task's cadence.
type Broker struct {
	desired chan uavobjects.ActuatorDesired

	flightStatusDirty   atomic.Bool
	manualControlDirty  atomic.Bool
	actuatorSettingsDirty atomic.Bool
	mixerSettingsDirty  atomic.Bool

	interlock atomic.Int32

	mu                sync.RWMutex
	flightStatus      uavobjects.FlightStatus
	manualControl     uavobjects.ManualControlCommand
	actuatorSettings  uavobjects.ActuatorSettings
	mixerSettings     uavobjects.MixerSettings
	systemSettings    uavobjects.SystemSettings
	cameraDesired     *uavobjects.CameraDesired

	commandMu      sync.RWMutex
	command        uavobjects.ActuatorCommand
	commandWritable bool
}

// New returns a Broker with the interlock at OK, the command object
// writable, and every dirty flag set so the first tick compiles settings
// from whatever defaults the caller has pre-populated via the setters below.
func New() *Broker {
	b := &Broker{
		desired:         make(chan uavobjects.ActuatorDesired, 2),
		commandWritable: true,
	}
	b.flightStatusDirty.Store(true)
	b.manualControlDirty.Store(true)
	b.actuatorSettingsDirty.Store(true)
	b.mixerSettingsDirty.Store(true)
	b.interlock.Store(int32(uavobjects.InterlockOK))
	return b
}

// PublishDesired enqueues a new ActuatorDesired value (spec.md §9 "queue
// carries only 'something happened'"). The queue depth is 2; a full queue
// drops the oldest entry since the latest state always wins on the next
// fetch.
func (b *Broker) PublishDesired(d uavobjects.ActuatorDesired) {
	select {
	case b.desired <- d:
	default:
		select {
		case <-b.desired:
		default:
		}
		select {
		case b.desired <- d:
		default:
		}
	}
}

// DesiredChan exposes the queue for the task's select loop.
func (b *Broker) DesiredChan() <-chan uavobjects.ActuatorDesired {
	return b.desired
}

// SetFlightStatus stores a new FlightStatus and raises its dirty flag.
func (b *Broker) SetFlightStatus(v uavobjects.FlightStatus) {
	b.mu.Lock()
	b.flightStatus = v
	b.mu.Unlock()
	b.flightStatusDirty.Store(true)
}

// FlightStatusDirty reports and clears the flight-status dirty flag.
func (b *Broker) FlightStatusDirty() bool {
	return b.flightStatusDirty.Swap(false)
}

// FlightStatus returns the latest cached value.
func (b *Broker) FlightStatus() uavobjects.FlightStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.flightStatus
}

// SetManualControl stores a new ManualControlCommand and raises its dirty flag.
func (b *Broker) SetManualControl(v uavobjects.ManualControlCommand) {
	b.mu.Lock()
	b.manualControl = v
	b.mu.Unlock()
	b.manualControlDirty.Store(true)
}

// ManualControlDirty reports and clears the manual-control dirty flag.
func (b *Broker) ManualControlDirty() bool {
	return b.manualControlDirty.Swap(false)
}

// ManualControl returns the latest cached value.
func (b *Broker) ManualControl() uavobjects.ManualControlCommand {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.manualControl
}

// SetActuatorSettings stores new ActuatorSettings and raises its dirty flag.
func (b *Broker) SetActuatorSettings(v uavobjects.ActuatorSettings) {
	b.mu.Lock()
	b.actuatorSettings = v
	b.mu.Unlock()
	b.actuatorSettingsDirty.Store(true)
}

// ActuatorSettingsDirty reports and clears the actuator-settings dirty flag.
func (b *Broker) ActuatorSettingsDirty() bool {
	return b.actuatorSettingsDirty.Swap(false)
}

// ActuatorSettings returns the latest cached value.
func (b *Broker) ActuatorSettings() uavobjects.ActuatorSettings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.actuatorSettings
}

// SetMixerSettings stores new MixerSettings and raises its dirty flag.
func (b *Broker) SetMixerSettings(v uavobjects.MixerSettings) {
	b.mu.Lock()
	b.mixerSettings = v
	b.mu.Unlock()
	b.mixerSettingsDirty.Store(true)
}

// MixerSettingsDirty reports and clears the mixer-settings dirty flag.
func (b *Broker) MixerSettingsDirty() bool {
	return b.mixerSettingsDirty.Swap(false)
}

// MixerSettings returns the latest cached value.
func (b *Broker) MixerSettings() uavobjects.MixerSettings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mixerSettings
}

// SetSystemSettings stores new SystemSettings. SystemSettings has no
// dedicated dirty flag in spec.md §3; it is refreshed alongside mixer
// settings ("Refresh the airframe-type snapshot", spec.md §4.1).
func (b *Broker) SetSystemSettings(v uavobjects.SystemSettings) {
	b.mu.Lock()
	b.systemSettings = v
	b.mu.Unlock()
}

// SystemSettings returns the latest cached value.
func (b *Broker) SystemSettings() uavobjects.SystemSettings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.systemSettings
}

// SetCameraDesired stores the optional CameraDesired object, or clears it
// with a nil v (spec.md §4.3 step 2: "if that object exists; else -1").
func (b *Broker) SetCameraDesired(v *uavobjects.CameraDesired) {
	b.mu.Lock()
	b.cameraDesired = v
	b.mu.Unlock()
}

// CameraDesired returns the optional CameraDesired object, or nil.
func (b *Broker) CameraDesired() *uavobjects.CameraDesired {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cameraDesired
}

// SetInterlock writes the operator interlock word (spec.md §4.4, §5:
// "written atomically with respect to word-sized stores").
func (b *Broker) SetInterlock(v uavobjects.Interlock) {
	b.interlock.Store(int32(v))
}

// Interlock reads the operator interlock word.
func (b *Broker) Interlock() uavobjects.Interlock {
	return uavobjects.Interlock(b.interlock.Load())
}

// SetCommandWritable toggles whether PublishCommand actually stores new
// values, simulating the GCS servo-configuration override from spec.md §4.3
// step 6 / §7 item 5.
func (b *Broker) SetCommandWritable(writable bool) {
	b.commandMu.Lock()
	b.commandWritable = writable
	b.commandMu.Unlock()
}

// PublishCommand writes cmd if the command object is writable; otherwise it
// is a no-op and the caller should read back the externally-owned value via
// Command().
func (b *Broker) PublishCommand(cmd uavobjects.ActuatorCommand) {
	b.commandMu.Lock()
	defer b.commandMu.Unlock()
	if !b.commandWritable {
		return
	}
	b.command = cmd
}

// SetCommand force-writes cmd regardless of writability, representing an
// external owner (e.g. GCS) pushing its own values.
func (b *Broker) SetCommand(cmd uavobjects.ActuatorCommand) {
	b.commandMu.Lock()
	b.command = cmd
	b.commandMu.Unlock()
}

// Command returns the latest committed or externally-set ActuatorCommand.
func (b *Broker) Command() uavobjects.ActuatorCommand {
	b.commandMu.RLock()
	defer b.commandMu.RUnlock()
	return b.command
}

// CommandWritable reports whether PublishCommand currently takes effect.
func (b *Broker) CommandWritable() bool {
	b.commandMu.RLock()
	defer b.commandMu.RUnlock()
	return b.commandWritable
}
