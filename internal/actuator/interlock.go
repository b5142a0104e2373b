package actuator

import (
	"time"

	"actuatorcore/internal/uavobjects"
)

// interlockLoop implements spec.md §4.4 step 6: while the interlock reads
// STOPREQUEST, drive failsafe every iteration; after it has read STOPREQUEST
// continuously for at least 100ms, advance it to STOPPED, after which
// failsafe is no longer driven from here (the hold is operator-controlled
// and may be long; only the STOPREQUEST transition window churns the
// recorder/alarm/servo-write path). kick is called every iteration
// regardless of state, driveFailsafe commits the failsafe table, and
// readInterlock polls the broker's atomic word.
//
// It returns once readInterlock() reports OK, matching "on exit, re-program
// PWM and restart the loop body." The caller never bypasses this wait.
func interlockLoop(readInterlock func() uavobjects.Interlock, setInterlock func(uavobjects.Interlock), driveFailsafe func(), kick func(), sleep func(time.Duration), now func() time.Time) {
	var stopRequestSince time.Time
	haveStopRequestSince := false

	for {
		state := readInterlock()
		if state == uavobjects.InterlockOK {
			return
		}

		if state == uavobjects.InterlockStopRequest {
			driveFailsafe()

			if !haveStopRequestSince {
				stopRequestSince = now()
				haveStopRequestSince = true
			} else if now().Sub(stopRequestSince) >= 100*time.Millisecond {
				setInterlock(uavobjects.InterlockStopped)
			}
		} else {
			haveStopRequestSince = false
		}

		kick()
		sleep(3 * time.Millisecond)
	}
}
