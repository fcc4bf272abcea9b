package device

import (
	"time"

	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
)

// Controller PA-sync timeout bounds, in 10 ms units.
const (
	paTimeoutMin        = 0x000a
	paTimeoutMax        = 0x4000
	paIntervalToTimeout = 20
	paIntervalUnitUS    = 1250 // periodic advertising interval unit
)

// intervalToSyncTimeout derives the sync-establishment timeout, in 10 ms
// units, from the advertised PA interval.
func intervalToSyncTimeout(paInterval uint16) uint16 {
	if paInterval == assistant.PAIntervalUnknown {
		// Maximize the chance of success.
		return paTimeoutMax
	}

	intervalMS := uint32(paInterval) * paIntervalUnitUS / 1000
	timeout := intervalMS * paIntervalToTimeout / 10

	if timeout < paTimeoutMin {
		return paTimeoutMin
	}
	if timeout > paTimeoutMax {
		return paTimeoutMax
	}
	return uint16(timeout)
}

// paSyncCreate requests the single PA sync and arms the creation timeout.
// It returns the timeout in 10 ms units, zero on failure.
func (a *Assistant) paSyncCreate(addr assistant.Addr, sid uint8, paInterval uint16) uint16 {
	timeout := intervalToSyncTimeout(paInterval)

	a.mu.Lock()
	if a.paActive {
		a.mu.Unlock()
		a.log.Errorf("pa sync already active")
		return 0
	}
	a.paActive = true
	a.mu.Unlock()

	if err := a.link.CreatePASync(addr, sid, timeout); err != nil {
		a.log.Errorf("pa sync create failed: %v", err)
		a.mu.Lock()
		a.paActive = false
		a.mu.Unlock()
		return 0
	}

	d := time.Duration(timeout) * 10 * time.Millisecond
	a.log.Infof("pa sync create timeout set to %v", d)

	a.mu.Lock()
	a.stopPATimerLocked()
	a.paTimer = time.AfterFunc(d, func() {
		select {
		case a.internal <- evPACreateTimeout:
		case <-a.done:
		}
	})
	a.mu.Unlock()

	return timeout
}

// paSyncDelete tears down the sync if one exists. Safe to call from any
// state.
func (a *Assistant) paSyncDelete() {
	a.mu.Lock()
	a.stopPATimerLocked()
	active := a.paActive
	a.paActive = false
	a.paTransfer = false
	a.mu.Unlock()

	if !active {
		return
	}

	a.log.Infof("pa sync delete")
	if err := a.link.DeletePASync(); err != nil {
		a.log.Errorf("pa sync delete failed: %v", err)
	}
}

func (a *Assistant) stopPATimerLocked() {
	if a.paTimer != nil {
		a.paTimer.Stop()
		a.paTimer = nil
	}
}

// paGive signals whoever is waiting for the PA sync to resolve.
func (a *Assistant) paGive() {
	select {
	case a.semPASync <- struct{}{}:
	default:
	}
}

// paTake blocks until the sync resolves or the bound elapses.
func (a *Assistant) paTake(bound time.Duration, what string) {
	select {
	case <-a.semPASync:
	case <-time.After(bound):
		a.log.Errorf("%s wait timed out", what)
	}
}

func (a *Assistant) paSemReset() {
	select {
	case <-a.semPASync:
	default:
	}
}
