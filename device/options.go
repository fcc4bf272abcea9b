package device

import (
	"time"

	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
)

// Option configures an Assistant.
type Option func(*Assistant)

// WithLogger replaces the package default logger.
func WithLogger(l assistant.Logger) Option {
	return func(a *Assistant) { a.log = l }
}

// WithMaxSubgroups bounds the number of subgroup BIS-sync values forwarded in
// BASS add/modify source operations. Excess values from the host are capped
// silently.
func WithMaxSubgroups(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.maxSubgroups = n
		}
	}
}

// WithSourceCapacity bounds the source tracking list. Advertisers beyond the
// capacity are still reported but get no PA-sync attempt budget.
func WithSourceCapacity(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.sourceCap = n
		}
	}
}

// WithProcedureTimeout bounds how long a command waits for a previous BASS
// procedure on the same connection to finish before proceeding anyway.
func WithProcedureTimeout(d time.Duration) Option {
	return func(a *Assistant) {
		if d > 0 {
			a.procTimeout = d
		}
	}
}

// WithSIRKKey sets the key used to decrypt encrypted SIRKs reported during
// coordinated-set discovery.
func WithSIRKKey(key [16]byte) Option {
	return func(a *Assistant) {
		a.sirkKey = key
		a.haveSIRKKey = true
	}
}

// SourceInfo is the digest of a discovered broadcast source handed to the
// source observer.
type SourceInfo struct {
	Addr          assistant.Addr
	Identity      bool
	SID           uint8
	PAInterval    uint16
	BroadcastID   uint32
	Name          string
	BroadcastName string
	RSSI          int8
}

// WithSourceObserver registers a callback invoked for every broadcast source
// found while scanning, after the source-found event is emitted to the host.
func WithSourceObserver(fn func(SourceInfo)) Option {
	return func(a *Assistant) { a.sourceObserver = fn }
}
