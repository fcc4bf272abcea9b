package device

import (
	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
)

// sourceData rate-limits PA-sync attempts per discovered source across one
// scan cycle.
type sourceData struct {
	addr        assistant.Addr
	paAttemptCD uint8
}

// sourceList is the bounded tracking table of discovered broadcast sources.
// Callers hold the assistant mutex.
type sourceList struct {
	cap       int
	paAttempt uint8
	entries   []sourceData
}

func newSourceList(capacity int) *sourceList {
	return &sourceList{cap: capacity}
}

// reset clears the list and re-arms the per-source attempt budget. Called on
// every source-scan start.
func (l *sourceList) reset(paAttempt uint8) {
	l.entries = l.entries[:0]
	l.paAttempt = paAttempt
}

func (l *sourceList) get(addr assistant.Addr) *sourceData {
	for i := range l.entries {
		if l.entries[i].addr.B == addr.B {
			return &l.entries[i]
		}
	}
	return nil
}

// add appends a new source with a fresh attempt budget. Returns nil when the
// list is full; the advertiser is still reported, it just gets no budget.
func (l *sourceList) add(addr assistant.Addr) *sourceData {
	if len(l.entries) >= l.cap {
		return nil
	}
	l.entries = append(l.entries, sourceData{addr: addr, paAttemptCD: l.paAttempt})
	return &l.entries[len(l.entries)-1]
}

// clearAttempts zeroes the budget once the source's BASE has been harvested.
func (l *sourceList) clearAttempts(addr assistant.Addr) {
	if s := l.get(addr); s != nil {
		s.paAttemptCD = 0
	}
}

func (l *sourceList) len() int {
	return len(l.entries)
}
