package device

import (
	"sync"
	"time"
)

const heartbeatPeriod = time.Second

// heartbeat emits a counting EVT frame every second while enabled. Toggling
// is edge triggered: each heartbeat command flips it.
type heartbeat struct {
	mu   sync.Mutex
	quit chan struct{}
	cnt  uint8
	emit func(cnt uint8)
}

func newHeartbeat(emit func(uint8)) *heartbeat {
	return &heartbeat{emit: emit}
}

func (h *heartbeat) toggle() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.quit == nil {
		h.startLocked()
	} else {
		h.stopLocked()
	}
}

func (h *heartbeat) startLocked() {
	quit := make(chan struct{})
	h.quit = quit

	go func() {
		t := time.NewTicker(heartbeatPeriod)
		defer t.Stop()

		for {
			select {
			case <-quit:
				return
			case <-t.C:
				h.mu.Lock()
				cnt := h.cnt
				h.cnt++
				h.mu.Unlock()
				h.emit(cnt)
			}
		}
	}()
}

func (h *heartbeat) stopLocked() {
	if h.quit != nil {
		close(h.quit)
		h.quit = nil
	}
}

func (h *heartbeat) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}
