package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
	"github.com/AstraeusLabs/web-broadcast-assistant/ltv"
	"github.com/AstraeusLabs/web-broadcast-assistant/message"
)

func TestIntervalToSyncTimeout(t *testing.T) {
	// Unknown interval: wait as long as the controller allows.
	assert.Equal(t, uint16(paTimeoutMax), intervalToSyncTimeout(assistant.PAIntervalUnknown))

	// 0x50 * 1.25 ms = 100 ms, 20 intervals of margin = 2 s = 200 units.
	assert.Equal(t, uint16(200), intervalToSyncTimeout(0x50))

	// Tiny intervals clamp to the controller minimum.
	assert.Equal(t, uint16(paTimeoutMin), intervalToSyncTimeout(1))

	// Huge intervals clamp to the controller maximum.
	assert.Equal(t, uint16(paTimeoutMax), intervalToSyncTimeout(0xfffe))
}

func TestPASyncDeleteIdempotent(t *testing.T) {
	h := newHarness(t)

	// Nothing active: nothing to tear down.
	h.a.paSyncDelete()
	assert.Equal(t, 0, h.link.count("DeletePASync"))

	addr := addrOf(t, "00:00:00:00:00:01")
	require.NotZero(t, h.a.paSyncCreate(addr, 0, 0x50))

	h.a.paSyncDelete()
	h.a.paSyncDelete()
	assert.Equal(t, 1, h.link.count("DeletePASync"))
}

func TestPASyncCreateWhileActive(t *testing.T) {
	h := newHarness(t)
	addr := addrOf(t, "00:00:00:00:00:01")

	require.NotZero(t, h.a.paSyncCreate(addr, 0, 0x50))
	assert.Zero(t, h.a.paSyncCreate(addr, 0, 0x50))
	assert.Equal(t, 1, h.link.count("CreatePASync"))
}

func TestPASyncCreateFailure(t *testing.T) {
	h := newHarness(t)
	h.link.createPAErr = assistant.ErrBusy
	addr := addrOf(t, "00:00:00:00:00:01")

	assert.Zero(t, h.a.paSyncCreate(addr, 0, 0x50))

	// The failed attempt must not leave the slot occupied.
	h.link.createPAErr = nil
	assert.NotZero(t, h.a.paSyncCreate(addr, 0, 0x50))
}

func TestPACreateTimeoutReleasesSlot(t *testing.T) {
	h := newHarness(t)
	addr := addrOf(t, "00:00:00:00:00:01")

	// Interval 1 clamps the establishment timeout to the 100 ms minimum.
	require.NotZero(t, h.a.paSyncCreate(addr, 0, 1))

	require.Eventually(t, func() bool {
		return h.link.count("DeletePASync") == 1
	}, 2*time.Second, 10*time.Millisecond)

	h.a.mu.Lock()
	active := h.a.paActive
	h.a.mu.Unlock()
	assert.False(t, active)
}

func TestStopScanTearsDownSync(t *testing.T) {
	h := newHarness(t)
	addr := addrOf(t, "00:00:00:00:00:01")

	h.cmd(t, message.StartSourceScan, 1,
		ltv.Record{Type: ltv.TypePASyncAttempt, Value: ltv.Uint(1)})
	h.a.Deliver(assistant.ScanResult{Addr: addr, Interval: 0x50, Data: sourceAD("A")})
	h.nextEvent(t, message.SourceFound)
	require.Equal(t, 1, h.link.count("CreatePASync"))

	h.cmd(t, message.StopScan, 2)
	assert.Equal(t, 1, h.link.count("DeletePASync"))
}
