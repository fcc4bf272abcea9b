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

// ad builds one raw advertising data entry.
func ad(typ byte, val ...byte) []byte {
	return append([]byte{byte(len(val) + 1), typ}, val...)
}

func cat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// sourceAD is a broadcast audio announcement with broadcast ID 0xadbeef.
func sourceAD(name string) []byte {
	return cat(
		ad(ltv.TypeSvcData16, 0x52, 0x18, 0xef, 0xbe, 0xad),
		ad(ltv.TypeNameComplete, []byte(name)...),
	)
}

// sinkAD announces BASS support in the service UUID list.
func sinkAD(name string) []byte {
	return cat(
		ad(ltv.TypeUUID16All, 0x4f, 0x18),
		ad(ltv.TypeNameComplete, []byte(name)...),
	)
}

func TestDigestAD(t *testing.T) {
	d := digestAD(ltv.Decode(cat(
		ad(ltv.TypeFlags, 0x06),
		ad(ltv.TypeNameShortened, 'S', 'p', 'k'),
		ad(ltv.TypeBroadcastName, 'K', 'i', 't', 'c', 'h', 'e', 'n'),
		ad(ltv.TypeSvcData16, 0x52, 0x18, 0x01, 0x02, 0x03),
		ad(ltv.TypeUUID16All, 0x50, 0x18),
		ad(ltv.TypeCSISRSI, 1, 2, 3, 4, 5, 6),
	)))

	assert.Equal(t, "Spk", d.name)
	assert.Equal(t, ltv.TypeNameShortened, d.nameType)
	assert.Equal(t, "Kitchen", d.broadcastName)
	assert.Equal(t, uint32(0x030201), d.broadcastID)
	assert.False(t, d.hasBASS)
	assert.True(t, d.hasPACS)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, d.rsi)

	d = digestAD(ltv.Decode(ad(ltv.TypeSvcData16, 0x4f, 0x18)))
	assert.True(t, d.hasBASS)
	assert.Equal(t, invalidBroadcastID, d.broadcastID)
}

func TestScanClassification(t *testing.T) {
	h := newHarness(t)
	h.cmd(t, message.StartScanAll, 1)

	// A connectable advertiser with the broadcast announcement but no BASS
	// or PACS hint matches neither target.
	h.a.Deliver(assistant.ScanResult{
		Addr:        addrOf(t, "00:00:00:00:00:03"),
		Connectable: true,
		Data:        sourceAD("neither"),
	})

	h.a.Deliver(assistant.ScanResult{
		Addr:     addrOf(t, "00:00:00:00:00:01"),
		SID:      2,
		RSSI:     -40,
		Interval: 0x50,
		Data:     sourceAD("Src"),
	})
	h.a.Deliver(assistant.ScanResult{
		Addr:        addrOf(t, "00:00:00:00:00:02"),
		RSSI:        -50,
		Connectable: true,
		Data:        sinkAD("Snk"),
	})

	ev := h.nextEvent(t, message.SourceFound)
	rr := ev.Records()
	assert.Equal(t, uint64(0xadbeef), ltv.UintOf(rr, ltv.TypeBroadcastID, 0))
	assert.Equal(t, uint64(2), ltv.UintOf(rr, ltv.TypeSID, 0))
	assert.Equal(t, uint64(0x50), ltv.UintOf(rr, ltv.TypePAInterval, 0))
	assert.Equal(t, int64(-40), ltv.IntOf(rr, ltv.TypeRSSI, 0))
	assert.Equal(t, "Src", ltv.TextOf(rr, ltv.TypeNameComplete))
	addr, ok := ltv.AddressOf(rr, ltv.TypeRPA)
	require.True(t, ok)
	assert.Equal(t, addrOf(t, "00:00:00:00:00:01"), addr)

	ev = h.nextEvent(t, message.SinkFound)
	rr = ev.Records()
	assert.Equal(t, int64(-50), ltv.IntOf(rr, ltv.TypeRSSI, 0))
	assert.Equal(t, "Snk", ltv.TextOf(rr, ltv.TypeNameComplete))
}

func TestScanEventKeepsRawAD(t *testing.T) {
	h := newHarness(t)
	h.cmd(t, message.StartSinkScan, 1)

	// An AD type the codec has no schema for must survive the round trip.
	raw := cat(sinkAD("Snk"), ad(0x19, 0x41, 0x03))
	h.a.Deliver(assistant.ScanResult{
		Addr:        addrOf(t, "00:00:00:00:00:02"),
		Connectable: true,
		Data:        raw,
	})

	ev := h.nextEvent(t, message.SinkFound)
	assert.Equal(t, raw, ev.Payload[:len(raw)])
}

func TestPASyncSingleInstance(t *testing.T) {
	h := newHarness(t)
	h.cmd(t, message.StartSourceScan, 1,
		ltv.Record{Type: ltv.TypePASyncAttempt, Value: ltv.Uint(2)})

	h.a.Deliver(assistant.ScanResult{
		Addr:     addrOf(t, "00:00:00:00:00:01"),
		Interval: 0x50,
		Data:     sourceAD("A"),
	})
	h.nextEvent(t, message.SourceFound)

	// A second source while the first sync is pending must not create
	// another one.
	h.a.Deliver(assistant.ScanResult{
		Addr:     addrOf(t, "00:00:00:00:00:02"),
		Interval: 0x50,
		Data:     sourceAD("B"),
	})
	h.nextEvent(t, message.SourceFound)

	assert.Equal(t, 1, h.link.count("CreatePASync"))
	assert.Equal(t, addrOf(t, "00:00:00:00:00:01"), h.link.lastPAAddr)
	// 0x50 intervals of 1.25 ms -> 100 ms -> 20x margin in 10 ms units.
	assert.Equal(t, uint16(200), h.link.lastPATimeout)
}

func TestPASyncCommand(t *testing.T) {
	h := newHarness(t)
	addr := addrOf(t, "00:00:00:00:00:01")

	// The source must have been seen while scanning.
	res := h.cmd(t, message.PASync, 1, addrRec(addr))
	assert.Equal(t, rcInvalidParam, res.ReturnCode())

	h.cmd(t, message.StartSourceScan, 2)
	h.a.Deliver(assistant.ScanResult{Addr: addr, Interval: 0x50, Data: sourceAD("A")})
	h.nextEvent(t, message.SourceFound)

	res = h.cmd(t, message.PASync, 3, addrRec(addr),
		ltv.Record{Type: ltv.TypeSID, Value: ltv.Uint(1)},
		ltv.Record{Type: ltv.TypePAInterval, Value: ltv.Uint(0x50)})
	assert.Equal(t, int32(0), res.ReturnCode())
	assert.Equal(t, 1, h.link.count("CreatePASync"))

	// Second sync while one is active.
	res = h.cmd(t, message.PASync, 4, addrRec(addr))
	assert.Equal(t, rcBusy, res.ReturnCode())
}

// baseAD wraps a minimal single-subgroup BASE into a basic audio
// announcement.
func baseAD() []byte {
	return ad(ltv.TypeSvcData16,
		0x51, 0x18, // Basic Audio Announcement
		0x10, 0x27, 0x00, // presentation delay 10000 us
		0x01,                         // one subgroup
		0x01,                         // one BIS
		0x06, 0x00, 0x00, 0x00, 0x00, // LC3
		0x00, // no codec config
		0x00, // no metadata
		0x01, // BIS index
		0x00, // no BIS config
	)
}

func TestPAReportReleasesSync(t *testing.T) {
	h := newHarness(t)
	addr := addrOf(t, "00:00:00:00:00:01")

	h.cmd(t, message.StartSourceScan, 1,
		ltv.Record{Type: ltv.TypePASyncAttempt, Value: ltv.Uint(2)})
	h.a.Deliver(assistant.ScanResult{Addr: addr, Interval: 0x50, Data: sourceAD("A")})
	h.nextEvent(t, message.SourceFound)
	require.Equal(t, 1, h.link.count("CreatePASync"))

	h.a.Deliver(assistant.PASyncEstablished{Addr: addr})
	h.a.Deliver(assistant.PAReport{Addr: addr, Data: baseAD()})

	ev := h.nextEvent(t, message.SourceBASEFound)
	r, ok := ltv.First(ev.Records(), ltv.TypeBASE)
	require.True(t, ok)
	base := r.Value.(*ltv.BASE)
	assert.Equal(t, uint32(10000), base.PresentationDelay)
	require.Len(t, base.Subgroups, 1)
	assert.Equal(t, uint8(0x06), base.Subgroups[0].Codec.ID)

	// The sync served its purpose and is torn down.
	require.Eventually(t, func() bool {
		return h.link.count("DeletePASync") == 1
	}, time.Second, 5*time.Millisecond)

	// With the BASE in hand the attempt budget is spent: the next report
	// from this source must not trigger another sync.
	h.a.Deliver(assistant.PASyncTerminated{})
	h.a.Deliver(assistant.ScanResult{Addr: addr, Interval: 0x50, Data: sourceAD("A")})
	h.nextEvent(t, message.SourceFound)
	assert.Equal(t, 1, h.link.count("CreatePASync"))
}

func TestSourceObserver(t *testing.T) {
	infos := make(chan SourceInfo, 1)
	h := newHarness(t, WithSourceObserver(func(si SourceInfo) { infos <- si }))

	h.cmd(t, message.StartSourceScan, 1)
	h.a.Deliver(assistant.ScanResult{
		Addr:     addrOf(t, "00:00:00:00:00:01"),
		SID:      3,
		RSSI:     -42,
		Interval: 0x50,
		Data: cat(sourceAD("Src"),
			ad(ltv.TypeBroadcastName, 'K', 'i', 't', 'c', 'h', 'e', 'n')),
	})

	select {
	case si := <-infos:
		assert.Equal(t, uint32(0xadbeef), si.BroadcastID)
		assert.Equal(t, "Src", si.Name)
		assert.Equal(t, "Kitchen", si.BroadcastName)
		assert.Equal(t, uint8(3), si.SID)
		assert.Equal(t, int8(-42), si.RSSI)
	case <-time.After(time.Second):
		t.Fatal("observer not called")
	}
}

func TestSourceListBudget(t *testing.T) {
	l := newSourceList(2)
	l.reset(3)

	a1 := addrMust("00:00:00:00:00:01")
	a2 := addrMust("00:00:00:00:00:02")
	a3 := addrMust("00:00:00:00:00:03")

	require.NotNil(t, l.add(a1))
	require.NotNil(t, l.add(a2))
	assert.Nil(t, l.add(a3), "list is full")
	assert.Equal(t, 2, l.len())

	assert.Equal(t, uint8(3), l.get(a1).paAttemptCD)
	l.clearAttempts(a1)
	assert.Equal(t, uint8(0), l.get(a1).paAttemptCD)

	l.reset(1)
	assert.Equal(t, 0, l.len())
	assert.Nil(t, l.get(a2))
}

func addrMust(s string) assistant.Addr {
	a, err := assistant.NewAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}
