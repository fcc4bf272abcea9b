package device

import (
	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
	"github.com/AstraeusLabs/web-broadcast-assistant/ltv"
	"github.com/AstraeusLabs/web-broadcast-assistant/message"
)

const invalidBroadcastID uint32 = 0xffffffff

// adDigest is what one pass over an advertising payload yields.
type adDigest struct {
	name          string
	nameType      byte
	broadcastName string
	broadcastID   uint32
	hasBASS       bool
	hasPACS       bool
	rsi           []byte
}

func digestAD(records []ltv.Record) adDigest {
	d := adDigest{broadcastID: invalidBroadcastID, nameType: ltv.TypeNameComplete}

	for _, r := range records {
		switch r.Type {
		case ltv.TypeNameShortened, ltv.TypeNameComplete:
			if t, ok := r.Value.(ltv.Text); ok {
				d.name = string(t)
				d.nameType = r.Type
			}

		case ltv.TypeBroadcastName:
			if t, ok := r.Value.(ltv.Text); ok {
				d.broadcastName = string(t)
			}

		case ltv.TypeSvcData16:
			b, _ := r.Value.(ltv.Bytes)
			if len(b) < 2 {
				continue
			}
			uuid := uint16(b[0]) | uint16(b[1])<<8
			switch uuid {
			case assistant.UUIDBASS:
				d.hasBASS = true
			case assistant.UUIDBroadcastAudioAnnounce:
				if len(b) >= 5 {
					d.broadcastID = uint32(b[2]) | uint32(b[3])<<8 | uint32(b[4])<<16
				}
			}

		case ltv.TypeUUID16Some, ltv.TypeUUID16All:
			// Sinks are inconsistent about where they announce BASS
			// support, so also accept it in the UUID list.
			if uu, ok := r.Value.(ltv.UUID16s); ok {
				if uu.Contains(assistant.UUIDBASS) {
					d.hasBASS = true
				}
				if uu.Contains(assistant.UUIDPACS) {
					d.hasPACS = true
				}
			}

		case ltv.TypeCSISRSI:
			if b, ok := r.Value.(ltv.Bytes); ok {
				d.rsi = b
			}
		}
	}

	return d
}

func (a *Assistant) handleScanResult(e assistant.ScanResult) {
	a.mu.Lock()
	mode := a.scanMode
	a.mu.Unlock()

	if mode == ScanIdle {
		return
	}

	records := ltv.Decode(e.Data)
	d := digestAD(records)

	if mode&ScanSource != 0 {
		a.scanForSource(e, d)
	}
	if mode&ScanSink != 0 {
		a.scanForSink(e, d)
	}
	if mode&ScanCSIS != 0 {
		a.scanForSetMember(e, d)
	}
}

func (a *Assistant) scanForSource(e assistant.ScanResult, d adDigest) {
	// Broadcast sources are non-connectable periodic advertisers carrying
	// a broadcast ID.
	if e.Connectable || e.Interval == 0 || d.broadcastID == invalidBroadcastID {
		return
	}

	a.log.Debugf("broadcast source found [%q, %q, 0x%06x]",
		d.name, d.broadcastName, d.broadcastID)

	a.mu.Lock()
	src := a.sources.get(e.Addr)
	if src == nil {
		src = a.sources.add(e.Addr)
	}

	syncNow := false
	var cd uint8
	if !a.paActive && src != nil && src.paAttemptCD > 0 {
		syncNow = true
		cd = src.paAttemptCD
	}
	a.mu.Unlock()

	if syncNow {
		a.log.Infof("pa sync create (0x%06x, %q, cd %d)", d.broadcastID, d.broadcastName, cd)
		if a.paSyncCreate(e.Addr, e.SID, e.Interval) != 0 {
			a.mu.Lock()
			if s := a.sources.get(e.Addr); s != nil {
				s.paAttemptCD--
			}
			a.mu.Unlock()
		}
	}

	a.sendRawEvent(message.SourceFound, e.Data,
		ltv.Record{Type: ltv.TypeRSSI, Value: ltv.Int(e.RSSI)},
		addrRecord(e.Addr, e.Identity),
		ltv.Record{Type: d.nameType, Value: ltv.Text(d.name)},
		ltv.Record{Type: ltv.TypeSID, Value: ltv.Uint(e.SID)},
		ltv.Record{Type: ltv.TypePAInterval, Value: ltv.Uint(e.Interval)},
		ltv.Record{Type: ltv.TypeBroadcastID, Value: ltv.Uint(d.broadcastID)},
	)

	if a.sourceObserver != nil {
		a.sourceObserver(SourceInfo{
			Addr:          e.Addr,
			Identity:      e.Identity,
			SID:           e.SID,
			PAInterval:    e.Interval,
			BroadcastID:   d.broadcastID,
			Name:          d.name,
			BroadcastName: d.broadcastName,
			RSSI:          e.RSSI,
		})
	}
}

func (a *Assistant) scanForSink(e assistant.ScanResult, d adDigest) {
	if !e.Connectable || (!d.hasBASS && !d.hasPACS) {
		return
	}

	a.log.Infof("broadcast sink found [%q, %v]", d.name, e.Addr)

	a.sendRawEvent(message.SinkFound, e.Data,
		ltv.Record{Type: ltv.TypeRSSI, Value: ltv.Int(e.RSSI)},
		addrRecord(e.Addr, e.Identity),
		ltv.Record{Type: d.nameType, Value: ltv.Text(d.name)},
	)
}

func (a *Assistant) scanForSetMember(e assistant.ScanResult, d adDigest) {
	if !e.Connectable || d.rsi == nil {
		return
	}

	a.mu.Lock()
	match := a.csis.matches(d.rsi)
	if !match {
		a.mu.Unlock()
		return
	}
	if a.csis.isDiscovered(e.Addr) {
		a.mu.Unlock()
		a.log.Warnf("set member already found, %v", e.Addr)
		return
	}
	a.csis.addMember(e.Addr)
	found, size := a.csis.memberCount(), a.csis.setSize
	allFound := size > 0 && found >= int(size)
	if allFound {
		a.scanMode &^= ScanCSIS
	}
	stopScan := allFound && a.scanMode == ScanIdle
	a.mu.Unlock()

	a.log.Infof("set member found (%d / %d), %v", found, size, e.Addr)

	a.sendRawEvent(message.SetMemberFound, e.Data,
		addrRecord(e.Addr, e.Identity),
	)

	if allFound {
		a.log.Infof("all members found")
		if stopScan {
			if err := a.link.StopScan(); err != nil {
				a.log.Errorf("scan stop failed: %v", err)
			}
		}
	}
}

// handlePAReport harvests the BASE from periodic advertising data. The sync
// is released as soon as a BASE is seen, unless it is about to be handed off
// to a sink.
func (a *Assistant) handlePAReport(e assistant.PAReport) {
	base := findBASE(ltv.Decode(e.Data))
	if base == nil {
		return
	}

	a.log.Infof("base found for %v", e.Addr)

	a.mu.Lock()
	a.sources.clearAttempts(e.Addr)
	teardown := a.paActive && !a.paTransfer
	a.mu.Unlock()

	a.send(message.NewEvent(message.SourceBASEFound,
		ltv.Record{Type: ltv.TypeBASE, Value: base},
		addrRecord(e.Addr, e.Identity)))

	if teardown {
		a.paSyncDelete()
	}
}

// sendRawEvent forwards an advertising payload verbatim, followed by the
// engine's own records. Re-encoding the AD would drop types the codec has no
// schema for, which the host may still want.
func (a *Assistant) sendRawEvent(sub message.SubType, raw []byte, records ...ltv.Record) {
	payload := make([]byte, 0, len(raw)+16)
	payload = append(payload, raw...)
	payload = append(payload, ltv.Encode(records)...)
	a.send(message.Frame{Type: message.EVT, SubType: sub, Payload: payload})
}

// findBASE looks for a Basic Audio Announcement among the service data of a
// periodic advertising payload.
func findBASE(records []ltv.Record) *ltv.BASE {
	for _, r := range records {
		if r.Type != ltv.TypeSvcData16 {
			continue
		}
		b, ok := r.Value.(ltv.Bytes)
		if !ok {
			continue
		}
		if base, err := ltv.ParseBASE(b); err == nil {
			return base
		}
	}
	return nil
}
