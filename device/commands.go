package device

import (
	"time"

	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
	"github.com/AstraeusLabs/web-broadcast-assistant/ltv"
	"github.com/AstraeusLabs/web-broadcast-assistant/message"
)

func (a *Assistant) startScan(mode ScanMode, records []ltv.Record) int32 {
	a.mu.Lock()

	if a.scanMode == ScanIdle {
		if err := a.link.StartScan(); err != nil {
			a.mu.Unlock()
			a.log.Errorf("scan start failed: %v", err)
			return rcFromErr(err)
		}
	}

	if mode&ScanSource != 0 {
		attempts := uint8(ltv.UintOf(records, ltv.TypePASyncAttempt, defaultPAAttempts))
		a.sources.reset(attempts)
	}
	if mode&ScanCSIS != 0 {
		var sirk [16]byte
		copy(sirk[:], ltv.BytesOf(records, ltv.TypeSIRK))
		setSize := uint8(ltv.UintOf(records, ltv.TypeSetSize, 0))
		a.resetCSISLocked(setSize, sirk)
	}

	a.scanMode |= mode
	a.log.Infof("scanning started (mode 0x%02x)", uint8(a.scanMode))
	a.mu.Unlock()

	return 0
}

func (a *Assistant) stopScan() int32 {
	a.mu.Lock()
	if a.scanMode == ScanIdle {
		a.mu.Unlock()
		return 0
	}
	a.mu.Unlock()

	if err := a.link.StopScan(); err != nil {
		a.log.Errorf("scan stop failed: %v", err)
		return rcFromErr(err)
	}

	a.mu.Lock()
	a.scanMode = ScanIdle
	a.mu.Unlock()
	a.log.Infof("scanning stopped")

	a.paSyncDelete()

	return 0
}

func (a *Assistant) connectSink(records []ltv.Record) int32 {
	addr, ok := ltv.AddressOf(records, ltv.TypeIdentity, ltv.TypeRPA)
	if !ok {
		return rcInvalidParam
	}

	a.mu.Lock()
	scanning := a.scanMode != ScanIdle
	a.mu.Unlock()

	// Connecting while scanning is disallowed by the link layer. Keep the
	// mode bits so the scan resumes once the connection settles.
	if scanning {
		a.log.Infof("stop scanning before connect")
		if err := a.link.StopScan(); err != nil {
			a.log.Errorf("scan stop failed: %v", err)
			return rcFromErr(err)
		}
	}

	a.paSyncDelete()
	time.Sleep(100 * time.Millisecond)

	a.log.Infof("connecting to %v", addr)
	if err := a.link.Connect(addr); err != nil {
		a.log.Errorf("connect failed: %v", err)
		a.restartScanningIfNeeded()
		return rcFromErr(err)
	}

	return 0
}

func (a *Assistant) disconnectSink(records []ltv.Record) int32 {
	addr, ok := ltv.AddressOf(records, ltv.TypeIdentity, ltv.TypeRPA)
	if !ok {
		return rcInvalidParam
	}

	a.log.Infof("disconnecting from %v", addr)
	if err := a.link.Disconnect(addr); err != nil {
		a.log.Errorf("disconnect failed: %v", err)
		a.send(message.NewEvent(message.SinkDisconnected,
			addrRecord(addr, false),
			message.ErrorRecord(rcFromErr(err))))
	}

	if err := a.link.Unpair(addr); err != nil {
		a.log.Errorf("unpair failed: %v", err)
	}

	return 0
}

func (a *Assistant) addSource(records []ltv.Record) int32 {
	addr, ok := ltv.AddressOf(records, ltv.TypeIdentity, ltv.TypeRPA)
	if !ok {
		return rcInvalidParam
	}

	sid := uint8(ltv.UintOf(records, ltv.TypeSID, 0))
	paInterval := uint16(ltv.UintOf(records, ltv.TypePAInterval, uint64(assistant.PAIntervalUnknown)))
	broadcastID := uint32(ltv.UintOf(records, ltv.TypeBroadcastID, 0))
	bisSync := bisSyncOf(records)

	a.log.Infof("adding broadcast source 0x%06x", broadcastID)

	peers := a.link.ConnectedPeers()

	past := false
	for _, p := range peers {
		if a.link.PASTSupported(p.Conn) {
			past = true
			break
		}
	}

	// With PAST we sync to the source first, so the sync can be handed to
	// the sink the moment it asks for it.
	if past {
		a.paSemReset()

		a.mu.Lock()
		active := a.paActive
		a.mu.Unlock()

		if active {
			a.paSyncDelete()
			a.paTake(a.procTimeout, "pa sync delete")
			a.mu.Lock()
			active = a.paActive
			a.mu.Unlock()
		}

		if !active {
			timeout := a.paSyncCreate(addr, sid, paInterval)
			if timeout == 0 {
				a.log.Errorf("could not create pa sync")
			} else {
				a.mu.Lock()
				a.paTransfer = true
				a.mu.Unlock()
				a.paTake(time.Duration(timeout)*10*time.Millisecond+a.procTimeout,
					"pa sync establish")
			}
		}
	}

	if len(bisSync) > a.maxSubgroups {
		a.log.Warnf("capping %d subgroups to %d", len(bisSync), a.maxSubgroups)
		bisSync = bisSync[:a.maxSubgroups]
	}
	if len(bisSync) == 0 {
		a.log.Warnf("no subgroups given, defaulting to one with no bis preference")
		bisSync = []uint32{assistant.BISSyncNoPref}
	}

	a.mu.Lock()
	a.lastBroadcastID = broadcastID
	a.mu.Unlock()

	params := assistant.AddSourceParams{
		Addr:        addr,
		SID:         sid,
		PAInterval:  paInterval,
		BroadcastID: broadcastID,
		PASync:      true,
		BISSync:     bisSync,
	}

	for _, p := range peers {
		a.semTake(a.semAdd, "add source")

		a.mu.Lock()
		delete(a.recvStates, p.Conn)
		a.mu.Unlock()

		if err := a.link.BASSAddSource(p.Conn, params); err != nil {
			a.log.Errorf("bass add source on %v failed: %v", p.Addr, err)
			a.semGive(a.semAdd)
		}
	}

	return 0
}

func (a *Assistant) paSyncCommand(records []ltv.Record) int32 {
	addr, ok := ltv.AddressOf(records, ltv.TypeIdentity, ltv.TypeRPA)
	if !ok {
		return rcInvalidParam
	}

	sid := uint8(ltv.UintOf(records, ltv.TypeSID, 0))
	interval := uint16(ltv.UintOf(records, ltv.TypePAInterval, uint64(assistant.PAIntervalUnknown)))

	a.mu.Lock()
	known := a.sources.get(addr) != nil
	active := a.paActive
	a.mu.Unlock()

	if !known {
		a.log.Errorf("pa sync requested for unknown source %v", addr)
		return rcInvalidParam
	}
	if active {
		a.log.Errorf("already pa syncing")
		return rcBusy
	}

	if timeout := a.paSyncCreate(addr, sid, interval); timeout == 0 {
		return rcIO
	}

	return 0
}

func (a *Assistant) removeSource(records []ltv.Record) int32 {
	srcID := uint8(ltv.UintOf(records, ltv.TypeSourceID, 0))
	numSubgroups := len(bisSyncOf(records))

	if numSubgroups > a.maxSubgroups {
		numSubgroups = a.maxSubgroups
	}
	if numSubgroups == 0 {
		numSubgroups = 1
	}

	a.log.Infof("removing broadcast source (src %d, %d subgroups)", srcID, numSubgroups)

	a.mu.Lock()
	a.removeSrcID = srcID
	a.mu.Unlock()

	// Two-step removal: first tell the sink to stop syncing, the remove
	// itself is issued when the modify completes.
	params := assistant.ModifySourceParams{
		SrcID:      srcID,
		PASync:     false,
		PAInterval: assistant.PAIntervalUnknown,
		BISSync:    make([]uint32, numSubgroups),
	}

	for _, p := range a.link.ConnectedPeers() {
		a.semTake(a.semRem, "remove source")
		if err := a.link.BASSModifySource(p.Conn, params); err != nil {
			a.log.Errorf("bass modify source on %v failed: %v", p.Addr, err)
			a.semGive(a.semRem)
		}
	}

	return 0
}

func (a *Assistant) addBroadcastCode(records []ltv.Record) int32 {
	srcID := uint8(ltv.UintOf(records, ltv.TypeSourceID, 0))

	var code [16]byte
	raw := ltv.BytesOf(records, ltv.TypeBroadcastCode)
	if len(raw) == 0 {
		return rcInvalidParam
	}
	copy(code[:], raw)

	a.log.Infof("adding broadcast code for src %d", srcID)

	for _, p := range a.link.ConnectedPeers() {
		if err := a.link.BASSSetBroadcastCode(p.Conn, srcID, code); err != nil {
			a.log.Errorf("bass set broadcast code on %v failed: %v", p.Addr, err)
		}
	}

	return 0
}

func (a *Assistant) setVolume(records []ltv.Record) int32 {
	addr, ok := ltv.AddressOf(records, ltv.TypeIdentity, ltv.TypeRPA)
	if !ok {
		return rcInvalidParam
	}
	volume := uint8(ltv.UintOf(records, ltv.TypeVolume, 0))

	conn, ok := a.peerByAddr(addr)
	if !ok {
		a.log.Errorf("no connection to %v", addr)
		return rcInvalidParam
	}

	if err := a.link.VCPSetVolume(conn, volume); err != nil {
		a.log.Errorf("set volume failed: %v", err)
		return rcFromErr(err)
	}
	return 0
}

func (a *Assistant) setMute(records []ltv.Record, mute bool) int32 {
	addr, ok := ltv.AddressOf(records, ltv.TypeIdentity, ltv.TypeRPA)
	if !ok {
		return rcInvalidParam
	}

	conn, ok := a.peerByAddr(addr)
	if !ok {
		a.log.Errorf("no connection to %v", addr)
		return rcInvalidParam
	}

	var err error
	if mute {
		err = a.link.VCPMute(conn)
	} else {
		err = a.link.VCPUnmute(conn)
	}
	if err != nil {
		a.log.Errorf("set mute state failed: %v", err)
		return rcFromErr(err)
	}
	return 0
}

func (a *Assistant) reset() int32 {
	a.stopScan()

	a.log.Infof("disconnecting and unpairing all devices")
	for _, p := range a.link.ConnectedPeers() {
		if err := a.link.Disconnect(p.Addr); err != nil {
			a.log.Errorf("disconnect from %v failed: %v", p.Addr, err)
		}
	}
	if err := a.link.UnpairAll(); err != nil {
		a.log.Errorf("unpair all failed: %v", err)
	}

	return 0
}

func (a *Assistant) peerByAddr(addr assistant.Addr) (assistant.ConnID, bool) {
	for _, p := range a.link.ConnectedPeers() {
		if p.Addr.B == addr.B {
			return p.Conn, true
		}
	}
	return 0, false
}

func bisSyncOf(records []ltv.Record) []uint32 {
	if r, ok := ltv.First(records, ltv.TypeBISSync); ok {
		if bb, ok := r.Value.(ltv.BISSync); ok {
			return bb
		}
	}
	return nil
}
