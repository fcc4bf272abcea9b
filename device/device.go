// Package device implements the broadcast assistant engine: it turns host
// command frames into link-layer actions and link-layer events into outgoing
// event frames, tracking scan state, PA-sync usage and per-sink BASS receive
// state along the way.
package device

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
	"github.com/AstraeusLabs/web-broadcast-assistant/ltv"
	"github.com/AstraeusLabs/web-broadcast-assistant/message"
)

// ScanMode is the bitmask of concurrently active scan targets.
type ScanMode uint8

const (
	ScanIdle   ScanMode = 0
	ScanSource ScanMode = 1 << 0
	ScanSink   ScanMode = 1 << 1
	ScanCSIS   ScanMode = 1 << 2
)

const (
	defaultMaxSubgroups = 4
	defaultSourceCap    = 50
	defaultProcTimeout  = 2 * time.Second
	defaultPAAttempts   = 0
)

// Return codes carried in RES frames, mirroring errno conventions.
const (
	rcFailed       int32 = -1
	rcIO           int32 = -5
	rcBusy         int32 = -16
	rcInvalidParam int32 = -22
	rcNotSupported int32 = -95
)

// Assistant is the broadcast assistant engine. Commands are handled one at a
// time on the caller's goroutine; link-layer events are handled on a single
// internal loop goroutine.
type Assistant struct {
	link assistant.Link
	send func(message.Frame)
	log  assistant.Logger

	maxSubgroups int
	sourceCap    int
	procTimeout  time.Duration

	sirkKey        [16]byte
	haveSIRKKey    bool
	sourceObserver func(SourceInfo)

	events   chan assistant.Event
	internal chan internalEvent
	done     chan struct{}
	wg       sync.WaitGroup

	cmdMu sync.Mutex // serializes HandleMessage

	mu         sync.Mutex // guards the fields below
	scanMode   ScanMode
	sources    *sourceList
	recvStates map[assistant.ConnID]assistant.BASSRecvState
	csis       csisSet

	paActive   bool
	paTransfer bool
	paTimer    *time.Timer

	vcpBusy  bool
	csipBusy bool

	lastBroadcastID uint32 // carried into the source-added event
	removeSrcID     uint8  // carried from modify-source into remove-source

	semPASync chan struct{}
	semAdd    chan struct{}
	semRem    chan struct{}

	hb *heartbeat
}

type internalEvent int

const (
	evPACreateTimeout internalEvent = iota
)

// New wires an Assistant to its link layer and outgoing frame sink. Frames
// passed to send must not be retained past the call.
func New(link assistant.Link, send func(message.Frame), opts ...Option) *Assistant {
	a := &Assistant{
		link:         link,
		send:         send,
		log:          assistant.GetLogger(),
		maxSubgroups: defaultMaxSubgroups,
		sourceCap:    defaultSourceCap,
		procTimeout:  defaultProcTimeout,
		events:       make(chan assistant.Event, 32),
		internal:     make(chan internalEvent, 4),
		done:         make(chan struct{}),
		recvStates:   make(map[assistant.ConnID]assistant.BASSRecvState),
		semPASync:    make(chan struct{}, 1),
		semAdd:       make(chan struct{}, 1),
		semRem:       make(chan struct{}, 1),
	}

	// BASS procedure semaphores start available, the PA-sync semaphore
	// starts taken (it is given by sync establishment or failure).
	a.semAdd <- struct{}{}
	a.semRem <- struct{}{}

	for _, opt := range opts {
		opt(a)
	}

	a.sources = newSourceList(a.sourceCap)
	a.hb = newHeartbeat(func(cnt uint8) {
		a.send(message.Frame{Type: message.EVT, SubType: message.Heartbeat, SeqNo: cnt})
	})

	return a
}

// Start launches the event loop.
func (a *Assistant) Start() {
	a.wg.Add(1)
	go a.loop()
}

// Stop terminates the event loop and the heartbeat. It does not touch the
// link layer; use a reset command for that.
func (a *Assistant) Stop() {
	close(a.done)
	a.hb.stop()
	a.wg.Wait()
}

// Deliver hands a link-layer event to the engine. It blocks only while the
// event buffer is full.
func (a *Assistant) Deliver(ev assistant.Event) {
	select {
	case a.events <- ev:
	case <-a.done:
	}
}

func (a *Assistant) loop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.done:
			return
		case ev := <-a.events:
			a.handleEvent(ev)
		case iev := <-a.internal:
			switch iev {
			case evPACreateTimeout:
				a.log.Warnf("pa sync create timeout")
				a.paSyncDelete()
				a.paGive()
			}
		}
	}
}

// HandleMessage dispatches one host command and sends the correlated RES
// frame. Non-CMD frames are answered with an error return code.
func (a *Assistant) HandleMessage(f message.Frame) {
	a.cmdMu.Lock()
	defer a.cmdMu.Unlock()

	if f.Type != message.CMD {
		a.log.Warnf("dropping non-command frame %v", f)
		a.send(message.NewReturnCode(f.SubType, f.SeqNo, rcFailed))
		return
	}

	records := f.Records()
	var rc int32

	switch f.SubType {
	case message.Heartbeat:
		a.hb.toggle()

	case message.StartSinkScan:
		rc = a.startScan(ScanSink, records)

	case message.StartSourceScan:
		rc = a.startScan(ScanSource, records)

	case message.StartScanAll:
		rc = a.startScan(ScanSource|ScanSink, records)

	case message.StartCSISScan:
		rc = a.startScan(ScanCSIS, records)

	case message.StopScan:
		rc = a.stopScan()

	case message.ConnectSink:
		rc = a.connectSink(records)

	case message.DisconnectSink:
		rc = a.disconnectSink(records)

	case message.AddSource:
		rc = a.addSource(records)

	case message.PASync:
		rc = a.paSyncCommand(records)

	case message.RemoveSource:
		rc = a.removeSource(records)

	case message.BigBCode:
		rc = a.addBroadcastCode(records)

	case message.SetVolume:
		rc = a.setVolume(records)

	case message.Mute:
		rc = a.setMute(records, true)

	case message.Unmute:
		rc = a.setMute(records, false)

	case message.Reset:
		rc = a.reset()
		a.hb.stop()

	default:
		a.log.Warnf("unrecognized command subtype 0x%02x", uint8(f.SubType))
		rc = rcFailed
	}

	a.send(message.NewReturnCode(f.SubType, f.SeqNo, rc))
}

func (a *Assistant) handleEvent(ev assistant.Event) {
	switch e := ev.(type) {
	case assistant.ScanResult:
		a.handleScanResult(e)

	case assistant.Connected:
		if e.Err != 0 {
			a.log.Errorf("connect to %v failed (err %d)", e.Addr, e.Err)
			a.send(message.NewEvent(message.SinkConnected,
				addrRecord(e.Addr, false),
				message.ErrorRecord(int32(e.Err))))
			a.restartScanningIfNeeded()
		}

	case assistant.SecurityChanged:
		a.handleSecurityChanged(e)

	case assistant.BASSDiscovered:
		a.handleBASSDiscovered(e)

	case assistant.Disconnected:
		a.mu.Lock()
		delete(a.recvStates, e.Conn)
		a.mu.Unlock()
		a.send(message.NewEvent(message.SinkDisconnected,
			addrRecord(e.Addr, false),
			message.ErrorRecord(0)))

	case assistant.IdentityResolved:
		a.send(message.NewEvent(message.IdentityResolved,
			ltv.Record{Type: ltv.TypeRPA, Value: ltv.Address{Addr: e.RPA}},
			ltv.Record{Type: ltv.TypeIdentity, Value: ltv.Address{Addr: e.Identity}}))

	case assistant.PASyncEstablished:
		a.mu.Lock()
		a.stopPATimerLocked()
		a.mu.Unlock()
		a.paGive()

	case assistant.PASyncTerminated:
		a.mu.Lock()
		a.paActive = false
		a.stopPATimerLocked()
		a.mu.Unlock()
		a.paGive()

	case assistant.PAReport:
		a.handlePAReport(e)

	case assistant.BIGInfoReport:
		a.send(message.NewEvent(message.SourceBIGInfo,
			addrRecord(e.Addr, e.Identity),
			ltv.Record{Type: ltv.TypeBIGInfo, Value: ltv.BigInfo(e.Info)}))

	case assistant.ReceiveState:
		a.handleReceiveState(e)

	case assistant.SourceRemoved:
		a.send(message.NewEvent(message.SourceRemoved, message.ErrorRecord(0)))

	case assistant.ProcedureDone:
		a.handleProcedureDone(e)

	case assistant.VolumeDiscovered:
		a.mu.Lock()
		a.vcpBusy = false
		a.mu.Unlock()
		if e.Err != 0 {
			a.log.Warnf("volume control discovery failed (%d)", e.Err)
			return
		}
		a.send(message.NewEvent(message.VolumeCtlFound, addrRecord(e.Addr, e.Identity)))

	case assistant.VolumeState:
		a.send(message.NewEvent(message.VolumeState,
			addrRecord(e.Addr, e.Identity),
			ltv.Record{Type: ltv.TypeVolume, Value: ltv.Uint(e.Volume)},
			ltv.Record{Type: ltv.TypeMute, Value: ltv.Uint(e.Mute)},
			message.ErrorRecord(int32(e.Err))))

	case assistant.CSIPDiscovered:
		a.handleCSIPDiscovered(e)

	case assistant.ScanTimeout:
		a.mu.Lock()
		a.scanMode = ScanIdle
		a.mu.Unlock()
		a.send(message.NewEvent(message.StopScan, message.ErrorRecord(0)))

	default:
		a.log.Debugf("unhandled link event %T", ev)
	}
}

func (a *Assistant) handleSecurityChanged(e assistant.SecurityChanged) {
	if e.Err != 0 {
		a.log.Errorf("security establishment with %v failed (%d)", e.Addr, e.Err)
		if err := a.link.Disconnect(e.Addr); err != nil {
			a.log.Errorf("disconnect failed: %v", err)
		}
		a.restartScanningIfNeeded()
		return
	}

	if err := a.link.BASSDiscover(e.Conn); err != nil {
		a.log.Errorf("bass discovery start failed: %v", err)
		if err := a.link.Disconnect(e.Addr); err != nil {
			a.log.Errorf("disconnect failed: %v", err)
		}
		a.restartScanningIfNeeded()
	}
}

func (a *Assistant) handleBASSDiscovered(e assistant.BASSDiscovered) {
	if e.Err != 0 {
		a.log.Errorf("bass discovery on %v failed (%d)", e.Addr, e.Err)
		if err := a.link.Disconnect(e.Addr); err != nil {
			a.log.Errorf("disconnect failed: %v", err)
		}
		a.restartScanningIfNeeded()
		return
	}

	a.send(message.NewEvent(message.SinkConnected,
		addrRecord(e.Addr, e.Identity),
		message.ErrorRecord(0)))

	a.mu.Lock()
	startVCP := !a.vcpBusy
	if startVCP {
		a.vcpBusy = true
	}
	startCSIP := !a.csipBusy
	if startCSIP {
		a.csipBusy = true
	}
	a.mu.Unlock()

	if startVCP {
		if err := a.link.VCPDiscover(e.Conn); err != nil {
			a.log.Errorf("vcp discovery start failed: %v", err)
			a.mu.Lock()
			a.vcpBusy = false
			a.mu.Unlock()
		}
	}
	if startCSIP {
		if err := a.link.CSIPDiscover(e.Conn); err != nil {
			a.log.Errorf("csip discovery start failed: %v", err)
			a.mu.Lock()
			a.csipBusy = false
			a.mu.Unlock()
		}
	}

	a.restartScanningIfNeeded()
}

func (a *Assistant) handleProcedureDone(e assistant.ProcedureDone) {
	switch e.Proc {
	case assistant.ProcAddSource:
		a.semGive(a.semAdd)
		a.mu.Lock()
		bid := a.lastBroadcastID
		a.mu.Unlock()
		a.send(message.NewEvent(message.SourceAdded,
			addrRecord(e.Addr, e.Identity),
			ltv.Record{Type: ltv.TypeBroadcastID, Value: ltv.Uint(bid)},
			message.ErrorRecord(int32(e.Err))))

	case assistant.ProcModifySource:
		if e.Err != 0 {
			a.log.Errorf("bass modify source failed (%d)", e.Err)
			a.semGive(a.semRem)
			return
		}
		a.mu.Lock()
		srcID := a.removeSrcID
		a.mu.Unlock()
		if err := a.link.BASSRemoveSource(e.Conn, srcID); err != nil {
			a.log.Errorf("bass remove source failed: %v", err)
			a.semGive(a.semRem)
		}

	case assistant.ProcRemoveSource:
		if e.Err != 0 {
			a.log.Errorf("bass remove source failed (%d)", e.Err)
		}
		a.semGive(a.semRem)
	}
}

func (a *Assistant) restartScanningIfNeeded() {
	a.mu.Lock()
	mode := a.scanMode
	a.mu.Unlock()

	if mode == ScanIdle {
		return
	}

	a.log.Infof("restart scanning")
	if err := a.link.StartScan(); err != nil {
		a.log.Errorf("scan restart failed: %v", err)
		a.mu.Lock()
		a.scanMode = ScanIdle
		a.mu.Unlock()
	}
}

// semTake waits for a semaphore slot up to the procedure timeout and then
// proceeds anyway, logging the overrun.
func (a *Assistant) semTake(sem chan struct{}, what string) {
	select {
	case <-sem:
	case <-time.After(a.procTimeout):
		a.log.Errorf("%s wait timed out", what)
	}
}

func (a *Assistant) semGive(sem chan struct{}) {
	select {
	case sem <- struct{}{}:
	default:
	}
}

func rcFromErr(err error) int32 {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, assistant.ErrBusy):
		return rcBusy
	case errors.Is(err, assistant.ErrInvalidParam), errors.Is(err, assistant.ErrNotFound):
		return rcInvalidParam
	case errors.Is(err, assistant.ErrNotSupported):
		return rcNotSupported
	}
	return rcIO
}

func addrRecord(addr assistant.Addr, identity bool) ltv.Record {
	typ := ltv.TypeRPA
	if identity {
		typ = ltv.TypeIdentity
	}
	return ltv.Record{Type: typ, Value: ltv.Address{Addr: addr}}
}
