package device

import (
	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
	"github.com/AstraeusLabs/web-broadcast-assistant/ltv"
	"github.com/AstraeusLabs/web-broadcast-assistant/message"
)

// handleReceiveState compares a receive-state notification field by field
// against the stored snapshot and forwards only the transitions to the host.
func (a *Assistant) handleReceiveState(e assistant.ReceiveState) {
	st := e.State

	a.mu.Lock()
	prev := a.recvStates[e.Conn]
	a.mu.Unlock()

	if st.EncState != prev.EncState {
		a.log.Infof("encrypt state %d -> %d", prev.EncState, st.EncState)

		var sub message.SubType
		switch st.EncState {
		case assistant.EncStateNoEnc:
			sub = message.EncStateNoEnc
		case assistant.EncStateBCodeReq:
			sub = message.EncStateBCodeReq
		case assistant.EncStateDecrypting:
			sub = message.EncStateDec
		case assistant.EncStateBadCode:
			sub = message.EncStateBadCode
		default:
			a.log.Errorf("invalid encrypt state %d", st.EncState)
			return
		}

		a.send(message.NewEvent(sub,
			addrRecord(e.Addr, e.Identity),
			ltv.Record{Type: ltv.TypeSourceID, Value: ltv.Uint(st.SrcID)}))
	}

	if st.PAState != prev.PAState {
		a.log.Infof("pa state %d -> %d", prev.PAState, st.PAState)

		var sub message.SubType
		switch st.PAState {
		case assistant.PAStateNotSynced:
			sub = message.PAStateNotSynced
		case assistant.PAStateInfoReq:
			sub = message.PAStateInfoReq
			// The sink asks for sync info; hand over our sync via PAST.
			a.mu.Lock()
			transfer := a.paActive
			a.mu.Unlock()
			if transfer && a.link.PASTSupported(e.Conn) {
				a.log.Infof("transfer pa sync")
				if err := a.link.TransferPASync(e.Conn); err != nil {
					a.log.Errorf("pa sync transfer failed: %v", err)
				}
			}
		case assistant.PAStateSynced:
			sub = message.PAStateSynced
			a.finishPendingTransfer()
		case assistant.PAStateFailed:
			sub = message.PAStateFailed
		case assistant.PAStateNoPAST:
			sub = message.PAStateNoPAST
			a.finishPendingTransfer()
		default:
			a.log.Errorf("invalid pa state %d", st.PAState)
			return
		}

		a.send(message.NewEvent(sub,
			addrRecord(e.Addr, e.Identity),
			ltv.Record{Type: ltv.TypeBroadcastID, Value: ltv.Uint(st.BroadcastID)},
			ltv.Record{Type: ltv.TypeSourceID, Value: ltv.Uint(st.SrcID)}))
	}

	// BIS-sync changes across subgroups collapse into one synced /
	// not-synced event. Any subgroup reporting the all-ones sentinel means
	// the whole BIG failed to sync.
	changed := false
	synced := false
	for i, bs := range st.BISSync {
		var old uint32
		if i < len(prev.BISSync) {
			old = prev.BISSync[i]
		}
		if bs == old {
			continue
		}
		changed = true
		if bs == assistant.BIGSyncFailed {
			a.log.Errorf("failed to sync to big")
			synced = false
			break
		}
		synced = synced || bs != 0
	}

	if changed {
		sub := message.BISNotSynced
		if synced {
			sub = message.BISSynced
		}
		a.send(message.NewEvent(sub,
			addrRecord(e.Addr, e.Identity),
			ltv.Record{Type: ltv.TypeBroadcastID, Value: ltv.Uint(st.BroadcastID)},
			ltv.Record{Type: ltv.TypeSourceID, Value: ltv.Uint(st.SrcID)}))
	}

	a.mu.Lock()
	a.recvStates[e.Conn] = snapshot(st)
	a.mu.Unlock()
}

// finishPendingTransfer releases the PA sync once a PAST handoff concluded,
// whether the sink took it or reported no PAST support.
func (a *Assistant) finishPendingTransfer() {
	a.mu.Lock()
	pending := a.paTransfer
	a.mu.Unlock()

	if pending {
		a.paSyncDelete()
	}
}

func snapshot(st assistant.BASSRecvState) assistant.BASSRecvState {
	out := st
	out.BISSync = make([]uint32, len(st.BISSync))
	copy(out.BISSync, st.BISSync)
	return out
}
