package main

import (
	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
)

// nullLink stands in when no radio backend is compiled in. Scan control
// pretends to succeed so host round-trips can be exercised end to end;
// everything needing a controller reports not supported.
type nullLink struct {
	log assistant.Logger
}

func newNullLink(log assistant.Logger) *nullLink {
	log.Warnf("no radio backend, using null link")
	return &nullLink{log: log}
}

func (l *nullLink) StartScan() error { return nil }
func (l *nullLink) StopScan() error  { return nil }

func (l *nullLink) Connect(addr assistant.Addr) error    { return assistant.ErrNotSupported }
func (l *nullLink) Disconnect(addr assistant.Addr) error { return assistant.ErrNotSupported }
func (l *nullLink) Unpair(addr assistant.Addr) error     { return assistant.ErrNotSupported }
func (l *nullLink) UnpairAll() error                     { return nil }
func (l *nullLink) ConnectedPeers() []assistant.Peer     { return nil }

func (l *nullLink) CreatePASync(addr assistant.Addr, sid uint8, timeout uint16) error {
	return assistant.ErrNotSupported
}
func (l *nullLink) DeletePASync() error { return nil }

func (l *nullLink) TransferPASync(conn assistant.ConnID) error {
	return assistant.ErrNotSupported
}

func (l *nullLink) PASTSupported(conn assistant.ConnID) bool { return false }

func (l *nullLink) BASSDiscover(conn assistant.ConnID) error { return assistant.ErrNotSupported }

func (l *nullLink) BASSAddSource(conn assistant.ConnID, p assistant.AddSourceParams) error {
	return assistant.ErrNotSupported
}

func (l *nullLink) BASSModifySource(conn assistant.ConnID, p assistant.ModifySourceParams) error {
	return assistant.ErrNotSupported
}

func (l *nullLink) BASSRemoveSource(conn assistant.ConnID, srcID uint8) error {
	return assistant.ErrNotSupported
}

func (l *nullLink) BASSSetBroadcastCode(conn assistant.ConnID, srcID uint8, code [16]byte) error {
	return assistant.ErrNotSupported
}

func (l *nullLink) VCPDiscover(conn assistant.ConnID) error { return assistant.ErrNotSupported }

func (l *nullLink) VCPSetVolume(conn assistant.ConnID, volume uint8) error {
	return assistant.ErrNotSupported
}

func (l *nullLink) VCPMute(conn assistant.ConnID) error   { return assistant.ErrNotSupported }
func (l *nullLink) VCPUnmute(conn assistant.ConnID) error { return assistant.ErrNotSupported }

func (l *nullLink) CSIPDiscover(conn assistant.ConnID) error { return assistant.ErrNotSupported }
