package assistant

// ConnID identifies a connection to a sink within the link layer.
type ConnID uint16

// Peer is a connected sink as the link layer sees it.
type Peer struct {
	Conn ConnID
	Addr Addr
	// Identity is set once the link layer has resolved a private address.
	Identity bool
}

// PASyncState mirrors the PA sync state field of a BASS receive state.
type PASyncState uint8

const (
	PAStateNotSynced PASyncState = iota
	PAStateInfoReq
	PAStateSynced
	PAStateFailed
	PAStateNoPAST
)

// EncryptState mirrors the BIG encryption field of a BASS receive state.
type EncryptState uint8

const (
	EncStateNoEnc EncryptState = iota
	EncStateBCodeReq
	EncStateDecrypting
	EncStateBadCode
)

// BASSRecvState is one receive-state snapshot reported by a sink, one
// subgroup BIS-sync bitmask per element of BISSync.
type BASSRecvState struct {
	SrcID       uint8
	PAState     PASyncState
	EncState    EncryptState
	BroadcastID uint32
	BISSync     []uint32
}

// AddSourceParams parameterizes the BASS Add Source control-point operation.
type AddSourceParams struct {
	Addr        Addr
	SID         uint8
	PAInterval  uint16
	BroadcastID uint32
	PASync      bool
	BISSync     []uint32
}

// ModifySourceParams parameterizes the BASS Modify Source control-point
// operation.
type ModifySourceParams struct {
	SrcID      uint8
	PASync     bool
	PAInterval uint16
	BISSync    []uint32
}

// Link is the radio stack the assistant drives. Implementations wrap a real
// controller; every call is a request, completion and failures come back as
// Events on the assistant's event stream.
type Link interface {
	StartScan() error
	StopScan() error

	Connect(addr Addr) error
	Disconnect(addr Addr) error
	Unpair(addr Addr) error
	UnpairAll() error
	ConnectedPeers() []Peer

	// CreatePASync requests a periodic advertising sync. The timeout is in
	// the controller's 10 ms units. At most one sync may exist at a time;
	// the assistant serializes creation.
	CreatePASync(addr Addr, sid uint8, timeout uint16) error
	DeletePASync() error
	// TransferPASync hands the active sync to the peer via PAST.
	TransferPASync(conn ConnID) error
	// PASTSupported reports whether both sides of the connection support
	// Periodic Advertising Sync Transfer.
	PASTSupported(conn ConnID) bool

	BASSDiscover(conn ConnID) error
	BASSAddSource(conn ConnID, p AddSourceParams) error
	BASSModifySource(conn ConnID, p ModifySourceParams) error
	BASSRemoveSource(conn ConnID, srcID uint8) error
	BASSSetBroadcastCode(conn ConnID, srcID uint8, code [16]byte) error

	VCPDiscover(conn ConnID) error
	VCPSetVolume(conn ConnID, volume uint8) error
	VCPMute(conn ConnID) error
	VCPUnmute(conn ConnID) error

	CSIPDiscover(conn ConnID) error
}

// Event is a link-layer notification consumed by the assistant's event loop.
type Event interface {
	event()
}

// ScanResult is one advertising report.
type ScanResult struct {
	Addr        Addr
	Identity    bool
	SID         uint8
	RSSI        int8
	Interval    uint16 // periodic advertising interval, 0 if none
	Connectable bool
	Data        []byte // raw AD payload
}

// Connected reports the outcome of a connection attempt. Err is the HCI
// error code, zero on success.
type Connected struct {
	Conn ConnID
	Addr Addr
	Err  uint8
}

// Disconnected reports a dropped or closed connection.
type Disconnected struct {
	Conn   ConnID
	Addr   Addr
	Reason uint8
}

// SecurityChanged reports the outcome of pairing/encryption establishment.
type SecurityChanged struct {
	Conn ConnID
	Addr Addr
	Err  int
}

// IdentityResolved reports that the link layer resolved a private address.
type IdentityResolved struct {
	Conn     ConnID
	RPA      Addr
	Identity Addr
}

// PASyncEstablished reports that the outstanding PA sync reached the train.
type PASyncEstablished struct {
	Addr Addr
}

// PASyncTerminated reports that the outstanding PA sync is gone.
type PASyncTerminated struct {
	Reason uint8
}

// PAReport carries one periodic advertising report payload.
type PAReport struct {
	Addr     Addr
	Identity bool
	Data     []byte
}

// BIGInfoReport carries BIGInfo received on the active PA sync.
type BIGInfoReport struct {
	Addr     Addr
	Identity bool
	Info     BIGInfo
}

// ReceiveState carries a sink's BASS receive-state notification.
type ReceiveState struct {
	Conn     ConnID
	Addr     Addr
	Identity bool
	Err      int
	State    BASSRecvState
}

// SourceRemoved reports that a sink dropped a receive state.
type SourceRemoved struct {
	Conn  ConnID
	SrcID uint8
}

// BASSDiscovered reports the outcome of BASS discovery on a sink.
type BASSDiscovered struct {
	Conn           ConnID
	Addr           Addr
	Identity       bool
	Err            int
	RecvStateCount uint8
}

// Procedure tags the BASS control-point operation a ProcedureDone refers to.
type Procedure uint8

const (
	ProcAddSource Procedure = iota
	ProcModifySource
	ProcRemoveSource
)

// ProcedureDone reports completion of a BASS control-point operation.
type ProcedureDone struct {
	Conn     ConnID
	Addr     Addr
	Identity bool
	Proc     Procedure
	Err      int
}

// VolumeDiscovered reports the outcome of volume-control discovery.
type VolumeDiscovered struct {
	Conn     ConnID
	Addr     Addr
	Identity bool
	Err      int
}

// VolumeState carries a sink's volume-control state notification.
type VolumeState struct {
	Conn     ConnID
	Addr     Addr
	Identity bool
	Err      int
	Volume   uint8
	Mute     uint8
}

// CSIPDiscovered reports the outcome of coordinated-set discovery on a sink.
type CSIPDiscovered struct {
	Conn          ConnID
	Addr          Addr
	Identity      bool
	Err           int
	Rank          uint8
	SetSize       uint8
	SIRK          [16]byte
	SIRKEncrypted bool
}

// ScanTimeout reports that the controller stopped scanning on its own.
type ScanTimeout struct{}

func (ScanResult) event()        {}
func (Connected) event()         {}
func (Disconnected) event()      {}
func (SecurityChanged) event()   {}
func (IdentityResolved) event()  {}
func (PASyncEstablished) event() {}
func (PASyncTerminated) event()  {}
func (PAReport) event()          {}
func (BIGInfoReport) event()     {}
func (ReceiveState) event()      {}
func (SourceRemoved) event()     {}
func (BASSDiscovered) event()    {}
func (ProcedureDone) event()     {}
func (VolumeDiscovered) event()  {}
func (VolumeState) event()       {}
func (CSIPDiscovered) event()    {}
func (ScanTimeout) event()       {}
