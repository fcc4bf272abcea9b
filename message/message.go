// Package message implements the 5-byte-header frame format exchanged with
// the host: type, subtype, sequence number, little-endian payload length,
// then an LTV-encoded payload.
package message

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Type is the frame direction/kind discriminator.
type Type uint8

const (
	CMD Type = 1 // host to device, answered by a RES of the same subtype
	RES Type = 2
	EVT Type = 3 // unsolicited device to host
)

func (t Type) String() string {
	switch t {
	case CMD:
		return "CMD"
	case RES:
		return "RES"
	case EVT:
		return "EVT"
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// SubType identifies the command or event a frame carries. EVT subtypes
// conventionally have bit 7 set.
type SubType uint8

const (
	StartSinkScan    SubType = 0x01
	StartSourceScan  SubType = 0x02
	StartScanAll     SubType = 0x03
	StopScan         SubType = 0x04
	ConnectSink      SubType = 0x05
	DisconnectSink   SubType = 0x06
	AddSource        SubType = 0x07
	RemoveSource     SubType = 0x08
	BigBCode         SubType = 0x09
	SetVolume        SubType = 0x0a
	Mute             SubType = 0x0b
	Unmute           SubType = 0x0c
	StartCSISScan    SubType = 0x0d
	PASync           SubType = 0x0e
	Reset            SubType = 0x2a
	SinkFound        SubType = 0x81
	SourceFound      SubType = 0x82
	SinkConnected    SubType = 0x83
	SinkDisconnected SubType = 0x84
	SourceAdded      SubType = 0x85
	SourceRemoved    SubType = 0x86
	PAStateNotSynced SubType = 0x87
	PAStateInfoReq   SubType = 0x88
	PAStateSynced    SubType = 0x89
	PAStateFailed    SubType = 0x8a
	PAStateNoPAST    SubType = 0x8b
	BISSynced        SubType = 0x8c
	BISNotSynced     SubType = 0x8d
	IdentityResolved SubType = 0x8e
	SourceBASEFound  SubType = 0x8f
	SourceBIGInfo    SubType = 0x90
	EncStateNoEnc    SubType = 0x91
	EncStateBCodeReq SubType = 0x92
	EncStateDec      SubType = 0x93
	EncStateBadCode  SubType = 0x94
	VolumeState      SubType = 0x95
	VolumeCtlFound   SubType = 0x96
	SetIDFound       SubType = 0x97
	SetMemberFound   SubType = 0x98
	Heartbeat        SubType = 0xff
)

var subTypeNames = map[SubType]string{
	StartSinkScan:    "START_SINK_SCAN",
	StartSourceScan:  "START_SOURCE_SCAN",
	StartScanAll:     "START_SCAN_ALL",
	StopScan:         "STOP_SCAN",
	ConnectSink:      "CONNECT_SINK",
	DisconnectSink:   "DISCONNECT_SINK",
	AddSource:        "ADD_SOURCE",
	RemoveSource:     "REMOVE_SOURCE",
	BigBCode:         "BIG_BCODE",
	SetVolume:        "SET_VOLUME",
	Mute:             "MUTE",
	Unmute:           "UNMUTE",
	StartCSISScan:    "START_CSIS_SCAN",
	PASync:           "PA_SYNC",
	Reset:            "RESET",
	SinkFound:        "SINK_FOUND",
	SourceFound:      "SOURCE_FOUND",
	SinkConnected:    "SINK_CONNECTED",
	SinkDisconnected: "SINK_DISCONNECTED",
	SourceAdded:      "SOURCE_ADDED",
	SourceRemoved:    "SOURCE_REMOVED",
	PAStateNotSynced: "PA_STATE_NOT_SYNCED",
	PAStateInfoReq:   "PA_STATE_INFO_REQ",
	PAStateSynced:    "PA_STATE_SYNCED",
	PAStateFailed:    "PA_STATE_FAILED",
	PAStateNoPAST:    "PA_STATE_NO_PAST",
	BISSynced:        "BIS_SYNCED",
	BISNotSynced:     "BIS_NOT_SYNCED",
	IdentityResolved: "IDENTITY_RESOLVED",
	SourceBASEFound:  "SOURCE_BASE_FOUND",
	SourceBIGInfo:    "SOURCE_BIG_INFO",
	EncStateNoEnc:    "ENC_STATE_NO_ENC",
	EncStateBCodeReq: "ENC_STATE_BCODE_REQ",
	EncStateDec:      "ENC_STATE_DEC",
	EncStateBadCode:  "ENC_STATE_BAD_CODE",
	VolumeState:      "VOLUME_STATE",
	VolumeCtlFound:   "VOLUME_CONTROL_FOUND",
	SetIDFound:       "SET_IDENTIFIER_FOUND",
	SetMemberFound:   "SET_MEMBER_FOUND",
	Heartbeat:        "HEARTBEAT",
}

func (s SubType) String() string {
	if n, ok := subTypeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("SubType(0x%02x)", uint8(s))
}

// HeaderLen is the fixed frame header size.
const HeaderLen = 5

var (
	ErrInvalidType         = errors.New("invalid message type")
	ErrInvalidSubType      = errors.New("invalid message subtype")
	ErrFrameTooShort       = errors.New("frame shorter than header")
	ErrPayloadSizeMismatch = errors.New("payload size mismatch")
)

// Frame is one decoded host message.
type Frame struct {
	Type    Type
	SubType SubType
	SeqNo   uint8
	Payload []byte
}

// Build validates the pieces and assembles a frame. seqNo outside [0,255] is
// coerced to 0 rather than rejected, matching how hosts omit it.
func Build(typ Type, sub SubType, seqNo int, payload []byte) (Frame, error) {
	if typ != CMD && typ != RES && typ != EVT {
		return Frame{}, errors.Wrapf(ErrInvalidType, "%d", typ)
	}
	if _, ok := subTypeNames[sub]; !ok {
		return Frame{}, errors.Wrapf(ErrInvalidSubType, "0x%02x", uint8(sub))
	}
	if seqNo < 0 || seqNo > 255 {
		seqNo = 0
	}
	if len(payload) > 0xffff {
		return Frame{}, errors.Wrapf(ErrPayloadSizeMismatch, "payload %d bytes", len(payload))
	}
	return Frame{Type: typ, SubType: sub, SeqNo: uint8(seqNo), Payload: payload}, nil
}

// Parse decodes a complete frame. The buffer must hold exactly header plus
// the declared payload.
func Parse(b []byte) (Frame, error) {
	if len(b) < HeaderLen {
		return Frame{}, errors.Wrapf(ErrFrameTooShort, "%d bytes", len(b))
	}

	size := int(binary.LittleEndian.Uint16(b[3:]))
	if len(b) != HeaderLen+size {
		return Frame{}, errors.Wrapf(ErrPayloadSizeMismatch,
			"declared %d, have %d", size, len(b)-HeaderLen)
	}

	f := Frame{
		Type:    Type(b[0]),
		SubType: SubType(b[1]),
		SeqNo:   b[2],
	}
	if size > 0 {
		f.Payload = make([]byte, size)
		copy(f.Payload, b[HeaderLen:])
	}
	return f, nil
}

// Marshal serializes the frame to its wire form.
func (f Frame) Marshal() []byte {
	out := make([]byte, 0, HeaderLen+len(f.Payload))
	out = append(out, uint8(f.Type), uint8(f.SubType), f.SeqNo)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(f.Payload)))
	return append(out, f.Payload...)
}

func (f Frame) String() string {
	return fmt.Sprintf("%v/%v seq %d len %d", f.Type, f.SubType, f.SeqNo, len(f.Payload))
}
