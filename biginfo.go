package assistant

import (
	"encoding/binary"
	"fmt"
)

// BIGInfoLen is the serialized size of a BIGInfo record.
const BIGInfoLen = 18

// BIGInfo carries the Broadcast Isochronous Group parameters reported on a
// periodic advertising sync.
type BIGInfo struct {
	NumBIS      uint8
	SubEvtCount uint8
	ISOInterval uint16
	BurstNumber uint8
	Offset      uint8
	RepCount    uint8
	MaxPDU      uint16
	SDUInterval uint32
	MaxSDU      uint16
	PHY         uint8
	Framing     uint8
	Encryption  bool
}

// Marshal serializes the record into its fixed 18-byte wire form.
func (bi BIGInfo) Marshal() []byte {
	b := make([]byte, 0, BIGInfoLen)
	b = append(b, bi.NumBIS, bi.SubEvtCount)
	b = binary.LittleEndian.AppendUint16(b, bi.ISOInterval)
	b = append(b, bi.BurstNumber, bi.Offset, bi.RepCount)
	b = binary.LittleEndian.AppendUint16(b, bi.MaxPDU)
	b = binary.LittleEndian.AppendUint32(b, bi.SDUInterval)
	b = binary.LittleEndian.AppendUint16(b, bi.MaxSDU)
	b = append(b, bi.PHY, bi.Framing)
	if bi.Encryption {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	return b
}

// UnmarshalBIGInfo parses the fixed 18-byte wire form.
func UnmarshalBIGInfo(b []byte) (BIGInfo, error) {
	if len(b) < BIGInfoLen {
		return BIGInfo{}, fmt.Errorf("biginfo: want %v bytes, have %v", BIGInfoLen, len(b))
	}

	return BIGInfo{
		NumBIS:      b[0],
		SubEvtCount: b[1],
		ISOInterval: binary.LittleEndian.Uint16(b[2:]),
		BurstNumber: b[4],
		Offset:      b[5],
		RepCount:    b[6],
		MaxPDU:      binary.LittleEndian.Uint16(b[7:]),
		SDUInterval: binary.LittleEndian.Uint32(b[9:]),
		MaxSDU:      binary.LittleEndian.Uint16(b[13:]),
		PHY:         b[15],
		Framing:     b[16],
		Encryption:  b[17] != 0,
	}, nil
}
