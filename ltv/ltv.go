// Package ltv encodes and decodes the length-type-value records used both
// for the host message payloads and for Bluetooth advertising data. The
// on-air layout is the AD layout: a length byte counting the type byte plus
// the value, the type byte, then the value bytes.
package ltv

import (
	"encoding/binary"

	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
)

// Standard AD types.
const (
	TypeFlags         byte = 0x01
	TypeUUID16Some    byte = 0x02
	TypeUUID16All     byte = 0x03
	TypeUUID32Some    byte = 0x04
	TypeUUID32All     byte = 0x05
	TypeNameShortened byte = 0x08
	TypeNameComplete  byte = 0x09
	TypeTxPower       byte = 0x0a
	TypeSvcData16     byte = 0x16
	TypeCSISRSI       byte = 0x2e
	TypeBroadcastName byte = 0x30
	TypeMfgData       byte = 0xff
)

// Device-local extension types, allocated downwards from the manufacturer
// data AD type. These never appear on air, only in host message payloads.
const (
	TypeRSSI          byte = 0xfe
	TypeSID           byte = 0xfd
	TypePAInterval    byte = 0xfc
	TypeErrorCode     byte = 0xfb
	TypeBroadcastID   byte = 0xfa
	TypeRPA           byte = 0xf9
	TypeIdentity      byte = 0xf8
	TypeBASE          byte = 0xf7
	TypeBIGInfo       byte = 0xf6
	TypeSourceID      byte = 0xf5
	TypeBISSync       byte = 0xf4
	TypeVolume        byte = 0xf3
	TypeMute          byte = 0xf2
	TypeSIRK          byte = 0xf1
	TypeSetSize       byte = 0xf0
	TypeSetRank       byte = 0xef
	TypePASyncAttempt byte = 0xee
	TypeBroadcastCode byte = 0xed
)

// Record is one decoded length-type-value entry.
type Record struct {
	Type  byte
	Value Value
}

type kind int

const (
	kindUint kind = iota
	kindSint
	kindText
	kindBytes
	kindUUID16s
	kindUUID32s
	kindAddress
	kindBISSync
	kindBASE
	kindBIGInfo
)

type fieldSpec struct {
	kind  kind
	width int // serialized width for integer kinds
}

// wireFields is the type registry for host message payloads and raw
// advertising data.
var wireFields = map[byte]fieldSpec{
	TypeRSSI:          {kindSint, 1},
	TypeSID:           {kindUint, 1},
	TypePAInterval:    {kindUint, 2},
	TypeErrorCode:     {kindSint, 4},
	TypeBroadcastID:   {kindUint, 3},
	TypeSourceID:      {kindUint, 1},
	TypeVolume:        {kindUint, 1},
	TypeMute:          {kindUint, 1},
	TypeSetSize:       {kindUint, 1},
	TypeSetRank:       {kindUint, 1},
	TypePASyncAttempt: {kindUint, 1},
	TypeFlags:         {kindUint, 1},
	TypeTxPower:       {kindSint, 1},

	TypeRPA:      {kind: kindAddress},
	TypeIdentity: {kind: kindAddress},
	TypeBISSync:  {kind: kindBISSync},
	TypeBASE:     {kind: kindBASE},
	TypeBIGInfo:  {kind: kindBIGInfo},

	TypeUUID16Some: {kind: kindUUID16s},
	TypeUUID16All:  {kind: kindUUID16s},
	TypeUUID32Some: {kind: kindUUID32s},
	TypeUUID32All:  {kind: kindUUID32s},

	TypeNameShortened: {kind: kindText},
	TypeNameComplete:  {kind: kindText},
	TypeBroadcastName: {kind: kindText},

	TypeSvcData16:     {kind: kindBytes},
	TypeCSISRSI:       {kind: kindBytes},
	TypeSIRK:          {kind: kindBytes},
	TypeBroadcastCode: {kind: kindBytes},
	TypeMfgData:       {kind: kindBytes},
}

// Decode walks the payload and returns every record up to the first
// structural inconsistency. Malformed tails (zero length byte, value running
// past the buffer) end the walk; what was decoded so far is returned.
func Decode(payload []byte) []Record {
	return decodeWith(wireFields, payload)
}

func decodeWith(fields map[byte]fieldSpec, payload []byte) []Record {
	var out []Record

	for i := 0; i < len(payload); {
		l := int(payload[i])
		if l == 0 {
			assistant.GetLogger().Debugf("ltv: zero length at idx %v, stopping", i)
			break
		}
		if i+1+l > len(payload) {
			assistant.GetLogger().Debugf("ltv: record overruns buffer at idx %v (len %v)", i, l)
			break
		}

		typ := payload[i+1]
		val := payload[i+2 : i+1+l]
		out = append(out, Record{Type: typ, Value: decodeValue(fields, typ, val)})

		i += 1 + l
	}

	return out
}

func decodeValue(fields map[byte]fieldSpec, typ byte, val []byte) Value {
	spec, ok := fields[typ]
	if !ok {
		return Unhandled(cloneBytes(val))
	}

	switch spec.kind {
	case kindUint:
		if len(val) < 1 || len(val) > 4 {
			return Unhandled(cloneBytes(val))
		}
		return Uint(uintLE(val))

	case kindSint:
		if len(val) < 1 || len(val) > 4 {
			return Unhandled(cloneBytes(val))
		}
		return Int(intLE(val))

	case kindText:
		return Text(val)

	case kindBytes:
		return Bytes(cloneBytes(val))

	case kindUUID16s:
		if len(val)%2 != 0 {
			return UUID16s{}
		}
		uu := make(UUID16s, 0, len(val)/2)
		for i := 0; i+2 <= len(val); i += 2 {
			uu = append(uu, binary.LittleEndian.Uint16(val[i:]))
		}
		return uu

	case kindUUID32s:
		if len(val)%4 != 0 {
			return UUID32s{}
		}
		uu := make(UUID32s, 0, len(val)/4)
		for i := 0; i+4 <= len(val); i += 4 {
			uu = append(uu, binary.LittleEndian.Uint32(val[i:]))
		}
		return uu

	case kindAddress:
		if len(val) != 7 {
			return Unhandled(cloneBytes(val))
		}
		a := Address{Addr: assistant.Addr{Type: val[0]}}
		copy(a.B[:], val[1:])
		return a

	case kindBISSync:
		if len(val) == 0 || len(val)%4 != 0 {
			return Unhandled(cloneBytes(val))
		}
		bb := make(BISSync, 0, len(val)/4)
		for i := 0; i+4 <= len(val); i += 4 {
			bb = append(bb, binary.LittleEndian.Uint32(val[i:]))
		}
		return bb

	case kindBASE:
		base, err := ParseBASE(val)
		if err != nil {
			assistant.GetLogger().Debugf("ltv: base decode: %v", err)
			return Unhandled(cloneBytes(val))
		}
		return base

	case kindBIGInfo:
		bi, err := assistant.UnmarshalBIGInfo(val)
		if err != nil {
			assistant.GetLogger().Debugf("ltv: biginfo decode: %v", err)
			return Unhandled(cloneBytes(val))
		}
		return BigInfo(bi)
	}

	return Unhandled(cloneBytes(val))
}

// Encode serializes records back to the wire layout. Records whose type has
// no registered encoding, or whose value does not fit the type, are skipped
// silently for forward compatibility.
func Encode(records []Record) []byte {
	return encodeWith(wireFields, records)
}

func encodeWith(fields map[byte]fieldSpec, records []Record) []byte {
	var out []byte

	for _, r := range records {
		v := encodeValue(fields, r.Type, r.Value)
		if v == nil {
			continue
		}
		out = append(out, byte(len(v)+1), r.Type)
		out = append(out, v...)
	}

	return out
}

func encodeValue(fields map[byte]fieldSpec, typ byte, val Value) []byte {
	spec, ok := fields[typ]
	if !ok {
		return nil
	}

	switch spec.kind {
	case kindUint:
		u, ok := val.(Uint)
		if !ok {
			return nil
		}
		return uintLEBytes(uint64(u), spec.width)

	case kindSint:
		i, ok := val.(Int)
		if !ok {
			return nil
		}
		return uintLEBytes(uint64(i), spec.width)

	case kindText:
		t, ok := val.(Text)
		if !ok {
			return nil
		}
		return []byte(t)

	case kindBytes:
		b, ok := val.(Bytes)
		if !ok {
			return nil
		}
		return cloneBytes(b)

	case kindUUID16s:
		uu, ok := val.(UUID16s)
		if !ok {
			return nil
		}
		out := make([]byte, 0, len(uu)*2)
		for _, u := range uu {
			out = binary.LittleEndian.AppendUint16(out, u)
		}
		return out

	case kindUUID32s:
		uu, ok := val.(UUID32s)
		if !ok {
			return nil
		}
		out := make([]byte, 0, len(uu)*4)
		for _, u := range uu {
			out = binary.LittleEndian.AppendUint32(out, u)
		}
		return out

	case kindAddress:
		a, ok := val.(Address)
		if !ok {
			return nil
		}
		out := make([]byte, 0, 7)
		out = append(out, a.Addr.Type)
		return append(out, a.B[:]...)

	case kindBISSync:
		bb, ok := val.(BISSync)
		if !ok {
			return nil
		}
		out := make([]byte, 0, len(bb)*4)
		for _, b := range bb {
			out = binary.LittleEndian.AppendUint32(out, b)
		}
		return out

	case kindBASE:
		base, ok := val.(*BASE)
		if !ok {
			return nil
		}
		return base.Marshal()

	case kindBIGInfo:
		bi, ok := val.(BigInfo)
		if !ok {
			return nil
		}
		return assistant.BIGInfo(bi).Marshal()
	}

	return nil
}

// First returns the first record whose type is among types, scanning in
// original decode order.
func First(records []Record, types ...byte) (Record, bool) {
	for _, r := range records {
		for _, t := range types {
			if r.Type == t {
				return r, true
			}
		}
	}
	return Record{}, false
}

// uintLE reads a 1..4 byte little-endian unsigned integer.
func uintLE(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// intLE reads a 1..4 byte little-endian integer with two's-complement sign
// extension.
func intLE(b []byte) int64 {
	shift := uint(64 - 8*len(b))
	return int64(uintLE(b)<<shift) >> shift
}

func uintLEBytes(v uint64, width int) []byte {
	out := make([]byte, width)
	for i := 0; i < width; i++ {
		out[i] = byte(v >> (8 * uint(i)))
	}
	return out
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
