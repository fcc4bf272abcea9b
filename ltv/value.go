package ltv

import (
	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
)

// Value is the decoded payload of a record. The concrete type depends on the
// record type byte; callers type-switch or use the accessors below.
type Value interface {
	value()
}

// Uint is a 1..4 byte little-endian unsigned integer value.
type Uint uint64

// Int is a 1..4 byte little-endian signed integer value.
type Int int64

// Text is a UTF-8 string value, e.g. a device or broadcast name.
type Text string

// Bytes is an opaque value kept as raw bytes.
type Bytes []byte

// UUID16s is a list of 16-bit service UUIDs.
type UUID16s []uint16

// UUID32s is a list of 32-bit service UUIDs.
type UUID32s []uint32

// Address is a device address value: type byte followed by six address bytes.
type Address struct {
	assistant.Addr
}

// BISSync is a list of per-subgroup BIS synchronization bitmasks.
type BISSync []uint32

// BigInfo is a decoded BIGInfo record value.
type BigInfo assistant.BIGInfo

// Unhandled is the raw value of a record the decoder has no schema for.
type Unhandled []byte

func (Uint) value()      {}
func (Int) value()       {}
func (Text) value()      {}
func (Bytes) value()     {}
func (UUID16s) value()   {}
func (UUID32s) value()   {}
func (Address) value()   {}
func (BISSync) value()   {}
func (*BASE) value()     {}
func (BigInfo) value()   {}
func (Unhandled) value() {}

// Contains reports whether the UUID list includes u.
func (uu UUID16s) Contains(u uint16) bool {
	for _, x := range uu {
		if x == u {
			return true
		}
	}
	return false
}

// UintOf returns the record's value as an unsigned integer, or def when the
// record is absent or not an integer.
func UintOf(records []Record, typ byte, def uint64) uint64 {
	r, ok := First(records, typ)
	if !ok {
		return def
	}
	switch v := r.Value.(type) {
	case Uint:
		return uint64(v)
	case Int:
		return uint64(v)
	}
	return def
}

// IntOf returns the record's value as a signed integer, or def when the
// record is absent or not an integer.
func IntOf(records []Record, typ byte, def int64) int64 {
	r, ok := First(records, typ)
	if !ok {
		return def
	}
	switch v := r.Value.(type) {
	case Int:
		return int64(v)
	case Uint:
		return int64(v)
	}
	return def
}

// TextOf returns the record's value as a string, or "" when absent.
func TextOf(records []Record, typ byte) string {
	if r, ok := First(records, typ); ok {
		if t, ok := r.Value.(Text); ok {
			return string(t)
		}
	}
	return ""
}

// AddressOf returns the first address record among types.
func AddressOf(records []Record, types ...byte) (assistant.Addr, bool) {
	if r, ok := First(records, types...); ok {
		if a, ok := r.Value.(Address); ok {
			return a.Addr, true
		}
	}
	return assistant.Addr{}, false
}

// BytesOf returns the record's raw bytes, nil when absent.
func BytesOf(records []Record, typ byte) []byte {
	if r, ok := First(records, typ); ok {
		switch v := r.Value.(type) {
		case Bytes:
			return v
		case Unhandled:
			return v
		}
	}
	return nil
}
