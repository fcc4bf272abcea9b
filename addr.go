package assistant

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Addr is a Bluetooth LE device address as the controller reports it: an
// address type byte and six address bytes in little-endian (on-air) order.
type Addr struct {
	Type uint8
	B    [6]byte
}

// String renders the address most-significant byte first, colon separated
// and upper cased, the conventional human-readable form.
func (a Addr) String() string {
	var sb strings.Builder
	for i := len(a.B) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%02X", a.B[i])
		if i > 0 {
			sb.WriteByte(':')
		}
	}
	return sb.String()
}

// IsZero reports whether the address bytes are all zero.
func (a Addr) IsZero() bool {
	return a.B == [6]byte{}
}

// NewAddr parses a colon-separated hex address string into the little-endian
// byte form. The address type is left zero.
func NewAddr(s string) (Addr, error) {
	hexStr := strings.Replace(strings.ToLower(s), ":", "", -1)

	out, err := hex.DecodeString(hexStr)
	if err != nil {
		return Addr{}, err
	}
	if len(out) != 6 {
		return Addr{}, fmt.Errorf("bad address length %v", len(out))
	}

	var a Addr
	for i := 0; i < 6; i++ {
		a.B[i] = out[5-i]
	}
	return a, nil
}
