package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddrRoundTrip(t *testing.T) {
	a, err := NewAddr("C0:FF:EE:12:34:56")
	require.NoError(t, err)

	// On-air order is little endian, rendering is MSB first.
	assert.Equal(t, [6]byte{0x56, 0x34, 0x12, 0xee, 0xff, 0xc0}, a.B)
	assert.Equal(t, "C0:FF:EE:12:34:56", a.String())
	assert.False(t, a.IsZero())
	assert.True(t, Addr{}.IsZero())

	_, err = NewAddr("C0:FF:EE")
	assert.Error(t, err)
	_, err = NewAddr("zz:zz:zz:zz:zz:zz")
	assert.Error(t, err)
}

func TestBIGInfoRoundTrip(t *testing.T) {
	bi := BIGInfo{
		NumBIS:      2,
		SubEvtCount: 3,
		ISOInterval: 0x0010,
		BurstNumber: 1,
		Offset:      4,
		RepCount:    2,
		MaxPDU:      120,
		SDUInterval: 10000,
		MaxSDU:      100,
		PHY:         2,
		Framing:     0,
		Encryption:  true,
	}

	b := bi.Marshal()
	require.Len(t, b, BIGInfoLen)

	got, err := UnmarshalBIGInfo(b)
	require.NoError(t, err)
	assert.Equal(t, bi, got)

	_, err = UnmarshalBIGInfo(b[:BIGInfoLen-1])
	assert.Error(t, err)
}
