package ltv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
)

func TestDecodeErrorCode(t *testing.T) {
	records := Decode([]byte{0x05, TypeErrorCode, 0x00, 0x00, 0x00, 0x00})
	require.Len(t, records, 1)
	assert.Equal(t, TypeErrorCode, records[0].Type)
	assert.Equal(t, Int(0), records[0].Value)
}

func TestDecodeSignedValues(t *testing.T) {
	records := Decode([]byte{
		0x02, TypeRSSI, 0xc4, // -60
		0x05, TypeErrorCode, 0xfe, 0xff, 0xff, 0xff, // -2
	})
	require.Len(t, records, 2)
	assert.Equal(t, Int(-60), records[0].Value)
	assert.Equal(t, Int(-2), records[1].Value)
}

func TestDecodeIntegers(t *testing.T) {
	records := Decode([]byte{
		0x04, TypeBroadcastID, 0x56, 0x34, 0x12,
		0x03, TypePAInterval, 0x20, 0x03,
		0x02, TypeSID, 0x07,
	})
	require.Len(t, records, 3)
	assert.Equal(t, Uint(0x123456), records[0].Value)
	assert.Equal(t, Uint(0x0320), records[1].Value)
	assert.Equal(t, Uint(7), records[2].Value)
}

func TestDecodeStopsOnZeroLength(t *testing.T) {
	records := Decode([]byte{
		0x02, TypeSID, 0x01,
		0x00, // terminator junk
		0x02, TypeSID, 0x02,
	})
	require.Len(t, records, 1)
	assert.Equal(t, Uint(1), records[0].Value)
}

func TestDecodeStopsOnOverrun(t *testing.T) {
	records := Decode([]byte{
		0x02, TypeVolume, 0x80,
		0x10, TypeMfgData, 0x01, 0x02, // claims 15 value bytes, has 2
	})
	require.Len(t, records, 1)
	assert.Equal(t, Uint(0x80), records[0].Value)
}

func TestDecodeUUIDLists(t *testing.T) {
	records := Decode([]byte{
		0x05, TypeUUID16All, 0x4f, 0x18, 0x52, 0x18,
		0x04, TypeUUID16Some, 0x50, 0x18, 0xaa, // odd length -> empty list
	})
	require.Len(t, records, 2)

	uu, ok := records[0].Value.(UUID16s)
	require.True(t, ok)
	assert.True(t, uu.Contains(assistant.UUIDBASS))
	assert.True(t, uu.Contains(assistant.UUIDBroadcastAudioAnnounce))
	assert.False(t, uu.Contains(assistant.UUIDPACS))

	assert.Equal(t, UUID16s{}, records[1].Value)
}

func TestDecodeAddress(t *testing.T) {
	records := Decode([]byte{
		0x08, TypeIdentity, 0x01, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	})
	require.Len(t, records, 1)

	a, ok := records[0].Value.(Address)
	require.True(t, ok)
	assert.Equal(t, uint8(0x01), a.Addr.Type)
	assert.Equal(t, "01:02:03:04:05:06", a.Addr.String())
}

func TestDecodeUnhandled(t *testing.T) {
	records := Decode([]byte{0x03, 0x77, 0xde, 0xad})
	require.Len(t, records, 1)
	assert.Equal(t, Unhandled{0xde, 0xad}, records[0].Value)
}

func TestEncodeRoundTrip(t *testing.T) {
	in := []Record{
		{Type: TypeSourceID, Value: Uint(3)},
		{Type: TypeErrorCode, Value: Int(-19)},
		{Type: TypeBroadcastID, Value: Uint(0xbadbee)},
		{Type: TypeBroadcastName, Value: Text("Kitchen")},
		{Type: TypeBISSync, Value: BISSync{0x00000001, 0xfffffffe}},
		{Type: TypeIdentity, Value: Address{
			Addr: assistant.Addr{Type: 1, B: [6]byte{6, 5, 4, 3, 2, 1}},
		}},
		{Type: TypeBroadcastCode, Value: Bytes("0123456789abcdef")},
	}

	out := Decode(Encode(in))
	assert.Equal(t, in, out)
}

func TestEncodeSkipsUnknownTypes(t *testing.T) {
	out := Encode([]Record{
		{Type: 0x42, Value: Uint(1)},
		{Type: TypeVolume, Value: Uint(255)},
	})
	assert.Equal(t, []byte{0x02, TypeVolume, 0xff}, out)
}

func TestFirst(t *testing.T) {
	records := []Record{
		{Type: TypeNameShortened, Value: Text("Kit")},
		{Type: TypeNameComplete, Value: Text("Kitchen")},
	}

	// Decode order decides, not the order of the candidate types.
	r, ok := First(records, TypeNameComplete, TypeNameShortened)
	require.True(t, ok)
	assert.Equal(t, TypeNameShortened, r.Type)

	r, ok = First(records, TypeNameComplete)
	require.True(t, ok)
	assert.Equal(t, Text("Kitchen"), r.Value)

	r, ok = First(records, TypeNameShortened)
	require.True(t, ok)
	assert.Equal(t, Text("Kit"), r.Value)

	_, ok = First(records, TypeBroadcastName)
	assert.False(t, ok)
}

func TestAccessors(t *testing.T) {
	records := []Record{
		{Type: TypeVolume, Value: Uint(128)},
		{Type: TypeRSSI, Value: Int(-40)},
		{Type: TypeBroadcastName, Value: Text("Aud")},
		{Type: TypeBroadcastCode, Value: Bytes{1, 2, 3}},
	}

	assert.Equal(t, uint64(128), UintOf(records, TypeVolume, 0))
	assert.Equal(t, uint64(9), UintOf(records, TypeMute, 9))
	assert.Equal(t, int64(-40), IntOf(records, TypeRSSI, 0))
	assert.Equal(t, "Aud", TextOf(records, TypeBroadcastName))
	assert.Equal(t, "", TextOf(records, TypeNameComplete))
	assert.Equal(t, []byte{1, 2, 3}, BytesOf(records, TypeBroadcastCode))
}
