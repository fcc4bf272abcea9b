package ltv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBroadcastURI(t *testing.T) {
	records, err := ParseBroadcastURI(
		"BLUETOOTH:UUID:184F;BN:S2l0Y2hlbg==;AT:1;AD:C0FFEE123456;BI:BADBEE;PI:0320;AS:1;;")
	require.NoError(t, err)

	uu, ok := First(records, TypeUUID16All)
	require.True(t, ok)
	assert.Equal(t, UUID16s{0x184f}, uu.Value)

	assert.Equal(t, "Kitchen", TextOf(records, TypeBroadcastName))
	assert.Equal(t, uint64(0xbadbee), UintOf(records, TypeBroadcastID, 0))
	assert.Equal(t, uint64(0x0320), UintOf(records, TypePAInterval, 0))
	assert.Equal(t, uint64(1), UintOf(records, TypeSID, 0))

	addr, ok := AddressOf(records, TypeIdentity)
	require.True(t, ok)
	assert.Equal(t, uint8(1), addr.Type)
	assert.Equal(t, "C0:FF:EE:12:34:56", addr.String())
}

func TestParseBroadcastURIBroadcastCode(t *testing.T) {
	records, err := ParseBroadcastURI("BLUETOOTH:BC:MDEyMzQ1Njc4OWFiY2RlZg")
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef"), BytesOf(records, TypeBroadcastCode))
}

func TestParseBroadcastURIRPA(t *testing.T) {
	records, err := ParseBroadcastURI("BLUETOOTH:AT:0;AD:0102030405FF")
	require.NoError(t, err)

	addr, ok := AddressOf(records, TypeRPA)
	require.True(t, ok)
	assert.Equal(t, uint8(0), addr.Type)
	assert.Equal(t, "01:02:03:04:05:FF", addr.String())
}

func TestParseBroadcastURIErrors(t *testing.T) {
	_, err := ParseBroadcastURI("http://example.com")
	assert.Equal(t, ErrBadURI, err)

	_, err = ParseBroadcastURI("BLUETOOTH:AD:notanaddress")
	assert.Error(t, err)

	_, err = ParseBroadcastURI("BLUETOOTH:BI:XYZ")
	assert.Error(t, err)
}

func TestParseBroadcastURIIgnoresUnknownKeys(t *testing.T) {
	records, err := ParseBroadcastURI("BLUETOOTH:SQ:1;AS:2;NOVALUE")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Uint(2), records[0].Value)
}
