package ltv

import (
	"github.com/pkg/errors"
)

// Codec-config field types carried in BASE codec configuration blocks. These
// collide numerically with metadata and AD types, so each block is decoded
// against its own table.
const (
	CfgSamplingFrequency byte = 0x01
	CfgFrameDuration     byte = 0x02
	CfgChannelAllocation byte = 0x03
	CfgOctetsPerFrame    byte = 0x04
	CfgFrameBlocksPerSDU byte = 0x05
)

// Metadata field types carried in BASE metadata blocks.
const (
	MetaPreferredContexts byte = 0x01
	MetaStreamingContexts byte = 0x02
	MetaProgramInfo       byte = 0x03
	MetaLanguage          byte = 0x04
	MetaCCIDList          byte = 0x05
	MetaParentalRating    byte = 0x06
	MetaProgramInfoURI    byte = 0x07
	MetaExtended          byte = 0xfe
	MetaVendor            byte = 0xff
)

var codecCfgFields = map[byte]fieldSpec{
	CfgSamplingFrequency: {kindUint, 1},
	CfgFrameDuration:     {kindUint, 1},
	CfgChannelAllocation: {kindUint, 4},
	CfgOctetsPerFrame:    {kindUint, 2},
	CfgFrameBlocksPerSDU: {kindUint, 1},
}

var metadataFields = map[byte]fieldSpec{
	MetaPreferredContexts: {kindUint, 2},
	MetaStreamingContexts: {kindUint, 2},
	MetaProgramInfo:       {kind: kindText},
	MetaLanguage:          {kind: kindText},
	MetaCCIDList:          {kind: kindBytes},
	MetaParentalRating:    {kindUint, 1},
	MetaProgramInfoURI:    {kind: kindText},
	MetaExtended:          {kind: kindBytes},
	MetaVendor:            {kind: kindBytes},
}

// samplingRates maps the codec-config sampling-frequency index to Hz. Index 0
// is reserved.
var samplingRates = [14]int{
	-1, 8000, 11025, 16000, 22050, 24000,
	32000, 44100, 48000, 88200, 96000, 176400,
	192000, 384000,
}

// SamplingFrequencyHz resolves a sampling-frequency index to Hz. It returns
// -1 for index 0 and any out-of-range index.
func SamplingFrequencyHz(index uint8) int {
	if int(index) >= len(samplingRates) {
		return -1
	}
	return samplingRates[index]
}

// FrameDurationUS resolves a frame-duration index to microseconds, -1 when
// unknown.
func FrameDurationUS(index uint8) int {
	switch index {
	case 0:
		return 7500
	case 1:
		return 10000
	}
	return -1
}

const uuidBasicAudioAnnounce = 0x1851

// CodecID identifies a codec: coding format plus company and vendor specific
// IDs for vendor codecs.
type CodecID struct {
	ID  uint8
	CID uint16
	VID uint16
}

// BIS is one Broadcast Isochronous Stream entry of a subgroup.
type BIS struct {
	Index       uint8
	CodecConfig []Record
}

// Subgroup groups BISes sharing a codec configuration.
type Subgroup struct {
	Codec       CodecID
	CodecConfig []Record
	Metadata    []Record
	BIS         []BIS
}

// BASE is the Basic Audio Stream Extension structure a broadcast source
// carries in its periodic advertising.
type BASE struct {
	PresentationDelay uint32 // microseconds, 24 bit on the wire
	Subgroups         []Subgroup
}

// ErrNotBASE marks service data that does not start with the Basic Audio
// Announcement UUID.
var ErrNotBASE = errors.New("not a basic audio announcement")

// reader is a forward-only cursor over a byte slice. Reads past the end set
// the sticky error instead of panicking.
type reader struct {
	b   []byte
	err error
}

func (r *reader) uint(n int) uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.b) < n {
		r.err = errors.Errorf("base: truncated, want %v bytes, have %v", n, len(r.b))
		return 0
	}
	var v uint32
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint32(r.b[i])
	}
	r.b = r.b[n:]
	return v
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.b) < n {
		r.err = errors.Errorf("base: truncated, want %v bytes, have %v", n, len(r.b))
		return nil
	}
	out := r.b[:n]
	r.b = r.b[n:]
	return out
}

// ltvBlock pulls a length-prefixed LTV block and decodes it against fields.
func (r *reader) ltvBlock(fields map[byte]fieldSpec) []Record {
	n := int(r.uint(1))
	raw := r.bytes(n)
	if r.err != nil {
		return nil
	}
	return decodeWith(fields, raw)
}

// ParseBASE decodes a Basic Audio Announcement service-data value, UUID
// included. The subgroup loop runs for every declared subgroup, including
// the single-subgroup case; buffers that omit the subgroup body fail with a
// truncation error rather than decoding to garbage.
func ParseBASE(b []byte) (*BASE, error) {
	r := &reader{b: b}

	if uuid := r.uint(2); r.err != nil || uuid != uuidBasicAudioAnnounce {
		return nil, ErrNotBASE
	}

	base := &BASE{PresentationDelay: r.uint(3)}
	numSubgroups := int(r.uint(1))

	for sg := 0; sg < numSubgroups && r.err == nil; sg++ {
		numBIS := int(r.uint(1))

		s := Subgroup{
			Codec: CodecID{
				ID:  uint8(r.uint(1)),
				CID: uint16(r.uint(2)),
				VID: uint16(r.uint(2)),
			},
		}
		s.CodecConfig = r.ltvBlock(codecCfgFields)
		s.Metadata = r.ltvBlock(metadataFields)

		for i := 0; i < numBIS && r.err == nil; i++ {
			bis := BIS{Index: uint8(r.uint(1))}
			bis.CodecConfig = r.ltvBlock(codecCfgFields)
			s.BIS = append(s.BIS, bis)
		}

		base.Subgroups = append(base.Subgroups, s)
	}

	if r.err != nil {
		return nil, r.err
	}
	return base, nil
}

// Marshal serializes the BASE back to service-data form, UUID included.
func (base *BASE) Marshal() []byte {
	out := []byte{
		byte(uuidBasicAudioAnnounce & 0xff), byte(uuidBasicAudioAnnounce >> 8),
		byte(base.PresentationDelay), byte(base.PresentationDelay >> 8), byte(base.PresentationDelay >> 16),
		byte(len(base.Subgroups)),
	}

	for _, s := range base.Subgroups {
		out = append(out, byte(len(s.BIS)))
		out = append(out, s.Codec.ID,
			byte(s.Codec.CID), byte(s.Codec.CID>>8),
			byte(s.Codec.VID), byte(s.Codec.VID>>8))

		cfg := encodeWith(codecCfgFields, s.CodecConfig)
		out = append(out, byte(len(cfg)))
		out = append(out, cfg...)

		meta := encodeWith(metadataFields, s.Metadata)
		out = append(out, byte(len(meta)))
		out = append(out, meta...)

		for _, b := range s.BIS {
			out = append(out, b.Index)
			cfg := encodeWith(codecCfgFields, b.CodecConfig)
			out = append(out, byte(len(cfg)))
			out = append(out, cfg...)
		}
	}

	return out
}

// SamplingFrequency returns the subgroup's sampling rate in Hz, -1 when the
// codec configuration does not carry one or the index is out of range.
func (s Subgroup) SamplingFrequency() int {
	r, ok := First(s.CodecConfig, CfgSamplingFrequency)
	if !ok {
		return -1
	}
	u, ok := r.Value.(Uint)
	if !ok {
		return -1
	}
	return SamplingFrequencyHz(uint8(u))
}
