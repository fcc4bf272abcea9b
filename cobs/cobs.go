// Package cobs implements Consistent Overhead Byte Stuffing, the framing
// codec used on the host link. An encoded frame contains no zero bytes, so a
// single zero can delimit frames on the byte stream.
package cobs

import (
	"errors"
)

// ErrFraming is returned when a declared run extends past the end of the
// encoded buffer.
var ErrFraming = errors.New("cobs: run exceeds buffer")

const maxRun = 254

// Encode stuffs data into a zero-free byte sequence. Each run starts with a
// length byte (count+1, 0xff meaning a full 254-byte run with no elided
// zero). With zeroPad set a zero delimiter byte is appended, producing a
// complete frame ready for the wire.
func Encode(data []byte, zeroPad bool) []byte {
	out := make([]byte, 0, len(data)+len(data)/maxRun+2)

	codeIdx := 0
	out = append(out, 0) // placeholder, filled when the run closes
	code := byte(1)

	for _, b := range data {
		if b == 0 {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
			continue
		}

		out = append(out, b)
		code++
		if code == 0xff {
			// full run, no zero elided
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
		}
	}

	out[codeIdx] = code

	if zeroPad {
		out = append(out, 0)
	}

	return out
}

// Decode unstuffs an encoded buffer. With zeroPad set the trailing delimiter
// byte is dropped before decoding. A run length of zero ends decoding (taken
// as end of message, not an error); a run reaching past the buffer fails
// with ErrFraming.
func Decode(data []byte, zeroPad bool) ([]byte, error) {
	if zeroPad {
		if len(data) == 0 {
			return nil, ErrFraming
		}
		data = data[:len(data)-1]
	}

	out := make([]byte, 0, len(data))

	for i := 0; i < len(data); {
		code := data[i]
		if code == 0 {
			// end of message
			break
		}

		end := i + int(code)
		if end > len(data) {
			return nil, ErrFraming
		}

		out = append(out, data[i+1:end]...)
		i = end

		if code != 0xff && i < len(data) {
			// reconstruct the zero this run elided
			out = append(out, 0)
		}
	}

	return out, nil
}
