package ltv

import (
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
)

const uriScheme = "BLUETOOTH:"

// ErrBadURI marks text that is not a Broadcast Audio URI.
var ErrBadURI = errors.New("bad broadcast audio uri")

// ParseBroadcastURI decodes a Broadcast Audio URI ("BLUETOOTH:" scheme,
// semicolon-separated KEY:value sections) into the same record shape the LTV
// decoder produces, so QR-sourced broadcasts flow through the same add-source
// path as scanned ones. Unknown keys are ignored.
func ParseBroadcastURI(s string) ([]Record, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(strings.ToUpper(s), uriScheme) {
		return nil, ErrBadURI
	}

	var (
		out      []Record
		addrType uint64
		addr     *assistant.Addr
	)

	for _, section := range strings.Split(s[len(uriScheme):], ";") {
		key, val, ok := cutKV(section)
		if !ok || val == "" {
			continue
		}

		switch strings.ToUpper(key) {
		case "UUID":
			u, err := strconv.ParseUint(val, 16, 16)
			if err != nil {
				return nil, errors.Wrap(ErrBadURI, "uuid")
			}
			out = append(out, Record{Type: TypeUUID16All, Value: UUID16s{uint16(u)}})

		case "AT":
			t, err := strconv.ParseUint(val, 16, 8)
			if err != nil {
				return nil, errors.Wrap(ErrBadURI, "address type")
			}
			addrType = t

		case "AD":
			b, err := hex.DecodeString(strings.ToLower(val))
			if err != nil || len(b) != 6 {
				return nil, errors.Wrap(ErrBadURI, "address")
			}
			var a assistant.Addr
			for i := 0; i < 6; i++ {
				a.B[i] = b[5-i]
			}
			addr = &a

		case "BN":
			name, err := uriBase64(val)
			if err != nil {
				return nil, errors.Wrap(ErrBadURI, "broadcast name")
			}
			out = append(out, Record{Type: TypeBroadcastName, Value: Text(name)})

		case "BC":
			code, err := uriBase64(val)
			if err != nil {
				return nil, errors.Wrap(ErrBadURI, "broadcast code")
			}
			out = append(out, Record{Type: TypeBroadcastCode, Value: Bytes(code)})

		case "BI":
			id, err := strconv.ParseUint(val, 16, 24)
			if err != nil {
				return nil, errors.Wrap(ErrBadURI, "broadcast id")
			}
			out = append(out, Record{Type: TypeBroadcastID, Value: Uint(id)})

		case "PI":
			pi, err := strconv.ParseUint(val, 16, 16)
			if err != nil {
				return nil, errors.Wrap(ErrBadURI, "pa interval")
			}
			out = append(out, Record{Type: TypePAInterval, Value: Uint(pi)})

		case "AS":
			sid, err := strconv.ParseUint(val, 16, 8)
			if err != nil {
				return nil, errors.Wrap(ErrBadURI, "sid")
			}
			out = append(out, Record{Type: TypeSID, Value: Uint(sid)})
		}
	}

	if addr != nil {
		addr.Type = uint8(addrType)
		typ := TypeRPA
		if addrType == 0x01 {
			typ = TypeIdentity
		}
		out = append(out, Record{Type: typ, Value: Address{Addr: *addr}})
	}

	return out, nil
}

func cutKV(section string) (key, val string, ok bool) {
	i := strings.IndexByte(section, ':')
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(section[:i]), strings.TrimSpace(section[i+1:]), true
}

// uriBase64 accepts both padded and unpadded standard base64, which QR
// generators disagree about.
func uriBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
