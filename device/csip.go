package device

import (
	"crypto/aes"

	"github.com/aead/cmac"
	"github.com/pkg/errors"

	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
	"github.com/AstraeusLabs/web-broadcast-assistant/ltv"
	"github.com/AstraeusLabs/web-broadcast-assistant/message"
)

// csisSet tracks one coordinated-set discovery cycle. Callers hold the
// assistant mutex.
type csisSet struct {
	sirk    [16]byte
	setSize uint8
	members []assistant.Addr
}

// resetCSISLocked re-arms set discovery. Currently connected peers are
// presumed to belong to the set already.
func (a *Assistant) resetCSISLocked(setSize uint8, sirk [16]byte) {
	a.log.Infof("reset csis data (set size %d)", setSize)

	a.csis.sirk = sirk
	a.csis.setSize = setSize
	a.csis.members = a.csis.members[:0]

	for _, p := range a.link.ConnectedPeers() {
		a.log.Infof("adding %v to set", p.Addr)
		a.csis.members = append(a.csis.members, p.Addr)
	}
}

// matches reports whether a 6-byte Resolvable Set Identifier was produced
// from the tracked SIRK. Layout on air: hash (3 bytes LE) then prand (3
// bytes LE).
func (s *csisSet) matches(rsi []byte) bool {
	if len(rsi) != 6 {
		return false
	}

	var prand [3]byte
	copy(prand[:], rsi[3:])

	hash, err := sih(s.sirk, prand)
	if err != nil {
		return false
	}
	return hash[0] == rsi[0] && hash[1] == rsi[1] && hash[2] == rsi[2]
}

func (s *csisSet) isDiscovered(addr assistant.Addr) bool {
	for _, m := range s.members {
		if m.B == addr.B {
			return true
		}
	}
	return false
}

func (s *csisSet) addMember(addr assistant.Addr) {
	s.members = append(s.members, addr)
}

func (s *csisSet) memberCount() int {
	return len(s.members)
}

func (a *Assistant) handleCSIPDiscovered(e assistant.CSIPDiscovered) {
	a.mu.Lock()
	a.csipBusy = false
	a.mu.Unlock()

	if e.Err != 0 {
		a.log.Errorf("coordinated set discovery failed (%d)", e.Err)
		return
	}

	sirk := e.SIRK
	if e.SIRKEncrypted {
		if !a.haveSIRKKey {
			a.log.Warnf("encrypted sirk from %v and no key configured", e.Addr)
		} else {
			plain, err := decryptSIRK(a.sirkKey, sirk)
			if err != nil {
				a.log.Errorf("sirk decrypt failed: %v", err)
				return
			}
			sirk = plain
		}
	}

	a.log.Infof("set identifier from %v, rank %d, size %d", e.Addr, e.Rank, e.SetSize)

	a.send(message.NewEvent(message.SetIDFound,
		addrRecord(e.Addr, e.Identity),
		ltv.Record{Type: ltv.TypeSetRank, Value: ltv.Uint(e.Rank)},
		ltv.Record{Type: ltv.TypeSetSize, Value: ltv.Uint(e.SetSize)},
		ltv.Record{Type: ltv.TypeSIRK, Value: ltv.Bytes(sirk[:])}))
}

// sih is the resolvable-set-identifier hash: AES-128 over the zero-padded
// 24-bit prand, truncated to 24 bits. Inputs and output are little endian.
func sih(sirk [16]byte, prand [3]byte) ([3]byte, error) {
	var hash [3]byte

	block, err := aes.NewCipher(swapBuf(sirk[:]))
	if err != nil {
		return hash, err
	}

	msg := make([]byte, 16)
	copy(msg[13:], swapBuf(prand[:]))

	out := make([]byte, 16)
	block.Encrypt(out, msg)

	copy(hash[:], swapBuf(out[13:]))
	return hash, nil
}

// decryptSIRK undoes the sef SIRK encryption: the mask is
// k1(K, s1("SIRKenc"), "csis") and the plain SIRK is mask XOR enc.
func decryptSIRK(key [16]byte, enc [16]byte) ([16]byte, error) {
	var plain [16]byte

	salt, err := s1(swapBuf([]byte("SIRKenc")))
	if err != nil {
		return plain, errors.Wrap(err, "s1")
	}

	mask, err := k1(key[:], salt, swapBuf([]byte("csis")))
	if err != nil {
		return plain, errors.Wrap(err, "k1")
	}

	for i := range plain {
		plain[i] = mask[i] ^ enc[i]
	}
	return plain, nil
}

// s1 hashes a message with an all-zero CMAC key.
func s1(m []byte) ([]byte, error) {
	return aesCMAC(make([]byte, 16), m)
}

// k1 derives a key: T = CMAC(salt, K), out = CMAC(T, P).
func k1(k, salt, p []byte) ([]byte, error) {
	t, err := aesCMAC(salt, k)
	if err != nil {
		return nil, err
	}
	return aesCMAC(t, p)
}

// aesCMAC computes AES-CMAC over little-endian inputs, returning a
// little-endian tag.
func aesCMAC(key, msg []byte) ([]byte, error) {
	block, err := aes.NewCipher(swapBuf(key))
	if err != nil {
		return nil, err
	}

	mac, err := cmac.New(block)
	if err != nil {
		return nil, err
	}
	mac.Write(swapBuf(msg))

	return swapBuf(mac.Sum(nil)), nil
}

// swapBuf returns a reversed copy, converting between the stack's little
// endian order and the MSB-first order the crypto primitives expect.
func swapBuf(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[len(in)-1-i] = b
	}
	return out
}
