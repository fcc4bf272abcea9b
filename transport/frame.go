package transport

// assembler accumulates stream bytes into zero-delimited chunks. An
// over-long run flips it into discard mode until the next delimiter, so one
// bad frame never poisons the stream.
type assembler struct {
	buf  []byte
	max  int
	junk bool
}

func (a *assembler) feed(b []byte, emit func([]byte)) {
	for _, c := range b {
		if c == 0 {
			if !a.junk && len(a.buf) > 0 {
				emit(a.buf)
			}
			a.junk = false
			a.buf = a.buf[:0]
			continue
		}

		if a.junk {
			continue
		}

		if len(a.buf) >= a.max {
			a.junk = true
			a.buf = a.buf[:0]
			continue
		}

		a.buf = append(a.buf, c)
	}
}
