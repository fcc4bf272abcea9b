// Package transport pumps message frames over a COBS-framed byte stream. A
// single zero byte delimits frames on the wire; everything between delimiters
// is COBS-encoded frame data.
package transport

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
	"github.com/AstraeusLabs/web-broadcast-assistant/cobs"
	"github.com/AstraeusLabs/web-broadcast-assistant/message"
)

const (
	defaultTxQueueSize = 64
	defaultMaxFrame    = 4096
	readChunkSize      = 512
)

// ErrTxFull is returned by Send when the transmit queue is exhausted. The
// frame is dropped; the stream itself stays healthy.
var ErrTxFull = errors.New("transport: tx queue full")

// Handler receives every well-formed inbound frame.
type Handler func(message.Frame)

// Option configures a Pump.
type Option func(*Pump)

// WithLogger replaces the package default logger.
func WithLogger(l assistant.Logger) Option {
	return func(p *Pump) { p.log = l }
}

// WithTxQueueSize bounds the transmit queue.
func WithTxQueueSize(n int) Option {
	return func(p *Pump) {
		if n > 0 {
			p.txSize = n
		}
	}
}

// WithMaxFrameSize bounds the receive accumulator. Anything longer without a
// delimiter is discarded up to the next delimiter.
func WithMaxFrameSize(n int) Option {
	return func(p *Pump) {
		if n > 0 {
			p.maxFrame = n
		}
	}
}

// Pump shuttles frames between the engine and a byte stream. Reads and
// writes each run on their own goroutine; Send never blocks.
type Pump struct {
	rw      io.ReadWriteCloser
	handler Handler
	log     assistant.Logger

	txSize   int
	maxFrame int
	tx       chan []byte

	done chan struct{}
	cmu  sync.Mutex
	wg   sync.WaitGroup
}

// New wraps a byte stream. Start must be called before frames flow.
func New(rw io.ReadWriteCloser, h Handler, opts ...Option) *Pump {
	p := &Pump{
		rw:       rw,
		handler:  h,
		log:      assistant.GetLogger(),
		txSize:   defaultTxQueueSize,
		maxFrame: defaultMaxFrame,
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.tx = make(chan []byte, p.txSize)
	return p
}

// Start launches the rx and tx loops.
func (p *Pump) Start() {
	p.wg.Add(2)
	go p.rxLoop()
	go p.txLoop()
}

// Send queues one frame for transmission. A full queue drops the frame and
// returns ErrTxFull.
func (p *Pump) Send(f message.Frame) error {
	if !p.isOpen() {
		return io.EOF
	}

	enc := cobs.Encode(f.Marshal(), true)

	select {
	case p.tx <- enc:
		return nil
	default:
		p.log.Warnf("tx queue full, dropping %v", f)
		return ErrTxFull
	}
}

// Close shuts both loops down and closes the stream. Safe to call more than
// once.
func (p *Pump) Close() error {
	p.cmu.Lock()
	defer p.cmu.Unlock()

	select {
	case <-p.done:
		return nil
	default:
		close(p.done)
		err := p.rw.Close()
		p.wg.Wait()
		return errors.Wrap(err, "can't close transport")
	}
}

func (p *Pump) isOpen() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Pump) rxLoop() {
	defer p.wg.Done()

	asm := assembler{max: p.maxFrame}
	tmp := make([]byte, readChunkSize)

	for p.isOpen() {
		n, err := p.rw.Read(tmp)
		if err != nil {
			if !p.isOpen() || err == io.EOF {
				return
			}
			p.log.Debugf("transport read: %v", err)
			continue
		}
		asm.feed(tmp[:n], p.dispatch)
	}
}

// dispatch unstuffs and parses one delimited chunk. Malformed chunks are
// dropped; the next delimiter starts a clean frame.
func (p *Pump) dispatch(b []byte) {
	raw, err := cobs.Decode(b, false)
	if err != nil {
		p.log.Warnf("dropping frame: %v", err)
		return
	}

	f, err := message.Parse(raw)
	if err != nil {
		p.log.Warnf("dropping frame: %v", err)
		return
	}

	p.handler(f)
}

func (p *Pump) txLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		case b := <-p.tx:
			if _, err := p.rw.Write(b); err != nil {
				p.log.Errorf("transport write failed: %v", err)
			}
		}
	}
}
