// Copyright the netstack authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package glue bridges a stream-oriented byte source into netstack.Buffer
// chains by driving a pluggable Framer and emitting a completed chain
// exactly when the framer signals end-of-frame, preserving any partial
// bytes for the next call.
//
// Glue itself never reads from or writes to anything: callers own the I/O
// loop ("read bytes into WriteSpan, then call Handle") so the same Glue
// works whether the source is a serial port, a TCP socket, or a test
// fixture.
package glue

import "github.com/zhmu/netstack"

// Framer is a stateless frame decoder: given a span of not-yet-decoded
// bytes, it reports payload bytes and frame boundaries through callbacks
// and returns the index of the first byte it did not consume. slip.Decode
// has exactly this signature.
//
// The only state a byte-stuffed framer needs between calls is a possible
// trailing partial escape, and Glue carries that for it in scratch — a
// Framer implementation stays pure across calls.
type Framer func(span []byte, onByte func(byte), onEnd func()) int

// Options configures a Glue.
type Options struct {
	// ScratchSize sets the size of the rolling scratch buffer. Spec default
	// is 1024; a framer with longer worst-case escape runs (e.g. a COBS
	// variant with a larger block size) can ask for more.
	ScratchSize int
}

var defaultOptions = Options{ScratchSize: netstack.SegmentSize}

// Option mutates Options.
type Option func(*Options)

// WithScratchSize overrides the default scratch buffer size.
func WithScratchSize(n int) Option {
	return func(o *Options) { o.ScratchSize = n }
}

// Glue holds the rolling carry of undecoded bytes plus the chain currently
// being filled.
type Glue struct {
	scratch []byte
	carry   int

	current *netstack.Buffer
	writer  *netstack.ChainWriter
}

// New constructs a Glue with no frame in progress.
func New(opts ...Option) *Glue {
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &Glue{scratch: make([]byte, o.ScratchSize)}
}

// WriteSpan returns the unused tail of the scratch buffer: callers read
// into this and pass the byte count read to Handle.
func (g *Glue) WriteSpan() []byte {
	return g.scratch[g.carry:]
}

// Handle processes the n bytes just appended to WriteSpan by running
// framer over scratch[:carry+n]. onFrame is invoked once per terminating
// END-equivalent signalled by the framer; it receives nil for an empty
// frame (an onEnd with no preceding onByte since the last frame), which the
// caller must treat as "drop".
func (g *Glue) Handle(n int, framer Framer, onFrame func(*netstack.Buffer)) {
	span := g.scratch[:g.carry+n]

	onByte := func(b byte) {
		if g.current == nil {
			g.current = netstack.NewBuffer()
			g.writer = netstack.NewChainWriter(g.current)
		}
		g.writer.Put(b)
	}
	onEnd := func() {
		onFrame(g.current)
		g.current = nil
		g.writer = nil
	}

	k := framer(span, onByte, onEnd)

	g.carry = copy(g.scratch, span[k:])
}
