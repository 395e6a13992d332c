// Copyright the netstack authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package netorder provides an iterator-style, big-endian consumer and
// producer of u8/u16/u32 values over any byte source or sink.
//
// Consumer and Producer are deliberately generic over small interfaces
// rather than over *netstack.Buffer directly: the same code parses a flat
// byte slice (via NewByteCursor) or walks across a chained buffer's segment
// boundary (via (*netstack.Buffer).Bytes / ChainWriter), with zero
// allocation either way.
package netorder

// Source is anything that can hand back bytes one at a time.
// *netstack.Cursor and *ByteCursor both satisfy it.
type Source interface {
	Next() (byte, bool)
}

// Sink is anything that can accept bytes one at a time.
// *netstack.ChainWriter and *ByteCursor both satisfy it.
type Sink interface {
	Put(byte)
}

// ByteCursor adapts a flat byte slice to Source and Sink, for callers that
// are not working against a chained buffer (e.g. hand-built wire-format
// fixtures in tests).
type ByteCursor struct {
	b   []byte
	pos int
}

// NewByteCursor wraps b for sequential consumption or for production; Put
// appends after b's existing bytes, growing the slice as needed.
func NewByteCursor(b []byte) *ByteCursor {
	return &ByteCursor{b: b}
}

// Next implements Source.
func (c *ByteCursor) Next() (byte, bool) {
	if c.pos >= len(c.b) {
		return 0, false
	}
	v := c.b[c.pos]
	c.pos++
	return v, true
}

// Put implements Sink. It appends to the backing slice.
func (c *ByteCursor) Put(b byte) {
	c.b = append(c.b, b)
	c.pos = len(c.b)
}

// Bytes returns the whole backing slice: the wrapped bytes (including any
// already consumed by Next) plus everything Put has appended.
func (c *ByteCursor) Bytes() []byte {
	return c.b
}

// Consumer reads big-endian integers off a Source.
type Consumer struct {
	src Source
}

// NewConsumer wraps src for big-endian decoding.
func NewConsumer(src Source) Consumer {
	return Consumer{src: src}
}

// ConsumeU8 reads one byte. It panics if src is exhausted: callers must
// pre-check available length, exactly as the IPv4/ICMP parsers in this
// module do before constructing a Consumer.
func (c *Consumer) ConsumeU8() uint8 {
	v, ok := c.src.Next()
	if !ok {
		panic("netorder: ConsumeU8 past end of data")
	}
	return v
}

// ConsumeU16 reads a big-endian uint16.
func (c *Consumer) ConsumeU16() uint16 {
	hi := uint16(c.ConsumeU8())
	lo := uint16(c.ConsumeU8())
	return hi<<8 | lo
}

// ConsumeU32 reads a big-endian uint32.
func (c *Consumer) ConsumeU32() uint32 {
	hi := uint32(c.ConsumeU16())
	lo := uint32(c.ConsumeU16())
	return hi<<16 | lo
}

// Producer writes big-endian integers to a Sink.
type Producer struct {
	sink     Sink
	produced int
}

// NewProducer wraps sink for big-endian encoding.
func NewProducer(sink Sink) Producer {
	return Producer{sink: sink}
}

// ProduceU8 writes one byte.
func (p *Producer) ProduceU8(v uint8) {
	p.sink.Put(v)
	p.produced++
}

// ProduceU16 writes a big-endian uint16.
func (p *Producer) ProduceU16(v uint16) {
	p.ProduceU8(uint8(v >> 8))
	p.ProduceU8(uint8(v))
}

// ProduceU32 writes a big-endian uint32.
func (p *Producer) ProduceU32(v uint32) {
	p.ProduceU16(uint16(v >> 16))
	p.ProduceU16(uint16(v))
}

// BytesProduced returns the running count of bytes written so far.
func (p *Producer) BytesProduced() int {
	return p.produced
}
