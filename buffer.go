// Copyright the netstack authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package netstack provides the chained packet buffer at the bottom of the
// stack: a singly-linked chain of fixed-size segments that exposes a single
// logical byte sequence for parsing and a single logical write tail for
// construction.
//
// The slip, glue, ipv4, icmp and hexdump packages build on top of *Buffer;
// nothing here knows about SLIP, IPv4, or ICMP.
package netstack

// SegmentSize is the fixed capacity, in bytes, of one Buffer segment.
const SegmentSize = 1024

// Buffer is one segment in a singly-linked chain of segments that together
// hold one logical packet's bytes. The head segment owns the entire chain;
// a segment is never shared between chains and the chain is never cyclic.
//
// Bytes at indices [0, filled) are readable; [filled, SegmentSize) are
// writable and uninitialized. filled only grows.
type Buffer struct {
	data   [SegmentSize]byte
	filled int
	next   *Buffer
}

// NewBuffer allocates a single, empty segment that is also the head of a
// new, one-segment chain.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// WriteSpan returns the unused, writable region of this segment. It never
// crosses into the next segment of the chain.
func (b *Buffer) WriteSpan() []byte {
	return b.data[b.filled:]
}

// ReadSpan returns the filled, readable region of this segment. It never
// crosses into the next segment of the chain.
func (b *Buffer) ReadSpan() []byte {
	return b.data[:b.filled]
}

// AdvanceFilled marks the first n bytes of WriteSpan as filled, making them
// part of ReadSpan. It panics if n
// is negative or exceeds the remaining capacity of this segment; this is a
// programmer error, not a recoverable condition, since callers are expected
// to have sized their write against WriteSpan already.
func (b *Buffer) AdvanceFilled(n int) {
	if n < 0 || n > SegmentSize-b.filled {
		panic("netstack: AdvanceFilled past segment capacity")
	}
	b.filled += n
}

// AppendSegment allocates a fresh, empty segment and links it as this
// segment's direct successor, replacing any existing successor. It returns
// the new segment. Callers append at the tail; linking in the middle of a
// chain is a misuse this type does not protect against.
func (b *Buffer) AppendSegment() *Buffer {
	nb := &Buffer{}
	b.next = nb
	return nb
}

// Next returns the next segment in the chain, or nil at the end.
func (b *Buffer) Next() *Buffer {
	return b.next
}

// Len returns the chain's total logical length: the sum of filled across
// every segment starting at b. O(segments).
func (b *Buffer) Len() int {
	n := 0
	for s := b; s != nil; s = s.next {
		n += s.filled
	}
	return n
}

// Segments returns a forward iterator over the segments of the chain,
// starting at b.
func (b *Buffer) Segments() *SegmentIter {
	return &SegmentIter{seg: b}
}

// SegmentIter is a forward, single-pass iterator over a Buffer chain's
// segments.
type SegmentIter struct {
	seg *Buffer
}

// Next returns the next segment and true, or (nil, false) past the end.
func (it *SegmentIter) Next() (*Buffer, bool) {
	if it.seg == nil {
		return nil, false
	}
	s := it.seg
	it.seg = it.seg.next
	return s, true
}

// Bytes returns a forward byte cursor over the logical concatenation of
// every segment's readable region, skipping empty segments (intermediate
// segments may legally have filled == 0; a cursor must tolerate that).
func (b *Buffer) Bytes() *Cursor {
	seg := b
	for seg != nil && seg.filled == 0 {
		seg = seg.next
	}
	return &Cursor{seg: seg}
}

// Cursor is a forward-only byte cursor over a Buffer chain. Two cursors
// compare equal (via Equal) iff they reference the same segment and the
// same in-segment position; a past-the-end cursor has a nil segment.
type Cursor struct {
	seg *Buffer
	pos int
}

// Next returns the next byte and true, or (0, false) past the end of the
// chain.
func (c *Cursor) Next() (byte, bool) {
	if c.seg == nil {
		return 0, false
	}
	v := c.seg.data[c.pos]
	c.pos++
	if c.pos >= c.seg.filled {
		c.seg = c.seg.next
		for c.seg != nil && c.seg.filled == 0 {
			c.seg = c.seg.next
		}
		c.pos = 0
	}
	return v, true
}

// Skip advances the cursor by n bytes, discarding them. Skipping past the
// end of the chain is a no-op past that point (callers that rely on the
// skipped region existing must check Len first, as elsewhere in this
// package).
func (c *Cursor) Skip(n int) {
	for i := 0; i < n && c.seg != nil; i++ {
		c.Next()
	}
}

// Equal reports whether c and o reference the same segment and in-segment
// position.
func (c *Cursor) Equal(o *Cursor) bool {
	return c.seg == o.seg && c.pos == o.pos
}

// ChainWriter is the chain's "logical write tail": repeated Put calls fill
// the current tail segment and transparently append a new one when it runs
// out of room. netorder.Producer, ipv4.ConstructHeader, icmp.CreateEchoReply,
// and glue.Glue all build on this one implementation.
type ChainWriter struct {
	tail *Buffer
}

// NewChainWriter returns a ChainWriter that appends after tail's existing
// filled bytes. tail is usually a freshly allocated, empty Buffer, but
// resuming a partially filled chain is also valid.
func NewChainWriter(tail *Buffer) *ChainWriter {
	return &ChainWriter{tail: tail}
}

// Put appends a single byte to the chain, rolling over to a new segment if
// the current tail is full.
func (w *ChainWriter) Put(b byte) {
	if len(w.tail.WriteSpan()) == 0 {
		w.tail = w.tail.AppendSegment()
	}
	w.tail.WriteSpan()[0] = b
	w.tail.AdvanceFilled(1)
}

// Tail returns the segment Put will write into next.
func (w *ChainWriter) Tail() *Buffer {
	return w.tail
}
