// Copyright the netstack authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package ipv4 parses and constructs IPv4 headers (RFC 791), version 4
// only: ParseHeader checksum-verifies and rejects fragmentation; options are
// accepted (and folded into the checksum) on parse but never emitted by
// ConstructHeader.
package ipv4

import (
	"errors"

	"github.com/zhmu/netstack"
	"github.com/zhmu/netstack/internal/checksum"
	"github.com/zhmu/netstack/netorder"
)

// Version is the only IP version this package accepts.
const Version = 4

// HeaderSize is the fixed-size portion of an IPv4 header, before options.
const HeaderSize = 20

// Flag bits within the 16-bit flags/fragment-offset word.
const (
	flagReserved uint16 = 1 << 15
	flagDF       uint16 = 1 << 14
	flagMF       uint16 = 1 << 13
	fragMask     uint16 = 0x1fff
)

// Protocol numbers used elsewhere in this module.
const (
	ProtocolICMP = 1
	ProtocolTCP  = 6
	ProtocolUDP  = 17
)

// Sentinel errors returned by ParseHeader. Each corresponds to one row of
// the parser's error table; callers drop the frame on every one of them
// except ErrNotEnoughData, which a higher layer could in principle treat as
// "wait for more bytes" (not implemented in this module).
var (
	ErrNotEnoughData = errors.New("ipv4: not enough data")
	ErrUnsupported   = errors.New("ipv4: unsupported header")
	ErrCorruptHeader = errors.New("ipv4: corrupt header")
	ErrChecksumError = errors.New("ipv4: checksum error")
)

// Header is a parsed (or to-be-constructed) IPv4 header.
type Header struct {
	TOS         uint8
	TotalLength uint16
	ID          uint16
	Flags       uint16
	Frag        uint16
	TTL         uint8
	Protocol    uint8
	Checksum    uint16
	SourceAddr  uint32
	DestAddr    uint32

	// HeaderSize is 20 plus 4 times the number of 32-bit option words; it is
	// derived from the wire IHL nibble on parse. ConstructHeader never
	// emits options, so callers building a Header for construction should
	// leave this at HeaderSize (20).
	HeaderSize uint16
}

// ParseHeader reads an IPv4 header from buffer, verifying the Internet
// checksum over the header bytes (including any options).
func ParseHeader(buffer *netstack.Buffer) (Header, error) {
	total := buffer.Len()
	if total < HeaderSize {
		return Header{}, ErrNotEnoughData
	}

	cur := buffer.Bytes()
	cons := netorder.NewConsumer(cur)

	verIHL := cons.ConsumeU8()
	if verIHL>>4 != Version {
		return Header{}, ErrUnsupported
	}
	headerSize := int(verIHL&0xf) * 4
	if headerSize > total {
		return Header{}, ErrNotEnoughData
	}

	var h Header
	h.HeaderSize = uint16(headerSize)
	h.TOS = cons.ConsumeU8()
	h.TotalLength = cons.ConsumeU16()
	h.ID = cons.ConsumeU16()
	flagsFrag := cons.ConsumeU16()
	h.TTL = cons.ConsumeU8()
	h.Protocol = cons.ConsumeU8()
	h.Checksum = cons.ConsumeU16()
	h.SourceAddr = cons.ConsumeU32()
	h.DestAddr = cons.ConsumeU32()

	if flagsFrag&flagReserved != 0 {
		return Header{}, ErrCorruptHeader
	}
	if flagsFrag&flagMF != 0 {
		return Header{}, ErrUnsupported
	}
	h.Flags = flagsFrag
	h.Frag = flagsFrag & fragMask
	if h.Frag != 0 {
		return Header{}, ErrUnsupported
	}

	if sum := checksum.Internet(buffer.Bytes(), headerSize); sum != 0 {
		return Header{}, ErrChecksumError
	}

	return h, nil
}

// ConstructHeader writes a canonical 20-byte IPv4 header (no options) at
// buffer's current write tail and patches in its own checksum. The checksum
// is computed over, and patched into, the first 20 bytes of buffer's head
// segment, so buffer must be empty on entry; appending a header after
// existing bytes is not supported.
//
// The IHL byte is built as 0x40 | (IHL&0xf). A literal transliteration of
// this as "0x40 + (h.HeaderSize/4) & 0xf" in a language where + outranks &
// evaluates as (0x40 + IHL) & 0xf, dropping the version nibble for every
// header size; the |-form below does not have that hazard.
func ConstructHeader(h Header, buffer *netstack.Buffer) {
	w := netstack.NewChainWriter(buffer)
	prod := netorder.NewProducer(w)

	ihl := byte(h.HeaderSize / 4)
	prod.ProduceU8(Version<<4 | (ihl & 0xf))
	prod.ProduceU8(h.TOS)
	prod.ProduceU16(h.TotalLength)
	prod.ProduceU16(h.ID)
	prod.ProduceU16(h.Flags | h.Frag)
	prod.ProduceU8(h.TTL)
	prod.ProduceU8(h.Protocol)
	checksumOffset := prod.BytesProduced()
	prod.ProduceU16(0) // placeholder, patched below
	prod.ProduceU32(h.SourceAddr)
	prod.ProduceU32(h.DestAddr)

	sum := checksum.Internet(buffer.Bytes(), HeaderSize)
	patch := buffer.ReadSpan()
	patch[checksumOffset] = byte(sum >> 8)
	patch[checksumOffset+1] = byte(sum)
}
