// Copyright the netstack authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package icmp parses ICMP headers (RFC 792) following an already-parsed
// IPv4 header, checksum-verifies them, and builds Echo Reply messages for
// Echo Request input. Only Echo/Echo Reply are interpreted; other ICMP
// types parse their 2-byte Type/Code head and checksum-verify but are
// otherwise opaque to this package.
package icmp

import (
	"errors"

	"github.com/zhmu/netstack"
	"github.com/zhmu/netstack/internal/checksum"
	"github.com/zhmu/netstack/ipv4"
	"github.com/zhmu/netstack/netorder"
)

// HeaderSize is the fixed Type/Code/Checksum prefix every ICMP message
// starts with.
const HeaderSize = 4

// Message types this package interprets.
const (
	TypeEchoReply   uint8 = 0
	TypeEchoRequest uint8 = 8
)

// Sentinel errors returned by ParseHeader.
var (
	ErrNotEnoughData = errors.New("icmp: not enough data")
	ErrChecksumError = errors.New("icmp: checksum error")
)

// Header is a parsed ICMP header. The checksum and the rest of the message
// are not retained; they are verified (ParseHeader) or generated
// (CreateEchoReply) on demand from the buffer.
type Header struct {
	Type uint8
	Code uint8
}

// ParseHeader reads the Type/Code fields immediately after ipHeader's
// bytes in buffer, and verifies the Internet checksum over the full ICMP
// message (ipHeader.TotalLength - ipHeader.HeaderSize bytes).
func ParseHeader(ipHeader ipv4.Header, buffer *netstack.Buffer) (Header, error) {
	available := buffer.Len() - int(ipHeader.HeaderSize)
	if available < HeaderSize {
		return Header{}, ErrNotEnoughData
	}

	cur := buffer.Bytes()
	cur.Skip(int(ipHeader.HeaderSize))
	cons := netorder.NewConsumer(cur)

	var h Header
	h.Type = cons.ConsumeU8()
	h.Code = cons.ConsumeU8()

	dataSize := int(ipHeader.TotalLength) - int(ipHeader.HeaderSize)
	sumCur := buffer.Bytes()
	sumCur.Skip(int(ipHeader.HeaderSize))
	if sum := checksum.Internet(sumCur, dataSize); sum != 0 {
		return Header{}, ErrChecksumError
	}

	return h, nil
}

// CreateEchoReply builds a fresh Echo Reply message carrying the same
// payload as the Echo Request in buffer, and patches in its own checksum:
// this is the only place that has assembled the full reply length, so it
// computes the checksum rather than leaving that to the caller.
func CreateEchoReply(ipHeader ipv4.Header, icmpHeader Header, buffer *netstack.Buffer) *netstack.Buffer {
	reply := netstack.NewBuffer()
	w := netstack.NewChainWriter(reply)
	prod := netorder.NewProducer(w)

	prod.ProduceU8(TypeEchoReply)
	prod.ProduceU8(0)  // code
	prod.ProduceU16(0) // checksum placeholder, patched below

	dataOffset := int(ipHeader.HeaderSize) + HeaderSize
	dataLength := int(ipHeader.TotalLength) - dataOffset

	src := buffer.Bytes()
	src.Skip(dataOffset)
	for i := 0; i < dataLength; i++ {
		b, _ := src.Next()
		w.Put(b)
	}

	total := HeaderSize + dataLength
	sum := checksum.Internet(reply.Bytes(), total)
	patch := reply.ReadSpan()
	patch[2] = byte(sum >> 8)
	patch[3] = byte(sum)

	return reply
}

// Process dispatches on icmpHeader.Type: an Echo Request produces an Echo
// Reply (ok == true); every other type produces no reply.
func Process(ipHeader ipv4.Header, icmpHeader Header, buffer *netstack.Buffer) (reply *netstack.Buffer, ok bool) {
	if icmpHeader.Type != TypeEchoRequest {
		return nil, false
	}
	return CreateEchoReply(ipHeader, icmpHeader, buffer), true
}
