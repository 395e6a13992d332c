// Copyright the netstack authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package slip implements RFC 1055 byte-stuffed framing: Transmit encodes a
// chained buffer as one SLIP frame, and Decode is a stateless span decoder
// matching the glue.Framer contract so it plugs into package glue without
// adaptation.
package slip

import "github.com/zhmu/netstack"

// Frame delimiter and escape bytes, per RFC 1055.
const (
	END    byte = 0xC0
	ESC    byte = 0xDB
	ESCEND byte = 0xDC
	ESCESC byte = 0xDD
)

// Transmit writes one complete SLIP frame for chain's readable bytes to
// sink: a leading END, each byte byte-stuffed, and a trailing END.
func Transmit(chain *netstack.Buffer, sink func(byte)) {
	sink(END)
	cur := chain.Bytes()
	for {
		b, ok := cur.Next()
		if !ok {
			break
		}
		switch b {
		case END:
			sink(ESC)
			sink(ESCEND)
		case ESC:
			sink(ESC)
			sink(ESCESC)
		default:
			sink(b)
		}
	}
	sink(END)
}

// Decode scans span left-to-right, invoking onByte for each decoded payload
// byte and onEnd for each frame-terminating END, and returns the index of
// the first byte it did not consume.
//
// A trailing ESC with no following byte available in span is left
// unconsumed so the caller (package glue) can carry it into the next read;
// this is the only state Decode itself needs, and even that state lives in
// the caller, not here.
func Decode(span []byte, onByte func(byte), onEnd func()) int {
	i := 0
	for i < len(span) {
		b := span[i]
		switch b {
		case END:
			onEnd()
			i++
		case ESC:
			if i+1 >= len(span) {
				return i
			}
			n := span[i+1]
			switch n {
			case ESCEND:
				n = END
			case ESCESC:
				n = ESC
			}
			onByte(n)
			i += 2
		default:
			onByte(b)
			i++
		}
	}
	return i
}
