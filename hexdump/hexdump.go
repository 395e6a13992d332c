// Copyright the netstack authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package hexdump renders a byte chain as fixed-width hex/ASCII lines, one
// callback invocation per line, for use in diagnostic logging.
package hexdump

import (
	"github.com/zhmu/netstack"
)

// BytesPerLine is the number of bytes grouped into a single dumped line.
const BytesPerLine = 16

const hexDigits = "0123456789abcdef"

// Line is one rendered line of output: Offset is the byte offset of the
// first byte on the line, Bytes is the space-separated hex rendering (no
// trailing space, len(Chars)*3-1 bytes wide), and Chars is the
// printable-ASCII-or-dot rendering, one byte per dumped byte.
type Line struct {
	Offset int
	Bytes  string
	Chars  string
}

// Callback receives one rendered Line at a time.
type Callback func(Line)

// Dump walks buffer's chain and invokes callback once per line of up to
// BytesPerLine bytes. A final short line is emitted if the chain's length is
// not a multiple of BytesPerLine; an empty chain invokes callback zero
// times.
func Dump(buffer *netstack.Buffer, callback Callback) {
	var hexBuf [BytesPerLine*3 - 1]byte
	var charBuf [BytesPerLine]byte

	offset := 0
	n := 0
	cur := buffer.Bytes()
	for {
		b, ok := cur.Next()
		if !ok {
			break
		}
		if n > 0 {
			hexBuf[n*3-1] = ' '
		}
		hexBuf[n*3] = hexDigits[b>>4]
		hexBuf[n*3+1] = hexDigits[b&0xf]
		charBuf[n] = printableOrDot(b)
		n++

		if n == BytesPerLine {
			callback(Line{
				Offset: offset,
				Bytes:  string(hexBuf[:]),
				Chars:  string(charBuf[:]),
			})
			offset += BytesPerLine
			n = 0
		}
	}
	if n > 0 {
		callback(Line{
			Offset: offset,
			Bytes:  string(hexBuf[:n*3-1]),
			Chars:  string(charBuf[:n]),
		})
	}
}

func printableOrDot(b byte) byte {
	if b >= 0x20 && b < 0x7f {
		return b
	}
	return '.'
}
