// Copyright the netstack authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package hexdump_test

import (
	"testing"

	"github.com/zhmu/netstack"
	"github.com/zhmu/netstack/hexdump"
)

func bufferOf(data []byte) *netstack.Buffer {
	b := netstack.NewBuffer()
	w := netstack.NewChainWriter(b)
	for _, v := range data {
		w.Put(v)
	}
	return b
}

func TestDump_Empty(t *testing.T) {
	var lines []hexdump.Line
	hexdump.Dump(bufferOf(nil), func(l hexdump.Line) { lines = append(lines, l) })
	if len(lines) != 0 {
		t.Fatalf("got %d lines, want 0", len(lines))
	}
}

func TestDump_SingleLine(t *testing.T) {
	data := make([]byte, hexdump.BytesPerLine)
	for i := range data {
		data[i] = byte(i)
	}
	var lines []hexdump.Line
	hexdump.Dump(bufferOf(data), func(l hexdump.Line) { lines = append(lines, l) })

	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].Offset != 0 {
		t.Errorf("Offset = %d, want 0", lines[0].Offset)
	}
	wantBytes := "00 01 02 03 04 05 06 07 08 09 0a 0b 0c 0d 0e 0f"
	if lines[0].Bytes != wantBytes {
		t.Errorf("Bytes = %q, want %q", lines[0].Bytes, wantBytes)
	}
	wantChars := "................"
	if lines[0].Chars != wantChars {
		t.Errorf("Chars = %q, want %q", lines[0].Chars, wantChars)
	}
}

func TestDump_SingleLinePlusOneByte(t *testing.T) {
	data := make([]byte, hexdump.BytesPerLine+1)
	for i := range data {
		data[i] = byte(i)
	}
	var lines []hexdump.Line
	hexdump.Dump(bufferOf(data), func(l hexdump.Line) { lines = append(lines, l) })

	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[1].Offset != hexdump.BytesPerLine {
		t.Errorf("lines[1].Offset = %d, want %d", lines[1].Offset, hexdump.BytesPerLine)
	}
	if lines[1].Bytes != "10" {
		t.Errorf("lines[1].Bytes = %q, want %q", lines[1].Bytes, "10")
	}
	if lines[1].Chars != "." {
		t.Errorf("lines[1].Chars = %q, want %q", lines[1].Chars, ".")
	}
}

func TestDump_PrintableAndNonPrintable(t *testing.T) {
	data := []byte{'A', 'z', '0', 0x00, 0x1f, 0x7f, 0x80, ' '}
	var lines []hexdump.Line
	hexdump.Dump(bufferOf(data), func(l hexdump.Line) { lines = append(lines, l) })
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	want := "Az0.... "
	if lines[0].Chars != want {
		t.Fatalf("Chars = %q, want %q", lines[0].Chars, want)
	}
}

func TestDump_SpansChainSegments(t *testing.T) {
	data := make([]byte, netstack.SegmentSize+hexdump.BytesPerLine)
	for i := range data {
		data[i] = byte(i)
	}
	var lines []hexdump.Line
	hexdump.Dump(bufferOf(data), func(l hexdump.Line) { lines = append(lines, l) })
	wantLines := len(data) / hexdump.BytesPerLine
	if len(lines) != wantLines {
		t.Fatalf("got %d lines, want %d", len(lines), wantLines)
	}
	last := lines[len(lines)-1]
	if last.Offset != len(data)-hexdump.BytesPerLine {
		t.Fatalf("last line offset = %d, want %d", last.Offset, len(data)-hexdump.BytesPerLine)
	}
}
