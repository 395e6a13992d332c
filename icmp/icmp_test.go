// Copyright the netstack authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package icmp_test

import (
	"errors"
	"testing"

	"github.com/zhmu/netstack"
	"github.com/zhmu/netstack/icmp"
	"github.com/zhmu/netstack/internal/checksum"
	"github.com/zhmu/netstack/ipv4"
)

var icmpEchoRequest = []byte{
	0x45, 0x00, 0x00, 0x54, 0xf8, 0xbe, 0x40, 0x00, 0x40, 0x01, 0x87, 0xa8, 0xac, 0x1f, 0x31, 0x01,
	0xac, 0x1f, 0x31, 0x02, 0x08, 0x00, 0x21, 0xa3, 0xe0, 0xec, 0x00, 0x01, 0xe0, 0x8a, 0xc7, 0x5e,
	0x00, 0x00, 0x00, 0x00, 0x8e, 0xb2, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x11, 0x12, 0x13,
	0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f, 0x20, 0x21, 0x22, 0x23,
	0x24, 0x25, 0x26, 0x27, 0x28, 0x29, 0x2a, 0x2b, 0x2c, 0x2d, 0x2e, 0x2f, 0x30, 0x31, 0x32, 0x33,
	0x34, 0x35, 0x36, 0x37,
}

func bufferOf(data []byte) *netstack.Buffer {
	b := netstack.NewBuffer()
	w := netstack.NewChainWriter(b)
	for _, v := range data {
		w.Put(v)
	}
	return b
}

func mustParseIP(t *testing.T, data []byte) (ipv4.Header, *netstack.Buffer) {
	t.Helper()
	buf := bufferOf(data)
	h, err := ipv4.ParseHeader(buf)
	if err != nil {
		t.Fatalf("ipv4.ParseHeader() err = %v", err)
	}
	return h, buf
}

// TestParseHeader_SeedScenarioS4 is seed scenario S4.
func TestParseHeader_SeedScenarioS4(t *testing.T) {
	ipHeader, buf := mustParseIP(t, icmpEchoRequest)
	h, err := icmp.ParseHeader(ipHeader, buf)
	if err != nil {
		t.Fatalf("icmp.ParseHeader() err = %v", err)
	}
	if h.Type != 8 {
		t.Errorf("Type = %d, want 8", h.Type)
	}
	if h.Code != 0 {
		t.Errorf("Code = %d, want 0", h.Code)
	}
}

func TestParseHeader_NotEnoughData(t *testing.T) {
	ipHeader, _ := mustParseIP(t, icmpEchoRequest)
	// Truncate the buffer to fewer than HeaderSize+4 bytes, so the ICMP
	// Type/Code/Checksum prefix itself does not fit, regardless of what
	// TotalLength claims.
	short := bufferOf(icmpEchoRequest[:int(ipHeader.HeaderSize)+2])
	_, err := icmp.ParseHeader(ipHeader, short)
	if !errors.Is(err, icmp.ErrNotEnoughData) {
		t.Fatalf("err = %v, want ErrNotEnoughData", err)
	}
}

func TestParseHeader_ChecksumError(t *testing.T) {
	data := append([]byte{}, icmpEchoRequest...)
	data[22] ^= 1 // corrupt a byte inside the ICMP message
	ipHeader, buf := mustParseIP(t, data)
	_, err := icmp.ParseHeader(ipHeader, buf)
	if !errors.Is(err, icmp.ErrChecksumError) {
		t.Fatalf("err = %v, want ErrChecksumError", err)
	}
}

func TestProcess_EchoRequestProducesReply(t *testing.T) {
	ipHeader, buf := mustParseIP(t, icmpEchoRequest)
	icmpHeader, err := icmp.ParseHeader(ipHeader, buf)
	if err != nil {
		t.Fatalf("icmp.ParseHeader() err = %v", err)
	}

	reply, ok := icmp.Process(ipHeader, icmpHeader, buf)
	if !ok || reply == nil {
		t.Fatal("Process(EchoRequest) should produce a reply")
	}

	replyBytes := reply.ReadSpan()
	if replyBytes[0] != icmp.TypeEchoReply {
		t.Fatalf("reply type = %d, want %d", replyBytes[0], icmp.TypeEchoReply)
	}
	if replyBytes[1] != 0 {
		t.Fatalf("reply code = %d, want 0", replyBytes[1])
	}

	wantPayloadLen := int(ipHeader.TotalLength) - int(ipHeader.HeaderSize) - icmp.HeaderSize
	if got := len(replyBytes) - icmp.HeaderSize; got != wantPayloadLen {
		t.Fatalf("reply payload length = %d, want %d", got, wantPayloadLen)
	}

	origPayload := icmpEchoRequest[int(ipHeader.HeaderSize)+icmp.HeaderSize:]
	replyPayload := replyBytes[icmp.HeaderSize:]
	for i := range origPayload {
		if replyPayload[i] != origPayload[i] {
			t.Fatalf("payload byte %d = %#x, want %#x", i, replyPayload[i], origPayload[i])
		}
	}

	// The design decision in SPEC_FULL.md §9: CreateEchoReply itself
	// recomputes and patches the ICMP checksum, so the reply must already
	// checksum to zero without any caller intervention.
	if sum := checksum.InternetBytes(replyBytes); sum != 0 {
		t.Fatalf("reply checksum = %#04x, want 0 (CreateEchoReply should patch it)", sum)
	}
}

func TestProcess_NonEchoRequestProducesNoReply(t *testing.T) {
	ipHeader, buf := mustParseIP(t, icmpEchoRequest)
	icmpHeader, err := icmp.ParseHeader(ipHeader, buf)
	if err != nil {
		t.Fatalf("icmp.ParseHeader() err = %v", err)
	}
	icmpHeader.Type = icmp.TypeEchoReply // pretend this was already a reply

	reply, ok := icmp.Process(ipHeader, icmpHeader, buf)
	if ok || reply != nil {
		t.Fatal("Process(non-EchoRequest) should not produce a reply")
	}
}
