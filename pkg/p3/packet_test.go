package p3

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex literal %q: %v", s, err)
	}
	return b
}

func TestClientAckEncode(t *testing.T) {
	pkt := ClientAckPacket(0x20, 0x30)
	want := hexBytes(t, "5A 35 14 00 03 20 30 A4 0D")
	if got := pkt.Encode(); !bytes.Equal(got, want) {
		t.Fatalf("client ACK encode = % X, want % X", got, want)
	}
}

func TestServerAckEncode(t *testing.T) {
	pkt := ServerAckPacket(0x20, 0x30)
	want := hexBytes(t, "5A 95 15 00 03 20 30 24 0D")
	if got := pkt.Encode(); !bytes.Equal(got, want) {
		t.Fatalf("server ACK encode = % X, want % X", got, want)
	}
}

func TestClientNakEncode(t *testing.T) {
	pkt := ClientNakPacket(0x17, 0x1B, NakSEQ)
	want := hexBytes(t, "5A E2 7E 00 04 17 1B A5 02 0D")
	if got := pkt.Encode(); !bytes.Equal(got, want) {
		t.Fatalf("client NAK encode = % X, want % X", got, want)
	}
}

func TestServerNakEncode(t *testing.T) {
	pkt := ServerNakPacket(0x17, 0x1B, NakSEQ)
	want := hexBytes(t, "5A 22 1F 00 04 17 1B 25 02 0D")
	if got := pkt.Encode(); !bytes.Equal(got, want) {
		t.Fatalf("server NAK encode = % X, want % X", got, want)
	}
}

// TestClientNakRoundTrip is the concrete scenario from spec.md §8.2.
func TestClientNakRoundTrip(t *testing.T) {
	pkt := ClientNakPacket(0x60, 0x70, NakSEQ)
	wire := pkt.Encode()
	want := hexBytes(t, "5A 8A 14 00 04 60 70 A5 02 0D")
	if !bytes.Equal(wire, want) {
		t.Fatalf("encode = % X, want % X", wire, want)
	}

	decoded, err := Decode(wire, Client)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Type != TypeNAK || decoded.TxSeq != 0x60 || decoded.RxSeq != 0x70 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if !bytes.Equal(decoded.Payload, []byte{0x02}) {
		t.Fatalf("payload = % X, want 02", decoded.Payload)
	}
	if !decoded.IsValid(true) {
		t.Fatalf("expected strict-valid packet")
	}
}

// TestServerAckDecode is the concrete scenario from spec.md §8.3.
func TestServerAckDecode(t *testing.T) {
	wire := hexBytes(t, "5A B7 11 00 03 7F 7F 24 0D")
	pkt, err := Decode(wire, Server)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if pkt.Type != TypeACK || pkt.TxSeq != 0x7F || pkt.RxSeq != 0x7F {
		t.Fatalf("decoded = %+v", pkt)
	}
	if len(pkt.Payload) != 0 {
		t.Fatalf("expected empty payload, got % X", pkt.Payload)
	}
	if pkt.ComputeCRC() != 0xB711 {
		t.Fatalf("ComputeCRC() = 0x%04X, want 0xB711", pkt.ComputeCRC())
	}
}

func TestDecodeTooSmall(t *testing.T) {
	_, err := Decode(make([]byte, 8), Client)
	if err == nil {
		t.Fatalf("expected error decoding 8-byte buffer")
	}
}

func TestClientDirectionBit(t *testing.T) {
	pkt := ClientAckPacket(1, 2)
	wire := pkt.Encode()
	if wire[7]&0x80 == 0 {
		t.Fatalf("expected client direction bit set in transmitted type byte, got 0x%02X", wire[7])
	}

	srv := ServerAckPacket(1, 2)
	if srv.Encode()[7]&0x80 != 0 {
		t.Fatalf("server packet must not set direction bit")
	}
}

// TestRoundTripAllTypes is the universal invariant from spec.md §8: every
// PacketType round-trips for both directions across a spread of
// sequence/payload values.
func TestRoundTripAllTypes(t *testing.T) {
	types := []PacketType{
		TypeDATA, TypeSS, TypeSSR, TypeINIT, TypeACK, TypeNAK,
		TypeHEARTBEAT, TypeRESET, TypeRAK, TypeSETUP, TypeACKNOW, TypeSYNC,
	}
	payloads := [][]byte{nil, {0x01}, bytes.Repeat([]byte{0xAB}, 16)}
	seqs := []byte{0x00, 0x17, 0x7F, 0xFF}

	for _, dir := range []Direction{Client, Server} {
		for _, pt := range types {
			for _, payload := range payloads {
				for _, tx := range seqs {
					for _, rx := range seqs {
						pkt := newPacket(dir, pt, tx, rx, payload)
						wire := pkt.Encode()

						decoded, err := Decode(wire, dir)
						if err != nil {
							t.Fatalf("dir=%v type=%v: Decode: %v", dir, pt, err)
						}
						if !decoded.IsValid(true) {
							t.Fatalf("dir=%v type=%v tx=%d rx=%d: not strict-valid", dir, pt, tx, rx)
						}
						if decoded.Type != pt || decoded.TxSeq != tx || decoded.RxSeq != rx {
							t.Fatalf("dir=%v type=%v: round trip mismatch: %+v", dir, pt, decoded)
						}
						if !bytes.Equal(decoded.Payload, payload) && !(len(decoded.Payload) == 0 && len(payload) == 0) {
							t.Fatalf("dir=%v type=%v: payload mismatch: got % X want % X", dir, pt, decoded.Payload, payload)
						}
					}
				}
			}
		}
	}
}

func TestUnknownTypeNonStrict(t *testing.T) {
	pkt := newPacket(Server, PacketType(0x7E), 1, 1, nil)
	pkt.KnownType = false // simulate an unrecognized type byte
	wire := pkt.Encode()

	decoded, err := Decode(wire, Server)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.KnownType {
		t.Fatalf("expected unknown type to remain unknown")
	}
	if decoded.IsValid(true) {
		t.Fatalf("expected strict validity to fail for unknown type")
	}
	if !decoded.IsValid(false) {
		t.Fatalf("expected non-strict validity to pass when CRC is intact")
	}
}

func TestBadCRCFailsValidity(t *testing.T) {
	wire := ClientAckPacket(1, 2).Encode()
	wire[1] ^= 0xFF // corrupt the CRC high byte

	decoded, err := Decode(wire, Client)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.IsValid(true) || decoded.IsValid(false) {
		t.Fatalf("expected corrupted CRC to invalidate the packet")
	}
}

func TestDataPayloadRoundTrip(t *testing.T) {
	token := [2]byte{0xCA, 0xFE}
	data := []byte("hello")

	pkt := ClientDataPacket(1, 2, token, data)
	decoded, err := Decode(pkt.Encode(), Client)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	dp, err := DecodeDataPayload(decoded.Payload)
	if err != nil {
		t.Fatalf("DecodeDataPayload: %v", err)
	}
	if dp.Token != token || !bytes.Equal(dp.Data, data) {
		t.Fatalf("decoded payload = %+v", dp)
	}
}

func TestDataPayloadTooSmall(t *testing.T) {
	if _, err := DecodeDataPayload([]byte{0x01}); err == nil {
		t.Fatalf("expected error for 1-byte DataPayload")
	}
}

func TestV3InitPayloadDefaults(t *testing.T) {
	init := DefaultV3InitPayload()
	pkt := ClientInitPacket(1, 2, init)
	decoded, err := Decode(pkt.Encode(), Client)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got, err := DecodeV3InitPayload(decoded.Payload)
	if err != nil {
		t.Fatalf("DecodeV3InitPayload: %v", err)
	}
	if got != init {
		t.Fatalf("round-tripped V3InitPayload = %+v, want %+v", got, init)
	}
	if got.Platform != 0x03 || got.MajorVer != 0x6E || got.MinorVer != 0x5F ||
		got.MachineMemory != 0x10 || got.ReleaseMonth != 0x05 || got.ReleaseDay != 0x0F {
		t.Fatalf("defaults not as specified: %+v", got)
	}
}

func TestV3InitPayloadTooSmall(t *testing.T) {
	if _, err := DecodeV3InitPayload(make([]byte, 48)); err == nil {
		t.Fatalf("expected error for 48-byte V3InitPayload")
	}
}
