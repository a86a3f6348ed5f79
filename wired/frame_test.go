package wired

import (
	"bytes"
	"testing"

	"github.com/jfabienke/mbuscrate/mbuserr"
	"github.com/jfabienke/mbuscrate/record"
	"github.com/jfabienke/mbuscrate/wmbus"
)

// TestParseAck covers spec §8 scenario 1: `E5` parses to Frame{Kind: Ack},
// and packing that frame reproduces the single byte.
func TestParseAck(t *testing.T) {
	res := Parse([]byte{0xE5})
	if res.Err != nil {
		t.Fatalf("Parse: %v", res.Err)
	}
	if res.Frame.Kind != Ack || res.Consumed != 1 {
		t.Fatalf("got %+v, want Ack/Consumed=1", res)
	}
	got, err := Pack(res.Frame)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !bytes.Equal(got, []byte{0xE5}) {
		t.Fatalf("got %x, want e5", got)
	}
}

// TestShortFrameRoundTrip covers spec §8 scenario 2 verbatim.
func TestShortFrameRoundTrip(t *testing.T) {
	f := Frame{Kind: Short, C: ReqUd2, A: 0x01}
	packed, err := Pack(f)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	want := []byte{0x10, 0x5B, 0x01, 0x5C, 0x16}
	if !bytes.Equal(packed, want) {
		t.Fatalf("got %x, want %x", packed, want)
	}

	res := Parse(packed)
	if res.Err != nil {
		t.Fatalf("Parse: %v", res.Err)
	}
	if res.Frame.Kind != f.Kind || res.Frame.C != f.C || res.Frame.A != f.A || res.Consumed != len(packed) {
		t.Fatalf("got %+v, want %+v consumed=%d", res.Frame, f, len(packed))
	}
}

// TestLongRSPUDRoundTrip covers spec §8 scenario 3: a long RSP_UD frame
// whose Data is a 12-byte application header (spec §3) followed by one
// fixed-width data record, parse(pack(F)) == F, and the payload decodes to
// the documented header fields and record value.
func TestLongRSPUDRoundTrip(t *testing.T) {
	header := []byte{0x78, 0x56, 0x34, 0x12, 0x2D, 0x2C, 0x01, 0x07, 0x0A, 0x00, 0x00, 0x00}
	rec := []byte{0x02, 0x13, 0xD2, 0x04}
	f := Frame{Kind: Long, C: RspUd, A: 0x01, CI: 0x72, Data: append(append([]byte(nil), header...), rec...)}

	packed, err := Pack(f)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	res := Parse(packed)
	if res.Err != nil {
		t.Fatalf("Parse: %v", res.Err)
	}
	if res.Frame.Kind != f.Kind || res.Frame.C != f.C || res.Frame.A != f.A || res.Frame.CI != f.CI {
		t.Fatalf("got %+v, want %+v", res.Frame, f)
	}
	if !bytes.Equal(res.Frame.Data, f.Data) {
		t.Fatalf("got data %x, want %x", res.Frame.Data, f.Data)
	}

	hdr, err := wmbus.DecodeHeader(res.Frame.Data[:12])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if hdr.ID != 0x12345678 || hdr.Manufacturer != 0x2C2D || hdr.Version != 1 || hdr.Medium != 7 || hdr.AccessNumber != 10 {
		t.Fatalf("got %+v, want id=12345678 manuf=2c2d v=1 medium=7 access=10", hdr)
	}

	chain, err := record.Parse(res.Frame.Data[12:])
	if err != nil {
		t.Fatalf("record.Parse: %v", err)
	}
	if len(chain.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(chain.Records))
	}
	v := chain.Records[0].Value
	if v.Quantity != record.QVolume || v.Unit != "m3" {
		t.Fatalf("got quantity=%v unit=%q, want volume/m3", v.Quantity, v.Unit)
	}
	if got, want := v.Number, 1.234; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseUnknownControl(t *testing.T) {
	// Short frame shape with a control byte that matches no known
	// function code (spec §4.B checkControlShort).
	buf := []byte{0x10, 0xFF, 0x01, 0x00, 0x16}
	res := Parse(buf)
	if !mbuserr.Is(res.Err, mbuserr.UnknownControl) {
		t.Fatalf("got %v, want UnknownControl", res.Err)
	}
}

func TestParseInvalidStart(t *testing.T) {
	res := Parse([]byte{0x00})
	if !mbuserr.Is(res.Err, mbuserr.InvalidStart) {
		t.Fatalf("got %v, want InvalidStart", res.Err)
	}
}

func TestParseShortBadChecksum(t *testing.T) {
	buf := []byte{0x10, ReqUd2, 0x01, 0x00, 0x16}
	res := Parse(buf)
	if !mbuserr.Is(res.Err, mbuserr.InvalidChecksum) {
		t.Fatalf("got %v, want InvalidChecksum", res.Err)
	}
}

func TestParseNeedsMoreBytes(t *testing.T) {
	if res := Parse(nil); res.Need != 1 {
		t.Fatalf("got Need=%d, want 1 for empty buffer", res.Need)
	}
	if res := Parse([]byte{0x10, 0x5B}); res.Need <= 0 {
		t.Fatalf("got Need=%d, want >0 for a truncated short frame", res.Need)
	}
	if res := Parse([]byte{0x68, 0x04, 0x04}); res.Need <= 0 {
		t.Fatalf("got Need=%d, want >0 for a truncated long frame header", res.Need)
	}
}
