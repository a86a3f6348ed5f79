package wmbus

import (
	"github.com/jfabienke/mbuscrate/codec"
	"github.com/jfabienke/mbuscrate/mbuserr"
)

// Header is the 12-byte variable-data header that follows CI=0x72 (spec
// §3): device ID, manufacturer code, version, medium, access number,
// status, and the compact-frame signature. ID keeps the eight BCD digits
// in nibble form, so device number 12345678 is ID 0x12345678.
type Header struct {
	ID           uint32
	Manufacturer uint16
	Version      byte
	Medium       byte
	AccessNumber byte
	Status       byte
	Signature    uint16
}

const HeaderLen = 12

// DecodeHeader parses the 12-byte variable-data header from b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, mbuserr.New("wmbus: decode header", mbuserr.ShortInput)
	}
	if _, err := codec.DecodeBCD(b[0:4], false); err != nil {
		return Header{}, mbuserr.Wrap("wmbus: decode header", mbuserr.InvalidEncoding, err)
	}
	return Header{
		ID:           uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24,
		Manufacturer: uint16(b[4]) | uint16(b[5])<<8,
		Version:      b[6],
		Medium:       b[7],
		AccessNumber: b[8],
		Status:       b[9],
		Signature:    uint16(b[10]) | uint16(b[11])<<8,
	}, nil
}

// Encode packs h back into its 12-byte wire form.
func (h Header) Encode() ([]byte, error) {
	out := make([]byte, 0, HeaderLen)
	out = append(out, byte(h.ID), byte(h.ID>>8), byte(h.ID>>16), byte(h.ID>>24))
	if _, err := codec.DecodeBCD(out[0:4], false); err != nil {
		return nil, mbuserr.Wrap("wmbus: encode header", mbuserr.OutOfRange, err)
	}
	out = append(out, byte(h.Manufacturer), byte(h.Manufacturer>>8))
	out = append(out, h.Version, h.Medium, h.AccessNumber, h.Status)
	out = append(out, byte(h.Signature), byte(h.Signature>>8))
	return out, nil
}

// Frame is the fully-parsed wireless frame: the fixed header fields plus
// the data-record payload that follows (spec §6).
type Frame struct {
	C      byte
	Header Header
	Data   []byte
}
