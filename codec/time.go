package codec

import (
	"time"

	"github.com/jfabienke/mbuscrate/mbuserr"
)

// Time is a decoded M-Bus date/time value. Valid is false when the
// type-specific "invalid" bit was set in the source bytes (spec §4.A); in
// that case the embedded time.Time is the zero value.
type Time struct {
	time.Time
	Valid bool
}

// DecodeG decodes a 2-byte "date only" (type G) value.
func DecodeG(b []byte) (Time, error) {
	if len(b) != 2 {
		return Time{}, mbuserr.New("codec: decode g-time", mbuserr.ShortInput)
	}
	day := int(b[0] & 0x1F)
	month := int(b[1] & 0x0F)
	year := 100 + int(b[0]>>5&0x07) + int(b[1]>>4&0x0F)<<3
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Time{Time: time.Time{}, Valid: false}, nil
	}
	return Time{Time: time.Date(1900+year, time.Month(month), day, 0, 0, 0, 0, time.UTC), Valid: true}, nil
}

// DecodeF decodes a 4-byte "date and time without seconds" (type F) value.
// Bit 7 of the minute byte is the invalid (IV) flag.
func DecodeF(b []byte) (Time, error) {
	if len(b) != 4 {
		return Time{}, mbuserr.New("codec: decode f-time", mbuserr.ShortInput)
	}
	valid := b[0]&0x80 == 0
	minute := int(b[0] & 0x3F)
	hour := int(b[1] & 0x1F)
	day := int(b[2] & 0x1F)
	month := int(b[3] & 0x0F)
	year := 100 + int(b[2]>>5&0x07) + int(b[3]>>4&0x0F)<<3
	if month < 1 || month > 12 || day < 1 || day > 31 {
		valid = false
	}
	if !valid {
		return Time{Valid: false}, nil
	}
	return Time{
		Time:  time.Date(1900+year, time.Month(month), day, hour, minute, 0, 0, time.UTC),
		Valid: true,
	}, nil
}

// DecodeI decodes a 6-byte "date and time with seconds" (type I) value.
// Bit 7 of the minute byte is the invalid (IV) flag.
func DecodeI(b []byte) (Time, error) {
	if len(b) != 6 {
		return Time{}, mbuserr.New("codec: decode i-time", mbuserr.ShortInput)
	}
	valid := b[1]&0x80 == 0
	sec := int(b[0] & 0x3F)
	minute := int(b[1] & 0x3F)
	hour := int(b[2] & 0x1F)
	day := int(b[3] & 0x1F)
	month := int(b[4] & 0x0F)
	year := 100 + int(b[3]>>5&0x07) + int(b[4]>>4&0x0F)<<3
	if month < 1 || month > 12 || day < 1 || day > 31 || sec > 59 {
		valid = false
	}
	if !valid {
		return Time{Valid: false}, nil
	}
	return Time{
		Time:  time.Date(1900+year, time.Month(month), day, hour, minute, sec, 0, time.UTC),
		Valid: true,
	}, nil
}
