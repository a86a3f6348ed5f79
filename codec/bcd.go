package codec

import "github.com/jfabienke/mbuscrate/mbuserr"

// DecodeBCD decodes a little-endian packed-BCD integer from b. A leading
// (most significant) nibble of 0xF marks the value negative (spec §4.A). If
// hexFallback is false, a non-sign nibble >= 0xA is InvalidEncoding; if
// true, such nibbles are read as hex digits (lossy but permitted for
// "hex BCD" values per spec §9, preserved for compatibility but opt-in).
func DecodeBCD(b []byte, hexFallback bool) (int64, error) {
	if len(b) == 0 {
		return 0, mbuserr.New("codec: decode bcd", mbuserr.ShortInput)
	}
	negative := false
	var v int64
	for i := len(b) - 1; i >= 0; i-- {
		hi := b[i] >> 4
		lo := b[i] & 0x0F
		if i == len(b)-1 && hi == 0xF {
			negative = true
			hi = 0
		} else if hi >= 0xA {
			if !hexFallback {
				return 0, mbuserr.New("codec: decode bcd", mbuserr.InvalidEncoding)
			}
		}
		if lo >= 0xA && !hexFallback {
			return 0, mbuserr.New("codec: decode bcd", mbuserr.InvalidEncoding)
		}
		v = v*100 + int64(hi)*10 + int64(lo)
	}
	if negative {
		v = -v
	}
	return v, nil
}

// EncodeBCD packs v as little-endian BCD into n bytes. Negative values set
// the top nibble of the last byte to 0xF (the sign marker) and encode the
// magnitude in the remaining nibbles.
func EncodeBCD(v int64, n int) ([]byte, error) {
	negative := v < 0
	if negative {
		v = -v
	}
	out := make([]byte, n)
	digits := make([]byte, 0, 2*n)
	for v > 0 {
		digits = append(digits, byte(v%10))
		v /= 10
	}
	maxDigits := 2 * n
	if negative {
		maxDigits--
	}
	if len(digits) > maxDigits {
		return nil, mbuserr.New("codec: encode bcd", mbuserr.OutOfRange)
	}
	for len(digits) < 2*n {
		digits = append(digits, 0)
	}
	if negative {
		digits[2*n-1] = 0xF
	}
	for i := 0; i < n; i++ {
		out[i] = digits[2*i] | digits[2*i+1]<<4
	}
	return out, nil
}
