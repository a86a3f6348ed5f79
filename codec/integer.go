package codec

import "github.com/jfabienke/mbuscrate/mbuserr"

// DecodeInt decodes a little-endian two's-complement integer of 1..8 bytes,
// sign-extended from the high bit of the top byte (spec §4.A).
func DecodeInt(b []byte) (int64, error) {
	n := len(b)
	if n < 1 || n > 8 {
		return 0, mbuserr.New("codec: decode int", mbuserr.OutOfRange)
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	signBit := b[n-1]&0x80 != 0
	if signBit && n < 8 {
		// Sign-extend into the unused high bytes.
		for i := n; i < 8; i++ {
			v |= 0xFF << (8 * i)
		}
	}
	return int64(v), nil
}

// EncodeInt packs v as a little-endian two's-complement integer of n bytes.
func EncodeInt(v int64, n int) ([]byte, error) {
	if n < 1 || n > 8 {
		return nil, mbuserr.New("codec: encode int", mbuserr.OutOfRange)
	}
	if n < 8 {
		lo := -(int64(1) << (8*n - 1))
		hi := int64(1)<<(8*n-1) - 1
		if v < lo || v > hi {
			return nil, mbuserr.New("codec: encode int", mbuserr.OutOfRange)
		}
	}
	u := uint64(v)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = byte(u)
		u >>= 8
	}
	return out, nil
}

// DecodeUint decodes a little-endian unsigned integer of 1..8 bytes. Used
// for fields that the data-field code marks unsigned-in-context (e.g.
// manufacturer-specific selection fields).
func DecodeUint(b []byte) (uint64, error) {
	n := len(b)
	if n < 1 || n > 8 {
		return 0, mbuserr.New("codec: decode uint", mbuserr.OutOfRange)
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}
