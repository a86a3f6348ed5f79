package codec

import "github.com/jfabienke/mbuscrate/mbuserr"

// threeOfSixTable maps each 4-bit nibble to its 6-bit "3-out-of-6" chip
// group (spec §4.A), the line code used by wM-Bus mode T. Every codeword
// below has exactly three of its six bits set, giving the receiver a
// built-in single-error detector.
var threeOfSixTable = [16]byte{
	0x16, 0x0D, 0x0E, 0x0B,
	0x1C, 0x19, 0x1A, 0x13,
	0x2C, 0x25, 0x26, 0x23,
	0x34, 0x31, 0x32, 0x29,
}

var threeOfSixDecode map[byte]byte

func init() {
	threeOfSixDecode = make(map[byte]byte, len(threeOfSixTable))
	for nibble, code := range threeOfSixTable {
		threeOfSixDecode[code] = byte(nibble)
	}
}

// EncodeThreeOfSix encodes a single nibble (0..15) into its 6-bit chip
// group, returned in the low 6 bits of the result.
func EncodeThreeOfSix(nibble byte) (byte, error) {
	if nibble > 0x0F {
		return 0, mbuserr.New("codec: encode 3-of-6", mbuserr.OutOfRange)
	}
	return threeOfSixTable[nibble], nil
}

// DecodeThreeOfSix maps a 6-bit chip group (in the low 6 bits of code) back
// to its 4-bit nibble. A chip group lacking exactly three set bits, or not
// present in the table, fails with InvalidEncoding.
func DecodeThreeOfSix(code byte) (byte, error) {
	code &= 0x3F
	if popcount6(code) != 3 {
		return 0, mbuserr.New("codec: decode 3-of-6", mbuserr.InvalidEncoding)
	}
	nibble, ok := threeOfSixDecode[code]
	if !ok {
		return 0, mbuserr.New("codec: decode 3-of-6", mbuserr.InvalidEncoding)
	}
	return nibble, nil
}

func popcount6(b byte) int {
	n := 0
	for i := 0; i < 6; i++ {
		if b&(1<<i) != 0 {
			n++
		}
	}
	return n
}

// DecodeThreeOfSixBytes decodes a stream of 3-of-6 chip groups, one 6-bit
// group in the low 6 bits of each input byte, into nibbles, and packs each
// pair (high nibble first) into one output byte. Used for mode T payload
// recovery.
func DecodeThreeOfSixBytes(chips []byte) ([]byte, error) {
	if len(chips)%2 != 0 {
		return nil, mbuserr.New("codec: decode 3-of-6 stream", mbuserr.ShortInput)
	}
	out := make([]byte, len(chips)/2)
	for i := 0; i < len(chips); i += 2 {
		hi, err := DecodeThreeOfSix(chips[i])
		if err != nil {
			return nil, err
		}
		lo, err := DecodeThreeOfSix(chips[i+1])
		if err != nil {
			return nil, err
		}
		out[i/2] = hi<<4 | lo
	}
	return out, nil
}

// ManchesterEncode encodes data using Manchester line coding (mode S),
// where each data bit 1 -> "10" and 0 -> "01", producing a bit stream
// twice as long packed MSB-first into the returned bytes.
func ManchesterEncode(data []byte) []byte {
	out := make([]byte, len(data)*2)
	for i, b := range data {
		var hi, lo byte
		for bit := 0; bit < 8; bit++ {
			v := (b >> (7 - bit)) & 1
			var sym byte
			if v == 1 {
				sym = 0b10
			} else {
				sym = 0b01
			}
			if bit < 4 {
				hi = hi<<2 | sym
			} else {
				lo = lo<<2 | sym
			}
		}
		out[i*2] = hi
		out[i*2+1] = lo
	}
	return out
}

// ManchesterDecode reverses ManchesterEncode. len(encoded) must be even;
// any 2-bit symbol other than 0b10/0b01 fails with InvalidEncoding.
func ManchesterDecode(encoded []byte) ([]byte, error) {
	if len(encoded)%2 != 0 {
		return nil, mbuserr.New("codec: manchester decode", mbuserr.ShortInput)
	}
	out := make([]byte, len(encoded)/2)
	for i := 0; i < len(out); i++ {
		hi, lo := encoded[i*2], encoded[i*2+1]
		var b byte
		for shift := 6; shift >= 0; shift -= 2 {
			sym := (hi >> shift) & 0b11
			bit, err := manchesterBit(sym)
			if err != nil {
				return nil, err
			}
			b = b<<1 | bit
		}
		for shift := 6; shift >= 0; shift -= 2 {
			sym := (lo >> shift) & 0b11
			bit, err := manchesterBit(sym)
			if err != nil {
				return nil, err
			}
			b = b<<1 | bit
		}
		out[i] = b
	}
	return out, nil
}

func manchesterBit(sym byte) (byte, error) {
	switch sym {
	case 0b10:
		return 1, nil
	case 0b01:
		return 0, nil
	default:
		return 0, mbuserr.New("codec: manchester decode", mbuserr.InvalidEncoding)
	}
}
