package wmbus

import "github.com/jfabienke/mbuscrate/mbuserr"

// EncodeManufacturer packs a 3-letter manufacturer code (A..Z) into its
// 16-bit wire form (spec §6): ((L1-64)<<10) | ((L2-64)<<5) | (L3-64).
func EncodeManufacturer(code string) (uint16, error) {
	if len(code) != 3 {
		return 0, mbuserr.New("wmbus: encode manufacturer", mbuserr.OutOfRange)
	}
	var v uint16
	for i, shift := range [3]uint{10, 5, 0} {
		c := code[i]
		if c < 'A' || c > 'Z' {
			return 0, mbuserr.New("wmbus: encode manufacturer", mbuserr.OutOfRange)
		}
		v |= uint16(c-64) << shift
	}
	return v, nil
}

// DecodeManufacturer reverses EncodeManufacturer. Bit 15 (the hard/soft
// address discriminator) is masked off before decoding, per spec §6.
func DecodeManufacturer(v uint16) (string, error) {
	v &^= 1 << 15
	if v < 0x0421 || v > 0x6B5A {
		return "", mbuserr.New("wmbus: decode manufacturer", mbuserr.OutOfRange)
	}
	b := [3]byte{
		byte((v>>10)&0x1F) + 64,
		byte((v>>5)&0x1F) + 64,
		byte(v&0x1F) + 64,
	}
	for _, c := range b {
		if c < 'A' || c > 'Z' {
			return "", mbuserr.New("wmbus: decode manufacturer", mbuserr.OutOfRange)
		}
	}
	return string(b[:]), nil
}
