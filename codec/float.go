package codec

import (
	"encoding/binary"
	"math"

	"github.com/jfabienke/mbuscrate/mbuserr"
)

// DecodeFloat32 decodes an IEEE-754 binary32 from 4 little-endian bytes.
func DecodeFloat32(b []byte) (float32, error) {
	if len(b) != 4 {
		return 0, mbuserr.New("codec: decode float32", mbuserr.ShortInput)
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// EncodeFloat32 packs f as an IEEE-754 binary32 into 4 little-endian bytes.
func EncodeFloat32(f float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
	return b
}
