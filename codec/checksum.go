package codec

// Checksum8 computes the wired-frame checksum (spec §3/§4.A): the
// arithmetic sum of the given bytes, modulo 256.
func Checksum8(b []byte) byte {
	var sum byte
	for _, by := range b {
		sum += by
	}
	return sum
}
