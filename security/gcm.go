package security

import (
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
)

// The standard library's cipher.AEAD always verifies a full 16-byte GCM
// tag, but OMS mode 9 truncates it (spec §4.E). gcmSealTrunc/gcmOpenTrunc reimplement the
// NIST SP 800-38D construction directly over the AES block cipher so the
// tag can be computed and compared at any length.

type gcmState struct {
	block cipher.Block
	h     [16]byte
}

func newGCMState(block cipher.Block) gcmState {
	var h [16]byte
	block.Encrypt(h[:], h[:])
	return gcmState{block: block, h: h}
}

// j0 computes the initial counter block for a 96-bit IV (spec §4.E fixes
// the IV length at 12 bytes, the common GCM case): IV || 0^31 || 1.
func j0(iv []byte) [16]byte {
	var j [16]byte
	copy(j[:12], iv)
	j[15] = 1
	return j
}

func incr32(ctr *[16]byte) {
	c := binary.BigEndian.Uint32(ctr[12:])
	c++
	binary.BigEndian.PutUint32(ctr[12:], c)
}

func gctr(block cipher.Block, icb [16]byte, in []byte) []byte {
	out := make([]byte, len(in))
	ctr := icb
	var ks [16]byte
	for off := 0; off < len(in); off += 16 {
		block.Encrypt(ks[:], ctr[:])
		end := min(off+16, len(in))
		for i := off; i < end; i++ {
			out[i] = in[i] ^ ks[i-off]
		}
		incr32(&ctr)
	}
	return out
}

// gf128Mul multiplies x and y in GF(2^128) per the GHASH reduction
// polynomial (SP 800-38D §6.3).
func gf128Mul(x, y [16]byte) [16]byte {
	var z, v [16]byte
	copy(v[:], y[:])
	for i := 0; i < 128; i++ {
		byteIdx, bitIdx := i/8, 7-(i%8)
		if x[byteIdx]&(1<<uint(bitIdx)) != 0 {
			for b := 0; b < 16; b++ {
				z[b] ^= v[b]
			}
		}
		lsb := v[15] & 1
		for b := 15; b > 0; b-- {
			v[b] = v[b]>>1 | (v[b-1]&1)<<7
		}
		v[0] >>= 1
		if lsb != 0 {
			v[0] ^= 0xE1
		}
	}
	return z
}

func ghash(h [16]byte, aad, data []byte) [16]byte {
	var y [16]byte
	absorb := func(block []byte) {
		var x [16]byte
		copy(x[:], block)
		for i := range y {
			y[i] ^= x[i]
		}
		y = gf128Mul(y, h)
	}
	for off := 0; off < len(aad); off += 16 {
		absorb(aad[off:min(off+16, len(aad))])
	}
	for off := 0; off < len(data); off += 16 {
		absorb(data[off:min(off+16, len(data))])
	}
	var lenBlock [16]byte
	binary.BigEndian.PutUint64(lenBlock[0:8], uint64(len(aad))*8)
	binary.BigEndian.PutUint64(lenBlock[8:16], uint64(len(data))*8)
	absorb(lenBlock[:])
	return y
}

// gcmSealTrunc encrypts plaintext and returns the ciphertext plus the
// full 16-byte authentication tag; callers truncate as needed.
func gcmSealTrunc(block cipher.Block, iv, aad, plaintext []byte) (ciphertext, tag []byte) {
	st := newGCMState(block)
	j := j0(iv)
	jPlus1 := j
	incr32(&jPlus1)
	ciphertext = gctr(block, jPlus1, plaintext)
	s := ghash(st.h, aad, ciphertext)
	var e0 [16]byte
	block.Encrypt(e0[:], j[:])
	for i := range s {
		s[i] ^= e0[i]
	}
	return ciphertext, s[:]
}

// gcmOpenTrunc decrypts ciphertext and verifies it against a
// (possibly truncated) tag in constant time.
func gcmOpenTrunc(block cipher.Block, iv, aad, ciphertext, tag []byte) ([]byte, bool) {
	_, fullTag := gcmSealTrunc(block, iv, aad, gctrInverse(block, iv, ciphertext))
	if subtle.ConstantTimeCompare(fullTag[:len(tag)], tag) != 1 {
		return nil, false
	}
	return gctrInverse(block, iv, ciphertext), true
}

// gctrInverse undoes gctr; GCTR is its own inverse (it is a keystream
// XOR), so decryption and encryption share the same code path.
func gctrInverse(block cipher.Block, iv, data []byte) []byte {
	j := j0(iv)
	incr32(&j)
	return gctr(block, j, data)
}
