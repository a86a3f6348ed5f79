// Package security implements the OMS v4.0.4 payload security modes (spec
// §4.E): mode 5 (AES-128-CTR), mode 7 (AES-128-CBC with PKCS7), and mode 9
// (AES-128-GCM with an 11-byte AAD and truncated tag), plus the OMS
// 7.2.4.2 key derivation and access-number freshness tracking.
package security

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/jfabienke/mbuscrate/mbuserr"
)

// Mode identifies which OMS security profile applies to a frame.
type Mode int

const (
	Mode5 Mode = 5
	Mode7 Mode = 7
	Mode9 Mode = 9
)

const keyLen = 16

// DecryptMode5 reverses AES-128-CTR encryption. iv is the 16-byte
// initialization vector built from the header fields per spec §4.E
// (access number repeated, device ID, manufacturer).
func DecryptMode5(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, mbuserr.New("security: mode5 decrypt", mbuserr.OutOfRange)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCTR(block, iv).XORKeyStream(out, ciphertext)
	return out, nil
}

// EncryptMode5 is the CTR-mode inverse of DecryptMode5 (CTR is symmetric).
func EncryptMode5(key, iv, plaintext []byte) ([]byte, error) {
	return DecryptMode5(key, iv, plaintext)
}

// DecryptMode7 reverses AES-128-CBC encryption and strips PKCS7 padding
// (spec §4.E).
func DecryptMode7(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, mbuserr.New("security: mode7 decrypt", mbuserr.OutOfRange)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, mbuserr.New("security: mode7 decrypt", mbuserr.InvalidEncoding)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return unpadPKCS7(out)
}

// EncryptMode7 pads plaintext with PKCS7 and encrypts it with AES-128-CBC.
func EncryptMode7(key, iv, plaintext []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, mbuserr.New("security: mode7 encrypt", mbuserr.OutOfRange)
	}
	padded := padPKCS7(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// Mode9AADLen and Mode9IVLen are fixed by spec §4.E.
const (
	Mode9AADLen = 11
	Mode9IVLen  = 12
)

// BuildMode5IV assembles the 16-byte mode 5 CTR initialization vector from
// the frame header fields (spec §4.E): manufacturer and device ID in wire
// (little-endian) order, then version and medium, then the single-byte
// access number repeated four times, then four zero bytes.
func BuildMode5IV(manufacturer uint16, id uint32, version, medium, accessNumber byte) []byte {
	iv := make([]byte, aes.BlockSize)
	iv[0] = byte(manufacturer)
	iv[1] = byte(manufacturer >> 8)
	iv[2] = byte(id)
	iv[3] = byte(id >> 8)
	iv[4] = byte(id >> 16)
	iv[5] = byte(id >> 24)
	iv[6] = version
	iv[7] = medium
	iv[8] = accessNumber
	iv[9] = accessNumber
	iv[10] = accessNumber
	iv[11] = accessNumber
	return iv
}

// BuildMode9AAD assembles the 11-byte mode 9 GCM additional authenticated
// data (spec §4.E): the wireless block's L and C fields, manufacturer and
// device ID in wire order, then version, medium, and the access number.
func BuildMode9AAD(l, c byte, manufacturer uint16, id uint32, version, medium, accessNumber byte) []byte {
	aad := make([]byte, Mode9AADLen)
	aad[0] = l
	aad[1] = c
	aad[2] = byte(manufacturer)
	aad[3] = byte(manufacturer >> 8)
	aad[4] = byte(id)
	aad[5] = byte(id >> 8)
	aad[6] = byte(id >> 16)
	aad[7] = byte(id >> 24)
	aad[8] = version
	aad[9] = medium
	aad[10] = accessNumber
	return aad
}

// BuildMode9IV assembles the 12-byte mode 9 GCM initialization vector (spec
// §4.E): manufacturer and device ID in wire order, then the 48-bit expanded
// access-number counter (AccessNumber.Expanded), all little-endian.
func BuildMode9IV(manufacturer uint16, id uint32, accessExpanded uint64) []byte {
	iv := make([]byte, Mode9IVLen)
	iv[0] = byte(manufacturer)
	iv[1] = byte(manufacturer >> 8)
	iv[2] = byte(id)
	iv[3] = byte(id >> 8)
	iv[4] = byte(id >> 16)
	iv[5] = byte(id >> 24)
	for i := 0; i < 6; i++ {
		iv[6+i] = byte(accessExpanded >> (8 * i))
	}
	return iv
}

// DecryptMode9 authenticates and decrypts an AES-128-GCM frame. tag may be
// shorter than the full 16-byte GCM tag (spec §4.E allows truncation); the
// caller passes the truncated tag length it expects via len(tag). The
// standard library's cipher.AEAD always requires a full-length tag, so
// this reimplements GCM's GHASH/GCTR construction directly (gcm.go) to
// support truncation.
func DecryptMode9(key, iv, aad, ciphertext, tag []byte) ([]byte, error) {
	if len(iv) != Mode9IVLen {
		return nil, mbuserr.New("security: mode9 decrypt", mbuserr.OutOfRange)
	}
	if len(aad) != Mode9AADLen {
		return nil, mbuserr.New("security: mode9 decrypt", mbuserr.OutOfRange)
	}
	if len(tag) == 0 || len(tag) > aes.BlockSize {
		return nil, mbuserr.New("security: mode9 decrypt", mbuserr.OutOfRange)
	}
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	plaintext, ok := gcmOpenTrunc(block, iv, aad, ciphertext, tag)
	if !ok {
		return nil, mbuserr.New("security: mode9 decrypt", mbuserr.AuthFailure)
	}
	return plaintext, nil
}

// EncryptMode9 encrypts plaintext with AES-128-GCM and returns the
// ciphertext and a tag truncated to tagLen bytes.
func EncryptMode9(key, iv, aad, plaintext []byte, tagLen int) (ciphertext, tag []byte, err error) {
	if len(iv) != Mode9IVLen {
		return nil, nil, mbuserr.New("security: mode9 encrypt", mbuserr.OutOfRange)
	}
	if len(aad) != Mode9AADLen {
		return nil, nil, mbuserr.New("security: mode9 encrypt", mbuserr.OutOfRange)
	}
	block, err := newBlock(key)
	if err != nil {
		return nil, nil, err
	}
	ct, fullTag := gcmSealTrunc(block, iv, aad, plaintext)
	if tagLen <= 0 || tagLen > aes.BlockSize {
		tagLen = aes.BlockSize
	}
	return ct, fullTag[:tagLen], nil
}

// DeriveKey implements the OMS 7.2.4.2 key-wrap scheme: the device's
// master key XORed with a key-derivation pad P supplied out of band.
func DeriveKey(master, pad []byte) ([]byte, error) {
	if len(master) != keyLen || len(pad) != keyLen {
		return nil, mbuserr.New("security: derive key", mbuserr.OutOfRange)
	}
	out := make([]byte, keyLen)
	for i := range out {
		out[i] = master[i] ^ pad[i]
	}
	return out, nil
}

func newBlock(key []byte) (cipher.Block, error) {
	if len(key) != keyLen {
		return nil, mbuserr.New("security: new cipher", mbuserr.KeyMissing)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, mbuserr.Wrap("security: new cipher", mbuserr.InvalidEncoding, err)
	}
	return block, nil
}

func padPKCS7(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

func unpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, mbuserr.New("security: pkcs7 unpad", mbuserr.InvalidEncoding)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(data) {
		return nil, mbuserr.New("security: pkcs7 unpad", mbuserr.InvalidEncoding)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, mbuserr.New("security: pkcs7 unpad", mbuserr.InvalidEncoding)
		}
	}
	return data[:len(data)-padLen], nil
}

// AccessNumber tracks a slave's freshness counter across frames (spec
// §4.E) as a 48-bit expanded counter. Validate treats an access number
// that is not greater than the last-seen value as a wraparound at 256 and
// increments Epoch; it never rejects a frame.
type AccessNumber struct {
	Epoch uint64
	Last  byte
	seen  bool
}

// Validate checks an incoming access-number byte against the tracked
// state, expands the 48-bit counter on wraparound, and advances Last.
func (a *AccessNumber) Validate(an byte) error {
	if !a.seen {
		a.seen = true
		a.Last = an
		return nil
	}
	if an <= a.Last {
		a.Epoch++
	}
	a.Last = an
	return nil
}

// Expanded returns the monotonically increasing 48-bit counter
// (epoch*256 + an), usable as the frame counter of the mode 9 IV
// (spec §4.E).
func (a AccessNumber) Expanded() uint64 {
	return a.Epoch<<8 | uint64(a.Last)
}
