package record

import "github.com/jfabienke/mbuscrate/mbuserr"

const maxCustomVIFLen = 16

// customVIF is the primary VIF value (without extension bit) that
// introduces a manufacturer-defined ASCII unit string (spec §4.C).
const customVIF = 0x7C

// VIB is the decoded Value Information Block: the primary VIF byte, any
// VIFE extensions, and the custom VIF string when VIF == 0x7C.
type VIB struct {
	VIF       byte
	VIFE      []byte
	CustomVIF string
}

// parseVIB reads the VIF/VIFE chain (and optional custom VIF string)
// starting at b[0] and returns the decoded block plus bytes consumed.
func parseVIB(b []byte, customVIFCap int) (VIB, int, error) {
	if len(b) == 0 {
		return VIB{}, 0, mbuserr.New("record: parse vib", mbuserr.PrematureEnd)
	}
	vif := b[0]
	n := 1
	vib := VIB{VIF: vif}

	if vif&0x7F == customVIF {
		if n >= len(b) {
			return VIB{}, 0, mbuserr.New("record: parse vib", mbuserr.PrematureEnd)
		}
		strLen := int(b[n])
		n++
		if customVIFCap <= 0 {
			customVIFCap = maxCustomVIFLen
		}
		if strLen > customVIFCap {
			return VIB{}, 0, mbuserr.New("record: parse vib", mbuserr.OutOfRange)
		}
		if n+strLen > len(b) {
			return VIB{}, 0, mbuserr.New("record: parse vib", mbuserr.PrematureEnd)
		}
		vib.CustomVIF = string(b[n : n+strLen])
		n += strLen
	}

	extCount := 0
	more := vif&0x80 != 0
	for more {
		if extCount >= maxExtensions {
			return VIB{}, 0, mbuserr.New("record: parse vib", mbuserr.ChainTooLong)
		}
		if n >= len(b) {
			return VIB{}, 0, mbuserr.New("record: parse vib", mbuserr.PrematureEnd)
		}
		vife := b[n]
		n++
		vib.VIFE = append(vib.VIFE, vife)
		more = vife&0x80 != 0
		extCount++
	}
	return vib, n, nil
}
