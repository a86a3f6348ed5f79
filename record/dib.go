// Package record implements the EN 13757-3 variable data record engine:
// DIF/DIFE/VIF/VIFE chain parsing and value normalization via the VIF
// table (spec §4.C).
package record

import "github.com/jfabienke/mbuscrate/mbuserr"

const maxExtensions = 10

// Function is the DIF function field (spec §3, §4.C).
type Function int

const (
	Instant Function = iota
	Max
	Min
	ErrorState
)

// DIB is the decoded Data Information Block: the primary DIF byte plus up
// to 10 DIFE extension bytes.
type DIB struct {
	DataFieldCode byte
	Function      Function
	Storage       uint64
	Tariff        uint64
	Device        uint64
	MoreFollows   bool // DIF == 0x1F
	Manufacturer  bool // DIF == 0x0F
}

// parseDIB reads the DIF/DIFE chain starting at b[0] and returns the
// decoded header plus the number of bytes consumed.
func parseDIB(b []byte) (DIB, int, error) {
	if len(b) == 0 {
		return DIB{}, 0, mbuserr.New("record: parse dib", mbuserr.PrematureEnd)
	}
	dif := b[0]
	n := 1

	dib := DIB{
		DataFieldCode: dif & 0x0F,
		Function:      Function((dif >> 4) & 0x03),
		Storage:       uint64((dif >> 6) & 0x01),
	}

	switch dif & 0x7F {
	case 0x0F:
		dib.Manufacturer = true
		return dib, n, nil
	case 0x1F:
		dib.MoreFollows = true
		return dib, n, nil
	}

	extCount := 0
	more := dif&0x80 != 0
	for more {
		if extCount >= maxExtensions {
			return DIB{}, 0, mbuserr.New("record: parse dib", mbuserr.ChainTooLong)
		}
		if n >= len(b) {
			return DIB{}, 0, mbuserr.New("record: parse dib", mbuserr.PrematureEnd)
		}
		dife := b[n]
		n++
		dib.Storage |= uint64(dife&0x0F) << (1 + 4*extCount)
		dib.Tariff |= uint64((dife>>4)&0x03) << (2 * extCount)
		dib.Device |= uint64((dife>>6)&0x01) << extCount
		more = dife&0x80 != 0
		extCount++
	}
	return dib, n, nil
}

// nominalLength maps a data-field code (0x0..0xF) to its fixed byte length
// (spec §4.C). Code 0xD (variable length) returns -1; the caller must
// consult the LVAR byte.
func nominalLength(code byte) int {
	switch code {
	case 0x0:
		return 0
	case 0x1:
		return 1
	case 0x2:
		return 2
	case 0x3:
		return 3
	case 0x4:
		return 4
	case 0x5:
		return 4 // real (float32)
	case 0x6:
		return 6
	case 0x7:
		return 8
	case 0x8:
		return 0 // selection for readout, no data
	case 0x9:
		return 1 // 2-digit BCD
	case 0xA:
		return 2 // 4-digit BCD
	case 0xB:
		return 3 // 6-digit BCD
	case 0xC:
		return 4 // 8-digit BCD
	case 0xD:
		return -1 // variable (LVAR)
	case 0xE:
		return 6 // 12-digit BCD
	case 0xF:
		return 8 // special function / 16-digit BCD
	default:
		return -1
	}
}

// decodeLVAR reads the variable-length encoding rules of spec §4.C/§6 from
// the LVAR byte and returns the data length in bytes.
func decodeLVAR(v byte) (int, error) {
	switch {
	case v <= 0xBF:
		return int(v), nil
	case v <= 0xCF:
		return 2 * int(v-0xC0), nil
	case v <= 0xDF:
		return 2 * int(v-0xD0), nil
	case v <= 0xEF:
		return int(v - 0xE0), nil
	case v <= 0xFA:
		return int(v - 0xF0), nil
	default:
		return 0, mbuserr.New("record: decode lvar", mbuserr.InvalidDataField)
	}
}
