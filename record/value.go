package record

import (
	"math"

	"github.com/jfabienke/mbuscrate/codec"
)

// Value is a normalized data-record value: either a scalar (quantity, unit,
// number scaled by the VIF exponent and any VIFE corrections) or a time
// point (spec §4.C).
type Value struct {
	Quantity Quantity
	Unit     string
	Number   float64
	Time     codec.Time
	IsTime   bool
	Raw      []byte
}

// vifeCorrection applies the multiplicative/additive correction codes
// carried as VIFE bytes (spec §4.C): 0x70-0x77 multiply by 10^(n-6),
// 0x78-0x7B add 10^(n-3), 0x7D multiplies by 1000.
func applyVIFECorrections(v float64, vife []byte) float64 {
	for _, b := range vife {
		code := b & 0x7F
		switch {
		case code >= 0x70 && code <= 0x77:
			v *= math.Pow10(int(code-0x70) - 6)
		case code >= 0x78 && code <= 0x7B:
			v += math.Pow10(int(code-0x78) - 3)
		case code == 0x7D:
			v *= 1000
		}
	}
	return v
}

// decodeRaw interprets data according to the DIB's data field code,
// returning either a float64 scalar or, for the time-point codes, a
// codec.Time (spec §3, §4.A, §4.C).
func decodeRaw(code byte, data []byte, timePoint bool) (float64, codec.Time, error) {
	if timePoint {
		switch len(data) {
		case 2:
			t, err := codec.DecodeG(data)
			return 0, t, err
		case 4:
			t, err := codec.DecodeF(data)
			return 0, t, err
		default:
			t, err := codec.DecodeI(data)
			return 0, t, err
		}
	}

	switch code {
	case 0x5:
		f, err := codec.DecodeFloat32(data)
		return float64(f), codec.Time{}, err
	case 0x9, 0xA, 0xB, 0xC, 0xE:
		n, err := codec.DecodeBCD(data, false)
		return float64(n), codec.Time{}, err
	case 0x0, 0x8:
		return 0, codec.Time{}, nil
	default:
		n, err := codec.DecodeInt(data)
		return float64(n), codec.Time{}, err
	}
}

// extTableFD and extTableFB are the primary VIF codes (extension bit
// stripped) that hand the real measurand off to the following VIFE byte
// (spec §4.C): VIF=0xFD selects the FD extension table, VIF=0xFB the FB
// extension table, each addressed by the low 7 bits of the *next* VIFE.
const (
	extTableFD = 0x7D
	extTableFB = 0x7B
)

// vifKey resolves the 12-bit lookup key used by vifTable: the primary VIF
// directly for ordinary VIFs, or extBaseFD/extBaseFB combined with the
// low 7 bits of the first VIFE byte when the primary VIF is the 0xFD/0xFB
// extension-table selector (spec §4.C). It returns the key plus the
// number of leading VIFE bytes consumed as the selector (0 or 1), so
// callers don't misapply that byte as a correction code.
func vifKey(vib VIB) (key uint16, consumed int) {
	primary := vib.VIF & 0x7F
	if len(vib.VIFE) > 0 {
		switch primary {
		case extTableFD:
			return extBaseFD + uint16(vib.VIFE[0]&0x7F), 1
		case extTableFB:
			return extBaseFB + uint16(vib.VIFE[0]&0x7F), 1
		}
	}
	return uint16(primary), 0
}

// Normalize resolves a DIB/VIB pair and the raw payload bytes into a Value.
// It is the exported entry point callers outside this package use to
// materialize a value from a template learned elsewhere (spec §4.F
// compact-frame cache) without re-parsing a full DIB/VIB chain.
func Normalize(dib DIB, vib VIB, data []byte) (Value, error) {
	return normalize(dib, vib, data)
}

// normalize resolves a DIB/VIB pair and the raw payload bytes into a Value.
// Unknown VIF codes propagate quantity=="" with the raw bytes retained
// rather than an error (spec §4.C: unknown VIFs surface the raw encoding).
func normalize(dib DIB, vib VIB, data []byte) (Value, error) {
	if vib.CustomVIF != "" {
		n, _, err := decodeRaw(dib.DataFieldCode, data, false)
		if err != nil {
			return Value{}, err
		}
		return Value{Quantity: QCustom, Unit: vib.CustomVIF, Number: n, Raw: data}, nil
	}

	key, consumed := vifKey(vib)
	entry, found := lookupVIF(key)
	if !found {
		return Value{Quantity: "", Unit: "", Raw: data}, nil
	}
	corrections := vib.VIFE[consumed:]

	if entry.TimePoint {
		_, t, err := decodeRaw(dib.DataFieldCode, data, true)
		if err != nil {
			return Value{}, err
		}
		return Value{Quantity: entry.Quantity, Time: t, IsTime: true, Raw: data}, nil
	}

	n, _, err := decodeRaw(dib.DataFieldCode, data, false)
	if err != nil {
		return Value{}, err
	}
	n *= math.Pow10(entry.Exponent)
	n = applyVIFECorrections(n, corrections)
	return Value{Quantity: entry.Quantity, Unit: entry.Unit, Number: n, Raw: data}, nil
}
