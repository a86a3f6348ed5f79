package record

import "github.com/jfabienke/mbuscrate/mbuserr"

// fillerByte (DIF 0x2F) pads a telegram to a fixed length and carries no
// data (spec §4.C).
const fillerByte = 0x2F

// Record is one fully-decoded data record: its DIB/VIB headers plus the
// normalized value.
type Record struct {
	DIB   DIB
	VIB   VIB
	Value Value
}

// Chain is the result of parsing a telegram's data-record sequence:
// zero or more Records, plus an optional manufacturer-specific tail
// (DIF 0x0F) and a flag when the last DIF (0x1F) signals more records in
// a following telegram (spec §4.C).
type Chain struct {
	Records      []Record
	Manufacturer []byte
	MoreFollows  bool
}

// Parse walks b applying the algorithm of spec §4.C: skip filler bytes,
// decode a DIB, decode a VIB, consume the nominal (or LVAR) data length,
// normalize the value, and repeat until input is exhausted or a
// manufacturer-specific/more-follows DIF is seen.
func Parse(b []byte) (Chain, error) {
	var chain Chain
	i := 0
	for i < len(b) {
		if b[i] == fillerByte {
			i++
			continue
		}

		dib, dn, err := parseDIB(b[i:])
		if err != nil {
			return Chain{}, mbuserr.Wrap("record: parse chain", mbuserr.InvalidDataField, err)
		}
		i += dn

		if dib.Manufacturer {
			chain.Manufacturer = append([]byte(nil), b[i:]...)
			return chain, nil
		}
		if dib.MoreFollows {
			chain.Manufacturer = append([]byte(nil), b[i:]...)
			chain.MoreFollows = true
			return chain, nil
		}

		vib, vn, err := parseVIB(b[i:], 0)
		if err != nil {
			return Chain{}, mbuserr.Wrap("record: parse chain", mbuserr.InvalidDataField, err)
		}
		i += vn

		dataLen := nominalLength(dib.DataFieldCode)
		if dataLen < 0 {
			if i >= len(b) {
				return Chain{}, mbuserr.New("record: parse chain", mbuserr.PrematureEnd)
			}
			n, err := decodeLVAR(b[i])
			if err != nil {
				return Chain{}, mbuserr.Wrap("record: parse chain", mbuserr.InvalidDataField, err)
			}
			i++
			dataLen = n
		}
		if i+dataLen > len(b) {
			return Chain{}, mbuserr.New("record: parse chain", mbuserr.PrematureEnd)
		}
		data := b[i : i+dataLen]
		i += dataLen

		val, err := normalize(dib, vib, data)
		if err != nil {
			return Chain{}, mbuserr.Wrap("record: parse chain", mbuserr.InvalidEncoding, err)
		}

		chain.Records = append(chain.Records, Record{DIB: dib, VIB: vib, Value: val})
	}
	return chain, nil
}
