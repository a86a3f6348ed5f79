package record

// Quantity labels the physical quantity a VIF entry encodes.
type Quantity string

const (
	QEnergy         Quantity = "energy"
	QVolume         Quantity = "volume"
	QMass           Quantity = "mass"
	QOnTime         Quantity = "on-time"
	QOperatingTime  Quantity = "operating-time"
	QPower          Quantity = "power"
	QVolumeFlow     Quantity = "volume-flow"
	QMassFlow       Quantity = "mass-flow"
	QFlowTemp       Quantity = "flow-temperature"
	QReturnTemp     Quantity = "return-temperature"
	QTempDiff       Quantity = "temperature-difference"
	QExternalTemp   Quantity = "external-temperature"
	QPressure       Quantity = "pressure"
	QHCA            Quantity = "hca"
	QDate           Quantity = "date"
	QDateTime       Quantity = "date-time"
	QCustom         Quantity = "custom"
	QWildcard       Quantity = "wildcard"
	QManufacturer   Quantity = "manufacturer-specific"
	QFabricationNum Quantity = "fabrication-number"
)

// VIFEntry is one row of the value-information table (spec §4.C): the
// unit string, the physical quantity, and the decimal exponent applied to
// the raw integer/BCD/float value.
type VIFEntry struct {
	Unit     string
	Quantity Quantity
	Exponent int
	// TimePoint is true for VIFs whose value is a date/time rather than a
	// scalar (0x6C/0x6D).
	TimePoint bool
}

// vifTable maps a 12-bit key to its entry. Primary VIFs (0x00-0x7F) occupy
// keys 0x000-0x07F directly; the extension tables introduced by VIF
// 0xFD/0xFB occupy bases 0x100 and 0x200 respectively (spec §4.C).
var vifTable = buildVIFTable()

const (
	extBaseFD = 0x100
	extBaseFB = 0x200
)

func buildVIFTable() map[uint16]VIFEntry {
	t := make(map[uint16]VIFEntry, 160)

	addGroup := func(base byte, count int, unit string, q Quantity, expOffset int) {
		for n := 0; n < count; n++ {
			t[uint16(base)+uint16(n)] = VIFEntry{Unit: unit, Quantity: q, Exponent: n - expOffset}
		}
	}

	addGroup(0x00, 8, "Wh", QEnergy, 3)
	addGroup(0x08, 8, "J", QEnergy, 0)
	addGroup(0x10, 8, "m3", QVolume, 6)
	addGroup(0x18, 8, "kg", QMass, 3)

	onTimeUnits := []string{"seconds", "minutes", "hours", "days"}
	for n, u := range onTimeUnits {
		t[uint16(0x20+n)] = VIFEntry{Unit: u, Quantity: QOnTime, Exponent: 0}
		t[uint16(0x24+n)] = VIFEntry{Unit: u, Quantity: QOperatingTime, Exponent: 0}
	}

	addGroup(0x28, 8, "W", QPower, 3)
	addGroup(0x30, 8, "J/h", QPower, 0)
	addGroup(0x38, 8, "m3/h", QVolumeFlow, 6)
	addGroup(0x40, 8, "m3/min", QVolumeFlow, 7)
	addGroup(0x48, 8, "m3/s", QVolumeFlow, 9)
	addGroup(0x50, 8, "kg/h", QMassFlow, 3)
	addGroup(0x58, 4, "C", QFlowTemp, 3)
	addGroup(0x5C, 4, "C", QReturnTemp, 3)
	addGroup(0x60, 4, "K", QTempDiff, 3)
	addGroup(0x64, 4, "C", QExternalTemp, 3)
	addGroup(0x68, 4, "bar", QPressure, 3)

	t[0x6C] = VIFEntry{Unit: "", Quantity: QDate, TimePoint: true}
	t[0x6D] = VIFEntry{Unit: "", Quantity: QDateTime, TimePoint: true}
	t[0x6E] = VIFEntry{Unit: "", Quantity: QHCA, Exponent: 0}
	t[0x78] = VIFEntry{Unit: "", Quantity: QFabricationNum, Exponent: 0}
	t[0x7C] = VIFEntry{Unit: "", Quantity: QCustom, Exponent: 0}
	t[0x7E] = VIFEntry{Unit: "", Quantity: QWildcard, Exponent: 0}
	t[0x7F] = VIFEntry{Unit: "", Quantity: QManufacturer, Exponent: 0}

	// FD extension table (base 0x100): second-order quantities such as
	// credit/debit, date of manufacture, and dimensionless error codes.
	// A representative subset is modeled; a record with an unmodeled code
	// keeps its raw bytes and an empty quantity, without an error.
	addGroupExt := func(extBase uint16, relBase byte, count int, unit string, q Quantity, expOffset int) {
		for n := 0; n < count; n++ {
			t[extBase+uint16(relBase)+uint16(n)] = VIFEntry{Unit: unit, Quantity: q, Exponent: n - expOffset}
		}
	}
	addGroupExt(extBaseFD, 0x00, 4, "credit", QEnergy, 3)
	addGroupExt(extBaseFD, 0x04, 4, "debit", QEnergy, 3)

	// FB extension table (base 0x200): extended energy/volume ranges.
	addGroupExt(extBaseFB, 0x00, 2, "MWh", QEnergy, 1)
	addGroupExt(extBaseFB, 0x08, 2, "GJ", QEnergy, 1)
	addGroupExt(extBaseFB, 0x10, 2, "m3", QVolume, 2)

	return t
}

// lookupVIF resolves a table key to its entry and a found flag. The key
// folds in the extension-table base selected by a VIF of 0xFD or 0xFB
// (spec §4.C); vifKey in value.go computes it from a VIB.
func lookupVIF(key uint16) (VIFEntry, bool) {
	e, ok := vifTable[key]
	return e, ok
}
