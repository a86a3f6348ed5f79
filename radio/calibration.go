package radio

import "math"

// calibrationBand names the image-calibration frequency table entries
// the datasheet defines per target band (spec §4.G).
type calibrationBand struct {
	loMHz, hiMHz float64
	calLo, calHi byte
}

// bandTables covers the SRD860 band used by wM-Bus; additional bands can
// be appended without touching callers.
var bandTables = []calibrationBand{
	{863, 870, 0x6B, 0x6F},
}

func imageCalBytes(freqHz float64) (lo, hi byte, ok bool) {
	mhz := freqHz / 1e6
	for _, b := range bandTables {
		if mhz >= b.loMHz && mhz <= b.hiMHz {
			return b.calLo, b.calHi, true
		}
	}
	return 0, 0, false
}

// needsCalibration reports whether a retune from prevHz to newHz changes
// frequency by more than 5%, the threshold spec §4.G mandates, or
// whether this is the first tune (prevHz == 0, i.e. power-up).
func needsCalibration(prevHz, newHz float64) bool {
	if prevHz == 0 {
		return true
	}
	delta := math.Abs(newHz-prevHz) / prevHz
	return delta > 0.05
}

// needsRetune reports whether a reported AFC error exceeds the 50 ppm
// threshold spec §4.G mandates.
func needsRetune(afcErrorPpm float64) bool {
	return math.Abs(afcErrorPpm) > 50
}
