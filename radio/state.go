// Package radio implements the SX126x-class driver state machine (spec
// §4.G): command sequencing over the hal.HAL contract, IRQ processing,
// RX/TX transitions, time-on-air, duty-cycle accounting, Listen-Before-
// Talk, and calibration.
package radio

// State is the chip's operating state. Numeric values are contractual
// (spec §4.G, §8) and must match the datasheet's own encoding.
type State int

const (
	Sleep       State = 0
	StandbyRc   State = 2
	StandbyXosc State = 3
	Fs          State = 4
	Rx          State = 5
	Tx          State = 6
)

func (s State) String() string {
	switch s {
	case Sleep:
		return "Sleep"
	case StandbyRc:
		return "StandbyRc"
	case StandbyXosc:
		return "StandbyXosc"
	case Fs:
		return "Fs"
	case Rx:
		return "Rx"
	case Tx:
		return "Tx"
	default:
		return "Unknown"
	}
}
