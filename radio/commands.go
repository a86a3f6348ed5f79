package radio

import (
	"context"
	"time"

	"github.com/jfabienke/mbuscrate/hal"
	"github.com/jfabienke/mbuscrate/mbuserr"
)

// opcode is one SX126x-class command byte (spec §4.G: "issued as
// opcode+parameters over SPI").
type opcode byte

const (
	opSetStandby       opcode = 0x80
	opSetRx            opcode = 0x82
	opSetTx            opcode = 0x83
	opSetSleep         opcode = 0x84
	opSetRfFrequency   opcode = 0x86
	opCalibrateImage   opcode = 0x98
	opGetStatus        opcode = 0xC0
	opWriteBuffer      opcode = 0x0E
	opReadBuffer       opcode = 0x1E
	opSetPacketParams  opcode = 0x8C
	opSetModulation    opcode = 0x8B
	opSetBufferBaseAddr opcode = 0x8F
	opSetDio1IrqParams opcode = 0x08
	opGetIrqStatus     opcode = 0x12
	opClearIrqStatus   opcode = 0x02
	opSetRegulatorMode opcode = 0x96
)

// defaultBusyTimeout is the default bound on waiting for BUSY to go low before a
// command (spec §4.G).
const defaultBusyTimeout = 100 * time.Millisecond

// busyWait polls the BUSY pin until it reads low or timeout elapses.
// GetStatus/GetIrqStatus are exempt per spec and must not call this.
func busyWait(h hal.HAL, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultBusyTimeout
	}
	deadline := time.Now().Add(timeout)
	for {
		busy, err := h.GPIORead(hal.PinBusy)
		if err != nil {
			return mbuserr.Wrap("radio: busy wait", mbuserr.SpiError, err)
		}
		if !busy {
			return nil
		}
		if time.Now().After(deadline) {
			return mbuserr.New("radio: busy wait", mbuserr.BusyTimeout)
		}
		h.DelayUs(50)
	}
}

// command issues opcode+params over SPI and returns any response bytes
// (len(resp) determines how many bytes are clocked back). It waits for
// BUSY low first, per spec §4.G, unless skipBusyWait is set (for
// GetStatus/GetIrqStatus).
func command(ctx context.Context, h hal.HAL, timeout time.Duration, skipBusyWait bool, op opcode, params []byte, respLen int) ([]byte, error) {
	if !skipBusyWait {
		if err := busyWait(h, timeout); err != nil {
			return nil, err
		}
	}
	tx := make([]byte, 1+len(params)+respLen)
	tx[0] = byte(op)
	copy(tx[1:], params)
	rx := make([]byte, len(tx))
	if err := h.SPIXfer(ctx, tx, rx); err != nil {
		return nil, mbuserr.Wrap("radio: command", mbuserr.SpiError, err)
	}
	if respLen == 0 {
		return nil, nil
	}
	return rx[1+len(params):], nil
}
