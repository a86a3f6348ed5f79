package radio

import (
	"context"
	"time"

	"github.com/jfabienke/mbuscrate/hal"
	"github.com/jfabienke/mbuscrate/mbuserr"
)

// maxFIFOLen is the SX126x's 256-byte data buffer, minus the opcode byte.
const maxFIFOLen = 255

// FIFOBuffer is the concrete Receiver/Transmitter backing a Driver's RX
// and TX paths: it reads and writes the chip's data buffer over SPI using
// ReadBuffer/WriteBuffer (spec §4.G buffer commands). Frames on the air
// are L-field delimited (spec §3), so the first buffer byte is always the
// frame's length byte and determines how much of the buffer is the frame.
type FIFOBuffer struct {
	hal     hal.HAL
	timeout time.Duration
}

// NewFIFOBuffer constructs a FIFOBuffer bound to h, using timeout as the
// BUSY-wait bound for its buffer commands (0 selects the package default).
func NewFIFOBuffer(h hal.HAL, timeout time.Duration) *FIFOBuffer {
	if timeout <= 0 {
		timeout = defaultBusyTimeout
	}
	return &FIFOBuffer{hal: h, timeout: timeout}
}

// ReadPayload reads the buffer starting at offset 0 and trims it to the
// length named by the frame's own L-field byte. The first response byte
// is the chip status clocked out ahead of the data, same as GetIrqStatus.
func (b *FIFOBuffer) ReadPayload(ctx context.Context) ([]byte, error) {
	resp, err := command(ctx, b.hal, b.timeout, false, opReadBuffer, []byte{0x00}, maxFIFOLen)
	if err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return nil, mbuserr.New("radio: read buffer", mbuserr.ShortInput)
	}
	data := resp[1:]
	total := int(data[0]) + 1
	if total > len(data) {
		return nil, mbuserr.New("radio: read buffer", mbuserr.ShortInput)
	}
	return data[:total], nil
}

// WritePayload resets the buffer base address to 0 and writes payload
// starting there, ready for a subsequent SetTx.
func (b *FIFOBuffer) WritePayload(ctx context.Context, payload []byte) error {
	if len(payload) > maxFIFOLen {
		return mbuserr.New("radio: write buffer", mbuserr.PayloadTooLong)
	}
	if _, err := command(ctx, b.hal, b.timeout, false, opSetBufferBaseAddr, []byte{0x00, 0x00}, 0); err != nil {
		return err
	}
	params := make([]byte, 1+len(payload))
	params[0] = 0x00
	copy(params[1:], payload)
	_, err := command(ctx, b.hal, b.timeout, false, opWriteBuffer, params, 0)
	return err
}
