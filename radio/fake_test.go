package radio

import (
	"context"
	"time"

	"github.com/jfabienke/mbuscrate/hal"
)

// fakeHAL is a minimal scripted HAL: BUSY always reads low (not busy),
// and every command gets a zero-filled response unless the test
// pre-loads one via respQueue.
type fakeHAL struct {
	busy       bool
	irqSignal  chan struct{}
	txLog      [][]byte
	respQueue  [][]byte
}

func newFakeHAL() *fakeHAL {
	return &fakeHAL{irqSignal: make(chan struct{}, 4)}
}

func (f *fakeHAL) SPIXfer(ctx context.Context, tx, rx []byte) error {
	f.txLog = append(f.txLog, append([]byte(nil), tx...))
	if len(tx) > 0 && tx[0] == byte(opGetIrqStatus) && len(f.respQueue) > 0 {
		resp := f.respQueue[0]
		f.respQueue = f.respQueue[1:]
		copy(rx[1:], resp)
	}
	return nil
}

func (f *fakeHAL) GPIORead(pin hal.Pin) (bool, error) {
	if pin == hal.PinBusy {
		return f.busy, nil
	}
	return false, nil
}

func (f *fakeHAL) GPIOWrite(pin hal.Pin, level bool) error { return nil }

func (f *fakeHAL) DelayUs(n int) {}

func (f *fakeHAL) WaitForIRQ(timeout time.Duration) error {
	select {
	case <-f.irqSignal:
		return nil
	case <-time.After(timeout):
		return hal.ErrTimeout
	}
}

// queueIRQStatus arranges for the next GetIrqStatus command to report
// status, formatted as the 3-byte response (chip status + IRQ status hi/lo)
// the driver's getIRQStatus expects.
func (f *fakeHAL) queueIRQStatus(status uint16) {
	f.respQueue = append(f.respQueue, []byte{0x00, byte(status >> 8), byte(status)})
	f.irqSignal <- struct{}{}
}

type fakeReceiver struct {
	payload []byte
	err     error
}

func (r fakeReceiver) ReadPayload(ctx context.Context) ([]byte, error) { return r.payload, r.err }

type fakeTransmitter struct {
	written []byte
}

func (t *fakeTransmitter) WritePayload(ctx context.Context, payload []byte) error {
	t.written = payload
	return nil
}

type fakeRSSI struct {
	dbm float64
	err error
}

func (f fakeRSSI) SampleRSSI() (float64, error) { return f.dbm, f.err }

type fakeSleeper struct{ slept []time.Duration }

func (f *fakeSleeper) Sleep(d time.Duration) { f.slept = append(f.slept, d) }
