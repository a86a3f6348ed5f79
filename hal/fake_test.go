package hal

import (
	"context"
	"testing"
	"time"
)

// fakeHAL is a minimal in-memory HAL used by this package's tests; package
// radio's tests define their own scripted fake.
type fakeHAL struct {
	pins map[Pin]bool
	irq  chan struct{}
}

func newFakeHAL() *fakeHAL {
	return &fakeHAL{pins: make(map[Pin]bool), irq: make(chan struct{}, 1)}
}

func (f *fakeHAL) SPIXfer(ctx context.Context, tx, rx []byte) error {
	copy(rx, tx)
	return nil
}

func (f *fakeHAL) GPIORead(pin Pin) (bool, error) { return f.pins[pin], nil }

func (f *fakeHAL) GPIOWrite(pin Pin, level bool) error {
	f.pins[pin] = level
	return nil
}

func (f *fakeHAL) DelayUs(n int) {}

func (f *fakeHAL) WaitForIRQ(timeout time.Duration) error {
	select {
	case <-f.irq:
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

func TestFakeHALSatisfiesInterface(t *testing.T) {
	var _ HAL = newFakeHAL()
}

func TestSPIXferEchoes(t *testing.T) {
	f := newFakeHAL()
	tx := []byte{1, 2, 3}
	rx := make([]byte, 3)
	if err := f.SPIXfer(context.Background(), tx, rx); err != nil {
		t.Fatalf("SPIXfer: %v", err)
	}
	for i := range tx {
		if rx[i] != tx[i] {
			t.Fatalf("rx[%d]=%d, want %d", i, rx[i], tx[i])
		}
	}
}

func TestWaitForIRQTimeout(t *testing.T) {
	f := newFakeHAL()
	if err := f.WaitForIRQ(10 * time.Millisecond); err != ErrTimeout {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
}

func TestWaitForIRQSignaled(t *testing.T) {
	f := newFakeHAL()
	f.irq <- struct{}{}
	if err := f.WaitForIRQ(time.Second); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
}
