package radio

import (
	"context"
	"testing"
	"time"

	"github.com/jfabienke/mbuscrate/hal"
)

// bufferFakeHAL is a minimal HAL double scripted for FIFOBuffer tests: it
// never reports BUSY, and queues a single fixed response for the next
// SPI transaction so ReadBuffer tests can control what comes back.
type bufferFakeHAL struct {
	resp  []byte
	txLog [][]byte
}

func (f *bufferFakeHAL) SPIXfer(ctx context.Context, tx, rx []byte) error {
	f.txLog = append(f.txLog, append([]byte(nil), tx...))
	if f.resp != nil {
		copy(rx[len(rx)-len(f.resp):], f.resp)
	}
	return nil
}

func (f *bufferFakeHAL) GPIORead(pin hal.Pin) (bool, error) { return false, nil }
func (f *bufferFakeHAL) GPIOWrite(pin hal.Pin, level bool) error { return nil }
func (f *bufferFakeHAL) DelayUs(n int)                          {}
func (f *bufferFakeHAL) WaitForIRQ(timeout time.Duration) error { return nil }

func TestFIFOBufferReadPayload(t *testing.T) {
	// resp[0] is the status byte clocked out ahead of the data; resp[1]
	// is the frame's L-field, followed by L payload bytes.
	resp := append([]byte{0x00, 0x03, 0xAA, 0xBB, 0xCC}, make([]byte, maxFIFOLen-5)...)
	h := &bufferFakeHAL{resp: resp}

	b := NewFIFOBuffer(h, 0)
	payload, err := b.ReadPayload(context.Background())
	if err != nil {
		t.Fatalf("ReadPayload: %v", err)
	}
	want := []byte{0x03, 0xAA, 0xBB, 0xCC}
	if len(payload) != len(want) {
		t.Fatalf("got %d bytes, want %d: %x", len(payload), len(want), payload)
	}
	for i := range want {
		if payload[i] != want[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, payload[i], want[i])
		}
	}
}

func TestFIFOBufferWritePayload(t *testing.T) {
	h := &bufferFakeHAL{}
	b := NewFIFOBuffer(h, 0)
	payload := []byte{0x01, 0x02, 0x03}
	if err := b.WritePayload(context.Background(), payload); err != nil {
		t.Fatalf("WritePayload: %v", err)
	}
	last := h.txLog[len(h.txLog)-1]
	if last[0] != byte(opWriteBuffer) {
		t.Fatalf("got opcode %#x, want opWriteBuffer", last[0])
	}
}

func TestFIFOBufferWritePayloadTooLong(t *testing.T) {
	h := &bufferFakeHAL{}
	b := NewFIFOBuffer(h, 0)
	if err := b.WritePayload(context.Background(), make([]byte, maxFIFOLen+1)); err == nil {
		t.Fatal("expected an error for an oversized payload")
	}
}
