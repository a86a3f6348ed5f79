package radio

import (
	"context"
	"testing"
	"time"

	"github.com/jfabienke/mbuscrate/mbuserr"
)

func TestStateString(t *testing.T) {
	cases := []struct {
		s    State
		want string
	}{
		{Sleep, "Sleep"}, {StandbyRc, "StandbyRc"}, {StandbyXosc, "StandbyXosc"},
		{Fs, "Fs"}, {Rx, "Rx"}, {Tx, "Tx"}, {State(99), "Unknown"},
	}
	for _, c := range cases {
		if got := c.s.String(); got != c.want {
			t.Errorf("State(%d).String() = %q, want %q", c.s, got, c.want)
		}
	}
}

func TestStateNumericEncoding(t *testing.T) {
	// Contractual values (spec §3, §8).
	if Sleep != 0 || StandbyRc != 2 || StandbyXosc != 3 || Fs != 4 || Rx != 5 || Tx != 6 {
		t.Fatal("state numeric encoding drifted from the datasheet contract")
	}
}

func TestIRQBitLayout(t *testing.T) {
	if IRQRxDone != 0x0001 || IRQTxDone != 0x0002 || IRQCrcErr != 0x0040 || IRQTimeout != 0x0200 {
		t.Fatal("IRQ bit layout drifted from contract")
	}
}

func TestProcessIRQPriority(t *testing.T) {
	// CrcErr takes priority over everything else, per spec §4.G.
	r := processIRQ(IRQCrcErr | IRQRxDone | IRQTxDone)
	if !r.CrcError || r.RxDone || r.TxDone {
		t.Fatalf("got %+v, want only CrcError set", r)
	}
}

func TestReceiveOnceRxDone(t *testing.T) {
	h := newFakeHAL()
	d := New(h, Config{Mode: ModeC, FrequencyHz: 868950000}, nil)
	h.queueIRQStatus(IRQRxDone)

	result, err := d.ReceiveOnce(context.Background(), time.Second, fakeReceiver{payload: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("ReceiveOnce: %v", err)
	}
	if result == nil || len(result.Payload) != 3 {
		t.Fatalf("got %+v", result)
	}
	if d.State() != StandbyRc {
		t.Fatalf("got state %v, want StandbyRc after RX", d.State())
	}
}

func TestReceiveOnceCrcErr(t *testing.T) {
	h := newFakeHAL()
	d := New(h, Config{Mode: ModeC}, nil)
	h.queueIRQStatus(IRQCrcErr)

	_, err := d.ReceiveOnce(context.Background(), time.Second, fakeReceiver{})
	if !mbuserr.Is(err, mbuserr.CrcErr) {
		t.Fatalf("got %v, want CrcErr", err)
	}
}

func TestReceiveOnceTimeout(t *testing.T) {
	h := newFakeHAL()
	d := New(h, Config{Mode: ModeC}, nil)

	_, err := d.ReceiveOnce(context.Background(), 10*time.Millisecond, fakeReceiver{})
	if !mbuserr.Is(err, mbuserr.Timeout) {
		t.Fatalf("got %v, want Timeout", err)
	}
}

func TestTransmitSuccess(t *testing.T) {
	h := newFakeHAL()
	duty := NewDutyLedger()
	d := New(h, Config{Mode: ModeC, LBT: LBTConfig{MaxRetries: 1}}, duty)
	h.queueIRQStatus(IRQTxDone)

	tx := &fakeTransmitter{}
	err := d.Transmit(context.Background(), SubBand868_0, []byte("payload"), tx, fakeRSSI{dbm: -95})
	if err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	if string(tx.written) != "payload" {
		t.Fatalf("got %q written", tx.written)
	}
}

func TestTransmitLBTBusy(t *testing.T) {
	h := newFakeHAL()
	d := New(h, Config{Mode: ModeC, LBT: LBTConfig{MaxRetries: 1}}, nil)
	sleeper := &fakeSleeper{}
	_ = sleeper

	tx := &fakeTransmitter{}
	err := d.Transmit(context.Background(), SubBand868_0, []byte("payload"), tx, fakeRSSI{dbm: -50})
	if !mbuserr.Is(err, mbuserr.LbtBusy) {
		t.Fatalf("got %v, want LbtBusy", err)
	}
}

func TestTransmitDutyExceeded(t *testing.T) {
	h := newFakeHAL()
	duty := NewDutyLedger()
	// Exhaust the 868.0 band's budget up front.
	duty.Record(SubBand868_0, time.Now(), 40*time.Second)
	d := New(h, Config{Mode: ModeC, LBT: LBTConfig{MaxRetries: 1}}, duty)

	tx := &fakeTransmitter{}
	err := d.Transmit(context.Background(), SubBand868_0, make([]byte, 10000), tx, fakeRSSI{dbm: -95})
	if !mbuserr.Is(err, mbuserr.DutyExceeded) {
		t.Fatalf("got %v, want DutyExceeded", err)
	}
}
