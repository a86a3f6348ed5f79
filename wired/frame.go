// Package wired implements the EN 13757-2 wired M-Bus frame codec: the
// ACK/Short/Control/Long frame union, checksum verification, and
// multi-telegram assembly across REQ_UD2/RSP_UD exchanges.
package wired

import (
	"github.com/jfabienke/mbuscrate/codec"
	"github.com/jfabienke/mbuscrate/mbuserr"
)

// Kind discriminates the four wired frame shapes (spec §3).
type Kind int

const (
	Ack Kind = iota
	Short
	Control
	Long
)

func (k Kind) String() string {
	switch k {
	case Ack:
		return "Ack"
	case Short:
		return "Short"
	case Control:
		return "Control"
	case Long:
		return "Long"
	default:
		return "Unknown"
	}
}

// Control-field function codes, initiator -> slave (spec §4.B, §6).
const (
	SndNke byte = 0x40
	ReqUd2 byte = 0x5B
	ReqUd1 byte = 0x5A
	SndUd  byte = 0x53
	RspUd  byte = 0x08
)

const (
	fcb byte = 1 << 5 // frame count bit
	fcv byte = 1 << 4 // frame count valid
	dfc byte = 1 << 4 // data flow control (slave -> initiator)
	acd byte = 1 << 5 // access demand
)

const (
	startAck     byte = 0xE5
	startShort   byte = 0x10
	startLong    byte = 0x68
	stopByte     byte = 0x16
	maxFrameData      = 252
)

// Frame is a tagged union over the four wired frame shapes. Exactly the
// fields relevant to Kind are meaningful; Data is exclusively owned by the
// Frame value (no aliasing of caller buffers).
type Frame struct {
	Kind Kind
	C    byte // control field (Short/Control/Long)
	A    byte // address field (Short/Control/Long)
	CI   byte // control information (Control/Long)
	Data []byte
}

// FCB reports the state of the frame-count bit in the control field.
func (f Frame) FCB() bool { return f.C&fcb != 0 }

// FCV reports whether the frame-count bit is meaningful.
func (f Frame) FCV() bool { return f.C&fcv != 0 }

// SlaveToMaster reports the control-field direction bit: false = M->S.
func (f Frame) SlaveToMaster() bool { return f.C&(1<<6) != 0 }

// Result is the outcome of a Parse call: exactly one of Need, a Frame, or
// an error is meaningful.
type Result struct {
	// Need, if > 0, is the number of additional bytes required before
	// Parse can make progress; Frame and Consumed are zero in this case.
	Need int
	// Frame is the decoded frame, valid when Need == 0 and Err == nil.
	Frame Frame
	// Consumed is the number of input bytes the frame occupied.
	Consumed int
	// Err is set when the input is malformed beyond repair (not merely
	// incomplete).
	Err error
}

// Parse decodes the first wired frame in buf. It never blocks: a frame
// split across reads is reported via Result.Need so the caller can top up
// its buffer and call again (spec §4.B).
func Parse(buf []byte) Result {
	if len(buf) == 0 {
		return Result{Need: 1}
	}
	switch buf[0] {
	case startAck:
		return Result{Frame: Frame{Kind: Ack}, Consumed: 1}
	case startShort:
		return parseShort(buf)
	case startLong:
		return parseLong(buf)
	default:
		return Result{Err: mbuserr.New("wired: parse", mbuserr.InvalidStart)}
	}
}

func parseShort(buf []byte) Result {
	const frameLen = 5
	if len(buf) < frameLen {
		return Result{Need: frameLen - len(buf)}
	}
	c, a, chk, stop := buf[1], buf[2], buf[3], buf[4]
	if stop != stopByte {
		return Result{Err: mbuserr.New("wired: parse short", mbuserr.InvalidStart)}
	}
	if codec.Checksum8([]byte{c, a}) != chk {
		return Result{Err: mbuserr.New("wired: parse short", mbuserr.InvalidChecksum)}
	}
	if err := checkControlShort(c); err != nil {
		return Result{Err: err}
	}
	return Result{Frame: Frame{Kind: Short, C: c, A: a}, Consumed: frameLen}
}

func parseLong(buf []byte) Result {
	if len(buf) < 3 {
		return Result{Need: 3 - len(buf)}
	}
	len1, len2 := buf[1], buf[2]
	if len1 != len2 || len1 < 3 {
		return Result{Err: mbuserr.New("wired: parse long", mbuserr.InvalidChecksum)}
	}
	total := 6 + int(len1)
	if len(buf) < total {
		return Result{Need: total - len(buf)}
	}
	if buf[3] != startLong {
		return Result{Err: mbuserr.New("wired: parse long", mbuserr.InvalidStart)}
	}
	c, a, ci := buf[4], buf[5], buf[6]
	dataLen := int(len1) - 3
	data := append([]byte(nil), buf[7:7+dataLen]...)
	chkIdx := 7 + dataLen
	chk := buf[chkIdx]
	stop := buf[chkIdx+1]
	if stop != stopByte {
		return Result{Err: mbuserr.New("wired: parse long", mbuserr.InvalidStart)}
	}
	sum := codec.Checksum8(append([]byte{c, a, ci}, data...))
	if sum != chk {
		return Result{Err: mbuserr.New("wired: parse long", mbuserr.InvalidChecksum)}
	}
	kind := Control
	if dataLen > 0 {
		kind = Long
	}
	if err := checkControlLong(c); err != nil {
		return Result{Err: err}
	}
	return Result{Frame: Frame{Kind: kind, C: c, A: a, CI: ci, Data: data}, Consumed: total}
}

func checkControlShort(c byte) error {
	// FCB may vary independently; everything else must match exactly.
	switch c &^ fcb {
	case SndNke, ReqUd1, ReqUd2:
		return nil
	default:
		return mbuserr.New("wired: control", mbuserr.UnknownControl)
	}
}

func checkControlLong(c byte) error {
	switch c &^ fcb {
	case SndUd:
		return nil
	default:
	}
	// RSP_UD additionally allows DFC and ACD to vary.
	if c&^(dfc|acd) == RspUd {
		return nil
	}
	return mbuserr.New("wired: control", mbuserr.UnknownControl)
}

// Pack serializes f into its wire representation.
func Pack(f Frame) ([]byte, error) {
	switch f.Kind {
	case Ack:
		return []byte{startAck}, nil
	case Short:
		return packShort(f)
	case Control, Long:
		return packLong(f)
	default:
		return nil, mbuserr.New("wired: pack", mbuserr.InvalidStart)
	}
}

func packShort(f Frame) ([]byte, error) {
	chk := codec.Checksum8([]byte{f.C, f.A})
	return []byte{startShort, f.C, f.A, chk, stopByte}, nil
}

func packLong(f Frame) ([]byte, error) {
	if len(f.Data) > maxFrameData {
		return nil, mbuserr.New("wired: pack long", mbuserr.OutOfRange)
	}
	l := byte(3 + len(f.Data))
	out := make([]byte, 0, 6+int(l))
	out = append(out, startLong, l, l, startLong, f.C, f.A, f.CI)
	out = append(out, f.Data...)
	chk := codec.Checksum8([]byte{f.C, f.A, f.CI})
	chk += codec.Checksum8(f.Data)
	out = append(out, chk, stopByte)
	return out, nil
}
