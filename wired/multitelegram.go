package wired

// MoreRecordsDIF is the sentinel DIF value (0x1F) a RSP_UD telegram's last
// data record carries when more telegrams follow (spec §4.B).
const MoreRecordsDIF = 0x1F

// Requester issues a REQ_UD2 and waits for the next reply frame (ACK or a
// Long/Control frame) within the caller's timeout. It is supplied by the
// transport layer (serial port, out of core scope per spec §1); the core
// only orchestrates the FCB toggling and termination logic around it.
type Requester interface {
	RequestUD2(addr, control byte) (Frame, error)
}

// Assembler runs the multi-telegram REQ_UD2/RSP_UD exchange described in
// spec §4.B: it toggles FCB on each request and appends response data
// until the reply's trailing record no longer carries MoreRecordsDIF, a
// frame-count limit is hit, or retries are exhausted.
type Assembler struct {
	req        Requester
	addr       byte
	fcb        bool
	maxFrames  int
	maxRetries int
}

// NewAssembler constructs an Assembler. maxFrames bounds the number of
// telegrams collected (0 = unbounded); maxRetries bounds retries per
// request on transport error.
func NewAssembler(req Requester, addr byte, maxFrames, maxRetries int) *Assembler {
	return &Assembler{req: req, addr: addr, maxFrames: maxFrames, maxRetries: maxRetries}
}

// lastRecordDIF returns the last byte of data that is not filler (0x2F).
// It is a lightweight scan, not a full record-chain parse: the byte is a
// DIF only when the chain ends in a bare DIF such as MoreRecordsDIF, so
// Collect sees that marker only when it is the last non-filler byte.
func lastRecordDIF(data []byte) (byte, bool) {
	for i := len(data) - 1; i >= 0; i-- {
		if data[i] == 0x2F {
			continue
		}
		return data[i], true
	}
	return 0, false
}

// Collect runs the assembly loop and returns the concatenated data
// payloads from every telegram collected, in arrival order.
func (a *Assembler) Collect() ([]byte, error) {
	var out []byte
	frames := 0
	for {
		control := ReqUd2
		if a.fcb {
			control |= fcb
		}
		control |= fcv

		var (
			f   Frame
			err error
		)
		for attempt := 0; ; attempt++ {
			f, err = a.req.RequestUD2(a.addr, control)
			if err == nil {
				break
			}
			if attempt >= a.maxRetries {
				return out, err
			}
		}
		a.fcb = !a.fcb
		frames++

		if f.Kind == Ack {
			// No more data.
			return out, nil
		}
		out = append(out, f.Data...)

		last, ok := lastRecordDIF(f.Data)
		more := ok && last == MoreRecordsDIF
		if !more {
			return out, nil
		}
		if a.maxFrames > 0 && frames >= a.maxFrames {
			return out, nil
		}
	}
}
