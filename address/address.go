// Package address implements the two M-Bus addressing procedures (spec
// §4.D): scanning the 1..250 primary address space, and narrowing a
// secondary address down from the all-wildcard mask via repeated
// SND_UD(0x53, CI=0x52) selection telegrams.
package address

import (
	"context"
	"fmt"
	"time"

	"github.com/jfabienke/mbuscrate/mbuserr"
)

// Primary address range (spec §4.D). 0 is the address of an unconfigured
// slave; 253 addresses the slave chosen by secondary selection; 254 and 255
// are broadcast with and without reply.
const (
	PrimaryMin      = 1
	PrimaryMax      = 250
	PrimaryReserved = 253
)

// Secondary is a 16-hex-nibble secondary address mask. A nibble value of
// 0xF denotes "wildcard" during narrowing; once narrowing completes every
// nibble holds a concrete digit 0-9.
type Secondary [8]byte

// Wildcard is the all-wildcard starting mask (spec §4.D).
var Wildcard = Secondary{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// Bus is the minimal transport contract the narrowing algorithm needs: send
// a selection telegram and wait for either a single response, a garbled
// collision, or silence. The caller (a transport layer or a test double)
// supplies the concrete implementation.
type Bus interface {
	// SndUD sends a secondary-selection telegram (CI=0x52) carrying mask
	// and returns Single if exactly one slave answered, Collision if the
	// responses garbled together, or None if nothing answered within the
	// bus's own timeout.
	SndUD(ctx context.Context, mask Secondary) (Outcome, error)
	// ReqUD2 sends a REQ_UD2 addressed to primary and reports whether any
	// slave answered, decoding the responding frame's header into its
	// full secondary address. Used both by the primary scan (address is
	// ignored) and, with primary==PrimaryReserved, to recover the
	// concrete 16-nibble address of whichever slave a prior SndUD just
	// narrowed down to a single match (spec §4.D step 2).
	ReqUD2(ctx context.Context, primary byte) (Secondary, bool, error)
}

// Outcome classifies the bus's response to a selection telegram.
type Outcome int

const (
	None Outcome = iota
	Single
	Collision
)

// ScanPrimary probes addresses 1..250 in order and returns every address
// that answered (spec §4.D). It stops early if ctx is canceled.
func ScanPrimary(ctx context.Context, bus Bus) ([]byte, error) {
	var found []byte
	for addr := PrimaryMin; addr <= PrimaryMax; addr++ {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		_, ok, err := bus.ReqUD2(ctx, byte(addr))
		if err != nil {
			return found, mbuserr.Wrap("address: scan primary", mbuserr.NoResponse, err)
		}
		if ok {
			found = append(found, byte(addr))
		}
	}
	return found, nil
}

// NarrowConfig bounds the secondary-narrowing search (spec §4.D).
type NarrowConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

func (c NarrowConfig) withDefaults() NarrowConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 50 * time.Millisecond
	}
	return c
}

// Narrow performs the depth-first wildcard-narrowing search of spec §4.D,
// starting from mask and recursing over the leftmost wildcard nibble with
// candidate digits 0-9. It returns every fully-resolved secondary address
// discovered (there may be more than one, when several slaves share a
// manufacturer/medium prefix). The search always terminates: each
// recursive call fixes one nibble, and there are at most 16 nibbles.
func Narrow(ctx context.Context, bus Bus, mask Secondary, cfg NarrowConfig) ([]Secondary, error) {
	cfg = cfg.withDefaults()
	var out []Secondary
	if err := narrow(ctx, bus, mask, cfg, &out); err != nil {
		return out, err
	}
	return out, nil
}

func narrow(ctx context.Context, bus Bus, mask Secondary, cfg NarrowConfig, out *[]Secondary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	outcome, err := selectWithRetry(ctx, bus, mask, cfg)
	if err != nil {
		return err
	}
	switch outcome {
	case None:
		return nil
	case Single:
		// Exactly one slave is now selected; recover its full 16-nibble
		// address with REQ_UD2(253) rather than reporting back the
		// still-wildcarded mask (spec §4.D step 2).
		addr, ok, err := bus.ReqUD2(ctx, PrimaryReserved)
		if err != nil {
			return mbuserr.Wrap("address: narrow", mbuserr.NoResponse, err)
		}
		if !ok {
			return mbuserr.New("address: narrow", mbuserr.NoResponse)
		}
		*out = append(*out, addr)
		return nil
	}

	nibble, ok := leftmostWildcard(mask)
	if !ok {
		// All 16 nibbles are concrete yet the bus still reports a
		// collision: two slaves share an identical secondary address.
		return mbuserr.New("address: narrow", mbuserr.Ambiguous)
	}
	for digit := byte(0); digit <= 9; digit++ {
		child := mask
		setNibble(&child, nibble, digit)
		if err := narrow(ctx, bus, child, cfg, out); err != nil {
			return err
		}
	}
	return nil
}

func selectWithRetry(ctx context.Context, bus Bus, mask Secondary, cfg NarrowConfig) (Outcome, error) {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		outcome, err := bus.SndUD(ctx, mask)
		if err == nil {
			return outcome, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return None, ctx.Err()
		case <-time.After(cfg.RetryBackoff):
		}
	}
	return None, mbuserr.Wrap("address: select", mbuserr.NoResponse, lastErr)
}

// leftmostWildcard returns the index (0-15, most significant first) of the
// first wildcard nibble in mask, or ok==false if none remain.
func leftmostWildcard(mask Secondary) (int, bool) {
	for i := 0; i < 16; i++ {
		if nibble(mask, i) == 0xF {
			return i, true
		}
	}
	return 0, false
}

func nibble(mask Secondary, i int) byte {
	b := mask[i/2]
	if i%2 == 0 {
		return b >> 4
	}
	return b & 0x0F
}

func setNibble(mask *Secondary, i int, v byte) {
	if i%2 == 0 {
		mask[i/2] = (mask[i/2] & 0x0F) | (v << 4)
	} else {
		mask[i/2] = (mask[i/2] & 0xF0) | (v & 0x0F)
	}
}

// String renders mask as 16 hex digits, wildcards shown as 'F'.
func (s Secondary) String() string {
	const digits = "0123456789ABCDEF"
	out := make([]byte, 16)
	for i := range out {
		out[i] = digits[nibble(s, i)]
	}
	return string(out)
}

// GoString satisfies fmt.GoStringer for debugging output.
func (s Secondary) GoString() string {
	return fmt.Sprintf("address.Secondary(%s)", s.String())
}
