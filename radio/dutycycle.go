package radio

import (
	"sync"
	"time"

	"github.com/jfabienke/mbuscrate/mbuserr"
)

// SubBand identifies one of the regulatory duty-cycle bands the SRD860
// allocation defines for wM-Bus (spec §3).
type SubBand int

const (
	SubBand868_0 SubBand = iota // 868.0-868.6 MHz, 1%
	SubBand868_7                // 868.7-869.2 MHz, 0.1%
	SubBand869_4                // 869.4-869.65 MHz, 10%
)

// dutyLimit is the fractional on-air allowance for each sub-band (spec
// §3).
var dutyLimit = map[SubBand]float64{
	SubBand868_0: 0.01,
	SubBand868_7: 0.001,
	SubBand869_4: 0.10,
}

// safetyMargin scales every limit down before reporting DutyExceeded
// (spec §3: "limit x safety_margin (0.9)").
const safetyMargin = 0.9

const window = time.Hour

// usage is one logged transmission.
type usage struct {
	start time.Time
	dur   time.Duration
}

// DutyLedger tracks on-air time per sub-band over a rolling 1-hour
// window (spec §3, §5: radio-scoped, no process-wide singleton). Create
// one with NewDutyLedger; the zero value has no map or clock and is not
// usable.
type DutyLedger struct {
	mu  sync.Mutex
	log map[SubBand][]usage
	now func() time.Time
}

// NewDutyLedger constructs an empty ledger.
func NewDutyLedger() *DutyLedger {
	return &DutyLedger{log: make(map[SubBand][]usage), now: time.Now}
}

// prune discards entries older than the rolling window, assuming the
// caller holds mu.
func (d *DutyLedger) prune(band SubBand, at time.Time) {
	entries := d.log[band]
	cutoff := at.Add(-window)
	i := 0
	for i < len(entries) && entries[i].start.Before(cutoff) {
		i++
	}
	d.log[band] = entries[i:]
}

// usedFraction returns the fraction of the rolling window already
// consumed by band, assuming the caller holds mu.
func (d *DutyLedger) usedFraction(band SubBand, at time.Time) float64 {
	d.prune(band, at)
	var total time.Duration
	for _, u := range d.log[band] {
		total += u.dur
	}
	return total.Seconds() / window.Seconds()
}

// Allow reports whether a transmission of dur on band would stay within
// limit*safetyMargin (spec §3 invariant). It does not record the
// transmission; call Record after the transmission actually completes.
func (d *DutyLedger) Allow(band SubBand, dur time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	at := d.now()
	used := d.usedFraction(band, at)
	limit, ok := dutyLimit[band]
	if !ok {
		return false
	}
	projected := used + dur.Seconds()/window.Seconds()
	return projected <= limit*safetyMargin
}

// Record logs a completed transmission of dur starting at start.
func (d *DutyLedger) Record(band SubBand, start time.Time, dur time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log[band] = append(d.log[band], usage{start: start, dur: dur})
	d.prune(band, d.now())
}

// CheckAndReserve is the gate the TX path calls before loading the FIFO
// (spec §4.G step 1): it returns DutyExceeded if dur would exceed the
// band's budget, otherwise nil. The caller must still call Record once
// the actual on-air time is known.
func (d *DutyLedger) CheckAndReserve(band SubBand, dur time.Duration) error {
	if !d.Allow(band, dur) {
		return mbuserr.New("radio: duty cycle", mbuserr.DutyExceeded)
	}
	return nil
}
