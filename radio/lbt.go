package radio

import (
	"math/rand"
	"time"

	"github.com/jfabienke/mbuscrate/mbuserr"
)

// LBTConfig bounds the Listen-Before-Talk retry loop (spec §4.G: "back
// off exponential 1-3s, up to max_retries=3").
type LBTConfig struct {
	ListenDuration time.Duration
	ThresholdDbm   float64
	MaxRetries     int
	BackoffMin     time.Duration
	BackoffMax     time.Duration
}

func (c LBTConfig) withDefaults() LBTConfig {
	if c.ListenDuration <= 0 {
		c.ListenDuration = 5 * time.Millisecond
	}
	if c.ThresholdDbm == 0 {
		c.ThresholdDbm = -85
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 1 * time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 3 * time.Second
	}
	return c
}

// RSSISampler samples the instantaneous channel RSSI, in dBm. The driver
// supplies an implementation backed by a CAD/RSSI command; tests supply
// a fake.
type RSSISampler interface {
	SampleRSSI() (float64, error)
}

// Sleeper abstracts the backoff wait so tests don't need real time.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// ListenBeforeTalk samples the channel up to cfg.MaxRetries times,
// backing off exponentially between attempts, and returns nil once the
// channel is clear (spec §4.G step 2). It returns LbtBusy if the channel
// never clears within the retry budget.
func ListenBeforeTalk(sampler RSSISampler, sleeper Sleeper, cfg LBTConfig) error {
	cfg = cfg.withDefaults()
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	backoff := cfg.BackoffMin
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		rssi, err := sampler.SampleRSSI()
		if err != nil {
			return mbuserr.Wrap("radio: lbt", mbuserr.SpiError, err)
		}
		if rssi <= cfg.ThresholdDbm {
			return nil
		}
		if attempt == cfg.MaxRetries-1 {
			break
		}
		jitter := time.Duration(rand.Int63n(int64(cfg.BackoffMax - cfg.BackoffMin + 1)))
		sleeper.Sleep(backoff + jitter)
		backoff *= 2
		if backoff > cfg.BackoffMax {
			backoff = cfg.BackoffMax
		}
	}
	return mbuserr.New("radio: lbt", mbuserr.LbtBusy)
}
