package radio

import (
	"context"
	"log"
	"time"

	"github.com/jfabienke/mbuscrate/hal"
	"github.com/jfabienke/mbuscrate/mbuserr"
)

// Config bounds a Driver instance (teacher's small-defaulting-struct
// config idiom — see driver/mjolnir's Options — rather than a config-file
// loader, which spec §1 names as an external collaborator).
type Config struct {
	Mode          Mode
	FrequencyHz   float64
	BusyTimeout   time.Duration
	LBT           LBTConfig
	PreambleBits  int // 0 selects DefaultPreambleBits(Mode)
	Logger        *log.Logger
}

func (c Config) withDefaults() Config {
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.PreambleBits <= 0 {
		c.PreambleBits = DefaultPreambleBits(c.Mode)
	}
	return c
}

// Driver is a single-threaded cooperative state machine over a hal.HAL
// (spec §5: not shared across goroutines; one Driver owns its HAL
// exclusively).
type Driver struct {
	hal   hal.HAL
	cfg   Config
	state State
	duty  *DutyLedger

	lastFreqHz float64
	calibrated bool
}

// New constructs a Driver bound to h. The chip is assumed to start in
// Sleep until Calibrate/ConfigureForWMBus runs.
func New(h hal.HAL, cfg Config, duty *DutyLedger) *Driver {
	if duty == nil {
		duty = NewDutyLedger()
	}
	return &Driver{hal: h, cfg: cfg.withDefaults(), state: Sleep, duty: duty}
}

func (d *Driver) logf(format string, args ...any) {
	if d.cfg.Logger != nil {
		d.cfg.Logger.Printf(format, args...)
	}
}

// State returns the driver's last-known chip state.
func (d *Driver) State() State { return d.state }

// setStandby issues SetStandby(StandbyRc) and updates local state. Cancel
// builds on it and also clears any pending IRQ flags.
func (d *Driver) setStandby(ctx context.Context) error {
	if _, err := command(ctx, d.hal, d.cfg.BusyTimeout, false, opSetStandby, []byte{0x00}, 0); err != nil {
		return err
	}
	d.state = StandbyRc
	return nil
}

// Calibrate runs image calibration for freqHz if the frequency changed by
// more than 5% since the last tune, or unconditionally on first use
// (spec §4.G).
func (d *Driver) Calibrate(ctx context.Context, freqHz float64) error {
	if !needsCalibration(d.lastFreqHz, freqHz) && d.calibrated {
		return nil
	}
	lo, hi, ok := imageCalBytes(freqHz)
	if !ok {
		return mbuserr.New("radio: calibrate", mbuserr.Uncalibrated)
	}
	if _, err := command(ctx, d.hal, d.cfg.BusyTimeout, false, opCalibrateImage, []byte{lo, hi}, 0); err != nil {
		return err
	}
	d.lastFreqHz = freqHz
	d.calibrated = true
	d.logf("radio: calibrated image for %.3f MHz", freqHz/1e6)
	return nil
}

// MaybeRetune re-runs calibration if the reported AFC error exceeds the
// 50ppm threshold (spec §4.G).
func (d *Driver) MaybeRetune(ctx context.Context, afcErrorPpm float64) error {
	if !needsRetune(afcErrorPpm) {
		return nil
	}
	d.calibrated = false
	return d.Calibrate(ctx, d.lastFreqHz)
}

// ConfigureForWMBus sets GFSK modulation, packet parameters, preamble
// length, image calibration, and frequency for the driver's configured
// mode (spec §4.G).
func (d *Driver) ConfigureForWMBus(ctx context.Context) error {
	if err := d.Calibrate(ctx, d.cfg.FrequencyHz); err != nil {
		return err
	}
	freqWord := frequencyToRegister(d.cfg.FrequencyHz)
	if _, err := command(ctx, d.hal, d.cfg.BusyTimeout, false, opSetRfFrequency, freqWord, 0); err != nil {
		return err
	}
	modParams := modulationParams(d.cfg.Mode)
	if _, err := command(ctx, d.hal, d.cfg.BusyTimeout, false, opSetModulation, modParams, 0); err != nil {
		return err
	}
	pktParams := packetParams(d.cfg.PreambleBits)
	if _, err := command(ctx, d.hal, d.cfg.BusyTimeout, false, opSetPacketParams, pktParams, 0); err != nil {
		return err
	}
	return d.setStandby(ctx)
}

// frequencyToRegister converts a frequency in Hz to the SX126x 32-bit RF
// frequency word (freq * 2^25 / Fxtal, Fxtal = 32 MHz).
func frequencyToRegister(freqHz float64) []byte {
	const fxtal = 32000000
	const twoPow25 = 1 << 25
	word := uint32(freqHz * twoPow25 / fxtal)
	return []byte{byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word)}
}

func modulationParams(m Mode) []byte {
	// GFSK modulation parameters: bit rate, pulse shape, bandwidth,
	// frequency deviation (contractual byte layout per datasheet Table
	// 13-66; only the bit rate varies with mode here).
	br := uint32(bitRate(m))
	return []byte{
		byte(br >> 16), byte(br >> 8), byte(br),
		0x09, // Gaussian BT=0.5 pulse shape
		0x19, // 234.3 kHz bandwidth
		0x01, 0x40, 0x00, // ~20 kHz frequency deviation
	}
}

func packetParams(preambleBits int) []byte {
	return []byte{
		byte(preambleBits >> 8), byte(preambleBits),
		0x04, // preamble detector length: 16 bits
		0x00, // no sync word
		0x00, // variable length packet
		0xFF, // max payload length
		0x01, // CRC present
		0x00, // no whitening
	}
}

// RXResult is a fully-received (and IRQ-validated) payload.
type RXResult struct {
	Payload []byte
	RSSI    float64
}

// Receiver reads the radio's RX buffer once RxDone fires; the frame codec
// layer owns the actual byte semantics.
type Receiver interface {
	ReadPayload(ctx context.Context) ([]byte, error)
}

// ReceiveOnce issues SetRx and processes IRQs until RxDone, CrcErr, or
// Timeout (spec §4.G receive path, one iteration of "continuous RX
// loops"). The caller loops this for continuous reception.
func (d *Driver) ReceiveOnce(ctx context.Context, timeout time.Duration, recv Receiver) (*RXResult, error) {
	if _, err := command(ctx, d.hal, d.cfg.BusyTimeout, false, opSetRx, []byte{0xFF, 0xFF, 0xFF}, 0); err != nil {
		return nil, err
	}
	d.state = Rx

	if err := d.hal.WaitForIRQ(timeout); err != nil {
		if err == hal.ErrTimeout {
			d.setStandby(ctx)
			return nil, mbuserr.New("radio: receive", mbuserr.Timeout)
		}
		return nil, mbuserr.Wrap("radio: receive", mbuserr.SpiError, err)
	}

	status, err := d.getIRQStatus(ctx)
	if err != nil {
		return nil, err
	}
	result := processIRQ(status)
	if err := d.clearIRQ(ctx, status); err != nil {
		return nil, err
	}

	switch {
	case result.CrcError:
		d.setStandby(ctx)
		return nil, mbuserr.New("radio: receive", mbuserr.CrcErr)
	case result.TimedOut:
		d.setStandby(ctx)
		return nil, mbuserr.New("radio: receive", mbuserr.Timeout)
	case result.RxDone:
		payload, err := recv.ReadPayload(ctx)
		if err != nil {
			return nil, err
		}
		d.setStandby(ctx)
		return &RXResult{Payload: payload}, nil
	default:
		return nil, nil
	}
}

func (d *Driver) getIRQStatus(ctx context.Context) (uint16, error) {
	resp, err := command(ctx, d.hal, d.cfg.BusyTimeout, true, opGetIrqStatus, nil, 3)
	if err != nil {
		return 0, err
	}
	return uint16(resp[1])<<8 | uint16(resp[2]), nil
}

func (d *Driver) clearIRQ(ctx context.Context, status uint16) error {
	_, err := command(ctx, d.hal, d.cfg.BusyTimeout, false, opClearIrqStatus, []byte{byte(status >> 8), byte(status)}, 0)
	return err
}

// Transmitter loads the FIFO for an upcoming TX; the frame codec layer
// supplies the serialized bytes.
type Transmitter interface {
	WritePayload(ctx context.Context, payload []byte) error
}

// Transmit performs the full TX path (spec §4.G): duty-cycle gate, LBT,
// FIFO load, SetTx, await TxDone, ledger update.
func (d *Driver) Transmit(ctx context.Context, band SubBand, payload []byte, tx Transmitter, sampler RSSISampler) error {
	toa := TimeOnAir(d.cfg.Mode, d.cfg.PreambleBits, 0, len(payload), 2)
	if err := d.duty.CheckAndReserve(band, toa); err != nil {
		return err
	}
	if err := ListenBeforeTalk(sampler, nil, d.cfg.LBT); err != nil {
		return err
	}
	if err := tx.WritePayload(ctx, payload); err != nil {
		return err
	}

	start := time.Now()
	if _, err := command(ctx, d.hal, d.cfg.BusyTimeout, false, opSetTx, []byte{0xFF, 0xFF, 0xFF}, 0); err != nil {
		return err
	}
	d.state = Tx

	if err := d.hal.WaitForIRQ(toa + 500*time.Millisecond); err != nil {
		d.setStandby(ctx)
		return mbuserr.Wrap("radio: transmit", mbuserr.Timeout, err)
	}
	status, err := d.getIRQStatus(ctx)
	if err != nil {
		return err
	}
	result := processIRQ(status)
	if err := d.clearIRQ(ctx, status); err != nil {
		return err
	}
	if !result.TxDone {
		d.setStandby(ctx)
		return mbuserr.New("radio: transmit", mbuserr.Timeout)
	}
	d.setStandby(ctx)
	d.duty.Record(band, start, time.Since(start))
	return nil
}

// Cancel drives the radio back to StandbyRc, draining any pending IRQ
// wait (spec §5 cancellation contract).
func (d *Driver) Cancel(ctx context.Context) error {
	if err := d.setStandby(ctx); err != nil {
		return err
	}
	return d.clearIRQ(ctx, irqAll)
}
