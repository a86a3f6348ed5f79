package hal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
)

// LinuxConfig names the host resources backing a Linux HAL (teacher's
// small-defaulting-struct config idiom, mirroring driver/mjolnir's
// Options rather than a config-file loader).
type LinuxConfig struct {
	SPI        spi.Port
	Reset      gpio.PinIO
	Busy       gpio.PinIO
	DIO1       gpio.PinIO
	MaxSpeed   physic.Frequency
}

// Linux is a HAL implementation backed by periph.io's SPI and GPIO
// drivers (grounded on driver/wshat's host.Init + bcm283x pin usage).
type Linux struct {
	conn  spi.Conn
	reset gpio.PinIO
	busy  gpio.PinIO
	dio1  gpio.PinIO
}

// OpenLinux initializes periph.io's host drivers and opens the SPI
// connection described by cfg.
func OpenLinux(cfg LinuxConfig) (*Linux, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("hal: host init: %w", err)
	}
	speed := cfg.MaxSpeed
	if speed == 0 {
		speed = 8 * physic.MegaHertz
	}
	conn, err := cfg.SPI.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("hal: spi connect: %w", err)
	}
	if err := cfg.Busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("hal: busy pin: %w", err)
	}
	if err := cfg.DIO1.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("hal: dio1 pin: %w", err)
	}
	return &Linux{conn: conn, reset: cfg.Reset, busy: cfg.Busy, dio1: cfg.DIO1}, nil
}

func (l *Linux) SPIXfer(ctx context.Context, tx, rx []byte) error {
	if len(tx) != len(rx) {
		return fmt.Errorf("hal: spi xfer: tx/rx length mismatch: %d != %d", len(tx), len(rx))
	}
	if err := l.conn.Tx(tx, rx); err != nil {
		return fmt.Errorf("hal: spi xfer: %w", err)
	}
	return nil
}

func (l *Linux) GPIORead(pin Pin) (bool, error) {
	p, err := l.pin(pin)
	if err != nil {
		return false, err
	}
	return p.Read() == gpio.High, nil
}

func (l *Linux) GPIOWrite(pin Pin, level bool) error {
	p, err := l.pin(pin)
	if err != nil {
		return err
	}
	lvl := gpio.Low
	if level {
		lvl = gpio.High
	}
	if err := p.Out(lvl); err != nil {
		return fmt.Errorf("hal: gpio write: %w", err)
	}
	return nil
}

func (l *Linux) pin(pin Pin) (gpio.PinIO, error) {
	switch pin {
	case PinReset:
		return l.reset, nil
	case PinBusy:
		return l.busy, nil
	case PinDIO1:
		return l.dio1, nil
	default:
		return nil, fmt.Errorf("hal: unknown pin %d", pin)
	}
}

// DelayUs uses unix.Nanosleep directly: periph.io's own clock helpers are
// millisecond-granularity, too coarse for the driver's BUSY polling.
func (l *Linux) DelayUs(n int) {
	ts := unix.NsecToTimespec(int64(n) * 1000)
	rem := &unix.Timespec{}
	for {
		err := unix.Nanosleep(&ts, rem)
		if err == nil {
			return
		}
		if err != unix.EINTR {
			return
		}
		ts = *rem
	}
}

func (l *Linux) WaitForIRQ(timeout time.Duration) error {
	if l.dio1.Read() == gpio.High {
		return nil
	}
	if !l.dio1.WaitForEdge(timeout) {
		return ErrTimeout
	}
	return nil
}
