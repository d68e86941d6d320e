package flash

import (
	"time"

	"github.com/piotrjaromin/gpio"
	"github.com/pkg/errors"
	"go.bug.st/serial"
)

var DefaultBaud = 115200
var DefaultTTY = "/dev/ttyS1"

// BridgeConfig defines the serial port and control pins of the SPI bridge
type BridgeConfig struct {
	// WriteProtectGPIO drives the flash W# line; held high so the status
	// register stays writable
	WriteProtectGPIO int
	// HoldGPIO drives the flash HOLD# line; held high so transfers are
	// never paused
	HoldGPIO int
	// PowerGPIO switches the flash supply, used for a power cycle
	PowerGPIO int

	Baud int
	TTY  string
}

// Bridge drives a flash chip through a USB-serial SPI bridge that speaks a
// small framed protocol: one select/deselect command per chip select edge
// and one transfer command per clocked byte. It implements Bus.
type Bridge struct {
	config *BridgeConfig

	pinPower        gpio.Pin
	pinWriteProtect gpio.Pin
	pinHold         gpio.Pin

	ttyPort serial.Port
	ttyRx   chan byte

	ttyActive bool
}

var _ Bus = (*Bridge)(nil)

// NewBridge will create a new reference to a bridge on the configured port
func NewBridge(c *BridgeConfig) (*Bridge, error) {
	if c == nil {
		c = &BridgeConfig{}
	}

	if c.WriteProtectGPIO <= 0 {
		c.WriteProtectGPIO = 39
	}
	if c.HoldGPIO <= 0 {
		c.HoldGPIO = 41
	}
	if c.PowerGPIO <= 0 {
		c.PowerGPIO = 19
	}

	b := &Bridge{
		config: c,
	}

	if err := b.setupPins(); err != nil {
		return nil, errors.Wrap(err, "could not setup pins")
	}

	return b, nil
}

func (b *Bridge) setupPins() (err error) {
	b.pinPower, err = gpio.NewOutput(uint(b.config.PowerGPIO), true)
	if err != nil {
		return
	}
	// W# and HOLD# are active low, park both high
	b.pinWriteProtect, err = gpio.NewOutput(uint(b.config.WriteProtectGPIO), true)
	if err != nil {
		return
	}
	b.pinHold, err = gpio.NewOutput(uint(b.config.HoldGPIO), true)
	if err != nil {
		return
	}

	return
}

// TTY will return the TTY that will be used
func (b *Bridge) TTY() string {
	if b.config.TTY != "" {
		return b.config.TTY
	}
	return DefaultTTY
}

// BaudRate will return the baud rate used to connect to the TTY
func (b *Bridge) BaudRate() int {
	if b.config.Baud > 0 {
		return b.config.Baud
	}
	return DefaultBaud
}

// PowerCycle will drop and restore the flash supply, returning the chip to
// its power-up state. This is the only recovery from a command sequence
// that failed mid-transfer.
func (b *Bridge) PowerCycle() {
	b.pinPower.Low()
	time.Sleep(10 * time.Millisecond)
	b.pinPower.High()
	time.Sleep(10 * time.Millisecond)
}
