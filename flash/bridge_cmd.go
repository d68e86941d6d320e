package flash

import (
	"time"

	"github.com/pkg/errors"
)

// bridge framing: every host frame is one command byte, optionally followed
// by one data byte for a transfer. The bridge answers select and deselect
// with an ack byte and a transfer with the byte clocked in on MISO.
const b_BRIDGE_SYNC byte = 0x55
const b_BRIDGE_SELECT byte = 0x01
const b_BRIDGE_DESELECT byte = 0x02
const b_BRIDGE_XFER byte = 0x03
const b_BRIDGE_ACK byte = 0x06
const b_BRIDGE_NAK byte = 0x15

const bridgeSyncAttempts = 3

var BridgeTimeout = 2 * time.Second

var ErrBridgeNAK = errors.New("received nak from bridge")
var ErrBridgeBadAck = errors.New("failed to read ack or nak from bridge")

// sync will flush the bridge command parser until it acks
func (b *Bridge) sync() (err error) {
	for i := 0; i < bridgeSyncAttempts; i++ {
		if err = b.write([]byte{b_BRIDGE_SYNC}); err != nil {
			return err
		}
		if err = b.readAck(); err == nil {
			return nil
		}
	}
	return err
}

// readAck reads whether the pending byte is ACK, NAK, or neither
func (b *Bridge) readAck() error {
	bs, err := b.readN(1, BridgeTimeout)
	if err != nil {
		return err
	}

	if bs[0] == b_BRIDGE_ACK {
		return nil
	} else if bs[0] == b_BRIDGE_NAK {
		return ErrBridgeNAK
	}

	return ErrBridgeBadAck
}

// Assert drives the flash chip select low
func (b *Bridge) Assert() error {
	if err := b.write([]byte{b_BRIDGE_SELECT}); err != nil {
		return err
	}
	return errors.Wrap(b.readAck(), "select failed")
}

// Transfer clocks one byte out and returns the byte clocked in
func (b *Bridge) Transfer(out byte) (byte, error) {
	if err := b.write([]byte{b_BRIDGE_XFER, out}); err != nil {
		return 0, err
	}

	bs, err := b.readN(1, BridgeTimeout)
	if err != nil {
		return 0, err
	}
	return bs[0], nil
}

// Deassert drives the flash chip select high
func (b *Bridge) Deassert() error {
	if err := b.write([]byte{b_BRIDGE_DESELECT}); err != nil {
		return err
	}
	return errors.Wrap(b.readAck(), "deselect failed")
}
