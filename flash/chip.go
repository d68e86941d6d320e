package flash

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// chip translates each command of the M25P/M25PX command set into its wire
// sequence: one opcode byte, then (for addressed commands) three address
// bytes most significant first, then payload bytes in order.
type chip struct {
	bus    Bus
	params variantParams
}

// transaction runs fn inside a single scoped bus acquisition. The bus is
// deasserted on every path, including a failed transfer mid-command.
func (c *chip) transaction(fn func() error) error {
	if err := c.bus.Assert(); err != nil {
		return errors.Wrap(err, "could not assert chip select")
	}

	ferr := fn()
	derr := c.bus.Deassert()

	if ferr != nil {
		return ferr
	}
	return errors.Wrap(derr, "could not deassert chip select")
}

// send will transmit the specified bytes, discarding whatever the chip
// clocks back
func (c *chip) send(bs ...byte) error {
	for _, b := range bs {
		if _, err := c.bus.Transfer(b); err != nil {
			return errors.Wrap(err, "transfer failed")
		}
	}
	logrus.Debugf("flash tx: %x", bs)
	return nil
}

// recv clocks out a filler byte and returns the byte received in its place
func (c *chip) recv() (byte, error) {
	b, err := c.bus.Transfer(0x00)
	if err != nil {
		return 0, errors.Wrap(err, "transfer failed")
	}
	return b, nil
}

// addr3 encodes a flat byte address as the three big-endian address bytes
// every addressed command carries (24-bit address space)
func addr3(addr uint32) []byte {
	return []byte{byte(addr >> 16), byte(addr >> 8), byte(addr)}
}

// writeEnable sets the chip's write enable latch. It must precede every
// program, erase and status or lock register write.
func (c *chip) writeEnable() error {
	return c.transaction(func() error {
		return c.send(cmdWriteEnable)
	})
}

// writeDisable clears the write enable latch
func (c *chip) writeDisable() error {
	return c.transaction(func() error {
		return c.send(cmdWriteDisable)
	})
}

// readIdentification streams the identification response. The CFD length is
// the fourth byte received and bounds the rest of the read; the chip reports
// at most 16 CFD bytes.
func (c *chip) readIdentification() (id Identification, err error) {
	err = c.transaction(func() error {
		if err := c.send(cmdReadIdentification); err != nil {
			return err
		}
		if id.Manufacturer, err = c.recv(); err != nil {
			return err
		}
		if id.MemoryType, err = c.recv(); err != nil {
			return err
		}
		if id.MemoryCapacity, err = c.recv(); err != nil {
			return err
		}
		if id.CFDLength, err = c.recv(); err != nil {
			return err
		}

		n := min(int(id.CFDLength), maxCFDLength)
		id.CFDContent = make([]byte, n)
		for i := 0; i < n; i++ {
			if id.CFDContent[i], err = c.recv(); err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

// readStatusRegister reads the status register. Safe at any time, including
// while a cycle is in progress.
func (c *chip) readStatusRegister() (StatusRegister, error) {
	var sreg byte
	err := c.transaction(func() error {
		if err := c.send(cmdReadStatusRegister); err != nil {
			return err
		}
		var err error
		sreg, err = c.recv()
		return err
	})
	return StatusRegister(sreg), err
}

// writeStatusRegister sends a new status register value. The caller must
// have set the write enable latch first; the hardware ignores bits the
// command cannot set.
func (c *chip) writeStatusRegister(sreg byte) error {
	return c.transaction(func() error {
		return c.send(cmdWriteStatusRegister, sreg)
	})
}

// readDataBytes fills buf starting at addr. The chip auto-increments the
// address while chip select stays low, so one transaction covers the whole
// run.
func (c *chip) readDataBytes(addr uint32, buf []byte) error {
	return c.transaction(func() error {
		if err := c.send(cmdReadDataBytes); err != nil {
			return err
		}
		if err := c.send(addr3(addr)...); err != nil {
			return err
		}
		for i := range buf {
			b, err := c.recv()
			if err != nil {
				return err
			}
			buf[i] = b
		}
		logrus.Debugf("flash rx: %d bytes @ %06x", len(buf), addr)
		return nil
	})
}

// pageProgram transmits buf starting at addr. The caller guarantees the run
// fits inside one page; crossing a page boundary wraps inside the page on
// the chip side.
func (c *chip) pageProgram(addr uint32, buf []byte) error {
	return c.transaction(func() error {
		if err := c.send(cmdPageProgram); err != nil {
			return err
		}
		if err := c.send(addr3(addr)...); err != nil {
			return err
		}
		return c.send(buf...)
	})
}

// sectorErase starts an erase of the sector containing addr. Any address
// inside the sector is accepted by the chip.
func (c *chip) sectorErase(addr uint32) error {
	return c.transaction(func() error {
		if err := c.send(cmdSectorErase); err != nil {
			return err
		}
		return c.send(addr3(addr)...)
	})
}

// bulkErase starts an erase of the whole array. The chip silently ignores
// the command while any block protect bit is set.
func (c *chip) bulkErase() error {
	return c.transaction(func() error {
		return c.send(cmdBulkErase)
	})
}

// deepPowerDown puts the chip in its lowest power state. While powered
// down the chip accepts no command other than the release.
func (c *chip) deepPowerDown() error {
	return c.transaction(func() error {
		return c.send(cmdDeepPowerDown)
	})
}

// releaseFromDeepPowerDown wakes the chip from deep power down
func (c *chip) releaseFromDeepPowerDown() error {
	return c.transaction(func() error {
		return c.send(cmdReleaseDeepPowerDown)
	})
}

// writeLockRegister sets the lock bits of the sector containing addr
// (extended variant). Requires the write enable latch like any other write.
func (c *chip) writeLockRegister(addr uint32, lreg byte) error {
	return c.transaction(func() error {
		if err := c.send(cmdWriteLockRegister); err != nil {
			return err
		}
		if err := c.send(addr3(addr)...); err != nil {
			return err
		}
		return c.send(lreg)
	})
}

// readLockRegister reads the lock bits of the sector containing addr
// (extended variant)
func (c *chip) readLockRegister(addr uint32) (LockRegister, error) {
	var lreg byte
	err := c.transaction(func() error {
		if err := c.send(cmdReadLockRegister); err != nil {
			return err
		}
		if err := c.send(addr3(addr)...); err != nil {
			return err
		}
		var err error
		lreg, err = c.recv()
		return err
	})
	return LockRegister(lreg), err
}
