package flash

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Per-operation cycle deadlines. Datasheet typicals are 5ms for a page
// program, 3s for a sector erase and up to 40s for a bulk erase; the
// defaults leave generous headroom on top of those.
var DefaultProgramTimeout = 500 * time.Millisecond
var DefaultEraseTimeout = 10 * time.Second
var DefaultBulkEraseTimeout = 120 * time.Second
var DefaultStatusTimeout = 1 * time.Second
var DefaultPollInterval = 500 * time.Microsecond

// runCycle wraps a mutating command in the write discipline the chip's
// self-timed cycle model requires: set the write enable latch, issue the
// command, poll the status register until the write-in-progress flag clears,
// then issue an explicit write disable. The hardware clears the latch by
// itself on completion, but the explicit disable makes the post-state
// deterministic regardless of when the chip clears it relative to WIP.
func (d *Device) runCycle(timeout time.Duration, issue func() error) error {
	if err := d.chip.writeEnable(); err != nil {
		return errors.Wrap(err, "could not set write enable latch")
	}

	if err := issue(); err != nil {
		return err
	}

	if err := d.waitIdle(timeout); err != nil {
		return err
	}

	return errors.Wrap(d.chip.writeDisable(), "could not clear write enable latch")
}

// waitIdle polls the status register until the chip reports the self-timed
// cycle complete, or the deadline expires with ErrCycleTimeout. The poll
// blocks the caller for the whole cycle; there is no asynchronous path.
func (d *Device) waitIdle(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	polls := 0

	for {
		sreg, err := d.chip.readStatusRegister()
		if err != nil {
			return errors.Wrap(err, "could not poll status register")
		}
		polls++

		if !sreg.WriteInProgress() {
			logrus.Debugf("flash cycle complete after %d polls", polls)
			return nil
		}

		if time.Now().After(deadline) {
			return ErrCycleTimeout
		}

		time.Sleep(d.config.PollInterval)
	}
}
