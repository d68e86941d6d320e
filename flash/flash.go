package flash

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config defines the chip variant and the timing of the busy-poll loop
type Config struct {
	Variant Variant

	// PollInterval is the delay between status register reads while a
	// self-timed cycle is in progress
	PollInterval time.Duration

	// deadlines for each class of self-timed cycle
	ProgramTimeout   time.Duration
	EraseTimeout     time.Duration
	BulkEraseTimeout time.Duration
	StatusTimeout    time.Duration
}

// Device is a serial NOR flash chip addressed in pages and sectors. All
// operations are synchronous and block until the chip reports completion;
// the device serializes bus access by construction and must not be shared
// across goroutines without external locking.
type Device struct {
	config *Config
	chip   *chip
}

// NewDevice will create a device on the provided bus for the configured
// chip variant
func NewDevice(bus Bus, c *Config) (*Device, error) {
	if bus == nil {
		return nil, errors.New("bus is required")
	}

	if c == nil {
		c = &Config{}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ProgramTimeout <= 0 {
		c.ProgramTimeout = DefaultProgramTimeout
	}
	if c.EraseTimeout <= 0 {
		c.EraseTimeout = DefaultEraseTimeout
	}
	if c.BulkEraseTimeout <= 0 {
		c.BulkEraseTimeout = DefaultBulkEraseTimeout
	}
	if c.StatusTimeout <= 0 {
		c.StatusTimeout = DefaultStatusTimeout
	}

	params, ok := variantTable[c.Variant]
	if !ok {
		return nil, errors.Errorf("unknown chip variant %d", c.Variant)
	}

	return &Device{
		config: c,
		chip:   &chip{bus: bus, params: params},
	}, nil
}

var _ io.ReaderAt = (*Device)(nil)

// Init will bring up the underlying transport when it needs it. The chip
// itself requires no initialization sequence.
func (d *Device) Init() error {
	if o, ok := d.chip.bus.(Opener); ok {
		if err := o.Open(); err != nil {
			return errors.Wrap(err, "could not open bus")
		}
	}

	logrus.Debugf("flash init: %s", d.chip.params.name)
	return nil
}

// Geometry will return the fixed page and sector layout of the configured
// chip variant
func (d *Device) Geometry() Geometry {
	return d.chip.params.geometry
}

// Identification reads the identification data off the chip. It is read
// fresh on every call.
func (d *Device) Identification() (Identification, error) {
	return d.chip.readIdentification()
}

// Status reads the status register
func (d *Device) Status() (StatusRegister, error) {
	return d.chip.readStatusRegister()
}

// WriteStatus writes a new status register value and waits for the write
// cycle to complete. Only the block protect and SRWD bits are settable; the
// hardware ignores the rest.
func (d *Device) WriteStatus(sreg byte) error {
	return d.runCycle(d.config.StatusTimeout, func() error {
		return d.chip.writeStatusRegister(sreg)
	})
}

// EraseSector erases one sector to 0xFF and waits for the erase cycle to
// complete
func (d *Device) EraseSector(sector uint32) error {
	g := d.Geometry()
	if sector >= g.SectorCount {
		return &AddressError{Unit: "sector", Index: sector, Count: g.SectorCount}
	}

	addr := sector * g.SectorBytes
	return d.runCycle(d.config.EraseTimeout, func() error {
		return d.chip.sectorErase(addr)
	})
}

// BulkErase erases the whole array. The chip silently ignores a bulk erase
// while any block protect bit is set, so the status register is checked
// first and ErrProtected returned instead of a success that never happened.
func (d *Device) BulkErase() error {
	sreg, err := d.chip.readStatusRegister()
	if err != nil {
		return err
	}
	if sreg.BlockProtected() {
		return errors.Wrap(ErrProtected, "bulk erase refused")
	}

	return d.runCycle(d.config.BulkEraseTimeout, d.chip.bulkErase)
}

// WritePage programs up to one page of data at the start of the given page
// and waits for the program cycle to complete. Programming only clears bits;
// the page must have been erased for the data to read back as written.
func (d *Device) WritePage(page uint32, buf []byte) error {
	g := d.Geometry()
	if len(buf) > int(g.PageBytes) {
		return &SizeError{Size: len(buf), PageBytes: int(g.PageBytes)}
	}
	if page >= g.PageCount {
		return &AddressError{Unit: "page", Index: page, Count: g.PageCount}
	}

	addr := page * g.PageBytes
	return d.runCycle(d.config.ProgramTimeout, func() error {
		return d.chip.pageProgram(addr, buf)
	})
}

// ReadPage fills buf from the start of the given page. Reads are not
// mutating, so no write-enable cycle is involved.
func (d *Device) ReadPage(page uint32, buf []byte) error {
	g := d.Geometry()
	if len(buf) > int(g.PageBytes) {
		return &SizeError{Size: len(buf), PageBytes: int(g.PageBytes)}
	}
	if page >= g.PageCount {
		return &AddressError{Unit: "page", Index: page, Count: g.PageCount}
	}

	return d.chip.readDataBytes(page*g.PageBytes, buf)
}

// ReadAt implements io.ReaderAt over the whole address space. The chip
// auto-increments the read address, so any run length is a single command.
func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	capacity := int64(d.Geometry().Capacity())
	if off < 0 || off >= capacity {
		return 0, io.EOF
	}

	n := min(len(p), int(capacity-off))
	if err := d.chip.readDataBytes(uint32(off), p[:n]); err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// DeepPowerDown puts the chip in its lowest power state. Until released the
// chip ignores every other command; nothing on the host side tracks or
// enforces that.
func (d *Device) DeepPowerDown() error {
	return d.chip.deepPowerDown()
}

// ReleaseFromDeepPowerDown wakes the chip from deep power down
func (d *Device) ReleaseFromDeepPowerDown() error {
	return d.chip.releaseFromDeepPowerDown()
}

// WriteLockRegister sets the lock bits of one sector. Only the extended
// variant carries lock registers.
func (d *Device) WriteLockRegister(sector uint32, lreg LockRegister) error {
	g := d.Geometry()
	if !d.chip.params.hasLockRegister {
		return ErrNoLockRegister
	}
	if sector >= g.SectorCount {
		return &AddressError{Unit: "sector", Index: sector, Count: g.SectorCount}
	}

	addr := sector * g.SectorBytes
	return d.runCycle(d.config.StatusTimeout, func() error {
		return d.chip.writeLockRegister(addr, byte(lreg))
	})
}

// ReadLockRegister reads the lock bits of one sector. Only the extended
// variant carries lock registers.
func (d *Device) ReadLockRegister(sector uint32) (LockRegister, error) {
	g := d.Geometry()
	if !d.chip.params.hasLockRegister {
		return 0, ErrNoLockRegister
	}
	if sector >= g.SectorCount {
		return 0, &AddressError{Unit: "sector", Index: sector, Count: g.SectorCount}
	}

	return d.chip.readLockRegister(sector * g.SectorBytes)
}
