package flash

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrCycleTimeout = errors.New("timed out waiting for flash write cycle to complete")
var ErrProtected = errors.New("block protect bits are set")
var ErrNoLockRegister = errors.New("chip variant has no lock register")

// SizeError indicates a transfer larger than one page was requested. It is
// raised before any bus activity; the hardware never sees the request.
type SizeError struct {
	Size      int
	PageBytes int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%d byte transfer exceeds %d byte page", e.Size, e.PageBytes)
}

// AddressError indicates a page or sector index beyond the chip geometry.
type AddressError struct {
	Unit  string
	Index uint32
	Count uint32
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("%s %d out of range: device has %d %ss", e.Unit, e.Index, e.Count, e.Unit)
}
