package flash

// Bus is the byte-oriented SPI transport the driver runs on. Assert drives
// chip select low, Transfer clocks one byte out and returns the byte clocked
// in, and Deassert drives chip select high again. An implementation only has
// to move single bytes; the driver handles all framing and sequencing.
//
// The bus is an exclusive resource: the driver issues exactly one
// Assert/Transfer.../Deassert sequence per command and never leaves the bus
// asserted, even when a transfer fails mid-command.
type Bus interface {
	Assert() error
	Transfer(b byte) (byte, error)
	Deassert() error
}

// Opener is implemented by transports that need a bring-up step before the
// first command, such as the serial bridge. Device.Init will call it when
// present.
type Opener interface {
	Open() error
}
