package flash

// StatusRegister holds one read of the chip's status register. The register
// is the authoritative completion signal for every self-timed cycle, so it is
// always read fresh off the bus and never cached.
type StatusRegister byte

const (
	sregWIP  byte = 1 << 0
	sregWEL  byte = 1 << 1
	sregBP0  byte = 1 << 2
	sregBP1  byte = 1 << 3
	sregBP2  byte = 1 << 4
	sregSRWD byte = 1 << 7
)

// WriteInProgress reports whether a program, erase or write-status cycle is
// still running inside the chip.
func (s StatusRegister) WriteInProgress() bool {
	return byte(s)&sregWIP != 0
}

// WriteEnabled reports the state of the write enable latch.
func (s StatusRegister) WriteEnabled() bool {
	return byte(s)&sregWEL != 0
}

// BlockProtected reports whether any of the BP0-BP2 bits is set. While set,
// the chip ignores bulk erase and protects part of the array from program
// and sector erase.
func (s StatusRegister) BlockProtected() bool {
	return byte(s)&(sregBP0|sregBP1|sregBP2) != 0
}

// WriteDisabled reports the SRWD bit, which together with the W# signal puts
// the status register itself into hardware protected mode.
func (s StatusRegister) WriteDisabled() bool {
	return byte(s)&sregSRWD != 0
}

// LockRegister holds one sector's volatile lock bits (extended variant only).
type LockRegister byte

const (
	// LockWrite blocks program and erase in the sector while set
	LockWrite LockRegister = 1 << 0
	// LockDown freezes the lock bits until the next power-up
	LockDown LockRegister = 1 << 1
)

// WriteLocked reports whether program and erase are blocked in the sector.
func (l LockRegister) WriteLocked() bool {
	return l&LockWrite != 0
}

// LockedDown reports whether the lock bits are frozen until power-up.
func (l LockRegister) LockedDown() bool {
	return l&LockDown != 0
}

const maxCFDLength = 16

// Identification is the response to the read-identification command. The CFD
// (customized factory data) length is reported by the chip itself and is at
// most 16 bytes.
type Identification struct {
	Manufacturer   byte
	MemoryType     byte
	MemoryCapacity byte
	CFDLength      byte
	CFDContent     []byte
}
