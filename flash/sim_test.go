package flash

import (
	"github.com/pkg/errors"
)

// simChip is a bus-level model of an M25P/M25PX chip backed by a byte array
// with real NOR semantics: programming only clears bits, erasing sets a whole
// sector to 0xFF, mutating commands require the write enable latch and report
// a busy cycle through the status register. It records every completed
// command frame so tests can assert on the exact wire traffic.
type simChip struct {
	variant Variant
	mem     []byte
	sreg    byte
	lock    map[uint32]byte
	powered bool

	// number of status reads that report WIP after each mutating command
	busyPer  int
	busyLeft int

	cfd []byte

	asserted  bool
	tx        []byte
	frames    [][]byte
	transfers int
	asserts   int
	deasserts int

	failTransfer error
}

func newSimChip(v Variant) *simChip {
	mem := make([]byte, m25Geometry.Capacity())
	for i := range mem {
		mem[i] = 0xFF
	}
	return &simChip{
		variant: v,
		mem:     mem,
		lock:    map[uint32]byte{},
		cfd:     []byte{0x00, 0x00},
	}
}

func (s *simChip) Assert() error {
	if s.asserted {
		return errors.New("sim: assert while asserted")
	}
	s.asserted = true
	s.asserts++
	s.tx = nil
	return nil
}

func (s *simChip) Transfer(b byte) (byte, error) {
	if s.failTransfer != nil {
		return 0, s.failTransfer
	}
	if !s.asserted {
		return 0, errors.New("sim: transfer while deasserted")
	}
	s.transfers++

	resp := s.respond(len(s.tx), b)
	s.tx = append(s.tx, b)
	return resp, nil
}

func (s *simChip) Deassert() error {
	if !s.asserted {
		return errors.New("sim: deassert while deasserted")
	}
	s.asserted = false
	s.deasserts++

	frame := append([]byte(nil), s.tx...)
	s.frames = append(s.frames, frame)
	s.exec(frame)
	return nil
}

// respond produces the MISO byte for position pos of the current frame
func (s *simChip) respond(pos int, b byte) byte {
	if s.powered {
		// in deep power down the chip drives nothing
		return 0xFF
	}
	if pos == 0 {
		return 0xFF
	}

	switch s.tx[0] {
	case cmdReadStatusRegister:
		sreg := s.sreg
		if s.busyLeft > 0 {
			s.busyLeft--
			return sreg | sregWIP
		}
		return sreg &^ sregWIP

	case cmdReadIdentification:
		memType := byte(0x20)
		if s.variant == VariantM25PX16 {
			memType = 0x71
		}
		id := []byte{0x20, memType, 0x15, byte(len(s.cfd))}
		id = append(id, s.cfd...)
		if pos-1 < len(id) {
			return id[pos-1]
		}
		return 0x00

	case cmdReadDataBytes:
		if pos < 4 {
			return 0x00
		}
		addr := (be24(s.tx[1:4]) + uint32(pos-4)) % m25Geometry.Capacity()
		return s.mem[addr]

	case cmdReadLockRegister:
		if pos < 4 {
			return 0x00
		}
		return s.lock[be24(s.tx[1:4])/m25Geometry.SectorBytes]
	}

	return 0x00
}

// exec applies the side effects of a completed command frame
func (s *simChip) exec(f []byte) {
	if len(f) == 0 {
		return
	}

	if s.powered {
		if f[0] == cmdReleaseDeepPowerDown {
			s.powered = false
		}
		return
	}

	g := m25Geometry

	switch f[0] {
	case cmdWriteEnable:
		s.sreg |= sregWEL

	case cmdWriteDisable:
		s.sreg &^= sregWEL

	case cmdWriteStatusRegister:
		if s.sreg&sregWEL == 0 || len(f) < 2 {
			return
		}
		const settable = sregBP0 | sregBP1 | sregBP2 | sregSRWD
		s.sreg = (s.sreg &^ settable) | (f[1] & settable)
		s.finishCycle()

	case cmdPageProgram:
		if s.sreg&sregWEL == 0 || len(f) < 4 {
			return
		}
		addr := be24(f[1:4])
		base := addr - addr%g.PageBytes
		off := addr % g.PageBytes
		for i, d := range f[4:] {
			// programming clears bits and wraps inside the page
			s.mem[base+(off+uint32(i))%g.PageBytes] &= d
		}
		s.finishCycle()

	case cmdSectorErase:
		if s.sreg&sregWEL == 0 || len(f) < 4 {
			return
		}
		addr := be24(f[1:4])
		base := addr - addr%g.SectorBytes
		for i := uint32(0); i < g.SectorBytes; i++ {
			s.mem[base+i] = 0xFF
		}
		s.finishCycle()

	case cmdBulkErase:
		if s.sreg&sregWEL == 0 {
			return
		}
		if s.sreg&(sregBP0|sregBP1|sregBP2) != 0 {
			// silently ignored, no cycle ever starts
			s.sreg &^= sregWEL
			return
		}
		for i := range s.mem {
			s.mem[i] = 0xFF
		}
		s.finishCycle()

	case cmdDeepPowerDown:
		s.powered = true

	case cmdWriteLockRegister:
		if s.sreg&sregWEL == 0 || len(f) < 5 {
			return
		}
		// lock bits are volatile, no write cycle
		s.lock[be24(f[1:4])/g.SectorBytes] = f[4] & 0x03
		s.sreg &^= sregWEL
	}
}

// finishCycle ends a mutating command: the latch clears and the next
// busyPer status reads report the self-timed cycle in progress
func (s *simChip) finishCycle() {
	s.sreg &^= sregWEL
	s.busyLeft = s.busyPer
}

// opcodes returns the first byte of every completed frame
func (s *simChip) opcodes() []byte {
	ops := make([]byte, 0, len(s.frames))
	for _, f := range s.frames {
		if len(f) > 0 {
			ops = append(ops, f[0])
		}
	}
	return ops
}

// frame returns the first completed frame with the given opcode, or nil
func (s *simChip) frame(op byte) []byte {
	for _, f := range s.frames {
		if len(f) > 0 && f[0] == op {
			return f
		}
	}
	return nil
}

func be24(bs []byte) uint32 {
	return uint32(bs[0])<<16 | uint32(bs[1])<<8 | uint32(bs[2])
}
