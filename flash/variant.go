package flash

// command opcodes shared by the M25P/M25PX family
const (
	cmdWriteEnable          byte = 0x06
	cmdWriteDisable         byte = 0x04
	cmdReadIdentification   byte = 0x9F
	cmdReadStatusRegister   byte = 0x05
	cmdWriteStatusRegister  byte = 0x01
	cmdReadDataBytes        byte = 0x03
	cmdPageProgram          byte = 0x02
	cmdSectorErase          byte = 0xD8
	cmdBulkErase            byte = 0xC7
	cmdDeepPowerDown        byte = 0xB9
	cmdReleaseDeepPowerDown byte = 0xAB
	cmdWriteLockRegister    byte = 0xE5
	cmdReadLockRegister     byte = 0xE8
)

// Variant selects the supported chip model
type Variant int

const (
	// VariantM25P16 is the base 16Mbit part
	VariantM25P16 Variant = iota
	// VariantM25PX16 is the extended 16Mbit part with per-sector lock registers
	VariantM25PX16
)

func (v Variant) String() string {
	switch v {
	case VariantM25P16:
		return "M25P16"
	case VariantM25PX16:
		return "M25PX16"
	}
	return "unknown"
}

// Geometry describes the fixed page and sector layout of a chip variant
type Geometry struct {
	PageCount   uint32
	PageBytes   uint32
	SectorCount uint32
	SectorBytes uint32
}

// Capacity will return the total addressable size in bytes
func (g Geometry) Capacity() uint32 {
	return g.PageCount * g.PageBytes
}

type variantParams struct {
	name            string
	geometry        Geometry
	hasLockRegister bool
}

// both 16Mbit parts share the same layout
var m25Geometry = Geometry{
	PageCount:   8192,
	PageBytes:   256,
	SectorCount: 32,
	SectorBytes: 65536,
}

var variantTable = map[Variant]variantParams{
	VariantM25P16: {
		name:     "M25P16",
		geometry: m25Geometry,
	},
	VariantM25PX16: {
		name:            "M25PX16",
		geometry:        m25Geometry,
		hasLockRegister: true,
	},
}
