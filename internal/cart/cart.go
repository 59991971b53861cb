package cart

// Cartridge is the capability set the bus needs from the ROM/MBC layer:
// fixed and switchable ROM windows, external RAM, and MBC control writes.
// Read/Write take full CPU addresses (0x0000-0x7FFF for ROM/control,
// 0xA000-0xBFFF for external RAM); the bus routes only those ranges here.
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

// New selects a Cartridge implementation from the parsed header's Kind.
// Callers that want UnsupportedMbc to be recoverable should inspect the
// error from ParseHeader themselves; New always returns a usable cartridge.
// ParseHeader sets Kind to KindROMOnly for any type code it doesn't
// recognize, so an unsupported header falls through to ROM-only semantics,
// per spec.md §7.
func New(rom []byte, h *Header) Cartridge {
	switch h.Kind {
	case KindMBC1:
		return newMBC1(rom, h.ROMBanks, h.RAMBytes)
	case KindMBC3:
		return newMBC3(rom, h.ROMBanks, h.RAMBytes)
	case KindMBC5:
		return newMBC5(rom, h.ROMBanks, h.RAMBytes)
	default:
		return newROMOnly(rom)
	}
}

// maskBank clamps bank to the available bank count, which is always a
// power of two (spec.md §4.3, "Bank index arithmetic").
func maskBank(bank, bankCount int) int {
	if bankCount <= 0 {
		return 0
	}
	return bank & (bankCount - 1)
}
