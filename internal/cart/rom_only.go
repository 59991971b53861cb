package cart

// romOnly is the no-MBC cartridge: the switchable window is always
// physical bank 1 and control writes are ignored. External RAM is not
// mapped, even when the header declares some: reads of 0xA000-0xBFFF
// return 0xFF and writes there are dropped.
type romOnly struct {
	rom []byte
}

func newROMOnly(rom []byte) *romOnly {
	return &romOnly{rom: rom}
}

func (c *romOnly) Read(addr uint16) byte {
	if addr < 0x8000 && int(addr) < len(c.rom) {
		return c.rom[addr]
	}
	return 0xFF
}

func (c *romOnly) Write(addr uint16, value byte) {
	// No MBC registers and no external RAM: all writes ignored.
}
