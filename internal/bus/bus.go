// Package bus implements the DMG address bus: region routing, the I/O
// register file, echo-RAM aliasing, and OAM DMA. It is the single shared
// mutable object every other core component reads and writes through.
package bus

import "github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/cart"

// Interrupt bits within IF (0xFF0F) and IE (0xFFFF), in priority order.
const (
	IntVBlank byte = 1 << 0
	IntSTAT   byte = 1 << 1
	IntTimer  byte = 1 << 2
	IntSerial byte = 1 << 3
	IntJoypad byte = 1 << 4
)

// I/O register offsets from 0xFF00, as used by IOGet/IOSet.
const (
	RegP1   = 0x00
	RegDIV  = 0x04
	RegTIMA = 0x05
	RegTMA  = 0x06
	RegTAC  = 0x07
	RegIF   = 0x0F
	RegLCDC = 0x40
	RegSTAT = 0x41
	RegSCY  = 0x42
	RegSCX  = 0x43
	RegLY   = 0x44
	RegLYC  = 0x45
	RegDMA  = 0x46
	RegBGP  = 0x47
	RegOBP0 = 0x48
	RegOBP1 = 0x49
	RegWY   = 0x4A
	RegWX   = 0x4B
)

// Hooks lets the owning components re-derive internal state synchronously
// when the CPU writes to one of their registers, without the bus holding a
// reference to the component itself (see DESIGN.md, "no cyclic references").
type Hooks struct {
	OnP1Write      func(value byte)
	OnDIVWrite     func()
	OnTimaTacWrite func()
	OnLCDCWrite    func(old, new byte)
}

// Bus owns VRAM, WRAM, OAM, HRAM, the I/O register file, and IE. ROM and
// external RAM are delegated to the cartridge.
type Bus struct {
	cart cart.Cartridge

	vram [0x2000]byte // 0x8000-0x9FFF
	wram [0x2000]byte // 0xC000-0xDFFF (echo aliases the first 0x1E00 bytes)
	oam  [0xA0]byte   // 0xFE00-0xFE9F
	io   [0x80]byte   // 0xFF00-0xFF7F
	hram [0x7F]byte   // 0xFF80-0xFFFE
	ie   byte         // 0xFFFF

	hooks Hooks
}

// New creates a bus wired to the given cartridge and initializes the I/O
// file to post-boot-ROM values (spec.md §4.2).
func New(c cart.Cartridge) *Bus {
	b := &Bus{cart: c}
	b.io[RegP1] = 0xCF
	b.io[0x01] = 0x00 // SB
	b.io[0x02] = 0x7E // SC
	b.io[RegDIV] = 0xAB
	b.io[RegTIMA] = 0x00
	b.io[RegTMA] = 0x00
	b.io[RegTAC] = 0xF8
	b.io[RegIF] = 0xE1
	b.io[RegLCDC] = 0x91
	b.io[RegSTAT] = 0x85
	b.io[RegSCY] = 0x00
	b.io[RegSCX] = 0x00
	b.io[RegLY] = 0x00
	b.io[RegLYC] = 0x00
	b.io[RegBGP] = 0xFC
	b.io[RegOBP0] = 0xFF
	b.io[RegOBP1] = 0xFF
	b.io[RegWY] = 0x00
	b.io[RegWX] = 0x00
	return b
}

// SetHooks registers the notification callbacks for side-effecting I/O
// writes. Call once during orchestrator wiring.
func (b *Bus) SetHooks(h Hooks) { b.hooks = h }

// Cart exposes the cartridge for components (e.g. battery RAM tooling)
// that need it directly.
func (b *Bus) Cart() cart.Cartridge { return b.cart }

// Read resolves addr per the region table in spec.md §3.
func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return b.cart.Read(addr)
	case addr < 0xA000:
		return b.vram[addr-0x8000]
	case addr < 0xC000:
		return b.cart.Read(addr)
	case addr < 0xE000:
		return b.wram[addr-0xC000]
	case addr < 0xFE00:
		return b.wram[addr-0xE000]
	case addr < 0xFEA0:
		return b.oam[addr-0xFE00]
	case addr < 0xFF00:
		return 0xFF
	case addr < 0xFF80:
		return b.readIO(byte(addr - 0xFF00))
	case addr < 0xFFFF:
		return b.hram[addr-0xFF80]
	default:
		return b.ie
	}
}

// Write resolves addr per the region table in spec.md §3, applying the
// notification hooks for registers with side effects.
func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr < 0xA000:
		b.vram[addr-0x8000] = value
	case addr < 0xC000:
		b.cart.Write(addr, value)
	case addr < 0xE000:
		b.wram[addr-0xC000] = value
	case addr < 0xFE00:
		b.wram[addr-0xE000] = value
	case addr < 0xFEA0:
		b.oam[addr-0xFE00] = value
	case addr < 0xFF00:
		// unusable region, writes dropped
	case addr < 0xFF80:
		b.writeIO(byte(addr-0xFF00), value)
	case addr < 0xFFFF:
		b.hram[addr-0xFF80] = value
	default:
		b.ie = value
	}
}

func (b *Bus) readIO(off byte) byte {
	switch off {
	case RegP1:
		return 0xC0 | b.io[off]
	case RegIF:
		return 0xE0 | b.io[off]
	case RegSTAT:
		return 0x80 | b.io[off]
	default:
		return b.io[off]
	}
}

func (b *Bus) writeIO(off byte, value byte) {
	switch off {
	case RegP1:
		b.io[off] = (b.io[off] & 0x0F) | (value & 0x30)
		if b.hooks.OnP1Write != nil {
			b.hooks.OnP1Write(value)
		}
	case RegDIV:
		b.io[off] = 0
		if b.hooks.OnDIVWrite != nil {
			b.hooks.OnDIVWrite()
		}
	case RegTIMA, RegTAC:
		b.io[off] = value
		if b.hooks.OnTimaTacWrite != nil {
			b.hooks.OnTimaTacWrite()
		}
	case RegLY:
		// read-only, writes ignored
	case RegLCDC:
		old := b.io[off]
		b.io[off] = value
		if b.hooks.OnLCDCWrite != nil {
			b.hooks.OnLCDCWrite(old, value)
		}
	case RegSTAT:
		b.io[off] = (b.io[off] & 0x07) | (value & 0x78)
	case RegDMA:
		b.io[off] = value
		b.doDMA(value)
	default:
		b.io[off] = value
	}
}

// doDMA copies 160 bytes from value<<8 into OAM, completing synchronously
// (§9 open question 1; see DESIGN.md / SPEC_FULL.md).
func (b *Bus) doDMA(value byte) {
	src := uint16(value) << 8
	for i := uint16(0); i < 0xA0; i++ {
		b.oam[i] = b.Read(src + i)
	}
}

// IOGet reads an I/O-file byte directly, bypassing notification hooks and
// the read-time masking readIO applies. Used by PPU/Timer/Joypad to
// synthesize the registers they own (LY, STAT mode bits, P1 readback, ...).
func (b *Bus) IOGet(off byte) byte { return b.io[off] }

// IOSet writes an I/O-file byte directly, bypassing hooks. See IOGet.
func (b *Bus) IOSet(off byte, value byte) { b.io[off] = value }

// RequestInterrupt sets the given IF bit. Called by PPU, Timer, and Joypad
// when they detect their respective interrupt condition.
func (b *Bus) RequestInterrupt(bit byte) {
	b.io[RegIF] |= bit
}
