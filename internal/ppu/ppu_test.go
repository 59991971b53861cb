package ppu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/bus"
	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/cart"
	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/ppu"
)

func newTestBus(t *testing.T) *bus.Bus {
	rom := make([]byte, 0x8000)
	rom[0x0147] = 0x00
	header, err := cart.ParseHeader(rom)
	require.NoError(t, err)
	b := bus.New(cart.New(rom, header))
	b.IOSet(bus.RegLCDC, 0x91)
	return b
}

// TestSTATModeSequenceOverOneScanline walks one scanline's worth of cycles
// and checks STAT bits [1:0] follow OAMScan(2) -> Drawing(3) -> HBlank(0).
func TestSTATModeSequenceOverOneScanline(t *testing.T) {
	b := newTestBus(t)
	p := ppu.New(b)
	b.SetHooks(bus.Hooks{OnLCDCWrite: p.OnLCDCWrite})

	assert.Equal(t, byte(2), b.IOGet(bus.RegSTAT)&0x03)

	p.Step(80)
	assert.Equal(t, byte(3), b.IOGet(bus.RegSTAT)&0x03)

	p.Step(172)
	assert.Equal(t, byte(0), b.IOGet(bus.RegSTAT)&0x03)

	p.Step(204)
	assert.Equal(t, byte(2), b.IOGet(bus.RegSTAT)&0x03) // next scanline begins
}

func TestVBlankFiresAtLine144(t *testing.T) {
	b := newTestBus(t)
	p := ppu.New(b)
	b.SetHooks(bus.Hooks{OnLCDCWrite: p.OnLCDCWrite})
	b.IOSet(bus.RegIF, 0)

	p.Step(144 * 456)

	assert.Equal(t, bus.IntVBlank, b.IOGet(bus.RegIF)&bus.IntVBlank)
	assert.True(t, p.FrameReady)
	assert.Equal(t, byte(144), b.IOGet(bus.RegLY))
}

func TestFrameWrapsAt154Lines(t *testing.T) {
	b := newTestBus(t)
	p := ppu.New(b)
	b.SetHooks(bus.Hooks{OnLCDCWrite: p.OnLCDCWrite})

	p.Step(154 * 456)
	assert.Equal(t, byte(0), b.IOGet(bus.RegLY))
}

func TestLYCCoincidenceRaisesSTATOnce(t *testing.T) {
	b := newTestBus(t)
	p := ppu.New(b)
	b.SetHooks(bus.Hooks{OnLCDCWrite: p.OnLCDCWrite})
	b.IOSet(bus.RegLYC, 1)
	b.IOSet(bus.RegSTAT, b.IOGet(bus.RegSTAT)|0x40) // enable LYC interrupt
	b.IOSet(bus.RegIF, 0)

	p.Step(456) // advance to line 1
	assert.Equal(t, bus.IntSTAT, b.IOGet(bus.RegIF)&bus.IntSTAT)

	b.IOSet(bus.RegIF, 0)
	p.Step(456) // line 2, coincidence broken then not re-triggered
	assert.Equal(t, byte(0), b.IOGet(bus.RegIF)&bus.IntSTAT)
}

func TestLCDDisableResetsToOAMScanLineZero(t *testing.T) {
	b := newTestBus(t)
	p := ppu.New(b)
	b.SetHooks(bus.Hooks{OnLCDCWrite: p.OnLCDCWrite})

	p.Step(80 + 172) // now in HBlank mid-scanline (mode 0)
	assert.Equal(t, byte(0), b.IOGet(bus.RegSTAT)&0x03)

	b.Write(0xFF40, 0x00) // disable LCD
	assert.Equal(t, byte(0), b.IOGet(bus.RegLY))
	assert.Equal(t, byte(2), b.IOGet(bus.RegSTAT)&0x03)
}

// TestSpriteScanlineCapsAtTen ensures at most 10 OAM entries are gathered
// per scanline: an 11th sprite, spaced clear of the first ten, must not
// render (spec.md §8 boundary behaviour).
func TestSpriteScanlineCapsAtTen(t *testing.T) {
	b := newTestBus(t)
	p := ppu.New(b)
	b.SetHooks(bus.Hooks{OnLCDCWrite: p.OnLCDCWrite})
	b.IOSet(bus.RegLCDC, 0x93) // LCD+BG+sprites enabled, 8x8 sprites

	for i := 0; i < 11; i++ {
		base := uint16(i * 4)
		b.Write(0xFE00+base, 16)             // y=16 -> on-screen line 0
		b.Write(0xFE00+base+1, byte(8+i*10)) // spaced 10px apart, no overlap
		b.Write(0xFE00+base+2, 1)            // tile 1
		b.Write(0xFE00+base+3, 0)
	}
	b.Write(0x8010, 0xFF) // tile 1, row 0: all 8 pixels have a nonzero color index
	b.Write(0x8011, 0x00)

	p.Step(80 + 172) // render line 0

	bgPixel := framebufferPixel(p, 150, 0)         // untouched background pixel, right of every sprite
	tenthSpritePixel := framebufferPixel(p, 95, 0) // sprite 9 occupies screen x [90,98)
	eleventhSpritePixel := framebufferPixel(p, 104, 0) // sprite 10 would occupy screen x [100,108)

	assert.NotEqual(t, bgPixel, tenthSpritePixel, "the first ten sprites must render")
	assert.Equal(t, bgPixel, eleventhSpritePixel, "the eleventh sprite must not render")
}

func framebufferPixel(p *ppu.PPU, x, line int) [4]byte {
	off := (line*ppu.ScreenWidth + x) * 4
	var px [4]byte
	copy(px[:], p.Framebuffer[off:off+4])
	return px
}
