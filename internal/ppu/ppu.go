// Package ppu implements the DMG picture processing unit: the
// OAMScan/Drawing/HBlank/VBlank mode machine, STAT/LYC interrupt sources,
// and per-scanline background/window/sprite rendering into a fixed RGBA
// framebuffer.
package ppu

import "github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/bus"

const (
	ScreenWidth  = 160
	ScreenHeight = 144

	modeHBlank  = 0
	modeVBlank  = 1
	modeOAMScan = 2
	modeDrawing = 3

	cyclesOAMScan = 80
	cyclesDrawing = 172
	cyclesHBlank  = 204
	cyclesLine    = 456
)

// DMG palette, lightest to darkest green, as packed RGBA bytes.
var dmgPalette = [4][4]byte{
	{0x9B, 0xBC, 0x0F, 0xFF},
	{0x8B, 0xAC, 0x0F, 0xFF},
	{0x30, 0x62, 0x30, 0xFF},
	{0x0F, 0x38, 0x0F, 0xFF},
}

type spriteEntry struct {
	y, x, tile, flags byte
	oamIndex          int
}

// PPU owns the framebuffer, the BG-color-index shadow buffer, and the
// scanline mode machine. All state used for LY/STAT synthesis is mirrored
// into the bus's I/O file so the CPU sees register semantics identical to
// hardware; the mode machine's own bookkeeping stays private.
type PPU struct {
	bus *bus.Bus

	mode  int
	line  int
	accum int

	windowLine int

	lycMatch bool

	Framebuffer []byte
	bgColorIdx  []byte

	FrameReady bool
}

// New creates a PPU bound to b with the mode machine at its reset state
// and both display buffers pre-allocated.
func New(b *bus.Bus) *PPU {
	p := &PPU{
		bus:         b,
		Framebuffer: make([]byte, ScreenWidth*ScreenHeight*4),
		bgColorIdx:  make([]byte, ScreenWidth*ScreenHeight),
	}
	p.mode = modeOAMScan
	p.writeSTATMode()
	return p
}

// OnLCDCWrite observes LCDC enable/disable transitions (spec.md §4.4 step 1).
func (p *PPU) OnLCDCWrite(old, new byte) {
	wasEnabled := old&0x80 != 0
	nowEnabled := new&0x80 != 0
	if wasEnabled && !nowEnabled {
		p.mode = modeOAMScan
		p.line = 0
		p.accum = 0
		p.windowLine = 0
		p.bus.IOSet(bus.RegLY, 0)
		p.writeSTATMode()
	}
}

func (p *PPU) lcdEnabled() bool {
	return p.bus.IOGet(bus.RegLCDC)&0x80 != 0
}

// Step advances the mode machine by cycles CPU cycles, running scanline
// rendering and raising STAT/VBlank interrupts at mode boundaries.
func (p *PPU) Step(cycles int) {
	if !p.lcdEnabled() {
		if p.mode != modeOAMScan || p.line != 0 || p.accum != 0 {
			p.mode = modeOAMScan
			p.line = 0
			p.accum = 0
			p.bus.IOSet(bus.RegLY, 0)
			p.writeSTATMode()
		}
		return
	}

	p.accum += cycles
	for {
		switch p.mode {
		case modeOAMScan:
			if p.accum < cyclesOAMScan {
				return
			}
			p.accum -= cyclesOAMScan
			p.mode = modeDrawing
			p.enterMode(modeDrawing)
		case modeDrawing:
			if p.accum < cyclesDrawing {
				return
			}
			p.accum -= cyclesDrawing
			if p.line < ScreenHeight {
				p.renderScanline()
			}
			p.mode = modeHBlank
			p.enterMode(modeHBlank)
		case modeHBlank:
			if p.accum < cyclesHBlank {
				return
			}
			p.accum -= cyclesHBlank
			p.line++
			p.bus.IOSet(bus.RegLY, byte(p.line))
			p.checkLYC()
			if p.line == ScreenHeight {
				p.mode = modeVBlank
				p.enterMode(modeVBlank)
				p.bus.RequestInterrupt(bus.IntVBlank)
				p.FrameReady = true
			} else {
				p.mode = modeOAMScan
				p.enterMode(modeOAMScan)
			}
		case modeVBlank:
			if p.accum < cyclesLine {
				return
			}
			p.accum -= cyclesLine
			p.line++
			if p.line > 153 {
				p.line = 0
				p.windowLine = 0
				p.bus.IOSet(bus.RegLY, 0)
				p.checkLYC()
				p.mode = modeOAMScan
				p.enterMode(modeOAMScan)
			} else {
				p.bus.IOSet(bus.RegLY, byte(p.line))
				p.checkLYC()
			}
		}
	}
}

// enterMode writes the new mode into STAT and raises the STAT interrupt if
// the corresponding source is enabled.
func (p *PPU) enterMode(mode int) {
	p.writeSTATMode()
	var enableBit byte
	switch mode {
	case modeHBlank:
		enableBit = 1 << 3
	case modeVBlank:
		enableBit = 1 << 4
	case modeOAMScan:
		enableBit = 1 << 5
	default:
		return
	}
	stat := p.bus.IOGet(bus.RegSTAT)
	if stat&enableBit != 0 {
		p.bus.RequestInterrupt(bus.IntSTAT)
	}
}

func (p *PPU) writeSTATMode() {
	stat := p.bus.IOGet(bus.RegSTAT)
	stat = (stat &^ 0x03) | byte(p.mode&0x03)
	p.bus.IOSet(bus.RegSTAT, stat)
}

func (p *PPU) checkLYC() {
	ly := p.bus.IOGet(bus.RegLY)
	lyc := p.bus.IOGet(bus.RegLYC)
	stat := p.bus.IOGet(bus.RegSTAT)
	match := ly == lyc
	if match {
		stat |= 1 << 2
	} else {
		stat &^= 1 << 2
	}
	p.bus.IOSet(bus.RegSTAT, stat)
	if match && !p.lycMatch && stat&(1<<6) != 0 {
		p.bus.RequestInterrupt(bus.IntSTAT)
	}
	p.lycMatch = match
}

func (p *PPU) renderScanline() {
	lcdc := p.bus.IOGet(bus.RegLCDC)
	p.renderBackground(lcdc)
	if lcdc&0x20 != 0 {
		p.renderWindow(lcdc)
	}
	if lcdc&0x02 != 0 {
		p.renderSprites(lcdc)
	}
}

func (p *PPU) setPixel(x, line int, colorIdx byte, palette byte) {
	shade := (palette >> (colorIdx * 2)) & 0x03
	off := (line*ScreenWidth + x) * 4
	rgba := dmgPalette[shade]
	copy(p.Framebuffer[off:off+4], rgba[:])
	p.bgColorIdx[line*ScreenWidth+x] = colorIdx
}

// tileRowBytes fetches the two bitplane bytes for one row of tile tileIdx.
// tileIdx is already sign-resolved by the caller when the $9000 addressing
// mode applies, so it may be negative here.
func tileRowBytes(b *bus.Bus, dataBase uint16, tileIdx int, row int) (byte, byte) {
	addr := uint16(int32(dataBase) + int32(tileIdx)*16 + int32(row)*2)
	lo := b.Read(addr)
	hi := b.Read(addr + 1)
	return lo, hi
}

func colorIndexAt(lo, hi byte, bit int) byte {
	l := (lo >> uint(7-bit)) & 1
	h := (hi >> uint(7-bit)) & 1
	return (h << 1) | l
}

func (p *PPU) renderBackground(lcdc byte) {
	bgp := p.bus.IOGet(bus.RegBGP)
	if lcdc&0x01 == 0 {
		for x := 0; x < ScreenWidth; x++ {
			p.setPixel(x, p.line, 0, bgp)
		}
		return
	}

	scy := p.bus.IOGet(bus.RegSCY)
	scx := p.bus.IOGet(bus.RegSCX)
	mapBase := uint16(0x9800)
	if lcdc&0x08 != 0 {
		mapBase = 0x9C00
	}
	dataBase := uint16(0x8000)
	signed := false
	if lcdc&0x10 == 0 {
		dataBase = 0x9000
		signed = true
	}

	yInMap := (p.line + int(scy)) & 0xFF
	tileRow := yInMap / 8
	rowInTile := yInMap % 8

	for x := 0; x < ScreenWidth; x++ {
		xInMap := (x + int(scx)) & 0xFF
		tileCol := xInMap / 8
		colInTile := xInMap % 8

		mapAddr := mapBase + uint16(tileRow)*32 + uint16(tileCol)
		tileIdx := int(p.bus.Read(mapAddr))
		if signed {
			tileIdx = int(int8(byte(tileIdx)))
		}
		lo, hi := tileRowBytes(p.bus, dataBase, tileIdx, rowInTile)
		colorIdx := colorIndexAt(lo, hi, colInTile)
		p.setPixel(x, p.line, colorIdx, bgp)
	}
}

func (p *PPU) renderWindow(lcdc byte) {
	wy := int(p.bus.IOGet(bus.RegWY))
	if p.line < wy {
		return
	}
	wx := int(p.bus.IOGet(bus.RegWX)) - 7

	bgp := p.bus.IOGet(bus.RegBGP)
	mapBase := uint16(0x9800)
	if lcdc&0x40 != 0 {
		mapBase = 0x9C00
	}
	dataBase := uint16(0x8000)
	signed := false
	if lcdc&0x10 == 0 {
		dataBase = 0x9000
		signed = true
	}

	tileRow := p.windowLine / 8
	rowInTile := p.windowLine % 8

	emitted := false
	for x := 0; x < ScreenWidth; x++ {
		screenX := wx + x
		if screenX < 0 || screenX >= ScreenWidth {
			continue
		}
		tileCol := x / 8
		colInTile := x % 8

		mapAddr := mapBase + uint16(tileRow)*32 + uint16(tileCol)
		tileIdx := int(p.bus.Read(mapAddr))
		if signed {
			tileIdx = int(int8(byte(tileIdx)))
		}
		lo, hi := tileRowBytes(p.bus, dataBase, tileIdx, rowInTile)
		colorIdx := colorIndexAt(lo, hi, colInTile)
		p.setPixel(screenX, p.line, colorIdx, bgp)
		emitted = true
	}
	if emitted {
		p.windowLine++
	}
}

func (p *PPU) renderSprites(lcdc byte) {
	height := 8
	if lcdc&0x04 != 0 {
		height = 16
	}

	var candidates []spriteEntry
	for i := 0; i < 40 && len(candidates) < 10; i++ {
		base := uint16(i * 4)
		y := int(p.bus.Read(0xFE00+base)) - 16
		if p.line < y || p.line >= y+height {
			continue
		}
		candidates = append(candidates, spriteEntry{
			y:        p.bus.Read(0xFE00 + base),
			x:        p.bus.Read(0xFE00 + base + 1),
			tile:     p.bus.Read(0xFE00 + base + 2),
			flags:    p.bus.Read(0xFE00 + base + 3),
			oamIndex: i,
		})
	}

	// Draw lowest priority first so the highest-priority sprite's pixels
	// land last: sort ascending by X then OAM index, then draw in reverse.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0; j-- {
			a, b := candidates[j-1], candidates[j]
			if a.x > b.x || (a.x == b.x && a.oamIndex > b.oamIndex) {
				candidates[j-1], candidates[j] = candidates[j], candidates[j-1]
			} else {
				break
			}
		}
	}

	obp0 := p.bus.IOGet(bus.RegOBP0)
	obp1 := p.bus.IOGet(bus.RegOBP1)

	for i := len(candidates) - 1; i >= 0; i-- {
		s := candidates[i]
		spriteY := int(s.y) - 16
		row := p.line - spriteY
		if s.flags&0x40 != 0 {
			row = height - 1 - row
		}
		tile := int(s.tile)
		if height == 16 {
			tile &^= 1
		}
		lo, hi := tileRowBytes(p.bus, 0x8000, tile, row)

		palette := obp0
		if s.flags&0x10 != 0 {
			palette = obp1
		}
		xFlip := s.flags&0x20 != 0
		priorityBehindBG := s.flags&0x80 != 0

		for bit := 0; bit < 8; bit++ {
			screenX := int(s.x) - 8 + bit
			if screenX < 0 || screenX >= ScreenWidth {
				continue
			}
			effBit := bit
			if xFlip {
				effBit = 7 - bit
			}
			colorIdx := colorIndexAt(lo, hi, effBit)
			if colorIdx == 0 {
				continue
			}
			if priorityBehindBG && p.bgColorIdx[p.line*ScreenWidth+screenX] != 0 {
				continue
			}
			shade := (palette >> (colorIdx * 2)) & 0x03
			off := (p.line*ScreenWidth + screenX) * 4
			rgba := dmgPalette[shade]
			copy(p.Framebuffer[off:off+4], rgba[:])
		}
	}
}
