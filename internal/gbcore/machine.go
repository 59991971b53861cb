// Package gbcore wires the bus, cartridge, CPU, PPU, timer, and joypad
// together into one cooperating machine and drives them from CPU cycles.
package gbcore

import (
	"errors"
	"fmt"

	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/bus"
	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/cart"
	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/joypad"
	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/ppu"
	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/timer"
)

// CyclesPerFrame is the number of T-cycles in one 59.73 Hz DMG frame:
// 154 scanlines x 456 cycles.
const CyclesPerFrame = 154 * 456

// BusOutOfRange indicates a core bug: an address reached a code path that
// should be unreachable under correct decoding.
type BusOutOfRange struct {
	Addr uint16
}

func (e *BusOutOfRange) Error() string {
	return fmt.Sprintf("bus address out of range: 0x%04X", e.Addr)
}

// Machine owns one complete DMG core: bus, cartridge, CPU, PPU, timer, and
// joypad, wired together with no cyclic references (all cross-component
// communication goes through the shared bus).
type Machine struct {
	Bus    *bus.Bus
	CPU    *cpu.CPU
	PPU    *ppu.PPU
	Timer  *timer.Timer
	Joypad *joypad.Joypad

	// OnStep, if set, is called after each retired instruction with the PC
	// it was fetched from and the number of cycles it took. cmd/gbcore uses
	// this to back its -trace flag without gbcore importing a logger.
	OnStep func(pc uint16, cycles int)

	overrun int
}

// New loads rom, parses its header, selects the matching cartridge
// implementation, and wires every core component onto a shared bus.
// UnsupportedMbc is returned alongside a usable Machine that falls through
// to ROM-only semantics; RomTooShort is fatal and returns a nil Machine.
func New(rom []byte) (*Machine, error) {
	header, err := cart.ParseHeader(rom)
	var tooShort *cart.RomTooShort
	if header == nil || errors.As(err, &tooShort) {
		return nil, err
	}

	c := cart.New(rom, header)
	b := bus.New(c)

	m := &Machine{
		Bus:    b,
		CPU:    cpu.New(b),
		PPU:    ppu.New(b),
		Timer:  timer.New(b),
		Joypad: joypad.New(b),
	}

	b.SetHooks(bus.Hooks{
		OnP1Write:      m.Joypad.OnP1Write,
		OnDIVWrite:     m.Timer.OnDIVWrite,
		OnTimaTacWrite: m.Timer.OnTimaTacWrite,
		OnLCDCWrite:    m.PPU.OnLCDCWrite,
	})

	return m, err // err is nil or *cart.UnsupportedMbc; both leave m usable
}

// RunFrame retires CPU instructions and fans their cycle counts out to the
// PPU and timer until at least one 70224-cycle frame has been produced,
// carrying any overshoot into the next frame's budget.
func (m *Machine) RunFrame() error {
	total := m.overrun
	m.overrun = 0
	for total < CyclesPerFrame {
		pc := m.CPU.PC
		cycles, err := m.CPU.Step()
		if err != nil {
			return err
		}
		if m.OnStep != nil {
			m.OnStep(pc, cycles)
		}
		m.PPU.Step(cycles)
		m.Timer.Step(cycles)
		total += cycles
	}
	m.overrun = total - CyclesPerFrame
	return nil
}

// FrameReady reports whether the PPU has latched a completed frame since
// the last call to ConsumeFrame.
func (m *Machine) FrameReady() bool { return m.PPU.FrameReady }

// ConsumeFrame returns the framebuffer and clears the frame_ready latch.
// Callers must copy the returned slice before the next RunFrame call, as
// it is the PPU's live backing buffer.
func (m *Machine) ConsumeFrame() []byte {
	m.PPU.FrameReady = false
	return m.PPU.Framebuffer
}

// SetButton forwards a button edge to the joypad.
func (m *Machine) SetButton(b joypad.Button, pressed bool) {
	m.Joypad.SetButton(b, pressed)
}
