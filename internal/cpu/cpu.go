// Package cpu implements the Sharp LR35902 instruction set: fetch/decode via
// two 256-entry dispatch tables, flag arithmetic, interrupt dispatch, and
// HALT. It holds no state outside its own registers and the bus it was
// constructed with.
package cpu

import (
	"fmt"

	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/bus"
)

// Flag bits within F. The low nibble of F is always zero; only these four
// bits are ever meaningful.
const (
	FlagZ byte = 1 << 7
	FlagN byte = 1 << 6
	FlagH byte = 1 << 5
	FlagC byte = 1 << 4
)

// Interrupt vectors, in priority order (lowest bit wins).
var intVectors = [5]uint16{0x40, 0x48, 0x50, 0x58, 0x60}
var intBits = [5]byte{bus.IntVBlank, bus.IntSTAT, bus.IntTimer, bus.IntSerial, bus.IntJoypad}

// IllegalOpcode is returned from Step when the fetched byte is one of the
// eleven undefined primary opcodes. It is fatal: the core must not continue
// without a Reset.
type IllegalOpcode struct {
	Opcode byte
	PC     uint16
}

func (e *IllegalOpcode) Error() string {
	return fmt.Sprintf("illegal opcode 0x%02X at PC=0x%04X", e.Opcode, e.PC)
}

var illegalOpcodes = map[byte]bool{
	0xD3: true, 0xDB: true, 0xDD: true, 0xE3: true, 0xE4: true,
	0xEB: true, 0xEC: true, 0xED: true, 0xF4: true, 0xFC: true, 0xFD: true,
}

// CPU holds the SM83 register file and a reference to the shared bus.
type CPU struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	SP uint16
	PC uint16

	ime        bool
	imePending bool
	halted     bool

	bus *bus.Bus
}

// New creates a CPU wired to b, initialized to power-on state.
func New(b *bus.Bus) *CPU {
	c := &CPU{bus: b}
	c.Reset()
	return c
}

// Reset restores power-on register state (spec.md §3).
func (c *CPU) Reset() {
	c.A, c.F = 0x01, 0xB0
	c.B, c.C = 0x00, 0x13
	c.D, c.E = 0x00, 0xD8
	c.H, c.L = 0x01, 0x4D
	c.SP = 0xFFFE
	c.PC = 0x0100
	c.ime = false
	c.imePending = false
	c.halted = false
}

// Bus exposes the underlying bus for tests and tools.
func (c *CPU) Bus() *bus.Bus { return c.bus }

// IME reports the interrupt master enable flag.
func (c *CPU) IME() bool { return c.ime }

// Halted reports whether the CPU is stalled in HALT.
func (c *CPU) Halted() bool { return c.halted }

// RequestInterrupt sets the corresponding IF bit via the bus.
func (c *CPU) RequestInterrupt(bit byte) { c.bus.RequestInterrupt(bit) }

func (c *CPU) getAF() uint16  { return uint16(c.A)<<8 | uint16(c.F&0xF0) }
func (c *CPU) setAF(v uint16) { c.A = byte(v >> 8); c.F = byte(v) & 0xF0 }
func (c *CPU) getBC() uint16  { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) setBC(v uint16) { c.B = byte(v >> 8); c.C = byte(v) }
func (c *CPU) getDE() uint16  { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) setDE(v uint16) { c.D = byte(v >> 8); c.E = byte(v) }
func (c *CPU) getHL() uint16  { return uint16(c.H)<<8 | uint16(c.L) }
func (c *CPU) setHL(v uint16) { c.H = byte(v >> 8); c.L = byte(v) }

func (c *CPU) read8(addr uint16) byte     { return c.bus.Read(addr) }
func (c *CPU) write8(addr uint16, v byte) { c.bus.Write(addr, v) }

func (c *CPU) fetch8() byte {
	v := c.read8(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return lo | hi<<8
}

func (c *CPU) read16(addr uint16) uint16 {
	lo := uint16(c.read8(addr))
	hi := uint16(c.read8(addr + 1))
	return lo | hi<<8
}

func (c *CPU) write16(addr uint16, v uint16) {
	c.write8(addr, byte(v))
	c.write8(addr+1, byte(v>>8))
}

func (c *CPU) push16(v uint16) {
	c.SP -= 2
	c.write16(c.SP, v)
}

func (c *CPU) pop16() uint16 {
	v := c.read16(c.SP)
	c.SP += 2
	return v
}

// getReg8 and setReg8 index the B,C,D,E,H,L,(HL),A operand encoding shared by the LD
// r,r' grid, the ALU-over-r8 grid, and INC/DEC r8.
func (c *CPU) getReg8(idx int) byte {
	switch idx {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read8(c.getHL())
	default:
		return c.A
	}
}

func (c *CPU) setReg8(idx int, v byte) {
	switch idx {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write8(c.getHL(), v)
	default:
		c.A = v
	}
}

// Step performs one unit of work: a HALT stall, an interrupt dispatch, or
// the fetch and execution of exactly one instruction, returning the number
// of CPU cycles consumed. A dispatch does not also execute an instruction.
func (c *CPU) Step() (int, error) {
	if c.imePending {
		c.ime = true
		c.imePending = false
	}

	ie := c.bus.Read(0xFFFF)
	iflag := c.bus.IOGet(bus.RegIF)
	fired := ie & iflag & 0x1F

	if c.halted {
		if fired != 0 {
			c.halted = false
		} else {
			return 4, nil
		}
	}

	if fired != 0 && c.ime {
		return c.dispatchInterrupt(fired), nil
	}

	opcode := c.fetch8()
	if illegalOpcodes[opcode] {
		return 0, &IllegalOpcode{Opcode: opcode, PC: c.PC - 1}
	}
	return primaryTable[opcode](c), nil
}

func (c *CPU) dispatchInterrupt(fired byte) int {
	for bit := 0; bit < 5; bit++ {
		if fired&(1<<bit) != 0 {
			iflag := c.bus.IOGet(bus.RegIF)
			c.bus.IOSet(bus.RegIF, iflag&^intBits[bit])
			c.ime = false
			c.halted = false
			c.push16(c.PC)
			c.PC = intVectors[bit]
			return 20
		}
	}
	return 0
}
