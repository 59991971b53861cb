package gbcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/bus"
	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/gbcore"
)

func newTestROM(prog ...byte) []byte {
	rom := make([]byte, 0x8000)
	rom[0x0147] = 0x00
	copy(rom[0x0100:], prog)
	return rom
}

// TestVBlankFiresOncePerFrame reproduces spec.md §8 scenario 3.
func TestVBlankFiresOncePerFrame(t *testing.T) {
	rom := newTestROM(
		0x3E, 0x91, // LD A,0x91
		0xE0, 0x40, // LDH (LCDC),A
		0x3E, 0x00, // LD A,0x00
		0xE0, 0x0F, // LDH (IF),A -- clear any pending requests
		0x3C,       // INC A
		0xE0, 0xFF, // LDH (IE),A -- enable VBlank
		0xFB, // EI
		0x00, // NOP (lets IME actually take effect)
		0x18, 0xFE, // JR -2 (spin)
	)
	rom[0x0040] = 0x18 // VBlank handler: JR -2 (spin at the vector)
	rom[0x0041] = 0xFE
	m, err := gbcore.New(rom)
	require.NoError(t, err)

	err = m.RunFrame()
	require.NoError(t, err)

	assert.True(t, m.FrameReady())
	assert.Equal(t, uint16(0x0040), m.CPU.PC)
}

// TestDMAOAMCorruptionGuard verifies DMA copies through the bus's normal
// Read path (so echo-RAM and WRAM sources work identically to a direct
// OAM-window source), rather than a WRAM-only fast path that would corrupt
// data sourced from other regions.
func TestDMAOAMCorruptionGuard(t *testing.T) {
	rom := newTestROM()
	m, err := gbcore.New(rom)
	require.NoError(t, err)

	for i := uint16(0); i < 0xA0; i++ {
		m.Bus.Write(0xC200+i, byte(i^0x5A))
	}
	m.Bus.Write(0xFF46, 0xC2)

	for i := uint16(0); i < 0xA0; i++ {
		assert.Equal(t, byte(i^0x5A), m.Bus.Read(0xFE00+i))
	}
}

func TestMachineFallsThroughOnUnsupportedMbc(t *testing.T) {
	rom := newTestROM()
	rom[0x0147] = 0xFF // unrecognized type code
	m, err := gbcore.New(rom)
	require.Error(t, err)
	require.NotNil(t, m)

	cycles, stepErr := m.CPU.Step()
	require.NoError(t, stepErr)
	assert.Equal(t, 4, cycles) // NOP: the ROM is still readable via the fallback cartridge
}

func TestBusOutOfRangeErrorMessage(t *testing.T) {
	err := &gbcore.BusOutOfRange{Addr: 0x1234}
	assert.Contains(t, err.Error(), "0x1234")
	assert.NotEmpty(t, bus.IntVBlank) // sanity: bus package constants are reachable from here too
}
