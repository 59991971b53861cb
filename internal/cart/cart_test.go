package cart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/cart"
)

func makeROM(typeCode, romCode, ramCode byte, size int) []byte {
	rom := make([]byte, size)
	rom[0x0147] = typeCode
	rom[0x0148] = romCode
	rom[0x0149] = ramCode
	return rom
}

func TestParseHeaderTooShort(t *testing.T) {
	_, err := cart.ParseHeader(make([]byte, 10))
	require.Error(t, err)
	var tooShort *cart.RomTooShort
	assert.ErrorAs(t, err, &tooShort)
}

func TestParseHeaderROMTooShortForDeclaredSize(t *testing.T) {
	rom := makeROM(0x00, 0x01, 0x00, 0x8000) // romCode 0x01 declares 4 banks = 64KiB
	_, err := cart.ParseHeader(rom)
	require.Error(t, err)
	var tooShort *cart.RomTooShort
	assert.ErrorAs(t, err, &tooShort)
}

func TestParseHeaderUnsupportedMbc(t *testing.T) {
	rom := makeROM(0xFF, 0x00, 0x00, 0x8000)
	h, err := cart.ParseHeader(rom)
	require.Error(t, err)
	var unsupported *cart.UnsupportedMbc
	assert.ErrorAs(t, err, &unsupported)
	assert.Equal(t, cart.KindROMOnly, h.Kind)
}

func TestROMOnlyReadsFixedBank(t *testing.T) {
	rom := makeROM(0x00, 0x00, 0x00, 0x8000)
	rom[0x0042] = 0x7A
	rom[0x4010] = 0x7B
	h, err := cart.ParseHeader(rom)
	require.NoError(t, err)
	c := cart.New(rom, h)
	assert.Equal(t, byte(0x7A), c.Read(0x0042))
	assert.Equal(t, byte(0x7B), c.Read(0x4010))
	assert.Equal(t, byte(0xFF), c.Read(0xA000)) // no RAM
}

// TestMBC1BankSubstitution reproduces spec.md §8 scenario 6: a 1 MiB (64
// bank) MBC1 cartridge, writing 0x20 to the low bank register selects
// effective bank 0x21, not 0x20.
func TestMBC1BankSubstitution(t *testing.T) {
	romSize := 64 * 0x4000
	rom := makeROM(0x01, 0x05, 0x00, romSize) // romCode 0x05 = 64 banks
	rom[0x21*0x4000] = 0xAB
	h, err := cart.ParseHeader(rom)
	require.NoError(t, err)
	c := cart.New(rom, h)

	c.Write(0x2000, 0x20)
	assert.Equal(t, byte(0xAB), c.Read(0x4000))
}

func TestMBC1OrdinaryBankSelect(t *testing.T) {
	romSize := 8 * 0x4000
	rom := makeROM(0x01, 0x02, 0x00, romSize) // 8 banks
	rom[5*0x4000] = 0xCD
	h, err := cart.ParseHeader(rom)
	require.NoError(t, err)
	c := cart.New(rom, h)

	c.Write(0x2000, 0x05)
	assert.Equal(t, byte(0xCD), c.Read(0x4000))
}

func TestMBC1Bank0SubstitutionAppliesBeforeMasking(t *testing.T) {
	// A smaller cartridge (8 banks): writing 0x20 still substitutes to
	// 0x21 before masking down to the available bank count (0x21 & 7 = 1).
	romSize := 8 * 0x4000
	rom := makeROM(0x01, 0x02, 0x00, romSize)
	rom[1*0x4000] = 0xEE
	h, err := cart.ParseHeader(rom)
	require.NoError(t, err)
	c := cart.New(rom, h)

	c.Write(0x2000, 0x20)
	assert.Equal(t, byte(0xEE), c.Read(0x4000))
}

func TestMBC1RAMEnableGating(t *testing.T) {
	rom := makeROM(0x02, 0x00, 0x02, 0x8000)
	h, err := cart.ParseHeader(rom)
	require.NoError(t, err)
	c := cart.New(rom, h)

	c.Write(0xA000, 0x11) // dropped: RAM not enabled
	assert.Equal(t, byte(0xFF), c.Read(0xA000))

	c.Write(0x0000, 0x0A) // enable
	c.Write(0xA000, 0x11)
	assert.Equal(t, byte(0x11), c.Read(0xA000))
}

func TestMBC1AdvancedModeBanksLowWindow(t *testing.T) {
	romSize := 64 * 0x4000
	rom := makeROM(0x01, 0x05, 0x00, romSize)
	rom[0x20*0x4000] = 0x77 // bank 0x20, selected via high<<5 with low=0
	h, err := cart.ParseHeader(rom)
	require.NoError(t, err)
	c := cart.New(rom, h)

	c.Write(0x4000, 0x01) // bankHigh = 1
	c.Write(0x6000, 0x01) // advanced mode
	assert.Equal(t, byte(0x77), c.Read(0x0000))
}

func TestMBC3RAMBankingAcrossBanks(t *testing.T) {
	rom := makeROM(0x11, 0x00, 0x03, 0x8000) // MBC3, 32KiB RAM (4 banks)
	h, err := cart.ParseHeader(rom)
	require.NoError(t, err)
	c := cart.New(rom, h)

	c.Write(0x0000, 0x0A) // enable RAM
	c.Write(0x4000, 0x02) // select RAM bank 2
	c.Write(0xA100, 0x5A)

	c.Write(0x4000, 0x00) // switch to bank 0
	assert.NotEqual(t, byte(0x5A), c.Read(0xA100))

	c.Write(0x4000, 0x02) // switch back
	assert.Equal(t, byte(0x5A), c.Read(0xA100))
}

func TestMBC3RTCRegistersAreInert(t *testing.T) {
	rom := makeROM(0x0F, 0x00, 0x00, 0x8000) // MBC3+TIMER, no RAM
	h, err := cart.ParseHeader(rom)
	require.NoError(t, err)
	c := cart.New(rom, h)

	c.Write(0x0000, 0x0A)
	c.Write(0x4000, 0x08) // select RTC seconds register
	c.Write(0xA000, 0x42) // dropped
	assert.Equal(t, byte(0xFF), c.Read(0xA000))
}

func TestMBC5NoSubstitutionQuirk(t *testing.T) {
	rom := makeROM(0x19, 0x00, 0x00, 0x8000) // MBC5, 2 banks
	rom[0] = 0xAA                            // bank 0 is directly selectable in the switchable window
	h, err := cart.ParseHeader(rom)
	require.NoError(t, err)
	c := cart.New(rom, h)

	c.Write(0x2000, 0x00)
	c.Write(0x3000, 0x00)
	assert.Equal(t, byte(0xAA), c.Read(0x4000))
}
