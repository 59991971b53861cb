package cart

import (
	"fmt"
	"strings"
)

// Kind identifies the memory bank controller family selected by the
// cartridge header (spec.md §4.3).
type Kind int

const (
	KindROMOnly Kind = iota
	KindMBC1
	KindMBC3
	KindMBC5
)

// Header holds the parsed, immutable cartridge metadata read once at load.
type Header struct {
	Title     string
	TypeCode  byte
	Kind      Kind
	ROMBanks  int
	ROMBytes  int
	RAMBanks  int
	RAMBytes  int
}

const (
	headerTitleStart = 0x0134
	headerTitleEnd   = 0x0144
	headerTypeAddr   = 0x0147
	headerROMAddr    = 0x0148
	headerRAMAddr    = 0x0149
)

// RomTooShort indicates the ROM image is smaller than the header declares.
type RomTooShort struct {
	Got, Want int
}

func (e *RomTooShort) Error() string {
	return fmt.Sprintf("rom too short: got %d bytes, header declares %d", e.Got, e.Want)
}

// UnsupportedMbc indicates the header selects an MBC kind this core does
// not implement. It is recoverable: callers may fall through to ROM-only
// semantics (spec.md §7).
type UnsupportedMbc struct {
	Code byte
}

func (e *UnsupportedMbc) Error() string {
	return fmt.Sprintf("unsupported cartridge type 0x%02X", e.Code)
}

var romSizeBanks = map[byte]int{
	0x00: 2, 0x01: 4, 0x02: 8, 0x03: 16, 0x04: 32, 0x05: 64, 0x06: 128,
}

var ramSizeBytes = map[byte]int{
	0x00: 0, 0x01: 0, 0x02: 8 * 1024, 0x03: 32 * 1024, 0x04: 128 * 1024, 0x05: 64 * 1024,
}

// ParseHeader reads the fixed-offset cartridge header fields out of rom.
// It returns RomTooShort if rom is smaller than the header declares, and
// UnsupportedMbc (still populated with best-effort size fields) if the
// type code at 0x0147 is not one of the kinds this core implements.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerTitleEnd {
		return nil, &RomTooShort{Got: len(rom), Want: headerTitleEnd}
	}
	if len(rom) <= headerRAMAddr {
		return nil, &RomTooShort{Got: len(rom), Want: headerRAMAddr + 1}
	}

	title := strings.TrimRight(string(rom[headerTitleStart:headerTitleEnd]), "\x00")
	typeCode := rom[headerTypeAddr]
	romCode := rom[headerROMAddr]
	ramCode := rom[headerRAMAddr]

	banks, ok := romSizeBanks[romCode]
	if !ok {
		banks = 2
	}
	romBytes := banks * 0x4000
	ramBytes := ramSizeBytes[ramCode]
	ramBanks := 0
	if ramBytes > 0 {
		ramBanks = ramBytes / 0x2000
		if ramBanks == 0 {
			ramBanks = 1
		}
	}

	h := &Header{
		Title:    title,
		TypeCode: typeCode,
		ROMBanks: banks,
		ROMBytes: romBytes,
		RAMBanks: ramBanks,
		RAMBytes: ramBytes,
	}

	if len(rom) < romBytes {
		return h, &RomTooShort{Got: len(rom), Want: romBytes}
	}

	switch {
	case typeCode == 0x00:
		h.Kind = KindROMOnly
	case typeCode >= 0x01 && typeCode <= 0x03:
		h.Kind = KindMBC1
	case typeCode >= 0x0F && typeCode <= 0x13:
		h.Kind = KindMBC3
	case typeCode >= 0x19 && typeCode <= 0x1B:
		h.Kind = KindMBC5
	default:
		h.Kind = KindROMOnly
		return h, &UnsupportedMbc{Code: typeCode}
	}
	return h, nil
}
