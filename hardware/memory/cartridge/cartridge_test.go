// This file is part of Gopherboy.
//
// Gopherboy is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopherboy is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopherboy.  If not, see <https://www.gnu.org/licenses/>.

package cartridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetsetilly/gopherboy/cartridgeloader"
	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware/memory/cartridge"
)

var nintendoLogo = [48]uint8{
	0xce, 0xed, 0x66, 0x66, 0xcc, 0x0d, 0x00, 0x0b, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0c, 0x00, 0x0d,
	0x00, 0x08, 0x11, 0x1f, 0x88, 0x89, 0x00, 0x0e, 0xdc, 0xcc, 0x6e, 0xe6, 0xdd, 0xdd, 0xd9, 0x99,
	0xbb, 0xbb, 0x67, 0x63, 0x6e, 0x0e, 0xec, 0xcc, 0xdd, 0xdc, 0x99, 0x9f, 0xbb, 0xb9, 0x33, 0x3e,
}

// buildROM fabricates a cartridge image with a valid header and a sixteen
// bit bank marker in the middle of every bank.
func buildROM(typeByte uint8, ramCode uint8, banks int) []byte {
	romCode := uint8(0)
	for 2<<romCode < banks {
		romCode++
	}

	rom := make([]byte, 0x8000<<romCode)
	copy(rom[0x104:], nintendoLogo[:])
	copy(rom[0x134:], "TEST")
	rom[0x147] = typeByte
	rom[0x148] = romCode
	rom[0x149] = ramCode

	var checksum uint8
	for _, b := range rom[0x134:0x14d] {
		checksum = checksum - b - 1
	}
	rom[0x14d] = checksum

	for b := 0; b < len(rom)/0x4000; b++ {
		o := b*0x4000 + 0x2000
		rom[o] = uint8(b)
		rom[o+1] = uint8(b >> 8)
	}

	return rom
}

func newCart(t *testing.T, rom []byte) *cartridge.Cartridge {
	t.Helper()
	cart, err := cartridge.NewCartridge(cartridgeloader.NewLoaderFromData("test.gb", rom))
	require.NoError(t, err)
	return cart
}

// the bank marker visible through the switchable ROM window
func bankX(cart *cartridge.Cartridge) int {
	return int(cart.Read(0x6000)) | int(cart.Read(0x6001))<<8
}

// the bank marker visible through the fixed ROM window
func bank0(cart *cartridge.Cartridge) int {
	return int(cart.Read(0x2000)) | int(cart.Read(0x2001))<<8
}

func TestHeaderDecode(t *testing.T) {
	cart := newCart(t, buildROM(0x03, 0x02, 4))

	assert.Equal(t, "TEST", cart.Title())
	assert.Equal(t, "MBC1", cart.MapperName())
	assert.True(t, cart.HasBattery())
	assert.Equal(t, 4, cart.NumROMBanks())
	assert.False(t, cart.IsCGB())
}

func TestHeaderCGBFlag(t *testing.T) {
	rom := buildROM(0x00, 0x00, 2)
	rom[0x143] = 0x80

	var checksum uint8
	for _, b := range rom[0x134:0x14d] {
		checksum = checksum - b - 1
	}
	rom[0x14d] = checksum

	cart := newCart(t, rom)
	assert.True(t, cart.IsCGB())
}

func TestBadHeaders(t *testing.T) {
	rom := buildROM(0x00, 0x00, 2)
	rom[0x104] = 0x00
	_, err := cartridge.NewCartridge(cartridgeloader.NewLoaderFromData("test.gb", rom))
	assert.True(t, curated.Is(err, cartridge.InvalidLogo))

	rom = buildROM(0x00, 0x00, 2)
	rom[0x14d] ^= 0xff
	_, err = cartridge.NewCartridge(cartridgeloader.NewLoaderFromData("test.gb", rom))
	assert.True(t, curated.Is(err, cartridge.InvalidChecksum))

	rom = buildROM(0x20, 0x00, 2)
	_, err = cartridge.NewCartridge(cartridgeloader.NewLoaderFromData("test.gb", rom))
	assert.True(t, curated.Is(err, cartridge.UnsupportedMapper))

	// a ROM size code that disagrees with the file length
	rom = buildROM(0x00, 0x00, 2)
	rom[0x148] = 0x03
	var checksum uint8
	for _, b := range rom[0x134:0x14d] {
		checksum = checksum - b - 1
	}
	rom[0x14d] = checksum
	_, err = cartridge.NewCartridge(cartridgeloader.NewLoaderFromData("test.gb", rom))
	assert.True(t, curated.Is(err, cartridge.InvalidROMSize))
}

func TestROMOnly(t *testing.T) {
	cart := newCart(t, buildROM(0x00, 0x00, 2))

	assert.Equal(t, 0, bank0(cart))
	assert.Equal(t, 1, bankX(cart))

	// register writes are ignored, external RAM is absent
	cart.WriteRegister(0x2000, 0x02)
	assert.Equal(t, 1, bankX(cart))
	assert.Equal(t, uint8(0xff), cart.ReadRAM(0xa000))
}

func TestMBC1ROMBanking(t *testing.T) {
	cart := newCart(t, buildROM(0x01, 0x00, 64))
	assert.Equal(t, "MBC1", cart.MapperName())

	cart.WriteRegister(0x2000, 0x05)
	assert.Equal(t, 5, bankX(cart))

	// bank zero is never selectable through the 5-bit register
	cart.WriteRegister(0x2000, 0x00)
	assert.Equal(t, 1, bankX(cart))
	cart.WriteRegister(0x2000, 0x20)
	assert.Equal(t, 1, bankX(cart))

	// the 2-bit register extends the bank number upwards
	cart.WriteRegister(0x2000, 0x01)
	cart.WriteRegister(0x4000, 0x01)
	assert.Equal(t, 33, bankX(cart))

	// in mode 1 the fixed window is re-banked too
	assert.Equal(t, 0, bank0(cart))
	cart.WriteRegister(0x6000, 0x01)
	assert.Equal(t, 32, bank0(cart))
	cart.WriteRegister(0x6000, 0x00)
	assert.Equal(t, 0, bank0(cart))
}

func TestMBC1RAM(t *testing.T) {
	cart := newCart(t, buildROM(0x03, 0x03, 4))

	// disabled RAM reads high and swallows writes
	assert.Equal(t, uint8(0xff), cart.ReadRAM(0xa000))
	cart.WriteRAM(0xa000, 0x12)
	cart.WriteRegister(0x0000, 0x0a)
	assert.Equal(t, uint8(0x00), cart.ReadRAM(0xa000))

	cart.WriteRAM(0xa000, 0x12)
	assert.Equal(t, uint8(0x12), cart.ReadRAM(0xa000))

	// RAM banking needs mode 1
	cart.WriteRegister(0x6000, 0x01)
	cart.WriteRegister(0x4000, 0x02)
	assert.Equal(t, uint8(0x00), cart.ReadRAM(0xa000))
	cart.WriteRAM(0xa000, 0x34)

	cart.WriteRegister(0x4000, 0x00)
	assert.Equal(t, uint8(0x12), cart.ReadRAM(0xa000))
	cart.WriteRegister(0x4000, 0x02)
	assert.Equal(t, uint8(0x34), cart.ReadRAM(0xa000))
}

func TestMBC1Multicart(t *testing.T) {
	rom := buildROM(0x01, 0x00, 64)

	// the multicart fingerprint: the logo repeated at every 256k boundary
	for i := 1; i < 4; i++ {
		copy(rom[i<<18|0x104:], nintendoLogo[:])
	}

	cart := newCart(t, rom)
	assert.Equal(t, "MBC1M", cart.MapperName())

	// the 2-bit register lands on bit 4 rather than bit 5
	cart.WriteRegister(0x2000, 0x01)
	cart.WriteRegister(0x4000, 0x01)
	assert.Equal(t, 17, bankX(cart))

	// the zero adjustment happens before the masking, so 0x10 really does
	// select bank zero of the game
	cart.WriteRegister(0x2000, 0x10)
	assert.Equal(t, 16, bankX(cart))
}

func TestMBC2(t *testing.T) {
	cart := newCart(t, buildROM(0x05, 0x00, 16))
	assert.Equal(t, "MBC2", cart.MapperName())

	// address bit 8 selects the ROM bank register
	cart.WriteRegister(0x2100, 0x05)
	assert.Equal(t, 5, bankX(cart))
	cart.WriteRegister(0x2100, 0x00)
	assert.Equal(t, 1, bankX(cart))

	// and with bit 8 clear the same range is the RAM enable
	cart.WriteRegister(0x2000, 0x0a)
	cart.WriteRAM(0xa000, 0xab)

	// only the low nibble is backed by storage
	assert.Equal(t, uint8(0xfb), cart.ReadRAM(0xa000))

	// the 512 bytes repeat through the whole window
	assert.Equal(t, uint8(0xfb), cart.ReadRAM(0xa200))

	cart.WriteRegister(0x2000, 0x00)
	assert.Equal(t, uint8(0xff), cart.ReadRAM(0xa000))
}

func TestMBC3RTC(t *testing.T) {
	cart := newCart(t, buildROM(0x10, 0x02, 8))
	assert.Equal(t, "MBC3+RTC", cart.MapperName())

	cart.WriteRegister(0x0000, 0x0a)

	// map the seconds register into the RAM window and latch
	cart.WriteRegister(0x4000, 0x08)
	cart.WriteRegister(0x6000, 0x00)
	cart.WriteRegister(0x6000, 0x01)
	assert.Equal(t, uint8(0x00), cart.ReadRAM(0xa000))

	// one wall-clock second of mapper steps
	for i := 0; i < cartridge.StepsPerSecond; i++ {
		cart.Step()
	}

	// the latched value holds until the latch sequence repeats
	assert.Equal(t, uint8(0x00), cart.ReadRAM(0xa000))
	cart.WriteRegister(0x6000, 0x00)
	cart.WriteRegister(0x6000, 0x01)
	assert.Equal(t, uint8(0x01), cart.ReadRAM(0xa000))

	// halting the clock freezes it
	cart.WriteRegister(0x4000, 0x0c)
	cart.WriteRAM(0xa000, 0x40)
	for i := 0; i < 2*cartridge.StepsPerSecond; i++ {
		cart.Step()
	}
	cart.WriteRegister(0x6000, 0x00)
	cart.WriteRegister(0x6000, 0x01)
	cart.WriteRegister(0x4000, 0x08)
	assert.Equal(t, uint8(0x01), cart.ReadRAM(0xa000))

	// the RAM banks are still there behind the multiplexer
	cart.WriteRegister(0x4000, 0x00)
	cart.WriteRAM(0xa123, 0x55)
	assert.Equal(t, uint8(0x55), cart.ReadRAM(0xa123))
}

func TestMBC5(t *testing.T) {
	cart := newCart(t, buildROM(0x1a, 0x03, 512))
	assert.Equal(t, "MBC5", cart.MapperName())

	// nine bit ROM bank number over two registers
	cart.WriteRegister(0x2000, 0x34)
	cart.WriteRegister(0x3000, 0x01)
	assert.Equal(t, 0x134, bankX(cart))

	// bank zero is selectable
	cart.WriteRegister(0x2000, 0x00)
	cart.WriteRegister(0x3000, 0x00)
	assert.Equal(t, 0, bankX(cart))

	// RAM enable compares the whole byte
	cart.WriteRegister(0x0000, 0x1a)
	assert.Equal(t, uint8(0xff), cart.ReadRAM(0xa000))
	cart.WriteRegister(0x0000, 0x0a)
	cart.WriteRAM(0xa000, 0x77)
	assert.Equal(t, uint8(0x77), cart.ReadRAM(0xa000))
}

func TestBatterySave(t *testing.T) {
	cart := newCart(t, buildROM(0x03, 0x02, 4))

	cart.WriteRegister(0x0000, 0x0a)
	cart.WriteRAM(0xa000, 0x12)
	cart.WriteRAM(0xa001, 0x34)

	save := cart.BatterySave()
	require.NotNil(t, save)
	assert.Equal(t, uint8(0x12), save[0])
	assert.Equal(t, uint8(0x34), save[1])

	// restore into a fresh cartridge
	fresh := newCart(t, buildROM(0x03, 0x02, 4))
	require.NoError(t, fresh.BatteryLoad(save))
	fresh.WriteRegister(0x0000, 0x0a)
	assert.Equal(t, uint8(0x12), fresh.ReadRAM(0xa000))
	assert.Equal(t, uint8(0x34), fresh.ReadRAM(0xa001))

	// no battery, no save
	none := newCart(t, buildROM(0x02, 0x02, 4))
	assert.Nil(t, none.BatterySave())
}
