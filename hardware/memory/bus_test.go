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

package memory_test

import (
	"testing"

	"github.com/jetsetilly/gopherboy/cartridgeloader"
	"github.com/jetsetilly/gopherboy/hardware/family"
	"github.com/jetsetilly/gopherboy/hardware/joypad"
	"github.com/jetsetilly/gopherboy/hardware/memory"
	"github.com/jetsetilly/gopherboy/hardware/memory/cartridge"
	"github.com/jetsetilly/gopherboy/test"
)

var nintendoLogo = [48]uint8{
	0xce, 0xed, 0x66, 0x66, 0xcc, 0x0d, 0x00, 0x0b, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0c, 0x00, 0x0d,
	0x00, 0x08, 0x11, 0x1f, 0x88, 0x89, 0x00, 0x0e, 0xdc, 0xcc, 0x6e, 0xe6, 0xdd, 0xdd, 0xd9, 0x99,
	0xbb, 0xbb, 0x67, 0x63, 0x6e, 0x0e, 0xec, 0xcc, 0xdd, 0xdc, 0x99, 0x9f, 0xbb, 0xb9, 0x33, 0x3e,
}

// buildROM fabricates a 32k cartridge image with a valid header.
func buildROM(cgb bool) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x104:], nintendoLogo[:])
	copy(rom[0x134:], "TEST")
	if cgb {
		rom[0x143] = 0x80
	}

	var checksum uint8
	for _, b := range rom[0x134:0x14d] {
		checksum = checksum - b - 1
	}
	rom[0x14d] = checksum

	return rom
}

func newTestBus(t *testing.T, fam family.Family, cgbCart bool) *memory.Bus {
	t.Helper()

	ext := ".gb"
	if cgbCart {
		ext = ".gbc"
	}
	ld := cartridgeloader.NewLoaderFromData("test"+ext, buildROM(cgbCart))

	cart, err := cartridge.NewCartridge(ld)
	test.DemandSuccess(t, err)

	return memory.NewBus(cart, fam)
}

func TestCartridgeVisibleWithoutBootROM(t *testing.T) {
	b := newTestBus(t, family.DMG, false)

	// without a boot ROM image the cartridge is visible from address zero
	test.ExpectEquality(t, b.Read(0x0104), nintendoLogo[0])
	test.ExpectEquality(t, b.Read(0x0134), uint8('T'))
}

func TestBootROMOverlay(t *testing.T) {
	ld := cartridgeloader.NewLoaderFromData("test.gb", buildROM(false))
	cart, err := cartridge.NewCartridge(ld)
	test.DemandSuccess(t, err)

	boot := make([]uint8, 0x100)
	for i := range boot {
		boot[i] = 0xaa
	}

	b, err := memory.NewBusWithBootROM(cart, boot, family.DMG)
	test.DemandSuccess(t, err)

	test.ExpectEquality(t, b.Read(0x0000), uint8(0xaa))

	// the header area is never overlaid
	test.ExpectEquality(t, b.Read(0x0104), nintendoLogo[0])

	// the first write to the disable register unmaps the boot ROM for good
	b.Write(0xff50, 0x01)
	test.ExpectEquality(t, b.Read(0x0000), uint8(0x00))
}

func TestBadBootROMSize(t *testing.T) {
	ld := cartridgeloader.NewLoaderFromData("test.gb", buildROM(false))
	cart, err := cartridge.NewCartridge(ld)
	test.DemandSuccess(t, err)

	_, err = memory.NewBusWithBootROM(cart, make([]uint8, 0x42), family.DMG)
	test.ExpectFailure(t, err)
}

func TestEchoRAM(t *testing.T) {
	b := newTestBus(t, family.DMG, false)

	b.Write(0xc123, 0x42)
	test.ExpectEquality(t, b.Read(0xe123), uint8(0x42))

	b.Write(0xe234, 0x99)
	test.ExpectEquality(t, b.Read(0xc234), uint8(0x99))
}

func TestHRAM(t *testing.T) {
	b := newTestBus(t, family.DMG, false)

	for addr := uint16(0xff80); addr <= 0xfffe; addr++ {
		b.Write(addr, uint8(addr))
	}
	for addr := uint16(0xff80); addr <= 0xfffe; addr++ {
		test.ExpectEquality(t, b.Read(addr), uint8(addr))
	}
}

func TestInterruptRegisterBits(t *testing.T) {
	b := newTestBus(t, family.DMG, false)

	// the unused upper bits of IF always read high
	b.Write(0xff0f, 0x00)
	test.ExpectEquality(t, b.Read(0xff0f), uint8(0xe0))

	b.Write(0xffff, 0x15)
	test.ExpectEquality(t, b.Read(0xffff), uint8(0x15))
}

func TestUnknownRegisters(t *testing.T) {
	b := newTestBus(t, family.CGB, true)

	// FF72 and FF73 hold a full byte, FF75 only three bits
	b.Write(0xff72, 0x12)
	test.ExpectEquality(t, b.Read(0xff72), uint8(0x12))

	b.Write(0xff75, 0xff)
	test.ExpectEquality(t, b.Read(0xff75), uint8(0x70))

	// none of them exist on DMG
	d := newTestBus(t, family.DMG, false)
	d.Write(0xff72, 0x12)
	test.ExpectEquality(t, d.Read(0xff72), uint8(0xff))
}

func TestWRAMBankSwitch(t *testing.T) {
	b := newTestBus(t, family.CGB, true)

	b.Write(0xff70, 0x01)
	b.Write(0xd000, 0x11)

	b.Write(0xff70, 0x02)
	b.Write(0xd000, 0x22)

	b.Write(0xff70, 0x01)
	test.ExpectEquality(t, b.Read(0xd000), uint8(0x11))

	// bank zero selects bank one
	b.Write(0xff70, 0x00)
	test.ExpectEquality(t, b.Read(0xd000), uint8(0x11))

	// bank 0xc000-0xcfff is fixed
	b.Write(0xc000, 0x33)
	b.Write(0xff70, 0x02)
	test.ExpectEquality(t, b.Read(0xc000), uint8(0x33))
}

func TestOAMDMA(t *testing.T) {
	b := newTestBus(t, family.DMG, false)

	// with the display off the OAM is never locked
	b.Write(0xff40, 0x11)

	for i := uint16(0); i < 0xa0; i++ {
		b.Write(0xc000+i, uint8(i)+1)
	}

	b.Write(0xff46, 0xc0)
	test.ExpectEquality(t, b.Read(0xff46), uint8(0xc0))

	// two cycles of start delay, one byte per cycle thereafter
	for i := 0; i < 0xa2; i++ {
		b.TickCycle()
	}

	for i := uint16(0); i < 0xa0; i++ {
		test.ExpectEquality(t, b.PPU.ReadOAM(0xfe00+i), uint8(i)+1)
	}
}

func TestOAMDMABusConflict(t *testing.T) {
	b := newTestBus(t, family.DMG, false)
	b.Write(0xff40, 0x11)

	for i := uint16(0); i < 0xa0; i++ {
		b.Write(0xc000+i, uint8(i)+1)
	}

	b.Write(0xff46, 0xc0)
	for i := 0; i < 10; i++ {
		b.TickCycle()
	}

	// mid transfer a read of the external bus sees the byte the DMA unit
	// is moving, wherever the read is aimed
	test.ExpectInequality(t, b.Read(0xcf00), uint8(0x00))
}

func TestGeneralPurposeHDMA(t *testing.T) {
	b := newTestBus(t, family.CGB, true)
	b.Write(0xff40, 0x11)

	for i := uint16(0); i < 16; i++ {
		b.Write(0xc000+i, uint8(i)+0x50)
	}

	b.Write(0xff51, 0xc0)
	b.Write(0xff52, 0x00)
	b.Write(0xff53, 0x00)
	b.Write(0xff54, 0x00)

	// length zero means a single sixteen byte block
	b.Write(0xff55, 0x00)
	test.ExpectSuccess(t, b.HDMAActive())

	for i := 0; i < 100 && b.HDMAActive(); i++ {
		b.TickCycle()
	}
	test.ExpectFailure(t, b.HDMAActive())

	for i := uint16(0); i < 16; i++ {
		test.ExpectEquality(t, b.PPU.ReadVRAM(0x8000+i), uint8(i)+0x50)
	}

	// a completed transfer reads back as 0xff
	test.ExpectEquality(t, b.Read(0xff55), uint8(0xff))
}

func TestStopMode(t *testing.T) {
	b := newTestBus(t, family.DMG, false)

	b.EnterStop()
	test.ExpectSuccess(t, b.Stopped())

	// the machine wakes on a button press
	b.JOY.Press(joypad.A)
	b.TickCycle()
	test.ExpectFailure(t, b.Stopped())
}
