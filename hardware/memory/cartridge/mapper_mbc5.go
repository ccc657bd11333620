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

package cartridge

import (
	"github.com/jetsetilly/gopherboy/states"
)

// mbc5 extends the ROM bank register to 9 bits, split over two address
// ranges. Unlike its predecessors bank 0 is selectable at 0x4000.
type mbc5 struct {
	romBanks int
	ramBanks int
	is2kRAM  bool

	ramEnable bool
	romBank   uint16
	ramBank   uint8

	// the rumble motor shares the RAM bank register. not emulated beyond
	// masking the bit out of the bank number
	rumble bool
}

func newMBC5(rumble bool) *mbc5 {
	return &mbc5{
		romBank: 1,
		rumble:  rumble,
	}
}

func (m *mbc5) String() string {
	return "MBC5"
}

func (m *mbc5) setup(romBanks int, ramSize int) {
	m.romBanks = romBanks
	m.ramBanks = ramSize / 0x2000
	m.is2kRAM = ramSize == 0x800
}

func (m *mbc5) romOffset0(addr uint16) int {
	return int(addr)
}

func (m *mbc5) romOffsetX(addr uint16) int {
	bank := int(m.romBank) % m.romBanks
	return bank*0x4000 + int(addr&0x3fff)
}

func (m *mbc5) ramRead(addr uint16) ramMapping {
	if !m.ramEnable {
		return unmapped()
	}

	if m.is2kRAM {
		return mapTo(int(addr) & 0x7ff)
	}

	if m.ramBanks == 0 {
		return unmapped()
	}

	bank := int(m.ramBank) % m.ramBanks
	return mapTo(bank*0x2000 + int(addr&0x1fff))
}

func (m *mbc5) ramWrite(addr uint16, _ uint8) ramMapping {
	return m.ramRead(addr)
}

func (m *mbc5) registerWrite(addr uint16, data uint8) {
	switch {
	case addr < 0x2000:
		// unlike the other controllers the comparison is against the full
		// byte, not just the low nibble
		m.ramEnable = data == 0xa
	case addr < 0x3000:
		m.romBank = (m.romBank & 0x100) | uint16(data)
	case addr < 0x4000:
		m.romBank = (m.romBank & 0xff) | (uint16(data&1) << 8)
	case addr < 0x6000:
		bank := data & 0xf
		if m.rumble {
			bank &= 0x7
		}
		m.ramBank = bank
	}
}

func (m *mbc5) step() {
}

func (m *mbc5) batterySize() int {
	return 0
}

func (m *mbc5) saveBattery() []uint8 {
	return nil
}

func (m *mbc5) loadBattery(_ []uint8) {
}

func (m *mbc5) serialise(s *states.Writer) {
	s.WriteBool(m.ramEnable)
	s.WriteU16(m.romBank)
	s.WriteU8(m.ramBank)
}

func (m *mbc5) deserialise(s *states.Reader) {
	m.ramEnable = s.Bool()
	m.romBank = s.U16()
	m.ramBank = s.U8()
}
