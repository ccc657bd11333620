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

// mbc2 carries its own 512 half-byte RAM on the controller die. A single
// register area selects between RAM enable and ROM bank, decided by bit 8 of
// the written address.
type mbc2 struct {
	romBanks int

	romBank   uint8
	ramEnable bool

	// built-in 512x4bit RAM. upper nibbles are not backed by storage and
	// read as 1
	ram [512]uint8
}

func newMBC2() *mbc2 {
	return &mbc2{
		romBank: 1,
	}
}

func (m *mbc2) String() string {
	return "MBC2"
}

func (m *mbc2) setup(romBanks int, _ int) {
	m.romBanks = romBanks
}

func (m *mbc2) romOffset0(addr uint16) int {
	return int(addr)
}

func (m *mbc2) romOffsetX(addr uint16) int {
	bank := int(m.romBank) % m.romBanks
	return bank*0x4000 + int(addr&0x3fff)
}

func (m *mbc2) ramRead(addr uint16) ramMapping {
	if !m.ramEnable {
		return unmapped()
	}
	return directValue(0xf0 | m.ram[addr&0x1ff])
}

func (m *mbc2) ramWrite(addr uint16, data uint8) ramMapping {
	if m.ramEnable {
		m.ram[addr&0x1ff] = data & 0xf
	}
	return ramMapping{direct: true}
}

func (m *mbc2) registerWrite(addr uint16, data uint8) {
	if addr > 0x3fff {
		return
	}

	// address bit 8 selects which register is being written
	if addr&0x100 == 0 {
		m.ramEnable = data&0xf == 0xa
	} else {
		m.romBank = data & 0xf
		if m.romBank == 0 {
			m.romBank = 1
		}
	}
}

func (m *mbc2) step() {
}

func (m *mbc2) batterySize() int {
	return 512
}

func (m *mbc2) saveBattery() []uint8 {
	b := make([]uint8, 512)
	copy(b, m.ram[:])
	return b
}

func (m *mbc2) loadBattery(data []uint8) {
	if len(data) == 512 {
		copy(m.ram[:], data)
	}
}

func (m *mbc2) serialise(s *states.Writer) {
	s.WriteU8(m.romBank)
	s.WriteBool(m.ramEnable)
	s.WriteBytes(m.ram[:])
}

func (m *mbc2) deserialise(s *states.Reader) {
	m.romBank = s.U8()
	m.ramEnable = s.Bool()
	s.Bytes(m.ram[:])
}
