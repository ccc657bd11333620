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

// mbc1 has two banking registers whose meaning depends on a mode bit. The
// 5-bit bank1 register selects the ROM bank at 0x4000. The 2-bit bank2
// register extends bank1 upwards, or selects the RAM bank, or re-banks the
// fixed ROM area, depending on mode.
//
// The multicart variant (never declared in the header, detected by
// fingerprint) wires bank2 to bit 4 rather than bit 5.
type mbc1 struct {
	romBanks int
	ramBanks int
	is2kRAM  bool

	ramEnable bool
	bank1     uint8
	bank2     uint8
	mode      bool

	multicart bool
}

func newMBC1(multicart bool) *mbc1 {
	return &mbc1{
		bank1:     1,
		multicart: multicart,
	}
}

func (m *mbc1) String() string {
	if m.multicart {
		return "MBC1M"
	}
	return "MBC1"
}

func (m *mbc1) setup(romBanks int, ramSize int) {
	m.romBanks = romBanks
	m.ramBanks = ramSize / 0x2000
	m.is2kRAM = ramSize == 0x800
}

func (m *mbc1) bank2Shift() uint {
	if m.multicart {
		return 4
	}
	return 5
}

func (m *mbc1) romOffset0(addr uint16) int {
	bank := 0
	if m.mode {
		bank = (int(m.bank2) << m.bank2Shift()) % m.romBanks
	}
	return bank*0x4000 + int(addr)
}

func (m *mbc1) romOffsetX(addr uint16) int {
	bank := int(m.bank1) | (int(m.bank2) << m.bank2Shift())
	bank %= m.romBanks
	return bank*0x4000 + int(addr&0x3fff)
}

func (m *mbc1) ramRead(addr uint16) ramMapping {
	if !m.ramEnable {
		return unmapped()
	}

	if m.is2kRAM {
		return mapTo(int(addr) & 0x7ff)
	}

	if m.ramBanks == 0 {
		return unmapped()
	}

	bank := 0
	if m.mode {
		bank = int(m.bank2) % m.ramBanks
	}
	return mapTo(bank*0x2000 + int(addr&0x1fff))
}

func (m *mbc1) ramWrite(addr uint16, _ uint8) ramMapping {
	return m.ramRead(addr)
}

func (m *mbc1) registerWrite(addr uint16, data uint8) {
	switch addr >> 13 {
	case 0: // 0x0000-0x1fff
		m.ramEnable = data&0xf == 0xa
	case 1: // 0x2000-0x3fff
		data &= 0x1f
		if data == 0 {
			data = 1
		}

		// the zero adjustment happens before the multicart masking, so a
		// write of 0x10 gives bank 0 on a multicart and not bank 1
		if m.multicart {
			data &= 0xf
		}

		m.bank1 = data
	case 2: // 0x4000-0x5fff
		m.bank2 = data & 0x3
	case 3: // 0x6000-0x7fff
		m.mode = data&1 == 1
	}
}

func (m *mbc1) step() {
}

func (m *mbc1) batterySize() int {
	return 0
}

func (m *mbc1) saveBattery() []uint8 {
	return nil
}

func (m *mbc1) loadBattery(_ []uint8) {
}

func (m *mbc1) serialise(s *states.Writer) {
	s.WriteBool(m.ramEnable)
	s.WriteU8(m.bank1)
	s.WriteU8(m.bank2)
	s.WriteBool(m.mode)
}

func (m *mbc1) deserialise(s *states.Reader) {
	m.ramEnable = s.Bool()
	m.bank1 = s.U8()
	m.bank2 = s.U8()
	m.mode = s.Bool()
}
