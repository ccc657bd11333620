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

// mbc3 has an 8-bit ROM bank register and multiplexes the external RAM
// window between RAM banks and the real time clock registers.
type mbc3 struct {
	romBanks int
	ramBanks int
	is2kRAM  bool

	ramEnable bool
	romBank   uint8
	ramBank   uint8

	// the 0x4000 register selects either a RAM bank (0-3) or an RTC
	// register (0x8-0xc)
	selectingRAM bool
	rtcRegister  uint8

	// nil when the cartridge type byte says there is no timer
	clock *rtc

	// previous value written to the latch register. latching requires the
	// 0x00 then 0x01 sequence
	lastLatchWrite uint8
}

func newMBC3(timer bool) *mbc3 {
	m := &mbc3{
		romBank:        1,
		ramEnable:      true,
		selectingRAM:   true,
		lastLatchWrite: 0xff,
	}
	if timer {
		m.clock = newRTC()
	}
	return m
}

func (m *mbc3) String() string {
	if m.clock != nil {
		return "MBC3+RTC"
	}
	return "MBC3"
}

func (m *mbc3) setup(romBanks int, ramSize int) {
	m.romBanks = romBanks
	m.ramBanks = ramSize / 0x2000
	m.is2kRAM = ramSize == 0x800
}

func (m *mbc3) romOffset0(addr uint16) int {
	return int(addr)
}

func (m *mbc3) romOffsetX(addr uint16) int {
	bank := int(m.romBank) % m.romBanks
	return bank*0x4000 + int(addr&0x3fff)
}

func (m *mbc3) mapRAM(addr uint16) ramMapping {
	if m.ramBanks == 0 {
		return unmapped()
	}

	if m.is2kRAM {
		return mapTo(int(addr) & 0x7ff)
	}

	bank := int(m.ramBank) % m.ramBanks
	return mapTo(bank*0x2000 + int(addr&0x1fff))
}

func (m *mbc3) ramRead(addr uint16) ramMapping {
	if !m.ramEnable {
		return unmapped()
	}

	if m.selectingRAM {
		return m.mapRAM(addr)
	}

	if m.clock == nil {
		return unmapped()
	}
	return directValue(m.clock.readRegister(m.rtcRegister))
}

func (m *mbc3) ramWrite(addr uint16, data uint8) ramMapping {
	if !m.ramEnable {
		return unmapped()
	}

	if m.selectingRAM {
		return m.mapRAM(addr)
	}

	if m.clock != nil {
		m.clock.writeRegister(m.rtcRegister, data)
	}
	return ramMapping{direct: true}
}

func (m *mbc3) registerWrite(addr uint16, data uint8) {
	switch addr >> 13 {
	case 0: // 0x0000-0x1fff
		m.ramEnable = data&0xf == 0xa
	case 1: // 0x2000-0x3fff
		m.romBank = data
		if m.romBank == 0 {
			m.romBank = 1
		}
	case 2: // 0x4000-0x5fff
		data &= 0xf
		if data <= 3 {
			m.selectingRAM = true
			m.ramBank = data
		} else if data >= 0x8 && data <= 0xc {
			m.selectingRAM = false
			m.rtcRegister = data - 0x8
		}
	case 3: // 0x6000-0x7fff
		// the clock latches on a 0x00 then 0x01 write sequence. repeating
		// the sequence latches again
		if m.clock != nil && m.lastLatchWrite == 0x00 && data == 0x01 {
			m.clock.latch()
		}
		m.lastLatchWrite = data
	}
}

func (m *mbc3) step() {
	if m.clock != nil {
		m.clock.step()
	}
}

func (m *mbc3) batterySize() int {
	if m.clock != nil {
		return rtcBatterySize
	}
	return 0
}

func (m *mbc3) saveBattery() []uint8 {
	if m.clock != nil {
		return m.clock.saveBattery()
	}
	return nil
}

func (m *mbc3) loadBattery(data []uint8) {
	if m.clock != nil {
		m.clock.loadBattery(data)
	}
}

func (m *mbc3) serialise(s *states.Writer) {
	s.WriteBool(m.ramEnable)
	s.WriteU8(m.romBank)
	s.WriteU8(m.ramBank)
	s.WriteBool(m.selectingRAM)
	s.WriteU8(m.rtcRegister)
	s.WriteU8(m.lastLatchWrite)
	if m.clock != nil {
		m.clock.serialise(s)
	}
}

func (m *mbc3) deserialise(s *states.Reader) {
	m.ramEnable = s.Bool()
	m.romBank = s.U8()
	m.ramBank = s.U8()
	m.selectingRAM = s.Bool()
	m.rtcRegister = s.U8()
	m.lastLatchWrite = s.U8()
	if m.clock != nil {
		m.clock.deserialise(s)
	}
}
