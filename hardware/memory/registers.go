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

package memory

import (
	"github.com/jetsetilly/gopherboy/states"
)

// bootROM is the boot ROM overlay at the bottom of the address space. the
// CGB image is 0x900 bytes with a window at 0x100 where the cartridge header
// shows through.
type bootROM struct {
	enabled bool
	data    []uint8
}

func (b *bootROM) covers(addr uint16, cgb bool) bool {
	if !b.enabled {
		return false
	}
	if addr < 0x100 {
		return true
	}
	return cgb && addr >= 0x200 && addr < 0x900 && int(addr) < len(b.data)
}

func (b *bootROM) serialise(s *states.Writer) {
	s.WriteBool(b.enabled)
}

func (b *bootROM) deserialise(s *states.Reader) {
	b.enabled = s.Bool()
}

// speedController is the KEY1 register and the CGB double speed state.
type speedController struct {
	preparingSwitch bool
	doubleSpeed     bool
}

func (sc *speedController) readKEY1() uint8 {
	v := uint8(0x7e)
	if sc.doubleSpeed {
		v |= 0x80
	}
	if sc.preparingSwitch {
		v |= 0x01
	}
	return v
}

func (sc *speedController) writeKEY1(data uint8) {
	sc.preparingSwitch = data&1 != 0
}

func (sc *speedController) commitSwitch() {
	sc.doubleSpeed = !sc.doubleSpeed
	sc.preparingSwitch = false
}

func (sc *speedController) serialise(s *states.Writer) {
	s.WriteBool(sc.preparingSwitch)
	s.WriteBool(sc.doubleSpeed)
}

func (sc *speedController) deserialise(s *states.Reader) {
	sc.preparingSwitch = s.Bool()
	sc.doubleSpeed = s.Bool()
}

// lock is the KEY0 register at 0xff4c. The CGB boot ROM writes it to put the
// machine into DMG compatibility mode. It accepts a single write only.
type lock struct {
	duringBoot bool
	dmgMode    bool
	writtenTo  bool
}

func newLock() lock {
	return lock{duringBoot: true}
}

func (l *lock) write(data uint8) {
	if !l.writtenTo {
		l.writtenTo = true
		l.dmgMode = data&0x4 != 0
	}
}

func (l *lock) finishBoot() {
	l.duringBoot = false
}

// the boot ROM has access to both register sets while it runs, so the lock
// only engages once the boot ROM has finished
func (l *lock) cgbMode() bool {
	return !l.dmgMode || l.duringBoot
}

func (l *lock) serialise(s *states.Writer) {
	s.WriteBool(l.duringBoot)
	s.WriteBool(l.dmgMode)
	s.WriteBool(l.writtenTo)
}

func (l *lock) deserialise(s *states.Reader) {
	l.duringBoot = s.Bool()
	l.dmgMode = s.Bool()
	l.writtenTo = s.Bool()
}

// unknownRegister is one of the undocumented CGB registers at 0xff72 to
// 0xff75. readable and writable through a mask, with no known function.
type unknownRegister struct {
	data uint8
	mask uint8
}

func (u *unknownRegister) read() uint8 {
	return (u.data & u.mask) | ^u.mask
}

func (u *unknownRegister) write(data uint8) {
	u.data = data & u.mask
}
