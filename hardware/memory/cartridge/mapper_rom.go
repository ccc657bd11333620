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

// romOnly is the absence of a bank controller. 32k of ROM mapped flat, with
// up to 8k of RAM if the header says so.
type romOnly struct {
	ramSize int
}

func newROMOnly() *romOnly {
	return &romOnly{}
}

func (m *romOnly) String() string {
	return "ROM"
}

func (m *romOnly) setup(_ int, ramSize int) {
	m.ramSize = ramSize
}

func (m *romOnly) romOffset0(addr uint16) int {
	return int(addr)
}

func (m *romOnly) romOffsetX(addr uint16) int {
	return int(addr)
}

func (m *romOnly) ramRead(addr uint16) ramMapping {
	if m.ramSize == 0 {
		return unmapped()
	}
	return mapTo(int(addr) & (m.ramSize - 1))
}

func (m *romOnly) ramWrite(addr uint16, _ uint8) ramMapping {
	return m.ramRead(addr)
}

func (m *romOnly) registerWrite(_ uint16, _ uint8) {
}

func (m *romOnly) step() {
}

func (m *romOnly) batterySize() int {
	return 0
}

func (m *romOnly) saveBattery() []uint8 {
	return nil
}

func (m *romOnly) loadBattery(_ []uint8) {
}

func (m *romOnly) serialise(_ *states.Writer) {
}

func (m *romOnly) deserialise(_ *states.Reader) {
}
