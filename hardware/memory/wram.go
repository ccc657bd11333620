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

// wram is the work RAM. bank 0 is fixed at 0xc000, the bank behind 0xd000 is
// switchable on CGB through the SVBK register.
type wram struct {
	data [0x8000]uint8
	bank uint8
}

func newWRAM() wram {
	return wram{bank: 1}
}

func (w *wram) readBank0(addr uint16) uint8 {
	return w.data[addr&0xfff]
}

func (w *wram) readBankX(addr uint16) uint8 {
	return w.data[0x1000*int(w.bank)+int(addr&0xfff)]
}

func (w *wram) writeBank0(addr uint16, data uint8) {
	w.data[addr&0xfff] = data
}

func (w *wram) writeBankX(addr uint16, data uint8) {
	w.data[0x1000*int(w.bank)+int(addr&0xfff)] = data
}

func (w *wram) writeSVBK(data uint8) {
	w.bank = data & 7
	if w.bank == 0 {
		w.bank = 1
	}
}

func (w *wram) readSVBK() uint8 {
	return 0xf8 | w.bank
}

func (w *wram) serialise(s *states.Writer) {
	s.WriteU8(w.bank)
	s.WriteBytes(w.data[:])
}

func (w *wram) deserialise(s *states.Reader) {
	w.bank = s.U8()
	s.Bytes(w.data[:])
}
