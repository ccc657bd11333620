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

package cpu

import (
	"fmt"

	"github.com/jetsetilly/gopherboy/states"
)

// Flag bit positions in the F register. The low nibble of F is not backed by
// hardware and always reads zero.
const (
	FlagZ uint8 = 0x80
	FlagN uint8 = 0x40
	FlagH uint8 = 0x20
	FlagC uint8 = 0x10
)

// Registers is the SM83 register file.
type Registers struct {
	A uint8
	F uint8
	B uint8
	C uint8
	D uint8
	E uint8
	H uint8
	L uint8

	SP uint16
	PC uint16
}

// AF returns the A and F registers as a pair.
func (r *Registers) AF() uint16 {
	return uint16(r.A)<<8 | uint16(r.F)
}

// BC returns the B and C registers as a pair.
func (r *Registers) BC() uint16 {
	return uint16(r.B)<<8 | uint16(r.C)
}

// DE returns the D and E registers as a pair.
func (r *Registers) DE() uint16 {
	return uint16(r.D)<<8 | uint16(r.E)
}

// HL returns the H and L registers as a pair.
func (r *Registers) HL() uint16 {
	return uint16(r.H)<<8 | uint16(r.L)
}

// SetAF sets the A and F registers from a pair. The low nibble of F is
// discarded.
func (r *Registers) SetAF(data uint16) {
	r.A = uint8(data >> 8)
	r.F = uint8(data) & 0xf0
}

// SetBC sets the B and C registers from a pair.
func (r *Registers) SetBC(data uint16) {
	r.B = uint8(data >> 8)
	r.C = uint8(data)
}

// SetDE sets the D and E registers from a pair.
func (r *Registers) SetDE(data uint16) {
	r.D = uint8(data >> 8)
	r.E = uint8(data)
}

// SetHL sets the H and L registers from a pair.
func (r *Registers) SetHL(data uint16) {
	r.H = uint8(data >> 8)
	r.L = uint8(data)
}

func (r *Registers) flag(f uint8) bool {
	return r.F&f != 0
}

func (r *Registers) setFlag(f uint8, v bool) {
	if v {
		r.F |= f
	} else {
		r.F &= ^f
	}
}

func (r *Registers) String() string {
	return fmt.Sprintf("AF=%04x BC=%04x DE=%04x HL=%04x SP=%04x PC=%04x",
		r.AF(), r.BC(), r.DE(), r.HL(), r.SP, r.PC)
}

// Serialise implements the states.Serialisable interface.
func (r *Registers) Serialise(s *states.Writer) error {
	s.WriteU8(r.A)
	s.WriteU8(r.F)
	s.WriteU8(r.B)
	s.WriteU8(r.C)
	s.WriteU8(r.D)
	s.WriteU8(r.E)
	s.WriteU8(r.H)
	s.WriteU8(r.L)
	s.WriteU16(r.SP)
	s.WriteU16(r.PC)
	return s.Error()
}

// Deserialise implements the states.Serialisable interface.
func (r *Registers) Deserialise(s *states.Reader) error {
	r.A = s.U8()
	r.F = s.U8()
	r.B = s.U8()
	r.C = s.U8()
	r.D = s.U8()
	r.E = s.U8()
	r.H = s.U8()
	r.L = s.U8()
	r.SP = s.U16()
	r.PC = s.U16()
	return s.Error()
}
