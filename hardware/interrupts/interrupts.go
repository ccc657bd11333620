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

// Package interrupts implements the interrupt controller. The controller is
// nothing more than the IE and IF register pair; the interesting behaviour
// (dispatch timing, cancellation) lives with the CPU.
package interrupts

import (
	"github.com/jetsetilly/gopherboy/states"
)

// Source identifies one of the five interrupt sources. The value doubles as
// the bit position in the IE and IF registers. Lower bit positions have
// higher priority.
type Source uint8

// List of valid Source values in priority order.
const (
	VBlank Source = iota
	LCDStat
	Timer
	Serial
	Joypad
)

// Vector returns the address the CPU jumps to when servicing the interrupt.
func (s Source) Vector() uint16 {
	return 0x0040 + uint16(s)*8
}

func (s Source) String() string {
	switch s {
	case VBlank:
		return "VBLANK"
	case LCDStat:
		return "STAT"
	case Timer:
		return "TIMER"
	case Serial:
		return "SERIAL"
	case Joypad:
		return "JOYPAD"
	}
	return "unknown"
}

// only the low five bits of IE and IF are backed by hardware
const sourceMask = 0x1f

// Interrupts is the interrupt controller.
type Interrupts struct {
	enable uint8
	flags  uint8
}

// NewInterrupts is the preferred method of initialisation for the Interrupts
// type.
func NewInterrupts() *Interrupts {
	return &Interrupts{}
}

// Request raises the IF bit for the source. The bit stays set until the CPU
// acknowledges the interrupt or software clears it with a write to IF.
func (irq *Interrupts) Request(s Source) {
	irq.flags |= 1 << s
}

// ReadIE returns the value of the IE register. All eight bits are readable.
func (irq *Interrupts) ReadIE() uint8 {
	return irq.enable
}

// WriteIE sets the IE register. The upper three bits are storable even
// though no interrupt source backs them.
func (irq *Interrupts) WriteIE(data uint8) {
	irq.enable = data
}

// ReadIF returns the value of the IF register. The unbacked upper bits read
// as 1.
func (irq *Interrupts) ReadIF() uint8 {
	return 0xe0 | irq.flags
}

// WriteIF sets the IF register.
func (irq *Interrupts) WriteIF(data uint8) {
	irq.flags = data & sourceMask
}

// Pending returns true if any enabled interrupt has been requested. This is
// the condition that wakes a halted CPU, regardless of IME.
func (irq *Interrupts) Pending() bool {
	return irq.enable&irq.flags&sourceMask != 0
}

// Next returns the highest priority pending interrupt without acknowledging
// it.
func (irq *Interrupts) Next() (Source, bool) {
	p := irq.enable & irq.flags & sourceMask
	if p == 0 {
		return 0, false
	}

	var s Source
	for p&1 == 0 {
		p >>= 1
		s++
	}
	return s, true
}

// Acknowledge clears the IF bit for the source. Called by the CPU at the
// point in the dispatch sequence where the hardware commits to the vector.
func (irq *Interrupts) Acknowledge(s Source) {
	irq.flags &= ^(uint8(1) << s)
}

// Serialise implements the states.Serialisable interface.
func (irq *Interrupts) Serialise(s *states.Writer) error {
	s.WriteU8(irq.enable)
	s.WriteU8(irq.flags)
	return s.Error()
}

// Deserialise implements the states.Serialisable interface.
func (irq *Interrupts) Deserialise(s *states.Reader) error {
	irq.enable = s.U8()
	irq.flags = s.U8()
	return s.Error()
}
