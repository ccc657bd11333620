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

// Package joypad implements the P1 register and the joypad interrupt. The
// package is register-side only: polling the host's input device and calling
// Press()/Release() is the responsibility of whatever is driving the
// emulation.
package joypad

import (
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/states"
)

// Button identifies a single key on the console.
type Button uint8

// List of valid Button values. The bit layout mirrors the two halves of the
// key matrix: direction keys in the low nibble, action keys in the high.
const (
	Right Button = 1 << iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

// Joypad implements the key matrix behind the P1 register.
type Joypad struct {
	irq *interrupts.Interrupts

	// bitmask of currently pressed buttons. not part of the machine state
	// proper so not serialised
	buttons uint8

	selectingDirections bool
	selectingAction     bool

	oldP1 uint8
}

// NewJoypad is the preferred method of initialisation for the Joypad type.
func NewJoypad(irq *interrupts.Interrupts) *Joypad {
	return &Joypad{
		irq:                 irq,
		selectingDirections: true,
		selectingAction:     true,
	}
}

// keyLines returns the lower 4 bits of P1. Pressed keys read low.
func (j *Joypad) keyLines() uint8 {
	result := uint8(0xf)

	if j.selectingAction {
		result &= ^j.buttons >> 4
	}
	if j.selectingDirections {
		result &= ^j.buttons & 0xf
	}

	return result
}

// Read returns the value of the P1 register.
func (j *Joypad) Read() uint8 {
	return 0xc0 |
		(b2u(!j.selectingAction) << 5) |
		(b2u(!j.selectingDirections) << 4) |
		j.keyLines()
}

// Write sets the select lines of the P1 register. The key lines themselves
// are read-only.
func (j *Joypad) Write(data uint8) {
	j.selectingAction = (data>>5)&1 == 0
	j.selectingDirections = (data>>4)&1 == 0
}

// Step samples the key lines and requests the joypad interrupt on any
// high-to-low transition.
func (j *Joypad) Step() {
	newP1 := j.keyLines()

	if (j.oldP1^newP1)&j.oldP1 != 0 {
		j.irq.Request(interrupts.Joypad)
	}

	j.oldP1 = newP1
}

// AnyPressed returns true if any selected key line is being held low. Used
// to wake the machine from stop mode.
func (j *Joypad) AnyPressed() bool {
	return j.keyLines() != 0xf
}

// Press a button.
func (j *Joypad) Press(b Button) {
	j.buttons |= uint8(b)
}

// Release a button.
func (j *Joypad) Release(b Button) {
	j.buttons &= ^uint8(b)
}

// Serialise implements the states.Serialisable interface.
func (j *Joypad) Serialise(s *states.Writer) error {
	s.WriteBool(j.selectingDirections)
	s.WriteBool(j.selectingAction)
	s.WriteU8(j.oldP1)
	return s.Error()
}

// Deserialise implements the states.Serialisable interface.
func (j *Joypad) Deserialise(s *states.Reader) error {
	j.selectingDirections = s.Bool()
	j.selectingAction = s.Bool()
	j.oldP1 = s.U8()
	return s.Error()
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
