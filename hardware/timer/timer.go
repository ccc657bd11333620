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

// Package timer implements the DIV/TIMA/TMA/TAC register block.
//
// The divider is a single 16 bit counter. DIV is its high byte and TIMA
// increments are driven by a falling-edge detector on one bit of the
// counter, selected by TAC. Because writes to DIV and TAC can force that
// bit from high to low, both writes can cause a spurious TIMA increment.
// These glitches are deliberate and are depended on by timing test ROMs.
package timer

import (
	"github.com/jetsetilly/gopherboy/hardware/family"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/states"
)

const (
	tacEnable  = 0x04
	tacDivider = 0x03
)

// divider values after the boot ROM has finished executing
const (
	postBootDividerDMG = 0xabcc
	postBootDividerCGB = 0x2678
)

// divider value at the start of boot ROM execution
const bootDivider = 0x0008

// Timer implements the timer and divider registers.
type Timer struct {
	irq *interrupts.Interrupts

	divider uint16
	counter uint8 // TIMA
	reload  uint8 // TMA
	control uint8 // TAC

	// TIMA overflowed on the previous machine cycle. the interrupt request
	// and the reload from TMA happen one machine cycle late
	interruptNext bool

	// the reload from TMA is happening on this machine cycle. writes to
	// TIMA and TMA behave differently inside this window
	duringReload bool
}

// NewTimer is the preferred method of initialisation for the Timer type.
func NewTimer(irq *interrupts.Interrupts) *Timer {
	return &Timer{
		irq:     irq,
		divider: bootDivider,
	}
}

// SkipBootROM puts the divider into the state it has after boot ROM
// execution.
func (t *Timer) SkipBootROM(f family.Family) {
	if f == family.DMG {
		t.divider = postBootDividerDMG
	} else {
		t.divider = postBootDividerCGB
	}
}

// which bit of the divider feeds the falling-edge detector
func (t *Timer) dividerSelectionBit() uint {
	switch t.control & tacDivider {
	case 0:
		return 9
	case 1:
		return 3
	case 2:
		return 5
	}
	return 7
}

func (t *Timer) dividerBit() bool {
	return (t.divider>>t.dividerSelectionBit())&1 == 1
}

func (t *Timer) enabled() bool {
	return t.control&tacEnable == tacEnable
}

func (t *Timer) increment() {
	t.counter++
	t.interruptNext = t.counter == 0
}

// ReadDIV returns the high byte of the internal divider.
func (t *Timer) ReadDIV() uint8 {
	return uint8(t.divider >> 8)
}

// WriteDIV resets the internal divider to zero, whatever the written value.
// If the selected divider bit was high the reset is a falling edge and TIMA
// increments.
func (t *Timer) WriteDIV(_ uint8) {
	oldBit := t.enabled() && t.dividerBit()

	t.divider = 0

	if oldBit {
		t.increment()
	}
}

// ReadTIMA returns the timer counter.
func (t *Timer) ReadTIMA() uint8 {
	return t.counter
}

// WriteTIMA sets the timer counter. Writing in the cycle between overflow and
// reload aborts the pending interrupt. Writing in the reload cycle itself is
// ignored and the value from TMA wins.
func (t *Timer) WriteTIMA(data uint8) {
	t.interruptNext = false

	if t.duringReload {
		t.counter = t.reload
	} else {
		t.counter = data
	}
}

// ReadTMA returns the timer modulo.
func (t *Timer) ReadTMA() uint8 {
	return t.reload
}

// WriteTMA sets the timer modulo. If TIMA is being reloaded on this same
// cycle the new value propagates immediately.
func (t *Timer) WriteTMA(data uint8) {
	t.reload = data

	if t.duringReload {
		t.counter = t.reload
	}
}

// ReadTAC returns the timer control register. Unused bits read as 1.
func (t *Timer) ReadTAC() uint8 {
	return t.control | 0xf8
}

// WriteTAC sets the timer control register. Changing the divider selection
// or the enable bit can produce a falling edge on the detector and a
// spurious TIMA increment.
func (t *Timer) WriteTAC(data uint8) {
	oldBit := t.enabled() && t.dividerBit()

	t.control = data & (tacEnable | tacDivider)

	newBit := t.enabled() && t.dividerBit()

	if oldBit && !newBit {
		t.increment()
	}
}

// Divider returns the full internal divider. The APU's frame sequencer is
// clocked from one of its bits.
func (t *Timer) Divider() uint16 {
	return t.divider
}

// ResetDivider is used by the speed switch. The divider is zeroed without
// the falling-edge check that a DIV write performs.
func (t *Timer) ResetDivider() {
	t.divider = 0
}

// Step advances the timer by one machine cycle.
func (t *Timer) Step() {
	t.duringReload = false

	if t.interruptNext {
		t.irq.Request(interrupts.Timer)
		t.interruptNext = false
		t.counter = t.reload
		t.duringReload = true
	}

	oldBit := t.dividerBit()

	// each machine cycle is 4 T-cycles
	t.divider += 4

	newBit := t.dividerBit()

	if t.enabled() && oldBit && !newBit {
		t.increment()
	}
}

// Serialise implements the states.Serialisable interface.
func (t *Timer) Serialise(s *states.Writer) error {
	s.WriteU16(t.divider)
	s.WriteU8(t.counter)
	s.WriteU8(t.reload)
	s.WriteU8(t.control)
	s.WriteBool(t.interruptNext)
	s.WriteBool(t.duringReload)
	return s.Error()
}

// Deserialise implements the states.Serialisable interface.
func (t *Timer) Deserialise(s *states.Reader) error {
	t.divider = s.U16()
	t.counter = s.U8()
	t.reload = s.U8()
	t.control = s.U8()
	t.interruptNext = s.Bool()
	t.duringReload = s.Bool()
	return s.Error()
}
