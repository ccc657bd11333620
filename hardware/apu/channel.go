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

package apu

import (
	"math"

	"github.com/jetsetilly/gopherboy/states"
)

// channel is the surface the register file needs from each of the four sound
// channels.
type channel interface {
	lengthCounter() *lengthCounter
	trigger()
	setEnabled(bool)
	isEnabled() bool
	dacOn() bool
	setDACEnabled(bool)
}

// lengthCounter counts a channel down to silence. shared by all four
// channels, with a longer counter on the wave channel.
type lengthCounter struct {
	maxLength uint16
	length    uint16
	counter   uint16
	enable    bool
}

func (l *lengthCounter) writeLength(data uint8) {
	l.length = l.maxLength - uint16(data)
	l.counter = l.length
}

func (l *lengthCounter) writeEnable(enable bool) {
	l.enable = enable
	l.counter = l.length
}

// step returns true when the counter expires and the channel should be
// disabled.
func (l *lengthCounter) step() bool {
	if !l.enable {
		return false
	}
	if l.counter == 0 {
		return true
	}
	l.counter--
	if l.counter == 0 {
		l.enable = false
		return true
	}
	return false
}

func (l *lengthCounter) serialise(s *states.Writer) {
	s.WriteU16(l.length)
	s.WriteU16(l.counter)
	s.WriteBool(l.enable)
}

func (l *lengthCounter) deserialise(s *states.Reader) {
	l.length = s.U16()
	l.counter = s.U16()
	l.enable = s.Bool()
}

// triggerChannel is the common handling of the trigger bit: enable the
// channel (if its DAC is on) and reload an expired length counter. when the
// length counter was reloaded with length enable set and the frame sequencer
// will not clock lengths next step, one count is consumed immediately.
func triggerChannel(ch channel, lengthClockNext bool) {
	ch.setEnabled(ch.dacOn())

	l := ch.lengthCounter()
	if l.counter == 0 {
		l.counter = l.maxLength
		if l.enable && !lengthClockNext {
			l.counter--
		}
	}

	ch.trigger()
}

// writeTriggerRegister handles the shared top bits of the NRx4 registers.
func writeTriggerRegister(ch channel, lengthClockNext bool, data uint8) {
	l := ch.lengthCounter()

	oldEnable := l.enable
	newEnable := (data>>6)&1 == 1
	l.writeEnable(newEnable)

	// enabling the length counter between length clocks consumes one count
	// immediately
	if !lengthClockNext && !oldEnable && newEnable {
		if l.step() {
			ch.setEnabled(false)
		}
	}

	if data&0x80 != 0 {
		triggerChannel(ch, lengthClockNext)
	}
}

// dac converts the 4-bit channel output to an analogue level. the capacitor
// slowly pulls the signal towards zero, which is what removes the DC offset
// on real hardware.
type dac struct {
	capacitor float32
}

func (d *dac) output(level uint8, muted bool) float32 {
	if muted {
		return 0
	}

	in := float32(level) / 15
	out := in - d.capacitor
	d.capacitor = in - out*0.996
	return out
}

func (d *dac) serialise(s *states.Writer) {
	s.WriteU32(math.Float32bits(d.capacitor))
}

func (d *dac) deserialise(s *states.Reader) {
	d.capacitor = math.Float32frombits(s.U32())
}
