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
	"github.com/jetsetilly/gopherboy/states"
)

// noise generates pseudo random noise from a 15-bit linear feedback shift
// register.
type noise struct {
	length lengthCounter
	conv   dac

	// NR43 fields
	clockShift  uint8
	width7      bool
	divisorCode uint8

	env envelope

	lfsr      uint16
	freqTimer uint16

	enabled    bool
	dacEnabled bool
}

func newNoise() *noise {
	return &noise{
		length: lengthCounter{maxLength: 64},
	}
}

func (ch *noise) lengthCounter() *lengthCounter {
	return &ch.length
}

func (ch *noise) setEnabled(enabled bool) {
	ch.enabled = enabled
}

func (ch *noise) isEnabled() bool {
	return ch.enabled
}

func (ch *noise) dacOn() bool {
	return ch.dacEnabled
}

func (ch *noise) setDACEnabled(enabled bool) {
	ch.dacEnabled = enabled
}

func (ch *noise) writeRegister(data uint8) {
	ch.clockShift = data >> 4
	ch.width7 = (data>>3)&1 == 1
	ch.divisorCode = data & 7
}

func (ch *noise) readRegister() uint8 {
	v := ch.clockShift << 4
	if ch.width7 {
		v |= 0x08
	}
	return v | (ch.divisorCode & 7)
}

// timer period in machine cycles
func (ch *noise) period() uint16 {
	divisor := uint16(ch.divisorCode) * 4
	if divisor == 0 {
		divisor = 2
	}
	return divisor << ch.clockShift
}

// step advances the shift register timer by one machine cycle.
func (ch *noise) step() {
	if ch.freqTimer > 0 {
		ch.freqTimer--
		return
	}
	ch.freqTimer = ch.period()

	feedback := (ch.lfsr ^ (ch.lfsr >> 1)) & 1
	ch.lfsr = (ch.lfsr >> 1) | (feedback << 14)
	if ch.width7 {
		ch.lfsr = (ch.lfsr & ^uint16(1<<6)) | (feedback << 6)
	}
}

func (ch *noise) trigger() {
	ch.freqTimer = ch.period()
	ch.lfsr = 0x7fff
	ch.env.trigger()
}

func (ch *noise) output() uint8 {
	if !ch.enabled {
		return 0
	}
	return uint8(^ch.lfsr&1) * ch.env.currentVolume
}

func (ch *noise) sample() float32 {
	muted := !ch.enabled || ch.env.currentVolume == 0
	return ch.conv.output(ch.output(), muted)
}

func (ch *noise) serialise(s *states.Writer) {
	ch.length.serialise(s)
	ch.conv.serialise(s)
	s.WriteU8(ch.clockShift)
	s.WriteBool(ch.width7)
	s.WriteU8(ch.divisorCode)
	ch.env.serialise(s)
	s.WriteU16(ch.lfsr)
	s.WriteU16(ch.freqTimer)
	s.WriteBool(ch.enabled)
	s.WriteBool(ch.dacEnabled)
}

func (ch *noise) deserialise(s *states.Reader) {
	ch.length.deserialise(s)
	ch.conv.deserialise(s)
	ch.clockShift = s.U8()
	ch.width7 = s.Bool()
	ch.divisorCode = s.U8()
	ch.env.deserialise(s)
	ch.lfsr = s.U16()
	ch.freqTimer = s.U16()
	ch.enabled = s.Bool()
	ch.dacEnabled = s.Bool()
}
