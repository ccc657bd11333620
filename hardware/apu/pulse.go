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

// the four duty cycle waveforms. one entry per step of the sequencer
var dutySequences = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
}

// envelope is the volume envelope shared by the pulse and noise channels.
type envelope struct {
	startingVolume uint8
	currentVolume  uint8
	increase       bool
	period         uint8
	counter        uint8
}

func (e *envelope) writeRegister(data uint8) {
	e.startingVolume = data >> 4
	e.currentVolume = e.startingVolume
	e.increase = (data>>3)&1 == 1
	e.period = data & 7
	e.counter = e.period
}

func (e *envelope) readRegister() uint8 {
	v := (e.startingVolume & 0xf) << 4
	if e.increase {
		v |= 0x08
	}
	return v | (e.period & 7)
}

func (e *envelope) step() {
	if e.period == 0 {
		return
	}

	if e.counter > 0 {
		e.counter--
		return
	}
	e.counter = e.period

	if e.increase {
		if e.currentVolume < 15 {
			e.currentVolume++
		}
	} else if e.currentVolume > 0 {
		e.currentVolume--
	}
}

func (e *envelope) trigger() {
	e.counter = e.period
	e.currentVolume = e.startingVolume
}

func (e *envelope) serialise(s *states.Writer) {
	s.WriteU8(e.startingVolume)
	s.WriteU8(e.currentVolume)
	s.WriteBool(e.increase)
	s.WriteU8(e.period)
	s.WriteU8(e.counter)
}

func (e *envelope) deserialise(s *states.Reader) {
	e.startingVolume = s.U8()
	e.currentVolume = s.U8()
	e.increase = s.Bool()
	e.period = s.U8()
	e.counter = s.U8()
}

// pulse is one of the two square wave channels. channel one also carries the
// frequency sweep unit.
type pulse struct {
	length lengthCounter
	conv   dac

	sweepPeriod          uint8
	sweepCounter         uint8
	sweepInternalEnable  bool
	sweepFrequencyShadow uint16
	sweepNegate          bool
	sweepShift           uint8

	duty         uint8
	sequencerPos int

	env envelope

	frequency uint16
	freqTimer uint16

	enabled    bool
	dacEnabled bool
}

func newPulse() *pulse {
	return &pulse{
		length: lengthCounter{maxLength: 64},
	}
}

func (ch *pulse) lengthCounter() *lengthCounter {
	return &ch.length
}

func (ch *pulse) setEnabled(enabled bool) {
	ch.enabled = enabled
}

func (ch *pulse) isEnabled() bool {
	return ch.enabled
}

func (ch *pulse) dacOn() bool {
	return ch.dacEnabled
}

func (ch *pulse) setDACEnabled(enabled bool) {
	ch.dacEnabled = enabled
}

func (ch *pulse) writeSweepRegister(data uint8) {
	ch.sweepPeriod = (data >> 4) & 7
	ch.sweepNegate = (data>>3)&1 == 1
	ch.sweepShift = data & 7
}

func (ch *pulse) readSweepRegister() uint8 {
	v := (ch.sweepPeriod & 7) << 4
	if ch.sweepNegate {
		v |= 0x08
	}
	return v | (ch.sweepShift & 7)
}

func (ch *pulse) writeDuty(data uint8) {
	ch.duty = data & 3
}

func (ch *pulse) readDuty() uint8 {
	return ch.duty & 3
}

// step advances the frequency timer by one machine cycle.
func (ch *pulse) step() {
	if ch.freqTimer == 0 {
		ch.sequencerPos = (ch.sequencerPos + 1) % 8
		ch.freqTimer = 0x7ff - ch.frequency
	} else {
		ch.freqTimer--
	}
}

// stepSweep runs the sweep unit. clocked at 128Hz by the frame sequencer.
func (ch *pulse) stepSweep() {
	if ch.sweepCounter > 0 {
		ch.sweepCounter--
		return
	}

	ch.sweepCounter = ch.sweepPeriod
	if ch.sweepCounter == 0 {
		ch.sweepCounter = 8
	}

	if ch.sweepInternalEnable && ch.sweepPeriod != 0 {
		newFreq := ch.sweepCalculation()
		if newFreq <= 2047 && ch.sweepShift != 0 {
			ch.frequency = newFreq
			ch.sweepFrequencyShadow = newFreq
			ch.sweepCalculation()
		}
	}
}

// sweepCalculation computes the next frequency and disables the channel on
// overflow.
func (ch *pulse) sweepCalculation() uint16 {
	shifted := ch.sweepFrequencyShadow >> ch.sweepShift

	var newFreq uint16
	if ch.sweepNegate {
		newFreq = ch.sweepFrequencyShadow - shifted
	} else {
		newFreq = ch.sweepFrequencyShadow + shifted
	}

	if newFreq > 2047 {
		ch.enabled = false
	}

	return newFreq
}

func (ch *pulse) trigger() {
	ch.freqTimer = 0x7ff - ch.frequency
	ch.env.trigger()

	ch.sweepFrequencyShadow = ch.frequency
	ch.sweepCounter = ch.sweepPeriod
	ch.sweepInternalEnable = ch.sweepPeriod != 0 || ch.sweepShift != 0
	if ch.sweepShift != 0 {
		ch.sweepCalculation()
	}
}

func (ch *pulse) output() uint8 {
	if !ch.enabled {
		return 0
	}
	return dutySequences[ch.duty][ch.sequencerPos] * ch.env.currentVolume
}

func (ch *pulse) sample() float32 {
	muted := !ch.enabled || ch.env.currentVolume == 0
	return ch.conv.output(ch.output(), muted)
}

func (ch *pulse) serialise(s *states.Writer) {
	ch.length.serialise(s)
	ch.conv.serialise(s)
	s.WriteU8(ch.sweepPeriod)
	s.WriteU8(ch.sweepCounter)
	s.WriteBool(ch.sweepInternalEnable)
	s.WriteU16(ch.sweepFrequencyShadow)
	s.WriteBool(ch.sweepNegate)
	s.WriteU8(ch.sweepShift)
	s.WriteU8(ch.duty)
	s.WriteInt(ch.sequencerPos)
	ch.env.serialise(s)
	s.WriteU16(ch.frequency)
	s.WriteU16(ch.freqTimer)
	s.WriteBool(ch.enabled)
	s.WriteBool(ch.dacEnabled)
}

func (ch *pulse) deserialise(s *states.Reader) {
	ch.length.deserialise(s)
	ch.conv.deserialise(s)
	ch.sweepPeriod = s.U8()
	ch.sweepCounter = s.U8()
	ch.sweepInternalEnable = s.Bool()
	ch.sweepFrequencyShadow = s.U16()
	ch.sweepNegate = s.Bool()
	ch.sweepShift = s.U8()
	ch.duty = s.U8()
	ch.sequencerPos = s.Int()
	ch.env.deserialise(s)
	ch.frequency = s.U16()
	ch.freqTimer = s.U16()
	ch.enabled = s.Bool()
	ch.dacEnabled = s.Bool()
}
