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

// Package apu emulates the four channel sound unit. The emulation is clocked
// per machine cycle and resamples its output to the host sample rate as it
// goes.
//
// Registers are addressed by their position in the IO page, 0xff10 to
// 0xff3f.
package apu

import (
	"github.com/jetsetilly/gopherboy/hardware/clocks"
	"github.com/jetsetilly/gopherboy/hardware/family"
	"github.com/jetsetilly/gopherboy/states"
)

// how many machine cycles pass between host samples
const machineCyclesPerSample = float64(clocks.Master/clocks.TCyclesPerMachineCycle) / clocks.AudioSampleRate

// NR50 and NR51 masks
const (
	nr50VolLeftShift  = 4
	nr50VolMask       = 0x7
	nr51Pulse1Right   = 0x01
	nr51Pulse2Right   = 0x02
	nr51WaveRight     = 0x04
	nr51NoiseRight    = 0x08
	nr51Pulse1Left    = 0x10
	nr51Pulse2Left    = 0x20
	nr51WaveLeft      = 0x40
	nr51NoiseLeft     = 0x80
	frameSequencerLen = 2048
)

// APU is the sound unit.
type APU struct {
	fam family.Family

	pulse1 *pulse
	pulse2 *pulse
	wav    *wave
	nois   *noise

	// NR50 and NR51
	control   uint8
	selection uint8

	power bool

	// fraction of the way towards the next host sample
	sampleCounter float64
	buffer        []float32

	// position within the frame sequencer period
	cycle uint16
}

// NewAPU is the preferred method of initialisation for the APU type. The
// returned APU is in the state the boot ROM leaves it in.
func NewAPU(fam family.Family) *APU {
	a := &APU{
		fam:    fam,
		pulse1: newPulse(),
		pulse2: newPulse(),
		wav:    newWave(),
		nois:   newNoise(),
		power:  true,
		buffer: make([]float32, 0, 2048),
	}

	a.pulse1.writeDuty(2)
	a.pulse1.env.writeRegister(0xf3)
	a.pulse1.dacEnabled = true
	a.nois.length.writeLength(0x3f)
	a.control = 0x77
	a.selection = 0xf3
	a.pulse1.setEnabled(true)
	a.wav.dacEnabled = false

	return a
}

// ReadRegister reads from the APU address space, 0xff10 to 0xff3f. Unused
// bits and write only registers read 1.
func (a *APU) ReadRegister(addr uint16) uint8 {
	switch addr {
	case 0xff10:
		return 0x80 | a.pulse1.readSweepRegister()
	case 0xff11:
		return 0x3f | (a.pulse1.readDuty() << 6)
	case 0xff12:
		return a.pulse1.env.readRegister()
	case 0xff13:
		return 0xff
	case 0xff14:
		return 0xbf | lengthEnableBit(&a.pulse1.length)
	case 0xff16:
		return 0x3f | (a.pulse2.readDuty() << 6)
	case 0xff17:
		return a.pulse2.env.readRegister()
	case 0xff18:
		return 0xff
	case 0xff19:
		return 0xbf | lengthEnableBit(&a.pulse2.length)
	case 0xff1a:
		if a.wav.dacEnabled {
			return 0xff
		}
		return 0x7f
	case 0xff1b:
		return 0xff
	case 0xff1c:
		return 0x9f | (a.wav.readVolume() << 5)
	case 0xff1d:
		return 0xff
	case 0xff1e:
		return 0xbf | lengthEnableBit(&a.wav.length)
	case 0xff20:
		return 0xff
	case 0xff21:
		return a.nois.env.readRegister()
	case 0xff22:
		return a.nois.readRegister()
	case 0xff23:
		return 0xbf | lengthEnableBit(&a.nois.length)
	case 0xff24:
		return a.control
	case 0xff25:
		return a.selection
	case 0xff26:
		v := uint8(0x70)
		if a.power {
			v |= 0x80
		}
		if a.nois.isEnabled() {
			v |= 0x08
		}
		if a.wav.isEnabled() {
			v |= 0x04
		}
		if a.pulse2.isEnabled() {
			v |= 0x02
		}
		if a.pulse1.isEnabled() {
			v |= 0x01
		}
		return v
	}

	if addr >= 0xff30 && addr <= 0xff3f {
		return a.wav.readBuffer(uint8(addr & 0xf))
	}

	return 0xff
}

// WriteRegister writes to the APU address space, 0xff10 to 0xff3f. With the
// power off only NR52 is writable, except on DMG where the length counters
// stay accessible.
func (a *APU) WriteRegister(addr uint16, data uint8) {
	if !a.power && addr <= 0xff25 {
		if a.fam != family.DMG || !isLengthRegister(addr) {
			return
		}
	}

	lengthClockNext := a.lengthClockNext()

	switch addr {
	case 0xff10:
		a.pulse1.writeSweepRegister(data)
	case 0xff11:
		if a.power {
			a.pulse1.writeDuty(data >> 6)
		}
		a.pulse1.length.writeLength(data & 0x3f)
	case 0xff12:
		a.pulse1.env.writeRegister(data)
		writeDACEnable(a.pulse1, data&0xf8 != 0)
	case 0xff13:
		a.pulse1.frequency = (a.pulse1.frequency & 0xff00) | uint16(data)
	case 0xff14:
		a.pulse1.frequency = (a.pulse1.frequency & 0x00ff) | (uint16(data&0x7) << 8)
		writeTriggerRegister(a.pulse1, lengthClockNext, data)
	case 0xff16:
		if a.power {
			a.pulse2.writeDuty(data >> 6)
		}
		a.pulse2.length.writeLength(data & 0x3f)
	case 0xff17:
		a.pulse2.env.writeRegister(data)
		writeDACEnable(a.pulse2, data&0xf8 != 0)
	case 0xff18:
		a.pulse2.frequency = (a.pulse2.frequency & 0xff00) | uint16(data)
	case 0xff19:
		a.pulse2.frequency = (a.pulse2.frequency & 0x00ff) | (uint16(data&0x7) << 8)
		writeTriggerRegister(a.pulse2, lengthClockNext, data)
	case 0xff1a:
		writeDACEnable(a.wav, data&0x80 != 0)
	case 0xff1b:
		a.wav.length.writeLength(data)
	case 0xff1c:
		a.wav.writeVolume((data >> 5) & 3)
	case 0xff1d:
		a.wav.frequency = (a.wav.frequency & 0xff00) | uint16(data)
	case 0xff1e:
		a.wav.frequency = (a.wav.frequency & 0x00ff) | (uint16(data&0x7) << 8)
		writeTriggerRegister(a.wav, lengthClockNext, data)
	case 0xff20:
		a.nois.length.writeLength(data & 0x3f)
	case 0xff21:
		a.nois.env.writeRegister(data)
		writeDACEnable(a.nois, data&0xf8 != 0)
	case 0xff22:
		a.nois.writeRegister(data)
	case 0xff23:
		writeTriggerRegister(a.nois, lengthClockNext, data)
	case 0xff24:
		a.control = data
	case 0xff25:
		a.selection = data
	case 0xff26:
		newPower := data&0x80 != 0
		if a.power && !newPower {
			a.powerOff()
		} else if !a.power && newPower {
			a.powerOn()
		}

		// a.power updates after powerOff() so the register zeroing is not
		// itself blocked
		a.power = newPower
	}

	if addr >= 0xff30 && addr <= 0xff3f {
		a.wav.writeBuffer(uint8(addr&0xf), data)
	}
}

// the length registers sit at a regular stride in the register file
func isLengthRegister(addr uint16) bool {
	return addr == 0xff11 || addr == 0xff16 || addr == 0xff1b || addr == 0xff20
}

func lengthEnableBit(l *lengthCounter) uint8 {
	if l.enable {
		return 0x40
	}
	return 0
}

// switching a DAC off silences the channel immediately
func writeDACEnable(ch channel, enabled bool) {
	ch.setDACEnabled(enabled)
	if !enabled {
		ch.setEnabled(false)
	}
}

// ReadSamples drains the resampled output collected since the last call.
// Stereo interleaved, right channel first.
func (a *APU) ReadSamples() []float32 {
	b := a.buffer
	a.buffer = make([]float32, 0, cap(b))
	return b
}

// Step advances the APU by the given number of machine cycles.
func (a *APU) Step(cycles int) {
	for i := 0; i < cycles; i++ {
		a.stepCycle()
	}
}

func (a *APU) stepCycle() {
	a.sampleCounter++
	if a.sampleCounter >= machineCyclesPerSample {
		right, left := a.outputs()
		a.buffer = append(a.buffer, right, left)
		a.sampleCounter -= machineCyclesPerSample
	}

	if !a.power {
		return
	}
	a.cycle++

	a.pulse1.step()
	a.pulse2.step()
	a.wav.step()
	a.wav.step()
	a.nois.step()

	if a.cycle%frameSequencerLen != 0 {
		return
	}

	switch a.cycle / frameSequencerLen {
	case 1, 5:
		a.stepLengthCounters()
	case 3, 7:
		a.pulse1.stepSweep()
		a.stepLengthCounters()
	case 8:
		a.pulse1.env.step()
		a.pulse2.env.step()
		a.nois.env.step()
		a.cycle = 0
	}
}

func (a *APU) stepLengthCounters() {
	if a.pulse1.length.step() {
		a.pulse1.setEnabled(false)
	}
	if a.pulse2.length.step() {
		a.pulse2.setEnabled(false)
	}
	if a.wav.length.step() {
		a.wav.setEnabled(false)
	}
	if a.nois.length.step() {
		a.nois.setEnabled(false)
	}
}

// true when the next frame sequencer step clocks the length counters
func (a *APU) lengthClockNext() bool {
	next := (a.cycle + frameSequencerLen - 1) / frameSequencerLen
	return next%2 != 0
}

// outputs mixes the four channels into the right and left terminals.
func (a *APU) outputs() (float32, float32) {
	var right, left float32

	pulse1 := a.pulse1.sample() / 8
	pulse2 := a.pulse2.sample() / 8
	wav := a.wav.sample() / 8
	nois := a.nois.sample() / 8

	if a.selection&nr51Pulse1Left != 0 {
		left += pulse1
	}
	if a.selection&nr51Pulse2Left != 0 {
		left += pulse2
	}
	if a.selection&nr51WaveLeft != 0 {
		left += wav
	}
	if a.selection&nr51NoiseLeft != 0 {
		left += nois
	}
	if a.selection&nr51Pulse1Right != 0 {
		right += pulse1
	}
	if a.selection&nr51Pulse2Right != 0 {
		right += pulse2
	}
	if a.selection&nr51WaveRight != 0 {
		right += wav
	}
	if a.selection&nr51NoiseRight != 0 {
		right += nois
	}

	rightVol := float32((a.control&nr50VolMask)+1)
	leftVol := float32(((a.control>>nr50VolLeftShift)&nr50VolMask)+1)

	return right * rightVol, left * leftVol
}

// PCM12 returns the raw digital outputs of the pulse channels, as read from
// the undocumented CGB register at 0xff76.
func (a *APU) PCM12() uint8 {
	return (a.pulse1.output() & 0xf) | (a.pulse2.output() << 4)
}

// PCM34 returns the raw digital outputs of the wave and noise channels, as
// read from the undocumented CGB register at 0xff77.
func (a *APU) PCM34() uint8 {
	return (a.wav.output() & 0xf) | (a.nois.output() << 4)
}

// powerOff zeroes the register file and silences every channel.
func (a *APU) powerOff() {
	for addr := uint16(0xff10); addr <= 0xff25; addr++ {
		a.WriteRegister(addr, 0)
	}

	a.pulse1.setEnabled(false)
	a.pulse2.setEnabled(false)
	a.wav.setEnabled(false)
	a.nois.setEnabled(false)
}

func (a *APU) powerOn() {
	a.cycle = 0
	a.pulse1.sequencerPos = 0
	a.pulse2.sequencerPos = 0
	a.wav.pos = 0
}

// Serialise implements the states.Serialisable interface. The resampling
// buffer does not travel with the state.
func (a *APU) Serialise(s *states.Writer) error {
	a.pulse1.serialise(s)
	a.pulse2.serialise(s)
	a.wav.serialise(s)
	a.nois.serialise(s)
	s.WriteU8(a.control)
	s.WriteU8(a.selection)
	s.WriteBool(a.power)
	s.WriteU16(a.cycle)
	return s.Error()
}

// Deserialise implements the states.Serialisable interface.
func (a *APU) Deserialise(s *states.Reader) error {
	a.pulse1.deserialise(s)
	a.pulse2.deserialise(s)
	a.wav.deserialise(s)
	a.nois.deserialise(s)
	a.control = s.U8()
	a.selection = s.U8()
	a.power = s.Bool()
	a.cycle = s.U16()
	return s.Error()
}
