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

// volume codes translate to a right shift of the sample
var waveVolumeShift = [4]uint8{4, 0, 1, 2}

// wave plays 32 4-bit samples from its own small RAM.
type wave struct {
	length lengthCounter
	conv   dac

	volume      uint8
	volumeShift uint8
	frequency   uint16

	buffer [16]uint8
	pos    uint8

	freqTimer uint16

	enabled    bool
	dacEnabled bool
}

func newWave() *wave {
	return &wave{
		length: lengthCounter{maxLength: 256},
	}
}

func (ch *wave) lengthCounter() *lengthCounter {
	return &ch.length
}

func (ch *wave) setEnabled(enabled bool) {
	ch.enabled = enabled
}

func (ch *wave) isEnabled() bool {
	return ch.enabled
}

func (ch *wave) dacOn() bool {
	return ch.dacEnabled
}

func (ch *wave) setDACEnabled(enabled bool) {
	ch.dacEnabled = enabled
}

func (ch *wave) writeVolume(data uint8) {
	ch.volume = data & 3
	ch.volumeShift = waveVolumeShift[data&3]
}

func (ch *wave) readVolume() uint8 {
	return ch.volume
}

func (ch *wave) writeBuffer(offset uint8, data uint8) {
	ch.buffer[offset&0xf] = data
}

func (ch *wave) readBuffer(offset uint8) uint8 {
	return ch.buffer[offset&0xf]
}

// step advances the sample position. the wave channel steps at twice the
// rate of the pulse channels.
func (ch *wave) step() {
	if ch.freqTimer == 0 {
		ch.pos = (ch.pos + 1) % 32
		ch.freqTimer = 0x7ff - ch.frequency
	} else {
		ch.freqTimer--
	}
}

func (ch *wave) trigger() {
	ch.pos = 0
}

func (ch *wave) output() uint8 {
	if !ch.enabled {
		return 0
	}

	b := ch.buffer[ch.pos/2]
	if ch.pos&1 == 0 {
		b >>= 4
	}
	return (b & 0xf) >> ch.volumeShift
}

func (ch *wave) sample() float32 {
	return ch.conv.output(ch.output(), !ch.enabled)
}

func (ch *wave) serialise(s *states.Writer) {
	ch.length.serialise(s)
	ch.conv.serialise(s)
	s.WriteU8(ch.volume)
	s.WriteU8(ch.volumeShift)
	s.WriteU16(ch.frequency)
	s.WriteBytes(ch.buffer[:])
	s.WriteU8(ch.pos)
	s.WriteU16(ch.freqTimer)
	s.WriteBool(ch.enabled)
	s.WriteBool(ch.dacEnabled)
}

func (ch *wave) deserialise(s *states.Reader) {
	ch.length.deserialise(s)
	ch.conv.deserialise(s)
	ch.volume = s.U8()
	ch.volumeShift = s.U8()
	ch.frequency = s.U16()
	s.Bytes(ch.buffer[:])
	ch.pos = s.U8()
	ch.freqTimer = s.U16()
	ch.enabled = s.Bool()
	ch.dacEnabled = s.Bool()
}
