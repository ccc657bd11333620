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

package apu_test

import (
	"testing"

	"github.com/jetsetilly/gopherboy/hardware/apu"
	"github.com/jetsetilly/gopherboy/hardware/family"
	"github.com/jetsetilly/gopherboy/test"
)

// machine cycles between frame sequencer steps
const sequencerStep = 2048

func TestBootState(t *testing.T) {
	a := apu.NewAPU(family.DMG)

	// only channel one is playing after the boot ROM
	test.ExpectEquality(t, a.ReadRegister(0xff26), uint8(0xf1))
	test.ExpectEquality(t, a.ReadRegister(0xff24), uint8(0x77))
	test.ExpectEquality(t, a.ReadRegister(0xff25), uint8(0xf3))

	// duty is readable, length is not
	test.ExpectEquality(t, a.ReadRegister(0xff11), uint8(0xbf))
}

func TestPowerOff(t *testing.T) {
	a := apu.NewAPU(family.DMG)
	a.WriteRegister(0xff26, 0x00)

	// powering off zeroes the register file
	test.ExpectEquality(t, a.ReadRegister(0xff26), uint8(0x70))
	test.ExpectEquality(t, a.ReadRegister(0xff10), uint8(0x80))
	test.ExpectEquality(t, a.ReadRegister(0xff11), uint8(0x3f))
	test.ExpectEquality(t, a.ReadRegister(0xff12), uint8(0x00))
	test.ExpectEquality(t, a.ReadRegister(0xff24), uint8(0x00))
	test.ExpectEquality(t, a.ReadRegister(0xff25), uint8(0x00))
}

func TestWritesIgnoredWhileOff(t *testing.T) {
	a := apu.NewAPU(family.CGB)
	a.WriteRegister(0xff26, 0x00)

	a.WriteRegister(0xff12, 0xf3)
	a.WriteRegister(0xff11, 0xbf)

	a.WriteRegister(0xff26, 0x80)
	test.ExpectEquality(t, a.ReadRegister(0xff12), uint8(0x00))
	test.ExpectEquality(t, a.ReadRegister(0xff11), uint8(0x3f))
}

func TestLengthWritableWhileOffOnDMG(t *testing.T) {
	a := apu.NewAPU(family.DMG)
	a.WriteRegister(0xff26, 0x00)

	// the length counters keep working with the power off on DMG. load a
	// length of two so the channel dies on the first length clock after
	// the enable consumed one count
	a.WriteRegister(0xff11, 0x3e)
	a.WriteRegister(0xff26, 0x80)

	a.WriteRegister(0xff12, 0xf0)
	a.WriteRegister(0xff14, 0xc0)
	test.ExpectEquality(t, a.ReadRegister(0xff26)&0x01, uint8(0x01))

	a.Step(sequencerStep)
	test.ExpectEquality(t, a.ReadRegister(0xff26)&0x01, uint8(0x00))
}

func TestLengthExpiry(t *testing.T) {
	a := apu.NewAPU(family.DMG)

	a.WriteRegister(0xff16, 0x3e)
	a.WriteRegister(0xff17, 0xf0)
	a.WriteRegister(0xff19, 0xc0)
	test.ExpectEquality(t, a.ReadRegister(0xff26)&0x02, uint8(0x02))

	a.Step(sequencerStep)
	test.ExpectEquality(t, a.ReadRegister(0xff26)&0x02, uint8(0x00))
}

func TestTriggerRequiresDAC(t *testing.T) {
	a := apu.NewAPU(family.DMG)

	// triggering a channel with its DAC off does not enable it
	a.WriteRegister(0xff19, 0x80)
	test.ExpectEquality(t, a.ReadRegister(0xff26)&0x02, uint8(0x00))

	a.WriteRegister(0xff17, 0xf0)
	a.WriteRegister(0xff19, 0x80)
	test.ExpectEquality(t, a.ReadRegister(0xff26)&0x02, uint8(0x02))

	// and switching the DAC off silences the channel immediately
	a.WriteRegister(0xff17, 0x00)
	test.ExpectEquality(t, a.ReadRegister(0xff26)&0x02, uint8(0x00))
}

func TestSweepOverflowOnTrigger(t *testing.T) {
	a := apu.NewAPU(family.DMG)

	// additive sweep with shift one at the maximum frequency overflows on
	// the trigger's immediate calculation
	a.WriteRegister(0xff10, 0x01)
	a.WriteRegister(0xff12, 0xf0)
	a.WriteRegister(0xff13, 0xff)
	a.WriteRegister(0xff14, 0x87)

	test.ExpectEquality(t, a.ReadRegister(0xff26)&0x01, uint8(0x00))
}

func TestWaveRAM(t *testing.T) {
	a := apu.NewAPU(family.DMG)

	for i := uint16(0); i < 16; i++ {
		a.WriteRegister(0xff30+i, uint8(i)*0x11)
	}
	for i := uint16(0); i < 16; i++ {
		test.ExpectEquality(t, a.ReadRegister(0xff30+i), uint8(i)*0x11)
	}
}

func TestNR52ChannelBitsReadOnly(t *testing.T) {
	a := apu.NewAPU(family.DMG)

	// writing to the channel status bits has no effect
	a.WriteRegister(0xff26, 0x8f)
	test.ExpectEquality(t, a.ReadRegister(0xff26), uint8(0xf1))
}
