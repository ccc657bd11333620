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

package timer_test

import (
	"testing"

	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/timer"
	"github.com/jetsetilly/gopherboy/test"
)

func TestBasicIncrement(t *testing.T) {
	irq := interrupts.NewInterrupts()
	tmr := timer.NewTimer(irq)
	tmr.ResetDivider()

	// fastest clock: divider bit 3, an increment every 4 machine cycles
	tmr.WriteTAC(0x05)

	for i := 0; i < 16; i++ {
		tmr.Step()
	}
	test.ExpectEquality(t, tmr.ReadTIMA(), uint8(4))

	// disabled timer does not count
	tmr.WriteTIMA(0)
	tmr.WriteTAC(0x01)
	for i := 0; i < 16; i++ {
		tmr.Step()
	}
	test.ExpectEquality(t, tmr.ReadTIMA(), uint8(0))
}

func TestDIVWriteGlitch(t *testing.T) {
	irq := interrupts.NewInterrupts()
	tmr := timer.NewTimer(irq)
	tmr.ResetDivider()

	// slowest clock: divider bit 9
	tmr.WriteTAC(0x04)

	// run until the selected bit is high but no increment has happened
	for tmr.Divider()>>9&1 == 0 {
		tmr.Step()
	}
	test.ExpectEquality(t, tmr.ReadTIMA(), uint8(0))

	// resetting the divider is a falling edge on the selected bit
	tmr.WriteDIV(0xff)
	test.ExpectEquality(t, tmr.ReadDIV(), uint8(0))
	test.ExpectEquality(t, tmr.ReadTIMA(), uint8(1))
}

func TestTACWriteGlitch(t *testing.T) {
	irq := interrupts.NewInterrupts()
	tmr := timer.NewTimer(irq)
	tmr.ResetDivider()

	tmr.WriteTAC(0x04)
	for tmr.Divider()>>9&1 == 0 {
		tmr.Step()
	}

	// switching the selection to a low bit is a falling edge
	test.ExpectEquality(t, tmr.ReadTIMA(), uint8(0))
	tmr.WriteTAC(0x05)
	test.ExpectEquality(t, tmr.ReadTIMA(), uint8(1))
}

func TestOverflowReloadDelay(t *testing.T) {
	irq := interrupts.NewInterrupts()
	tmr := timer.NewTimer(irq)
	tmr.ResetDivider()

	tmr.WriteTAC(0x05)
	tmr.WriteTMA(0xab)
	tmr.WriteTIMA(0xff)

	// step to the overflow
	for tmr.ReadTIMA() == 0xff {
		tmr.Step()
	}

	// TIMA reads zero for one machine cycle before the reload
	test.ExpectEquality(t, tmr.ReadTIMA(), uint8(0))
	test.ExpectEquality(t, irq.ReadIF()&0x04, uint8(0))

	tmr.Step()
	test.ExpectEquality(t, tmr.ReadTIMA(), uint8(0xab))
	test.ExpectEquality(t, irq.ReadIF()&0x04, uint8(0x04))
}

func TestWriteDuringOverflowWindow(t *testing.T) {
	irq := interrupts.NewInterrupts()
	tmr := timer.NewTimer(irq)
	tmr.ResetDivider()

	tmr.WriteTAC(0x05)
	tmr.WriteTMA(0xab)
	tmr.WriteTIMA(0xff)

	for tmr.ReadTIMA() == 0xff {
		tmr.Step()
	}

	// writing TIMA in the overflow window aborts the reload and the
	// interrupt
	tmr.WriteTIMA(0x12)
	tmr.Step()
	test.ExpectEquality(t, tmr.ReadTIMA(), uint8(0x12))
	test.ExpectEquality(t, irq.ReadIF()&0x04, uint8(0))
}

func TestTMAWriteDuringReload(t *testing.T) {
	irq := interrupts.NewInterrupts()
	tmr := timer.NewTimer(irq)
	tmr.ResetDivider()

	tmr.WriteTAC(0x05)
	tmr.WriteTMA(0xab)
	tmr.WriteTIMA(0xff)

	for tmr.ReadTIMA() == 0xff {
		tmr.Step()
	}

	// let the reload happen, then change TMA on the reload cycle: the new
	// value propagates immediately
	tmr.Step()
	test.ExpectEquality(t, tmr.ReadTIMA(), uint8(0xab))
	tmr.WriteTMA(0xcd)
	test.ExpectEquality(t, tmr.ReadTIMA(), uint8(0xcd))
}
