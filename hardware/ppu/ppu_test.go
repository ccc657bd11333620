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

package ppu_test

import (
	"testing"

	"github.com/jetsetilly/gopherboy/hardware/clocks"
	"github.com/jetsetilly/gopherboy/hardware/family"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/ppu"
	"github.com/jetsetilly/gopherboy/test"
)

// stepping one machine cycle at a time is always safe
const stepDots = 4

// enough steps to cover one full frame with room to spare
const frameSteps = clocks.DotsPerScanline * clocks.ScanlinesPerFrame / stepDots * 2

func newTestPPU() (*ppu.PPU, *interrupts.Interrupts) {
	irq := interrupts.NewInterrupts()
	return ppu.NewPPU(family.DMG, irq), irq
}

// step until the PPU reports the wanted mode. fails the test if a whole
// frame passes without seeing it
func stepToMode(t *testing.T, p *ppu.PPU, mode uint8) {
	t.Helper()
	for i := 0; i < frameSteps; i++ {
		if p.Mode() == mode {
			return
		}
		p.Step(stepDots)
	}
	t.Fatalf("mode %d never reached", mode)
}

func TestModeSequence(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteLCDC(0x91)

	// the frame starts with OAM scan
	p.Step(stepDots)
	test.ExpectEquality(t, p.Mode(), uint8(2))
	test.ExpectEquality(t, p.ReadLY(), uint8(0))

	// OAM scan gives way to rendering at a fixed dot
	stepToMode(t, p, 3)
	test.ExpectEquality(t, p.ReadLY(), uint8(0))

	// rendering ends in hblank for the remainder of the scanline
	stepToMode(t, p, 0)
	test.ExpectEquality(t, p.ReadLY(), uint8(0))

	// the next scanline starts with OAM scan again
	stepToMode(t, p, 2)
	test.ExpectEquality(t, p.ReadLY(), uint8(1))
}

func TestVBlankInterrupt(t *testing.T) {
	p, irq := newTestPPU()
	p.WriteLCDC(0x91)

	for i := 0; i < frameSteps; i++ {
		if irq.ReadIF()&0x01 != 0 {
			break
		}
		p.Step(stepDots)
	}

	test.ExpectSuccess(t, irq.ReadIF()&0x01 != 0)
	test.ExpectEquality(t, p.ReadLY(), uint8(144))
	test.ExpectEquality(t, p.Mode(), uint8(1))
}

func TestLYCInterrupt(t *testing.T) {
	p, irq := newTestPPU()
	p.WriteLCDC(0x91)
	p.WriteLYC(5)
	p.WriteSTAT(0x40)

	for i := 0; i < frameSteps; i++ {
		if irq.ReadIF()&0x02 != 0 {
			break
		}
		p.Step(stepDots)
	}

	test.ExpectSuccess(t, irq.ReadIF()&0x02 != 0)
	test.ExpectEquality(t, p.ReadLY(), uint8(5))

	// the coincidence flag is visible in STAT
	test.ExpectEquality(t, p.ReadSTAT()&0x04, uint8(0x04))
}

func TestLYQuirk(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteLCDC(0x91)

	for i := 0; i < frameSteps; i++ {
		if p.ReadLY() == 153 {
			break
		}
		p.Step(stepDots)
	}
	test.DemandEquality(t, p.ReadLY(), uint8(153))

	// LY reports zero for most of the final scanline, while the PPU is
	// still in vblank
	p.Step(stepDots)
	p.Step(stepDots)
	test.ExpectEquality(t, p.ReadLY(), uint8(0))
	test.ExpectEquality(t, p.Mode(), uint8(1))

	// the new frame begins with LY still zero
	stepToMode(t, p, 2)
	test.ExpectEquality(t, p.ReadLY(), uint8(0))
	test.ExpectEquality(t, p.FrameNum(), 1)
}

func TestHBlankInterruptOncePerScanline(t *testing.T) {
	p, irq := newTestPPU()
	p.WriteLCDC(0x91)
	p.WriteSTAT(0x08)

	// the combined STAT line is edge triggered so hblank fires once per
	// visible scanline and not at all during vblank
	count := 0
	for i := 0; i < frameSteps && p.FrameNum() == 0; i++ {
		p.Step(stepDots)
		if irq.ReadIF()&0x02 != 0 {
			count++
			irq.WriteIF(0)
		}
	}

	test.ExpectEquality(t, count, clocks.VisibleScanlines)
}

func TestOAMLock(t *testing.T) {
	p, _ := newTestPPU()

	// the OAM is open while the display is off
	p.WriteOAM(0xfe00, 0x12)
	test.ExpectEquality(t, p.ReadOAM(0xfe00), uint8(0x12))

	p.WriteLCDC(0x91)
	p.Step(stepDots)

	// locked during OAM scan. the write is dropped
	test.ExpectEquality(t, p.Mode(), uint8(2))
	test.ExpectEquality(t, p.ReadOAM(0xfe00), uint8(0xff))
	p.WriteOAM(0xfe00, 0x34)

	// still locked during rendering
	stepToMode(t, p, 3)
	test.ExpectEquality(t, p.ReadOAM(0xfe00), uint8(0xff))

	// the lock persists for a few dots into hblank
	stepToMode(t, p, 0)
	p.Step(stepDots)
	p.Step(stepDots)
	test.ExpectEquality(t, p.ReadOAM(0xfe00), uint8(0x12))

	// never locked during vblank
	stepToMode(t, p, 1)
	test.ExpectEquality(t, p.ReadOAM(0xfe00), uint8(0x12))
}

func TestVRAMLock(t *testing.T) {
	p, _ := newTestPPU()

	p.WriteVRAM(0x8000, 0x5a)
	test.ExpectEquality(t, p.ReadVRAM(0x8000), uint8(0x5a))

	p.WriteLCDC(0x91)
	p.Step(stepDots)

	// open during OAM scan
	test.ExpectEquality(t, p.Mode(), uint8(2))
	test.ExpectEquality(t, p.ReadVRAM(0x8000), uint8(0x5a))

	// locked during rendering. the write is dropped
	stepToMode(t, p, 3)
	test.ExpectEquality(t, p.ReadVRAM(0x8000), uint8(0xff))
	p.WriteVRAM(0x8000, 0x77)

	stepToMode(t, p, 0)
	test.ExpectEquality(t, p.ReadVRAM(0x8000), uint8(0x5a))
}

func TestDisplayOff(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteLCDC(0x91)

	// run into the frame a little
	for i := 0; i < 200; i++ {
		p.Step(stepDots)
	}
	test.ExpectInequality(t, p.ReadLY(), uint8(0))

	// switching the display off resets to the top of the frame
	p.WriteLCDC(0x11)
	test.ExpectEquality(t, p.ReadLY(), uint8(0))
	test.ExpectEquality(t, p.Mode(), uint8(0))

	// and the PPU does not advance while it is off
	for i := 0; i < frameSteps; i++ {
		p.Step(stepDots)
	}
	test.ExpectEquality(t, p.ReadLY(), uint8(0))
	test.ExpectEquality(t, p.FrameNum(), 0)
}
