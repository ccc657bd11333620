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

package cpu_test

import (
	"testing"

	"github.com/jetsetilly/gopherboy/hardware/cpu"
	"github.com/jetsetilly/gopherboy/hardware/family"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/test"
)

// testBus is a flat 64KiB memory with an interrupt controller. every access
// counts one machine cycle, like the real bus.
type testBus struct {
	mem    [0x10000]uint8
	cycles int
	irq    *interrupts.Interrupts
}

func newTestBus() *testBus {
	return &testBus{irq: interrupts.NewInterrupts()}
}

func (b *testBus) Read(addr uint16) uint8 {
	b.cycles++
	return b.mem[addr]
}

func (b *testBus) ReadNoOAMBug(addr uint16) uint8 {
	return b.Read(addr)
}

func (b *testBus) Write(addr uint16, data uint8) {
	b.cycles++
	b.mem[addr] = data

	// IE lives in the address space, so a stack push can overwrite it
	if addr == 0xffff {
		b.irq.WriteIE(data)
	}
}

func (b *testBus) TakeInterrupt() (interrupts.Source, bool) {
	s, ok := b.irq.Next()
	if ok {
		b.irq.Acknowledge(s)
	}
	return s, ok
}

func (b *testBus) InterruptPending() bool {
	return b.irq.Pending()
}

func (b *testBus) HDMAActive() bool              { return false }
func (b *testBus) EnterStop()                    {}
func (b *testBus) Stopped() bool                 { return false }
func (b *testBus) TriggerWriteOAMBug(uint16)     {}
func (b *testBus) TriggerReadWriteOAMBug(uint16) {}

// load a program at 0x0100 and position the CPU at its start.
func program(c *cpu.CPU, b *testBus, bytes ...uint8) {
	copy(b.mem[0x0100:], bytes)
	c.Regs.PC = 0x0100
	c.Regs.SP = 0xfff0
}

func TestInstructionTiming(t *testing.T) {
	// one entry per instruction in the program
	type run struct {
		bytes  []uint8
		cycles int
	}

	for _, r := range []run{
		{[]uint8{0x00}, 1},             // NOP
		{[]uint8{0x41}, 1},             // LD B,C
		{[]uint8{0x06, 0x12}, 2},       // LD B,d8
		{[]uint8{0x36, 0x12}, 3},       // LD (HL),d8
		{[]uint8{0x34}, 3},             // INC (HL)
		{[]uint8{0x03}, 2},             // INC BC
		{[]uint8{0x09}, 2},             // ADD HL,BC
		{[]uint8{0xc5}, 4},             // PUSH BC
		{[]uint8{0xc1}, 3},             // POP BC
		{[]uint8{0xf9}, 2},             // LD SP,HL
		{[]uint8{0xf8, 0x01}, 3},       // LD HL,SP+r8
		{[]uint8{0xe8, 0x01}, 4},       // ADD SP,r8
		{[]uint8{0x08, 0x00, 0xd0}, 5}, // LD (a16),SP
		{[]uint8{0xc3, 0x00, 0x02}, 4}, // JP a16
		{[]uint8{0x18, 0x05}, 3},       // JR r8
		{[]uint8{0xcd, 0x00, 0x02}, 6}, // CALL a16
		{[]uint8{0xc9}, 4},             // RET
		{[]uint8{0xd9}, 4},             // RETI
		{[]uint8{0xc7}, 4},             // RST 00
		{[]uint8{0xcb, 0x11}, 2},       // RL C
		{[]uint8{0xcb, 0x46}, 3},       // BIT 0,(HL)
		{[]uint8{0xcb, 0xc6}, 4},       // SET 0,(HL)
	} {
		b := newTestBus()
		c := cpu.NewCPU(family.DMG)
		program(c, b, r.bytes...)
		c.Regs.SetHL(0xc000)

		c.Step(b)
		test.ExpectEquality(t, b.cycles, r.cycles, "% 02x", r.bytes)
	}
}

func TestConditionalTiming(t *testing.T) {
	// Z clear: JR NZ taken, JP Z not taken, RET Z not taken, CALL Z not
	// taken
	for _, r := range []struct {
		bytes  []uint8
		z      bool
		cycles int
	}{
		{[]uint8{0x20, 0x05}, false, 3},       // JR NZ taken
		{[]uint8{0x20, 0x05}, true, 2},        // JR NZ not taken
		{[]uint8{0xca, 0x00, 0x02}, true, 4},  // JP Z taken
		{[]uint8{0xca, 0x00, 0x02}, false, 3}, // JP Z not taken
		{[]uint8{0xcc, 0x00, 0x02}, true, 6},  // CALL Z taken
		{[]uint8{0xcc, 0x00, 0x02}, false, 3}, // CALL Z not taken
		{[]uint8{0xc8}, true, 5},              // RET Z taken
		{[]uint8{0xc8}, false, 2},             // RET Z not taken
	} {
		b := newTestBus()
		c := cpu.NewCPU(family.DMG)
		program(c, b, r.bytes...)
		if r.z {
			c.Regs.F = cpu.FlagZ
		}

		c.Step(b)
		test.ExpectEquality(t, b.cycles, r.cycles, "% 02x z=%v", r.bytes, r.z)
	}
}

func TestArithmeticFlags(t *testing.T) {
	type run struct {
		program []uint8
		a       uint8
		expectA uint8
		expectF uint8
	}

	for _, r := range []run{
		// ADD A,d8
		{[]uint8{0xc6, 0x01}, 0x0f, 0x10, cpu.FlagH},
		{[]uint8{0xc6, 0x01}, 0xff, 0x00, cpu.FlagZ | cpu.FlagH | cpu.FlagC},
		{[]uint8{0xc6, 0x10}, 0xf0, 0x00, cpu.FlagZ | cpu.FlagC},
		// SUB d8
		{[]uint8{0xd6, 0x01}, 0x10, 0x0f, cpu.FlagN | cpu.FlagH},
		{[]uint8{0xd6, 0x20}, 0x10, 0xf0, cpu.FlagN | cpu.FlagC},
		{[]uint8{0xd6, 0x10}, 0x10, 0x00, cpu.FlagZ | cpu.FlagN},
		// AND d8
		{[]uint8{0xe6, 0x0f}, 0xf0, 0x00, cpu.FlagZ | cpu.FlagH},
		// XOR A clears everything
		{[]uint8{0xaf}, 0x5a, 0x00, cpu.FlagZ},
		// CP d8 leaves A alone
		{[]uint8{0xfe, 0x34}, 0x34, 0x34, cpu.FlagZ | cpu.FlagN},
	} {
		b := newTestBus()
		c := cpu.NewCPU(family.DMG)
		program(c, b, r.program...)
		c.Regs.A = r.a

		c.Step(b)
		test.ExpectEquality(t, c.Regs.A, r.expectA, "% 02x a=%02x", r.program, r.a)
		test.ExpectEquality(t, c.Regs.F, r.expectF, "% 02x a=%02x", r.program, r.a)
	}
}

func TestDAA(t *testing.T) {
	// 0x15 + 0x27 = 0x42 in BCD
	b := newTestBus()
	c := cpu.NewCPU(family.DMG)
	program(c, b, 0xc6, 0x27, 0x27) // ADD A,0x27; DAA
	c.Regs.A = 0x15

	c.Step(b)
	test.ExpectEquality(t, c.Regs.A, uint8(0x3c))
	c.Step(b)
	test.ExpectEquality(t, c.Regs.A, uint8(0x42))

	// 0x90 + 0x90 = 0x80 carry 1
	b = newTestBus()
	c = cpu.NewCPU(family.DMG)
	program(c, b, 0xc6, 0x90, 0x27)
	c.Regs.A = 0x90

	c.Step(b)
	c.Step(b)
	test.ExpectEquality(t, c.Regs.A, uint8(0x80))
	test.ExpectEquality(t, c.Regs.F&cpu.FlagC, cpu.FlagC)
}

func TestInterruptDispatch(t *testing.T) {
	b := newTestBus()
	c := cpu.NewCPU(family.DMG)

	// EI; NOP; NOP ...
	program(c, b, 0xfb, 0x00, 0x00)
	b.irq.WriteIE(0x01)
	b.irq.Request(interrupts.VBlank)

	// EI: interrupts are not yet enabled
	c.Step(b)

	// the enable lands after this instruction
	state := c.Step(b)
	test.ExpectEquality(t, state, cpu.StateNormal)

	b.cycles = 0
	state = c.Step(b)
	test.ExpectEquality(t, state, cpu.StateRunningInterrupt)
	test.ExpectEquality(t, c.Regs.PC, interrupts.VBlank.Vector())
	test.ExpectEquality(t, b.cycles, 5)

	// IF bit acknowledged, return address on the stack
	test.ExpectEquality(t, b.irq.ReadIF()&0x01, uint8(0))
	test.ExpectEquality(t, b.mem[0xffef], uint8(0x01))
	test.ExpectEquality(t, b.mem[0xffee], uint8(0x02))
}

func TestInterruptCancellation(t *testing.T) {
	b := newTestBus()
	c := cpu.NewCPU(family.DMG)

	// run from 0x0200 so the pushed PC high byte is 0x02
	copy(b.mem[0x0200:], []uint8{0xfb, 0x00, 0x00})
	c.Regs.PC = 0x0200

	// SP positioned so the high push lands on IE
	c.Regs.SP = 0x0000

	b.irq.WriteIE(0x01)
	b.irq.Request(interrupts.VBlank)

	c.Step(b) // EI
	c.Step(b) // NOP, enable lands

	// the high push overwrites IE with 0x02, disabling the pending
	// interrupt mid-dispatch. dispatch is cancelled and PC ends up at 0
	state := c.Step(b)
	test.ExpectEquality(t, state, cpu.StateNormal)
	test.ExpectEquality(t, c.Regs.PC, uint16(0x0000))
	test.ExpectEquality(t, b.irq.ReadIE(), uint8(0x02))

	// the request itself is still latched
	test.ExpectEquality(t, b.irq.ReadIF()&0x01, uint8(0x01))
}

func TestHaltBug(t *testing.T) {
	b := newTestBus()
	c := cpu.NewCPU(family.DMG)

	// IME clear with an interrupt pending: HALT; INC A
	program(c, b, 0x76, 0x3c, 0x00)
	b.irq.WriteIE(0x01)
	b.irq.Request(interrupts.VBlank)

	c.Step(b) // HALT, bug armed

	// the INC A opcode byte is executed twice
	c.Step(b)
	test.ExpectEquality(t, c.Regs.A, uint8(1))
	test.ExpectEquality(t, c.Regs.PC, uint16(0x0101))

	c.Step(b)
	test.ExpectEquality(t, c.Regs.A, uint8(2))
	test.ExpectEquality(t, c.Regs.PC, uint16(0x0102))
}

func TestHaltWake(t *testing.T) {
	b := newTestBus()
	c := cpu.NewCPU(family.DMG)

	// IME clear, nothing pending: HALT; INC A
	program(c, b, 0x76, 0x3c, 0x00)
	b.irq.WriteIE(0x01)

	c.Step(b) // HALT

	// halted. each step burns a cycle
	state := c.Step(b)
	test.ExpectEquality(t, state, cpu.StateHalting)
	state = c.Step(b)
	test.ExpectEquality(t, state, cpu.StateHalting)

	// wake without dispatch (IME clear): execution continues
	b.irq.Request(interrupts.VBlank)
	c.Step(b)
	test.ExpectEquality(t, c.Regs.A, uint8(1))
	test.ExpectEquality(t, c.Regs.PC, uint16(0x0102))
}

func TestInfiniteLoopDetection(t *testing.T) {
	b := newTestBus()
	c := cpu.NewCPU(family.DMG)

	// JR -2
	program(c, b, 0x18, 0xfe)

	state := c.Step(b)
	test.ExpectEquality(t, state, cpu.StateInfiniteLoop)
	test.ExpectEquality(t, c.Regs.PC, uint16(0x0100))
}

func TestPowerOnProfiles(t *testing.T) {
	c := cpu.NewCPU(family.DMG)
	c.SkipBootROM(false)
	test.ExpectEquality(t, c.Regs.AF(), uint16(0x01b0))
	test.ExpectEquality(t, c.Regs.BC(), uint16(0x0013))
	test.ExpectEquality(t, c.Regs.DE(), uint16(0x00d8))
	test.ExpectEquality(t, c.Regs.HL(), uint16(0x014d))
	test.ExpectEquality(t, c.Regs.SP, uint16(0xfffe))
	test.ExpectEquality(t, c.Regs.PC, uint16(0x0100))

	c = cpu.NewCPU(family.CGB)
	c.SkipBootROM(true)
	test.ExpectEquality(t, c.Regs.AF(), uint16(0x1180))
	test.ExpectEquality(t, c.Regs.DE(), uint16(0xff56))
	test.ExpectEquality(t, c.Regs.HL(), uint16(0x000d))
}
