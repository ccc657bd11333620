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

// Package cpu implements the SM83 core. The CPU owns nothing but its
// register file; every memory access goes through the Bus interface and
// every access ticks the rest of the machine by one machine cycle, so
// peripheral state observed mid-instruction reflects the true sub-instruction
// timing.
//
// Step() executes one instruction, or one unit of whatever is preventing
// instruction execution (a halt cycle, a stopped machine, a running HDMA
// transfer, an interrupt dispatch) and reports which through the returned
// State value.
package cpu

import (
	"github.com/jetsetilly/gopherboy/hardware/family"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/logger"
	"github.com/jetsetilly/gopherboy/states"
)

// Bus is the CPU's window onto the rest of the machine. Read and Write tick
// the machine by one machine cycle each.
type Bus interface {
	Read(addr uint16) uint8
	ReadNoOAMBug(addr uint16) uint8
	Write(addr uint16, data uint8)

	TakeInterrupt() (interrupts.Source, bool)
	InterruptPending() bool

	HDMAActive() bool

	EnterStop()
	Stopped() bool

	// the OAM corruption bug is triggered by 16-bit increments of a value
	// in the OAM address range, without an accompanying clock
	TriggerWriteOAMBug(addr uint16)
	TriggerReadWriteOAMBug(addr uint16)
}

// State describes what Step() spent its time on.
type State int

// List of valid State values.
const (
	StateNormal State = iota

	// an unconditional jump to its own address. the program will make no
	// further progress unless an interrupt is pending
	StateInfiniteLoop

	StateHalting
	StateRunningHDMA
	StateStopped
	StateRunningInterrupt

	// LD B,B. by convention test ROMs use it as a breakpoint
	StateBreakpoint

	StateIllegal
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateInfiniteLoop:
		return "infinite loop"
	case StateHalting:
		return "halting"
	case StateRunningHDMA:
		return "running HDMA"
	case StateStopped:
		return "stopped"
	case StateRunningInterrupt:
		return "running interrupt"
	case StateBreakpoint:
		return "breakpoint"
	case StateIllegal:
		return "illegal"
	}
	return "unknown"
}

// haltMode distinguishes the ways the HALT instruction can play out. with
// IME clear and an interrupt already pending halt mode is never entered and
// the following opcode byte is executed twice.
type haltMode int

const (
	notHalting haltMode = iota
	haltRunInterrupt
	haltNoRunInterrupt
	haltBug
)

// CPU is the SM83 core.
type CPU struct {
	Regs Registers

	fam family.Family

	ime bool

	// EI takes effect after the following instruction completes
	enableInterruptNext bool

	halt haltMode
}

// NewCPU is the preferred method of initialisation for the CPU type. The
// register file is zeroed, which is correct when execution starts in the
// boot ROM.
func NewCPU(fam family.Family) *CPU {
	return &CPU{fam: fam}
}

// SkipBootROM puts the register file into the state the boot ROM leaves it
// in. The profile differs between hardware families and, on CGB, between
// CGB-flagged and DMG-only cartridges.
func (c *CPU) SkipBootROM(cartCGB bool) {
	if c.fam == family.DMG {
		c.Regs.SetAF(0x01b0)
		c.Regs.SetBC(0x0013)
		c.Regs.SetDE(0x00d8)
		c.Regs.SetHL(0x014d)
	} else {
		c.Regs.SetAF(0x1180)
		c.Regs.SetBC(0x0000)
		if cartCGB {
			c.Regs.SetDE(0xff56)
			c.Regs.SetHL(0x000d)
		} else {
			c.Regs.SetDE(0x0008)
			c.Regs.SetHL(0x007c)
		}
	}
	c.Regs.SP = 0xfffe
	c.Regs.PC = 0x0100
}

// IME returns the state of the interrupt master enable flag.
func (c *CPU) IME() bool {
	return c.ime
}

// Step runs the CPU for one instruction, or for one machine cycle when the
// machine is stopped, halted or surrendered to an HDMA transfer. interrupt
// dispatch happens here, before the opcode fetch.
func (c *CPU) Step(bus Bus) State {
	if bus.Stopped() {
		c.advanceBus(bus)
		return StateStopped
	}

	if bus.HDMAActive() {
		c.advanceBus(bus)
		return StateRunningHDMA
	}

	if c.halt == haltRunInterrupt || c.halt == haltNoRunInterrupt {
		c.advanceBus(bus)

		if bus.InterruptPending() {
			c.halt = notHalting

			// leaving halt takes an extra cycle on CGB
			if c.fam != family.DMG {
				c.advanceBus(bus)
			}
		} else {
			return StateHalting
		}
	}

	if c.ime && bus.InterruptPending() {
		state := StateNormal
		pc := c.Regs.PC

		// the push of the high byte happens before the vector is chosen.
		// it can land on IE and change which interrupt is taken, or cancel
		// the dispatch entirely
		bus.TriggerWriteOAMBug(c.Regs.SP)
		c.Regs.SP--
		bus.Write(c.Regs.SP, uint8(pc>>8))

		if s, ok := bus.TakeInterrupt(); ok {
			state = StateRunningInterrupt
			c.Regs.PC = s.Vector()
		} else {
			// cancelled dispatch leaves the CPU at 0x0000
			c.Regs.PC = 0
		}
		c.ime = false

		c.Regs.SP--
		bus.Write(c.Regs.SP, uint8(pc))

		c.advanceBus(bus)
		c.advanceBus(bus)
		c.advanceBus(bus)
		return state
	}

	if c.enableInterruptNext {
		c.ime = true
		c.enableInterruptNext = false
	}

	pc := c.Regs.PC
	def := instructions[c.fetch(bus)]

	if c.halt == haltBug {
		c.halt = notHalting

		// the fetch increment is lost and the opcode byte runs again
		c.Regs.PC = pc
	}

	if def.op == insPrefix {
		def = prefixedInstructions[c.fetch(bus)]
	}

	return c.execute(def, pc, bus)
}

// fetch reads the next opcode or operand byte and advances PC.
func (c *CPU) fetch(bus Bus) uint8 {
	v := bus.Read(c.Regs.PC)
	bus.TriggerReadWriteOAMBug(c.Regs.PC)
	c.Regs.PC++
	return v
}

// advanceBus burns one machine cycle with a dummy read.
func (c *CPU) advanceBus(bus Bus) {
	bus.Read(0)
}

func (c *CPU) readOperand(ty operand, bus Bus) uint16 {
	switch ty {
	case opRegA:
		return uint16(c.Regs.A)
	case opRegB:
		return uint16(c.Regs.B)
	case opRegC:
		return uint16(c.Regs.C)
	case opRegD:
		return uint16(c.Regs.D)
	case opRegE:
		return uint16(c.Regs.E)
	case opRegH:
		return uint16(c.Regs.H)
	case opRegL:
		return uint16(c.Regs.L)
	case opAddrHL:
		return uint16(bus.Read(c.Regs.HL()))
	case opAddrHLDec:
		hl := c.Regs.HL()
		v := uint16(bus.Read(hl))
		bus.TriggerReadWriteOAMBug(hl)
		c.Regs.SetHL(hl - 1)
		return v
	case opAddrHLInc:
		hl := c.Regs.HL()
		v := uint16(bus.Read(hl))
		bus.TriggerReadWriteOAMBug(hl)
		c.Regs.SetHL(hl + 1)
		return v
	case opAddrBC:
		return uint16(bus.Read(c.Regs.BC()))
	case opAddrDE:
		return uint16(bus.Read(c.Regs.DE()))
	case opRegAF:
		return c.Regs.AF()
	case opRegBC:
		return c.Regs.BC()
	case opRegDE:
		return c.Regs.DE()
	case opRegHL:
		return c.Regs.HL()
	case opRegSP:
		return c.Regs.SP
	case opImm8:
		return uint16(c.fetch(bus))
	case opImm8Signed:
		return uint16(int16(int8(c.fetch(bus))))
	case opImm16:
		lo := uint16(c.fetch(bus))
		hi := uint16(c.fetch(bus))
		return hi<<8 | lo
	case opHighAddr8:
		addr := 0xff00 | uint16(c.fetch(bus))
		return uint16(bus.Read(addr))
	case opHighAddrC:
		return uint16(bus.Read(0xff00 | uint16(c.Regs.C)))
	case opAddr16:
		lo := uint16(c.fetch(bus))
		hi := uint16(c.fetch(bus))
		return uint16(bus.Read(hi<<8 | lo))
	}
	return 0
}

func (c *CPU) writeOperand(ty operand, data uint16, bus Bus) {
	switch ty {
	case opRegA:
		c.Regs.A = uint8(data)
	case opRegB:
		c.Regs.B = uint8(data)
	case opRegC:
		c.Regs.C = uint8(data)
	case opRegD:
		c.Regs.D = uint8(data)
	case opRegE:
		c.Regs.E = uint8(data)
	case opRegH:
		c.Regs.H = uint8(data)
	case opRegL:
		c.Regs.L = uint8(data)
	case opAddrHL:
		bus.Write(c.Regs.HL(), uint8(data))
	case opAddrHLDec:
		hl := c.Regs.HL()
		bus.Write(hl, uint8(data))
		c.Regs.SetHL(hl - 1)
	case opAddrHLInc:
		hl := c.Regs.HL()
		bus.Write(hl, uint8(data))
		c.Regs.SetHL(hl + 1)
	case opAddrBC:
		bus.Write(c.Regs.BC(), uint8(data))
	case opAddrDE:
		bus.Write(c.Regs.DE(), uint8(data))
	case opRegAF:
		c.Regs.SetAF(data)
	case opRegBC:
		c.Regs.SetBC(data)
	case opRegDE:
		c.Regs.SetDE(data)
	case opRegHL:
		c.Regs.SetHL(data)
	case opRegSP:
		c.Regs.SP = data
	case opHighAddr8:
		addr := 0xff00 | uint16(c.fetch(bus))
		bus.Write(addr, uint8(data))
	case opHighAddrC:
		bus.Write(0xff00|uint16(c.Regs.C), uint8(data))
	case opAddr16:
		lo := uint16(c.fetch(bus))
		hi := uint16(c.fetch(bus))
		bus.Write(hi<<8|lo, uint8(data))
	case opAddr16Val16:
		lo := uint16(c.fetch(bus))
		hi := uint16(c.fetch(bus))
		addr := hi<<8 | lo
		bus.Write(addr, uint8(data))
		bus.Write(addr+1, uint8(data>>8))
	}
}

func (c *CPU) stackPush(data uint16, bus Bus) {
	bus.TriggerWriteOAMBug(c.Regs.SP)
	c.Regs.SP--
	bus.Write(c.Regs.SP, uint8(data>>8))
	c.Regs.SP--
	bus.Write(c.Regs.SP, uint8(data))
}

func (c *CPU) stackPop(bus Bus) uint16 {
	// the pop read and the SP increment land on the same cycle, which on
	// DMG corrupts OAM in its own peculiar way
	lo := uint16(bus.ReadNoOAMBug(c.Regs.SP))
	bus.TriggerReadWriteOAMBug(c.Regs.SP)
	c.Regs.SP++
	hi := uint16(bus.Read(c.Regs.SP))
	c.Regs.SP++
	return hi<<8 | lo
}

func (c *CPU) checkCond(cond condition) bool {
	switch cond {
	case condNZ:
		return !c.Regs.flag(FlagZ)
	case condZ:
		return c.Regs.flag(FlagZ)
	case condNC:
		return !c.Regs.flag(FlagC)
	case condC:
		return c.Regs.flag(FlagC)
	}
	return true
}

// execute runs one decoded instruction. pc is the address the opcode was
// fetched from, used for loop detection and the halt bug.
func (c *CPU) execute(def instrDef, pc uint16, bus Bus) State {
	src := c.readOperand(def.src, bus)

	state := StateNormal
	var result uint16

	switch def.op {
	case insNop:
		// nothing

	case insLd:
		result = src

	case insLdBB:
		logger.Logf("cpu", "breakpoint at %04x", pc)
		state = StateBreakpoint

	case insLdSPHL:
		c.advanceBus(bus)
		c.Regs.SP = c.Regs.HL()

	case insLdHLSPSigned8:
		c.advanceBus(bus)
		result = c.Regs.SP + src
		c.Regs.setFlag(FlagZ, false)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, (c.Regs.SP&0xf)+(src&0xf) > 0xf)
		c.Regs.setFlag(FlagC, (c.Regs.SP&0xff)+(src&0xff) > 0xff)

	case insPush:
		c.advanceBus(bus)
		c.stackPush(src, bus)

	case insPop:
		result = c.stackPop(bus)

	case insInc16:
		c.advanceBus(bus)
		bus.TriggerWriteOAMBug(src)
		result = src + 1

	case insDec16:
		c.advanceBus(bus)
		bus.TriggerWriteOAMBug(src)
		result = src - 1

	case insInc:
		result = (src + 1) & 0xff
		c.Regs.setFlag(FlagZ, result == 0)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, result&0xf == 0)

	case insDec:
		result = (src - 1) & 0xff
		c.Regs.setFlag(FlagZ, result == 0)
		c.Regs.setFlag(FlagN, true)
		c.Regs.setFlag(FlagH, result&0xf == 0xf)

	case insAdd:
		dest := c.readOperand(def.dest, bus)
		result = dest + src
		c.Regs.setFlag(FlagZ, result&0xff == 0)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, (dest&0xf)+(src&0xf) > 0xf)
		c.Regs.setFlag(FlagC, result > 0xff)
		result &= 0xff

	case insAdc:
		dest := c.readOperand(def.dest, bus)
		var carry uint16
		if c.Regs.flag(FlagC) {
			carry = 1
		}
		result = dest + src + carry
		c.Regs.setFlag(FlagZ, result&0xff == 0)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, (dest&0xf)+(src&0xf)+carry > 0xf)
		c.Regs.setFlag(FlagC, result > 0xff)
		result &= 0xff

	case insSub, insCp:
		dest := uint16(c.Regs.A)
		if def.op == insSub {
			dest = c.readOperand(def.dest, bus)
		}
		result = dest - src
		c.Regs.setFlag(FlagZ, result&0xff == 0)
		c.Regs.setFlag(FlagN, true)
		c.Regs.setFlag(FlagH, dest&0xf < src&0xf)
		c.Regs.setFlag(FlagC, result&0xff00 != 0)
		result &= 0xff

	case insSbc:
		dest := c.readOperand(def.dest, bus)
		var carry uint16
		if c.Regs.flag(FlagC) {
			carry = 1
		}
		result = dest - src - carry
		c.Regs.setFlag(FlagZ, result&0xff == 0)
		c.Regs.setFlag(FlagN, true)
		c.Regs.setFlag(FlagH, (dest&0xf)-(src&0xf)-carry > 0xf)
		c.Regs.setFlag(FlagC, result&0xff00 != 0)
		result &= 0xff

	case insAnd:
		dest := c.readOperand(def.dest, bus)
		result = dest & src & 0xff
		c.Regs.setFlag(FlagZ, result == 0)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, true)
		c.Regs.setFlag(FlagC, false)

	case insXor:
		dest := c.readOperand(def.dest, bus)
		result = (dest ^ src) & 0xff
		c.Regs.setFlag(FlagZ, result == 0)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, false)
		c.Regs.setFlag(FlagC, false)

	case insOr:
		dest := c.readOperand(def.dest, bus)
		result = (dest | src) & 0xff
		c.Regs.setFlag(FlagZ, result == 0)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, false)
		c.Regs.setFlag(FlagC, false)

	case insAdd16:
		c.advanceBus(bus)
		dest := c.readOperand(def.dest, bus)
		r := uint32(dest) + uint32(src)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, (dest&0xfff)+(src&0xfff) > 0xfff)
		c.Regs.setFlag(FlagC, r > 0xffff)
		result = uint16(r)

	case insAddSPSigned8:
		c.advanceBus(bus)
		c.advanceBus(bus)
		dest := c.readOperand(def.dest, bus)
		result = dest + src
		c.Regs.setFlag(FlagZ, false)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, (dest&0xf)+(src&0xf) > 0xf)
		c.Regs.setFlag(FlagC, (dest&0xff)+(src&0xff) > 0xff)

	case insJp:
		if c.checkCond(def.cond) {
			c.advanceBus(bus)
			if def.cond == condNone && src == pc {
				state = StateInfiniteLoop
			}
			c.Regs.PC = src
		}

	case insJpHL:
		if src == pc {
			state = StateInfiniteLoop
		}
		c.Regs.PC = src

	case insJr:
		if c.checkCond(def.cond) {
			c.advanceBus(bus)
			newPC := c.Regs.PC + src
			if def.cond == condNone && newPC == pc {
				state = StateInfiniteLoop
			}
			c.Regs.PC = newPC
		}

	case insCall:
		if c.checkCond(def.cond) {
			c.advanceBus(bus)
			c.stackPush(c.Regs.PC, bus)
			c.Regs.PC = src
		}

	case insRet:
		if def.cond != condNone {
			c.advanceBus(bus)
		}
		if c.checkCond(def.cond) {
			c.Regs.PC = c.stackPop(bus)
			c.advanceBus(bus)
		}

	case insReti:
		c.Regs.PC = c.stackPop(bus)
		c.advanceBus(bus)
		c.ime = true

	case insRst:
		c.advanceBus(bus)
		c.stackPush(c.Regs.PC, bus)
		c.Regs.PC = uint16(def.param)

	case insDi:
		c.ime = false

	case insEi:
		c.enableInterruptNext = true

	case insCcf:
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, false)
		c.Regs.setFlag(FlagC, !c.Regs.flag(FlagC))

	case insScf:
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, false)
		c.Regs.setFlag(FlagC, true)

	case insDaa:
		carry := c.Regs.flag(FlagC)
		half := c.Regs.flag(FlagH)

		if !c.Regs.flag(FlagN) {
			var correction uint8
			if half || c.Regs.A&0xf > 0x9 {
				correction |= 0x06
			}
			if carry || c.Regs.A > 0x99 {
				correction |= 0x60
				c.Regs.setFlag(FlagC, true)
			}
			c.Regs.A += correction
		} else if carry {
			c.Regs.setFlag(FlagC, true)
			if half {
				c.Regs.A += 0x9a
			} else {
				c.Regs.A += 0xa0
			}
		} else if half {
			c.Regs.A += 0xfa
		}

		c.Regs.setFlag(FlagZ, c.Regs.A == 0)
		c.Regs.setFlag(FlagH, false)

	case insCpl:
		c.Regs.A = ^c.Regs.A
		c.Regs.setFlag(FlagN, true)
		c.Regs.setFlag(FlagH, true)

	case insRlca:
		carry := c.Regs.A >> 7
		c.Regs.A = c.Regs.A<<1 | carry
		c.Regs.setFlag(FlagZ, false)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, false)
		c.Regs.setFlag(FlagC, carry == 1)

	case insRla:
		carry := c.Regs.A >> 7
		var old uint8
		if c.Regs.flag(FlagC) {
			old = 1
		}
		c.Regs.A = c.Regs.A<<1 | old
		c.Regs.setFlag(FlagZ, false)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, false)
		c.Regs.setFlag(FlagC, carry == 1)

	case insRrca:
		carry := c.Regs.A & 1
		c.Regs.A = c.Regs.A>>1 | carry<<7
		c.Regs.setFlag(FlagZ, false)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, false)
		c.Regs.setFlag(FlagC, carry == 1)

	case insRra:
		carry := c.Regs.A & 1
		var old uint8
		if c.Regs.flag(FlagC) {
			old = 1
		}
		c.Regs.A = c.Regs.A>>1 | old<<7
		c.Regs.setFlag(FlagZ, false)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, false)
		c.Regs.setFlag(FlagC, carry == 1)

	case insRlc:
		carry := (src >> 7) & 1
		result = (src<<1 | carry) & 0xff
		c.setShiftFlags(result, carry)

	case insRrc:
		carry := src & 1
		result = (src>>1 | carry<<7) & 0xff
		c.setShiftFlags(result, carry)

	case insRl:
		var old uint16
		if c.Regs.flag(FlagC) {
			old = 1
		}
		carry := (src >> 7) & 1
		result = (src<<1 | old) & 0xff
		c.setShiftFlags(result, carry)

	case insRr:
		var old uint16
		if c.Regs.flag(FlagC) {
			old = 1
		}
		carry := src & 1
		result = (src>>1 | old<<7) & 0xff
		c.setShiftFlags(result, carry)

	case insSla:
		carry := (src >> 7) & 1
		result = (src << 1) & 0xff
		c.setShiftFlags(result, carry)

	case insSra:
		carry := src & 1
		result = (src>>1 | src&0x80) & 0xff
		c.setShiftFlags(result, carry)

	case insSwap:
		result = (src>>4)&0xf | (src&0xf)<<4
		c.setShiftFlags(result, 0)

	case insSrl:
		carry := src & 1
		result = (src >> 1) & 0xff
		c.setShiftFlags(result, carry)

	case insBit:
		c.Regs.setFlag(FlagZ, (src>>def.param)&1 == 0)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, true)

	case insRes:
		result = src & ^(uint16(1) << def.param)

	case insSet:
		result = src | uint16(1)<<def.param

	case insHalt:
		if c.ime {
			c.halt = haltRunInterrupt
		} else if bus.InterruptPending() {
			c.halt = haltBug
		} else {
			c.halt = haltNoRunInterrupt
		}

	case insStop:
		bus.EnterStop()

	case insIllegal:
		logger.Logf("cpu", "illegal opcode at %04x", pc)
		return StateIllegal
	}

	c.writeOperand(def.dest, result, bus)

	return state
}

func (c *CPU) setShiftFlags(result uint16, carry uint16) {
	c.Regs.setFlag(FlagZ, result == 0)
	c.Regs.setFlag(FlagN, false)
	c.Regs.setFlag(FlagH, false)
	c.Regs.setFlag(FlagC, carry == 1)
}

// Serialise implements the states.Serialisable interface.
func (c *CPU) Serialise(s *states.Writer) error {
	if err := c.Regs.Serialise(s); err != nil {
		return err
	}
	s.WriteBool(c.ime)
	s.WriteBool(c.enableInterruptNext)
	s.WriteU8(uint8(c.halt))
	return s.Error()
}

// Deserialise implements the states.Serialisable interface.
func (c *CPU) Deserialise(s *states.Reader) error {
	if err := c.Regs.Deserialise(s); err != nil {
		return err
	}
	c.ime = s.Bool()
	c.enableInterruptNext = s.Bool()
	c.halt = haltMode(s.U8())
	return s.Error()
}
