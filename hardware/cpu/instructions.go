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

package cpu

// operand locates where an instruction's source or destination value lives.
// reads and writes through memory operands tick the machine; register
// operands are free.
type operand int

const (
	opNone operand = iota

	opRegA
	opRegB
	opRegC
	opRegD
	opRegE
	opRegH
	opRegL

	opAddrHL
	opAddrHLDec
	opAddrHLInc
	opAddrBC
	opAddrDE

	opRegAF
	opRegBC
	opRegDE
	opRegHL
	opRegSP

	opImm8
	opImm8Signed
	opImm16

	opHighAddr8
	opHighAddrC
	opAddr16

	// write a 16-bit value to an immediate address. only LD (a16),SP
	opAddr16Val16
)

// opcode is the decoded operation, independent of where its operands live.
type opcode int

const (
	insNop opcode = iota
	insStop
	insHalt

	insLd
	insLdSPHL
	insLdHLSPSigned8

	// LD B,B doubles as a software breakpoint
	insLdBB

	insPush
	insPop

	insInc
	insInc16
	insDec
	insDec16

	insAdd
	insAdd16
	insAddSPSigned8
	insAdc
	insSub
	insSbc
	insAnd
	insXor
	insOr
	insCp

	insJp
	insJpHL
	insJr
	insCall
	insRet
	insReti
	insRst

	insDi
	insEi
	insCcf
	insScf
	insDaa
	insCpl

	insRlca
	insRla
	insRrca
	insRra

	insPrefix

	insRlc
	insRrc
	insRl
	insRr
	insSla
	insSra
	insSwap
	insSrl

	insBit
	insRes
	insSet

	insIllegal
)

// condition gates the control flow instructions. condNone means the
// instruction is unconditional.
type condition int

const (
	condNone condition = iota
	condNZ
	condZ
	condNC
	condC
)

// instrDef is one entry in the decode tables. param carries the RST vector
// or the bit number for the BIT/RES/SET group.
type instrDef struct {
	op    opcode
	dest  operand
	src   operand
	cond  condition
	param uint8
}

// the irregular opcodes. the regular grids (LD r,r' and the accumulator
// arithmetic block) are filled in by buildTables.
var instructions = [256]instrDef{
	0x00: {op: insNop},
	0x01: {op: insLd, dest: opRegBC, src: opImm16},
	0x02: {op: insLd, dest: opAddrBC, src: opRegA},
	0x03: {op: insInc16, dest: opRegBC, src: opRegBC},
	0x04: {op: insInc, dest: opRegB, src: opRegB},
	0x05: {op: insDec, dest: opRegB, src: opRegB},
	0x06: {op: insLd, dest: opRegB, src: opImm8},
	0x07: {op: insRlca},
	0x08: {op: insLd, dest: opAddr16Val16, src: opRegSP},
	0x09: {op: insAdd16, dest: opRegHL, src: opRegBC},
	0x0a: {op: insLd, dest: opRegA, src: opAddrBC},
	0x0b: {op: insDec16, dest: opRegBC, src: opRegBC},
	0x0c: {op: insInc, dest: opRegC, src: opRegC},
	0x0d: {op: insDec, dest: opRegC, src: opRegC},
	0x0e: {op: insLd, dest: opRegC, src: opImm8},
	0x0f: {op: insRrca},

	// the byte after STOP is fetched and discarded
	0x10: {op: insStop, src: opImm8},
	0x11: {op: insLd, dest: opRegDE, src: opImm16},
	0x12: {op: insLd, dest: opAddrDE, src: opRegA},
	0x13: {op: insInc16, dest: opRegDE, src: opRegDE},
	0x14: {op: insInc, dest: opRegD, src: opRegD},
	0x15: {op: insDec, dest: opRegD, src: opRegD},
	0x16: {op: insLd, dest: opRegD, src: opImm8},
	0x17: {op: insRla},
	0x18: {op: insJr, src: opImm8Signed},
	0x19: {op: insAdd16, dest: opRegHL, src: opRegDE},
	0x1a: {op: insLd, dest: opRegA, src: opAddrDE},
	0x1b: {op: insDec16, dest: opRegDE, src: opRegDE},
	0x1c: {op: insInc, dest: opRegE, src: opRegE},
	0x1d: {op: insDec, dest: opRegE, src: opRegE},
	0x1e: {op: insLd, dest: opRegE, src: opImm8},
	0x1f: {op: insRra},

	0x20: {op: insJr, src: opImm8Signed, cond: condNZ},
	0x21: {op: insLd, dest: opRegHL, src: opImm16},
	0x22: {op: insLd, dest: opAddrHLInc, src: opRegA},
	0x23: {op: insInc16, dest: opRegHL, src: opRegHL},
	0x24: {op: insInc, dest: opRegH, src: opRegH},
	0x25: {op: insDec, dest: opRegH, src: opRegH},
	0x26: {op: insLd, dest: opRegH, src: opImm8},
	0x27: {op: insDaa},
	0x28: {op: insJr, src: opImm8Signed, cond: condZ},
	0x29: {op: insAdd16, dest: opRegHL, src: opRegHL},
	0x2a: {op: insLd, dest: opRegA, src: opAddrHLInc},
	0x2b: {op: insDec16, dest: opRegHL, src: opRegHL},
	0x2c: {op: insInc, dest: opRegL, src: opRegL},
	0x2d: {op: insDec, dest: opRegL, src: opRegL},
	0x2e: {op: insLd, dest: opRegL, src: opImm8},
	0x2f: {op: insCpl},

	0x30: {op: insJr, src: opImm8Signed, cond: condNC},
	0x31: {op: insLd, dest: opRegSP, src: opImm16},
	0x32: {op: insLd, dest: opAddrHLDec, src: opRegA},
	0x33: {op: insInc16, dest: opRegSP, src: opRegSP},
	0x34: {op: insInc, dest: opAddrHL, src: opAddrHL},
	0x35: {op: insDec, dest: opAddrHL, src: opAddrHL},
	0x36: {op: insLd, dest: opAddrHL, src: opImm8},
	0x37: {op: insScf},
	0x38: {op: insJr, src: opImm8Signed, cond: condC},
	0x39: {op: insAdd16, dest: opRegHL, src: opRegSP},
	0x3a: {op: insLd, dest: opRegA, src: opAddrHLDec},
	0x3b: {op: insDec16, dest: opRegSP, src: opRegSP},
	0x3c: {op: insInc, dest: opRegA, src: opRegA},
	0x3d: {op: insDec, dest: opRegA, src: opRegA},
	0x3e: {op: insLd, dest: opRegA, src: opImm8},
	0x3f: {op: insCcf},

	// 0x40 to 0xbf filled in by buildTables

	0xc0: {op: insRet, cond: condNZ},
	0xc1: {op: insPop, dest: opRegBC},
	0xc2: {op: insJp, src: opImm16, cond: condNZ},
	0xc3: {op: insJp, src: opImm16},
	0xc4: {op: insCall, src: opImm16, cond: condNZ},
	0xc5: {op: insPush, src: opRegBC},
	0xc6: {op: insAdd, dest: opRegA, src: opImm8},
	0xc7: {op: insRst, param: 0x00},
	0xc8: {op: insRet, cond: condZ},
	0xc9: {op: insRet},
	0xca: {op: insJp, src: opImm16, cond: condZ},
	0xcb: {op: insPrefix},
	0xcc: {op: insCall, src: opImm16, cond: condZ},
	0xcd: {op: insCall, src: opImm16},
	0xce: {op: insAdc, dest: opRegA, src: opImm8},
	0xcf: {op: insRst, param: 0x08},

	0xd0: {op: insRet, cond: condNC},
	0xd1: {op: insPop, dest: opRegDE},
	0xd2: {op: insJp, src: opImm16, cond: condNC},
	0xd3: {op: insIllegal},
	0xd4: {op: insCall, src: opImm16, cond: condNC},
	0xd5: {op: insPush, src: opRegDE},
	0xd6: {op: insSub, dest: opRegA, src: opImm8},
	0xd7: {op: insRst, param: 0x10},
	0xd8: {op: insRet, cond: condC},
	0xd9: {op: insReti},
	0xda: {op: insJp, src: opImm16, cond: condC},
	0xdb: {op: insIllegal},
	0xdc: {op: insCall, src: opImm16, cond: condC},
	0xdd: {op: insIllegal},
	0xde: {op: insSbc, dest: opRegA, src: opImm8},
	0xdf: {op: insRst, param: 0x18},

	0xe0: {op: insLd, dest: opHighAddr8, src: opRegA},
	0xe1: {op: insPop, dest: opRegHL},
	0xe2: {op: insLd, dest: opHighAddrC, src: opRegA},
	0xe3: {op: insIllegal},
	0xe4: {op: insIllegal},
	0xe5: {op: insPush, src: opRegHL},
	0xe6: {op: insAnd, dest: opRegA, src: opImm8},
	0xe7: {op: insRst, param: 0x20},
	0xe8: {op: insAddSPSigned8, dest: opRegSP, src: opImm8Signed},
	0xe9: {op: insJpHL, src: opRegHL},
	0xea: {op: insLd, dest: opAddr16, src: opRegA},
	0xeb: {op: insIllegal},
	0xec: {op: insIllegal},
	0xed: {op: insIllegal},
	0xee: {op: insXor, dest: opRegA, src: opImm8},
	0xef: {op: insRst, param: 0x28},

	0xf0: {op: insLd, dest: opRegA, src: opHighAddr8},
	0xf1: {op: insPop, dest: opRegAF},
	0xf2: {op: insLd, dest: opRegA, src: opHighAddrC},
	0xf3: {op: insDi},
	0xf4: {op: insIllegal},
	0xf5: {op: insPush, src: opRegAF},
	0xf6: {op: insOr, dest: opRegA, src: opImm8},
	0xf7: {op: insRst, param: 0x30},
	0xf8: {op: insLdHLSPSigned8, dest: opRegHL, src: opImm8Signed},
	0xf9: {op: insLdSPHL},
	0xfa: {op: insLd, dest: opRegA, src: opAddr16},
	0xfb: {op: insEi},
	0xfc: {op: insIllegal},
	0xfd: {op: insIllegal},
	0xfe: {op: insCp, src: opImm8},
	0xff: {op: insRst, param: 0x38},
}

// the prefixed table is regular enough to be generated whole
var prefixedInstructions [256]instrDef

func init() {
	buildTables()
}

func buildTables() {
	// operand order for the low three bits of the regular grids
	regs := [8]operand{opRegB, opRegC, opRegD, opRegE, opRegH, opRegL, opAddrHL, opRegA}

	// LD r,r' grid, including HALT at 0x76 and the LD B,B breakpoint
	for i := 0x40; i < 0x80; i++ {
		switch i {
		case 0x40:
			// no operands. B = B moves nothing
			instructions[i] = instrDef{op: insLdBB}
		case 0x76:
			instructions[i] = instrDef{op: insHalt}
		default:
			instructions[i] = instrDef{
				op:   insLd,
				dest: regs[(i>>3)&7],
				src:  regs[i&7],
			}
		}
	}

	// accumulator arithmetic grid. CP discards its result so has no
	// destination
	arith := [8]opcode{insAdd, insAdc, insSub, insSbc, insAnd, insXor, insOr, insCp}
	for i := 0x80; i < 0xc0; i++ {
		op := arith[(i>>3)&7]
		def := instrDef{op: op, src: regs[i&7]}
		if op != insCp {
			def.dest = opRegA
		}
		instructions[i] = def
	}

	shifts := [8]opcode{insRlc, insRrc, insRl, insRr, insSla, insSra, insSwap, insSrl}
	for i := 0; i < 256; i++ {
		r := regs[i&7]
		bit := uint8((i >> 3) & 7)
		switch {
		case i < 0x40:
			prefixedInstructions[i] = instrDef{op: shifts[(i>>3)&7], dest: r, src: r}
		case i < 0x80:
			// BIT only tests, it never writes back
			prefixedInstructions[i] = instrDef{op: insBit, src: r, param: bit}
		case i < 0xc0:
			prefixedInstructions[i] = instrDef{op: insRes, dest: r, src: r, param: bit}
		default:
			prefixedInstructions[i] = instrDef{op: insSet, dest: r, src: r, param: bit}
		}
	}
}
