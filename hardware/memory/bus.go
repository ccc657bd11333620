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

// Package memory implements the address bus connecting the CPU to every
// other component. The bus owns the clock: each CPU memory access ticks the
// rest of the machine by one machine cycle.
package memory

import (
	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware/apu"
	"github.com/jetsetilly/gopherboy/hardware/clocks"
	"github.com/jetsetilly/gopherboy/hardware/family"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/joypad"
	"github.com/jetsetilly/gopherboy/hardware/memory/cartridge"
	"github.com/jetsetilly/gopherboy/hardware/ppu"
	"github.com/jetsetilly/gopherboy/hardware/serial"
	"github.com/jetsetilly/gopherboy/hardware/timer"
	"github.com/jetsetilly/gopherboy/states"
)

// BadBootROM is returned when the boot ROM image is the wrong size for the
// console family.
const BadBootROM = "memory: boot ROM is %d bytes (expected %d)"

// boot ROM sizes by family
const (
	dmgBootROMSize = 0x100
	cgbBootROMSize = 0x900
)

// Bus is the address bus and the machine clock.
type Bus struct {
	fam family.Family

	Cart *cartridge.Cartridge
	PPU  *ppu.PPU
	APU  *apu.APU
	TMR  *timer.Timer
	JOY  *joypad.Joypad
	SER  *serial.Serial
	IRQ  *interrupts.Interrupts

	wram wram
	hram [127]uint8

	bootROM bootROM
	speed   speedController
	lck     lock
	unknown [4]unknownRegister

	oamDMA oamDMA
	hdma   hdma

	stopped bool

	// in double speed the APU and cartridge clock run at half the machine
	// cycle rate. this tracks the half cycle
	slowTick bool

	// dots ticked since power on
	elapsedDots uint64
}

func newBus(cart *cartridge.Cartridge, fam family.Family) *Bus {
	irq := interrupts.NewInterrupts()

	b := &Bus{
		fam:  fam,
		Cart: cart,
		PPU:  ppu.NewPPU(fam, irq),
		APU:  apu.NewAPU(fam),
		TMR:  timer.NewTimer(irq),
		JOY:  joypad.NewJoypad(irq),
		SER:  serial.NewSerial(irq, fam),
		IRQ:  irq,
		wram: newWRAM(),
		lck:  newLock(),
	}

	for i, mask := range [4]uint8{0xff, 0xff, 0xff, 0x70} {
		b.unknown[i] = unknownRegister{mask: mask}
	}

	return b
}

// NewBus is the preferred method of initialisation for the Bus type. The
// machine starts in the state the boot ROM leaves it in.
func NewBus(cart *cartridge.Cartridge, fam family.Family) *Bus {
	cgbMode := cart.IsCGB() && fam == family.CGB

	b := newBus(cart, fam)

	if cgbMode {
		b.lck.write(0x80)
	} else {
		b.lck.write(0x04)
	}
	b.lck.finishBoot()

	b.PPU.SkipBootROM(cgbMode)
	b.TMR.SkipBootROM(fam)
	b.SER.SkipBootROM()

	return b
}

// NewBusWithBootROM is the preferred method of initialisation when a boot
// ROM image is available. The machine starts at address zero with the boot
// ROM overlaying the cartridge.
func NewBusWithBootROM(cart *cartridge.Cartridge, data []uint8, fam family.Family) (*Bus, error) {
	expected := dmgBootROMSize
	if fam == family.CGB {
		expected = cgbBootROMSize
	}
	if len(data) != expected {
		return nil, curated.Errorf(BadBootROM, len(data), expected)
	}

	b := newBus(cart, fam)

	if fam == family.DMG {
		b.lck.write(0x04)
		b.lck.finishBoot()
	}

	b.bootROM.data = data
	b.bootROM.enabled = true

	return b, nil
}

// Frame returns the most recently completed frame.
func (b *Bus) Frame() []uint8 {
	return b.PPU.Frame()
}

// AudioSamples drains the audio produced since the last call.
func (b *Bus) AudioSamples() []float32 {
	return b.APU.ReadSamples()
}

// ElapsedDots returns the number of dots ticked since power on.
func (b *Bus) ElapsedDots() uint64 {
	return b.elapsedDots
}

// DoubleSpeed returns true when the machine is in CGB double speed mode.
func (b *Bus) DoubleSpeed() bool {
	return b.speed.doubleSpeed
}

// TickCycle advances the machine by one machine cycle. Called by the CPU for
// internal cycles; Read and Write call it themselves.
func (b *Bus) TickCycle() {
	var dots uint64 = clocks.TCyclesPerMachineCycle
	if b.speed.doubleSpeed {
		dots = clocks.TCyclesPerMachineCycle / 2
	}

	b.elapsedDots += dots

	if b.stopped {
		if b.JOY.AnyPressed() {
			b.stopped = false
		}
		return
	}

	// the cartridge clock is independent of CPU speed
	for i := uint64(0); i < dots/2; i++ {
		b.Cart.Step()
	}

	b.PPU.Step(int(dots))

	// the APU too stays at normal speed when the CPU doubles
	if b.speed.doubleSpeed {
		b.slowTick = !b.slowTick
		if b.slowTick {
			b.APU.Step(1)
		}
	} else {
		b.APU.Step(1)
	}

	// HDMA moves sixteen bytes per eight machine cycles of normal speed
	if b.hdma.active(b.PPU) {
		var values [2]uint8
		values[0] = b.readQuiet(b.hdma.nextSourceAddress(), busNone)
		n := 1
		if !b.speed.doubleSpeed {
			values[1] = b.readQuiet(b.hdma.nextSourceAddress(), busNone)
			n = 2
		}
		b.hdma.step(b.PPU, values[:n])
	}

	// the timer, joypad, serial and OAM DMA follow the CPU speed
	b.TMR.Step()
	b.JOY.Step()
	b.SER.Step()

	if b.oamDMA.inTransfer {
		value := b.readQuiet(b.oamDMA.address, busNone)
		b.oamDMA.step(b.PPU, value)
	}
}

// Read reads from the address space and ticks the machine one cycle.
func (b *Bus) Read(addr uint16) uint8 {
	v := b.ReadNoOAMBug(addr)

	if b.fam == family.DMG && addr&0xff00 == 0xfe00 {
		b.PPU.OAMBugRead()
	}

	return v
}

// ReadNoOAMBug reads and ticks without triggering the OAM corruption bug.
// used by the CPU where the access pattern does not corrupt.
func (b *Bus) ReadNoOAMBug(addr uint16) uint8 {
	v := b.readQuiet(addr, b.oamDMA.conflict)
	b.TickCycle()
	return v
}

// Write writes to the address space and ticks the machine one cycle.
func (b *Bus) Write(addr uint16, data uint8) {
	b.writeQuiet(addr, data, b.oamDMA.conflict)
	b.TickCycle()

	if b.fam == family.DMG && addr&0xff00 == 0xfe00 {
		b.PPU.OAMBugWrite()
	}
}

// TakeInterrupt acknowledges and returns the highest priority pending
// interrupt.
func (b *Bus) TakeInterrupt() (interrupts.Source, bool) {
	s, ok := b.IRQ.Next()
	if ok {
		b.IRQ.Acknowledge(s)
	}
	return s, ok
}

// InterruptPending returns true if any enabled interrupt has been requested.
func (b *Bus) InterruptPending() bool {
	return b.IRQ.Pending()
}

// HDMAActive returns true when an HDMA transfer occupies the coming machine
// cycles.
func (b *Bus) HDMAActive() bool {
	return b.hdma.active(b.PPU)
}

// EnterStop handles the STOP instruction: either commits a prepared speed
// switch or stops the machine until a key is pressed.
func (b *Bus) EnterStop() {
	if b.speed.preparingSwitch {
		b.speed.commitSwitch()
		b.TMR.ResetDivider()
	} else {
		b.stopped = true
		b.PPU.EnterStopMode()
	}
}

// Stopped returns true while the machine is in stop mode.
func (b *Bus) Stopped() bool {
	return b.stopped
}

// TriggerWriteOAMBug corrupts OAM the way an increment of a 16-bit register
// pointing at the OAM area does.
func (b *Bus) TriggerWriteOAMBug(addr uint16) {
	if b.fam == family.DMG && addr&0xff00 == 0xfe00 {
		b.PPU.OAMBugWrite()
	}
}

// TriggerReadWriteOAMBug corrupts OAM for the increment-plus-read access
// pattern.
func (b *Bus) TriggerReadWriteOAMBug(addr uint16) {
	if b.fam == family.DMG && addr&0xff00 == 0xfe00 {
		b.PPU.OAMBugReadWrite()
	}
}

func (b *Bus) readQuiet(addr uint16, conflict busType) uint8 {
	page := uint8(addr >> 8)
	offset := uint8(addr)

	if b.bootROM.covers(addr, b.fam == family.CGB) {
		return b.bootROM.data[addr]
	}

	switch {
	case page <= 0x7f:
		if conflict == busExternal {
			return b.oamDMA.currentValue
		}
		return b.Cart.Read(addr)
	case page <= 0x9f:
		if conflict == busVideo {
			return b.oamDMA.currentValue
		}
		return b.PPU.ReadVRAM(addr)
	case page <= 0xbf:
		if conflict == busExternal && b.fam == family.DMG {
			return b.oamDMA.currentValue
		}
		return b.Cart.ReadRAM(addr)
	case page <= 0xcf:
		if conflict == busExternal && b.fam == family.DMG {
			return b.oamDMA.currentValue
		}
		return b.wram.readBank0(addr)
	case page <= 0xdf:
		if conflict == busExternal && b.fam == family.DMG {
			return b.oamDMA.currentValue
		}
		return b.wram.readBankX(addr)
	case page <= 0xfd:
		// echo RAM
		return b.readQuiet(0xc000|(addr&0x1fff), conflict)
	case page == 0xfe:
		if offset >= 0xa0 {
			return 0
		}
		if conflict != busNone {
			return 0xff
		}
		return b.PPU.ReadOAM(addr)
	}

	return b.readIO(offset)
}

func (b *Bus) writeQuiet(addr uint16, data uint8, conflict busType) {
	page := uint8(addr >> 8)
	offset := uint8(addr)

	switch {
	case page <= 0x7f:
		if conflict == busExternal {
			return
		}
		b.Cart.WriteRegister(addr, data)
	case page <= 0x9f:
		if conflict == busVideo {
			return
		}
		b.PPU.WriteVRAM(addr, data)
	case page <= 0xbf:
		if conflict == busExternal && b.fam == family.DMG {
			return
		}
		b.Cart.WriteRAM(addr, data)
	case page <= 0xcf:
		if conflict == busExternal && b.fam == family.DMG {
			return
		}
		b.wram.writeBank0(addr, data)
	case page <= 0xdf:
		if conflict == busExternal && b.fam == family.DMG {
			return
		}
		b.wram.writeBankX(addr, data)
	case page <= 0xfd:
		b.writeQuiet(0xc000|(addr&0x1fff), data, conflict)
	case page == 0xfe:
		if conflict == busNone && offset <= 0x9f {
			b.PPU.WriteOAM(addr, data)
		}
	default:
		b.writeIO(offset, data)
	}
}

func (b *Bus) readIO(offset uint8) uint8 {
	addr := 0xff00 | uint16(offset)
	isCGB := b.fam != family.DMG

	switch {
	case offset == 0x00:
		return b.JOY.Read()
	case offset == 0x01:
		return b.SER.ReadSB()
	case offset == 0x02:
		return b.SER.ReadSC()
	case offset == 0x04:
		return b.TMR.ReadDIV()
	case offset == 0x05:
		return b.TMR.ReadTIMA()
	case offset == 0x06:
		return b.TMR.ReadTMA()
	case offset == 0x07:
		return b.TMR.ReadTAC()
	case offset == 0x0f:
		return b.IRQ.ReadIF()
	case offset >= 0x10 && offset <= 0x3f:
		return b.APU.ReadRegister(addr)
	case offset == 0x40:
		return b.PPU.ReadLCDC()
	case offset == 0x41:
		return b.PPU.ReadSTAT()
	case offset == 0x42:
		return b.PPU.ReadSCY()
	case offset == 0x43:
		return b.PPU.ReadSCX()
	case offset == 0x44:
		return b.PPU.ReadLY()
	case offset == 0x45:
		return b.PPU.ReadLYC()
	case offset == 0x46:
		return b.oamDMA.readRegister()
	case offset == 0x47:
		return b.PPU.ReadBGP()
	case offset == 0x48:
		return b.PPU.ReadOBP(0)
	case offset == 0x49:
		return b.PPU.ReadOBP(1)
	case offset == 0x4a:
		return b.PPU.ReadWY()
	case offset == 0x4b:
		return b.PPU.ReadWX()
	case offset == 0x4d && b.lck.cgbMode():
		return b.speed.readKEY1()
	case offset == 0x4f && isCGB:
		return b.PPU.ReadVBK()
	case offset == 0x50:
		return 0xff
	case offset >= 0x51 && offset <= 0x55 && b.lck.cgbMode():
		return b.hdma.readRegister(addr)
	case offset == 0x68 && isCGB:
		return b.PPU.ReadBCPS()
	case offset == 0x69 && isCGB:
		return b.PPU.ReadBCPD()
	case offset == 0x6a && isCGB:
		return b.PPU.ReadOCPS()
	case offset == 0x6b && b.lck.cgbMode():
		return b.PPU.ReadOCPD()
	case offset == 0x6c && isCGB:
		return b.PPU.ReadOPRI()
	case offset == 0x70 && b.lck.cgbMode():
		return b.wram.readSVBK()
	case offset == 0x72 && isCGB:
		return b.unknown[0].read()
	case offset == 0x73 && isCGB:
		return b.unknown[1].read()
	case offset == 0x74 && b.lck.cgbMode():
		return b.unknown[2].read()
	case offset == 0x75 && isCGB:
		return b.unknown[3].read()
	case offset == 0x76 && isCGB:
		return b.APU.PCM12()
	case offset == 0x77 && isCGB:
		return b.APU.PCM34()
	case offset >= 0x80 && offset <= 0xfe:
		return b.hram[offset&0x7f]
	case offset == 0xff:
		return b.IRQ.ReadIE()
	}

	return 0xff
}

func (b *Bus) writeIO(offset uint8, data uint8) {
	addr := 0xff00 | uint16(offset)
	isCGB := b.fam != family.DMG

	switch {
	case offset == 0x00:
		b.JOY.Write(data)
	case offset == 0x01:
		b.SER.WriteSB(data)
	case offset == 0x02:
		b.SER.WriteSC(data)
	case offset == 0x04:
		b.TMR.WriteDIV(data)
	case offset == 0x05:
		b.TMR.WriteTIMA(data)
	case offset == 0x06:
		b.TMR.WriteTMA(data)
	case offset == 0x07:
		b.TMR.WriteTAC(data)
	case offset == 0x0f:
		b.IRQ.WriteIF(data)
	case offset >= 0x10 && offset <= 0x3f:
		b.APU.WriteRegister(addr, data)
	case offset == 0x40:
		b.PPU.WriteLCDC(data)
	case offset == 0x41:
		b.PPU.WriteSTAT(data)
	case offset == 0x42:
		b.PPU.WriteSCY(data)
	case offset == 0x43:
		b.PPU.WriteSCX(data)
	case offset == 0x44:
		// LY is read only
	case offset == 0x45:
		b.PPU.WriteLYC(data)
	case offset == 0x46:
		b.oamDMA.writeRegister(data)
	case offset == 0x47:
		b.PPU.WriteBGP(data)
	case offset == 0x48:
		b.PPU.WriteOBP(0, data)
	case offset == 0x49:
		b.PPU.WriteOBP(1, data)
	case offset == 0x4a:
		b.PPU.WriteWY(data)
	case offset == 0x4b:
		b.PPU.WriteWX(data)
	case offset == 0x4c && b.lck.cgbMode():
		b.lck.write(data)
	case offset == 0x4d && b.lck.cgbMode():
		b.speed.writeKEY1(data)
	case offset == 0x4f && b.lck.cgbMode():
		b.PPU.WriteVBK(data)
	case offset == 0x50:
		b.lck.finishBoot()
		b.bootROM.enabled = false
		b.PPU.UpdateCGBMode(b.Cart.IsCGB())
	case offset >= 0x51 && offset <= 0x55 && b.lck.cgbMode():
		b.hdma.writeRegister(addr, data)
	case offset == 0x68 && b.lck.cgbMode():
		b.PPU.WriteBCPS(data)
	case offset == 0x69 && b.lck.cgbMode():
		b.PPU.WriteBCPD(data)
	case offset == 0x6a && b.lck.cgbMode():
		b.PPU.WriteOCPS(data)
	case offset == 0x6b && b.lck.cgbMode():
		b.PPU.WriteOCPD(data)
	case offset == 0x6c && b.lck.cgbMode():
		b.PPU.WriteOPRI(data)
	case offset == 0x70 && b.lck.cgbMode():
		b.wram.writeSVBK(data)
	case offset == 0x72 && isCGB:
		b.unknown[0].write(data)
	case offset == 0x73 && isCGB:
		b.unknown[1].write(data)
	case offset == 0x74 && b.lck.cgbMode():
		b.unknown[2].write(data)
	case offset == 0x75 && isCGB:
		b.unknown[3].write(data)
	case offset >= 0x80 && offset <= 0xfe:
		b.hram[offset&0x7f] = data
	case offset == 0xff:
		b.IRQ.WriteIE(data)
	}
}

// Serialise implements the states.Serialisable interface.
func (b *Bus) Serialise(s *states.Writer) error {
	if err := b.Cart.Serialise(s); err != nil {
		return err
	}
	if err := b.PPU.Serialise(s); err != nil {
		return err
	}
	if err := b.APU.Serialise(s); err != nil {
		return err
	}
	if err := b.TMR.Serialise(s); err != nil {
		return err
	}
	if err := b.JOY.Serialise(s); err != nil {
		return err
	}
	if err := b.SER.Serialise(s); err != nil {
		return err
	}
	if err := b.IRQ.Serialise(s); err != nil {
		return err
	}
	b.wram.serialise(s)
	s.WriteBytes(b.hram[:])
	b.bootROM.serialise(s)
	b.speed.serialise(s)
	b.lck.serialise(s)
	for i := range b.unknown {
		s.WriteU8(b.unknown[i].data)
	}
	b.oamDMA.serialise(s)
	b.hdma.serialise(s)
	s.WriteBool(b.stopped)
	s.WriteBool(b.slowTick)
	return s.Error()
}

// Deserialise implements the states.Serialisable interface.
func (b *Bus) Deserialise(s *states.Reader) error {
	if err := b.Cart.Deserialise(s); err != nil {
		return err
	}
	if err := b.PPU.Deserialise(s); err != nil {
		return err
	}
	if err := b.APU.Deserialise(s); err != nil {
		return err
	}
	if err := b.TMR.Deserialise(s); err != nil {
		return err
	}
	if err := b.JOY.Deserialise(s); err != nil {
		return err
	}
	if err := b.SER.Deserialise(s); err != nil {
		return err
	}
	if err := b.IRQ.Deserialise(s); err != nil {
		return err
	}
	b.wram.deserialise(s)
	s.Bytes(b.hram[:])
	b.bootROM.deserialise(s)
	b.speed.deserialise(s)
	b.lck.deserialise(s)
	for i := range b.unknown {
		b.unknown[i].data = s.U8()
	}
	b.oamDMA.deserialise(s)
	b.hdma.deserialise(s)
	b.stopped = s.Bool()
	b.slowTick = s.Bool()
	return s.Error()
}
