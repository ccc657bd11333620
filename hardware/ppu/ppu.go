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

// Package ppu emulates the picture processing unit at the dot level. Pixels
// are produced by a fetcher feeding a pair of FIFOs, which reproduces the
// variable length of mode 3 and the associated memory locks.
//
// Addresses into VRAM are bus-relative: 0x0000 to 0x1fff rather than 0x8000
// to 0x9fff. OAM addresses use the low byte only.
package ppu

import (
	"github.com/jetsetilly/gopherboy/hardware/clocks"
	"github.com/jetsetilly/gopherboy/hardware/family"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/logger"
	"github.com/jetsetilly/gopherboy/states"
)

// LCDC register bits.
const (
	lcdcDisplayEnable = 0x80
	lcdcWindowTilemap = 0x40
	lcdcWindowEnable  = 0x20
	lcdcPatternTable  = 0x10
	lcdcBGTilemap     = 0x08
	lcdcSpriteSize    = 0x04
	lcdcSpriteEnable  = 0x02
	lcdcBGPriority    = 0x01
)

// STAT register bits.
const (
	statLYCInterrupt   = 0x40
	statMode2Interrupt = 0x20
	statMode1Interrupt = 0x10
	statMode0Interrupt = 0x08
	statCoincidence    = 0x04
	statModeMask       = 0x03
)

// fetcher reads one tile of background or window pixels every eight dots.
type fetcher struct {
	delayCounter uint8
	valid        bool
	pixels       [8]uint8
	attribs      bgAttribute
	x            uint8
}

// cycle returns true when the fetch delay has run out and a new tile row
// should be read.
func (f *fetcher) cycle() bool {
	if f.delayCounter > 0 {
		f.delayCounter--
	}
	if f.delayCounter == 0 {
		f.reset()
		return true
	}
	return false
}

func (f *fetcher) push(pixels [8]uint8, attribs bgAttribute) {
	f.x++
	f.pixels = pixels
	f.attribs = attribs
	f.valid = true
}

func (f *fetcher) pop() ([8]uint8, bgAttribute, bool) {
	if !f.valid {
		return [8]uint8{}, 0, false
	}
	f.valid = false
	return f.pixels, f.attribs, true
}

func (f *fetcher) reset() {
	f.delayCounter = 8
}

func (f *fetcher) serialise(s *states.Writer) {
	s.WriteU8(f.delayCounter)
	s.WriteBool(f.valid)
	s.WriteBytes(f.pixels[:])
	s.WriteU8(uint8(f.attribs))
	s.WriteU8(f.x)
}

func (f *fetcher) deserialise(s *states.Reader) {
	f.delayCounter = s.U8()
	f.valid = s.Bool()
	s.Bytes(f.pixels[:])
	f.attribs = bgAttribute(s.U8())
	f.x = s.U8()
}

// PPU is the picture processing unit.
type PPU struct {
	fam family.Family
	irq *interrupts.Interrupts

	lcdControl uint8
	lcdStatus  uint8
	scrollY    uint8
	scrollX    uint8

	// ly is kept apart from scanline because of the quirk at the end of the
	// frame: during scanline 153 ly reads 0, and LYC comparison follows ly
	ly  uint8
	lyc uint8

	statInterruptLine bool

	dmgBGPalette      uint8
	dmgSpritePalettes [2]uint8

	windowY uint8
	windowX uint8

	vram     [0x4000]uint8
	vramBank uint8

	oam [40]sprite

	// the sprites chosen for the current scanline during OAM scan
	selectedOAM     [10]selectedSprite
	selectedOAMSize uint8

	cgbBGPalettes     paletteRAM
	cgbSpritePalettes paletteRAM

	fineScrollXDiscard uint8
	fetch              fetcher
	drawingWindow      bool
	windowYCounter     uint8

	bgFIFO     bgFIFO
	spriteFIFO spriteFIFO

	lcd *lcd

	cycle    uint16
	scanline uint8

	mode3EndCycle uint16

	// true for the first frame after the LCD is switched on. that frame
	// starts in mode 0 rather than mode 2
	lcdTurnedOn bool

	priorityMode spritePriorityMode

	isCGBMode bool

	frameNum int
}

// NewPPU is the preferred method of initialisation for the PPU type.
func NewPPU(fam family.Family, irq *interrupts.Interrupts) *PPU {
	p := &PPU{
		fam: fam,
		irq: irq,

		// the coincidence flag is set because LY and LYC are both zero
		lcdStatus: statCoincidence,

		dmgBGPalette:      0xfc,
		dmgSpritePalettes: [2]uint8{0xff, 0xff},

		cgbBGPalettes:     newPaletteRAM(),
		cgbSpritePalettes: newPaletteRAM(),

		lcd:   newLCD(),
		cycle: 4,

		// CGB by default. the boot ROM changes it when it detects DMG
		// software
		priorityMode: priorityByIndex,
		isCGBMode:    fam == family.CGB,
	}

	if fam == family.DMG {
		p.cgbBGPalettes.setGreyPalette(0)
		p.cgbSpritePalettes.setGreyPalette(0)
		p.cgbSpritePalettes.setGreyPalette(1)
		p.priorityMode = priorityByCoord
	}

	p.spriteFIFO.priorityMode = p.priorityMode

	return p
}

// SkipBootROM puts the PPU into the state the boot ROM leaves it in.
func (p *PPU) SkipBootROM(cgbMode bool) {
	p.WriteLCDC(0x91)
	p.WriteSCY(0x00)
	p.WriteSCX(0x00)
	p.WriteLYC(0x00)
	p.WriteBGP(0xfc)
	p.WriteOBP(0, 0xff)
	p.WriteOBP(1, 0xff)
	p.WriteWY(0x00)
	p.WriteWX(0x00)

	if p.fam == family.DMG {
		cgbMode = false
	}

	if !cgbMode {
		p.cgbBGPalettes.setGreyPalette(0)
		p.cgbSpritePalettes.setGreyPalette(0)
		p.cgbSpritePalettes.setGreyPalette(1)
		p.priorityMode = priorityByCoord
		p.spriteFIFO.priorityMode = p.priorityMode
	}

	p.isCGBMode = cgbMode

	p.scanline = 153
	p.cycle = 400
	p.ly = 0
	p.setMode(1)
}

// ReadVRAM reads through the currently selected VRAM bank. returns 0xff
// while the PPU holds the VRAM lock.
func (p *PPU) ReadVRAM(addr uint16) uint8 {
	if p.vramLocked() {
		return 0xff
	}
	return p.readVRAMBanked(p.vramBank, addr)
}

// WriteVRAM writes through the currently selected VRAM bank. ignored while
// the PPU holds the VRAM lock.
func (p *PPU) WriteVRAM(addr uint16, data uint8) {
	if !p.vramLocked() {
		p.WriteVRAMNoLock(addr, data)
	}
}

// WriteVRAMNoLock bypasses the VRAM lock. used by HDMA which can write
// during rendering.
func (p *PPU) WriteVRAMNoLock(addr uint16, data uint8) {
	p.vram[int(p.vramBank)*0x2000+int(addr&0x1fff)] = data
}

// the VRAM is locked only during rendering
func (p *PPU) vramLocked() bool {
	return p.Mode() == 3
}

func (p *PPU) readVRAMBanked(bank uint8, addr uint16) uint8 {
	return p.vram[int(bank)*0x2000+int(addr&0x1fff)]
}

// ReadOAM returns 0xff while the PPU holds the OAM lock.
func (p *PPU) ReadOAM(addr uint16) uint8 {
	if p.oamLocked() {
		return 0xff
	}
	return p.readOAMNoLock(addr)
}

// WriteOAM is ignored while the PPU holds the OAM lock.
func (p *PPU) WriteOAM(addr uint16, data uint8) {
	if !p.oamLocked() {
		p.WriteOAMNoLock(addr, data)
	}
}

// WriteOAMNoLock bypasses the OAM lock. used by OAM DMA which can write at
// any time.
func (p *PPU) WriteOAMNoLock(addr uint16, data uint8) {
	addr &= 0xff
	p.oam[addr/4].setByteAt(uint8(addr%4), data)
}

// the OAM is locked during OAM scan and rendering, extended for eight dots
// after mode 3 ends. it is never locked during vblank
func (p *PPU) oamLocked() bool {
	mode := p.Mode()
	if mode == 1 {
		return false
	}
	return mode == 2 || mode == 3 ||
		(p.mode3EndCycle != 0 && p.mode3EndCycle+8 > p.cycle)
}

func (p *PPU) readOAMNoLock(addr uint16) uint8 {
	addr &= 0xff
	return p.oam[addr/4].byteAt(uint8(addr % 4))
}

func (p *PPU) readOAMWord(offset uint8) uint16 {
	low := uint16(p.readOAMNoLock(uint16(offset)))
	high := uint16(p.readOAMNoLock(uint16(offset) + 1))
	return (high << 8) | low
}

func (p *PPU) writeOAMWord(offset uint8, data uint16) {
	p.WriteOAMNoLock(uint16(offset), uint8(data))
	p.WriteOAMNoLock(uint16(offset)+1, uint8(data>>8))
}

// the row of the OAM the bug corrupts, or zero when no corruption happens.
// the PPU walks one row every four dots of mode 2
func (p *PPU) oamBugRow() uint8 {
	if p.Mode() != 2 {
		return 0
	}
	return uint8((p.cycle - 4) / 4)
}

// OAMBugWrite corrupts OAM the way a write to the 0xfe00-0xfeff range does
// during mode 2: the first word of the current row is replaced with a
// bitwise mix of itself and the preceding row, and the rest of the row is
// copied from the preceding row.
func (p *PPU) OAMBugWrite() {
	row := p.oamBugRow()
	if row == 0 {
		return
	}

	a := p.readOAMWord(row * 8)
	b := p.readOAMWord((row - 1) * 8)
	c := p.readOAMWord((row-1)*8 + 4)
	p.writeOAMWord(row*8, ((a^c)&(b^c))^c)

	for i := uint8(2); i <= 6; i += 2 {
		p.writeOAMWord(row*8+i, p.readOAMWord((row-1)*8+i))
	}
}

// OAMBugRead is the read flavour of the corruption. same shape as
// OAMBugWrite with a different bitwise mix.
func (p *PPU) OAMBugRead() {
	row := p.oamBugRow()
	if row == 0 {
		return
	}

	a := p.readOAMWord(row * 8)
	b := p.readOAMWord((row - 1) * 8)
	c := p.readOAMWord((row-1)*8 + 4)
	p.writeOAMWord(row*8, b|(a&c))

	for i := uint8(2); i <= 6; i += 2 {
		p.writeOAMWord(row*8+i, p.readOAMWord((row-1)*8+i))
	}
}

// OAMBugReadWrite happens when an increment and a read land on the same
// machine cycle. rows 4 to 18 suffer an extra corruption of the preceding
// row, which is then copied over both neighbouring rows; a normal read
// corruption follows regardless.
func (p *PPU) OAMBugReadWrite() {
	row := p.oamBugRow()

	if row > 3 && row < 19 {
		a := p.readOAMWord((row - 2) * 8)
		b := p.readOAMWord((row - 1) * 8)
		c := p.readOAMWord(row * 8)
		d := p.readOAMWord((row-1)*8 + 4)
		p.writeOAMWord((row-1)*8, (b&(a|c|d))|(a&c&d))

		for i := uint8(0); i <= 6; i += 2 {
			data := p.readOAMWord((row-1)*8 + i)
			p.writeOAMWord(row*8+i, data)
			p.writeOAMWord((row-2)*8+i, data)
		}
	}

	p.OAMBugRead()
}

// ReadLCDC returns the LCDC register.
func (p *PPU) ReadLCDC() uint8 {
	return p.lcdControl
}

// WriteLCDC writes the LCDC register. Switching the display off resets the
// PPU to the top of the frame and blanks the panel.
func (p *PPU) WriteLCDC(data uint8) {
	oldEnable := p.lcdControl&lcdcDisplayEnable != 0

	p.lcdControl = data

	if oldEnable && p.lcdControl&lcdcDisplayEnable == 0 {
		if p.scanline < clocks.VisibleScanlines {
			logger.Log("ppu", "display turned off outside of vblank")
		}

		p.ly = 0
		p.cycle = 4
		p.scanline = 0
		p.setMode(0)
		p.lcd.clear()

		p.lcdTurnedOn = true
	}
}

// ReadSTAT returns the STAT register. The top bit is unused and reads 1.
func (p *PPU) ReadSTAT() uint8 {
	return 0x80 | p.lcdStatus
}

// WriteSTAT writes the STAT register. The mode and coincidence bits are read
// only.
func (p *PPU) WriteSTAT(data uint8) {
	p.lcdStatus = (p.lcdStatus & ^uint8(0x78)) | (data & 0x78)
}

// ReadSCY returns the SCY register.
func (p *PPU) ReadSCY() uint8 {
	return p.scrollY
}

// WriteSCY writes the SCY register.
func (p *PPU) WriteSCY(data uint8) {
	p.scrollY = data
}

// ReadSCX returns the SCX register.
func (p *PPU) ReadSCX() uint8 {
	return p.scrollX
}

// WriteSCX writes the SCX register.
func (p *PPU) WriteSCX(data uint8) {
	p.scrollX = data
}

// ReadLY returns the LY register. LY is read only.
func (p *PPU) ReadLY() uint8 {
	return p.ly
}

// ReadLYC returns the LYC register.
func (p *PPU) ReadLYC() uint8 {
	return p.lyc
}

// WriteLYC writes the LYC register.
func (p *PPU) WriteLYC(data uint8) {
	p.lyc = data
}

// ReadBGP returns the DMG background palette register.
func (p *PPU) ReadBGP() uint8 {
	return p.dmgBGPalette
}

// WriteBGP writes the DMG background palette register.
func (p *PPU) WriteBGP(data uint8) {
	p.dmgBGPalette = data
}

// ReadOBP returns one of the two DMG sprite palette registers.
func (p *PPU) ReadOBP(index int) uint8 {
	return p.dmgSpritePalettes[index&1]
}

// WriteOBP writes one of the two DMG sprite palette registers.
func (p *PPU) WriteOBP(index int, data uint8) {
	p.dmgSpritePalettes[index&1] = data
}

// ReadWY returns the WY register.
func (p *PPU) ReadWY() uint8 {
	return p.windowY
}

// WriteWY writes the WY register.
func (p *PPU) WriteWY(data uint8) {
	p.windowY = data
}

// ReadWX returns the WX register.
func (p *PPU) ReadWX() uint8 {
	return p.windowX
}

// WriteWX writes the WX register.
func (p *PPU) WriteWX(data uint8) {
	p.windowX = data
}

// ReadVBK returns the VRAM bank register. The unused bits read 1.
func (p *PPU) ReadVBK() uint8 {
	return 0xfe | p.vramBank
}

// WriteVBK selects the VRAM bank.
func (p *PPU) WriteVBK(data uint8) {
	p.vramBank = data & 1
}

// ReadBCPS returns the background palette index register.
func (p *PPU) ReadBCPS() uint8 {
	return p.cgbBGPalettes.readIndex()
}

// WriteBCPS writes the background palette index register.
func (p *PPU) WriteBCPS(data uint8) {
	p.cgbBGPalettes.writeIndex(data)
}

// ReadBCPD reads background palette RAM through the index register.
func (p *PPU) ReadBCPD() uint8 {
	return p.cgbBGPalettes.readData()
}

// WriteBCPD writes background palette RAM through the index register.
func (p *PPU) WriteBCPD(data uint8) {
	p.cgbBGPalettes.writeData(data)
}

// ReadOCPS returns the sprite palette index register.
func (p *PPU) ReadOCPS() uint8 {
	return p.cgbSpritePalettes.readIndex()
}

// WriteOCPS writes the sprite palette index register.
func (p *PPU) WriteOCPS(data uint8) {
	p.cgbSpritePalettes.writeIndex(data)
}

// ReadOCPD reads sprite palette RAM through the index register.
func (p *PPU) ReadOCPD() uint8 {
	return p.cgbSpritePalettes.readData()
}

// WriteOCPD writes sprite palette RAM through the index register.
func (p *PPU) WriteOCPD(data uint8) {
	p.cgbSpritePalettes.writeData(data)
}

// ReadOPRI returns the sprite priority mode register.
func (p *PPU) ReadOPRI() uint8 {
	if p.priorityMode == priorityByCoord {
		return 0xff
	}
	return 0xfe
}

// WriteOPRI selects the sprite priority mode. The CGB boot ROM uses this to
// switch to coordinate order for DMG software.
func (p *PPU) WriteOPRI(data uint8) {
	if data&1 == 0 {
		p.priorityMode = priorityByIndex
	} else {
		p.priorityMode = priorityByCoord
	}
	p.spriteFIFO.priorityMode = p.priorityMode
}

// UpdateCGBMode switches the PPU between CGB and DMG compatibility colour
// handling.
func (p *PPU) UpdateCGBMode(cgbMode bool) {
	p.isCGBMode = cgbMode && p.fam != family.DMG
}

// Mode returns the current PPU mode, 0 to 3.
func (p *PPU) Mode() uint8 {
	return p.lcdStatus & statModeMask
}

func (p *PPU) setMode(mode uint8) {
	p.lcdStatus = (p.lcdStatus & ^uint8(statModeMask)) | (mode & statModeMask)
}

// Frame returns the most recently completed frame: 160x144 pixels, three
// bytes per pixel.
func (p *PPU) Frame() []uint8 {
	return p.lcd.frame()
}

// FrameNum returns the number of completed frames since power on.
func (p *PPU) FrameNum() int {
	return p.frameNum
}

// RawFrame returns the in flight frame before colour correction, five
// significant bits per channel. stable across presentation changes, so this
// is what frame digests are taken over.
func (p *PPU) RawFrame() []uint8 {
	return p.lcd.rawFrame()
}

// EnterStopMode blanks the panel while the machine is stopped. The DMG panel
// fades to white, the CGB panel shows black because VRAM reads are blocked.
func (p *PPU) EnterStopMode() {
	if p.fam == family.DMG {
		p.lcd.clear()
	} else if p.Mode() != 3 {
		p.lcd.fill(colour{})
	}
}

// Step advances the PPU by the given number of dots. The caller must not
// cross a mode boundary in a single call; stepping one machine cycle at a
// time (four dots, or two in double speed) is always safe.
func (p *PPU) Step(dots int) {
	if p.lcdControl&lcdcDisplayEnable == 0 {
		return
	}

	newStatLine := false

	// mode changes happen on exact dots within the frame
	switch {
	case p.scanline == 0 && p.cycle == 0:
		// top of the frame. not reached when the lcd has just been turned
		// on, which starts at cycle 4
		p.mode3EndCycle = 0
		p.setMode(2)
	case p.scanline == 0 && p.cycle == 4:
		// when the lcd is just turning on the frame starts here, staying in
		// mode 0
		if !p.lcdTurnedOn {
			p.mode3EndCycle = 0
			p.setMode(2)
		}
	case p.scanline >= 1 && p.scanline <= 143 && p.cycle == 0:
		p.mode3EndCycle = 0
		p.setMode(2)
	case p.scanline <= 143 && p.cycle == 80:
		p.fineScrollXDiscard = p.scrollX & 0x7
		p.fetch.reset()
		p.setMode(3)
	case p.scanline == 144 && p.cycle == 4:
		p.setMode(1)
		p.enterVBlank()
		p.mode3EndCycle = 0
		p.irq.Request(interrupts.VBlank)
	}

	switch mode := p.Mode(); {
	case mode == 0:
		newStatLine = newStatLine || p.lcdStatus&statMode0Interrupt != 0
	case mode == 1 && p.cycle == 4 && p.scanline == 144 && p.fam == family.DMG:
		// the start of vblank also raises the mode 2 condition
		newStatLine = newStatLine ||
			p.lcdStatus&statMode1Interrupt != 0 ||
			p.lcdStatus&statMode2Interrupt != 0
	case mode == 1:
		newStatLine = newStatLine || p.lcdStatus&statMode1Interrupt != 0
	case mode == 2 && p.cycle == 0:
		if p.fam != family.DMG {
			newStatLine = newStatLine || p.lcdStatus&statMode2Interrupt != 0
		}
	case mode == 2 && p.cycle == 4:
		p.selectSprites()

		if p.fam == family.DMG {
			newStatLine = newStatLine || p.lcdStatus&statMode2Interrupt != 0
		}

		// scanline 0 enters mode 2 at cycle 4 rather than cycle 0
		if p.scanline == 0 {
			newStatLine = newStatLine || p.lcdStatus&statMode2Interrupt != 0
		}
	case mode == 3:
		for i := 0; i < dots; i++ {
			if p.draw() {
				p.setMode(0)
				p.mode3EndCycle = p.cycle
				p.enterHBlank()
				break
			}
		}
	}

	// on CGB the mode 2 condition at the start of vblank raises before the
	// vblank interrupt
	if p.cycle == 0 && p.scanline == 144 && p.fam != family.DMG {
		newStatLine = newStatLine ||
			p.lcdStatus&statMode1Interrupt != 0 ||
			p.lcdStatus&statMode2Interrupt != 0
	}

	coincidence := p.ly == p.lyc
	if coincidence {
		p.lcdStatus |= statCoincidence
	} else {
		p.lcdStatus &= ^uint8(statCoincidence)
	}

	newStatLine = newStatLine || (coincidence && p.lcdStatus&statLYCInterrupt != 0)

	// the STAT interrupt fires on the rising edge of the combined condition
	// line
	if newStatLine && !p.statInterruptLine {
		p.irq.Request(interrupts.LCDStat)
	}
	p.statInterruptLine = newStatLine

	// LY reports 0 for most of the final scanline
	if p.scanline == 153 && p.cycle == 4 {
		p.ly = 0
	}

	p.cycle += uint16(dots)
	if p.cycle >= clocks.DotsPerScanline {
		p.cycle -= clocks.DotsPerScanline
		p.scanline++
		if p.scanline == clocks.ScanlinesPerFrame {
			p.lcd.switchBuffers()
			p.scanline = 0
			p.lcd.nextLine()
			p.frameNum++
		}
		p.ly = p.scanline
	}

	p.lcdTurnedOn = false
}

// draw produces at most one pixel. returns true when the scanline is
// complete and mode 0 begins.
func (p *PPU) draw() bool {
	p.tryEnterWindow()

	if p.fetch.cycle() {
		pixels, attribs := p.fetchBG()
		p.fetch.push(pixels, attribs)
	}

	if p.bgFIFO.len() <= 8 {
		if pixels, attribs, ok := p.fetch.pop(); ok {
			p.bgFIFO.push(pixels, p.cgbBGPalettes.palette(attribs.palette()), attribs.priority())
		}
	}

	if p.bgFIFO.len() > 8 {
		if p.fineScrollXDiscard > 0 {
			p.fineScrollXDiscard--
			p.bgFIFO.pop()
			p.spriteFIFO.pop()
		} else {
			p.tryAddSprite()

			p.lcd.push(p.nextColour(), p.scanline)

			if p.lcd.x == clocks.VisiblePixels {
				return true
			}
		}
	}

	return false
}

// nextColour pops one pixel from each FIFO and resolves which is displayed.
func (p *PPU) nextColour() colour {
	bg := p.bgFIFO.pop()
	sp, hasSprite := p.spriteFIFO.pop()

	var colorIndex uint8
	var pal palette
	var dmgPalette uint8

	spriteWins := false
	if hasSprite {
		// LCDC bit 0 in CGB mode strips the background of its priority
		// entirely
		masterPriority := p.isCGBMode && p.lcdControl&lcdcBGPriority == 0

		spriteWins = (masterPriority || bg.color == 0 || (!bg.bgPriority && !sp.oamBGPriority)) &&
			sp.color != 0
	}

	if spriteWins {
		colorIndex = sp.color
		pal = sp.palette
		dmgPalette = p.dmgSpritePalettes[sp.dmgPalette]
	} else {
		colorIndex = bg.color
		pal = bg.palette
		dmgPalette = p.dmgBGPalette
	}

	if !p.isCGBMode {
		colorIndex = (dmgPalette >> (2 * colorIndex)) & 0x3
	}

	return pal.colour(colorIndex)
}

// fetchBGTileMeta returns the tile number and attributes under the fetcher,
// and the y position within the tilemap. the y position differs between the
// window and the normal background.
func (p *PPU) fetchBGTileMeta() (uint8, bgAttribute, uint8) {
	var tileX uint8
	var tileY uint8
	var tilemap uint16

	if p.drawingWindow {
		tileX = p.fetch.x
		tileY = p.windowYCounter
		if p.lcdControl&lcdcWindowTilemap != 0 {
			tilemap = 0x1c00
		} else {
			tilemap = 0x1800
		}
	} else {
		tileX = ((p.scrollX / 8) + p.fetch.x) & 0x1f
		tileY = p.scanline + p.scrollY
		if p.lcdControl&lcdcBGTilemap != 0 {
			tilemap = 0x1c00
		} else {
			tilemap = 0x1800
		}
	}

	vramIndex := tilemap + uint16(tileY/8)*32 + uint16(tileX)
	tile := p.readVRAMBanked(0, vramIndex)
	attribs := bgAttribute(p.readVRAMBanked(1, vramIndex))

	return tile, attribs, tileY
}

// bgPattern reads one row of a background tile. tile numbers address the
// pattern table either as unsigned from 0x0000 or signed around 0x1000,
// depending on LCDC bit 4.
func (p *PPU) bgPattern(tile uint8, y uint8, bank uint8) [8]uint8 {
	var index uint16
	if p.lcdControl&lcdcPatternTable == 0 {
		index = 0x1000 + uint16(int16(int8(tile)))*16
	} else {
		index = uint16(tile) * 16
	}
	return p.tilePattern(index, y, bank)
}

// spritePattern reads one row of a sprite tile. in 8x16 mode the lowest tile
// bit is ignored.
func (p *PPU) spritePattern(tile uint8, y uint8, bank uint8) [8]uint8 {
	if p.spriteSize() == 16 {
		tile &= 0xfe
	}
	return p.tilePattern(uint16(tile)*16, y, bank)
}

func (p *PPU) tilePattern(index uint16, y uint8, bank uint8) [8]uint8 {
	low := p.readVRAMBanked(bank, index+uint16(y)*2)
	high := p.readVRAMBanked(bank, index+uint16(y)*2+1)

	var result [8]uint8
	for i := range result {
		b := 7 - i
		result[i] = ((high>>b)&1)<<1 | ((low >> b) & 1)
	}
	return result
}

func (p *PPU) spriteSize() uint8 {
	if p.lcdControl&lcdcSpriteSize != 0 {
		return 16
	}
	return 8
}

// fetchBG reads the tile row under the fetcher. on DMG, LCDC bit 0 switches
// the background off entirely and the fetcher produces colour zero.
func (p *PPU) fetchBG() ([8]uint8, bgAttribute) {
	if !p.isCGBMode && p.lcdControl&lcdcBGPriority == 0 {
		return [8]uint8{}, 0
	}

	tile, attribs, y := p.fetchBGTileMeta()

	if attribs.vflip() {
		y = 7 - (y % 8)
	} else {
		y %= 8
	}

	pattern := p.bgPattern(tile, y, attribs.bank())

	if attribs.hflip() {
		for i, j := 0, len(pattern)-1; i < j; i, j = i+1, j-1 {
			pattern[i], pattern[j] = pattern[j], pattern[i]
		}
	}

	return pattern, attribs
}

// selectSprites is the OAM scan: the first ten sprites covering the current
// scanline, in OAM order.
func (p *PPU) selectSprites() {
	count := 0
	for i := range p.oam {
		if p.scanline-p.oam[i].screenY() < p.spriteSize() {
			p.selectedOAM[count] = selectedSprite{sprite: p.oam[i], index: uint8(i)}
			count++
			if count == len(p.selectedOAM) {
				break
			}
		}
	}
	p.selectedOAMSize = uint8(count)
}

// tryAddSprite loads any selected sprite starting at the current x position
// into the sprite FIFO.
func (p *PPU) tryAddSprite() {
	if p.lcdControl&lcdcSpriteEnable == 0 {
		return
	}

	for i := 0; i < int(p.selectedOAMSize); i++ {
		selected := &p.selectedOAM[i]
		sp := &selected.sprite

		// a sprite partly off the left edge starts at x zero
		leftOutOfBounds := p.lcd.x == 0 && sp.x < 8

		if p.lcd.x != sp.screenX() && !leftOutOfBounds {
			continue
		}

		y := p.scanline - sp.screenY()
		if sp.yFlipped() {
			// the sprite size can change mid scanline, leaving y out of
			// range. stay within the tile
			y = ((p.spriteSize() - 1) - y) % p.spriteSize()
		}

		colors := p.spritePattern(sp.tile, y, sp.bank())

		if sp.xFlipped() {
			for i, j := 0, len(colors)-1; i < j; i, j = i+1, j-1 {
				colors[i], colors[j] = colors[j], colors[i]
			}
		}

		if leftOutOfBounds {
			shift := int(8 - sp.x)
			copy(colors[:], colors[shift:])
			for i := 8 - shift; i < 8; i++ {
				colors[i] = 0
			}
		}

		// in DMG mode sprite palettes 0 and 1 of the CGB palette RAM are
		// used together with the OBP registers
		var selector uint8
		if p.isCGBMode {
			selector = sp.cgbPalette()
		} else {
			selector = sp.dmgPalette()
		}

		p.spriteFIFO.push(colors, selected, p.cgbSpritePalettes.palette(selector))
	}
}

// tryEnterWindow switches the fetcher over to the window when the current
// position reaches it.
func (p *PPU) tryEnterWindow() {
	if p.lcdControl&lcdcWindowEnable == 0 || p.drawingWindow {
		return
	}
	if p.scanline < p.windowY {
		return
	}
	if p.lcd.x != p.windowX-7 && !(p.lcd.x == 0 && p.windowX < 7) {
		return
	}

	// replace any fine scroll: a window x under 7 discards bits from the
	// window itself, and an ongoing background fine scroll must not move
	// the window
	if p.windowX < 7 || p.fineScrollXDiscard != 0 {
		p.fineScrollXDiscard = 7 - p.windowX
	}

	p.bgFIFO.clear()
	p.spriteFIFO.clear()
	p.fetch.x = 0
	p.drawingWindow = true
}

func (p *PPU) enterHBlank() {
	p.lcd.nextLine()
	p.bgFIFO.clear()
	p.spriteFIFO.clear()
	p.fetch.x = 0
	if p.drawingWindow {
		p.windowYCounter++
	}
	p.drawingWindow = false
}

func (p *PPU) enterVBlank() {
	p.windowYCounter = 0
}

// Serialise implements the states.Serialisable interface.
func (p *PPU) Serialise(s *states.Writer) error {
	s.WriteU8(p.lcdControl)
	s.WriteU8(p.lcdStatus)
	s.WriteU8(p.scrollY)
	s.WriteU8(p.scrollX)
	s.WriteU8(p.ly)
	s.WriteU8(p.lyc)
	s.WriteBool(p.statInterruptLine)
	s.WriteU8(p.dmgBGPalette)
	s.WriteU8(p.dmgSpritePalettes[0])
	s.WriteU8(p.dmgSpritePalettes[1])
	s.WriteU8(p.windowY)
	s.WriteU8(p.windowX)
	s.WriteBytes(p.vram[:])
	s.WriteU8(p.vramBank)
	for i := range p.oam {
		p.oam[i].serialise(s)
	}
	for i := range p.selectedOAM {
		p.selectedOAM[i].serialise(s)
	}
	s.WriteU8(p.selectedOAMSize)
	p.cgbBGPalettes.serialise(s)
	p.cgbSpritePalettes.serialise(s)
	s.WriteU8(p.fineScrollXDiscard)
	p.fetch.serialise(s)
	s.WriteBool(p.drawingWindow)
	s.WriteU8(p.windowYCounter)
	p.bgFIFO.serialise(s)
	p.spriteFIFO.serialise(s)
	p.lcd.serialise(s)
	s.WriteU16(p.cycle)
	s.WriteU8(p.scanline)
	s.WriteU16(p.mode3EndCycle)
	s.WriteBool(p.lcdTurnedOn)
	s.WriteU8(uint8(p.priorityMode))
	s.WriteBool(p.isCGBMode)
	s.WriteInt(p.frameNum)
	return s.Error()
}

// Deserialise implements the states.Serialisable interface.
func (p *PPU) Deserialise(s *states.Reader) error {
	p.lcdControl = s.U8()
	p.lcdStatus = s.U8()
	p.scrollY = s.U8()
	p.scrollX = s.U8()
	p.ly = s.U8()
	p.lyc = s.U8()
	p.statInterruptLine = s.Bool()
	p.dmgBGPalette = s.U8()
	p.dmgSpritePalettes[0] = s.U8()
	p.dmgSpritePalettes[1] = s.U8()
	p.windowY = s.U8()
	p.windowX = s.U8()
	s.Bytes(p.vram[:])
	p.vramBank = s.U8()
	for i := range p.oam {
		p.oam[i].deserialise(s)
	}
	for i := range p.selectedOAM {
		p.selectedOAM[i].deserialise(s)
	}
	p.selectedOAMSize = s.U8()
	p.cgbBGPalettes.deserialise(s)
	p.cgbSpritePalettes.deserialise(s)
	p.fineScrollXDiscard = s.U8()
	p.fetch.deserialise(s)
	p.drawingWindow = s.Bool()
	p.windowYCounter = s.U8()
	p.bgFIFO.deserialise(s)
	p.spriteFIFO.deserialise(s)
	p.lcd.deserialise(s)
	p.cycle = s.U16()
	p.scanline = s.U8()
	p.mode3EndCycle = s.U16()
	p.lcdTurnedOn = s.Bool()
	p.priorityMode = spritePriorityMode(s.U8())
	p.spriteFIFO.priorityMode = p.priorityMode
	p.isCGBMode = s.Bool()
	p.frameNum = s.Int()
	return s.Error()
}
