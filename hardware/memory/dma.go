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

package memory

import (
	"github.com/jetsetilly/gopherboy/hardware/ppu"
	"github.com/jetsetilly/gopherboy/states"
)

// busType identifies which of the two physical buses OAM DMA occupies while
// it runs. reads from the occupied bus see the byte the DMA unit is moving.
type busType int

const (
	busNone busType = iota

	// VRAM
	busVideo

	// cartridge ROM, cartridge RAM and WRAM
	busExternal
)

// oamDMA is the OAM DMA unit, started by a write to 0xff46. it copies 160
// bytes to OAM, one per machine cycle, after a short starting delay.
type oamDMA struct {
	conflict     busType
	currentValue uint8
	address      uint16
	inTransfer   bool
	startDelay   uint8
}

func (dma *oamDMA) writeRegister(highByte uint8) {
	// source pages 0xfe and 0xff are internal to the chip. the DMA unit
	// drives the external bus regardless, so WRAM at 0xde00-0xdfff is what
	// actually gets copied
	if highByte == 0xfe || highByte == 0xff {
		highByte &= 0xdf
	}

	dma.address = uint16(highByte) << 8

	// two machine cycles before the first byte moves
	dma.startDelay = 2
	dma.inTransfer = true
}

func (dma *oamDMA) readRegister() uint8 {
	return uint8(dma.address >> 8)
}

// step moves one byte. value is the byte read from the current source
// address by the caller.
func (dma *oamDMA) step(p *ppu.PPU, value uint8) {
	if dma.startDelay > 0 {
		dma.startDelay--

		// the bus conflict starts once the delay has run out
		if dma.startDelay == 0 {
			highByte := uint8(dma.address >> 8)
			if highByte >= 0x80 && highByte <= 0x9f {
				dma.conflict = busVideo
			} else {
				dma.conflict = busExternal
			}
		}
		return
	}

	dma.currentValue = value

	// DMA writes land even while the PPU holds the OAM lock
	p.WriteOAMNoLock(dma.address&0xff, value)

	dma.address++
	if dma.address&0xff == 0xa0 {
		dma.inTransfer = false
		dma.conflict = busNone
	}
}

func (dma *oamDMA) serialise(s *states.Writer) {
	s.WriteU8(uint8(dma.conflict))
	s.WriteU8(dma.currentValue)
	s.WriteU16(dma.address)
	s.WriteBool(dma.inTransfer)
	s.WriteU8(dma.startDelay)
}

func (dma *oamDMA) deserialise(s *states.Reader) {
	dma.conflict = busType(s.U8())
	dma.currentValue = s.U8()
	dma.address = s.U16()
	dma.inTransfer = s.Bool()
	dma.startDelay = s.U8()
}

// hdma is the CGB VRAM DMA unit: either a halting general purpose transfer
// or sixteen bytes per hblank.
type hdma struct {
	sourceAddr uint16
	destAddr   uint16
	length     uint8

	// transfer during hblank only
	hblankDMA bool

	masterActive bool
	hblankActive bool
	cachedHBlank bool
}

func (h *hdma) writeRegister(addr uint16, data uint8) {
	switch addr {
	case 0xff51:
		h.sourceAddr = (h.sourceAddr & 0x00ff) | (uint16(data) << 8)
	case 0xff52:
		// the low four bits are ignored
		h.sourceAddr = (h.sourceAddr & 0xff00) | uint16(data&0xf0)
	case 0xff53:
		// the top three bits are forced so the destination stays in VRAM
		h.destAddr = (h.destAddr & 0x00ff) | (uint16((data&0x1f)|0x80) << 8)
	case 0xff54:
		h.destAddr = (h.destAddr & 0xff00) | uint16(data&0xf0)
	case 0xff55:
		h.length = data & 0x7f
		if h.masterActive {
			// an active hblank transfer can be paused and resumed
			h.masterActive = data&0x80 != 0
			h.sourceAddr &= 0xfff0
			h.destAddr &= 0xfff0
		} else {
			h.masterActive = true
			h.hblankActive = false
			h.cachedHBlank = false
			h.hblankDMA = data&0x80 != 0
		}
	}
}

func (h *hdma) readRegister(addr uint16) uint8 {
	if addr == 0xff55 {
		v := h.length
		if !h.masterActive {
			v |= 0x80
		}
		return v
	}
	return 0xff
}

func (h *hdma) nextSourceAddress() uint16 {
	addr := h.sourceAddr
	h.sourceAddr++
	return addr
}

// step writes the fetched bytes to VRAM: two per machine cycle in normal
// speed, one in double speed.
func (h *hdma) step(p *ppu.PPU, values []uint8) {
	for _, v := range values {
		p.WriteVRAMNoLock(h.destAddr, v)
		h.destAddr++

		if h.destAddr&0xf == 0 {
			h.hblankActive = false
			h.length--

			if h.length == 0xff {
				h.masterActive = false
			}
		}
	}
}

// active reports whether a transfer runs this machine cycle. an hblank
// transfer arms on the transition into hblank.
func (h *hdma) active(p *ppu.PPU) bool {
	inHBlank := p.Mode() == 0

	if h.hblankDMA && !h.cachedHBlank && inHBlank {
		h.hblankActive = true
	}
	h.cachedHBlank = inHBlank

	return h.masterActive && (!h.hblankDMA || h.hblankActive)
}

func (h *hdma) serialise(s *states.Writer) {
	s.WriteU16(h.sourceAddr)
	s.WriteU16(h.destAddr)
	s.WriteU8(h.length)
	s.WriteBool(h.hblankDMA)
	s.WriteBool(h.masterActive)
	s.WriteBool(h.hblankActive)
	s.WriteBool(h.cachedHBlank)
}

func (h *hdma) deserialise(s *states.Reader) {
	h.sourceAddr = s.U16()
	h.destAddr = s.U16()
	h.length = s.U8()
	h.hblankDMA = s.Bool()
	h.masterActive = s.Bool()
	h.hblankActive = s.Bool()
	h.cachedHBlank = s.Bool()
}
