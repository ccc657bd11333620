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

package ppu

import (
	"github.com/jetsetilly/gopherboy/states"
)

// colour is a 15-bit RGB colour, five bits per channel.
type colour struct {
	r uint8
	g uint8
	b uint8
}

func colourFromRaw(raw uint16) colour {
	return colour{
		r: uint8(raw & 0x1f),
		g: uint8((raw >> 5) & 0x1f),
		b: uint8((raw >> 10) & 0x1f),
	}
}

func (c colour) toRaw() uint16 {
	return uint16(c.r&0x1f) | (uint16(c.g&0x1f) << 5) | (uint16(c.b&0x1f) << 10)
}

// the four shades of grey DMG software is translated through. also used by
// the CGB palettes when running DMG software without a boot ROM colourisation
var greyShades = [4]colour{
	{r: 31, g: 31, b: 31},
	{r: 21, g: 21, b: 21},
	{r: 10, g: 10, b: 10},
	{r: 0, g: 0, b: 0},
}

// palette is one CGB palette of four colours, stored raw as it appears in
// palette RAM.
type palette struct {
	data [4]uint16
}

func (p *palette) colour(index uint8) colour {
	return colourFromRaw(p.data[index&3])
}

// index is the byte index into the palette, 0 to 7.
func (p *palette) readData(index uint8) uint8 {
	index &= 7
	c := p.data[index/2]
	if index&1 != 0 {
		return uint8(c >> 8)
	}
	return uint8(c)
}

func (p *palette) writeData(index uint8, data uint8) {
	c := &p.data[(index&7)/2]
	if index&1 != 0 {
		*c = (*c & 0x00ff) | (uint16(data) << 8)
	} else {
		*c = (*c & 0xff00) | uint16(data)
	}
}

// paletteRAM is one of the two banks of CGB palette RAM, eight palettes
// behind an index/data register pair.
type paletteRAM struct {
	index         uint8
	autoIncrement bool
	palettes      [8]palette
}

func newPaletteRAM() paletteRAM {
	return paletteRAM{autoIncrement: true}
}

func (r *paletteRAM) readIndex() uint8 {
	v := uint8(0x40) | r.index
	if r.autoIncrement {
		v |= 0x80
	}
	return v
}

func (r *paletteRAM) writeIndex(data uint8) {
	r.index = data & 0x3f
	r.autoIncrement = data&0x80 != 0
}

func (r *paletteRAM) readData() uint8 {
	return r.palettes[r.index/8].readData(r.index % 8)
}

func (r *paletteRAM) writeData(data uint8) {
	r.palettes[r.index/8].writeData(r.index%8, data)
	if r.autoIncrement {
		r.index = (r.index + 1) & 0x3f
	}
}

func (r *paletteRAM) palette(index uint8) palette {
	return r.palettes[index&7]
}

func (r *paletteRAM) setGreyPalette(index uint8) {
	var p palette
	for i, c := range greyShades {
		p.data[i] = c.toRaw()
	}
	r.palettes[index&7] = p
}

func (r *paletteRAM) serialise(s *states.Writer) {
	s.WriteU8(r.index)
	s.WriteBool(r.autoIncrement)
	for i := range r.palettes {
		for _, c := range r.palettes[i].data {
			s.WriteU16(c)
		}
	}
}

func (r *paletteRAM) deserialise(s *states.Reader) {
	r.index = s.U8()
	r.autoIncrement = s.Bool()
	for i := range r.palettes {
		for j := range r.palettes[i].data {
			r.palettes[i].data[j] = s.U16()
		}
	}
}

// bgAttribute is the CGB background attribute byte, read from VRAM bank 1
// alongside the tile number.
type bgAttribute uint8

func (a bgAttribute) palette() uint8 {
	return uint8(a) & 0x7
}

func (a bgAttribute) bank() uint8 {
	return (uint8(a) >> 3) & 1
}

func (a bgAttribute) hflip() bool {
	return a&0x20 != 0
}

func (a bgAttribute) vflip() bool {
	return a&0x40 != 0
}

func (a bgAttribute) priority() bool {
	return a&0x80 != 0
}
