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

// spritePriorityMode decides which of two overlapping sprites wins: the one
// with the lower OAM index (CGB) or the one further to the left (DMG, where
// the fifo mixing needs no extra work)
type spritePriorityMode uint8

const (
	priorityByIndex spritePriorityMode = iota
	priorityByCoord
)

// bgPixel carries the background priority bit of the tile attribute along
// with the pixel.
type bgPixel struct {
	color      uint8
	palette    palette
	bgPriority bool
}

// spritePixel carries the OAM index, as CGB priority is by index and not by
// coordinate.
type spritePixel struct {
	color         uint8
	palette       palette
	dmgPalette    uint8
	index         uint8
	oamBGPriority bool
}

// bgFIFO is the background pixel queue. holds at most two tiles worth of
// pixels.
type bgFIFO struct {
	pixels [16]bgPixel
	head   int
	count  int
}

func (f *bgFIFO) pop() bgPixel {
	p := f.pixels[f.head]
	f.head = (f.head + 1) % len(f.pixels)
	f.count--
	return p
}

func (f *bgFIFO) push(colors [8]uint8, pal palette, bgPriority bool) {
	for _, c := range colors {
		f.pixels[(f.head+f.count)%len(f.pixels)] = bgPixel{
			color:      c,
			palette:    pal,
			bgPriority: bgPriority,
		}
		f.count++
	}
}

func (f *bgFIFO) len() int {
	return f.count
}

func (f *bgFIFO) clear() {
	f.head = 0
	f.count = 0
}

func (f *bgFIFO) serialise(s *states.Writer) {
	for _, p := range f.pixels {
		s.WriteU8(p.color)
		for _, c := range p.palette.data {
			s.WriteU16(c)
		}
		s.WriteBool(p.bgPriority)
	}
	s.WriteInt(f.head)
	s.WriteInt(f.count)
}

func (f *bgFIFO) deserialise(s *states.Reader) {
	for i := range f.pixels {
		f.pixels[i].color = s.U8()
		for j := range f.pixels[i].palette.data {
			f.pixels[i].palette.data[j] = s.U16()
		}
		f.pixels[i].bgPriority = s.Bool()
	}
	f.head = s.Int()
	f.count = s.Int()
}

// spriteFIFO is the sprite pixel queue. at most one sprite wide; a second
// overlapping sprite is mixed into the pixels already queued.
type spriteFIFO struct {
	pixels       [8]spritePixel
	head         int
	count        int
	priorityMode spritePriorityMode
}

func (f *spriteFIFO) pop() (spritePixel, bool) {
	if f.count == 0 {
		return spritePixel{}, false
	}
	p := f.pixels[f.head]
	f.head = (f.head + 1) % len(f.pixels)
	f.count--
	return p, true
}

func (f *spriteFIFO) push(colors [8]uint8, sp *selectedSprite, pal palette) {
	dmgPalette := sp.sprite.dmgPalette()
	index := sp.index
	oamBGPriority := sp.sprite.bgPriority()

	// pixels still queued from an earlier sprite are mixed rather than
	// appended to
	toMix := f.count

	for i, c := range colors {
		px := spritePixel{
			color:         c,
			palette:       pal,
			dmgPalette:    dmgPalette,
			index:         index,
			oamBGPriority: oamBGPriority,
		}

		if toMix > 0 {
			toMix--

			old := &f.pixels[(f.head+i)%len(f.pixels)]
			if ((f.priorityMode == priorityByIndex && index < old.index) || old.color == 0) && c != 0 {
				*old = px
			}
		} else {
			f.pixels[(f.head+f.count)%len(f.pixels)] = px
			f.count++
		}
	}
}

func (f *spriteFIFO) len() int {
	return f.count
}

func (f *spriteFIFO) clear() {
	f.head = 0
	f.count = 0
}

func (f *spriteFIFO) serialise(s *states.Writer) {
	for _, p := range f.pixels {
		s.WriteU8(p.color)
		for _, c := range p.palette.data {
			s.WriteU16(c)
		}
		s.WriteU8(p.dmgPalette)
		s.WriteU8(p.index)
		s.WriteBool(p.oamBGPriority)
	}
	s.WriteInt(f.head)
	s.WriteInt(f.count)
	s.WriteU8(uint8(f.priorityMode))
}

func (f *spriteFIFO) deserialise(s *states.Reader) {
	for i := range f.pixels {
		f.pixels[i].color = s.U8()
		for j := range f.pixels[i].palette.data {
			f.pixels[i].palette.data[j] = s.U16()
		}
		f.pixels[i].dmgPalette = s.U8()
		f.pixels[i].index = s.U8()
		f.pixels[i].oamBGPriority = s.Bool()
	}
	f.head = s.Int()
	f.count = s.Int()
	f.priorityMode = spritePriorityMode(s.U8())
}
