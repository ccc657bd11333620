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
	"github.com/jetsetilly/gopherboy/hardware/clocks"
	"github.com/jetsetilly/gopherboy/states"
)

const lcdBufferSize = clocks.VisiblePixels * clocks.VisibleScanlines * 3

// lcd is the panel the PPU pushes pixels to. double buffered so a frame can
// be presented while the next one is in flight.
//
// the raw buffer keeps the 5-bit channel values before colour correction. it
// never changes meaning across presentation tweaks, so it is what the frame
// digests hash.
type lcd struct {
	// the x coordinate the next pixel lands on. the only field that travels
	// with a save state, so a restored machine stays in step with the PPU
	// mid-scanline
	x uint8

	buf      [2][lcdBufferSize]uint8
	selected int
	rawBuf   [lcdBufferSize]uint8
}

func newLCD() *lcd {
	l := &lcd{}
	for i := range l.buf {
		for j := range l.buf[i] {
			l.buf[i][j] = 0xff
		}
	}
	for i := range l.rawBuf {
		l.rawBuf[i] = 0x1f
	}
	return l
}

// push the next pixel of scanline y. the colour correction approximates the
// washed out look of the real panel.
func (l *lcd) push(c colour, y uint8) {
	index := (int(y)*clocks.VisiblePixels + int(l.x)) * 3

	r := uint16(c.r)
	g := uint16(c.g)
	b := uint16(c.b)

	rr := r*26 + g*4 + b*2
	gg := g*24 + b*8
	bb := r*6 + g*4 + b*22

	i := l.backBuffer()
	l.buf[i][index+0] = uint8(min16(rr, 960) >> 2)
	l.buf[i][index+1] = uint8(min16(gg, 960) >> 2)
	l.buf[i][index+2] = uint8(min16(bb, 960) >> 2)

	l.rawBuf[index+0] = c.r & 0x1f
	l.rawBuf[index+1] = c.g & 0x1f
	l.rawBuf[index+2] = c.b & 0x1f

	l.x++
}

func (l *lcd) nextLine() {
	l.x = 0
}

func (l *lcd) switchBuffers() {
	l.selected = l.backBuffer()
}

func (l *lcd) backBuffer() int {
	return l.selected ^ 1
}

// frame is the most recently presented frame, 8-bit RGB.
func (l *lcd) frame() []uint8 {
	return l.buf[l.selected][:]
}

// rawFrame is the current working frame before colour correction, 5-bit
// channels.
func (l *lcd) rawFrame() []uint8 {
	return l.rawBuf[:]
}

// clear both buffers to white. happens when the LCD is switched off.
func (l *lcd) clear() {
	for i := range l.buf {
		for j := range l.buf[i] {
			l.buf[i][j] = 0xff
		}
	}
	for i := range l.rawBuf {
		l.rawBuf[i] = 0x1f
	}
}

// fill the back buffer with a solid colour and present it.
func (l *lcd) fill(c colour) {
	savedX := l.x
	savedSelected := l.selected
	l.selected = l.backBuffer()

	l.x = 0
	for y := 0; y < clocks.VisibleScanlines; y++ {
		for x := 0; x < clocks.VisiblePixels; x++ {
			l.push(c, uint8(y))
		}
		l.nextLine()
	}

	l.x = savedX
	l.selected = savedSelected
}

func (l *lcd) serialise(s *states.Writer) {
	s.WriteU8(l.x)
}

func (l *lcd) deserialise(s *states.Reader) {
	l.x = s.U8()
}

func min16(a uint16, b uint16) uint16 {
	if a < b {
		return a
	}
	return b
}
