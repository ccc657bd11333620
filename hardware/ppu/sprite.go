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

// sprite is one OAM entry as stored in hardware: position, tile number and
// the attribute flags.
type sprite struct {
	y     uint8
	x     uint8
	tile  uint8
	flags uint8
}

// byte layout of the attribute flags
const (
	spriteFlagPriority = 0x80
	spriteFlagYFlip    = 0x40
	spriteFlagXFlip    = 0x20
	spriteFlagPalette  = 0x10
	spriteFlagBank     = 0x08
	spriteFlagCGBPal   = 0x07
)

func (sp *sprite) byteAt(offset uint8) uint8 {
	switch offset & 3 {
	case 0:
		return sp.y
	case 1:
		return sp.x
	case 2:
		return sp.tile
	}
	return sp.flags
}

func (sp *sprite) setByteAt(offset uint8, data uint8) {
	switch offset & 3 {
	case 0:
		sp.y = data
	case 1:
		sp.x = data
	case 2:
		sp.tile = data
	case 3:
		sp.flags = data
	}
}

// screenY is the y coordinate of the top row of the sprite in screen space.
func (sp *sprite) screenY() uint8 {
	return sp.y - 16
}

// screenX is the x coordinate of the left column of the sprite in screen
// space.
func (sp *sprite) screenX() uint8 {
	return sp.x - 8
}

func (sp *sprite) dmgPalette() uint8 {
	if sp.flags&spriteFlagPalette != 0 {
		return 1
	}
	return 0
}

// bgPriority is true if the background colours 1-3 draw over the sprite.
func (sp *sprite) bgPriority() bool {
	return sp.flags&spriteFlagPriority != 0
}

func (sp *sprite) yFlipped() bool {
	return sp.flags&spriteFlagYFlip != 0
}

func (sp *sprite) xFlipped() bool {
	return sp.flags&spriteFlagXFlip != 0
}

func (sp *sprite) cgbPalette() uint8 {
	return sp.flags & spriteFlagCGBPal
}

func (sp *sprite) bank() uint8 {
	return (sp.flags & spriteFlagBank) >> 3
}

func (sp *sprite) serialise(s *states.Writer) {
	s.WriteU8(sp.y)
	s.WriteU8(sp.x)
	s.WriteU8(sp.tile)
	s.WriteU8(sp.flags)
}

func (sp *sprite) deserialise(s *states.Reader) {
	sp.y = s.U8()
	sp.x = s.U8()
	sp.tile = s.U8()
	sp.flags = s.U8()
}

// selectedSprite is a sprite chosen during OAM scan, together with its OAM
// index. the index decides priority between overlapping sprites in CGB mode.
type selectedSprite struct {
	sprite sprite
	index  uint8
}

func (sp *selectedSprite) serialise(s *states.Writer) {
	sp.sprite.serialise(s)
	s.WriteU8(sp.index)
}

func (sp *selectedSprite) deserialise(s *states.Reader) {
	sp.sprite.deserialise(s)
	sp.index = s.U8()
}
