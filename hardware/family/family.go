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

// Package family identifies which hardware family is being emulated. The two
// families share the instruction set and most of the register map but differ
// in power-on state, speed switching, video hardware and several timing
// quirks.
package family

// Family of console hardware.
type Family int

// List of valid Family values.
const (
	// the original monochrome handheld
	DMG Family = iota

	// the color handheld. a CGB can run DMG software in a compatibility
	// mode, which is decided by the cartridge header
	CGB
)

func (f Family) String() string {
	switch f {
	case DMG:
		return "DMG"
	case CGB:
		return "CGB"
	}
	return "unknown"
}
