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

package cartridge

import (
	"github.com/jetsetilly/gopherboy/states"
)

// StepsPerSecond is the number of mapper steps in one wall-clock second. The
// bus must call Step() at this rate regardless of the CPU speed mode, which
// keeps the MBC3 real time clock honest across speed switches.
const StepsPerSecond = 4194304 / 2

// ramMapping is the result of asking a mapper to translate an external RAM
// access.
type ramMapping struct {
	// the access does not reach any storage. reads return 0xff, writes are
	// dropped
	unmapped bool

	// the access is satisfied by the mapper itself (MBC2 built-in RAM, MBC3
	// RTC registers). for reads, value holds the result; writes have
	// already been consumed
	direct bool
	value  uint8

	// otherwise the access lands at this offset in the cartridge RAM
	offset int
}

func unmapped() ramMapping {
	return ramMapping{unmapped: true}
}

func mapTo(offset int) ramMapping {
	return ramMapping{offset: offset}
}

func directValue(v uint8) ramMapping {
	return ramMapping{direct: true, value: v}
}

// mapper is the interface every bank controller implements. The mapper owns
// the banking registers; ROM and external RAM storage stay with the
// Cartridge type and the mapper only translates addresses.
//
// All bank indices are reduced modulo the actual bank count before use, so
// no translation ever produces an out of range offset.
type mapper interface {
	// String returns the mapper's conventional name
	String() string

	setup(romBanks int, ramSize int)

	// address translation for the two ROM windows. the addresses given are
	// the raw bus addresses (0x0000-0x3fff and 0x4000-0x7fff)
	romOffset0(addr uint16) int
	romOffsetX(addr uint16) int

	// external RAM window 0xa000-0xbfff. raw bus addresses again
	ramRead(addr uint16) ramMapping
	ramWrite(addr uint16, data uint8) ramMapping

	// writes to the ROM area program the banking registers
	registerWrite(addr uint16, data uint8)

	// advance any mapper-internal clock. called StepsPerSecond times per
	// wall-clock second
	step()

	// battery-backed data beyond the external RAM itself (the MBC3 RTC
	// shadow). batterySize() is fixed per mapper type
	batterySize() int
	saveBattery() []uint8
	loadBattery(data []uint8)

	serialise(s *states.Writer)
	deserialise(s *states.Reader)
}
