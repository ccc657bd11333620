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

// Package cartridge decodes the cartridge header and implements the bank
// controller family. The Cartridge type owns the ROM image and any external
// RAM; the controller (mapper) only ever translates addresses.
package cartridge

import (
	"strings"

	"github.com/jetsetilly/gopherboy/cartridgeloader"
	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/logger"
	"github.com/jetsetilly/gopherboy/states"
)

// Sentinel errors for the cartridge package.
const (
	// InvalidLogo is returned when the boot logo area of the header does
	// not contain the expected bitmap.
	InvalidLogo = "cartridge: invalid logo data in header"

	// InvalidChecksum is returned when the header checksum fails.
	InvalidChecksum = "cartridge: invalid header checksum: %#02x (expected %#02x)"

	// UnsupportedMapper is returned for cartridge type bytes this emulation
	// does not implement.
	UnsupportedMapper = "cartridge: unsupported cartridge type: %#02x"

	// InvalidROMSize is returned when the ROM size code is out of range or
	// disagrees with the length of the file.
	InvalidROMSize = "cartridge: invalid ROM size: %v"

	// InvalidRAMSize is returned when the RAM size code is out of range.
	InvalidRAMSize = "cartridge: invalid RAM size code: %#02x"
)

// the bitmap every licensed cartridge carries at 0x104. the boot ROM refuses
// to start a cartridge without it, so it doubles as a quick sanity check
// that the file really is a cartridge dump
var logoData = [48]uint8{
	0xce, 0xed, 0x66, 0x66, 0xcc, 0x0d, 0x00, 0x0b, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0c, 0x00, 0x0d,
	0x00, 0x08, 0x11, 0x1f, 0x88, 0x89, 0x00, 0x0e, 0xdc, 0xcc, 0x6e, 0xe6, 0xdd, 0xdd, 0xd9, 0x99,
	0xbb, 0xbb, 0x67, 0x63, 0x6e, 0x0e, 0xec, 0xcc, 0xdd, 0xdc, 0x99, 0x9f, 0xbb, 0xb9, 0x33, 0x3e,
}

// cartType is the decoded form of the cartridge type byte at 0x147.
type cartType struct {
	mapper  uint8 // one of the mapperKind values
	ram     bool
	battery bool
	timer   bool
	rumble  bool
}

const (
	mapperROM = iota
	mapperMBC1
	mapperMBC2
	mapperMBC3
	mapperMBC5
)

// decode of the cartridge type byte. absent entries are cartridge types the
// emulation does not support (MMM01, MBC6, MBC7, camera, etc)
var cartTypes = map[uint8]cartType{
	0x00: {mapper: mapperROM},
	0x01: {mapper: mapperMBC1},
	0x02: {mapper: mapperMBC1, ram: true},
	0x03: {mapper: mapperMBC1, ram: true, battery: true},
	0x05: {mapper: mapperMBC2},
	0x06: {mapper: mapperMBC2, battery: true},
	0x08: {mapper: mapperROM, ram: true},
	0x09: {mapper: mapperROM, ram: true, battery: true},
	0x0f: {mapper: mapperMBC3, battery: true, timer: true},
	0x10: {mapper: mapperMBC3, ram: true, battery: true, timer: true},
	0x11: {mapper: mapperMBC3},
	0x12: {mapper: mapperMBC3, ram: true},
	0x13: {mapper: mapperMBC3, ram: true, battery: true},
	0x19: {mapper: mapperMBC5},
	0x1a: {mapper: mapperMBC5, ram: true},
	0x1b: {mapper: mapperMBC5, ram: true, battery: true},
	0x1c: {mapper: mapperMBC5, rumble: true},
	0x1d: {mapper: mapperMBC5, ram: true, rumble: true},
	0x1e: {mapper: mapperMBC5, ram: true, battery: true, rumble: true},
}

// ram sizes by the size code at 0x149
var ramSizes = [6]int{0, 0x800, 0x2000, 0x8000, 0x20000, 0x10000}

// Cartridge is the emulated cartridge, the decoded header and the bank
// controller behind it.
type Cartridge struct {
	Filename string
	Hash     [32]byte

	title    string
	typ      cartType
	typeByte uint8
	cgb      bool

	mapper mapper

	rom []uint8
	ram []uint8
}

// NewCartridge decodes the header in the loader's data and builds the
// appropriate bank controller.
func NewCartridge(ld cartridgeloader.Loader) (*Cartridge, error) {
	if err := ld.Load(); err != nil {
		return nil, curated.Errorf("cartridge: %v", err)
	}

	data := ld.Data

	// pad undersized or raggedly sized images up to a whole number of
	// banks. some dumps in the wild need this
	if len(data) < 0x8000 || len(data)%0x4000 != 0 {
		logger.Logf("cartridge", "padding invalid ROM size %#x", len(data))
		pad := 0x8000 - len(data)
		if pad < 0 {
			pad = 0x4000 - (len(data) % 0x4000)
		}
		data = append(data, make([]uint8, pad)...)
	}

	if [48]uint8(data[0x104:0x134]) != logoData {
		return nil, curated.Errorf(InvalidLogo)
	}

	var checksum uint8
	for _, b := range data[0x134:0x14d] {
		checksum = checksum - b - 1
	}
	if checksum != data[0x14d] {
		return nil, curated.Errorf(InvalidChecksum, checksum, data[0x14d])
	}

	cart := &Cartridge{
		Filename: ld.Filename,
		Hash:     ld.Hash,
		typeByte: data[0x147],
		cgb:      data[0x143]&0x80 == 0x80,
		rom:      data,
	}

	title := data[0x134:0x143]
	if i := strings.IndexByte(string(title), 0); i != -1 {
		title = title[:i]
	}
	cart.title = strings.TrimRight(string(title), " ")

	typ, ok := cartTypes[cart.typeByte]
	if !ok {
		return nil, curated.Errorf(UnsupportedMapper, cart.typeByte)
	}
	cart.typ = typ

	romSizeCode := data[0x148]
	if romSizeCode > 8 {
		return nil, curated.Errorf(InvalidROMSize, curated.Errorf("bad size code %#02x", romSizeCode))
	}
	romSize := 0x8000 << romSizeCode
	if romSize != len(data) {
		return nil, curated.Errorf(InvalidROMSize,
			curated.Errorf("header says %#x, file is %#x", romSize, len(data)))
	}

	ramSizeCode := data[0x149]
	if int(ramSizeCode) >= len(ramSizes) {
		return nil, curated.Errorf(InvalidRAMSize, ramSizeCode)
	}
	ramSize := ramSizes[ramSizeCode]
	cart.ram = make([]uint8, ramSize)

	switch typ.mapper {
	case mapperROM:
		cart.mapper = newROMOnly()
	case mapperMBC1:
		cart.mapper = newMBC1(isMBC1Multicart(data))
	case mapperMBC2:
		cart.mapper = newMBC2()
	case mapperMBC3:
		cart.mapper = newMBC3(typ.timer)
	case mapperMBC5:
		cart.mapper = newMBC5(typ.rumble)
	}

	cart.mapper.setup(romSize/0x4000, ramSize)

	logger.Logf("cartridge", "%s: %s, %dk ROM, %dk RAM", cart.title, cart.mapper, romSize/1024, ramSize/1024)

	return cart, nil
}

// isMBC1Multicart detects the multicart wiring variant by fingerprint: a
// 1MiB image with the header logo repeated at every 256k boundary.
func isMBC1Multicart(data []uint8) bool {
	if len(data) != 0x100000 {
		return false
	}

	for i := 0; i < 4; i++ {
		start := i << 18
		if [48]uint8(data[start+0x104:start+0x134]) != logoData {
			return false
		}
	}
	return true
}

// Title is the game title from the cartridge header.
func (cart *Cartridge) Title() string {
	return cart.title
}

// IsCGB returns true if the cartridge declares color hardware support.
func (cart *Cartridge) IsCGB() bool {
	return cart.cgb
}

// HasBattery returns true if external RAM or the RTC persist across power
// off.
func (cart *Cartridge) HasBattery() bool {
	return cart.typ.battery
}

// MapperName returns the conventional name for the bank controller.
func (cart *Cartridge) MapperName() string {
	return cart.mapper.String()
}

// NumROMBanks returns the number of 16k ROM banks.
func (cart *Cartridge) NumROMBanks() int {
	return len(cart.rom) / 0x4000
}

// Read from the ROM area 0x0000-0x7fff.
func (cart *Cartridge) Read(addr uint16) uint8 {
	if addr < 0x4000 {
		return cart.rom[cart.mapper.romOffset0(addr)]
	}
	return cart.rom[cart.mapper.romOffsetX(addr)]
}

// WriteRegister programs the bank controller. Writes to the ROM area never
// reach storage.
func (cart *Cartridge) WriteRegister(addr uint16, data uint8) {
	cart.mapper.registerWrite(addr, data)
}

// ReadRAM reads from the external RAM window 0xa000-0xbfff.
func (cart *Cartridge) ReadRAM(addr uint16) uint8 {
	m := cart.mapper.ramRead(addr)
	switch {
	case m.unmapped:
		return 0xff
	case m.direct:
		return m.value
	}
	return cart.ram[m.offset]
}

// WriteRAM writes to the external RAM window 0xa000-0xbfff.
func (cart *Cartridge) WriteRAM(addr uint16, data uint8) {
	m := cart.mapper.ramWrite(addr, data)
	if m.unmapped || m.direct {
		return
	}
	cart.ram[m.offset] = data
}

// Step advances the bank controller's internal clock. Must be called
// StepsPerSecond times per wall-clock second.
func (cart *Cartridge) Step() {
	cart.mapper.step()
}

// BatterySave returns the contents of the battery backed storage: the
// external RAM followed by any mapper extra (the RTC shadow). Returns nil if
// the cartridge has no battery.
func (cart *Cartridge) BatterySave() []uint8 {
	if !cart.typ.battery {
		return nil
	}

	b := make([]uint8, 0, len(cart.ram)+cart.mapper.batterySize())
	b = append(b, cart.ram...)
	b = append(b, cart.mapper.saveBattery()...)
	return b
}

// BatteryLoad restores battery backed storage saved by BatterySave(). A
// payload that is too short for the RAM size is rejected; a missing mapper
// extra is tolerated for compatibility with save files written by other
// emulators.
func (cart *Cartridge) BatteryLoad(data []uint8) error {
	if !cart.typ.battery {
		return nil
	}

	if len(data) < len(cart.ram) {
		return curated.Errorf("cartridge: save file too small: %d bytes", len(data))
	}

	copy(cart.ram, data[:len(cart.ram)])

	extra := data[len(cart.ram):]
	if len(extra) >= cart.mapper.batterySize() {
		cart.mapper.loadBattery(extra)
	} else if cart.mapper.batterySize() > 0 {
		logger.Log("cartridge", "save file has no clock data")
	}

	return nil
}

// Serialise implements the states.Serialisable interface. The ROM itself is
// not serialised; the save state container records the cartridge hash
// instead.
func (cart *Cartridge) Serialise(s *states.Writer) error {
	cart.mapper.serialise(s)
	s.WriteBytes(cart.ram)
	return s.Error()
}

// Deserialise implements the states.Serialisable interface.
func (cart *Cartridge) Deserialise(s *states.Reader) error {
	cart.mapper.deserialise(s)
	s.Bytes(cart.ram)
	return s.Error()
}
