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

package hardware_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/jetsetilly/gopherboy/cartridgeloader"
	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware"
	"github.com/jetsetilly/gopherboy/states"
	"github.com/jetsetilly/gopherboy/test"
)

var nintendoLogo = [48]uint8{
	0xce, 0xed, 0x66, 0x66, 0xcc, 0x0d, 0x00, 0x0b, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0c, 0x00, 0x0d,
	0x00, 0x08, 0x11, 0x1f, 0x88, 0x89, 0x00, 0x0e, 0xdc, 0xcc, 0x6e, 0xe6, 0xdd, 0xdd, 0xd9, 0x99,
	0xbb, 0xbb, 0x67, 0x63, 0x6e, 0x0e, 0xec, 0xcc, 0xdd, 0xdc, 0x99, 0x9f, 0xbb, 0xb9, 0x33, 0x3e,
}

func buildROM(title string, typeByte uint8, ramCode uint8) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x104:], nintendoLogo[:])
	copy(rom[0x134:], title)
	rom[0x147] = typeByte
	rom[0x149] = ramCode

	var checksum uint8
	for _, b := range rom[0x134:0x14d] {
		checksum = checksum - b - 1
	}
	rom[0x14d] = checksum

	return rom
}

func newTestConsole(t *testing.T, rom []byte) *hardware.Console {
	t.Helper()
	ld := cartridgeloader.NewLoaderFromData("test.gb", rom)
	con, err := hardware.NewConsole(ld)
	test.DemandSuccess(t, err)
	return con
}

func TestRunForFrame(t *testing.T) {
	con := newTestConsole(t, buildROM("FRAMES", 0x00, 0x00))

	test.ExpectEquality(t, con.Bus.PPU.FrameNum(), 0)
	con.RunForFrame()
	test.ExpectEquality(t, con.Bus.PPU.FrameNum(), 1)
	con.RunForFrame()
	test.ExpectEquality(t, con.Bus.PPU.FrameNum(), 2)
}

func TestSaveStateRoundTrip(t *testing.T) {
	rom := buildROM("STATE", 0x00, 0x00)

	con := newTestConsole(t, rom)
	con.RunForFrame()
	con.RunForFrame()

	b := &bytes.Buffer{}
	test.DemandSuccess(t, con.SaveState(b))

	// the original continues for two frames
	con.RunForFrame()
	con.RunForFrame()
	want := append([]uint8(nil), con.Frame()...)

	// a fresh machine restored from the state must produce the identical
	// frames
	other := newTestConsole(t, rom)
	test.DemandSuccess(t, other.LoadState(bytes.NewReader(b.Bytes())))
	other.RunForFrame()
	other.RunForFrame()

	test.ExpectSuccess(t, bytes.Equal(want, other.Frame()))
	test.ExpectEquality(t, other.Bus.PPU.FrameNum(), con.Bus.PPU.FrameNum())
	test.ExpectEquality(t, other.CPU.Regs.PC, con.CPU.Regs.PC)
}

func TestSaveStateWrongCartridge(t *testing.T) {
	con := newTestConsole(t, buildROM("STATE", 0x00, 0x00))
	b := &bytes.Buffer{}
	test.DemandSuccess(t, con.SaveState(b))

	other := newTestConsole(t, buildROM("OTHER", 0x00, 0x00))
	err := other.LoadState(bytes.NewReader(b.Bytes()))
	test.ExpectSuccess(t, curated.Is(err, states.WrongCartridge))
}

func TestBatteryPersistence(t *testing.T) {
	rom := buildROM("BATTERY", 0x03, 0x02)
	filename := filepath.Join(t.TempDir(), "battery.gb")

	ld := cartridgeloader.NewLoaderFromData(filename, rom)
	con, err := hardware.NewConsole(ld)
	test.DemandSuccess(t, err)

	con.Bus.Cart.WriteRegister(0x0000, 0x0a)
	con.Bus.Cart.WriteRAM(0xa000, 0x5a)
	test.DemandSuccess(t, con.FlushBattery())

	// a new console with the same loader picks the save file up
	other, err := hardware.NewConsole(cartridgeloader.NewLoaderFromData(filename, rom))
	test.DemandSuccess(t, err)

	other.Bus.Cart.WriteRegister(0x0000, 0x0a)
	test.ExpectEquality(t, other.Bus.Cart.ReadRAM(0xa000), uint8(0x5a))
}
