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

// Package hardware assembles the individual components into a Console. The
// Console is the only type external packages need in order to run a
// cartridge: it loads the cartridge, steps the machine and mediates save
// states and battery saves.
//
// There is no parallelism anywhere in the emulated machine. The CPU drives
// every other component synchronously through the bus tick, one machine
// cycle at a time, and determinism depends on that ordering.
package hardware

import (
	"io"
	"os"

	"github.com/jetsetilly/gopherboy/cartridgeloader"
	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware/clocks"
	"github.com/jetsetilly/gopherboy/hardware/cpu"
	"github.com/jetsetilly/gopherboy/hardware/family"
	"github.com/jetsetilly/gopherboy/hardware/joypad"
	"github.com/jetsetilly/gopherboy/hardware/memory"
	"github.com/jetsetilly/gopherboy/hardware/memory/cartridge"
	"github.com/jetsetilly/gopherboy/hardware/serial"
	"github.com/jetsetilly/gopherboy/logger"
	"github.com/jetsetilly/gopherboy/states"
)


// Console is an emulated handheld with a cartridge inserted.
type Console struct {
	Fam family.Family

	CPU *cpu.CPU
	Bus *memory.Bus

	loader cartridgeloader.Loader
}

type consoleOptions struct {
	fam     *family.Family
	bootROM []uint8
}

// Option modifies the construction of a Console.
type Option func(*consoleOptions)

// WithFamily forces the hardware family rather than letting the cartridge
// header decide.
func WithFamily(fam family.Family) Option {
	return func(o *consoleOptions) {
		o.fam = &fam
	}
}

// WithBootROM runs the supplied boot ROM image at power on instead of
// starting at the cartridge entry point with post-boot register values.
func WithBootROM(data []uint8) Option {
	return func(o *consoleOptions) {
		o.bootROM = data
	}
}

// NewConsole is the preferred method of initialisation for the Console
// type. The cartridge in the loader is decoded and inserted, and the
// machine is left at the power-on state ready for Step().
func NewConsole(ld cartridgeloader.Loader, opts ...Option) (*Console, error) {
	var o consoleOptions
	for _, opt := range opts {
		opt(&o)
	}

	cart, err := cartridge.NewCartridge(ld)
	if err != nil {
		return nil, err
	}

	fam := family.DMG
	if cart.IsCGB() {
		fam = family.CGB
	}
	if o.fam != nil {
		fam = *o.fam
	}

	con := &Console{
		Fam:    fam,
		CPU:    cpu.NewCPU(fam),
		loader: ld,
	}

	if o.bootROM != nil {
		con.Bus, err = memory.NewBusWithBootROM(cart, o.bootROM, fam)
		if err != nil {
			return nil, err
		}
	} else {
		con.Bus = memory.NewBus(cart, fam)
		con.CPU.SkipBootROM(cart.IsCGB())
	}

	if cart.HasBattery() {
		if data, err := os.ReadFile(ld.SaveFilename()); err == nil {
			if err := cart.BatteryLoad(data); err != nil {
				logger.Logf("console", "battery load: %v", err)
			}
		}
	}

	logger.Logf("console", "%s: %s (%s)", fam, cart.Title(), cart.MapperName())

	return con, nil
}

// Step executes one instruction, or one machine cycle of whatever is
// holding the CPU off the bus. It returns the number of machine cycles
// consumed and the CPU state.
func (con *Console) Step() (int, cpu.State) {
	before := con.Bus.ElapsedDots()
	state := con.CPU.Step(con.Bus)

	dotsPerCycle := uint64(clocks.TCyclesPerMachineCycle)
	if con.Bus.DoubleSpeed() {
		dotsPerCycle /= 2
	}

	return int((con.Bus.ElapsedDots() - before) / dotsPerCycle), state
}

// RunForFrame steps the machine until the PPU completes the current frame.
// When the LCD is off, or the machine is stopped, no frame ever completes;
// in that case the machine is run for one frame's worth of dots instead.
func (con *Console) RunForFrame() cpu.State {
	startFrame := con.Bus.PPU.FrameNum()
	startDots := con.Bus.ElapsedDots()

	state := cpu.StateNormal
	for con.Bus.PPU.FrameNum() == startFrame {
		_, state = con.Step()
		if con.Bus.ElapsedDots()-startDots >= clocks.DotsPerFrame {
			break
		}
	}
	return state
}

// Frame returns the most recently completed frame. 160x144 pixels, three
// bytes per pixel.
func (con *Console) Frame() []uint8 {
	return con.Bus.Frame()
}

// AudioSamples drains the audio buffer: interleaved stereo float32 pairs at
// 44.1kHz.
func (con *Console) AudioSamples() []float32 {
	return con.Bus.AudioSamples()
}

// Press a joypad button.
func (con *Console) Press(b joypad.Button) {
	con.Bus.JOY.Press(b)
}

// Release a joypad button.
func (con *Console) Release(b joypad.Button) {
	con.Bus.JOY.Release(b)
}

// AttachSerialDevice plugs a device into the link port. A nil device
// unplugs the cable.
func (con *Console) AttachSerialDevice(d serial.Device) {
	con.Bus.SER.Attach(d)
}

// SaveState writes the complete machine state to w.
func (con *Console) SaveState(w io.Writer) error {
	return states.Save(w, con.Bus.Cart.Hash, con)
}

// LoadState restores the complete machine state from r. On error the
// machine continues from the state it was in before the call.
func (con *Console) LoadState(r io.Reader) error {
	return states.Load(r, con.Bus.Cart.Hash, con)
}

// FlushBattery writes the battery backed cartridge RAM to the companion
// save file. A no-op for cartridges without a battery.
func (con *Console) FlushBattery() error {
	if !con.Bus.Cart.HasBattery() {
		return nil
	}

	f, err := os.Create(con.loader.SaveFilename())
	if err != nil {
		return curated.Errorf("console: battery save: %v", err)
	}
	defer f.Close()

	if _, err := f.Write(con.Bus.Cart.BatterySave()); err != nil {
		return curated.Errorf("console: battery save: %v", err)
	}

	return nil
}

// Serialise implements the states.Serialisable interface.
func (con *Console) Serialise(s *states.Writer) error {
	if err := con.CPU.Serialise(s); err != nil {
		return err
	}
	return con.Bus.Serialise(s)
}

// Deserialise implements the states.Serialisable interface.
func (con *Console) Deserialise(s *states.Reader) error {
	if err := con.CPU.Deserialise(s); err != nil {
		return err
	}
	return con.Bus.Deserialise(s)
}
