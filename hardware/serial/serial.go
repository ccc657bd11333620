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

// Package serial implements the serial transfer registers SB and SC.
//
// Only the internal clock is emulated. A transfer started with the external
// clock selected never completes unless a connected Device drives it, which
// is exactly what happens with a real console and an unplugged link cable.
package serial

import (
	"github.com/jetsetilly/gopherboy/hardware/family"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/states"
)

// Device is a peripheral on the other end of the link cable. On every serial
// clock the console shifts one bit out and one bit in.
type Device interface {
	// ExchangeBit receives the bit sent by the console and returns the bit
	// the device is sending back.
	ExchangeBit(bit bool) bool
}

const (
	scInTransfer  = 0x80
	scClockSpeed  = 0x02
	scClockSource = 0x01
)

// Serial implements the serial transfer hardware.
type Serial struct {
	irq    *interrupts.Interrupts
	family family.Family

	// the connected device. nil means an unplugged cable
	device Device

	control       uint8
	data          uint8
	bitsRemaining uint8
	internalTimer uint8
}

// NewSerial is the preferred method of initialisation for the Serial type.
func NewSerial(irq *interrupts.Interrupts, f family.Family) *Serial {
	return &Serial{
		irq:           irq,
		family:        f,
		internalTimer: 2,
	}
}

// SkipBootROM puts the internal timer into the state it has after boot ROM
// execution.
func (ser *Serial) SkipBootROM() {
	if ser.family == family.DMG {
		ser.internalTimer = 0xf3
	} else {
		ser.internalTimer = 0
	}
}

// Attach connects a device to the link cable. A nil device unplugs the
// cable.
func (ser *Serial) Attach(d Device) {
	ser.device = d
}

// ReadSB returns the transfer data register.
func (ser *Serial) ReadSB() uint8 {
	return ser.data
}

// WriteSB sets the transfer data register.
func (ser *Serial) WriteSB(data uint8) {
	ser.data = data
}

// ReadSC returns the transfer control register. Unused bits read as 1.
func (ser *Serial) ReadSC() uint8 {
	return 0x7e | ser.control
}

// WriteSC sets the transfer control register and starts a transfer if bit 7
// is set. The clock speed bit only exists on CGB.
func (ser *Serial) WriteSC(data uint8) {
	if ser.family == family.DMG {
		data &= scInTransfer | scClockSource
	}

	ser.control = data & (scInTransfer | scClockSpeed | scClockSource)

	if ser.control&scInTransfer != 0 {
		ser.bitsRemaining = 8
	}
}

// which bit of the internal timer triggers a serial clock. the clock happens
// on the falling edge
func (ser *Serial) clockBit() uint {
	if ser.control&scClockSpeed != 0 {
		return 1
	}
	return 6
}

// Step advances the serial clock by one machine cycle, shifting one bit when
// the internal clock divider produces a falling edge mid-transfer.
func (ser *Serial) Step() {
	oldBit := (ser.internalTimer>>ser.clockBit())&1 == 1
	ser.internalTimer++
	newBit := (ser.internalTimer>>ser.clockBit())&1 == 1

	if !(oldBit && !newBit) {
		return
	}

	if ser.bitsRemaining == 0 || ser.control&scClockSource == 0 {
		return
	}

	out := ser.data&0x80 != 0
	ser.data <<= 1

	// a disconnected cable reads 1
	in := true
	if ser.device != nil {
		in = ser.device.ExchangeBit(out)
	}
	if in {
		ser.data |= 1
	}

	ser.bitsRemaining--

	if ser.bitsRemaining == 0 {
		ser.control &= ^uint8(scInTransfer)
		ser.irq.Request(interrupts.Serial)
	}
}

// Serialise implements the states.Serialisable interface.
func (ser *Serial) Serialise(s *states.Writer) error {
	s.WriteU8(ser.control)
	s.WriteU8(ser.data)
	s.WriteU8(ser.bitsRemaining)
	s.WriteU8(ser.internalTimer)
	return s.Error()
}

// Deserialise implements the states.Serialisable interface.
func (ser *Serial) Deserialise(s *states.Reader) error {
	ser.control = s.U8()
	ser.data = s.U8()
	ser.bitsRemaining = s.U8()
	ser.internalTimer = s.U8()
	return s.Error()
}
