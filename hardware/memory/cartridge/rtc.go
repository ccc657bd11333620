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
	"time"

	"github.com/jetsetilly/gopherboy/states"
)

// rtcCounters is one snapshot of the real time clock registers.
type rtcCounters struct {
	seconds uint8
	minutes uint8
	hours   uint8
	days    uint16 // 9 bits
	halt    bool
	carry   bool
}

// rtc is the real time clock on the MBC3 die. The live counters advance with
// emulated time; reads always go through a latched snapshot so software can
// read a multi-byte time without it ticking underneath.
type rtc struct {
	live    rtcCounters
	latched rtcCounters

	// fraction of the current second, in mapper steps
	subSecond uint32

	// wall-clock bookkeeping. the live counters are only brought up to date
	// lazily, by adding the seconds elapsed since they were last updated
	currentTime     uint64
	lastUpdatedTime uint64
}

func newRTC() *rtc {
	now := uint64(time.Now().Unix())
	return &rtc{
		currentTime:     now,
		lastUpdatedTime: now,
	}
}

// step advances emulated wall-clock time. called StepsPerSecond times per
// second.
func (r *rtc) step() {
	if r.live.halt {
		return
	}

	r.subSecond++
	if r.subSecond == StepsPerSecond {
		r.subSecond = 0
		r.currentTime++
	}
}

// latch copies the live counters into the latch registers.
func (r *rtc) latch() {
	r.update()
	r.latched = r.live
}

// readRegister returns one of the latched registers. index 0 to 4.
func (r *rtc) readRegister(index uint8) uint8 {
	switch index {
	case 0:
		return r.latched.seconds
	case 1:
		return r.latched.minutes
	case 2:
		return r.latched.hours
	case 3:
		return uint8(r.latched.days)
	case 4:
		return (b2u(r.latched.carry) << 7) |
			(b2u(r.latched.halt) << 6) |
			uint8((r.latched.days>>8)&1)
	}
	return 0xff
}

// writeRegister sets one of the live counters. index 0 to 4.
func (r *rtc) writeRegister(index uint8, data uint8) {
	r.update()

	oldHalt := r.live.halt

	switch index {
	case 0:
		r.live.seconds = data & 0x3f
		r.subSecond = 0
	case 1:
		r.live.minutes = data & 0x3f
	case 2:
		r.live.hours = data & 0x1f
	case 3:
		r.live.days = (r.live.days & 0x100) | uint16(data)
	case 4:
		r.live.days = (r.live.days & 0xff) | (uint16(data&1) << 8)
		r.live.halt = (data>>6)&1 == 1
		r.live.carry = (data>>7)&1 == 1
	}

	// restarting a halted clock restarts the elapsed-time bookkeeping
	if oldHalt && !r.live.halt {
		r.lastUpdatedTime = r.currentTime
	}
}

// update brings the live counters up to date with the elapsed wall-clock
// time.
func (r *rtc) update() {
	if r.live.halt {
		return
	}

	if r.currentTime < r.lastUpdatedTime {
		// time has gone backwards. restart the bookkeeping
		r.lastUpdatedTime = r.currentTime
		return
	}

	diff := r.currentTime - r.lastUpdatedTime
	if diff == 0 {
		return
	}

	r.advance(uint8(diff%60), uint8((diff/60)%60), uint8((diff/3600)%24), diff/86400)
	r.lastUpdatedTime = r.currentTime
}

// advance adds elapsed time to the live counters, with the same odd overflow
// behaviour as the real hardware: out of range register values wrap through
// the register mask, not through their natural modulus.
func (r *rtc) advance(seconds, minutes, hours uint8, days uint64) {
	r.live.seconds = (r.live.seconds + seconds) & 0x3f
	if r.live.seconds == 60 {
		minutes++
		r.live.seconds = 0
	}

	r.live.minutes = (r.live.minutes + minutes) & 0x3f
	if r.live.minutes == 60 {
		hours++
		r.live.minutes = 0
	}

	r.live.hours = (r.live.hours + hours) & 0x1f
	if r.live.hours == 24 {
		days++
		r.live.hours = 0
	}

	d := uint64(r.live.days) + days
	r.live.carry = r.live.carry || d > 0x1ff
	r.live.days = uint16(d & 0x1ff)
}

// battery payload: seconds, minutes, hours (1 byte each), days (2 bytes),
// last update timestamp (8 bytes). all little-endian
const rtcBatterySize = 3 + 2 + 8

func (r *rtc) saveBattery() []uint8 {
	b := make([]uint8, 0, rtcBatterySize)
	b = append(b, r.live.seconds, r.live.minutes, r.live.hours)
	b = append(b, uint8(r.live.days), uint8(r.live.days>>8))
	t := r.lastUpdatedTime
	for i := 0; i < 8; i++ {
		b = append(b, uint8(t>>(i*8)))
	}
	return b
}

func (r *rtc) loadBattery(data []uint8) {
	if len(data) < rtcBatterySize {
		return
	}

	r.live.seconds = data[0]
	r.live.minutes = data[1]
	r.live.hours = data[2]
	r.live.days = uint16(data[3]) | (uint16(data[4]) << 8)

	var t uint64
	for i := 0; i < 8; i++ {
		t |= uint64(data[5+i]) << (i * 8)
	}
	r.lastUpdatedTime = t
	r.currentTime = t
}

func (r *rtcCounters) serialise(s *states.Writer) {
	s.WriteU8(r.seconds)
	s.WriteU8(r.minutes)
	s.WriteU8(r.hours)
	s.WriteU16(r.days)
	s.WriteBool(r.halt)
	s.WriteBool(r.carry)
}

func (r *rtcCounters) deserialise(s *states.Reader) {
	r.seconds = s.U8()
	r.minutes = s.U8()
	r.hours = s.U8()
	r.days = s.U16()
	r.halt = s.Bool()
	r.carry = s.Bool()
}

func (r *rtc) serialise(s *states.Writer) {
	r.live.serialise(s)
	r.latched.serialise(s)
	s.WriteU32(r.subSecond)
	s.WriteU64(r.currentTime)
	s.WriteU64(r.lastUpdatedTime)
}

func (r *rtc) deserialise(s *states.Reader) {
	r.live.deserialise(s)
	r.latched.deserialise(s)
	r.subSecond = s.U32()
	r.currentTime = s.U64()
	r.lastUpdatedTime = s.U64()
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
