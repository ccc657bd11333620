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

// Package clocks defines the fixed clock values of the console.
package clocks

// Master is the T-cycle clock in Hz. Every other clock in the machine is a
// division of this value.
const Master = 4194304

// TCyclesPerMachineCycle. The CPU only ever observes the machine in units of
// machine cycles.
const TCyclesPerMachineCycle = 4

// Frame geometry in PPU dots. A dot is one T-cycle at normal speed.
const (
	DotsPerScanline   = 456
	ScanlinesPerFrame = 154
	VisibleScanlines  = 144
	VisiblePixels     = 160
)

// DotsPerFrame is the length of one complete frame, giving the familiar
// 59.73 frames per second refresh rate.
const DotsPerFrame = DotsPerScanline * ScanlinesPerFrame

// AudioSampleRate is the rate of the APU's resampled output stream.
const AudioSampleRate = 44100
