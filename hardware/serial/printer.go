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

package serial

// printer status bits
const (
	printerPacketErr    = 0x10
	printerReadyToPrint = 0x08
	printerPrinting     = 0x02
	printerChecksumErr  = 0x01
)

// packet parser states
type printerPacketState int

const (
	packetMagic1 printerPacketState = iota
	packetMagic2
	packetCommand
	packetCompression
	packetLengthLow
	packetLengthHigh
	packetData
	packetChecksumLow
	packetChecksumHigh
	packetAlive
	packetStatus
)

type printerPacket struct {
	command     uint8
	compression uint8
	dataLength  uint16
	data        []uint8
	checksum    uint16
}

func (p *printerPacket) clear() {
	*p = printerPacket{}
}

func (p *printerPacket) computeChecksum() uint16 {
	sum := uint16(p.command)
	sum += uint16(p.compression)
	sum += p.dataLength & 0xff
	sum += p.dataLength >> 8
	for _, b := range p.data {
		sum += uint16(b)
	}
	return sum
}

// Printer emulates the thermal printer peripheral. It implements the Device
// interface and accumulates printed rows into an ever-growing grayscale
// image, simulating the roll of paper.
//
// The console talks to the printer in packets:
//
//	0x88 0x33 | command | compression | length16 | data | checksum16
//
// followed by two response bytes from the printer (alive indicator, status).
type Printer struct {
	ram        [0x2000]uint8
	ramPointer int

	packet          printerPacket
	state           printerPacketState
	remainingLength uint16

	byteToSend     uint8
	receivedByte   uint8
	receivedBitCt  uint8
	status         uint8
	readyToPrint   bool
	printingDelay  uint8

	// RGB image data, 160 pixels wide, growing downwards
	image       []uint8
	imageHeight int
}

// NewPrinter is the preferred method of initialisation for the Printer type.
func NewPrinter() *Printer {
	return &Printer{}
}

// Image returns the accumulated paper as RGB data along with its dimensions.
func (prt *Printer) Image() ([]uint8, int, int) {
	if prt.imageHeight == 0 {
		return nil, 0, 0
	}
	return prt.image, 160, prt.imageHeight
}

// ClearImage tears the paper off.
func (prt *Printer) ClearImage() {
	prt.image = prt.image[:0]
	prt.imageHeight = 0
}

// ExchangeBit implements the Device interface.
func (prt *Printer) ExchangeBit(bit bool) bool {
	prt.receivedBitCt++

	if prt.receivedBitCt == 9 {
		prt.handleByte(prt.receivedByte)
		prt.receivedByte = 0
		prt.receivedBitCt = 1
	}

	prt.receivedByte <<= 1
	if bit {
		prt.receivedByte |= 1
	}

	out := prt.byteToSend&0x80 != 0
	prt.byteToSend <<= 1

	return out
}

func (prt *Printer) handleByte(b uint8) {
	switch prt.state {
	case packetMagic1:
		if b == 0x88 {
			prt.state = packetMagic2
			prt.packet.clear()
		}
	case packetMagic2:
		if b == 0x33 {
			prt.state = packetCommand
		} else {
			prt.state = packetMagic1
		}
	case packetCommand:
		prt.packet.command = b
		prt.state = packetCompression
	case packetCompression:
		prt.packet.compression = b
		prt.state = packetLengthLow
	case packetLengthLow:
		prt.packet.dataLength = uint16(b)
		prt.state = packetLengthHigh
	case packetLengthHigh:
		prt.packet.dataLength |= uint16(b) << 8
		prt.remainingLength = prt.packet.dataLength
		if prt.remainingLength != 0 {
			prt.state = packetData
		} else {
			prt.state = packetChecksumLow
		}
	case packetData:
		prt.packet.data = append(prt.packet.data, b)
		prt.remainingLength--
		if prt.remainingLength == 0 {
			prt.state = packetChecksumLow
		}
	case packetChecksumLow:
		prt.packet.checksum = uint16(b)
		prt.state = packetChecksumHigh
	case packetChecksumHigh:
		prt.packet.checksum |= uint16(b) << 8
		prt.state = packetAlive

		// alive indicator
		prt.byteToSend = 0x81
	case packetAlive:
		prt.state = packetStatus
		prt.byteToSend = prt.status
		prt.processPacket()
	case packetStatus:
		prt.state = packetMagic1
	}
}

func (prt *Printer) processPacket() {
	if prt.packet.checksum != prt.packet.computeChecksum() {
		prt.status |= printerChecksumErr
		return
	}

	switch prt.packet.command {
	case 1: // initialise
		prt.ram = [0x2000]uint8{}
		prt.ramPointer = 0
		prt.status = 0
		prt.readyToPrint = false
	case 2: // print
		if prt.readyToPrint {
			if prt.packet.dataLength != 4 {
				prt.status |= printerPacketErr
			} else {
				prt.status |= printerPrinting
				prt.status &= ^uint8(printerReadyToPrint)
				prt.printingDelay = 20

				sheets := prt.packet.data[0]
				margins := prt.packet.data[1]
				palette := prt.packet.data[2]
				exposure := prt.packet.data[3]

				prt.print(sheets, margins, palette, exposure, prt.ramPointer)
			}
			prt.readyToPrint = false
		}
	case 4: // data
		if prt.packet.dataLength == 0 {
			// an empty data packet arms the print command
			prt.readyToPrint = true
		} else {
			start := prt.ramPointer
			end := start + int(prt.packet.dataLength)
			if end > len(prt.ram) {
				prt.status |= printerPacketErr
				return
			}
			prt.ramPointer = end
			copy(prt.ram[start:end], prt.packet.data)
		}
		prt.status |= printerReadyToPrint
	case 0xf: // status poll
		if prt.status&printerPrinting != 0 {
			if prt.printingDelay > 0 {
				prt.printingDelay--
			}
			if prt.printingDelay == 0 {
				prt.status &= ^uint8(printerPrinting)
			}
		}
	default:
		prt.status |= printerPacketErr
	}
}

// print decodes the printer RAM as rows of normal 8x8 tiles. every 16*20
// bytes form one 160x8 pixel row of the output.
func (prt *Printer) print(sheets, margins, palette, exposure uint8, dataLen int) {
	// sheet count of zero is a line feed
	if sheets == 0 {
		prt.lineFeed()
		return
	}

	marginBefore := margins >> 4
	marginAfter := margins & 0xf

	exposureMul := exposureMultiply(exposure)

	for i := uint8(0); i < marginBefore; i++ {
		prt.lineFeed()
	}

	rows := dataLen / 40
	prt.imageHeight += rows

	for y := 0; y < rows; y++ {
		for x := 0; x < 20; x++ {
			tile := (y/8)*20 + x
			ramIndex := tile*16 + (y%8)*2

			low := prt.ram[ramIndex]
			high := prt.ram[ramIndex+1]

			for i := 7; i >= 0; i-- {
				pixel := ((high>>i)&1)<<1 | ((low >> i) & 1)
				color := (palette >> (pixel * 2)) & 0b11

				// inverted gray shade so that exposure only affects black
				inverted := float64(85*color) * exposureMul
				if inverted > 255 {
					inverted = 255
				} else if inverted < 0 {
					inverted = 0
				}
				gray := 255 - uint8(inverted)

				prt.image = append(prt.image, gray, gray, gray)
			}
		}
	}

	for i := uint8(0); i < marginAfter; i++ {
		prt.lineFeed()
	}

	if sheets > 1 {
		prt.print(sheets-1, margins, palette, exposure, dataLen)
	}
}

// lineFeed prints one row of blank paper.
func (prt *Printer) lineFeed() {
	prt.imageHeight++
	for i := 0; i < 160; i++ {
		prt.image = append(prt.image, 255, 255, 255)
	}
}

// exposureMultiply maps the 7 bit exposure value to the range 0.75 to 1.25.
func exposureMultiply(exposure uint8) float64 {
	return (100.0 + (float64(exposure&0x7f)/0x7f)*50.0 - 25.0) / 100.0
}
