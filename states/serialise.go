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

package states

import (
	"encoding/binary"
	"io"
)

// Serialisable is implemented by every component that contributes to a save
// state. Implementations write and read their fields in the same fixed
// order; there is no field tagging in the stream.
type Serialisable interface {
	Serialise(*Writer) error
	Deserialise(*Reader) error
}

// Writer serialises values to an io.Writer in little-endian order. Errors
// are sticky: after the first failure every subsequent call is a no-op and
// Error() returns the original failure.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter is the preferred method of initialisation for the Writer type.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Error returns the first error encountered by the writer.
func (s *Writer) Error() error {
	return s.err
}

func (s *Writer) write(b []byte) {
	if s.err != nil {
		return
	}
	_, s.err = s.w.Write(b)
}

func (s *Writer) WriteU8(v uint8) {
	s.write([]byte{v})
}

func (s *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	s.write(b[:])
}

func (s *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	s.write(b[:])
}

func (s *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	s.write(b[:])
}

// WriteInt writes an int as a uint64.
func (s *Writer) WriteInt(v int) {
	s.WriteU64(uint64(v))
}

func (s *Writer) WriteBool(v bool) {
	if v {
		s.WriteU8(1)
	} else {
		s.WriteU8(0)
	}
}

// WriteBytes writes the raw bytes with no length prefix. The reader is
// expected to know the length.
func (s *Writer) WriteBytes(b []byte) {
	s.write(b)
}

// Reader deserialises values from an io.Reader in little-endian order. Like
// the Writer, errors are sticky. A failed read returns the zero value.
type Reader struct {
	r   io.Reader
	err error
}

// NewReader is the preferred method of initialisation for the Reader type.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Error returns the first error encountered by the reader.
func (s *Reader) Error() error {
	return s.err
}

func (s *Reader) read(b []byte) {
	if s.err != nil {
		return
	}
	_, s.err = io.ReadFull(s.r, b)
}

func (s *Reader) U8() uint8 {
	var b [1]byte
	s.read(b[:])
	return b[0]
}

func (s *Reader) U16() uint16 {
	var b [2]byte
	s.read(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (s *Reader) U32() uint32 {
	var b [4]byte
	s.read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (s *Reader) U64() uint64 {
	var b [8]byte
	s.read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// Int reads a uint64 and returns it as an int.
func (s *Reader) Int() int {
	return int(s.U64())
}

func (s *Reader) Bool() bool {
	return s.U8() != 0
}

// Bytes fills b with raw bytes from the stream.
func (s *Reader) Bytes(b []byte) {
	s.read(b)
}
