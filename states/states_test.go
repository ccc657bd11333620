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

package states_test

import (
	"bytes"
	"testing"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/states"
	"github.com/jetsetilly/gopherboy/test"
)

// mockMachine stands in for the console in container tests.
type mockMachine struct {
	counter uint32
	name    [8]byte
	running bool
}

func (m *mockMachine) Serialise(s *states.Writer) error {
	s.WriteU32(m.counter)
	s.WriteBytes(m.name[:])
	s.WriteBool(m.running)
	return s.Error()
}

func (m *mockMachine) Deserialise(s *states.Reader) error {
	m.counter = s.U32()
	s.Bytes(m.name[:])
	m.running = s.Bool()
	return s.Error()
}

var testHash = [32]byte{0x01, 0x02, 0x03}

func TestRoundTrip(t *testing.T) {
	src := &mockMachine{counter: 0xdeadbeef, running: true}
	copy(src.name[:], "gameboy!")

	b := &bytes.Buffer{}
	test.DemandSuccess(t, states.Save(b, testHash, src))

	dst := &mockMachine{}
	test.DemandSuccess(t, states.Load(bytes.NewReader(b.Bytes()), testHash, dst))

	test.ExpectEquality(t, *dst, *src)
}

func TestWrongCartridge(t *testing.T) {
	src := &mockMachine{counter: 100}
	b := &bytes.Buffer{}
	test.DemandSuccess(t, states.Save(b, testHash, src))

	dst := &mockMachine{counter: 55}
	otherHash := [32]byte{0xff}
	err := states.Load(bytes.NewReader(b.Bytes()), otherHash, dst)
	test.ExpectSuccess(t, curated.Is(err, states.WrongCartridge))

	// the machine is untouched
	test.ExpectEquality(t, dst.counter, 55)
}

func TestNotSaveState(t *testing.T) {
	dst := &mockMachine{}
	err := states.Load(bytes.NewReader([]byte("GIF89a...")), testHash, dst)
	test.ExpectSuccess(t, curated.Is(err, states.NotSaveState))
}

func TestTruncated(t *testing.T) {
	src := &mockMachine{counter: 0xcafe, running: true}
	b := &bytes.Buffer{}
	test.DemandSuccess(t, states.Save(b, testHash, src))

	// lop off the end of the compressed body
	data := b.Bytes()[:b.Len()-4]

	dst := &mockMachine{counter: 77, running: false}
	err := states.Load(bytes.NewReader(data), testHash, dst)
	test.ExpectSuccess(t, curated.Is(err, states.CorruptState))

	// the machine is left as it was before the load
	test.ExpectEquality(t, dst.counter, 77)
	test.ExpectEquality(t, dst.running, false)
}

func TestVersionOne(t *testing.T) {
	// version 1 files carry the body uncompressed. build one by hand
	src := &mockMachine{counter: 42, running: true}

	b := &bytes.Buffer{}
	b.Write([]byte{'G', 'B', 'S', 0xee})
	w := states.NewWriter(b)
	w.WriteU64(1)
	w.WriteBytes(testHash[:])
	test.DemandSuccess(t, src.Serialise(w))

	dst := &mockMachine{}
	test.DemandSuccess(t, states.Load(bytes.NewReader(b.Bytes()), testHash, dst))
	test.ExpectEquality(t, *dst, *src)
}

func TestFutureVersion(t *testing.T) {
	b := &bytes.Buffer{}
	b.Write([]byte{'G', 'B', 'S', 0xee})
	w := states.NewWriter(b)
	w.WriteU64(states.CurrentVersion + 1)
	w.WriteBytes(testHash[:])

	dst := &mockMachine{}
	err := states.Load(bytes.NewReader(b.Bytes()), testHash, dst)
	test.ExpectSuccess(t, curated.Is(err, states.WrongVersion))
}
