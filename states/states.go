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

// Package states implements the versioned save state container.
//
// A save state file is a fixed header followed by a compressed body:
//
//	4 bytes   magic
//	8 bytes   format version, little-endian
//	32 bytes  SHA-256 of the cartridge ROM the state belongs to
//	...       DEFLATE stream of the serialised machine
//
// The body is a flat walk over every component's Serialise() output. Version
// 1 files carry the body uncompressed; they are still accepted on load.
//
// Loading is transactional. The machine being loaded into is snapshotted
// first and restored if the incoming state turns out to be truncated or
// corrupt, so a failed Load never leaves a half-written machine behind.
package states

import (
	"bytes"
	"compress/flate"
	"io"

	"github.com/jetsetilly/gopherboy/curated"
)

// save state file magic number
var magic = [4]byte{'G', 'B', 'S', 0xee}

// CurrentVersion of the save state format. Version 2 introduced the
// compressed body.
const CurrentVersion = 2

// the oldest version that can still be loaded
const oldestVersion = 1

// Sentinel errors for the save state container.
const (
	// NotSaveState is returned when the magic number check fails.
	NotSaveState = "save state: not a save state file"

	// WrongVersion is returned for a version this build cannot load.
	WrongVersion = "save state: unsupported version: %d"

	// WrongCartridge is returned when the cartridge hash in the file does
	// not match the cartridge in the machine.
	WrongCartridge = "save state: state belongs to a different cartridge"

	// CorruptState is returned for a truncated or malformed body. The
	// machine is left as it was before the load.
	CorruptState = "save state: corrupt state: %v"
)

// Save writes the machine to w as a version 2 save state. The hash is the
// SHA-256 of the cartridge ROM the machine is running.
func Save(w io.Writer, hash [32]byte, m Serialisable) error {
	if _, err := w.Write(magic[:]); err != nil {
		return curated.Errorf("save state: %v", err)
	}

	hdr := NewWriter(w)
	hdr.WriteU64(CurrentVersion)
	hdr.WriteBytes(hash[:])
	if err := hdr.Error(); err != nil {
		return curated.Errorf("save state: %v", err)
	}

	// serialise the machine into memory before compressing. flate performs
	// poorly when fed the many small writes serialisation produces
	body := &bytes.Buffer{}
	if err := m.Serialise(NewWriter(body)); err != nil {
		return curated.Errorf("save state: %v", err)
	}

	fw, err := flate.NewWriter(w, flate.DefaultCompression)
	if err != nil {
		return curated.Errorf("save state: %v", err)
	}
	if _, err := fw.Write(body.Bytes()); err != nil {
		return curated.Errorf("save state: %v", err)
	}
	if err := fw.Close(); err != nil {
		return curated.Errorf("save state: %v", err)
	}

	return nil
}

// Load reads a save state from r into the machine. The hash is the SHA-256
// of the cartridge ROM the machine is currently running; a state saved from
// a different cartridge is refused.
//
// On any error the machine is left in the state it was in before the call.
func Load(r io.Reader, hash [32]byte, m Serialisable) error {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return curated.Errorf(NotSaveState)
	}
	if gotMagic != magic {
		return curated.Errorf(NotSaveState)
	}

	hdr := NewReader(r)
	version := hdr.U64()
	var gotHash [32]byte
	hdr.Bytes(gotHash[:])
	if err := hdr.Error(); err != nil {
		return curated.Errorf(CorruptState, err)
	}

	if version < oldestVersion || version > CurrentVersion {
		return curated.Errorf(WrongVersion, version)
	}

	if gotHash != hash {
		return curated.Errorf(WrongCartridge)
	}

	// read the entire body up front. a truncated file fails here rather
	// than halfway through deserialisation
	var bodyReader io.Reader
	if version == 1 {
		bodyReader = r
	} else {
		bodyReader = flate.NewReader(r)
	}
	body, err := io.ReadAll(bodyReader)
	if err != nil {
		return curated.Errorf(CorruptState, err)
	}

	// recovery snapshot of the running machine
	recovery := &bytes.Buffer{}
	if err := m.Serialise(NewWriter(recovery)); err != nil {
		return curated.Errorf("save state: %v", err)
	}

	buf := bytes.NewReader(body)
	if err := m.Deserialise(NewReader(buf)); err != nil {
		_ = m.Deserialise(NewReader(bytes.NewReader(recovery.Bytes())))
		return curated.Errorf(CorruptState, err)
	}

	// trailing data means the state was saved by a machine with a
	// different shape. treat as corrupt
	if buf.Len() != 0 {
		_ = m.Deserialise(NewReader(bytes.NewReader(recovery.Bytes())))
		return curated.Errorf(CorruptState, curated.Errorf("trailing data"))
	}

	return nil
}
