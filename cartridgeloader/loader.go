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

// Package cartridgeloader is responsible for getting cartridge data into the
// emulator. It knows about filenames and file extensions; the cartridge
// package itself only ever sees a byte slice.
package cartridgeloader

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"github.com/jetsetilly/gopherboy/curated"
)

// Sentinel errors for the cartridgeloader package.
const (
	// UnrecognisedExtension is returned for files that are not named like
	// cartridge dumps.
	UnrecognisedExtension = "cartridgeloader: unrecognised file extension: %s"
)

// Loader is used to specify the cartridge to load and to retrieve the data
// from the source.
type Loader struct {
	Filename string

	// cartridge data. empty until Load() has been called, unless the Loader
	// was created with NewLoaderFromData()
	Data []byte

	// SHA256 of the cartridge data. valid once Data is
	Hash [32]byte
}

// NewLoader is the preferred method of initialisation for the Loader type
// when the cartridge is in a file.
func NewLoader(filename string) (Loader, error) {
	ext := strings.ToLower(filename)
	if !strings.HasSuffix(ext, ".gb") && !strings.HasSuffix(ext, ".gbc") {
		return Loader{}, curated.Errorf(UnrecognisedExtension, filename)
	}

	return Loader{Filename: filename}, nil
}

// NewLoaderFromData is the preferred method of initialisation for the Loader
// type when the cartridge data has been acquired by other means. The name is
// only used for log messages and save file naming.
func NewLoaderFromData(name string, data []byte) Loader {
	ld := Loader{
		Filename: name,
		Data:     data,
	}
	ld.Hash = sha256.Sum256(data)
	return ld
}

// Load the cartridge data and return it to the caller.
func (ld *Loader) Load() error {
	if len(ld.Data) > 0 {
		return nil
	}

	data, err := os.ReadFile(ld.Filename)
	if err != nil {
		return curated.Errorf("cartridgeloader: %v", err)
	}

	ld.Data = data
	ld.Hash = sha256.Sum256(data)

	return nil
}

// SaveFilename returns the name of the battery save file that accompanies
// the cartridge.
func (ld Loader) SaveFilename() string {
	return fmt.Sprintf("%s.sav", ld.Filename)
}

// ShortName returns a shortened version of the cartridge filename, with path
// and extension removed.
func (ld Loader) ShortName() string {
	sn := ld.Filename
	if i := strings.LastIndexAny(sn, "/\\"); i != -1 {
		sn = sn[i+1:]
	}
	if i := strings.LastIndex(sn, "."); i != -1 {
		sn = sn[:i]
	}
	return sn
}
