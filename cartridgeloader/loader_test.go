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

package cartridgeloader_test

import (
	"crypto/sha256"
	"testing"

	"github.com/jetsetilly/gopherboy/cartridgeloader"
	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/test"
)

func TestExtensions(t *testing.T) {
	_, err := cartridgeloader.NewLoader("game.gb")
	test.ExpectSuccess(t, err == nil)

	_, err = cartridgeloader.NewLoader("game.GBC")
	test.ExpectSuccess(t, err == nil)

	_, err = cartridgeloader.NewLoader("game.txt")
	test.ExpectSuccess(t, curated.Is(err, cartridgeloader.UnrecognisedExtension))
}

func TestLoaderFromData(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	ld := cartridgeloader.NewLoaderFromData("roms/game.gb", data)

	test.ExpectEquality(t, ld.Hash, sha256.Sum256(data))
	test.DemandSuccess(t, ld.Load())

	test.ExpectEquality(t, ld.SaveFilename(), "roms/game.gb.sav")
	test.ExpectEquality(t, ld.ShortName(), "game")
}
