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

// Package digest produces cryptographic fingerprints of the emulation's
// video and audio output. The hash can be used to compare output from
// subsequent emulation executions - if a new hash differs from a previously
// recorded value then something has changed. This is the basis for the
// conformance and regression tests.
//
// Note that the use of SHA-1 is fine for this application because this is
// not a cryptographic task.
package digest

// Digest implementations return a hash in response to a Hash() request.
// Generation of the hash is achieved through the type's receive functions.
type Digest interface {
	Hash() string
	ResetDigest()
}
