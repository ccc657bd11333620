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

package digest

import (
	"crypto/sha1"
	"fmt"
)

// Video generates a SHA-1 value from every frame it is given. The fingerprint
// is chained: the value of the previous frame's digest is prepended to the
// pixel data before hashing, so the hash after N frames identifies the whole
// sequence and not just the last frame.
type Video struct {
	digest   [sha1.Size]byte
	buffer   []byte
	frameNum int
}

// NewVideo is the preferred method of initialisation for the Video type.
func NewVideo() *Video {
	return &Video{}
}

// Hash implements the digest.Digest interface.
func (dig *Video) Hash() string {
	return fmt.Sprintf("%x", dig.digest)
}

// ResetDigest implements the digest.Digest interface.
func (dig *Video) ResetDigest() {
	dig.digest = [sha1.Size]byte{}
	dig.frameNum = 0
}

// FrameNum returns the number of frames fingerprinted so far.
func (dig *Video) FrameNum() int {
	return dig.frameNum
}

// NewFrame fingerprints a completed frame. The pixels slice is the RGB frame
// data as produced by the emulation.
func (dig *Video) NewFrame(pixels []uint8) {
	l := len(dig.digest) + len(pixels)
	if len(dig.buffer) != l {
		dig.buffer = make([]byte, l)
	}

	// chain fingerprints by copying the value of the last fingerprint to the
	// head of the frame data
	copy(dig.buffer, dig.digest[:])
	copy(dig.buffer[len(dig.digest):], pixels)

	dig.digest = sha1.Sum(dig.buffer)
	dig.frameNum++
}
