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

// Package test contains helper functions that remove common boilerplate from
// the package level tests.
//
// The Expect functions (ExpectEquality, ExpectSuccess, ExpectFailure) test a
// condition and mark the test as failed if the condition does not hold. The
// Demand functions are identical except that failure is a testing fatality,
// useful when later test stages depend on the demanded value.
//
// It is worth describing how the Expect functions handle the nil type because
// it is not obvious. The nil type is considered a success and consequently
// will cause ExpectFailure to fail and ExpectSuccess to succeed. Because of
// how errors usually work (nil to indicate no error) we *need* to interpret
// nil in this way.
package test
