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

// Package curated is a helper package for the plain Go language error type.
// Curated errors implement the error interface.
//
// Curated errors are created with the Errorf() function. It takes a
// formatting pattern and placeholder values, like Errorf() in the fmt
// package, and returns an error.
//
// The Is() function checks whether an error was created by Errorf() with a
// specific pattern. The pattern is what differentiates curated errors:
//
//	e := curated.Errorf("mapper: bank %d out of range", b)
//
//	if curated.Is(e, "mapper: bank %d out of range") {
//		...
//	}
//
// The Has() function is similar but checks if a pattern occurs somewhere in
// the error chain. The IsAny() function answers whether the error is curated
// at all - useful for separating expected failures from unexpected ones.
//
// The Error() function implementation normalises the error chain so that it
// does not contain duplicate adjacent parts. This alleviates the problem of
// when and how to wrap errors: wrapping at every return site will never
// produce "cartridge: cartridge: bad header" style messages.
//
// Sentinel patterns should be stored as const strings, suitably named and
// commented, in the package that creates them.
package curated
