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

package logger

import (
	"strings"
	"testing"

	"github.com/jetsetilly/gopherboy/test"
)

func TestAppend(t *testing.T) {
	l := newLogger(100)

	b := &strings.Builder{}
	l.write(b)
	test.ExpectEquality(t, b.String(), "")

	l.log("test", "this is a test")
	b.Reset()
	l.write(b)
	test.ExpectEquality(t, b.String(), "test: this is a test\n")
}

func TestRepeatFolding(t *testing.T) {
	l := newLogger(100)

	l.log("test", "repeated detail")
	l.log("test", "repeated detail")
	l.log("test", "repeated detail")

	b := &strings.Builder{}
	l.write(b)
	test.ExpectEquality(t, b.String(), "test: repeated detail (repeat x3)\n")

	// a different detail breaks the fold
	l.log("test", "new detail")
	b.Reset()
	l.write(b)
	test.ExpectEquality(t, b.String(), "test: repeated detail (repeat x3)\ntest: new detail\n")
}

func TestMaxEntries(t *testing.T) {
	l := newLogger(2)

	l.log("test", "one")
	l.log("test", "two")
	l.log("test", "three")

	b := &strings.Builder{}
	l.write(b)
	test.ExpectEquality(t, b.String(), "test: two\ntest: three\n")
}

func TestTail(t *testing.T) {
	l := newLogger(100)

	l.log("test", "one")
	l.log("test", "two")
	l.log("test", "three")

	b := &strings.Builder{}
	l.tail(b, 2)
	test.ExpectEquality(t, b.String(), "test: two\ntest: three\n")

	// asking for more entries than exist is not an error
	b.Reset()
	l.tail(b, 100)
	test.ExpectEquality(t, b.String(), "test: one\ntest: two\ntest: three\n")
}
