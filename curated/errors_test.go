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

package curated_test

import (
	"errors"
	"testing"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/test"
)

const testSentinel = "test error: %s"

func TestDuplicateCollapse(t *testing.T) {
	e := curated.Errorf("error: %s", "foo")
	test.ExpectEquality(t, e.Error(), "error: foo")

	// wrapping an error in the same pattern collapses the duplicate
	f := curated.Errorf("error: %v", e)
	test.ExpectEquality(t, f.Error(), "error: foo")
}

func TestIs(t *testing.T) {
	e := curated.Errorf(testSentinel, "foo")
	test.ExpectSuccess(t, curated.Is(e, testSentinel))
	test.ExpectSuccess(t, curated.IsAny(e))

	// a plain error matches neither
	p := errors.New("plain")
	test.ExpectFailure(t, curated.Is(p, testSentinel))
	test.ExpectFailure(t, curated.IsAny(p))
}

func TestHas(t *testing.T) {
	e := curated.Errorf(testSentinel, "foo")
	w := curated.Errorf("outer: %v", e)

	// the sentinel is buried one level down
	test.ExpectFailure(t, curated.Is(w, testSentinel))
	test.ExpectSuccess(t, curated.Has(w, testSentinel))
}
