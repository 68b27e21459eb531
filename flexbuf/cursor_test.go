// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package flexbuf

import (
	"math"
	"testing"
)

func buildScalar(t *testing.T, build func(w *Writer) error) Cursor {
	t.Helper()
	w := newWriter()
	if err := build(w); err != nil {
		t.Fatal(err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	c, err := Open(NewSpan(w.stream.(*DefaultStream).Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCursorBoolConversions(t *testing.T) {
	c := buildScalar(t, func(w *Writer) error { return w.Bool("", true) })
	if v, err := c.Bool(); err != nil || !v {
		t.Fatalf("Bool() = %v, %v", v, err)
	}
	if v, err := c.Sint(); err != nil || v != 1 {
		t.Fatalf("Sint() = %v, %v", v, err)
	}
	if v, err := c.Uint(); err != nil || v != 1 {
		t.Fatalf("Uint() = %v, %v", v, err)
	}
	if v, err := c.F64(); err != nil || v != 1 {
		t.Fatalf("F64() = %v, %v", v, err)
	}
}

func TestCursorSintToUintRangeError(t *testing.T) {
	c := buildScalar(t, func(w *Writer) error { return w.Sint("", -5) })
	if _, err := c.Uint(); err == nil {
		t.Fatal("Uint() of negative sint succeeded")
	}
}

func TestCursorUintToSintRangeError(t *testing.T) {
	c := buildScalar(t, func(w *Writer) error { return w.IndirectUint("", math.MaxUint64) })
	if _, err := c.Sint(); err == nil {
		t.Fatal("Sint() of huge uint succeeded")
	}
}

func TestCursorFloatToIntTruncates(t *testing.T) {
	c := buildScalar(t, func(w *Writer) error { return w.F64("", 3.9) })
	v, err := c.Sint()
	if err != nil {
		t.Fatal(err)
	}
	if v != 3 {
		t.Fatalf("Sint() = %d, want 3", v)
	}
}

func TestCursorFloatToIntRangeError(t *testing.T) {
	c := buildScalar(t, func(w *Writer) error { return w.F64("", math.Inf(1)) })
	if _, err := c.Sint(); err == nil {
		t.Fatal("Sint() of +Inf succeeded")
	}
	if _, err := c.Uint(); err == nil {
		t.Fatal("Uint() of +Inf succeeded")
	}
}

func TestCursorStringRoundTrip(t *testing.T) {
	c := buildScalar(t, func(w *Writer) error { return w.String("", "hello, flexbuf") })
	got, err := c.String()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello, flexbuf" {
		t.Fatalf("String() = %q, want %q", got, "hello, flexbuf")
	}
}

func TestCursorBlobRoundTrip(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	c := buildScalar(t, func(w *Writer) error { return w.Blob("", payload, Width1B) })
	got, err := c.Blob()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(payload) {
		t.Fatalf("Blob() len = %d, want %d", len(got), len(payload))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("Blob()[%d] = %d, want %d", i, got[i], payload[i])
		}
	}
}

func TestCursorNonNumericConversionFails(t *testing.T) {
	c := buildScalar(t, func(w *Writer) error { return w.String("", "not a number") })
	if _, err := c.Sint(); err == nil {
		t.Fatal("Sint() of a string succeeded")
	}
	if _, err := c.Bool(); err == nil {
		t.Fatal("Bool() of a string succeeded")
	}
}

func TestCursorNullType(t *testing.T) {
	c := buildScalar(t, func(w *Writer) error { return w.Null("") })
	if c.Type() != NullType {
		t.Fatalf("type = %d, want NullType", c.Type())
	}
}
