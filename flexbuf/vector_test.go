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

func TestTypedVectorSintRoundTrip(t *testing.T) {
	w := newWriter()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(w.TypedVectorSint("", []int64{10, 20, 30, 40}, Width2B))
	must(w.Finalize())

	c, err := Open(NewSpan(w.stream.(*DefaultStream).Bytes()))
	must(err)
	if c.Type() != VectorSint4Type {
		t.Fatalf("type = %d, want VectorSint4Type", c.Type())
	}
	data, err := c.TypedVectorData()
	must(err)
	if data.Count != 4 || data.ElemType != SintType || data.ElemWidth != 2 {
		t.Fatalf("TypedVectorData = %+v", data)
	}
	for i, want := range []int64{10, 20, 30, 40} {
		ec, err := c.SeekIndex(i)
		must(err)
		v, err := ec.Sint()
		must(err)
		if v != want {
			t.Errorf("index %d = %d, want %d", i, v, want)
		}
	}
}

func TestTypedVectorBoolRoundTrip(t *testing.T) {
	w := newWriter()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	vals := []bool{true, false, true, true, false}
	must(w.TypedVectorBool("", vals))
	must(w.Finalize())

	c, err := Open(NewSpan(w.stream.(*DefaultStream).Bytes()))
	must(err)
	if c.Type() != VectorBoolType {
		t.Fatalf("type = %d, want VectorBoolType", c.Type())
	}
	n, err := c.Length()
	must(err)
	if n != len(vals) {
		t.Fatalf("length = %d, want %d", n, len(vals))
	}
	for i, want := range vals {
		ec, err := c.SeekIndex(i)
		must(err)
		got, err := ec.Bool()
		must(err)
		if got != want {
			t.Errorf("index %d = %v, want %v", i, got, want)
		}
	}
}

func TestForeachVector(t *testing.T) {
	w := newWriter()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(w.Bool("", true))
	must(w.Sint("", 7))
	must(w.Vector("", 2, Width1B))
	must(w.Finalize())

	c, err := Open(NewSpan(w.stream.(*DefaultStream).Bytes()))
	must(err)

	var seen []int64
	err = c.Foreach(func(key []byte, v Cursor) (bool, error) {
		if key != nil {
			t.Fatalf("vector child has non-nil key %q", key)
		}
		n, err := v.Sint()
		if err != nil {
			return false, err
		}
		seen = append(seen, n)
		return true, nil
	})
	must(err)
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 7 {
		t.Fatalf("seen = %v, want [1 7]", seen)
	}
}

func TestForeachMapEarlyStop(t *testing.T) {
	w := newWriter()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(w.Key("", "a"))
	must(w.Key("", "b"))
	must(w.Key("", "c"))
	keysetID, err := w.MapKeys(3, Width1B)
	must(err)
	must(w.Sint("a", 1))
	must(w.Sint("b", 2))
	must(w.Sint("c", 3))
	must(w.Map("", keysetID, 3, Width1B))
	must(w.Finalize())

	c, err := Open(NewSpan(w.stream.(*DefaultStream).Bytes()))
	must(err)

	var keys []string
	err = c.Foreach(func(key []byte, v Cursor) (bool, error) {
		keys = append(keys, string(key))
		return len(keys) < 2, nil
	})
	must(err)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("keys = %v, want [a b] (stopped early)", keys)
	}
}

func TestGoldDocument(t *testing.T) {
	w := newWriter()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}

	fields := []string{"bar", "bar3", "bool", "bools", "foo", "mymap", "vec"}
	for _, k := range fields {
		must(w.Key("", k))
	}
	keysetID, err := w.MapKeys(len(fields), Width1B)
	must(err)

	must(w.TypedVectorSint("bar", []int64{1, 2, 3, 4}, Width2B))
	must(w.TypedVectorSint("bar3", []int64{5, 6, 7}, Width1B))
	must(w.Bool("bool", true))
	must(w.TypedVectorBool("bools", []bool{true, false, true}))
	must(w.F64("foo", math.Pi))

	must(w.Key("", "nested"))
	innerKeysetID, err := w.MapKeys(1, Width1B)
	must(err)
	must(w.Sint("nested", 99))
	must(w.Map("mymap", innerKeysetID, 1, Width1B))

	must(w.Bool("", false))
	must(w.Sint("", 123))
	must(w.Vector("vec", 2, Width1B))

	must(w.Map("", keysetID, len(fields), Width1B))
	must(w.Finalize())

	doc := w.stream.(*DefaultStream).Bytes()
	c, err := Open(NewSpan(doc))
	must(err)
	if c.Type() != MapType {
		t.Fatalf("type = %d, want MapType", c.Type())
	}
	n, err := c.Length()
	must(err)
	if n != len(fields) {
		t.Fatalf("length = %d, want %d", n, len(fields))
	}

	barC, err := c.SeekKey("bar")
	must(err)
	barData, err := barC.TypedVectorData()
	must(err)
	if barData.Count != 4 {
		t.Fatalf("bar count = %d, want 4", barData.Count)
	}

	mapC, err := c.SeekKey("mymap")
	must(err)
	if mapC.Type() != MapType {
		t.Fatalf("mymap type = %d, want MapType", mapC.Type())
	}
	nestedC, err := mapC.SeekKey("nested")
	must(err)
	v, err := nestedC.Sint()
	must(err)
	if v != 99 {
		t.Fatalf("mymap.nested = %d, want 99", v)
	}

	vecC, err := c.SeekKey("vec")
	must(err)
	if vecC.Type() != VectorType {
		t.Fatalf("vec type = %d, want VectorType", vecC.Type())
	}
	vn, err := vecC.Length()
	must(err)
	if vn != 2 {
		t.Fatalf("vec length = %d, want 2", vn)
	}

	if _, err := c.SeekKey("plugh"); err == nil {
		t.Fatal("seek of absent key \"plugh\" succeeded")
	}
}
