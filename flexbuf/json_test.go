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
	"bytes"
	"encoding/json"
	"testing"
)

func renderJSON(t *testing.T, build func(w *Writer) error) string {
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
	var buf bytes.Buffer
	if err := WriteJSON(&buf, c); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestWriteJSONScalar(t *testing.T) {
	got := renderJSON(t, func(w *Writer) error { return w.Sint("", 7) })
	if got != "7" {
		t.Fatalf("got %q, want %q", got, "7")
	}
}

func TestWriteJSONString(t *testing.T) {
	got := renderJSON(t, func(w *Writer) error { return w.String("", "hi \"there\"\n") })
	var decoded string
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("invalid JSON %q: %v", got, err)
	}
	if decoded != "hi \"there\"\n" {
		t.Fatalf("decoded = %q, want %q", decoded, "hi \"there\"\n")
	}
}

func TestWriteJSONVector(t *testing.T) {
	got := renderJSON(t, func(w *Writer) error {
		if err := w.Sint("", 1); err != nil {
			return err
		}
		if err := w.Sint("", 2); err != nil {
			return err
		}
		return w.Vector("", 2, Width1B)
	})
	var decoded []int
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("invalid JSON %q: %v", got, err)
	}
	if len(decoded) != 2 || decoded[0] != 1 || decoded[1] != 2 {
		t.Fatalf("decoded = %v, want [1 2]", decoded)
	}
}

func TestWriteJSONMap(t *testing.T) {
	got := renderJSON(t, func(w *Writer) error {
		if err := w.Key("", "a"); err != nil {
			return err
		}
		if err := w.Key("", "b"); err != nil {
			return err
		}
		keysetID, err := w.MapKeys(2, Width1B)
		if err != nil {
			return err
		}
		if err := w.Sint("a", 1); err != nil {
			return err
		}
		if err := w.Bool("b", true); err != nil {
			return err
		}
		return w.Map("", keysetID, 2, Width1B)
	})
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("invalid JSON %q: %v", got, err)
	}
	if decoded["a"] != float64(1) || decoded["b"] != true {
		t.Fatalf("decoded = %v", decoded)
	}
}

func TestWriteJSONTypedVector(t *testing.T) {
	got := renderJSON(t, func(w *Writer) error {
		return w.TypedVectorSint("", []int64{1, 2, 3}, Width1B)
	})
	var decoded []int
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("invalid JSON %q: %v", got, err)
	}
	if len(decoded) != 3 || decoded[2] != 3 {
		t.Fatalf("decoded = %v, want [1 2 3]", decoded)
	}
}

func TestWriteJSONBlob(t *testing.T) {
	got := renderJSON(t, func(w *Writer) error {
		return w.Blob("", []byte("flex"), Width1B)
	})
	var decoded string
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("invalid JSON %q: %v", got, err)
	}
	if decoded != "ZmxleA==" {
		t.Fatalf("decoded = %q, want base64 of \"flex\"", decoded)
	}
}

func TestWriteJSONNull(t *testing.T) {
	got := renderJSON(t, func(w *Writer) error { return w.Null("") })
	if got != "null" {
		t.Fatalf("got %q, want %q", got, "null")
	}
}
