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

import "testing"

func TestOpenTooShort(t *testing.T) {
	for _, buf := range [][]byte{nil, {0x01}, {0x01, 0x68}} {
		if _, err := Open(NewSpan(buf)); err == nil {
			t.Errorf("Open(% x) succeeded, want error", buf)
		}
	}
}

func TestOpenBadStride(t *testing.T) {
	buf := []byte{0x01, 0x68, 0x03}
	if _, err := Open(NewSpan(buf)); err == nil {
		t.Fatal("Open with invalid root stride succeeded")
	}
}

func TestOpenDirectRoot(t *testing.T) {
	buf := []byte{0x01, 0x68, 0x01}
	c, err := Open(NewSpan(buf))
	if err != nil {
		t.Fatal(err)
	}
	if c.Type() != BoolType {
		t.Fatalf("type = %d, want BoolType", c.Type())
	}
	if c.Width() != 1 {
		t.Fatalf("width = %d, want 1", c.Width())
	}
}

func TestOpenBackwardOffsetUnderflow(t *testing.T) {
	buf := []byte{0x05, byte(Pack(StringType, Width1B)), 0x01}
	if _, err := Open(NewSpan(buf)); err == nil {
		t.Fatal("Open with underflowing backward offset succeeded")
	}
}

func TestLengthOfDirectValueIsZero(t *testing.T) {
	buf := []byte{0x01, 0x68, 0x01}
	c, err := Open(NewSpan(buf))
	if err != nil {
		t.Fatal(err)
	}
	n, err := c.Length()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("length of direct bool = %d, want 0", n)
	}
}
