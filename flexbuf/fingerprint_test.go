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

func TestFingerprintDeterministic(t *testing.T) {
	doc := []byte{0x01, 0x68, 0x01}
	a, err := FingerprintOf(doc)
	if err != nil {
		t.Fatal(err)
	}
	b, err := FingerprintOf(doc)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("FingerprintOf is not deterministic: %s != %s", a, b)
	}
}

func TestFingerprintDiffersOnDifferentInput(t *testing.T) {
	a, err := FingerprintOf([]byte{0x01, 0x68, 0x01})
	if err != nil {
		t.Fatal(err)
	}
	b, err := FingerprintOf([]byte{0xdb, 0x0f, 0x49, 0x40, 0x0e, 0x04})
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("distinct documents produced the same fingerprint")
	}
}

func TestFingerprintStringLength(t *testing.T) {
	f, err := FingerprintOf([]byte{0x01, 0x68, 0x01})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.String()) != len(f)*2 {
		t.Fatalf("String() length = %d, want %d", len(f.String()), len(f)*2)
	}
}
