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
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint is a content hash of a finalized document, stable
// across processes and machines since it depends only on the
// document's bytes.
type Fingerprint [blake2b.Size256]byte

// String renders a Fingerprint as lowercase hex.
func (f Fingerprint) String() string {
	const hex = "0123456789abcdef"
	out := make([]byte, len(f)*2)
	for i, b := range f {
		out[i*2] = hex[b>>4]
		out[i*2+1] = hex[b&0xf]
	}
	return string(out)
}

// FingerprintOf hashes a finalized document's bytes with BLAKE2b-256.
func FingerprintOf(doc []byte) (Fingerprint, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("flexbuf: initializing fingerprint hash: %w", err)
	}
	h.Write(doc)
	var out Fingerprint
	copy(out[:], h.Sum(nil))
	return out, nil
}
