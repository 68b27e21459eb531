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
	"github.com/dchest/siphash"
	"golang.org/x/exp/slices"
)

// Interner canonicalizes key strings so that repeated field names
// across many Writer calls share one Go string header instead of
// allocating a fresh one each time. This is a pure optimization
// hook, separate from the Writer's own key-offset cache (which
// dedups the *emitted bytes* of a key regardless of interning).
//
// It decouples the writer from any particular string-owning
// convention, the same role the C reference's key_intern/key_free
// callback pair plays.
type Interner interface {
	Intern(s string) string
}

// HashInterner is the default Interner: a hash set keyed by string
// bytes, using siphash to pick a bucket before falling back to a
// byte comparison within it.
type HashInterner struct {
	seed    uint64
	buckets map[uint64][]string
}

// NewHashInterner returns a HashInterner seeded with seed. Two
// interners with different seeds will not produce identical bucket
// layouts, but that has no effect on correctness, only on
// distribution.
func NewHashInterner(seed uint64) *HashInterner {
	return &HashInterner{seed: seed, buckets: make(map[uint64][]string)}
}

// Intern returns s, or a previously interned string equal to s.
func (h *HashInterner) Intern(s string) string {
	key := siphash.Hash(0, h.seed, []byte(s))
	if i := slices.Index(h.buckets[key], s); i >= 0 {
		return h.buckets[key][i]
	}
	h.buckets[key] = append(h.buckets[key], s)
	return s
}
