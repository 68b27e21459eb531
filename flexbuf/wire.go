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

// Package flexbuf implements a schema-less binary document format:
// a single byte sequence whose root is described by a two-byte
// trailer, with every interior reference encoded as a backward byte
// offset so that a document can be navigated in place without
// allocation.
package flexbuf

import (
	"encoding/binary"
	"math"
)

// Type is the logical type of a value stored in a document.
type Type byte

const (
	NullType Type = iota
	SintType
	UintType
	FloatType
	KeyType
	StringType
	IndirectSintType
	IndirectUintType
	IndirectFloatType
	MapType
	VectorType
	VectorSintType
	VectorUintType
	VectorFloatType
	VectorKeyType
	_reserved15
	VectorSint2Type
	VectorUint2Type
	VectorFloat2Type
	VectorSint3Type
	VectorUint3Type
	VectorFloat3Type
	VectorSint4Type
	VectorUint4Type
	VectorFloat4Type
	BlobType
	BoolType
)

// VectorBoolType is out-of-sequence in the wire enumeration (36,
// not 27) so that adding further scalar vector variants later does
// not renumber it.
const VectorBoolType Type = 36

// Width is the element width of an indirect payload, encoded in the
// low two bits of a packed byte.
type Width byte

const (
	Width1B Width = iota
	Width2B
	Width4B
	Width8B
)

// Bytes returns the number of bytes a Width occupies: 1, 2, 4, or 8.
func (w Width) Bytes() int {
	return 1 << uint(w)
}

// widthFromBytes returns the Width whose Bytes() == n, and false if
// n is not one of 1, 2, 4, 8.
func widthFromBytes(n int) (Width, bool) {
	switch n {
	case 1:
		return Width1B, true
	case 2:
		return Width2B, true
	case 4:
		return Width4B, true
	case 8:
		return Width8B, true
	}
	return 0, false
}

// Pack encodes a (type, width) pair into a single wire byte: the
// type occupies the high six bits, the width the low two.
func Pack(t Type, w Width) byte {
	return byte(t)<<2 | byte(w)
}

// UnpackType extracts the type from a packed byte.
func UnpackType(p byte) Type {
	return Type(p >> 2)
}

// UnpackWidth extracts the width code from a packed byte.
func UnpackWidth(p byte) Width {
	return Width(p & 0x03)
}

// IsDirect reports whether a value of type t is stored inline in
// its enclosing slot, rather than behind a backward offset.
func IsDirect(t Type) bool {
	switch t {
	case NullType, SintType, UintType, FloatType, BoolType:
		return true
	}
	return false
}

// readUint reads a little-endian unsigned integer of the given
// width from the first w.Bytes() bytes of p.
func readUint(p []byte, w Width) uint64 {
	switch w {
	case Width1B:
		return uint64(p[0])
	case Width2B:
		return uint64(binary.LittleEndian.Uint16(p))
	case Width4B:
		return uint64(binary.LittleEndian.Uint32(p))
	default:
		return binary.LittleEndian.Uint64(p)
	}
}

// readInt reads a little-endian signed integer of the given width
// from the first w.Bytes() bytes of p, sign-extended to int64.
func readInt(p []byte, w Width) int64 {
	switch w {
	case Width1B:
		return int64(int8(p[0]))
	case Width2B:
		return int64(int16(binary.LittleEndian.Uint16(p)))
	case Width4B:
		return int64(int32(binary.LittleEndian.Uint32(p)))
	default:
		return int64(binary.LittleEndian.Uint64(p))
	}
}

// readFloat reads a 4- or 8-byte little-endian IEEE-754 float.
// w must be Width4B or Width8B.
func readFloat(p []byte, w Width) float64 {
	if w == Width4B {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(p))
}

// putUint writes v into dst using exactly w.Bytes() bytes,
// little-endian. dst must have length >= w.Bytes().
func putUint(dst []byte, v uint64, w Width) {
	switch w {
	case Width1B:
		dst[0] = byte(v)
	case Width2B:
		binary.LittleEndian.PutUint16(dst, uint16(v))
	case Width4B:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	default:
		binary.LittleEndian.PutUint64(dst, v)
	}
}

// minWidthSint returns the smallest Width whose signed range can
// represent v.
func minWidthSint(v int64) Width {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return Width1B
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return Width2B
	case v >= math.MinInt32 && v <= math.MaxInt32:
		return Width4B
	default:
		return Width8B
	}
}

// minWidthUint returns the smallest Width whose unsigned range can
// represent v.
func minWidthUint(v uint64) Width {
	switch {
	case v <= math.MaxUint8:
		return Width1B
	case v <= math.MaxUint16:
		return Width2B
	case v <= math.MaxUint32:
		return Width4B
	default:
		return Width8B
	}
}

// minWidthOffset returns the smallest Width whose unsigned range
// can hold a backward byte offset of magnitude v. Offsets are
// encoded unsigned, but bounded in practice by the distance from
// the writing site, so the same ladder as minWidthUint applies.
func minWidthOffset(v uint64) Width {
	return minWidthUint(v)
}

func maxWidth(a, b Width) Width {
	if a > b {
		return a
	}
	return b
}
