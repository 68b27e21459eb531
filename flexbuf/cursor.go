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
	"math"
)

func isSintFamily(t Type) bool  { return t == SintType || t == IndirectSintType }
func isUintFamily(t Type) bool  { return t == UintType || t == IndirectUintType }
func isFloatFamily(t Type) bool { return t == FloatType || t == IndirectFloatType }

// raw returns the cursor's stored magnitude as a uint64/int64/float64
// triple according to its own family, with no conversion applied.
func (c Cursor) raw() (u uint64, i int64, f float64, err error) {
	p, err := c.bytesAt(c.off, c.width)
	if err != nil {
		return 0, 0, 0, err
	}
	switch {
	case isUintFamily(c.typ) || c.typ == BoolType:
		u = readUint(p, mustWidth(c.width))
		return u, int64(u), float64(u), nil
	case isSintFamily(c.typ):
		i = readInt(p, mustWidth(c.width))
		return uint64(i), i, float64(i), nil
	case isFloatFamily(c.typ):
		f = readFloat(p, mustWidth(c.width))
		return uint64(f), int64(f), f, nil
	default:
		return 0, 0, 0, fmt.Errorf("flexbuf: type %d is not numeric: %w", c.typ, ErrBadType)
	}
}

// Bool reads the cursor as a boolean. True iff the stored magnitude
// is nonzero; fails with ErrBadType for non-numeric cursors.
func (c Cursor) Bool() (bool, error) {
	u, i, f, err := c.raw()
	if err != nil {
		return false, err
	}
	if isFloatFamily(c.typ) {
		return f != 0, nil
	}
	if isSintFamily(c.typ) {
		return i != 0, nil
	}
	return u != 0, nil
}

// Sint reads the cursor as a signed 64-bit integer, converting from
// whatever numeric family is stored. uint -> sint fails with ErrRange
// if the value exceeds math.MaxInt64. float -> sint truncates toward
// zero and fails with ErrRange if the value is NaN, +-Inf, or out of
// int64 range.
func (c Cursor) Sint() (int64, error) {
	switch {
	case isSintFamily(c.typ) || c.typ == BoolType:
		_, i, _, err := c.raw()
		return i, err
	case isUintFamily(c.typ):
		u, _, _, err := c.raw()
		if err != nil {
			return 0, err
		}
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("flexbuf: uint %d overflows int64: %w", u, ErrRange)
		}
		return int64(u), nil
	case isFloatFamily(c.typ):
		_, _, f, err := c.raw()
		if err != nil {
			return 0, err
		}
		return floatToInt64(f)
	default:
		return 0, fmt.Errorf("flexbuf: type %d has no integer conversion: %w", c.typ, ErrBadType)
	}
}

// Uint reads the cursor as an unsigned 64-bit integer. sint -> uint
// fails with ErrRange if the stored value is negative. float -> uint
// truncates toward zero and fails with ErrRange if the value is
// NaN, +-Inf, negative, or too large.
func (c Cursor) Uint() (uint64, error) {
	switch {
	case isUintFamily(c.typ) || c.typ == BoolType:
		u, _, _, err := c.raw()
		return u, err
	case isSintFamily(c.typ):
		_, i, _, err := c.raw()
		if err != nil {
			return 0, err
		}
		if i < 0 {
			return 0, fmt.Errorf("flexbuf: sint %d is negative: %w", i, ErrRange)
		}
		return uint64(i), nil
	case isFloatFamily(c.typ):
		_, _, f, err := c.raw()
		if err != nil {
			return 0, err
		}
		return floatToUint64(f)
	default:
		return 0, fmt.Errorf("flexbuf: type %d has no integer conversion: %w", c.typ, ErrBadType)
	}
}

// F32 reads the cursor as a float32, direct-casting from any
// integral family and narrowing from float64.
func (c Cursor) F32() (float32, error) {
	f, err := c.F64()
	return float32(f), err
}

// F64 reads the cursor as a float64. Integral and boolean values
// are cast directly; a stored float32 is widened.
func (c Cursor) F64() (float64, error) {
	_, _, f, err := c.raw()
	if err != nil {
		return 0, err
	}
	return f, nil
}

func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("flexbuf: float %v out of int64 range: %w", f, ErrRange)
	}
	return int64(f), nil
}

func floatToUint64(f float64) (uint64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxUint64 {
		return 0, fmt.Errorf("flexbuf: float %v out of uint64 range: %w", f, ErrRange)
	}
	return uint64(f), nil
}

// String returns the bytes of a string value, excluding its trailing
// NUL. The underlying array is the document's own bytes; it must
// not be mutated.
func (c Cursor) String() ([]byte, error) {
	if c.typ != StringType {
		return nil, fmt.Errorf("flexbuf: type %d is not a string: %w", c.typ, ErrBadType)
	}
	n, err := c.Length()
	if err != nil {
		return nil, err
	}
	return c.bytesAt(c.off, n)
}

// Key returns the bytes of a key value, a NUL-terminated identifier.
// The NUL terminator is not included in the returned slice.
func (c Cursor) Key() ([]byte, error) {
	if c.typ != KeyType {
		return nil, fmt.Errorf("flexbuf: type %d is not a key: %w", c.typ, ErrBadType)
	}
	return c.keyAt(c.off)
}

// keyAt scans for a NUL terminator starting at byte offset off,
// bounded by the span length, and returns the bytes preceding it.
func (c Cursor) keyAt(off int) ([]byte, error) {
	buf := c.span.data
	if off < 0 || off > len(buf) {
		return nil, fmt.Errorf("flexbuf: key offset %d escapes %d-byte span: %w", off, len(buf), ErrBadRead)
	}
	end := off
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	if end == len(buf) {
		return nil, fmt.Errorf("flexbuf: key at offset %d has no NUL terminator within span: %w", off, ErrBadRead)
	}
	return buf[off:end], nil
}

// Blob returns the payload bytes of a blob value.
func (c Cursor) Blob() ([]byte, error) {
	if c.typ != BlobType {
		return nil, fmt.Errorf("flexbuf: type %d is not a blob: %w", c.typ, ErrBadType)
	}
	n, err := c.Length()
	if err != nil {
		return nil, err
	}
	return c.bytesAt(c.off, n)
}
