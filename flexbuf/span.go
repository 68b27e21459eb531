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

import "fmt"

// Span is an immutable view over a byte range. It is borrowed: the
// caller's backing array must outlive any Cursor derived from it.
type Span struct {
	data []byte
}

// NewSpan wraps p as a Span. p is not copied.
func NewSpan(p []byte) Span {
	return Span{data: p}
}

// Len returns the number of bytes in the span.
func (s Span) Len() int { return len(s.data) }

// Bytes returns the span's underlying bytes. The caller must not
// mutate the returned slice.
func (s Span) Bytes() []byte { return s.data }

// Cursor is an immutable navigator into a Span: a pointer (byte
// offset) into the span, together with the logical type and
// element width of whatever that offset addresses. Cursors are
// freely copyable and carry no ownership; every operation on a
// Cursor is a pure read.
type Cursor struct {
	span  Span
	off   int // byte offset into span.data that this cursor addresses
	typ   Type
	width int // element width in bytes of the addressed payload
}

// Open resolves the root value of a document and returns a Cursor
// pointing at it. The span must be at least 3 bytes; its last two
// bytes are {root_packed, root_stride}, and root_stride bytes
// immediately before them hold the root slot.
func Open(s Span) (Cursor, error) {
	buf := s.data
	n := len(buf)
	if n < 3 {
		return Cursor{}, fmt.Errorf("flexbuf: span of %d bytes too short to be a document: %w", n, ErrBadRead)
	}

	stride := int(buf[n-1])
	if stride != 1 && stride != 2 && stride != 4 && stride != 8 {
		return Cursor{}, fmt.Errorf("flexbuf: invalid root stride %d: %w", stride, ErrBadRead)
	}
	if n < stride+2 {
		return Cursor{}, fmt.Errorf("flexbuf: span too short for root stride %d: %w", stride, ErrBadRead)
	}

	packed := buf[n-2]
	typ := UnpackType(packed)
	slotOff := n - 2 - stride
	slot := buf[slotOff : slotOff+stride]

	if IsDirect(typ) {
		return Cursor{span: s, off: slotOff, typ: typ, width: stride}, nil
	}

	off := readUint(slot, mustWidth(stride))
	payloadOff, err := resolveOffset(slotOff, off, n)
	if err != nil {
		return Cursor{}, err
	}

	elemWidth := UnpackWidth(packed).Bytes()
	return Cursor{span: s, off: payloadOff, typ: typ, width: elemWidth}, nil
}

func mustWidth(bytes int) Width {
	w, ok := widthFromBytes(bytes)
	if !ok {
		panic("flexbuf: impossible stride")
	}
	return w
}

// resolveOffset computes slotOff - off, checked against the span's
// bounds. A resolved pointer is always backward: the referent must
// lie at a lower address than the slot storing the offset.
func resolveOffset(slotOff int, off uint64, spanLen int) (int, error) {
	if off > uint64(spanLen) {
		return 0, fmt.Errorf("flexbuf: offset %d implausibly large for a %d-byte span: %w", off, spanLen, ErrBadRead)
	}
	if off > uint64(slotOff) {
		return 0, fmt.Errorf("flexbuf: backward offset %d underflows span at position %d: %w", off, slotOff, ErrBadRead)
	}
	return slotOff - int(off), nil
}

// Type returns the cursor's logical type.
func (c Cursor) Type() Type { return c.typ }

// Width returns the cursor's element width in bytes: the width of
// the inline root/vector slot for direct values, or the payload's
// element stride for indirect ones.
func (c Cursor) Width() int { return c.width }

// bytesAt returns the n bytes of the span starting at byte offset
// off, or an error if that range escapes the span.
func (c Cursor) bytesAt(off, n int) ([]byte, error) {
	buf := c.span.data
	if off < 0 || n < 0 || off+n > len(buf) {
		return nil, fmt.Errorf("flexbuf: read of %d bytes at offset %d escapes %d-byte span: %w", n, off, len(buf), ErrBadRead)
	}
	return buf[off : off+n], nil
}

// Length returns the element count of a string, blob, vector, or
// map cursor: the unsigned integer of width c.width stored
// immediately before the payload. Direct values (and keys, which
// are NUL-terminated rather than length-prefixed) have no defined
// length here; Length returns 0 for them.
func (c Cursor) Length() (int, error) {
	switch c.typ {
	case StringType, BlobType, MapType, VectorType,
		VectorSintType, VectorUintType, VectorFloatType, VectorKeyType, VectorBoolType,
		VectorSint2Type, VectorUint2Type, VectorFloat2Type,
		VectorSint3Type, VectorUint3Type, VectorFloat3Type,
		VectorSint4Type, VectorUint4Type, VectorFloat4Type:
		if n, ok := fixedArity(c.typ); ok {
			return n, nil
		}
		p, err := c.bytesAt(c.off-c.width, c.width)
		if err != nil {
			return 0, err
		}
		return int(readUint(p, mustWidth(c.width))), nil
	default:
		return 0, nil
	}
}

// fixedArity returns the compile-time element count of a
// fixed-arity typed vector (2, 3, or 4), and false for every other
// type, including the variable-length typed/heterogeneous vectors.
func fixedArity(t Type) (int, bool) {
	switch t {
	case VectorSint2Type, VectorUint2Type, VectorFloat2Type:
		return 2, true
	case VectorSint3Type, VectorUint3Type, VectorFloat3Type:
		return 3, true
	case VectorSint4Type, VectorUint4Type, VectorFloat4Type:
		return 4, true
	}
	return 0, false
}
