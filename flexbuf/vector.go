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
	"fmt"
)

// typedElem returns the fixed element Type of a typed-vector wire
// type (including fixed-arity variants), and false for VectorType,
// MapType, and every scalar type.
func typedElem(t Type) (Type, bool) {
	switch t {
	case VectorSintType, VectorSint2Type, VectorSint3Type, VectorSint4Type:
		return SintType, true
	case VectorUintType, VectorUint2Type, VectorUint3Type, VectorUint4Type:
		return UintType, true
	case VectorFloatType, VectorFloat2Type, VectorFloat3Type, VectorFloat4Type:
		return FloatType, true
	case VectorKeyType:
		return KeyType, true
	case VectorBoolType:
		return BoolType, true
	}
	return 0, false
}

func isVectorOrMap(t Type) bool {
	if t == VectorType || t == MapType {
		return true
	}
	_, ok := typedElem(t)
	return ok
}

// TypedVectorData describes the raw payload of a typed (homogeneous)
// vector: its fixed element type and width, its element count, and
// the count*elemWidth raw bytes of the payload itself. For
// VectorKeyType the "raw bytes" are the count offsets, not the key
// text; use SeekIndex to dereference individual keys.
type TypedVectorData struct {
	ElemType  Type
	ElemWidth int
	Count     int
	Data      []byte
}

// TypedVectorData returns the raw payload of a typed vector cursor.
// It fails with ErrBadType if c is a heterogeneous VECTOR or MAP.
func (c Cursor) TypedVectorData() (TypedVectorData, error) {
	elem, ok := typedElem(c.typ)
	if !ok {
		return TypedVectorData{}, fmt.Errorf("flexbuf: type %d is not a typed vector: %w", c.typ, ErrBadType)
	}
	count, err := c.Length()
	if err != nil {
		return TypedVectorData{}, err
	}
	data, err := c.bytesAt(c.off, count*c.width)
	if err != nil {
		return TypedVectorData{}, err
	}
	return TypedVectorData{ElemType: elem, ElemWidth: c.width, Count: count, Data: data}, nil
}

// VectorTypes returns the packed type bytes of a heterogeneous
// vector or map, one per element, located immediately after the
// element slots.
func (c Cursor) VectorTypes() ([]byte, error) {
	if c.typ != VectorType && c.typ != MapType {
		return nil, fmt.Errorf("flexbuf: type %d has no heterogeneous type array: %w", c.typ, ErrBadType)
	}
	count, err := c.Length()
	if err != nil {
		return nil, err
	}
	return c.bytesAt(c.off+count*c.width, count)
}

// resolveSlot interprets the stride-byte slot at byte offset
// slotOff as described by packed (a wire packed byte), returning
// the Cursor it denotes. For direct types the slot itself is the
// value; for indirect types the slot holds a backward offset that
// is resolved here, exactly as Open does for the root slot.
func (c Cursor) resolveSlot(slotOff, stride int, packed byte) (Cursor, error) {
	typ := UnpackType(packed)
	if IsDirect(typ) {
		return Cursor{span: c.span, off: slotOff, typ: typ, width: stride}, nil
	}
	slot, err := c.bytesAt(slotOff, stride)
	if err != nil {
		return Cursor{}, err
	}
	off := readUint(slot, mustWidth(stride))
	payloadOff, err := resolveOffset(slotOff, off, len(c.span.data))
	if err != nil {
		return Cursor{}, err
	}
	width := UnpackWidth(packed).Bytes()
	return Cursor{span: c.span, off: payloadOff, typ: typ, width: width}, nil
}

// SeekIndex returns a Cursor for the element at the given index of
// any vector variant (heterogeneous VECTOR, typed vector, or MAP's
// value vector). It fails if index is out of bounds.
func (c Cursor) SeekIndex(index int) (Cursor, error) {
	if !isVectorOrMap(c.typ) {
		return Cursor{}, fmt.Errorf("flexbuf: type %d is not indexable: %w", c.typ, ErrBadType)
	}
	count, err := c.Length()
	if err != nil {
		return Cursor{}, err
	}
	if index < 0 || index >= count {
		return Cursor{}, fmt.Errorf("flexbuf: index %d out of bounds (len %d): %w", index, count, ErrBadRead)
	}

	if elem, ok := typedElem(c.typ); ok {
		slotOff := c.off + index*c.width
		if elem == KeyType {
			slot, err := c.bytesAt(slotOff, c.width)
			if err != nil {
				return Cursor{}, err
			}
			off := readUint(slot, mustWidth(c.width))
			keyOff, err := resolveOffset(slotOff, off, len(c.span.data))
			if err != nil {
				return Cursor{}, err
			}
			return Cursor{span: c.span, off: keyOff, typ: KeyType, width: c.width}, nil
		}
		return Cursor{span: c.span, off: slotOff, typ: elem, width: c.width}, nil
	}

	// Heterogeneous vector or map value vector: the per-element
	// packed type byte follows the N element slots.
	types, err := c.bytesAt(c.off+count*c.width, count)
	if err != nil {
		return Cursor{}, err
	}
	slotOff := c.off + index*c.width
	return c.resolveSlot(slotOff, c.width, types[index])
}

// keysVector returns a Cursor for a map's keys vector (a typed
// vector of KEY), located via the 2-slot header at
// data_ptr - 3*stride: {keys_vector_offset, keys_vector_stride}.
func (c Cursor) keysVector() (Cursor, error) {
	if c.typ != MapType {
		return Cursor{}, fmt.Errorf("flexbuf: type %d is not a map: %w", c.typ, ErrBadType)
	}
	hdr, err := c.bytesAt(c.off-3*c.width, 2*c.width)
	if err != nil {
		return Cursor{}, err
	}
	offOff := c.off - 3*c.width
	keysOff := readUint(hdr[:c.width], mustWidth(c.width))
	keysStride := int(readUint(hdr[c.width:2*c.width], mustWidth(c.width)))
	stride, ok := widthFromBytes(keysStride)
	if !ok {
		return Cursor{}, fmt.Errorf("flexbuf: map keys-vector stride %d invalid: %w", keysStride, ErrBadRead)
	}
	keysDataOff, err := resolveOffset(offOff, keysOff, len(c.span.data))
	if err != nil {
		return Cursor{}, err
	}
	return Cursor{span: c.span, off: keysDataOff, typ: VectorKeyType, width: stride.Bytes()}, nil
}

// MapKeyAt returns the key text at index i of a map, in physical
// (sorted) order.
func (c Cursor) MapKeyAt(i int) ([]byte, error) {
	keys, err := c.keysVector()
	if err != nil {
		return nil, err
	}
	kc, err := keys.SeekIndex(i)
	if err != nil {
		return nil, err
	}
	return kc.Key()
}

// SeekKey performs a binary search for key in a map's sorted keys
// vector and returns the value Cursor at the matching index. It
// returns ErrNotFound (wrapped) if no key matches, rather than a
// structural error: callers may treat a miss as a normal outcome.
func (c Cursor) SeekKey(key string) (Cursor, error) {
	if c.typ != MapType {
		return Cursor{}, fmt.Errorf("flexbuf: type %d is not a map: %w", c.typ, ErrBadType)
	}
	keys, err := c.keysVector()
	if err != nil {
		return Cursor{}, err
	}
	count, err := c.Length()
	if err != nil {
		return Cursor{}, err
	}
	target := []byte(key)

	lo, hi := 0, count-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		kc, err := keys.SeekIndex(mid)
		if err != nil {
			return Cursor{}, err
		}
		kb, err := kc.Key()
		if err != nil {
			return Cursor{}, err
		}
		switch bytes.Compare(kb, target) {
		case 0:
			return c.SeekIndex(mid)
		case -1:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return Cursor{}, fmt.Errorf("flexbuf: key %q: %w", key, ErrNotFound)
}

// ForeachFunc is called once per child of a vector or map, in
// physical (stored) order. key is nil for vector children, and the
// field name for map children. Foreach stops early if fn returns
// false.
type ForeachFunc func(key []byte, value Cursor) (bool, error)

// Foreach enumerates the children of a vector or map cursor in
// physical order.
func (c Cursor) Foreach(fn ForeachFunc) error {
	if !isVectorOrMap(c.typ) {
		return fmt.Errorf("flexbuf: type %d has no children: %w", c.typ, ErrBadType)
	}
	count, err := c.Length()
	if err != nil {
		return err
	}
	isMap := c.typ == MapType
	var keys Cursor
	if isMap {
		keys, err = c.keysVector()
		if err != nil {
			return err
		}
	}
	for i := 0; i < count; i++ {
		v, err := c.SeekIndex(i)
		if err != nil {
			return err
		}
		var key []byte
		if isMap {
			kc, err := keys.SeekIndex(i)
			if err != nil {
				return err
			}
			key, err = kc.Key()
			if err != nil {
				return err
			}
		}
		cont, err := fn(key, v)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}
