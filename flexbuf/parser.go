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

// ParserTable is a set of per-kind callbacks driving a full,
// depth-first walk of a document. It plays the same role as the C
// reference's flexi_reader_s: a flat struct of function pointers
// rather than a polymorphic visitor, per the design note in the
// specification (a tagged-variant visitor is an equally valid
// binding of the same contract).
//
// Every leaf callback receives the parent key: the field name when
// the value sits inside a map, and nil at the document root or
// inside a vector. Begin/End pairs bracket composite structures.
// TypedVector receives the raw payload directly; there is no
// per-element callback for typed vectors.
type ParserTable struct {
	Null        func(key []byte) error
	Bool        func(key []byte, v bool) error
	Sint        func(key []byte, v int64) error
	Uint        func(key []byte, v uint64) error
	F32         func(key []byte, v float32) error
	F64         func(key []byte, v float64) error
	Key         func(key []byte, v []byte) error
	String      func(key []byte, v []byte) error
	Blob        func(key []byte, v []byte) error
	MapBegin    func(key []byte, count int) error
	MapEnd      func(key []byte) error
	VectorBegin func(key []byte, count int) error
	VectorEnd   func(key []byte) error
	//
	// c is the typed-vector cursor itself, passed alongside data so
	// a callback can SeekIndex into a VectorKeyType vector to
	// dereference its element offsets into key text; data.Data holds
	// those offsets unresolved for every other element type.
	TypedVector func(key []byte, c Cursor, data TypedVectorData) error
}

// Parse performs a full, depth-first walk of the document rooted at
// c, invoking t's callbacks in physical order. It returns the first
// error any callback returns, or any structural error (ErrBadRead)
// encountered while navigating; either terminates the walk
// immediately.
func Parse(c Cursor, t ParserTable) error {
	return parseValue(nil, c, t)
}

func parseValue(key []byte, c Cursor, t ParserTable) error {
	switch c.typ {
	case NullType:
		return call(t.Null, key)
	case BoolType:
		v, err := c.Bool()
		if err != nil {
			return err
		}
		return callV(t.Bool, key, v)
	case SintType, IndirectSintType:
		v, err := c.Sint()
		if err != nil {
			return err
		}
		return callV(t.Sint, key, v)
	case UintType, IndirectUintType:
		v, err := c.Uint()
		if err != nil {
			return err
		}
		return callV(t.Uint, key, v)
	case FloatType, IndirectFloatType:
		if c.width == 4 {
			v, err := c.F32()
			if err != nil {
				return err
			}
			return callV(t.F32, key, v)
		}
		v, err := c.F64()
		if err != nil {
			return err
		}
		return callV(t.F64, key, v)
	case KeyType:
		v, err := c.Key()
		if err != nil {
			return err
		}
		return callV(t.Key, key, v)
	case StringType:
		v, err := c.String()
		if err != nil {
			return err
		}
		return callV(t.String, key, v)
	case BlobType:
		v, err := c.Blob()
		if err != nil {
			return err
		}
		return callV(t.Blob, key, v)
	case MapType:
		return parseMap(key, c, t)
	case VectorType:
		return parseVector(key, c, t)
	default:
		if _, ok := typedElem(c.typ); ok {
			data, err := c.TypedVectorData()
			if err != nil {
				return err
			}
			if t.TypedVector == nil {
				return nil
			}
			return t.TypedVector(key, c, data)
		}
		return fmt.Errorf("flexbuf: parser encountered unknown type %d: %w", c.typ, ErrInternal)
	}
}

func parseMap(key []byte, c Cursor, t ParserTable) error {
	count, err := c.Length()
	if err != nil {
		return err
	}
	if t.MapBegin != nil {
		if err := t.MapBegin(key, count); err != nil {
			return err
		}
	}
	err = c.Foreach(func(fieldKey []byte, v Cursor) (bool, error) {
		if err := parseValue(fieldKey, v, t); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if t.MapEnd != nil {
		return t.MapEnd(key)
	}
	return nil
}

func parseVector(key []byte, c Cursor, t ParserTable) error {
	count, err := c.Length()
	if err != nil {
		return err
	}
	if t.VectorBegin != nil {
		if err := t.VectorBegin(key, count); err != nil {
			return err
		}
	}
	err = c.Foreach(func(_ []byte, v Cursor) (bool, error) {
		if err := parseValue(nil, v, t); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if t.VectorEnd != nil {
		return t.VectorEnd(key)
	}
	return nil
}

func call(fn func([]byte) error, key []byte) error {
	if fn == nil {
		return nil
	}
	return fn(key)
}

func callV[T any](fn func([]byte, T) error, key []byte, v T) error {
	if fn == nil {
		return nil
	}
	return fn(key, v)
}
