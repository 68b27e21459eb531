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
	"encoding/base64"
	"io"
	"strconv"
	"unicode/utf8"
)

// WriteJSON walks the document rooted at c and writes its JSON
// rendering to w, driving Parse with a ParserTable rather than
// building an intermediate tree. Typed vectors are rendered as JSON
// arrays of their scalar element type; blobs are base64-encoded
// strings; keys (outside of a map's field position) are rendered as
// plain JSON strings.
func WriteJSON(w io.Writer, c Cursor) error {
	e := &jsonEncoder{w: w}
	t := ParserTable{
		Null:        func(key []byte) error { e.comma(key); return e.raw("null") },
		Bool:        func(key []byte, v bool) error { e.comma(key); return e.raw(strconv.FormatBool(v)) },
		Sint:        func(key []byte, v int64) error { e.comma(key); return e.raw(strconv.FormatInt(v, 10)) },
		Uint:        func(key []byte, v uint64) error { e.comma(key); return e.raw(strconv.FormatUint(v, 10)) },
		F32:         func(key []byte, v float32) error { e.comma(key); return e.raw(strconv.FormatFloat(float64(v), 'g', -1, 32)) },
		F64:         func(key []byte, v float64) error { e.comma(key); return e.raw(strconv.FormatFloat(v, 'g', -1, 64)) },
		Key:         func(key []byte, v []byte) error { e.comma(key); return e.quoted(v) },
		String:      func(key []byte, v []byte) error { e.comma(key); return e.quoted(v) },
		Blob:        func(key []byte, v []byte) error { e.comma(key); return e.blob(v) },
		MapBegin:    func(key []byte, count int) error { e.comma(key); return e.open('{') },
		MapEnd:      func(key []byte) error { return e.close('}') },
		VectorBegin: func(key []byte, count int) error { e.comma(key); return e.open('[') },
		VectorEnd:   func(key []byte) error { return e.close(']') },
		TypedVector: func(key []byte, c Cursor, data TypedVectorData) error { e.comma(key); return e.typedVector(c, data) },
	}
	if err := Parse(c, t); err != nil {
		return err
	}
	return e.err
}

// jsonEncoder writes a JSON value stream directly to an io.Writer,
// tracking only enough state (an open-bracket stack and a
// first-child flag per level) to place commas correctly; it never
// materializes the document's tree shape.
type jsonEncoder struct {
	w        io.Writer
	buf      []byte
	err      error
	depth    []bool // per open composite: have we emitted a child yet
}

func (e *jsonEncoder) raw(s string) error {
	if e.err != nil {
		return e.err
	}
	_, e.err = io.WriteString(e.w, s)
	return e.err
}

func (e *jsonEncoder) rawBytes(p []byte) error {
	if e.err != nil {
		return e.err
	}
	_, e.err = e.w.Write(p)
	return e.err
}

// comma emits a leading ',' if this isn't the first child of the
// current composite, and a leading "key": if key is non-nil.
func (e *jsonEncoder) comma(key []byte) {
	if e.err != nil {
		return
	}
	if n := len(e.depth); n > 0 {
		if e.depth[n-1] {
			e.raw(",")
		}
		e.depth[n-1] = true
	}
	if key != nil {
		e.quoted(key)
		e.raw(":")
	}
}

func (e *jsonEncoder) open(b byte) error {
	e.depth = append(e.depth, false)
	return e.rawBytes([]byte{b})
}

func (e *jsonEncoder) close(b byte) error {
	e.depth = e.depth[:len(e.depth)-1]
	return e.rawBytes([]byte{b})
}

func (e *jsonEncoder) blob(p []byte) error {
	dst := make([]byte, base64.StdEncoding.EncodedLen(len(p))+2)
	dst[0] = '"'
	base64.StdEncoding.Encode(dst[1:len(dst)-1], p)
	dst[len(dst)-1] = '"'
	return e.rawBytes(dst)
}

func (e *jsonEncoder) typedVector(c Cursor, data TypedVectorData) error {
	if err := e.raw("["); err != nil {
		return err
	}
	for i := 0; i < data.Count; i++ {
		if i > 0 {
			if err := e.raw(","); err != nil {
				return err
			}
		}
		var err error
		if data.ElemType == KeyType {
			kc, kerr := c.SeekIndex(i)
			if kerr != nil {
				return kerr
			}
			text, kerr := kc.Key()
			if kerr != nil {
				return kerr
			}
			err = e.quoted(text)
		} else {
			p := data.Data[i*data.ElemWidth : (i+1)*data.ElemWidth]
			w, _ := widthFromBytes(data.ElemWidth)
			switch data.ElemType {
			case SintType:
				err = e.raw(strconv.FormatInt(readInt(p, w), 10))
			case UintType:
				err = e.raw(strconv.FormatUint(readUint(p, w), 10))
			case FloatType:
				err = e.raw(strconv.FormatFloat(readFloat(p, w), 'g', -1, data.ElemWidth*8))
			case BoolType:
				err = e.raw(strconv.FormatBool(p[0] != 0))
			}
		}
		if err != nil {
			return err
		}
	}
	return e.raw("]")
}

// quoted writes in as a double-quoted, escaped JSON string.
func (e *jsonEncoder) quoted(in []byte) error {
	e.buf = e.buf[:0]
	e.buf = append(e.buf, '"')
	start := 0
	for i := 0; i < len(in); {
		if b := in[i]; b < utf8.RuneSelf {
			if jsonSafe[b] {
				i++
				continue
			}
			if start < i {
				e.buf = append(e.buf, in[start:i]...)
			}
			e.buf = append(e.buf, '\\')
			switch b {
			case '\\', '"':
				e.buf = append(e.buf, b)
			case '\n':
				e.buf = append(e.buf, 'n')
			case '\r':
				e.buf = append(e.buf, 'r')
			case '\t':
				e.buf = append(e.buf, 't')
			default:
				e.buf = append(e.buf, 'u', '0', '0', jsonHex[b>>4], jsonHex[b&0xf])
			}
			i++
			start = i
			continue
		}
		_, size := utf8.DecodeRune(in[i:])
		i += size
	}
	if start < len(in) {
		e.buf = append(e.buf, in[start:]...)
	}
	e.buf = append(e.buf, '"')
	return e.rawBytes(e.buf)
}

var jsonHex = "0123456789abcdef"

// jsonSafe mirrors the control-character/quote/backslash escaping
// rules any JSON string encoder needs; everything else in the ASCII
// range passes through unescaped.
var jsonSafe = [utf8.RuneSelf]bool{}

func init() {
	for i := 0x20; i < utf8.RuneSelf; i++ {
		jsonSafe[i] = true
	}
	jsonSafe['"'] = false
	jsonSafe['\\'] = false
}
