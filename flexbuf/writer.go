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
	"math"

	"golang.org/x/exp/slices"
)

// Writer accumulates values on a Stack and emits a finalized
// document bottom-up to a Stream: leaves first, then the
// composites that reference them by backward offset, then a root
// trailer. It owns no storage of its own; Stack and Stream are
// supplied by the caller so the writer can run in environments that
// dictate allocation.
//
// Once any call fails, the error is sticky: every subsequent call
// returns ErrFailsafe without touching the stack or stream. This
// lets callers omit per-call error checks and test once before
// Finalize.
type Writer struct {
	stack  Stack
	stream Stream
	intern Interner

	err        error
	keyOffsets map[string]uint64
}

// NewWriter returns a Writer backed by the given Stack and Stream.
// intern may be nil.
func NewWriter(stack Stack, stream Stream, intern Interner) *Writer {
	return &Writer{
		stack:      stack,
		stream:     stream,
		intern:     intern,
		keyOffsets: make(map[string]uint64),
	}
}

// Err returns the writer's sticky error, or nil if no call has
// failed yet and Finalize has not run. A successful Finalize also
// sets the sticky error, so that later calls return ErrFailsafe.
func (w *Writer) Err() error { return w.err }

func (w *Writer) fail(err error) error {
	if w.err == nil {
		w.err = err
	}
	return err
}

func (w *Writer) checked() error {
	if w.err != nil {
		return ErrFailsafe
	}
	return nil
}

// emitKey interns (if configured), dedups against previously
// emitted keys, and otherwise writes key as NUL-terminated bytes,
// returning the stream offset of its first byte.
func (w *Writer) emitKey(key string) (uint64, error) {
	if w.intern != nil {
		key = w.intern.Intern(key)
	}
	if off, ok := w.keyOffsets[key]; ok {
		return off, nil
	}
	off := uint64(w.stream.Tell())
	buf := make([]byte, len(key)+1)
	copy(buf, key)
	if _, err := w.stream.Write(buf); err != nil {
		return 0, fmt.Errorf("flexbuf: writing key %q: %w", key, ErrBadWrite)
	}
	w.keyOffsets[key] = off
	return off, nil
}

// push allocates a new stack slot, attaching key (if non-empty) to
// it as the field key for a later map().
func (w *Writer) push(key string) (*Slot, error) {
	var hasKey bool
	var keyOff uint64
	if key != "" {
		off, err := w.emitKey(key)
		if err != nil {
			return nil, w.fail(err)
		}
		hasKey, keyOff = true, off
	}
	s := w.stack.Push()
	*s = Slot{HasKey: hasKey, KeyOffset: keyOff}
	return s, nil
}

// streamKeyAt re-reads a NUL-terminated key previously written to
// the stream at byte offset off, used by map_keys to sort and
// dedup keys by their own emitted bytes.
func (w *Writer) streamKeyAt(off uint64) []byte {
	var buf []byte
	for i := int(off); ; i++ {
		b := w.stream.DataAt(i)
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return buf
}

// ---- leaf operations ----

// Null pushes a null value.
func (w *Writer) Null(key string) error {
	if err := w.checked(); err != nil {
		return err
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width = SlotValue, NullType, Width1B
	return nil
}

// Bool pushes a boolean value.
func (w *Writer) Bool(key string, v bool) error {
	if err := w.checked(); err != nil {
		return err
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width = SlotValue, BoolType, Width1B
	if v {
		s.Bits = 1
	}
	return nil
}

// Sint pushes a signed integer value, using the smallest width that
// represents it.
func (w *Writer) Sint(key string, v int64) error {
	if err := w.checked(); err != nil {
		return err
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, SintType, minWidthSint(v), uint64(v)
	return nil
}

// Uint pushes an unsigned integer value, using the smallest width
// that represents it.
func (w *Writer) Uint(key string, v uint64) error {
	if err := w.checked(); err != nil {
		return err
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, UintType, minWidthUint(v), v
	return nil
}

// F32 pushes a 32-bit float value.
func (w *Writer) F32(key string, v float32) error {
	if err := w.checked(); err != nil {
		return err
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, FloatType, Width4B, math.Float64bits(float64(v))
	return nil
}

// F64 pushes a 64-bit float value.
func (w *Writer) F64(key string, v float64) error {
	if err := w.checked(); err != nil {
		return err
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, FloatType, Width8B, math.Float64bits(v)
	return nil
}

func (w *Writer) writeRaw(bits uint64, width Width) error {
	buf := make([]byte, width.Bytes())
	putUint(buf, bits, width)
	if _, err := w.stream.Write(buf); err != nil {
		return fmt.Errorf("flexbuf: writing value: %w", ErrBadWrite)
	}
	return nil
}

// IndirectSint emits v's bytes to the stream and pushes an
// indirect-single slot referencing them, rather than embedding v
// inline in whatever vector or map slot eventually holds it.
func (w *Writer) IndirectSint(key string, v int64) error {
	if err := w.checked(); err != nil {
		return err
	}
	width := minWidthSint(v)
	off := uint64(w.stream.Tell())
	if err := w.writeRaw(uint64(v), width); err != nil {
		return w.fail(err)
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, IndirectSintType, width, off
	return nil
}

// IndirectUint is the unsigned counterpart of IndirectSint.
func (w *Writer) IndirectUint(key string, v uint64) error {
	if err := w.checked(); err != nil {
		return err
	}
	width := minWidthUint(v)
	off := uint64(w.stream.Tell())
	if err := w.writeRaw(v, width); err != nil {
		return w.fail(err)
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, IndirectUintType, width, off
	return nil
}

// IndirectF32 is the float32 counterpart of IndirectSint.
func (w *Writer) IndirectF32(key string, v float32) error {
	if err := w.checked(); err != nil {
		return err
	}
	off := uint64(w.stream.Tell())
	if err := w.writeRaw(uint64(math.Float32bits(v)), Width4B); err != nil {
		return w.fail(err)
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, IndirectFloatType, Width4B, off
	return nil
}

// IndirectF64 is the float64 counterpart of IndirectSint.
func (w *Writer) IndirectF64(key string, v float64) error {
	if err := w.checked(); err != nil {
		return err
	}
	off := uint64(w.stream.Tell())
	if err := w.writeRaw(math.Float64bits(v), Width8B); err != nil {
		return w.fail(err)
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, IndirectFloatType, Width8B, off
	return nil
}

// Key pushes a standalone KEY value: a NUL-terminated identifier,
// deduplicated against any identical key text already emitted.
// Key is used both to write KEY-typed document values and, ahead
// of a MapKeys call, to stage a map's field names.
func (w *Writer) Key(key string, text string) error {
	if err := w.checked(); err != nil {
		return err
	}
	off, err := w.emitKey(text)
	if err != nil {
		return w.fail(err)
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, KeyType, Width1B, off
	return nil
}

// String pushes a length-prefixed, NUL-terminated string value.
func (w *Writer) String(key string, text string) error {
	if err := w.checked(); err != nil {
		return err
	}
	prefixWidth := minWidthUint(uint64(len(text)))
	prefix := make([]byte, prefixWidth.Bytes())
	putUint(prefix, uint64(len(text)), prefixWidth)
	if _, err := w.stream.Write(prefix); err != nil {
		return w.fail(fmt.Errorf("flexbuf: writing string length: %w", ErrBadWrite))
	}
	off := uint64(w.stream.Tell())
	body := make([]byte, len(text)+1)
	copy(body, text)
	if _, err := w.stream.Write(body); err != nil {
		return w.fail(fmt.Errorf("flexbuf: writing string body: %w", ErrBadWrite))
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, StringType, prefixWidth, off
	return nil
}

// Blob pushes a length-prefixed binary value using exactly the
// given stride for its length prefix; stride must be wide enough to
// hold len(p).
func (w *Writer) Blob(key string, p []byte, stride Width) error {
	if err := w.checked(); err != nil {
		return err
	}
	if minWidthUint(uint64(len(p))) > stride {
		return w.fail(fmt.Errorf("flexbuf: blob stride %d too narrow for %d-byte payload: %w", stride.Bytes(), len(p), ErrInternal))
	}
	prefix := make([]byte, stride.Bytes())
	putUint(prefix, uint64(len(p)), stride)
	if _, err := w.stream.Write(prefix); err != nil {
		return w.fail(fmt.Errorf("flexbuf: writing blob length: %w", ErrBadWrite))
	}
	off := uint64(w.stream.Tell())
	if _, err := w.stream.Write(p); err != nil {
		return w.fail(fmt.Errorf("flexbuf: writing blob body: %w", ErrBadWrite))
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, BlobType, stride, off
	return nil
}

// ---- width-fit iteration, shared by Vector, MapKeys, and Map ----

// offsetRef is one backward-offset that must fit within the
// stride eventually chosen for a composite: slotPos gives the
// absolute byte position the reference would occupy for a
// candidate stride, and payload is the already-known byte offset
// it must reach.
type offsetRef struct {
	slotPos func(stride Width) int
	payload uint64
}

// fitStride returns the smallest Width >= floor at which every ref
// resolves to a backward offset representable in that width. Per
// the offset-fit property, growing the stride can itself grow the
// distances (slot positions move further from the payloads they
// reference), so this iterates to a fixed point rather than
// computing the requirement once.
func fitStride(floor Width, refs []offsetRef) (Width, error) {
	stride := floor
	for {
		ok := true
		for _, r := range refs {
			pos := r.slotPos(stride)
			dist := uint64(pos) - r.payload
			if minWidthOffset(dist) > stride {
				ok = false
				break
			}
		}
		if ok {
			return stride, nil
		}
		if stride == Width8B {
			return 0, fmt.Errorf("flexbuf: no width up to 8 bytes fits every backward offset: %w", ErrInternal)
		}
		stride++
	}
}

func directFloor(hint Width, children []Slot) Width {
	floor := hint
	if floor < Width1B {
		floor = Width1B
	}
	for _, c := range children {
		if IsDirect(c.Type) {
			floor = maxWidth(floor, c.Width)
		}
	}
	return floor
}

// popSlots removes the top n slots from the stack and returns them
// in their original (bottom-to-top) order.
func (w *Writer) popSlots(n int) []Slot {
	start := w.stack.Count() - n
	out := make([]Slot, n)
	for i := 0; i < n; i++ {
		out[i] = *w.stack.At(start + i)
	}
	w.stack.Pop(n)
	return out
}

// Vector pops the top count slots and emits them as a heterogeneous
// vector: a length-prefix, the count child slots serialized at a
// common stride, and the count child packed-type bytes.
func (w *Writer) Vector(key string, count int, widthHint Width) error {
	if err := w.checked(); err != nil {
		return err
	}
	if count < 0 || count > w.stack.Count() {
		return w.fail(fmt.Errorf("flexbuf: vector count %d exceeds stack depth %d: %w", count, w.stack.Count(), ErrInternal))
	}
	children := w.popSlots(count)

	floor := directFloor(widthHint, children)
	base := w.stream.Tell()
	var refs []offsetRef
	for i, c := range children {
		if IsDirect(c.Type) {
			continue
		}
		idx := i
		refs = append(refs, offsetRef{
			slotPos: func(s Width) int { return base + s.Bytes() + idx*s.Bytes() },
			payload: c.Bits,
		})
	}
	stride, err := fitStride(floor, refs)
	if err != nil {
		return w.fail(err)
	}

	if err := w.emitLengthPrefix(count, stride); err != nil {
		return w.fail(err)
	}
	dataOff := w.stream.Tell()
	for i, c := range children {
		var bits uint64
		if IsDirect(c.Type) {
			bits = c.Bits
			if c.Type == FloatType && stride == Width4B {
				bits = uint64(math.Float32bits(float32(math.Float64frombits(bits))))
			}
		} else {
			slotPos := dataOff + i*stride.Bytes()
			bits = uint64(slotPos) - c.Bits
		}
		if err := w.writeRaw(bits, stride); err != nil {
			return w.fail(err)
		}
	}
	types := make([]byte, count)
	for i, c := range children {
		types[i] = Pack(c.Type, c.Width)
	}
	if _, err := w.stream.Write(types); err != nil {
		return w.fail(fmt.Errorf("flexbuf: writing vector type array: %w", ErrBadWrite))
	}

	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, VectorType, stride, uint64(dataOff)
	return nil
}

func (w *Writer) emitLengthPrefix(count int, stride Width) error {
	prefix := make([]byte, stride.Bytes())
	putUint(prefix, uint64(count), stride)
	if _, err := w.stream.Write(prefix); err != nil {
		return fmt.Errorf("flexbuf: writing length prefix: %w", ErrBadWrite)
	}
	return nil
}

// typedVectorType chooses the wire type for a typed vector of the
// given element type and count, selecting a fixed-arity variant
// when 2 <= count <= 4 and the element is sint/uint/float.
func typedVectorType(elem Type, count int) Type {
	if count >= 2 && count <= 4 {
		switch elem {
		case SintType:
			return []Type{VectorSint2Type, VectorSint3Type, VectorSint4Type}[count-2]
		case UintType:
			return []Type{VectorUint2Type, VectorUint3Type, VectorUint4Type}[count-2]
		case FloatType:
			return []Type{VectorFloat2Type, VectorFloat3Type, VectorFloat4Type}[count-2]
		}
	}
	switch elem {
	case SintType:
		return VectorSintType
	case UintType:
		return VectorUintType
	case FloatType:
		return VectorFloatType
	case KeyType:
		return VectorKeyType
	default:
		return VectorBoolType
	}
}

// TypedVectorSint emits count int64s from p as a typed vector of
// the given element width.
func (w *Writer) TypedVectorSint(key string, p []int64, width Width) error {
	raw := make([]byte, len(p)*width.Bytes())
	for i, v := range p {
		putUint(raw[i*width.Bytes():], uint64(v), width)
	}
	return w.typedVector(key, SintType, width, len(p), raw)
}

// TypedVectorUint emits count uint64s from p as a typed vector of
// the given element width.
func (w *Writer) TypedVectorUint(key string, p []uint64, width Width) error {
	raw := make([]byte, len(p)*width.Bytes())
	for i, v := range p {
		putUint(raw[i*width.Bytes():], v, width)
	}
	return w.typedVector(key, UintType, width, len(p), raw)
}

// TypedVectorFloat emits count float64s from p as a typed vector of
// the given element width (4 for float32, 8 for float64).
func (w *Writer) TypedVectorFloat(key string, p []float64, width Width) error {
	raw := make([]byte, len(p)*width.Bytes())
	for i, v := range p {
		if width == Width4B {
			putUint(raw[i*4:], uint64(math.Float32bits(float32(v))), Width4B)
		} else {
			putUint(raw[i*8:], math.Float64bits(v), Width8B)
		}
	}
	return w.typedVector(key, FloatType, width, len(p), raw)
}

// TypedVectorBool emits p as a typed vector of one byte per
// element.
func (w *Writer) TypedVectorBool(key string, p []bool) error {
	raw := make([]byte, len(p))
	for i, v := range p {
		if v {
			raw[i] = 1
		}
	}
	return w.typedVector(key, BoolType, Width1B, len(p), raw)
}

func (w *Writer) typedVector(key string, elem Type, width Width, count int, raw []byte) error {
	if err := w.checked(); err != nil {
		return err
	}
	_, fixed := fixedArity(typedVectorType(elem, count))
	if !fixed {
		if err := w.emitLengthPrefix(count, width); err != nil {
			return w.fail(err)
		}
	}
	off := uint64(w.stream.Tell())
	if _, err := w.stream.Write(raw); err != nil {
		return w.fail(fmt.Errorf("flexbuf: writing typed vector body: %w", ErrBadWrite))
	}
	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, typedVectorType(elem, count), width, off
	return nil
}

// MapKeys pops the top count KEY slots, sorts them ascending by
// byte-lexicographic key text, and emits them as a typed vector of
// KEY (the map's "keyset"). It returns an opaque stack index that
// must be passed to the following Map call. MapKeys fails with
// ErrInternal if any two of the count keys compare equal: a map
// whose keyset is not strictly ascending cannot be found
// deterministically by SeekKey's binary search.
func (w *Writer) MapKeys(count int, widthHint Width) (int, error) {
	if err := w.checked(); err != nil {
		return 0, err
	}
	if count < 0 || count > w.stack.Count() {
		return 0, w.fail(fmt.Errorf("flexbuf: map_keys count %d exceeds stack depth %d: %w", count, w.stack.Count(), ErrInternal))
	}
	keys := w.popSlots(count)
	for _, k := range keys {
		if k.Type != KeyType {
			return 0, w.fail(fmt.Errorf("flexbuf: map_keys requires KEY slots: %w", ErrInternal))
		}
	}

	slices.SortFunc(keys, func(a, b Slot) bool {
		return bytes.Compare(w.streamKeyAt(a.Bits), w.streamKeyAt(b.Bits)) < 0
	})
	for i := 1; i < len(keys); i++ {
		if bytes.Equal(w.streamKeyAt(keys[i-1].Bits), w.streamKeyAt(keys[i].Bits)) {
			return 0, w.fail(fmt.Errorf("flexbuf: duplicate map key %q: %w", w.streamKeyAt(keys[i].Bits), ErrInternal))
		}
	}

	floor := widthHint
	if floor < Width1B {
		floor = Width1B
	}
	base := w.stream.Tell()
	refs := make([]offsetRef, count)
	for i, k := range keys {
		idx := i
		refs[i] = offsetRef{
			slotPos: func(s Width) int { return base + s.Bytes() + idx*s.Bytes() },
			payload: k.Bits,
		}
	}
	stride, err := fitStride(floor, refs)
	if err != nil {
		return 0, w.fail(err)
	}

	if err := w.emitLengthPrefix(count, stride); err != nil {
		return 0, w.fail(err)
	}
	dataOff := w.stream.Tell()
	order := make([]uint64, count)
	for i, k := range keys {
		slotPos := dataOff + i*stride.Bytes()
		dist := uint64(slotPos) - k.Bits
		if err := w.writeRaw(dist, stride); err != nil {
			return 0, w.fail(err)
		}
		order[i] = k.Bits
	}

	s := w.stack.Push()
	*s = Slot{
		Kind:         SlotKeyset,
		KeysetOffset: uint64(dataOff),
		KeysetStride: stride,
		KeysetCount:  count,
		KeysetOrder:  order,
	}
	return w.stack.Count() - 1, nil
}

// Map pops the top count value slots (each of which must have been
// pushed with a non-empty key, matching one of the keys staged by
// the MapKeys call that produced keysetID) and the keyset itself,
// reorders the values into the keyset's sorted order, and emits the
// map's header, length-prefix, value slots, and packed-type array.
func (w *Writer) Map(key string, keysetID int, count int, widthHint Width) error {
	if err := w.checked(); err != nil {
		return err
	}
	if count < 0 || count > w.stack.Count() {
		return w.fail(fmt.Errorf("flexbuf: map count %d exceeds stack depth %d: %w", count, w.stack.Count(), ErrInternal))
	}
	start := w.stack.Count() - count
	if keysetID != start-1 {
		return w.fail(fmt.Errorf("flexbuf: keyset must sit directly beneath the %d map values: %w", count, ErrInternal))
	}
	keyset := *w.stack.At(keysetID)
	if keyset.Kind != SlotKeyset {
		return w.fail(fmt.Errorf("flexbuf: map keysetID does not reference a keyset: %w", ErrInternal))
	}
	if count != keyset.KeysetCount {
		return w.fail(fmt.Errorf("flexbuf: map count %d does not match keyset count %d: %w", count, keyset.KeysetCount, ErrInternal))
	}

	values := w.popSlots(count)
	w.stack.Pop(1) // the keyset marker

	reordered := make([]Slot, count)
	used := make([]bool, count)
	for p, keyOff := range keyset.KeysetOrder {
		found := false
		for i, v := range values {
			if used[i] || !v.HasKey || v.KeyOffset != keyOff {
				continue
			}
			reordered[p] = v
			used[i] = true
			found = true
			break
		}
		if !found {
			return w.fail(fmt.Errorf("flexbuf: map value for key offset %d not supplied: %w", keyOff, ErrInternal))
		}
	}

	floor := directFloor(widthHint, reordered)
	base := w.stream.Tell()
	refs := []offsetRef{{
		slotPos: func(s Width) int { return base },
		payload: keyset.KeysetOffset,
	}}
	for i, v := range reordered {
		if IsDirect(v.Type) {
			continue
		}
		idx := i
		refs = append(refs, offsetRef{
			slotPos: func(s Width) int { return base + 3*s.Bytes() + idx*s.Bytes() },
			payload: v.Bits,
		})
	}
	stride, err := fitStride(floor, refs)
	if err != nil {
		return w.fail(err)
	}

	distKeys := uint64(base) - keyset.KeysetOffset
	if err := w.writeRaw(distKeys, stride); err != nil {
		return w.fail(err)
	}
	if err := w.writeRaw(uint64(keyset.KeysetStride.Bytes()), stride); err != nil {
		return w.fail(err)
	}
	if err := w.emitLengthPrefix(count, stride); err != nil {
		return w.fail(err)
	}
	dataOff := w.stream.Tell()
	for i, v := range reordered {
		var bits uint64
		if IsDirect(v.Type) {
			bits = v.Bits
			if v.Type == FloatType && stride == Width4B {
				bits = uint64(math.Float32bits(float32(math.Float64frombits(bits))))
			}
		} else {
			slotPos := dataOff + i*stride.Bytes()
			bits = uint64(slotPos) - v.Bits
		}
		if err := w.writeRaw(bits, stride); err != nil {
			return w.fail(err)
		}
	}
	types := make([]byte, count)
	for i, v := range reordered {
		types[i] = Pack(v.Type, v.Width)
	}
	if _, err := w.stream.Write(types); err != nil {
		return w.fail(fmt.Errorf("flexbuf: writing map type array: %w", ErrBadWrite))
	}

	s, err := w.push(key)
	if err != nil {
		return err
	}
	s.Kind, s.Type, s.Width, s.Bits = SlotValue, MapType, stride, uint64(dataOff)
	return nil
}

// Finalize emits the root trailer for the single remaining value on
// the stack: its inline bytes (direct) or backward offset
// (indirect), the value's packed type byte, and a final byte giving
// the width of what precedes it. After Finalize succeeds (or
// fails), every subsequent Writer call returns ErrFailsafe.
func (w *Writer) Finalize() error {
	if err := w.checked(); err != nil {
		return err
	}
	if w.stack.Count() != 1 {
		return w.fail(fmt.Errorf("flexbuf: finalize requires exactly one value on the stack, have %d: %w", w.stack.Count(), ErrInternal))
	}
	root := *w.stack.At(0)
	w.stack.Pop(1)

	var width Width
	var bits uint64
	if IsDirect(root.Type) {
		width = root.Width
		if width < Width1B {
			width = Width1B
		}
		bits = root.Bits
		if root.Type == FloatType && width == Width4B {
			bits = uint64(math.Float32bits(float32(math.Float64frombits(bits))))
		}
	} else {
		pos := uint64(w.stream.Tell())
		bits = pos - root.Bits
		width = minWidthOffset(bits)
	}
	if err := w.writeRaw(bits, width); err != nil {
		w.fail(err)
		return err
	}
	packed := Pack(root.Type, root.Width)
	if _, err := w.stream.Write([]byte{packed, byte(width.Bytes())}); err != nil {
		return w.fail(fmt.Errorf("flexbuf: writing root trailer: %w", ErrBadWrite))
	}
	w.fail(fmt.Errorf("flexbuf: writer already finalized: %w", ErrFailsafe))
	return nil
}
