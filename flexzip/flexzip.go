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

// Package flexzip compresses and decompresses finalized flexbuf
// documents for storage or transport. A document's backward offsets
// are only meaningful once the writer has stopped appending to it,
// so compression here applies to a document's whole byte range
// rather than to the live Stream a Writer appends to.
package flexzip

import (
	"fmt"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"

	"github.com/SnellerInc/flexic/flexbuf"
)

// Codec names a compression algorithm usable on a finalized
// document.
type Codec interface {
	Name() string
	Compress(doc []byte) []byte
	Decompress(compressed []byte, rawLen int) ([]byte, error)
}

type s2Codec struct{}

func (s2Codec) Name() string { return "s2" }

func (s2Codec) Compress(doc []byte) []byte {
	return s2.Encode(nil, doc)
}

func (s2Codec) Decompress(compressed []byte, rawLen int) ([]byte, error) {
	dst := make([]byte, 0, rawLen)
	out, err := s2.Decode(dst[:0:rawLen], compressed)
	if err != nil {
		return nil, fmt.Errorf("flexzip: s2 decompress: %w", err)
	}
	return out, nil
}

type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstd returns a Codec backed by klauspost/compress's zstd
// implementation, for documents where s2's lighter compression
// ratio isn't worth the extra storage.
func NewZstd() (Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("flexzip: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("flexzip: zstd decoder: %w", err)
	}
	return zstdCodec{enc: enc, dec: dec}, nil
}

func (z zstdCodec) Name() string { return "zstd" }

func (z zstdCodec) Compress(doc []byte) []byte {
	return z.enc.EncodeAll(doc, nil)
}

func (z zstdCodec) Decompress(compressed []byte, rawLen int) ([]byte, error) {
	out, err := z.dec.DecodeAll(compressed, make([]byte, 0, rawLen))
	if err != nil {
		return nil, fmt.Errorf("flexzip: zstd decompress: %w", err)
	}
	return out, nil
}

// S2 is the default Codec: fast compression suited to documents that
// are written once and read often.
var S2 Codec = s2Codec{}

// Blob is a compressed document together with the metadata needed
// to decompress and open it.
type Blob struct {
	Codec      string
	RawLen     int
	Compressed []byte
}

// Compress compresses a finalized document's bytes with codec.
func Compress(doc []byte, codec Codec) Blob {
	return Blob{Codec: codec.Name(), RawLen: len(doc), Compressed: codec.Compress(doc)}
}

// Open decompresses b and resolves it as a flexbuf Span. codecs maps
// codec names (as stored in Blob.Codec) to the Codec that can
// decompress them.
func Open(b Blob, codecs map[string]Codec) (flexbuf.Span, error) {
	codec, ok := codecs[b.Codec]
	if !ok {
		return flexbuf.Span{}, fmt.Errorf("flexzip: unknown codec %q", b.Codec)
	}
	raw, err := codec.Decompress(b.Compressed, b.RawLen)
	if err != nil {
		return flexbuf.Span{}, err
	}
	return flexbuf.NewSpan(raw), nil
}
