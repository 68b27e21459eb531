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

// Package fspan opens a file on disk as a flexbuf.Span without
// copying its contents into the Go heap where the platform allows
// it, so that navigating a large document costs no more memory than
// the kernel's page cache already holds.
package fspan

import (
	"fmt"
	"io"
	"os"

	"github.com/SnellerInc/flexic/flexbuf"
)

// File is a Span backed by an open file. Close unmaps or releases
// the underlying memory; the Span must not be used afterward.
type File struct {
	flexbuf.Span
	closer io.Closer
}

// Close releases the File's backing memory.
func (f *File) Close() error {
	return f.closer.Close()
}

// OpenFile opens path and maps it read-only into memory on
// platforms that support it (mmap via golang.org/x/sys/unix),
// falling back to a single buffered read elsewhere.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fspan: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("fspan: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("fspan: %s is empty", path)
	}

	span, closer, err := openMapped(f, info.Size())
	if err != nil {
		return nil, err
	}
	return &File{Span: span, closer: closer}, nil
}
