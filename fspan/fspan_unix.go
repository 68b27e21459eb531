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

//go:build linux || darwin

package fspan

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/SnellerInc/flexic/flexbuf"
)

// mappedFile holds the mmap'd region behind a Span; Close must be
// called to release the mapping.
type mappedFile struct {
	data []byte
}

func openMapped(f *os.File, size int64) (flexbuf.Span, io.Closer, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return flexbuf.Span{}, nil, fmt.Errorf("fspan: mmap: %w", err)
	}
	return flexbuf.NewSpan(data), &mappedFile{data: data}, nil
}

func (m *mappedFile) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}
