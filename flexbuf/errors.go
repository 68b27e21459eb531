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

import "errors"

// Sentinel errors returned by cursor and writer operations. Callers
// should match them with errors.Is, since they are frequently
// wrapped with additional context via fmt.Errorf("...: %w", ...).
var (
	// ErrBadRead means the input bytes are structurally corrupt:
	// an offset escapes the span, a declared length overruns the
	// buffer, or the root trailer is malformed.
	ErrBadRead = errors.New("flexbuf: corrupt or truncated document")

	// ErrBadType means the requested accessor does not apply to
	// the cursor's stored type.
	ErrBadType = errors.New("flexbuf: value is not of the requested type")

	// ErrRange means a type conversion's value does not fit in
	// the destination type.
	ErrRange = errors.New("flexbuf: value out of range for conversion")

	// ErrNotFound means a map key lookup found no matching key.
	ErrNotFound = errors.New("flexbuf: key not found")

	// ErrBadWrite means an output stream callback failed.
	ErrBadWrite = errors.New("flexbuf: output stream write failed")

	// ErrFailsafe means the writer is already in an error state;
	// the call was a no-op.
	ErrFailsafe = errors.New("flexbuf: writer already failed")

	// ErrInternal means an invariant the writer itself is
	// responsible for maintaining was violated.
	ErrInternal = errors.New("flexbuf: internal invariant violation")
)
