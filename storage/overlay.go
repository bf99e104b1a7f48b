// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
)

var _ database.Database = &Overlay{}

// NewMem returns an empty in-memory store suitable as the root of an overlay
// chain.
func NewMem() database.Database {
	return memdb.New()
}

// Overlay is a copy-on-write view over a parent database.
//
// Reads consult the overlay's own write-set first and fall through to the
// parent on a miss. Writes and deletes only touch the write-set until Commit
// flushes them into the parent in a single batch. The parent may itself be an
// Overlay, so overlays nest to arbitrary depth.
//
// An Overlay is single use: after Commit or Discard every operation, including
// iterators created afterwards, reports database.ErrClosed.
type Overlay struct {
	*versiondb.Database

	closed bool
}

// NewOverlay returns an overlay with an empty write-set over [parent].
// [parent] must not be written to by anyone else while the overlay is open.
func NewOverlay(parent database.Database) *Overlay {
	return &Overlay{Database: versiondb.New(parent)}
}

// Commit applies the write-set to the parent and closes the overlay.
func (o *Overlay) Commit() error {
	if o.closed {
		return database.ErrClosed
	}
	if err := o.Database.Commit(); err != nil {
		return err
	}
	o.closed = true
	return o.Database.Close()
}

// Discard drops the write-set, leaving the parent untouched, and closes the
// overlay. Discard is a no-op on an overlay that was already committed or
// discarded, so callers may defer it unconditionally.
func (o *Overlay) Discard() {
	if o.closed {
		return
	}
	o.closed = true
	o.Database.Abort()
	_ = o.Database.Close()
}

// Closed reports whether the overlay was committed or discarded.
func (o *Overlay) Closed() bool { return o.closed }
