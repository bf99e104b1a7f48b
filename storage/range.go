// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"bytes"

	"github.com/ava-labs/avalanchego/database"
)

// Iterator walks the keys of a database in ascending order within [start, end).
type Iterator struct {
	it  database.Iterator
	end []byte

	done bool
}

// Range returns an iterator over every pair of [db] with start <= key < end.
// A nil [start] begins at the first key and a nil [end] runs to the last one.
// The iterator must be released once the caller is done with it.
func Range(db database.Iteratee, start, end []byte) *Iterator {
	return &Iterator{
		it:  db.NewIteratorWithStart(start),
		end: end,
	}
}

// Prefix returns an iterator over every pair of [db] whose key starts with
// [prefix].
func Prefix(db database.Iteratee, prefix []byte) *Iterator {
	return &Iterator{it: db.NewIteratorWithPrefix(prefix)}
}

// Next moves to the next pair and reports whether there is one.
func (i *Iterator) Next() bool {
	if i.done {
		return false
	}
	if !i.it.Next() {
		i.done = true
		return false
	}
	if i.end != nil && bytes.Compare(i.it.Key(), i.end) >= 0 {
		i.done = true
		return false
	}
	return true
}

func (i *Iterator) Key() []byte   { return i.it.Key() }
func (i *Iterator) Value() []byte { return i.it.Value() }
func (i *Iterator) Error() error  { return i.it.Error() }
func (i *Iterator) Release()      { i.it.Release() }

// KeyValue is a single stored pair.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// Dump returns every pair of [db] in key order.
func Dump(db database.Iteratee) ([]KeyValue, error) {
	it := Range(db, nil, nil)
	defer it.Release()

	var pairs []KeyValue
	for it.Next() {
		pairs = append(pairs, KeyValue{
			Key:   copyBytes(it.Key()),
			Value: copyBytes(it.Value()),
		})
	}
	return pairs, it.Error()
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
