// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package memory

import (
	"bytes"
	"slices"
	"sync"

	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
	"golang.org/x/exp/maps"
)

// Database is an in-memory key-value store. It is primarily intended for
// tests.
type Database struct {
	mu      sync.RWMutex
	entries map[string][]byte
	closed  bool
}

var _ keyvalue.Store = (*Database)(nil)

func New() *Database {
	return &Database{entries: map[string][]byte{}}
}

func (d *Database) Put(key, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.NotReady.With("database is closed")
	}

	d.entries[string(key)] = bytes.Clone(value)
	return nil
}

func (d *Database) ForEach(fn func(key, value []byte) error) error {
	// Copy the entries so fn may call back into the database
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return errors.NotReady.With("database is closed")
	}
	keys := maps.Keys(d.entries)
	values := make(map[string][]byte, len(keys))
	for _, k := range keys {
		values[k] = bytes.Clone(d.entries[k])
	}
	d.mu.RUnlock()

	slices.Sort(keys)
	for _, k := range keys {
		err := fn([]byte(k), values[k])
		if err != nil {
			return err
		}
	}
	return nil
}

// Close marks the database closed. The entries are discarded.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.entries = nil
	return nil
}

// Len returns the number of entries.
func (d *Database) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
