// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package kvtest is a conformance suite for key-value store drivers.
package kvtest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

// Opener opens a store. Calling it again must reopen the same store.
type Opener = func() (keyvalue.Store, error)

// Factory returns an Opener for a new, empty store.
type Factory = func(t testing.TB) Opener

type closableStore struct {
	keyvalue.Store
	t      testing.TB
	closed bool
}

func (c *closableStore) Close() {
	if c.closed {
		return
	}
	c.closed = true
	require.NoError(c.t, c.Store.Close())
}

func openStore(t testing.TB, open Opener) *closableStore {
	db, err := open()
	require.NoError(t, err)
	c := &closableStore{db, t, false}
	t.Cleanup(c.Close)
	return c
}

type entry struct {
	Key, Value string
}

func scan(t testing.TB, db keyvalue.Store) []entry {
	var entries []entry
	require.NoError(t, db.ForEach(func(key, value []byte) error {
		entries = append(entries, entry{string(key), string(value)})
		return nil
	}))
	return entries
}

// TestStore runs the full suite. Persistent drivers are additionally checked
// for surviving a close and reopen.
func TestStore(t *testing.T, factory Factory, persistent bool) {
	t.Run("Empty", func(t *testing.T) { TestEmpty(t, factory(t)) })
	t.Run("Ordering", func(t *testing.T) { TestOrdering(t, factory(t)) })
	t.Run("Overwrite", func(t *testing.T) { TestOverwrite(t, factory(t)) })
	t.Run("Isolation", func(t *testing.T) { TestIsolation(t, factory(t)) })
	t.Run("StopIteration", func(t *testing.T) { TestStopIteration(t, factory(t)) })
	t.Run("PutAfterClose", func(t *testing.T) { TestPutAfterClose(t, factory(t)) })
	if persistent {
		t.Run("Reopen", func(t *testing.T) { TestReopen(t, factory(t)) })
	}
}

func TestEmpty(t *testing.T, open Opener) {
	db := openStore(t, open)
	require.Empty(t, scan(t, db.Store))
}

func TestOrdering(t *testing.T, open Opener) {
	const N = 300
	db := openStore(t, open)

	// Write in reverse so the driver has to sort
	for i := N - 1; i >= 0; i-- {
		require.NoError(t, db.Put(keyvalue.HeightKey(uint64(i)), []byte(fmt.Sprintf("block %d", i))))
	}

	entries := scan(t, db.Store)
	require.Len(t, entries, N)
	for i, e := range entries {
		h, err := keyvalue.ParseHeightKey([]byte(e.Key))
		require.NoError(t, err)
		require.Equal(t, uint64(i), h)
		require.Equal(t, fmt.Sprintf("block %d", i), e.Value)
	}
}

func TestOverwrite(t *testing.T, open Opener) {
	db := openStore(t, open)
	key := keyvalue.HeightKey(1)
	require.NoError(t, db.Put(key, []byte("first")))
	require.NoError(t, db.Put(key, []byte("second")))

	entries := scan(t, db.Store)
	require.Equal(t, []entry{{string(key), "second"}}, entries)
}

func TestIsolation(t *testing.T, open Opener) {
	db := openStore(t, open)

	// Mutating the caller's buffer after Put must not change the stored value
	value := []byte("value")
	require.NoError(t, db.Put(keyvalue.HeightKey(0), value))
	value[0] = 'X'

	// Mutating the buffer passed to the callback must not change the stored
	// value either
	require.NoError(t, db.ForEach(func(_, value []byte) error {
		value[0] = 'Y'
		return nil
	}))

	require.Equal(t, "value", scan(t, db.Store)[0].Value)
}

func TestStopIteration(t *testing.T, open Opener) {
	db := openStore(t, open)
	for i := 0; i < 5; i++ {
		require.NoError(t, db.Put(keyvalue.HeightKey(uint64(i)), []byte{byte(i)}))
	}

	stop := errors.Conflict.With("stop")
	var seen int
	err := db.ForEach(func(_, _ []byte) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, errors.Conflict)
	require.Equal(t, 2, seen)
}

func TestPutAfterClose(t *testing.T, open Opener) {
	db := openStore(t, open)
	db.Close()
	require.Error(t, db.Store.Put(keyvalue.HeightKey(0), []byte("late")))
}

func TestReopen(t *testing.T, open Opener) {
	db := openStore(t, open)
	for i := 0; i < 10; i++ {
		require.NoError(t, db.Put(keyvalue.HeightKey(uint64(i)), []byte(fmt.Sprint(i))))
	}
	db.Close()

	db = openStore(t, open)
	entries := scan(t, db.Store)
	require.Len(t, entries, 10)
	require.Equal(t, "9", entries[9].Value)
}
