// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package keyvalue

import (
	"encoding/binary"
	"os"

	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

// Store is an ordered key-value store.
type Store interface {
	// Put writes a key-value pair. Put must not return until the value is
	// durably written (as durable as the driver allows).
	Put(key, value []byte) error

	// ForEach calls fn for every entry in ascending byte order of the keys.
	// Keys and values passed to fn are owned by the caller.
	ForEach(fn func(key, value []byte) error) error

	// Close releases the underlying handle.
	Close() error
}

// HeightKeyLength is the length of a height key.
const HeightKeyLength = 8

// HeightKey encodes a height as an 8-byte big-endian key so that the native
// byte ordering of every driver matches the numeric ordering of heights.
func HeightKey(height uint64) []byte {
	var b [HeightKeyLength]byte
	binary.BigEndian.PutUint64(b[:], height)
	return b[:]
}

// ParseHeightKey decodes a key created by HeightKey.
func ParseHeightKey(key []byte) (uint64, error) {
	if len(key) != HeightKeyLength {
		return 0, errors.EncodingError.WithFormat("invalid height key: want %d bytes, got %d", HeightKeyLength, len(key))
	}
	return binary.BigEndian.Uint64(key), nil
}

// Destroy irrecoverably removes the storage at the given location. The store
// must be closed first.
func Destroy(location string) error {
	if location == "" {
		return nil
	}
	err := os.RemoveAll(location)
	if err != nil {
		return errors.StorageFailure.WithFormat("remove %q: %w", location, err)
	}
	return nil
}
