// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package bolt

import (
	"os"
	"path/filepath"
	"time"

	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// FileName is the name of the Bolt database file within the store directory.
const FileName = "chain.db"

var bucketName = []byte("blocks")

type Database struct {
	bolt *bolt.DB
}

var _ keyvalue.Store = (*Database)(nil)

// Open opens or creates a Bolt store in the given directory.
func Open(dir string) (*Database, error) {
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return nil, errors.StorageFailure.WithFormat("create %q: %w", dir, err)
	}

	// Fail instead of blocking forever if another process holds the lock
	db, err := bolt.Open(filepath.Join(dir, FileName), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.StorageFailure.WithFormat("open %q: %w", dir, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.StorageFailure.WithFormat("create bucket: %w", err)
	}

	return &Database{bolt: db}, nil
}

func (d *Database) Put(key, value []byte) error {
	err := d.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bolt.ErrDatabaseNotOpen):
		return errors.NotReady.WithFormat("put: %w", err)
	default:
		return errors.StorageFailure.WithFormat("put: %w", err)
	}
}

func (d *Database) ForEach(fn func(key, value []byte) error) error {
	var fnErr error
	err := d.bolt.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, v []byte) error {
			// Bolt's slices are only valid for the life of the transaction
			key := make([]byte, len(k))
			copy(key, k)
			value := make([]byte, len(v))
			copy(value, v)

			fnErr = fn(key, value)
			return fnErr
		})
	})
	switch {
	case fnErr != nil:
		return fnErr
	case err != nil:
		return errors.StorageFailure.WithFormat("iterate: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	err := d.bolt.Close()
	if err != nil {
		return errors.StorageFailure.WithFormat("close bolt: %w", err)
	}
	return nil
}
