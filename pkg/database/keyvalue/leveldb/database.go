// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package leveldb

import (
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

type Database struct {
	opts
	leveldb *leveldb.DB
}

var _ keyvalue.Store = (*Database)(nil)

type opts struct {
	noSync bool
}

type Option func(*opts) error

// WithoutSync disables fsync on every write. Only use this for tests.
func WithoutSync(o *opts) error {
	o.noSync = true
	return nil
}

func OpenFile(filepath string, o ...Option) (*Database, error) {
	// Make sure all directories exist
	err := os.MkdirAll(filepath, 0700)
	if err != nil {
		return nil, errors.StorageFailure.WithFormat("create %q: %w", filepath, err)
	}

	d := new(Database)
	for _, o := range o {
		err = o(&d.opts)
		if err != nil {
			return nil, errors.UnknownError.Wrap(err)
		}
	}

	db, err := leveldb.OpenFile(filepath, nil)
	if err != nil {
		return nil, errors.StorageFailure.WithFormat("open %q: %w", filepath, err)
	}

	d.leveldb = db
	return d, nil
}

func (d *Database) Put(key, value []byte) error {
	err := d.leveldb.Put(key, value, &opt.WriteOptions{Sync: !d.noSync})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, leveldb.ErrClosed):
		return errors.NotReady.WithFormat("put: %w", err)
	default:
		return errors.StorageFailure.WithFormat("put: %w", err)
	}
}

func (d *Database) ForEach(fn func(key, value []byte) error) error {
	snap, err := d.leveldb.GetSnapshot()
	if err != nil {
		return errors.StorageFailure.WithFormat("snapshot: %w", err)
	}
	defer snap.Release()

	it := snap.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		// The iterator reuses its buffers
		key := make([]byte, len(it.Key()))
		copy(key, it.Key())
		value := make([]byte, len(it.Value()))
		copy(value, it.Value())

		err = fn(key, value)
		if err != nil {
			return err
		}
	}
	if err := it.Error(); err != nil {
		return errors.StorageFailure.WithFormat("iterate: %w", err)
	}
	return nil
}

// Close
// Close the underlying database
func (d *Database) Close() error {
	err := d.leveldb.Close()
	if err != nil {
		return errors.StorageFailure.WithFormat("close leveldb: %w", err)
	}
	return nil
}
