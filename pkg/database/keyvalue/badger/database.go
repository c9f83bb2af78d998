// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package badger

import (
	"bytes"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

// TruncateBadger controls whether Badger is configured to truncate corrupted
// data. If the process is terminated abruptly, setting this may be necessary
// to recover the value log. Blocks written after the last successful sync may
// be lost, which the ledger detects as a shorter chain on replay.
var TruncateBadger = false

// GCInterval is how often value log garbage collection runs.
var GCInterval = time.Hour

type Database struct {
	opts
	badger *badger.DB
	ready  bool
	mu     sync.RWMutex
	done   chan struct{}
	gcDone chan struct{}
}

var _ keyvalue.Store = (*Database)(nil)

type opts struct {
	logger logging.OptionalLogger
}

type Option func(*opts) error

// WithLogger sets the logger used for Badger's internal messages and for GC
// failures.
func WithLogger(logger logging.Logger) Option {
	return func(o *opts) error {
		o.logger.Set(logger, "module", "badger")
		return nil
	}
}

func New(filepath string, o ...Option) (*Database, error) {
	// Make sure all directories exist
	err := os.MkdirAll(filepath, 0700)
	if err != nil {
		return nil, errors.StorageFailure.WithFormat("open badger: create %q: %w", filepath, err)
	}

	d := new(Database)
	for _, o := range o {
		err = o(&d.opts)
		if err != nil {
			return nil, errors.UnknownError.Wrap(err)
		}
	}

	opts := badger.DefaultOptions(filepath)
	opts = opts.WithLogger(logger{d.logger})
	opts = opts.WithSyncWrites(true)

	// Truncate corrupted data
	if TruncateBadger {
		opts = opts.WithTruncate(true)
	}

	// Open Badger
	d.badger, err = badger.Open(opts)
	if err != nil {
		return nil, errors.StorageFailure.WithFormat("open badger %q: %w", filepath, err)
	}

	d.ready = true
	d.done = make(chan struct{})
	d.gcDone = make(chan struct{})
	mDbOpen.Inc()

	go d.gc()

	return d, nil
}

func (d *Database) Put(key, value []byte) error {
	l, err := d.lock(false)
	if err != nil {
		return err
	}
	defer l.Unlock()

	start := time.Now()
	defer func() { mCommitDuration.Set(time.Since(start).Seconds()) }()

	// Badger holds on to the slices until the transaction is done
	key, value = bytes.Clone(key), bytes.Clone(value)
	err = d.badger.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return errors.StorageFailure.WithFormat("put: %w", err)
	}
	return nil
}

func (d *Database) ForEach(fn func(key, value []byte) error) error {
	l, err := d.lock(false)
	if err != nil {
		return err
	}
	defer l.Unlock()

	var fnErr error
	err = d.badger.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			fnErr = fn(item.KeyCopy(nil), value)
			if fnErr != nil {
				return fnErr
			}
		}
		return nil
	})
	switch {
	case fnErr != nil:
		return fnErr
	case err != nil:
		return errors.StorageFailure.WithFormat("iterate: %w", err)
	}
	return nil
}

// Close
// Close the underlying database
func (d *Database) Close() error {
	if l, err := d.lock(true); err != nil {
		return err
	} else {
		defer l.Unlock()
	}

	d.ready = false
	close(d.done)
	<-d.gcDone
	mDbOpen.Dec()

	err := d.badger.Close()
	if err != nil {
		return errors.StorageFailure.WithFormat("close badger: %w", err)
	}
	return nil
}

func (d *Database) gc() {
	defer close(d.gcDone)

	tick := time.NewTicker(GCInterval)
	defer tick.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-tick.C:
		}

		// Run GC if 50% space could be reclaimed. Close waits for this
		// goroutine so the database cannot be closed underneath it.
		start := time.Now()
		err := d.badger.RunValueLogGC(0.5)
		if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			d.logger.Error("Badger GC failed", "error", err)
		}
		mGcRun.Inc()
		mGcDuration.Set(time.Since(start).Seconds())
	}
}

// lock acquires a lock on the ready mutex and checks for readiness. This
// prevents race conditions between Put/ForEach and Close, which can cause
// panics.
func (d *Database) lock(closing bool) (sync.Locker, error) {
	var l sync.Locker = &d.mu
	if !closing {
		l = d.mu.RLocker()
	}

	l.Lock()
	if !d.ready {
		l.Unlock()
		return nil, errors.NotReady.With("badger database is closed")
	}

	return l, nil
}
