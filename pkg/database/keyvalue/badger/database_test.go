// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package badger_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue/badger"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue/kvtest"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

func TestDatabase(t *testing.T) {
	kvtest.TestStore(t, func(t testing.TB) kvtest.Opener {
		dir := t.TempDir()
		logger := logging.NewTestLogger(t)
		return func() (keyvalue.Store, error) {
			return badger.New(dir, badger.WithLogger(logger))
		}
	}, true)
}

func TestCloseTwice(t *testing.T) {
	db, err := badger.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.ErrorIs(t, db.Close(), errors.NotReady)
}
