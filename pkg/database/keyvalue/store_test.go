// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package keyvalue_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

func TestHeightKeyOrdering(t *testing.T) {
	heights := []uint64{0, 1, 2, 9, 10, 255, 256, 1 << 32}
	for i := 1; i < len(heights); i++ {
		a, b := keyvalue.HeightKey(heights[i-1]), keyvalue.HeightKey(heights[i])
		require.Equal(t, -1, bytes.Compare(a, b), "%d should sort before %d", heights[i-1], heights[i])
	}

	for _, h := range heights {
		got, err := keyvalue.ParseHeightKey(keyvalue.HeightKey(h))
		require.NoError(t, err)
		require.Equal(t, h, got)
	}
}

func TestParseHeightKeyRejectsBadLength(t *testing.T) {
	_, err := keyvalue.ParseHeightKey([]byte("12"))
	require.ErrorIs(t, err, errors.EncodingError)
}

func TestDestroy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chaindb")
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001.log"), []byte("x"), 0600))

	require.NoError(t, keyvalue.Destroy(dir))
	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))

	// Empty location is a no-op
	require.NoError(t, keyvalue.Destroy(""))
}
