// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package node_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gitlab.com/accumulatenetwork/starregistry/config"
	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
	. "gitlab.com/accumulatenetwork/starregistry/internal/node"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

func testConfig(t *testing.T, storage config.StorageType) *config.Config {
	cfg := config.Default()
	cfg.SetRoot(t.TempDir())
	cfg.Storage.Type = storage
	cfg.API.ListenAddress = "tcp://127.0.0.1:0"
	return cfg
}

func TestRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := New(testConfig(t, config.MemoryStorage), logging.NewTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, n.Start(ctx))

	done := make(chan error)
	go func() { done <- n.Serve(ctx) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(fmt.Sprintf("http://%s/status", n.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, float64(0), status["height"])
	require.Equal(t, true, status["valid"])

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, n.Stop())

	_, err = n.Ledger().GetBlockHeight()
	require.ErrorIs(t, err, errors.NotReady)
}

func TestPersistentStores(t *testing.T) {
	for _, typ := range []config.StorageType{config.BadgerStorage, config.LevelDBStorage, config.BoltStorage} {
		t.Run(string(typ), func(t *testing.T) {
			cfg := testConfig(t, typ)
			logger := logging.NewTestLogger(t)

			// Open, append, and close
			n := New(cfg, logger)
			require.NoError(t, n.Start(context.Background()))
			_, err := n.Ledger().Append(json.RawMessage(`{"address":"A"}`))
			require.NoError(t, err)
			require.NoError(t, n.Stop())

			// Reopen and check
			n = New(cfg, logger)
			require.NoError(t, n.Start(context.Background()))
			height, err := n.Ledger().GetBlockHeight()
			require.NoError(t, err)
			require.Equal(t, uint64(1), height)
			ok, _, err := n.Ledger().ValidateChain()
			require.NoError(t, err)
			require.True(t, ok)
			require.NoError(t, n.Stop())
		})
	}
}

func TestStartErrors(t *testing.T) {
	cfg := testConfig(t, "etcd")
	require.ErrorIs(t, New(cfg, nil).Start(context.Background()), errors.BadRequest)

	cfg = testConfig(t, config.MemoryStorage)
	cfg.Validation.Network = "litecoin"
	require.ErrorIs(t, New(cfg, nil).Start(context.Background()), errors.BadRequest)

	// Stop on a node that never started does nothing
	require.NoError(t, New(cfg, nil).Stop())
}

func TestNetworkParams(t *testing.T) {
	for _, name := range []string{"", "mainnet", "testnet3", "regtest", "simnet"} {
		_, err := NetworkParams(name)
		require.NoError(t, err, name)
	}
	_, err := NetworkParams("nope")
	require.ErrorIs(t, err, errors.BadRequest)
}
