// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package node

import (
	"github.com/btcsuite/btcd/chaincfg"
	"gitlab.com/accumulatenetwork/starregistry/config"
	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue/badger"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue/bolt"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue/leveldb"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue/memory"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

// OpenStore opens the store described by the configuration.
func OpenStore(cfg *config.Config, logger logging.Logger) (keyvalue.Store, error) {
	path := cfg.StoragePath()
	switch cfg.Storage.Type {
	case config.MemoryStorage:
		return memory.New(), nil
	case config.BadgerStorage:
		return badger.New(path, badger.WithLogger(logger))
	case config.LevelDBStorage:
		return leveldb.OpenFile(path)
	case config.BoltStorage:
		return bolt.Open(path)
	default:
		return nil, errors.BadRequest.WithFormat("unknown storage type %q", cfg.Storage.Type)
	}
}

// NetworkParams returns the address parameters for the named network.
func NetworkParams(name string) (*chaincfg.Params, error) {
	switch name {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	default:
		return nil, errors.BadRequest.WithFormat("unknown network %q", name)
	}
}
