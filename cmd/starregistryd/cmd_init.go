// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/starregistry/config"
)

var cmdInit = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration to the working directory",
	Args:  cobra.NoArgs,
	Run:   initNode,
}

var flagInit struct {
	Storage string
	Listen  string
	Network string
	Reset   bool
}

func init() {
	cmdMain.AddCommand(cmdInit)

	cmdInit.Flags().StringVar(&flagInit.Storage, "storage", string(config.BadgerStorage), "Storage type: badger, leveldb, bolt, or memory")
	cmdInit.Flags().StringVarP(&flagInit.Listen, "listen", "l", "", "API listen address, e.g. tcp://0.0.0.0:8000")
	cmdInit.Flags().StringVar(&flagInit.Network, "network", "mainnet", "Address network: mainnet, testnet3, regtest, or simnet")
	cmdInit.Flags().BoolVar(&flagInit.Reset, "reset", false, "Overwrite an existing configuration")
}

func initNode(*cobra.Command, []string) {
	file := filepath.Join(flagMain.WorkDir, "config", "starregistry.toml")
	if _, err := os.Stat(file); err == nil && !flagInit.Reset {
		fatalf("%s already exists, use --reset to overwrite it", file)
	}

	cfg := config.Default()
	cfg.SetRoot(flagMain.WorkDir)
	cfg.Storage.Type = config.StorageType(flagInit.Storage)
	cfg.Validation.Network = flagInit.Network
	if flagInit.Listen != "" {
		cfg.API.ListenAddress = flagInit.Listen
	}

	checkf(cfg.Validate(), "invalid configuration")
	checkf(config.Store(cfg), "write configuration")
	fmt.Printf("Wrote %s\n", file)
}
