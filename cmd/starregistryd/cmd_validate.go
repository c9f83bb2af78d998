// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/starregistry/config"
	"gitlab.com/accumulatenetwork/starregistry/internal/node"
	"gitlab.com/accumulatenetwork/starregistry/pkg/ledger"
)

var cmdValidate = &cobra.Command{
	Use:   "validate",
	Short: "Check the integrity of the ledger",
	Args:  cobra.NoArgs,
	Run:   validateChain,
}

func init() {
	cmdMain.AddCommand(cmdValidate)
}

// openLedger opens the ledger for offline use. The node must not be running.
func openLedger(cfg *config.Config) *ledger.Blockchain {
	logger := newLogger(cfg)
	store, err := node.OpenStore(cfg, logger)
	checkf(err, "open store")

	chain, err := ledger.Open(context.Background(), store, ledger.WithLogger(logger), ledger.WithLocation(cfg.StoragePath()))
	if err != nil {
		_ = store.Close()
		fatalf("load ledger: %v", err)
	}
	return chain
}

func validateChain(*cobra.Command, []string) {
	chain := openLedger(loadConfig())
	defer func() { _ = chain.Close() }()

	height, err := chain.GetBlockHeight()
	check(err)

	ok, offending, err := chain.ValidateChain()
	check(err)

	if ok {
		color.Green("Chain is valid (%d blocks)\n", height+1)
		return
	}

	color.Red("Chain is invalid (%d blocks)\n", height+1)
	for _, h := range offending {
		fmt.Printf("  %s %d\n", color.YellowString("offending height"), h)
	}
	_ = chain.Close()
	os.Exit(1)
}
