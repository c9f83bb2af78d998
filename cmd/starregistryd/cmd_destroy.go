// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cmdDestroy = &cobra.Command{
	Use:   "destroy",
	Short: "Irrecoverably delete the ledger (UNSAFE)",
	Args:  cobra.NoArgs,
	Run:   destroyLedger,
}

var flagDestroy struct {
	Yes bool
}

func init() {
	cmdMain.AddCommand(cmdDestroy)

	cmdDestroy.Flags().BoolVar(&flagDestroy.Yes, "yes", false, "Confirm deletion")
}

func destroyLedger(*cobra.Command, []string) {
	cfg := loadConfig()
	if !flagDestroy.Yes {
		fatalf("this will delete %s, pass --yes to confirm", cfg.StoragePath())
	}

	chain := openLedger(cfg)
	checkf(chain.Destroy(), "destroy ledger")
	fmt.Printf("Deleted %s\n", cfg.StoragePath())
}
