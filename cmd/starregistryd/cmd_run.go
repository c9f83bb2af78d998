// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/starregistry/internal/node"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue/badger"
)

var cmdRun = &cobra.Command{
	Use:   "run",
	Short: "Run the registry",
	Run:   runNode,
	Args:  cobra.NoArgs,
}

var flagRun = struct {
	Truncate    bool
	CiStopAfter time.Duration
}{}

func init() {
	cmdMain.AddCommand(cmdRun)

	cmdRun.Flags().BoolVar(&flagRun.Truncate, "truncate", false, "Truncate Badger if necessary")
	cmdRun.Flags().DurationVar(&flagRun.CiStopAfter, "ci-stop-after", 0, "FOR CI ONLY - stop the node after some time")
	cmdRun.Flag("ci-stop-after").Hidden = true

	cmdRun.PreRun = func(*cobra.Command, []string) {
		badger.TruncateBadger = flagRun.Truncate
	}
}

func runNode(*cobra.Command, []string) {
	cfg := loadConfig()
	logger := newLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if flagRun.CiStopAfter > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, flagRun.CiStopAfter)
		defer cancelTimeout()
	}

	err := node.New(cfg, logger).Run(ctx)
	check(err)
}
