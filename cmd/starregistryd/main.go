// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"
	"log"
	"os"
	"os/user"
	"path/filepath"

	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/starregistry/config"
	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
)

var currentUser = func() *user.User {
	usr, err := user.Current()
	if err != nil {
		log.Fatal(err)
	}
	return usr
}()

var defaultWorkDir = filepath.Join(currentUser.HomeDir, ".starregistry")

var cmdMain = &cobra.Command{
	Use:   "starregistryd",
	Short: "Star registry daemon",
	Run:   printUsageAndExit1,
}

var flagMain struct {
	WorkDir string
}

func init() {
	cmdMain.PersistentFlags().StringVarP(&flagMain.WorkDir, "work-dir", "w", defaultWorkDir, "Working directory for configuration and data")
}

func main() {
	_ = cmdMain.Execute()
}

func printUsageAndExit1(cmd *cobra.Command, args []string) {
	_ = cmd.Usage()
	os.Exit(1)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func check(err error) {
	if err != nil {
		fatalf("%v", err)
	}
}

func checkf(err error, format string, otherArgs ...interface{}) {
	if err != nil {
		fatalf(format+": %v", append(otherArgs, err)...)
	}
}

// loadConfig loads the configuration from the working directory.
func loadConfig() *config.Config {
	cfg, err := config.Load(flagMain.WorkDir)
	checkf(err, "load configuration (did you run init?)")
	return cfg
}

func newLogger(cfg *config.Config) logging.Logger {
	w, err := logging.NewConsoleWriter(os.Stderr, cfg.Logging.Format)
	checkf(err, "log format")
	logger, err := logging.NewLogger(w, cfg.Logging.Level, false)
	checkf(err, "log level")
	return logger
}
