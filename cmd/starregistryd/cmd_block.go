// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/starregistry/pkg/star"
)

var cmdBlock = &cobra.Command{
	Use:   "block <height>",
	Short: "Print a block",
	Args:  cobra.ExactArgs(1),
	Run:   printBlock,
}

var flagBlock struct {
	JSON bool
}

func init() {
	cmdMain.AddCommand(cmdBlock)

	cmdBlock.Flags().BoolVar(&flagBlock.JSON, "json", false, "Print the block as JSON")
}

func printBlock(_ *cobra.Command, args []string) {
	height, err := strconv.ParseUint(args[0], 10, 64)
	checkf(err, "invalid height %q", args[0])

	chain := openLedger(loadConfig())
	defer func() { _ = chain.Close() }()

	block, err := chain.GetBlock(height)
	check(err)
	record, err := star.Decode(block)
	check(err)

	if flagBlock.JSON {
		b, err := json.MarshalIndent(record, "", "  ")
		check(err)
		fmt.Println(string(b))
		return
	}

	valid, err := chain.ValidateBlock(height)
	check(err)

	body := new(bytes.Buffer)
	check(json.Indent(body, record.Body, "  ", "  "))

	at := time.Unix(record.Time, 0)
	fmt.Printf("%s %d\n", color.CyanString("Height"), record.Height)
	fmt.Printf("%s   %s\n", color.CyanString("Hash"), record.Hash)
	fmt.Printf("%s   %s\n", color.CyanString("Prev"), record.PreviousBlockHash)
	fmt.Printf("%s   %s (%s)\n", color.CyanString("Time"), at.UTC().Format(time.RFC3339), humanize.Time(at))
	if valid {
		fmt.Printf("%s  %s\n", color.CyanString("Valid"), color.GreenString("yes"))
	} else {
		fmt.Printf("%s  %s\n", color.CyanString("Valid"), color.RedString("no"))
	}
	fmt.Printf("%s   %s\n", color.CyanString("Body"), body)
}
