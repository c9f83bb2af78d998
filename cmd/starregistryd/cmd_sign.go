// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/starregistry/pkg/signature"
)

var cmdSign = &cobra.Command{
	Use:   "sign <wif> <message>",
	Short: "Sign a validation message with a WIF private key",
	Long:  "Sign a validation message with a WIF private key. Intended for manual testing; the key is passed on the command line.",
	Args:  cobra.ExactArgs(2),
	Run:   signMessage,
}

func init() {
	cmdMain.AddCommand(cmdSign)
}

func signMessage(_ *cobra.Command, args []string) {
	sig, address, err := signature.SignWIF(args[0], args[1])
	check(err)

	fmt.Printf("Address:   %s\n", address)
	fmt.Printf("Signature: %s\n", sig)
}
