// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package starregistry

const unknownVersion = "version unknown"

// Version is set at build time with -ldflags "-X gitlab.com/accumulatenetwork/starregistry.Version=...".
var Version = unknownVersion

// Commit is set at build time.
var Commit = ""

func IsVersionKnown() bool {
	return Version != unknownVersion
}
