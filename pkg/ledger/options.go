// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package ledger

import (
	"github.com/benbjohnson/clock"
	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
)

type Option func(*Blockchain)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Blockchain) {
		b.logger.Set(logger, "module", "ledger")
	}
}

// WithClock sets the clock used to timestamp blocks.
func WithClock(c clock.Clock) Option {
	return func(b *Blockchain) {
		b.clock = c
	}
}

// WithLocation sets the storage location removed by [Blockchain.Destroy].
func WithLocation(location string) Option {
	return func(b *Blockchain) {
		b.location = location
	}
}
