// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package validation

import (
	"encoding/json"
	"fmt"

	"github.com/benbjohnson/clock"
)

// MessageSuffix is the last component of every challenge message.
const MessageSuffix = "starRegistry"

// Validation is a challenge issued to prove ownership of an address. Values
// returned by the registry are snapshots and are safe to retain.
type Validation struct {
	Address          string
	RequestTimestamp int64
	Message          string

	// ValidationWindow is the window in seconds as of the last renewal.
	ValidationWindow int64

	clock clock.Clock
}

func newValidation(address string, now int64, window int64, clk clock.Clock) *Validation {
	v := &Validation{Address: address, ValidationWindow: window, clock: clk}
	v.setTimestamp(now)
	return v
}

func (v *Validation) setTimestamp(now int64) {
	v.RequestTimestamp = now
	v.Message = fmt.Sprintf("%s:%d:%s", v.Address, now, MessageSuffix)
}

// renew carries the remaining window over to a new challenge. Repeated
// renewals never extend the deadline.
func (v *Validation) renew(now int64) {
	v.ValidationWindow = v.remainingAt(now)
	v.setTimestamp(now)
}

func (v *Validation) remainingAt(now int64) int64 {
	return v.RequestTimestamp + v.ValidationWindow - now
}

func (v *Validation) activeAt(now int64) bool {
	return v.remainingAt(now) > 0
}

func (v *Validation) now() int64 {
	if v.clock == nil {
		return clock.New().Now().Unix()
	}
	return v.clock.Now().Unix()
}

// RemainingWindow returns the number of seconds until the challenge expires.
// The result is negative once it has expired.
func (v Validation) RemainingWindow() int64 {
	return v.remainingAt(v.now())
}

// IsActive returns true until the window has fully elapsed.
func (v Validation) IsActive() bool {
	return v.activeAt(v.now())
}

func (v Validation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Address          string `json:"address"`
		RequestTimeStamp int64  `json:"requestTimeStamp"`
		Message          string `json:"message"`
		ValidationWindow int64  `json:"validationWindow"`
	}{v.Address, v.RequestTimestamp, v.Message, v.RemainingWindow()})
}
