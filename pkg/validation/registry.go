// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package validation tracks pending address ownership challenges.
package validation

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/robfig/cron/v3"
	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
	"gitlab.com/accumulatenetwork/starregistry/pkg/signature"
)

const (
	// DefaultWindow is the lifetime of a new challenge.
	DefaultWindow = 300 * time.Second

	// DefaultSchedule is the schedule of the expiry sweep.
	DefaultSchedule = "@every 1m"
)

// Registry holds at most one challenge per address.
type Registry struct {
	verifier signature.Verifier
	clock    clock.Clock
	window   time.Duration
	schedule cron.Schedule
	logger   logging.OptionalLogger

	mu      sync.Mutex
	records map[string]*Validation

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Registry)

func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

func WithWindow(window time.Duration) Option {
	return func(r *Registry) { r.window = window }
}

func WithSchedule(schedule cron.Schedule) Option {
	return func(r *Registry) { r.schedule = schedule }
}

func WithLogger(logger logging.Logger) Option {
	return func(r *Registry) { r.logger.Set(logger, "module", "validation") }
}

// NewRegistry returns a registry that verifies signatures with the given
// verifier. The sweep does not run until [Registry.Start] is called.
func NewRegistry(verifier signature.Verifier, opts ...Option) *Registry {
	r := new(Registry)
	r.verifier = verifier
	r.clock = clock.New()
	r.window = DefaultWindow
	r.records = map[string]*Validation{}
	for _, opt := range opts {
		opt(r)
	}

	if r.schedule == nil {
		s, err := cron.ParseStandard(DefaultSchedule)
		if err != nil {
			panic(err)
		}
		r.schedule = s
	}
	return r
}

// GetOrCreate renews the active challenge for the address, or creates a new
// one if there is none. A renewal issues a new message but keeps the
// remaining window of the previous challenge.
func (r *Registry) GetOrCreate(address string) Validation {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now().Unix()
	v, ok := r.records[address]
	if ok && v.activeAt(now) {
		v.renew(now)
		r.logger.Debug("Renewed validation request", "address", address, "window", v.ValidationWindow)
	} else {
		v = newValidation(address, now, int64(r.window/time.Second), r.clock)
		r.records[address] = v
		mPending.Set(float64(len(r.records)))
		r.logger.Debug("Created validation request", "address", address)
	}
	return *v
}

// Find returns the active challenge for the address. An expired challenge
// is treated as absent.
func (r *Registry) Find(address string) (Validation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.records[address]
	if !ok || !v.activeAt(r.clock.Now().Unix()) {
		return Validation{}, errors.NotFound.WithFormat("no active validation request for %s", address)
	}
	return *v, nil
}

// ValidateSignature returns true if the challenge is active and the
// signature of its message is valid for its address. Verifier errors are
// reported as false.
func (r *Registry) ValidateSignature(v Validation, signature string) bool {
	if !v.activeAt(r.clock.Now().Unix()) {
		mSignatureChecks.WithLabelValues("expired").Inc()
		return false
	}

	ok, err := r.verifier.Verify(v.Message, v.Address, signature)
	switch {
	case err != nil:
		mSignatureChecks.WithLabelValues("error").Inc()
		r.logger.Debug("Signature verification failed", "address", v.Address, "error", err)
		return false
	case !ok:
		mSignatureChecks.WithLabelValues("invalid").Inc()
		return false
	}
	mSignatureChecks.WithLabelValues("valid").Inc()
	return true
}

// Pending returns the number of tracked challenges, including expired ones
// that have not been swept.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Sweep removes expired challenges and returns the number removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now().Unix()
	var n int
	for address, v := range r.records {
		if !v.activeAt(now) {
			delete(r.records, address)
			n++
		}
	}

	mSwept.Add(float64(n))
	mPending.Set(float64(len(r.records)))
	if n > 0 {
		r.logger.Debug("Swept expired validation requests", "count", n, "remaining", len(r.records))
	}
	return n
}

// Start runs the sweep on its schedule until [Registry.Stop] is called.
func (r *Registry) Start() error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.cancel != nil {
		return errors.Conflict.With("registry is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, r.done)
	return nil
}

// Stop stops the sweep and waits for it to exit. Calling Stop on a stopped
// registry does nothing.
func (r *Registry) Stop() {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel, r.done = nil, nil
}

func (r *Registry) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		now := r.clock.Now()
		timer := r.clock.Timer(r.schedule.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		r.Sweep()
	}
}
