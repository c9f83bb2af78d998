// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package api

import "sync"

// addressSet holds addresses that have passed signature validation and may
// register one star each.
type addressSet struct {
	mu        sync.Mutex
	addresses map[string]struct{}
}

func newAddressSet() *addressSet {
	return &addressSet{addresses: map[string]struct{}{}}
}

func (s *addressSet) Add(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses[address] = struct{}{}
}

func (s *addressSet) Has(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.addresses[address]
	return ok
}

// Take removes the address and returns true if it was present.
func (s *addressSet) Take(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.addresses[address]
	delete(s.addresses, address)
	return ok
}
