// Copyright (c) 2025, Server Audit Toolkit Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package profiler

import "sync"

// MemoryStore is an in-process profile cache. Suitable for tests and
// single-invocation runs; production uses the Badger-backed store.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]CapabilityProfile
}

// NewMemoryStore creates an empty in-memory profile cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]CapabilityProfile)}
}

// Get implements the Store interface.
func (s *MemoryStore) Get(key string) (*CapabilityProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[key]
	if !ok {
		return nil, false
	}
	cp := p
	return &cp, true
}

// Put implements the Store interface.
func (s *MemoryStore) Put(p *CapabilityProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[p.Target] = *p
	return nil
}

// Close implements the Store interface.
func (s *MemoryStore) Close() error {
	return nil
}
