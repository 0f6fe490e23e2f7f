// Copyright 2026 The OpenTrusty Authors
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

// Package id generates identifiers for persisted entities.
package id

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewUUIDv7 returns a time-ordered UUID string.
// Falls back to a random v4 UUID if the v7 generator fails.
func NewUUIDv7() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ULIDSource produces strictly increasing ULIDs, even when the wall clock
// steps backwards. Safe for concurrent use.
type ULIDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	last    ulid.ULID
	now     func() time.Time
}

// NewULIDSource creates a source seeded from the current time.
func NewULIDSource() *ULIDSource {
	return &ULIDSource{
		entropy: ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0),
		now:     time.Now,
	}
}

// Next returns the next ULID in the sequence.
func (s *ULIDSource) Next() ulid.ULID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := ulid.Timestamp(s.now())
	if ms < s.last.Time() {
		ms = s.last.Time()
	}
	u, err := ulid.New(ms, s.entropy)
	if err != nil || u.Compare(s.last) <= 0 {
		// Entropy overflowed within one millisecond; move to the next one.
		u = ulid.MustNew(s.last.Time()+1, s.entropy)
	}
	s.last = u
	return u
}

// Observe advances the source past u so later ids sort after it.
func (s *ULIDSource) Observe(u ulid.ULID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Compare(s.last) > 0 {
		s.last = u
	}
}

// NewULID returns a lexicographically sortable identifier.
func NewULID() string {
	return defaultULIDs.Next().String()
}

var defaultULIDs = NewULIDSource()
