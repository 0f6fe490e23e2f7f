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

package id

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUUIDv7(t *testing.T) {
	a := NewUUIDv7()
	b := NewUUIDv7()

	require.True(t, Valid(a))
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("not-a-uuid"))
	assert.True(t, Valid("0190a5b2-7c3e-7d4f-8a1b-2c3d4e5f6a7b"))
}

func TestULIDSource_StrictlyIncreasing(t *testing.T) {
	s := NewULIDSource()
	prev := s.Next()
	for i := 0; i < 1000; i++ {
		next := s.Next()
		require.Equal(t, 1, next.Compare(prev), "ulid %d not increasing", i)
		prev = next
	}
}

func TestULIDSource_ClockStepsBack(t *testing.T) {
	s := NewULIDSource()
	base := time.Now()
	s.now = func() time.Time { return base }
	first := s.Next()

	s.now = func() time.Time { return base.Add(-time.Hour) }
	second := s.Next()

	assert.Equal(t, 1, second.Compare(first))
	assert.GreaterOrEqual(t, second.Time(), first.Time())
}

func TestULIDSource_Observe(t *testing.T) {
	s := NewULIDSource()
	future := NewULIDSource()
	future.now = func() time.Time { return time.Now().Add(time.Hour) }
	ahead := future.Next()

	s.Observe(ahead)
	assert.Equal(t, 1, s.Next().Compare(ahead))
}
