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

package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/opentrusty/securetask/internal/id"
)

// MemoryLog keeps entries in process memory, ordered by id.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []Entry
	ids     *id.ULIDSource
	now     func() time.Time
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		ids: id.NewULIDSource(),
		now: time.Now,
	}
}

// Record appends e with a fresh id.
func (m *MemoryLog) Record(ctx context.Context, e Entry) {
	m.append(e)
}

func (m *MemoryLog) append(e Entry) Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e = prepare(e, m.now())
	e.ID = m.ids.Next().String()
	m.entries = append(m.entries, e)
	return e
}

// load inserts entries that already carry ids, e.g. when replaying a file.
func (m *MemoryLog) load(entries []Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if u, err := ulid.ParseStrict(e.ID); err == nil {
			m.ids.Observe(u)
		}
		m.entries = append(m.entries, e)
	}
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].ID < m.entries[j].ID
	})
}

// List returns a page of entries, newest first.
func (m *MemoryLog) List(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Entries are ordered by id, so the snapshot is a prefix.
	end := len(m.entries)
	if q.AsOf != "" {
		end = sort.Search(len(m.entries), func(i int) bool {
			return m.entries[i].ID > q.AsOf
		})
	}

	var visible []Entry
	for i := end - 1; i >= 0; i-- {
		e := m.entries[i]
		if q.OrganizationID != "" && e.OrganizationID != q.OrganizationID {
			continue
		}
		visible = append(visible, e)
	}

	asOf := q.AsOf
	if asOf == "" && end > 0 {
		asOf = m.entries[end-1].ID
	}

	page := Page{
		Entries: []Entry{},
		Total:   len(visible),
		Page:    q.Page,
		Limit:   q.Limit,
		AsOf:    asOf,
	}
	// Compare page counts before multiplying so huge pages cannot overflow.
	pages := (len(visible) + q.Limit - 1) / q.Limit
	if q.Page-1 >= pages {
		return page, nil
	}
	start := (q.Page - 1) * q.Limit
	stop := start + q.Limit
	if stop > len(visible) {
		stop = len(visible)
	}
	page.Entries = append(page.Entries, visible[start:stop]...)
	return page, nil
}
