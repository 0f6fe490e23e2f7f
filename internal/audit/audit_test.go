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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates that sensitive keys are correctly identified as secrets to prevent them from being logged in plaintext.
// Scope: Unit Test
// Security: Data Masking and Leakage Prevention (CWE-532)
// Expected: Returns true for keys containing 'password', 'token', 'secret', etc., and false for non-sensitive keys.
// Test Case ID: AUD-01
func TestAudit_IsSecret(t *testing.T) {
	tests := []struct {
		key      string
		isSecret bool
	}{
		{"password", true},
		{"Password", true},
		{"PASSWORD", true},
		{"token", true},
		{"access_token", true},
		{"secret", true},
		{"api_key", true},
		{"hash", true},
		{"password_hash", true},
		{"credential", true},
		{"private_key", true},
		{"user_id", false},
		{"organization_id", false},
		{"email", false},
		{"status", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.isSecret, isSecret(tt.key))
		})
	}
}

// TestPurpose: Validates that secret metadata never reaches a sink in plaintext.
// Scope: Unit Test
// Security: Data Masking and Leakage Prevention (CWE-532)
// Expected: Secret values are replaced with [REDACTED]; other values are kept.
// Test Case ID: AUD-02
func TestAudit_RedactsMetadata(t *testing.T) {
	log := NewMemoryLog()
	log.Record(context.Background(), Entry{
		UserID:   "u1",
		Action:   ActionLogin,
		Resource: "auth",
		Result:   ResultSuccess,
		Metadata: map[string]any{"access_token": "abc", "ip": "10.0.0.1"},
	})

	page, err := log.List(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "[REDACTED]", page.Entries[0].Metadata["access_token"])
	assert.Equal(t, "10.0.0.1", page.Entries[0].Metadata["ip"])
}

// TestPurpose: Validates paging bounds on the audit read surface.
// Scope: Unit Test
// Expected: Page floors at 1; limit defaults to 50 and is clamped to [1, 100].
// Test Case ID: AUD-03
func TestQuery_Normalize(t *testing.T) {
	tests := []struct {
		in        Query
		wantPage  int
		wantLimit int
	}{
		{Query{}, 1, DefaultLimit},
		{Query{Page: -3, Limit: -1}, 1, DefaultLimit},
		{Query{Page: 2, Limit: 1}, 2, 1},
		{Query{Page: 1, Limit: 1000}, 1, MaxLimit},
		{Query{Page: 7, Limit: 100}, 7, 100},
	}
	for _, tt := range tests {
		got := tt.in.Normalize()
		assert.Equal(t, tt.wantPage, got.Page)
		assert.Equal(t, tt.wantLimit, got.Limit)
	}
}

func seed(t *testing.T, r Recorder, n int, org string) {
	t.Helper()
	for i := 0; i < n; i++ {
		r.Record(context.Background(), Entry{
			UserID:         "u1",
			OrganizationID: org,
			Action:         ActionTaskCreate,
			Resource:       fmt.Sprintf("task:%d", i),
			Result:         ResultSuccess,
		})
	}
}

// TestPurpose: Validates the pagination law over the newest-first log.
// Scope: Unit Test
// Expected: Concatenating pages 1..ceil(T/L) yields every entry exactly once, newest first.
// Test Case ID: AUD-04
func TestMemoryLog_PaginationLaw(t *testing.T) {
	ctx := context.Background()
	for _, total := range []int{0, 1, 7, 10, 23} {
		for _, limit := range []int{1, 3, 10, 100} {
			t.Run(fmt.Sprintf("T%d_L%d", total, limit), func(t *testing.T) {
				log := NewMemoryLog()
				seed(t, log, total, "org-a")

				var all []Entry
				pages := (total + limit - 1) / limit
				for p := 1; p <= pages; p++ {
					page, err := log.List(ctx, Query{Page: p, Limit: limit})
					require.NoError(t, err)
					assert.Equal(t, total, page.Total)
					all = append(all, page.Entries...)
				}

				require.Len(t, all, total)
				seen := make(map[string]bool, total)
				for i, e := range all {
					assert.False(t, seen[e.ID], "duplicate %s", e.ID)
					seen[e.ID] = true
					assert.Equal(t, fmt.Sprintf("task:%d", total-1-i), e.Resource)
					if i > 0 {
						assert.Less(t, e.ID, all[i-1].ID)
					}
				}

				past, err := log.List(ctx, Query{Page: pages + 1, Limit: limit})
				require.NoError(t, err)
				assert.Empty(t, past.Entries)
				assert.NotNil(t, past.Entries)
			})
		}
	}
}

// TestPurpose: Validates that pages far past the end are empty rather than overflowing the offset.
// Scope: Unit Test
// Expected: An empty, non-nil page for any page beyond the last, including values near the int limit.
// Test Case ID: AUD-11
func TestMemoryLog_PageBeyondEnd(t *testing.T) {
	log := NewMemoryLog()
	seed(t, log, 3, "org-a")

	for _, p := range []int{2, 1 << 30, 1 << 62, math.MaxInt} {
		var page Page
		var err error
		require.NotPanics(t, func() {
			page, err = log.List(context.Background(), Query{Page: p, Limit: 4})
		})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Empty(t, page.Entries)
		assert.NotNil(t, page.Entries)
	}
}

// TestPurpose: Validates that reading twice with no intervening writes gives identical results.
// Scope: Unit Test
// Expected: Same entries and total.
// Test Case ID: AUD-05
func TestMemoryLog_Idempotent(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	seed(t, log, 12, "org-a")

	first, err := log.List(ctx, Query{Page: 2, Limit: 5})
	require.NoError(t, err)
	second, err := log.List(ctx, Query{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestPurpose: Validates that pagination pinned with AsOf is stable while writers append.
// Scope: Unit Test
// Expected: Pages fetched with the returned AsOf ignore newer entries; total stays fixed.
// Test Case ID: AUD-06
func TestMemoryLog_AsOfStableUnderAppends(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	seed(t, log, 10, "org-a")

	first, err := log.List(ctx, Query{Page: 1, Limit: 4})
	require.NoError(t, err)
	require.NotEmpty(t, first.AsOf)
	assert.Equal(t, first.Entries[0].ID, first.AsOf)

	seed(t, log, 5, "org-a")

	second, err := log.List(ctx, Query{Page: 2, Limit: 4, AsOf: first.AsOf})
	require.NoError(t, err)
	assert.Equal(t, 10, second.Total)
	assert.Equal(t, first.AsOf, second.AsOf)
	assert.Equal(t, "task:5", second.Entries[0].Resource)

	unpinned, err := log.List(ctx, Query{Page: 1, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 15, unpinned.Total)
}

// TestPurpose: Validates organization scoping on reads.
// Scope: Unit Test
// Security: Tenant isolation of audit data
// Expected: Only entries of the requested organization are returned.
// Test Case ID: AUD-07
func TestMemoryLog_OrganizationFilter(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	seed(t, log, 3, "org-a")
	seed(t, log, 4, "org-b")

	page, err := log.List(ctx, Query{OrganizationID: "org-a"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	for _, e := range page.Entries {
		assert.Equal(t, "org-a", e.OrganizationID)
	}

	all, err := log.List(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, 7, all.Total)
}

// TestPurpose: Validates that concurrent writers never lose or duplicate entries.
// Scope: Unit Test
// Expected: Every entry is recorded once with a unique id.
// Test Case ID: AUD-08
func TestMemoryLog_ConcurrentRecord(t *testing.T) {
	log := NewMemoryLog()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seed(t, log, 25, "org-a")
		}()
	}
	wg.Wait()

	page, err := log.List(context.Background(), Query{Limit: MaxLimit})
	require.NoError(t, err)
	assert.Equal(t, 200, page.Total)

	ids := map[string]bool{}
	for p := 1; p <= 2; p++ {
		pg, err := log.List(context.Background(), Query{Page: p, Limit: MaxLimit})
		require.NoError(t, err)
		for _, e := range pg.Entries {
			ids[e.ID] = true
		}
	}
	assert.Len(t, ids, 200)
}

// TestPurpose: Validates that the file log persists JSON lines and reloads them on open.
// Scope: Unit Test
// Expected: A reopened log lists the same entries, and new ids sort after the old ones.
// Test Case ID: AUD-09
func TestFileLog_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "audit.log")

	log, err := OpenFileLog(path, nil)
	require.NoError(t, err)
	seed(t, log, 3, "org-a")
	require.NoError(t, log.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, bytes.Count(raw, []byte("\n")))

	// A corrupt line must not break the reader.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o640)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := OpenFileLog(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	page, err := reopened.List(ctx, Query{})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	assert.Equal(t, "task:2", page.Entries[0].Resource)

	reopened.Record(ctx, Entry{UserID: "u2", Action: ActionAuditRead, Resource: "audit-log", Result: ResultSuccess})
	page, err = reopened.List(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, ActionAuditRead, page.Entries[0].Action)
	assert.Greater(t, page.Entries[0].ID, page.Entries[1].ID)
}

// TestPurpose: Validates that a failing sink degrades to the fallback channel without affecting the caller.
// Scope: Unit Test
// Expected: Record returns normally and the entry appears as an AUDIT_EVENT log line.
// Test Case ID: AUD-10
func TestFileLog_FallbackOnWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	fallback := NewSlogRecorder(slog.New(slog.NewJSONHandler(&buf, nil)))

	log, err := OpenFileLog(filepath.Join(t.TempDir(), "audit.log"), fallback)
	require.NoError(t, err)
	require.NoError(t, log.file.Close())

	assert.NotPanics(t, func() {
		log.Record(context.Background(), Entry{
			UserID:   "u1",
			Action:   ActionTaskDelete,
			Resource: "task:9",
			Result:   ResultSuccess,
			Metadata: map[string]any{"password": "hunter2"},
		})
	})

	out := buf.String()
	assert.Contains(t, out, "AUDIT_EVENT")
	assert.Contains(t, out, "task:9")
	assert.NotContains(t, out, "hunter2")
}

func TestSlogRecorder_Record(t *testing.T) {
	var buf bytes.Buffer
	r := NewSlogRecorder(slog.New(slog.NewTextHandler(&buf, nil)))

	r.Record(context.Background(), Entry{
		UserID:   "u1",
		Action:   ActionLogin,
		Resource: "auth",
		Result:   ResultFailure,
		Details:  "invalid credentials",
	})

	out := buf.String()
	assert.Contains(t, out, "component=audit")
	assert.Contains(t, out, "action=auth.login")
	assert.Contains(t, out, "result=failure")
}
