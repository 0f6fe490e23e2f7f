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

// Package audit records security-relevant actions and serves them back
// newest-first.
package audit

import (
	"context"
	"strings"
	"time"
)

// Actions
const (
	ActionLogin      = "auth.login"
	ActionRegister   = "auth.register"
	ActionTaskCreate = "task.create"
	ActionTaskUpdate = "task.update"
	ActionTaskDelete = "task.delete"
	ActionAuditRead  = "audit.read"
)

// Results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Paging bounds for List.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Entry is one append-only audit record.
type Entry struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	UserID         string         `json:"userId"`
	OrganizationID string         `json:"organizationId,omitempty"`
	Action         string         `json:"action"`
	Resource       string         `json:"resource"`
	Result         string         `json:"result"`
	Details        string         `json:"details,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Recorder appends entries. Record never fails the caller; sink errors are
// handled inside the implementation.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Reader serves recorded entries.
type Reader interface {
	List(ctx context.Context, q Query) (Page, error)
}

// Log is a recorder that can also be read back.
type Log interface {
	Recorder
	Reader
}

// Query selects a page of entries, newest first.
type Query struct {
	Page  int
	Limit int
	// AsOf pins the listing to entries with id <= AsOf. Empty means the
	// newest entry at the time of the call.
	AsOf string
	// OrganizationID restricts results to one organization when set.
	OrganizationID string
}

// Normalize applies the page floor and limit bounds.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	q.AsOf = strings.TrimSpace(q.AsOf)
	return q
}

// Page is one slice of the log.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	Limit   int     `json:"limit"`
	AsOf    string  `json:"asOf,omitempty"`
}

// prepare stamps the timestamp and redacts secret metadata.
func prepare(e Entry, now time.Time) Entry {
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	e.Timestamp = e.Timestamp.UTC()
	if len(e.Metadata) > 0 {
		clean := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			if isSecret(k) {
				v = "[REDACTED]"
			}
			clean[k] = v
		}
		e.Metadata = clean
	}
	return e
}

// isSecret checks if a key likely contains a secret
func isSecret(key string) bool {
	key = strings.ToLower(key)
	secrets := []string{"password", "secret", "token", "key", "authorization", "hash", "credential"}
	for _, s := range secrets {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
