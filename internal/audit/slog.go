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
	"log/slog"
	"time"
)

// SlogRecorder writes entries as structured log lines. It is the fallback
// channel for the other logs and can be used alone when nothing needs to be
// read back.
type SlogRecorder struct {
	logger *slog.Logger
}

// NewSlogRecorder creates a recorder on logger, or on slog.Default when nil.
func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	return &SlogRecorder{logger: logger}
}

// Record logs e at INFO with the "audit" component.
func (l *SlogRecorder) Record(ctx context.Context, e Entry) {
	l.log(ctx, prepare(e, time.Now()))
}

func (l *SlogRecorder) log(ctx context.Context, e Entry) {
	logger := l.logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		slog.String("action", e.Action),
		slog.String("user_id", e.UserID),
		slog.String("resource", e.Resource),
		slog.String("result", e.Result),
		slog.Time("timestamp", e.Timestamp),
	}
	if e.ID != "" {
		attrs = append(attrs, slog.String("audit_id", e.ID))
	}
	if e.OrganizationID != "" {
		attrs = append(attrs, slog.String("organization_id", e.OrganizationID))
	}
	if e.Details != "" {
		attrs = append(attrs, slog.String("details", e.Details))
	}

	// Flatten metadata
	if len(e.Metadata) > 0 {
		group := []any{}
		for k, v := range e.Metadata {
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	logger.InfoContext(ctx, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
}
