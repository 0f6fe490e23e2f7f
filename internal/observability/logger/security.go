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

package logger

import (
	"context"
	"log/slog"
)

// SecurityEvent is a denial or authentication failure worth an operator's
// attention. It never carries credentials or email addresses.
type SecurityEvent struct {
	EventType      string
	UserID         string
	Role           string
	OrganizationID string
	IPAddress      string
	Operation      string
	Resource       string
	Reason         string
}

// SecurityLogger logs access-control and authentication events.
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger creates a new security logger
func NewSecurityLogger(logger *slog.Logger) *SecurityLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecurityLogger{
		logger: logger.With(Component("security")),
	}
}

// Log logs a security event at warn level
func (s *SecurityLogger) Log(ctx context.Context, event SecurityEvent) {
	attrs := []slog.Attr{
		slog.String("event_type", event.EventType),
	}

	if event.UserID != "" {
		attrs = append(attrs, UserID(event.UserID))
	}
	if event.Role != "" {
		attrs = append(attrs, Role(event.Role))
	}
	if event.OrganizationID != "" {
		attrs = append(attrs, OrganizationID(event.OrganizationID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.Operation != "" {
		attrs = append(attrs, Operation(event.Operation))
	}
	if event.Resource != "" {
		attrs = append(attrs, Resource(event.Resource))
	}
	if event.Reason != "" {
		attrs = append(attrs, Reason(event.Reason))
	}

	s.logger.LogAttrs(ctx, slog.LevelWarn, "security_event", attrs...)
}

// AccessDenied logs a guard or tenant-isolation denial.
func (s *SecurityLogger) AccessDenied(ctx context.Context, userID, role, orgID, operation, reason, ipAddr string) {
	s.Log(ctx, SecurityEvent{
		EventType:      "access_control",
		UserID:         userID,
		Role:           role,
		OrganizationID: orgID,
		IPAddress:      ipAddr,
		Operation:      operation,
		Reason:         reason,
	})
}

// LoginFailure logs a rejected login. The attempted email is deliberately
// not recorded.
func (s *SecurityLogger) LoginFailure(ctx context.Context, ipAddr, reason string) {
	s.Log(ctx, SecurityEvent{
		EventType: "authentication",
		IPAddress: ipAddr,
		Operation: "auth.login",
		Reason:    reason,
	})
}

// TokenRejected logs a bearer token that failed verification.
func (s *SecurityLogger) TokenRejected(ctx context.Context, ipAddr, path string) {
	s.Log(ctx, SecurityEvent{
		EventType: "authentication",
		IPAddress: ipAddr,
		Resource:  path,
		Reason:    "invalid_token",
	})
}
