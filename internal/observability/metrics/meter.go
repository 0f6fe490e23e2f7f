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

// Package metrics exposes OpenTelemetry instruments for the security layer.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a new meter instance
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{
			meter: otel.Meter("noop"),
		}, nil
	}

	// Get meter from global meter provider
	// In production, configure a proper meter provider with exporters
	meter := otel.Meter(serviceName)

	return &Meter{
		meter: meter,
	}, nil
}

// GetMeter returns the underlying meter
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// Instruments used by the authorization layer and the login flow.
const (
	AuthzDecisions = "authz.decisions"
	AuthLogins     = "auth.logins"
)

// SecurityMetrics counts authorization decisions and login attempts.
type SecurityMetrics struct {
	decisions metric.Int64Counter
	logins    metric.Int64Counter
}

// NewSecurityMetrics creates the security counters on m.
func NewSecurityMetrics(m *Meter) (*SecurityMetrics, error) {
	decisions, err := m.CreateCounter(AuthzDecisions, "Authorization decisions by operation, role and outcome")
	if err != nil {
		return nil, err
	}
	logins, err := m.CreateCounter(AuthLogins, "Login attempts by result")
	if err != nil {
		return nil, err
	}
	return &SecurityMetrics{decisions: decisions, logins: logins}, nil
}

// RecordDecision counts one guard decision. reason is "allowed" for grants.
func (s *SecurityMetrics) RecordDecision(ctx context.Context, operation, role, reason string) {
	if s == nil {
		return
	}
	s.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("role", role),
		attribute.String("reason", reason),
	))
}

// RecordLogin counts one login attempt.
func (s *SecurityMetrics) RecordLogin(ctx context.Context, result string) {
	if s == nil {
		return
	}
	s.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
