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

package http

import (
	"context"

	"github.com/opentrusty/securetask/internal/authz"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying the verified caller.
func WithIdentity(ctx context.Context, id *authz.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity retrieves the verified caller from context.
// It returns nil on unauthenticated requests.
func GetIdentity(ctx context.Context) *authz.Identity {
	if val, ok := ctx.Value(identityKey).(*authz.Identity); ok {
		return val
	}
	return nil
}

// GetUserID retrieves the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	if id := GetIdentity(ctx); id != nil {
		return id.Subject
	}
	return ""
}

// GetOrganizationID retrieves the caller's organization from context.
func GetOrganizationID(ctx context.Context) string {
	if id := GetIdentity(ctx); id != nil {
		return id.OrganizationID
	}
	return ""
}
