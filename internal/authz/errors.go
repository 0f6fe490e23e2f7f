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

package authz

import (
	"errors"
	"fmt"
)

// Denial classes. Each maps to a distinct, stable outcome at the transport layer.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInsufficientRole       = errors.New("insufficient role")
	ErrInsufficientPermission = errors.New("insufficient permission")
	ErrResourceNotFound       = errors.New("resource not found")
	ErrCrossTenantAccess      = errors.New("access denied to this resource")
)

// Denial describes why an operation was refused.
// errors.Is matches it against the sentinel in Reason.
type Denial struct {
	Reason    error
	Operation Operation
	Role      Role
	Required  string
}

func (d *Denial) Error() string {
	if d.Required != "" {
		return fmt.Sprintf("%s: operation %s requires %s (role %q)", d.Reason, d.Operation, d.Required, d.Role)
	}
	if d.Operation != "" {
		return fmt.Sprintf("%s: operation %s", d.Reason, d.Operation)
	}
	return d.Reason.Error()
}

func (d *Denial) Unwrap() error {
	return d.Reason
}

// ReasonCode returns a short, log-friendly code for err.
func ReasonCode(err error) string {
	switch {
	case err == nil:
		return "allowed"
	case errors.Is(err, ErrAuthenticationRequired):
		return "authentication_required"
	case errors.Is(err, ErrInsufficientRole):
		return "insufficient_role"
	case errors.Is(err, ErrInsufficientPermission):
		return "insufficient_permission"
	case errors.Is(err, ErrCrossTenantAccess):
		return "cross_tenant_access"
	case errors.Is(err, ErrResourceNotFound):
		return "not_found"
	default:
		return "error"
	}
}
