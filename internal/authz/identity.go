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
	"strings"
)

// ErrInvalidIdentity is returned when decoded claims do not form a complete identity.
var ErrInvalidIdentity = errors.New("invalid identity")

// Identity is the trusted, decoded description of the caller for one operation.
// It is built once at the token boundary and never modified afterwards.
type Identity struct {
	Subject        string
	Email          string
	Role           Role
	OrganizationID string
}

// Validate rejects partial identities. An identity that fails validation
// must never reach the guard.
func (id Identity) Validate() error {
	if strings.TrimSpace(id.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidIdentity)
	}
	if strings.TrimSpace(id.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidIdentity)
	}
	if !id.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidIdentity, id.Role)
	}
	if strings.TrimSpace(id.OrganizationID) == "" {
		return fmt.Errorf("%w: organization is required", ErrInvalidIdentity)
	}
	return nil
}

// Permissions returns the permissions granted to the identity's role.
func (id Identity) Permissions() []Permission {
	return PermissionsFor(id.Role)
}
