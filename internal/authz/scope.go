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

// Tenant Isolation Principles:
// 1. Every resource is stamped with its organization at creation
// 2. The stamp comes from the creator's identity, never from request input
// 3. Reads, updates and deletes compare the stamp to the caller's organization
//
// Role does not matter here: an Owner of one organization has no access to
// another organization's resources. Only direct equality is compared;
// parent/child organizations do not inherit access.

// Resource is anything owned by exactly one organization.
type Resource interface {
	OwnerOrganization() string
}

// ScopePolicy selects how cross-tenant access is reported.
type ScopePolicy int

const (
	// ScopeDistinct reports cross-tenant access as ErrCrossTenantAccess.
	// This reveals that the id exists in some organization.
	ScopeDistinct ScopePolicy = iota

	// ScopeConceal reports cross-tenant access as ErrResourceNotFound.
	ScopeConceal
)

// ScopeChecker enforces tenant isolation on fetched resources.
type ScopeChecker struct {
	Policy ScopePolicy
}

// Check returns nil when id may touch res. A nil res means the lookup found nothing.
func (c ScopeChecker) Check(id *Identity, res Resource) error {
	if id == nil {
		return &Denial{Reason: ErrAuthenticationRequired}
	}
	if res == nil {
		return &Denial{Reason: ErrResourceNotFound, Role: id.Role}
	}
	if res.OwnerOrganization() != id.OrganizationID {
		if c.Policy == ScopeConceal {
			return &Denial{Reason: ErrResourceNotFound, Role: id.Role}
		}
		return &Denial{Reason: ErrCrossTenantAccess, Role: id.Role}
	}
	return nil
}
