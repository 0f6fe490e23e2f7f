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

// -----------------------------------------------------------------------------
// Role Constants
// These are the canonical role names carried in tokens and stored with users.
// -----------------------------------------------------------------------------

// Role is a named bundle of capabilities assigned to a user.
type Role string

const (
	// RoleOwner has full control over the organization's tasks and may read
	// the audit log.
	RoleOwner Role = "Owner"

	// RoleAdmin manages tasks but cannot read the audit log.
	RoleAdmin Role = "Admin"

	// RoleViewer has read-only access to tasks.
	RoleViewer Role = "Viewer"
)

// Roles lists the closed set of roles in ascending order of privilege.
var Roles = []Role{RoleViewer, RoleAdmin, RoleOwner}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleViewer:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a wire value into a Role.
// Matching is exact; "owner" and " Owner " are not "Owner".
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// -----------------------------------------------------------------------------
// Permission Constants
// -----------------------------------------------------------------------------

// Permission is a single, checkable capability.
type Permission string

const (
	PermTaskCreate Permission = "task:create"
	PermTaskRead   Permission = "task:read"
	PermTaskUpdate Permission = "task:update"
	PermTaskDelete Permission = "task:delete"
	PermAuditRead  Permission = "audit:read"
)

func (p Permission) String() string {
	return string(p)
}

// -----------------------------------------------------------------------------
// Role Permission Mappings
// Loaded at process start and never mutated. Owner ⊇ Admin ⊇ Viewer;
// only Owner holds audit:read. Re-check TestRoles_Containment when editing.
// -----------------------------------------------------------------------------

var rolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermTaskCreate,
		PermTaskRead,
		PermTaskUpdate,
		PermTaskDelete,
		PermAuditRead,
	},
	RoleAdmin: {
		PermTaskCreate,
		PermTaskRead,
		PermTaskUpdate,
		PermTaskDelete,
	},
	RoleViewer: {
		PermTaskRead,
	},
}

// PermissionsFor returns the permissions held by role.
// Unknown roles hold nothing. The returned slice is a copy.
func PermissionsFor(role Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether role holds permission.
func HasPermission(role Role, permission Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CanAccessAuditLog reports whether role may read the audit log.
func CanAccessAuditLog(role Role) bool {
	return HasPermission(role, PermAuditRead)
}

// PermissionStrings returns the wire form of the permissions held by role.
func PermissionStrings(role Role) []string {
	perms := rolePermissions[role]
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}
