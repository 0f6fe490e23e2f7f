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

import "strings"

// Operation names an exposed operation, e.g. "task.create".
type Operation string

// Operations exposed by the API.
const (
	OpAuthMe     Operation = "auth.me"
	OpTaskList   Operation = "task.list"
	OpTaskGet    Operation = "task.get"
	OpTaskCreate Operation = "task.create"
	OpTaskUpdate Operation = "task.update"
	OpTaskDelete Operation = "task.delete"
	OpAuditList  Operation = "audit.list"
)

// Requirement is what an operation demands of its caller.
// Roles and Permission are independent; when both are set both must pass.
// The zero value admits any authenticated identity.
type Requirement struct {
	Permission Permission
	Roles      []Role
}

// Open reports whether the requirement admits any authenticated identity.
func (r Requirement) Open() bool {
	return r.Permission == "" && len(r.Roles) == 0
}

func (r Requirement) String() string {
	var parts []string
	if len(r.Roles) > 0 {
		names := make([]string, len(r.Roles))
		for i, role := range r.Roles {
			names[i] = string(role)
		}
		parts = append(parts, "role in ["+strings.Join(names, ",")+"]")
	}
	if r.Permission != "" {
		parts = append(parts, "permission "+string(r.Permission))
	}
	if len(parts) == 0 {
		return "authentication"
	}
	return strings.Join(parts, " and ")
}

// Policy maps each operation to its requirement.
// Build it once at startup; it is read concurrently without locking.
type Policy map[Operation]Requirement

// Lookup returns the requirement for op. Unregistered operations report false.
func (p Policy) Lookup(op Operation) (Requirement, bool) {
	req, ok := p[op]
	return req, ok
}

// DefaultPolicy returns the operation table served by the API.
func DefaultPolicy() Policy {
	return Policy{
		OpAuthMe:     {},
		OpTaskList:   {Permission: PermTaskRead},
		OpTaskGet:    {Permission: PermTaskRead},
		OpTaskCreate: {Permission: PermTaskCreate},
		OpTaskUpdate: {Permission: PermTaskUpdate},
		OpTaskDelete: {Permission: PermTaskDelete},
		OpAuditList:  {Roles: []Role{RoleOwner}, Permission: PermAuditRead},
	}
}
