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

// Check is one step of the authorization pipeline.
// It returns nil to pass control to the next step.
type Check func(id *Identity, op Operation, req Requirement) error

// Guard decides whether an identity may invoke an operation.
// It performs no I/O and is safe for concurrent use.
type Guard struct {
	policy Policy
	checks []Check
}

// NewGuard creates a guard over policy with the standard check order:
// role, then permission. Authentication and policy lookup always run first.
func NewGuard(policy Policy) *Guard {
	return &Guard{
		policy: policy,
		checks: []Check{RequireRoles, RequirePermission},
	}
}

// Policy returns the operation table the guard enforces.
func (g *Guard) Policy() Policy {
	return g.policy
}

// Authorize returns nil when id may invoke op, or a *Denial otherwise.
func (g *Guard) Authorize(id *Identity, op Operation) error {
	if id == nil {
		return &Denial{Reason: ErrAuthenticationRequired, Operation: op}
	}

	req, ok := g.policy.Lookup(op)
	if !ok {
		// Unregistered operations fail closed.
		return &Denial{Reason: ErrInsufficientPermission, Operation: op, Role: id.Role, Required: "registered operation"}
	}
	if req.Open() {
		return nil
	}

	for _, check := range g.checks {
		if err := check(id, op, req); err != nil {
			return err
		}
	}
	return nil
}

// RequireRoles denies identities whose role is not listed in req.Roles.
func RequireRoles(id *Identity, op Operation, req Requirement) error {
	if len(req.Roles) == 0 {
		return nil
	}
	for _, r := range req.Roles {
		if id.Role == r {
			return nil
		}
	}
	return &Denial{Reason: ErrInsufficientRole, Operation: op, Role: id.Role, Required: req.String()}
}

// RequirePermission denies identities whose role lacks req.Permission.
func RequirePermission(id *Identity, op Operation, req Requirement) error {
	if req.Permission == "" {
		return nil
	}
	if !HasPermission(id.Role, req.Permission) {
		return &Denial{Reason: ErrInsufficientPermission, Operation: op, Role: id.Role, Required: req.String()}
	}
	return nil
}
