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

package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opentrusty/securetask/internal/authz"
	"github.com/opentrusty/securetask/internal/tenant"
)

// DefaultSeedPassword is used for demo users when no password is configured.
const DefaultSeedPassword = "admin123"

// DemoUser is one account created by the seeder.
type DemoUser struct {
	Email string
	Role  authz.Role
}

// DemoUsers are created in the default organization on an empty store.
var DemoUsers = []DemoUser{
	{Email: "admin@example.com", Role: authz.RoleOwner},
	{Email: "admin2@example.com", Role: authz.RoleAdmin},
	{Email: "viewer@example.com", Role: authz.RoleViewer},
}

// OrganizationBootstrapper creates the default organization when missing.
type OrganizationBootstrapper interface {
	EnsureDefault(ctx context.Context) (*tenant.Organization, error)
}

// BootstrapService manages the initial initialization of the system
type BootstrapService struct {
	identityService *Service
	orgs            OrganizationBootstrapper
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(identityService *Service, orgs OrganizationBootstrapper) *BootstrapService {
	return &BootstrapService{
		identityService: identityService,
		orgs:            orgs,
	}
}

// Bootstrap ensures the default organization exists. When seedDemo is set
// and no user exists yet, it also creates the demo users.
func (s *BootstrapService) Bootstrap(ctx context.Context, seedDemo bool, password string) error {
	org, err := s.orgs.EnsureDefault(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure default organization: %w", err)
	}

	if !seedDemo {
		return nil
	}

	hasUsers, err := s.identityService.HasUsers(ctx)
	if err != nil {
		return err
	}
	if hasUsers {
		// Already bootstrapped, skip silently
		return nil
	}

	if password == "" {
		password = DefaultSeedPassword
	}

	for _, u := range DemoUsers {
		if _, err := s.identityService.CreateUser(ctx, u.Email, password, u.Role, org.ID); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
	}

	slog.InfoContext(ctx, "seeded default organization and demo users",
		slog.String("organization_id", org.ID),
		slog.Int("users", len(DemoUsers)),
	)
	return nil
}
