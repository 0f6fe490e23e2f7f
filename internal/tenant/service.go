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

package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opentrusty/securetask/internal/id"
)

// Service provides organization management business logic
type Service struct {
	repo Repository
}

// NewService creates a new organization service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateOrganization creates a new organization, optionally under parentID.
func (s *Service) CreateOrganization(ctx context.Context, name string, parentID *string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidOrganization)
	}

	if parentID != nil {
		if _, err := s.repo.GetByID(ctx, *parentID); err != nil {
			return nil, fmt.Errorf("%w: parent %s: %w", ErrInvalidOrganization, *parentID, err)
		}
	}

	org := &Organization{
		ID:        id.NewUUIDv7(),
		Name:      name,
		ParentID:  parentID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	return org, nil
}

// GetOrganization retrieves an organization by ID
func (s *Service) GetOrganization(ctx context.Context, orgID string) (*Organization, error) {
	return s.repo.GetByID(ctx, orgID)
}

// ListOrganizations lists organizations with pagination
func (s *Service) ListOrganizations(ctx context.Context, limit, offset int) ([]*Organization, error) {
	return s.repo.List(ctx, limit, offset)
}

// DefaultOrganization returns the organization new registrations join.
func (s *Service) DefaultOrganization(ctx context.Context) (*Organization, error) {
	return s.repo.First(ctx)
}

// EnsureDefault returns the default organization, creating it if none exists.
func (s *Service) EnsureDefault(ctx context.Context) (*Organization, error) {
	org, err := s.repo.First(ctx)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, ErrOrganizationNotFound) {
		return nil, err
	}
	return s.CreateOrganization(ctx, DefaultOrganizationName, nil)
}

// DefaultOrganizationID returns the id of the default organization.
func (s *Service) DefaultOrganizationID(ctx context.Context) (string, error) {
	org, err := s.repo.First(ctx)
	if err != nil {
		return "", err
	}
	return org.ID, nil
}
