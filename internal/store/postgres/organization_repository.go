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

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/opentrusty/securetask/internal/tenant"
)

// OrganizationRepository implements tenant.Repository
type OrganizationRepository struct {
	db *DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create creates a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *tenant.Organization) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, parent_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, org.ID, org.Name, org.ParentID, org.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert organization: %w", err)
	}
	return nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*tenant.Organization, error) {
	var org tenant.Organization
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, parent_id, created_at
		FROM organizations
		WHERE id = $1
	`, id).Scan(&org.ID, &org.Name, &org.ParentID, &org.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// First returns the oldest organization
func (r *OrganizationRepository) First(ctx context.Context) (*tenant.Organization, error) {
	orgs, err := r.List(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, tenant.ErrOrganizationNotFound
	}
	return orgs[0], nil
}

// List lists organizations with pagination, oldest first
func (r *OrganizationRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Organization, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, parent_id, created_at
		FROM organizations
		ORDER BY created_at ASC, id ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	orgs := []*tenant.Organization{}
	for rows.Next() {
		var org tenant.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.ParentID, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, &org)
	}
	return orgs, rows.Err()
}
