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
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrInvalidOrganization  = errors.New("invalid organization")
)

// Repository defines the interface for organization storage
type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	// First returns the oldest organization, or ErrOrganizationNotFound.
	First(ctx context.Context) (*Organization, error)
	List(ctx context.Context, limit, offset int) ([]*Organization, error)
}
