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
	"errors"
	"time"

	"github.com/opentrusty/securetask/internal/authz"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrInvalidRole        = errors.New("role must be Owner, Admin, or Viewer")
	ErrAccountLocked      = errors.New("account is locked")
	ErrNoOrganization     = errors.New("no organization available")
)

// User represents a user identity in the system.
// A user belongs to exactly one organization and holds exactly one role.
type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	Role                authz.Role
	OrganizationID      string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
}

// Identity returns the authorization identity carried in tokens for u.
func (u *User) Identity() authz.Identity {
	return authz.Identity{
		Subject:        u.ID,
		Email:          u.Email,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
	}
}

// Locked reports whether the account is locked at now.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create stores a new user. Returns ErrUserAlreadyExists on a duplicate email.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by lowercased email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateLockout updates user lockout status
	UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error

	// Count returns the number of users
	Count(ctx context.Context) (int, error)
}

// OrganizationResolver yields the organization new users join.
type OrganizationResolver interface {
	DefaultOrganizationID(ctx context.Context) (string, error)
}
