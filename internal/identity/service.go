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
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/opentrusty/securetask/internal/audit"
	"github.com/opentrusty/securetask/internal/authz"
	"github.com/opentrusty/securetask/internal/id"
)

const minPasswordLength = 8

// RegisterInput is a self-service registration request.
type RegisterInput struct {
	Email    string
	Password string
	Role     string
}

// hasher is the subset of PasswordHasher the service calls.
type hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Service provides identity-related business logic
type Service struct {
	repo               UserRepository
	orgs               OrganizationResolver
	hasher             hasher
	recorder           audit.Recorder
	lockoutMaxAttempts int
	lockoutDuration    time.Duration
	now                func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a new identity service
func NewService(
	repo UserRepository,
	orgs OrganizationResolver,
	hasher *PasswordHasher,
	recorder audit.Recorder,
	lockoutMaxAttempts int,
	lockoutDuration time.Duration,
) *Service {
	return &Service{
		repo:               repo,
		orgs:               orgs,
		hasher:             hasher,
		recorder:           recorder,
		lockoutMaxAttempts: lockoutMaxAttempts,
		lockoutDuration:    lockoutDuration,
		now:                time.Now,
	}
}

// Register creates a user in the default organization.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidEmail)
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrWeakPassword)
	}
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	role, ok := authz.ParseRole(in.Role)
	if !ok {
		return nil, ErrInvalidRole
	}
	if !isStrongPassword(in.Password) {
		return nil, ErrWeakPassword
	}

	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	} else if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	orgID, err := s.orgs.DefaultOrganizationID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoOrganization, err)
	}

	user, err := s.create(ctx, email, in.Password, role, orgID)
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Action:         audit.ActionRegister,
		Resource:       "auth",
		Result:         audit.ResultSuccess,
		Details:        user.Email,
	})

	return user, nil
}

// CreateUser provisions a user directly, bypassing self-service checks on
// organization choice. Used for seeding.
func (s *Service) CreateUser(ctx context.Context, email, password string, role authz.Role, orgID string) (*User, error) {
	email = NormalizeEmail(email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if !isStrongPassword(password) {
		return nil, ErrWeakPassword
	}
	return s.create(ctx, email, password, role, orgID)
}

func (s *Service) create(ctx context.Context, email, password string, role authz.Role, orgID string) (*User, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:             id.NewUUIDv7(),
		Email:          email,
		PasswordHash:   passwordHash,
		Role:           role,
		OrganizationID: orgID,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate authenticates a user with email and password.
// Unknown email and wrong password both return ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		// Spend the same hashing work as a real check.
		_, _ = s.hasher.Verify(password, s.dummy())
		s.recordLoginFailure(ctx, nil, "user_not_found")
		return nil, ErrInvalidCredentials
	}

	if user.Locked(s.now()) {
		// Locked accounts pay the same hashing cost as unknown emails.
		_, _ = s.hasher.Verify(password, user.PasswordHash)
		s.recordLoginFailure(ctx, user, "locked_out")
		return nil, ErrAccountLocked
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !valid {
		newAttempts := user.FailedLoginAttempts + 1
		var newLockedUntil *time.Time

		if s.lockoutMaxAttempts > 0 && newAttempts >= s.lockoutMaxAttempts {
			until := s.now().Add(s.lockoutDuration)
			newLockedUntil = &until
		}

		_ = s.repo.UpdateLockout(ctx, user.ID, newAttempts, newLockedUntil)

		reason := "invalid_password"
		if newLockedUntil != nil {
			reason = "invalid_password_locked"
		}
		s.recordLoginFailure(ctx, user, reason)
		return nil, ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		_ = s.repo.UpdateLockout(ctx, user.ID, 0, nil)
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
	}

	s.record(ctx, audit.Entry{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Action:         audit.ActionLogin,
		Resource:       "auth",
		Result:         audit.ResultSuccess,
		Details:        user.Email,
	})

	return user, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// HasUsers reports whether any user exists.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return n > 0, nil
}

func (s *Service) recordLoginFailure(ctx context.Context, user *User, reason string) {
	e := audit.Entry{
		Action:   audit.ActionLogin,
		Resource: "auth",
		Result:   audit.ResultFailure,
		Details:  reason,
	}
	if user != nil {
		e.UserID = user.ID
		e.OrganizationID = user.OrganizationID
	}
	s.record(ctx, e)
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.recorder != nil {
		s.recorder.Record(ctx, e)
	}
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("not-a-real-password")
	})
	return s.dummyHash
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if len(email) <= 3 || len(email) >= 255 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func isStrongPassword(password string) bool {
	return len(password) >= minPasswordLength
}
