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

package task

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/opentrusty/securetask/internal/audit"
	"github.com/opentrusty/securetask/internal/authz"
	"github.com/opentrusty/securetask/internal/id"
)

// CreateInput holds the caller-supplied fields of a new task.
// Zero Status and Category take their defaults.
type CreateInput struct {
	Title       string
	Description *string
	Status      Status
	Category    Category
	OrderIndex  int
}

// UpdateInput is a partial update. Nil fields are left unchanged.
// ClearDescription sets the description to null.
type UpdateInput struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Status           *Status
	Category         *Category
	OrderIndex       *int
}

func (in UpdateInput) validate() error {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	if in.Status != nil && !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *in.Status)
	}
	if in.Category != nil && !in.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, *in.Category)
	}
	if in.OrderIndex != nil {
		return validateOrderIndex(*in.OrderIndex)
	}
	return nil
}

// validateOrderIndex keeps the value within the 32-bit column range.
func validateOrderIndex(n int) error {
	if n < math.MinInt32 || n > math.MaxInt32 {
		return fmt.Errorf("%w: orderIndex out of range", ErrInvalidInput)
	}
	return nil
}

// ListOptions narrows List.
type ListOptions struct {
	Sort     string
	Category Category
	Status   Status
}

// Service provides task business logic. Every call is scoped to the
// caller's organization.
type Service struct {
	repo     Repository
	scope    authz.ScopeChecker
	recorder audit.Recorder
	now      func() time.Time
}

// NewService creates a new task service
func NewService(repo Repository, scope authz.ScopeChecker, recorder audit.Recorder) *Service {
	return &Service{
		repo:     repo,
		scope:    scope,
		recorder: recorder,
		now:      time.Now,
	}
}

// Create stores a new task in the caller's organization.
func (s *Service) Create(ctx context.Context, caller *authz.Identity, in CreateInput) (*Task, error) {
	if caller == nil {
		return nil, &authz.Denial{Reason: authz.ErrAuthenticationRequired, Operation: authz.OpTaskCreate}
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	if in.Category == "" {
		in.Category = CategoryWork
	}
	if !in.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	if err := validateOrderIndex(in.OrderIndex); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t := &Task{
		ID:              id.NewUUIDv7(),
		Title:           title,
		Description:     in.Description,
		Status:          in.Status,
		Category:        in.Category,
		OrderIndex:      in.OrderIndex,
		OrganizationID:  caller.OrganizationID,
		CreatedByUserID: caller.Subject,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.record(ctx, caller, audit.ActionTaskCreate, t.ID, t.Title)
	return t, nil
}

// List returns the tasks of the caller's organization.
func (s *Service) List(ctx context.Context, caller *authz.Identity, opts ListOptions) ([]*Task, error) {
	if caller == nil {
		return nil, &authz.Denial{Reason: authz.ErrAuthenticationRequired, Operation: authz.OpTaskList}
	}
	if opts.Category != "" && !opts.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, opts.Category)
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, opts.Status)
	}
	sort := opts.Sort
	if sort != SortOrderIndex {
		sort = SortCreatedAt
	}

	tasks, err := s.repo.List(ctx, Filter{
		OrganizationID: caller.OrganizationID,
		Category:       opts.Category,
		Status:         opts.Status,
		Sort:           sort,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	return tasks, nil
}

// Get returns one task of the caller's organization.
func (s *Service) Get(ctx context.Context, caller *authz.Identity, taskID string) (*Task, error) {
	return s.load(ctx, caller, taskID)
}

// Update applies a partial update. Concurrent updates are last-writer-wins.
func (s *Service) Update(ctx context.Context, caller *authz.Identity, taskID string, in UpdateInput) (*Task, error) {
	t, err := s.load(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}

	if err := in.validate(); err != nil {
		return nil, err
	}

	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.ClearDescription {
		t.Description = nil
	} else if in.Description != nil {
		t.Description = in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Category != nil {
		t.Category = *in.Category
	}
	if in.OrderIndex != nil {
		t.OrderIndex = *in.OrderIndex
	}
	t.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, t); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil, &authz.Denial{Reason: authz.ErrResourceNotFound, Role: caller.Role}
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.record(ctx, caller, audit.ActionTaskUpdate, t.ID, "")
	return t, nil
}

// Delete removes one task of the caller's organization.
func (s *Service) Delete(ctx context.Context, caller *authz.Identity, taskID string) error {
	t, err := s.load(ctx, caller, taskID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, t.ID); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return &authz.Denial{Reason: authz.ErrResourceNotFound, Role: caller.Role}
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.record(ctx, caller, audit.ActionTaskDelete, t.ID, "")
	return nil
}

// load fetches a task and applies the tenant check.
func (s *Service) load(ctx context.Context, caller *authz.Identity, taskID string) (*Task, error) {
	if caller == nil {
		return nil, &authz.Denial{Reason: authz.ErrAuthenticationRequired}
	}
	// Ids that cannot exist are not sent to the store.
	if !id.Valid(taskID) {
		return nil, s.scope.Check(caller, nil)
	}

	t, err := s.repo.GetByID(ctx, taskID)
	if errors.Is(err, ErrTaskNotFound) {
		return nil, s.scope.Check(caller, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if err := s.scope.Check(caller, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) record(ctx context.Context, caller *authz.Identity, action, taskID, details string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, audit.Entry{
		UserID:         caller.Subject,
		OrganizationID: caller.OrganizationID,
		Action:         action,
		Resource:       "task:" + taskID,
		Result:         audit.ResultSuccess,
		Details:        details,
	})
}
