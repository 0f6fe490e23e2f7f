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

// Package task implements the organization-scoped task resource.
package task

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTaskNotFound is returned by repositories when no task has the id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidInput is returned for malformed create or update input.
	ErrInvalidInput = errors.New("invalid task input")
)

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "Todo"
	StatusInProgress Status = "InProgress"
	StatusDone       Status = "Done"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Category groups tasks.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryWork || c == CategoryPersonal
}

// Sort orders for List.
const (
	SortCreatedAt  = "createdAt"
	SortOrderIndex = "orderIndex"
)

// Task is a unit of work owned by one organization.
// OrganizationID and CreatedByUserID are set on create and never change.
type Task struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description"`
	Status          Status    `json:"status"`
	Category        Category  `json:"category"`
	OrderIndex      int       `json:"orderIndex"`
	OrganizationID  string    `json:"organizationId"`
	CreatedByUserID string    `json:"createdByUserId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// OwnerOrganization implements authz.Resource.
func (t *Task) OwnerOrganization() string {
	return t.OrganizationID
}

// Filter selects tasks for List. OrganizationID is always set by the service.
type Filter struct {
	OrganizationID string
	Category       Category
	Status         Status
	Sort           string
}

// Repository defines the interface for task storage
type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, f Filter) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}
