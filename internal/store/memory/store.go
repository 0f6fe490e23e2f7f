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

// Package memory provides process-local repositories. They back the server
// when STORE_DRIVER=memory and are used by tests. Every read returns a copy.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/opentrusty/securetask/internal/identity"
	"github.com/opentrusty/securetask/internal/task"
	"github.com/opentrusty/securetask/internal/tenant"
)

// Store holds all in-memory tables behind one lock.
type Store struct {
	mu    sync.RWMutex
	users map[string]*identity.User
	orgs  map[string]*tenant.Organization
	tasks map[string]*task.Task
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users: make(map[string]*identity.User),
		orgs:  make(map[string]*tenant.Organization),
		tasks: make(map[string]*task.Task),
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Organizations returns the organization repository view of the store.
func (s *Store) Organizations() *OrganizationRepository { return &OrganizationRepository{s: s} }

// Tasks returns the task repository view of the store.
func (s *Store) Tasks() *TaskRepository { return &TaskRepository{s: s} }

// UserRepository implements identity.UserRepository
type UserRepository struct{ s *Store }

func copyUser(u *identity.User) *identity.User {
	cp := *u
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		cp.LockedUntil = &t
	}
	return &cp
}

func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return identity.ErrUserAlreadyExists
		}
	}
	if _, ok := r.s.users[user.ID]; ok {
		return identity.ErrUserAlreadyExists
	}
	r.s.users[user.ID] = copyUser(user)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (r *UserRepository) UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.FailedLoginAttempts = failedAttempts
	u.LockedUntil = nil
	if lockedUntil != nil {
		t := *lockedUntil
		u.LockedUntil = &t
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users), nil
}

// OrganizationRepository implements tenant.Repository
type OrganizationRepository struct{ s *Store }

func copyOrg(o *tenant.Organization) *tenant.Organization {
	cp := *o
	if o.ParentID != nil {
		p := *o.ParentID
		cp.ParentID = &p
	}
	return &cp
}

func (r *OrganizationRepository) Create(ctx context.Context, org *tenant.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orgs[org.ID]; ok {
		return tenant.ErrInvalidOrganization
	}
	r.s.orgs[org.ID] = copyOrg(org)
	return nil
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*tenant.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orgs[id]
	if !ok {
		return nil, tenant.ErrOrganizationNotFound
	}
	return copyOrg(o), nil
}

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

// List orders by creation time, then id.
func (r *OrganizationRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Organization, error) {
	r.s.mu.RLock()
	all := make([]*tenant.Organization, 0, len(r.s.orgs))
	for _, o := range r.s.orgs {
		all = append(all, copyOrg(o))
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, limit, offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// TaskRepository implements task.Repository
type TaskRepository struct{ s *Store }

func copyTask(t *task.Task) *task.Task {
	cp := *t
	if t.Description != nil {
		d := *t.Description
		cp.Description = &d
	}
	return &cp
}

func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tasks[t.ID] = copyTask(t)
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*task.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	return copyTask(t), nil
}

func (r *TaskRepository) List(ctx context.Context, f task.Filter) ([]*task.Task, error) {
	r.s.mu.RLock()
	out := []*task.Task{}
	for _, t := range r.s.tasks {
		if t.OrganizationID != f.OrganizationID {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, copyTask(t))
	}
	r.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if f.Sort == task.SortOrderIndex && out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Update replaces the stored task. Last writer wins.
func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[t.ID]; !ok {
		return task.ErrTaskNotFound
	}
	r.s.tasks[t.ID] = copyTask(t)
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return task.ErrTaskNotFound
	}
	delete(r.s.tasks, id)
	return nil
}
