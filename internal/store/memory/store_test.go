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

package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/securetask/internal/audit"
	"github.com/opentrusty/securetask/internal/authz"
	"github.com/opentrusty/securetask/internal/identity"
	"github.com/opentrusty/securetask/internal/store/memory"
	"github.com/opentrusty/securetask/internal/task"
	"github.com/opentrusty/securetask/internal/tenant"
)

func TestUserRepository_UniqueEmailAndCopies(t *testing.T) {
	ctx := context.Background()
	repo := memory.New().Users()

	u := &identity.User{ID: "u1", Email: "a@example.com", Role: authz.RoleOwner, OrganizationID: "o1"}
	require.NoError(t, repo.Create(ctx, u))
	assert.ErrorIs(t, repo.Create(ctx, &identity.User{ID: "u2", Email: "a@example.com"}), identity.ErrUserAlreadyExists)

	got, err := repo.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	got.Role = authz.RoleViewer

	again, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleOwner, again.Role)

	until := time.Now().Add(time.Minute)
	require.NoError(t, repo.UpdateLockout(ctx, "u1", 3, &until))
	again, _ = repo.GetByID(ctx, "u1")
	assert.Equal(t, 3, again.FailedLoginAttempts)
	assert.NotNil(t, again.LockedUntil)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestOrganizationRepository_FirstIsOldest(t *testing.T) {
	ctx := context.Background()
	repo := memory.New().Organizations()

	_, err := repo.First(ctx)
	assert.ErrorIs(t, err, tenant.ErrOrganizationNotFound)

	now := time.Now()
	require.NoError(t, repo.Create(ctx, &tenant.Organization{ID: "b", Name: "B", CreatedAt: now}))
	require.NoError(t, repo.Create(ctx, &tenant.Organization{ID: "a", Name: "A", CreatedAt: now.Add(-time.Hour)}))

	first, err := repo.First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", first.ID)

	page, err := repo.List(ctx, 10, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)
}

func TestTaskRepository_ListScopingAndSort(t *testing.T) {
	ctx := context.Background()
	repo := memory.New().Tasks()
	now := time.Now()

	seed := []*task.Task{
		{ID: "t1", OrganizationID: "o1", Status: task.StatusTodo, Category: task.CategoryWork, OrderIndex: 2, CreatedAt: now.Add(-3 * time.Minute)},
		{ID: "t2", OrganizationID: "o1", Status: task.StatusDone, Category: task.CategoryPersonal, OrderIndex: 0, CreatedAt: now.Add(-2 * time.Minute)},
		{ID: "t3", OrganizationID: "o1", Status: task.StatusTodo, Category: task.CategoryWork, OrderIndex: 1, CreatedAt: now.Add(-1 * time.Minute)},
		{ID: "t4", OrganizationID: "o2", Status: task.StatusTodo, Category: task.CategoryWork, CreatedAt: now},
	}
	for _, tk := range seed {
		require.NoError(t, repo.Create(ctx, tk))
	}

	ids := func(ts []*task.Task) []string {
		out := make([]string, len(ts))
		for i, t := range ts {
			out[i] = t.ID
		}
		return out
	}

	byCreated, err := repo.List(ctx, task.Filter{OrganizationID: "o1", Sort: task.SortCreatedAt})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t2", "t1"}, ids(byCreated))

	byOrder, err := repo.List(ctx, task.Filter{OrganizationID: "o1", Sort: task.SortOrderIndex})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t3", "t1"}, ids(byOrder))

	work, err := repo.List(ctx, task.Filter{OrganizationID: "o1", Category: task.CategoryWork, Status: task.StatusTodo})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t1"}, ids(work))

	none, err := repo.List(ctx, task.Filter{OrganizationID: "o3"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	assert.ErrorIs(t, repo.Delete(ctx, "missing"), task.ErrTaskNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &task.Task{ID: "missing"}), task.ErrTaskNotFound)
}

// TestPurpose: Validates end to end that a denied caller leaves the store unchanged.
// Scope: Integration Test (in-memory store)
// Security: No side effects on denial
// Expected: Viewer cannot create; foreign Owner cannot update or delete; stored task is unchanged.
// Test Case ID: MEM-01
func TestTaskService_DenialLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	log := audit.NewMemoryLog()
	svc := task.NewService(store.Tasks(), authz.ScopeChecker{}, log)
	guard := authz.NewGuard(authz.DefaultPolicy())

	owner := &authz.Identity{Subject: "owner-a", Email: "o@a.com", Role: authz.RoleOwner, OrganizationID: "org-a"}
	viewer := &authz.Identity{Subject: "viewer-a", Email: "v@a.com", Role: authz.RoleViewer, OrganizationID: "org-a"}
	foreign := &authz.Identity{Subject: "owner-b", Email: "o@b.com", Role: authz.RoleOwner, OrganizationID: "org-b"}

	created, err := svc.Create(ctx, owner, task.CreateInput{Title: "Quarterly plan"})
	require.NoError(t, err)

	// Viewer is stopped by the guard before the service runs.
	assert.ErrorIs(t, guard.Authorize(viewer, authz.OpTaskCreate), authz.ErrInsufficientPermission)
	require.NoError(t, guard.Authorize(viewer, authz.OpTaskList))
	list, err := svc.List(ctx, viewer, task.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	title := "pwned"
	_, err = svc.Update(ctx, foreign, created.ID, task.UpdateInput{Title: &title})
	assert.ErrorIs(t, err, authz.ErrCrossTenantAccess)
	assert.ErrorIs(t, svc.Delete(ctx, foreign, created.ID), authz.ErrCrossTenantAccess)

	stored, err := store.Tasks().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly plan", stored.Title)

	page, err := log.List(ctx, audit.Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, audit.ActionTaskCreate, page.Entries[0].Action)
}

func TestStore_ConcurrentTaskWrites(t *testing.T) {
	ctx := context.Background()
	repo := memory.New().Tasks()
	require.NoError(t, repo.Create(ctx, &task.Task{ID: "t1", OrganizationID: "o1", Title: "start"}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tk, err := repo.GetByID(ctx, "t1")
			if err != nil {
				return
			}
			tk.OrderIndex = i
			_ = repo.Update(ctx, tk)
		}(i)
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.OrderIndex, 0)
	assert.Less(t, got.OrderIndex, 20)
}
