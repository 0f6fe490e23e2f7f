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
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/opentrusty/securetask/internal/task"
)

// TaskRepository implements task.Repository
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, title, description, status, category, order_index,
	organization_id, created_by_user_id, created_at, updated_at`

func scanTask(row pgx.Row) (*task.Task, error) {
	var t task.Task
	var status, category string
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &status, &category, &t.OrderIndex,
		&t.OrganizationID, &t.CreatedByUserID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	t.Category = task.Category(category)
	return &t, nil
}

// Create inserts a new task
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Category), t.OrderIndex,
		t.OrganizationID, t.CreatedByUserID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID, regardless of organization
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*task.Task, error) {
	t, err := scanTask(r.db.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, task.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// List returns the tasks matching f
func (r *TaskRepository) List(ctx context.Context, f task.Filter) ([]*task.Task, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE organization_id = $1`)
	args := []any{f.OrganizationID}

	if f.Category != "" {
		args = append(args, string(f.Category))
		fmt.Fprintf(&b, " AND category = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		fmt.Fprintf(&b, " AND status = $%d", len(args))
	}
	if f.Sort == task.SortOrderIndex {
		b.WriteString(" ORDER BY order_index ASC, created_at DESC")
	} else {
		b.WriteString(" ORDER BY created_at DESC, id DESC")
	}

	rows, err := r.db.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update writes the mutable fields of t. Organization and creator are never updated.
func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tasks SET
			title = $2,
			description = $3,
			status = $4,
			category = $5,
			order_index = $6,
			updated_at = $7
		WHERE id = $1
	`, t.ID, t.Title, t.Description, string(t.Status), string(t.Category), t.OrderIndex, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return task.ErrTaskNotFound
	}
	return nil
}

// Delete removes a task
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return task.ErrTaskNotFound
	}
	return nil
}
