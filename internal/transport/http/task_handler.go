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

package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opentrusty/securetask/internal/task"
)

// CreateTaskRequest represents a new task
type CreateTaskRequest struct {
	Title       string        `json:"title" example:"Write report"`
	Description *string       `json:"description,omitempty"`
	Status      task.Status   `json:"status,omitempty" enums:"Todo,InProgress,Done"`
	Category    task.Category `json:"category,omitempty" enums:"Work,Personal"`
	OrderIndex  int           `json:"orderIndex"`
}

// UpdateTaskRequest is a partial update. Omitted fields are unchanged;
// an explicit null description clears it.
type UpdateTaskRequest struct {
	Title       *string        `json:"title,omitempty"`
	Description OptionalString `json:"description" swaggertype:"string"`
	Status      *task.Status   `json:"status,omitempty" enums:"Todo,InProgress,Done"`
	Category    *task.Category `json:"category,omitempty" enums:"Work,Personal"`
	OrderIndex  *int           `json:"orderIndex,omitempty"`
}

// OptionalString tells an absent JSON field apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only called when the field is present.
func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// ListTasks lists the caller's organization tasks
// @Summary List tasks
// @Description List tasks of the caller's organization
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param sort query string false "createdAt (default) or orderIndex"
// @Param category query string false "Work or Personal"
// @Param status query string false "Todo, InProgress or Done"
// @Success 200 {array} task.Task
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := h.taskService.List(r.Context(), GetIdentity(r.Context()), task.ListOptions{
		Sort:     q.Get("sort"),
		Category: task.Category(q.Get("category")),
		Status:   task.Status(q.Get("status")),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a task
// @Summary Create task
// @Description Create a task in the caller's organization
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task"
// @Success 201 {object} task.Task
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /tasks [post]
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.taskService.Create(r.Context(), GetIdentity(r.Context()), task.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Category:    req.Category,
		OrderIndex:  req.OrderIndex,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// GetTask returns one task
// @Summary Get task
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Success 200 {object} task.Task
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tasks/{taskID} [get]
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.taskService.Get(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "taskID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// UpdateTask applies a partial update
// @Summary Update task
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Param request body UpdateTaskRequest true "Changes"
// @Success 200 {object} task.Task
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tasks/{taskID} [put]
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := task.UpdateInput{
		Title:      req.Title,
		Status:     req.Status,
		Category:   req.Category,
		OrderIndex: req.OrderIndex,
	}
	if req.Description.Set {
		if req.Description.Value == nil {
			in.ClearDescription = true
		} else {
			in.Description = req.Description.Value
		}
	}

	t, err := h.taskService.Update(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "taskID"), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// DeleteTask deletes a task
// @Summary Delete task
// @Tags Tasks
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tasks/{taskID} [delete]
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.taskService.Delete(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "taskID")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
