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
	"net/http"
	"strconv"

	"github.com/opentrusty/securetask/internal/audit"
)

// ListAuditLog returns a page of the audit log, newest first
// @Summary Read audit log
// @Description Page through the caller's organization audit entries, newest first. Owner only.
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number, from 1"
// @Param limit query int false "Page size, 1 to 100 (default 50)"
// @Param as_of query string false "Pin the listing to entries at or before this entry id"
// @Success 200 {object} audit.Page
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /audit-log [get]
func (h *Handler) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	caller := GetIdentity(r.Context())
	q := r.URL.Query()

	query := audit.Query{
		Page:           queryInt(q.Get("page"), 1),
		Limit:          queryInt(q.Get("limit"), audit.DefaultLimit),
		AsOf:           q.Get("as_of"),
		OrganizationID: caller.OrganizationID,
	}.Normalize()

	page, err := h.auditLog.List(r.Context(), query)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	h.auditLog.Record(r.Context(), audit.Entry{
		UserID:         caller.Subject,
		OrganizationID: caller.OrganizationID,
		Action:         audit.ActionAuditRead,
		Resource:       "audit-log",
		Result:         audit.ResultSuccess,
		Metadata:       map[string]any{"page": query.Page, "limit": query.Limit},
	})

	respondJSON(w, http.StatusOK, page)
}

// queryInt parses a query value, returning def when it is not a number.
func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
