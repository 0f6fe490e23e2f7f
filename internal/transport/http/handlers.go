// @title SecureTask API
// @version 1.0.0
// @description Multi-tenant task tracker with role-based access control

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opentrusty/securetask/internal/audit"
	"github.com/opentrusty/securetask/internal/authz"
	"github.com/opentrusty/securetask/internal/identity"
	"github.com/opentrusty/securetask/internal/observability/logger"
	"github.com/opentrusty/securetask/internal/observability/metrics"
	"github.com/opentrusty/securetask/internal/observability/tracing"
	"github.com/opentrusty/securetask/internal/task"
	"github.com/opentrusty/securetask/internal/token"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	taskService     *task.Service
	auditLog        audit.Log
	issuer          *token.Issuer
	guard           *authz.Guard
	security        *logger.SecurityLogger
	metrics         *metrics.SecurityMetrics
	tracer          *tracing.Tracer
}

// Observability bundles the optional telemetry sinks of the handler.
// Nil fields fall back to the slog default logger and no-op telemetry.
type Observability struct {
	Security *logger.SecurityLogger
	Metrics  *metrics.SecurityMetrics
	Tracer   *tracing.Tracer
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	taskService *task.Service,
	auditLog audit.Log,
	issuer *token.Issuer,
	guard *authz.Guard,
	obs Observability,
) *Handler {
	if obs.Security == nil {
		obs.Security = logger.NewSecurityLogger(slog.Default())
	}
	if obs.Tracer == nil {
		// The disabled tracer never fails.
		obs.Tracer, _ = tracing.New(context.Background(), tracing.Config{})
	}
	return &Handler{
		identityService: identityService,
		taskService:     taskService,
		auditLog:        auditLog,
		issuer:          issuer,
		guard:           guard,
		security:        obs.Security,
		metrics:         obs.Metrics,
		tracer:          obs.Tracer,
	}
}

// RouterOptions configures the ambient parts of the router.
type RouterOptions struct {
	// RateLimiter throttles requests per client IP. Nil disables limiting.
	RateLimiter Limiter
	// HTTPMetrics receives request counters. Nil creates a private registry.
	HTTPMetrics *HTTPMetrics
	// DashboardDir serves the built dashboard SPA when set.
	DashboardDir string
	// RequestTimeout bounds each request. Zero means 60s.
	RequestTimeout time.Duration
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if opts.HTTPMetrics == nil {
		opts.HTTPMetrics = NewHTTPMetrics(nil)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(opts.HTTPMetrics.Instrument)
	if opts.RateLimiter != nil {
		r.Use(RateLimitMiddleware(opts.RateLimiter))
	}
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	// System
	r.Get("/health", h.HealthCheck)
	r.Method(http.MethodGet, "/metrics", opts.HTTPMetrics.Handler())
	r.Get("/swagger/doc.json", SwaggerDoc)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		// Public
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		// Guarded
		r.With(h.Require(authz.OpAuthMe)).Get("/auth/me", h.Me)

		r.Route("/tasks", func(r chi.Router) {
			r.With(h.Require(authz.OpTaskList)).Get("/", h.ListTasks)
			r.With(h.Require(authz.OpTaskCreate)).Post("/", h.CreateTask)
			r.With(h.Require(authz.OpTaskGet)).Get("/{taskID}", h.GetTask)
			r.With(h.Require(authz.OpTaskUpdate)).Put("/{taskID}", h.UpdateTask)
			r.With(h.Require(authz.OpTaskDelete)).Delete("/{taskID}", h.DeleteTask)
		})

		r.With(h.Require(authz.OpAuditList)).Get("/audit-log", h.ListAuditLog)
	})

	if opts.DashboardDir != "" {
		r.Handle("/*", NewSPAHandler(os.DirFS(opts.DashboardDir)))
	}

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "securetask",
	})
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error" example:"insufficient permissions"`
	Code  string `json:"code,omitempty" example:"insufficient_permission"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func respondCode(w http.ResponseWriter, status int, message, code string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps domain errors to stable status codes. Internal
// error text is never sent for 5xx responses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrAuthenticationRequired), errors.Is(err, token.ErrInvalidToken):
		respondCode(w, http.StatusUnauthorized, "authentication required", "authentication_required")
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrAccountLocked):
		// Locked accounts are indistinguishable from bad passwords on the wire.
		respondCode(w, http.StatusUnauthorized, "invalid credentials", "invalid_credentials")
	case errors.Is(err, authz.ErrInsufficientRole), errors.Is(err, authz.ErrInsufficientPermission):
		respondCode(w, http.StatusForbidden, "insufficient permissions", authz.ReasonCode(err))
	case errors.Is(err, authz.ErrCrossTenantAccess):
		respondCode(w, http.StatusForbidden, authz.ErrCrossTenantAccess.Error(), authz.ReasonCode(err))
	case errors.Is(err, authz.ErrResourceNotFound), errors.Is(err, task.ErrTaskNotFound):
		respondCode(w, http.StatusNotFound, "resource not found", "not_found")
	case errors.Is(err, task.ErrInvalidInput),
		errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrInvalidRole):
		respondCode(w, http.StatusBadRequest, err.Error(), "validation_failed")
	case errors.Is(err, identity.ErrUserAlreadyExists):
		respondCode(w, http.StatusConflict, "user already exists", "conflict")
	default:
		slog.ErrorContext(r.Context(), "request failed",
			logger.Path(r.URL.Path),
			logger.Error(err),
		)
		respondCode(w, http.StatusInternalServerError, "internal server error", "internal")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
