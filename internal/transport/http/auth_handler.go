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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/opentrusty/securetask/internal/audit"
	"github.com/opentrusty/securetask/internal/authz"
	"github.com/opentrusty/securetask/internal/identity"
	"github.com/opentrusty/securetask/internal/observability/logger"
)

// RegisterRequest represents registration data
type RegisterRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"secret123"`
	Role     string `json:"role" example:"Viewer" enums:"Owner,Admin,Viewer"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"secret123"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId"`
}

// LoginResponse is returned by login and registration.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
	Permissions []string     `json:"permissions"`
}

// MeResponse describes the current caller.
type MeResponse struct {
	User        UserResponse `json:"user"`
	Permissions []string     `json:"permissions"`
}

func newUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Role:           u.Role.String(),
		OrganizationID: u.OrganizationID,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a user in the default organization and return a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration Data"
// @Success 201 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.Register(r.Context(), identity.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		if !errors.Is(err, identity.ErrUserAlreadyExists) {
			slog.WarnContext(r.Context(), "registration rejected", logger.Error(err))
		}
		respondServiceError(w, r, err)
		return
	}

	h.respondWithToken(w, r, http.StatusCreated, user)
}

// Login handles user login
// @Summary Login
// @Description Authenticate with email and password and receive a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordLogin(r.Context(), audit.ResultFailure)
		switch {
		case errors.Is(err, identity.ErrAccountLocked):
			h.security.LoginFailure(r.Context(), getIPAddress(r), "account_locked")
		case errors.Is(err, identity.ErrInvalidCredentials):
			h.security.LoginFailure(r.Context(), getIPAddress(r), "invalid_credentials")
		}
		respondServiceError(w, r, err)
		return
	}
	h.metrics.RecordLogin(r.Context(), audit.ResultSuccess)

	h.respondWithToken(w, r, http.StatusOK, user)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *identity.User) {
	caller := user.Identity()
	accessToken, expiresAt, err := h.issuer.Issue(caller)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, status, LoginResponse{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		User:        newUserResponse(user),
		Permissions: authz.PermissionStrings(caller.Role),
	})
}

// Me returns the current authenticated user
// @Summary Get Current User
// @Description Retrieve the caller's identity and permissions
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller := GetIdentity(r.Context())

	user, err := h.identityService.GetUser(r.Context(), caller.Subject)
	if err != nil {
		// The token outlived its user.
		respondServiceError(w, r, authz.ErrAuthenticationRequired)
		return
	}

	respondJSON(w, http.StatusOK, MeResponse{
		User:        newUserResponse(user),
		Permissions: authz.PermissionStrings(user.Role),
	})
}
