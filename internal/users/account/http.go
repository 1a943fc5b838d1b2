// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account provides the HTTP delivery layer for accounts and roles.

# Security

Profile endpoints require an authenticated request. Role writes and grant
management require the admin role; role reads are public.
*/
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yomira-auth/internal/platform/middleware"
	requestutil "github.com/taibuivan/yomira-auth/internal/platform/request"
	"github.com/taibuivan/yomira-auth/internal/platform/respond"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
)

// Handler implements the HTTP layer for user account management.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// UserRoutes returns the /users endpoints.
func (handler *Handler) UserRoutes() chi.Router {
	router := chi.NewRouter()

	// Registration
	router.Post("/", handler.register)

	// Own account
	router.Group(func(authenticated chi.Router) {
		authenticated.Use(middleware.RequireAuth)
		authenticated.Get("/me", handler.getMe)
		authenticated.Put("/me/password", handler.changePassword)
	})

	// Grant management
	router.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireRole(sec.RoleAdmin))
		admin.Get("/{id}/roles", handler.listUserRoles)
		admin.Put("/{id}/roles/{name}", handler.grantRole)
		admin.Delete("/{id}/roles/{name}", handler.revokeRole)
	})

	return router
}

// # Account Endpoints

// registerRequest defines the expected JSON payload for registration.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

/*
POST /api/v1/users.

Description: Creates an account holding the default role.

Response:
  - 201: User
  - 400: Validation failure
  - 409: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.Register(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
GET /api/v1/users/me.

Description: Retrieves the authenticated user's account with current roles.

Response:
  - 200: User
  - 401: Authentication required
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// changePasswordRequest defines the expected JSON payload for password changes.
type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

/*
PUT /api/v1/users/me/password.

Description: Replaces the password after verifying the current one.

Response:
  - 204: Changed
  - 400: Validation failure
  - 401: Authentication required or wrong old password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ChangePassword(request.Context(), userID, input.OldPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Grant Endpoints

// GET /api/v1/users/{id}/roles.
func (handler *Handler) listUserRoles(writer http.ResponseWriter, request *http.Request) {
	roles, err := handler.accountService.ListUserRoles(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, roles)
}

/*
PUT /api/v1/users/{id}/roles/{name}.

Description: Grants an existing role. Idempotent.

Response:
  - 200: User with refreshed roles
  - 403: Caller is not an admin
  - 404: Unknown user or role
*/
func (handler *Handler) grantRole(writer http.ResponseWriter, request *http.Request) {
	user, err := handler.accountService.AddRoleToUser(request.Context(),
		requestutil.Param(request, "id"), requestutil.Param(request, "name"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// DELETE /api/v1/users/{id}/roles/{name}.
func (handler *Handler) revokeRole(writer http.ResponseWriter, request *http.Request) {
	user, err := handler.accountService.RemoveRoleFromUser(request.Context(),
		requestutil.Param(request, "id"), requestutil.Param(request, "name"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}
