// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yomira-auth/internal/platform/middleware"
	requestutil "github.com/taibuivan/yomira-auth/internal/platform/request"
	"github.com/taibuivan/yomira-auth/internal/platform/respond"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/pkg/pointer"
)

// RoleRoutes returns the /roles endpoints.
func (handler *Handler) RoleRoutes() chi.Router {
	router := chi.NewRouter()

	// Public catalogue
	router.Get("/", handler.listRoles)
	router.Get("/{name}", handler.getRole)

	// Administration
	router.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireRole(sec.RoleAdmin))
		admin.Post("/", handler.createRole)
		admin.Put("/{name}", handler.updateRole)
		admin.Delete("/{name}", handler.deleteRole)
	})

	return router
}

type roleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// GET /api/v1/roles.
func (handler *Handler) listRoles(writer http.ResponseWriter, request *http.Request) {
	roles, err := handler.accountService.ListRoles(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, roles)
}

// GET /api/v1/roles/{name}.
func (handler *Handler) getRole(writer http.ResponseWriter, request *http.Request) {
	role, err := handler.accountService.GetRole(request.Context(), requestutil.Param(request, "name"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, role)
}

/*
POST /api/v1/roles.

Response:
  - 201: Role
  - 400: Validation failure
  - 409: Name already taken
*/
func (handler *Handler) createRole(writer http.ResponseWriter, request *http.Request) {
	var input roleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.accountService.CreateRole(request.Context(),
		CreateRoleInput{Name: pointer.Val(input.Name), Description: input.Description})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, role)
}

/*
PUT /api/v1/roles/{name}.

Response:
  - 200: Role
  - 404: Unknown role
  - 422: Attempted rename
*/
func (handler *Handler) updateRole(writer http.ResponseWriter, request *http.Request) {
	var input roleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.accountService.UpdateRole(request.Context(), requestutil.Param(request, "name"),
		UpdateRoleInput{Name: input.Name, Description: input.Description})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, role)
}

// DELETE /api/v1/roles/{name}.
func (handler *Handler) deleteRole(writer http.ResponseWriter, request *http.Request) {
	if err := handler.accountService.DeleteRole(request.Context(), requestutil.Param(request, "name")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
