// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/middleware"
	requestutil "github.com/taibuivan/yomira-auth/internal/platform/request"
	"github.com/taibuivan/yomira-auth/internal/platform/respond"
	"github.com/taibuivan/yomira-auth/internal/users/oauth"
	"github.com/taibuivan/yomira-auth/pkg/pagination"
)

const fieldRefreshToken = "refresh_token"

const (
	// StateCookie carries the OAuth state between authorize and callback.
	StateCookie = "yomira_oauth_state"

	stateCookieMaxAge = 600
)

// Handler implements authentication-related HTTP endpoints.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST   /login                      : Password login, returns a token pair.
//   - DELETE /logout                     : Revokes the presented tokens.
//   - POST   /refresh                    : Rotates a refresh token.
//   - GET    /sessions                   : Paginated login history.
//   - POST   /oauth/{provider}           : Redirects to the provider.
//   - GET    /oauth/{provider}/callback  : Completes a federated login.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/oauth/{provider}", handler.oauthAuthorize)
	router.Get("/oauth/{provider}/callback", handler.oauthCallback)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Delete("/logout", handler.logout)
		r.Get("/sessions", handler.sessions)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

/*
POST /api/v1/auth/login

Description: Verifies credentials, records a session and issues tokens.

Response:
  - 201: token.Pair
  - 400: Validation failure
  - 401: Invalid credentials
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		UserAgent: request.Header.Get(constants.HeaderUserAgent),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, pair)
}

/*
DELETE /api/v1/auth/logout

Description: Revokes the bearer access token. An optional JSON body
{"refresh_token": "..."} revokes the refresh token as well.

Response:
  - 204: Tokens revoked
  - 401: Authentication required
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input refreshRequest
	if err := requestutil.DecodeOptionalJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), claims, input.RefreshToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/auth/refresh

Description: Validates the refresh token from the body, revokes it and
returns a new pair reflecting current roles.

Response:
  - 200: token.Pair
  - 401: Missing, invalid, expired or revoked refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

/*
GET /api/v1/auth/sessions?page_number=&page_size=

Response:
  - 200: Paginated sessions, newest first
  - 400: Invalid pagination
*/
func (handler *Handler) sessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params, err := pagination.FromRequest(request)
	if err != nil {
		respond.Error(writer, request, paginationError(err))
		return
	}

	items, total, err := handler.authService.History(request.Context(), userID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, items, pagination.NewMeta(params, total))
}

/*
POST /api/v1/auth/oauth/{provider} redirects to the provider's consent page.

Description: The state embedded in the redirect is also set as an HttpOnly
cookie scoped to the provider's callback path.
*/
func (handler *Handler) oauthAuthorize(writer http.ResponseWriter, request *http.Request) {
	provider := requestutil.Param(request, "provider")
	location, state, err := handler.authService.AuthorizeURL(provider)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.SetCookie(writer, stateCookie(request, provider, state, stateCookieMaxAge))
	http.Redirect(writer, request, location, http.StatusFound)
}

/*
GET /api/v1/auth/oauth/{provider}/callback?code=&state=

Description: The state cookie is single-use and cleared on every outcome.

Response:
  - 201: token.Pair
  - 403: State missing or not matching the cookie
  - 404: Unknown provider
  - 500: Provider not configured
  - 502: Provider exchange failed
*/
func (handler *Handler) oauthCallback(writer http.ResponseWriter, request *http.Request) {
	provider := requestutil.Param(request, "provider")
	query := request.URL.Query()

	params := oauth.CallbackParams{Code: query.Get("code"), State: query.Get("state")}
	if cookie, err := request.Cookie(StateCookie); err == nil {
		params.ExpectedState = cookie.Value
	}
	http.SetCookie(writer, stateCookie(request, provider, "", -1))

	pair, err := handler.authService.FederatedLogin(request.Context(), provider, params,
		request.Header.Get(constants.HeaderUserAgent),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, pair)
}

func stateCookie(request *http.Request, provider, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookie,
		Value:    value,
		Path:     oauth.CallbackPath + "/" + provider + "/callback",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   request.TLS != nil || request.Header.Get(constants.HeaderXForwardedProto) == "https",
		SameSite: http.SameSiteLaxMode,
	}
}

// paginationError reports which query parameter could not be parsed.
func paginationError(err error) error {
	field := pagination.QueryPage
	if errors.Is(err, pagination.ErrInvalidPageSize) {
		field = pagination.QueryPageSize
	}
	return apperr.ValidationError("Invalid pagination", apperr.FieldError{Field: field, Message: err.Error()})
}
