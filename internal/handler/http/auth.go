package http

import (
	"log/slog"
	"net/http"

	"github.com/udara94/interpret-academy-client/internal/backend"
	"github.com/udara94/interpret-academy-client/internal/membership"
	"github.com/udara94/interpret-academy-client/internal/middleware"
	"github.com/udara94/interpret-academy-client/internal/session"
	"github.com/udara94/interpret-academy-client/pkg/httputil"
	"github.com/udara94/interpret-academy-client/pkg/logger"
	"github.com/udara94/interpret-academy-client/pkg/validator"
)

// AuthHandler handles credential exchange and session issuance.
type AuthHandler struct {
	auth     *backend.AuthClient
	codec    *session.Codec
	registry *session.Registry
	cache    *membership.Cache
	logger   *slog.Logger
}

// NewAuthHandler creates the auth HTTP handler.
func NewAuthHandler(
	auth *backend.AuthClient,
	codec *session.Codec,
	registry *session.Registry,
	cache *membership.Cache,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		codec:    codec,
		registry: registry,
		cache:    cache,
		logger:   logger,
	}
}

// --- Request DTOs ---

// LoginRequest is the JSON request body for logging in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterRequest is the JSON request body for creating an account.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=30"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// GoogleCallbackRequest carries the OAuth profile from the callback route.
type GoogleCallbackRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	GoogleID string `json:"googleId" validate:"required"`
	Picture  string `json:"picture"`
}

// ForgotPasswordRequest is the JSON request body for requesting a reset email.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// SessionResponse is what the browser learns about its session.
type SessionResponse struct {
	User       any    `json:"user"`
	ExpiresAt  int64  `json:"expiresAt"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	creds, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.issueSession(w, r, creds)
}

// Register handles POST /api/v1/auth/register. Signup implies login.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	creds, err := h.auth.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.issueSession(w, r, creds)
}

// GoogleCallback handles POST /api/v1/auth/google.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	var req GoogleCallbackRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	creds, err := h.auth.ExchangeGoogle(r.Context(), backend.GoogleProfile{
		Email:    req.Email,
		Name:     req.Name,
		GoogleID: req.GoogleID,
		Picture:  req.Picture,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.issueSession(w, r, creds)
}

// issueSession mints a session for freshly exchanged credentials and tells the
// browser where to go next: language selection first when the snapshot has no
// language, the dashboard otherwise.
func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, creds backend.Credentials) {
	sid := session.NewSessionID()
	mgr := h.registry.Get(sid)
	tok := mgr.Establish(creds)

	value, err := h.codec.Encode(sid, tok)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.codec.SetCookie(w, value)

	log := logger.FromContext(r.Context())
	log.InfoContext(r.Context(), "session established",
		slog.String("user_id", tok.User.ID),
	)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: SessionResponse{
		User:       tok.User,
		ExpiresAt:  tok.ExpiresAt.Unix(),
		RedirectTo: middleware.PostLoginRedirect(tok.User),
	}})
}

// Logout handles POST /api/v1/auth/logout. A missing or invalid cookie is not
// an error: logout is idempotent.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid, tok, err := h.codec.ReadCookie(r); err == nil {
		h.registry.Remove(sid)
		h.cache.Clear(tok.User.ID)
	}
	h.codec.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/v1/session for an authenticated request.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: SessionResponse{
		User:      sess.Token.User,
		ExpiresAt: sess.Token.ExpiresAt.Unix(),
	}})
}

// ForgotPassword handles POST /api/v1/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"message": "if the address exists, a reset email is on its way",
	}})
}

// ResetPassword handles POST /api/v1/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"message": "password updated, sign in with the new password",
	}})
}
