package http

import (
	"log/slog"
	"net/http"

	"github.com/udara94/interpret-academy-client/internal/backend"
	"github.com/udara94/interpret-academy-client/internal/domain"
	"github.com/udara94/interpret-academy-client/internal/middleware"
	"github.com/udara94/interpret-academy-client/pkg/httputil"
	"github.com/udara94/interpret-academy-client/pkg/logger"
	"github.com/udara94/interpret-academy-client/pkg/validator"
)

// LanguageHandler serves the target-language list and the selection flow.
type LanguageHandler struct {
	content *backend.ContentClient
	profile *backend.ProfileClient
	guard   *middleware.Guard
	logger  *slog.Logger
}

// NewLanguageHandler creates the language HTTP handler.
func NewLanguageHandler(
	content *backend.ContentClient,
	profile *backend.ProfileClient,
	guard *middleware.Guard,
	logger *slog.Logger,
) *LanguageHandler {
	return &LanguageHandler{content: content, profile: profile, guard: guard, logger: logger}
}

// SelectLanguageRequest is the JSON request body for choosing a language.
type SelectLanguageRequest struct {
	LanguageID string `json:"languageId" validate:"required"`
}

// SelectLanguageResponse reports the selection outcome. Converged=false means
// the session snapshot has not caught up with the backend write yet; the
// client proceeds to the dashboard anyway.
type SelectLanguageResponse struct {
	User       domain.User `json:"user"`
	Converged  bool        `json:"converged"`
	RedirectTo string      `json:"redirectTo"`
}

// List handles GET /api/v1/languages.
func (h *LanguageHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	languages, err := withAuthRetry(r.Context(), sess, func(token string) ([]domain.Language, error) {
		return h.content.Languages(r.Context(), token)
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: languages})
}

// Select handles PUT /api/v1/profile/language: persist the selection, then
// poll the refresh state machine until the session snapshot reflects it. When
// the poll bound is exhausted the client still moves on; the backend write is
// assumed to have succeeded.
func (h *LanguageHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectLanguageRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sess := middleware.SessionFromContext(r.Context())

	if _, err := withAuthRetry(r.Context(), sess, func(token string) (domain.User, error) {
		return h.profile.UpdateLanguage(r.Context(), token, req.LanguageID)
	}); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	tok, converged, err := sess.Manager.ForceUpdate(r.Context(), func(u domain.User) bool {
		return u.LanguageID != nil && *u.LanguageID == req.LanguageID
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	sess.Token = tok
	h.guard.ReissueCookie(w, r, sess.SID, tok)

	log := logger.FromContext(r.Context())
	if !converged {
		log.WarnContext(r.Context(), "language selection saved but snapshot not converged",
			slog.String("language_id", req.LanguageID),
		)
	} else {
		log.InfoContext(r.Context(), "language selected",
			slog.String("language_id", req.LanguageID),
		)
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: SelectLanguageResponse{
		User:       tok.User,
		Converged:  converged,
		RedirectTo: middleware.DashboardPath,
	}})
}
