package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/udara94/interpret-academy-client/internal/backend"
	"github.com/udara94/interpret-academy-client/internal/domain"
	"github.com/udara94/interpret-academy-client/internal/gate"
	"github.com/udara94/interpret-academy-client/internal/middleware"
	apperrors "github.com/udara94/interpret-academy-client/pkg/apperrors"
	"github.com/udara94/interpret-academy-client/pkg/httputil"
)

// ContentHandler serves dialogs and vocabulary. Paywalled payloads (segments,
// words) pass the content access gate BEFORE their fetch is dispatched:
// protected reads cost a platform call and must not be issued speculatively.
type ContentHandler struct {
	content *backend.ContentClient
	gate    *gate.Gate
	logger  *slog.Logger
}

// NewContentHandler creates the content HTTP handler.
func NewContentHandler(content *backend.ContentClient, g *gate.Gate, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{content: content, gate: g, logger: logger}
}

// sessionLanguage returns the session's language, which content routes
// require. The guard's repair refresh ran before this, so a still-missing
// language means selection genuinely has not happened.
func sessionLanguage(sess *middleware.Session) (string, error) {
	if !sess.Token.User.HasLanguage() {
		return "", apperrors.Validation("select a target language first")
	}
	return *sess.Token.User.LanguageID, nil
}

// ListDialogs handles GET /api/v1/dialogs.
func (h *ContentHandler) ListDialogs(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	languageID, err := sessionLanguage(sess)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	dialogs, err := withAuthRetry(r.Context(), sess, func(token string) ([]domain.Dialog, error) {
		return h.content.Dialogs(r.Context(), token, languageID)
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: dialogs})
}

// GetDialog handles GET /api/v1/dialogs/{dialogID}. The dialog itself (title,
// level, free/paid flag) is visible to any authenticated user; only the
// segments are gated.
func (h *ContentHandler) GetDialog(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	dialogID := chi.URLParam(r, "dialogID")

	dialog, err := withAuthRetry(r.Context(), sess, func(token string) (domain.Dialog, error) {
		return h.content.Dialog(r.Context(), token, dialogID)
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: dialog})
}

// GetSegments handles GET /api/v1/dialogs/{dialogID}/segments.
func (h *ContentHandler) GetSegments(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	languageID, err := sessionLanguage(sess)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	dialogID := chi.URLParam(r, "dialogID")

	dialog, err := withAuthRetry(r.Context(), sess, func(token string) (domain.Dialog, error) {
		return h.content.Dialog(r.Context(), token, dialogID)
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.gate.Authorize(r.Context(), sess.Token.User.ID, sess.Token.AccessToken, dialog.IsFree); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	segments, err := withAuthRetry(r.Context(), sess, func(token string) ([]domain.Segment, error) {
		return h.content.Segments(r.Context(), token, dialogID, languageID)
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: segments})
}

// ListCategories handles GET /api/v1/vocabulary/categories.
func (h *ContentHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	categories, err := withAuthRetry(r.Context(), sess, func(token string) ([]domain.WordCategory, error) {
		return h.content.WordCategories(r.Context(), token)
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: categories})
}

// GetWords handles GET /api/v1/vocabulary/categories/{categoryID}/words.
func (h *ContentHandler) GetWords(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	languageID, err := sessionLanguage(sess)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	categoryID := chi.URLParam(r, "categoryID")

	category, err := withAuthRetry(r.Context(), sess, func(token string) (domain.WordCategory, error) {
		return h.content.Category(r.Context(), token, categoryID)
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.gate.Authorize(r.Context(), sess.Token.User.ID, sess.Token.AccessToken, category.IsFree); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	words, err := withAuthRetry(r.Context(), sess, func(token string) ([]domain.Word, error) {
		return h.content.Words(r.Context(), token, categoryID, languageID)
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: words})
}
