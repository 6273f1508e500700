package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/udara94/interpret-academy-client/internal/domain"
	"github.com/udara94/interpret-academy-client/internal/middleware"
	apperrors "github.com/udara94/interpret-academy-client/pkg/apperrors"
	"github.com/udara94/interpret-academy-client/pkg/httputil"
)

// NavigationHandler evaluates the route authorization rules for the front
// end: on every navigation it asks where the user may go given the current
// session.
type NavigationHandler struct {
	guard  *middleware.Guard
	logger *slog.Logger
}

// NewNavigationHandler creates the navigation decision handler.
func NewNavigationHandler(guard *middleware.Guard, logger *slog.Logger) *NavigationHandler {
	return &NavigationHandler{guard: guard, logger: logger}
}

// Decide handles GET /api/v1/navigation/decision?path=. Session resolution
// goes through the refresh state machine, so this call may rotate the token;
// an unauthenticated or invalid session simply yields the anonymous decision.
func (h *NavigationHandler) Decide(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" || !strings.HasPrefix(path, "/") {
		httputil.WriteError(w, r, apperrors.InvalidInput("path must be an absolute route path"), h.logger)
		return
	}

	requireLanguage := middleware.Classify(path) == middleware.RouteProtected

	authenticated := false
	var user domain.User
	sess, err := h.guard.Resolve(w, r, requireLanguage)
	switch {
	case err == nil:
		authenticated = true
		user = sess.Token.User
	case apperrors.IsAuthenticationRequired(err):
		// Anonymous navigation.
	default:
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	decision := middleware.Decide(path, authenticated, user)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: decision})
}
