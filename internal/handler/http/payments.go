package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/udara94/interpret-academy-client/internal/backend"
	"github.com/udara94/interpret-academy-client/internal/domain"
	"github.com/udara94/interpret-academy-client/internal/membership"
	"github.com/udara94/interpret-academy-client/internal/middleware"
	apperrors "github.com/udara94/interpret-academy-client/pkg/apperrors"
	"github.com/udara94/interpret-academy-client/pkg/httputil"
	"github.com/udara94/interpret-academy-client/pkg/logger"
	"github.com/udara94/interpret-academy-client/pkg/validator"
)

// verifiedTTL bounds how long a processed checkout session is remembered for
// duplicate-notification suppression.
const verifiedTTL = time.Hour

// PaymentsHandler serves products, membership status, and the checkout flow.
type PaymentsHandler struct {
	payments *backend.PaymentsClient
	cache    *membership.Cache
	logger   *slog.Logger

	// Already-verified checkout sessions, so a reloaded success page never
	// produces a second notification or a second entitlement signal.
	mu       sync.Mutex
	verified map[string]verifiedEntry
}

type verifiedEntry struct {
	result VerifyResponse
	at     time.Time
}

// NewPaymentsHandler creates the payments HTTP handler.
func NewPaymentsHandler(payments *backend.PaymentsClient, cache *membership.Cache, logger *slog.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		payments: payments,
		cache:    cache,
		logger:   logger,
		verified: make(map[string]verifiedEntry),
	}
}

// CreateCheckoutRequest is the JSON request body for starting a purchase.
type CreateCheckoutRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// VerifyResponse reports the outcome of a checkout verification. Duplicate is
// set when the same checkout session was already verified; the client must
// not notify again.
type VerifyResponse struct {
	Verified  bool                   `json:"verified"`
	Duplicate bool                   `json:"duplicate"`
	Payment   *backend.PaymentDetail `json:"payment,omitempty"`
}

// Products handles GET /api/v1/payments/products.
func (h *PaymentsHandler) Products(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	products, err := withAuthRetry(r.Context(), sess, func(token string) ([]domain.Product, error) {
		return h.payments.Products(r.Context(), token)
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

// Membership handles GET /api/v1/payments/membership. Served through the
// entitlement cache, not a direct platform call.
func (h *PaymentsHandler) Membership(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	status, err := h.cache.GetStatus(r.Context(), sess.Token.User.ID, sess.Token.AccessToken, false)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: status})
}

// CreateCheckout handles POST /api/v1/payments/checkout: the browser is sent
// to the returned external checkout URL.
func (h *PaymentsHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckoutRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sess := middleware.SessionFromContext(r.Context())

	checkout, err := withAuthRetry(r.Context(), sess, func(token string) (backend.CheckoutSession, error) {
		return h.payments.CreateCheckoutSession(r.Context(), token, req.ProductID)
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: checkout})
}

// Verify handles GET /api/v1/payments/verify?session_id=, called by the
// success page after the external checkout redirects back.
func (h *PaymentsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("session_id is required"), h.logger)
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	log := logger.FromContext(r.Context())

	if result, ok := h.alreadyVerified(sessionID); ok {
		result.Duplicate = true
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
		return
	}

	verification, err := withAuthRetry(r.Context(), sess, func(token string) (backend.PaymentVerification, error) {
		return h.payments.VerifySession(r.Context(), token, sessionID)
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if !verification.Verified {
		httputil.WriteError(w, r, apperrors.Validation("payment is not verified"), h.logger)
		return
	}
	if verification.Payment == nil {
		// Verified without detail violates the payments contract; do not
		// treat it as success.
		log.ErrorContext(r.Context(), "payment verified but detail payload missing",
			slog.String("checkout_session_id", sessionID),
		)
		httputil.WriteError(w, r, apperrors.BackendInconsistency("payment could not be confirmed, please contact support"), h.logger)
		return
	}

	result := VerifyResponse{Verified: true, Payment: verification.Payment}
	h.rememberVerified(sessionID, result)

	// Let the entitlement catch up after the payment write propagates.
	h.cache.MarkChanged(sess.Token.User.ID, sess.Token.AccessToken)

	log.InfoContext(r.Context(), "payment verified",
		slog.String("checkout_session_id", sessionID),
		slog.String("payment_id", verification.Payment.ID),
	)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

func (h *PaymentsHandler) alreadyVerified(sessionID string) (VerifyResponse, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for id, e := range h.verified {
		if now.Sub(e.at) > verifiedTTL {
			delete(h.verified, id)
		}
	}

	e, ok := h.verified[sessionID]
	return e.result, ok
}

func (h *PaymentsHandler) rememberVerified(sessionID string, result VerifyResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.verified[sessionID] = verifiedEntry{result: result, at: time.Now()}
}
