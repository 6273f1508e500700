package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/udara94/interpret-academy-client/internal/domain"
)

// CheckoutSession is the opaque external checkout redirect returned when a
// purchase is initiated.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// PaymentDetail describes a completed payment.
type PaymentDetail struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

// PaymentVerification is the result of verifying a checkout session after the
// external redirect returns. Verified=true with a nil Payment violates the
// contract and must be treated as a backend inconsistency, never as success.
type PaymentVerification struct {
	Verified bool           `json:"verified"`
	Payment  *PaymentDetail `json:"payment"`
}

// PaymentsClient wraps the platform's payments and membership operations.
type PaymentsClient struct {
	*Client
}

// NewPaymentsClient creates a payments client.
func NewPaymentsClient(base *Client) *PaymentsClient {
	return &PaymentsClient{Client: base}
}

// MembershipStatus fetches the current paywall entitlement.
func (c *PaymentsClient) MembershipStatus(ctx context.Context, accessToken string) (domain.Membership, error) {
	var status domain.Membership
	err := c.get(ctx, "/payments/membership-status", accessToken, &status)
	return status, err
}

// Products lists the purchasable membership plans.
func (c *PaymentsClient) Products(ctx context.Context, accessToken string) ([]domain.Product, error) {
	var products []domain.Product
	err := c.get(ctx, "/payments/products", accessToken, &products)
	return products, err
}

// CreateCheckoutSession initiates a purchase and returns the external
// checkout redirect.
func (c *PaymentsClient) CreateCheckoutSession(ctx context.Context, accessToken, productID string) (CheckoutSession, error) {
	var session CheckoutSession
	err := c.send(ctx, http.MethodPost, "/payments/create-checkout-session", accessToken, map[string]string{
		"productId": productID,
	}, &session)
	return session, err
}

// VerifySession confirms a checkout session after the external redirect
// returns to the success page.
func (c *PaymentsClient) VerifySession(ctx context.Context, accessToken, sessionID string) (PaymentVerification, error) {
	var verification PaymentVerification
	err := c.get(ctx, "/payments/verify-session?session_id="+url.QueryEscape(sessionID), accessToken, &verification)
	return verification, err
}
