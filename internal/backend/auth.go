package backend

import (
	"context"
	"net/http"

	"github.com/udara94/interpret-academy-client/internal/domain"
)

// Credentials is the payload returned by every credential-exchange operation:
// a rotated token pair plus the current user snapshot.
type Credentials struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         domain.User `json:"user"`
}

// GoogleProfile is the OAuth profile forwarded to the exchange endpoint. The
// platform auto-assigns a default role on first exchange.
type GoogleProfile struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	GoogleID string `json:"googleId"`
	Picture  string `json:"picture"`
}

// AuthClient wraps the platform's credential-exchange operations. It is
// stateless: it never touches the session store and never retries internally.
// Replaying a login or a rotating refresh-token exchange is unsafe, so it must
// be constructed over the retry-free HTTP client; retry policy belongs to the
// session manager.
type AuthClient struct {
	*Client
}

// NewAuthClient creates a credential-exchange client.
func NewAuthClient(base *Client) *AuthClient {
	return &AuthClient{Client: base}
}

// Login exchanges an email/password pair for a token bundle.
func (c *AuthClient) Login(ctx context.Context, email, password string) (Credentials, error) {
	var creds Credentials
	err := c.send(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &creds)
	return creds, err
}

// Signup registers a new account and returns a token bundle (signup implies
// login on this platform).
func (c *AuthClient) Signup(ctx context.Context, username, email, password string) (Credentials, error) {
	var creds Credentials
	err := c.send(ctx, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &creds)
	return creds, err
}

// ExchangeGoogle exchanges a Google OAuth profile for a token bundle.
func (c *AuthClient) ExchangeGoogle(ctx context.Context, profile GoogleProfile) (Credentials, error) {
	var creds Credentials
	err := c.send(ctx, http.MethodPost, "/auth/google", "", profile, &creds)
	return creds, err
}

// Refresh exchanges a refresh token for a rotated token pair and a fresh user
// snapshot. The platform rotates both tokens on every exchange, which is why
// duplicate in-flight refreshes must never be issued.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (Credentials, error) {
	var creds Credentials
	err := c.send(ctx, http.MethodPost, "/auth/refresh-token", "", map[string]string{
		"refreshToken": refreshToken,
	}, &creds)
	return creds, err
}

// ForgotPassword requests a password-reset email.
func (c *AuthClient) ForgotPassword(ctx context.Context, email string) error {
	return c.send(ctx, http.MethodPost, "/auth/forgot-password", "", map[string]string{
		"email": email,
	}, nil)
}

// ResetPassword completes a password reset with the emailed token.
func (c *AuthClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	return c.send(ctx, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token":    token,
		"password": newPassword,
	}, nil)
}
