package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/udara94/interpret-academy-client/internal/domain"
	apperrors "github.com/udara94/interpret-academy-client/pkg/apperrors"
)

// CookieName is the session cookie issued to the browser.
const CookieName = "ia_session"

// cookieClaims is the signed session payload: the session ID, the token
// bundle, and the user snapshot. The token expiry estimate travels as a unix
// timestamp separate from the JWT's own exp, which bounds the cookie lifetime.
type cookieClaims struct {
	SID          string      `json:"sid"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	TokenExpiry  int64       `json:"tokenExpiresAt"`
	User         domain.User `json:"user"`
	jwt.RegisteredClaims
}

// Codec signs and verifies the HS256 session cookie. The cookie is re-issued
// whenever the token bundle rotates so the browser always carries the latest
// pair across process restarts.
type Codec struct {
	secret  []byte
	maxAge  time.Duration
	secure  bool
	nowFunc func() time.Time
}

// NewCodec creates a session cookie codec. maxAge bounds the cookie (and the
// embedded refresh token's usefulness); secure controls the cookie's Secure
// flag and should be true everywhere except local development.
func NewCodec(secret string, maxAge time.Duration, secure bool) *Codec {
	return &Codec{
		secret:  []byte(secret),
		maxAge:  maxAge,
		secure:  secure,
		nowFunc: time.Now,
	}
}

// NewSessionID mints a fresh session ID.
func NewSessionID() string {
	return uuid.New().String()
}

// Encode signs a session cookie value for the given session ID and token.
func (c *Codec) Encode(sid string, tok domain.Token) (string, error) {
	now := c.nowFunc()
	claims := cookieClaims{
		SID:          sid,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenExpiry:  tok.ExpiresAt.Unix(),
		User:         tok.User,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

// Decode verifies a session cookie value and returns the session ID and the
// embedded token. Any signature, format, or expiry problem resolves to
// AuthenticationRequired: a bad cookie is an anonymous request, not a server
// error.
func (c *Codec) Decode(value string) (string, domain.Token, error) {
	var claims cookieClaims
	token, err := jwt.ParseWithClaims(value, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.nowFunc))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.Token{}, apperrors.AuthenticationRequired("session expired")
		}
		return "", domain.Token{}, apperrors.AuthenticationRequired("invalid session")
	}
	if !token.Valid || claims.SID == "" {
		return "", domain.Token{}, apperrors.AuthenticationRequired("invalid session")
	}

	return claims.SID, domain.Token{
		AccessToken:  claims.AccessToken,
		RefreshToken: claims.RefreshToken,
		ExpiresAt:    time.Unix(claims.TokenExpiry, 0),
		User:         claims.User,
	}, nil
}

// SetCookie writes the session cookie.
func (c *Codec) SetCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (c *Codec) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadCookie extracts and decodes the session cookie from a request.
func (c *Codec) ReadCookie(r *http.Request) (string, domain.Token, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", domain.Token{}, apperrors.AuthenticationRequired("no session cookie")
	}
	return c.Decode(cookie.Value)
}
