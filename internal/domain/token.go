package domain

import "time"

// Token is the client-held bundle of credentials plus the cached user
// snapshot. ExpiresAt is a client-computed estimate (issue time plus a
// configured access-token lifetime), never parsed from the token itself.
//
// AccessToken must never be used past ExpiresAt without a refresh attempt
// first. An absent RefreshToken is terminal and forces re-authentication.
// All four fields rotate together on refresh; partial updates are disallowed.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// FreshAt reports whether the access token is still comfortably inside its
// lifetime at the given instant, i.e. now < ExpiresAt - margin.
func (t Token) FreshAt(now time.Time, margin time.Duration) bool {
	return now.Before(t.ExpiresAt.Add(-margin))
}
