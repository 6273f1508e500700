package backend

import (
	"context"
	"net/http"

	"github.com/udara94/interpret-academy-client/internal/domain"
)

// ProfileClient reads and mutates the authenticated user's profile.
type ProfileClient struct {
	*Client
}

// NewProfileClient creates a profile client.
func NewProfileClient(base *Client) *ProfileClient {
	return &ProfileClient{Client: base}
}

// GetProfile fetches the current user profile. This is backend truth for
// languageId, unlike the session snapshot which may lag.
func (c *ProfileClient) GetProfile(ctx context.Context, accessToken string) (domain.User, error) {
	var user domain.User
	err := c.get(ctx, "/profile", accessToken, &user)
	return user, err
}

// UpdateLanguage persists the user's target-language selection and returns the
// updated profile. The session snapshot does not see the change until the next
// token rotation.
func (c *ProfileClient) UpdateLanguage(ctx context.Context, accessToken, languageID string) (domain.User, error) {
	var result struct {
		Message string      `json:"message"`
		User    domain.User `json:"user"`
	}
	err := c.send(ctx, http.MethodPut, "/profile/language", accessToken, map[string]string{
		"languageId": languageID,
	}, &result)
	return result.User, err
}
