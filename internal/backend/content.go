package backend

import (
	"context"
	"net/url"

	"github.com/udara94/interpret-academy-client/internal/domain"
)

// ContentClient wraps the platform's learning-content reads. Paywalled reads
// (segments, words) must pass the content access gate before being dispatched;
// this client performs no entitlement checks of its own.
type ContentClient struct {
	*Client
}

// NewContentClient creates a content client.
func NewContentClient(base *Client) *ContentClient {
	return &ContentClient{Client: base}
}

// Languages lists the target languages offered by the platform.
func (c *ContentClient) Languages(ctx context.Context, accessToken string) ([]domain.Language, error) {
	var languages []domain.Language
	err := c.get(ctx, "/languages", accessToken, &languages)
	return languages, err
}

// Dialogs lists the dialogs available for a language.
func (c *ContentClient) Dialogs(ctx context.Context, accessToken, languageID string) ([]domain.Dialog, error) {
	var dialogs []domain.Dialog
	err := c.get(ctx, "/dialogs?languageId="+url.QueryEscape(languageID), accessToken, &dialogs)
	return dialogs, err
}

// Dialog fetches a single dialog, including its free/paid flag.
func (c *ContentClient) Dialog(ctx context.Context, accessToken, id string) (domain.Dialog, error) {
	var dialog domain.Dialog
	err := c.get(ctx, "/dialogs/"+url.PathEscape(id), accessToken, &dialog)
	return dialog, err
}

// Segments fetches the sentence pairs of a dialog. Paywalled.
func (c *ContentClient) Segments(ctx context.Context, accessToken, dialogID, languageID string) ([]domain.Segment, error) {
	var segments []domain.Segment
	q := url.Values{"dialogId": {dialogID}, "languageId": {languageID}}
	err := c.get(ctx, "/segments?"+q.Encode(), accessToken, &segments)
	return segments, err
}

// WordCategories lists the vocabulary categories.
func (c *ContentClient) WordCategories(ctx context.Context, accessToken string) ([]domain.WordCategory, error) {
	var categories []domain.WordCategory
	err := c.get(ctx, "/word-categories", accessToken, &categories)
	return categories, err
}

// Category fetches a single vocabulary category, including its free/paid flag.
func (c *ContentClient) Category(ctx context.Context, accessToken, id string) (domain.WordCategory, error) {
	var category domain.WordCategory
	err := c.get(ctx, "/word-categories/"+url.PathEscape(id), accessToken, &category)
	return category, err
}

// Words fetches the vocabulary entries of a category. Paywalled.
func (c *ContentClient) Words(ctx context.Context, accessToken, categoryID, languageID string) ([]domain.Word, error) {
	var words []domain.Word
	q := url.Values{"categoryId": {categoryID}, "languageId": {languageID}}
	err := c.get(ctx, "/words?"+q.Encode(), accessToken, &words)
	return words, err
}
