package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udara94/interpret-academy-client/internal/domain"
	apperrors "github.com/udara94/interpret-academy-client/pkg/apperrors"
)

func testToken() domain.Token {
	lang := "L1"
	return domain.Token{
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		ExpiresAt:    time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC),
		User:         domain.User{ID: "u1", Email: "a@b.com", Username: "a", LanguageID: &lang},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec("test-secret-at-least-32-bytes-long!!", 7*24*time.Hour, false)

	sid := NewSessionID()
	value, err := c.Encode(sid, testToken())
	require.NoError(t, err)

	gotSID, gotTok, err := c.Decode(value)
	require.NoError(t, err)

	assert.Equal(t, sid, gotSID)
	assert.Equal(t, "AT1", gotTok.AccessToken)
	assert.Equal(t, "RT1", gotTok.RefreshToken)
	assert.Equal(t, testToken().ExpiresAt.Unix(), gotTok.ExpiresAt.Unix())
	require.NotNil(t, gotTok.User.LanguageID)
	assert.Equal(t, "L1", *gotTok.User.LanguageID)
}

func TestCodecRejectsTamperedCookie(t *testing.T) {
	c := NewCodec("test-secret-at-least-32-bytes-long!!", 7*24*time.Hour, false)
	value, err := c.Encode("sid-1", testToken())
	require.NoError(t, err)

	_, _, err = c.Decode(value + "x")
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthenticationRequired(err))
}

func TestCodecRejectsWrongSecret(t *testing.T) {
	a := NewCodec("secret-a-secret-a-secret-a-secret-a!", 7*24*time.Hour, false)
	b := NewCodec("secret-b-secret-b-secret-b-secret-b!", 7*24*time.Hour, false)

	value, err := a.Encode("sid-1", testToken())
	require.NoError(t, err)

	_, _, err = b.Decode(value)
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthenticationRequired(err))
}

func TestCodecRejectsExpiredCookie(t *testing.T) {
	c := NewCodec("test-secret-at-least-32-bytes-long!!", time.Hour, false)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.nowFunc = func() time.Time { return base }

	value, err := c.Encode("sid-1", testToken())
	require.NoError(t, err)

	c.nowFunc = func() time.Time { return base.Add(2 * time.Hour) }
	_, _, err = c.Decode(value)
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthenticationRequired(err))
}

func TestReadCookieMissing(t *testing.T) {
	c := NewCodec("test-secret-at-least-32-bytes-long!!", time.Hour, false)
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	_, _, err := c.ReadCookie(r)
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthenticationRequired(err))
}

func TestSetAndClearCookie(t *testing.T) {
	c := NewCodec("test-secret-at-least-32-bytes-long!!", time.Hour, true)

	w := httptest.NewRecorder()
	c.SetCookie(w, "signed-value")
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	w = httptest.NewRecorder()
	c.ClearCookie(w)
	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}
