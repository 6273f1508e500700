package backend

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/udara94/interpret-academy-client/pkg/apperrors"
)

// envelope is the platform API response wrapper: success responses carry
// {statusCode, data}, error responses carry {statusCode>=400, message, error}.
// Consumers must discriminate on statusCode before treating the payload as
// data; the HTTP status alone is not trusted.
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	ErrorText  string          `json:"error"`
}

// decodeEnvelope reads and discriminates a platform API response, unmarshaling
// the data payload into out on success. A nil out skips payload decoding.
func decodeEnvelope(resp *http.Response, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.TransientNetwork("read platform API response", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.StatusCode == 0 {
		// Not the documented envelope shape. Classify on the HTTP status if
		// it signals an error; otherwise the contract is broken.
		if resp.StatusCode >= 400 {
			return statusError(resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return apperrors.BackendInconsistency("platform API returned a malformed response")
	}

	if env.StatusCode >= 400 {
		msg := env.Message
		if msg == "" {
			msg = env.ErrorText
		}
		return statusError(env.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return apperrors.BackendInconsistency("platform API success response is missing its data payload")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.BackendInconsistency("platform API data payload does not match the expected shape")
	}
	return nil
}

// statusError maps a platform API status code to the typed failure classes:
// Unauthorized, Validation, ServerError (transient), and friends.
func statusError(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized:
		return apperrors.AuthenticationRequired(message)
	case status == http.StatusForbidden:
		return apperrors.MembershipRequired(message)
	case status == http.StatusNotFound:
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: message,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case status >= 400 && status < 500:
		return apperrors.Validation(message)
	default:
		return apperrors.TransientNetwork("platform API error", errors.New(message))
	}
}
