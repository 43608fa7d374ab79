package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is the decoded error envelope returned by the Oversight API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("oversight: %d %s: %s (request_id=%s)", e.StatusCode, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("oversight: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// statusIs reports whether err is an APIError with the given HTTP status.
func statusIs(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// IsNotFound reports whether the server returned 404.
func IsNotFound(err error) bool {
	return statusIs(err, http.StatusNotFound)
}

// IsConflict reports whether the server returned 409. The server uses 409
// for duplicate decisions, duplicate policy names and decisions on
// already-resolved requests.
func IsConflict(err error) bool {
	return statusIs(err, http.StatusConflict)
}

// IsForbidden reports whether the server returned 403, meaning the actor is
// not an eligible reviewer for the request.
func IsForbidden(err error) bool {
	return statusIs(err, http.StatusForbidden)
}

// IsNoPolicyMatch reports whether the server returned 422, meaning no quorum
// policy matched the admitted action.
func IsNoPolicyMatch(err error) bool {
	return statusIs(err, http.StatusUnprocessableEntity)
}

// IsRateLimited reports whether the server returned 429.
func IsRateLimited(err error) bool {
	return statusIs(err, http.StatusTooManyRequests)
}

// parseAPIError decodes a JSON error body, falling back to the raw text when
// the body is not the standard envelope.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(body)
	}
	return apiErr
}
