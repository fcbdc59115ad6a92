package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"

	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

// APIError is an RFC 7807 problem returned by the server.
//
// It unwraps to an *lherrors.Error so callers can use lherrors.IsAuth and
// friends without knowing about HTTP.
type APIError struct {
	Type       string `json:"type,omitempty"`
	Title      string `json:"title"`
	StatusCode int    `json:"status"`
	Detail     string `json:"detail,omitempty"`
	Code       string `json:"code,omitempty"`
	Token      string `json:"token,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
}

// Unwrap returns the lherrors equivalent of the problem.
func (e *APIError) Unwrap() error {
	return &lherrors.Error{Code: e.ErrorCode(), Message: e.Detail, Token: e.Token}
}

// ErrorCode returns the code the server reported, falling back to one
// derived from the status when the body carried none.
func (e *APIError) ErrorCode() lherrors.ErrorCode {
	if c := lherrors.ParseCode(e.Code); c != 0 {
		return c
	}
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return lherrors.ErrConfig
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return lherrors.ErrAuth
	case e.StatusCode == http.StatusNotFound:
		return lherrors.ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return lherrors.ErrConflictWithExisting
	case e.StatusCode == http.StatusUnprocessableEntity:
		return lherrors.ErrOutOfRange
	default:
		return lherrors.ErrNetwork
	}
}

// IsAuthError returns true if the token was rejected.
func (e *APIError) IsAuthError() bool {
	return e.ErrorCode() == lherrors.ErrAuth
}

// IsNotFound returns true if this is a not found error.
func (e *APIError) IsNotFound() bool {
	return e.ErrorCode() == lherrors.ErrNotFound
}

// parseAPIError decodes body as a problem. Bodies that are not problems
// (proxies, panics) keep their text as the detail.
func parseAPIError(status int, body []byte) *APIError {
	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil && (apiErr.Code != "" || apiErr.Title != "") {
		apiErr.StatusCode = status
		return &apiErr
	}
	return &APIError{
		StatusCode: status,
		Title:      http.StatusText(status),
		Detail:     string(body),
	}
}
