// Package handlers provides the HTTP handlers of the labelhub API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/labelhub/internal/logger"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

// Problem represents an RFC 7807 "problem details" response.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	// If not set, defaults to "about:blank".
	Type string `json:"type,omitempty"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Code is the labelhub error code name, e.g. "OutOfRangeError".
	Code string `json:"code,omitempty"`

	// Token is the worker token the problem concerns, if any.
	Token string `json:"token,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// ProblemTypeBase prefixes the type URI of labelhub problems.
const ProblemTypeBase = "https://labelhub.dev/problems/"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, &Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeProblem(w http.ResponseWriter, p *Problem) {
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code lherrors.ErrorCode) int {
	switch code {
	case lherrors.ErrConfig:
		return http.StatusBadRequest
	case lherrors.ErrAuth:
		return http.StatusForbidden
	case lherrors.ErrNotFound:
		return http.StatusNotFound
	case lherrors.ErrOutOfRange:
		return http.StatusUnprocessableEntity
	case lherrors.ErrConflictWithExisting, lherrors.ErrNoRecords:
		return http.StatusConflict
	case lherrors.ErrNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError converts err into a problem response. Input errors carry their
// message; everything else is reported with a generic detail.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var lhErr *lherrors.Error
	if !errors.As(err, &lhErr) {
		logger.ErrorCtx(r.Context(), "Unclassified handler error", logger.Err(err))
		InternalServerError(w, "internal error")
		return
	}

	status := StatusFor(lhErr.Code)
	p := &Problem{
		Type:   ProblemTypeBase + lhErr.Code.String(),
		Title:  http.StatusText(status),
		Status: status,
		Code:   lhErr.Code.String(),
		Token:  lhErr.Token,
		Detail: lhErr.Message,
	}
	if status >= http.StatusInternalServerError {
		p.Detail = "internal error"
		p.Token = ""
	}
	writeProblem(w, p)
}

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// Unauthorized writes a 401 Unauthorized problem response.
func Unauthorized(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnauthorized, "Unauthorized", detail)
}

// InternalServerError writes a 500 Internal Server Error problem response.
func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}
