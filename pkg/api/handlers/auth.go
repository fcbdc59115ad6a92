package handlers

import (
	"net/http"
)

// AuthRequest is the body of POST /api/v1/auth.
type AuthRequest struct {
	Token string `json:"token" validate:"required"`
}

// AuthResponse confirms an accepted token.
type AuthResponse struct {
	Token         string `json:"token"`
	Authenticated bool   `json:"authenticated"`
}

// AuthHandler handles token checks.
type AuthHandler struct {
	svc Coordinator
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc Coordinator) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Authenticate handles POST /api/v1/auth.
//
// A malformed token is a 400, a token missing from the allow-list a 403.
func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.svc.Authenticate(r.Context(), req.Token); err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSONOK(w, AuthResponse{Token: req.Token, Authenticated: true})
}
