// Package http provides the HTTP handlers of the shop API: phone and PIN
// login, the live daily tally, day close and the report archive.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// AuthService defines the authentication operations required by the
// HTTP handlers.
type AuthService interface {
	// Login checks the credentials and returns a bearer token.
	Login(ctx context.Context, phone, pin string) (string, error)
}

// AuthHandler handles login requests.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Logger      *zap.Logger
}

// PIN is a login PIN sent either as a JSON string or as a JSON number.
type PIN string

// UnmarshalJSON accepts "1234" and 1234 alike.
func (p *PIN) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = PIN(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("pin must be a string or a number: %w", err)
	}
	*p = PIN(n.String())
	return nil
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Phone string `json:"phone" validate:"required"`
	Pin   PIN    `json:"pin" validate:"required"`
}

// Login handles POST /api/auth/login.
// It expects a JSON body with non-empty "phone" and "pin" fields and answers
// with {"token": "..."}.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationErrors(w, "missing phone or pin", err)
		return
	}

	token, err := h.AuthService.Login(r.Context(), req.Phone, string(req.Pin))
	if err != nil {
		writeServiceError(w, h.Logger, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
