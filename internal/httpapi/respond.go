// Package httpapi assembles the REST surface: shared JSON helpers, the
// authenticated router, and the error-to-status mapping.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"lifedesk/internal/auth"
	"lifedesk/internal/recurrence"
	"lifedesk/internal/storage"
)

// WriteJSON writes a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// WriteError renders an error as JSON, mapping known error kinds to
// status codes.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var storageErr *storage.Error
	if errors.As(err, &storageErr) {
		switch storageErr.Type {
		case storage.ErrNotFound:
			return http.StatusNotFound
		case storage.ErrAlreadyExists:
			return http.StatusConflict
		case storage.ErrInvalidInput:
			return http.StatusBadRequest
		}
	}

	var ruleErr *recurrence.MalformedRuleError
	if errors.As(err, &ruleErr) {
		return http.StatusBadRequest
	}

	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized
	}

	return http.StatusInternalServerError
}

// DecodeJSON reads a request body into dst, rejecting unknown fields.
func DecodeJSON(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: fmt.Sprintf("invalid request body: %v", err)}
	}
	return nil
}

func invalidParam(name, value string) error {
	return &storage.Error{Type: storage.ErrInvalidInput, Message: fmt.Sprintf("invalid %s parameter %q", name, value)}
}

// RequirePrincipal fetches the authenticated principal or writes 401.
func RequirePrincipal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	principal := auth.FromContext(r.Context())
	if principal == nil {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return nil, false
	}
	return principal, true
}
