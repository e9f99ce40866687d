package httpapi

import (
	"net/http"

	"lifedesk/internal/profile"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload credentialsRequest
	if err := DecodeJSON(r.Body, &payload); err != nil {
		WriteError(w, err)
		return
	}

	user, err := h.svc.Auth.Register(r.Context(), payload.Email, payload.Password)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, user)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload credentialsRequest
	if err := DecodeJSON(r.Body, &payload); err != nil {
		WriteError(w, err)
		return
	}

	token, user, err := h.svc.Auth.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"userId": principal.UserID,
		"email":  principal.Email,
	})
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		prof, err := h.svc.Profiles.Get(r.Context(), principal.UserID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, prof)

	case http.MethodPatch:
		var patch profile.Patch
		if err := DecodeJSON(r.Body, &patch); err != nil {
			WriteError(w, err)
			return
		}
		prof, err := h.svc.Profiles.Patch(r.Context(), principal.UserID, patch)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, prof)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
