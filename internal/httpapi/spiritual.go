package httpapi

import (
	"net/http"
	"strings"
	"time"

	"lifedesk/internal/spiritual"
)

func (h *handler) practiceEntries(w http.ResponseWriter, r *http.Request) {
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		window, err := parseWindow(r)
		if err != nil {
			WriteError(w, err)
			return
		}
		entries, err := h.svc.Spiritual.ListEntries(r.Context(), principal.UserID, window.From, window.To)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, entries)

	case http.MethodPost:
		var payload spiritual.EntryInput
		if err := DecodeJSON(r.Body, &payload); err != nil {
			WriteError(w, err)
			return
		}
		entry, err := h.svc.Spiritual.CreateEntry(r.Context(), principal.UserID, payload)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, entry)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) practiceEntryResource(w http.ResponseWriter, r *http.Request) {
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/spiritual/entries"), "/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := h.svc.Spiritual.DeleteEntry(r.Context(), principal.UserID, id); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) streak(w http.ResponseWriter, r *http.Request) {
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	streak, err := h.svc.Spiritual.CurrentStreak(r.Context(), principal.UserID, time.Now())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, streak)
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	view := h.svc.Dashboard.Build(r.Context(), principal.UserID, time.Now())
	WriteJSON(w, http.StatusOK, view)
}
