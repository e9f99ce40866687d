package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"

	"lifedesk/internal/schedule"
	"lifedesk/internal/storage"
)

func (h *handler) events(w http.ResponseWriter, r *http.Request) {
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
		filters, err := parseFilters(r)
		if err != nil {
			WriteError(w, err)
			return
		}
		projections, err := h.svc.Schedule.ListWindow(r.Context(), principal.UserID, window, filters)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, projections)

	case http.MethodPost:
		var payload schedule.EventInput
		if err := DecodeJSON(r.Body, &payload); err != nil {
			WriteError(w, err)
			return
		}
		event, err := h.svc.Schedule.CreateEvent(r.Context(), principal.UserID, payload)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, event)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) eventResource(w http.ResponseWriter, r *http.Request) {
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/schedule/events"), "/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		event, err := h.svc.Schedule.GetEvent(r.Context(), principal.UserID, id)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, event)

	case http.MethodPatch:
		var patch schedule.EventPatch
		if err := DecodeJSON(r.Body, &patch); err != nil {
			WriteError(w, err)
			return
		}
		event, err := h.svc.Schedule.PatchEvent(r.Context(), principal.UserID, id, patch)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, event)

	case http.MethodDelete:
		if err := h.svc.Schedule.DeleteEvent(r.Context(), principal.UserID, id); err != nil {
			WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) templates(w http.ResponseWriter, r *http.Request) {
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		templates, err := h.svc.Schedule.ListTemplates(r.Context(), principal.UserID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, templates)

	case http.MethodPost:
		var payload schedule.TemplateInput
		if err := DecodeJSON(r.Body, &payload); err != nil {
			WriteError(w, err)
			return
		}
		tmpl, err := h.svc.Schedule.CreateTemplate(r.Context(), principal.UserID, payload)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, tmpl)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) templateResource(w http.ResponseWriter, r *http.Request) {
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/schedule/templates"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]

	if len(parts) == 2 {
		h.templateSubresource(w, r, principal.UserID, id, parts[1])
		return
	}
	if len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		tmpl, err := h.svc.Schedule.GetTemplate(r.Context(), principal.UserID, id)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, tmpl)

	case http.MethodPut:
		var payload schedule.TemplateInput
		if err := DecodeJSON(r.Body, &payload); err != nil {
			WriteError(w, err)
			return
		}
		tmpl, err := h.svc.Schedule.UpdateTemplate(r.Context(), principal.UserID, id, payload)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, tmpl)

	case http.MethodDelete:
		if err := h.svc.Schedule.DeleteTemplate(r.Context(), principal.UserID, id); err != nil {
			WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) templateSubresource(w http.ResponseWriter, r *http.Request, userID, id, action string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "exceptions":
		var payload struct {
			Date time.Time `json:"date"`
		}
		if err := DecodeJSON(r.Body, &payload); err != nil {
			WriteError(w, err)
			return
		}
		tmpl, err := h.svc.Schedule.AddException(r.Context(), userID, id, payload.Date)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, tmpl)

	case "modifications":
		var payload storage.Modification
		if err := DecodeJSON(r.Body, &payload); err != nil {
			WriteError(w, err)
			return
		}
		tmpl, err := h.svc.Schedule.AddModification(r.Context(), userID, id, payload)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, tmpl)

	case "archive":
		var payload struct {
			Archived bool `json:"archived"`
		}
		if err := DecodeJSON(r.Body, &payload); err != nil {
			WriteError(w, err)
			return
		}
		tmpl, err := h.svc.Schedule.SetArchived(r.Context(), userID, id, payload.Archived)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, tmpl)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) exportICS(w http.ResponseWriter, r *http.Request) {
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	cal, err := h.svc.Schedule.ExportICS(r.Context(), principal.UserID, window)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="lifedesk.ics"`)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		WriteError(w, err)
	}
}

func parseFilters(r *http.Request) (schedule.Filters, error) {
	query := r.URL.Query()
	filters := schedule.Filters{
		Category: query.Get("category"),
		Priority: query.Get("priority"),
	}
	switch raw := query.Get("completed"); raw {
	case "":
	case "true":
		filters.Completed = mo.Some(true)
	case "false":
		filters.Completed = mo.Some(false)
	default:
		return schedule.Filters{}, invalidParam("completed", raw)
	}
	return filters, nil
}
