package httpapi

import (
	"net/http"
	"strings"
	"time"

	"lifedesk/internal/financial"
)

func (h *handler) transactions(w http.ResponseWriter, r *http.Request) {
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
		transactions, err := h.svc.Finance.ListTransactions(r.Context(), principal.UserID, window.From, window.To)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, transactions)

	case http.MethodPost:
		var payload financial.TransactionInput
		if err := DecodeJSON(r.Body, &payload); err != nil {
			WriteError(w, err)
			return
		}
		tx, err := h.svc.Finance.CreateTransaction(r.Context(), principal.UserID, payload)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, tx)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) transactionResource(w http.ResponseWriter, r *http.Request) {
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/financial/transactions"), "/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := h.svc.Finance.DeleteTransaction(r.Context(), principal.UserID, id); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) budgets(w http.ResponseWriter, r *http.Request) {
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		budgets, err := h.svc.Finance.ListBudgets(r.Context(), principal.UserID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, budgets)

	case http.MethodPut:
		var payload struct {
			Category string  `json:"category"`
			Limit    float64 `json:"limit"`
		}
		if err := DecodeJSON(r.Body, &payload); err != nil {
			WriteError(w, err)
			return
		}
		budget, err := h.svc.Finance.PutBudget(r.Context(), principal.UserID, payload.Category, payload.Limit)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, budget)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) financeSummary(w http.ResponseWriter, r *http.Request) {
	principal, ok := RequirePrincipal(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	at := time.Now().UTC()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteError(w, invalidParam("at", raw))
			return
		}
		at = parsed
	}

	summary, err := h.svc.Finance.MonthSummary(r.Context(), principal.UserID, at)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}
