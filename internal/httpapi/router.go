package httpapi

import (
	"net/http"
	"time"

	"lifedesk/internal/auth"
	"lifedesk/internal/dashboard"
	"lifedesk/internal/financial"
	"lifedesk/internal/metrics"
	"lifedesk/internal/profile"
	"lifedesk/internal/recurrence"
	"lifedesk/internal/schedule"
	"lifedesk/internal/spiritual"
)

// Services bundles everything the REST surface exposes.
type Services struct {
	Auth      *auth.Service
	Profiles  *profile.Service
	Schedule  *schedule.Service
	Finance   *financial.Service
	Spiritual *spiritual.Service
	Dashboard *dashboard.Aggregator
}

type handler struct {
	svc Services
}

// NewHandler returns the fully assembled REST API. Register, login,
// health and metrics are public; everything else requires a bearer token.
func NewHandler(svc Services) http.Handler {
	h := &handler{svc: svc}

	private := http.NewServeMux()
	private.HandleFunc("/auth/me", h.me)
	private.HandleFunc("/profile", h.profile)
	private.HandleFunc("/schedule/events", h.events)
	private.HandleFunc("/schedule/events/", h.eventResource)
	private.HandleFunc("/schedule/templates", h.templates)
	private.HandleFunc("/schedule/templates/", h.templateResource)
	private.HandleFunc("/schedule/export.ics", h.exportICS)
	private.HandleFunc("/financial/transactions", h.transactions)
	private.HandleFunc("/financial/transactions/", h.transactionResource)
	private.HandleFunc("/financial/budgets", h.budgets)
	private.HandleFunc("/financial/summary", h.financeSummary)
	private.HandleFunc("/spiritual/entries", h.practiceEntries)
	private.HandleFunc("/spiritual/entries/", h.practiceEntryResource)
	private.HandleFunc("/spiritual/streak", h.streak)
	private.HandleFunc("/dashboard", h.dashboard)

	root := http.NewServeMux()
	root.HandleFunc("/auth/register", h.register)
	root.HandleFunc("/auth/login", h.login)
	root.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	root.Handle("/metrics", metrics.Handler())
	root.Handle("/", auth.Middleware(svc.Auth)(private))

	return metrics.InstrumentHandler(root)
}

// parseWindow reads from/to query parameters (RFC 3339). Missing bounds
// default to the start of today and thirty-one days out.
func parseWindow(r *http.Request) (recurrence.Window, error) {
	now := time.Now().UTC()
	window := recurrence.Window{
		From: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}
	window.To = window.From.AddDate(0, 0, 31)

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return recurrence.Window{}, invalidParam("from", raw)
		}
		window.From = from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return recurrence.Window{}, invalidParam("to", raw)
		}
		window.To = to
	}
	return window, nil
}
