package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifedesk/internal/auth"
	"lifedesk/internal/dashboard"
	"lifedesk/internal/financial"
	"lifedesk/internal/profile"
	"lifedesk/internal/schedule"
	"lifedesk/internal/spiritual"
	"lifedesk/internal/storage/memory"
)

type apiFixture struct {
	t       *testing.T
	server  *httptest.Server
	token   string
	baseURL string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.New()
	engine := schedule.NewEngine(store, nil, nil)
	schedules := schedule.NewService(store, engine, nil)
	profiles := profile.NewService(store)
	finances := financial.NewService(store)
	practices := spiritual.NewService(store)

	handler := NewHandler(Services{
		Auth:      auth.NewService(store, []byte("test-secret"), time.Hour, nil),
		Profiles:  profiles,
		Schedule:  schedules,
		Finance:   finances,
		Spiritual: practices,
		Dashboard: dashboard.New(profiles, schedules, finances, practices, nil),
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	f := &apiFixture{t: t, server: server, baseURL: server.URL}

	resp := f.do(http.MethodPost, "/auth/register", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(http.MethodPost, "/auth/login", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	resp.Body.Close()
	require.NotEmpty(t, login.Token)
	f.token = login.Token

	return f
}

func (f *apiFixture) do(method, path string, payload any) *http.Response {
	f.t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(f.t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, f.baseURL+path, &body)
	require.NoError(f.t, err)
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(f.t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	f := newAPIFixture(t)
	f.token = ""

	for _, path := range []string{"/schedule/events", "/profile", "/dashboard"} {
		resp := f.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		resp.Body.Close()
	}
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	f := newAPIFixture(t)
	f.token = ""

	resp := f.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(http.MethodPost, "/auth/register", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestEventLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(http.MethodPost, "/schedule/events", map[string]any{
		"title":     "Dentist",
		"startTime": "2024-05-01T09:00:00Z",
		"endTime":   "2024-05-01T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[map[string]any](t, resp)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	resp = f.do(http.MethodPatch, "/schedule/events/"+id, map[string]any{
		"completed": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	patched := decodeBody[map[string]any](t, resp)
	assert.Equal(t, true, patched["completed"])

	resp = f.do(http.MethodGet, "/schedule/events?from=2024-05-01T00:00:00Z&to=2024-05-02T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeBody[[]map[string]any](t, resp)
	require.Len(t, listed, 1)
	assert.Equal(t, "Dentist", listed[0]["title"])

	resp = f.do(http.MethodDelete, "/schedule/events/"+id, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(http.MethodGet, "/schedule/events/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTemplateLifecycleAndExpansion(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(http.MethodPost, "/schedule/templates", map[string]any{
		"title":     "Morning run",
		"startTime": "2024-01-01T09:00:00Z",
		"endTime":   "2024-01-01T09:30:00Z",
		"rule": map[string]any{
			"frequency": "WEEKLY",
			"byWeekday": []string{"MO", "WE", "FR"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tmpl := decodeBody[map[string]any](t, resp)
	id, _ := tmpl["id"].(string)
	require.NotEmpty(t, id)

	resp = f.do(http.MethodGet, "/schedule/events?from=2024-01-01T00:00:00Z&to=2024-01-21T23:59:59Z", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeBody[[]map[string]any](t, resp)
	assert.Len(t, listed, 9)

	resp = f.do(http.MethodPost, fmt.Sprintf("/schedule/templates/%s/exceptions", id), map[string]any{
		"date": "2024-01-08T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(http.MethodGet, "/schedule/events?from=2024-01-01T00:00:00Z&to=2024-01-21T23:59:59Z", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed = decodeBody[[]map[string]any](t, resp)
	assert.Len(t, listed, 8)

	resp = f.do(http.MethodPost, fmt.Sprintf("/schedule/templates/%s/archive", id), map[string]any{
		"archived": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(http.MethodGet, "/schedule/events?from=2024-01-01T00:00:00Z&to=2024-01-21T23:59:59Z", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed = decodeBody[[]map[string]any](t, resp)
	assert.Empty(t, listed)

	resp = f.do(http.MethodDelete, "/schedule/templates/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}

func TestTemplateRejectsMalformedRule(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(http.MethodPost, "/schedule/templates", map[string]any{
		"title":     "Broken",
		"startTime": "2024-01-01T09:00:00Z",
		"endTime":   "2024-01-01T09:30:00Z",
		"rule":      map[string]any{"frequency": "SOMETIMES"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(http.MethodPost, "/schedule/events", map[string]any{
		"title":     "Dentist",
		"startTime": "2024-05-01T09:00:00Z",
		"endTime":   "2024-05-01T10:00:00Z",
		"bogus":     1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestICSExport(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(http.MethodPost, "/schedule/templates", map[string]any{
		"title":     "Morning run",
		"startTime": "2024-01-01T09:00:00Z",
		"endTime":   "2024-01-01T09:30:00Z",
		"rule":      map[string]any{"frequency": "DAILY"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(http.MethodPost, "/schedule/templates", map[string]any{
		"title":     "Gym",
		"startTime": "2024-01-01T18:00:00Z",
		"endTime":   "2024-01-01T19:00:00Z",
		"rule": map[string]any{
			"frequency": "WEEKLY",
			"byWeekday": []string{"MO", "WE"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(http.MethodGet, "/schedule/export.ics?from=2024-01-01T00:00:00Z&to=2024-01-31T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")

	var body strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		body.Write(buf[:n])
		if err != nil {
			break
		}
	}
	resp.Body.Close()

	text := body.String()
	assert.Contains(t, text, "BEGIN:VCALENDAR")
	assert.Contains(t, text, "BEGIN:VEVENT")
	// Full unescaped rule lines, separators intact.
	assert.Contains(t, text, "RRULE:FREQ=DAILY;INTERVAL=1")
	assert.Contains(t, text, "RRULE:FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,WE")
	assert.NotContains(t, text, `\;`)
	assert.Contains(t, text, "SUMMARY:Morning run")
	assert.Contains(t, text, "SUMMARY:Gym")
}

func TestFinancialEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(http.MethodPost, "/financial/transactions", map[string]any{
		"amount":   -120.5,
		"category": "Food",
		"date":     "2024-05-03T12:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tx := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "food", tx["category"])

	resp = f.do(http.MethodPut, "/financial/budgets", map[string]any{
		"category": "food", "limit": 400.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(http.MethodGet, "/financial/summary?at=2024-05-15T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decodeBody[map[string]any](t, resp)
	assert.Equal(t, 120.5, summary["spent"])

	resp = f.do(http.MethodPost, "/financial/transactions", map[string]any{
		"amount": 0, "category": "food",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSpiritualAndDashboardEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(http.MethodPost, "/spiritual/entries", map[string]any{
		"kind": "prayer",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(http.MethodGet, "/spiritual/streak", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	streak := decodeBody[map[string]any](t, resp)
	assert.Equal(t, 1.0, streak["currentDays"])

	resp = f.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeBody[map[string]any](t, resp)
	assert.Contains(t, view, "greeting")
	assert.Contains(t, view, "agenda")
	assert.Contains(t, view, "reminders")
}

func TestProfilePatchEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(http.MethodPatch, "/profile", map[string]any{
		"displayName": "Alice",
		"timezone":    "Europe/Berlin",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	prof := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "Alice", prof["displayName"])

	resp = f.do(http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	prof = decodeBody[map[string]any](t, resp)
	assert.Equal(t, "Europe/Berlin", prof["timezone"])
}
