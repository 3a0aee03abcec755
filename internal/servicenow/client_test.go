package servicenow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
)

func testPayload() domain.TicketPayload {
	return domain.TicketPayload{
		ShortDescription: "VPN outage",
		Description:      "details",
		AssignmentGroup:  "IT Support",
		Category:         "Network",
		Urgency:          2,
		Impact:           2,
		Priority:         1,
		CallerID:         "ops@example.com",
		ContactType:      "email",
	}
}

func TestClient_CreateIncident(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/now/table/incident", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "svc_user", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload domain.TicketPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "VPN outage", payload.ShortDescription)
		assert.Equal(t, 1, payload.Priority)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{
				"sys_id": "abc123",
				"number": "INC0012345",
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Username: "svc_user", Password: "secret"})
	ticket, err := c.CreateIncident(context.Background(), testPayload())
	require.NoError(t, err)

	assert.Equal(t, "abc123", ticket.ID)
	assert.Equal(t, "INC0012345", ticket.Ref)
}

func TestClient_CreateIncident_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insert failed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.CreateIncident(context.Background(), testPayload())
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeTicketFailed, domainErr.Code)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_GetIncident(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/now/table/incident/abc123", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{
				"sys_id":            "abc123",
				"number":            "INC0012345",
				"short_description": "VPN outage",
				"state":             "2",
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	incident, err := c.GetIncident(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "INC0012345", incident.Number)
	assert.Equal(t, "2", incident.State)
}

func TestClient_UpdateIncident(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/api/now/table/incident/abc123", r.URL.Path)

		var fields map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
		assert.Contains(t, fields["work_notes"], "ticket created by automation")

		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{"sys_id": "abc123", "number": "INC0012345"},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	incident, err := c.UpdateIncident(context.Background(), "abc123", map[string]string{
		"work_notes": "[2025-03-14T09:26:53Z] ticket created by automation",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", incident.SysID)
}

func TestClient_SearchIncidents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "active=true", r.URL.Query().Get("sysparm_query"))
		assert.Equal(t, "5", r.URL.Query().Get("sysparm_limit"))
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]string{
				{"sys_id": "a", "number": "INC1"},
				{"sys_id": "b", "number": "INC2"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	incidents, err := c.SearchIncidents(context.Background(), "active=true", 5)
	require.NoError(t, err)
	require.Len(t, incidents, 2)
	assert.Equal(t, "INC2", incidents[1].Number)
}

func TestClient_Health(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("sysparm_limit"))
		json.NewEncoder(w).Encode(map[string]any{"result": []any{}})
	}))
	defer healthy.Close()

	c := NewClient(Config{BaseURL: healthy.URL})
	assert.True(t, c.Health(context.Background()))

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	c = NewClient(Config{BaseURL: broken.URL})
	assert.False(t, c.Health(context.Background()))
}
