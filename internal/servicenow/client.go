// Package servicenow is a client for the ServiceNow Table API, scoped to
// incident records.
package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
)

const incidentTablePath = "/api/now/table/incident"

// Incident is the slice of a ServiceNow incident record this service
// reads back.
type Incident struct {
	SysID            string `json:"sys_id"`
	Number           string `json:"number"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	State            string `json:"state"`
	Priority         string `json:"priority"`
}

// Config holds connection settings for a ServiceNow instance.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to the ServiceNow Table API with basic auth.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a ServiceNow client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type resultEnvelope struct {
	Result json.RawMessage `json:"result"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("servicenow api error %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	var envelope resultEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

// CreateIncident files a new incident and returns its identifiers.
func (c *Client) CreateIncident(ctx context.Context, payload domain.TicketPayload) (*domain.Ticket, error) {
	var created Incident
	if err := c.do(ctx, http.MethodPost, incidentTablePath, nil, payload, &created); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeTicketFailed, "failed to create incident", err)
	}

	return &domain.Ticket{ID: created.SysID, Ref: created.Number}, nil
}

// GetIncident fetches an incident by sys_id.
func (c *Client) GetIncident(ctx context.Context, sysID string) (*Incident, error) {
	var incident Incident
	if err := c.do(ctx, http.MethodGet, incidentTablePath+"/"+url.PathEscape(sysID), nil, nil, &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

// UpdateIncident patches fields on an existing incident. Use it with the
// ticket builder's WorkNote and Comment payloads.
func (c *Client) UpdateIncident(ctx context.Context, sysID string, fields map[string]string) (*Incident, error) {
	var incident Incident
	if err := c.do(ctx, http.MethodPatch, incidentTablePath+"/"+url.PathEscape(sysID), nil, fields, &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

// SearchIncidents runs an encoded sysparm query.
func (c *Client) SearchIncidents(ctx context.Context, query string, limit int) ([]Incident, error) {
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{
		"sysparm_query": {query},
		"sysparm_limit": {fmt.Sprint(limit)},
	}

	var incidents []Incident
	if err := c.do(ctx, http.MethodGet, incidentTablePath, params, nil, &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

// Health reports whether the instance answers a minimal table query.
func (c *Client) Health(ctx context.Context) bool {
	params := url.Values{"sysparm_limit": {"1"}}
	err := c.do(ctx, http.MethodGet, incidentTablePath, params, nil, nil)
	return err == nil
}
