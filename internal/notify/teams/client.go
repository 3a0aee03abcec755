// Package teams posts incident notifications to a Microsoft Teams
// incoming webhook as Adaptive Cards.
package teams

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
)

const maxSourcesShown = 3

// Config holds webhook settings.
type Config struct {
	WebhookURL string
	Enabled    bool
	Timeout    time.Duration
}

// Client sends Adaptive Card messages to a Teams channel.
type Client struct {
	webhookURL string
	enabled    bool
	httpClient *http.Client
}

// NewClient creates a Teams webhook client. A missing webhook URL disables
// the client regardless of the enabled flag.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	enabled := cfg.Enabled
	if enabled && cfg.WebhookURL == "" {
		log.Printf("teams: webhook URL not configured, disabling notifications")
		enabled = false
	}
	return &Client{
		webhookURL: cfg.WebhookURL,
		enabled:    enabled,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether notifications will actually be sent.
func (c *Client) Enabled() bool {
	return c.enabled
}

type fact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

type cardElement struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Weight   string `json:"weight,omitempty"`
	Size     string `json:"size,omitempty"`
	Color    string `json:"color,omitempty"`
	Wrap     bool   `json:"wrap,omitempty"`
	Spacing  string `json:"spacing,omitempty"`
	IsSubtle bool   `json:"isSubtle,omitempty"`
	Facts    []fact `json:"facts,omitempty"`
}

type adaptiveCard struct {
	Schema  string         `json:"$schema"`
	Type    string         `json:"type"`
	Version string         `json:"version"`
	Body    []cardElement  `json:"body"`
	MSTeams map[string]any `json:"msteams"`
}

type attachment struct {
	ContentType string       `json:"contentType"`
	ContentURL  *string      `json:"contentUrl"`
	Content     adaptiveCard `json:"content"`
}

type message struct {
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	Attachments []attachment `json:"attachments,omitempty"`
}

// Send posts a created-ticket announcement. The card carries the incident
// facts plus, when available, the model's analysis and the knowledge base
// sources that informed it.
func (c *Client) Send(ctx context.Context, ticket *domain.Ticket, payload domain.TicketPayload, draft *domain.IncidentDraft, sources []domain.ScoredSource) error {
	if !c.enabled {
		return nil
	}

	card := buildCard(ticket, payload, draft, sources)
	if err := c.post(ctx, message{
		Type: "message",
		Attachments: []attachment{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content:     card,
		}},
	}); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeNotifyFailed, "failed to send teams notification", err)
	}

	log.Printf("teams: sent notification for incident %s", ticket.Ref)
	return nil
}

// Health posts a minimal text message to the webhook.
func (c *Client) Health(ctx context.Context) bool {
	if !c.enabled {
		return true
	}
	err := c.post(ctx, message{Type: "message", Text: "Health check from RAG Incident System"})
	return err == nil
}

func (c *Client) post(ctx context.Context, msg message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("teams webhook error %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildCard(ticket *domain.Ticket, payload domain.TicketPayload, draft *domain.IncidentDraft, sources []domain.ScoredSource) adaptiveCard {
	body := []cardElement{
		{
			Type:   "TextBlock",
			Text:   "🚨 New Incident: " + ticket.Ref,
			Weight: "Bolder",
			Size:   "Large",
			Color:  priorityColor(payload.Priority),
		},
		{
			Type:    "TextBlock",
			Text:    payload.ShortDescription,
			Wrap:    true,
			Size:    "Medium",
			Spacing: "Medium",
		},
		{
			Type:    "FactSet",
			Spacing: "Medium",
			Facts: []fact{
				{Title: "Incident Number", Value: ticket.Ref},
				{Title: "Priority", Value: fmt.Sprintf("P%d", payload.Priority)},
				{Title: "Urgency", Value: fmt.Sprint(payload.Urgency)},
				{Title: "Impact", Value: fmt.Sprint(payload.Impact)},
				{Title: "Category", Value: payload.Category},
				{Title: "Caller", Value: payload.CallerID},
			},
		},
	}

	if draft != nil {
		if draft.Description != nil && *draft.Description != "" {
			body = append(body,
				cardElement{Type: "TextBlock", Text: "**Analysis:**", Weight: "Bolder", Spacing: "Medium"},
				cardElement{Type: "TextBlock", Text: *draft.Description, Wrap: true, IsSubtle: true},
			)
		}
		if len(draft.RecommendedActions) > 0 {
			body = append(body,
				cardElement{Type: "TextBlock", Text: "**Recommended Actions:**", Weight: "Bolder", Spacing: "Medium"},
				cardElement{Type: "TextBlock", Text: bulletLines(draft.RecommendedActions), Wrap: true},
			)
		}
		if len(draft.KBReferences) > 0 {
			body = append(body,
				cardElement{Type: "TextBlock", Text: "**Knowledge Base References:**", Weight: "Bolder", Spacing: "Medium"},
				cardElement{Type: "TextBlock", Text: bulletLines(draft.KBReferences), Wrap: true, IsSubtle: true},
			)
		}
	}

	if len(sources) > 0 {
		body = append(body, cardElement{
			Type:    "TextBlock",
			Text:    fmt.Sprintf("📚 %d relevant KB articles found", len(sources)),
			Weight:  "Bolder",
			Spacing: "Medium",
		})
		shown := sources
		if len(shown) > maxSourcesShown {
			shown = shown[:maxSourcesShown]
		}
		for _, s := range shown {
			body = append(body, cardElement{
				Type:     "TextBlock",
				Text:     fmt.Sprintf("• [%s](%s) (Score: %.2f)", s.Title, s.URL, s.Score),
				Wrap:     true,
				IsSubtle: true,
			})
		}
	}

	return adaptiveCard{
		Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
		Type:    "AdaptiveCard",
		Version: "1.4",
		Body:    body,
		MSTeams: map[string]any{"width": "Full"},
	}
}

func priorityColor(priority int) string {
	switch priority {
	case 1:
		return "Attention"
	case 2:
		return "Warning"
	case 3:
		return "Accent"
	default:
		return "Default"
	}
}

func bulletLines(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += "\n"
		}
		out += "• " + it
	}
	return out
}
