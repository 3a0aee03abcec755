package domain

import "fmt"

// ContactType for tickets created from processed emails.
const ContactTypeEmail = "email"

// ShortDescriptionMaxLen is the ticketing system's limit on the
// short_description field.
const ShortDescriptionMaxLen = 160

// IncidentDraft holds the structured fields extracted from generation
// output, pre-ticket. Scalar fields are pointers: a nil field was absent
// from the model's output and gets its default applied by the ticket
// builder, not here.
type IncidentDraft struct {
	ShortDescription   *string  `json:"short_description,omitempty"`
	Description        *string  `json:"description,omitempty"`
	Category           *string  `json:"category,omitempty"`
	Urgency            *int     `json:"urgency,omitempty"`
	Impact             *int     `json:"impact,omitempty"`
	RecommendedActions []string `json:"recommended_actions,omitempty"`
	KBReferences       []string `json:"kb_references,omitempty"`
	HasKBMatch         bool     `json:"has_kb_match"`
}

// TicketPayload is the record sent to the ticketing system.
// Invariant: Priority is always derived from Urgency and Impact by the
// priority matrix.
type TicketPayload struct {
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	AssignmentGroup  string `json:"assignment_group"`
	Category         string `json:"category"`
	Urgency          int    `json:"urgency"`
	Impact           int    `json:"impact"`
	Priority         int    `json:"priority"`
	CallerID         string `json:"caller_id"`
	ContactType      string `json:"contact_type"`
}

// Ticket identifies a created ticket: ID is the backend's internal
// identifier (sys_id), Ref the human-facing number.
type Ticket struct {
	ID  string `json:"ticket_id"`
	Ref string `json:"ticket_ref"`
}

// WorkflowResult is the terminal value returned for each processed
// incident. It is never reused across incidents.
type WorkflowResult struct {
	Success       bool           `json:"success"`
	Fallback      bool           `json:"fallback"`
	TicketID      string         `json:"ticket_id,omitempty"`
	TicketRef     string         `json:"ticket_ref,omitempty"`
	Error         string         `json:"error,omitempty"`
	FallbackError string         `json:"fallback_error,omitempty"`
	KBSourceCount int            `json:"kb_source_count"`
	Draft         *IncidentDraft `json:"draft,omitempty"`
	EmailFrom     string         `json:"email_from,omitempty"`
	EmailSubject  string         `json:"email_subject,omitempty"`
}

// Health status values reported by the orchestrator's health aggregation.
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
	HealthDegraded  = "degraded"
	HealthDisabled  = "disabled"
)

// ComponentHealth describes the probe result for a single collaborator.
type ComponentHealth struct {
	Status        string `json:"status"`
	DocumentCount int64  `json:"document_count,omitempty"`
}

// HealthReport aggregates independent collaborator probes. A single failed
// probe degrades Overall without marking other components unhealthy.
type HealthReport struct {
	Overall    string                     `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ValidateTicketPayload validates a TicketPayload before submission.
func ValidateTicketPayload(p *TicketPayload) error {
	if p == nil {
		return fmt.Errorf("ticket payload cannot be nil")
	}

	if p.ShortDescription == "" {
		return fmt.Errorf("ticket ShortDescription is required")
	}

	if len([]rune(p.ShortDescription)) > ShortDescriptionMaxLen {
		return fmt.Errorf("ticket ShortDescription exceeds %d characters", ShortDescriptionMaxLen)
	}

	if p.Urgency < 1 || p.Urgency > 5 {
		return fmt.Errorf("ticket Urgency must be in [1,5]: %d", p.Urgency)
	}

	if p.Impact < 1 || p.Impact > 5 {
		return fmt.Errorf("ticket Impact must be in [1,5]: %d", p.Impact)
	}

	if p.Priority < 1 || p.Priority > 5 {
		return fmt.Errorf("ticket Priority must be in [1,5]: %d", p.Priority)
	}

	return nil
}
