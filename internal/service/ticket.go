package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
)

// TicketBuilderConfig carries the defaults applied when a draft leaves a
// field unset.
type TicketBuilderConfig struct {
	AssignmentGroup string
	Category        string
	DefaultUrgency  int
	DefaultImpact   int
}

// DefaultTicketBuilderConfig provides the stock ticket defaults.
func DefaultTicketBuilderConfig() TicketBuilderConfig {
	return TicketBuilderConfig{
		AssignmentGroup: "IT Support",
		Category:        "Incident",
		DefaultUrgency:  3,
		DefaultImpact:   3,
	}
}

// TicketBuilder assembles ticket payloads from incident drafts, or directly
// from email fields when the analysis pipeline failed. Payloads always
// satisfy the priority matrix: Priority is derived from the final urgency
// and impact, never taken from input.
type TicketBuilder struct {
	cfg TicketBuilderConfig
	now func() time.Time
}

func NewTicketBuilder(cfg TicketBuilderConfig) *TicketBuilder {
	if cfg.AssignmentGroup == "" {
		cfg.AssignmentGroup = DefaultTicketBuilderConfig().AssignmentGroup
	}
	if cfg.Category == "" {
		cfg.Category = DefaultTicketBuilderConfig().Category
	}
	if cfg.DefaultUrgency == 0 {
		cfg.DefaultUrgency = DefaultTicketBuilderConfig().DefaultUrgency
	}
	if cfg.DefaultImpact == 0 {
		cfg.DefaultImpact = DefaultTicketBuilderConfig().DefaultImpact
	}
	return &TicketBuilder{cfg: cfg, now: time.Now}
}

// BuildFromDraft turns an interpreted incident draft into a ticket payload.
// Email provenance, knowledge base references and recommended actions are
// appended to the description so they survive into the ticket record.
func (b *TicketBuilder) BuildFromDraft(draft domain.IncidentDraft, emailFrom, emailSubject string) domain.TicketPayload {
	short := valueOr(draft.ShortDescription, emailSubject)
	if short == "" {
		short = "Incident from automated email processing"
	}

	meta := []string{
		"Original Email From: " + emailFrom,
		"Email Subject: " + emailSubject,
		"Processed At: " + b.timestamp(),
	}
	if len(draft.KBReferences) > 0 {
		meta = append(meta, "\nKnowledge Base References:\n"+bulletList(draft.KBReferences))
	}
	if len(draft.RecommendedActions) > 0 {
		meta = append(meta, "\nRecommended Actions:\n"+bulletList(draft.RecommendedActions))
	}
	description := valueOr(draft.Description, "") + "\n\n---\n\n" + strings.Join(meta, "\n")

	urgency := b.levelOrDefault(draft.Urgency, b.cfg.DefaultUrgency)
	impact := b.levelOrDefault(draft.Impact, b.cfg.DefaultImpact)

	return domain.TicketPayload{
		ShortDescription: truncateRunes(short, domain.ShortDescriptionMaxLen),
		Description:      description,
		AssignmentGroup:  b.cfg.AssignmentGroup,
		Category:         valueOr(draft.Category, b.cfg.Category),
		Urgency:          urgency,
		Impact:           impact,
		Priority:         ResolvePriority(&urgency, &impact),
		CallerID:         emailFrom,
		ContactType:      domain.ContactTypeEmail,
	}
}

// BuildFromEmail builds a minimal ticket payload straight from the inbound
// email. Used when retrieval or generation failed and a ticket still has
// to be filed.
func (b *TicketBuilder) BuildFromEmail(emailFrom, emailSubject, emailBody string) domain.TicketPayload {
	short := truncateRunes(emailSubject, domain.ShortDescriptionMaxLen)
	if short == "" {
		short = "Incident from email"
	}

	description := fmt.Sprintf(`Email Subject: %s
Email From: %s
Received: %s

Email Content:
%s

---
This incident was created automatically from an email trigger.
No matching knowledge base articles were found during automated processing.`,
		emailSubject, emailFrom, b.timestamp(), emailBody)

	urgency := b.levelOrDefault(nil, b.cfg.DefaultUrgency)
	impact := b.levelOrDefault(nil, b.cfg.DefaultImpact)

	return domain.TicketPayload{
		ShortDescription: short,
		Description:      description,
		AssignmentGroup:  b.cfg.AssignmentGroup,
		Category:         b.cfg.Category,
		Urgency:          urgency,
		Impact:           impact,
		Priority:         ResolvePriority(&urgency, &impact),
		CallerID:         emailFrom,
		ContactType:      domain.ContactTypeEmail,
	}
}

// WorkNote formats a timestamped work note update payload.
func (b *TicketBuilder) WorkNote(note string) map[string]string {
	return map[string]string{"work_notes": "[" + b.timestamp() + "] " + note}
}

// Comment formats a timestamped customer-visible comment update payload.
func (b *TicketBuilder) Comment(comment string) map[string]string {
	return map[string]string{"comments": "[" + b.timestamp() + "] " + comment}
}

func (b *TicketBuilder) timestamp() string {
	return b.now().UTC().Format(time.RFC3339)
}

func (b *TicketBuilder) levelOrDefault(level *int, def int) int {
	if level == nil {
		level = &def
	}
	return NormalizeLevel(level)
}

func valueOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "- "+it)
	}
	return strings.Join(lines, "\n")
}
