package service

import (
	"context"
	"log"
	"time"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
	"github.com/ihabbishara/RAGIncidentApp/internal/mail"
	"github.com/ihabbishara/RAGIncidentApp/internal/metrics"
	"github.com/ihabbishara/RAGIncidentApp/internal/telemetry"
)

// ContextProvider supplies knowledge base context for a query.
type ContextProvider interface {
	RetrieveWithContext(ctx context.Context, query string) (domain.ContextBundle, error)
	ChunkCount(ctx context.Context) (int, error)
}

// Summarizer produces raw model output describing an incident.
type Summarizer interface {
	Summarize(ctx context.Context, emailContent, kbContext string) (string, error)
	Health(ctx context.Context) bool
}

// TicketCreator files incidents with the ticketing system.
type TicketCreator interface {
	CreateIncident(ctx context.Context, payload domain.TicketPayload) (*domain.Ticket, error)
	Health(ctx context.Context) bool
}

// Notifier announces created tickets to a chat channel.
type Notifier interface {
	Enabled() bool
	Send(ctx context.Context, ticket *domain.Ticket, payload domain.TicketPayload, draft *domain.IncidentDraft, sources []domain.ScoredSource) error
	Health(ctx context.Context) bool
}

// Workflow stages, used to tag where the primary path failed.
const (
	stageRetrieving     = "retrieving"
	stageGenerating     = "generating"
	stageBuildingTicket = "building_ticket"
	stageCreatingTicket = "creating_ticket"
)

// stageError ties a pipeline failure to the stage it happened in.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// WorkflowOrchestrator drives an inbound email through retrieval,
// generation, ticket creation and notification. Any failure before the
// ticket exists diverts to a fallback ticket built straight from the
// email; only a second creation failure makes the whole run fail.
type WorkflowOrchestrator struct {
	retriever   ContextProvider
	summarizer  Summarizer
	interpreter *SummaryInterpreter
	builder     *TicketBuilder
	ticketing   TicketCreator
	notifier    Notifier
	metrics     *metrics.Metrics
}

// NewWorkflowOrchestrator wires the pipeline. notifier and m may be nil.
func NewWorkflowOrchestrator(
	retriever ContextProvider,
	summarizer Summarizer,
	builder *TicketBuilder,
	ticketing TicketCreator,
	notifier Notifier,
	m *metrics.Metrics,
) *WorkflowOrchestrator {
	return &WorkflowOrchestrator{
		retriever:   retriever,
		summarizer:  summarizer,
		interpreter: NewSummaryInterpreter(),
		builder:     builder,
		ticketing:   ticketing,
		notifier:    notifier,
		metrics:     m,
	}
}

// ProcessIncident runs the full workflow for one email. It always returns
// a terminal result, never an error.
func (o *WorkflowOrchestrator) ProcessIncident(ctx context.Context, email *mail.InboundEmail) domain.WorkflowResult {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "Workflow.ProcessIncident", telemetry.SpanAttributes{
		Operation: "process_incident",
	})
	defer span.End()

	log.Printf("workflow: processing email from %s: %s", email.From, email.Subject)

	result := o.run(ctx, email)
	o.metrics.ObserveWorkflow(result.Success, result.Fallback, time.Since(start))

	if result.Success {
		log.Printf("workflow: created ticket %s (fallback=%t)", result.TicketRef, result.Fallback)
	} else {
		log.Printf("workflow: failed for email from %s: %s", email.From, result.Error)
	}
	return result
}

func (o *WorkflowOrchestrator) run(ctx context.Context, email *mail.InboundEmail) domain.WorkflowResult {
	result := domain.WorkflowResult{
		EmailFrom:    email.From,
		EmailSubject: email.Subject,
	}

	ticket, payload, draft, bundle, stageErr := o.primary(ctx, email)
	if stageErr == nil {
		o.notify(ctx, ticket, payload, draft, bundle.Sources)

		result.Success = true
		result.TicketID = ticket.ID
		result.TicketRef = ticket.Ref
		result.KBSourceCount = bundle.SourceCount
		result.Draft = draft
		return result
	}

	log.Printf("workflow: %v, attempting fallback ticket", stageErr)
	telemetry.CaptureError(ctx, stageErr)
	result.Error = stageErr.Error()

	fallbackPayload := o.builder.BuildFromEmail(email.From, email.Subject, email.Body)
	fbTicket, err := o.ticketing.CreateIncident(ctx, fallbackPayload)
	o.metrics.ObserveTicket(err)
	if err != nil {
		log.Printf("workflow: fallback ticket creation failed: %v", err)
		telemetry.CaptureError(ctx, err)
		result.FallbackError = err.Error()
		return result
	}

	result.Success = true
	result.Fallback = true
	result.TicketID = fbTicket.ID
	result.TicketRef = fbTicket.Ref
	return result
}

// primary walks Retrieving, Generating, BuildingTicket and CreatingTicket.
// The stageError identifies where it stopped.
func (o *WorkflowOrchestrator) primary(ctx context.Context, email *mail.InboundEmail) (*domain.Ticket, domain.TicketPayload, *domain.IncidentDraft, domain.ContextBundle, *stageError) {
	query := email.Content()

	bundle, err := o.retriever.RetrieveWithContext(ctx, query)
	if err != nil {
		return nil, domain.TicketPayload{}, nil, bundle, &stageError{stageRetrieving, err}
	}
	o.metrics.ObserveRetrieval(bundle.SourceCount)
	if bundle.SourceCount > 0 {
		log.Printf("workflow: found %d relevant knowledge base chunks", bundle.SourceCount)
	} else {
		log.Printf("workflow: no relevant knowledge base chunks found")
	}

	raw, err := o.summarizer.Summarize(ctx, query, bundle.Context)
	if err != nil {
		return nil, domain.TicketPayload{}, nil, bundle, &stageError{stageGenerating, err}
	}

	draft, usedFallbackParse := o.interpreter.Interpret(raw, query)
	if usedFallbackParse {
		log.Printf("workflow: model output was not valid JSON, using heuristic draft")
	}
	draft.HasKBMatch = bundle.SourceCount > 0

	payload := o.builder.BuildFromDraft(draft, email.From, email.Subject)
	if err := domain.ValidateTicketPayload(&payload); err != nil {
		return nil, domain.TicketPayload{}, nil, bundle, &stageError{stageBuildingTicket, err}
	}

	ticket, err := o.ticketing.CreateIncident(ctx, payload)
	o.metrics.ObserveTicket(err)
	if err != nil {
		return nil, domain.TicketPayload{}, nil, bundle, &stageError{stageCreatingTicket, err}
	}

	return ticket, payload, &draft, bundle, nil
}

// notify sends the ticket announcement. Failures are logged and swallowed;
// the ticket already exists and the result must not change.
func (o *WorkflowOrchestrator) notify(ctx context.Context, ticket *domain.Ticket, payload domain.TicketPayload, draft *domain.IncidentDraft, sources []domain.ScoredSource) {
	if o.notifier == nil || !o.notifier.Enabled() {
		return
	}

	err := o.notifier.Send(ctx, ticket, payload, draft, sources)
	o.metrics.ObserveNotification(err)
	if err != nil {
		log.Printf("workflow: notification failed (ticket %s already created): %v", ticket.Ref, err)
		telemetry.CaptureError(ctx, err)
	}
}

// HealthCheck probes each collaborator independently. A failed probe marks
// that component unhealthy and degrades the overall status without
// touching the others.
func (o *WorkflowOrchestrator) HealthCheck(ctx context.Context) domain.HealthReport {
	report := domain.HealthReport{
		Overall:    domain.HealthHealthy,
		Components: make(map[string]domain.ComponentHealth),
	}

	degrade := func() {
		report.Overall = domain.HealthDegraded
	}

	if o.summarizer.Health(ctx) {
		report.Components["llm"] = domain.ComponentHealth{Status: domain.HealthHealthy}
	} else {
		report.Components["llm"] = domain.ComponentHealth{Status: domain.HealthUnhealthy}
		degrade()
	}

	if o.ticketing.Health(ctx) {
		report.Components["servicenow"] = domain.ComponentHealth{Status: domain.HealthHealthy}
	} else {
		report.Components["servicenow"] = domain.ComponentHealth{Status: domain.HealthUnhealthy}
		degrade()
	}

	if count, err := o.retriever.ChunkCount(ctx); err == nil {
		report.Components["vector_store"] = domain.ComponentHealth{
			Status:        domain.HealthHealthy,
			DocumentCount: int64(count),
		}
	} else {
		report.Components["vector_store"] = domain.ComponentHealth{Status: domain.HealthUnhealthy}
		degrade()
	}

	switch {
	case o.notifier == nil || !o.notifier.Enabled():
		report.Components["teams"] = domain.ComponentHealth{Status: domain.HealthDisabled}
	case o.notifier.Health(ctx):
		report.Components["teams"] = domain.ComponentHealth{Status: domain.HealthHealthy}
	default:
		report.Components["teams"] = domain.ComponentHealth{Status: domain.HealthUnhealthy}
		degrade()
	}

	return report
}
