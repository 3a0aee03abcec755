package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
	"github.com/ihabbishara/RAGIncidentApp/internal/mail"
)

type mockContextProvider struct {
	mock.Mock
}

func (m *mockContextProvider) RetrieveWithContext(ctx context.Context, query string) (domain.ContextBundle, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(domain.ContextBundle), args.Error(1)
}

func (m *mockContextProvider) ChunkCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, emailContent, kbContext string) (string, error) {
	args := m.Called(ctx, emailContent, kbContext)
	return args.String(0), args.Error(1)
}

func (m *mockSummarizer) Health(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

type mockTicketCreator struct {
	mock.Mock
}

func (m *mockTicketCreator) CreateIncident(ctx context.Context, payload domain.TicketPayload) (*domain.Ticket, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *mockTicketCreator) Health(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *mockNotifier) Send(ctx context.Context, ticket *domain.Ticket, payload domain.TicketPayload, draft *domain.IncidentDraft, sources []domain.ScoredSource) error {
	return m.Called(ctx, ticket, payload, draft, sources).Error(0)
}

func (m *mockNotifier) Health(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func testEmail() *mail.InboundEmail {
	return &mail.InboundEmail{
		From:    "ops@example.com",
		Subject: "VPN is down",
		Body:    "Nobody can connect to the VPN since 09:00.",
	}
}

func kbBundle() domain.ContextBundle {
	return domain.ContextBundle{
		Query:   "VPN is down\n\nNobody can connect to the VPN since 09:00.",
		Context: "[Source: VPN Runbook]\nrestart the gateway",
		Sources: []domain.ScoredSource{
			{Title: "VPN Runbook", URL: "https://wiki/vpn", Score: 0.92},
		},
		SourceCount: 1,
	}
}

func newTestOrchestrator(r *mockContextProvider, s *mockSummarizer, tc *mockTicketCreator, n Notifier) *WorkflowOrchestrator {
	return NewWorkflowOrchestrator(r, s, NewTicketBuilder(DefaultTicketBuilderConfig()), tc, n, nil)
}

func TestWorkflow_ProcessIncident_HappyPath(t *testing.T) {
	retriever := new(mockContextProvider)
	summarizer := new(mockSummarizer)
	ticketing := new(mockTicketCreator)
	notifier := new(mockNotifier)

	email := testEmail()
	retriever.On("RetrieveWithContext", mock.Anything, email.Content()).Return(kbBundle(), nil)
	summarizer.On("Summarize", mock.Anything, email.Content(), kbBundle().Context).
		Return(`{"short_description": "VPN outage EU", "urgency": 2, "impact": 2}`, nil)
	ticketing.On("CreateIncident", mock.Anything, mock.MatchedBy(func(p domain.TicketPayload) bool {
		return p.ShortDescription == "VPN outage EU" && p.Priority == 1
	})).Return(&domain.Ticket{ID: "sys123", Ref: "INC0012345"}, nil)
	notifier.On("Enabled").Return(true)
	notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	o := newTestOrchestrator(retriever, summarizer, ticketing, notifier)
	result := o.ProcessIncident(context.Background(), email)

	assert.True(t, result.Success)
	assert.False(t, result.Fallback)
	assert.Equal(t, "sys123", result.TicketID)
	assert.Equal(t, "INC0012345", result.TicketRef)
	assert.Equal(t, 1, result.KBSourceCount)
	require.NotNil(t, result.Draft)
	assert.True(t, result.Draft.HasKBMatch)
	assert.Empty(t, result.Error)
	notifier.AssertExpectations(t)
	ticketing.AssertExpectations(t)
}

func TestWorkflow_ProcessIncident_NoKBMatch(t *testing.T) {
	retriever := new(mockContextProvider)
	summarizer := new(mockSummarizer)
	ticketing := new(mockTicketCreator)

	email := testEmail()
	retriever.On("RetrieveWithContext", mock.Anything, email.Content()).
		Return(domain.ContextBundle{Query: email.Content()}, nil)
	summarizer.On("Summarize", mock.Anything, email.Content(), "").
		Return(`{"short_description": "VPN outage"}`, nil)
	ticketing.On("CreateIncident", mock.Anything, mock.Anything).
		Return(&domain.Ticket{ID: "sys1", Ref: "INC1"}, nil)

	o := newTestOrchestrator(retriever, summarizer, ticketing, nil)
	result := o.ProcessIncident(context.Background(), email)

	assert.True(t, result.Success)
	assert.Zero(t, result.KBSourceCount)
	require.NotNil(t, result.Draft)
	assert.False(t, result.Draft.HasKBMatch)
}

func TestWorkflow_RetrievalFailure_FallsBack(t *testing.T) {
	retriever := new(mockContextProvider)
	summarizer := new(mockSummarizer)
	ticketing := new(mockTicketCreator)

	email := testEmail()
	retriever.On("RetrieveWithContext", mock.Anything, email.Content()).
		Return(domain.ContextBundle{}, errors.New("index unreachable"))
	ticketing.On("CreateIncident", mock.Anything, mock.MatchedBy(func(p domain.TicketPayload) bool {
		return p.ShortDescription == "VPN is down"
	})).Return(&domain.Ticket{ID: "sys9", Ref: "INC9"}, nil)

	o := newTestOrchestrator(retriever, summarizer, ticketing, nil)
	result := o.ProcessIncident(context.Background(), email)

	assert.True(t, result.Success)
	assert.True(t, result.Fallback)
	assert.Equal(t, "INC9", result.TicketRef)
	assert.Contains(t, result.Error, "retrieving")
	assert.Contains(t, result.Error, "index unreachable")
	assert.Empty(t, result.FallbackError)
	summarizer.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkflow_GenerationFailure_FallsBack(t *testing.T) {
	retriever := new(mockContextProvider)
	summarizer := new(mockSummarizer)
	ticketing := new(mockTicketCreator)

	email := testEmail()
	retriever.On("RetrieveWithContext", mock.Anything, email.Content()).Return(kbBundle(), nil)
	summarizer.On("Summarize", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("model timeout"))
	ticketing.On("CreateIncident", mock.Anything, mock.Anything).
		Return(&domain.Ticket{ID: "sys9", Ref: "INC9"}, nil)

	o := newTestOrchestrator(retriever, summarizer, ticketing, nil)
	result := o.ProcessIncident(context.Background(), email)

	assert.True(t, result.Success)
	assert.True(t, result.Fallback)
	assert.Contains(t, result.Error, "generating")
}

func TestWorkflow_TicketFailureThenFallbackSucceeds(t *testing.T) {
	retriever := new(mockContextProvider)
	summarizer := new(mockSummarizer)
	ticketing := new(mockTicketCreator)

	email := testEmail()
	retriever.On("RetrieveWithContext", mock.Anything, email.Content()).Return(kbBundle(), nil)
	summarizer.On("Summarize", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"short_description": "VPN outage"}`, nil)
	ticketing.On("CreateIncident", mock.Anything, mock.MatchedBy(func(p domain.TicketPayload) bool {
		return p.ShortDescription == "VPN outage"
	})).Return(nil, errors.New("503")).Once()
	ticketing.On("CreateIncident", mock.Anything, mock.MatchedBy(func(p domain.TicketPayload) bool {
		return p.ShortDescription == "VPN is down"
	})).Return(&domain.Ticket{ID: "sys2", Ref: "INC2"}, nil).Once()

	o := newTestOrchestrator(retriever, summarizer, ticketing, nil)
	result := o.ProcessIncident(context.Background(), email)

	assert.True(t, result.Success)
	assert.True(t, result.Fallback)
	assert.Equal(t, "INC2", result.TicketRef)
	assert.Contains(t, result.Error, "creating_ticket")
	ticketing.AssertExpectations(t)
}

func TestWorkflow_DoubleFailure(t *testing.T) {
	retriever := new(mockContextProvider)
	summarizer := new(mockSummarizer)
	ticketing := new(mockTicketCreator)

	email := testEmail()
	retriever.On("RetrieveWithContext", mock.Anything, email.Content()).
		Return(domain.ContextBundle{}, errors.New("index down"))
	ticketing.On("CreateIncident", mock.Anything, mock.Anything).
		Return(nil, errors.New("servicenow down"))

	o := newTestOrchestrator(retriever, summarizer, ticketing, nil)
	result := o.ProcessIncident(context.Background(), email)

	assert.False(t, result.Success)
	assert.False(t, result.Fallback)
	assert.Empty(t, result.TicketRef)
	assert.Contains(t, result.Error, "index down")
	assert.Contains(t, result.FallbackError, "servicenow down")
}

func TestWorkflow_NotifierFailureIsSwallowed(t *testing.T) {
	retriever := new(mockContextProvider)
	summarizer := new(mockSummarizer)
	ticketing := new(mockTicketCreator)
	notifier := new(mockNotifier)

	email := testEmail()
	retriever.On("RetrieveWithContext", mock.Anything, email.Content()).Return(kbBundle(), nil)
	summarizer.On("Summarize", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"short_description": "VPN outage"}`, nil)
	ticketing.On("CreateIncident", mock.Anything, mock.Anything).
		Return(&domain.Ticket{ID: "sys1", Ref: "INC1"}, nil)
	notifier.On("Enabled").Return(true)
	notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("webhook 410"))

	o := newTestOrchestrator(retriever, summarizer, ticketing, notifier)
	result := o.ProcessIncident(context.Background(), email)

	assert.True(t, result.Success)
	assert.False(t, result.Fallback)
	assert.Empty(t, result.Error)
	assert.Equal(t, "INC1", result.TicketRef)
}

func TestWorkflow_NotifierDisabledIsSkipped(t *testing.T) {
	retriever := new(mockContextProvider)
	summarizer := new(mockSummarizer)
	ticketing := new(mockTicketCreator)
	notifier := new(mockNotifier)

	email := testEmail()
	retriever.On("RetrieveWithContext", mock.Anything, email.Content()).Return(kbBundle(), nil)
	summarizer.On("Summarize", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"short_description": "VPN outage"}`, nil)
	ticketing.On("CreateIncident", mock.Anything, mock.Anything).
		Return(&domain.Ticket{ID: "sys1", Ref: "INC1"}, nil)
	notifier.On("Enabled").Return(false)

	o := newTestOrchestrator(retriever, summarizer, ticketing, notifier)
	result := o.ProcessIncident(context.Background(), email)

	assert.True(t, result.Success)
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkflow_HealthCheck_AllHealthy(t *testing.T) {
	retriever := new(mockContextProvider)
	summarizer := new(mockSummarizer)
	ticketing := new(mockTicketCreator)
	notifier := new(mockNotifier)

	summarizer.On("Health", mock.Anything).Return(true)
	ticketing.On("Health", mock.Anything).Return(true)
	retriever.On("ChunkCount", mock.Anything).Return(42, nil)
	notifier.On("Enabled").Return(true)
	notifier.On("Health", mock.Anything).Return(true)

	o := newTestOrchestrator(retriever, summarizer, ticketing, notifier)
	report := o.HealthCheck(context.Background())

	assert.Equal(t, domain.HealthHealthy, report.Overall)
	assert.Equal(t, domain.HealthHealthy, report.Components["llm"].Status)
	assert.Equal(t, domain.HealthHealthy, report.Components["servicenow"].Status)
	assert.Equal(t, domain.HealthHealthy, report.Components["vector_store"].Status)
	assert.Equal(t, int64(42), report.Components["vector_store"].DocumentCount)
	assert.Equal(t, domain.HealthHealthy, report.Components["teams"].Status)
}

func TestWorkflow_HealthCheck_SingleProbeFailureDegrades(t *testing.T) {
	retriever := new(mockContextProvider)
	summarizer := new(mockSummarizer)
	ticketing := new(mockTicketCreator)

	summarizer.On("Health", mock.Anything).Return(false)
	ticketing.On("Health", mock.Anything).Return(true)
	retriever.On("ChunkCount", mock.Anything).Return(42, nil)

	o := newTestOrchestrator(retriever, summarizer, ticketing, nil)
	report := o.HealthCheck(context.Background())

	assert.Equal(t, domain.HealthDegraded, report.Overall)
	assert.Equal(t, domain.HealthUnhealthy, report.Components["llm"].Status)
	// other probes ran independently and stay healthy
	assert.Equal(t, domain.HealthHealthy, report.Components["servicenow"].Status)
	assert.Equal(t, domain.HealthHealthy, report.Components["vector_store"].Status)
	assert.Equal(t, domain.HealthDisabled, report.Components["teams"].Status)
}

func TestWorkflow_HealthCheck_VectorStoreFailure(t *testing.T) {
	retriever := new(mockContextProvider)
	summarizer := new(mockSummarizer)
	ticketing := new(mockTicketCreator)

	summarizer.On("Health", mock.Anything).Return(true)
	ticketing.On("Health", mock.Anything).Return(true)
	retriever.On("ChunkCount", mock.Anything).Return(0, errors.New("conn refused"))

	o := newTestOrchestrator(retriever, summarizer, ticketing, nil)
	report := o.HealthCheck(context.Background())

	assert.Equal(t, domain.HealthDegraded, report.Overall)
	assert.Equal(t, domain.HealthUnhealthy, report.Components["vector_store"].Status)
}
