//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ihabbishara/RAGIncidentApp/internal/api/handlers"
	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
	"github.com/ihabbishara/RAGIncidentApp/internal/jobs"
	"github.com/ihabbishara/RAGIncidentApp/internal/mail"
	"github.com/ihabbishara/RAGIncidentApp/internal/metrics"
	"github.com/ihabbishara/RAGIncidentApp/internal/notify/teams"
	"github.com/ihabbishara/RAGIncidentApp/internal/server"
	"github.com/ihabbishara/RAGIncidentApp/internal/service"
	"github.com/ihabbishara/RAGIncidentApp/internal/servicenow"
	"github.com/prometheus/client_golang/prometheus"
)

// fakeEmbedder returns a fixed-direction vector for every text.
type fakeEmbedder struct{}

func (fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fakeEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// memoryIndex is an in-process vector index seeded with chunks.
type memoryIndex struct {
	mu     sync.Mutex
	chunks []domain.Chunk
}

func (m *memoryIndex) ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []domain.Chunk, embeddings [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	m.chunks = append(kept, chunks...)
	return nil
}

func (m *memoryIndex) Query(ctx context.Context, embedding []float32, topK int) ([]domain.RetrievedHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hits := make([]domain.RetrievedHit, 0, topK)
	for _, c := range m.chunks {
		if len(hits) == topK {
			break
		}
		hits = append(hits, domain.RetrievedHit{
			ChunkID:    c.ID,
			Text:       c.Text,
			Title:      c.Title,
			URL:        c.URL,
			ChunkIndex: c.Index,
			Distance:   0.2,
		})
	}
	return hits, nil
}

func (m *memoryIndex) CountChunks(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks), nil
}

// scriptedSummarizer returns a fixed model response.
type scriptedSummarizer struct {
	response string
	healthy  bool
}

func (s *scriptedSummarizer) Summarize(ctx context.Context, emailContent, kbContext string) (string, error) {
	return s.response, nil
}

func (s *scriptedSummarizer) Health(ctx context.Context) bool { return s.healthy }

// serviceNowStub records created incidents behind a real HTTP surface.
type serviceNowStub struct {
	mu      sync.Mutex
	created []map[string]any
	server  *httptest.Server
}

func newServiceNowStub() *serviceNowStub {
	stub := &serviceNowStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var payload map[string]any
			json.NewDecoder(r.Body).Decode(&payload)
			stub.mu.Lock()
			stub.created = append(stub.created, payload)
			n := len(stub.created)
			stub.mu.Unlock()

			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{
				"sys_id": "sys-1",
				"number": "INC000" + string(rune('0'+n)),
			}})
		default:
			json.NewEncoder(w).Encode(map[string]any{"result": []any{}})
		}
	}))
	return stub
}

func (s *serviceNowStub) Created() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.created...)
}

// teamsStub records webhook posts.
type teamsStub struct {
	mu     sync.Mutex
	posts  []string
	server *httptest.Server
}

func newTeamsStub() *teamsStub {
	stub := &teamsStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf [1 << 16]byte
		n, _ := r.Body.Read(buf[:])
		stub.mu.Lock()
		stub.posts = append(stub.posts, string(buf[:n]))
		stub.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	return stub
}

func (s *teamsStub) Posts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.posts...)
}

// pipelineEnv bundles the assembled system under test.
type pipelineEnv struct {
	Server     *httptest.Server
	ServiceNow *serviceNowStub
	Teams      *teamsStub
	Index      *memoryIndex
	Registry   *prometheus.Registry
}

func setupPipeline(t *testing.T, modelResponse string, seedChunks []domain.Chunk) *pipelineEnv {
	t.Helper()

	snStub := newServiceNowStub()
	t.Cleanup(snStub.server.Close)
	teamsStubSrv := newTeamsStub()
	t.Cleanup(teamsStubSrv.server.Close)

	index := &memoryIndex{chunks: seedChunks}
	retriever := service.NewRetriever(fakeEmbedder{}, index)

	summarizer := &scriptedSummarizer{response: modelResponse, healthy: true}

	ticketing := servicenow.NewClient(servicenow.Config{
		BaseURL:  snStub.server.URL,
		Username: "svc",
		Password: "secret",
	})

	notifier := teams.NewClient(teams.Config{
		WebhookURL: teamsStubSrv.server.URL,
		Enabled:    true,
	})

	builder := service.NewTicketBuilder(service.DefaultTicketBuilderConfig())

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	orchestrator := service.NewWorkflowOrchestrator(retriever, summarizer, builder, ticketing, notifier, m)

	queue := jobs.NewQueue(context.Background(), orchestrator, jobs.DefaultQueueConfig(), m, func() string { return "e2e-task" })
	t.Cleanup(queue.Stop)

	router := server.NewRouter(server.RouterConfig{
		IncidentHandler: handlers.NewIncidentHandler(queue, mail.NewParser(), mail.NewTriggerValidator(nil), nil, m),
		HealthHandler:   handlers.NewHealthHandler(orchestrator),
		MetricsGatherer: reg,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &pipelineEnv{
		Server:     srv,
		ServiceNow: snStub,
		Teams:      teamsStubSrv,
		Index:      index,
		Registry:   reg,
	}
}
