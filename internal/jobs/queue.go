package jobs

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
	"github.com/ihabbishara/RAGIncidentApp/internal/mail"
	"github.com/ihabbishara/RAGIncidentApp/internal/metrics"
)

// ErrQueueClosed is returned by Submit after Stop has been called.
var ErrQueueClosed = errors.New("incident queue is closed")

// ErrQueueFull is returned by Submit when the buffer is at capacity.
var ErrQueueFull = errors.New("incident queue is full")

// IncidentProcessor runs the workflow for one inbound email.
type IncidentProcessor interface {
	ProcessIncident(ctx context.Context, email *mail.InboundEmail) domain.WorkflowResult
}

// TaskHandle tracks a submitted incident until its workflow finishes.
type TaskHandle struct {
	id   string
	done chan struct{}

	mu     sync.Mutex
	result domain.WorkflowResult
}

// ID returns the task identifier assigned at submission.
func (h *TaskHandle) ID() string {
	return h.id
}

// Done returns a channel closed when the workflow has finished.
func (h *TaskHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the workflow finishes or the context is cancelled.
func (h *TaskHandle) Wait(ctx context.Context) (domain.WorkflowResult, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.result, nil
	case <-ctx.Done():
		return domain.WorkflowResult{}, ctx.Err()
	}
}

func (h *TaskHandle) complete(result domain.WorkflowResult) {
	h.mu.Lock()
	h.result = result
	h.mu.Unlock()
	close(h.done)
}

type task struct {
	handle *TaskHandle
	email  *mail.InboundEmail
}

// Queue processes submitted incident emails on a fixed pool of workers.
type Queue struct {
	processor IncidentProcessor
	metrics   *metrics.Metrics
	tasks     chan task
	newID     func() string

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// QueueConfig sizes the worker pool and its buffer.
type QueueConfig struct {
	Workers    int
	BufferSize int
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{Workers: 4, BufferSize: 64}
}

// NewQueue creates a queue and starts its workers. The base context bounds
// the lifetime of all workflow runs. m may be nil.
func NewQueue(ctx context.Context, processor IncidentProcessor, cfg QueueConfig, m *metrics.Metrics, newID func() string) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultQueueConfig().Workers
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultQueueConfig().BufferSize
	}

	q := &Queue{
		processor: processor,
		metrics:   m,
		tasks:     make(chan task, cfg.BufferSize),
		newID:     newID,
	}

	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.worker(ctx)
	}
	log.Printf("Incident queue started with %d workers (buffer %d)", cfg.Workers, cfg.BufferSize)

	return q
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for t := range q.tasks {
		result := q.processor.ProcessIncident(ctx, t.email)
		t.handle.complete(result)
		q.metrics.TaskDone()
	}
}

// Submit enqueues an email for processing and returns a handle to observe
// completion. It never blocks: a full buffer returns ErrQueueFull.
func (q *Queue) Submit(email *mail.InboundEmail) (*TaskHandle, error) {
	if email == nil {
		return nil, errors.New("email cannot be nil")
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}

	handle := &TaskHandle{
		id:   q.newID(),
		done: make(chan struct{}),
	}

	select {
	case q.tasks <- task{handle: handle, email: email}:
		q.metrics.TaskEnqueued()
		return handle, nil
	default:
		return nil, ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
	log.Println("Incident queue shutdown complete")
}
