package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ihabbishara/RAGIncidentApp/internal/api"
	"github.com/ihabbishara/RAGIncidentApp/internal/jobs"
	"github.com/ihabbishara/RAGIncidentApp/internal/mail"
	"github.com/ihabbishara/RAGIncidentApp/internal/metrics"
)

const defaultWaitTimeout = 120 * time.Second

// IncidentQueue accepts emails for asynchronous workflow processing.
type IncidentQueue interface {
	Submit(email *mail.InboundEmail) (*jobs.TaskHandle, error)
}

// EmailArchiver stores raw inbound emails. Nil disables archiving.
type EmailArchiver interface {
	Store(ctx context.Context, messageID string, raw []byte) (string, error)
}

type IncidentHandler struct {
	queue     IncidentQueue
	parser    *mail.Parser
	validator *mail.TriggerValidator
	archive   EmailArchiver
	metrics   *metrics.Metrics
}

func NewIncidentHandler(queue IncidentQueue, parser *mail.Parser, validator *mail.TriggerValidator, archive EmailArchiver, m *metrics.Metrics) *IncidentHandler {
	return &IncidentHandler{
		queue:     queue,
		parser:    parser,
		validator: validator,
		archive:   archive,
		metrics:   m,
	}
}

// SubmitIncidentRequest is the pre-parsed email form of POST /incidents.
type SubmitIncidentRequest struct {
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	MessageID string `json:"message_id"`
}

type SubmitIncidentResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// Submit accepts an inbound email as JSON or raw RFC 5322 (message/rfc822)
// and enqueues it. With ?wait=true the response carries the finished
// workflow result instead of the task ID.
func (h *IncidentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	email, raw, err := h.readEmail(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if reason := h.validator.RejectionReason(email); reason != "" {
		h.metrics.ObserveEmailRejected()
		api.Error(w, http.StatusUnprocessableEntity, reason)
		return
	}

	if h.archive != nil && len(raw) > 0 {
		if _, err := h.archive.Store(r.Context(), email.MessageID, raw); err != nil {
			log.Printf("incident: email archive failed: %v", err)
		}
	}

	handle, err := h.queue.Submit(email)
	if err != nil {
		api.Error(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		api.Success(w, http.StatusAccepted, SubmitIncidentResponse{
			TaskID: handle.ID(),
			Status: "queued",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultWaitTimeout)
	defer cancel()

	result, err := handle.Wait(ctx)
	if err != nil {
		api.Error(w, http.StatusGatewayTimeout, "timed out waiting for workflow result")
		return
	}

	api.Success(w, http.StatusOK, result)
}

func (h *IncidentHandler) readEmail(r *http.Request) (*mail.InboundEmail, []byte, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "message/rfc822") || strings.HasPrefix(contentType, "text/plain") {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, err
		}
		email, err := h.parser.Parse(raw)
		if err != nil {
			return nil, nil, err
		}
		return email, raw, nil
	}

	var req SubmitIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, nil, err
	}

	return &mail.InboundEmail{
		From:      mail.ExtractAddress(req.From),
		Subject:   req.Subject,
		Body:      req.Body,
		MessageID: req.MessageID,
	}, nil, nil
}
