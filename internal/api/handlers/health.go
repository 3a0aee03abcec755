package handlers

import (
	"context"
	"net/http"

	"github.com/ihabbishara/RAGIncidentApp/internal/api"
	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
)

// HealthChecker probes the workflow's external collaborators.
type HealthChecker interface {
	HealthCheck(ctx context.Context) domain.HealthReport
}

type HealthHandler struct {
	checker HealthChecker
}

func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Get reports component health. A degraded pipeline still answers 200 so
// load balancers keep routing; consumers inspect the report body.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	report := h.checker.HealthCheck(r.Context())
	api.JSON(w, http.StatusOK, report)
}
