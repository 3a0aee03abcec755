package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ihabbishara/RAGIncidentApp/internal/api/handlers"
	"github.com/ihabbishara/RAGIncidentApp/internal/api/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	IncidentHandler *handlers.IncidentHandler
	HealthHandler   *handlers.HealthHandler
	MetricsGatherer prometheus.Gatherer
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Get)
	r.Post("/incidents", cfg.IncidentHandler.Submit)

	if cfg.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	return r
}
