package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voltflow/charge-orchestrator/internal/config"
	"github.com/voltflow/charge-orchestrator/internal/notify"
	"github.com/voltflow/charge-orchestrator/internal/schedule"
)

// PaymentAPI marks a charging record as settled.
type PaymentAPI interface {
	SetPaid(ctx context.Context, recordID string) error
}

// ChargerStatusAPI reverts a charger to its available state.
type ChargerStatusAPI interface {
	SetActive(ctx context.Context, chargerID string) error
}

type Server struct {
	cfg       config.Config
	payments  PaymentAPI
	chargers  ChargerStatusAPI
	publisher notify.Publisher
	registry  schedule.Registry
	logger    *zap.Logger
	now       func() time.Time
}

func NewRouter(cfg config.Config, payments PaymentAPI, chargers ChargerStatusAPI, publisher notify.Publisher, registry schedule.Registry, logger *zap.Logger) http.Handler {
	s := &Server{
		cfg:       cfg,
		payments:  payments,
		chargers:  chargers,
		publisher: publisher,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
	}
	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Post("/orders", s.handleCreateOrder)
		v1.With(s.schedulerSharedAuth).Post("/scheduler/expiry", s.handleScheduledExpiry)
	})

	return r
}

// schedulerSharedAuth gates the scheduler delivery endpoint behind a shared
// key when one is configured. Local fake-scheduler runs leave it open.
func (s *Server) schedulerSharedAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.SchedulerSharedKey != "" && r.Header.Get("X-Scheduler-Auth") != s.cfg.SchedulerSharedKey {
			writeAPIError(w, http.StatusUnauthorized, "unauthorized", "invalid scheduler auth")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	var payload apiError
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
