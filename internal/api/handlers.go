package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voltflow/charge-orchestrator/internal/metrics"
	"github.com/voltflow/charge-orchestrator/internal/notify"
	"github.com/voltflow/charge-orchestrator/internal/schedule"
)

type createOrderRequest struct {
	RecordID     string `json:"recordId"`
	ChargingTime int    `json:"chargingTime"`
	PaymentToken string `json:"paymentToken"`
	ChargerID    string `json:"chargerId"`
}

type scheduledExpiryEvent struct {
	ChargerID    string `json:"charger_id"`
	TargetStatus string `json:"target_status"`
}

// handleCreateOrder begins a charging session: settle payment, announce the
// charger as charging, and register the timeout rule that reverts it. The
// three steps run in order with no rollback; a failure partway leaves earlier
// steps committed (payment can end up settled with no schedule registered).
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	if req.RecordID == "" || req.ChargerID == "" {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "recordId and chargerId are required")
		return
	}
	if req.ChargingTime <= 0 {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "chargingTime must be a positive number of minutes")
		return
	}

	log := s.logger.With(
		zap.String("record_id", req.RecordID),
		zap.String("charger_id", req.ChargerID),
	)

	if err := s.payments.SetPaid(r.Context(), req.RecordID); err != nil {
		log.Error("mark payment settled failed", zap.Error(err))
		metrics.OrdersTotal.WithLabelValues("error", "payment").Inc()
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to update payment status")
		return
	}

	ev := notify.NewStatusChangeEvent(req.ChargerID, "charging", s.now())
	if err := s.publisher.Publish(r.Context(), ev); err != nil {
		// Payment is already settled at this point and stays that way.
		log.Error("publish status change failed", zap.Error(err))
		metrics.OrdersTotal.WithLabelValues("error", "notify").Inc()
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to publish status change")
		return
	}

	deadline := schedule.Deadline(s.now(), req.ChargingTime)
	outcome, err := s.registry.Register(r.Context(), schedule.RegisterRequest{
		ChargerID: req.ChargerID,
		FireAt:    deadline,
		Payload: schedule.TargetPayload{
			ChargerID:    req.ChargerID,
			TargetStatus: "idle",
		},
	})
	if err != nil {
		log.Error("register timeout rule failed", zap.Error(err))
		metrics.OrdersTotal.WithLabelValues("error", "schedule").Inc()
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to schedule session timeout")
		return
	}
	if outcome == schedule.OutcomeReplaced {
		// A new order for a charger with a live rule means the prior session
		// ended out of band; its deadline is superseded.
		log.Info("replaced existing timeout rule")
	}

	metrics.OrdersTotal.WithLabelValues("ok", "none").Inc()
	log.Info("created order",
		zap.Int("timeout_minutes", req.ChargingTime),
		zap.Time("fire_at", deadline))
	writeJSON(w, http.StatusOK, map[string]any{
		"message":                   "created order",
		"record_id":                 req.RecordID,
		"scheduled_timeout_minutes": req.ChargingTime,
	})
}

// handleScheduledExpiry is the scheduler's delivery path for a fired timeout
// rule. Delivery is at-least-once: the whole handler must be safe to run
// twice for the same firing.
func (s *Server) handleScheduledExpiry(w http.ResponseWriter, r *http.Request) {
	invocationID := uuid.NewString()
	log := s.logger.With(zap.String("invocation_id", invocationID))

	var ev scheduledExpiryEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		log.Error("invalid expiry event payload", zap.Error(err))
		metrics.ExpiryRunsTotal.WithLabelValues("invalid").Inc()
		writeExpiryError(w, "invalid JSON payload", "unknown")
		return
	}
	if ev.ChargerID == "" {
		log.Error("expiry event missing charger_id")
		metrics.ExpiryRunsTotal.WithLabelValues("invalid").Inc()
		writeExpiryError(w, "lost charger_id", "unknown")
		return
	}
	log = log.With(zap.String("charger_id", ev.ChargerID))

	if err := s.chargers.SetActive(r.Context(), ev.ChargerID); err != nil {
		// Cleanup is skipped on this path: the rule already fired, a one-shot
		// cron does not refire, so the rule and its grant stay behind until
		// removed out of band.
		log.Error("revert charger status failed", zap.Error(err))
		metrics.ExpiryRunsTotal.WithLabelValues("error").Inc()
		writeExpiryError(w, err.Error(), ev.ChargerID)
		return
	}

	if err := s.registry.Deregister(r.Context(), ev.ChargerID); err != nil {
		log.Warn("timeout rule cleanup failed", zap.Error(err))
		metrics.ScheduleCleanupFailuresTotal.Inc()
	}

	metrics.ExpiryRunsTotal.WithLabelValues("ok").Inc()
	log.Info("charger reverted", zap.String("target_status", ev.TargetStatus))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "update " + ev.ChargerID + "status to " + ev.TargetStatus,
		"success": true,
	})
}

func writeExpiryError(w http.ResponseWriter, msg, chargerID string) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error":      msg,
		"charger_id": chargerID,
	})
}
