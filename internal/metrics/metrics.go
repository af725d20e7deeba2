// Package metrics exposes Prometheus metrics for the charge orchestrator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// No charger_id or record_id labels anywhere: charger fleets are unbounded and
// would explode series cardinality.

var (
	// OrdersTotal counts create-order requests by outcome.
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charge_orders_total",
		Help: "Total create-order requests, by status (ok/error) and failed step.",
	}, []string{"status", "step"})

	// ExpiryRunsTotal counts scheduler-driven expiry invocations by outcome.
	// Expiry failures are otherwise invisible (fire-and-forget scheduler
	// deliveries), so this counter is the primary alerting signal for them.
	ExpiryRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charge_expiry_runs_total",
		Help: "Total expiry handler invocations, by status (ok/invalid/error).",
	}, []string{"status"})

	// ScheduleRegisterTotal counts timeout rule registrations by outcome.
	ScheduleRegisterTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charge_schedule_register_total",
		Help: "Total timeout rule registrations, by outcome (created/replaced/error).",
	}, []string{"outcome"})

	// ScheduleCleanupFailuresTotal counts best-effort deregistrations that
	// failed and left a rule or permission behind.
	ScheduleCleanupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charge_schedule_cleanup_failures_total",
		Help: "Total failed best-effort schedule deregistrations (leaked rules/permissions).",
	})

	// AWSOperationsTotal counts AWS API calls by operation and status.
	AWSOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charge_aws_operations_total",
		Help: "Total AWS API operations, by operation and status (ok/error).",
	}, []string{"op", "status"})

	// AWSOperationLatency observes AWS API call latency per operation.
	AWSOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "charge_aws_operation_latency_seconds",
		Help:    "AWS API operation latency in seconds, by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// AWSRetriesTotal counts retried AWS calls by operation and throttle reason.
	AWSRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charge_aws_retries_total",
		Help: "Total AWS operation retries, by operation and error code.",
	}, []string{"op", "reason"})

	// AWSRetryExhaustedTotal counts AWS calls that failed after all attempts.
	AWSRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charge_aws_retry_exhausted_total",
		Help: "Total AWS operations that exhausted retry attempts, by operation.",
	}, []string{"op"})

	// CollaboratorRequestsTotal counts outbound HTTP calls to the payment and
	// charger status APIs by target and status.
	CollaboratorRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charge_collaborator_requests_total",
		Help: "Total outbound collaborator HTTP requests, by API and status (ok/error).",
	}, []string{"api", "status"})
)
