// Package awsx holds shared AWS call plumbing: transient-error retry with
// jittered backoff and smithy error classification.
package awsx

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"strings"
	"time"

	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/voltflow/charge-orchestrator/internal/metrics"
)

// Do runs an AWS API call with retry on transient errors and records
// per-operation metrics. Non-transient errors are returned on first failure.
func Do(ctx context.Context, op string, logger *zap.Logger, fn func(context.Context) error) error {
	start := time.Now()
	err := retry(ctx, op, logger, fn)
	metrics.AWSOperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.AWSOperationsTotal.WithLabelValues(op, status).Inc()
	return err
}

func retry(ctx context.Context, op string, logger *zap.Logger, fn func(context.Context) error) error {
	const (
		maxAttempts = 4
		baseDelay   = 250 * time.Millisecond
		maxDelay    = 2 * time.Second
	)
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) {
			return err
		}
		if attempt == maxAttempts {
			metrics.AWSRetryExhaustedTotal.WithLabelValues(op).Inc()
			return err
		}
		metrics.AWSRetriesTotal.WithLabelValues(op, ErrorCode(err)).Inc()
		delay := baseDelay * time.Duration(1<<(attempt-1))
		if delay > maxDelay {
			delay = maxDelay
		}
		delay = withJitter(delay)
		logger.Warn("aws retry",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func withJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	floor := delay / 10
	span := delay - floor
	if span <= 0 {
		return floor
	}
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return floor + (span / 2)
	}
	n := binary.LittleEndian.Uint64(raw[:]) % uint64(span)
	// Jittered delay in [10% of base, 100% of base).
	return floor + time.Duration(n)
}

// IsTransient reports whether err is a throttle or availability error worth
// retrying.
func IsTransient(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "RequestLimitExceeded",
		"Throttling",
		"ThrottlingException",
		"TooManyRequestsException",
		"RequestThrottled",
		"ServiceUnavailable",
		"InternalError",
		"InternalException",
		"RequestTimeout":
		return true
	default:
		return false
	}
}

// IsNotFound reports whether err means the target resource no longer exists.
func IsNotFound(err error) bool {
	return ErrorCode(err) == "ResourceNotFoundException"
}

// IsConflict reports whether err means the resource already exists.
func IsConflict(err error) bool {
	return ErrorCode(err) == "ResourceConflictException"
}

// ErrorCode extracts the AWS API error code, or a placeholder for non-API
// errors.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return "non_api_error"
	}
	code := strings.TrimSpace(apiErr.ErrorCode())
	if code == "" {
		return "unknown"
	}
	return code
}
