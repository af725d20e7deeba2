// Package clients wraps the HTTP collaborators owned by the backend: the
// payment status API and the charger status API.
package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/voltflow/charge-orchestrator/internal/metrics"
)

// PaymentClient marks charging records as settled.
type PaymentClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewPaymentClient(baseURL string, logger *zap.Logger) *PaymentClient {
	return &PaymentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

// SetPaid marks the record as paid. Any non-2xx response is an error.
func (c *PaymentClient) SetPaid(ctx context.Context, recordID string) error {
	return post(ctx, c.client, c.logger, "payment", c.baseURL+recordID+"/set_paid/")
}

func post(ctx context.Context, hc *http.Client, logger *zap.Logger, api, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		metrics.CollaboratorRequestsTotal.WithLabelValues(api, "error").Inc()
		logger.Warn("collaborator request failed",
			zap.String("api", api),
			zap.String("url", url),
			zap.Error(err))
		return fmt.Errorf("%s api: %w", api, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.CollaboratorRequestsTotal.WithLabelValues(api, "error").Inc()
		logger.Warn("collaborator returned non-success",
			zap.String("api", api),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%s api: unexpected status %d", api, resp.StatusCode)
	}
	metrics.CollaboratorRequestsTotal.WithLabelValues(api, "ok").Inc()
	return nil
}
