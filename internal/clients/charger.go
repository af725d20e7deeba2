package clients

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ChargerStatusClient flips chargers between their terminal availability
// states on the backend status API.
type ChargerStatusClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewChargerStatusClient(baseURL string, logger *zap.Logger) *ChargerStatusClient {
	return &ChargerStatusClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

// SetActive returns a charger to the idle/available pool.
func (c *ChargerStatusClient) SetActive(ctx context.Context, chargerID string) error {
	return post(ctx, c.client, c.logger, "charger_status", c.baseURL+chargerID+"/set_active/")
}

// SetInactive takes a charger out of the available pool.
func (c *ChargerStatusClient) SetInactive(ctx context.Context, chargerID string) error {
	return post(ctx, c.client, c.logger, "charger_status", c.baseURL+chargerID+"/set_inactive/")
}
