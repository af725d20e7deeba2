// Package notify publishes charger status-change events to the durable status
// queue for downstream consumers.
package notify

import (
	"context"
	"time"
)

// StatusChangeEvent is the immutable message published once per charger state
// transition. Field names and the timestamp shape are consumed downstream and
// must not change.
type StatusChangeEvent struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewStatusChangeEvent stamps an event with a UTC microsecond timestamp.
func NewStatusChangeEvent(chargerID, status string, now time.Time) StatusChangeEvent {
	return StatusChangeEvent{
		OrderID:   chargerID,
		Status:    status,
		Timestamp: now.UTC().Format("2006-01-02T15:04:05.000000") + "Z",
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev StatusChangeEvent) error
}
