// Package schedule manages durable one-shot charger timeout rules. A timeout
// is not an in-process timer: it is a named rule on an external scheduler that
// survives restarts and fires exactly one invocation at its deadline.
package schedule

import (
	"context"
	"time"
)

// Outcome reports whether Register created a fresh rule or replaced an
// existing one for the same charger.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeReplaced Outcome = "replaced"
)

// TargetPayload is the JSON input delivered to the expiry handler when the
// rule fires.
type TargetPayload struct {
	ChargerID    string `json:"charger_id"`
	TargetStatus string `json:"target_status"`
}

// RegisterRequest describes one timeout entry. The charger id is the
// uniqueness key: registering twice for the same charger replaces the prior
// rule (last write wins).
type RegisterRequest struct {
	ChargerID string
	FireAt    time.Time
	Payload   TargetPayload
}

type Registry interface {
	Register(ctx context.Context, req RegisterRequest) (Outcome, error)
	// Deregister removes the target, rule, and invoke permission for a
	// charger. An already-removed entry is success: scheduler delivery is
	// at-least-once, so the same firing may clean up twice.
	Deregister(ctx context.Context, chargerID string) error
}
