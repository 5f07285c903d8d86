// Package audit defines the audit event model and the sink contract.
// Events are emitted from domain logic and fanned out to sinks; this
// subsystem never reads them back on a request path.
package audit

import (
	"context"
	"time"
)

// Action identifies the administrative operation being audited.
type Action string

const (
	ActionAdd    Action = "add"
	ActionDelete Action = "delete"
)

// Status records the outcome of the audited operation.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailure Status = "Failure"
)

// Event is emitted from domain logic to capture membership changes. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID          string
	Timestamp   time.Time
	ActorID     string
	Action      Action
	TargetGroup string
	Params      map[string]string
	Status      Status
	// RequestID is the correlation ID from the request context, when present.
	RequestID string
}

// Store is an audit sink. Failures in a sink are the sink's concern; emitters
// treat delivery as fire-and-forget unless they opt into synchronous mode.
type Store interface {
	Append(ctx context.Context, event Event) error
}
