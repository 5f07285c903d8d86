// Package postgres implements the audit sink as a transactional outbox.
// Events are written to the outbox table and shipped to Kafka by an external
// relay; the table is the durability boundary for this process.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"certgate/pkg/platform/audit"
	txcontext "certgate/pkg/platform/tx"
)

// Schema creates the outbox table. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_outbox (
	id         TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema applies the outbox schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure audit outbox schema: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure shipped downstream. Field names match
// audit.Event for symmetric deserialization by the consumer.
type outboxPayload struct {
	ID          string            `json:"ID"`
	Timestamp   string            `json:"Timestamp"`
	ActorID     string            `json:"ActorID,omitempty"`
	Action      string            `json:"Action"`
	TargetGroup string            `json:"TargetGroup"`
	Params      map[string]string `json:"Params,omitempty"`
	Status      string            `json:"Status"`
	RequestID   string            `json:"RequestID,omitempty"`
}

// Append writes an audit event to the outbox table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload := outboxPayload{
		ID:          event.ID,
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorID:     event.ActorID,
		Action:      string(event.Action),
		TargetGroup: event.TargetGroup,
		Params:      event.Params,
		Status:      string(event.Status),
		RequestID:   event.RequestID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	if _, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_outbox (id, payload) VALUES ($1, $2)
	`, event.ID, body); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
