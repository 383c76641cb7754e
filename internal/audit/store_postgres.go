package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          TEXT PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	action      TEXT NOT NULL,
	actor       TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL DEFAULT '',
	detail      JSONB,
	client      JSONB
);
CREATE INDEX IF NOT EXISTS audit_events_occurred_at_idx ON audit_events (occurred_at DESC);
`

// PostgresStore persists events in PostgreSQL. The connection is opened by
// the caller (pgx through database/sql); the store owns only the schema.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore ensures the schema exists.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, auditSchema); err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("encode audit detail: %w", err)
	}
	client, err := json.Marshal(event.Client)
	if err != nil {
		return fmt.Errorf("encode audit client: %w", err)
	}
	query := `
		INSERT INTO audit_events (id, occurred_at, action, actor, subject, outcome, detail, client)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		event.ID, event.OccurredAt, string(event.Action),
		event.Actor, event.Subject, event.Outcome, detail, client)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// List returns the newest limit events, newest first. limit <= 0 defaults
// to 100.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, occurred_at, action, actor, subject, outcome, detail, client
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event          Event
			action         string
			detail, client []byte
		)
		if err := rows.Scan(&event.ID, &event.OccurredAt, &action,
			&event.Actor, &event.Subject, &event.Outcome, &detail, &client); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = Action(action)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, fmt.Errorf("decode audit detail: %w", err)
			}
		}
		if len(client) > 0 {
			if err := json.Unmarshal(client, &event.Client); err != nil {
				return nil, fmt.Errorf("decode audit client: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
