package audit

import (
	"context"
	"database/sql"
	"fmt"

	"voice-dialer/pkg/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
  id            TEXT PRIMARY KEY,
  type          TEXT NOT NULL,
  actor_user_id TEXT NOT NULL DEFAULT '',
  actor_role    TEXT NOT NULL DEFAULT '',
  ip_address    TEXT NOT NULL DEFAULT '',
  session_id    TEXT NOT NULL DEFAULT '',
  source_id     TEXT NOT NULL DEFAULT '',
  number_count  INTEGER NOT NULL DEFAULT 0,
  message       TEXT NOT NULL DEFAULT '',
  created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_actor_idx ON audit_events (actor_user_id, created_at)`

// SQLRepo appends audit events to the call record database.
type SQLRepo struct {
	db     *sql.DB
	sqlite bool
}

func NewSQLRepo(db *sql.DB, sqlite bool) *SQLRepo { return &SQLRepo{db: db, sqlite: sqlite} }

func (r *SQLRepo) Migrate(ctx context.Context) error {
	if err := utils.ExecScript(ctx, r.db, schema); err != nil {
		return fmt.Errorf("audit: migrate: %w", err)
	}
	return nil
}

func (r *SQLRepo) Append(ctx context.Context, e Event) error {
	q := `INSERT INTO audit_events
  (id, type, actor_user_id, actor_role, ip_address, session_id, source_id, number_count, message, created_at)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, utils.Rebind(r.sqlite, q),
		e.ID, string(e.Type), e.ActorUserID, e.ActorRole, e.IPAddress,
		e.SessionID, e.SourceID, e.NumberCount, e.Message, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// BySession returns the events recorded for a session, oldest first.
func (r *SQLRepo) BySession(ctx context.Context, sessionID string) ([]Event, error) {
	q := `SELECT id, type, actor_user_id, actor_role, ip_address, session_id, source_id, number_count, message, created_at
  FROM audit_events WHERE session_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, utils.Rebind(r.sqlite, q), sessionID)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var typ string
		if err := rows.Scan(&e.ID, &typ, &e.ActorUserID, &e.ActorRole, &e.IPAddress,
			&e.SessionID, &e.SourceID, &e.NumberCount, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Type = EventType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}
