package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"voice-dialer/pkg/utils"

	"github.com/google/uuid"
)

// Dialect selects SQL flavour. Queries are written with $n placeholders;
// SQLite receives them rewritten to its numbered ?n form.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS call_attempts (
  seq               BIGSERIAL PRIMARY KEY,
  id                TEXT NOT NULL UNIQUE,
  session_id        TEXT NOT NULL,
  owner_id          TEXT NOT NULL DEFAULT '',
  source_id         TEXT NOT NULL DEFAULT '',
  phone             TEXT NOT NULL,
  raw_phone         TEXT NOT NULL DEFAULT '',
  telephony_call_id TEXT,
  agent_call_id     TEXT,
  agent_id          TEXT NOT NULL DEFAULT '',
  status            TEXT NOT NULL,
  transcript        TEXT NOT NULL DEFAULT '',
  summary           TEXT NOT NULL DEFAULT '',
  error             TEXT NOT NULL DEFAULT '',
  duration_seconds  DOUBLE PRECISION NOT NULL DEFAULT 0,
  cost              DOUBLE PRECISION NOT NULL DEFAULT 0,
  created_at        TIMESTAMPTZ NOT NULL,
  updated_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS call_attempts_session_idx ON call_attempts (session_id, seq);
CREATE INDEX IF NOT EXISTS call_attempts_owner_idx ON call_attempts (owner_id, seq);
CREATE UNIQUE INDEX IF NOT EXISTS call_attempts_telephony_idx ON call_attempts (telephony_call_id);
CREATE UNIQUE INDEX IF NOT EXISTS call_attempts_agent_idx ON call_attempts (agent_call_id);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS call_attempts (
  seq               INTEGER PRIMARY KEY AUTOINCREMENT,
  id                TEXT NOT NULL UNIQUE,
  session_id        TEXT NOT NULL,
  owner_id          TEXT NOT NULL DEFAULT '',
  source_id         TEXT NOT NULL DEFAULT '',
  phone             TEXT NOT NULL,
  raw_phone         TEXT NOT NULL DEFAULT '',
  telephony_call_id TEXT,
  agent_call_id     TEXT,
  agent_id          TEXT NOT NULL DEFAULT '',
  status            TEXT NOT NULL,
  transcript        TEXT NOT NULL DEFAULT '',
  summary           TEXT NOT NULL DEFAULT '',
  error             TEXT NOT NULL DEFAULT '',
  duration_seconds  REAL NOT NULL DEFAULT 0,
  cost              REAL NOT NULL DEFAULT 0,
  created_at        TIMESTAMP NOT NULL,
  updated_at        TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS call_attempts_session_idx ON call_attempts (session_id, seq);
CREATE INDEX IF NOT EXISTS call_attempts_owner_idx ON call_attempts (owner_id, seq);
CREATE UNIQUE INDEX IF NOT EXISTS call_attempts_telephony_idx ON call_attempts (telephony_call_id);
CREATE UNIQUE INDEX IF NOT EXISTS call_attempts_agent_idx ON call_attempts (agent_call_id);
`

const selectColumns = `id, session_id, owner_id, source_id, phone, raw_phone, telephony_call_id, agent_call_id,
       agent_id, status, transcript, summary, error, duration_seconds, cost, created_at, updated_at`

// SQLStore is the database/sql Store used in every deployed environment.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	clock   func() time.Time
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, clock: time.Now}
}

// Migrate creates the call_attempts table and indexes if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if s.dialect == DialectSQLite {
		schema = sqliteSchema
	}
	if err := utils.ExecScript(ctx, s.db, schema); err != nil {
		return fmt.Errorf("calls: migrate: %w", err)
	}
	return nil
}

func (s *SQLStore) Create(ctx context.Context, a *CallAttempt) error {
	if err := validateNew(a); err != nil {
		return err
	}
	return insertAttempt(ctx, s.db, s.dialect, a, s.clock().UTC())
}

func (s *SQLStore) Update(ctx context.Context, id string, p Patch) error {
	if id == "" {
		return ErrInvalidArgument
	}
	if p.Empty() {
		return nil
	}
	n, err := updateAttempt(ctx, s.db, s.dialect, id, p, s.clock().UTC())
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (CallAttempt, error) {
	q := `SELECT ` + selectColumns + ` FROM call_attempts WHERE id = $1`
	a, err := scanAttempt(s.db.QueryRowContext(ctx, s.rebind(q), id))
	if errors.Is(err, sql.ErrNoRows) {
		return CallAttempt{}, ErrNotFound
	}
	return a, err
}

func (s *SQLStore) UpsertByProviderKey(ctx context.Context, key ProviderKey, p Patch, seed CallAttempt) (CallAttempt, error) {
	if key.Empty() {
		return CallAttempt{}, ErrInvalidArgument
	}
	now := s.clock().UTC()

	var out CallAttempt
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		id, found, err := findIDByKey(ctx, tx, s.dialect, key)
		if err != nil {
			return err
		}
		if !found {
			p.apply(&seed)
			if err := validateNew(&seed); err != nil {
				return err
			}
			if err := insertAttempt(ctx, tx, s.dialect, &seed, now); err != nil {
				return err
			}
			out = seed
			return nil
		}

		if !p.Empty() {
			if _, err := updateAttempt(ctx, tx, s.dialect, id, p, now); err != nil {
				return err
			}
		}
		q := `SELECT ` + selectColumns + ` FROM call_attempts WHERE id = $1`
		out, err = scanAttempt(tx.QueryRowContext(ctx, rebind(s.dialect, q), id))
		return err
	})
	return out, err
}

func (s *SQLStore) FindBySession(ctx context.Context, sessionID string) ([]CallAttempt, error) {
	if sessionID == "" {
		return nil, ErrInvalidArgument
	}
	q := `SELECT ` + selectColumns + ` FROM call_attempts WHERE session_id = $1 ORDER BY seq ASC`
	return s.query(ctx, q, sessionID)
}

func (s *SQLStore) FindByOwner(ctx context.Context, ownerID string, limit int) ([]CallAttempt, error) {
	if ownerID == "" {
		return nil, ErrInvalidArgument
	}
	q := `SELECT ` + selectColumns + ` FROM call_attempts WHERE owner_id = $1 ORDER BY seq DESC`
	args := []any{ownerID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.query(ctx, q, args...)
}

func (s *SQLStore) query(ctx context.Context, q string, args ...any) ([]CallAttempt, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallAttempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) rebind(q string) string { return rebind(s.dialect, q) }

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertAttempt(ctx context.Context, db execer, d Dialect, a *CallAttempt, now time.Time) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	const q = `
INSERT INTO call_attempts (
  id, session_id, owner_id, source_id, phone, raw_phone, telephony_call_id, agent_call_id,
  agent_id, status, transcript, summary, error, duration_seconds, cost, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)
`
	_, err := db.ExecContext(ctx, rebind(d, q),
		a.ID,
		a.SessionID,
		a.OwnerID,
		a.SourceID,
		a.Phone,
		a.RawPhone,
		nullIfEmpty(a.TelephonyCallID),
		nullIfEmpty(a.AgentCallID),
		a.AgentID,
		string(a.Status),
		a.Transcript,
		a.Summary,
		a.Error,
		a.DurationSeconds,
		a.Cost,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func updateAttempt(ctx context.Context, db execer, d Dialect, id string, p Patch, now time.Time) (int64, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.TelephonyCallID != nil {
		add("telephony_call_id", nullIfEmpty(*p.TelephonyCallID))
	}
	if p.AgentCallID != nil {
		add("agent_call_id", nullIfEmpty(*p.AgentCallID))
	}
	if p.AgentID != nil {
		add("agent_id", *p.AgentID)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.Transcript != nil {
		add("transcript", *p.Transcript)
	}
	if p.Summary != nil {
		add("summary", *p.Summary)
	}
	if p.Error != nil {
		add("error", *p.Error)
	}
	if p.DurationSeconds != nil {
		add("duration_seconds", *p.DurationSeconds)
	}
	if p.Cost != nil {
		add("cost", *p.Cost)
	}
	add("updated_at", now)
	args = append(args, id)

	q := fmt.Sprintf("UPDATE call_attempts SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	res, err := db.ExecContext(ctx, rebind(d, q), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func findIDByKey(ctx context.Context, db execer, d Dialect, key ProviderKey) (string, bool, error) {
	var conds []string
	var args []any
	or := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	or("id", key.ID)
	or("telephony_call_id", key.TelephonyCallID)
	or("agent_call_id", key.AgentCallID)

	q := `SELECT id FROM call_attempts WHERE ` + strings.Join(conds, " OR ") + ` ORDER BY seq ASC LIMIT 1`
	var id string
	if err := db.QueryRowContext(ctx, rebind(d, q), args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(r rowScanner) (CallAttempt, error) {
	var a CallAttempt
	var telephonyID, agentCallID sql.NullString
	var status string
	if err := r.Scan(
		&a.ID,
		&a.SessionID,
		&a.OwnerID,
		&a.SourceID,
		&a.Phone,
		&a.RawPhone,
		&telephonyID,
		&agentCallID,
		&a.AgentID,
		&status,
		&a.Transcript,
		&a.Summary,
		&a.Error,
		&a.DurationSeconds,
		&a.Cost,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return CallAttempt{}, err
	}
	a.TelephonyCallID = telephonyID.String
	a.AgentCallID = agentCallID.String
	a.Status = Status(status)
	return a, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func rebind(d Dialect, q string) string { return utils.Rebind(d == DialectSQLite, q) }
