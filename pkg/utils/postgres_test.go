package utils

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT NOT NULL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestWithTx_CommitOnSuccess(t *testing.T) {
	db := openTestDB(t)
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES ('a', '1')`)
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := countRows(t, db); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES ('a', '1')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n := countRows(t, db); n != 0 {
		t.Fatalf("expected rollback, got %d rows", n)
	}
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := openTestDB(t)
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES ('a', '1')`)
			panic("x")
		})
	}()
	if n := countRows(t, db); n != 0 {
		t.Fatalf("expected rollback, got %d rows", n)
	}
}

func TestExecScript_SkipsBlankStatements(t *testing.T) {
	db := openTestDB(t)
	script := `
CREATE TABLE a (id INTEGER);
;
CREATE INDEX a_idx ON a (id);
`
	if err := ExecScript(context.Background(), db, script); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO a (id) VALUES (1)`); err != nil {
		t.Fatalf("table not created: %v", err)
	}
	if err := ExecScript(context.Background(), db, `CREATE TABLE a (id INTEGER)`); err == nil {
		t.Fatalf("expected error for duplicate table")
	}
}

func TestRebind(t *testing.T) {
	q := `SELECT v FROM kv WHERE k = $1 AND v = $2`
	if got := Rebind(false, q); got != q {
		t.Fatalf("postgres query must pass through, got %q", got)
	}
	if got := Rebind(true, q); got != `SELECT v FROM kv WHERE k = ?1 AND v = ?2` {
		t.Fatalf("unexpected sqlite query %q", got)
	}
}

func TestPoolConfigDefaults(t *testing.T) {
	c := PoolConfig{MaxOpenConns: 4, MaxIdleConns: 10}.withDefaults()
	if c.MaxIdleConns != 4 {
		t.Fatalf("idle conns must not exceed open conns, got %d", c.MaxIdleConns)
	}
	if c.PingTimeout <= 0 || c.ConnMaxLifetime <= 0 {
		t.Fatalf("expected defaults, got %+v", c)
	}
}

func TestHealthCheck(t *testing.T) {
	if err := HealthCheck(context.Background(), nil, time.Second); err == nil {
		t.Fatalf("expected error for nil db")
	}
	if err := HealthCheck(context.Background(), openTestDB(t), time.Second); err != nil {
		t.Fatalf("health: %v", err)
	}
}
