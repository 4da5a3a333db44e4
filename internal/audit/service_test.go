package audit

import (
	"context"
	"testing"
	"time"

	"voice-dialer/pkg/utils"
)

func TestService_AppendRequiresType(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Event{SessionID: "s"}); err == nil {
		t.Fatalf("expected error without type")
	}
	if err := svc.Append(context.Background(), Event{Type: EventTypeSessionDispatched}); err == nil {
		t.Fatalf("expected error for dispatch without session id")
	}
}

func TestService_SessionDispatched(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	actor := Actor{UserID: "u", Role: "operator", IP: "1.2.3.4"}
	if err := svc.SessionDispatched(context.Background(), actor, "sess-1", "sheet-9", 3); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.SessionRejected(context.Background(), actor, "", 2, "capacity"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].IPAddress != "1.2.3.4" || evs[0].SessionID != "sess-1" || evs[0].NumberCount != 3 {
		t.Fatalf("unexpected event: %+v", evs[0])
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned")
	}
	if evs[1].Type != EventTypeSessionRejected || evs[1].Message != "capacity" {
		t.Fatalf("unexpected rejection: %+v", evs[1])
	}
}

func TestSQLRepo_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	db, err := utils.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	repo := NewSQLRepo(db, true)
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	if err := svc.SessionDispatched(ctx, Actor{UserID: "u"}, "sess-1", "", 2); err != nil {
		t.Fatalf("append: %v", err)
	}
	evs, err := repo.BySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(evs) != 1 || evs[0].ActorUserID != "u" || evs[0].NumberCount != 2 || evs[0].Type != EventTypeSessionDispatched {
		t.Fatalf("unexpected events: %+v", evs)
	}
	if !evs[0].CreatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected created_at %v", evs[0].CreatedAt)
	}
}
