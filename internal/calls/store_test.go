package calls

import (
	"context"
	"errors"
	"testing"

	"voice-dialer/pkg/utils"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()
	db, err := utils.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := NewSQLStore(db, DialectSQLite)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func TestStore_CreateAssignsDefaults(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := &CallAttempt{SessionID: "s1", Phone: "+14155550123", RawPhone: "4155550123"}
		if err := s.Create(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
		if a.ID == "" || a.CreatedAt.IsZero() || a.Status != StatusPending {
			t.Fatalf("defaults not assigned: %+v", a)
		}
		got, err := s.Get(ctx, a.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Phone != a.Phone || got.RawPhone != "4155550123" || got.Status != StatusPending {
			t.Fatalf("unexpected record: %+v", got)
		}
		if got.TelephonyCallID != "" || got.AgentCallID != "" {
			t.Fatalf("provider ids should be empty: %+v", got)
		}
	})
}

func TestStore_CreateRejectsInvalid(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, a := range []*CallAttempt{
			{SessionID: "s1"},
			{Phone: "+14155550123"},
			{SessionID: "s1", Phone: "+14155550123", Status: Status("queued")},
		} {
			if err := s.Create(ctx, a); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument for %+v, got %v", a, err)
			}
		}
	})
}

func TestStore_UpdateAndNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := &CallAttempt{SessionID: "s1", Phone: "+14155550123"}
		if err := s.Create(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := s.Update(ctx, a.ID, Patch{TelephonyCallID: Ptr("CA1"), Status: Ptr(StatusInProgress)}); err != nil {
			t.Fatalf("update: %v", err)
		}
		if err := s.Update(ctx, a.ID, Patch{Error: Ptr("agent attach failed: boom")}); err != nil {
			t.Fatalf("update error: %v", err)
		}
		got, err := s.Get(ctx, a.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.TelephonyCallID != "CA1" || got.Status != StatusInProgress || got.Error != "agent attach failed: boom" {
			t.Fatalf("unexpected record: %+v", got)
		}
		if err := s.Update(ctx, "missing", Patch{Error: Ptr("x")}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_FindBySessionKeepsCreationOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		phones := []string{"+14155550123", "+919876543210", "+12025550123"}
		for _, p := range phones {
			if err := s.Create(ctx, &CallAttempt{SessionID: "s1", Phone: p}); err != nil {
				t.Fatalf("create: %v", err)
			}
		}
		if err := s.Create(ctx, &CallAttempt{SessionID: "s2", Phone: "+14155550199"}); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := s.FindBySession(ctx, "s1")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(got) != len(phones) {
			t.Fatalf("expected %d records, got %d", len(phones), len(got))
		}
		for i, p := range phones {
			if got[i].Phone != p {
				t.Fatalf("position %d: want %s got %s", i, p, got[i].Phone)
			}
		}
	})
}

func TestStore_FindByOwnerNewestFirstWithLimit(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, p := range []string{"+14155550101", "+14155550102", "+14155550103"} {
			if err := s.Create(ctx, &CallAttempt{SessionID: "s1", OwnerID: "u1", Phone: p}); err != nil {
				t.Fatalf("create: %v", err)
			}
		}
		if err := s.Create(ctx, &CallAttempt{SessionID: "s1", OwnerID: "u2", Phone: "+14155550104"}); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := s.FindByOwner(ctx, "u1", 2)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(got) != 2 || got[0].Phone != "+14155550103" || got[1].Phone != "+14155550102" {
			t.Fatalf("unexpected owner records: %+v", got)
		}
		all, err := s.FindByOwner(ctx, "u1", 0)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 records, got %d", len(all))
		}
	})
}

func TestStore_UpsertByProviderKey(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := &CallAttempt{SessionID: "s1", Phone: "+14155550123", TelephonyCallID: "CA1"}
		if err := s.Create(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := s.UpsertByProviderKey(ctx, ProviderKey{TelephonyCallID: "CA1"}, Patch{AgentCallID: Ptr("v1"), Status: Ptr(StatusCompleted)}, CallAttempt{})
		if err != nil {
			t.Fatalf("upsert existing: %v", err)
		}
		if got.ID != a.ID || got.AgentCallID != "v1" || got.Status != StatusCompleted {
			t.Fatalf("unexpected upsert result: %+v", got)
		}

		seed := CallAttempt{SessionID: "s9", Phone: "+14155550999"}
		created, err := s.UpsertByProviderKey(ctx, ProviderKey{AgentCallID: "v2"}, Patch{AgentCallID: Ptr("v2"), Status: Ptr(StatusInProgress)}, seed)
		if err != nil {
			t.Fatalf("upsert new: %v", err)
		}
		if created.ID == "" || created.ID == a.ID || created.AgentCallID != "v2" || created.Status != StatusInProgress {
			t.Fatalf("unexpected seeded record: %+v", created)
		}

		if _, err := s.UpsertByProviderKey(ctx, ProviderKey{}, Patch{}, seed); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for empty key, got %v", err)
		}
		if _, err := s.UpsertByProviderKey(ctx, ProviderKey{TelephonyCallID: "nope"}, Patch{Status: Ptr(StatusFailed)}, CallAttempt{}); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for unseedable miss, got %v", err)
		}
	})
}
