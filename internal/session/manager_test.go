package session

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"agentchat/internal/db"
	"agentchat/internal/store"

	_ "modernc.org/sqlite"
)

func newTestManager(t *testing.T) (*Manager, *sql.DB) {
	t.Helper()

	database, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := db.EnsureSchema(database); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	for _, id := range []string{"user-1", "user-2"} {
		if _, err := database.Exec(`
INSERT INTO users (id, username, email, password_hash)
VALUES (?, ?, ?, 'x');
`, id, id+"-name", id+"@example.com"); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	return NewManager(store.New(database)), database
}

func countSessions(t *testing.T, database *sql.DB, userID string) int {
	t.Helper()
	var count int
	if err := database.QueryRow(`SELECT COUNT(*) FROM chat_sessions WHERE user_id = ?;`, userID).Scan(&count); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	return count
}

func TestResolveWithValidTokenIsIdempotent(t *testing.T) {
	manager, database := newTestManager(t)
	ctx := context.Background()

	token, err := manager.Resolve(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := manager.Resolve(ctx, "user-1", token)
		if err != nil {
			t.Fatalf("resolve with token: %v", err)
		}
		if got != token {
			t.Fatalf("expected %s, got %s", token, got)
		}
	}

	if count := countSessions(t, database, "user-1"); count != 1 {
		t.Fatalf("expected exactly 1 session, got %d", count)
	}
}

func TestResolveForeignTokenFallsBackToCreation(t *testing.T) {
	manager, database := newTestManager(t)
	ctx := context.Background()

	otherToken, err := manager.Resolve(ctx, "user-2", "")
	if err != nil {
		t.Fatalf("resolve other user: %v", err)
	}

	got, err := manager.Resolve(ctx, "user-1", otherToken)
	if err != nil {
		t.Fatalf("resolve with foreign token must not error: %v", err)
	}
	if got == otherToken {
		t.Fatal("foreign token must not be adopted")
	}

	if count := countSessions(t, database, "user-1"); count != 1 {
		t.Fatalf("expected a fresh session for user-1, got %d", count)
	}
	if count := countSessions(t, database, "user-2"); count != 1 {
		t.Fatalf("user-2 sessions must be untouched, got %d", count)
	}
}

func TestResolveCacheMissCreatesExactlyOneSession(t *testing.T) {
	manager, database := newTestManager(t)
	ctx := context.Background()

	first, err := manager.Resolve(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := manager.Resolve(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}

	if first != second {
		t.Fatalf("cached resolution should reuse the token: %s != %s", first, second)
	}
	if count := countSessions(t, database, "user-1"); count != 1 {
		t.Fatalf("expected exactly 1 session, got %d", count)
	}
}

func TestResolveRecreatesAfterExternalDeactivation(t *testing.T) {
	manager, database := newTestManager(t)
	ctx := context.Background()

	token, err := manager.Resolve(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if _, err := database.Exec(`UPDATE chat_sessions SET is_active = 0 WHERE session_id = ?;`, token); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	fresh, err := manager.Resolve(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("resolve after deactivation: %v", err)
	}
	if fresh == token {
		t.Fatal("stale cached token must not be returned after deactivation")
	}
}

func TestInvalidateForcesFreshSession(t *testing.T) {
	manager, database := newTestManager(t)
	ctx := context.Background()

	first, err := manager.Resolve(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	manager.Invalidate("user-1")

	second, err := manager.Resolve(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("resolve after invalidate: %v", err)
	}
	if second == first {
		t.Fatal("invalidate should force a new session")
	}

	// The old session stays in the store; only the cache entry was dropped.
	if count := countSessions(t, database, "user-1"); count != 2 {
		t.Fatalf("expected 2 durable sessions, got %d", count)
	}
	sessions, err := manager.Sessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected both sessions active, got %d", len(sessions))
	}
	if sessions[0].SessionID != second {
		t.Fatalf("expected newest session first, got %s", sessions[0].SessionID)
	}
}

func TestConcurrentFirstResolutionsCreateOneSession(t *testing.T) {
	manager, database := newTestManager(t)
	ctx := context.Background()

	const workers = 16
	tokens := make([]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			token, err := manager.Resolve(ctx, "user-1", "")
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	for _, token := range tokens {
		if token != tokens[0] {
			t.Fatalf("tokens diverged: %s != %s", token, tokens[0])
		}
	}
	if count := countSessions(t, database, "user-1"); count != 1 {
		t.Fatalf("expected exactly 1 session under concurrency, got %d", count)
	}
}
