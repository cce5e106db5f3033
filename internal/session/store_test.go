package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rhcare/clinic-api/internal/domain"
	"github.com/rhcare/clinic-api/internal/session"
)

func newTestStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return session.NewRedisStore(client), mr
}

func TestIssueAndResolve(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token))
	}

	userID, err := store.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("user id = %q, want user-1", userID)
	}

	// Sessions have no TTL; they survive until revoked.
	if mr.TTL("session:"+token) != 0 {
		t.Error("session key should not expire")
	}
}

func TestTokensAreUnique(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a, err := store.Issue(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := store.Issue(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two logins must not share a token")
	}

	// Both remain valid at once.
	for _, token := range []string{a, b} {
		if _, err := store.Resolve(ctx, token); err != nil {
			t.Errorf("resolve %q: %v", token, err)
		}
	}
}

func TestResolveUnknownToken(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Resolve(context.Background(), "deadbeef")
	if !errors.Is(err, domain.ErrInvalidSession) {
		t.Errorf("got %v, want ErrInvalidSession", err)
	}
}

func TestRevoke(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Revoke(ctx, token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.Resolve(ctx, token); !errors.Is(err, domain.ErrInvalidSession) {
		t.Errorf("after revoke: got %v, want ErrInvalidSession", err)
	}

	// Revoking twice is harmless.
	if err := store.Revoke(ctx, token); err != nil {
		t.Errorf("second revoke: %v", err)
	}
}
