package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"combo-auth/internal/session/domain"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func testSession(token string, ttl time.Duration) domain.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Session{
		Token:      token,
		IdentityID: "id-1",
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
}

func TestRedisStore_ReplaceAndFind(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()
	want := testSession("tok-a", time.Hour)

	if err := store.Replace(ctx, want); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, err := store.FindByToken(ctx, "tok-a")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if got == nil {
		t.Fatal("FindByToken returned nil for stored session")
	}
	if got.IdentityID != want.IdentityID || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRedisStore_FindMissing(t *testing.T) {
	store, _ := newTestRedisStore(t)

	got, err := store.FindByToken(context.Background(), "absent")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if got != nil {
		t.Errorf("FindByToken for absent token = %+v, want nil", got)
	}
}

func TestRedisStore_ReplaceOverwrites(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	first := testSession("tok-b", time.Hour)
	first.IdentityID = "id-old"
	if err := store.Replace(ctx, first); err != nil {
		t.Fatalf("Replace first: %v", err)
	}
	second := testSession("tok-b", time.Hour)
	second.IdentityID = "id-new"
	if err := store.Replace(ctx, second); err != nil {
		t.Fatalf("Replace second: %v", err)
	}

	got, err := store.FindByToken(ctx, "tok-b")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if got.IdentityID != "id-new" {
		t.Errorf("IdentityID = %q, last login must win", got.IdentityID)
	}
}

func TestRedisStore_ExpiryRemovesSession(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Replace(ctx, testSession("tok-c", time.Minute)); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	got, err := store.FindByToken(ctx, "tok-c")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if got != nil {
		t.Errorf("expired session still readable: %+v", got)
	}
}

func TestRedisStore_ReplaceExpiredDeletes(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Replace(ctx, testSession("tok-d", time.Hour)); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := store.Replace(ctx, testSession("tok-d", -time.Minute)); err != nil {
		t.Fatalf("Replace with past expiry: %v", err)
	}
	got, err := store.FindByToken(ctx, "tok-d")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if got != nil {
		t.Error("replacing with an expired session should leave no row")
	}
}

func TestRedisStore_DeleteIdempotent(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Replace(ctx, testSession("tok-e", time.Hour)); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := store.DeleteByToken(ctx, "tok-e"); err != nil {
		t.Fatalf("DeleteByToken: %v", err)
	}
	if err := store.DeleteByToken(ctx, "tok-e"); err != nil {
		t.Fatalf("DeleteByToken repeat: %v", err)
	}
	got, err := store.FindByToken(ctx, "tok-e")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if got != nil {
		t.Error("session should be gone after delete")
	}
}
